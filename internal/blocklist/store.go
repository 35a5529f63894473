// Package blocklist stores banned addresses as keys in Redis. The Redis DB
// number acts as the namespace: one DB receives new entries, another (often
// the same) is read by the public listing.
package blocklist

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const scanBatch = 500

// Options configure a Store.
type Options struct {
	Addr     string
	Password string
	DB       int
	ListDB   int
}

// Store reads and writes blocklist entries.
type Store struct {
	write *redis.Client
	list  *redis.Client
	now   func() time.Time
}

// New connects lazily to Redis; no command is issued until first use.
func New(opts Options) *Store {
	write := redis.NewClient(&redis.Options{Addr: opts.Addr, Password: opts.Password, DB: opts.DB})
	list := write
	if opts.ListDB != opts.DB {
		list = redis.NewClient(&redis.Options{Addr: opts.Addr, Password: opts.Password, DB: opts.ListDB})
	}
	return NewWithClients(write, list)
}

// NewWithClients builds a store over existing clients.
func NewWithClients(write, list *redis.Client) *Store {
	return &Store{write: write, list: list, now: time.Now}
}

// Add records ip with the current time as value. Existing entries are overwritten.
func (s *Store) Add(ctx context.Context, ip string) error {
	if err := s.write.Set(ctx, ip, s.now().Format(time.RFC3339), 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", ip, err)
	}
	return nil
}

// List returns every key in the listing DB. Order is whatever SCAN yields.
func (s *Store) List(ctx context.Context) ([]string, error) {
	keys := make([]string, 0)
	iter := s.list.Scan(ctx, 0, "*", scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan keys: %w", err)
	}
	return keys, nil
}

// Ping checks both connections.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.write.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	if s.list != s.write {
		if err := s.list.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping redis list db: %w", err)
		}
	}
	return nil
}

// Close releases the underlying connections.
func (s *Store) Close() error {
	err := s.write.Close()
	if s.list != s.write {
		if lerr := s.list.Close(); err == nil {
			err = lerr
		}
	}
	return err
}
