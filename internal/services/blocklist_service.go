package services

import (
	"context"
	"fmt"

	"github.com/fortiban/fortiban/internal/logger"
	"github.com/fortiban/fortiban/internal/metrics"
	"github.com/fortiban/fortiban/internal/notify"
)

// BlocklistStore is the key-value backend for the blocklist.
type BlocklistStore interface {
	Add(ctx context.Context, ip string) error
	List(ctx context.Context) ([]string, error)
}

// BlocklistService records banned addresses in the shared cache.
type BlocklistService struct {
	store    BlocklistStore
	notifier *notify.Notifier
}

func NewBlocklistService(store BlocklistStore, notifier *notify.Notifier) *BlocklistService {
	return &BlocklistService{store: store, notifier: notifier}
}

// Record marks ip as blocked.
func (s *BlocklistService) Record(ctx context.Context, ip, actor string) error {
	if err := s.store.Add(ctx, ip); err != nil {
		metrics.IncBan("blocklist", false)
		return fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	metrics.IncBan("blocklist", true)
	logger.WithFields(map[string]interface{}{"ip": ip, "user": actor}).Info("address added to blocklist")
	s.notifier.Banned(ip, "blocklist", actor)
	return nil
}

// List returns a point-in-time snapshot of blocked addresses, unordered.
func (s *BlocklistService) List(ctx context.Context) ([]string, error) {
	ips, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	return ips, nil
}
