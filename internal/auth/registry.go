// Package auth holds the static credential registry used to gate API routes.
package auth

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

var (
	// ErrMalformedPrincipal is returned when a registry entry cannot be evaluated.
	ErrMalformedPrincipal = errors.New("malformed principal")
)

// Method records how a principal was matched.
type Method string

const (
	MethodAPIKey    Method = "api-key"
	MethodWhitelist Method = "whitelist"
)

// Principal is a caller identity holding an API key and/or whitelisted source
// addresses, each granting access to a fixed set of route paths.
type Principal struct {
	Username      string   `yaml:"username"`
	APIKey        string   `yaml:"api_key"`
	AllowedRoutes []string `yaml:"allowed"`
	Whitelist     []string `yaml:"whitelist"`
}

func (p Principal) allows(route string) bool {
	return slices.Contains(p.AllowedRoutes, route)
}

func (p Principal) keyMatches(key string) bool {
	return p.APIKey != "" && p.APIKey == key
}

func (p Principal) whitelisted(addr string) bool {
	return addr != "" && slices.Contains(p.Whitelist, addr)
}

// Registry is an ordered, read-only list of principals.
type Registry struct {
	principals []Principal
}

// NewRegistry copies principals into a registry. Order is preserved.
func NewRegistry(principals []Principal) *Registry {
	return &Registry{principals: slices.Clone(principals)}
}

type registryFile struct {
	APIKeys []Principal `yaml:"api_keys"`
}

// Load reads a YAML credentials file and validates every entry.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML credentials and validates every entry.
func Parse(data []byte) (*Registry, error) {
	var f registryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode credentials: %w", err)
	}
	for i, p := range f.APIKeys {
		if err := validate(p); err != nil {
			return nil, fmt.Errorf("credential %d: %w", i, err)
		}
	}
	return NewRegistry(f.APIKeys), nil
}

func validate(p Principal) error {
	if p.Username == "" {
		return fmt.Errorf("%w: username is required", ErrMalformedPrincipal)
	}
	if p.APIKey == "" && len(p.Whitelist) == 0 {
		return fmt.Errorf("%w: %s has neither api_key nor whitelist", ErrMalformedPrincipal, p.Username)
	}
	return nil
}

// Len returns the number of principals.
func (r *Registry) Len() int {
	return len(r.principals)
}

// Match walks principals in order and returns the first one that admits the
// request. A principal admits when the presented key equals its key, or the
// source address is whitelisted, and in both cases the route is allowed.
// ok is false when nothing matched. An entry without a username stops the walk
// with ErrMalformedPrincipal.
//
// An empty presented key never matches, not even a principal whose configured
// key is also empty, so principals without a key are whitelist-only.
func (r *Registry) Match(key, addr, route string) (p Principal, method Method, ok bool, err error) {
	for _, candidate := range r.principals {
		if candidate.Username == "" {
			return Principal{}, "", false, ErrMalformedPrincipal
		}
		if candidate.keyMatches(key) && candidate.allows(route) {
			return candidate, MethodAPIKey, true, nil
		}
		if candidate.whitelisted(addr) && candidate.allows(route) {
			return candidate, MethodWhitelist, true, nil
		}
	}
	return Principal{}, "", false, nil
}
