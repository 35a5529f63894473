package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/fortiban/fortiban/internal/fortigate"
	"github.com/fortiban/fortiban/internal/logger"
	"github.com/fortiban/fortiban/internal/metrics"
	"github.com/fortiban/fortiban/internal/notify"
)

// ErrUpstream marks failures talking to the firewall or the blocklist cache.
var ErrUpstream = errors.New("upstream failure")

// DefaultAddressGroup is the group auto-banned addresses are added to.
const DefaultAddressGroup = "MaliciousAuto"

// AddressGroupAPI is the part of the firewall client the ban sequence needs.
type AddressGroupAPI interface {
	CreateAddress(ctx context.Context, name, subnet string) error
	GetAddressGroupMembers(ctx context.Context, group string) ([]fortigate.Member, error)
	ReplaceAddressGroupMembers(ctx context.Context, group string, current []fortigate.Member, newMember string) error
}

// BanService pushes banned addresses into a firewall address group.
//
// The three calls are not transactional: a failure after the address object
// is created leaves it outside the group until the next ban of the same IP.
// Membership is read then replaced, so two concurrent bans can drop one of
// the new members.
type BanService struct {
	fw       AddressGroupAPI
	group    string
	notifier *notify.Notifier
}

// NewBanService returns a BanService targeting group (DefaultAddressGroup when empty).
func NewBanService(fw AddressGroupAPI, group string, notifier *notify.Notifier) *BanService {
	if group == "" {
		group = DefaultAddressGroup
	}
	return &BanService{fw: fw, group: group, notifier: notifier}
}

// AddressName is the firewall object name used for ip.
func AddressName(ip string) string {
	return "auto-" + ip
}

// Ban creates the address object for ip and appends it to the group.
func (s *BanService) Ban(ctx context.Context, ip, actor string) error {
	name := AddressName(ip)
	subnet := ip + "/32"
	entry := logger.WithFields(map[string]interface{}{
		"ip":      ip,
		"address": name,
		"group":   s.group,
	})

	if err := s.fw.CreateAddress(ctx, name, subnet); err != nil {
		metrics.IncBan("firewall", false)
		return fmt.Errorf("%w: create address %s: %w", ErrUpstream, name, err)
	}

	members, err := s.fw.GetAddressGroupMembers(ctx, s.group)
	if err != nil {
		metrics.IncBan("firewall", false)
		return fmt.Errorf("%w: read group %s: %w", ErrUpstream, s.group, err)
	}

	if err := s.fw.ReplaceAddressGroupMembers(ctx, s.group, members, name); err != nil {
		metrics.IncBan("firewall", false)
		return fmt.Errorf("%w: update group %s: %w", ErrUpstream, s.group, err)
	}

	metrics.IncBan("firewall", true)
	entry.WithField("members", len(members)+1).Info("address group updated")
	s.notifier.Banned(ip, "firewall", actor)
	return nil
}
