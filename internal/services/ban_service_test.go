package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortiban/fortiban/internal/fortigate"
)

// fakeFirewall keeps address objects and groups in memory. Creating an
// existing object is a no-op, like the real API.
type fakeFirewall struct {
	objects map[string]string
	groups  map[string][]fortigate.Member
	calls   []string

	createErr  error
	readErr    error
	replaceErr error
}

func newFakeFirewall() *fakeFirewall {
	return &fakeFirewall{
		objects: map[string]string{},
		groups:  map[string][]fortigate.Member{DefaultAddressGroup: {{Name: "auto-192.0.2.1"}}},
	}
}

func (f *fakeFirewall) CreateAddress(_ context.Context, name, subnet string) error {
	f.calls = append(f.calls, "create")
	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.objects[name]; !ok {
		f.objects[name] = subnet
	}
	return nil
}

func (f *fakeFirewall) GetAddressGroupMembers(_ context.Context, group string) ([]fortigate.Member, error) {
	f.calls = append(f.calls, "read")
	if f.readErr != nil {
		return nil, f.readErr
	}
	return append([]fortigate.Member(nil), f.groups[group]...), nil
}

func (f *fakeFirewall) ReplaceAddressGroupMembers(_ context.Context, group string, current []fortigate.Member, newMember string) error {
	f.calls = append(f.calls, "replace")
	if f.replaceErr != nil {
		return f.replaceErr
	}
	f.groups[group] = append(append([]fortigate.Member(nil), current...), fortigate.Member{Name: newMember})
	return nil
}

func TestAddressName(t *testing.T) {
	assert.Equal(t, "auto-10.0.0.5", AddressName("10.0.0.5"))
}

func TestBanService_Ban(t *testing.T) {
	fw := newFakeFirewall()
	svc := NewBanService(fw, "", nil)

	require.NoError(t, svc.Ban(context.Background(), "10.0.0.5", "graylog"))

	assert.Equal(t, []string{"create", "read", "replace"}, fw.calls)
	assert.Equal(t, "10.0.0.5/32", fw.objects["auto-10.0.0.5"])
	assert.Equal(t, []fortigate.Member{{Name: "auto-192.0.2.1"}, {Name: "auto-10.0.0.5"}}, fw.groups[DefaultAddressGroup])
}

func TestBanService_BanTwice(t *testing.T) {
	fw := newFakeFirewall()
	svc := NewBanService(fw, "", nil)

	require.NoError(t, svc.Ban(context.Background(), "10.0.0.5", "graylog"))
	require.NoError(t, svc.Ban(context.Background(), "10.0.0.5", "graylog"))

	assert.Len(t, fw.objects, 1)
	count := 0
	for _, m := range fw.groups[DefaultAddressGroup] {
		if m.Name == "auto-10.0.0.5" {
			count++
		}
	}
	// membership is replaced wholesale without dedup
	assert.Equal(t, 2, count)
}

func TestBanService_CustomGroup(t *testing.T) {
	fw := newFakeFirewall()
	svc := NewBanService(fw, "Blocked", nil)

	require.NoError(t, svc.Ban(context.Background(), "10.0.0.5", "ops"))
	assert.Equal(t, []fortigate.Member{{Name: "auto-10.0.0.5"}}, fw.groups["Blocked"])
}

func TestBanService_StepFailuresAbort(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name      string
		setup     func(f *fakeFirewall)
		wantCalls []string
		wantIs    error
	}{
		{
			name:      "create fails",
			setup:     func(f *fakeFirewall) { f.createErr = boom },
			wantCalls: []string{"create"},
			wantIs:    boom,
		},
		{
			name:      "ambiguous group",
			setup:     func(f *fakeFirewall) { f.readErr = fortigate.ErrAmbiguousGroup },
			wantCalls: []string{"create", "read"},
			wantIs:    fortigate.ErrAmbiguousGroup,
		},
		{
			name:      "replace fails",
			setup:     func(f *fakeFirewall) { f.replaceErr = boom },
			wantCalls: []string{"create", "read", "replace"},
			wantIs:    boom,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fw := newFakeFirewall()
			tt.setup(fw)

			err := NewBanService(fw, "", nil).Ban(context.Background(), "10.0.0.5", "graylog")
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrUpstream)
			assert.ErrorIs(t, err, tt.wantIs)
			assert.Equal(t, tt.wantCalls, fw.calls)
		})
	}
}
