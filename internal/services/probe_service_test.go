package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestProbeService_Check(t *testing.T) {
	svc := NewProbeService(map[string]Pinger{
		"fortigate": pingerFunc(func(context.Context) error { return nil }),
		"redis":     pingerFunc(func(context.Context) error { return errors.New("connection refused") }),
	}, 0)
	fixed := time.Date(2024, time.March, 7, 9, 30, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	assert.Empty(t, svc.Results())
	svc.Check(context.Background())

	res := svc.Results()
	require.Len(t, res, 2)
	assert.Equal(t, ProbeResult{Up: true, CheckedAt: fixed}, res["fortigate"])
	assert.False(t, res["redis"].Up)
	assert.Equal(t, "connection refused", res["redis"].Error)
}

func TestProbeService_CheckAppliesTimeout(t *testing.T) {
	var hadDeadline bool
	svc := NewProbeService(map[string]Pinger{
		"fortigate": pingerFunc(func(ctx context.Context) error {
			_, hadDeadline = ctx.Deadline()
			return nil
		}),
	}, time.Second)

	svc.Check(context.Background())
	assert.True(t, hadDeadline)
}

func TestProbeService_Start(t *testing.T) {
	svc := NewProbeService(nil, 0)

	require.NoError(t, svc.Start(""))
	assert.Nil(t, svc.cron)

	assert.Error(t, svc.Start("not a schedule"))

	require.NoError(t, svc.Start("@every 1h"))
	assert.NotNil(t, svc.cron)
	svc.Stop()
}
