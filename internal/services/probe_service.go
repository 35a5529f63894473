package services

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/fortiban/fortiban/internal/logger"
	"github.com/fortiban/fortiban/internal/metrics"
)

// Pinger is anything that can report its own reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ProbeResult is the outcome of the last check of one upstream.
type ProbeResult struct {
	Up        bool      `json:"up"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// ProbeService periodically checks the firewall API and the blocklist cache.
type ProbeService struct {
	targets map[string]Pinger
	timeout time.Duration
	now     func() time.Time

	mu   sync.RWMutex
	last map[string]ProbeResult

	cron *cron.Cron
}

func NewProbeService(targets map[string]Pinger, timeout time.Duration) *ProbeService {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ProbeService{
		targets: targets,
		timeout: timeout,
		now:     time.Now,
		last:    make(map[string]ProbeResult, len(targets)),
	}
}

// Check pings every target once and records the results.
func (s *ProbeService) Check(ctx context.Context) {
	for name, target := range s.targets {
		pctx, cancel := context.WithTimeout(ctx, s.timeout)
		err := target.Ping(pctx)
		cancel()

		res := ProbeResult{Up: err == nil, CheckedAt: s.now()}
		if err != nil {
			res.Error = err.Error()
			logger.Log().WithError(err).WithField("upstream", name).Warn("upstream probe failed")
		}
		metrics.SetUpstreamUp(name, res.Up)

		s.mu.Lock()
		s.last[name] = res
		s.mu.Unlock()
	}
}

// Results returns a copy of the latest results keyed by upstream name.
func (s *ProbeService) Results() map[string]ProbeResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]ProbeResult, len(s.last))
	for k, v := range s.last {
		out[k] = v
	}
	return out
}

// Start schedules Check with a cron spec such as "@every 1m". An empty spec disables probing.
func (s *ProbeService) Start(spec string) error {
	if spec == "" {
		return nil
	}
	c := cron.New()
	if _, err := c.AddFunc(spec, func() { s.Check(context.Background()) }); err != nil {
		return err
	}
	c.Start()
	s.cron = c
	return nil
}

// Stop halts the schedule and waits for a running check to finish.
func (s *ProbeService) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}
