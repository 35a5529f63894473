// Package notify announces bans to chat and webhook services through shoutrrr.
package notify

import (
	"fmt"
	"sync"

	"github.com/containrrr/shoutrrr"

	"github.com/fortiban/fortiban/internal/logger"
)

// Test hook to allow overriding the shoutrrr sender.
var sendFunc = shoutrrr.Send

// Notifier fans a message out to every configured shoutrrr URL.
type Notifier struct {
	urls     []string
	location string
	wg       sync.WaitGroup
}

// New returns a notifier; with no URLs every call is a no-op.
func New(urls []string, location string) *Notifier {
	return &Notifier{urls: urls, location: location}
}

// Enabled reports whether any destination is configured.
func (n *Notifier) Enabled() bool {
	return n != nil && len(n.urls) > 0
}

// Banned sends a ban announcement in the background. Delivery errors are logged.
func (n *Notifier) Banned(ip, backend, actor string) {
	if !n.Enabled() {
		return
	}
	msg := fmt.Sprintf("%s banned via %s (requested by %s)", ip, backend, actor)
	if n.location != "" {
		msg = fmt.Sprintf("[%s] %s", n.location, msg)
	}

	for _, url := range n.urls {
		n.wg.Add(1)
		go func(u string) {
			defer n.wg.Done()
			if err := sendFunc(u, msg); err != nil {
				logger.Log().WithError(err).WithField("ip", ip).Warn("ban notification failed")
			}
		}(url)
	}
}

// Wait blocks until in-flight notifications finish.
func (n *Notifier) Wait() {
	if n != nil {
		n.wg.Wait()
	}
}
