package client

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// SiteStatus is the gate state of the site.
type SiteStatus string

// Site states. StatusUnknown is held until the first poll completes.
const (
	StatusUnknown     SiteStatus = ""
	StatusLive        SiteStatus = "live"
	StatusMaintenance SiteStatus = "maintenance"
	StatusOffline     SiteStatus = "offline"
)

// Poller defaults
const (
	DefaultPollInterval = 30 * time.Second
	DefaultMinSplash    = 1500 * time.Millisecond
)

// StatusSource reports the current site status.
type StatusSource interface {
	Status(ctx context.Context) (string, error)
}

// StatusPoller polls a StatusSource on a fixed interval.
type StatusPoller struct {
	src      StatusSource
	interval time.Duration
	logger   *slog.Logger

	mu      sync.RWMutex
	status  SiteStatus
	checked time.Time
	ready   chan struct{}
	once    sync.Once
}

// NewStatusPoller creates a poller. A non-positive interval uses
// DefaultPollInterval.
func NewStatusPoller(src StatusSource, interval time.Duration, logger *slog.Logger) *StatusPoller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StatusPoller{
		src:      src,
		interval: interval,
		logger:   logger,
		ready:    make(chan struct{}),
	}
}

// Run polls immediately and then on every tick until ctx is cancelled.
func (p *StatusPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *StatusPoller) poll(ctx context.Context) {
	raw, err := p.src.Status(ctx)
	if ctx.Err() != nil {
		return
	}

	st := parseStatus(raw)
	if err != nil {
		p.logger.Debug("status check failed", "error", err)
		st = StatusOffline
	}

	p.mu.Lock()
	prev := p.status
	p.status = st
	p.checked = time.Now()
	p.mu.Unlock()

	if prev != st && prev != StatusUnknown {
		p.logger.Info("site status changed", "from", prev, "to", st)
	}
	p.once.Do(func() { close(p.ready) })
}

// parseStatus maps anything unrecognized to live, so that a newer server
// reporting an unknown state does not take the site down.
func parseStatus(s string) SiteStatus {
	switch SiteStatus(s) {
	case StatusMaintenance:
		return StatusMaintenance
	case StatusOffline:
		return StatusOffline
	}
	return StatusLive
}

// Status returns the latest status and when it was checked.
func (p *StatusPoller) Status() (SiteStatus, time.Time) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status, p.checked
}

// WaitReady blocks until the first status is known and minSplash has passed
// since the call, then returns that status.
func (p *StatusPoller) WaitReady(ctx context.Context, minSplash time.Duration) (SiteStatus, error) {
	splash := time.NewTimer(minSplash)
	defer splash.Stop()

	select {
	case <-ctx.Done():
		return StatusUnknown, ctx.Err()
	case <-p.ready:
	}
	select {
	case <-ctx.Done():
		return StatusUnknown, ctx.Err()
	case <-splash.C:
	}

	st, _ := p.Status()
	return st, nil
}
