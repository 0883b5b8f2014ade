package snapshot

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// ItemSource provides the items to refresh.
type ItemSource interface {
	Items() []string
}

// ItemSourceFunc is a function adapter for ItemSource.
type ItemSourceFunc func() []string

func (f ItemSourceFunc) Items() []string {
	return f()
}

// RequestFunc issues one non-streaming request covering all given items.
type RequestFunc func(items []string) error

// Config holds refresher configuration.
type Config struct {
	Interval time.Duration // Refresh interval (default: 15m)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval: 15 * time.Minute,
	}
}

// Requester periodically requests full images of the watchlist.
type Requester struct {
	cfg     Config
	items   ItemSource
	request RequestFunc
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Requester.
func New(cfg Config, items ItemSource, request RequestFunc, logger *slog.Logger) *Requester {
	if logger == nil {
		logger = slog.Default()
	}
	return &Requester{
		cfg:     cfg,
		items:   items,
		request: request,
		logger:  logger,
	}
}

// Start begins the refresh loop. The first refresh fires one interval after
// start; the subscription itself already delivered the initial images.
func (r *Requester) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(1)
	go r.run()

	r.logger.Info("snapshot requester started",
		"interval", r.cfg.Interval,
	)

	return nil
}

// Stop gracefully shuts down the refresh loop.
func (r *Requester) Stop(ctx context.Context) error {
	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("snapshot requester stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Requester) run() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.refresh()
		}
	}
}

// refresh issues one snapshot request for the whole watchlist.
func (r *Requester) refresh() {
	start := time.Now()

	items := r.items.Items()
	if len(items) == 0 {
		r.logger.Debug("no items to refresh")
		return
	}

	if err := r.request(items); err != nil {
		r.logger.Warn("snapshot request failed",
			"items", len(items),
			"err", err,
		)
		return
	}

	r.logger.Info("snapshot refresh requested",
		"items", len(items),
		"duration", time.Since(start),
	)
}
