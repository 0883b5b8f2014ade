// newsarchiver subscribes to an Elektron feed and archives reassembled news
// stories and market data messages to PostgreSQL.
// Usage: go run ./cmd/newsarchiver --config configs/newsarchiver.example.yaml
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rickgao/elektron"
	"github.com/rickgao/elektron/internal/archive"
	"github.com/rickgao/elektron/internal/config"
	"github.com/rickgao/elektron/internal/database"
	"github.com/rickgao/elektron/internal/metrics"
	"github.com/rickgao/elektron/internal/snapshot"
	"github.com/rickgao/elektron/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/newsarchiver.local.yaml", "path to config file")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting news archiver",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"feed_url", cfg.Feed.URL,
		"items", len(cfg.Watchlist.Items),
		"news", cfg.Watchlist.News,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Connect to database
	logger.Info("connecting to database",
		"host", cfg.Database.Archive.Host,
		"port", cfg.Database.Archive.Port,
		"database", cfg.Database.Archive.Name,
	)

	pool, err := database.Connect(ctx, cfg.Database.Archive)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	logger.Info("database connected")

	// Buffers and batch writers
	stories := archive.NewBuffer[archive.Story](cfg.Writers.BufferSize)
	quotes := archive.NewBuffer[archive.Quote](cfg.Writers.BufferSize)

	writerCfg := archive.Config{
		BatchSize:     cfg.Writers.BatchSize,
		FlushInterval: cfg.Writers.FlushInterval,
		BufferSize:    cfg.Writers.BufferSize,
	}
	storyWriter := archive.NewStoryWriter(writerCfg, stories, pool, logger)
	quoteWriter := archive.NewQuoteWriter(writerCfg, quotes, pool, logger)

	if err := storyWriter.Start(ctx); err != nil {
		logger.Error("failed to start story writer", "error", err)
		os.Exit(1)
	}
	if err := quoteWriter.Start(ctx); err != nil {
		logger.Error("failed to start quote writer", "error", err)
		os.Exit(1)
	}

	// Feed consumer
	opts := []elektron.Option{elektron.WithLogger(logger)}
	if cfg.Feed.ApplicationID != "" {
		opts = append(opts, elektron.WithApplicationID(cfg.Feed.ApplicationID))
	}
	if cfg.Feed.Position != "" {
		opts = append(opts, elektron.WithPosition(cfg.Feed.Position))
	}
	consumer := elektron.New(opts...)

	consumer.OnNews(func(item string, story json.RawMessage) {
		if !stories.Send(archive.Story{
			Item:       item,
			ReceivedAt: time.Now().UTC(),
			Body:       story,
		}) {
			logger.Warn("story buffer closed, dropping story", "item", item)
		}
	})

	consumer.OnMarketData(func(message json.RawMessage) {
		item, msgType := messageHead(message)
		if !quotes.Send(archive.Quote{
			Item:       item,
			MsgType:    msgType,
			ReceivedAt: time.Now().UTC(),
			Payload:    message,
		}) {
			logger.Warn("quote buffer closed, dropping message", "item", item)
		}
	})

	runner := &feedRunner{
		consumer:    consumer,
		cfg:         cfg,
		loginOK:     make(chan struct{}, 1),
		disconnects: make(chan struct{}, 1),
		logger:      logger,
	}

	consumer.OnStatus(func(code elektron.StatusCode, payload json.RawMessage) {
		runner.handleStatus(code, payload)
	})

	// Snapshot refresher re-requests full images of the watchlist
	var refresher *snapshot.Requester
	if cfg.Snapshots.Enabled && len(cfg.Watchlist.Items) > 0 {
		refresher = snapshot.New(
			snapshot.Config{Interval: cfg.Snapshots.Interval},
			snapshot.ItemSourceFunc(func() []string { return cfg.Watchlist.Items }),
			func(items []string) error {
				streaming := false
				_, err := consumer.RequestData(items, elektron.RequestOptions{
					Service:   cfg.Feed.Service,
					Streaming: &streaming,
				})
				return err
			},
			logger,
		)
		if err := refresher.Start(ctx); err != nil {
			logger.Error("failed to start snapshot requester", "error", err)
			os.Exit(1)
		}
	}

	// Metrics and health server
	metrics.Register()

	mux := http.NewServeMux()
	mux.Handle(cfg.Metrics.Path, promhttp.Handler())
	mux.Handle("/health", healthHandler(pool, consumer, storyWriter, quoteWriter))

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler: mux,
	}
	go func() {
		logger.Info("starting metrics server", "port", cfg.Metrics.Port, "path", cfg.Metrics.Path)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()

	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				updateMetrics(consumer, pool, storyWriter, quoteWriter, stories, quotes)
			}
		}
	}()

	logger.Info("news archiver running",
		"instance_id", cfg.Instance.ID,
		"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.Metrics.Port),
	)

	// Run feed sessions until shutdown, redialing per config
	runner.loop(ctx, cancel)

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if refresher != nil {
		refresher.Stop(shutdownCtx)
	}
	storyWriter.Stop(shutdownCtx)
	quoteWriter.Stop(shutdownCtx)
	httpServer.Shutdown(shutdownCtx)

	logger.Info("news archiver stopped")
}

// feedRunner drives feed sessions: dial, log in, subscribe, and redial with
// exponential backoff when the connection drops.
type feedRunner struct {
	consumer    *elektron.Consumer
	cfg         *config.ArchiverConfig
	loginOK     chan struct{}
	disconnects chan struct{}
	logger      *slog.Logger
}

func (r *feedRunner) handleStatus(code elektron.StatusCode, payload json.RawMessage) {
	switch code {
	case elektron.StatusConnected:
		r.logger.Info("feed connected")
	case elektron.StatusLoginResponse:
		if r.consumer.LoggedIn() {
			select {
			case r.loginOK <- struct{}{}:
			default:
			}
		} else {
			r.logger.Error("login rejected", "payload", string(payload))
		}
	case elektron.StatusDisconnected:
		select {
		case r.disconnects <- struct{}{}:
		default:
		}
	case elektron.StatusProcessingError:
		r.logger.Error("processing error", "reason", string(payload))
	case elektron.StatusMsgStatus:
		r.logger.Warn("item status", "payload", string(payload))
	case elektron.StatusMsgError:
		r.logger.Error("feed error message", "payload", string(payload))
	}
}

// loop runs feed sessions until ctx is canceled. When reconnect is disabled
// a dropped session cancels the whole archiver via stop.
func (r *feedRunner) loop(ctx context.Context, stop context.CancelFunc) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = r.cfg.Reconnect.InitialDelay
	bo.MaxInterval = r.cfg.Reconnect.MaxDelay
	bo.MaxElapsedTime = 0 // retry until shutdown

	for {
		err := r.run(ctx, bo.Reset)
		if errors.Is(err, context.Canceled) {
			return
		}
		if err != nil {
			r.logger.Error("feed session ended", "error", err)
		}

		if !r.cfg.Reconnect.Enabled {
			r.logger.Error("reconnect disabled, stopping")
			stop()
			return
		}

		delay := bo.NextBackOff()
		r.logger.Info("reconnecting", "delay", delay)
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// run executes one feed session and blocks until it drops or ctx is canceled.
// onUp fires once the session is logged in and subscribed.
func (r *feedRunner) run(ctx context.Context, onUp func()) error {
	// Drain signals left over from a previous session
	select {
	case <-r.loginOK:
	default:
	}
	select {
	case <-r.disconnects:
	default:
	}

	if err := r.consumer.Connect(ctx, r.cfg.Feed.URL, r.cfg.Feed.User); err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	select {
	case <-r.loginOK:
	case <-r.disconnects:
		return errors.New("disconnected before login")
	case <-time.After(30 * time.Second):
		r.consumer.Close()
		return errors.New("timed out waiting for login")
	case <-ctx.Done():
		r.consumer.Close()
		return ctx.Err()
	}

	if err := r.subscribe(); err != nil {
		r.consumer.Close()
		return err
	}
	onUp()

	r.logger.Info("feed session established",
		"items", len(r.cfg.Watchlist.Items),
		"news", r.cfg.Watchlist.News,
	)

	select {
	case <-r.disconnects:
		return errors.New("feed disconnected")
	case <-ctx.Done():
		r.consumer.CloseAllRequests()
		r.consumer.Close()
		return ctx.Err()
	}
}

func (r *feedRunner) subscribe() error {
	if len(r.cfg.Watchlist.Items) > 0 {
		if _, err := r.consumer.RequestData(r.cfg.Watchlist.Items, elektron.RequestOptions{
			Service: r.cfg.Feed.Service,
		}); err != nil {
			return fmt.Errorf("request items: %w", err)
		}
	}
	if r.cfg.Watchlist.News {
		if _, err := r.consumer.RequestNews(r.cfg.Watchlist.NewsItem, r.cfg.Feed.Service); err != nil {
			return fmt.Errorf("request news: %w", err)
		}
	}
	return nil
}

// messageHead pulls the item name and message type out of a data message for
// row attribution. Both stay empty when the message carries neither.
func messageHead(message json.RawMessage) (item, msgType string) {
	var head struct {
		Type string `json:"Type"`
		Key  *struct {
			Name string `json:"Name"`
		} `json:"Key"`
	}
	if err := json.Unmarshal(message, &head); err != nil {
		return "", ""
	}
	if head.Key != nil {
		item = head.Key.Name
	}
	return item, head.Type
}

func updateMetrics(
	consumer *elektron.Consumer,
	pool *pgxpool.Pool,
	storyWriter *archive.StoryWriter,
	quoteWriter *archive.QuoteWriter,
	stories *archive.Buffer[archive.Story],
	quotes *archive.Buffer[archive.Quote],
) {
	stats := consumer.Stats()

	up := 0.0
	if stats.LoggedIn {
		up = 1.0
	}
	metrics.ConnectionUp.Set(up)
	metrics.FramesRead.Set(float64(stats.Router.Frames))
	metrics.MessagesRouted.Set(float64(stats.Router.Messages))
	metrics.PingsAnswered.Set(float64(stats.Router.Pings))
	metrics.FrameFaults.Set(float64(stats.Router.Faults))
	metrics.MessagesDropped.Set(float64(stats.Router.Dropped))
	metrics.OpenStreams.Set(float64(stats.OpenStreams))
	metrics.PendingStories.Set(float64(stats.PendingStories))

	sw := storyWriter.Stats()
	metrics.RowsInserted.WithLabelValues("stories").Set(float64(sw.Inserts))
	metrics.InsertConflicts.WithLabelValues("stories").Set(float64(sw.Conflicts))
	metrics.InsertErrors.WithLabelValues("stories").Set(float64(sw.Errors))
	metrics.Flushes.WithLabelValues("stories").Set(float64(sw.Flushes))

	qw := quoteWriter.Stats()
	metrics.RowsInserted.WithLabelValues("quotes").Set(float64(qw.Inserts))
	metrics.InsertConflicts.WithLabelValues("quotes").Set(float64(qw.Conflicts))
	metrics.InsertErrors.WithLabelValues("quotes").Set(float64(qw.Errors))
	metrics.Flushes.WithLabelValues("quotes").Set(float64(qw.Flushes))

	sb := stories.Stats()
	metrics.BufferLen.WithLabelValues("stories").Set(float64(sb.Len))
	metrics.BufferCapacity.WithLabelValues("stories").Set(float64(sb.Capacity))

	qb := quotes.Stats()
	metrics.BufferLen.WithLabelValues("quotes").Set(float64(qb.Len))
	metrics.BufferCapacity.WithLabelValues("quotes").Set(float64(qb.Capacity))

	ps := pool.Stat()
	metrics.PoolTotalConns.Set(float64(ps.TotalConns()))
	metrics.PoolIdleConns.Set(float64(ps.IdleConns()))
	metrics.PoolAcquiredConns.Set(float64(ps.AcquiredConns()))
}

// healthHandler reports archiver health as JSON.
func healthHandler(pool *pgxpool.Pool, consumer *elektron.Consumer, storyWriter *archive.StoryWriter, quoteWriter *archive.QuoteWriter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := struct {
			Status     string                 `json:"status"`
			Components map[string]interface{} `json:"components"`
		}{
			Status:     "healthy",
			Components: make(map[string]interface{}),
		}

		// Check database
		if err := pool.Ping(ctx); err != nil {
			health.Status = "unhealthy"
			health.Components["database"] = map[string]string{
				"status": "disconnected",
				"error":  err.Error(),
			}
		} else {
			health.Components["database"] = "connected"
		}

		// Check feed session
		stats := consumer.Stats()
		health.Components["feed"] = map[string]interface{}{
			"state":        string(stats.State),
			"logged_in":    stats.LoggedIn,
			"open_streams": stats.OpenStreams,
		}
		if !stats.LoggedIn && health.Status == "healthy" {
			health.Status = "degraded"
		}

		sw := storyWriter.Stats()
		qw := quoteWriter.Stats()
		health.Components["writers"] = map[string]interface{}{
			"story_inserts": sw.Inserts,
			"story_errors":  sw.Errors,
			"quote_inserts": qw.Inserts,
			"quote_errors":  qw.Errors,
		}

		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})
}
