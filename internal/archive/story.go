package archive

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StoryWriter drains reassembled stories from its input buffer and writes
// them to the news_stories table in batches.
type StoryWriter struct {
	cfg    Config
	logger *slog.Logger

	input *Buffer[Story]
	db    *pgxpool.Pool

	batch       []storyRow
	batchMu     sync.Mutex
	flushTicker *time.Ticker

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	metrics Metrics
}

// NewStoryWriter creates a story writer over its input buffer.
func NewStoryWriter(cfg Config, input *Buffer[Story], db *pgxpool.Pool, logger *slog.Logger) *StoryWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &StoryWriter{
		cfg:    cfg,
		input:  input,
		db:     db,
		logger: logger,
		batch:  make([]storyRow, 0, cfg.BatchSize),
	}
}

// Start begins consuming stories and writing them out.
func (w *StoryWriter) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.flushTicker = time.NewTicker(w.cfg.FlushInterval)

	w.wg.Add(1)
	go w.consumeLoop()

	w.wg.Add(1)
	go w.flushLoop()

	w.logger.Info("story writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop drains the writer and flushes whatever is still pending.
func (w *StoryWriter) Stop(ctx context.Context) error {
	w.logger.Info("stopping story writer")

	if w.cancel != nil {
		w.cancel()
	}
	if w.flushTicker != nil {
		w.flushTicker.Stop()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("story writer stopped")
	case <-ctx.Done():
		w.logger.Warn("story writer stop timed out")
	}

	w.flush()
	return nil
}

// Stats returns current metrics.
func (w *StoryWriter) Stats() Metrics {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.metrics
}

func (w *StoryWriter) consumeLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		default:
			story, ok := w.input.TryReceive()
			if !ok {
				select {
				case <-w.ctx.Done():
					return
				case <-time.After(10 * time.Millisecond):
					continue
				}
			}
			w.handleStory(story)
		}
	}
}

func (w *StoryWriter) flushLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.flushTicker.C:
			w.flush()
		}
	}
}

func (w *StoryWriter) handleStory(story Story) {
	row := w.transform(story)

	w.batchMu.Lock()
	w.batch = append(w.batch, row)
	shouldFlush := len(w.batch) >= w.cfg.BatchSize
	w.batchMu.Unlock()

	if shouldFlush {
		w.flush()
	}
}

// transform maps a story onto its row, lifting the provider's story id and
// headline out of the body for indexing. A story with no usable id dedupes
// on its surrogate key, which never collides.
func (w *StoryWriter) transform(story Story) storyRow {
	row := storyRow{
		ID:         uuid.New(),
		Item:       story.Item,
		ReceivedAt: story.ReceivedAt.UnixMicro(),
		Body:       []byte(story.Body),
	}

	var meta storyMeta
	if err := json.Unmarshal(story.Body, &meta); err == nil {
		row.GUID = meta.AltID
		row.Headline = meta.Headline
	}
	if row.GUID == "" {
		row.GUID = row.ID.String()
	}
	return row
}

func (w *StoryWriter) flush() {
	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}
	batch := w.batch
	w.batch = make([]storyRow, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	start := time.Now()

	conflicts, err := w.batchInsert(batch)
	if err != nil {
		w.logger.Error("story batch insert failed", "error", err, "count", len(batch))
		w.batchMu.Lock()
		w.metrics.Errors++
		w.batchMu.Unlock()
		return
	}

	w.batchMu.Lock()
	w.metrics.Inserts += int64(len(batch) - conflicts)
	w.metrics.Conflicts += int64(conflicts)
	w.metrics.Flushes++
	w.batchMu.Unlock()

	w.logger.Debug("flushed stories",
		"count", len(batch),
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
}

func (w *StoryWriter) batchInsert(rows []storyRow) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO news_stories (id, item, guid, headline, received_at, body)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (guid) DO NOTHING
		`, r.ID, r.Item, r.GUID, r.Headline, r.ReceivedAt, r.Body)
	}

	results := w.db.SendBatch(w.ctx, batch)
	defer results.Close()

	for range rows {
		ct, err := results.Exec()
		if err != nil {
			return 0, err
		}
		if ct.RowsAffected() == 0 {
			conflicts++
		}
	}
	return conflicts, nil
}
