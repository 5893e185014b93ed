package recorder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/hyperfeed/internal/connection"
)

// Config holds recorder settings.
type Config struct {
	BatchSize     int           // Rows per batch insert
	FlushInterval time.Duration // Max time a row waits before flush
	BufferSize    int           // Input channel capacity
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:     500,
		FlushInterval: 1 * time.Second,
		BufferSize:    10000,
	}
}

// Metrics contains recorder counters.
type Metrics struct {
	Inserts int64
	Drops   int64
	Errors  int64
	Flushes int64
}

// frameRow is one row of the frames table.
type frameRow struct {
	ReceivedAt int64 // µs since epoch
	Channel    string
	Coin       string
	Payload    []byte
}

// Recorder batches dispatched frames into the frames hypertable.
type Recorder struct {
	cfg    Config
	logger *slog.Logger
	db     *pgxpool.Pool

	input chan connection.Message

	batch       []frameRow
	batchMu     sync.Mutex
	flushTicker *time.Ticker

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	metrics Metrics
}

// New creates a Recorder.
func New(cfg Config, db *pgxpool.Pool, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		cfg:    cfg,
		db:     db,
		logger: logger,
		input:  make(chan connection.Message, cfg.BufferSize),
		batch:  make([]frameRow, 0, cfg.BatchSize),
	}
}

// Start begins consuming recorded frames and writing batches.
func (r *Recorder) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)
	r.flushTicker = time.NewTicker(r.cfg.FlushInterval)

	r.wg.Add(1)
	go r.consumeLoop()

	r.wg.Add(1)
	go r.flushLoop()

	r.logger.Info("recorder started",
		"batch_size", r.cfg.BatchSize,
		"flush_interval", r.cfg.FlushInterval,
	)
	return nil
}

// Stop gracefully shuts down the recorder and flushes what remains.
func (r *Recorder) Stop(ctx context.Context) error {
	r.logger.Info("stopping recorder")

	if r.cancel != nil {
		r.cancel()
	}
	if r.flushTicker != nil {
		r.flushTicker.Stop()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		r.logger.Warn("recorder stop timed out")
	}

	r.flush()
	r.logger.Info("recorder stopped")
	return nil
}

// Record enqueues a frame for persistence. Never blocks; a full buffer drops
// the frame.
func (r *Recorder) Record(msg connection.Message) {
	select {
	case r.input <- msg:
	default:
		r.batchMu.Lock()
		r.metrics.Drops++
		r.batchMu.Unlock()
		r.logger.Warn("recorder buffer full, dropping frame", "channel", msg.Channel)
	}
}

// Stats returns current metrics.
func (r *Recorder) Stats() Metrics {
	r.batchMu.Lock()
	defer r.batchMu.Unlock()
	return r.metrics
}

// pending returns the number of rows waiting in the current batch.
func (r *Recorder) pending() int {
	r.batchMu.Lock()
	defer r.batchMu.Unlock()
	return len(r.batch)
}

func (r *Recorder) consumeLoop() {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			r.drain()
			return
		case msg := <-r.input:
			r.handleMessage(msg)
		}
	}
}

// drain moves whatever is still buffered at shutdown into the batch so the
// final flush can persist it.
func (r *Recorder) drain() {
	for {
		select {
		case msg := <-r.input:
			r.handleMessage(msg)
		default:
			return
		}
	}
}

func (r *Recorder) flushLoop() {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-r.flushTicker.C:
			r.flush()
		}
	}
}

func (r *Recorder) handleMessage(msg connection.Message) {
	row := transform(msg)

	r.batchMu.Lock()
	r.batch = append(r.batch, row)
	shouldFlush := len(r.batch) >= r.cfg.BatchSize
	r.batchMu.Unlock()

	if shouldFlush {
		r.flush()
	}
}

// transform converts a dispatched frame to a frames row. The coin is pulled
// from the nested data object when present; not every channel carries one.
func transform(msg connection.Message) frameRow {
	coin := ""
	if data, ok := msg.Payload["data"].(map[string]any); ok {
		coin, _ = data["coin"].(string)
	}

	return frameRow{
		ReceivedAt: msg.ReceivedAt.UnixMicro(),
		Channel:    msg.Channel,
		Coin:       coin,
		Payload:    msg.Raw,
	}
}

// flush writes the current batch to the database.
func (r *Recorder) flush() {
	r.batchMu.Lock()
	if len(r.batch) == 0 {
		r.batchMu.Unlock()
		return
	}
	batch := r.batch
	r.batch = make([]frameRow, 0, r.cfg.BatchSize)
	r.batchMu.Unlock()

	start := time.Now()

	if err := r.batchInsert(batch); err != nil {
		r.logger.Error("batch insert failed", "error", err, "count", len(batch))
		r.batchMu.Lock()
		r.metrics.Errors++
		r.batchMu.Unlock()
		return
	}

	r.batchMu.Lock()
	r.metrics.Inserts += int64(len(batch))
	r.metrics.Flushes++
	r.batchMu.Unlock()

	r.logger.Debug("flushed frames",
		"count", len(batch),
		"duration", time.Since(start),
	)
}

// batchInsert inserts rows using pgx.Batch. Uses its own context so the
// final flush during Stop still lands after the run context is cancelled.
func (r *Recorder) batchInsert(rows []frameRow) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(`
			INSERT INTO frames (received_at, channel, coin, payload)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT DO NOTHING
		`, row.ReceivedAt, row.Channel, row.Coin, row.Payload)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}

	return nil
}
