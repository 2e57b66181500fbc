package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Config tunes the Builder's async write path, mirroring the teacher
// evidence recorder's buffer/timeout knobs.
type Config struct {
	// AsyncBuffer is the size of the async write channel.
	AsyncBuffer int
	// WriteTimeout bounds each Store call and how long Submit/Update will
	// wait for channel space before dropping the record.
	WriteTimeout time.Duration
}

// DefaultConfig returns sane defaults: a 1000-record buffer, 5s write
// timeout, the same numbers the teacher's evidence recorder defaults to.
func DefaultConfig() Config {
	return Config{AsyncBuffer: 1000, WriteTimeout: 5 * time.Second}
}

type writeOp struct {
	record *Record
	update bool
}

// Builder assembles and persists Records asynchronously so a slow or
// failing storage write never blocks the request it is logging for. Log
// write is best-effort: failures are logged and the request proceeds
// regardless, per spec.md's explicit non-fatal write contract.
type Builder struct {
	store  Store
	cfg    Config
	logger *slog.Logger

	ops  chan writeOp
	done chan struct{}
	wg   sync.WaitGroup
}

// NewBuilder constructs a Builder backed by store and starts its background
// writer goroutine.
func NewBuilder(store Store, cfg Config, logger *slog.Logger) *Builder {
	if cfg.AsyncBuffer <= 0 {
		cfg.AsyncBuffer = DefaultConfig().AsyncBuffer
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultConfig().WriteTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	b := &Builder{
		store:  store,
		cfg:    cfg,
		logger: logger.With("component", "observability.builder"),
		ops:    make(chan writeOp, cfg.AsyncBuffer),
		done:   make(chan struct{}),
	}

	b.wg.Add(1)
	go b.worker()
	return b
}

// Submit enqueues a newly completed record for an initial create write.
// Never blocks the caller beyond WriteTimeout; drops and logs on overflow
// or shutdown.
func (b *Builder) Submit(record *Record) {
	b.enqueue(writeOp{record: record, update: false})
}

// Update enqueues a later write to an already-created record (e.g. once
// evaluation results land after the response was served).
func (b *Builder) Update(record *Record) {
	b.enqueue(writeOp{record: record, update: true})
}

func (b *Builder) enqueue(op writeOp) {
	select {
	case b.ops <- op:
	case <-time.After(b.cfg.WriteTimeout):
		b.logger.Error("observability log channel full, dropping record",
			"request_id", op.record.RequestID, "update", op.update)
	case <-b.done:
		b.logger.Warn("builder shutting down, dropping record",
			"request_id", op.record.RequestID, "update", op.update)
	}
}

// Close drains pending writes and stops the background worker.
func (b *Builder) Close() {
	close(b.done)
	b.wg.Wait()
}

func (b *Builder) worker() {
	defer b.wg.Done()
	for {
		select {
		case op := <-b.ops:
			b.write(op)
		case <-b.done:
			for {
				select {
				case op := <-b.ops:
					b.write(op)
				default:
					return
				}
			}
		}
	}
}

func (b *Builder) write(op writeOp) {
	ctx, cancel := context.WithTimeout(context.Background(), b.cfg.WriteTimeout)
	defer cancel()

	var err error
	if op.update {
		err = b.store.UpdateLog(ctx, op.record)
	} else {
		err = b.store.CreateLog(ctx, op.record)
	}
	if err != nil {
		b.logger.Error("failed to write observability log",
			"request_id", op.record.RequestID, "update", op.update, "error", err)
	}
}
