package instrument

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Sink receives flushed batches in enqueue order.
type Sink func(ctx context.Context, batch []Event) error

// EventBuffer collects statement events in memory and hands them to a sink
// when full or on a timer.
type EventBuffer struct {
	flushMu sync.Mutex // held from drain through sink so batches arrive in order
	mu      sync.Mutex
	events  []Event
	sink    Sink
	maxSize int
	ticker  *time.Ticker
	done    chan struct{}
	stop    sync.Once
}

// NewEventBuffer creates a buffer that flushes every interval or when
// maxSize events are waiting.
func NewEventBuffer(sink Sink, maxSize int, interval time.Duration) *EventBuffer {
	if maxSize <= 0 {
		maxSize = 500
	}
	eb := &EventBuffer{
		sink:    sink,
		maxSize: maxSize,
		done:    make(chan struct{}),
	}
	if interval > 0 {
		eb.ticker = time.NewTicker(interval)
		go eb.run()
	}
	return eb
}

func (eb *EventBuffer) run() {
	for {
		select {
		case <-eb.done:
			return
		case <-eb.ticker.C:
			eb.Flush(context.Background())
		}
	}
}

// Record adds an event. A full buffer is flushed asynchronously.
func (eb *EventBuffer) Record(e Event) {
	eb.mu.Lock()
	eb.events = append(eb.events, e)
	full := len(eb.events) >= eb.maxSize
	eb.mu.Unlock()
	if full {
		go eb.Flush(context.Background())
	}
}

// Len returns the number of events waiting for the next flush.
func (eb *EventBuffer) Len() int {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	return len(eb.events)
}

// Flush hands every buffered event to the sink. Sink errors are logged and
// the batch is dropped.
func (eb *EventBuffer) Flush(ctx context.Context) {
	eb.flushMu.Lock()
	defer eb.flushMu.Unlock()

	eb.mu.Lock()
	if len(eb.events) == 0 {
		eb.mu.Unlock()
		return
	}
	batch := eb.events
	eb.events = nil
	eb.mu.Unlock()

	if err := eb.sink(ctx, batch); err != nil {
		log.Error().Err(err).Int("events", len(batch)).Msg("Statement event flush failed")
	}
}

// Stop halts the background ticker and flushes remaining events.
func (eb *EventBuffer) Stop() {
	eb.stop.Do(func() {
		if eb.ticker != nil {
			eb.ticker.Stop()
		}
		close(eb.done)
	})
	eb.Flush(context.Background())
}

// LogSink writes one debug line per event, or a warning for failed statements.
func LogSink(logger zerolog.Logger) Sink {
	return func(_ context.Context, batch []Event) error {
		for _, e := range batch {
			ev := logger.Debug()
			if e.Status == StatusError {
				ev = logger.Warn().Str("error", e.Error)
			}
			ev.Str("entity", e.Entity).
				Str("action", e.Action).
				Str("sql", e.SQL).
				Int64("rows", e.Rows).
				Int64("duration_ms", e.DurationMs).
				Time("at", e.At).
				Msg("statement")
		}
		return nil
	}
}
