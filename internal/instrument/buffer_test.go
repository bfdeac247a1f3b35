package instrument

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collector struct {
	mu      sync.Mutex
	batches [][]Event
}

func (c *collector) sink(_ context.Context, batch []Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches = append(c.batches, batch)
	return nil
}

func (c *collector) total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, b := range c.batches {
		n += len(b)
	}
	return n
}

func TestNewEvent(t *testing.T) {
	start := time.Now().Add(-5 * time.Millisecond)
	e := NewEvent("Team", "  UPDATE Team SET name=$1 WHERE myId=$2", start, 1, nil)
	assert.Equal(t, "update", e.Action)
	assert.Equal(t, StatusOK, e.Status)
	assert.GreaterOrEqual(t, e.DurationMs, int64(5))
	assert.Equal(t, start, e.At)

	e = NewEvent("Team", "DELETE FROM Team WHERE 1=1", start, 0, errors.New("locked"))
	assert.Equal(t, "delete", e.Action)
	assert.Equal(t, StatusError, e.Status)
	assert.Equal(t, "locked", e.Error)
}

func TestBufferFlushOnStop(t *testing.T) {
	c := &collector{}
	eb := NewEventBuffer(c.sink, 100, 0)
	eb.Record(Event{Entity: "a"})
	eb.Record(Event{Entity: "b"})
	assert.Equal(t, 2, eb.Len())

	eb.Stop()
	assert.Equal(t, 0, eb.Len())
	require.Len(t, c.batches, 1)
	assert.Equal(t, "a", c.batches[0][0].Entity)
	assert.Equal(t, "b", c.batches[0][1].Entity)

	// Stopping twice is harmless.
	eb.Stop()
}

func TestBufferFlushWhenFull(t *testing.T) {
	c := &collector{}
	eb := NewEventBuffer(c.sink, 3, 0)
	defer eb.Stop()

	for i := 0; i < 3; i++ {
		eb.Record(Event{Action: "insert"})
	}
	assert.Eventually(t, func() bool { return c.total() == 3 }, time.Second, 5*time.Millisecond)
}

func TestBufferFlushOnTimer(t *testing.T) {
	c := &collector{}
	eb := NewEventBuffer(c.sink, 100, 10*time.Millisecond)
	defer eb.Stop()

	eb.Record(Event{Action: "select"})
	assert.Eventually(t, func() bool { return c.total() == 1 }, time.Second, 5*time.Millisecond)
}

func TestLogSink(t *testing.T) {
	var out bytes.Buffer
	sink := LogSink(zerolog.New(&out).Level(zerolog.DebugLevel))

	require.NoError(t, sink(context.Background(), []Event{
		{Entity: "Team", Action: "insert", SQL: "INSERT INTO Team (myId) VALUES ($1)", Status: StatusOK},
		{Entity: "Team", Action: "delete", Status: StatusError, Error: "locked"},
	}))
	assert.Contains(t, out.String(), `"level":"debug"`)
	assert.Contains(t, out.String(), `"level":"warn"`)
	assert.Contains(t, out.String(), `"error":"locked"`)
	assert.Contains(t, out.String(), `"entity":"Team"`)
}

func TestNoop(t *testing.T) {
	var r Recorder = Noop{}
	r.Record(Event{})
}

func TestBufferBatchesArriveInOrder(t *testing.T) {
	var (
		mu    sync.Mutex
		order []string
		calls int
	)
	sink := func(_ context.Context, batch []Event) error {
		mu.Lock()
		calls++
		first := calls == 1
		mu.Unlock()
		if first {
			time.Sleep(50 * time.Millisecond)
		}
		mu.Lock()
		defer mu.Unlock()
		for _, e := range batch {
			order = append(order, e.Entity)
		}
		return nil
	}

	eb := NewEventBuffer(sink, 1, 0)
	eb.Record(Event{Entity: "first"})
	time.Sleep(5 * time.Millisecond)
	eb.Record(Event{Entity: "second"})

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 2
	}, time.Second, 5*time.Millisecond)
	eb.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"first", "second"}, order)
}
