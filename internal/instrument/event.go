// Package instrument records executed statements.
package instrument

import (
	"strings"
	"time"
)

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Event describes one executed statement.
type Event struct {
	Entity     string    `json:"entity"`
	Action     string    `json:"action"` // insert, update, select or delete
	SQL        string    `json:"sql"`
	Rows       int64     `json:"rows"`
	DurationMs int64     `json:"duration_ms"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	At         time.Time `json:"at"`
}

// Recorder receives statement events.
type Recorder interface {
	Record(e Event)
}

// Noop discards all events.
type Noop struct{}

func (Noop) Record(Event) {}

// NewEvent fills in an event for a statement that started at start.
func NewEvent(entity, sqlStr string, start time.Time, rows int64, err error) Event {
	e := Event{
		Entity:     entity,
		Action:     actionOf(sqlStr),
		SQL:        sqlStr,
		Rows:       rows,
		DurationMs: time.Since(start).Milliseconds(),
		Status:     StatusOK,
		At:         start,
	}
	if err != nil {
		e.Status = StatusError
		e.Error = err.Error()
	}
	return e
}

func actionOf(sqlStr string) string {
	word, _, _ := strings.Cut(strings.TrimSpace(sqlStr), " ")
	return strings.ToLower(word)
}
