// Package report provides an asynchronous error-reporting sink backed by
// the monitoring_logs table. Callers fire and forget; the request path
// never blocks on, or observes, a sink failure.
package report

import (
	"context"
	"time"

	"github.com/karmafinder/karmafetch/common/db"
	"github.com/karmafinder/karmafetch/common/logger"
)

// Entry is one monitoring row
type Entry struct {
	Endpoint string
	Level    string
	Message  string
	At       time.Time
}

// Sink drains reported entries to Postgres on a single goroutine
type Sink struct {
	db      *db.DB
	log     *logger.Logger
	entries chan Entry
	done    chan struct{}
}

// NewSink creates and starts a sink. Close it to flush and stop.
func NewSink(database *db.DB, log *logger.Logger) *Sink {
	s := &Sink{
		db:      database,
		log:     log,
		entries: make(chan Entry, 256),
		done:    make(chan struct{}),
	}

	go s.drain()

	return s
}

// Report enqueues an entry. Drops on overflow rather than blocking.
func (s *Sink) Report(endpoint, level, message string) {
	entry := Entry{
		Endpoint: endpoint,
		Level:    level,
		Message:  message,
		At:       time.Now().UTC(),
	}

	select {
	case s.entries <- entry:
	default:
		s.log.Warn("report sink full, dropping entry", "endpoint", endpoint, "level", level)
	}
}

func (s *Sink) drain() {
	defer close(s.done)

	for entry := range s.entries {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)

		_, err := s.db.Exec(ctx, `
			INSERT INTO monitoring_logs (endpoint, log_level, error_message, timestamp)
			VALUES ($1, $2, $3, $4)
		`, entry.Endpoint, entry.Level, entry.Message, entry.At)

		cancel()

		if err != nil {
			// Sink failures are logged only, never surfaced
			s.log.Warn("failed to persist monitoring entry", "endpoint", entry.Endpoint, "error", err)
		}
	}
}

// Close stops accepting entries and waits for the drain to finish
func (s *Sink) Close() error {
	close(s.entries)
	<-s.done
	return nil
}
