package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/angelmondragon/pricewatch-backend/pkg/logger"
)

type EventLevel string

const (
	LevelInfo  EventLevel = "info"
	LevelWarn  EventLevel = "warn"
	LevelError EventLevel = "error"
)

// Event is one progress record from a resolution or scan run.
type Event struct {
	Level   EventLevel `json:"level"`
	Code    string     `json:"code,omitempty"`
	Name    string     `json:"event"`
	Message string     `json:"message"`
	At      time.Time  `json:"at"`
}

// EventSink receives progress events. Implementations must be safe for
// concurrent use.
type EventSink interface {
	Publish(Event)
}

// LogSink writes events through the service logger.
type LogSink struct {
	Log *logger.Logger
}

func (s LogSink) Publish(ev Event) {
	if s.Log == nil {
		return
	}
	fields := map[string]any{"event": ev.Name}
	if ev.Code != "" {
		fields["code"] = ev.Code
	}
	ctx := s.Log.WithFields(context.Background(), fields)
	switch ev.Level {
	case LevelWarn, LevelError:
		s.Log.Warn(ctx, ev.Message)
	default:
		s.Log.Info(ctx, ev.Message)
	}
}

// RingSink keeps the most recent events in memory so the dashboard can show
// the last run's progress.
type RingSink struct {
	mu     sync.Mutex
	limit  int
	events []Event
}

func NewRingSink(limit int) *RingSink {
	if limit <= 0 {
		limit = 256
	}
	return &RingSink{limit: limit}
}

func (s *RingSink) Publish(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	if len(s.events) > s.limit {
		s.events = s.events[len(s.events)-s.limit:]
	}
}

// Events returns a copy of the buffered events, oldest first.
func (s *RingSink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

func (s *RingSink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}

// MultiSink fans events out to several sinks.
type MultiSink []EventSink

func (m MultiSink) Publish(ev Event) {
	for _, sink := range m {
		if sink != nil {
			sink.Publish(ev)
		}
	}
}
