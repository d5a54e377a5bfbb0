package testhelpers

import (
	"context"
	"sync"
	"time"

	"github.com/standardbeagle/fqnindex/internal/host"
)

// RecordedEvent is one notification seen by a RecordingListener
type RecordedEvent struct {
	Listener string
	Kind     string // "refreshed" or a host.Kind name
	Path     string
	Fqns     []string
}

// RecordingListener is a host.Listener that records what it is told.
// Several listeners can share one Log to observe delivery order. Tests
// wait on Wait instead of sleeping.
type RecordingListener struct {
	Name  string
	Early bool
	Log   *EventLog
}

func (r *RecordingListener) NotifyEarly() bool {
	return r.Early
}

func (r *RecordingListener) Refreshed() {
	r.Log.add(RecordedEvent{Listener: r.Name, Kind: "refreshed"})
}

func (r *RecordingListener) RefreshedTypes(req host.Request) {
	r.Log.add(RecordedEvent{
		Listener: r.Name,
		Kind:     req.Kind.String(),
		Path:     req.File.Path(),
		Fqns:     append([]string(nil), req.Fqns...),
	})
}

// EventLog is a shared, ordered record of notifications
type EventLog struct {
	mu     sync.Mutex
	events []RecordedEvent
	notify chan struct{}
}

// NewEventLog creates an empty log
func NewEventLog() *EventLog {
	return &EventLog{notify: make(chan struct{})}
}

func (l *EventLog) add(e RecordedEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
	close(l.notify)
	l.notify = make(chan struct{})
}

// Events returns a copy of the recorded events
func (l *EventLog) Events() []RecordedEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]RecordedEvent(nil), l.events...)
}

// Order returns "listener:kind" for each event
func (l *EventLog) Order() []string {
	events := l.Events()
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.Listener + ":" + e.Kind
	}
	return out
}

// Reset forgets every recorded event
func (l *EventLog) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = nil
}

// Wait blocks until at least n events are recorded or the timeout passes.
// Returns true if the count was reached.
func (l *EventLog) Wait(n int, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	for {
		l.mu.Lock()
		count, ch := len(l.events), l.notify
		l.mu.Unlock()
		if count >= n {
			return true
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return false
		}
	}
}
