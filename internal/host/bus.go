package host

import (
	"fmt"
	"sync"

	"github.com/standardbeagle/fqnindex/internal/debug"
	fqnerrors "github.com/standardbeagle/fqnindex/internal/errors"
	"github.com/standardbeagle/fqnindex/internal/vfs"
)

// Kind classifies a change to a source file
type Kind int

const (
	Creation Kind = iota
	Deletion
	Modification
)

func (k Kind) String() string {
	switch k {
	case Creation:
		return "creation"
	case Deletion:
		return "deletion"
	case Modification:
		return "modification"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Request describes one changed file and the names it contributes. A nil
// Module addresses every listener.
type Request struct {
	Module *Module
	Kind   Kind
	File   vfs.File
	Fqns   []string
}

// Listener receives refresh notifications. Listeners whose NotifyEarly
// returns true see creations and modifications before everyone else and
// deletions after everyone else.
type Listener interface {
	NotifyEarly() bool
	// Refreshed reports that everything must be rebuilt
	Refreshed()
	RefreshedTypes(req Request)
}

// Subscription binds a listener to the module generation it was registered
// under. It lapses when the module is reset or closed.
type Subscription struct {
	bus      *Bus
	module   *Module
	gen      uint64
	listener Listener
}

// Live reports whether the subscription still receives notifications
func (s *Subscription) Live() bool {
	return s.module == nil || s.module.isCurrent(s.gen)
}

// Cancel removes the subscription from its bus
func (s *Subscription) Cancel() {
	s.bus.Unsubscribe(s)
}

// Bus delivers refresh notifications synchronously on the publisher's
// goroutine.
type Bus struct {
	mu   sync.Mutex
	subs []*Subscription
}

// NewBus creates an empty bus
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers l for module m. Subscribing the same listener twice
// under the same live module generation returns the existing subscription.
func (b *Bus) Subscribe(m *Module, l Listener) *Subscription {
	var gen uint64
	if m != nil {
		gen = m.Generation()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.subs {
		if s.listener == l && s.module == m && s.gen == gen {
			return s
		}
	}
	s := &Subscription{bus: b, module: m, gen: gen, listener: l}
	b.subs = append(b.subs, s)
	return s
}

// Unsubscribe removes s. Returns false if it was not registered.
func (b *Bus) Unsubscribe(s *Subscription) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, cur := range b.subs {
		if cur == s {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of live subscriptions
func (b *Bus) Len() int {
	return len(b.listeners())
}

// listeners snapshots the live listeners and prunes lapsed subscriptions
func (b *Bus) listeners() []Listener {
	b.mu.Lock()
	defer b.mu.Unlock()

	live := b.subs[:0]
	out := make([]Listener, 0, len(b.subs))
	for _, s := range b.subs {
		if s.Live() {
			live = append(live, s)
			out = append(out, s.listener)
		} else {
			debug.LogEvents("pruning lapsed subscription for module %s\n", s.module.Name())
		}
	}
	clear(b.subs[len(live):])
	b.subs = live
	return out
}

// Publish dispatches req to every live listener. Creation and modification
// reach early listeners first so the file index is current when others look
// names up. Deletion reaches them last so others can still resolve the names
// being removed.
func (b *Bus) Publish(req Request) error {
	listeners := b.listeners()
	debug.LogEvents("publishing %s of %s (%d names) to %d listeners\n", req.Kind, req.File, len(req.Fqns), len(listeners))

	switch req.Kind {
	case Creation, Modification:
		notify(listeners, req, true)
		notify(listeners, req, false)
	case Deletion:
		notify(listeners, req, false)
		notify(listeners, req, true)
	default:
		return fqnerrors.NewEventError(req.Kind.String(), req.File.String(), fmt.Errorf("unknown refresh kind"))
	}
	return nil
}

func notify(listeners []Listener, req Request, early bool) {
	for _, l := range listeners {
		if l.NotifyEarly() == early {
			l.RefreshedTypes(req)
		}
	}
}

// RefreshAll tells every live listener to rebuild, early listeners first
func (b *Bus) RefreshAll() {
	listeners := b.listeners()
	debug.LogEvents("full refresh of %d listeners\n", len(listeners))
	for _, early := range []bool{true, false} {
		for _, l := range listeners {
			if l.NotifyEarly() == early {
				l.Refreshed()
			}
		}
	}
}
