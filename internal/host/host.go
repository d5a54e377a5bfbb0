// Package host owns modules, the refresh bus their indexes listen on, and
// the policy deciding which source paths are ignored.
package host

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/standardbeagle/fqnindex/internal/debug"
	"github.com/standardbeagle/fqnindex/internal/vfs"
)

// Module is a named unit of sources. Its generation advances on Reset and
// Close, which lapses every subscription made under an older generation.
type Module struct {
	name   string
	host   *Host
	gen    atomic.Uint64
	closed atomic.Bool
}

// Name returns the module name
func (m *Module) Name() string {
	if m == nil {
		return ""
	}
	return m.name
}

// Host returns the owning host
func (m *Module) Host() *Host {
	return m.host
}

// Generation returns the current generation
func (m *Module) Generation() uint64 {
	return m.gen.Load()
}

// IsClosed reports whether Close was called
func (m *Module) IsClosed() bool {
	return m.closed.Load()
}

func (m *Module) isCurrent(gen uint64) bool {
	return !m.closed.Load() && m.gen.Load() == gen
}

// Reset starts a new generation. Listeners registered before the reset stop
// receiving notifications.
func (m *Module) Reset() {
	gen := m.gen.Add(1)
	debug.LogEvents("module %s reset to generation %d\n", m.name, gen)
}

// Close retires the module and detaches it from its host
func (m *Module) Close() {
	if m.closed.Swap(true) {
		return
	}
	m.gen.Add(1)
	if m.host != nil {
		m.host.forget(m)
	}
	debug.LogEvents("module %s closed\n", m.name)
}

// Option configures a Host
type Option func(*Host)

// WithIgnorePolicy sets the policy consulted by IsPathIgnored
func WithIgnorePolicy(p *IgnorePolicy) Option {
	return func(h *Host) {
		h.ignore = p
	}
}

// Host is the environment indexes run in
type Host struct {
	bus    *Bus
	ignore *IgnorePolicy

	mu      sync.Mutex
	modules map[string]*Module
}

// New creates a host with an empty bus
func New(opts ...Option) *Host {
	h := &Host{
		bus:     NewBus(),
		modules: make(map[string]*Module),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Bus returns the refresh bus
func (h *Host) Bus() *Bus {
	return h.bus
}

// IgnorePolicy returns the configured policy, nil if none
func (h *Host) IgnorePolicy() *IgnorePolicy {
	return h.ignore
}

// Module returns the live module called name, creating it if needed
func (h *Host) Module(name string) *Module {
	h.mu.Lock()
	defer h.mu.Unlock()
	if m, ok := h.modules[name]; ok {
		return m
	}
	m := &Module{name: name, host: h}
	h.modules[name] = m
	return m
}

// Modules returns the names of the live modules, sorted
func (h *Host) Modules() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	names := make([]string, 0, len(h.modules))
	for name := range h.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (h *Host) forget(m *Module) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.modules[m.name] == m {
		delete(h.modules, m.name)
	}
}

// IsPathIgnored reports whether the slash path rel, relative to a source
// root, must be skipped
func (h *Host) IsPathIgnored(rel string, dir bool) bool {
	if h == nil || h.ignore == nil {
		return false
	}
	return h.ignore.IsPathIgnored(rel, dir)
}

// Created publishes the creation of file contributing fqns to module m
func (h *Host) Created(m *Module, file vfs.File, fqns ...string) error {
	return h.bus.Publish(Request{Module: m, Kind: Creation, File: file, Fqns: fqns})
}

// Deleted publishes the deletion of file
func (h *Host) Deleted(m *Module, file vfs.File, fqns ...string) error {
	return h.bus.Publish(Request{Module: m, Kind: Deletion, File: file, Fqns: fqns})
}

// Modified publishes a content change to file
func (h *Host) Modified(m *Module, file vfs.File, fqns ...string) error {
	return h.bus.Publish(Request{Module: m, Kind: Modification, File: file, Fqns: fqns})
}
