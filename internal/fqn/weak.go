package fqn

import (
	"strings"
	"weak"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/standardbeagle/fqnindex/internal/debug"
)

// WeakOption configures a WeakTrie
type WeakOption func(*weakOptions)

type weakOptions struct {
	trieOpts []Option
	hotSize  int
}

// WithTrieOptions passes options through to the underlying trie
func WithTrieOptions(opts ...Option) WeakOption {
	return func(o *weakOptions) {
		o.trieOpts = append(o.trieOpts, opts...)
	}
}

// WithHotSize keeps strong references to the n most recently written
// payloads so they survive collection while hot. Zero disables the hot tier.
func WithHotSize(n int) WeakOption {
	return func(o *weakOptions) {
		o.hotSize = n
	}
}

// WeakTrie is a Trie whose payloads are held through weak pointers so the
// cache never pins them in memory. Once a payload is collected Get reports it
// missing, but its leaf stays in the tree: there is no inline sweep, callers
// remove stale names explicitly (see Stale).
type WeakTrie[T any] struct {
	trie *Trie[weak.Pointer[T]]
	hot  *lru.Cache[string, *T]
}

// NewWeak creates an empty WeakTrie
func NewWeak[T any](opts ...WeakOption) *WeakTrie[T] {
	var o weakOptions
	for _, opt := range opts {
		opt(&o)
	}
	w := &WeakTrie[T]{trie: New[weak.Pointer[T]](o.trieOpts...)}
	if o.hotSize > 0 {
		w.hot, _ = lru.NewWithEvict[string, *T](o.hotSize, func(name string, _ *T) {
			debug.LogCache("hot tier released %q\n", name)
		})
	}
	return w
}

// Trie exposes the underlying trie of weak pointers
func (w *WeakTrie[T]) Trie() *Trie[weak.Pointer[T]] {
	return w.trie
}

// Add creates the path for name without a payload
func (w *WeakTrie[T]) Add(name string) error {
	return w.trie.Add(name)
}

// Put stores a weak pointer to v at name
func (w *WeakTrie[T]) Put(name string, v *T) error {
	if err := w.trie.Put(name, weak.Make(v)); err != nil {
		return err
	}
	if w.hot != nil {
		if v != nil {
			w.hot.Add(name, v)
		} else {
			w.hot.Remove(name)
		}
	}
	return nil
}

// Get returns the payload at name, or nil and false when the name does not
// resolve, has no payload, or its payload was collected.
func (w *WeakTrie[T]) Get(name string) (*T, bool, error) {
	ref, ok, err := w.trie.Get(name)
	if err != nil || !ok {
		return nil, false, err
	}
	v := ref.Value()
	return v, v != nil, nil
}

// Contains reports whether name resolves to a node. It can be true for a
// name whose payload has been collected.
func (w *WeakTrie[T]) Contains(name string) (bool, error) {
	return w.trie.Contains(name)
}

// Remove detaches the node for name. Hot references to name and to every
// name below it are released with it.
func (w *WeakTrie[T]) Remove(name string) (bool, error) {
	w.releaseHot(name)
	return w.trie.Remove(name)
}

// RemoveAll removes each name independently
func (w *WeakTrie[T]) RemoveAll(names ...string) error {
	w.releaseHot(names...)
	return w.trie.RemoveAll(names...)
}

// releaseHot drops hot references for names and their descendants
func (w *WeakTrie[T]) releaseHot(names ...string) {
	if w.hot == nil || len(names) == 0 {
		return
	}
	for _, key := range w.hot.Keys() {
		for _, name := range names {
			if isWithin(key, name) {
				w.hot.Remove(key)
				break
			}
		}
	}
}

// isWithin reports whether key names prefix itself or something below it
func isWithin(key, prefix string) bool {
	if !strings.HasPrefix(key, prefix) {
		return false
	}
	if len(key) == len(prefix) {
		return true
	}
	switch key[len(prefix)] {
	case '.', '<', '[':
		return true
	}
	return false
}

// Clear drops every entry
func (w *WeakTrie[T]) Clear() {
	if w.hot != nil {
		w.hot.Purge()
	}
	w.trie.Clear()
}

// Fqns returns every leaf name, including leaves whose payload was collected
func (w *WeakTrie[T]) Fqns() []string {
	return w.trie.Fqns()
}

// Stale returns the leaf names whose payload was set and has since been
// collected. Nothing is removed.
func (w *WeakTrie[T]) Stale() []string {
	var stale []string
	for _, name := range w.trie.Fqns() {
		ref, ok, err := w.trie.Get(name)
		if err == nil && ok && ref != (weak.Pointer[T]{}) && ref.Value() == nil {
			stale = append(stale, name)
		}
	}
	return stale
}

func deref[T any](visitor func(*T) bool) func(weak.Pointer[T]) bool {
	return func(ref weak.Pointer[T]) bool {
		return visitor(ref.Value())
	}
}

// VisitDepthFirst walks payloads below the root, children first. Missing or
// collected payloads are passed as nil. A false return stops the walk.
func (w *WeakTrie[T]) VisitDepthFirst(visitor func(*T) bool) bool {
	return w.trie.VisitDepthFirst(deref(visitor))
}

// VisitNodeDepthFirst walks nodes below the root, children first
func (w *WeakTrie[T]) VisitNodeDepthFirst(visitor func(*Node[weak.Pointer[T]]) bool) bool {
	return w.trie.VisitNodeDepthFirst(visitor)
}

// VisitBreadthFirst walks payloads in level order; a false return prunes
// that node's subtree only.
func (w *WeakTrie[T]) VisitBreadthFirst(visitor func(*T) bool) bool {
	return w.trie.VisitBreadthFirst(deref(visitor))
}
