// Package fqn maps fully qualified names to payloads through a trie keyed by
// name segments. Splitting understands generic clauses ("List<String>") and
// array markers ("int[]"), so those never get a dot separator.
package fqn

import (
	"slices"
	"sync/atomic"

	fqnerrors "github.com/standardbeagle/fqnindex/internal/errors"
)

// DefaultRootName names the root node when no other name is configured
const DefaultRootName = "root"

// Option configures a Trie
type Option func(*options)

type options struct {
	rootName    string
	rootVisible bool
	validator   Validator
	cacheSize   int
}

// WithRoot names the root node. A visible root becomes the first segment of
// every name the trie reconstructs.
func WithRoot(name string, visible bool) Option {
	return func(o *options) {
		o.rootName = name
		o.rootVisible = visible
	}
}

// WithValidator runs every segment through v. The trie then owns a private
// split cache instead of the shared one.
func WithValidator(v Validator) Option {
	return func(o *options) {
		o.validator = v
	}
}

// WithSplitCacheSize gives the trie a private split cache of n names. The
// shared cache is used when n is zero or DefaultSplitCacheSize.
func WithSplitCacheSize(n int) Option {
	return func(o *options) {
		o.cacheSize = n
	}
}

// nameSnapshot is the cached leaf-name set stamped with the mutation
// generation it was computed at.
type nameSnapshot struct {
	gen   uint64
	names []string
}

// Trie maps qualified names to payloads of type T. All operations are safe
// for concurrent use. Compound operations (Contains then Put) are not atomic;
// Put alone already gets-or-creates every segment.
type Trie[T any] struct {
	root     *Node[T]
	splitter *Splitter

	gen      atomic.Uint64
	allNames atomic.Pointer[nameSnapshot]
}

// New creates an empty trie
func New[T any](opts ...Option) *Trie[T] {
	o := options{rootName: DefaultRootName}
	for _, opt := range opts {
		opt(&o)
	}

	t := &Trie[T]{splitter: defaultSplitter}
	if o.validator != nil || (o.cacheSize > 0 && o.cacheSize != DefaultSplitCacheSize) {
		t.splitter = NewSplitter(o.validator, o.cacheSize)
	}
	t.root = newRoot[T](o.rootName, o.rootVisible, t.invalidate)
	return t
}

func (t *Trie[T]) invalidate() {
	t.gen.Add(1)
	t.allNames.Store(nil)
}

// Root returns the root node
func (t *Trie[T]) Root() *Node[T] {
	return t.root
}

// IsRootVisible reports whether the root's name is part of reconstructed names
func (t *Trie[T]) IsRootVisible() bool {
	return t.root.rootVisible
}

// Parts splits name with this trie's splitter
func (t *Trie[T]) Parts(name string) ([]string, error) {
	return t.splitter.Split(name)
}

// Node resolves name to its node. A name that does not fully resolve returns
// nil with no error.
func (t *Trie[T]) Node(name string) (*Node[T], error) {
	parts, err := t.splitter.Split(name)
	if err != nil {
		return nil, err
	}
	n := t.root
	for _, part := range parts {
		if n = n.Child(part); n == nil {
			return nil, nil
		}
	}
	return n, nil
}

// Get returns the payload stored at name. The bool is false when the name
// does not resolve or resolves to a node without a payload.
func (t *Trie[T]) Get(name string) (T, bool, error) {
	var zero T
	n, err := t.Node(name)
	if err != nil || n == nil {
		return zero, false, err
	}
	v, ok := n.Value()
	return v, ok, nil
}

// Contains reports whether name resolves to a node, payload or not
func (t *Trie[T]) Contains(name string) (bool, error) {
	n, err := t.Node(name)
	return n != nil, err
}

// Add creates the path for name without assigning a payload
func (t *Trie[T]) Add(name string) error {
	var zero T
	return t.add(name, zero, false)
}

// Put creates the path for name and sets its payload. An existing payload is
// overwritten.
func (t *Trie[T]) Put(name string, v T) error {
	return t.add(name, v, true)
}

func (t *Trie[T]) add(name string, v T, setValue bool) error {
	parts, err := t.splitter.Split(name)
	if err != nil {
		return err
	}
	n := t.root
	last := len(parts) - 1
	for i, part := range parts {
		if i < last {
			n = n.getOrCreateChild(part, v, false)
		} else {
			n = n.getOrCreateChild(part, v, setValue)
		}
	}
	return nil
}

// AddAll puts every entry of from
func (t *Trie[T]) AddAll(from map[string]T) error {
	var errs []error
	for name, v := range from {
		errs = append(errs, t.Put(name, v))
	}
	return fqnerrors.NewMultiError(errs).ErrorOrNil()
}

// Merge copies every leaf name of from, with its payload if it has one
func (t *Trie[T]) Merge(from *Trie[T]) error {
	var errs []error
	for _, name := range from.Fqns() {
		n, err := from.Node(name)
		if err != nil || n == nil {
			errs = append(errs, err)
			continue
		}
		if v, ok := n.Value(); ok {
			errs = append(errs, t.Put(name, v))
		} else {
			errs = append(errs, t.Add(name))
		}
	}
	return fqnerrors.NewMultiError(errs).ErrorOrNil()
}

// Remove detaches the node for name and its subtree. Returns false if the
// name does not resolve.
func (t *Trie[T]) Remove(name string) (bool, error) {
	n, err := t.Node(name)
	if err != nil || n == nil {
		return false, err
	}
	return n.Delete(), nil
}

// RemoveAll removes each name independently. Errors for individual names are
// collected; the rest are still removed.
func (t *Trie[T]) RemoveAll(names ...string) error {
	var errs []error
	for _, name := range names {
		_, err := t.Remove(name)
		errs = append(errs, err)
	}
	return fqnerrors.NewMultiError(errs).ErrorOrNil()
}

// Clear drops every node below the root
func (t *Trie[T]) Clear() {
	t.root.clear()
}

// Fqns returns the sorted names of every leaf. The set is cached until the
// next structural change.
func (t *Trie[T]) Fqns() []string {
	if snap := t.allNames.Load(); snap != nil && snap.gen == t.gen.Load() {
		return slices.Clone(snap.names)
	}

	gen := t.gen.Load()
	prefix := ""
	if t.root.rootVisible {
		prefix = t.root.name
	}
	names := t.root.collectNames(nil, prefix)
	slices.Sort(names)

	// a snapshot stamped with a stale generation is ignored by readers
	t.allNames.Store(&nameSnapshot{gen: gen, names: names})
	return slices.Clone(names)
}

// Len returns the number of leaf names
func (t *Trie[T]) Len() int {
	if snap := t.allNames.Load(); snap != nil && snap.gen == t.gen.Load() {
		return len(snap.names)
	}
	return len(t.Fqns())
}

// IsEmpty reports whether the trie has no nodes besides the root
func (t *Trie[T]) IsEmpty() bool {
	return t.root.IsLeaf()
}

// VisitDepthFirst walks the payloads of every node below the root, children
// first. A false return stops the walk.
func (t *Trie[T]) VisitDepthFirst(visitor func(T) bool) bool {
	for _, child := range t.root.Children() {
		if !child.VisitDepthFirst(visitor) {
			return false
		}
	}
	return true
}

// VisitNodeDepthFirst walks every node below the root, children first
func (t *Trie[T]) VisitNodeDepthFirst(visitor func(*Node[T]) bool) bool {
	for _, child := range t.root.Children() {
		if !child.VisitNodeDepthFirst(visitor) {
			return false
		}
	}
	return true
}

// VisitBreadthFirst walks the payloads of every node below the root in level
// order. A false return prunes that node's subtree only, and the walk then
// reports false once it finishes.
func (t *Trie[T]) VisitBreadthFirst(visitor func(T) bool) bool {
	return t.VisitNodeBreadthFirst(func(node *Node[T]) bool {
		v, _ := node.Value()
		return visitor(v)
	})
}

// VisitNodeBreadthFirst is VisitBreadthFirst over nodes
func (t *Trie[T]) VisitNodeBreadthFirst(visitor func(*Node[T]) bool) bool {
	return visitBreadthFirst(t.root.Children(), visitor)
}
