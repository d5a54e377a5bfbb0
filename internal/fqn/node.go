package fqn

import (
	"sort"
	"strings"
	"sync"
)

// Node is one segment of a Trie. Each node guards its own children and payload
// so writers on disjoint paths never contend.
//
// Payload and leaf-ness are independent: an intermediate package node can
// carry a payload and a leaf can have none.
type Node[T any] struct {
	name   string
	parent *Node[T]

	// set on the root only
	rootVisible  bool
	onInvalidate func()

	mu       sync.RWMutex
	children map[string]*Node[T]
	value    T
	hasValue bool
}

func newRoot[T any](name string, visible bool, onInvalidate func()) *Node[T] {
	return &Node[T]{name: name, rootVisible: visible, onInvalidate: onInvalidate}
}

// Name returns the node's own segment
func (n *Node[T]) Name() string {
	return n.name
}

// Parent returns the enclosing node, nil for the root
func (n *Node[T]) Parent() *Node[T] {
	return n.parent
}

// Child returns the child for segment or nil
func (n *Node[T]) Child(segment string) *Node[T] {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.children[segment]
}

// Children returns a snapshot of the children sorted by segment
func (n *Node[T]) Children() []*Node[T] {
	n.mu.RLock()
	out := make([]*Node[T], 0, len(n.children))
	for _, c := range n.children {
		out = append(out, c)
	}
	n.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// IsLeaf reports whether the node has no children
func (n *Node[T]) IsLeaf() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.children) == 0
}

// Value returns the payload and whether one is set
func (n *Node[T]) Value() (T, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.value, n.hasValue
}

// SetValue replaces the payload
func (n *Node[T]) SetValue(v T) {
	n.mu.Lock()
	n.value, n.hasValue = v, true
	n.mu.Unlock()
}

// ClearValue drops the payload
func (n *Node[T]) ClearValue() {
	var zero T
	n.mu.Lock()
	n.value, n.hasValue = zero, false
	n.mu.Unlock()
}

// Fqn reconstructs the qualified name from the root down to n. The root's
// own name is included only when the trie is root-visible.
func (n *Node[T]) Fqn() string {
	var parts []string
	for node := n; node != nil && node.visible(); node = node.parent {
		parts = append(parts, node.name)
	}
	var sb strings.Builder
	for i := len(parts) - 1; i >= 0; i-- {
		if i < len(parts)-1 {
			sb.WriteString(separator(parts[i]))
		}
		sb.WriteString(parts[i])
	}
	return sb.String()
}

func (n *Node[T]) visible() bool {
	return n.parent != nil || n.rootVisible
}

func (n *Node[T]) String() string {
	return n.name
}

// getOrCreateChild returns the child for segment, creating it if absent.
// When setValue is true the payload is assigned, and for a new node that
// happens before the node becomes reachable.
func (n *Node[T]) getOrCreateChild(segment string, v T, setValue bool) *Node[T] {
	if !setValue {
		if child := n.Child(segment); child != nil {
			return child
		}
	}

	n.mu.Lock()
	child := n.children[segment]
	if child == nil {
		child = &Node[T]{name: segment, parent: n}
		if setValue {
			child.value, child.hasValue = v, true
		}
		if n.children == nil {
			n.children = make(map[string]*Node[T], 2)
		}
		n.children[segment] = child
		n.mu.Unlock()
		n.invalidate()
		return child
	}
	n.mu.Unlock()

	if setValue {
		child.SetValue(v)
	}
	return child
}

// Delete detaches n from its parent. The payload is cleared first. Returns
// false for the root or an already detached node.
func (n *Node[T]) Delete() bool {
	if n.parent == nil {
		return false
	}
	return n.parent.deleteChild(n)
}

func (n *Node[T]) deleteChild(child *Node[T]) bool {
	n.mu.Lock()
	current, ok := n.children[child.name]
	if !ok || current != child {
		n.mu.Unlock()
		return false
	}
	delete(n.children, child.name)
	if len(n.children) == 0 {
		n.children = nil
	}
	n.mu.Unlock()

	child.ClearValue()
	n.invalidate()
	return true
}

// clear drops every child of n
func (n *Node[T]) clear() {
	n.mu.Lock()
	n.children = nil
	n.mu.Unlock()
	n.invalidate()
}

// invalidate tells the owning trie its name snapshot is stale
func (n *Node[T]) invalidate() {
	root := n
	for root.parent != nil {
		root = root.parent
	}
	if root.onInvalidate != nil {
		root.onInvalidate()
	}
}

// collectNames appends the names of all leaves below n, prefixed with prefix
func (n *Node[T]) collectNames(names []string, prefix string) []string {
	for _, child := range n.Children() {
		path := child.name
		if prefix != "" {
			path = prefix + separator(child.name) + child.name
		}
		if child.IsLeaf() {
			names = append(names, path)
		} else {
			names = child.collectNames(names, path)
		}
	}
	return names
}

// VisitDepthFirst calls visitor with each payload below and including n,
// children before parents. Unset payloads are passed as the zero value.
// A false return stops the whole walk and is returned.
func (n *Node[T]) VisitDepthFirst(visitor func(T) bool) bool {
	return n.VisitNodeDepthFirst(func(node *Node[T]) bool {
		v, _ := node.Value()
		return visitor(v)
	})
}

// VisitNodeDepthFirst is VisitDepthFirst over nodes. Children are
// snapshotted before recursing, so the visitor may delete nodes.
func (n *Node[T]) VisitNodeDepthFirst(visitor func(*Node[T]) bool) bool {
	for _, child := range n.Children() {
		if !child.VisitNodeDepthFirst(visitor) {
			return false
		}
	}
	return visitor(n)
}

// VisitBreadthFirst calls visitor with each payload in level order starting
// at n. Unlike the depth-first walk a false return does not stop traversal:
// it only keeps that node's children from being enqueued, and nodes already
// queued are still visited. Returns false if any visit returned false, not
// just a rejection of n itself.
func (n *Node[T]) VisitBreadthFirst(visitor func(T) bool) bool {
	return n.VisitNodeBreadthFirst(func(node *Node[T]) bool {
		v, _ := node.Value()
		return visitor(v)
	})
}

// VisitNodeBreadthFirst is VisitBreadthFirst over nodes.
func (n *Node[T]) VisitNodeBreadthFirst(visitor func(*Node[T]) bool) bool {
	return visitBreadthFirst([]*Node[T]{n}, visitor)
}

func visitBreadthFirst[T any](queue []*Node[T], visitor func(*Node[T]) bool) bool {
	complete := true
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		if !visitor(node) {
			complete = false
			continue
		}
		queue = append(queue, node.Children()...)
	}
	return complete
}
