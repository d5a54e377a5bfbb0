package display

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/standardbeagle/fqnindex/internal/fqn"
)

// TreeFormatter renders a qualified name trie for display
type TreeFormatter[T any] struct {
	options FormatterOptions
	label   func(T) string
}

// FormatterOptions controls tree formatting
type FormatterOptions struct {
	Format     string // "text", "json", "compact"
	ShowValues bool   // Append each node's payload label
	MaxDepth   int    // Maximum depth to display, 0 = unlimited
	Indent     string // Indentation string
}

// NewTreeFormatter creates a new tree formatter. label renders payloads when
// ShowValues is set; nil falls back to fmt's %v.
func NewTreeFormatter[T any](options FormatterOptions, label func(T) string) *TreeFormatter[T] {
	if options.Indent == "" {
		options.Indent = "  "
	}
	if label == nil {
		label = func(v T) string { return fmt.Sprint(v) }
	}
	return &TreeFormatter[T]{options: options, label: label}
}

// TreeStats summarizes the part of a trie a formatter would display
type TreeStats struct {
	Nodes    int `json:"nodes"`
	Leaves   int `json:"leaves"`
	MaxDepth int `json:"max_depth"`
}

// Stats counts the nodes below root within the depth limit. The root itself
// is not counted.
func (tf *TreeFormatter[T]) Stats(root *fqn.Node[T]) TreeStats {
	var stats TreeStats
	var walk func(n *fqn.Node[T], depth int)
	walk = func(n *fqn.Node[T], depth int) {
		if tf.options.MaxDepth > 0 && depth > tf.options.MaxDepth {
			return
		}
		stats.Nodes++
		stats.MaxDepth = max(stats.MaxDepth, depth)
		children := n.Children()
		if len(children) == 0 {
			stats.Leaves++
		}
		for _, c := range children {
			walk(c, depth+1)
		}
	}
	for _, c := range root.Children() {
		walk(c, 1)
	}
	return stats
}

// Format renders the subtree below root
func (tf *TreeFormatter[T]) Format(root *fqn.Node[T]) string {
	if root == nil || root.IsLeaf() {
		return "No names indexed"
	}

	switch tf.options.Format {
	case "json":
		return tf.formatJSON(root)
	case "compact":
		return tf.formatCompact(root)
	default:
		return tf.formatText(root)
	}
}

// formatText formats the tree as ASCII art
func (tf *TreeFormatter[T]) formatText(root *fqn.Node[T]) string {
	var sb strings.Builder

	stats := tf.Stats(root)
	title := root.Fqn()
	if title == "" {
		title = root.Name()
	}
	sb.WriteString(fmt.Sprintf("Names below '%s'\n", title))
	sb.WriteString(fmt.Sprintf("Total nodes: %d, Leaves: %d, Max depth: %d\n", stats.Nodes, stats.Leaves, stats.MaxDepth))
	sb.WriteString("\n")

	tf.formatNode(&sb, root, "", true, 0)
	return sb.String()
}

// formatNode recursively formats a tree node
func (tf *TreeFormatter[T]) formatNode(sb *strings.Builder, node *fqn.Node[T], prefix string, isLast bool, depth int) {
	if tf.options.MaxDepth > 0 && depth > tf.options.MaxDepth {
		return
	}

	var branch string
	switch {
	case depth == 0:
		branch = "→ "
	case isLast:
		branch = "└─→ "
	default:
		branch = "├─→ "
	}

	sb.WriteString(prefix)
	sb.WriteString(branch)
	sb.WriteString(node.Name())
	if tf.options.ShowValues {
		if v, ok := node.Value(); ok {
			sb.WriteString(" [")
			sb.WriteString(tf.label(v))
			sb.WriteString("]")
		}
	}
	sb.WriteString("\n")

	children := node.Children()
	for i, child := range children {
		childPrefix := prefix + tf.options.Indent
		if depth > 0 && !isLast {
			childPrefix = prefix + "│" + tf.options.Indent[1:]
		}
		tf.formatNode(sb, child, childPrefix, i == len(children)-1, depth+1)
	}
}

// formatCompact follows the first child at every level, so a single chain of
// packages prints on one line
func (tf *TreeFormatter[T]) formatCompact(root *fqn.Node[T]) string {
	var parts []string
	node := root
	for depth := 1; tf.options.MaxDepth <= 0 || depth <= tf.options.MaxDepth; depth++ {
		children := node.Children()
		if len(children) == 0 {
			break
		}
		node = children[0]
		part := node.Name()
		if len(children) > 1 {
			part += fmt.Sprintf(" (+%d more)", len(children)-1)
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, " → ")
}

type jsonNode struct {
	Name     string      `json:"name"`
	Fqn      string      `json:"fqn"`
	Value    string      `json:"value,omitempty"`
	Children []*jsonNode `json:"children,omitempty"`
}

func (tf *TreeFormatter[T]) toJSON(node *fqn.Node[T], depth int) *jsonNode {
	out := &jsonNode{Name: node.Name(), Fqn: node.Fqn()}
	if tf.options.ShowValues {
		if v, ok := node.Value(); ok {
			out.Value = tf.label(v)
		}
	}
	if tf.options.MaxDepth > 0 && depth >= tf.options.MaxDepth {
		return out
	}
	for _, c := range node.Children() {
		out.Children = append(out.Children, tf.toJSON(c, depth+1))
	}
	return out
}

// formatJSON formats the tree as indented JSON
func (tf *TreeFormatter[T]) formatJSON(root *fqn.Node[T]) string {
	payload := struct {
		Stats TreeStats `json:"stats"`
		Tree  *jsonNode `json:"tree"`
	}{tf.Stats(root), tf.toJSON(root, 0)}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, err.Error())
	}
	return string(data)
}
