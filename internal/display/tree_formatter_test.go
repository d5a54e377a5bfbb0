package display

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/fqnindex/internal/fqn"
)

func sampleTrie(t *testing.T) *fqn.Trie[string] {
	t.Helper()
	trie := fqn.New[string]()
	require.NoError(t, trie.Put("com.acme.Foo", "Foo.java"))
	require.NoError(t, trie.Add("com.acme.util.Strings"))
	require.NoError(t, trie.Put("org.Bar", "Bar.kt"))
	return trie
}

func TestNewTreeFormatter(t *testing.T) {
	formatter := NewTreeFormatter[string](FormatterOptions{}, nil)
	assert.Equal(t, "  ", formatter.options.Indent)
	assert.Equal(t, "x", formatter.label("x"))

	options := FormatterOptions{Format: "text", ShowValues: true, MaxDepth: 5, Indent: "\t"}
	formatter = NewTreeFormatter[string](options, strings.ToUpper)
	assert.Equal(t, options, formatter.options)
	assert.Equal(t, "X", formatter.label("x"))
}

func TestTreeFormatter_Format_Empty(t *testing.T) {
	formatter := NewTreeFormatter[string](FormatterOptions{}, nil)
	assert.Equal(t, "No names indexed", formatter.Format(nil))
	assert.Equal(t, "No names indexed", formatter.Format(fqn.New[string]().Root()))
}

func TestTreeFormatter_Format_Text(t *testing.T) {
	formatter := NewTreeFormatter[string](FormatterOptions{ShowValues: true}, nil)

	want := strings.Join([]string{
		"Names below 'root'",
		"Total nodes: 7, Leaves: 3, Max depth: 4",
		"",
		"→ root",
		"  ├─→ com",
		"  │ └─→ acme",
		"  │   ├─→ Foo [Foo.java]",
		"  │   └─→ util",
		"  │     └─→ Strings",
		"  └─→ org",
		"    └─→ Bar [Bar.kt]",
		"",
	}, "\n")
	assert.Equal(t, want, formatter.Format(sampleTrie(t).Root()))
}

func TestTreeFormatter_Format_Subtree(t *testing.T) {
	node, err := sampleTrie(t).Node("com.acme")
	require.NoError(t, err)

	output := NewTreeFormatter[string](FormatterOptions{}, nil).Format(node)
	assert.Contains(t, output, "Names below 'com.acme'")
	assert.Contains(t, output, "Total nodes: 3, Leaves: 2, Max depth: 2")
	assert.NotContains(t, output, "[Foo.java]", "values only with ShowValues")
}

func TestTreeFormatter_MaxDepth(t *testing.T) {
	formatter := NewTreeFormatter[string](FormatterOptions{MaxDepth: 2}, nil)
	root := sampleTrie(t).Root()

	stats := formatter.Stats(root)
	assert.Equal(t, TreeStats{Nodes: 4, Leaves: 1, MaxDepth: 2}, stats)

	output := formatter.Format(root)
	assert.Contains(t, output, "acme")
	assert.NotContains(t, output, "Foo")
}

func TestTreeFormatter_Format_Compact(t *testing.T) {
	formatter := NewTreeFormatter[string](FormatterOptions{Format: "compact"}, nil)
	assert.Equal(t, "com (+1 more) → acme → Foo (+1 more)", formatter.Format(sampleTrie(t).Root()))
}

func TestTreeFormatter_Format_JSON(t *testing.T) {
	formatter := NewTreeFormatter[string](FormatterOptions{Format: "json", ShowValues: true}, nil)

	var payload struct {
		Stats TreeStats `json:"stats"`
		Tree  jsonNode  `json:"tree"`
	}
	require.NoError(t, json.Unmarshal([]byte(formatter.Format(sampleTrie(t).Root())), &payload))
	assert.Equal(t, 7, payload.Stats.Nodes)
	assert.Equal(t, "root", payload.Tree.Name)
	require.Len(t, payload.Tree.Children, 2)

	org := payload.Tree.Children[1]
	assert.Equal(t, "org", org.Fqn)
	require.Len(t, org.Children, 1)
	assert.Equal(t, "org.Bar", org.Children[0].Fqn)
	assert.Equal(t, "Bar.kt", org.Children[0].Value)
}
