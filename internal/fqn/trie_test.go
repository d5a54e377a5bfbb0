package fqn

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fqnerrors "github.com/standardbeagle/fqnindex/internal/errors"
)

func mustPut[T any](t *testing.T, trie *Trie[T], name string, v T) {
	t.Helper()
	require.NoError(t, trie.Put(name, v))
}

func mustGet[T any](t *testing.T, trie *Trie[T], name string) (T, bool) {
	t.Helper()
	v, ok, err := trie.Get(name)
	require.NoError(t, err)
	return v, ok
}

func mustContain[T any](t *testing.T, trie *Trie[T], name string) bool {
	t.Helper()
	ok, err := trie.Contains(name)
	require.NoError(t, err)
	return ok
}

func TestTrieOverwriteScenario(t *testing.T) {
	trie := New[string]()
	mustPut(t, trie, "a.b.C", "x")
	mustPut(t, trie, "a.b.D", "y")
	mustPut(t, trie, "a.b.C", "z")

	v, ok := mustGet(t, trie, "a.b.C")
	assert.True(t, ok)
	assert.Equal(t, "z", v)

	assert.Equal(t, []string{"a.b.C", "a.b.D"}, trie.Fqns())

	// intermediate node exists but carries no payload
	assert.True(t, mustContain(t, trie, "a.b"))
	_, ok = mustGet(t, trie, "a.b")
	assert.False(t, ok)
}

func TestTrieIdempotentAdd(t *testing.T) {
	trie := New[int]()
	mustPut(t, trie, "com.acme.Widget", 7)
	mustPut(t, trie, "com.acme.Widget", 7)

	v, ok := mustGet(t, trie, "com.acme.Widget")
	assert.True(t, ok)
	assert.Equal(t, 7, v)
	assert.Equal(t, []string{"com.acme.Widget"}, trie.Fqns())
	assert.Equal(t, 1, trie.Len())
}

func TestTrieRemoveThenMiss(t *testing.T) {
	trie := New[string]()
	mustPut(t, trie, "a.b.C", "x")

	removed, err := trie.Remove("a.b.C")
	require.NoError(t, err)
	assert.True(t, removed)

	_, ok := mustGet(t, trie, "a.b.C")
	assert.False(t, ok)
	assert.False(t, mustContain(t, trie, "a.b.C"))

	// parents are not pruned
	assert.True(t, mustContain(t, trie, "a.b"))
	assert.Equal(t, []string{"a.b"}, trie.Fqns())

	removed, err = trie.Remove("a.b.C")
	require.NoError(t, err)
	assert.False(t, removed)

	removed, err = trie.Remove("x.y.Z")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestTrieRemoveClearsPayload(t *testing.T) {
	trie := New[string]()
	mustPut(t, trie, "a.B", "x")

	node, err := trie.Node("a.B")
	require.NoError(t, err)
	require.NotNil(t, node)

	_, err = trie.Remove("a.B")
	require.NoError(t, err)

	_, ok := node.Value()
	assert.False(t, ok, "detached node keeps no payload")
}

func TestTrieAddWithoutPayload(t *testing.T) {
	trie := New[string]()
	require.NoError(t, trie.Add("pkg.Type"))

	assert.True(t, mustContain(t, trie, "pkg.Type"))
	_, ok := mustGet(t, trie, "pkg.Type")
	assert.False(t, ok)
	assert.Equal(t, []string{"pkg.Type"}, trie.Fqns())

	// a later Put fills in the payload
	mustPut(t, trie, "pkg.Type", "v")
	v, ok := mustGet(t, trie, "pkg.Type")
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	// and Add on an existing node leaves the payload alone
	require.NoError(t, trie.Add("pkg.Type"))
	v, _ = mustGet(t, trie, "pkg.Type")
	assert.Equal(t, "v", v)
}

func TestTriePayloadOnIntermediateNode(t *testing.T) {
	trie := New[string]()
	mustPut(t, trie, "a.b", "pkg")
	mustPut(t, trie, "a.b.C", "type")

	v, ok := mustGet(t, trie, "a.b")
	assert.True(t, ok)
	assert.Equal(t, "pkg", v)

	// only leaves are names
	assert.Equal(t, []string{"a.b.C"}, trie.Fqns())
}

func TestTrieGenericsAndArrays(t *testing.T) {
	trie := New[string]()
	mustPut(t, trie, "java.util.List<java.lang.String>", "list-of-string")
	mustPut(t, trie, "java.util.List<java.lang.Integer>", "list-of-int")
	mustPut(t, trie, "int[]", "int-array")

	v, ok := mustGet(t, trie, "java.util.List<java.lang.String>")
	assert.True(t, ok)
	assert.Equal(t, "list-of-string", v)

	assert.True(t, mustContain(t, trie, "java.util.List"))
	assert.Equal(t, []string{
		"int[]",
		"java.util.List<java.lang.Integer>",
		"java.util.List<java.lang.String>",
	}, trie.Fqns())

	node, err := trie.Node("int[]")
	require.NoError(t, err)
	assert.Equal(t, "int[]", node.Fqn())
}

func TestTrieMalformedName(t *testing.T) {
	trie := New[string]()

	err := trie.Put("List<String", "x")
	assert.True(t, errors.Is(err, fqnerrors.ErrMalformedName))

	_, _, err = trie.Get("List<String")
	assert.True(t, errors.Is(err, fqnerrors.ErrMalformedName))

	_, err = trie.Remove("List<String")
	assert.True(t, errors.Is(err, fqnerrors.ErrMalformedName))

	assert.True(t, trie.IsEmpty())
}

func TestTrieValidatorRejection(t *testing.T) {
	noDash := func(seg string) (string, bool) {
		return seg, !strings.Contains(seg, "-")
	}
	trie := New[string](WithValidator(noDash), WithSplitCacheSize(32))

	err := trie.Put("a.b-c.D", "x")
	require.Error(t, err)
	assert.True(t, errors.Is(err, fqnerrors.ErrValidationRejected))
	assert.True(t, trie.IsEmpty(), "a rejected name creates no nodes")

	// rejection is distinguishable from a plain miss
	_, ok, err := trie.Get("a.b-c.D")
	assert.False(t, ok)
	assert.True(t, errors.Is(err, fqnerrors.ErrValidationRejected))

	_, ok, err = trie.Get("a.b.D")
	assert.False(t, ok)
	assert.NoError(t, err)

	ok, err = trie.Contains("a.b-c.D")
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestTrieValidatorRewritesSegments(t *testing.T) {
	lower := func(seg string) (string, bool) { return strings.ToLower(seg), true }
	trie := New[int](WithValidator(lower))

	mustPut(t, trie, "Com.Acme.Widget", 1)
	v, ok := mustGet(t, trie, "com.acme.widget")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestTrieRootVisible(t *testing.T) {
	trie := New[string](WithRoot("java", true))
	mustPut(t, trie, "lang.String", "s")
	mustPut(t, trie, "lang.String[]", "arr")

	assert.True(t, trie.IsRootVisible())
	// lang.String has a child, so only the array form is a leaf
	assert.Equal(t, []string{"java.lang.String[]"}, trie.Fqns())

	node, err := trie.Node("lang.String")
	require.NoError(t, err)
	assert.Equal(t, "java.lang.String", node.Fqn())

	hidden := New[string]()
	mustPut(t, hidden, "lang.String", "s")
	node, err = hidden.Node("lang.String")
	require.NoError(t, err)
	assert.Equal(t, "lang.String", node.Fqn())
	assert.Equal(t, "", hidden.Root().Fqn())
}

func TestTrieFqnsSnapshotInvalidation(t *testing.T) {
	trie := New[int]()
	mustPut(t, trie, "a.A", 1)
	first := trie.Fqns()
	assert.Equal(t, []string{"a.A"}, first)

	// callers cannot corrupt the cached set
	first[0] = "mutated"
	assert.Equal(t, []string{"a.A"}, trie.Fqns())

	mustPut(t, trie, "a.B", 2)
	assert.Equal(t, []string{"a.A", "a.B"}, trie.Fqns())

	_, err := trie.Remove("a.A")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.B"}, trie.Fqns())

	trie.Clear()
	assert.Empty(t, trie.Fqns())
	assert.True(t, trie.IsEmpty())
}

func TestTrieRemoveAll(t *testing.T) {
	trie := New[int]()
	for i, name := range []string{"a.A", "a.B", "b.C"} {
		mustPut(t, trie, name, i)
	}

	err := trie.RemoveAll("a.A", "List<Broken", "b.C", "missing.X")
	require.Error(t, err)
	assert.True(t, errors.Is(err, fqnerrors.ErrMalformedName))

	// entries after the failing one were still removed
	assert.Equal(t, []string{"a.B", "b"}, trie.Fqns())
}

func TestTrieAddAllAndMerge(t *testing.T) {
	src := New[string]()
	require.NoError(t, src.AddAll(map[string]string{"a.A": "1", "a.B": "2"}))
	require.NoError(t, src.Add("c.D"))

	dst := New[string]()
	mustPut(t, dst, "a.A", "old")
	require.NoError(t, dst.Merge(src))

	v, _ := mustGet(t, dst, "a.A")
	assert.Equal(t, "1", v)
	assert.Equal(t, []string{"a.A", "a.B", "c.D"}, dst.Fqns())
	_, ok := mustGet(t, dst, "c.D")
	assert.False(t, ok)
}

func buildTraversalTrie(t *testing.T) *Trie[string] {
	trie := New[string]()
	for _, name := range []string{"a.x.One", "a.x.Two", "a.y.Three", "b.Four"} {
		mustPut(t, trie, name, name)
	}
	return trie
}

func TestVisitDepthFirstOrderAndShortCircuit(t *testing.T) {
	trie := buildTraversalTrie(t)

	var seen []string
	complete := trie.VisitNodeDepthFirst(func(n *Node[string]) bool {
		seen = append(seen, n.Fqn())
		return true
	})
	assert.True(t, complete)
	assert.Equal(t, []string{"a.x.One", "a.x.Two", "a.x", "a.y.Three", "a.y", "a", "b.Four", "b"}, seen)

	seen = nil
	complete = trie.VisitNodeDepthFirst(func(n *Node[string]) bool {
		seen = append(seen, n.Fqn())
		return n.Fqn() != "a.x.Two"
	})
	assert.False(t, complete)
	assert.Equal(t, []string{"a.x.One", "a.x.Two"}, seen, "depth-first stops at the first false")
}

func TestVisitBreadthFirstPrunesOnlySubtree(t *testing.T) {
	trie := buildTraversalTrie(t)

	var seen []string
	complete := trie.VisitNodeBreadthFirst(func(n *Node[string]) bool {
		seen = append(seen, n.Fqn())
		return true
	})
	assert.True(t, complete)
	assert.Equal(t, []string{"a", "b", "a.x", "a.y", "b.Four", "a.x.One", "a.x.Two", "a.y.Three"}, seen)

	seen = nil
	complete = trie.VisitNodeBreadthFirst(func(n *Node[string]) bool {
		seen = append(seen, n.Fqn())
		return n.Fqn() != "a.x"
	})
	assert.False(t, complete)
	// a.x's children are skipped, everything already queued is still visited
	assert.Equal(t, []string{"a", "b", "a.x", "a.y", "b.Four", "a.y.Three"}, seen)
}

func TestVisitPayloads(t *testing.T) {
	trie := buildTraversalTrie(t)

	var payloads []string
	trie.VisitDepthFirst(func(v string) bool {
		if v != "" {
			payloads = append(payloads, v)
		}
		return true
	})
	assert.Equal(t, []string{"a.x.One", "a.x.Two", "a.y.Three", "b.Four"}, payloads)

	count := 0
	trie.VisitBreadthFirst(func(v string) bool {
		count++
		return true
	})
	assert.Equal(t, 8, count)
}

func TestVisitorMayRemoveNodes(t *testing.T) {
	trie := buildTraversalTrie(t)

	trie.VisitNodeDepthFirst(func(n *Node[string]) bool {
		if strings.HasPrefix(n.Fqn(), "a.x.") {
			n.Delete()
		}
		return true
	})

	assert.Equal(t, []string{"a.x", "a.y.Three", "b.Four"}, trie.Fqns())
}

func TestTrieConcurrentAccess(t *testing.T) {
	trie := New[int]()
	const workers = 8
	const perWorker = 200

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				name := fmt.Sprintf("shared.pkg%d.Type%d", i%10, w*perWorker+i)
				if err := trie.Put(name, i); err != nil {
					t.Error(err)
					return
				}
				if _, ok, _ := trie.Get(name); !ok {
					t.Errorf("own write not visible for %s", name)
				}
				_ = trie.Fqns()
				if i%3 == 0 {
					_, _ = trie.Remove(name)
				}
			}
		}(w)
	}
	wg.Wait()

	removedPerWorker := (perWorker + 2) / 3
	assert.Equal(t, workers*(perWorker-removedPerWorker), trie.Len())
}

func TestTrieSplitCacheSize(t *testing.T) {
	assert.Same(t, defaultSplitter, New[string]().splitter)
	assert.Same(t, defaultSplitter, New[string](WithSplitCacheSize(DefaultSplitCacheSize)).splitter)

	trie := New[string](WithSplitCacheSize(2))
	require.NotSame(t, defaultSplitter, trie.splitter)
	assert.Equal(t, 2, trie.splitter.Cap())

	for _, name := range []string{"a.A", "a.B", "a.C"} {
		require.NoError(t, trie.Put(name, name))
	}
	assert.Equal(t, 2, trie.splitter.Len(), "the private cache holds at most two names")
	assert.Equal(t, []string{"a.A", "a.B", "a.C"}, trie.Fqns())
}
