package host

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fqnerrors "github.com/standardbeagle/fqnindex/internal/errors"
	"github.com/standardbeagle/fqnindex/internal/vfs"
)

// recorder appends its tag to a shared log on every notification
type recorder struct {
	tag      string
	early    bool
	log      *[]string
	requests []Request
}

func (r *recorder) NotifyEarly() bool { return r.early }

func (r *recorder) Refreshed() {
	*r.log = append(*r.log, r.tag+":refreshed")
}

func (r *recorder) RefreshedTypes(req Request) {
	r.requests = append(r.requests, req)
	*r.log = append(*r.log, r.tag+":"+req.Kind.String())
}

func testFile() vfs.File {
	root := vfs.NewRoot("mem", fstest.MapFS{"a/B.java": {}})
	return root.File("a/B.java")
}

func TestPublishOrdering(t *testing.T) {
	h := New()
	m := h.Module("main")

	var log []string
	late := &recorder{tag: "late", log: &log}
	early := &recorder{tag: "early", early: true, log: &log}
	h.Bus().Subscribe(m, late)
	h.Bus().Subscribe(m, early)

	require.NoError(t, h.Created(m, testFile(), "a.B"))
	assert.Equal(t, []string{"early:creation", "late:creation"}, log)

	log = nil
	require.NoError(t, h.Modified(m, testFile(), "a.B"))
	assert.Equal(t, []string{"early:modification", "late:modification"}, log)

	log = nil
	require.NoError(t, h.Deleted(m, testFile(), "a.B"))
	assert.Equal(t, []string{"late:deletion", "early:deletion"}, log)

	log = nil
	h.Bus().RefreshAll()
	assert.Equal(t, []string{"early:refreshed", "late:refreshed"}, log)

	require.Len(t, early.requests, 3)
	assert.Equal(t, []string{"a.B"}, early.requests[0].Fqns)
	assert.Same(t, m, early.requests[0].Module)
}

func TestPublishUnknownKind(t *testing.T) {
	h := New()
	err := h.Bus().Publish(Request{Kind: Kind(42), File: testFile()})
	require.Error(t, err)

	var eventErr *fqnerrors.EventError
	assert.True(t, errors.As(err, &eventErr))
	assert.Equal(t, "kind(42)", Kind(42).String())
}

func TestSubscribeIsIdempotent(t *testing.T) {
	h := New()
	m := h.Module("main")
	var log []string
	l := &recorder{tag: "l", log: &log}

	s1 := h.Bus().Subscribe(m, l)
	s2 := h.Bus().Subscribe(m, l)
	assert.Same(t, s1, s2)
	assert.Equal(t, 1, h.Bus().Len())

	require.NoError(t, h.Created(m, testFile(), "a.B"))
	assert.Len(t, log, 1)
}

func TestUnsubscribe(t *testing.T) {
	h := New()
	m := h.Module("main")
	var log []string
	s := h.Bus().Subscribe(m, &recorder{tag: "l", log: &log})

	s.Cancel()
	assert.False(t, h.Bus().Unsubscribe(s))
	assert.Equal(t, 0, h.Bus().Len())

	require.NoError(t, h.Created(m, testFile(), "a.B"))
	assert.Empty(t, log)
}

func TestResetLapsesSubscriptions(t *testing.T) {
	h := New()
	m := h.Module("main")
	var log []string
	old := h.Bus().Subscribe(m, &recorder{tag: "old", log: &log})

	m.Reset()
	assert.False(t, old.Live())
	fresh := h.Bus().Subscribe(m, &recorder{tag: "new", log: &log})
	assert.True(t, fresh.Live())

	require.NoError(t, h.Created(m, testFile(), "a.B"))
	assert.Equal(t, []string{"new:creation"}, log)
	assert.Equal(t, 1, h.Bus().Len(), "the lapsed subscription is pruned")
}

func TestCloseDetachesModule(t *testing.T) {
	h := New()
	m := h.Module("main")
	assert.Same(t, m, h.Module("main"))
	assert.Equal(t, []string{"main"}, h.Modules())

	var log []string
	sub := h.Bus().Subscribe(m, &recorder{tag: "l", log: &log})
	m.Close()
	m.Close()

	assert.True(t, m.IsClosed())
	assert.False(t, sub.Live())
	assert.Empty(t, h.Modules())
	assert.NotSame(t, m, h.Module("main"))

	h.Bus().RefreshAll()
	assert.Empty(t, log)
}

func TestNilModuleSubscriptionNeverLapses(t *testing.T) {
	h := New()
	var log []string
	sub := h.Bus().Subscribe(nil, &recorder{tag: "global", log: &log})
	assert.True(t, sub.Live())

	require.NoError(t, h.Created(h.Module("any"), testFile(), "a.B"))
	assert.Equal(t, []string{"global:creation"}, log)
}

func TestIgnorePolicyGlobs(t *testing.T) {
	p, err := NewIgnorePolicy("**/generated", "build/**", "**/*.tmp")
	require.NoError(t, err)

	tests := []struct {
		rel     string
		dir     bool
		ignored bool
	}{
		{"generated", true, true},
		{"src/generated", true, true},
		{"build", true, true},
		{"build/classes/A.class", false, true},
		{"com/acme/Scratch.tmp", false, true},
		{"com/acme", true, false},
		{"com/acme/Widget.java", false, false},
		{".", true, false},
		{"", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			assert.Equal(t, tt.ignored, p.IsPathIgnored(tt.rel, tt.dir))
		})
	}
}

func TestIgnorePolicyRejectsBadGlob(t *testing.T) {
	_, err := NewIgnorePolicy("src/[unclosed")
	require.Error(t, err)
	var cfgErr *fqnerrors.ConfigError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestIgnorePolicyGitignore(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".gitignore"), []byte("out/\n*.log\n"), 0o644))

	p, err := NewIgnorePolicy()
	require.NoError(t, err)
	require.NoError(t, p.LoadGitignore(dir))

	assert.True(t, p.IsPathIgnored("out", true))
	assert.True(t, p.IsPathIgnored("out/Gen.java", false))
	assert.True(t, p.IsPathIgnored("logs/run.log", false))
	assert.False(t, p.IsPathIgnored("src/Main.java", false))

	// a missing .gitignore is fine
	require.NoError(t, p.LoadGitignore(t.TempDir()))
}

func TestHostIsPathIgnored(t *testing.T) {
	assert.False(t, New().IsPathIgnored("anything", true))

	p, err := NewIgnorePolicy()
	require.NoError(t, err)
	p.AddGitignoreLines("tmp")
	h := New(WithIgnorePolicy(p))
	assert.True(t, h.IsPathIgnored("tmp", true))
	assert.Same(t, p, h.IgnorePolicy())
}
