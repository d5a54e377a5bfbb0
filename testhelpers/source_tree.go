package testhelpers

import (
	"archive/zip"
	"os"
	"path"
	"path/filepath"
	"sort"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
)

// SourceTree collects slash paths and contents for a fake source root. The
// same tree can be materialized in memory, on disk or as a jar.
//
//	tree := testhelpers.NewSourceTree().
//		Add("com/acme/Foo.java", "class Foo {}").
//		Add("META-INF/MANIFEST.MF", "")
type SourceTree struct {
	files map[string]string
}

// NewSourceTree creates an empty tree
func NewSourceTree() *SourceTree {
	return &SourceTree{files: make(map[string]string)}
}

// Add records a file. Parent directories are implied.
func (st *SourceTree) Add(rel, content string) *SourceTree {
	st.files[path.Clean(rel)] = content
	return st
}

// AddEmpty records files with no content
func (st *SourceTree) AddEmpty(rels ...string) *SourceTree {
	for _, rel := range rels {
		st.Add(rel, "")
	}
	return st
}

// Paths returns the recorded paths, sorted
func (st *SourceTree) Paths() []string {
	out := make([]string, 0, len(st.files))
	for rel := range st.files {
		out = append(out, rel)
	}
	sort.Strings(out)
	return out
}

// MapFS builds an in-memory filesystem
func (st *SourceTree) MapFS() fstest.MapFS {
	fsys := make(fstest.MapFS, len(st.files))
	for rel, content := range st.files {
		fsys[rel] = &fstest.MapFile{Data: []byte(content), Mode: 0644}
	}
	return fsys
}

// WriteTo writes the tree below dir
func (st *SourceTree) WriteTo(t testing.TB, dir string) string {
	t.Helper()
	for rel, content := range st.files {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	}
	return dir
}

// TempDir writes the tree into a fresh temporary directory
func (st *SourceTree) TempDir(t testing.TB) string {
	t.Helper()
	return st.WriteTo(t, t.TempDir())
}

// Jar writes the tree as a zip archive named name in a fresh temporary
// directory and returns its path
func (st *SourceTree) Jar(t testing.TB, name string) string {
	t.Helper()
	archive := filepath.Join(t.TempDir(), name)
	out, err := os.Create(archive)
	require.NoError(t, err)

	zw := zip.NewWriter(out)
	for _, rel := range st.Paths() {
		w, err := zw.Create(rel)
		require.NoError(t, err)
		_, err = w.Write([]byte(st.files[rel]))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, out.Close())
	return archive
}
