// Package vfs exposes source roots as directories and files with stable
// identity. A File or Directory is a plain value (root pointer plus slash
// path), so two listings of the same path compare equal and can key maps.
package vfs

import (
	"archive/zip"
	"errors"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	fqnerrors "github.com/standardbeagle/fqnindex/internal/errors"
)

// Root is one source entry: an OS directory, an archive or any fs.FS
type Root struct {
	name   string
	fsys   fs.FS
	osDir  string
	closer io.Closer
}

// NewRoot wraps fsys. name is used for display only.
func NewRoot(name string, fsys fs.FS) *Root {
	return &Root{name: name, fsys: fsys}
}

// OSRoot opens dir on the local filesystem
func OSRoot(dir string) (*Root, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fqnerrors.NewFileError("resolve", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fqnerrors.NewFileError("stat", abs, err)
	}
	if !info.IsDir() {
		return nil, fqnerrors.NewFileError("open root", abs, errors.New("not a directory"))
	}
	return &Root{name: abs, fsys: os.DirFS(abs), osDir: abs}, nil
}

// ZipRoot opens a zip or jar archive. Close releases the archive.
func ZipRoot(archive string) (*Root, error) {
	rc, err := zip.OpenReader(archive)
	if err != nil {
		return nil, fqnerrors.NewFileError("open archive", archive, err)
	}
	return &Root{name: archive, fsys: rc, closer: rc}, nil
}

// Name returns the display name of the root
func (r *Root) Name() string {
	return r.name
}

// FS returns the underlying filesystem
func (r *Root) FS() fs.FS {
	return r.fsys
}

// OSDir returns the local directory backing the root, if there is one
func (r *Root) OSDir() (string, bool) {
	return r.osDir, r.osDir != ""
}

// Close releases an archive root. It is a no-op for other roots.
func (r *Root) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// Dir returns the top directory of the root
func (r *Root) Dir() Directory {
	return Directory{root: r, path: "."}
}

// Directory returns the directory at the slash path rel
func (r *Root) Directory(rel string) Directory {
	return Directory{root: r, path: cleanRel(rel)}
}

// File returns the file at the slash path rel
func (r *Root) File(rel string) File {
	return File{root: r, path: cleanRel(rel)}
}

// Rel maps an OS path below the root to its slash path. ok is false for
// roots without an OS directory and for paths outside the root.
func (r *Root) Rel(osPath string) (string, bool) {
	if r.osDir == "" {
		return "", false
	}
	rel, err := filepath.Rel(r.osDir, osPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func (r *Root) String() string {
	return r.name
}

func cleanRel(rel string) string {
	rel = path.Clean("/" + filepath.ToSlash(rel))
	if rel == "/" {
		return "."
	}
	return rel[1:]
}

// Directory is a directory inside a Root
type Directory struct {
	root *Root
	path string
}

// Root returns the owning root
func (d Directory) Root() *Root {
	return d.root
}

// Path returns the slash path relative to the root, "." for the top
func (d Directory) Path() string {
	return d.path
}

// Name returns the last path element, or the root name for the top
func (d Directory) Name() string {
	if d.path == "." {
		return path.Base(filepath.ToSlash(d.root.name))
	}
	return path.Base(d.path)
}

// Parent returns the enclosing directory. ok is false for the top.
func (d Directory) Parent() (Directory, bool) {
	if d.path == "." {
		return Directory{}, false
	}
	return Directory{root: d.root, path: path.Dir(d.path)}, true
}

// Exists reports whether the directory is present
func (d Directory) Exists() bool {
	info, err := fs.Stat(d.root.fsys, d.path)
	return err == nil && info.IsDir()
}

// List returns the files and subdirectories of d, each sorted by name
func (d Directory) List() ([]File, []Directory, error) {
	entries, err := fs.ReadDir(d.root.fsys, d.path)
	if err != nil {
		return nil, nil, fqnerrors.NewFileError("list", d.String(), err)
	}
	var files []File
	var dirs []Directory
	for _, entry := range entries {
		child := entry.Name()
		if d.path != "." {
			child = d.path + "/" + child
		}
		if entry.IsDir() {
			dirs = append(dirs, Directory{root: d.root, path: child})
		} else {
			files = append(files, File{root: d.root, path: child})
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].path < files[j].path })
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].path < dirs[j].path })
	return files, dirs, nil
}

// ListFiles returns the files directly inside d
func (d Directory) ListFiles() ([]File, error) {
	files, _, err := d.List()
	return files, err
}

// ListDirs returns the subdirectories directly inside d
func (d Directory) ListDirs() ([]Directory, error) {
	_, dirs, err := d.List()
	return dirs, err
}

// OSPath returns the local path of d when the root is OS backed
func (d Directory) OSPath() (string, bool) {
	if d.root.osDir == "" {
		return "", false
	}
	return filepath.Join(d.root.osDir, filepath.FromSlash(d.path)), true
}

func (d Directory) String() string {
	if d.root == nil {
		return d.path
	}
	if p, ok := d.OSPath(); ok {
		return p
	}
	if d.path == "." {
		return d.root.name
	}
	return d.root.name + "!/" + d.path
}

// File is a file inside a Root
type File struct {
	root *Root
	path string
}

// Root returns the owning root
func (f File) Root() *Root {
	return f.root
}

// Path returns the slash path relative to the root
func (f File) Path() string {
	return f.path
}

// Name returns the base name including the extension
func (f File) Name() string {
	return path.Base(f.path)
}

// BaseName returns the name without its final extension. A leading dot
// does not start an extension.
func (f File) BaseName() string {
	name := f.Name()
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		return name[:i]
	}
	return name
}

// Extension returns the final extension without the dot, or ""
func (f File) Extension() string {
	name := f.Name()
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		return name[i+1:]
	}
	return ""
}

// Parent returns the directory containing f
func (f File) Parent() Directory {
	return Directory{root: f.root, path: path.Dir(f.path)}
}

// Exists reports whether the file is present
func (f File) Exists() bool {
	info, err := fs.Stat(f.root.fsys, f.path)
	return err == nil && !info.IsDir()
}

// Open opens the file for reading
func (f File) Open() (fs.File, error) {
	file, err := f.root.fsys.Open(f.path)
	if err != nil {
		return nil, fqnerrors.NewFileError("open", f.String(), err)
	}
	return file, nil
}

// OSPath returns the local path of f when the root is OS backed
func (f File) OSPath() (string, bool) {
	if f.root.osDir == "" {
		return "", false
	}
	return filepath.Join(f.root.osDir, filepath.FromSlash(f.path)), true
}

// IsZero reports whether f is the zero File
func (f File) IsZero() bool {
	return f.root == nil
}

func (f File) String() string {
	if f.root == nil {
		return f.path
	}
	if p, ok := f.OSPath(); ok {
		return p
	}
	return f.root.name + "!/" + f.path
}

// HasSourceFiles reports whether d exists and has at least one entry. It
// reads one directory only; empty subdirectories still count as entries.
func HasSourceFiles(d Directory) bool {
	entries, err := fs.ReadDir(d.root.fsys, d.path)
	return err == nil && len(entries) > 0
}
