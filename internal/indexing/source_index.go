package indexing

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/fqnindex/internal/debug"
	fqnerrors "github.com/standardbeagle/fqnindex/internal/errors"
	"github.com/standardbeagle/fqnindex/internal/fqn"
	"github.com/standardbeagle/fqnindex/internal/host"
	"github.com/standardbeagle/fqnindex/internal/ident"
	"github.com/standardbeagle/fqnindex/internal/vfs"
)

// State is the lifecycle stage of a SourceIndex
type State int32

const (
	StateUninitialized State = iota
	StateScanning
	StateReady
	StateCleared
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateScanning:
		return "scanning"
	case StateReady:
		return "ready"
	case StateCleared:
		return "cleared"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// PathSupplier yields the source directories to scan, in priority order. It
// is called again on every full scan and must not have side effects.
type PathSupplier func() []vfs.Directory

// SourcePredicate decides whether a source directory is worth scanning
type SourcePredicate func(vfs.Directory) bool

// DefaultScanParallelism bounds how many roots are listed at once
const DefaultScanParallelism = 4

// IndexOption configures a SourceIndex
type IndexOption func(*SourceIndex)

// WithSanitizer sets how file and directory basenames become name segments
func WithSanitizer(s ident.Sanitizer) IndexOption {
	return func(idx *SourceIndex) {
		idx.sanitizer = s
	}
}

// WithSourcePredicate replaces vfs.HasSourceFiles as the root filter
func WithSourcePredicate(p SourcePredicate) IndexOption {
	return func(idx *SourceIndex) {
		idx.hasSources = p
	}
}

// WithScanParallelism bounds concurrent root listing. Values below one mean
// one.
func WithScanParallelism(n int) IndexOption {
	return func(idx *SourceIndex) {
		idx.parallelism = max(n, 1)
	}
}

// WithTrieOptions is applied to every per-extension trie
func WithTrieOptions(opts ...fqn.Option) IndexOption {
	return func(idx *SourceIndex) {
		idx.trieOpts = opts
	}
}

// SourceIndex maps qualified names to the files that define them. Files are
// bucketed by lower-cased extension, one trie per extension, and a reverse
// map records the names each file contributes.
type SourceIndex struct {
	module  *host.Module
	paths   PathSupplier
	onClear func()

	sanitizer   ident.Sanitizer
	hasSources  SourcePredicate
	parallelism int
	trieOpts    []fqn.Option

	listener *cacheClearer
	sub      *host.Subscription
	state    atomic.Int32

	// scanMu serializes full scans
	scanMu sync.Mutex

	extMu sync.RWMutex
	byExt map[string]*fqn.Trie[vfs.File]

	revMu   sync.RWMutex
	reverse map[vfs.File]map[string]struct{}
}

// NewSourceIndex scans the directories from paths and subscribes to module's
// refresh bus. onClear runs whenever the index is cleared.
func NewSourceIndex(module *host.Module, paths PathSupplier, onClear func(), opts ...IndexOption) (*SourceIndex, error) {
	idx := &SourceIndex{
		module:      module,
		paths:       paths,
		onClear:     onClear,
		sanitizer:   ident.MakeIdentifier,
		hasSources:  vfs.HasSourceFiles,
		parallelism: DefaultScanParallelism,
		byExt:       make(map[string]*fqn.Trie[vfs.File]),
		reverse:     make(map[vfs.File]map[string]struct{}),
	}
	for _, opt := range opts {
		opt(idx)
	}

	if err := idx.Rescan(context.Background()); err != nil {
		return nil, err
	}

	idx.listener = &cacheClearer{idx: idx}
	if module != nil && module.Host() != nil {
		idx.sub = module.Host().Bus().Subscribe(module, idx.listener)
	}
	return idx, nil
}

// Listener returns the refresh listener the index registered. Useful for
// buses the index was not constructed against.
func (s *SourceIndex) Listener() host.Listener {
	return s.listener
}

// Module returns the owning module
func (s *SourceIndex) Module() *host.Module {
	return s.module
}

// State returns the current lifecycle stage
func (s *SourceIndex) State() State {
	return State(s.state.Load())
}

// Close stops listening for refresh events
func (s *SourceIndex) Close() {
	if s.sub != nil {
		s.sub.Cancel()
	}
}

type scanEntry struct {
	fqn  string
	file vfs.File
}

// Rescan rebuilds the index from the path supplier. Roots are listed
// concurrently but merged in supplier order, so a name found in an earlier
// root shadows the same name in a later one. The index keeps serving the
// previous contents until the new ones are swapped in.
func (s *SourceIndex) Rescan(ctx context.Context) error {
	s.scanMu.Lock()
	defer s.scanMu.Unlock()

	prev := s.state.Swap(int32(StateScanning))
	dirs := s.paths()
	debug.LogIndexing("scanning %d source roots for module %s\n", len(dirs), s.module.Name())

	lists := make([][]scanEntry, len(dirs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for i, dir := range dirs {
		g.Go(func() error {
			if !s.hasSources(dir) {
				debug.LogIndexing("skipping %s: no source files\n", dir)
				return nil
			}
			var entries []scanEntry
			if err := s.walk(gctx, "", dir, &entries); err != nil {
				return err
			}
			lists[i] = entries
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.state.Store(prev)
		return err
	}

	byExt := make(map[string]*fqn.Trie[vfs.File])
	reverse := make(map[vfs.File]map[string]struct{})
	for _, entries := range lists {
		for _, e := range entries {
			ext := strings.ToLower(e.file.Extension())
			trie, ok := byExt[ext]
			if !ok {
				trie = fqn.New[vfs.File](s.trieOpts...)
				byExt[ext] = trie
			}
			// first writer wins, and a package node already holds the name
			if found, err := trie.Contains(e.fqn); err != nil {
				debug.LogIndexing("skipping %s: %v\n", e.file, err)
				continue
			} else if !found {
				if err := trie.Put(e.fqn, e.file); err != nil {
					debug.LogIndexing("skipping %s: %v\n", e.file, err)
					continue
				}
			}
			addName(reverse, e.file, e.fqn)
		}
	}

	s.extMu.Lock()
	s.revMu.Lock()
	s.byExt = byExt
	s.reverse = reverse
	s.revMu.Unlock()
	s.extMu.Unlock()

	s.state.Store(int32(StateReady))
	debug.LogIndexing("indexed %d files in %d extensions\n", len(reverse), len(byExt))
	return nil
}

// walk lists files before subdirectories. Subdirectories that are not legal
// identifiers (META-INF, 1.0) are not packages and are skipped.
func (s *SourceIndex) walk(ctx context.Context, pkg string, dir vfs.Directory, out *[]scanEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.ignored(dir.Path(), true) {
		debug.LogIndexing("ignoring directory %s\n", dir)
		return nil
	}

	files, dirs, err := dir.List()
	if err != nil {
		return fqnerrors.NewIndexingError("scan", err).WithRoot(dir.Root().Name(), pkg)
	}
	for _, f := range files {
		if s.ignored(f.Path(), false) {
			continue
		}
		*out = append(*out, scanEntry{fqn: QualifyName(pkg, f.Name(), s.sanitizer), file: f})
	}
	for _, sub := range dirs {
		if !ident.IsIdentifier(sub.Name()) {
			continue
		}
		if err := s.walk(ctx, joinName(pkg, s.sanitize(sub.Name())), sub, out); err != nil {
			return err
		}
	}
	return nil
}

func (s *SourceIndex) ignored(rel string, dir bool) bool {
	if s.module == nil {
		return false
	}
	return s.module.Host().IsPathIgnored(rel, dir)
}

func (s *SourceIndex) sanitize(segment string) string {
	if s.sanitizer == nil {
		return segment
	}
	return s.sanitizer(segment)
}

// QualifyName derives the name a resource in package pkg defines: the final
// extension is dropped and the rest sanitized.
func QualifyName(pkg, resource string, sanitize ident.Sanitizer) string {
	if i := strings.LastIndexByte(resource, '.'); i > 0 {
		resource = resource[:i]
	}
	if sanitize != nil {
		resource = sanitize(resource)
	}
	return joinName(pkg, resource)
}

func joinName(pkg, name string) string {
	if pkg == "" {
		return name
	}
	return pkg + "." + name
}

func addName(reverse map[vfs.File]map[string]struct{}, file vfs.File, name string) {
	names, ok := reverse[file]
	if !ok {
		names = make(map[string]struct{}, 1)
		reverse[file] = names
	}
	names[name] = struct{}{}
}

// ExtensionCache returns the trie for ext, creating an empty one if needed.
// ext is matched case-insensitively.
func (s *SourceIndex) ExtensionCache(ext string) *fqn.Trie[vfs.File] {
	ext = strings.ToLower(ext)

	s.extMu.RLock()
	trie, ok := s.byExt[ext]
	s.extMu.RUnlock()
	if ok {
		return trie
	}

	s.extMu.Lock()
	defer s.extMu.Unlock()
	if trie, ok = s.byExt[ext]; !ok {
		trie = fqn.New[vfs.File](s.trieOpts...)
		s.byExt[ext] = trie
	}
	return trie
}

// ExtensionCaches returns a snapshot of the per-extension tries
func (s *SourceIndex) ExtensionCaches() map[string]*fqn.Trie[vfs.File] {
	s.extMu.RLock()
	defer s.extMu.RUnlock()
	out := make(map[string]*fqn.Trie[vfs.File], len(s.byExt))
	for ext, trie := range s.byExt {
		out[ext] = trie
	}
	return out
}

// Extensions returns the known extensions, sorted
func (s *SourceIndex) Extensions() []string {
	s.extMu.RLock()
	defer s.extMu.RUnlock()
	exts := make([]string, 0, len(s.byExt))
	for ext := range s.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// FindFiles returns every file defining name, one per extension at most.
// More than one result means the name is ambiguous across extensions.
func (s *SourceIndex) FindFiles(name string) ([]vfs.File, error) {
	var files []vfs.File
	caches := s.ExtensionCaches()
	for _, ext := range sortedKeys(caches) {
		file, ok, err := caches[ext].Get(name)
		if err != nil {
			return nil, err
		}
		if ok && !file.IsZero() {
			files = append(files, file)
		}
	}
	return files, nil
}

// FqnsForFile returns the sorted names file contributes, nil if none
func (s *SourceIndex) FqnsForFile(file vfs.File) []string {
	s.revMu.RLock()
	defer s.revMu.RUnlock()
	names := s.reverse[file]
	if len(names) == 0 {
		return nil
	}
	out := make([]string, 0, len(names))
	for name := range names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Files returns every file that contributes at least one name
func (s *SourceIndex) Files() []vfs.File {
	s.revMu.RLock()
	defer s.revMu.RUnlock()
	out := make([]vfs.File, 0, len(s.reverse))
	for file, names := range s.reverse {
		if len(names) > 0 {
			out = append(out, file)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Fqns returns every indexed name across extensions, sorted and distinct
func (s *SourceIndex) Fqns() []string {
	seen := make(map[string]struct{})
	for _, trie := range s.ExtensionCaches() {
		for _, name := range trie.Fqns() {
			seen[name] = struct{}{}
		}
	}
	return sortedKeys(seen)
}

// Clear empties the index and runs the clear handler. Nothing is rescanned
// until Rescan is called.
func (s *SourceIndex) Clear() {
	s.extMu.Lock()
	s.revMu.Lock()
	s.byExt = make(map[string]*fqn.Trie[vfs.File])
	s.reverse = make(map[vfs.File]map[string]struct{})
	s.revMu.Unlock()
	s.extMu.Unlock()

	s.state.Store(int32(StateCleared))
	debug.LogIndexing("cleared source index for module %s\n", s.module.Name())
	if s.onClear != nil {
		s.onClear()
	}
}

// Apply folds one change into the index. Requests addressed to another
// module are ignored.
func (s *SourceIndex) Apply(req host.Request) {
	if req.Module != nil && req.Module != s.module {
		return
	}

	switch req.Kind {
	case host.Creation:
		trie := s.ExtensionCache(req.File.Extension())
		for _, name := range req.Fqns {
			if err := trie.Put(name, req.File); err != nil {
				debug.LogEvents("cannot index %s as %q: %v\n", req.File, name, err)
				continue
			}
			s.revMu.Lock()
			addName(s.reverse, req.File, name)
			s.revMu.Unlock()
		}

	case host.Deletion:
		trie := s.ExtensionCache(req.File.Extension())
		for _, name := range req.Fqns {
			s.removeName(req.File, name)
			if err := removeIfOwned(trie, name, req.File); err != nil {
				debug.LogEvents("cannot unindex %s as %q: %v\n", req.File, name, err)
			}
		}

	case host.Modification:
		// contents changed, names did not
	}
}

func (s *SourceIndex) removeName(file vfs.File, name string) {
	s.revMu.Lock()
	defer s.revMu.Unlock()
	names, ok := s.reverse[file]
	if !ok {
		return
	}
	delete(names, name)
	if len(names) == 0 {
		delete(s.reverse, file)
	}
}

// removeIfOwned drops name from trie unless another file now owns it. A name
// that is also a package keeps its node so the names below it survive.
func removeIfOwned(trie *fqn.Trie[vfs.File], name string, file vfs.File) error {
	node, err := trie.Node(name)
	if err != nil || node == nil {
		return err
	}
	if owner, ok := node.Value(); ok && owner != file {
		return nil
	}
	if node.IsLeaf() {
		node.Delete()
	} else {
		node.ClearValue()
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// cacheClearer keeps the index in step with the module's refresh bus. It
// asks to be notified early so the index is current for other listeners.
type cacheClearer struct {
	idx *SourceIndex
}

func (c *cacheClearer) NotifyEarly() bool {
	return true
}

func (c *cacheClearer) Refreshed() {
	c.idx.Clear()
}

func (c *cacheClearer) RefreshedTypes(req host.Request) {
	c.idx.Apply(req)
}
