package indexing

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/standardbeagle/fqnindex/internal/config"
	"github.com/standardbeagle/fqnindex/internal/debug"
	fqnerrors "github.com/standardbeagle/fqnindex/internal/errors"
	"github.com/standardbeagle/fqnindex/internal/ident"
	"github.com/standardbeagle/fqnindex/internal/vfs"
)

// FileWatcher monitors the OS-backed source roots of a SourceIndex and
// publishes debounced creation, modification and deletion requests on the
// module's refresh bus
type FileWatcher struct {
	watcher   *fsnotify.Watcher
	config    *config.Config
	index     *SourceIndex
	debouncer *eventDebouncer
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	// Watch mode statistics
	eventsProcessed int64
	errorCount      int64
	lastEventTime   time.Time
	statsMu         sync.RWMutex

	// Progress tracking callback
	onBatchStart func(count int)
	onBatchEnd   func(count int, duration time.Duration)
}

// FileEventType represents the type of file system event
type FileEventType int

const (
	FileEventCreate FileEventType = iota
	FileEventWrite
	FileEventRemove
)

func (t FileEventType) String() string {
	switch t {
	case FileEventCreate:
		return "create"
	case FileEventWrite:
		return "write"
	case FileEventRemove:
		return "remove"
	default:
		return fmt.Sprintf("event(%d)", int(t))
	}
}

// NewFileWatcher creates a watcher feeding idx. The index must belong to a
// hosted module, whose bus carries the changes.
func NewFileWatcher(cfg *config.Config, idx *SourceIndex) (*FileWatcher, error) {
	if idx.module == nil || idx.module.Host() == nil {
		return nil, fqnerrors.NewIndexingError("watch", errors.New("source index has no hosted module"))
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	fw := &FileWatcher{
		watcher: watcher,
		config:  cfg,
		index:   idx,
		ctx:     ctx,
		cancel:  cancel,
	}
	fw.debouncer = newEventDebouncer(time.Duration(cfg.Index.WatchDebounceMs)*time.Millisecond, fw)

	return fw, nil
}

// SetProgressCallbacks sets callbacks for batch processing progress
func (fw *FileWatcher) SetProgressCallbacks(
	onBatchStart func(count int),
	onBatchEnd func(count int, duration time.Duration),
) {
	fw.onBatchStart = onBatchStart
	fw.onBatchEnd = onBatchEnd
}

// Start watches every OS-backed root of the index. Archive roots do not
// change and are skipped.
func (fw *FileWatcher) Start() error {
	if !fw.config.Index.WatchMode {
		log.Printf("File watching disabled in configuration")
		return nil
	}

	for _, dir := range fw.index.paths() {
		root, ok := dir.OSPath()
		if !ok {
			debug.LogIndexing("not watching %s: no local directory\n", dir)
			continue
		}
		debug.LogIndexing("Starting file watcher for directory: %s\n", root)
		if err := fw.addWatches(dir, root); err != nil {
			return fmt.Errorf("failed to add watches starting from %s: %w", root, err)
		}
	}

	fw.wg.Add(1)
	go fw.processEvents()

	fw.wg.Add(1)
	go fw.debouncer.run(fw.ctx, &fw.wg)

	debug.LogIndexing("File watcher started successfully\n")
	return nil
}

// Stop stops the file watcher. Events still waiting for their debounce
// window are dropped.
func (fw *FileWatcher) Stop() error {
	log.Printf("Stopping file watcher...")

	fw.cancel()

	if err := fw.watcher.Close(); err != nil {
		log.Printf("Error closing fsnotify watcher: %v", err)
	}

	fw.wg.Wait()

	log.Printf("File watcher stopped")
	return nil
}

// addWatches recursively adds watches below start, which lies inside the
// source directory dir
func (fw *FileWatcher) addWatches(dir vfs.Directory, start string) error {
	// Track visited directories to prevent infinite loops from symlink cycles
	visitedDirs := make(map[string]bool)

	return filepath.Walk(start, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors, continue walking
		}
		if !info.IsDir() {
			return nil
		}

		realPath, err := filepath.EvalSymlinks(p)
		if err != nil {
			return nil // Skip symlinks that can't be resolved
		}
		if visitedDirs[realPath] {
			return filepath.SkipDir
		}
		visitedDirs[realPath] = true

		if fw.shouldIgnoreDirectory(dir, p) {
			return filepath.SkipDir
		}

		if err := fw.watcher.Add(p); err != nil {
			log.Printf("Warning: failed to add watch for %s: %v", p, err)
			return nil
		}
		return nil
	})
}

// shouldIgnoreDirectory skips ignored directories and directories the scan
// would not treat as packages
func (fw *FileWatcher) shouldIgnoreDirectory(dir vfs.Directory, osPath string) bool {
	rel, ok := relToDir(dir, osPath)
	if !ok {
		return true
	}
	if rel == "." {
		return false
	}
	for _, segment := range strings.Split(rel, "/") {
		if !ident.IsIdentifier(segment) {
			return true
		}
	}
	return fw.index.ignored(path.Join(dir.Path(), rel), true)
}

// processEvents processes file system events from fsnotify
func (fw *FileWatcher) processEvents() {
	defer fw.wg.Done()

	for {
		select {
		case <-fw.ctx.Done():
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.handleEvent(event)

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.incrementStats(0, 1)
			log.Printf("File watcher error: %v", err)
		}
	}
}

// handleEvent handles a single file system event
func (fw *FileWatcher) handleEvent(event fsnotify.Event) {
	p := event.Name
	debug.LogIndexing("FileWatcher: received event %v for path %s\n", event.Op, p)

	// A rename reports the old name, which is gone
	if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		fw.debouncer.addEvent(p, FileEventRemove)
		return
	}

	info, err := os.Stat(p)
	if err != nil {
		return
	}

	if info.IsDir() {
		if event.Op&fsnotify.Create != 0 {
			fw.handleNewDirectory(p)
		}
		return
	}

	switch {
	case event.Op&fsnotify.Create != 0:
		fw.debouncer.addEvent(p, FileEventCreate)
	case event.Op&fsnotify.Write != 0:
		fw.debouncer.addEvent(p, FileEventWrite)
	}
}

// handleNewDirectory watches a new directory and reports the files it
// already holds, which were written before the watch existed
func (fw *FileWatcher) handleNewDirectory(p string) {
	dir, _, ok := fw.locate(p)
	if !ok || fw.shouldIgnoreDirectory(dir, p) {
		return
	}
	if err := fw.addWatches(dir, p); err != nil {
		log.Printf("Warning: failed to add watch for new directory %s: %v", p, err)
		return
	}
	debug.LogIndexing("Added watch for new directory: %s\n", p)

	_ = filepath.WalkDir(p, func(sub string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if sub != p && fw.shouldIgnoreDirectory(dir, sub) {
				return filepath.SkipDir
			}
			return nil
		}
		fw.debouncer.addEvent(sub, FileEventCreate)
		return nil
	})
}

// locate finds the source directory holding the OS path p. Earlier
// directories win when roots nest.
func (fw *FileWatcher) locate(p string) (vfs.Directory, string, bool) {
	for _, dir := range fw.index.paths() {
		if rel, ok := relToDir(dir, p); ok {
			return dir, rel, true
		}
	}
	return vfs.Directory{}, "", false
}

// resolve maps the OS path of a file to its vfs identity and the name it
// defines. ok is false for files outside every package.
func (fw *FileWatcher) resolve(p string) (vfs.File, string, bool) {
	dir, rel, ok := fw.locate(p)
	if !ok || rel == "." {
		return vfs.File{}, "", false
	}
	file := dir.Root().File(path.Join(dir.Path(), rel))
	if fw.index.ignored(file.Path(), false) {
		return vfs.File{}, "", false
	}

	segments := strings.Split(rel, "/")
	pkg := ""
	for _, segment := range segments[:len(segments)-1] {
		if !ident.IsIdentifier(segment) {
			return vfs.File{}, "", false
		}
		pkg = joinName(pkg, fw.index.sanitize(segment))
	}
	return file, QualifyName(pkg, file.Name(), fw.index.sanitizer), true
}

func relToDir(dir vfs.Directory, p string) (string, bool) {
	base, ok := dir.OSPath()
	if !ok {
		return "", false
	}
	rel, err := filepath.Rel(base, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func (fw *FileWatcher) publishCreate(p string) {
	file, name, ok := fw.resolve(p)
	if !ok {
		return
	}
	fw.publish(fw.index.module.Host().Created(fw.index.module, file, name), p)
}

func (fw *FileWatcher) publishChange(p string) {
	file, name, ok := fw.resolve(p)
	if !ok {
		return
	}
	names := fw.index.FqnsForFile(file)
	if names == nil {
		names = []string{name}
	}
	fw.publish(fw.index.module.Host().Modified(fw.index.module, file, names...), p)
}

// publishRemove retracts the file at p, or every indexed file below p when
// p was a directory
func (fw *FileWatcher) publishRemove(p string) {
	prefix := p + string(filepath.Separator)
	for _, file := range fw.index.Files() {
		osPath, ok := file.OSPath()
		if !ok || (osPath != p && !strings.HasPrefix(osPath, prefix)) {
			continue
		}
		names := fw.index.FqnsForFile(file)
		if len(names) == 0 {
			continue
		}
		fw.publish(fw.index.module.Host().Deleted(fw.index.module, file, names...), osPath)
	}
}

func (fw *FileWatcher) publish(err error, p string) {
	if err != nil {
		fw.incrementStats(0, 1)
		log.Printf("File watcher: cannot publish change to %s: %v", p, err)
		return
	}
	fw.incrementStats(1, 0)
}

// eventDebouncer batches file events to avoid excessive processing
type eventDebouncer struct {
	events   map[string]FileEventType
	mutex    sync.Mutex
	debounce time.Duration
	timer    *time.Timer
	stopped  bool
	inflight sync.WaitGroup
	watcher  *FileWatcher
}

func newEventDebouncer(debounce time.Duration, fw *FileWatcher) *eventDebouncer {
	return &eventDebouncer{
		events:   make(map[string]FileEventType),
		debounce: debounce,
		watcher:  fw,
	}
}

// addEvent records the latest event for path and restarts the window. A
// write after a create is still a create.
func (d *eventDebouncer) addEvent(p string, eventType FileEventType) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.stopped {
		return
	}

	if prev, ok := d.events[p]; ok && prev == FileEventCreate && eventType == FileEventWrite {
		eventType = FileEventCreate
	}
	d.events[p] = eventType

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.debounce, d.fire)
}

// run stops the debouncer once ctx is done. Pending events are dropped; the
// index is being torn down anyway.
func (d *eventDebouncer) run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	<-ctx.Done()
	d.stop()
}

func (d *eventDebouncer) stop() {
	d.mutex.Lock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.events = make(map[string]FileEventType)
	d.mutex.Unlock()

	d.inflight.Wait()
}

func (d *eventDebouncer) fire() {
	d.mutex.Lock()
	if d.stopped {
		d.mutex.Unlock()
		return
	}
	d.inflight.Add(1)
	d.mutex.Unlock()
	defer d.inflight.Done()

	d.flush()
}

// flush processes all accumulated events: removals, then changes, then
// creations
func (d *eventDebouncer) flush() {
	d.mutex.Lock()
	events := d.events
	d.events = make(map[string]FileEventType)
	d.mutex.Unlock()

	if len(events) == 0 {
		return
	}

	debug.LogIndexing("Processing %d debounced file events\n", len(events))

	fw := d.watcher
	if fw.onBatchStart != nil {
		fw.onBatchStart(len(events))
	}
	batchStart := time.Now()

	var creates, removes, changes []string
	for p, eventType := range events {
		switch eventType {
		case FileEventCreate:
			creates = append(creates, p)
		case FileEventRemove:
			removes = append(removes, p)
		case FileEventWrite:
			changes = append(changes, p)
		}
	}

	for _, p := range removes {
		fw.publishRemove(p)
	}
	for _, p := range changes {
		fw.publishChange(p)
	}
	for _, p := range creates {
		fw.publishCreate(p)
	}

	if fw.onBatchEnd != nil {
		fw.onBatchEnd(len(events), time.Since(batchStart))
	}
}

// incrementStats updates watch mode statistics
func (fw *FileWatcher) incrementStats(events int64, errors int64) {
	fw.statsMu.Lock()
	defer fw.statsMu.Unlock()

	fw.eventsProcessed += events
	fw.errorCount += errors
	fw.lastEventTime = time.Now()
}

// GetStats returns current watch mode statistics
func (fw *FileWatcher) GetStats() WatchStats {
	fw.statsMu.RLock()
	defer fw.statsMu.RUnlock()

	return WatchStats{
		EventsProcessed: fw.eventsProcessed,
		ErrorCount:      fw.errorCount,
		LastEventTime:   fw.lastEventTime,
		IsActive:        fw.ctx.Err() == nil,
	}
}

// WatchStats contains statistics about file watching operations
type WatchStats struct {
	EventsProcessed int64
	ErrorCount      int64
	LastEventTime   time.Time
	IsActive        bool
}
