package indexing

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/standardbeagle/fqnindex/internal/config"
	"github.com/standardbeagle/fqnindex/internal/debug"
	fqnerrors "github.com/standardbeagle/fqnindex/internal/errors"
	"github.com/standardbeagle/fqnindex/internal/fqn"
	"github.com/standardbeagle/fqnindex/internal/host"
	"github.com/standardbeagle/fqnindex/internal/vfs"
)

// ConfigMarkers take precedence over every other project marker so that a
// parent config with exclusions wins over a nested checkout
var ConfigMarkers = []string{config.ConfigFileKDL, config.ConfigFileTOML}

// ProjectMarkers identify a project root when no config file exists
var ProjectMarkers = []string{".git", "pom.xml", "build.gradle", "build.gradle.kts", "settings.gradle", "go.mod", "package.json", "Cargo.toml"}

// FindProjectRoot walks up from startPath looking first for a config file
// all the way up, then for the nearest project marker. The second result
// names the marker found.
func FindProjectRoot(startPath string) (string, string, error) {
	if startPath == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", "", fmt.Errorf("failed to get current working directory: %w", err)
		}
		startPath = cwd
	}
	startPath, err := filepath.Abs(startPath)
	if err != nil {
		return "", "", fmt.Errorf("failed to resolve %s: %w", startPath, err)
	}

	if root, marker, ok := walkUp(startPath, ConfigMarkers); ok {
		return root, marker, nil
	}
	if root, marker, ok := walkUp(startPath, ProjectMarkers); ok {
		return root, marker, nil
	}
	return "", "", fmt.Errorf("no project root detected from path: %s", startPath)
}

func walkUp(start string, markers []string) (string, string, bool) {
	current := start
	for {
		for _, marker := range markers {
			if _, err := os.Stat(filepath.Join(current, marker)); err == nil {
				return current, marker, true
			}
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", "", false
		}
		current = parent
	}
}

// Project ties a configuration to a live host, module, source roots and
// index. It is shared by the CLI and the MCP server.
type Project struct {
	Config *config.Config
	Host   *host.Host
	Module *host.Module
	Index  *SourceIndex

	roots   []*vfs.Root
	watcher *FileWatcher
}

// OpenProject builds the ignore policy from cfg, opens every configured
// root (directories on disk, .jar and .zip archives) and scans them
func OpenProject(cfg *config.Config) (*Project, error) {
	if err := config.ValidateConfig(cfg); err != nil {
		return nil, err
	}

	policy, err := host.NewIgnorePolicy(cfg.Exclude...)
	if err != nil {
		return nil, err
	}
	if cfg.Index.RespectGitignore {
		if err := policy.LoadGitignore(cfg.Project.Root); err != nil {
			return nil, err
		}
	}

	p := &Project{Config: cfg, Host: host.New(host.WithIgnorePolicy(policy))}
	p.Module = p.Host.Module(cfg.Project.Name)

	for _, rootPath := range cfg.RootPaths() {
		root, err := openRoot(rootPath)
		if err != nil {
			var fileErr *fqnerrors.FileError
			if errors.As(err, &fileErr) && errors.Is(err, os.ErrNotExist) {
				debug.LogIndexing("skipping missing source root %s\n", rootPath)
				continue
			}
			p.closeRoots()
			return nil, err
		}
		p.roots = append(p.roots, root)
	}

	p.Index, err = NewSourceIndex(p.Module, p.directories, nil,
		WithScanParallelism(cfg.Index.ScanParallelism),
		WithTrieOptions(fqn.WithSplitCacheSize(cfg.Index.SplitCacheSize)),
	)
	if err != nil {
		p.closeRoots()
		return nil, err
	}
	return p, nil
}

func openRoot(rootPath string) (*vfs.Root, error) {
	if config.IsArchive(rootPath) {
		return vfs.ZipRoot(rootPath)
	}
	return vfs.OSRoot(rootPath)
}

func (p *Project) directories() []vfs.Directory {
	dirs := make([]vfs.Directory, len(p.roots))
	for i, r := range p.roots {
		dirs[i] = r.Dir()
	}
	return dirs
}

// Roots returns the opened source roots in priority order
func (p *Project) Roots() []*vfs.Root {
	return p.roots
}

// Rescan rebuilds the index from the roots
func (p *Project) Rescan(ctx context.Context) error {
	return p.Index.Rescan(ctx)
}

// Watch starts a file watcher over the OS-backed roots when watch mode is
// enabled. Close stops it.
func (p *Project) Watch() (*FileWatcher, error) {
	if p.watcher != nil {
		return p.watcher, nil
	}
	fw, err := NewFileWatcher(p.Config, p.Index)
	if err != nil {
		return nil, err
	}
	if err := fw.Start(); err != nil {
		fw.Stop()
		return nil, err
	}
	p.watcher = fw
	return fw, nil
}

// Close stops watching, detaches the index and releases archive roots
func (p *Project) Close() error {
	if p.watcher != nil {
		p.watcher.Stop()
		p.watcher = nil
	}
	if p.Index != nil {
		p.Index.Close()
	}
	p.Module.Close()
	return p.closeRoots()
}

func (p *Project) closeRoots() error {
	var errs []error
	for _, r := range p.roots {
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	p.roots = nil
	return fqnerrors.NewMultiError(errs).ErrorOrNil()
}
