package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// ConfigFileKDL and ConfigFileTOML are the project config file names. The
// KDL file wins when both exist.
const (
	ConfigFileKDL  = ".fqnindex.kdl"
	ConfigFileTOML = ".fqnindex.toml"
)

// Defaults shared by Default and the file loaders
const (
	DefaultSplitCacheSize  = 10000
	DefaultWeakHotSize     = 256
	DefaultWatchDebounceMs = 300
)

type Config struct {
	Version int
	Project Project
	Index   Index
	Exclude []string
}

type Project struct {
	Root string
	Name string
}

type Index struct {
	Roots            []string // source directories or .jar/.zip archives, in priority order
	SplitCacheSize   int      // capacity of the name split memo
	WeakHotSize      int      // strong entries kept by weak caches, 0 disables
	ScanParallelism  int      // roots listed concurrently, 0 = auto
	RespectGitignore bool     // honor the project .gitignore
	WatchMode        bool     // watch OS roots and apply changes incrementally
	WatchDebounceMs  int      // debounce for file change events
}

// Default returns the configuration used when no config file exists
func Default(root string) *Config {
	return &Config{
		Version: 1,
		Project: Project{
			Root: root,
			Name: filepath.Base(root),
		},
		Index: Index{
			Roots:            []string{"."},
			SplitCacheSize:   DefaultSplitCacheSize,
			WeakHotSize:      DefaultWeakHotSize,
			ScanParallelism:  runtime.NumCPU(),
			RespectGitignore: true,
			WatchMode:        false,
			WatchDebounceMs:  DefaultWatchDebounceMs,
		},
		Exclude: []string{
			"**/.git/**",
			"**/.*/**",
			"**/node_modules/**",
			"**/*.swp",
			"**/*~",
		},
	}
}

func Load(path string) (*Config, error) {
	return LoadWithRoot(path, "")
}

// LoadWithRoot reads the project config from rootDir (or the working
// directory) and merges it over the user's home config, if any
func LoadWithRoot(path string, rootDir string) (*Config, error) {
	searchDir := "."
	if rootDir != "" {
		searchDir = rootDir
	}
	if path != "" {
		searchDir = filepath.Dir(path)
	}

	// Step 1: global base config from the home directory
	var baseConfig *Config
	if homeDir, err := os.UserHomeDir(); err == nil {
		if globalCfg, err := loadFrom(homeDir); err == nil && globalCfg != nil {
			baseConfig = globalCfg
		}
	}

	// Step 2: project config
	projectConfig, err := loadFrom(searchDir)
	if err != nil {
		return nil, err
	}

	var cfg *Config
	switch {
	case baseConfig != nil && projectConfig != nil:
		cfg = mergeConfigs(baseConfig, projectConfig)
	case projectConfig != nil:
		cfg = projectConfig
	case baseConfig != nil:
		baseConfig.Project.Root = absOr(searchDir)
		cfg = baseConfig
	default:
		cfg = Default(absOr(searchDir))
	}

	cfg.EnrichExclusionsWithBuildArtifacts()
	return cfg, nil
}

// loadFrom tries the KDL file, then the TOML file. Both missing is (nil, nil).
func loadFrom(dir string) (*Config, error) {
	cfg, err := LoadKDL(dir)
	if err != nil || cfg != nil {
		return cfg, err
	}
	return LoadTOML(dir)
}

func absOr(dir string) string {
	if abs, err := filepath.Abs(dir); err == nil {
		return abs
	}
	return dir
}

// resolveRoot makes a configured project root absolute relative to the
// directory holding the config file
func resolveRoot(cfg *Config, configDir string) {
	if cfg.Project.Root == "" {
		cfg.Project.Root = absOr(configDir)
	} else if !filepath.IsAbs(cfg.Project.Root) {
		cfg.Project.Root = filepath.Clean(filepath.Join(absOr(configDir), cfg.Project.Root))
	}
	if cfg.Project.Name == "" {
		cfg.Project.Name = filepath.Base(cfg.Project.Root)
	}
}

// mergeConfigs merges a base config with a project config. The project wins
// everywhere except exclusions, which are combined.
func mergeConfigs(base, project *Config) *Config {
	merged := *project

	if len(base.Exclude) > 0 {
		merged.Exclude = DeduplicatePatterns(append(append([]string{}, base.Exclude...), project.Exclude...))
	}
	if len(project.Index.Roots) == 0 && len(base.Index.Roots) > 0 {
		merged.Index.Roots = base.Index.Roots
	}
	return &merged
}

// RootPaths returns the configured source roots as absolute paths, in order
func (c *Config) RootPaths() []string {
	roots := c.Index.Roots
	if len(roots) == 0 {
		roots = []string{"."}
	}
	out := make([]string, 0, len(roots))
	for _, r := range roots {
		if !filepath.IsAbs(r) {
			r = filepath.Join(c.Project.Root, r)
		}
		out = append(out, filepath.Clean(r))
	}
	return out
}

// IsArchive reports whether a root path names a zip or jar archive
func IsArchive(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jar", ".zip":
		return true
	}
	return false
}

// EnrichExclusionsWithBuildArtifacts adds build output directories declared
// by build files in the project root to the exclusions
func (c *Config) EnrichExclusionsWithBuildArtifacts() {
	if c.Project.Root == "" {
		return
	}
	detected := NewBuildArtifactDetector(c.Project.Root).DetectOutputDirectories()
	if len(detected) > 0 {
		c.Exclude = DeduplicatePatterns(append(c.Exclude, detected...))
	}
}

// DeduplicatePatterns removes duplicate patterns, keeping first occurrences
func DeduplicatePatterns(patterns []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		if !seen[pattern] {
			seen[pattern] = true
			result = append(result, pattern)
		}
	}
	return result
}
