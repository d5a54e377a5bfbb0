package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// tomlConfig mirrors the KDL layout:
//
//	exclude = ["**/generated/**"]
//	[project]
//	root = "."
//	[index]
//	roots = ["src/main/java"]
//	watch_mode = true
type tomlConfig struct {
	Project struct {
		Root string `toml:"root"`
		Name string `toml:"name"`
	} `toml:"project"`
	Index struct {
		Roots            []string `toml:"roots"`
		SplitCacheSize   *int     `toml:"split_cache_size"`
		WeakHotSize      *int     `toml:"weak_hot_size"`
		ScanParallelism  *int     `toml:"scan_parallelism"`
		RespectGitignore *bool    `toml:"respect_gitignore"`
		WatchMode        *bool    `toml:"watch_mode"`
		WatchDebounceMs  *int     `toml:"watch_debounce_ms"`
	} `toml:"index"`
	Exclude []string `toml:"exclude"`
}

// LoadTOML loads dir/.fqnindex.toml. A missing file yields (nil, nil).
func LoadTOML(dir string) (*Config, error) {
	tomlPath := filepath.Join(dir, ConfigFileTOML)
	data, err := os.ReadFile(tomlPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", ConfigFileTOML, err)
	}

	cfg, err := parseTOML(data)
	if err != nil {
		return nil, err
	}
	resolveRoot(cfg, dir)
	return cfg, nil
}

func parseTOML(data []byte) (*Config, error) {
	var tc tomlConfig
	if err := toml.Unmarshal(data, &tc); err != nil {
		return nil, fmt.Errorf("failed to parse TOML config: %w", err)
	}

	cfg := Default("")
	cfg.Project.Root = tc.Project.Root
	cfg.Project.Name = tc.Project.Name
	if tc.Index.Roots != nil {
		cfg.Index.Roots = tc.Index.Roots
	}
	setInt(&cfg.Index.SplitCacheSize, tc.Index.SplitCacheSize)
	setInt(&cfg.Index.WeakHotSize, tc.Index.WeakHotSize)
	setInt(&cfg.Index.ScanParallelism, tc.Index.ScanParallelism)
	setInt(&cfg.Index.WatchDebounceMs, tc.Index.WatchDebounceMs)
	setBool(&cfg.Index.RespectGitignore, tc.Index.RespectGitignore)
	setBool(&cfg.Index.WatchMode, tc.Index.WatchMode)
	if tc.Exclude != nil {
		cfg.Exclude = tc.Exclude
	}
	return cfg, nil
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
