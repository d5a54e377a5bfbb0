package config

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/bmatcuk/doublestar/v4"

	fqnerrors "github.com/standardbeagle/fqnindex/internal/errors"
)

// Validator validates configuration and sets smart defaults
type Validator struct{}

// NewValidator creates a new configuration validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateAndSetDefaults validates cfg and fills in zero values
func (v *Validator) ValidateAndSetDefaults(cfg *Config) error {
	if err := v.validateProjectConfig(&cfg.Project); err != nil {
		return fqnerrors.NewConfigError("project", cfg.Project.Root, err)
	}
	if err := v.validateIndexConfig(&cfg.Index); err != nil {
		return fqnerrors.NewConfigError("index", "", err)
	}
	for _, pattern := range cfg.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return fqnerrors.NewConfigError("exclude", pattern, errors.New("invalid glob pattern"))
		}
	}

	v.setSmartDefaults(cfg)
	return nil
}

func (v *Validator) validateProjectConfig(project *Project) error {
	if project.Root == "" {
		return errors.New("project root cannot be empty")
	}
	return nil
}

func (v *Validator) validateIndexConfig(index *Index) error {
	if index.SplitCacheSize < 0 {
		return fmt.Errorf("SplitCacheSize cannot be negative, got %d", index.SplitCacheSize)
	}
	if index.WeakHotSize < 0 {
		return fmt.Errorf("WeakHotSize cannot be negative, got %d", index.WeakHotSize)
	}
	// ScanParallelism: 0 means auto-detect
	if index.ScanParallelism < 0 {
		return fmt.Errorf("ScanParallelism cannot be negative, got %d", index.ScanParallelism)
	}
	if index.WatchDebounceMs < 0 {
		return fmt.Errorf("WatchDebounceMs cannot be negative, got %d", index.WatchDebounceMs)
	}
	for i, root := range index.Roots {
		if root == "" {
			return fmt.Errorf("root %d is empty", i)
		}
	}
	return nil
}

func (v *Validator) setSmartDefaults(cfg *Config) {
	if cfg.Index.SplitCacheSize == 0 {
		cfg.Index.SplitCacheSize = DefaultSplitCacheSize
	}
	if cfg.Index.ScanParallelism == 0 {
		cfg.Index.ScanParallelism = max(1, runtime.NumCPU()-1)
	}
	if cfg.Index.WatchDebounceMs == 0 {
		cfg.Index.WatchDebounceMs = DefaultWatchDebounceMs
	}
	if len(cfg.Index.Roots) == 0 {
		cfg.Index.Roots = []string{"."}
	}
}

// ValidateConfig is a convenience function for quick validation
func ValidateConfig(cfg *Config) error {
	return NewValidator().ValidateAndSetDefaults(cfg)
}
