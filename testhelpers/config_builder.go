// Package testhelpers provides shared utilities for testing the qualified
// name index
package testhelpers

import (
	"github.com/standardbeagle/fqnindex/internal/config"
)

// TestConfigBuilder provides a fluent API for building test configs with safe defaults
// This is intentionally in a separate file to avoid circular dependencies with indexing tests
// Usage:
//
//	cfg := testhelpers.NewTestConfigBuilder(projectPath).
//		WithRoots("src/main/java", "lib/api.jar").
//		WithExclusions("**/generated/**").
//		WithWatch(20).
//		Build()
type TestConfigBuilder struct {
	projectRoot string
	roots       []string
	exclusions  []string
	watch       bool
	debounceMs  int
	hotSize     int
}

// NewTestConfigBuilder creates a config builder with safe defaults for a project path
func NewTestConfigBuilder(projectRoot string) *TestConfigBuilder {
	return &TestConfigBuilder{
		projectRoot: projectRoot,
		roots:       []string{"."},
		exclusions: []string{
			"**/.git/**",
			"**/node_modules/**",
		},
		debounceMs: 10, // Fast debounce for tests
		hotSize:    16,
	}
}

// WithRoots replaces the source roots, in priority order
func (b *TestConfigBuilder) WithRoots(roots ...string) *TestConfigBuilder {
	b.roots = roots
	return b
}

// WithExclusions adds additional exclusion patterns
func (b *TestConfigBuilder) WithExclusions(patterns ...string) *TestConfigBuilder {
	b.exclusions = append(b.exclusions, patterns...)
	return b
}

// WithWatch enables watch mode with the given debounce
func (b *TestConfigBuilder) WithWatch(debounceMs int) *TestConfigBuilder {
	b.watch = true
	b.debounceMs = debounceMs
	return b
}

// WithHotSize sets how many payloads weak caches pin
func (b *TestConfigBuilder) WithHotSize(n int) *TestConfigBuilder {
	b.hotSize = n
	return b
}

// Build creates the final test config with all settings
func (b *TestConfigBuilder) Build() *config.Config {
	return &config.Config{
		Version: 1,
		Project: config.Project{
			Root: b.projectRoot,
			Name: "test-project",
		},
		Index: config.Index{
			Roots:            b.roots,
			SplitCacheSize:   1000,
			WeakHotSize:      b.hotSize,
			ScanParallelism:  2,     // Limited for predictable behavior
			RespectGitignore: false, // Disabled for tests
			WatchMode:        b.watch,
			WatchDebounceMs:  b.debounceMs,
		},
		Exclude: b.exclusions,
	}
}
