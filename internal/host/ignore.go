package host

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"

	fqnerrors "github.com/standardbeagle/fqnindex/internal/errors"
)

// IgnorePolicy combines exclude globs with optional .gitignore rules. Paths
// are slash separated and relative to a source root.
type IgnorePolicy struct {
	patterns  []string
	gitignore *ignore.GitIgnore
}

// NewIgnorePolicy compiles the exclude globs. Every pattern is validated up
// front so a typo fails at startup instead of silently matching nothing.
func NewIgnorePolicy(patterns ...string) (*IgnorePolicy, error) {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, fqnerrors.NewConfigError("exclude", p, fmt.Errorf("invalid glob pattern"))
		}
	}
	return &IgnorePolicy{patterns: patterns}, nil
}

// LoadGitignore adds the rules of dir/.gitignore. A missing file is not an
// error.
func (p *IgnorePolicy) LoadGitignore(dir string) error {
	path := filepath.Join(dir, ".gitignore")
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fqnerrors.NewFileError("stat", path, err)
	}
	gi, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		return fqnerrors.NewFileError("parse", path, err)
	}
	p.gitignore = gi
	return nil
}

// AddGitignoreLines uses lines as .gitignore rules, replacing earlier ones
func (p *IgnorePolicy) AddGitignoreLines(lines ...string) {
	p.gitignore = ignore.CompileIgnoreLines(lines...)
}

// Patterns returns the exclude globs
func (p *IgnorePolicy) Patterns() []string {
	return p.patterns
}

// IsPathIgnored reports whether rel is excluded. The top of a root (""
// or ".") is never ignored.
func (p *IgnorePolicy) IsPathIgnored(rel string, dir bool) bool {
	if p == nil || rel == "" || rel == "." {
		return false
	}
	rel = strings.TrimPrefix(filepath.ToSlash(rel), "./")

	for _, pattern := range p.patterns {
		if matched, err := doublestar.Match(pattern, rel); err == nil && matched {
			return true
		}
		// "build/**" also excludes the build directory itself
		if dir && strings.HasSuffix(pattern, "/**") {
			if matched, _ := doublestar.Match(strings.TrimSuffix(pattern, "/**"), rel); matched {
				return true
			}
		}
	}

	if p.gitignore != nil {
		if p.gitignore.MatchesPath(rel) {
			return true
		}
		if dir && p.gitignore.MatchesPath(rel+"/") {
			return true
		}
	}
	return false
}
