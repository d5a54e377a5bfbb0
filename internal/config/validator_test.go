package config

import (
	"errors"
	"testing"

	fqnerrors "github.com/standardbeagle/fqnindex/internal/errors"
)

func TestValidateAndSetDefaults(t *testing.T) {
	cfg := &Config{
		Project: Project{Root: "/test/root", Name: "test-project"},
	}

	if err := NewValidator().ValidateAndSetDefaults(cfg); err != nil {
		t.Fatalf("ValidateAndSetDefaults failed: %v", err)
	}

	if cfg.Index.SplitCacheSize != DefaultSplitCacheSize {
		t.Errorf("SplitCacheSize should default to %d, got %d", DefaultSplitCacheSize, cfg.Index.SplitCacheSize)
	}
	if cfg.Index.ScanParallelism < 1 {
		t.Errorf("ScanParallelism should have been derived from the CPU count")
	}
	if cfg.Index.WatchDebounceMs != DefaultWatchDebounceMs {
		t.Errorf("WatchDebounceMs should default to %d", DefaultWatchDebounceMs)
	}
	if len(cfg.Index.Roots) != 1 || cfg.Index.Roots[0] != "." {
		t.Errorf("Roots should default to the project root, got %v", cfg.Index.Roots)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name  string
		cfg   Config
		field string
	}{
		{"empty root", Config{}, "project"},
		{"negative cache", Config{Project: Project{Root: "/r"}, Index: Index{SplitCacheSize: -1}}, "index"},
		{"negative hot size", Config{Project: Project{Root: "/r"}, Index: Index{WeakHotSize: -1}}, "index"},
		{"negative parallelism", Config{Project: Project{Root: "/r"}, Index: Index{ScanParallelism: -2}}, "index"},
		{"negative debounce", Config{Project: Project{Root: "/r"}, Index: Index{WatchDebounceMs: -1}}, "index"},
		{"empty source root", Config{Project: Project{Root: "/r"}, Index: Index{Roots: []string{"src", ""}}}, "index"},
		{"bad glob", Config{Project: Project{Root: "/r"}, Exclude: []string{"src/[oops"}}, "exclude"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateConfig(&tt.cfg)
			if err == nil {
				t.Fatal("expected an error")
			}
			var cfgErr *fqnerrors.ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigError, got %T", err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("Field = %q, want %q", cfgErr.Field, tt.field)
			}
		})
	}
}

func TestDeduplicatePatterns(t *testing.T) {
	got := DeduplicatePatterns([]string{"a", "b", "a", "c", "b"})
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got %v, want %v", got, want)
		}
	}
}
