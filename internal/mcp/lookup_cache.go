package mcp

import (
	"github.com/standardbeagle/fqnindex/internal/fqn"
	"github.com/standardbeagle/fqnindex/internal/host"
)

// lookupResult is a cached find_files answer. Negative answers are cached
// too; a creation event for the name evicts them.
type lookupResult struct {
	Fqn   string   `json:"fqn"`
	Files []string `json:"files"`
}

// lookupInvalidator evicts cached lookups as the index changes. It listens
// late, so by the time it runs the index already reflects a creation.
type lookupInvalidator struct {
	lookups *fqn.WeakTrie[lookupResult]
	logger  *DiagnosticLogger
}

func (l *lookupInvalidator) NotifyEarly() bool {
	return false
}

func (l *lookupInvalidator) Refreshed() {
	l.lookups.Clear()
}

func (l *lookupInvalidator) RefreshedTypes(req host.Request) {
	if len(req.Fqns) == 0 {
		return
	}
	if err := l.lookups.RemoveAll(req.Fqns...); err != nil {
		l.logger.Errorf("evicting %d lookups for %s: %v", len(req.Fqns), req.File, err)
	}
}

// lookup answers find_files from the cache, falling back to the index
func (s *Server) lookup(name string) (*lookupResult, bool, error) {
	if cached, ok, err := s.lookups.Get(name); err != nil {
		return nil, false, err
	} else if ok {
		return cached, true, nil
	}

	files, err := s.project.Index.FindFiles(name)
	if err != nil {
		return nil, false, err
	}
	result := &lookupResult{Fqn: name, Files: make([]string, 0, len(files))}
	for _, f := range files {
		result.Files = append(result.Files, f.String())
	}
	if err := s.lookups.Put(name, result); err != nil {
		return nil, false, err
	}
	return result, false, nil
}

// sweepLookups drops names whose payload was collected. Returns how many
// were dropped.
func (s *Server) sweepLookups() int {
	stale := s.lookups.Stale()
	if len(stale) == 0 {
		return 0
	}
	if err := s.lookups.RemoveAll(stale...); err != nil {
		s.diagnosticLogger.Errorf("sweeping %d stale lookups: %v", len(stale), err)
	}
	return len(stale)
}
