package watch

import (
	"path/filepath"
	"sync"

	"rawconv/internal/batch"
)

// Seen is the set of source paths already handled in this session.
type Seen struct {
	mu    sync.Mutex
	paths map[string]struct{}
}

// NewSeen returns an empty set.
func NewSeen() *Seen {
	return &Seen{paths: make(map[string]struct{})}
}

// Contains reports whether path was handled. Suitable as discover.Options.Exclude.
func (s *Seen) Contains(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.paths[filepath.Clean(path)]
	return ok
}

// AddReport marks every entry of report as handled.
func (s *Seen) AddReport(report *batch.Report) {
	if report == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entry := range report.Entries {
		s.paths[filepath.Clean(entry.Item.SourcePath)] = struct{}{}
	}
}

// Forget makes path eligible again.
func (s *Seen) Forget(path string) {
	s.mu.Lock()
	delete(s.paths, filepath.Clean(path))
	s.mu.Unlock()
}

// Len returns the number of remembered paths.
func (s *Seen) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.paths)
}
