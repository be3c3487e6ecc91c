package discover

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

// CollisionResolver hands out unique output paths. Two sources that map to
// the same output (a.NEF and a.DNG both become a.jpg) get "-dupN" suffixes
// in the order they are resolved. All methods are goroutine-safe.
type CollisionResolver struct {
	mu       sync.Mutex
	owners   map[string]string // output path -> source that owns it
	counters map[string]int
}

// NewCollisionResolver creates a ready-to-use resolver.
func NewCollisionResolver() *CollisionResolver {
	return &CollisionResolver{
		owners:   make(map[string]string),
		counters: make(map[string]int),
	}
}

// Resolve returns the output path for source. A path already owned by
// source is returned unchanged.
func (cr *CollisionResolver) Resolve(source, requested string) string {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	if owner, ok := cr.owners[requested]; !ok || owner == source {
		cr.owners[requested] = source
		return requested
	}

	dir := filepath.Dir(requested)
	ext := filepath.Ext(requested)
	stem := strings.TrimSuffix(filepath.Base(requested), ext)
	for n := max(cr.counters[requested], 1); ; n++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s-dup%d%s", stem, n, ext))
		if owner, ok := cr.owners[candidate]; !ok || owner == source {
			cr.counters[requested] = n + 1
			cr.owners[candidate] = source
			return candidate
		}
	}
}
