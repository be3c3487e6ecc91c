// Package discover enumerates RAW files in an input directory and turns
// them into batch work items with distinct output paths.
package discover

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"rawconv/internal/batch"
	"rawconv/internal/services"
)

// Options controls enumeration.
type Options struct {
	InputDir  string
	OutputDir string
	// Extensions are matched case-insensitively and must include the dot.
	Extensions []string
	Recursive  bool
	// OutputExt is appended to each source stem, e.g. ".jpg".
	OutputExt    string
	SkipExisting bool
	// Exclude, when set, drops sources for which it returns true.
	Exclude func(path string) bool
}

// Enumerator implements batch.Enumerator over a directory tree.
type Enumerator struct {
	opts Options
	exts map[string]bool
}

// New returns an Enumerator for opts.
func New(opts Options) *Enumerator {
	exts := make(map[string]bool, len(opts.Extensions))
	for _, ext := range opts.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts[ext] = true
	}
	if opts.OutputExt == "" {
		opts.OutputExt = ".jpg"
	}
	return &Enumerator{opts: opts, exts: exts}
}

// Matches reports whether path has one of the configured extensions and is
// not a hidden file.
func (e *Enumerator) Matches(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	return e.exts[strings.ToLower(filepath.Ext(base))]
}

// Enumerate lists matching files sorted by path. A directory with no
// matching files yields an empty slice and no error.
func (e *Enumerator) Enumerate(ctx context.Context) ([]batch.WorkItem, error) {
	root := e.opts.InputDir
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "discover", "stat input", root, err)
		}
		return nil, fmt.Errorf("stat input dir: %w", err)
	}
	if !info.IsDir() {
		return nil, services.Wrap(services.ErrValidation, "discover", "stat input", "not a directory: "+root, nil)
	}

	type source struct {
		path string
		size uint64
	}
	var sources []source
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if path != root && (!e.opts.Recursive || strings.HasPrefix(d.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !e.Matches(path) {
			return nil
		}
		if e.opts.Exclude != nil && e.opts.Exclude(path) {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		sources = append(sources, source{path: path, size: uint64(fi.Size())})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk input dir: %w", err)
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i].path < sources[j].path })

	resolver := NewCollisionResolver()
	items := make([]batch.WorkItem, 0, len(sources))
	for _, src := range sources {
		output := resolver.Resolve(src.path, e.outputPath(root, src.path))
		if e.opts.SkipExisting {
			if _, err := os.Stat(output); err == nil {
				continue
			}
		}
		items = append(items, batch.WorkItem{
			SourcePath:      src.path,
			OutputPath:      output,
			SourceSizeBytes: src.size,
		})
	}
	return items, nil
}

// outputPath mirrors the source's position under root into OutputDir and
// swaps the extension.
func (e *Enumerator) outputPath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = filepath.Base(path)
	}
	stem := strings.TrimSuffix(rel, filepath.Ext(rel))
	return filepath.Join(e.opts.OutputDir, stem+e.opts.OutputExt)
}
