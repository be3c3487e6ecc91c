package discover_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"rawconv/internal/discover"
	"rawconv/internal/services"
	"rawconv/internal/testsupport"
)

func TestEnumerateFiltersAndSorts(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "out")
	testsupport.WriteFile(t, filepath.Join(in, "b.CR2"), 10)
	testsupport.WriteFile(t, filepath.Join(in, "a.nef"), 20)
	testsupport.WriteFile(t, filepath.Join(in, "notes.txt"), 5)
	testsupport.WriteFile(t, filepath.Join(in, ".hidden.nef"), 5)
	testsupport.WriteFile(t, filepath.Join(in, "sub", "c.nef"), 5)

	e := discover.New(discover.Options{
		InputDir:   in,
		OutputDir:  out,
		Extensions: []string{".nef", "cr2"},
		OutputExt:  ".png",
	})
	items, err := e.Enumerate(context.Background())
	if err != nil {
		t.Fatalf("Enumerate returned error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("unexpected item count: got %d want 2 (%+v)", len(items), items)
	}
	if items[0].SourcePath != filepath.Join(in, "a.nef") || items[0].SourceSizeBytes != 20 {
		t.Fatalf("unexpected first item: %+v", items[0])
	}
	if items[1].OutputPath != filepath.Join(out, "b.png") {
		t.Fatalf("unexpected output path: %q", items[1].OutputPath)
	}
}

func TestEnumerateRecursiveMirrorsLayout(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(in, "day1", "x.arw"), 1)

	items, err := discover.New(discover.Options{
		InputDir: in, OutputDir: out, Extensions: []string{".arw"}, Recursive: true,
	}).Enumerate(context.Background())
	if err != nil {
		t.Fatalf("Enumerate returned error: %v", err)
	}
	if len(items) != 1 || items[0].OutputPath != filepath.Join(out, "day1", "x.jpg") {
		t.Fatalf("unexpected items: %+v", items)
	}
}

func TestEnumerateResolvesCollisions(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(in, "shot.dng"), 1)
	testsupport.WriteFile(t, filepath.Join(in, "shot.nef"), 1)

	items, err := discover.New(discover.Options{
		InputDir: in, OutputDir: out, Extensions: []string{".dng", ".nef"},
	}).Enumerate(context.Background())
	if err != nil {
		t.Fatalf("Enumerate returned error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("unexpected count: %d", len(items))
	}
	if items[0].OutputPath != filepath.Join(out, "shot.jpg") || items[1].OutputPath != filepath.Join(out, "shot-dup1.jpg") {
		t.Fatalf("unexpected outputs: %q, %q", items[0].OutputPath, items[1].OutputPath)
	}
}

func TestEnumerateEmptyDirectory(t *testing.T) {
	items, err := discover.New(discover.Options{InputDir: t.TempDir(), OutputDir: t.TempDir(), Extensions: []string{".nef"}}).
		Enumerate(context.Background())
	if err != nil {
		t.Fatalf("Enumerate returned error: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected no items, got %d", len(items))
	}
}

func TestEnumerateMissingDirectory(t *testing.T) {
	_, err := discover.New(discover.Options{InputDir: filepath.Join(t.TempDir(), "nope"), Extensions: []string{".nef"}}).
		Enumerate(context.Background())
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestEnumerateSkipExistingAndExclude(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(in, "done.nef"), 1)
	testsupport.WriteFile(t, filepath.Join(in, "todo.nef"), 1)
	testsupport.WriteFile(t, filepath.Join(in, "seen.nef"), 1)
	if err := os.WriteFile(filepath.Join(out, "done.jpg"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write existing output: %v", err)
	}

	items, err := discover.New(discover.Options{
		InputDir:     in,
		OutputDir:    out,
		Extensions:   []string{".nef"},
		SkipExisting: true,
		Exclude:      func(path string) bool { return filepath.Base(path) == "seen.nef" },
	}).Enumerate(context.Background())
	if err != nil {
		t.Fatalf("Enumerate returned error: %v", err)
	}
	if len(items) != 1 || filepath.Base(items[0].SourcePath) != "todo.nef" {
		t.Fatalf("unexpected items: %+v", items)
	}
}

func TestCollisionResolverIsStablePerSource(t *testing.T) {
	cr := discover.NewCollisionResolver()
	first := cr.Resolve("/in/a.nef", "/out/a.jpg")
	second := cr.Resolve("/in/a.dng", "/out/a.jpg")
	again := cr.Resolve("/in/a.nef", "/out/a.jpg")
	third := cr.Resolve("/in/a.cr2", "/out/a.jpg")

	if first != "/out/a.jpg" || again != first {
		t.Fatalf("owner path changed: %q then %q", first, again)
	}
	if second != "/out/a-dup1.jpg" || third != "/out/a-dup2.jpg" {
		t.Fatalf("unexpected dup paths: %q %q", second, third)
	}
}
