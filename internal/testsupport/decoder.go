package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

const stubDecoderScript = `#!/bin/sh
for last; do :; done
cat "$last"
`

const failingDecoderScript = `#!/bin/sh
echo "cannot decode $1" >&2
exit 1
`

// WriteStubDecoder writes a dcraw stand-in into dir that copies its last
// argument to stdout, and returns its path.
func WriteStubDecoder(t testing.TB, dir string) string {
	t.Helper()
	return writeScript(t, filepath.Join(dir, "dcraw-stub"), stubDecoderScript)
}

// WriteFailingDecoder writes a decoder stand-in that always exits non-zero.
func WriteFailingDecoder(t testing.TB, dir string) string {
	t.Helper()
	return writeScript(t, filepath.Join(dir, "dcraw-fail"), failingDecoderScript)
}

func writeScript(t testing.TB, path, body string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
		t.Fatalf("write script %s: %v", path, err)
	}
	return path
}
