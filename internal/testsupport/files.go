package testsupport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// WriteFile writes contents to path, creating parent directories.
func WriteFile(t testing.TB, path, contents string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteCSV writes the given lines as a CSV file under dir and returns its path.
func WriteCSV(t testing.TB, dir string, lines ...string) string {
	t.Helper()

	path := filepath.Join(dir, "games.csv")
	WriteFile(t, path, strings.Join(lines, "\n")+"\n")
	return path
}
