package backup

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSnapshotMissingFile(t *testing.T) {
	dir := t.TempDir()
	bak, err := Snapshot(filepath.Join(dir, "nope"))
	if err != nil {
		t.Fatalf("Snapshot on missing file: %v", err)
	}
	if bak != "" {
		t.Errorf("got backup path %q for missing file, want empty", bak)
	}
}

func TestSnapshotCopiesContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".gitconfig")
	if err := os.WriteFile(path, []byte("name=A"), 0600); err != nil {
		t.Fatal(err)
	}

	bak, err := Snapshot(path)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if !strings.HasPrefix(bak, path+".bak-") {
		t.Errorf("backup path %q does not match <original>.bak-<timestamp>", bak)
	}

	data, err := os.ReadFile(bak)
	if err != nil {
		t.Fatalf("read backup: %v", err)
	}
	if string(data) != "name=A" {
		t.Errorf("backup content = %q, want %q", data, "name=A")
	}

	info, err := os.Stat(bak)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("backup mode = %04o, want 0600", info.Mode().Perm())
	}
}

func TestSnapshotCollision(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "secret")
	if err := os.WriteFile(path, []byte("v1"), 0600); err != nil {
		t.Fatal(err)
	}

	first, err := Snapshot(path)
	if err != nil {
		t.Fatalf("first Snapshot: %v", err)
	}
	second, err := Snapshot(path)
	if err != nil {
		t.Fatalf("second Snapshot: %v", err)
	}
	if first == second {
		t.Errorf("two snapshots landed on the same path %q", first)
	}

	// Each overwrite produces exactly one new backup file.
	matches, err := filepath.Glob(path + ".bak-*")
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 2 {
		t.Errorf("got %d backup files, want 2: %v", len(matches), matches)
	}
}
