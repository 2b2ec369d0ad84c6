package secutil

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestClearBytes(t *testing.T) {
	b := []byte("hunter2")
	ClearBytes(b)
	for i, c := range b {
		if c != 0 {
			t.Fatalf("byte %d not cleared: %v", i, b)
		}
	}
}

func TestCheckOwnerOnly(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		mode os.FileMode
		ok   bool
	}{
		{"owner only", 0600, true},
		{"owner rw no exec", 0400, true},
		{"group readable", 0640, false},
		{"world readable", 0644, false},
		{"world writable", 0666, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, strings.ReplaceAll(tt.name, " ", "-"))
			if err := os.WriteFile(path, []byte("x"), tt.mode); err != nil {
				t.Fatal(err)
			}
			// WriteFile is umask-subject, force the exact mode.
			if err := os.Chmod(path, tt.mode); err != nil {
				t.Fatal(err)
			}

			err := CheckOwnerOnly(path, 0600)
			if tt.ok && err != nil {
				t.Errorf("mode %04o rejected: %v", tt.mode, err)
			}
			if !tt.ok {
				var perr *PermissionError
				if !errors.As(err, &perr) {
					t.Fatalf("mode %04o: err = %v, want PermissionError", tt.mode, err)
				}
				if !strings.Contains(perr.Error(), "chmod") {
					t.Errorf("error lacks the chmod hint: %v", perr)
				}
			}
		})
	}
}

func TestCheckOwnerOnlyMissingFile(t *testing.T) {
	if err := CheckOwnerOnly(filepath.Join(t.TempDir(), "absent"), 0600); err != nil {
		t.Errorf("missing file must pass: %v", err)
	}
}
