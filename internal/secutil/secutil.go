// Package secutil holds small secret-hygiene helpers shared across the
// session cache and the engine.
package secutil

import (
	"fmt"
	"io/fs"
	"os"
)

// ClearBytes overwrites sensitive data in memory.
func ClearBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// PermissionError reports a file whose mode is wider than secrets allow.
type PermissionError struct {
	Path     string
	Mode     fs.FileMode
	Expected fs.FileMode
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("%s has mode %04o, expected at most %04o (fix: chmod %o %s)",
		e.Path, e.Mode.Perm(), e.Expected.Perm(), e.Expected.Perm(), e.Path)
}

// CheckOwnerOnly verifies a file is not readable or writable by group or
// other. Missing files pass; only present-but-exposed files are an error.
func CheckOwnerOnly(path string, expected fs.FileMode) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.Mode().Perm()&0077 != 0 {
		return &PermissionError{Path: path, Mode: info.Mode(), Expected: expected}
	}
	return nil
}
