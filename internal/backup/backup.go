// Package backup snapshots local files before destructive writes.
package backup

import (
	"fmt"
	"os"
	"time"
)

// MaxNumbered caps the .N suffix search when several backups land in the
// same second.
const MaxNumbered = 100

// timestampLayout keeps backup names sortable.
const timestampLayout = "20060102-150405"

// Snapshot copies the file at path to <path>.bak-<timestamp> before an
// overwrite. The copy is fully written and synced before Snapshot returns;
// a failure here must abort the overwrite, never the other way around.
//
// Returns the backup path, or "" when there is nothing to back up.
func Snapshot(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("backup read %s: %w", path, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("backup stat %s: %w", path, err)
	}

	bakPath, err := nextBackupPath(path, time.Now())
	if err != nil {
		return "", err
	}

	f, err := os.OpenFile(bakPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return "", fmt.Errorf("backup create %s: %w", bakPath, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(bakPath)
		return "", fmt.Errorf("backup write %s: %w", bakPath, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(bakPath)
		return "", fmt.Errorf("backup sync %s: %w", bakPath, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("backup close %s: %w", bakPath, err)
	}
	return bakPath, nil
}

// nextBackupPath picks the first free timestamped name, numbering
// collisions within the same second.
func nextBackupPath(path string, now time.Time) (string, error) {
	base := fmt.Sprintf("%s.bak-%s", path, now.Format(timestampLayout))
	if _, err := os.Lstat(base); os.IsNotExist(err) {
		return base, nil
	}
	for i := 1; i < MaxNumbered; i++ {
		candidate := fmt.Sprintf("%s.%d", base, i)
		if _, err := os.Lstat(candidate); os.IsNotExist(err) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("too many backups for %s", path)
}
