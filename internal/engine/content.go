package engine

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/live-labs/secretsync/internal/drift"
	"github.com/live-labs/secretsync/internal/registry"
)

// File modes for restored secrets. Private material is owner-only; the
// public key line matches ssh-keygen's default.
const (
	modeSecret = 0600
	modePublic = 0644
)

// readLocal loads an item's local content in vault form. For key pairs
// that is the private key block followed by the public key line. A missing
// file yields nil content and the sentinel hash.
func readLocal(spec registry.SecretSpec) (content []byte, hash string, err error) {
	switch spec.Kind {
	case registry.KindSSHKey:
		private, err := os.ReadFile(spec.LocalPath)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, drift.SentinelMissing, nil
			}
			return nil, "", err
		}
		public, err := os.ReadFile(spec.LocalPath + ".pub")
		if err != nil {
			if os.IsNotExist(err) {
				return nil, "", fmt.Errorf("%s exists but %s.pub is missing", spec.LocalPath, spec.LocalPath)
			}
			return nil, "", err
		}
		bundle := []byte(registry.JoinKeyPair(private, public))
		return bundle, drift.HashContent(bundle), nil

	default:
		data, err := os.ReadFile(spec.LocalPath)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, drift.SentinelMissing, nil
			}
			return nil, "", err
		}
		return data, drift.HashContent(data), nil
	}
}

// writeLocal materializes vault content at the item's local path. Writes
// go through a temp file and rename so an interrupt never leaves a
// half-written secret.
func writeLocal(spec registry.SecretSpec, content string) error {
	switch spec.Kind {
	case registry.KindSSHKey:
		private, public, err := registry.SplitKeyBundle(content)
		if err != nil {
			return fmt.Errorf("vault item %s: %w", spec.Name, err)
		}
		if err := atomicWrite(spec.LocalPath, []byte(private), modeSecret); err != nil {
			return err
		}
		return atomicWrite(spec.LocalPath+".pub", []byte(public), modePublic)

	default:
		return atomicWrite(spec.LocalPath, []byte(content), modeSecret)
	}
}

func atomicWrite(path string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
