// Package registry loads and validates the declarative secret schema.
//
// The schema is a JSON document listing every tracked secret: its vault
// name, local path, kind, and sync/backup flags. Parsing preserves
// insertion order so dry-run output and tests are reproducible.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SchemaVersion is the only schema version this build understands.
// An unknown version is a hard validation failure, never silently ignored.
const SchemaVersion = 3

// Secret kinds.
const (
	KindFile   = "file"
	KindSSHKey = "ssh-key"
)

// Sync modes. Manual items are excluded from automatic bidirectional sync
// unless explicitly named.
const (
	SyncAlways = "always"
	SyncManual = "manual"
)

var (
	ErrSchemaVersion = errors.New("unsupported schema version")
	ErrEmptySchema   = errors.New("schema declares no secrets")
)

// SecretSpec is one declared secret. Immutable during a run.
type SecretSpec struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Kind     string `json:"type"`
	Required bool   `json:"required"`
	SyncMode string `json:"sync"`
	Backup   bool   `json:"backup"`

	// LocalPath is Path with the home directory expanded. Set by Load.
	LocalPath string `json:"-"`
}

// schema is the on-disk document shape.
type schema struct {
	Version int          `json:"version"`
	Secrets []SecretSpec `json:"secrets"`
}

// Load reads and validates the schema file, returning specs in declaration
// order. All validation failures are ConfigError-class: they abort the run
// before any backend call.
func Load(path string) ([]SecretSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema %s: %w", path, err)
	}
	return Parse(data)
}

// Parse validates raw schema bytes. Split from Load for tests.
func Parse(data []byte) ([]SecretSpec, error) {
	var doc schema
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("malformed schema JSON: %w", err)
	}

	if doc.Version != SchemaVersion {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrSchemaVersion, doc.Version, SchemaVersion)
	}
	if len(doc.Secrets) == 0 {
		return nil, ErrEmptySchema
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("cannot resolve home directory: %w", err)
	}

	seen := make(map[string]bool, len(doc.Secrets))
	for i := range doc.Secrets {
		s := &doc.Secrets[i]
		if err := validateSpec(s); err != nil {
			return nil, fmt.Errorf("secret %d (%q): %w", i, s.Name, err)
		}
		if seen[s.Name] {
			return nil, fmt.Errorf("duplicate secret name %q", s.Name)
		}
		seen[s.Name] = true
		s.LocalPath = ExpandHome(s.Path, home)
	}

	return doc.Secrets, nil
}

func validateSpec(s *SecretSpec) error {
	if s.Name == "" {
		return errors.New("missing name")
	}
	if s.Path == "" {
		return errors.New("missing path")
	}
	if strings.ContainsRune(s.Name, '/') {
		return fmt.Errorf("name %q must not contain '/'", s.Name)
	}
	switch s.Kind {
	case KindFile, KindSSHKey:
	case "":
		return errors.New("missing type")
	default:
		return fmt.Errorf("unknown type %q (want %q or %q)", s.Kind, KindFile, KindSSHKey)
	}
	switch s.SyncMode {
	case SyncAlways, SyncManual:
	case "":
		s.SyncMode = SyncAlways
	default:
		return fmt.Errorf("unknown sync mode %q (want %q or %q)", s.SyncMode, SyncAlways, SyncManual)
	}
	if !filepath.IsAbs(s.Path) && !strings.HasPrefix(s.Path, "~") {
		return fmt.Errorf("path %q must be absolute or start with ~", s.Path)
	}
	return nil
}

// ExpandHome rewrites a leading ~ to the user's home directory.
func ExpandHome(path, home string) string {
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}

// Select filters specs for a run. With no names, every spec with
// sync=always is returned. Named selection includes manual items and fails
// on unknown names so a typo never turns into a silent no-op.
func Select(specs []SecretSpec, names []string) ([]SecretSpec, error) {
	if len(names) == 0 {
		var out []SecretSpec
		for _, s := range specs {
			if s.SyncMode == SyncAlways {
				out = append(out, s)
			}
		}
		return out, nil
	}

	byName := make(map[string]SecretSpec, len(specs))
	for _, s := range specs {
		byName[s.Name] = s
	}

	out := make([]SecretSpec, 0, len(names))
	for _, n := range names {
		s, ok := byName[n]
		if !ok {
			return nil, fmt.Errorf("unknown secret %q", n)
		}
		out = append(out, s)
	}
	return out, nil
}
