package registry

import (
	"errors"
	"strings"
	"testing"
)

const validSchema = `{
  "version": 3,
  "secrets": [
    {"name": "Git-Config", "path": "~/.gitconfig", "type": "file", "required": true, "sync": "always", "backup": true},
    {"name": "SSH-Main", "path": "~/.ssh/id_ed25519", "type": "ssh-key", "required": false, "sync": "manual", "backup": true},
    {"name": "AWS-Credentials", "path": "~/.aws/credentials", "type": "file", "required": false, "sync": "always", "backup": false}
  ]
}`

func TestParseValid(t *testing.T) {
	specs, err := Parse([]byte(validSchema))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(specs) != 3 {
		t.Fatalf("got %d specs, want 3", len(specs))
	}

	// Declaration order must be preserved.
	wantOrder := []string{"Git-Config", "SSH-Main", "AWS-Credentials"}
	for i, want := range wantOrder {
		if specs[i].Name != want {
			t.Errorf("specs[%d].Name = %q, want %q", i, specs[i].Name, want)
		}
	}

	if specs[0].LocalPath == specs[0].Path {
		t.Error("LocalPath was not home-expanded")
	}
	if strings.HasPrefix(specs[0].LocalPath, "~") {
		t.Errorf("LocalPath still contains ~: %s", specs[0].LocalPath)
	}
	if specs[1].Kind != KindSSHKey {
		t.Errorf("specs[1].Kind = %q, want %q", specs[1].Kind, KindSSHKey)
	}
	if specs[1].SyncMode != SyncManual {
		t.Errorf("specs[1].SyncMode = %q, want %q", specs[1].SyncMode, SyncManual)
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name   string
		schema string
	}{
		{"malformed JSON", `{"version": 3, "secrets": [`},
		{"unknown version", `{"version": 4, "secrets": [{"name": "A", "path": "~/.a", "type": "file"}]}`},
		{"missing version", `{"secrets": [{"name": "A", "path": "~/.a", "type": "file"}]}`},
		{"no secrets", `{"version": 3, "secrets": []}`},
		{"missing name", `{"version": 3, "secrets": [{"path": "~/.a", "type": "file"}]}`},
		{"missing path", `{"version": 3, "secrets": [{"name": "A", "type": "file"}]}`},
		{"bad kind", `{"version": 3, "secrets": [{"name": "A", "path": "~/.a", "type": "folder"}]}`},
		{"bad sync mode", `{"version": 3, "secrets": [{"name": "A", "path": "~/.a", "type": "file", "sync": "sometimes"}]}`},
		{"relative path", `{"version": 3, "secrets": [{"name": "A", "path": "a.txt", "type": "file"}]}`},
		{"slash in name", `{"version": 3, "secrets": [{"name": "a/b", "path": "~/.a", "type": "file"}]}`},
		{"unknown field", `{"version": 3, "junk": true, "secrets": [{"name": "A", "path": "~/.a", "type": "file"}]}`},
		{"duplicate name", `{"version": 3, "secrets": [
			{"name": "A", "path": "~/.a", "type": "file"},
			{"name": "A", "path": "~/.b", "type": "file"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.schema)); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestParseVersionError(t *testing.T) {
	_, err := Parse([]byte(`{"version": 99, "secrets": [{"name": "A", "path": "~/.a", "type": "file"}]}`))
	if !errors.Is(err, ErrSchemaVersion) {
		t.Errorf("got %v, want ErrSchemaVersion", err)
	}
}

func TestParseDefaultSyncMode(t *testing.T) {
	specs, err := Parse([]byte(`{"version": 3, "secrets": [{"name": "A", "path": "~/.a", "type": "file"}]}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if specs[0].SyncMode != SyncAlways {
		t.Errorf("default sync mode = %q, want %q", specs[0].SyncMode, SyncAlways)
	}
}

func TestSelect(t *testing.T) {
	specs, err := Parse([]byte(validSchema))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	// Unnamed selection excludes manual items.
	auto, err := Select(specs, nil)
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if len(auto) != 2 {
		t.Fatalf("got %d auto specs, want 2", len(auto))
	}
	for _, s := range auto {
		if s.SyncMode == SyncManual {
			t.Errorf("manual item %s selected without being named", s.Name)
		}
	}

	// Naming a manual item includes it.
	named, err := Select(specs, []string{"SSH-Main"})
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if len(named) != 1 || named[0].Name != "SSH-Main" {
		t.Errorf("named selection = %v", named)
	}

	// A typo is an error, never a silent no-op.
	if _, err := Select(specs, []string{"Nope"}); err == nil {
		t.Error("expected error for unknown name")
	}
}

func TestExpandHome(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"~", "/home/u"},
		{"~/.gitconfig", "/home/u/.gitconfig"},
		{"/etc/secret", "/etc/secret"},
	}
	for _, tt := range tests {
		if got := ExpandHome(tt.path, "/home/u"); got != tt.want {
			t.Errorf("ExpandHome(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
