package backend

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

// cliCall records one intercepted subprocess invocation.
type cliCall struct {
	argv  []string
	stdin []byte
	env   []string
}

// interceptCLI replaces runCmd for the duration of one test. The stub
// answers bw get with "not found" and everything else with empty JSON.
func interceptCLI(t *testing.T) *[]cliCall {
	t.Helper()
	orig := runCmd
	t.Cleanup(func() { runCmd = orig })

	var calls []cliCall
	runCmd = func(ctx context.Context, timeout time.Duration, stdin []byte, extraEnv []string, tool string, args ...string) ([]byte, error) {
		calls = append(calls, cliCall{
			argv:  append([]string{tool}, args...),
			stdin: append([]byte(nil), stdin...),
			env:   extraEnv,
		})
		if len(args) > 0 && args[0] == "get" {
			return nil, &cmdError{tool: tool, args: args, stderr: "Not found.", err: errors.New("exit status 1")}
		}
		return []byte("{}"), nil
	}
	return &calls
}

func TestIsProtected(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"SSH-Main", true},
		{"AWS-Credentials", true},
		{"Git-Config", true},
		{"Shell-Profile", false},
		{"ssh-lowercase", false},
	}
	for _, tt := range tests {
		if got := IsProtected(tt.name); got != tt.want {
			t.Errorf("IsProtected(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestCheckDelete(t *testing.T) {
	if err := checkDelete("SSH-Main", false); !errors.Is(err, ErrProtectedItem) {
		t.Errorf("unconfirmed protected delete: got %v, want ErrProtectedItem", err)
	}
	if err := checkDelete("SSH-Main", true); err != nil {
		t.Errorf("confirmed protected delete: %v", err)
	}
	if err := checkDelete("Shell-Profile", false); err != nil {
		t.Errorf("unprotected delete: %v", err)
	}
}

func TestNewClosedRegistry(t *testing.T) {
	for _, kind := range Kinds() {
		ad, err := New(kind, Options{})
		if err != nil {
			t.Errorf("New(%q): %v", kind, err)
			continue
		}
		if ad.Name() != kind {
			t.Errorf("New(%q).Name() = %q", kind, ad.Name())
		}
	}

	if _, err := New("lastpass", Options{}); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("got %v, want ErrUnknownKind", err)
	}
}

func TestEncodeBwItem(t *testing.T) {
	payload, err := encodeBwItem("Git-Config", "name=A")
	if err != nil {
		t.Fatalf("encodeBwItem: %v", err)
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		t.Fatalf("payload is not base64: %v", err)
	}

	var item bwItem
	if err := json.Unmarshal(raw, &item); err != nil {
		t.Fatalf("payload is not item JSON: %v", err)
	}
	if item.Name != "Git-Config" || item.Notes != "name=A" || item.Type != TypeSecureNote {
		t.Errorf("decoded item = %+v", item)
	}
}

// Secret payloads and session tokens must stay out of the process
// argument list: argv is world-readable through /proc.
func TestBitwardenKeepsSecretsOffArgv(t *testing.T) {
	ctx := context.Background()
	calls := interceptCLI(t)

	b := newBitwarden(Options{Timeout: time.Second})
	sess := Session{Token: "tok-123", Backend: "bitwarden"}
	if err := b.CreateItem(ctx, "Git-Config", "name=secret", sess); err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if err := b.UpdateItem(ctx, "Git-Config", "name=other", sess); err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}

	if len(*calls) == 0 {
		t.Fatal("no subprocess calls recorded")
	}
	for _, c := range *calls {
		for _, a := range c.argv {
			if strings.Contains(a, "tok-123") {
				t.Errorf("session token in argv: %v", c.argv)
			}
			if strings.Contains(a, "secret") || strings.Contains(a, "other") {
				t.Errorf("item content in argv: %v", c.argv)
			}
			if a == "--session" {
				t.Errorf("--session flag used instead of BW_SESSION: %v", c.argv)
			}
		}
		if !hasEnv(c.env, "BW_SESSION=tok-123") {
			t.Errorf("call %v missing BW_SESSION in env: %v", c.argv, c.env)
		}
	}

	// The create call carries the encoded item on stdin.
	created := (*calls)[1]
	if created.argv[1] != "create" {
		t.Fatalf("second call = %v, want bw create item", created.argv)
	}
	want, err := encodeBwItem("Git-Config", "name=secret")
	if err != nil {
		t.Fatal(err)
	}
	if string(created.stdin) != want {
		t.Errorf("create stdin = %q, want the encoded item", created.stdin)
	}
	// Base64 still hides nothing; the argv check above must hold for the
	// encoded form too.
	for _, c := range *calls {
		for _, a := range c.argv {
			if a == want {
				t.Errorf("encoded payload in argv: %v", c.argv)
			}
		}
	}
}

func hasEnv(env []string, kv string) bool {
	for _, e := range env {
		if e == kv {
			return true
		}
	}
	return false
}

func TestMemoryCreateIsNotIdempotent(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	s := Session{Token: "t", Backend: "memory"}

	if err := m.CreateItem(ctx, "A", "v1", s); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if err := m.CreateItem(ctx, "A", "v2", s); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("duplicate create: got %v, want ErrAlreadyExists", err)
	}

	// Update overwrites unconditionally.
	if err := m.UpdateItem(ctx, "A", "v3", s); err != nil {
		t.Fatalf("update: %v", err)
	}
	item, err := m.GetItem(ctx, "A", s)
	if err != nil || item == nil {
		t.Fatalf("get: %v, %v", item, err)
	}
	if item.Notes != "v3" {
		t.Errorf("item content = %q, want v3", item.Notes)
	}
}

func TestMemoryGetAbsent(t *testing.T) {
	m := NewMemory()
	item, err := m.GetItem(context.Background(), "nope", Session{})
	if err != nil {
		t.Fatalf("absence must not be an error: %v", err)
	}
	if item != nil {
		t.Errorf("got %+v for absent item", item)
	}
}

func TestStderrContains(t *testing.T) {
	err := &cmdError{tool: "bw", args: []string{"get"}, stderr: "Not found.\n", err: errors.New("exit status 1")}
	if !stderrContains(err, "not found") {
		t.Error("case-insensitive stderr match failed")
	}
	if stderrContains(errors.New("plain"), "not found") {
		t.Error("matched a non-cmdError")
	}
}
