package session

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/zalando/go-keyring"

	"github.com/live-labs/secretsync/internal/backend"
)

// The real OS keyring must never see test tokens.
func TestMain(m *testing.M) {
	keyring.MockInit()
	os.Exit(m.Run())
}

func TestSessionSuccess(t *testing.T) {
	ctx := context.Background()
	mem := backend.NewMemory()
	c := New("memory", t.TempDir(), nil)

	sess, err := c.Session(ctx, mem)
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	if sess.Token == "" {
		t.Error("empty token")
	}
	if c.State() != Valid {
		t.Errorf("state = %v, want Valid", c.State())
	}

	// A second call reuses the live session without touching the backend.
	before := mem.AuthCalls
	if _, err := c.Session(ctx, mem); err != nil {
		t.Fatalf("second Session: %v", err)
	}
	if mem.AuthCalls != before {
		t.Errorf("second Session re-authenticated: %d calls", mem.AuthCalls)
	}
}

func TestSessionReauthExactlyOnce(t *testing.T) {
	ctx := context.Background()
	mem := backend.NewMemory()
	mem.AuthErr = &backend.AuthError{Backend: "memory", Err: errors.New("vault is locked")}
	c := New("memory", t.TempDir(), nil)

	_, err := c.Session(ctx, mem)
	if !errors.Is(err, ErrAuthExhausted) {
		t.Fatalf("err = %v, want ErrAuthExhausted", err)
	}
	if mem.AuthCalls != 2 {
		t.Errorf("AuthCalls = %d, want exactly 2", mem.AuthCalls)
	}
	if c.State() != Invalidated {
		t.Errorf("state = %v, want Invalidated", c.State())
	}
}

func TestSessionNonAuthErrorIsNotRetried(t *testing.T) {
	ctx := context.Background()
	mem := backend.NewMemory()
	mem.AuthErr = errors.New("bw: command not found")
	c := New("memory", t.TempDir(), nil)

	_, err := c.Session(ctx, mem)
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, ErrAuthExhausted) {
		t.Errorf("transport error misreported as auth exhaustion: %v", err)
	}
	if mem.AuthCalls != 1 {
		t.Errorf("AuthCalls = %d, want 1", mem.AuthCalls)
	}
}

func TestTokenSurvivesAcrossCaches(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	mem := backend.NewMemory()

	first := New("memory", dir, nil)
	if _, err := first.Session(ctx, mem); err != nil {
		t.Fatalf("first Session: %v", err)
	}

	second := New("memory", dir, nil)
	sess, err := second.Session(ctx, mem)
	if err != nil {
		t.Fatalf("second Session: %v", err)
	}
	if sess.Token != "memory-session" {
		t.Errorf("token = %q, want the cached one", sess.Token)
	}

	if err := second.Invalidate(); err != nil {
		t.Logf("Invalidate: %v", err)
	}
	if second.State() != Invalidated {
		t.Errorf("state = %v, want Invalidated", second.State())
	}
}
