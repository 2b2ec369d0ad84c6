// Package session obtains, caches, and invalidates backend authentication
// tokens.
//
// The cache prefers the OS keyring; on headless machines without one it
// falls back to an owner-only file under the cache directory. Tokens are
// reused across all items in one run and never logged.
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"github.com/zalando/go-keyring"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/live-labs/secretsync/internal/backend"
	"github.com/live-labs/secretsync/internal/secutil"
)

const keyringService = "secretsync"

// State tracks the cache lifecycle: Uninitialized -> Authenticating ->
// Valid -> Expired/Invalidated.
type State int

const (
	Uninitialized State = iota
	Authenticating
	Valid
	Invalidated
)

var ErrAuthExhausted = errors.New("authentication failed twice, giving up for this run")

// Cache owns the Session for one run. Other components receive the
// session by value per operation and never persist it.
type Cache struct {
	backendKind string
	cacheDir    string
	log         *zap.Logger

	state    State
	sess     backend.Session
	reauthed bool
}

// New creates a cache for the given backend kind. cacheDir hosts the file
// fallback when no OS keyring is available.
func New(backendKind, cacheDir string, log *zap.Logger) *Cache {
	if log == nil {
		log = zap.NewNop()
	}
	return &Cache{backendKind: backendKind, cacheDir: cacheDir, log: log}
}

// State reports the current lifecycle state.
func (c *Cache) State() State { return c.state }

// Session returns a valid session, authenticating at most twice: once with
// the cached token, and on failure once more from scratch. A second
// failure is fatal for the run.
func (c *Cache) Session(ctx context.Context, ad backend.Adapter) (backend.Session, error) {
	if c.state == Valid {
		return c.sess, nil
	}

	c.state = Authenticating
	cached := c.loadToken()

	sess, err := ad.Authenticate(ctx, cached)
	if err != nil {
		var authErr *backend.AuthError
		if !errors.As(err, &authErr) {
			return backend.Session{}, err
		}

		// Expired or bad token: drop the cache and try exactly once
		// from scratch.
		c.log.Debug("cached session rejected, re-authenticating",
			zap.String("backend", c.backendKind))
		if err := c.Invalidate(); err != nil {
			c.log.Warn("failed to drop session cache", zap.Error(err))
		}
		if c.reauthed {
			return backend.Session{}, fmt.Errorf("%w: %v", ErrAuthExhausted, err)
		}
		c.reauthed = true

		sess, err = ad.Authenticate(ctx, "")
		if err != nil {
			c.state = Invalidated
			return backend.Session{}, fmt.Errorf("%w: %v", ErrAuthExhausted, err)
		}
	}

	c.state = Valid
	c.sess = sess
	c.storeToken(sess.Token)
	return sess, nil
}

// Invalidate drops any cached token. Called on explicit logout, backend
// switch, or authentication failure.
func (c *Cache) Invalidate() error {
	c.state = Invalidated
	c.sess = backend.Session{}

	kerr := keyring.Delete(keyringService, c.backendKind)
	if errors.Is(kerr, keyring.ErrNotFound) {
		kerr = nil
	}
	ferr := os.Remove(c.tokenPath())
	if os.IsNotExist(ferr) {
		ferr = nil
	}
	if kerr != nil {
		return kerr
	}
	return ferr
}

func (c *Cache) tokenPath() string {
	return filepath.Join(c.cacheDir, "session-"+c.backendKind)
}

// loadToken reads a previously cached token, keyring first, then the file
// fallback. A too-permissive cache file is refused outright.
func (c *Cache) loadToken() string {
	if tok, err := keyring.Get(keyringService, c.backendKind); err == nil {
		return tok
	}

	path := c.tokenPath()
	if err := secutil.CheckOwnerOnly(path, 0600); err != nil {
		c.log.Warn("refusing session cache file", zap.Error(err))
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	tok := string(data)
	secutil.ClearBytes(data)
	return tok
}

// storeToken persists the token for the next run. Keyring failures fall
// back to an owner-only file; a failure to persist is not fatal, the run
// already holds a live session.
func (c *Cache) storeToken(token string) {
	if token == "" {
		return
	}
	if err := keyring.Set(keyringService, c.backendKind, token); err == nil {
		return
	}

	if err := os.MkdirAll(c.cacheDir, 0700); err != nil {
		c.log.Warn("cannot create session cache dir", zap.Error(err))
		return
	}
	if err := os.WriteFile(c.tokenPath(), []byte(token), 0600); err != nil {
		c.log.Warn("cannot write session cache file", zap.Error(err))
	}
}

// ReadPassword prompts for a credential without echoing it.
func ReadPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	return password, nil
}
