package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// TypeSecureNote is the item type tag carried for backend-format
// compatibility. It matches the Bitwarden secure-note type and is used
// as the canonical tag for all providers.
const TypeSecureNote = 2

var (
	ErrAlreadyExists = errors.New("item already exists")
	ErrNotLoggedIn   = errors.New("not logged in")
	ErrProtectedItem = errors.New("item is protected, deletion requires confirmation")
	ErrUnknownKind   = errors.New("unknown backend kind")
)

// UnavailableError indicates the provider's CLI is missing or unreachable.
// Hint carries an actionable install instruction for the user.
type UnavailableError struct {
	Tool string
	Hint string
	Err  error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("backend tool %q unavailable: %v (%s)", e.Tool, e.Err, e.Hint)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// AuthError indicates authentication against the provider failed.
// It is recoverable once per run via re-authentication.
type AuthError struct {
	Backend string
	Err     error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s authentication failed: %v", e.Backend, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// Session is a short-lived authenticated handle to a backend. It is owned
// by the session cache; adapters receive it by value per operation.
type Session struct {
	Token   string
	Backend string
	Expiry  time.Time
}

// VaultItem is the backend-side representation of one secret. Notes carries
// the opaque text payload: a file body, or for SSH pairs the private key
// block immediately followed by the public key line.
type VaultItem struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Type  int    `json:"type"`
	Notes string `json:"notes"`
}

// ItemSummary is the listing view of a vault item, without content.
type ItemSummary struct {
	ID   string
	Name string
}

// Adapter is the uniform capability contract every provider satisfies.
//
// GetItem returns (nil, nil) when the item is absent; absence is not an
// error. CreateItem fails with ErrAlreadyExists when the name is present,
// while UpdateItem overwrites unconditionally. The asymmetry is deliberate:
// it guards against accidental duplicate pushes.
type Adapter interface {
	// Name returns the backend kind ("bitwarden", "1password", "pass").
	Name() string

	// Init verifies the provider CLI is reachable and minimally
	// configured. It fails fast with an actionable error and never
	// partially succeeds.
	Init(ctx context.Context) error

	// Authenticate reuses a still-valid cached token when present,
	// otherwise performs interactive or environment-driven auth.
	// The token must never be logged.
	Authenticate(ctx context.Context, cachedToken string) (Session, error)

	GetItem(ctx context.Context, name string, s Session) (*VaultItem, error)
	ListItems(ctx context.Context, s Session) ([]ItemSummary, error)
	CreateItem(ctx context.Context, name, content string, s Session) error
	UpdateItem(ctx context.Context, name, content string, s Session) error

	// DeleteItem removes an item. Names matching a protected prefix
	// (SSH keys, cloud credentials, primary git identity) are refused
	// unless confirmed is true. The adapter enforces this, not the CLI
	// layer.
	DeleteItem(ctx context.Context, name string, s Session, confirmed bool) error
}

// PromptFunc reads a credential from the user without echoing it.
type PromptFunc func(prompt string) ([]byte, error)

// Options configures adapter construction. Password, when non-empty, is an
// environment-supplied master password that skips the interactive prompt.
type Options struct {
	Timeout      time.Duration
	Prompt       PromptFunc
	Password     string
	PassStoreDir string
}

// New selects a concrete adapter by kind. The provider set is closed and
// known at build time.
func New(kind string, opts Options) (Adapter, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	switch kind {
	case "bitwarden":
		return newBitwarden(opts), nil
	case "1password":
		return newOnePassword(opts), nil
	case "pass":
		return newPassStore(opts), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// Kinds returns the supported backend kinds in stable order.
func Kinds() []string {
	return []string{"bitwarden", "1password", "pass"}
}

// protectedPrefixes guards high-value items against accidental deletion.
var protectedPrefixes = []string{"SSH-", "AWS-", "Git-"}

// IsProtected reports whether an item name falls in the protected class.
func IsProtected(name string) bool {
	for _, p := range protectedPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// checkDelete applies the protected-prefix guard shared by all adapters.
func checkDelete(name string, confirmed bool) error {
	if IsProtected(name) && !confirmed {
		return fmt.Errorf("%w: %s", ErrProtectedItem, name)
	}
	return nil
}
