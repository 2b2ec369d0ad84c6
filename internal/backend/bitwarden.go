package backend

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

const bwHint = "install the Bitwarden CLI: npm install -g @bitwarden/cli"

// bitwarden drives the bw CLI. Items are stored as secure notes (type 2)
// with the payload in the notes field.
type bitwarden struct {
	timeout  time.Duration
	prompt   PromptFunc
	password string
}

func newBitwarden(opts Options) *bitwarden {
	return &bitwarden{
		timeout:  opts.Timeout,
		prompt:   opts.Prompt,
		password: opts.Password,
	}
}

func (b *bitwarden) Name() string { return "bitwarden" }

func (b *bitwarden) Init(ctx context.Context) error {
	if err := lookTool("bw", bwHint); err != nil {
		return err
	}
	if _, err := runCmd(ctx, b.timeout, nil, nil, "bw", "--version"); err != nil {
		return &UnavailableError{Tool: "bw", Hint: bwHint, Err: err}
	}
	return nil
}

func (b *bitwarden) Authenticate(ctx context.Context, cachedToken string) (Session, error) {
	// A cached session token is verified before reuse so a stale token
	// never surfaces later as a confusing mid-batch failure.
	if cachedToken != "" {
		_, err := runCmd(ctx, b.timeout, nil, sessionEnv(cachedToken), "bw", "unlock", "--check")
		if err == nil {
			return Session{Token: cachedToken, Backend: b.Name()}, nil
		}
	}

	password := b.password
	if password == "" {
		if b.prompt == nil {
			return Session{}, &AuthError{Backend: b.Name(), Err: ErrNotLoggedIn}
		}
		pw, err := b.prompt("Bitwarden master password: ")
		if err != nil {
			return Session{}, &AuthError{Backend: b.Name(), Err: err}
		}
		password = string(pw)
	}

	out, err := runCmd(ctx, b.timeout, []byte(password), nil, "bw", "unlock", "--raw", "--passwordfile", "/dev/stdin")
	if err != nil {
		return Session{}, &AuthError{Backend: b.Name(), Err: err}
	}

	token := string(trimNewline(out))
	if token == "" {
		return Session{}, &AuthError{Backend: b.Name(), Err: fmt.Errorf("empty session token")}
	}
	return Session{Token: token, Backend: b.Name()}, nil
}

// bwItem is the subset of the bw JSON item format we care about.
type bwItem struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Type  int    `json:"type"`
	Notes string `json:"notes"`
	SecureNote struct {
		Type int `json:"type"`
	} `json:"secureNote"`
}

func (b *bitwarden) GetItem(ctx context.Context, name string, s Session) (*VaultItem, error) {
	out, err := runCmd(ctx, b.timeout, nil, sessionEnv(s.Token), "bw", "get", "item", name)
	if err != nil {
		if stderrContains(err, "not found") {
			return nil, nil
		}
		return nil, fmt.Errorf("bitwarden get %s: %w", name, err)
	}

	var item bwItem
	if err := json.Unmarshal(out, &item); err != nil {
		return nil, fmt.Errorf("bitwarden get %s: malformed item JSON: %w", name, err)
	}
	return &VaultItem{ID: item.ID, Name: item.Name, Type: item.Type, Notes: item.Notes}, nil
}

func (b *bitwarden) ListItems(ctx context.Context, s Session) ([]ItemSummary, error) {
	out, err := runCmd(ctx, b.timeout, nil, sessionEnv(s.Token), "bw", "list", "items")
	if err != nil {
		return nil, fmt.Errorf("bitwarden list: %w", err)
	}

	var items []bwItem
	if err := json.Unmarshal(out, &items); err != nil {
		return nil, fmt.Errorf("bitwarden list: malformed JSON: %w", err)
	}

	summaries := make([]ItemSummary, 0, len(items))
	for _, it := range items {
		summaries = append(summaries, ItemSummary{ID: it.ID, Name: it.Name})
	}
	return summaries, nil
}

func (b *bitwarden) CreateItem(ctx context.Context, name, content string, s Session) error {
	existing, err := b.GetItem(ctx, name, s)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, name)
	}

	// The payload goes to bw on stdin: it holds the secret content and
	// must never appear in the process argument list.
	payload, err := encodeBwItem(name, content)
	if err != nil {
		return fmt.Errorf("bitwarden create %s: %w", name, err)
	}
	if _, err := runCmd(ctx, b.timeout, []byte(payload), sessionEnv(s.Token), "bw", "create", "item"); err != nil {
		return fmt.Errorf("bitwarden create %s: %w", name, err)
	}
	return nil
}

func (b *bitwarden) UpdateItem(ctx context.Context, name, content string, s Session) error {
	existing, err := b.GetItem(ctx, name, s)
	if err != nil {
		return err
	}
	payload, err := encodeBwItem(name, content)
	if err != nil {
		return fmt.Errorf("bitwarden update %s: %w", name, err)
	}

	if existing == nil {
		// Update is an unconditional overwrite; creating the missing
		// item keeps it idempotent.
		if _, err := runCmd(ctx, b.timeout, []byte(payload), sessionEnv(s.Token), "bw", "create", "item"); err != nil {
			return fmt.Errorf("bitwarden update %s: %w", name, err)
		}
		return nil
	}

	if _, err := runCmd(ctx, b.timeout, []byte(payload), sessionEnv(s.Token), "bw", "edit", "item", existing.ID); err != nil {
		return fmt.Errorf("bitwarden update %s: %w", name, err)
	}
	return nil
}

func (b *bitwarden) DeleteItem(ctx context.Context, name string, s Session, confirmed bool) error {
	if err := checkDelete(name, confirmed); err != nil {
		return err
	}

	item, err := b.GetItem(ctx, name, s)
	if err != nil {
		return err
	}
	if item == nil {
		return nil
	}
	if _, err := runCmd(ctx, b.timeout, nil, sessionEnv(s.Token), "bw", "delete", "item", item.ID); err != nil {
		return fmt.Errorf("bitwarden delete %s: %w", name, err)
	}
	return nil
}

// sessionEnv carries the unlock token to bw via BW_SESSION so it never
// shows up in the process argument list.
func sessionEnv(token string) []string {
	if token == "" {
		return nil
	}
	return []string{"BW_SESSION=" + token}
}

// encodeBwItem builds the base64 JSON payload bw create/edit expect.
func encodeBwItem(name, content string) (string, error) {
	item := map[string]any{
		"type":       TypeSecureNote,
		"name":       name,
		"notes":      content,
		"secureNote": map[string]int{"type": 0},
	}
	data, err := json.Marshal(item)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func trimNewline(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}
