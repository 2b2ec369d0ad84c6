package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

const opHint = "install the 1Password CLI: https://developer.1password.com/docs/cli/get-started"

// onePassword drives the op CLI (v2). Items are stored in the Secure Note
// category with the payload in the notesPlain field.
type onePassword struct {
	timeout  time.Duration
	prompt   PromptFunc
	password string
}

func newOnePassword(opts Options) *onePassword {
	return &onePassword{
		timeout:  opts.Timeout,
		prompt:   opts.Prompt,
		password: opts.Password,
	}
}

func (o *onePassword) Name() string { return "1password" }

func (o *onePassword) Init(ctx context.Context) error {
	if err := lookTool("op", opHint); err != nil {
		return err
	}
	if _, err := runCmd(ctx, o.timeout, nil, nil, "op", "--version"); err != nil {
		return &UnavailableError{Tool: "op", Hint: opHint, Err: err}
	}
	return nil
}

func (o *onePassword) Authenticate(ctx context.Context, cachedToken string) (Session, error) {
	if cachedToken != "" {
		_, err := runCmd(ctx, o.timeout, nil, nil, "op", "whoami", "--session", cachedToken)
		if err == nil {
			return Session{Token: cachedToken, Backend: o.Name()}, nil
		}
	}

	password := o.password
	if password == "" {
		if o.prompt == nil {
			return Session{}, &AuthError{Backend: o.Name(), Err: ErrNotLoggedIn}
		}
		pw, err := o.prompt("1Password master password: ")
		if err != nil {
			return Session{}, &AuthError{Backend: o.Name(), Err: err}
		}
		password = string(pw)
	}

	out, err := runCmd(ctx, o.timeout, []byte(password+"\n"), nil, "op", "signin", "--raw")
	if err != nil {
		return Session{}, &AuthError{Backend: o.Name(), Err: err}
	}

	token := string(trimNewline(out))
	if token == "" {
		return Session{}, &AuthError{Backend: o.Name(), Err: fmt.Errorf("empty session token")}
	}
	// op session tokens expire after 30 minutes of inactivity.
	return Session{Token: token, Backend: o.Name(), Expiry: time.Now().Add(30 * time.Minute)}, nil
}

// opItem is the subset of the op v2 item JSON we care about.
type opItem struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Fields []struct {
		ID      string `json:"id"`
		Purpose string `json:"purpose"`
		Value   string `json:"value"`
	} `json:"fields"`
}

func (it *opItem) notes() string {
	for _, f := range it.Fields {
		if f.Purpose == "NOTES" || f.ID == "notesPlain" {
			return f.Value
		}
	}
	return ""
}

func (o *onePassword) GetItem(ctx context.Context, name string, s Session) (*VaultItem, error) {
	out, err := runCmd(ctx, o.timeout, nil, nil, "op", "item", "get", name, "--format", "json", "--session", s.Token)
	if err != nil {
		if stderrContains(err, "isn't an item") {
			return nil, nil
		}
		return nil, fmt.Errorf("1password get %s: %w", name, err)
	}

	var item opItem
	if err := json.Unmarshal(out, &item); err != nil {
		return nil, fmt.Errorf("1password get %s: malformed item JSON: %w", name, err)
	}
	return &VaultItem{ID: item.ID, Name: item.Title, Type: TypeSecureNote, Notes: item.notes()}, nil
}

func (o *onePassword) ListItems(ctx context.Context, s Session) ([]ItemSummary, error) {
	out, err := runCmd(ctx, o.timeout, nil, nil, "op", "item", "list", "--categories", "Secure Note", "--format", "json", "--session", s.Token)
	if err != nil {
		return nil, fmt.Errorf("1password list: %w", err)
	}

	var items []opItem
	if err := json.Unmarshal(out, &items); err != nil {
		return nil, fmt.Errorf("1password list: malformed JSON: %w", err)
	}

	summaries := make([]ItemSummary, 0, len(items))
	for _, it := range items {
		summaries = append(summaries, ItemSummary{ID: it.ID, Name: it.Title})
	}
	return summaries, nil
}

func (o *onePassword) CreateItem(ctx context.Context, name, content string, s Session) error {
	existing, err := o.GetItem(ctx, name, s)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, name)
	}

	// The payload goes through a template on stdin so the secret never
	// appears in the process argument list.
	tmpl, err := json.Marshal(map[string]any{
		"title":    name,
		"category": "SECURE_NOTE",
		"fields": []map[string]string{
			{"id": "notesPlain", "type": "STRING", "purpose": "NOTES", "value": content},
		},
	})
	if err != nil {
		return fmt.Errorf("1password create %s: %w", name, err)
	}
	if _, err := runCmd(ctx, o.timeout, tmpl, nil, "op", "item", "create", "--template", "-", "--session", s.Token); err != nil {
		return fmt.Errorf("1password create %s: %w", name, err)
	}
	return nil
}

func (o *onePassword) UpdateItem(ctx context.Context, name, content string, s Session) error {
	existing, err := o.GetItem(ctx, name, s)
	if err != nil {
		return err
	}
	if existing == nil {
		tmpl, err := json.Marshal(map[string]any{
			"title":    name,
			"category": "SECURE_NOTE",
			"fields": []map[string]string{
				{"id": "notesPlain", "type": "STRING", "purpose": "NOTES", "value": content},
			},
		})
		if err != nil {
			return fmt.Errorf("1password update %s: %w", name, err)
		}
		if _, err := runCmd(ctx, o.timeout, tmpl, nil, "op", "item", "create", "--template", "-", "--session", s.Token); err != nil {
			return fmt.Errorf("1password update %s: %w", name, err)
		}
		return nil
	}

	if _, err := runCmd(ctx, o.timeout, []byte(content), nil, "op", "item", "edit", existing.ID, "notesPlain[text]=-", "--session", s.Token); err != nil {
		return fmt.Errorf("1password update %s: %w", name, err)
	}
	return nil
}

func (o *onePassword) DeleteItem(ctx context.Context, name string, s Session, confirmed bool) error {
	if err := checkDelete(name, confirmed); err != nil {
		return err
	}

	item, err := o.GetItem(ctx, name, s)
	if err != nil {
		return err
	}
	if item == nil {
		return nil
	}
	if _, err := runCmd(ctx, o.timeout, nil, nil, "op", "item", "delete", item.ID, "--session", s.Token); err != nil {
		return fmt.Errorf("1password delete %s: %w", name, err)
	}
	return nil
}
