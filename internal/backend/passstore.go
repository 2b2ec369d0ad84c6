package backend

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const passHint = "install pass: https://www.passwordstore.org"

// passPrefix namespaces our entries inside the password store.
const passPrefix = "secretsync"

// passStore drives the standard unix password store. There is no session
// concept: gpg-agent holds the decryption key, so Authenticate returns a
// trivial session immediately.
type passStore struct {
	timeout  time.Duration
	storeDir string
}

func newPassStore(opts Options) *passStore {
	return &passStore{
		timeout:  opts.Timeout,
		storeDir: opts.PassStoreDir,
	}
}

func (p *passStore) Name() string { return "pass" }

func (p *passStore) Init(ctx context.Context) error {
	if err := lookTool("pass", passHint); err != nil {
		return err
	}
	if _, err := os.Stat(p.storeDir); err != nil {
		return &UnavailableError{
			Tool: "pass",
			Hint: "initialize the store first: pass init <gpg-id>",
			Err:  fmt.Errorf("password store at %s: %w", p.storeDir, err),
		}
	}
	return nil
}

func (p *passStore) Authenticate(ctx context.Context, cachedToken string) (Session, error) {
	return Session{Backend: p.Name()}, nil
}

func (p *passStore) GetItem(ctx context.Context, name string, s Session) (*VaultItem, error) {
	out, err := runCmd(ctx, p.timeout, nil, nil, "pass", "show", passPrefix+"/"+name)
	if err != nil {
		if stderrContains(err, "is not in the password store") {
			return nil, nil
		}
		return nil, fmt.Errorf("pass get %s: %w", name, err)
	}
	return &VaultItem{ID: name, Name: name, Type: TypeSecureNote, Notes: string(out)}, nil
}

func (p *passStore) ListItems(ctx context.Context, s Session) ([]ItemSummary, error) {
	// Reading the store directory avoids parsing the tree glyphs that
	// pass ls prints.
	dir := filepath.Join(p.storeDir, passPrefix)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("pass list: %w", err)
	}

	var summaries []ItemSummary
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".gpg") {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ".gpg")
		summaries = append(summaries, ItemSummary{ID: name, Name: name})
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Name < summaries[j].Name })
	return summaries, nil
}

func (p *passStore) CreateItem(ctx context.Context, name, content string, s Session) error {
	existing, err := p.GetItem(ctx, name, s)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, name)
	}
	if _, err := runCmd(ctx, p.timeout, []byte(content), nil, "pass", "insert", "-m", passPrefix+"/"+name); err != nil {
		return fmt.Errorf("pass create %s: %w", name, err)
	}
	return nil
}

func (p *passStore) UpdateItem(ctx context.Context, name, content string, s Session) error {
	if _, err := runCmd(ctx, p.timeout, []byte(content), nil, "pass", "insert", "-m", "-f", passPrefix+"/"+name); err != nil {
		return fmt.Errorf("pass update %s: %w", name, err)
	}
	return nil
}

func (p *passStore) DeleteItem(ctx context.Context, name string, s Session, confirmed bool) error {
	if err := checkDelete(name, confirmed); err != nil {
		return err
	}
	if _, err := runCmd(ctx, p.timeout, nil, nil, "pass", "rm", "-f", passPrefix+"/"+name); err != nil {
		if stderrContains(err, "is not in the password store") {
			return nil
		}
		return fmt.Errorf("pass delete %s: %w", name, err)
	}
	return nil
}
