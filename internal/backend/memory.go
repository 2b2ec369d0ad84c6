package backend

import (
	"context"
	"fmt"
	"sort"
)

// Memory is an in-process adapter used by tests. It counts every call so
// tests can assert that offline mode performs zero backend calls.
type Memory struct {
	Items map[string]*VaultItem

	Calls     int
	AuthCalls int
	InitErr   error
	AuthErr   error
	GetErr    error
	WriteErr  error

	nextID int
}

// NewMemory returns an empty in-memory adapter.
func NewMemory() *Memory {
	return &Memory{Items: make(map[string]*VaultItem)}
}

func (m *Memory) Name() string { return "memory" }

func (m *Memory) Init(ctx context.Context) error {
	m.Calls++
	return m.InitErr
}

func (m *Memory) Authenticate(ctx context.Context, cachedToken string) (Session, error) {
	m.Calls++
	m.AuthCalls++
	if m.AuthErr != nil {
		return Session{}, m.AuthErr
	}
	if cachedToken != "" {
		return Session{Token: cachedToken, Backend: m.Name()}, nil
	}
	return Session{Token: "memory-session", Backend: m.Name()}, nil
}

func (m *Memory) GetItem(ctx context.Context, name string, s Session) (*VaultItem, error) {
	m.Calls++
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	item, ok := m.Items[name]
	if !ok {
		return nil, nil
	}
	cp := *item
	return &cp, nil
}

func (m *Memory) ListItems(ctx context.Context, s Session) ([]ItemSummary, error) {
	m.Calls++
	var summaries []ItemSummary
	for _, it := range m.Items {
		summaries = append(summaries, ItemSummary{ID: it.ID, Name: it.Name})
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Name < summaries[j].Name })
	return summaries, nil
}

func (m *Memory) CreateItem(ctx context.Context, name, content string, s Session) error {
	m.Calls++
	if m.WriteErr != nil {
		return m.WriteErr
	}
	if _, ok := m.Items[name]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, name)
	}
	m.nextID++
	m.Items[name] = &VaultItem{
		ID:    fmt.Sprintf("mem-%d", m.nextID),
		Name:  name,
		Type:  TypeSecureNote,
		Notes: content,
	}
	return nil
}

func (m *Memory) UpdateItem(ctx context.Context, name, content string, s Session) error {
	m.Calls++
	if m.WriteErr != nil {
		return m.WriteErr
	}
	item, ok := m.Items[name]
	if !ok {
		return m.CreateItem(ctx, name, content, s)
	}
	item.Notes = content
	return nil
}

func (m *Memory) DeleteItem(ctx context.Context, name string, s Session, confirmed bool) error {
	m.Calls++
	if err := checkDelete(name, confirmed); err != nil {
		return err
	}
	delete(m.Items, name)
	return nil
}
