package state

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestFreshStore(t *testing.T) {
	s := openTestStore(t)

	backend, gen, err := s.Generation()
	if err != nil {
		t.Fatalf("Generation: %v", err)
	}
	if backend != "" || gen != "" {
		t.Errorf("fresh store has generation %q/%q", backend, gen)
	}

	items, err := s.Items()
	if err != nil {
		t.Fatalf("Items: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("fresh store has %d items", len(items))
	}
}

func TestEnsureGeneration(t *testing.T) {
	s := openTestStore(t)

	kept, err := s.EnsureGeneration("bitwarden")
	if err != nil {
		t.Fatalf("EnsureGeneration: %v", err)
	}
	if kept {
		t.Error("fresh store reported kept baselines")
	}

	_, gen1, err := s.Generation()
	if err != nil {
		t.Fatal(err)
	}
	if gen1 == "" {
		t.Fatal("no generation recorded")
	}

	// Same backend keeps the generation.
	kept, err = s.EnsureGeneration("bitwarden")
	if err != nil {
		t.Fatal(err)
	}
	if !kept {
		t.Error("same backend dropped baselines")
	}
	_, gen2, _ := s.Generation()
	if gen2 != gen1 {
		t.Errorf("generation changed without backend switch: %s -> %s", gen1, gen2)
	}
}

func TestBackendSwitchInvalidatesBaselines(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.EnsureGeneration("bitwarden"); err != nil {
		t.Fatal(err)
	}
	err := s.Commit(map[string]ItemState{
		"Git-Config": {Name: "Git-Config", LocalHash: "aaa", VaultHash: "bbb", LastSyncedAt: time.Now()},
	}, nil)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	kept, err := s.EnsureGeneration("pass")
	if err != nil {
		t.Fatal(err)
	}
	if kept {
		t.Error("backend switch kept baselines")
	}

	items, err := s.Items()
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 0 {
		t.Errorf("baselines survived a backend switch: %v", items)
	}
}

func TestCommitAndLoad(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.EnsureGeneration("pass"); err != nil {
		t.Fatal(err)
	}

	now := time.Now()
	err := s.Commit(map[string]ItemState{
		"A": {Name: "A", LocalHash: "h1", VaultHash: "h2", LastSyncedAt: now},
		"B": {Name: "B", LocalHash: "h3", VaultHash: "h4", LastSyncedAt: now},
	}, nil)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	items, err := s.Items()
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if items["A"].LocalHash != "h1" || items["A"].VaultHash != "h2" {
		t.Errorf("item A = %+v", items["A"])
	}

	item, err := s.Item("B")
	if err != nil {
		t.Fatal(err)
	}
	if item == nil || item.VaultHash != "h4" {
		t.Errorf("Item(B) = %+v", item)
	}

	missing, err := s.Item("C")
	if err != nil {
		t.Fatal(err)
	}
	if missing != nil {
		t.Errorf("Item(C) = %+v, want nil", missing)
	}

	// Deletes drop baselines.
	if err := s.Commit(nil, []string{"A"}); err != nil {
		t.Fatal(err)
	}
	items, _ = s.Items()
	if _, ok := items["A"]; ok {
		t.Error("deleted baseline still present")
	}
}
