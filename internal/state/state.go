package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	MetaBucket  = []byte("meta")
	ItemsBucket = []byte("items")
)

// Meta keys
var (
	MetaBackend    = []byte("backend")
	MetaGeneration = []byte("generation")
	MetaUpdated    = []byte("updated")
)

// ItemState is the persisted baseline for one item. Hashes are mutated
// only after a confirmed successful push or pull, never speculatively.
type ItemState struct {
	Name         string    `json:"name"`
	LocalHash    string    `json:"lastKnownLocalHash"`
	VaultHash    string    `json:"lastKnownVaultHash"`
	LastSyncedAt time.Time `json:"lastSyncedAt"`
}

// Store provides BBolt-backed SyncState persistence.
type Store struct {
	db *bolt.DB
}

// Open opens or creates the state database with owner-only permissions.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{MetaBucket, ItemsBucket} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Generation returns the recorded backend kind and generation ID.
// Both are empty for a fresh store.
func (s *Store) Generation() (backend, generation string, err error) {
	err = s.db.View(func(tx *bolt.Tx) error {
		meta := tx.Bucket(MetaBucket)
		if b := meta.Get(MetaBackend); b != nil {
			backend = string(b)
		}
		if g := meta.Get(MetaGeneration); g != nil {
			generation = string(g)
		}
		return nil
	})
	return backend, generation, err
}

// EnsureGeneration validates that the stored baselines belong to the given
// backend. On mismatch (or a fresh store) every baseline is dropped and a
// new generation begins: exactly one backend is active per generation.
// Reports whether existing baselines were kept.
func (s *Store) EnsureGeneration(backend string) (kept bool, err error) {
	current, gen, err := s.Generation()
	if err != nil {
		return false, err
	}
	if current == backend && gen != "" {
		return true, nil
	}

	newGen := uuid.NewString()
	err = s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(ItemsBucket); err != nil {
			return err
		}
		if _, err := tx.CreateBucket(ItemsBucket); err != nil {
			return err
		}
		meta := tx.Bucket(MetaBucket)
		if err := meta.Put(MetaBackend, []byte(backend)); err != nil {
			return err
		}
		return meta.Put(MetaGeneration, []byte(newGen))
	})
	if err != nil {
		return false, fmt.Errorf("failed to start new generation: %w", err)
	}
	return false, nil
}

// Items loads every stored baseline.
func (s *Store) Items() (map[string]ItemState, error) {
	items := make(map[string]ItemState)
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(ItemsBucket).ForEach(func(k, v []byte) error {
			var st ItemState
			if err := json.Unmarshal(v, &st); err != nil {
				return fmt.Errorf("corrupt state for %s: %w", k, err)
			}
			items[string(k)] = st
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// Item loads one baseline, or nil if the item has never been synced.
func (s *Store) Item(name string) (*ItemState, error) {
	var st *ItemState
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(ItemsBucket).Get([]byte(name))
		if data == nil {
			return nil
		}
		st = &ItemState{}
		return json.Unmarshal(data, st)
	})
	return st, err
}

// Commit writes all of a run's baseline updates in one transaction.
// An interrupt before Commit leaves every not-yet-completed item's state
// untouched; an interrupt during Commit rolls back entirely.
func (s *Store) Commit(updates map[string]ItemState, deletes []string) error {
	if len(updates) == 0 && len(deletes) == 0 {
		return nil
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		items := tx.Bucket(ItemsBucket)
		for name, st := range updates {
			data, err := json.Marshal(st)
			if err != nil {
				return err
			}
			if err := items.Put([]byte(name), data); err != nil {
				return err
			}
		}
		for _, name := range deletes {
			if err := items.Delete([]byte(name)); err != nil {
				return err
			}
		}
		now, _ := time.Now().MarshalBinary()
		return tx.Bucket(MetaBucket).Put(MetaUpdated, now)
	})
}
