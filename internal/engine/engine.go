// Package engine orchestrates push, pull, and bidirectional sync across
// all registered items.
//
// Batches are best-effort: one item's failure never aborts the rest, with
// one deliberate exception — a force-less pull refuses the entire batch
// before any writes when any item would clobber unsynced local changes.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/live-labs/secretsync/internal/backend"
	"github.com/live-labs/secretsync/internal/backup"
	"github.com/live-labs/secretsync/internal/drift"
	"github.com/live-labs/secretsync/internal/registry"
	"github.com/live-labs/secretsync/internal/session"
	"github.com/live-labs/secretsync/internal/state"
)

// Per-item actions reported to the CLI layer.
const (
	ActionPush = "push"
	ActionPull = "pull"
	ActionNone = "none"
)

// Per-item statuses.
const (
	StatusOK       = "ok"
	StatusNoop     = "noop"
	StatusSkipped  = "skipped"
	StatusFailed   = "failed"
	StatusConflict = "conflict"
	StatusOffline  = "offline"
	StatusAborted  = "aborted"
)

// ExitClass is the overall process classification of one run.
type ExitClass int

const (
	ExitSuccess ExitClass = iota
	ExitPartialFailure
	ExitAbortedConflict
	ExitOfflineNoop
)

func (e ExitClass) String() string {
	switch e {
	case ExitPartialFailure:
		return "partial-failure"
	case ExitAbortedConflict:
		return "aborted-conflict"
	case ExitOfflineNoop:
		return "offline-noop"
	default:
		return "success"
	}
}

// ItemResult is the per-item outcome record.
type ItemResult struct {
	Name    string
	Action  string
	Status  string
	Message string
}

// RunResult is the structured result of one operation, consumed by the
// CLI layer.
type RunResult struct {
	Items []ItemResult
	Exit  ExitClass
}

// Options tune one run. Force skips the pre-write drift warning on
// explicit push/pull; ForceLocal/ForceVault pick a side for conflicted
// items during bidirectional sync.
type Options struct {
	Force      bool
	ForceLocal bool
	ForceVault bool
}

// Engine wires the adapter, session cache, drift detection, backups, and
// the state store together.
type Engine struct {
	ad      backend.Adapter
	cache   *session.Cache
	store   *state.Store
	log     *zap.Logger
	offline bool
}

// New constructs an engine. offline short-circuits every operation: no
// backend call is ever attempted.
func New(ad backend.Adapter, cache *session.Cache, store *state.Store, log *zap.Logger, offline bool) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{ad: ad, cache: cache, store: store, log: log, offline: offline}
}

// offlineResult reports every item as an offline no-op.
func offlineResult(specs []registry.SecretSpec) *RunResult {
	res := &RunResult{Exit: ExitOfflineNoop}
	for _, s := range specs {
		res.Items = append(res.Items, ItemResult{
			Name:    s.Name,
			Action:  ActionNone,
			Status:  StatusOffline,
			Message: "no-op, offline",
		})
	}
	return res
}

// begin authenticates and reconciles the state generation with the active
// backend. Switching backends drops every baseline.
func (e *Engine) begin(ctx context.Context) (backend.Session, map[string]state.ItemState, error) {
	sess, err := e.cache.Session(ctx, e.ad)
	if err != nil {
		return backend.Session{}, nil, err
	}

	kept, err := e.store.EnsureGeneration(e.ad.Name())
	if err != nil {
		return backend.Session{}, nil, err
	}
	if !kept {
		e.log.Info("established fresh sync baseline", zap.String("backend", e.ad.Name()))
	}

	items, err := e.store.Items()
	if err != nil {
		return backend.Session{}, nil, err
	}
	return sess, items, nil
}

// view is the evaluated condition of one item at the start of a run.
type view struct {
	spec         registry.SecretSpec
	localContent []byte
	localHash    string
	vault        *backend.VaultItem
	vaultHash    string
	baseline     *drift.Baseline
	dir          drift.Direction
}

// evaluate fingerprints both sides of one item and classifies the drift.
func (e *Engine) evaluate(ctx context.Context, spec registry.SecretSpec, sess backend.Session, baselines map[string]state.ItemState) (*view, error) {
	local, localHash, err := readLocal(spec)
	if err != nil {
		return nil, fmt.Errorf("read local %s: %w", spec.LocalPath, err)
	}

	item, err := e.ad.GetItem(ctx, spec.Name, sess)
	if err != nil {
		return nil, err
	}
	vaultHash := drift.SentinelMissing
	if item != nil {
		vaultHash = drift.HashContent([]byte(item.Notes))
	}

	var baseline *drift.Baseline
	if st, ok := baselines[spec.Name]; ok {
		baseline = &drift.Baseline{LocalHash: st.LocalHash, VaultHash: st.VaultHash}
	}

	return &view{
		spec:         spec,
		localContent: local,
		localHash:    localHash,
		vault:        item,
		vaultHash:    vaultHash,
		baseline:     baseline,
		dir:          drift.Classify(baseline, localHash, vaultHash),
	}, nil
}

// pushItem writes local content to the vault, creating or updating as the
// evaluated view dictates. Create is deliberately non-idempotent at the
// adapter level; the engine routes to update when the item exists.
func (e *Engine) pushItem(ctx context.Context, v *view, sess backend.Session) error {
	content := string(v.localContent)
	if v.spec.Kind == registry.KindSSHKey {
		if err := registry.ValidateKeyBundle(content); err != nil {
			return fmt.Errorf("refusing to push malformed key bundle: %w", err)
		}
	}

	if v.vault == nil {
		if err := e.ad.CreateItem(ctx, v.spec.Name, content, sess); err != nil {
			return err
		}
	} else {
		if err := e.ad.UpdateItem(ctx, v.spec.Name, content, sess); err != nil {
			return err
		}
	}
	e.log.Debug("pushed item", zap.String("name", v.spec.Name))
	return nil
}

// pullItem writes vault content to the local path, snapshotting first when
// the item has backup enabled. A backup failure aborts this write.
func (e *Engine) pullItem(v *view) (localHash string, err error) {
	if v.spec.Backup {
		paths := []string{v.spec.LocalPath}
		if v.spec.Kind == registry.KindSSHKey {
			// writeLocal overwrites both halves of a key pair.
			paths = append(paths, v.spec.LocalPath+".pub")
		}
		for _, p := range paths {
			bak, err := backup.Snapshot(p)
			if err != nil {
				return "", fmt.Errorf("backup failed, write aborted: %w", err)
			}
			if bak != "" {
				e.log.Debug("backed up before overwrite",
					zap.String("name", v.spec.Name), zap.String("backup", bak))
			}
		}
	}

	if err := writeLocal(v.spec, v.vault.Notes); err != nil {
		return "", err
	}

	// Re-read so the recorded baseline matches what actually landed on
	// disk (key bundles are split across two files).
	_, localHash, err = readLocal(v.spec)
	if err != nil {
		return "", err
	}
	e.log.Debug("pulled item", zap.String("name", v.spec.Name))
	return localHash, nil
}

// adopted returns the baseline record for an item whose sides already
// match; only the bookkeeping needs to catch up.
func adopted(v *view) state.ItemState {
	return state.ItemState{
		Name:         v.spec.Name,
		LocalHash:    v.localHash,
		VaultHash:    v.vaultHash,
		LastSyncedAt: time.Now(),
	}
}

// needsAdoption reports whether a no-op item still needs its baseline
// recorded (first sight of matching content, or both sides moved in
// lockstep).
func needsAdoption(v *view) bool {
	if v.localHash == drift.SentinelMissing || v.localHash != v.vaultHash {
		return false
	}
	return v.baseline == nil ||
		v.baseline.LocalHash != v.localHash ||
		v.baseline.VaultHash != v.vaultHash
}

func failure(name, action string, err error) ItemResult {
	status := StatusFailed
	if errors.Is(err, backend.ErrProtectedItem) {
		status = StatusSkipped
	}
	return ItemResult{Name: name, Action: action, Status: status, Message: err.Error()}
}

func classify(items []ItemResult) ExitClass {
	for _, it := range items {
		if it.Status == StatusFailed || it.Status == StatusConflict {
			return ExitPartialFailure
		}
	}
	return ExitSuccess
}
