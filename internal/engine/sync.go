package engine

import (
	"context"
	"time"

	"github.com/live-labs/secretsync/internal/backend"
	"github.com/live-labs/secretsync/internal/drift"
	"github.com/live-labs/secretsync/internal/registry"
	"github.com/live-labs/secretsync/internal/state"
)

// Sync runs bidirectional synchronization. Every item is classified
// independently; conflicts are reported, never auto-merged, unless the
// caller picked a side with ForceLocal/ForceVault. Baseline updates for
// all completed items are committed in a single transaction at the end.
func (e *Engine) Sync(ctx context.Context, specs []registry.SecretSpec, opts Options) (*RunResult, error) {
	if e.offline {
		return offlineResult(specs), nil
	}

	sess, baselines, err := e.begin(ctx)
	if err != nil {
		return nil, err
	}

	res := &RunResult{}
	pending := make(map[string]state.ItemState)

	for _, spec := range specs {
		if err := ctx.Err(); err != nil {
			// Baselines for items already completed are still
			// committed; everything else stays untouched.
			e.commit(pending, res)
			return res, err
		}

		v, err := e.evaluate(ctx, spec, sess, baselines)
		if err != nil {
			res.Items = append(res.Items, failure(spec.Name, ActionNone, err))
			continue
		}

		dir := v.dir
		if dir == drift.Conflict {
			switch {
			case opts.ForceLocal:
				dir = drift.Push
			case opts.ForceVault:
				dir = drift.Pull
			default:
				res.Items = append(res.Items, ItemResult{
					Name:    spec.Name,
					Action:  dir.String(),
					Status:  StatusConflict,
					Message: "both sides changed since last sync; resolve manually or re-run with --force-local or --force-vault",
				})
				continue
			}
		}

		res.Items = append(res.Items, e.applyDirection(ctx, v, dir, sess, pending))
	}

	e.commit(pending, res)
	res.Exit = classify(res.Items)
	return res, nil
}

// applyDirection performs the transfer an already-classified item needs
// and books the new baseline on success.
func (e *Engine) applyDirection(ctx context.Context, v *view, dir drift.Direction, sess backend.Session, pending map[string]state.ItemState) ItemResult {
	name := v.spec.Name

	switch dir {
	case drift.Push:
		if v.localHash == drift.SentinelMissing {
			return ItemResult{
				Name: name, Action: ActionPush, Status: StatusSkipped,
				Message: "local file deleted; use 'secretsync rm' to remove the vault item",
			}
		}
		if err := e.pushItem(ctx, v, sess); err != nil {
			return failure(name, ActionPush, err)
		}
		record(pending, name, v.localHash, v.localHash)
		return ItemResult{Name: name, Action: ActionPush, Status: StatusOK}

	case drift.Pull:
		if v.vaultHash == drift.SentinelMissing {
			return ItemResult{
				Name: name, Action: ActionPull, Status: StatusSkipped,
				Message: "vault item deleted remotely; push again to restore it",
			}
		}
		localHash, err := e.pullItem(v)
		if err != nil {
			return failure(name, ActionPull, err)
		}
		record(pending, name, localHash, v.vaultHash)
		return ItemResult{Name: name, Action: ActionPull, Status: StatusOK}

	default:
		if needsAdoption(v) {
			pending[name] = adopted(v)
		}
		return ItemResult{Name: name, Action: ActionNone, Status: StatusNoop}
	}
}

func (e *Engine) commit(pending map[string]state.ItemState, res *RunResult) {
	if err := e.store.Commit(pending, nil); err != nil {
		res.Items = append(res.Items, ItemResult{
			Name:    "(state)",
			Action:  ActionNone,
			Status:  StatusFailed,
			Message: "failed to persist sync state: " + err.Error(),
		})
	}
}

// record books a successful transfer for the end-of-run commit.
func record(pending map[string]state.ItemState, name, localHash, vaultHash string) {
	pending[name] = state.ItemState{
		Name:         name,
		LocalHash:    localHash,
		VaultHash:    vaultHash,
		LastSyncedAt: time.Now(),
	}
}
