package engine

import (
	"context"

	"github.com/live-labs/secretsync/internal/drift"
	"github.com/live-labs/secretsync/internal/registry"
	"github.com/live-labs/secretsync/internal/state"
)

// Push pushes local content for the given items. Drift detection still
// runs, but only as a guard: an item whose vault side moved since the last
// sync is refused with guidance unless opts.Force is set. The batch is
// best-effort; failures are collected, not fatal.
func (e *Engine) Push(ctx context.Context, specs []registry.SecretSpec, opts Options) (*RunResult, error) {
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
			e.commit(pending, res)
			return res, err
		}

		v, err := e.evaluate(ctx, spec, sess, baselines)
		if err != nil {
			res.Items = append(res.Items, failure(spec.Name, ActionPush, err))
			continue
		}

		if v.localHash == drift.SentinelMissing {
			res.Items = append(res.Items, ItemResult{
				Name: spec.Name, Action: ActionPush, Status: StatusSkipped,
				Message: "no local file to push",
			})
			continue
		}
		if v.localHash == v.vaultHash {
			if needsAdoption(v) {
				pending[spec.Name] = adopted(v)
			}
			res.Items = append(res.Items, ItemResult{Name: spec.Name, Action: ActionPush, Status: StatusNoop})
			continue
		}

		// Vault moved since last sync: pushing would overwrite remote
		// changes nobody has seen locally.
		if !opts.Force && vaultDrifted(v) {
			res.Items = append(res.Items, ItemResult{
				Name: spec.Name, Action: ActionPush, Status: StatusConflict,
				Message: "vault item changed since last sync; re-run with --force to overwrite it",
			})
			continue
		}

		if err := e.pushItem(ctx, v, sess); err != nil {
			res.Items = append(res.Items, failure(spec.Name, ActionPush, err))
			continue
		}
		record(pending, spec.Name, v.localHash, v.localHash)
		res.Items = append(res.Items, ItemResult{Name: spec.Name, Action: ActionPush, Status: StatusOK})
	}

	e.commit(pending, res)
	res.Exit = classify(res.Items)
	return res, nil
}

// Pull restores vault content for the given items. The guarantee here is
// look-before-you-leap: every item is classified first, and without
// opts.Force the entire batch is refused before any write when any item
// has unsynced local changes that a pull would clobber.
func (e *Engine) Pull(ctx context.Context, specs []registry.SecretSpec, opts Options) (*RunResult, error) {
	if e.offline {
		return offlineResult(specs), nil
	}

	sess, baselines, err := e.begin(ctx)
	if err != nil {
		return nil, err
	}

	res := &RunResult{}

	// Per-item results are filled by index so output follows schema
	// declaration order even when some items fail evaluation.
	items := make([]ItemResult, len(specs))
	views := make([]*view, len(specs))
	var conflicts []string

	// Phase 1: classify everything, no writes.
	for i, spec := range specs {
		if err := ctx.Err(); err != nil {
			res.Items = filled(items)
			return res, err
		}
		v, err := e.evaluate(ctx, spec, sess, baselines)
		if err != nil {
			items[i] = failure(spec.Name, ActionPull, err)
			continue
		}
		views[i] = v
		if !opts.Force && localDrifted(v) {
			conflicts = append(conflicts, spec.Name)
		}
	}

	if len(conflicts) > 0 {
		// Abort the whole batch before any backup or write happens.
		for i, spec := range specs {
			if views[i] == nil {
				continue
			}
			status := StatusAborted
			msg := "batch aborted: other items have local changes"
			if contains(conflicts, spec.Name) {
				status = StatusConflict
				msg = "local file changed since last sync; pull would overwrite it (use --force to proceed)"
			}
			items[i] = ItemResult{
				Name: spec.Name, Action: ActionPull, Status: status, Message: msg,
			}
		}
		res.Items = filled(items)
		res.Exit = ExitAbortedConflict
		return res, nil
	}

	// Phase 2: apply.
	pending := make(map[string]state.ItemState)
	for i, spec := range specs {
		v := views[i]
		if v == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			res.Items = filled(items)
			e.commit(pending, res)
			return res, err
		}

		if v.vaultHash == drift.SentinelMissing {
			items[i] = ItemResult{
				Name: spec.Name, Action: ActionPull, Status: StatusSkipped,
				Message: "no vault item to pull",
			}
			continue
		}
		if v.localHash == v.vaultHash {
			if needsAdoption(v) {
				pending[spec.Name] = adopted(v)
			}
			items[i] = ItemResult{Name: spec.Name, Action: ActionPull, Status: StatusNoop}
			continue
		}

		localHash, err := e.pullItem(v)
		if err != nil {
			items[i] = failure(spec.Name, ActionPull, err)
			continue
		}
		record(pending, spec.Name, localHash, v.vaultHash)
		items[i] = ItemResult{Name: spec.Name, Action: ActionPull, Status: StatusOK}
	}

	res.Items = filled(items)
	e.commit(pending, res)
	res.Exit = classify(res.Items)
	return res, nil
}

// filled drops the zero-valued slots left by an interrupted run.
func filled(items []ItemResult) []ItemResult {
	out := make([]ItemResult, 0, len(items))
	for _, it := range items {
		if it.Name != "" {
			out = append(out, it)
		}
	}
	return out
}

// localDrifted reports whether pulling this item would overwrite local
// content that has never been synced.
func localDrifted(v *view) bool {
	if v.localHash == drift.SentinelMissing || v.vaultHash == drift.SentinelMissing {
		return false
	}
	if v.localHash == v.vaultHash {
		return false
	}
	return v.baseline == nil || v.localHash != v.baseline.LocalHash
}

// vaultDrifted reports whether pushing this item would overwrite vault
// content that has never been pulled.
func vaultDrifted(v *view) bool {
	if v.vaultHash == drift.SentinelMissing {
		return false
	}
	return v.baseline == nil || v.vaultHash != v.baseline.VaultHash
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
