package engine

import (
	"context"
	"fmt"

	"github.com/live-labs/secretsync/internal/backend"
	"github.com/live-labs/secretsync/internal/drift"
	"github.com/live-labs/secretsync/internal/gitcheck"
	"github.com/live-labs/secretsync/internal/registry"
)

// Status classifies every item without writing anything, a dry run of
// Sync. Offline it reports every item as an offline no-op, like the
// transfer operations.
func (e *Engine) Status(ctx context.Context, specs []registry.SecretSpec) (*RunResult, error) {
	if e.offline {
		return offlineResult(specs), nil
	}

	sess, baselines, err := e.begin(ctx)
	if err != nil {
		return nil, err
	}

	res := &RunResult{}
	for _, spec := range specs {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		v, err := e.evaluate(ctx, spec, sess, baselines)
		if err != nil {
			res.Items = append(res.Items, failure(spec.Name, ActionNone, err))
			continue
		}

		status := StatusNoop
		msg := "in sync"
		switch v.dir {
		case drift.Push:
			status = StatusOK
			msg = "local changed, would push"
		case drift.Pull:
			status = StatusOK
			msg = "vault changed, would pull"
		case drift.Conflict:
			status = StatusConflict
			msg = "both sides changed"
		default:
			if v.localHash == drift.SentinelMissing && v.vaultHash == drift.SentinelMissing {
				msg = "absent on both sides"
			}
		}
		res.Items = append(res.Items, ItemResult{
			Name: spec.Name, Action: v.dir.String(), Status: status, Message: msg,
		})
	}
	res.Exit = classify(res.Items)
	return res, nil
}

// Check validates the registered items: required items must exist on both
// sides, key bundles must be well-formed, and secret files should not sit
// exposed in a git repository. Absence of a required item is a reportable
// failure here, never a silent no-op.
func (e *Engine) Check(ctx context.Context, specs []registry.SecretSpec) (*RunResult, error) {
	var sess backend.Session
	if !e.offline {
		var err error
		sess, _, err = e.begin(ctx)
		if err != nil {
			return nil, err
		}
	}

	res := &RunResult{}
	for _, spec := range specs {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Items = append(res.Items, e.checkItem(ctx, spec, sess))
	}
	res.Exit = classify(res.Items)
	if e.offline && res.Exit == ExitSuccess {
		res.Exit = ExitOfflineNoop
	}
	return res, nil
}

func (e *Engine) checkItem(ctx context.Context, spec registry.SecretSpec, sess backend.Session) ItemResult {
	content, localHash, err := readLocal(spec)
	if err != nil {
		return failure(spec.Name, ActionNone, err)
	}

	localPresent := localHash != drift.SentinelMissing
	if spec.Required && !localPresent {
		return ItemResult{
			Name: spec.Name, Action: ActionNone, Status: StatusFailed,
			Message: fmt.Sprintf("required file %s is missing", spec.LocalPath),
		}
	}

	if localPresent && spec.Kind == registry.KindSSHKey {
		if err := registry.ValidateKeyBundle(string(content)); err != nil {
			return ItemResult{
				Name: spec.Name, Action: ActionNone, Status: StatusFailed,
				Message: "malformed key pair: " + err.Error(),
			}
		}
	}

	if localPresent {
		if f := gitcheck.Inspect(spec.LocalPath); f.InRepo {
			if f.Tracked {
				return ItemResult{
					Name: spec.Name, Action: ActionNone, Status: StatusFailed,
					Message: fmt.Sprintf("%s is tracked by git, remove it from the index", spec.LocalPath),
				}
			}
			if !f.Ignored {
				return ItemResult{
					Name: spec.Name, Action: ActionNone, Status: StatusOK,
					Message: fmt.Sprintf("warning: %s is inside a git repo and not gitignored", spec.LocalPath),
				}
			}
		}
	}

	if !e.offline {
		item, err := e.ad.GetItem(ctx, spec.Name, sess)
		if err != nil {
			return failure(spec.Name, ActionNone, err)
		}
		if spec.Required && item == nil {
			return ItemResult{
				Name: spec.Name, Action: ActionNone, Status: StatusFailed,
				Message: "required vault item is missing",
			}
		}
	}

	return ItemResult{Name: spec.Name, Action: ActionNone, Status: StatusOK, Message: "ok"}
}

// List returns the vault-side item summaries.
func (e *Engine) List(ctx context.Context) ([]backend.ItemSummary, error) {
	if e.offline {
		return nil, nil
	}
	sess, err := e.cache.Session(ctx, e.ad)
	if err != nil {
		return nil, err
	}
	return e.ad.ListItems(ctx, sess)
}

// Delete removes a vault item and drops its baseline. The protected-prefix
// guard lives in the adapter; confirmed is passed straight through.
func (e *Engine) Delete(ctx context.Context, name string, confirmed bool) error {
	if e.offline {
		return fmt.Errorf("cannot delete %s: offline mode is active", name)
	}
	sess, err := e.cache.Session(ctx, e.ad)
	if err != nil {
		return err
	}
	if err := e.ad.DeleteItem(ctx, name, sess, confirmed); err != nil {
		return err
	}
	return e.store.Commit(nil, []string{name})
}

// Fetch returns one vault item's content for diffing against the local
// file. Absence is (nil, nil).
func (e *Engine) Fetch(ctx context.Context, name string) (*backend.VaultItem, error) {
	if e.offline {
		return nil, fmt.Errorf("cannot fetch %s: offline mode is active", name)
	}
	sess, err := e.cache.Session(ctx, e.ad)
	if err != nil {
		return nil, err
	}
	return e.ad.GetItem(ctx, name, sess)
}
