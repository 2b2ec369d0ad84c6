package cmd

import (
	"context"
	"os"

	"github.com/live-labs/secretsync/internal/engine"
)

// Pull restores vault content for the selected items. Without --force the
// whole batch is refused when any item has unsynced local changes.
func Pull(ctx context.Context, names []string, force, verbose bool) {
	a := setup(ctx, verbose)
	defer a.close()

	specs := selectSpecs(a.specs, names)
	res, err := a.engine.Pull(ctx, specs, engine.Options{Force: force})
	if err != nil {
		if res != nil {
			printResults(res)
		}
		HandleError(err)
	}

	printResults(res)
	os.Exit(exitCode(res))
}
