package cmd

import (
	"context"
	"os"

	"github.com/live-labs/secretsync/internal/engine"
)

// Sync runs bidirectional synchronization over the selected items.
func Sync(ctx context.Context, names []string, forceLocal, forceVault, verbose bool) {
	a := setup(ctx, verbose)
	defer a.close()

	specs := selectSpecs(a.specs, names)
	res, err := a.engine.Sync(ctx, specs, engine.Options{ForceLocal: forceLocal, ForceVault: forceVault})
	if err != nil {
		if res != nil {
			printResults(res)
		}
		HandleError(err)
	}

	printResults(res)
	os.Exit(exitCode(res))
}
