package cmd

import (
	"context"
	"os"

	"github.com/live-labs/secretsync/internal/engine"
)

// Push pushes local content for the selected items into the vault.
func Push(ctx context.Context, names []string, force, verbose bool) {
	a := setup(ctx, verbose)
	defer a.close()

	specs := selectSpecs(a.specs, names)
	res, err := a.engine.Push(ctx, specs, engine.Options{Force: force})
	if err != nil {
		if res != nil {
			printResults(res)
		}
		HandleError(err)
	}

	printResults(res)
	os.Exit(exitCode(res))
}
