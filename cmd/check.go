package cmd

import (
	"context"
	"os"
)

// Check validates required items, key bundles, and git exposure.
func Check(ctx context.Context, verbose bool) {
	a := setup(ctx, verbose)
	defer a.close()

	res, err := a.engine.Check(ctx, a.specs)
	if err != nil {
		HandleError(err)
	}

	printResults(res)
	os.Exit(exitCode(res))
}
