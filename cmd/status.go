package cmd

import (
	"context"
	"os"
)

// Status reports per-item drift without writing anything.
func Status(ctx context.Context, verbose bool) {
	a := setup(ctx, verbose)
	defer a.close()

	res, err := a.engine.Status(ctx, a.specs)
	if err != nil {
		HandleError(err)
	}

	printResults(res)
	os.Exit(exitCode(res))
}
