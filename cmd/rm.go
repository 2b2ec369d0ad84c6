package cmd

import (
	"context"
	"fmt"
)

// Remove deletes vault items and drops their sync baselines. Protected
// items (SSH keys, cloud credentials, git identity) require --yes.
func Remove(ctx context.Context, names []string, confirmed, verbose bool) {
	a := setup(ctx, verbose)
	defer a.close()

	for _, name := range names {
		if err := a.engine.Delete(ctx, name, confirmed); err != nil {
			HandleError(err)
		}
		fmt.Printf("deleted: %s\n", name)
	}
}
