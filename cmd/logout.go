package cmd

import (
	"context"
	"fmt"
)

// Logout invalidates the cached backend session.
func Logout(ctx context.Context, verbose bool) {
	a := setup(ctx, verbose)
	defer a.close()

	if err := a.cache.Invalidate(); err != nil {
		HandleError(err)
	}
	fmt.Printf("logged out of %s\n", a.cfg.Backend)
}
