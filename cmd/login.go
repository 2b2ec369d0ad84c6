package cmd

import (
	"context"
	"fmt"
)

// Login establishes and caches a backend session.
func Login(ctx context.Context, verbose bool) {
	a := setup(ctx, verbose)
	defer a.close()

	if a.cfg.Offline {
		HandleError(fmt.Errorf("cannot login: offline mode is active"))
	}
	if _, err := a.cache.Session(ctx, a.ad); err != nil {
		HandleError(err)
	}
	fmt.Printf("logged in to %s\n", a.cfg.Backend)
}
