package cmd

import (
	"context"
	"fmt"
)

// List prints the vault-side items known to the active backend.
func List(ctx context.Context, verbose bool) {
	a := setup(ctx, verbose)
	defer a.close()

	items, err := a.engine.List(ctx)
	if err != nil {
		HandleError(err)
	}

	if len(items) == 0 {
		fmt.Println("no items")
		return
	}
	for _, it := range items {
		fmt.Printf("%-24s %s\n", it.Name, it.ID)
	}
}
