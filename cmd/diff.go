package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/live-labs/secretsync/internal/diffview"
	"github.com/live-labs/secretsync/internal/registry"
)

// Diff shows how each selected item's local file diverges from its vault
// content.
func Diff(ctx context.Context, names []string, verbose bool) {
	a := setup(ctx, verbose)
	defer a.close()

	specs := selectSpecs(a.specs, names)

	hasChanges := false
	for _, spec := range specs {
		item, err := a.engine.Fetch(ctx, spec.Name)
		if err != nil {
			HandleError(err)
		}
		if item == nil {
			fmt.Printf("Not in vault: %s\n", spec.Name)
			continue
		}

		if spec.Kind == registry.KindSSHKey {
			// Key bundles never get dumped to the terminal.
			private, err := os.ReadFile(spec.LocalPath)
			if err != nil {
				fmt.Printf("Not on disk: %s (%s)\n", spec.Name, spec.LocalPath)
				continue
			}
			public, err := os.ReadFile(spec.LocalPath + ".pub")
			if err != nil {
				fmt.Printf("error: cannot read %s.pub: %v\n", spec.LocalPath, err)
				continue
			}
			if registry.JoinKeyPair(private, public) != item.Notes {
				fmt.Printf("Key pair %s differs from vault\n", spec.Name)
				hasChanges = true
			}
			continue
		}

		localData, err := os.ReadFile(spec.LocalPath)
		if err != nil {
			if os.IsNotExist(err) {
				fmt.Printf("Not on disk: %s (%s)\n", spec.Name, spec.LocalPath)
			} else {
				fmt.Printf("error: cannot read %s: %v\n", spec.LocalPath, err)
			}
			continue
		}

		if out := diffview.Unified(spec.Name, []byte(item.Notes), localData); out != "" {
			fmt.Print(out)
			hasChanges = true
		}
	}

	if !hasChanges {
		fmt.Println("No changes detected")
	}
}
