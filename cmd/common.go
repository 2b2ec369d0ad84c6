package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/live-labs/secretsync/internal/backend"
	"github.com/live-labs/secretsync/internal/config"
	"github.com/live-labs/secretsync/internal/engine"
	"github.com/live-labs/secretsync/internal/registry"
	"github.com/live-labs/secretsync/internal/session"
	"github.com/live-labs/secretsync/internal/state"
)

// Exit codes reported to the shell.
const (
	ExitOK       = 0
	ExitPartial  = 1
	ExitConflict = 2
	ExitFatal    = 3
)

// app bundles everything a command needs for one invocation.
type app struct {
	cfg    *config.Config
	log    *zap.Logger
	ad     backend.Adapter
	cache  *session.Cache
	store  *state.Store
	engine *engine.Engine
	specs  []registry.SecretSpec
}

func (a *app) close() {
	if a.store != nil {
		a.store.Close()
	}
	if a.log != nil {
		a.log.Sync()
	}
}

// newLogger builds the process logger: console output on stderr, Debug
// when verbose.
func newLogger(verbose bool) *zap.Logger {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stderr"}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// setup loads config and schema and wires the engine. Structural errors
// here abort before any backend call.
func setup(ctx context.Context, verbose bool) *app {
	log := newLogger(verbose)

	cfg, err := config.Load()
	if err != nil {
		HandleError(err)
	}

	specs, err := registry.Load(cfg.SchemaPath)
	if err != nil {
		HandleError(err)
	}

	ad, err := backend.New(cfg.Backend, backend.Options{
		Timeout:      cfg.Timeout,
		Prompt:       session.ReadPassword,
		Password:     cfg.Password,
		PassStoreDir: cfg.PassStoreDir,
	})
	if err != nil {
		HandleError(err)
	}

	if !cfg.Offline {
		if err := ad.Init(ctx); err != nil {
			HandleError(err)
		}
	}

	store, err := state.Open(cfg.StatePath)
	if err != nil {
		HandleError(err)
	}

	cache := session.New(cfg.Backend, cfg.BaseDir, log)
	eng := engine.New(ad, cache, store, log, cfg.Offline)

	return &app{cfg: cfg, log: log, ad: ad, cache: cache, store: store, engine: eng, specs: specs}
}

// HandleError is the single presentation boundary for fatal errors.
func HandleError(err error) {
	var unavailable *backend.UnavailableError
	var authErr *backend.AuthError

	switch {
	case errors.As(err, &unavailable):
		fmt.Fprintf(os.Stderr, "Error: backend tool %q is not usable: %v\n", unavailable.Tool, unavailable.Err)
		fmt.Fprintf(os.Stderr, "Hint: %s\n", unavailable.Hint)
	case errors.As(err, &authErr):
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		fmt.Fprintf(os.Stderr, "Re-authenticate with 'secretsync login'\n")
	case errors.Is(err, session.ErrAuthExhausted):
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	case errors.Is(err, registry.ErrSchemaVersion):
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		fmt.Fprintf(os.Stderr, "Upgrade secretsync or fix the schema version field\n")
	case errors.Is(err, backend.ErrProtectedItem):
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		fmt.Fprintf(os.Stderr, "Protected items need --yes to delete\n")
	default:
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
	os.Exit(ExitFatal)
}

// printResults renders the per-item outcome table and the overall
// classification.
func printResults(res *engine.RunResult) {
	for _, it := range res.Items {
		if it.Message != "" {
			fmt.Printf("%-8s %-24s %-10s %s\n", it.Action, it.Name, it.Status, it.Message)
		} else {
			fmt.Printf("%-8s %-24s %s\n", it.Action, it.Name, it.Status)
		}
	}
	fmt.Printf("result: %s\n", res.Exit)
}

// exitCode maps the overall classification to a shell exit code.
func exitCode(res *engine.RunResult) int {
	switch res.Exit {
	case engine.ExitPartialFailure:
		return ExitPartial
	case engine.ExitAbortedConflict:
		return ExitConflict
	default:
		return ExitOK
	}
}

// selectSpecs applies explicit item selection on top of the schema.
func selectSpecs(specs []registry.SecretSpec, names []string) []registry.SecretSpec {
	selected, err := registry.Select(specs, names)
	if err != nil {
		HandleError(err)
	}
	return selected
}
