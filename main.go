package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/live-labs/secretsync/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "init":
		runInit(ctx, os.Args[2:])
	case "check":
		runCheck(ctx, os.Args[2:])
	case "status":
		runStatus(ctx, os.Args[2:])
	case "push":
		runPush(ctx, os.Args[2:])
	case "pull":
		runPull(ctx, os.Args[2:])
	case "sync":
		runSync(ctx, os.Args[2:])
	case "diff":
		runDiff(ctx, os.Args[2:])
	case "list", "ls":
		runList(ctx, os.Args[2:])
	case "rm":
		runRm(ctx, os.Args[2:])
	case "login":
		runLogin(ctx, os.Args[2:])
	case "logout":
		runLogout(ctx, os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func runInit(_ context.Context, args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	backendKind := fs.String("backend", "", "Backend to use (bitwarden, 1password, pass)")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	cmd.Init(*backendKind)
}

func runCheck(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	verbose := fs.Bool("v", false, "Verbose logging")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	cmd.Check(ctx, *verbose)
}

func runStatus(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	verbose := fs.Bool("v", false, "Verbose logging")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	cmd.Status(ctx, *verbose)
}

func runPush(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("push", flag.ExitOnError)
	force := fs.Bool("force", false, "Overwrite vault items that changed since the last sync")
	verbose := fs.Bool("v", false, "Verbose logging")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	cmd.Push(ctx, fs.Args(), *force, *verbose)
}

func runPull(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("pull", flag.ExitOnError)
	force := fs.Bool("force", false, "Overwrite local files that changed since the last sync")
	verbose := fs.Bool("v", false, "Verbose logging")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	cmd.Pull(ctx, fs.Args(), *force, *verbose)
}

func runSync(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	forceLocal := fs.Bool("force-local", false, "Resolve conflicts by pushing the local version")
	forceVault := fs.Bool("force-vault", false, "Resolve conflicts by pulling the vault version")
	verbose := fs.Bool("v", false, "Verbose logging")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	if *forceLocal && *forceVault {
		fmt.Fprintln(os.Stderr, "Error: --force-local and --force-vault are mutually exclusive")
		os.Exit(1)
	}

	cmd.Sync(ctx, fs.Args(), *forceLocal, *forceVault, *verbose)
}

func runDiff(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("diff", flag.ExitOnError)
	verbose := fs.Bool("v", false, "Verbose logging")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	cmd.Diff(ctx, fs.Args(), *verbose)
}

func runList(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	verbose := fs.Bool("v", false, "Verbose logging")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	cmd.List(ctx, *verbose)
}

func runRm(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("rm", flag.ExitOnError)
	yes := fs.Bool("yes", false, "Confirm deletion of protected items")
	verbose := fs.Bool("v", false, "Verbose logging")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	if len(fs.Args()) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: secretsync rm [--yes] <name> [name...]")
		os.Exit(1)
	}
	cmd.Remove(ctx, fs.Args(), *yes, *verbose)
}

func runLogin(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	verbose := fs.Bool("v", false, "Verbose logging")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	cmd.Login(ctx, *verbose)
}

func runLogout(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("logout", flag.ExitOnError)
	verbose := fs.Bool("v", false, "Verbose logging")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	cmd.Logout(ctx, *verbose)
}

func printUsage() {
	fmt.Println("secretsync - Keep machine-local secrets in sync with your password manager")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  secretsync <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  init        Create the config directory and a starter schema")
	fmt.Println("  check       Validate required items, key pairs, and git exposure")
	fmt.Println("  status      Show per-item drift without changing anything")
	fmt.Println("  push        Push local files into the vault")
	fmt.Println("  pull        Restore files from the vault")
	fmt.Println("  sync        Bidirectional sync, direction decided per item")
	fmt.Println("  diff        Show local vs vault differences")
	fmt.Println("  list, ls    List vault items")
	fmt.Println("  rm          Delete vault items")
	fmt.Println("  login       Authenticate and cache the session")
	fmt.Println("  logout      Drop the cached session")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  SECRETSYNC_BACKEND   Override the configured backend")
	fmt.Println("  SECRETSYNC_OFFLINE   Skip all backend calls (true/false)")
	fmt.Println("  SECRETSYNC_PASSWORD  Master password for non-interactive auth")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  secretsync init --backend bitwarden")
	fmt.Println("  secretsync sync                  # Sync everything")
	fmt.Println("  secretsync pull --force Git-Config")
	fmt.Println("  secretsync status")
}
