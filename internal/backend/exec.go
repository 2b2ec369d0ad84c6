package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// cmdError preserves the subprocess stderr so callers can match on
// provider-specific failure text ("Not found.", "not logged in", ...).
type cmdError struct {
	tool   string
	args   []string
	stderr string
	err    error
}

func (e *cmdError) Error() string {
	msg := strings.TrimSpace(e.stderr)
	if msg == "" {
		msg = e.err.Error()
	}
	return fmt.Sprintf("%s %s: %s", e.tool, strings.Join(e.args, " "), msg)
}

func (e *cmdError) Unwrap() error { return e.err }

// stderrContains reports whether err is a cmdError whose stderr contains
// the given fragment (case-insensitive).
func stderrContains(err error, fragment string) bool {
	var ce *cmdError
	if !errors.As(err, &ce) {
		return false
	}
	return strings.Contains(strings.ToLower(ce.stderr), strings.ToLower(fragment))
}

// runCmd is a variable so adapter tests can intercept subprocess calls.
var runCmd = execCLI

// execCLI executes a provider CLI call with a hard per-call timeout. stdin
// may be nil. A hung backend process must never stall the whole batch, so
// the deadline applies to every invocation.
func execCLI(ctx context.Context, timeout time.Duration, stdin []byte, extraEnv []string, tool string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, tool, args...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	if len(extraEnv) > 0 {
		cmd.Env = append(cmd.Environ(), extraEnv...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%s timed out after %s", tool, timeout)
		}
		return nil, &cmdError{tool: tool, args: args, stderr: stderr.String(), err: err}
	}
	return stdout.Bytes(), nil
}

// lookTool resolves a CLI binary, wrapping absence in UnavailableError.
func lookTool(tool, hint string) error {
	if _, err := exec.LookPath(tool); err != nil {
		return &UnavailableError{Tool: tool, Hint: hint, Err: err}
	}
	return nil
}
