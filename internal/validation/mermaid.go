package validation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// DefaultCommand is the Mermaid CLI binary
	DefaultCommand = "mmdc"
	// DefaultTimeout bounds one compiler run
	DefaultTimeout = 30 * time.Second

	maxDiagnosticLen = 2000
)

// Verdict is the compiler's answer for one diagram.
type Verdict struct {
	OK         bool
	Diagnostic string
}

// Validator checks diagram source. The only error it returns is *UnavailableError.
type Validator interface {
	Validate(ctx context.Context, text string) (Verdict, error)
}

// MermaidCLI validates diagrams by rendering them with the Mermaid CLI.
type MermaidCLI struct {
	Command string
	// Args are passed before the input/output flags, e.g. a puppeteer config
	Args    []string
	Timeout time.Duration
}

// NewMermaidCLI returns a validator for command, falling back to defaults for zero values.
func NewMermaidCLI(command string, timeout time.Duration, args ...string) *MermaidCLI {
	if command == "" {
		command = DefaultCommand
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &MermaidCLI{Command: command, Args: args, Timeout: timeout}
}

// Validate renders text to SVG in a scratch directory. A non-zero exit is a
// rejection carrying the compiler output as diagnostic.
func (m *MermaidCLI) Validate(ctx context.Context, text string) (Verdict, error) {
	binary, err := exec.LookPath(m.Command)
	if err != nil {
		return Verdict{}, &UnavailableError{
			Message: fmt.Sprintf("%s not found in PATH. Install @mermaid-js/mermaid-cli", m.Command),
			Cause:   err,
		}
	}

	workDir, err := os.MkdirTemp("", "mermaid-validate-*")
	if err != nil {
		return Verdict{}, &UnavailableError{Message: "failed to create working directory", Cause: err}
	}
	defer os.RemoveAll(workDir)

	inPath := filepath.Join(workDir, "diagram.mmd")
	outPath := filepath.Join(workDir, "diagram.svg")
	if err := os.WriteFile(inPath, []byte(text), 0o600); err != nil {
		return Verdict{}, &UnavailableError{Message: "failed to write diagram source", Cause: err}
	}

	timeout := m.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := append(append([]string{}, m.Args...), "-i", inPath, "-o", outPath)
	cmd := exec.CommandContext(runCtx, binary, args...)
	cmd.WaitDelay = time.Second

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	if ctxErr := runCtx.Err(); ctxErr != nil {
		msg := "compiler timed out after " + timeout.String()
		if ctx.Err() != nil {
			msg = "validation cancelled"
		}
		return Verdict{}, &UnavailableError{Message: msg, Cause: ctxErr}
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			return Verdict{}, &UnavailableError{Message: "failed to run compiler", Cause: runErr}
		}
		return Verdict{OK: false, Diagnostic: diagnostic(stderr.String(), stdout.String(), exitErr)}, nil
	}

	if _, err := os.Stat(outPath); err != nil {
		return Verdict{OK: false, Diagnostic: "compiler exited cleanly but produced no output"}, nil
	}
	return Verdict{OK: true}, nil
}

// diagnostic prefers stderr, falls back to stdout, then the exit status.
func diagnostic(stderr, stdout string, exitErr *exec.ExitError) string {
	msg := strings.TrimSpace(stderr)
	if msg == "" {
		msg = strings.TrimSpace(stdout)
	}
	if msg == "" {
		msg = fmt.Sprintf("compiler exited with status %d", exitErr.ExitCode())
	}
	if len(msg) > maxDiagnosticLen {
		n := maxDiagnosticLen
		for n > 0 && !utf8.RuneStart(msg[n]) {
			n--
		}
		msg = msg[:n] + "..."
	}
	return msg
}
