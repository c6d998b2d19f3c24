// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pandoc runs the pandoc document converter as a subprocess, either
// from the local PATH or inside a container image.
//
// A run succeeds only when pandoc exits zero and writes nothing to its error
// stream. Any stderr text fails the run, warnings included. No timeout is
// applied; the caller's context is the only way to stop a hung process.
package pandoc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sort"
	"strconv"
	"strings"

	"github.com/mattn/go-shellwords"

	"github.com/pdiddy/mdto/internal/container"
	"github.com/pdiddy/mdto/pkg/types"
)

// ErrToolFailed is wrapped by every ToolError.
var ErrToolFailed = errors.New("pandoc failed")

// CodeNotFound is the ToolError code for a missing pandoc binary.
const CodeNotFound = "ENOENT"

// ToolError reports a failed pandoc run with the captured streams.
type ToolError struct {
	Message string
	// Code is the exit code, CodeNotFound, or empty when pandoc exited zero.
	Code   string
	Stdout string
	Stderr string
	Err    error
}

func (e *ToolError) Error() string { return e.Message }

func (e *ToolError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrToolFailed
}

// Executor runs a process to completion. It is replaced in tests.
type Executor interface {
	LookPath(file string) (string, error)
	Run(ctx context.Context, name string, args []string, stdout, stderr io.Writer) error
}

type osExecutor struct{}

func (osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (osExecutor) Run(ctx context.Context, name string, args []string, stdout, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}

// Request describes one conversion.
type Request struct {
	// WorkDir is the directory holding the job's files. It is the mount
	// point when running in a container.
	WorkDir      string
	InputPath    string
	OutputPath   string
	From         string
	To           types.Format
	ReferenceDoc string
	Template     string
	Metadata     map[string]string
	// ExtraArgs is appended verbatim after the generated arguments.
	ExtraArgs []string
}

// Args returns the pandoc argument list for r.
func (r Request) Args() []string {
	from := r.From
	if from == "" {
		from = "markdown"
	}
	args := []string{r.InputPath, "--from", from, "--to", string(r.To), "--output", r.OutputPath}
	if r.ReferenceDoc != "" {
		args = append(args, "--reference-doc="+r.ReferenceDoc)
	}
	if r.Template != "" {
		args = append(args, "--template", r.Template)
	}
	keys := make([]string, 0, len(r.Metadata))
	for k := range r.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "--metadata="+k+":"+r.Metadata[k])
	}
	return append(args, r.ExtraArgs...)
}

// ErrInvalidOptions is returned by SplitOptions for an unparsable option string.
var ErrInvalidOptions = errors.New("invalid pandoc options")

// SplitOptions splits a free-form option string into arguments the way a
// POSIX shell would: quotes group words and backslashes escape. Environment
// variables and command substitution are not expanded.
func SplitOptions(s string) ([]string, error) {
	args, err := shellwords.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidOptions, s, err)
	}
	return args, nil
}

// Option configures a Runner.
type Option func(*Runner)

// WithExecutor replaces the process executor.
func WithExecutor(e Executor) Option {
	return func(r *Runner) { r.exec = e }
}

// WithContainer runs pandoc inside image using rt.
func WithContainer(rt container.Runtime, image string) Option {
	return func(r *Runner) {
		r.runtime = rt
		r.image = image
	}
}

// WithLogger sets the logger for command diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// Runner invokes pandoc.
type Runner struct {
	binary  string
	exec    Executor
	runtime container.Runtime
	image   string
	logger  *slog.Logger
}

// NewRunner returns a Runner for cfg.Binary (default "pandoc").
func NewRunner(cfg types.ConverterConfig, opts ...Option) *Runner {
	r := &Runner{
		binary: cfg.Binary,
		exec:   osExecutor{},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	if r.binary == "" {
		r.binary = types.DefaultBinary
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Describe returns a short label for the configured backend.
func (r *Runner) Describe() string {
	if r.runtime != nil {
		return r.runtime.Name() + ":" + r.image
	}
	return r.binary
}

// Available reports whether pandoc can be started: the binary is on PATH, or
// the container image exists locally.
func (r *Runner) Available() error {
	if r.runtime != nil {
		return r.runtime.ImageExists(r.image)
	}
	if _, err := r.exec.LookPath(r.binary); err != nil {
		return fmt.Errorf("pandoc binary %q not found: %w", r.binary, err)
	}
	return nil
}

// Version returns the first line of pandoc --version.
func (r *Runner) Version(ctx context.Context) (string, error) {
	name, args := r.binary, []string{"--version"}
	if r.runtime != nil {
		name, args = r.runtime.Command(r.image, mountFallback(), args)
	}

	var stdout, stderr bytes.Buffer
	if err := r.exec.Run(ctx, name, args, &stdout, &stderr); err != nil {
		return "", r.toolError(ctx, name, err, &stdout, &stderr)
	}
	line, _, _ := strings.Cut(stdout.String(), "\n")
	return strings.TrimSpace(line), nil
}

// Convert runs pandoc for req. It returns a *ToolError when pandoc cannot be
// started, exits non-zero, or writes to stderr. Checking that the output
// file exists is left to the caller, which owns the filesystem.
func (r *Runner) Convert(ctx context.Context, req Request) error {
	name := r.binary
	args := req.Args()
	if r.runtime != nil {
		mount, inContainer, err := containerRequest(req)
		if err != nil {
			return err
		}
		name, args = r.runtime.Command(r.image, mount, inContainer.Args())
	}

	r.logger.Debug("running pandoc", "command", name, "args", args)

	var stdout, stderr bytes.Buffer
	if err := r.exec.Run(ctx, name, args, &stdout, &stderr); err != nil {
		return r.toolError(ctx, name, err, &stdout, &stderr)
	}
	if stderr.Len() > 0 {
		return &ToolError{
			Message: "pandoc error: " + strings.TrimSpace(stderr.String()),
			Stdout:  stdout.String(),
			Stderr:  stderr.String(),
		}
	}
	return nil
}

func (r *Runner) toolError(ctx context.Context, name string, err error, stdout, stderr *bytes.Buffer) error {
	te := &ToolError{Stdout: stdout.String(), Stderr: stderr.String(), Err: err}
	detail := strings.TrimSpace(stderr.String())

	var exitErr *exec.ExitError
	switch {
	case ctx.Err() != nil:
		te.Message = fmt.Sprintf("pandoc interrupted: %v", ctx.Err())
		te.Err = ctx.Err()
	case errors.Is(err, exec.ErrNotFound):
		te.Code = CodeNotFound
		te.Message = fmt.Sprintf("pandoc binary %q not found", name)
	case errors.As(err, &exitErr):
		te.Code = strconv.Itoa(exitErr.ExitCode())
		te.Message = fmt.Sprintf("pandoc exited with code %d", exitErr.ExitCode())
		if detail != "" {
			te.Message += ": " + detail
		}
	default:
		te.Message = fmt.Sprintf("running pandoc: %v", err)
		if detail != "" {
			te.Message += ": " + detail
		}
	}
	return te
}
