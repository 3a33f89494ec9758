package git

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ExecResult is the outcome of one git invocation.
//
// Success and Output are the contract callers rely on: Output holds the
// combined stdout/stderr text suitable for display. Err is a diagnostic for
// callers that want to distinguish failure causes (timeouts, missing binary);
// it is nil whenever Success is true.
type ExecResult struct {
	Success bool
	Output  string
	Err     error
}

// Succeeded returns a successful result with the given output.
func Succeeded(output string) ExecResult {
	return ExecResult{Success: true, Output: output}
}

// Failed returns a failed result. An empty output is replaced with the
// error text so there is always something to show the user.
func Failed(output string, err error) ExecResult {
	if strings.TrimSpace(output) == "" && err != nil {
		output = err.Error()
	}
	return ExecResult{Output: output, Err: err}
}

// Executor runs git commands against a single repository working directory.
type Executor interface {
	Run(ctx context.Context, cmd Command) ExecResult
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, cmd Command) ExecResult

// Run calls f(ctx, cmd).
func (f ExecutorFunc) Run(ctx context.Context, cmd Command) ExecResult {
	return f(ctx, cmd)
}

// DefaultEnv keeps git from waiting on a terminal or an editor.
var DefaultEnv = []string{
	"GIT_TERMINAL_PROMPT=0",
	"GIT_EDITOR=true",
	"GIT_MERGE_AUTOEDIT=no",
}

// LiteralPathspecs is always set last in the command environment, after
// ExecConfig.Env, so paths reach git verbatim and never act as globs.
const LiteralPathspecs = "GIT_LITERAL_PATHSPECS=1"

// ExecConfig configures an ExecRunner.
type ExecConfig struct {
	// Binary is the git executable. Defaults to "git".
	Binary string

	// Timeout bounds each command. Zero means no limit.
	Timeout time.Duration

	// Env is appended to the process environment. Defaults to DefaultEnv.
	Env []string

	// Logger receives command logs. Defaults to a no-op logger.
	Logger *zap.Logger
}

// ExecRunner executes the git binary in a fixed working directory.
type ExecRunner struct {
	dir     string
	binary  string
	timeout time.Duration
	env     []string
	logger  *zap.Logger
	tracer  trace.Tracer
}

// NewExecRunner creates an executor rooted at dir.
func NewExecRunner(dir string, cfg ExecConfig) *ExecRunner {
	if strings.TrimSpace(cfg.Binary) == "" {
		cfg.Binary = "git"
	}
	if cfg.Env == nil {
		cfg.Env = DefaultEnv
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &ExecRunner{
		dir:     dir,
		binary:  cfg.Binary,
		timeout: cfg.Timeout,
		env:     cfg.Env,
		logger:  cfg.Logger,
		tracer:  otel.Tracer("github.com/dshills/stagehand/internal/git"),
	}
}

// Dir returns the working directory commands run in.
func (e *ExecRunner) Dir() string {
	return e.dir
}

// Run executes cmd and reports the exit status as Success.
func (e *ExecRunner) Run(ctx context.Context, cmd Command) ExecResult {
	if err := cmd.Err(); err != nil {
		e.logger.Warn("Rejected git command", zap.String("verb", cmd.Verb()), zap.Error(err))
		return Failed("", err)
	}

	args := cmd.Args()

	ctx, span := e.tracer.Start(ctx, "git."+cmd.Verb(),
		trace.WithAttributes(
			attribute.Int("git.args_count", len(args)),
			attribute.String("git.dir", e.dir),
		),
	)
	defer span.End()

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	c := exec.CommandContext(ctx, e.binary, args...)
	c.Dir = e.dir
	c.Env = append(append(os.Environ(), e.env...), LiteralPathspecs)

	var out bytes.Buffer
	c.Stdout = &out
	c.Stderr = &out

	start := time.Now()
	err := c.Run()
	elapsed := time.Since(start)
	output := out.String()

	span.SetAttributes(attribute.Bool("git.success", err == nil))

	if err != nil {
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			err = errors.Wrapf(ErrCommandTimeout, "git %s after %s", cmd.Verb(), e.timeout)
		case errors.Is(err, exec.ErrNotFound):
			err = errors.Wrapf(ErrGitNotFound, "%s", e.binary)
		default:
			err = errors.Wrapf(err, "git %s", cmd.Verb())
		}

		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.Warn("Git command failed",
			zap.String("command", cmd.String()),
			zap.Duration("elapsed", elapsed),
			zap.String("output", strings.TrimSpace(output)),
			zap.Error(err))
		return Failed(output, err)
	}

	e.logger.Debug("Git command completed",
		zap.String("command", cmd.String()),
		zap.Duration("elapsed", elapsed))

	return Succeeded(output)
}
