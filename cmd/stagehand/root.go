package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/dshills/stagehand/internal/config"
	"github.com/dshills/stagehand/internal/event"
	"github.com/dshills/stagehand/internal/git"
	"github.com/dshills/stagehand/internal/logging"
	"github.com/dshills/stagehand/internal/telemetry"
)

// gitFailure is returned when git ran but reported failure. Its output is
// printed verbatim instead of an error message.
type gitFailure struct {
	op     string
	output string
	err    error
}

func (e *gitFailure) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.op, e.err)
	}
	return e.op + " failed"
}

func (e *gitFailure) Unwrap() error { return e.err }

func checkResult(op string, res git.ExecResult) error {
	if res.Success {
		return nil
	}
	return &gitFailure{op: op, output: res.Output, err: res.Err}
}

// globalFlags maps persistent flags to configuration keys.
var globalFlags = map[string]string{
	"log-level": "log.level",
	"scanner":   "status.scanner",
	"timeout":   "git.command_timeout",
}

// app is the state shared by every subcommand of one invocation.
type app struct {
	stdout io.Writer
	stderr io.Writer

	repoPath   string
	configPath string
	viper      *viper.Viper

	cfg       *config.Config
	logger    *zap.Logger
	closeLog  func()
	tracing   *telemetry.Provider
	span      trace.Span
	bus       *event.Bus
	publisher *event.BusAdapter
	manager   *git.Manager
	repo      *git.Repository
}

// execute runs one invocation and releases everything it opened, whether or
// not the command succeeded.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root, a := newRootCmd(stdout, stderr)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if terr := a.teardown(ctx); terr != nil && err == nil {
		err = terr
	}
	return err
}

func newRootCmd(stdout, stderr io.Writer) (*cobra.Command, *app) {
	a := &app{
		stdout: stdout,
		stderr: stderr,
		viper:  viper.New(),
	}

	root := &cobra.Command{
		Use:           "stagehand",
		Short:         "Stage, commit and inspect git working trees",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVarP(&a.repoPath, "repo", "C", ".", "Path inside the repository")
	flags.StringVar(&a.configPath, "config", "", "Configuration file (default: .stagehand.toml or .stagehand.yaml in the repository)")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	flags.String("scanner", "", "Status scanner (porcelain, gogit)")
	flags.Duration("timeout", 0, "Timeout for each git command")

	root.AddCommand(
		newStatusCmd(a),
		newStageCmd(a),
		newUnstageCmd(a),
		newCommitCmd(a),
		newAmendCmd(a),
		newResetCmd(a),
		newCheckoutCmd(a),
		newCheckoutFileCmd(a),
		newResolveCmd(a),
		newCherryPickCmd(a),
		newWipCmd(a),
		newWatchCmd(a),
		newVersionCmd(a),
	)
	return root, a
}

// bindFlags binds the changed persistent flags to their configuration keys.
// Unchanged flags are left unbound so file and environment values win over
// flag zero values.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) error {
	var result error
	flags.VisitAll(func(f *pflag.Flag) {
		key, ok := keys[f.Name]
		if !ok || !f.Changed {
			return
		}
		if err := v.BindPFlag(key, f); err != nil {
			result = multierror.Append(result, errors.Wrapf(err, "bind --%s", f.Name))
		}
	})
	return result
}

// needsRepository reports whether cmd operates on a repository.
func needsRepository(cmd *cobra.Command) bool {
	return cmd.Annotations["repository"] != "false"
}

func (a *app) setup(cmd *cobra.Command) error {
	if !needsRepository(cmd) {
		return nil
	}

	if err := bindFlags(a.viper, cmd.Root().PersistentFlags(), globalFlags); err != nil {
		return err
	}

	root, err := git.Discover(a.repoPath)
	if err != nil {
		return errors.Wrapf(err, "%s", a.repoPath)
	}

	cfg, err := config.Load(config.LoadOptions{
		Path:       a.configPath,
		SearchDirs: []string{root},
		Viper:      a.viper,
	})
	if err != nil {
		return err
	}
	a.cfg = cfg

	logger, closeLog, err := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
		Writer: a.stderr,
	})
	if err != nil {
		return err
	}
	logging.Install(logger)
	a.logger = logger
	a.closeLog = closeLog

	a.tracing, err = telemetry.Init(telemetry.Options{
		Service: "stagehand",
		Version: version,
		Enabled: cfg.Telemetry.Enabled,
		File:    cfg.Telemetry.File,
	})
	if err != nil {
		return err
	}

	ctx, span := a.tracing.Start(cmd.Context(), "stagehand."+cmd.Name(),
		attribute.String("repository", root))
	a.span = span
	cmd.SetContext(ctx)

	a.bus = event.NewBus(event.WithLogger(logger))
	a.publisher = event.NewBusAdapter(a.bus, "git", logger)
	a.manager = git.NewManager(git.ManagerConfig{
		Exec:     cfg.ExecConfig(logger),
		EventBus: a.publisher,
		Logger:   logger,
	})

	a.repo, err = a.manager.Open(root)
	if err != nil {
		return err
	}

	otelzap.Ctx(ctx).Debug("Opened repository",
		zap.String("command", cmd.Name()),
		zap.String("path", root),
		zap.String("scanner", cfg.Status.Scanner))
	return nil
}

func (a *app) teardown(ctx context.Context) error {
	var result error
	if a.span != nil {
		a.span.End()
	}
	if a.manager != nil {
		if err := a.manager.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if a.publisher != nil {
		_ = a.publisher.Close()
	}
	if a.bus != nil {
		if err := a.bus.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if a.tracing != nil {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := a.tracing.Shutdown(shutdownCtx); err != nil {
			result = multierror.Append(result, errors.Wrap(err, "flush traces"))
		}
	}
	if a.closeLog != nil {
		a.closeLog()
	}
	return result
}

// scan runs the configured status scanner.
func (a *app) scan(ctx context.Context) (*git.FileStatusTable, error) {
	scanner, err := a.repo.Scanner(a.cfg.Status.Scanner)
	if err != nil {
		return nil, err
	}
	return scanner.Scan(ctx)
}
