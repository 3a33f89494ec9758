// Package logging builds the zap logger shared by every stagehand component.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

// Output formats.
const (
	FormatAuto    = "auto"
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Options configures New.
type Options struct {
	// Level is debug, info, warn or error. Defaults to warn.
	Level string

	// Format is auto, console or json. Auto picks console when the writer
	// is a terminal.
	Format string

	// File, when set, receives JSON logs in addition to the writer.
	File string

	// Writer defaults to os.Stderr.
	Writer io.Writer
}

// ParseLevel converts a level name to a zap level.
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "warn", "warning":
		return zapcore.WarnLevel, nil
	case "debug", "trace":
		return zapcore.DebugLevel, nil
	case "info":
		return zapcore.InfoLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.WarnLevel, errors.Newf("unknown log level %q", level)
	}
}

// New creates a logger. The returned cleanup flushes and closes the log file.
func New(opts Options) (*zap.Logger, func(), error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}
	if opts.Writer == nil {
		opts.Writer = os.Stderr
	}

	cores := []zapcore.Core{
		zapcore.NewCore(newEncoder(resolveFormat(opts.Format, opts.Writer)), zapcore.AddSync(opts.Writer), level),
	}

	var file *os.File
	if opts.File != "" {
		file, err = os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, errors.Wrap(err, "open log file")
		}
		cores = append(cores, zapcore.NewCore(newEncoder(FormatJSON), zapcore.AddSync(file), level))
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller())

	cleanup := func() {
		_ = logger.Sync()
		if file != nil {
			_ = file.Close()
		}
	}
	return logger, cleanup, nil
}

// Install makes logger the global otelzap logger, so otelzap.Ctx(ctx) writes
// through it with the span of ctx attached.
func Install(logger *zap.Logger) {
	otelzap.ReplaceGlobals(otelzap.New(logger))
}

func resolveFormat(format string, w io.Writer) string {
	switch format {
	case FormatConsole, FormatJSON:
		return format
	}
	if f, ok := w.(interface{ Fd() uintptr }); ok && term.IsTerminal(int(f.Fd())) {
		return FormatConsole
	}
	return FormatJSON
}

func newEncoder(format string) zapcore.Encoder {
	if format == FormatConsole {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		return zapcore.NewConsoleEncoder(cfg)
	}
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapcore.NewJSONEncoder(cfg)
}
