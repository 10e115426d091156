// Package logging sets up the core's logger and adapts it to the
// btclog.Logger interface shape the wider btcsuite ecosystem expects,
// mirroring txscript/doc.go's mention of a dedicated logrus.go file and
// engine.go's direct logrus usage. Every other package in this module takes
// a plain *logrus.Logger rather than this facade directly, so that stage
// code stays decoupled from btclog; New and NewBtclog exist for embedders
// that want to wire this compiler's output into a larger btcsuite-style
// application's existing log plumbing.
package logging

import (
	"io"
	"os"

	"github.com/btcsuite/btclog"
	"github.com/mattn/go-colorable"
	"github.com/sirupsen/logrus"
	"github.com/snowzach/rotatefilehook"
)

// Config controls where the core's log output goes and how verbose it is.
// Verbosity follows spec.md's levels: 0 silent, 1 warnings (e.g. branch
// imbalance, unreachable code after OP_RETURN), 2 informational rewrite
// notes, 3 full per-instruction/per-assumption trace plus go-spew dumps.
type Config struct {
	Verbosity int

	// Colorize enables ANSI-colored level tags on stdout via go-colorable;
	// only meaningful when stdout is a terminal.
	Colorize bool

	// FilePath, when non-empty, additionally writes logs to a rotating
	// file via snowzach/rotatefilehook (10MB files, 5 backups, 28 days).
	FilePath string
}

// New builds a *logrus.Logger per cfg. Every package in this module logs
// through the returned logger directly.
func New(cfg Config) *logrus.Logger {
	log := logrus.New()
	log.SetLevel(levelForVerbosity(cfg.Verbosity))
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	var out io.Writer = os.Stdout
	if cfg.Colorize {
		out = colorable.NewColorableStdout()
	}
	log.SetOutput(out)

	if cfg.FilePath != "" {
		hook, err := rotatefilehook.NewRotateFileHook(rotatefilehook.RotateFileConfig{
			Filename:   cfg.FilePath,
			MaxSize:    10,
			MaxBackups: 5,
			MaxAge:     28,
			Level:      levelForVerbosity(cfg.Verbosity),
			Formatter:  &logrus.JSONFormatter{},
		})
		if err == nil {
			log.AddHook(hook)
		} else {
			log.Warnf("logging: could not attach rotating file hook at %s: %v", cfg.FilePath, err)
		}
	}
	return log
}

func levelForVerbosity(v int) logrus.Level {
	switch {
	case v >= 3:
		return logrus.TraceLevel
	case v == 2:
		return logrus.DebugLevel
	case v == 1:
		return logrus.InfoLevel
	default:
		return logrus.ErrorLevel
	}
}

// btclogAdapter satisfies btclog.Logger by forwarding to an underlying
// *logrus.Logger, for embedders that plug this compiler's output into an
// existing btcsuite-style subsystem logger registry.
type btclogAdapter struct {
	log *logrus.Logger
}

// NewBtclog adapts log to btclog.Logger.
func NewBtclog(log *logrus.Logger) btclog.Logger {
	return &btclogAdapter{log: log}
}

func (a *btclogAdapter) Tracef(format string, params ...interface{})    { a.log.Tracef(format, params...) }
func (a *btclogAdapter) Debugf(format string, params ...interface{})    { a.log.Debugf(format, params...) }
func (a *btclogAdapter) Infof(format string, params ...interface{})     { a.log.Infof(format, params...) }
func (a *btclogAdapter) Warnf(format string, params ...interface{})     { a.log.Warnf(format, params...) }
func (a *btclogAdapter) Errorf(format string, params ...interface{})    { a.log.Errorf(format, params...) }
func (a *btclogAdapter) Criticalf(format string, params ...interface{}) { a.log.Errorf(format, params...) }

func (a *btclogAdapter) Trace(args ...interface{})    { a.log.Trace(args...) }
func (a *btclogAdapter) Debug(args ...interface{})    { a.log.Debug(args...) }
func (a *btclogAdapter) Info(args ...interface{})     { a.log.Info(args...) }
func (a *btclogAdapter) Warn(args ...interface{})     { a.log.Warn(args...) }
func (a *btclogAdapter) Error(args ...interface{})    { a.log.Error(args...) }
func (a *btclogAdapter) Critical(args ...interface{}) { a.log.Error(args...) }

func (a *btclogAdapter) Level() btclog.Level {
	return btclogLevel(a.log.GetLevel())
}

func (a *btclogAdapter) SetLevel(level btclog.Level) {
	a.log.SetLevel(logrusLevel(level))
}

func btclogLevel(l logrus.Level) btclog.Level {
	switch l {
	case logrus.TraceLevel:
		return btclog.LevelTrace
	case logrus.DebugLevel:
		return btclog.LevelDebug
	case logrus.InfoLevel:
		return btclog.LevelInfo
	case logrus.WarnLevel:
		return btclog.LevelWarn
	default:
		return btclog.LevelError
	}
}

func logrusLevel(l btclog.Level) logrus.Level {
	switch l {
	case btclog.LevelTrace:
		return logrus.TraceLevel
	case btclog.LevelDebug:
		return logrus.DebugLevel
	case btclog.LevelInfo:
		return logrus.InfoLevel
	case btclog.LevelWarn:
		return logrus.WarnLevel
	default:
		return logrus.ErrorLevel
	}
}
