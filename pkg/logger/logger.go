// Package logger builds blastdb's zap loggers. One process owns a single
// Factory; each subsystem takes a named child logger whose level can be
// tuned on its own, so eviction-by-eviction debug output from the buffer
// pool can be switched on without drowning the disk manager or the REPL.
package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Component names used across the codebase. Config.Components keys match
// these.
const (
	ComponentBufferPool = "bufferpool"
	ComponentDisk       = "disk"
	ComponentCLI        = "cli"
)

// Config holds all the configuration for the logger.
type Config struct {
	// Level sets the default minimum log level (e.g., "debug", "info").
	Level string `yaml:"level"`
	// Format specifies the log output format ("json" or "console").
	Format string `yaml:"format"`
	// OutputFile specifies where logs go: a path, "stdout" or "stderr".
	OutputFile string `yaml:"output_file"`
	// Components overrides the level per subsystem, keyed by component
	// name, e.g. {bufferpool: debug} to watch eviction traffic only.
	Components map[string]string `yaml:"components"`
}

// Factory hands out the process's loggers. Build one at startup and pass
// Component loggers down into the subsystems.
type Factory struct {
	root   *zap.Logger
	sink   zapcore.WriteSyncer
	format string
	level  zapcore.Level
	levels map[string]zapcore.Level
}

// New creates the logger factory. An unparseable default level falls back
// to info; an unparseable component override falls back to the default.
func New(config Config) (*Factory, error) {
	level := parseLevel(config.Level, zapcore.InfoLevel)
	sink, err := openSink(config.OutputFile)
	if err != nil {
		return nil, err
	}

	levels := make(map[string]zapcore.Level, len(config.Components))
	for name, s := range config.Components {
		levels[name] = parseLevel(s, level)
	}

	f := &Factory{
		sink:   sink,
		format: config.Format,
		level:  level,
		levels: levels,
	}
	f.root = f.build(level)
	return f, nil
}

// Root returns the process-wide logger at the default level.
func (f *Factory) Root() *zap.Logger {
	return f.root
}

// Component returns the named subsystem logger, honoring the per-component
// level override when one is configured.
func (f *Factory) Component(name string) *zap.Logger {
	level, ok := f.levels[name]
	if !ok {
		return f.root.Named(name)
	}
	return f.build(level).Named(name)
}

// Sync flushes buffered log entries; call it on shutdown.
func (f *Factory) Sync() error {
	return f.root.Sync()
}

func (f *Factory) build(level zapcore.Level) *zap.Logger {
	core := zapcore.NewCore(newEncoder(f.format), f.sink, level)
	return zap.New(core, zap.AddCaller()).
		With(zap.String("service", "blastdb"))
}

func parseLevel(s string, fallback zapcore.Level) zapcore.Level {
	if s == "" {
		return fallback
	}
	level, err := zapcore.ParseLevel(s)
	if err != nil {
		return fallback
	}
	return level
}

// newEncoder picks the line format: human-oriented console output for the
// REPL, JSON elsewhere.
func newEncoder(format string) zapcore.Encoder {
	if strings.ToLower(format) == "console" {
		config := zap.NewDevelopmentEncoderConfig()
		config.EncodeTime = zapcore.ISO8601TimeEncoder
		config.EncodeLevel = zapcore.CapitalLevelEncoder
		return zapcore.NewConsoleEncoder(config)
	}
	config := zap.NewProductionEncoderConfig()
	config.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapcore.NewJSONEncoder(config)
}

func openSink(outputFile string) (zapcore.WriteSyncer, error) {
	switch strings.ToLower(outputFile) {
	case "stdout", "":
		return zapcore.AddSync(os.Stdout), nil
	case "stderr":
		return zapcore.AddSync(os.Stderr), nil
	default:
		file, err := os.OpenFile(outputFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", outputFile, err)
		}
		return zapcore.AddSync(file), nil
	}
}
