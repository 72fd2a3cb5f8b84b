// Package logger routes zerolog output for pagemerge commands: a console
// stream, an optional rotated file and an optional Axiom dataset.
package logger

import (
    "fmt"
    "io"
    "os"
    "path/filepath"
    "time"

    "github.com/rs/zerolog"
    "github.com/rs/zerolog/log"
    lumberjack "gopkg.in/natefinch/lumberjack.v2"

    "github.com/local/pagemerge/internal/config"
)

// Options selects the sinks for one process.
type Options struct {
    Logging config.LoggingConfig
    Axiom   config.AxiomConfig
    // Command is stamped on every event ("scan", "merge", "serve").
    Command string
    // Console defaults to os.Stdout; scan and merge pass os.Stderr since
    // stdout carries their output.
    Console io.Writer
}

// Init installs the process logger as log.Logger. The returned func flushes
// pending Axiom events and must be called before exit.
func Init(opts Options) (func(), error) {
    sinks := []io.Writer{consoleSink(opts)}

    if opts.Logging.File != "" {
        file, err := fileSink(opts.Logging)
        if err != nil {
            return func() {}, err
        }
        sinks = append(sinks, file)
    }

    closeFn := func() {}
    if opts.Axiom.Send && opts.Axiom.APIKey != "" {
        ax, err := newAxiomSink(opts.Axiom)
        if err != nil {
            fmt.Fprintf(os.Stderr, "axiom disabled: %v\n", err)
        } else {
            sinks = append(sinks, ax)
            closeFn = ax.Close
        }
    }

    zerolog.TimeFieldFormat = time.RFC3339
    ctx := zerolog.New(io.MultiWriter(sinks...)).Level(parseLevel(opts.Logging.Level)).With().Timestamp()
    if opts.Command != "" {
        ctx = ctx.Str("cmd", opts.Command)
    }
    log.Logger = ctx.Logger()
    return closeFn, nil
}

func consoleSink(opts Options) io.Writer {
    out := opts.Console
    if out == nil {
        out = os.Stdout
    }
    if opts.Logging.Pretty {
        return zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
    }
    return out
}

func fileSink(c config.LoggingConfig) (io.Writer, error) {
    if err := os.MkdirAll(filepath.Dir(c.File), 0o755); err != nil {
        return nil, fmt.Errorf("create log dir: %w", err)
    }
    return &lumberjack.Logger{
        Filename:   c.File,
        MaxSize:    c.MaxSizeMB,
        MaxBackups: c.MaxBackups,
        MaxAge:     c.MaxAgeDays,
        Compress:   c.Compress,
    }, nil
}

// parseLevel falls back to info for unknown or empty names.
func parseLevel(name string) zerolog.Level {
    lvl, err := zerolog.ParseLevel(name)
    if err != nil || lvl == zerolog.NoLevel {
        return zerolog.InfoLevel
    }
    return lvl
}
