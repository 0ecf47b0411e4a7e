// Command hipsgen generates HiPS tile pyramids from a single image and moves them
// between storage layouts.
package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/subcommands"
	_ "github.com/mattn/go-sqlite3"
)

// newLogger returns a slog logger writing timestamped records to w.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	return slog.New(log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	}))
}

type ctxKey int

const loggerKey ctxKey = 0

func withLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

func loggerFromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}

// since logs msg with the time elapsed from start.
func since(logger *slog.Logger, start time.Time, msg string, args ...any) {
	logger.Info(msg, append(args, "elapsed", time.Since(start).Round(time.Millisecond))...)
}

func main() {
	verbose := flag.Bool("v", false, "Verbose (debug) logging")

	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(&generateCmd{}, "")
	subcommands.Register(&verifyCmd{}, "")
	subcommands.Register(&convertCmd{}, "layouts")
	subcommands.Register(&exportCmd{}, "layouts")
	subcommands.Register(&importCmd{}, "layouts")

	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	ctx = withLogger(ctx, newLogger(os.Stderr, *verbose))
	status := subcommands.Execute(ctx)
	stop()
	os.Exit(int(status))
}
