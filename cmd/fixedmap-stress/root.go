package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"
	"github.com/urfave/cli/v3"
)

// globalFlags are the flags that should be available on all commands
var globalFlags = []cli.Flag{
	&cli.StringFlag{
		Name:  "log-format",
		Value: "pretty",
		Usage: "Log output format. One of: pretty, json.",
	},
	&cli.StringFlag{
		Name:    "log-level",
		Aliases: []string{"l"},
		Value:   "info",
		Usage:   "Set the log level. One of: debug, info, warn, error.",
	},
}

type loggerKey struct{}

func rootCommand() *cli.Command {
	return &cli.Command{
		Name:  "fixedmap-stress",
		Usage: "Concurrent counter workload for the fixed-capacity lock-free map",
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			l := newLogger(os.Stderr, cmd.String("log-format"), cmd.String("log-level"))
			slog.SetDefault(l)
			return context.WithValue(ctx, loggerKey{}, l), nil
		},
		Flags: globalFlags,
		Commands: []*cli.Command{
			runCommand(),
		},
	}
}

func newLogger(w io.Writer, format, level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      lvl,
		TimeFormat: "[15:04:05.000]", // millisecond
	}))
}

func loggerFrom(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
