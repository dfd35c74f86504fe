// The worker binary is one isolated unit: it reads a single run message on
// stdin, grades it and writes a single result message on stdout. The
// dispatcher spawns one of these per run and kills it afterwards.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"

	"github.com/tasklab/autograder/internal/environment"
	"github.com/tasklab/autograder/internal/unit"
)

func main() {
	cfg := environment.ReadEnvConfig()

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	// stdout carries the protocol; all logging goes to stderr.
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: level}))

	if err := unit.Serve(context.Background(), os.Stdin, os.Stdout, cfg.AssetsBase, cfg.AssetsCacheDir, logger); err != nil {
		logger.Error("worker failed", "error", err)
		os.Exit(1)
	}
}
