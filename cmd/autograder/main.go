// The autograder binary is the interactive surface: grade one submission
// from local files, or run a behaviour scenario file end to end.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/lmittmann/tint"
	"github.com/urfave/cli/v3"

	"github.com/tasklab/autograder"
	"github.com/tasklab/autograder/api"
	"github.com/tasklab/autograder/internal/behave"
	"github.com/tasklab/autograder/internal/environment"
	"github.com/tasklab/autograder/internal/unit"
)

func main() {
	cmd := &cli.Command{
		Name:  "autograder",
		Usage: "run submitted tests against submitted solutions",
		Commands: []*cli.Command{
			runCommand(),
			behaveCommand(),
		},
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "grade one submission from local files",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "solution", Usage: "path to the solution source", Required: true},
			&cli.StringFlag{Name: "tests", Usage: "path to the test source", Required: true},
			&cli.StringFlag{Name: "language", Usage: "js, python or ocaml; detected when omitted"},
			&cli.IntFlag{Name: "timeout-ms", Usage: "execution budget in milliseconds"},
			&cli.StringFlag{Name: "server", Usage: "grade through a remote server instead of a local worker"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			solution, err := os.ReadFile(c.String("solution"))
			if err != nil {
				return fmt.Errorf("failed to read solution: %w", err)
			}
			tests, err := os.ReadFile(c.String("tests"))
			if err != nil {
				return fmt.Errorf("failed to read tests: %w", err)
			}

			engine := buildEngine(c.String("server"))
			res := engine.Run(ctx, api.RunRequest{
				Solution:  string(solution),
				Tests:     string(tests),
				Language:  api.Language(c.String("language")),
				TimeoutMs: int(c.Int("timeout-ms")),
			})

			fmt.Print(res.Output)
			printVerdict(res)
			if !res.Success {
				return cli.Exit("", 1)
			}
			return nil
		},
	}
}

func behaveCommand() *cli.Command {
	return &cli.Command{
		Name:  "behave",
		Usage: "run a behaviour scenario file against the engine",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Usage: "path to the scenario TOML file", Required: true},
			&cli.StringFlag{Name: "server", Usage: "grade through a remote server instead of a local worker"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cases, err := behave.Parse(c.String("file"))
			if err != nil {
				return err
			}

			engine := buildEngine(c.String("server"))
			failed := 0
			for _, bc := range cases {
				res := engine.Run(ctx, bc.Request)
				mismatches := behave.Check(bc, res)
				if len(mismatches) == 0 {
					color.Green("ok   %s", bc.Name)
					continue
				}
				failed++
				color.Red("FAIL %s", bc.Name)
				for _, m := range mismatches {
					fmt.Printf("     %s\n", m)
				}
			}

			fmt.Printf("%d scenarios, %d failed\n", len(cases), failed)
			if failed > 0 {
				return cli.Exit("", 1)
			}
			return nil
		},
	}
}

func buildEngine(serverURL string) *autograder.Engine {
	cfg := environment.ReadEnvConfig()

	level := slog.LevelWarn
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: level}))

	var dispatcher autograder.Dispatcher
	if serverURL != "" {
		dispatcher = autograder.NewClient(serverURL, cfg.ServiceSecret)
	} else {
		dispatcher = unit.NewDispatcher(unit.Options{
			WorkerPath: cfg.WorkerPath,
			AssetsBase: cfg.AssetsBase,
			Logger:     logger,
		})
	}
	return autograder.NewEngine(dispatcher, logger)
}

func printVerdict(res api.RunResult) {
	switch {
	case res.Success:
		color.Green("PASS")
	case res.Timeout:
		color.Yellow("TIMEOUT")
	default:
		kind := "error"
		if res.Error != nil {
			kind = string(*res.Error)
		}
		color.Red("FAIL (%s)", kind)
	}
}
