// The server binary hosts grading over HTTP and, when configured, pulls
// grading requests from an SQS queue as well. Both intakes share one engine
// backed by the worker-process dispatcher.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/lmittmann/tint"
	"github.com/nats-io/nats.go"
	"golang.org/x/sync/errgroup"

	"github.com/tasklab/autograder"
	"github.com/tasklab/autograder/internal/environment"
	"github.com/tasklab/autograder/internal/events"
	"github.com/tasklab/autograder/internal/events/natsev"
	"github.com/tasklab/autograder/internal/queue"
	"github.com/tasklab/autograder/internal/server"
	"github.com/tasklab/autograder/internal/unit"
)

func main() {
	cfg := environment.ReadEnvConfig()

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dispatcher := unit.NewDispatcher(unit.Options{
		WorkerPath: cfg.WorkerPath,
		AssetsBase: cfg.AssetsBase,
		Logger:     logger,
	})
	engine := autograder.NewEngine(dispatcher, logger)

	var pub events.Publisher = events.LogPublisher{Logger: logger}
	if cfg.NatsURL != "" {
		nc, err := nats.Connect(cfg.NatsURL)
		if err != nil {
			logger.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer nc.Close()
		pub = natsev.New(nc, "autograder.runs", logger)
		logger.Info("publishing run events to NATS", "url", cfg.NatsURL)
	}

	g, ctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: server.New(engine, cfg.ServiceSecret, pub, logger).Handler(),
	}
	g.Go(func() error {
		logger.Info("listening", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		return srv.Shutdown(context.Background())
	})

	if cfg.SubmQueueURL != "" && cfg.ResponseQueueURL != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
		consumer := queue.NewConsumer(
			sqs.NewFromConfig(awsCfg),
			cfg.SubmQueueURL,
			cfg.ResponseQueueURL,
			engine,
			pub,
			logger,
		)
		g.Go(func() error {
			logger.Info("polling submission queue", "queue", cfg.SubmQueueURL)
			err := consumer.Poll(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}
