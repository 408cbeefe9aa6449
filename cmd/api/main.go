package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"

	"github.com/cradoe/walletguard/internal/app"
	"github.com/cradoe/walletguard/internal/version"
	"github.com/cradoe/walletguard/internal/worker"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	err := run(logger)
	if err != nil {
		trace := string(debug.Stack())
		logger.Error(err.Error(), "trace", trace)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	showVersion := flag.Bool("version", false, "display version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("version: %s\n", version.Get())
		return nil
	}

	application, err := app.NewApplication(logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	workers := worker.New(&worker.Worker{
		KafkaStream: application.Kafka,
		Mailer:      application.Mailer,
		Helper:      application.Helper(),
		Ctx:         ctx,
	})

	go workers.ReceiptWorker()
	go workers.SecurityAlertWorker()

	return application.ServeHTTP()
}
