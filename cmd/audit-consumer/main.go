package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/iliyamo/flight-seat-reservation/internal/config"
	"github.com/iliyamo/flight-seat-reservation/internal/logger"
	"github.com/iliyamo/flight-seat-reservation/internal/queue"
)

// audit-consumer drains the ticket.issued queue into an append-only audit
// log.  It only needs the broker settings, so it does not validate the
// rest of the configuration.
func main() {
	cfg, _ := config.Load()
	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Service: "audit-consumer"})

	path := os.Getenv("AUDIT_LOG_PATH")
	if path == "" {
		path = queue.DefaultAuditLog
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithField("path", path).Info("audit-consumer: starting")
	if err := queue.StartAuditConsumer(ctx, cfg.RabbitMQURL, path, log); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("audit-consumer: stopped")
	}
	log.Info("audit-consumer: stopped")
}
