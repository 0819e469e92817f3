// Command notifier consumes ticket.booked events and renders the PDF ticket
// for each booking.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/travelhub/busticket/internal/config"
	"github.com/travelhub/busticket/internal/logging"
	"github.com/travelhub/busticket/internal/queue"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("reading .env: %v", err)
	}
	cfg := config.LoadNotifierConfig()
	logger := logging.Init(os.Getenv("APP_ENV"), cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	delivery := queue.PDFDelivery{Dir: cfg.PDFDir, LogPath: cfg.DeliveryLog, Location: cfg.Location}
	consumer := queue.NewConsumer(cfg.AMQPURL, delivery.Handle, logger)

	logger.Info("notifier started", "queue", queue.TicketBookedQueue, "pdf_dir", cfg.PDFDir)
	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("notifier: %v", err)
	}
	logger.Info("notifier stopped")
}
