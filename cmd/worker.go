package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/frahmantamala/expense-tracker/internal/amqp"
	"github.com/frahmantamala/expense-tracker/internal/core/events"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start background workers",
}

var eventWorkerCmd = &cobra.Command{
	Use:   "events",
	Short: "Consume expense change events from AMQP",
	Long:  `Consume the expense change feed published by the server and write an audit log line per event.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return startEventWorker()
	},
}

func startEventWorker() error {
	cfg, lg, err := bootstrap()
	if err != nil {
		return err
	}
	if !cfg.Events.AMQPEnabled {
		return errors.New("events.amqp_enabled is false; nothing to consume")
	}

	client, err := amqp.NewClient(cfg.Events.AMQPURL, cfg.Events.ExchangeName, cfg.Events.QueueName, lg)
	if err != nil {
		return fmt.Errorf("failed to connect to AMQP: %w", err)
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bus := events.NewEventBus(lg)
	bus.Subscribe(events.AllEvents, events.NewAuditHandler(lg))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return client.Consume(gctx, bus.PublishSync)
	})

	lg.Info("event worker is running. Press Ctrl+C to stop.", "queue", cfg.Events.QueueName)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("event worker: %w", err)
	}

	lg.Info("event worker stopped")
	return nil
}

func init() {
	workerCmd.AddCommand(eventWorkerCmd)
}
