package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/frahmantamala/expense-tracker/internal/amqp"
	"github.com/frahmantamala/expense-tracker/internal/core/events"
	"github.com/spf13/cobra"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Event management commands",
	Long:  `Publish sample expense change events to check the AMQP feed and the events worker.`,
}

var publishEventCmd = &cobra.Command{
	Use:       "publish [event-type]",
	Short:     "Publish a sample expense change event",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{events.EventTypeExpenseCreated, events.EventTypeExpenseUpdated, events.EventTypeExpenseDeleted},
	RunE: func(cmd *cobra.Command, args []string) error {
		return publishTestEvent(cmd.Context(), args[0])
	},
}

var (
	eventExpenseID int64
	eventUserID    int64
	eventAmount    string
)

func publishTestEvent(ctx context.Context, eventType string) error {
	switch eventType {
	case events.EventTypeExpenseCreated, events.EventTypeExpenseUpdated, events.EventTypeExpenseDeleted:
	default:
		return fmt.Errorf("unknown event type %q", eventType)
	}

	cfg, lg, err := bootstrap()
	if err != nil {
		return err
	}

	bus := events.NewEventBus(lg)
	bus.Subscribe(events.AllEvents, events.NewAuditHandler(lg))

	if cfg.Events.AMQPEnabled {
		client, err := amqp.NewClient(cfg.Events.AMQPURL, cfg.Events.ExchangeName, cfg.Events.QueueName, lg)
		if err != nil {
			return fmt.Errorf("failed to connect to AMQP: %w", err)
		}
		defer client.Close()
		bus.Subscribe(events.AllEvents, events.NewForwarder(client))
	} else {
		lg.Warn("AMQP disabled; the event only reaches the local audit log")
	}

	now := time.Now().UTC()
	event := events.NewExpenseEvent(eventType, events.ExpenseChange{
		ExpenseID:  eventExpenseID,
		UserID:     eventUserID,
		CategoryID: 1,
		Amount:     eventAmount,
		Type:       "expense",
		Date:       now.Format("2006-01-02"),
	}, now)

	lg.Info("publishing test event", "event_type", eventType, "event_id", event.ID)
	if err := bus.PublishSync(ctx, event); err != nil {
		return err
	}

	fmt.Printf("Published %s (%s)\n", eventType, event.ID)
	return nil
}

func init() {
	publishEventCmd.Flags().Int64Var(&eventExpenseID, "expense-id", 1, "expense id carried by the event")
	publishEventCmd.Flags().Int64Var(&eventUserID, "user-id", 1, "owner id carried by the event")
	publishEventCmd.Flags().StringVar(&eventAmount, "amount", "10.00", "amount carried by the event")

	eventCmd.AddCommand(publishEventCmd)
}
