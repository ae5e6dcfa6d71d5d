package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/donation-checkout/internal/core/datamodel/donation"
	paymentgatewaytypes "github.com/frahmantamala/donation-checkout/internal/core/datamodel/paymentgateway"
	"github.com/frahmantamala/donation-checkout/internal/core/events"
	"github.com/frahmantamala/donation-checkout/internal/history"
	historypostgres "github.com/frahmantamala/donation-checkout/internal/history/postgres"
	"github.com/frahmantamala/donation-checkout/pkg/logger"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Event management commands",
	Long:  `Publish donation events through the history listener against the configured database`,
}

var publishEventCmd = &cobra.Command{
	Use:   "publish [event-type]",
	Short: "Publish a sample donation event",
	Long: `Publish a sample donation.completed or donation.record_failed event to an event bus with
the history listener attached, so the receipt row can be checked in the database.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return publishTestEvent(args[0])
	},
}

var eventFlags struct {
	userID   string
	amount   float64
	campaign string
	reason   string
}

func publishTestEvent(eventType string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	lg := logger.L()

	db, err := initDB(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	gormDB, err := openGorm(cfg.Database, db)
	if err != nil {
		return err
	}
	if err := ensureLocalSchema(cfg.Database, gormDB); err != nil {
		return err
	}

	eventBus := events.NewEventBus(lg)
	service := history.NewService(historypostgres.NewReceiptRepository(gormDB), lg)
	history.NewEventHandler(service, lg).RegisterEventHandlers(eventBus)

	now := time.Now()
	campaign := donation.Campaign{ID: eventFlags.campaign, Title: "CLI test campaign"}
	stamp := fmt.Sprintf("%d", now.Unix())

	var event events.Event
	switch eventType {
	case events.EventTypeDonationCompleted:
		receipt := donation.Receipt{
			ReceiptID:     "RCP-CLI-" + stamp,
			DonorName:     donation.AnonymousDonorName,
			Amount:        eventFlags.amount,
			CampaignTitle: campaign.Title,
			Date:          now,
			PaymentMethod: donation.MethodUPI,
			TransactionID: "TXN-CLI-" + stamp,
			Synthesized:   true,
		}
		event = events.NewDonationCompletedEvent(eventFlags.userID, donation.Donation{ID: "cli-" + stamp}, receipt, campaign)
	case events.EventTypeDonationRecordFailed:
		payload := donation.CreatePayload{
			CampaignID:    campaign.ID,
			Amount:        eventFlags.amount,
			Currency:      donation.DefaultCurrency,
			PaymentMethod: donation.MethodRazorpay,
			DonorName:     donation.AnonymousDonorName,
		}
		confirmation := paymentgatewaytypes.Confirmation{PaymentID: "pay_cli_" + stamp, OrderID: "order_cli_" + stamp}
		event = events.NewDonationRecordFailedEvent(eventFlags.userID, payload, confirmation, campaign, eventFlags.reason)
	default:
		return fmt.Errorf("unknown event type %q (want %s or %s)", eventType,
			events.EventTypeDonationCompleted, events.EventTypeDonationRecordFailed)
	}

	lg.Info("publishing test event", "event_type", eventType, "event_id", event.EventID())

	ctx := context.Background()
	if err := eventBus.PublishSync(ctx, event); err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}

	lg.Info("test event published successfully", "event_id", event.EventID())
	return nil
}

func init() {
	f := publishEventCmd.Flags()
	f.StringVar(&eventFlags.userID, "user", "cli-user", "user id the event belongs to")
	f.Float64Var(&eventFlags.amount, "amount", 100, "donation amount")
	f.StringVar(&eventFlags.campaign, "campaign", "cli-campaign", "campaign id")
	f.StringVar(&eventFlags.reason, "reason", "simulated upstream failure", "failure reason for donation.record_failed")

	eventCmd.AddCommand(publishEventCmd)
}
