package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/donation-checkout/internal"
	"github.com/frahmantamala/donation-checkout/internal/auth"
	"github.com/frahmantamala/donation-checkout/internal/checkout"
	"github.com/frahmantamala/donation-checkout/internal/core/datamodel/donation"
	"github.com/frahmantamala/donation-checkout/internal/donationapi"
	"github.com/frahmantamala/donation-checkout/pkg/logger"
)

var donateFlags struct {
	token         string
	campaignID    string
	amount        float64
	firstName     string
	lastName      string
	email         string
	phone         string
	address       string
	city          string
	state         string
	pincode       string
	method        string
	upiID         string
	message       string
	anonymous     bool
	taxDeductible bool
	frequency     string
}

var donateCmd = &cobra.Command{
	Use:   "donate",
	Short: "Make a donation from the command line",
	Long: `Drive one checkout session through amount, donor details and review, then submit it
and print the receipt. Hosted gateway payments need a browser and are not available here.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDonate(cmd.Context())
	},
}

func init() {
	f := donateCmd.Flags()
	f.StringVar(&donateFlags.token, "token", os.Getenv("DONATION_API_TOKEN"), "bearer token for the Donation API")
	f.StringVar(&donateFlags.campaignID, "campaign", "", "campaign id")
	f.Float64Var(&donateFlags.amount, "amount", 0, "amount in rupees")
	f.StringVar(&donateFlags.firstName, "first-name", "", "donor first name")
	f.StringVar(&donateFlags.lastName, "last-name", "", "donor last name")
	f.StringVar(&donateFlags.email, "email", "", "donor email")
	f.StringVar(&donateFlags.phone, "phone", "", "donor mobile number")
	f.StringVar(&donateFlags.address, "address", "", "street address, required for tax-deductible donations")
	f.StringVar(&donateFlags.city, "city", "", "city")
	f.StringVar(&donateFlags.state, "state", "", "state")
	f.StringVar(&donateFlags.pincode, "pincode", "", "pincode")
	f.StringVar(&donateFlags.method, "method", string(donation.MethodUPI), "payment method (UPI, CreditCard, DebitCard, BankTransfer, NetBanking)")
	f.StringVar(&donateFlags.upiID, "upi-id", "", "UPI id")
	f.StringVar(&donateFlags.message, "message", "", "message to the campaign")
	f.BoolVar(&donateFlags.anonymous, "anonymous", false, "hide the donor name on the receipt")
	f.BoolVar(&donateFlags.taxDeductible, "tax-deductible", false, "request a tax-deductible receipt")
	f.StringVar(&donateFlags.frequency, "recurring", "", "make the donation recurring (monthly, quarterly, yearly)")

	_ = donateCmd.MarkFlagRequired("campaign")
	_ = donateCmd.MarkFlagRequired("amount")
}

func runDonate(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	lg := logger.L()

	method := donation.PaymentMethod(donateFlags.method)
	if method.UsesGateway() {
		return fmt.Errorf("payment method %s needs the hosted checkout; use the web flow", method)
	}

	ctx = internal.ContextWithToken(ctx, donateFlags.token)
	client := donationapi.NewClient(cfg.DonationAPI.BaseURL, cfg.DonationAPI.Timeout, lg)

	campaign, err := client.GetCampaign(ctx, donateFlags.campaignID)
	if err != nil {
		return fmt.Errorf("load campaign: %w", err)
	}

	controller := checkout.NewController(*campaign, checkout.Dependencies{
		Donations: client,
		Profiles:  auth.NewFallbackProfileProvider(client, lg),
		Logger:    lg,
	})
	if donateFlags.token != "" {
		if err := controller.Open(ctx); err != nil {
			lg.Warn("continuing without profile pre-fill", "error", err)
		}
	}

	if err := controller.Edit(applyDonateFlags); err != nil {
		return err
	}

	for controller.Step() < checkout.StepReview {
		if _, err := controller.Next(); err != nil {
			return describeFailure(err)
		}
	}

	receipt, err := controller.Submit(ctx)
	if err != nil {
		return describeFailure(err)
	}

	out, err := json.MarshalIndent(receipt, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// applyDonateFlags overlays the flags that were set on the pre-filled form.
func applyDonateFlags(form *donation.FormData) {
	form.Amount = donateFlags.amount
	form.Message = donateFlags.message
	form.TaxDeductible = donateFlags.taxDeductible
	form.PaymentDetails.Method = donation.PaymentMethod(donateFlags.method)
	form.PaymentDetails.UPIID = donateFlags.upiID
	form.DonorInfo.Anonymous = donateFlags.anonymous
	if donateFlags.frequency != "" {
		form.Recurring = true
		form.RecurringFrequency = donation.Frequency(donateFlags.frequency)
	}

	set := func(dst *string, value string) {
		if value != "" {
			*dst = value
		}
	}
	set(&form.DonorInfo.FirstName, donateFlags.firstName)
	set(&form.DonorInfo.LastName, donateFlags.lastName)
	set(&form.DonorInfo.Email, donateFlags.email)
	set(&form.DonorInfo.Phone, donateFlags.phone)
	set(&form.DonorInfo.Address, donateFlags.address)
	set(&form.DonorInfo.City, donateFlags.city)
	set(&form.DonorInfo.State, donateFlags.state)
	set(&form.DonorInfo.Pincode, donateFlags.pincode)
}

func describeFailure(err error) error {
	fields := internal.FieldMessages(err)
	if len(fields) == 0 {
		return err
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	msg := err.Error()
	if appErr, ok := internal.IsAppError(err); ok {
		msg = appErr.Message
	}
	for _, name := range names {
		msg += fmt.Sprintf("\n  %s: %s", name, fields[name])
	}
	return fmt.Errorf("%s", msg)
}
