package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"siteledger/internal/ledger"
	"siteledger/internal/logger"
)

var paymentCmd = &cobra.Command{
	Use:   "payment",
	Short: "Record partial payments against an invoice",
}

var paymentRecordCmd = &cobra.Command{
	Use:   "record <invoice-id>",
	Short: "Record one partial payment",
	Long: `Record a partial payment against an invoice of a milestone.

The invoice is fetched first and the amount is checked against its pending
balance; when --amount is omitted the full pending balance is paid. Files
larger than 5MB passed with --attach are skipped with a warning, the rest
are uploaded with the payment.`,
	Example: `  # Pay the full pending balance by bank transfer
  siteledger payment record 17 --milestone 42 --method "Bank Transfer"

  # Partial cheque payment with a scanned receipt
  siteledger payment record 17 --milestone 42 --amount 400 --date 2026-10-16 \
    --method Cheque --ref CHQ-004512 --attach receipt.pdf`,
	Args: cobra.ExactArgs(1),
	RunE: runPaymentRecord,
}

func init() {
	rootCmd.AddCommand(paymentCmd)
	paymentCmd.AddCommand(paymentRecordCmd)

	f := paymentRecordCmd.Flags()
	f.Int64("milestone", 0, "Milestone ID (required)")
	f.String("amount", "", "Amount paid (default: pending balance)")
	f.String("date", "", "Payment date, YYYY-MM-DD (default: today)")
	f.String("method", "", "Payment method, e.g. Cash, Cheque, Bank Transfer, UPI (required)")
	f.String("ref", "", "Transaction reference")
	f.String("notes", "", "Notes")
	f.StringSlice("attach", nil, "Files to attach (repeatable)")
	_ = paymentRecordCmd.MarkFlagRequired("milestone")
}

func runPaymentRecord(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("payment")

	invoiceID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || invoiceID <= 0 {
		return fmt.Errorf("invalid invoice id %q", args[0])
	}
	milestoneID, _ := cmd.Flags().GetInt64("milestone")
	amount, _ := cmd.Flags().GetString("amount")
	date, _ := cmd.Flags().GetString("date")
	method, _ := cmd.Flags().GetString("method")
	ref, _ := cmd.Flags().GetString("ref")
	notes, _ := cmd.Flags().GetString("notes")
	paths, _ := cmd.Flags().GetStringSlice("attach")

	if date == "" {
		date = time.Now().Format("2006-01-02")
	}

	attachments := make([]ledger.Attachment, 0, len(paths))
	for _, p := range paths {
		a, err := ledger.AttachmentFromFile(p)
		if err != nil {
			log.Error().Err(err).Str("file", p).Msg("Cannot read attachment")
			return fmt.Errorf("cannot read attachment %s: %w", p, err)
		}
		attachments = append(attachments, a)
	}

	client, _, err := newAPIClient(cmd, log)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(commandTimeout, log)
	defer cancel()

	invoices, err := client.ListInvoices(ctx, milestoneID)
	if err != nil {
		return handleAPIError(err, log)
	}
	inv, ok := ledger.FindInvoice(invoices, invoiceID)
	if !ok {
		return fmt.Errorf("invoice %d not found on milestone %d", invoiceID, milestoneID)
	}

	recorder := ledger.NewRecorder(client, inv)
	before := recorder.Balance()

	log.Info().
		Int64("invoice_id", invoiceID).
		Str("pending", ledger.Fixed(before.Pending)).
		Str("status", string(before.Status)).
		Msg("Invoice loaded")

	if err := recorder.Edit(func(d *ledger.PaymentDraft) {
		if amount != "" {
			d.Amount = amount
		}
		d.PaymentDate = date
		d.PaymentMethod = method
		d.TransactionReference = ref
		d.Notes = notes
		d.Attachments = attachments
	}); err != nil {
		return err
	}

	outcome, err := recorder.Submit(ctx)
	if outcome.Warning != nil {
		log.Warn().Err(outcome.Warning).Msg("Some attachments were skipped")
		fmt.Fprintln(os.Stderr, "Warning:", outcome.Warning.Error())
	}
	if err != nil {
		return handlePaymentError(err, log)
	}

	printPaymentOutcome(outcome)
	return nil
}

func printPaymentOutcome(o ledger.Outcome) {
	fmt.Println(o.Notice)
	fmt.Printf("  Total with GST:  %s\n", ledger.FormatMoney(o.Balance.TotalWithGST))
	fmt.Printf("  Paid:            %s\n", ledger.FormatMoney(o.Balance.TotalPaid))
	fmt.Printf("  Pending:         %s  [%s]\n", ledger.FormatMoney(o.Balance.Pending), o.Balance.Status)
	if n := len(o.Invoice.PaymentHistory); n > 0 {
		last := o.Invoice.PaymentHistory[n-1]
		fmt.Printf("  Last payment:    %s on %s (%s)\n",
			ledger.FormatMoney(ledger.AmountOrZero(last.AmountPaid.String())), last.PaymentDate, last.PaymentMethod)
	}
}

// handlePaymentError provides user-friendly messages for payment failures
func handlePaymentError(err error, log zerolog.Logger) error {
	var invalid *ledger.ValidationError
	var recordErr *ledger.RecordError

	switch {
	case errors.As(err, &invalid):
		log.Debug().Str("field", invalid.Field).Msg("Payment form invalid")
		return errors.New(invalid.Message)
	case errors.As(err, &recordErr):
		if recordErr.Message != ledger.MsgRecordFailed {
			log.Error().Err(recordErr.Err).Msg("Server refused the payment")
			return errors.New(recordErr.Message)
		}
		return fmt.Errorf("%s: %w", ledger.MsgRecordFailed, handleAPIError(recordErr.Err, log))
	default:
		return handleAPIError(err, log)
	}
}
