package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"siteledger/internal/ledger"
	"siteledger/internal/logger"
	"siteledger/pkg/models"
)

// commandTimeout bounds a whole command; each request has its own,
// shorter, timeout from SITELEDGER_API_TIMEOUT.
const commandTimeout = 5 * time.Minute

var invoiceCmd = &cobra.Command{
	Use:   "invoice",
	Short: "Create, update and list milestone invoices",
	Long: `Manage the inflow invoices recorded against a project milestone.

gst_amount and pending_amount are never entered by hand: they are derived from
the total, the GST percentage and the paid amount before anything is sent.`,
}

var invoiceCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Record a new invoice on a milestone",
	Example: `  siteledger invoice create --milestone 42 --party "Acme Scaffolding" \
    --po PO-881 --number INV-2026-014 --total 2000 --gst 12 --paid 560`,
	Args: cobra.NoArgs,
	RunE: runInvoiceCreate,
}

var invoiceUpdateCmd = &cobra.Command{
	Use:   "update <invoice-id>",
	Short: "Update an existing invoice",
	Long: `Update an invoice. The current values are fetched first and only the flags
given on the command line are changed; derived amounts are recomputed.`,
	Example: `  siteledger invoice update 17 --milestone 42 --gst 18`,
	Args:    cobra.ExactArgs(1),
	RunE:    runInvoiceUpdate,
}

var invoiceListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List the invoices of a milestone with their payment history",
	Example: `  siteledger invoice list --milestone 42`,
	Args:    cobra.NoArgs,
	RunE:    runInvoiceList,
}

// invoiceFlags maps command-line flags onto draft fields.
var invoiceFlags = []struct {
	name  string
	usage string
	set   func(*ledger.InvoiceDraft, string)
}{
	{"party", "Party name", func(d *ledger.InvoiceDraft, v string) { d.PartyName = v }},
	{"po", "PO number", func(d *ledger.InvoiceDraft, v string) { d.PONumber = v }},
	{"number", "Invoice number", func(d *ledger.InvoiceDraft, v string) { d.InvoiceNumber = v }},
	{"total", "Pre-tax total amount", func(d *ledger.InvoiceDraft, v string) { d.TotalAmount = v }},
	{"gst", "GST percentage (0-100)", func(d *ledger.InvoiceDraft, v string) { d.GSTPercentage = v }},
	{"paid", "Amount already paid", func(d *ledger.InvoiceDraft, v string) { d.PaidAmount = v }},
	{"payment-date", "Payment date (YYYY-MM-DD)", func(d *ledger.InvoiceDraft, v string) { d.PaymentDate = v }},
	{"notes", "Notes", func(d *ledger.InvoiceDraft, v string) { d.Notes = v }},
}

func init() {
	rootCmd.AddCommand(invoiceCmd)
	invoiceCmd.AddCommand(invoiceCreateCmd, invoiceUpdateCmd, invoiceListCmd)

	for _, c := range []*cobra.Command{invoiceCreateCmd, invoiceUpdateCmd} {
		c.Flags().Int64("milestone", 0, "Milestone ID")
		for _, f := range invoiceFlags {
			c.Flags().String(f.name, "", f.usage)
		}
	}
	_ = invoiceUpdateCmd.MarkFlagRequired("milestone")

	invoiceListCmd.Flags().Int64("milestone", 0, "Milestone ID (required)")
	invoiceListCmd.Flags().Bool("json", false, "Output the raw invoices as JSON")
	_ = invoiceListCmd.MarkFlagRequired("milestone")
}

// applyInvoiceFlags copies every flag the user set onto the draft.
func applyInvoiceFlags(cmd *cobra.Command, draft *ledger.InvoiceDraft) {
	for _, f := range invoiceFlags {
		if cmd.Flags().Changed(f.name) {
			v, _ := cmd.Flags().GetString(f.name)
			f.set(draft, v)
		}
	}
}

func runInvoiceCreate(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("invoice-create")

	var draft ledger.InvoiceDraft
	draft.MilestoneID, _ = cmd.Flags().GetInt64("milestone")
	applyInvoiceFlags(cmd, &draft)

	// validate before touching the network or the configuration
	req, err := draft.Request()
	if err != nil {
		return handleInvoiceError(err, log)
	}

	client, _, err := newAPIClient(cmd, log)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(commandTimeout, log)
	defer cancel()

	log.Info().
		Int64("milestone_id", req.MilestoneID).
		Str("invoice_number", req.InvoiceNumber).
		Str("gst_amount", req.GSTAmount).
		Str("pending_amount", req.PendingAmount).
		Msg("Creating invoice")

	resp, err := client.CreateInvoice(ctx, req)
	if err != nil {
		return handleInvoiceError(err, log)
	}

	printInvoiceResult(resp, req, "Invoice created")
	return nil
}

func runInvoiceUpdate(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("invoice-update")

	invoiceID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || invoiceID <= 0 {
		return fmt.Errorf("invalid invoice id %q", args[0])
	}
	milestoneID, _ := cmd.Flags().GetInt64("milestone")

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
	current, ok := ledger.FindInvoice(invoices, invoiceID)
	if !ok {
		return fmt.Errorf("invoice %d not found on milestone %d", invoiceID, milestoneID)
	}

	draft := ledger.DraftFromInvoice(current)
	if draft.MilestoneID == 0 {
		draft.MilestoneID = milestoneID
	}
	applyInvoiceFlags(cmd, &draft)

	req, err := draft.Request()
	if err != nil {
		return handleInvoiceError(err, log)
	}

	log.Info().
		Int64("invoice_id", invoiceID).
		Str("gst_amount", req.GSTAmount).
		Str("pending_amount", req.PendingAmount).
		Msg("Updating invoice")

	resp, err := client.UpdateInvoice(ctx, invoiceID, req)
	if err != nil {
		return handleInvoiceError(err, log)
	}

	printInvoiceResult(resp, req, "Invoice updated")
	return nil
}

func runInvoiceList(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("invoice-list")

	milestoneID, _ := cmd.Flags().GetInt64("milestone")
	asJSON, _ := cmd.Flags().GetBool("json")

	client, cfg, err := newAPIClient(cmd, log)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(commandTimeout, log)
	defer cancel()

	invoices, err := client.ListInvoices(ctx, milestoneID)
	if err != nil {
		return handleAPIError(err, log)
	}

	if store, err := openCache(cfg.CachePath, log); err == nil {
		if err := store.SaveInvoices(ctx, milestoneID, invoices); err != nil {
			log.Warn().Err(err).Msg("Failed to update snapshot")
		}
		_ = store.Close()
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(invoices)
	}

	if len(invoices) == 0 {
		fmt.Printf("No invoices recorded for milestone %d.\n", milestoneID)
		return nil
	}
	for i, inv := range invoices {
		if i > 0 {
			fmt.Println()
		}
		printInvoice(inv)
	}
	return nil
}

func printInvoice(inv models.Invoice) {
	bal := ledger.ResolveInvoice(inv)

	fmt.Printf("Invoice #%d  %s  %s\n", inv.ID, inv.InvoiceNumber, inv.PartyName)
	if inv.PONumber != "" {
		fmt.Printf("  PO:              %s\n", inv.PONumber)
	}
	fmt.Printf("  Total:           %s + %s%% GST\n", ledger.FormatMoney(ledger.AmountOrZero(inv.TotalAmount.String())), inv.GSTPercentage)
	fmt.Printf("  Total with GST:  %s\n", ledger.FormatMoney(bal.TotalWithGST))
	fmt.Printf("  Paid:            %s in %d payment(s)\n", ledger.FormatMoney(bal.TotalPaid), bal.Payments)
	fmt.Printf("  Pending:         %s  [%s]\n", ledger.FormatMoney(bal.Pending), bal.Status)

	for _, p := range inv.PaymentHistory {
		line := fmt.Sprintf("    %s  %10s  %s", p.PaymentDate, ledger.FormatMoney(ledger.AmountOrZero(p.AmountPaid.String())), p.PaymentMethod)
		if p.TransactionReference != "" {
			line += "  ref " + p.TransactionReference
		}
		if n := len(p.Attachments); n > 0 {
			line += fmt.Sprintf("  (%d attachment(s))", n)
		}
		fmt.Println(line)
	}
}

func printInvoiceResult(resp *models.StatusResponse, req models.InflowPaymentRequest, fallback string) {
	msg := fallback
	if resp != nil && resp.Message != "" {
		msg = resp.Message
	}
	fmt.Println(msg)
	fmt.Printf("  Total with GST:  %s%s\n", ledger.CurrencySymbol, req.GSTAmount)
	pending := req.PendingAmount
	if resp != nil && resp.PendingAmount != "" {
		pending = ledger.Fixed(ledger.AmountOrZero(resp.PendingAmount.String()))
	}
	fmt.Printf("  Pending:         %s%s\n", ledger.CurrencySymbol, pending)
}

// handleInvoiceError provides user-friendly messages for invoice failures
func handleInvoiceError(err error, log zerolog.Logger) error {
	var missing *ledger.MissingFieldsError
	var invalid *ledger.ValidationError

	switch {
	case errors.As(err, &missing):
		log.Debug().Strs("fields", missing.Fields).Msg("Invoice form incomplete")
		return err
	case errors.As(err, &invalid):
		log.Debug().Str("field", invalid.Field).Msg("Invoice form invalid")
		return fmt.Errorf("%s: %s", invalid.Field, invalid.Message)
	default:
		return handleAPIError(err, log)
	}
}
