package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"siteledger/internal/ledger"
	"siteledger/internal/logger"
)

var gstCmd = &cobra.Command{
	Use:   "gst",
	Short: "Compute GST and the tax-inclusive total for an amount",
	Long: `Compute the GST on a pre-tax total and the tax-inclusive total payments are
reconciled against. With --paid the pending balance is shown as well.

Amounts are rounded to two decimals. The rate must be between 0 and 100.
No network access or configuration is needed.`,
	Example: `  siteledger gst --total 1000 --rate 18
  siteledger gst --total 2000 --rate 12 --paid 560
  siteledger gst --total 1000 --rate 18 --json`,
	RunE: runGST,
}

// GSTOutput is the JSON form of a GST computation.
type GSTOutput struct {
	TotalAmount   string `json:"total_amount"`
	GSTPercentage string `json:"gst_percentage"`
	Tax           string `json:"tax"`
	GSTAmount     string `json:"gst_amount"` // tax-inclusive total
	PaidAmount    string `json:"paid_amount,omitempty"`
	PendingAmount string `json:"pending_amount,omitempty"`
}

func init() {
	rootCmd.AddCommand(gstCmd)

	gstCmd.Flags().String("total", "", "Pre-tax total amount (required)")
	gstCmd.Flags().String("rate", "", "GST percentage, 0-100 (required)")
	gstCmd.Flags().String("paid", "", "Amount already paid")
	gstCmd.Flags().Bool("json", false, "Output as JSON")
	_ = gstCmd.MarkFlagRequired("total")
	_ = gstCmd.MarkFlagRequired("rate")
}

func runGST(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("gst")

	total, _ := cmd.Flags().GetString("total")
	rate, _ := cmd.Flags().GetString("rate")
	paid, _ := cmd.Flags().GetString("paid")
	asJSON, _ := cmd.Flags().GetBool("json")

	gst, ok := ledger.ComputeGST(total, rate)
	if !ok {
		log.Debug().Str("total", total).Str("rate", rate).Msg("GST not computable")
		return fmt.Errorf("enter a non-negative total and a GST rate between 0 and 100")
	}

	out := GSTOutput{
		TotalAmount:   ledger.Fixed(gst.Base),
		GSTPercentage: gst.Rate.String(),
		Tax:           ledger.Fixed(gst.Tax),
		GSTAmount:     ledger.Fixed(gst.TotalWithGST),
	}
	if paid != "" {
		paidAmount, ok := ledger.ParseAmount(paid)
		if !ok {
			return errors.New(ledger.MsgAmountInvalid)
		}
		out.PaidAmount = ledger.Fixed(paidAmount)
		out.PendingAmount = ledger.Fixed(ledger.Round(gst.TotalWithGST.Sub(paidAmount)))
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Printf("Total amount:       %s\n", ledger.FormatMoney(gst.Base))
	fmt.Printf("GST (%s%%):          %s\n", gst.Rate.String(), ledger.FormatMoney(gst.Tax))
	fmt.Printf("Total with GST:     %s\n", ledger.FormatMoney(gst.TotalWithGST))
	if out.PendingAmount != "" {
		fmt.Printf("Paid:               %s%s\n", ledger.CurrencySymbol, out.PaidAmount)
		fmt.Printf("Pending:            %s%s\n", ledger.CurrencySymbol, out.PendingAmount)
	}
	return nil
}
