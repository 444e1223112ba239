package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"siteledger/internal/cache"
	"siteledger/internal/ledger"
	"siteledger/internal/logger"
	"siteledger/pkg/models"
)

// InvoiceLister fetches the invoices of a milestone from the backend.
type InvoiceLister interface {
	ListInvoices(ctx context.Context, milestoneID int64) ([]models.Invoice, error)
}

// SnapshotStore persists the last fetched invoice list per milestone.
type SnapshotStore interface {
	SaveInvoices(ctx context.Context, milestoneID int64, invoices []models.Invoice) error
	LoadInvoices(ctx context.Context, milestoneID int64) (*cache.Snapshot, error)
	Milestones(ctx context.Context) ([]int64, error)
}

// ErrOffline is returned when an offline read is requested without a store.
var ErrOffline = errors.New("offline mode needs a snapshot cache")

// Reader builds milestone summaries from the backend or the snapshot cache.
type Reader struct {
	lister  InvoiceLister
	store   SnapshotStore
	offline bool
	now     func() time.Time
	log     zerolog.Logger
}

// NewReader reads from the backend and, when store is non-nil, refreshes
// the snapshot after every successful fetch.
func NewReader(lister InvoiceLister, store SnapshotStore) *Reader {
	return &Reader{
		lister: lister,
		store:  store,
		now:    time.Now,
		log:    logger.WithComponent("reconciliation-reader"),
	}
}

// NewOfflineReader reads only from the snapshot cache.
func NewOfflineReader(store SnapshotStore) *Reader {
	r := NewReader(nil, store)
	r.offline = true
	return r
}

// ReadMilestone returns the reconciled summary of a milestone.
func (r *Reader) ReadMilestone(ctx context.Context, milestoneID int64) (*Summary, error) {
	const op = "ReadMilestone"

	if r.offline {
		return r.readSnapshot(ctx, milestoneID)
	}

	r.log.Info().Int64("milestone_id", milestoneID).Msg("Fetching milestone invoices")

	invoices, err := r.lister.ListInvoices(ctx, milestoneID)
	if err != nil {
		return nil, fmt.Errorf("%s: milestone %d: %w", op, milestoneID, err)
	}

	if r.store != nil {
		if err := r.store.SaveInvoices(ctx, milestoneID, invoices); err != nil {
			r.log.Warn().
				Err(err).
				Int64("milestone_id", milestoneID).
				Msg("Failed to update snapshot, continuing with live data")
		}
	}

	summary := Build(milestoneID, invoices)
	summary.Source = SourceLive
	summary.FetchedAt = r.now()
	r.logSummary(summary)
	return summary, nil
}

// MilestoneResult is the outcome of one milestone in a batch read.
type MilestoneResult struct {
	MilestoneID int64
	Summary     *Summary
	Err         error
}

// ReadMilestones reads several milestones with a pool of workers. Results
// keep the order of ids; a failed milestone does not stop the others.
func (r *Reader) ReadMilestones(ctx context.Context, ids []int64, workers int) []MilestoneResult {
	if workers <= 0 {
		workers = 1
	}
	if workers > len(ids) {
		workers = len(ids)
	}

	jobs := make(chan int, len(ids))
	results := make([]MilestoneResult, len(ids))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for i := range jobs {
				id := ids[i]
				r.log.Debug().
					Int("worker", workerID).
					Int64("milestone_id", id).
					Msg("Worker reading milestone")

				res := MilestoneResult{MilestoneID: id}
				if err := ctx.Err(); err != nil {
					res.Err = err
				} else {
					res.Summary, res.Err = r.ReadMilestone(ctx, id)
				}
				results[i] = res
			}
		}(w)
	}

	for i := range ids {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}

// CachedMilestones lists the milestones with a snapshot, most recent first.
func (r *Reader) CachedMilestones(ctx context.Context) ([]int64, error) {
	const op = "CachedMilestones"

	if r.store == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrOffline)
	}
	ids, err := r.store.Milestones(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ids, nil
}

func (r *Reader) readSnapshot(ctx context.Context, milestoneID int64) (*Summary, error) {
	const op = "readSnapshot"

	if r.store == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrOffline)
	}
	snap, err := r.store.LoadInvoices(ctx, milestoneID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	summary := Build(milestoneID, snap.Invoices)
	summary.Source = SourceSnapshot
	summary.FetchedAt = snap.FetchedAt
	r.log.Info().
		Int64("milestone_id", milestoneID).
		Time("fetched_at", snap.FetchedAt).
		Msg("Using cached snapshot")
	r.logSummary(summary)
	return summary, nil
}

func (r *Reader) logSummary(s *Summary) {
	r.log.Info().
		Int64("milestone_id", s.MilestoneID).
		Int("invoices", s.Totals.Invoices).
		Str("invoiced", ledger.Fixed(s.Totals.Invoiced)).
		Str("paid", ledger.Fixed(s.Totals.Paid)).
		Str("pending", ledger.Fixed(s.Totals.Pending)).
		Msg("Milestone reconciled")
}

// Build reconciles invoices into a summary. Rows keep the input order.
func Build(milestoneID int64, invoices []models.Invoice) *Summary {
	rows := lo.Map(invoices, func(inv models.Invoice, _ int) InvoiceRow {
		return buildRow(inv)
	})

	sum := func(get func(InvoiceRow) decimal.Decimal) decimal.Decimal {
		return lo.Reduce(rows, func(acc decimal.Decimal, r InvoiceRow, _ int) decimal.Decimal {
			return acc.Add(get(r))
		}, decimal.Zero)
	}

	return &Summary{
		MilestoneID: milestoneID,
		Rows:        rows,
		Totals: Totals{
			Invoices: len(rows),
			Invoiced: sum(func(r InvoiceRow) decimal.Decimal { return r.TotalWithGST }),
			Paid:     sum(func(r InvoiceRow) decimal.Decimal { return r.Paid }),
			Pending:  sum(func(r InvoiceRow) decimal.Decimal { return r.Pending }),
			ByStatus: lo.CountValuesBy(rows, func(r InvoiceRow) ledger.Status { return r.Status }),
		},
	}
}

func buildRow(inv models.Invoice) InvoiceRow {
	bal := ledger.ResolveInvoice(inv)

	last := ""
	if len(inv.PaymentHistory) > 0 {
		// ISO dates order lexically
		last = lo.MaxBy(inv.PaymentHistory, func(a, b models.PaymentRecord) bool {
			return a.PaymentDate > b.PaymentDate
		}).PaymentDate
	}

	return InvoiceRow{
		InvoiceID:       inv.ID,
		InvoiceNumber:   inv.InvoiceNumber,
		PartyName:       inv.PartyName,
		PONumber:        inv.PONumber,
		Base:            ledger.AmountOrZero(inv.TotalAmount.String()),
		GSTRate:         ledger.AmountOrZero(inv.GSTPercentage.String()),
		TotalWithGST:    bal.TotalWithGST,
		Paid:            bal.TotalPaid,
		Pending:         bal.Pending,
		Status:          bal.Status,
		Payments:        bal.Payments,
		LastPaymentDate: last,
	}
}
