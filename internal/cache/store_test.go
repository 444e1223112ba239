package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"siteledger/internal/logger"
	"siteledger/pkg/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	logger.Discard()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "snapshots.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveAndLoad(t *testing.T) {
	s := openTestStore(t)
	fixed := time.Date(2026, 10, 1, 9, 30, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	invoices := []models.Invoice{{
		ID:            5,
		MilestoneID:   42,
		PartyName:     "Acme",
		TotalAmount:   "1000.00",
		GSTPercentage: "18",
		GSTAmount:     "1180.00",
		PaymentHistory: []models.PaymentRecord{
			{ID: 1, AmountPaid: "400.00", PaymentDate: "2026-09-01", PaymentMethod: "Cheque",
				Attachments: []models.AttachmentRef{{ID: 9, File: "https://files.example.com/b.pdf"}}},
		},
	}}
	require.NoError(t, s.SaveInvoices(context.Background(), 42, invoices))

	snap, err := s.LoadInvoices(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), snap.MilestoneID)
	assert.True(t, fixed.Equal(snap.FetchedAt))
	assert.Equal(t, invoices, snap.Invoices)
}

func TestSaveReplacesSnapshot(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveInvoices(ctx, 1, []models.Invoice{{ID: 1}, {ID: 2}}))
	require.NoError(t, s.SaveInvoices(ctx, 1, []models.Invoice{{ID: 3}}))

	snap, err := s.LoadInvoices(ctx, 1)
	require.NoError(t, err)
	require.Len(t, snap.Invoices, 1)
	assert.Equal(t, int64(3), snap.Invoices[0].ID)
}

func TestSaveNilStoresEmptyList(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.SaveInvoices(context.Background(), 8, nil))

	snap, err := s.LoadInvoices(context.Background(), 8)
	require.NoError(t, err)
	assert.NotNil(t, snap.Invoices)
	assert.Empty(t, snap.Invoices)
}

func TestLoadMissing(t *testing.T) {
	s := openTestStore(t)

	_, err := s.LoadInvoices(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestMilestonesNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []int64{3, 1, 2} {
		at := base.Add(time.Duration(i) * time.Hour)
		s.now = func() time.Time { return at }
		require.NoError(t, s.SaveInvoices(ctx, id, nil))
	}

	ids, err := s.Milestones(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 1, 3}, ids)
}

func TestOpenEmptyPath(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)
}
