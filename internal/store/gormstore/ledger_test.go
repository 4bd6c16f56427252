package gormstore

import (
	"context"
	"testing"
	"time"

	"github.com/MarkoPoloResearchLab/reservesync/internal/customerledger"
	"github.com/MarkoPoloResearchLab/reservesync/pkg/pms"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestLedgerMirrorsReservationsAndReceipts(test *testing.T) {
	test.Parallel()
	store, db := newTestStore(test)
	clock := func() time.Time { return time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC) }
	ledgerService, err := customerledger.NewService(NewLedgerStore(db), clock)
	require.NoError(test, err)
	service, err := pms.NewService(store, clock, pms.WithLedgerSyncer(ledgerService))
	require.NoError(test, err)
	ctx := context.Background()

	payload := pms.ReservationPayload{
		HotelID:           1,
		ReservationNumber: "R-LEDGER",
		CustomerID:        pms.Set(int64(7)),
		TotalAmount:       pms.Set(decimal.RequireFromString("500")),
		Units:             []pms.UnitPayload{unit(test, 1, 501, "2025-03-01", "2025-03-06", "500")},
	}
	view, err := service.CreateOrUpdate(ctx, payload)
	require.NoError(test, err)
	requireStepOK(test, view.Steps, pms.StepLedgerSync)

	payload.TotalAmount = pms.Set(decimal.RequireFromString("650.50"))
	_, err = service.CreateOrUpdate(ctx, payload)
	require.NoError(test, err)

	invoice, err := service.CreateInvoice(ctx, pms.Invoice{HotelID: 1, ReservationKey: view.Reservation.Key(), Number: "INV-1", Total: decimal.RequireFromString("650.50")})
	require.NoError(test, err)
	paid, err := service.RecordPayment(ctx, pms.PaymentReceipt{HotelID: 1, CustomerID: 7, InvoiceID: invoice.ID, ReceiptNumber: "RC-1", Amount: decimal.RequireFromString("200.25")})
	require.NoError(test, err)
	requireStepOK(test, paid.Steps, pms.StepLedgerSync)

	require.NoError(test, ledgerService.SyncReceipt(ctx, paid.Receipt), "re-syncing a mirrored receipt is accepted")

	balance, err := ledgerService.Balance(ctx, 1, 7)
	require.NoError(test, err)
	require.True(test, balance.Charged.Equal(decimal.RequireFromString("650.5")), balance.Charged.String())
	require.True(test, balance.Paid.Equal(decimal.RequireFromString("200.25")), balance.Paid.String())
	require.True(test, balance.Outstanding.Equal(decimal.RequireFromString("450.25")), balance.Outstanding.String())

	entries, err := ledgerService.ListEntries(ctx, 1, 7, 10)
	require.NoError(test, err)
	require.Len(test, entries, 2)
	types := map[customerledger.EntryType]int{}
	for _, entry := range entries {
		types[entry.Type]++
	}
	require.Equal(test, 1, types[customerledger.EntryCharge])
	require.Equal(test, 1, types[customerledger.EntryPayment])
}

func TestLedgerChargeFollowsCustomerAndDeletion(test *testing.T) {
	test.Parallel()
	store, db := newTestStore(test)
	clock := func() time.Time { return time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC) }
	ledgerService, err := customerledger.NewService(NewLedgerStore(db), clock)
	require.NoError(test, err)
	service, err := pms.NewService(store, clock, pms.WithLedgerSyncer(ledgerService))
	require.NoError(test, err)
	ctx := context.Background()

	payload := pms.ReservationPayload{
		HotelID:           1,
		ReservationNumber: "R-MOVE",
		CustomerID:        pms.Set(int64(7)),
		TotalAmount:       pms.Set(decimal.RequireFromString("500")),
	}
	_, err = service.CreateOrUpdate(ctx, payload)
	require.NoError(test, err)

	view, err := service.Update(ctx, 1, "R-MOVE", pms.ReservationPayload{CustomerID: pms.Set(int64(8))})
	require.NoError(test, err)
	requireStepOK(test, view.Steps, pms.StepLedgerSync)

	previous, err := ledgerService.Balance(ctx, 1, 7)
	require.NoError(test, err)
	require.True(test, previous.Charged.IsZero(), previous.Charged.String())
	current, err := ledgerService.Balance(ctx, 1, 8)
	require.NoError(test, err)
	require.True(test, current.Charged.Equal(decimal.RequireFromString("500")), current.Charged.String())

	require.NoError(test, service.Delete(ctx, 1, "R-MOVE"))
	current, err = ledgerService.Balance(ctx, 1, 8)
	require.NoError(test, err)
	require.True(test, current.Charged.IsZero(), "deleting the reservation drops its charge")

	var remaining int64
	require.NoError(test, db.Model(&LedgerEntry{}).Count(&remaining).Error)
	require.Zero(test, remaining)
}

func TestLedgerStoreRejectsDuplicateKey(test *testing.T) {
	test.Parallel()
	_, db := newTestStore(test)
	ledgerStore := NewLedgerStore(db)
	ctx := context.Background()

	accountID, err := ledgerStore.GetOrCreateAccountID(ctx, 2, 9)
	require.NoError(test, err)
	again, err := ledgerStore.GetOrCreateAccountID(ctx, 2, 9)
	require.NoError(test, err)
	require.Equal(test, accountID, again)

	entry := customerledger.Entry{
		AccountID:      accountID,
		Type:           customerledger.EntryPayment,
		Amount:         decimal.NewFromInt(-10),
		IdempotencyKey: "payment:r-1",
		CreatedAt:      time.Now().UTC(),
	}
	require.NoError(test, ledgerStore.InsertEntry(ctx, entry))
	require.ErrorIs(test, ledgerStore.InsertEntry(ctx, entry), customerledger.ErrDuplicateIdempotencyKey)
}

func requireStepOK(test *testing.T, steps []pms.StepResult, name string) {
	test.Helper()
	for _, step := range steps {
		if step.Name == name {
			require.Equal(test, pms.StepStatusOK, step.Status, "step %s: %v", name, step.Error)
			return
		}
	}
	test.Fatalf("step %s not run", name)
}
