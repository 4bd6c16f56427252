package customerledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/MarkoPoloResearchLab/reservesync/pkg/pms"
	"github.com/shopspring/decimal"
)

var fixedNow = time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

type stubStore struct {
	accounts map[string]string
	entries  map[string]Entry
	sumErr   error
}

func newStubStore() *stubStore {
	return &stubStore{accounts: map[string]string{}, entries: map[string]Entry{}}
}

func (store *stubStore) WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error {
	accounts := make(map[string]string, len(store.accounts))
	for key, value := range store.accounts {
		accounts[key] = value
	}
	entries := make(map[string]Entry, len(store.entries))
	for key, value := range store.entries {
		entries[key] = value
	}
	if err := fn(ctx, store); err != nil {
		store.accounts = accounts
		store.entries = entries
		return err
	}
	return nil
}

func (store *stubStore) GetOrCreateAccountID(_ context.Context, hotelID pms.HotelID, customerID int64) (string, error) {
	key := fmt.Sprintf("%d/%d", hotelID, customerID)
	if accountID, ok := store.accounts[key]; ok {
		return accountID, nil
	}
	accountID := fmt.Sprintf("account-%d", len(store.accounts)+1)
	store.accounts[key] = accountID
	return accountID, nil
}

func (store *stubStore) UpsertEntry(_ context.Context, entry Entry) error {
	if existing, ok := store.entries[entry.IdempotencyKey]; ok {
		existing.AccountID = entry.AccountID
		existing.Amount = entry.Amount
		existing.ReservationKey = entry.ReservationKey
		existing.Metadata = entry.Metadata
		store.entries[entry.IdempotencyKey] = existing
		return nil
	}
	store.entries[entry.IdempotencyKey] = entry
	return nil
}

func (store *stubStore) DeleteEntry(_ context.Context, idempotencyKey string) (int64, error) {
	if _, ok := store.entries[idempotencyKey]; !ok {
		return 0, nil
	}
	delete(store.entries, idempotencyKey)
	return 1, nil
}

func (store *stubStore) InsertEntry(_ context.Context, entry Entry) error {
	if _, ok := store.entries[entry.IdempotencyKey]; ok {
		return ErrDuplicateIdempotencyKey
	}
	store.entries[entry.IdempotencyKey] = entry
	return nil
}

func (store *stubStore) SumEntries(_ context.Context, accountID string, entryType EntryType) (decimal.Decimal, error) {
	if store.sumErr != nil {
		return decimal.Zero, store.sumErr
	}
	total := decimal.Zero
	for _, entry := range store.entries {
		if entry.AccountID == accountID && entry.Type == entryType {
			total = total.Add(entry.Amount)
		}
	}
	return total, nil
}

func (store *stubStore) ListEntries(_ context.Context, accountID string, limit int) ([]Entry, error) {
	var entries []Entry
	for _, entry := range store.entries {
		if entry.AccountID == accountID {
			entries = append(entries, entry)
		}
	}
	sort.Slice(entries, func(left, right int) bool {
		return entries[left].CreatedAt.After(entries[right].CreatedAt)
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

type recorderLogger struct {
	entries []pms.OperationLog
}

func (logger *recorderLogger) LogOperation(_ context.Context, entry pms.OperationLog) {
	logger.entries = append(logger.entries, entry)
}

func mustNewService(test *testing.T, store Store, options ...ServiceOption) *Service {
	test.Helper()
	service, err := NewService(store, func() time.Time { return fixedNow }, options...)
	if err != nil {
		test.Fatalf("new service: %v", err)
	}
	return service
}

func testReservation(test *testing.T, customerID int64, total string) pms.Reservation {
	test.Helper()
	number, err := pms.NewReservationNumber("R-1")
	if err != nil {
		test.Fatalf("reservation number: %v", err)
	}
	reservation := pms.Reservation{
		Ref:        pms.Ref{Internal: "res-1", External: 42},
		HotelID:    3,
		Number:     number,
		CustomerID: customerID,
		RentalMode: pms.RentalModeDaily,
	}
	if total != "" {
		reservation.TotalAmount = decimal.NewNullDecimal(decimal.RequireFromString(total))
	}
	return reservation
}

func TestNewServiceRejectsMissingDependencies(test *testing.T) {
	test.Parallel()
	if _, err := NewService(nil, time.Now); !errors.Is(err, ErrInvalidServiceConfig) {
		test.Fatalf("expected ErrInvalidServiceConfig for nil store, got %v", err)
	}
	if _, err := NewService(newStubStore(), nil); !errors.Is(err, ErrInvalidServiceConfig) {
		test.Fatalf("expected ErrInvalidServiceConfig for nil clock, got %v", err)
	}
}

func TestSyncReservationReplacesCharge(test *testing.T) {
	test.Parallel()
	store := newStubStore()
	logger := &recorderLogger{}
	service := mustNewService(test, store, WithOperationLogger(logger))

	if err := service.SyncReservation(context.Background(), testReservation(test, 7, "500")); err != nil {
		test.Fatalf("first sync: %v", err)
	}
	if err := service.SyncReservation(context.Background(), testReservation(test, 7, "650.50")); err != nil {
		test.Fatalf("second sync: %v", err)
	}
	if len(store.entries) != 1 {
		test.Fatalf("expected one charge entry, got %d", len(store.entries))
	}
	entry := store.entries["charge:res-1"]
	if entry.Type != EntryCharge || entry.Amount.String() != "650.5" || entry.ReservationKey != "ext:42" {
		test.Fatalf("unexpected charge %+v", entry)
	}
	if len(logger.entries) != 2 || logger.entries[1].Status != operationStatusOK || logger.entries[1].Operation != operationCharge {
		test.Fatalf("unexpected log entries %+v", logger.entries)
	}
}

func TestSyncReservationSkipsWithoutCustomerOrTotal(test *testing.T) {
	test.Parallel()
	store := newStubStore()
	logger := &recorderLogger{}
	service := mustNewService(test, store, WithOperationLogger(logger))

	if err := service.SyncReservation(context.Background(), testReservation(test, 0, "500")); err != nil {
		test.Fatalf("sync without customer: %v", err)
	}
	if err := service.SyncReservation(context.Background(), testReservation(test, 7, "")); err != nil {
		test.Fatalf("sync without total: %v", err)
	}
	if len(store.entries) != 0 || len(store.accounts) != 0 {
		test.Fatalf("expected nothing written, got %d entries %d accounts", len(store.entries), len(store.accounts))
	}
	for _, entry := range logger.entries {
		if entry.Status != operationStatusSkipped {
			test.Fatalf("expected skipped status, got %+v", entry)
		}
	}
}

func TestSyncReservationFollowsCustomerChanges(test *testing.T) {
	test.Parallel()
	store := newStubStore()
	logger := &recorderLogger{}
	service := mustNewService(test, store, WithOperationLogger(logger))
	ctx := context.Background()

	if err := service.SyncReservation(ctx, testReservation(test, 7, "500")); err != nil {
		test.Fatalf("sync for customer 7: %v", err)
	}
	if err := service.SyncReservation(ctx, testReservation(test, 8, "500")); err != nil {
		test.Fatalf("sync for customer 8: %v", err)
	}
	previous, err := service.Balance(ctx, 3, 7)
	if err != nil {
		test.Fatalf("balance 7: %v", err)
	}
	current, err := service.Balance(ctx, 3, 8)
	if err != nil {
		test.Fatalf("balance 8: %v", err)
	}
	if !previous.Charged.IsZero() || !current.Charged.Equal(decimal.RequireFromString("500")) {
		test.Fatalf("expected the charge to move to customer 8, got %s and %s", previous.Charged, current.Charged)
	}

	if err := service.SyncReservation(ctx, testReservation(test, 0, "500")); err != nil {
		test.Fatalf("sync without customer: %v", err)
	}
	if len(store.entries) != 0 {
		test.Fatalf("expected charge removed once the customer is cleared, got %+v", store.entries)
	}
	last := logger.entries[len(logger.entries)-1]
	if last.Status != operationStatusOK || last.Step != pms.StepLedgerSync {
		test.Fatalf("expected the removal logged as ok under the ledger step, got %+v", last)
	}

	if err := service.SyncReservation(ctx, testReservation(test, 8, "500")); err != nil {
		test.Fatalf("sync: %v", err)
	}
	if err := service.SyncReservation(ctx, testReservation(test, 8, "")); err != nil {
		test.Fatalf("sync without total: %v", err)
	}
	if len(store.entries) != 0 {
		test.Fatalf("expected charge removed once the total is cleared, got %+v", store.entries)
	}
}

func TestRemoveReservationDropsCharge(test *testing.T) {
	test.Parallel()
	store := newStubStore()
	logger := &recorderLogger{}
	service := mustNewService(test, store, WithOperationLogger(logger))
	ctx := context.Background()
	reservation := testReservation(test, 7, "500")
	if err := service.SyncReservation(ctx, reservation); err != nil {
		test.Fatalf("sync: %v", err)
	}
	if err := service.RemoveReservation(ctx, reservation); err != nil {
		test.Fatalf("remove: %v", err)
	}
	if len(store.entries) != 0 {
		test.Fatalf("expected charge removed, got %+v", store.entries)
	}
	if err := service.RemoveReservation(ctx, reservation); err != nil {
		test.Fatalf("second remove: %v", err)
	}
	last := logger.entries[len(logger.entries)-1]
	if last.Operation != operationChargeRemoval || last.Status != operationStatusSkipped {
		test.Fatalf("expected a repeated removal to be skipped, got %+v", last)
	}
}

func TestSyncReceiptIsIdempotent(test *testing.T) {
	test.Parallel()
	store := newStubStore()
	service := mustNewService(test, store)
	receipt := pms.PaymentReceipt{
		ID:             "receipt-1",
		HotelID:        3,
		CustomerID:     7,
		ReservationKey: "ext:42",
		ReceiptNumber:  "RC-1",
		Amount:         decimal.RequireFromString("200"),
	}
	for attempt := 0; attempt < 2; attempt++ {
		if err := service.SyncReceipt(context.Background(), receipt); err != nil {
			test.Fatalf("sync attempt %d: %v", attempt, err)
		}
	}
	if len(store.entries) != 1 {
		test.Fatalf("expected one payment entry, got %d", len(store.entries))
	}
	entry := store.entries["payment:receipt-1"]
	if entry.Amount.String() != "-200" || !entry.CreatedAt.Equal(fixedNow) {
		test.Fatalf("unexpected payment %+v", entry)
	}
}

func TestBalanceNetsChargesAndPayments(test *testing.T) {
	test.Parallel()
	store := newStubStore()
	service := mustNewService(test, store)
	ctx := context.Background()
	if err := service.SyncReservation(ctx, testReservation(test, 7, "500")); err != nil {
		test.Fatalf("sync reservation: %v", err)
	}
	if err := service.SyncReceipt(ctx, pms.PaymentReceipt{ID: "receipt-1", HotelID: 3, CustomerID: 7, Amount: decimal.RequireFromString("120.25")}); err != nil {
		test.Fatalf("sync receipt: %v", err)
	}

	balance, err := service.Balance(ctx, 3, 7)
	if err != nil {
		test.Fatalf("balance: %v", err)
	}
	if balance.Charged.String() != "500" || balance.Paid.String() != "120.25" || balance.Outstanding.String() != "379.75" {
		test.Fatalf("unexpected balance %+v", balance)
	}

	other, err := service.Balance(ctx, 4, 7)
	if err != nil {
		test.Fatalf("other hotel balance: %v", err)
	}
	if !other.Outstanding.IsZero() {
		test.Fatalf("expected accounts to be scoped by hotel, got %+v", other)
	}

	if _, err := service.Balance(ctx, 3, 0); !errors.Is(err, ErrInvalidCustomerID) {
		test.Fatalf("expected ErrInvalidCustomerID, got %v", err)
	}
}

func TestBalanceSurfacesStoreErrors(test *testing.T) {
	test.Parallel()
	store := newStubStore()
	store.sumErr = errors.New("sum failed")
	service := mustNewService(test, store)
	if _, err := service.Balance(context.Background(), 3, 7); !errors.Is(err, store.sumErr) {
		test.Fatalf("expected sum error, got %v", err)
	}
}

func TestListEntriesClampsLimit(test *testing.T) {
	test.Parallel()
	store := newStubStore()
	service := mustNewService(test, store)
	ctx := context.Background()
	for index := 1; index <= 3; index++ {
		receipt := pms.PaymentReceipt{
			ID:          fmt.Sprintf("receipt-%d", index),
			HotelID:     3,
			CustomerID:  7,
			Amount:      decimal.NewFromInt(int64(index)),
			ReceiptDate: fixedNow.Add(time.Duration(index) * time.Hour),
		}
		if err := service.SyncReceipt(ctx, receipt); err != nil {
			test.Fatalf("sync receipt %d: %v", index, err)
		}
	}
	entries, err := service.ListEntries(ctx, 3, 7, 2)
	if err != nil {
		test.Fatalf("list entries: %v", err)
	}
	if len(entries) != 2 || entries[0].ReceiptID != "receipt-3" {
		test.Fatalf("expected newest two entries, got %+v", entries)
	}
	entries, err = service.ListEntries(ctx, 3, 7, 0)
	if err != nil || len(entries) != 3 {
		test.Fatalf("expected default limit to return all entries, got %d %v", len(entries), err)
	}
}

func TestParseEntryType(test *testing.T) {
	test.Parallel()
	if entryType, err := ParseEntryType(" Charge "); err != nil || entryType != EntryCharge {
		test.Fatalf("expected charge, got %q %v", entryType, err)
	}
	if _, err := ParseEntryType("hold"); !errors.Is(err, ErrInvalidEntryType) {
		test.Fatalf("expected ErrInvalidEntryType, got %v", err)
	}
}
