package customerledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MarkoPoloResearchLab/reservesync/pkg/pms"
)

const (
	operationCharge        = "ledger_charge"
	operationChargeRemoval = "ledger_charge_removal"
	operationPayment       = "ledger_payment"

	operationStatusOK      = "ok"
	operationStatusError   = "error"
	operationStatusSkipped = "skipped"

	idempotencyKeyDelimiter = ":"
	defaultListLimit        = 100
	maxListLimit            = 1000
)

// ServiceOption configures a Service instance.
type ServiceOption func(*Service)

// WithOperationLogger wires a logger that receives callbacks for every mirrored write.
func WithOperationLogger(logger pms.OperationLogger) ServiceOption {
	return func(service *Service) {
		service.logger = logger
	}
}

// Service mirrors reservation charges and payment receipts into per-customer
// accounts. It satisfies pms.LedgerSyncer.
type Service struct {
	store  Store
	nowFn  pms.Clock
	logger pms.OperationLogger
}

var _ pms.LedgerSyncer = (*Service)(nil)

// NewService wires a Service.
func NewService(store Store, now pms.Clock, options ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", ErrInvalidServiceConfig)
	}
	if now == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidServiceConfig)
	}
	service := &Service{store: store, nowFn: now}
	for _, option := range options {
		if option != nil {
			option(service)
		}
	}
	return service, nil
}

// SyncReservation records the reservation total as the customer's charge.
// Re-syncing the same reservation replaces the charge, moving it to the
// current customer, so repeated upserts never double-bill. A reservation
// without a customer or a total carries no charge.
func (service *Service) SyncReservation(ctx context.Context, reservation pms.Reservation) error {
	if reservation.CustomerID <= 0 || !reservation.TotalAmount.Valid {
		return service.removeCharge(ctx, operationCharge, reservation)
	}
	entry := reservationLog(operationCharge, reservation)
	metadata, err := encodeMetadata(map[string]any{
		"reservation_no": reservation.Number.String(),
		"rental_type":    reservation.RentalMode.String(),
	})
	if err != nil {
		return err
	}
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		accountID, err := transactionStore.GetOrCreateAccountID(ctx, reservation.HotelID, reservation.CustomerID)
		if err != nil {
			return err
		}
		return transactionStore.UpsertEntry(ctx, Entry{
			AccountID:      accountID,
			Type:           EntryCharge,
			Amount:         reservation.TotalAmount.Decimal,
			ReservationKey: reservation.Key(),
			IdempotencyKey: idempotencyKey(EntryCharge, reservation.Ref.Internal),
			Metadata:       metadata,
			CreatedAt:      service.nowFn(),
		})
	})
	entry.Error = operationError
	service.logOperation(ctx, entry)
	return operationError
}

// RemoveReservation drops the charge of a deleted reservation.
func (service *Service) RemoveReservation(ctx context.Context, reservation pms.Reservation) error {
	return service.removeCharge(ctx, operationChargeRemoval, reservation)
}

func (service *Service) removeCharge(ctx context.Context, operation string, reservation pms.Reservation) error {
	entry := reservationLog(operation, reservation)
	removed, err := service.store.DeleteEntry(ctx, idempotencyKey(EntryCharge, reservation.Ref.Internal))
	entry.Error = err
	if err == nil && removed == 0 {
		entry.Status = operationStatusSkipped
	}
	service.logOperation(ctx, entry)
	return err
}

// SyncReceipt records a payment against the receipt's customer. A receipt
// already mirrored is accepted without a second entry.
func (service *Service) SyncReceipt(ctx context.Context, receipt pms.PaymentReceipt) error {
	entry := pms.OperationLog{
		Operation: operationPayment,
		Step:      pms.StepLedgerSync,
		HotelID:   receipt.HotelID,
		Subject:   receipt.ID,
	}
	if receipt.CustomerID <= 0 {
		entry.Status = operationStatusSkipped
		service.logOperation(ctx, entry)
		return nil
	}
	metadata, err := encodeMetadata(map[string]any{
		"receipt_no": receipt.ReceiptNumber,
		"invoice_id": receipt.InvoiceID,
	})
	if err != nil {
		return err
	}
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		accountID, err := transactionStore.GetOrCreateAccountID(ctx, receipt.HotelID, receipt.CustomerID)
		if err != nil {
			return err
		}
		return transactionStore.InsertEntry(ctx, Entry{
			AccountID:      accountID,
			Type:           EntryPayment,
			Amount:         receipt.Amount.Neg(),
			ReservationKey: receipt.ReservationKey,
			ReceiptID:      receipt.ID,
			IdempotencyKey: idempotencyKey(EntryPayment, receipt.ID),
			Metadata:       metadata,
			CreatedAt:      receiptTime(receipt, service.nowFn()),
		})
	})
	if errors.Is(operationError, ErrDuplicateIdempotencyKey) {
		operationError = nil
	}
	entry.Error = operationError
	service.logOperation(ctx, entry)
	return operationError
}

// Balance returns what a customer has been charged, has paid, and still owes.
func (service *Service) Balance(ctx context.Context, hotelID pms.HotelID, customerID int64) (Balance, error) {
	if customerID <= 0 {
		return Balance{}, fmt.Errorf("%w: %d", ErrInvalidCustomerID, customerID)
	}
	accountID, err := service.store.GetOrCreateAccountID(ctx, hotelID, customerID)
	if err != nil {
		return Balance{}, err
	}
	charged, err := service.store.SumEntries(ctx, accountID, EntryCharge)
	if err != nil {
		return Balance{}, err
	}
	payments, err := service.store.SumEntries(ctx, accountID, EntryPayment)
	if err != nil {
		return Balance{}, err
	}
	paid := payments.Neg()
	return Balance{
		Charged:     charged,
		Paid:        paid,
		Outstanding: charged.Sub(paid),
	}, nil
}

// ListEntries returns a customer's entries, newest first.
func (service *Service) ListEntries(ctx context.Context, hotelID pms.HotelID, customerID int64, limit int) ([]Entry, error) {
	if customerID <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCustomerID, customerID)
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	accountID, err := service.store.GetOrCreateAccountID(ctx, hotelID, customerID)
	if err != nil {
		return nil, err
	}
	return service.store.ListEntries(ctx, accountID, limit)
}

func (service *Service) logOperation(ctx context.Context, entry pms.OperationLog) {
	if service.logger == nil {
		return
	}
	if entry.Status == "" {
		if entry.Error != nil {
			entry.Status = operationStatusError
		} else {
			entry.Status = operationStatusOK
		}
	}
	service.logger.LogOperation(ctx, entry)
}

func reservationLog(operation string, reservation pms.Reservation) pms.OperationLog {
	return pms.OperationLog{
		Operation:         operation,
		Step:              pms.StepLedgerSync,
		HotelID:           reservation.HotelID,
		ReservationNumber: reservation.Number.String(),
		Subject:           reservation.Ref.Internal,
	}
}

func idempotencyKey(entryType EntryType, subject string) string {
	return entryType.String() + idempotencyKeyDelimiter + subject
}

func receiptTime(receipt pms.PaymentReceipt, fallback time.Time) time.Time {
	if receipt.ReceiptDate.IsZero() {
		return fallback
	}
	return receipt.ReceiptDate
}

func encodeMetadata(fields map[string]any) (string, error) {
	encoded, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("encode ledger metadata: %w", err)
	}
	return string(encoded), nil
}
