package pms

import (
	"context"
	"fmt"
	"strings"
)

// PaymentView is a recorded receipt with the results of its follow-up steps.
type PaymentView struct {
	Receipt PaymentReceipt
	Steps   []StepResult
}

// CreateInvoice registers an invoice, optionally linked to a reservation unit.
func (service *Service) CreateInvoice(ctx context.Context, invoice Invoice) (Invoice, error) {
	operationError := func() error {
		if _, err := NewHotelID(invoice.HotelID.Int64()); err != nil {
			return err
		}
		if invoice.Total.IsNegative() {
			return fmt.Errorf("%w: invoice total must not be negative", ErrInvalidAmount)
		}
		invoice.Number = strings.TrimSpace(invoice.Number)
		if invoice.ID == "" {
			invoice.ID = service.newID()
		}
		invoice.CreatedAt = service.nowFn()
		return service.store.CreateInvoice(ctx, invoice)
	}()
	logOperation(ctx, service.logger, OperationLog{
		Operation: operationCreateInvoice,
		HotelID:   invoice.HotelID,
		Subject:   invoice.Number,
		Error:     operationError,
	})
	if operationError != nil {
		return Invoice{}, operationError
	}
	return invoice, nil
}

// RecordPayment persists a receipt. A referenced invoice must exist; a
// missing one fails the call without retry. The ledger mirror runs after
// commit and never fails the call.
func (service *Service) RecordPayment(ctx context.Context, receipt PaymentReceipt) (PaymentView, error) {
	operationError := func() error {
		if _, err := NewHotelID(receipt.HotelID.Int64()); err != nil {
			return err
		}
		receipt.ReceiptNumber = strings.TrimSpace(receipt.ReceiptNumber)
		if receipt.ReceiptNumber == "" {
			return fmt.Errorf("%w: receipt number is required", ErrInvalidPaymentReceipt)
		}
		if !receipt.Amount.IsPositive() {
			return fmt.Errorf("%w: receipt amount must be greater than zero", ErrInvalidAmount)
		}
		return service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
			if invoiceID := strings.TrimSpace(receipt.InvoiceID); invoiceID != "" {
				invoice, err := transactionStore.GetInvoice(ctx, invoiceID)
				if err != nil {
					return err
				}
				receipt.InvoiceID = invoice.ID
				if receipt.ReservationKey == "" {
					receipt.ReservationKey = invoice.ReservationKey
				}
			}
			now := service.nowFn()
			receipt.ID = service.newID()
			receipt.CreatedAt = now
			if receipt.ReceiptDate.IsZero() {
				receipt.ReceiptDate = now
			}
			return transactionStore.CreatePaymentReceipt(ctx, receipt)
		})
	}()
	base := OperationLog{
		Operation: operationRecordPayment,
		HotelID:   receipt.HotelID,
		Subject:   receipt.ReceiptNumber,
		Error:     operationError,
	}
	logOperation(ctx, service.logger, base)
	if operationError != nil {
		return PaymentView{}, operationError
	}
	base.Error = nil
	steps := runSteps(ctx, service.logger, base, []postCommitStep{{
		name: StepLedgerSync,
		run: func(ctx context.Context) error {
			if service.ledger == nil {
				return errStepSkipped
			}
			return service.ledger.SyncReceipt(ctx, receipt)
		},
	}})
	return PaymentView{Receipt: receipt, Steps: steps}, nil
}
