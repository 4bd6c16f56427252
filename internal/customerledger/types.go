package customerledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// EntryType classifies a ledger entry.
type EntryType string

const (
	// EntryCharge is what a reservation bills the customer. Positive.
	EntryCharge EntryType = "charge"
	// EntryPayment is a received payment. Negative.
	EntryPayment EntryType = "payment"
)

// ParseEntryType validates a stored entry type.
func ParseEntryType(raw string) (EntryType, error) {
	switch EntryType(strings.ToLower(strings.TrimSpace(raw))) {
	case EntryCharge:
		return EntryCharge, nil
	case EntryPayment:
		return EntryPayment, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidEntryType, raw)
	}
}

// String returns the stored representation.
func (entryType EntryType) String() string {
	return string(entryType)
}

// Entry is one line of a customer account.
type Entry struct {
	ID             string
	AccountID      string
	Type           EntryType
	Amount         decimal.Decimal
	ReservationKey string
	ReceiptID      string
	IdempotencyKey string
	Metadata       string
	CreatedAt      time.Time
}

// Balance summarizes a customer account. Outstanding is Charged minus Paid.
type Balance struct {
	Charged     decimal.Decimal
	Paid        decimal.Decimal
	Outstanding decimal.Decimal
}
