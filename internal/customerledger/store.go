package customerledger

import (
	"context"

	"github.com/MarkoPoloResearchLab/reservesync/pkg/pms"
	"github.com/shopspring/decimal"
)

// Store persists customer accounts and their entries.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error
	GetOrCreateAccountID(ctx context.Context, hotelID pms.HotelID, customerID int64) (string, error)
	// UpsertEntry writes entry, replacing the account and amount of an entry
	// with the same idempotency key.
	UpsertEntry(ctx context.Context, entry Entry) error
	// DeleteEntry removes the entry with idempotencyKey and reports how many rows went.
	DeleteEntry(ctx context.Context, idempotencyKey string) (int64, error)
	// InsertEntry writes entry and fails with ErrDuplicateIdempotencyKey when the key exists.
	InsertEntry(ctx context.Context, entry Entry) error
	SumEntries(ctx context.Context, accountID string, entryType EntryType) (decimal.Decimal, error)
	ListEntries(ctx context.Context, accountID string, limit int) ([]Entry, error)
}
