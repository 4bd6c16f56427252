package gormstore

import (
	"context"
	"errors"

	"github.com/MarkoPoloResearchLab/reservesync/internal/customerledger"
	"github.com/MarkoPoloResearchLab/reservesync/pkg/pms"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	constraintLedgerIdempotencyKey = "uniq_ledger_entries_idempotency_key"
	errorSubjectAccount            = "account"
	errorSubjectBalance            = "balance"
	errorSubjectEntry              = "ledger_entry"
	errorCodeInsert                = "insert"
	errorCodeLookup                = "lookup"
	errorCodeSum                   = "sum"
	errorCodeUpsert                = "upsert"
)

// LedgerStore implements customerledger.Store using GORM. It shares the
// database of the reservation Store.
type LedgerStore struct {
	db *gorm.DB
}

var _ customerledger.Store = (*LedgerStore)(nil)

// NewLedgerStore returns a LedgerStore backed by gorm.DB.
func NewLedgerStore(db *gorm.DB) *LedgerStore {
	return &LedgerStore{db: db}
}

// WithTx executes fn within a transaction.
func (store *LedgerStore) WithTx(ctx context.Context, fn func(ctx context.Context, txStore customerledger.Store) error) error {
	return store.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		return fn(ctx, &LedgerStore{db: transaction})
	})
}

func (store *LedgerStore) GetOrCreateAccountID(ctx context.Context, hotelID pms.HotelID, customerID int64) (string, error) {
	var account Account
	err := store.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "hotel_id"}, {Name: "customer_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"hotel_id":    clause.Expr{SQL: "excluded.hotel_id"},
				"customer_id": clause.Expr{SQL: "excluded.customer_id"},
			}),
		}).
		FirstOrCreate(&account, Account{HotelID: hotelID.Int64(), CustomerID: customerID}).Error
	if err != nil {
		return "", wrapStoreError(errorSubjectAccount, errorCodeLookup, err)
	}
	if account.AccountID == "" {
		return "", wrapStoreError(errorSubjectAccount, errorCodeInvalid, customerledger.ErrInvalidCustomerID)
	}
	return account.AccountID, nil
}

func (store *LedgerStore) UpsertEntry(ctx context.Context, entry customerledger.Entry) error {
	model := ledgerEntryModel(entry)
	err := store.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "idempotency_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"account_id", "amount", "reservation_key", "metadata"}),
		}).
		Create(&model).Error
	if err != nil {
		return wrapStoreError(errorSubjectEntry, errorCodeUpsert, err)
	}
	return nil
}

func (store *LedgerStore) DeleteEntry(ctx context.Context, idempotencyKey string) (int64, error) {
	result := store.db.WithContext(ctx).
		Where("idempotency_key = ?", idempotencyKey).
		Delete(&LedgerEntry{})
	if result.Error != nil {
		return 0, wrapStoreError(errorSubjectEntry, errorCodeDelete, result.Error)
	}
	return result.RowsAffected, nil
}

func (store *LedgerStore) InsertEntry(ctx context.Context, entry customerledger.Entry) error {
	model := ledgerEntryModel(entry)
	err := store.db.WithContext(ctx).Create(&model).Error
	if isIdempotencyConflict(err) {
		return wrapStoreError(errorSubjectEntry, errorCodeDuplicate, customerledger.ErrDuplicateIdempotencyKey)
	}
	if err != nil {
		return wrapStoreError(errorSubjectEntry, errorCodeInsert, err)
	}
	return nil
}

func (store *LedgerStore) SumEntries(ctx context.Context, accountID string, entryType customerledger.EntryType) (decimal.Decimal, error) {
	var sum sqlSum
	err := store.db.WithContext(ctx).
		Model(&LedgerEntry{}).
		Select("coalesce(sum(amount),0) as total").
		Where("account_id = ? AND type = ?", accountID, entryType.String()).
		Scan(&sum).Error
	if err != nil {
		return decimal.Zero, wrapStoreError(errorSubjectBalance, errorCodeSum, err)
	}
	return roundMoney(sum.Total), nil
}

func (store *LedgerStore) ListEntries(ctx context.Context, accountID string, limit int) ([]customerledger.Entry, error) {
	var rows []LedgerEntry
	err := store.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC, entry_id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectEntry, errorCodeList, err)
	}
	entries := make([]customerledger.Entry, 0, len(rows))
	for _, row := range rows {
		entry, err := mapLedgerEntry(row)
		if err != nil {
			return nil, wrapStoreError(errorSubjectEntry, errorCodeInvalid, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

type sqlSum struct {
	Total decimal.Decimal
}

// roundMoney drops the float noise sqlite sums carry on numeric columns.
func roundMoney(value decimal.Decimal) decimal.Decimal {
	return value.Round(2)
}

func ledgerEntryModel(entry customerledger.Entry) LedgerEntry {
	return LedgerEntry{
		EntryID:        entry.ID,
		AccountID:      entry.AccountID,
		Type:           entry.Type.String(),
		Amount:         entry.Amount,
		ReservationKey: optionalString(entry.ReservationKey),
		ReceiptID:      optionalString(entry.ReceiptID),
		IdempotencyKey: entry.IdempotencyKey,
		Metadata:       datatypesJSON(entry.Metadata),
		CreatedAt:      entry.CreatedAt.UTC(),
	}
}

func mapLedgerEntry(row LedgerEntry) (customerledger.Entry, error) {
	entryType, err := customerledger.ParseEntryType(row.Type)
	if err != nil {
		return customerledger.Entry{}, err
	}
	return customerledger.Entry{
		ID:             row.EntryID,
		AccountID:      row.AccountID,
		Type:           entryType,
		Amount:         row.Amount,
		ReservationKey: stringOrEmpty(row.ReservationKey),
		ReceiptID:      stringOrEmpty(row.ReceiptID),
		IdempotencyKey: row.IdempotencyKey,
		Metadata:       string(row.Metadata),
		CreatedAt:      row.CreatedAt.UTC(),
	}, nil
}

func isIdempotencyConflict(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolationCode && pgErr.ConstraintName == constraintLedgerIdempotencyKey
	}
	return isSQLiteUniqueViolation(err)
}
