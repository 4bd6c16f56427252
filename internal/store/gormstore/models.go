package gormstore

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Models lists every table owned by the store, in migration order.
func Models() []any {
	return []any{&Floor{}, &Apartment{}, &Reservation{}, &ReservationUnit{}, &DayRate{}, &Invoice{}, &PaymentReceipt{}, &Account{}, &LedgerEntry{}}
}

// Reservation mirrors the reservations table.
type Reservation struct {
	ID                string              `gorm:"type:uuid;primaryKey"`
	ExternalID        *int64              `gorm:"index:idx_reservations_external"`
	HotelID           int64               `gorm:"not null;index:uniq_reservations_hotel_number,unique,priority:1"`
	ReservationNumber string              `gorm:"not null;index:uniq_reservations_hotel_number,unique,priority:2"`
	CustomerID        int64               `gorm:"not null;default:0"`
	ReservationDate   *time.Time          `gorm:""`
	RentalType        string              `gorm:"not null"`
	ReservationType   string              `gorm:"not null"`
	Status            string              `gorm:"not null"`
	NumberOfMonths    int                 `gorm:"not null;default:0"`
	TotalNights       int                 `gorm:"not null;default:0"`
	Subtotal          decimal.NullDecimal `gorm:"type:numeric(14,2)"`
	VatRate           decimal.NullDecimal `gorm:"type:numeric(7,4)"`
	VatAmount         decimal.NullDecimal `gorm:"type:numeric(14,2)"`
	LodgingTaxRate    decimal.NullDecimal `gorm:"type:numeric(7,4)"`
	LodgingTaxAmount  decimal.NullDecimal `gorm:"type:numeric(14,2)"`
	TotalTaxAmount    decimal.NullDecimal `gorm:"type:numeric(14,2)"`
	TotalExtra        decimal.NullDecimal `gorm:"type:numeric(14,2)"`
	TotalPenalties    decimal.NullDecimal `gorm:"type:numeric(14,2)"`
	TotalDiscounts    decimal.NullDecimal `gorm:"type:numeric(14,2)"`
	TotalAmount       decimal.NullDecimal `gorm:"type:numeric(14,2)"`
	AmountPaid        decimal.NullDecimal `gorm:"type:numeric(14,2)"`
	BalanceAmount     decimal.NullDecimal `gorm:"type:numeric(14,2)"`
	CheckInDate       *time.Time          `gorm:""`
	CheckOutDate      *time.Time          `gorm:""`
	DepartureDate     *time.Time          `gorm:""`
	Payload           datatypes.JSON      `gorm:"type:jsonb;not null"`
	CreatedAt         time.Time           `gorm:"not null"`
	UpdatedAt         time.Time           `gorm:"not null"`
}

func (Reservation) TableName() string { return "reservations" }

func (reservation *Reservation) BeforeCreate(tx *gorm.DB) error {
	if reservation.ID == "" {
		reservation.ID = uuid.NewString()
	}
	return nil
}

// ReservationUnit mirrors the reservation_units table. ReservationKey holds the
// owning reservation's reference key, so units follow the reservation when it
// gains an upstream id.
type ReservationUnit struct {
	ID               string              `gorm:"type:uuid;primaryKey"`
	ExternalID       *int64              `gorm:"index:idx_reservation_units_external"`
	ReservationKey   string              `gorm:"not null;index:idx_reservation_units_reservation"`
	ApartmentID      int64               `gorm:"not null;index:idx_reservation_units_apartment"`
	CheckInDate      time.Time           `gorm:"not null"`
	CheckOutDate     time.Time           `gorm:"not null"`
	DepartureDate    *time.Time          `gorm:""`
	NumberOfNights   int                 `gorm:"not null"`
	RentAmount       decimal.NullDecimal `gorm:"type:numeric(14,2)"`
	VatRate          decimal.NullDecimal `gorm:"type:numeric(7,4)"`
	VatAmount        decimal.NullDecimal `gorm:"type:numeric(14,2)"`
	LodgingTaxRate   decimal.NullDecimal `gorm:"type:numeric(7,4)"`
	LodgingTaxAmount decimal.NullDecimal `gorm:"type:numeric(14,2)"`
	TotalAmount      decimal.Decimal     `gorm:"type:numeric(14,2);not null"`
	Status           string              `gorm:"not null"`
	CreatedAt        time.Time           `gorm:"not null"`
	UpdatedAt        time.Time           `gorm:"not null"`
}

func (ReservationUnit) TableName() string { return "reservation_units" }

func (unit *ReservationUnit) BeforeCreate(tx *gorm.DB) error {
	if unit.ID == "" {
		unit.ID = uuid.NewString()
	}
	return nil
}

// DayRate mirrors the day_rates table.
type DayRate struct {
	ID             string              `gorm:"type:uuid;primaryKey"`
	ReservationKey string              `gorm:"not null;index:idx_day_rates_reservation_night,priority:1"`
	UnitID         string              `gorm:"type:uuid;not null;index:idx_day_rates_unit"`
	ApartmentID    int64               `gorm:"not null"`
	NightDate      datatypes.Date      `gorm:"not null;index:idx_day_rates_reservation_night,priority:2"`
	GrossRate      decimal.Decimal     `gorm:"type:numeric(14,2);not null"`
	EwaAmount      decimal.NullDecimal `gorm:"type:numeric(14,2)"`
	VatAmount      decimal.NullDecimal `gorm:"type:numeric(14,2)"`
	NetAmount      decimal.NullDecimal `gorm:"type:numeric(14,2)"`
	IsManual       bool                `gorm:"not null;default:false"`
	CreatedAt      time.Time           `gorm:"not null"`
	UpdatedAt      time.Time           `gorm:"not null"`
}

func (DayRate) TableName() string { return "day_rates" }

func (rate *DayRate) BeforeCreate(tx *gorm.DB) error {
	if rate.ID == "" {
		rate.ID = uuid.NewString()
	}
	return nil
}

// Invoice mirrors the invoices table. A null UnitID means the unit it billed
// no longer exists.
type Invoice struct {
	ID             string          `gorm:"type:uuid;primaryKey"`
	HotelID        int64           `gorm:"not null"`
	ReservationKey string          `gorm:"not null;index:idx_invoices_reservation"`
	UnitID         *string         `gorm:"index:idx_invoices_unit"`
	InvoiceNumber  string          `gorm:"not null"`
	Total          decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	CreatedAt      time.Time       `gorm:"not null"`
}

func (Invoice) TableName() string { return "invoices" }

// PaymentReceipt mirrors the payment_receipts table.
type PaymentReceipt struct {
	ID             string          `gorm:"type:uuid;primaryKey"`
	HotelID        int64           `gorm:"not null"`
	CustomerID     int64           `gorm:"not null;default:0"`
	ReservationKey *string         `gorm:"index:idx_payment_receipts_reservation"`
	InvoiceID      *string         `gorm:"index:idx_payment_receipts_invoice"`
	ReceiptNumber  string          `gorm:"not null"`
	VoucherCode    string          `gorm:"not null;default:''"`
	ReceiptType    string          `gorm:"not null;default:''"`
	Amount         decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	ReceiptDate    time.Time       `gorm:"not null"`
	CreatedAt      time.Time       `gorm:"not null"`
}

func (PaymentReceipt) TableName() string { return "payment_receipts" }

// Apartment mirrors the apartments table.
type Apartment struct {
	ID         string    `gorm:"type:uuid;primaryKey"`
	ExternalID int64     `gorm:"not null;index:uniq_apartments_external,unique"`
	HotelID    int64     `gorm:"not null"`
	FloorID    *string   `gorm:"index:idx_apartments_floor"`
	Name       string    `gorm:"not null;default:''"`
	Status     string    `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`
}

func (Apartment) TableName() string { return "apartments" }

// Floor mirrors the floors table.
type Floor struct {
	ID        string    `gorm:"type:uuid;primaryKey"`
	HotelID   int64     `gorm:"not null"`
	Name      string    `gorm:"not null;default:''"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (Floor) TableName() string { return "floors" }

// Account represents the customer ledger accounts table.
type Account struct {
	AccountID  string    `gorm:"type:uuid;primaryKey"`
	HotelID    int64     `gorm:"not null;index:uniq_accounts_hotel_customer,unique,priority:1"`
	CustomerID int64     `gorm:"not null;index:uniq_accounts_hotel_customer,unique,priority:2"`
	CreatedAt  time.Time `gorm:"not null"`
}

func (Account) TableName() string { return "accounts" }

func (account *Account) BeforeCreate(tx *gorm.DB) error {
	if account.AccountID == "" {
		account.AccountID = uuid.NewString()
	}
	return nil
}

// LedgerEntry mirrors the ledger_entries table.
type LedgerEntry struct {
	EntryID        string          `gorm:"type:uuid;primaryKey"`
	AccountID      string          `gorm:"type:uuid;not null;index:idx_ledger_account_created,priority:1"`
	Type           string          `gorm:"not null"`
	Amount         decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	ReservationKey *string         `gorm:"index:idx_ledger_reservation"`
	ReceiptID      *string         `gorm:""`
	IdempotencyKey string          `gorm:"not null;index:uniq_ledger_entries_idempotency_key,unique"`
	Metadata       datatypes.JSON  `gorm:"type:jsonb;not null"`
	CreatedAt      time.Time       `gorm:"not null;index:idx_ledger_account_created,priority:2"`
}

func (LedgerEntry) TableName() string { return "ledger_entries" }

func (entry *LedgerEntry) BeforeCreate(tx *gorm.DB) error {
	if entry.EntryID == "" {
		entry.EntryID = uuid.NewString()
	}
	return nil
}
