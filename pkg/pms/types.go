package pms

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	refKeyExternalPrefix = "ext:"
	refKeyInternalPrefix = "int:"
)

// Ref pairs the internally generated key of an entity with the identifier
// assigned by the upstream system. Lookups and matching always use Key.
type Ref struct {
	Internal string
	External int64
}

// HasExternal reports whether the upstream system assigned an identifier.
func (ref Ref) HasExternal() bool {
	return ref.External > 0
}

// Key returns the external key if present, else the internal one.
func (ref Ref) Key() string {
	if ref.HasExternal() {
		return ExternalKey(ref.External)
	}
	return InternalKey(ref.Internal)
}

// Keys lists every key the entity may have been stored under, preferred key first.
func (ref Ref) Keys() []string {
	keys := []string{ref.Key()}
	if ref.HasExternal() && ref.Internal != "" {
		keys = append(keys, InternalKey(ref.Internal))
	}
	return keys
}

// ExternalKey formats an upstream identifier as a reference key.
func ExternalKey(external int64) string {
	return refKeyExternalPrefix + strconv.FormatInt(external, 10)
}

// InternalKey formats an internal identifier as a reference key.
func InternalKey(internal string) string {
	return refKeyInternalPrefix + internal
}

// HotelID identifies the hotel owning a reservation.
type HotelID int64

// NewHotelID validates a hotel id.
func NewHotelID(raw int64) (HotelID, error) {
	if raw <= 0 {
		return 0, fmt.Errorf("%w: must be greater than zero", ErrInvalidHotelID)
	}
	return HotelID(raw), nil
}

// Int64 returns the raw id.
func (id HotelID) Int64() int64 {
	return int64(id)
}

// ReservationNumber is the human reservation number, unique per hotel.
type ReservationNumber struct {
	value string
}

// NewReservationNumber validates and normalizes a reservation number.
func NewReservationNumber(raw string) (ReservationNumber, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ReservationNumber{}, fmt.Errorf("%w: empty value", ErrInvalidReservationNo)
	}
	return ReservationNumber{value: trimmed}, nil
}

// String returns the normalized number.
func (number ReservationNumber) String() string {
	return number.value
}

// RentalMode selects how unit totals are expanded into day-rate rows.
type RentalMode string

const (
	RentalModeDaily   RentalMode = "daily"
	RentalModeMonthly RentalMode = "monthly"
)

// ParseRentalMode validates a rental mode, case-insensitively.
func ParseRentalMode(raw string) (RentalMode, error) {
	switch RentalMode(strings.ToLower(strings.TrimSpace(raw))) {
	case RentalModeDaily:
		return RentalModeDaily, nil
	case RentalModeMonthly:
		return RentalModeMonthly, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRentalMode, raw)
	}
}

// String returns the mode name.
func (mode RentalMode) String() string {
	return string(mode)
}

// MetadataJSON stores the last raw upstream payload.
type MetadataJSON struct {
	value string
}

// NewMetadataJSON validates metadata string (defaulting to "{}" for empty inputs).
func NewMetadataJSON(raw string) (MetadataJSON, error) {
	normalized := strings.TrimSpace(raw)
	if normalized == "" {
		normalized = "{}"
	}
	if !json.Valid([]byte(normalized)) {
		return MetadataJSON{}, fmt.Errorf("%w: must be valid json", ErrInvalidMetadataJSON)
	}
	return MetadataJSON{value: normalized}, nil
}

// String returns the normalized JSON blob.
func (metadata MetadataJSON) String() string {
	if metadata.value == "" {
		return "{}"
	}
	return metadata.value
}

// ApartmentStatus is the occupancy read-model of an apartment.
type ApartmentStatus string

const (
	ApartmentStatusRented      ApartmentStatus = "rented"
	ApartmentStatusVacant      ApartmentStatus = "vacant"
	ApartmentStatusMaintenance ApartmentStatus = "maintenance"
)

// ParseApartmentStatus validates a status, case-insensitively. Empty input
// yields the empty status, which SaveApartment resolves.
func ParseApartmentStatus(raw string) (ApartmentStatus, error) {
	switch status := ApartmentStatus(strings.ToLower(strings.TrimSpace(raw))); status {
	case "", ApartmentStatusRented, ApartmentStatusVacant, ApartmentStatusMaintenance:
		return status, nil
	default:
		return "", fmt.Errorf("%w: unknown status %q", ErrInvalidApartment, raw)
	}
}

// Reservation is the header of a stay pushed by the upstream system.
type Reservation struct {
	Ref              Ref
	HotelID          HotelID
	Number           ReservationNumber
	CustomerID       int64
	ReservationDate  time.Time
	RentalMode       RentalMode
	ReservationType  string
	Status           string
	NumberOfMonths   int
	TotalNights      int
	Subtotal         decimal.NullDecimal
	VATRate          decimal.NullDecimal
	VATAmount        decimal.NullDecimal
	LodgingTaxRate   decimal.NullDecimal
	LodgingTaxAmount decimal.NullDecimal
	TotalTaxAmount   decimal.NullDecimal
	TotalExtra       decimal.NullDecimal
	TotalPenalties   decimal.NullDecimal
	TotalDiscounts   decimal.NullDecimal
	TotalAmount      decimal.NullDecimal
	AmountPaid       decimal.NullDecimal
	BalanceAmount    decimal.NullDecimal
	CheckIn          time.Time
	CheckOut         time.Time
	Departure        time.Time
	Payload          MetadataJSON
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Key is the reservation key units and day rates are written under.
func (reservation Reservation) Key() string {
	return reservation.Ref.Key()
}

// ReservationUnit is one apartment line item of a reservation.
type ReservationUnit struct {
	Ref              Ref
	ReservationKey   string
	ApartmentID      int64
	CheckIn          time.Time
	CheckOut         time.Time
	Departure        time.Time
	Nights           int
	RentAmount       decimal.NullDecimal
	VATRate          decimal.NullDecimal
	VATAmount        decimal.NullDecimal
	LodgingTaxRate   decimal.NullDecimal
	LodgingTaxAmount decimal.NullDecimal
	TotalAmount      decimal.Decimal
	Status           string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// EffectiveCheckOut returns the departure date when present, else the check-out date.
func (unit ReservationUnit) EffectiveCheckOut() time.Time {
	if !unit.Departure.IsZero() {
		return unit.Departure
	}
	return unit.CheckOut
}

// NightCount returns the stored night count, recomputing it from dates when not positive.
func (unit ReservationUnit) NightCount() int {
	if unit.Nights > 0 {
		return unit.Nights
	}
	return NightCount(unit.CheckIn, unit.EffectiveCheckOut())
}

// NightCount returns ceil(checkOut - checkIn) in days, floored at 1.
func NightCount(checkIn time.Time, checkOut time.Time) int {
	days := checkOut.Sub(checkIn).Hours() / hoursPerDay
	nights := int(math.Ceil(days))
	if nights < 1 {
		return 1
	}
	return nights
}

// DayRate is one billed night (or one monthly period) of a reservation unit.
type DayRate struct {
	ID             string
	ReservationKey string
	UnitID         string
	ApartmentID    int64
	NightDate      time.Time
	Gross          decimal.Decimal
	Fee            decimal.NullDecimal
	VAT            decimal.NullDecimal
	Net            decimal.NullDecimal
	IsManual       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Invoice is the part of an invoice the reconciler needs to preserve billing history.
type Invoice struct {
	ID             string
	HotelID        HotelID
	ReservationKey string
	UnitID         string
	Number         string
	Total          decimal.Decimal
	CreatedAt      time.Time
}

// HasUnit reports whether the invoice still references a reservation unit.
func (invoice Invoice) HasUnit() bool {
	return invoice.UnitID != ""
}

// PaymentReceipt is a money movement, optionally linked to an invoice.
type PaymentReceipt struct {
	ID             string
	HotelID        HotelID
	CustomerID     int64
	ReservationKey string
	InvoiceID      string
	ReceiptNumber  string
	VoucherCode    string
	ReceiptType    string
	Amount         decimal.Decimal
	ReceiptDate    time.Time
	CreatedAt      time.Time
}

// Apartment is a rentable unit known to the upstream system by ExternalID.
type Apartment struct {
	ID         string
	ExternalID int64
	HotelID    HotelID
	FloorID    string
	Name       string
	Status     ApartmentStatus
}

// Floor groups apartments of a building.
type Floor struct {
	ID      string
	HotelID HotelID
	Name    string
}

// ReservationView is the outbound shape of a reservation with its current units.
type ReservationView struct {
	Reservation Reservation
	Units       []ReservationUnit
	Steps       []StepResult
}

func dateOnly(value time.Time) time.Time {
	year, month, day := value.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
