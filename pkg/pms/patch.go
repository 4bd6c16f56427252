package pms

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var jsonNull = []byte("null")

// Patch carries an optional field value. An unset patch never overwrites;
// absent and null JSON values both decode to unset.
type Patch[T any] struct {
	value T
	set   bool
}

// Set returns a patch carrying value.
func Set[T any](value T) Patch[T] {
	return Patch[T]{value: value, set: true}
}

// IsSet reports whether the patch carries a value.
func (patch Patch[T]) IsSet() bool {
	return patch.set
}

// Value returns the carried value and whether it is set.
func (patch Patch[T]) Value() (T, bool) {
	return patch.value, patch.set
}

// ValueOr returns the carried value or fallback.
func (patch Patch[T]) ValueOr(fallback T) T {
	if !patch.set {
		return fallback
	}
	return patch.value
}

// ApplyTo overwrites target when the patch is set and reports whether it did.
func (patch Patch[T]) ApplyTo(target *T) bool {
	if !patch.set {
		return false
	}
	*target = patch.value
	return true
}

// UnmarshalJSON decodes a present, non-null value as set.
func (patch *Patch[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), jsonNull) {
		*patch = Patch[T]{}
		return nil
	}
	var value T
	if target, ok := any(&value).(*time.Time); ok {
		parsed, present, err := decodeTimestamp(data)
		if err != nil {
			return err
		}
		if !present {
			*patch = Patch[T]{}
			return nil
		}
		*target = parsed
		*patch = Set(value)
		return nil
	}
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	*patch = Set(value)
	return nil
}

// MarshalJSON encodes an unset patch as null.
func (patch Patch[T]) MarshalJSON() ([]byte, error) {
	if !patch.set {
		return jsonNull, nil
	}
	return json.Marshal(patch.value)
}

func applyNullDecimal(patch Patch[decimal.Decimal], target *decimal.NullDecimal) {
	if value, ok := patch.Value(); ok {
		*target = decimal.NewNullDecimal(value)
	}
}

func applyText(patch Patch[string], target *string) {
	if value, ok := patch.Value(); ok && strings.TrimSpace(value) != "" {
		*target = strings.TrimSpace(value)
	}
}

// ReservationPayload is the inbound reservation create/update call.
type ReservationPayload struct {
	HotelID           int64                  `json:"hotel_id"`
	ReservationNumber string                 `json:"reservation_no"`
	ExternalID        Patch[int64]           `json:"zaaer_id"`
	CustomerID        Patch[int64]           `json:"customer_id"`
	ReservationDate   Patch[time.Time]       `json:"reservation_date"`
	RentalMode        Patch[string]          `json:"rental_type"`
	ReservationType   Patch[string]          `json:"reservation_type"`
	Status            Patch[string]          `json:"status"`
	NumberOfMonths    Patch[int]             `json:"number_of_months"`
	TotalNights       Patch[int]             `json:"total_nights"`
	Subtotal          Patch[decimal.Decimal] `json:"subtotal"`
	VATRate           Patch[decimal.Decimal] `json:"vat_rate"`
	VATAmount         Patch[decimal.Decimal] `json:"vat_amount"`
	LodgingTaxRate    Patch[decimal.Decimal] `json:"lodging_tax_rate"`
	LodgingTaxAmount  Patch[decimal.Decimal] `json:"lodging_tax_amount"`
	TotalTaxAmount    Patch[decimal.Decimal] `json:"total_tax_amount"`
	TotalExtra        Patch[decimal.Decimal] `json:"total_extra"`
	TotalPenalties    Patch[decimal.Decimal] `json:"total_penalties"`
	TotalDiscounts    Patch[decimal.Decimal] `json:"total_discounts"`
	TotalAmount       Patch[decimal.Decimal] `json:"total_amount"`
	AmountPaid        Patch[decimal.Decimal] `json:"amount_paid"`
	BalanceAmount     Patch[decimal.Decimal] `json:"balance_amount"`
	CheckIn           Patch[time.Time]       `json:"check_in_date"`
	CheckOut          Patch[time.Time]       `json:"check_out_date"`
	Departure         Patch[time.Time]       `json:"departure_date"`
	Units             []UnitPayload          `json:"reservation_units"`
}

// UnitPayload is one incoming reservation unit line item.
type UnitPayload struct {
	ExternalID       Patch[int64]           `json:"zaaer_id"`
	ApartmentID      int64                  `json:"apartment_id"`
	CheckIn          time.Time              `json:"check_in_date"`
	CheckOut         time.Time              `json:"check_out_date"`
	Departure        Patch[time.Time]       `json:"departure_date"`
	Nights           Patch[int]             `json:"number_of_nights"`
	RentAmount       Patch[decimal.Decimal] `json:"rent_amount"`
	VATRate          Patch[decimal.Decimal] `json:"vat_rate"`
	VATAmount        Patch[decimal.Decimal] `json:"vat_amount"`
	LodgingTaxRate   Patch[decimal.Decimal] `json:"lodging_tax_rate"`
	LodgingTaxAmount Patch[decimal.Decimal] `json:"lodging_tax_amount"`
	TotalAmount      Patch[decimal.Decimal] `json:"total_amount"`
	Status           Patch[string]          `json:"status"`
}

func (payload ReservationPayload) validate() (HotelID, ReservationNumber, error) {
	hotelID, err := NewHotelID(payload.HotelID)
	if err != nil {
		return 0, ReservationNumber{}, err
	}
	number, err := NewReservationNumber(payload.ReservationNumber)
	if err != nil {
		return 0, ReservationNumber{}, err
	}
	if mode, ok := payload.RentalMode.Value(); ok && strings.TrimSpace(mode) != "" {
		if _, err := ParseRentalMode(mode); err != nil {
			return 0, ReservationNumber{}, err
		}
	}
	seen := make(map[int64]int, len(payload.Units))
	for index, unit := range payload.Units {
		if err := unit.validate(); err != nil {
			return 0, ReservationNumber{}, fmt.Errorf("unit %d: %w", index, err)
		}
		if external, ok := unit.ExternalID.Value(); ok && external > 0 {
			if first, duplicate := seen[external]; duplicate {
				return 0, ReservationNumber{}, fmt.Errorf("%w: units %d and %d share external id %d", ErrInvalidUnit, first, index, external)
			}
			seen[external] = index
		}
	}
	return hotelID, number, nil
}

// applyTo patches the reservation header; absent fields are left as they are.
func (payload ReservationPayload) applyTo(reservation *Reservation) {
	if external, ok := payload.ExternalID.Value(); ok && external > 0 {
		reservation.Ref.External = external
	}
	payload.CustomerID.ApplyTo(&reservation.CustomerID)
	payload.ReservationDate.ApplyTo(&reservation.ReservationDate)
	if mode, ok := payload.RentalMode.Value(); ok && strings.TrimSpace(mode) != "" {
		if parsed, err := ParseRentalMode(mode); err == nil {
			reservation.RentalMode = parsed
		}
	}
	applyText(payload.ReservationType, &reservation.ReservationType)
	applyText(payload.Status, &reservation.Status)
	payload.NumberOfMonths.ApplyTo(&reservation.NumberOfMonths)
	payload.TotalNights.ApplyTo(&reservation.TotalNights)
	applyNullDecimal(payload.Subtotal, &reservation.Subtotal)
	applyNullDecimal(payload.VATRate, &reservation.VATRate)
	applyNullDecimal(payload.VATAmount, &reservation.VATAmount)
	applyNullDecimal(payload.LodgingTaxRate, &reservation.LodgingTaxRate)
	applyNullDecimal(payload.LodgingTaxAmount, &reservation.LodgingTaxAmount)
	applyNullDecimal(payload.TotalTaxAmount, &reservation.TotalTaxAmount)
	applyNullDecimal(payload.TotalExtra, &reservation.TotalExtra)
	applyNullDecimal(payload.TotalPenalties, &reservation.TotalPenalties)
	applyNullDecimal(payload.TotalDiscounts, &reservation.TotalDiscounts)
	applyNullDecimal(payload.TotalAmount, &reservation.TotalAmount)
	applyNullDecimal(payload.AmountPaid, &reservation.AmountPaid)
	applyNullDecimal(payload.BalanceAmount, &reservation.BalanceAmount)
	payload.CheckIn.ApplyTo(&reservation.CheckIn)
	payload.CheckOut.ApplyTo(&reservation.CheckOut)
	payload.Departure.ApplyTo(&reservation.Departure)
	if reservation.RentalMode == "" {
		reservation.RentalMode = RentalModeDaily
	}
	if strings.TrimSpace(reservation.ReservationType) == "" {
		reservation.ReservationType = defaultReservationType
	}
	if strings.TrimSpace(reservation.Status) == "" {
		reservation.Status = defaultReservationStatus
	}
}

func (payload UnitPayload) validate() error {
	if payload.ApartmentID <= 0 {
		return fmt.Errorf("%w: apartment id must be greater than zero", ErrInvalidUnit)
	}
	if payload.CheckIn.IsZero() || payload.CheckOut.IsZero() {
		return fmt.Errorf("%w: check-in and check-out are required", ErrInvalidStayWindow)
	}
	if payload.CheckOut.Before(payload.CheckIn) {
		return fmt.Errorf("%w: check-out before check-in", ErrInvalidStayWindow)
	}
	if total, ok := payload.TotalAmount.Value(); ok && total.IsNegative() {
		return fmt.Errorf("%w: negative unit total", ErrInvalidAmount)
	}
	return nil
}

// applyTo writes the incoming unit onto unit. Stay fields are always
// overwritten; money and status only when present.
func (payload UnitPayload) applyTo(unit *ReservationUnit) {
	if external, ok := payload.ExternalID.Value(); ok && external > 0 {
		unit.Ref.External = external
	}
	unit.ApartmentID = payload.ApartmentID
	unit.CheckIn = payload.CheckIn
	unit.CheckOut = payload.CheckOut
	unit.Departure = payload.Departure.ValueOr(payload.CheckOut)
	unit.Nights = payload.Nights.ValueOr(0)
	if unit.Nights <= 0 {
		unit.Nights = NightCount(unit.CheckIn, unit.EffectiveCheckOut())
	}
	applyNullDecimal(payload.RentAmount, &unit.RentAmount)
	applyNullDecimal(payload.VATRate, &unit.VATRate)
	applyNullDecimal(payload.VATAmount, &unit.VATAmount)
	applyNullDecimal(payload.LodgingTaxRate, &unit.LodgingTaxRate)
	applyNullDecimal(payload.LodgingTaxAmount, &unit.LodgingTaxAmount)
	payload.TotalAmount.ApplyTo(&unit.TotalAmount)
	applyText(payload.Status, &unit.Status)
}

// newUnit builds a unit for insertion, filling defaults the upstream may omit.
func (payload UnitPayload) newUnit(reservation Reservation) ReservationUnit {
	unit := ReservationUnit{ReservationKey: reservation.Key(), Status: defaultUnitStatus}
	payload.applyTo(&unit)
	if !payload.TotalAmount.IsSet() && unit.RentAmount.Valid {
		unit.TotalAmount = unit.RentAmount.Decimal
	}
	if !unit.VATRate.Valid && reservation.VATRate.Valid {
		unit.VATRate = reservation.VATRate
	}
	if !unit.LodgingTaxRate.Valid && reservation.LodgingTaxRate.Valid {
		unit.LodgingTaxRate = reservation.LodgingTaxRate
	}
	return unit
}
