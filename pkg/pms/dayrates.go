package pms

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DayRateAllocator expands unit totals into per-night billing rows.
type DayRateAllocator struct {
	nowFn Clock
	newID IDGenerator
}

// NewDayRateAllocator wires an allocator.
func NewDayRateAllocator(now Clock, newID IDGenerator) (*DayRateAllocator, error) {
	if now == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidServiceConfig)
	}
	if newID == nil {
		return nil, fmt.Errorf("%w: id generator dependency is nil", ErrInvalidServiceConfig)
	}
	return &DayRateAllocator{nowFn: now, newID: newID}, nil
}

// Regenerate replaces every day-rate row of the reservation with rows built
// from units. Rows are never patched incrementally.
func (allocator *DayRateAllocator) Regenerate(ctx context.Context, store ReservationStore, reservation Reservation, units []ReservationUnit) ([]DayRate, error) {
	rates := BuildDayRates(reservation, units)
	now := allocator.nowFn()
	for index := range rates {
		rates[index].ID = allocator.newID()
		rates[index].CreatedAt = now
		rates[index].UpdatedAt = now
	}
	if err := store.ReplaceDayRates(ctx, reservation.Ref.Keys(), rates); err != nil {
		return nil, err
	}
	return rates, nil
}

// BuildDayRates computes the rows for units without touching storage.
// Monthly reservations get one row per unit at check-in. Daily reservations
// get one row per night, each share rounded on its own; the rounding drift is
// kept, so a unit's rows may differ from its total by up to one cent per night.
func BuildDayRates(reservation Reservation, units []ReservationUnit) []DayRate {
	rates := make([]DayRate, 0, len(units))
	for _, unit := range units {
		components := resolveUnitComponents(unit)
		if reservation.RentalMode == RentalModeMonthly {
			rates = append(rates, newDayRate(reservation, unit, dateOnly(unit.CheckIn), unit.TotalAmount, components))
			continue
		}
		nights := unit.NightCount()
		divisor := decimal.NewFromInt(int64(nights))
		share := unitComponents{
			fee: roundMoney(components.fee.Div(divisor)),
			vat: roundMoney(components.vat.Div(divisor)),
			net: roundMoney(components.net.Div(divisor)),
		}
		perGross := roundMoney(unit.TotalAmount.Div(divisor))
		start := dateOnly(unit.CheckIn)
		for night := 0; night < nights; night++ {
			rates = append(rates, newDayRate(reservation, unit, start.AddDate(0, 0, night), perGross, share))
		}
	}
	return rates
}

type unitComponents struct {
	fee decimal.Decimal
	vat decimal.Decimal
	net decimal.Decimal
}

// resolveUnitComponents prefers the amounts the upstream sent and falls back
// to decomposing the unit total with the unit's rates.
func resolveUnitComponents(unit ReservationUnit) unitComponents {
	var breakdown TaxBreakdown
	if !unit.LodgingTaxAmount.Valid || !unit.VATAmount.Valid || !unit.RentAmount.Valid {
		breakdown = Decompose(unit.TotalAmount, unit.LodgingTaxRate, unit.VATRate)
	}
	components := unitComponents{
		fee: firstValid(unit.LodgingTaxAmount, breakdown.Fee),
		vat: firstValid(unit.VATAmount, breakdown.VAT),
	}
	switch {
	case unit.RentAmount.Valid:
		components.net = unit.RentAmount.Decimal
	case breakdown.Base.Valid:
		components.net = breakdown.Base.Decimal
	default:
		components.net = unit.TotalAmount.Sub(components.fee).Sub(components.vat)
	}
	return components
}

func firstValid(values ...decimal.NullDecimal) decimal.Decimal {
	for _, value := range values {
		if value.Valid {
			return value.Decimal
		}
	}
	return decimal.Zero
}

func newDayRate(reservation Reservation, unit ReservationUnit, night time.Time, gross decimal.Decimal, components unitComponents) DayRate {
	return DayRate{
		ReservationKey: reservation.Key(),
		UnitID:         unit.Ref.Internal,
		ApartmentID:    unit.ApartmentID,
		NightDate:      night,
		Gross:          gross,
		Fee:            decimal.NewNullDecimal(components.fee),
		VAT:            decimal.NewNullDecimal(components.vat),
		Net:            decimal.NewNullDecimal(components.net),
	}
}

// ApplyAmountRequest sets one gross amount across a filtered range of rows.
type ApplyAmountRequest struct {
	HotelID           int64                  `json:"-"`
	ReservationNumber string                 `json:"-"`
	Amount            decimal.Decimal        `json:"amount"`
	ApartmentID       Patch[int64]           `json:"apartment_id"`
	DateFrom          Patch[time.Time]       `json:"date_from"`
	DateTo            Patch[time.Time]       `json:"date_to"`
	FeePercent        Patch[decimal.Decimal] `json:"ewa_percent"`
	VATPercent        Patch[decimal.Decimal] `json:"vat_percent"`
}

func (request ApplyAmountRequest) matches(rate DayRate) bool {
	if apartmentID, ok := request.ApartmentID.Value(); ok && rate.ApartmentID != apartmentID {
		return false
	}
	night := dateOnly(rate.NightDate)
	if from, ok := request.DateFrom.Value(); ok && night.Before(dateOnly(from)) {
		return false
	}
	if to, ok := request.DateTo.Value(); ok && night.After(dateOnly(to)) {
		return false
	}
	return true
}

// DayRateItem is one manual per-night override.
type DayRateItem struct {
	ApartmentID int64                  `json:"apartment_id"`
	NightDate   time.Time              `json:"night_date"`
	Gross       decimal.Decimal        `json:"gross_rate"`
	Fee         Patch[decimal.Decimal] `json:"ewa_amount"`
	VAT         Patch[decimal.Decimal] `json:"vat_amount"`
	Net         Patch[decimal.Decimal] `json:"net_amount"`
}

// ListDayRates returns the current rows of a reservation.
func (service *Service) ListDayRates(ctx context.Context, hotelID int64, number string) ([]DayRate, error) {
	reservation, err := service.lookupReservation(ctx, service.store, hotelID, number)
	if err != nil {
		return nil, err
	}
	return service.store.ListDayRates(ctx, reservation.Ref.Keys())
}

// RegenerateDayRates rebuilds every row of a reservation from its current units.
func (service *Service) RegenerateDayRates(ctx context.Context, reservation Reservation) error {
	return service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		units, err := transactionStore.ListUnits(ctx, reservation.Ref.Keys())
		if err != nil {
			return err
		}
		_, err = service.allocator.Regenerate(ctx, transactionStore, reservation, units)
		return err
	})
}

// ApplySameAmount sets gross = amount on every matching row and recomputes
// its components with Decompose. Touched rows are marked manual.
func (service *Service) ApplySameAmount(ctx context.Context, request ApplyAmountRequest) ([]DayRate, error) {
	var updated []DayRate
	operationError := func() error {
		if request.Amount.IsNegative() {
			return fmt.Errorf("%w: amount must not be negative", ErrInvalidAmount)
		}
		return service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
			reservation, err := service.lookupReservation(ctx, transactionStore, request.HotelID, request.ReservationNumber)
			if err != nil {
				return err
			}
			rates, err := transactionStore.ListDayRates(ctx, reservation.Ref.Keys())
			if err != nil {
				return err
			}
			breakdown := Decompose(request.Amount, nullable(request.FeePercent), nullable(request.VATPercent))
			now := service.nowFn()
			for _, rate := range rates {
				if !request.matches(rate) {
					continue
				}
				rate.Gross = request.Amount
				rate.Fee = breakdown.Fee
				rate.VAT = breakdown.VAT
				rate.Net = breakdown.Base
				rate.IsManual = true
				rate.UpdatedAt = now
				updated = append(updated, rate)
			}
			return transactionStore.SaveDayRates(ctx, updated)
		})
	}()
	logOperation(ctx, service.logger, OperationLog{
		Operation:         operationApplyAmount,
		HotelID:           HotelID(request.HotelID),
		ReservationNumber: request.ReservationNumber,
		Error:             operationError,
	})
	if operationError != nil {
		return nil, operationError
	}
	return updated, nil
}

// UpsertDayRates writes manual per-night overrides keyed by apartment and night.
// Components missing from an item are decomposed from its gross amount.
func (service *Service) UpsertDayRates(ctx context.Context, hotelID int64, number string, items []DayRateItem, feePercent decimal.NullDecimal, vatPercent decimal.NullDecimal) ([]DayRate, error) {
	var saved []DayRate
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		reservation, err := service.lookupReservation(ctx, transactionStore, hotelID, number)
		if err != nil {
			return err
		}
		units, err := transactionStore.ListUnits(ctx, reservation.Ref.Keys())
		if err != nil {
			return err
		}
		rates, err := transactionStore.ListDayRates(ctx, reservation.Ref.Keys())
		if err != nil {
			return err
		}
		existing := make(map[string]DayRate, len(rates))
		for _, rate := range rates {
			existing[dayRateSlot(rate.ApartmentID, rate.NightDate)] = rate
		}
		now := service.nowFn()
		for _, item := range items {
			breakdown := Decompose(item.Gross, feePercent, vatPercent)
			rate, found := existing[dayRateSlot(item.ApartmentID, item.NightDate)]
			if !found {
				unit, ok := findUnitByApartment(units, item.ApartmentID)
				if !ok {
					return fmt.Errorf("%w: no unit for apartment %d", ErrInvalidUnit, item.ApartmentID)
				}
				rate = DayRate{
					ID:             service.newID(),
					ReservationKey: reservation.Key(),
					UnitID:         unit.Ref.Internal,
					ApartmentID:    item.ApartmentID,
					NightDate:      dateOnly(item.NightDate),
					CreatedAt:      now,
				}
			}
			rate.Gross = item.Gross
			rate.Fee = nullableOr(item.Fee, breakdown.Fee)
			rate.VAT = nullableOr(item.VAT, breakdown.VAT)
			rate.Net = nullableOr(item.Net, breakdown.Base)
			rate.IsManual = true
			rate.UpdatedAt = now
			saved = append(saved, rate)
		}
		return transactionStore.SaveDayRates(ctx, saved)
	})
	logOperation(ctx, service.logger, OperationLog{
		Operation:         operationUpsertDayRates,
		HotelID:           HotelID(hotelID),
		ReservationNumber: number,
		Error:             operationError,
	})
	if operationError != nil {
		return nil, operationError
	}
	return saved, nil
}

func dayRateSlot(apartmentID int64, night time.Time) string {
	return fmt.Sprintf("%d/%s", apartmentID, dateOnly(night).Format(time.DateOnly))
}

func findUnitByApartment(units []ReservationUnit, apartmentID int64) (ReservationUnit, bool) {
	for _, unit := range units {
		if unit.ApartmentID == apartmentID {
			return unit, true
		}
	}
	return ReservationUnit{}, false
}

func nullable(patch Patch[decimal.Decimal]) decimal.NullDecimal {
	if value, ok := patch.Value(); ok {
		return decimal.NewNullDecimal(value)
	}
	return decimal.NullDecimal{}
}

func nullableOr(patch Patch[decimal.Decimal], fallback decimal.NullDecimal) decimal.NullDecimal {
	if patch.IsSet() {
		return nullable(patch)
	}
	return fallback
}
