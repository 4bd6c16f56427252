package pms

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

var fixedNow = time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

type stubStore struct {
	reservations map[string]Reservation
	units        map[string]ReservationUnit
	dayRates     map[string]DayRate
	invoices     map[string]Invoice
	receipts     []PaymentReceipt
	apartments   map[string]Apartment
	floors       map[string]Floor

	beforeCreateReservation func(store *stubStore, reservation Reservation) error
	concurrentWrites        []func(store *stubStore)
	dayRateErr              error
	apartmentErrs           map[int64]error
	transactions            int
}

func newStubStore(test *testing.T) *stubStore {
	test.Helper()
	return &stubStore{
		reservations:  map[string]Reservation{},
		units:         map[string]ReservationUnit{},
		dayRates:      map[string]DayRate{},
		invoices:      map[string]Invoice{},
		apartments:    map[string]Apartment{},
		floors:        map[string]Floor{},
		apartmentErrs: map[int64]error{},
	}
}

// WithTx restores the previous state when fn fails. Writes queued in
// concurrentWrites land after the rollback, as if another caller committed.
func (store *stubStore) WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error {
	store.transactions++
	snapshot := store.clone()
	if err := fn(ctx, store); err != nil {
		store.restore(snapshot)
		for _, write := range store.concurrentWrites {
			write(store)
		}
		store.concurrentWrites = nil
		return err
	}
	return nil
}

func (store *stubStore) clone() stubStore {
	copied := stubStore{
		reservations: make(map[string]Reservation, len(store.reservations)),
		units:        make(map[string]ReservationUnit, len(store.units)),
		dayRates:     make(map[string]DayRate, len(store.dayRates)),
		invoices:     make(map[string]Invoice, len(store.invoices)),
		receipts:     append([]PaymentReceipt(nil), store.receipts...),
		apartments:   make(map[string]Apartment, len(store.apartments)),
		floors:       make(map[string]Floor, len(store.floors)),
	}
	for key, value := range store.reservations {
		copied.reservations[key] = value
	}
	for key, value := range store.units {
		copied.units[key] = value
	}
	for key, value := range store.dayRates {
		copied.dayRates[key] = value
	}
	for key, value := range store.invoices {
		copied.invoices[key] = value
	}
	for key, value := range store.apartments {
		copied.apartments[key] = value
	}
	for key, value := range store.floors {
		copied.floors[key] = value
	}
	return copied
}

func (store *stubStore) restore(snapshot stubStore) {
	store.reservations = snapshot.reservations
	store.units = snapshot.units
	store.dayRates = snapshot.dayRates
	store.invoices = snapshot.invoices
	store.receipts = snapshot.receipts
	store.apartments = snapshot.apartments
	store.floors = snapshot.floors
}

func (store *stubStore) FindReservationByNumber(ctx context.Context, hotelID HotelID, number ReservationNumber) (Reservation, error) {
	for _, reservation := range store.reservations {
		if reservation.HotelID == hotelID && reservation.Number == number {
			return reservation, nil
		}
	}
	return Reservation{}, ErrUnknownReservation
}

func (store *stubStore) CreateReservation(ctx context.Context, reservation Reservation) error {
	if store.beforeCreateReservation != nil {
		hook := store.beforeCreateReservation
		store.beforeCreateReservation = nil
		if err := hook(store, reservation); err != nil {
			return err
		}
	}
	for _, existing := range store.reservations {
		if existing.HotelID == reservation.HotelID && existing.Number == reservation.Number {
			return ErrDuplicateReservation
		}
	}
	store.reservations[reservation.Ref.Internal] = reservation
	return nil
}

func (store *stubStore) UpdateReservation(ctx context.Context, reservation Reservation) error {
	if _, ok := store.reservations[reservation.Ref.Internal]; !ok {
		return ErrUnknownReservation
	}
	store.reservations[reservation.Ref.Internal] = reservation
	return nil
}

func (store *stubStore) DeleteReservation(ctx context.Context, reservationID string) error {
	if _, ok := store.reservations[reservationID]; !ok {
		return ErrUnknownReservation
	}
	delete(store.reservations, reservationID)
	return nil
}

func (store *stubStore) ListUnits(ctx context.Context, reservationKeys []string) ([]ReservationUnit, error) {
	var units []ReservationUnit
	for _, unit := range store.units {
		if containsKey(reservationKeys, unit.ReservationKey) {
			units = append(units, unit)
		}
	}
	sort.Slice(units, func(left, right int) bool { return units[left].Ref.Internal < units[right].Ref.Internal })
	return units, nil
}

func (store *stubStore) CreateUnit(ctx context.Context, unit ReservationUnit) error {
	store.units[unit.Ref.Internal] = unit
	return nil
}

func (store *stubStore) UpdateUnit(ctx context.Context, unit ReservationUnit) error {
	if _, ok := store.units[unit.Ref.Internal]; !ok {
		return fmt.Errorf("unit %s not found", unit.Ref.Internal)
	}
	store.units[unit.Ref.Internal] = unit
	return nil
}

func (store *stubStore) DeleteUnit(ctx context.Context, unitID string) error {
	delete(store.units, unitID)
	for id, rate := range store.dayRates {
		if rate.UnitID == unitID {
			delete(store.dayRates, id)
		}
	}
	return nil
}

func (store *stubStore) DetachInvoices(ctx context.Context, unitID string) (int64, error) {
	var detached int64
	for id, invoice := range store.invoices {
		if invoice.UnitID == unitID {
			invoice.UnitID = ""
			store.invoices[id] = invoice
			detached++
		}
	}
	return detached, nil
}

func (store *stubStore) ReplaceDayRates(ctx context.Context, reservationKeys []string, rates []DayRate) error {
	if store.dayRateErr != nil {
		return store.dayRateErr
	}
	for id, rate := range store.dayRates {
		if containsKey(reservationKeys, rate.ReservationKey) {
			delete(store.dayRates, id)
		}
	}
	for _, rate := range rates {
		store.dayRates[rate.ID] = rate
	}
	return nil
}

func (store *stubStore) ListDayRates(ctx context.Context, reservationKeys []string) ([]DayRate, error) {
	var rates []DayRate
	for _, rate := range store.dayRates {
		if containsKey(reservationKeys, rate.ReservationKey) {
			rates = append(rates, rate)
		}
	}
	sort.Slice(rates, func(left, right int) bool {
		if rates[left].ApartmentID != rates[right].ApartmentID {
			return rates[left].ApartmentID < rates[right].ApartmentID
		}
		return rates[left].NightDate.Before(rates[right].NightDate)
	})
	return rates, nil
}

func (store *stubStore) SaveDayRates(ctx context.Context, rates []DayRate) error {
	for _, rate := range rates {
		store.dayRates[rate.ID] = rate
	}
	return nil
}

func (store *stubStore) FindApartmentByExternalID(ctx context.Context, externalID int64) (Apartment, error) {
	if err := store.apartmentErrs[externalID]; err != nil {
		return Apartment{}, err
	}
	for _, apartment := range store.apartments {
		if apartment.ExternalID == externalID {
			return apartment, nil
		}
	}
	return Apartment{}, ErrUnknownApartment
}

func (store *stubStore) UpdateApartmentStatus(ctx context.Context, apartmentID string, status ApartmentStatus) error {
	apartment, ok := store.apartments[apartmentID]
	if !ok {
		return ErrUnknownApartment
	}
	apartment.Status = status
	store.apartments[apartmentID] = apartment
	return nil
}

func (store *stubStore) SaveApartment(ctx context.Context, apartment Apartment) error {
	store.apartments[apartment.ID] = apartment
	return nil
}

func (store *stubStore) SaveFloor(ctx context.Context, floor Floor) error {
	store.floors[floor.ID] = floor
	return nil
}

func (store *stubStore) CountFloorApartments(ctx context.Context, floorID string) (int64, error) {
	var count int64
	for _, apartment := range store.apartments {
		if apartment.FloorID == floorID {
			count++
		}
	}
	return count, nil
}

func (store *stubStore) DeleteFloor(ctx context.Context, floorID string) error {
	if _, ok := store.floors[floorID]; !ok {
		return ErrUnknownFloor
	}
	delete(store.floors, floorID)
	return nil
}

func (store *stubStore) GetInvoice(ctx context.Context, invoiceID string) (Invoice, error) {
	invoice, ok := store.invoices[invoiceID]
	if !ok {
		return Invoice{}, ErrUnknownInvoice
	}
	return invoice, nil
}

func (store *stubStore) CreateInvoice(ctx context.Context, invoice Invoice) error {
	store.invoices[invoice.ID] = invoice
	return nil
}

func (store *stubStore) CreatePaymentReceipt(ctx context.Context, receipt PaymentReceipt) error {
	store.receipts = append(store.receipts, receipt)
	return nil
}

func (store *stubStore) unitsOf(test *testing.T, reservation Reservation) []ReservationUnit {
	test.Helper()
	units, err := store.ListUnits(context.Background(), reservation.Ref.Keys())
	if err != nil {
		test.Fatalf("list units: %v", err)
	}
	return units
}

func (store *stubStore) ratesOf(test *testing.T, reservation Reservation) []DayRate {
	test.Helper()
	rates, err := store.ListDayRates(context.Background(), reservation.Ref.Keys())
	if err != nil {
		test.Fatalf("list day rates: %v", err)
	}
	return rates
}

func (store *stubStore) addApartment(externalID int64, floorID string, status ApartmentStatus) Apartment {
	apartment := Apartment{
		ID:         "apt-" + strconv.FormatInt(externalID, 10),
		ExternalID: externalID,
		HotelID:    1,
		FloorID:    floorID,
		Status:     status,
	}
	store.apartments[apartment.ID] = apartment
	return apartment
}

func containsKey(keys []string, key string) bool {
	for _, candidate := range keys {
		if candidate == key {
			return true
		}
	}
	return false
}

type recorderLogger struct {
	entries []OperationLog
}

func (logger *recorderLogger) LogOperation(_ context.Context, entry OperationLog) {
	logger.entries = append(logger.entries, entry)
}

type stubLedger struct {
	reservations []Reservation
	removed      []Reservation
	receipts     []PaymentReceipt
	err          error
}

func (ledger *stubLedger) SyncReservation(ctx context.Context, reservation Reservation) error {
	if ledger.err != nil {
		return ledger.err
	}
	ledger.reservations = append(ledger.reservations, reservation)
	return nil
}

func (ledger *stubLedger) RemoveReservation(ctx context.Context, reservation Reservation) error {
	if ledger.err != nil {
		return ledger.err
	}
	ledger.removed = append(ledger.removed, reservation)
	return nil
}

func (ledger *stubLedger) SyncReceipt(ctx context.Context, receipt PaymentReceipt) error {
	if ledger.err != nil {
		return ledger.err
	}
	ledger.receipts = append(ledger.receipts, receipt)
	return nil
}

func sequentialIDs(prefix string) IDGenerator {
	var counter atomic.Int64
	return func() string {
		return fmt.Sprintf("%s-%03d", prefix, counter.Add(1))
	}
}

func mustNewService(test *testing.T, store Store, options ...ServiceOption) *Service {
	test.Helper()
	options = append([]ServiceOption{WithIDGenerator(sequentialIDs("id"))}, options...)
	service, err := NewService(store, func() time.Time { return fixedNow }, options...)
	if err != nil {
		test.Fatalf("new service: %v", err)
	}
	return service
}

func mustDecimal(test *testing.T, raw string) decimal.Decimal {
	test.Helper()
	value, err := decimal.NewFromString(raw)
	if err != nil {
		test.Fatalf("decimal %q: %v", raw, err)
	}
	return value
}

func mustDate(test *testing.T, raw string) time.Time {
	test.Helper()
	value, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		test.Fatalf("date %q: %v", raw, err)
	}
	return value
}

func unitPayload(test *testing.T, external int64, apartmentID int64, checkIn string, checkOut string, total string) UnitPayload {
	test.Helper()
	payload := UnitPayload{
		ApartmentID: apartmentID,
		CheckIn:     mustDate(test, checkIn),
		CheckOut:    mustDate(test, checkOut),
		TotalAmount: Set(mustDecimal(test, total)),
	}
	if external > 0 {
		payload.ExternalID = Set(external)
	}
	return payload
}
