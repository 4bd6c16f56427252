package pms

import (
	"context"
	"time"
)

// ReservationStore persists the reservation aggregate: the header, its
// units, their day-rate rows, and the invoice links a unit removal must clear.
type ReservationStore interface {
	FindReservationByNumber(ctx context.Context, hotelID HotelID, number ReservationNumber) (Reservation, error)
	CreateReservation(ctx context.Context, reservation Reservation) error
	UpdateReservation(ctx context.Context, reservation Reservation) error
	DeleteReservation(ctx context.Context, reservationID string) error
	ListUnits(ctx context.Context, reservationKeys []string) ([]ReservationUnit, error)
	CreateUnit(ctx context.Context, unit ReservationUnit) error
	UpdateUnit(ctx context.Context, unit ReservationUnit) error
	DeleteUnit(ctx context.Context, unitID string) error
	DetachInvoices(ctx context.Context, unitID string) (int64, error)
	ReplaceDayRates(ctx context.Context, reservationKeys []string, rates []DayRate) error
	ListDayRates(ctx context.Context, reservationKeys []string) ([]DayRate, error)
	SaveDayRates(ctx context.Context, rates []DayRate) error
}

// ApartmentStore exposes the apartment read-model and the floor hierarchy.
type ApartmentStore interface {
	FindApartmentByExternalID(ctx context.Context, externalID int64) (Apartment, error)
	UpdateApartmentStatus(ctx context.Context, apartmentID string, status ApartmentStatus) error
	SaveApartment(ctx context.Context, apartment Apartment) error
	SaveFloor(ctx context.Context, floor Floor) error
	CountFloorApartments(ctx context.Context, floorID string) (int64, error)
	DeleteFloor(ctx context.Context, floorID string) error
}

// BillingStore persists invoices and payment receipts.
type BillingStore interface {
	GetInvoice(ctx context.Context, invoiceID string) (Invoice, error)
	CreateInvoice(ctx context.Context, invoice Invoice) error
	CreatePaymentReceipt(ctx context.Context, receipt PaymentReceipt) error
}

// Store is the persistence contract used by Service.
type Store interface {
	ReservationStore
	ApartmentStore
	BillingStore
	WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error
}

// LedgerSyncer mirrors reservation charges and receipts into the customer ledger.
type LedgerSyncer interface {
	SyncReservation(ctx context.Context, reservation Reservation) error
	// RemoveReservation drops the charge of a deleted reservation.
	RemoveReservation(ctx context.Context, reservation Reservation) error
	SyncReceipt(ctx context.Context, receipt PaymentReceipt) error
}

// Clock returns the current time.
type Clock func() time.Time

// IDGenerator returns a fresh internal identifier.
type IDGenerator func() string
