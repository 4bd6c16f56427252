package pms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Service reconciles upstream reservation calls against the store.
type Service struct {
	store     Store
	nowFn     Clock
	logger    OperationLogger
	ledger    LedgerSyncer
	newID     IDGenerator
	allocator *DayRateAllocator
	deriver   *ApartmentStatusDeriver
}

// NewService wires a Service.
func NewService(store Store, now Clock, options ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", ErrInvalidServiceConfig)
	}
	if now == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidServiceConfig)
	}
	service := &Service{store: store, nowFn: now, newID: uuid.NewString}
	for _, option := range options {
		if option != nil {
			option(service)
		}
	}
	allocator, err := NewDayRateAllocator(service.nowFn, service.newID)
	if err != nil {
		return nil, err
	}
	deriver, err := NewApartmentStatusDeriver(store, service.logger)
	if err != nil {
		return nil, err
	}
	service.allocator = allocator
	service.deriver = deriver
	return service, nil
}

// CreateOrUpdate upserts a reservation by (hotel, number) and converges its
// units onto the payload. A unique violation on insert means a concurrent call
// won the race; the call is then retried once as an update.
func (service *Service) CreateOrUpdate(ctx context.Context, payload ReservationPayload) (ReservationView, error) {
	base := OperationLog{
		Operation:         operationCreateOrUpdate,
		HotelID:           HotelID(payload.HotelID),
		ReservationNumber: payload.ReservationNumber,
	}
	view, operationError := func() (ReservationView, error) {
		hotelID, number, err := payload.validate()
		if err != nil {
			return ReservationView{}, err
		}
		snapshot, err := snapshotPayload(payload)
		if err != nil {
			return ReservationView{}, err
		}
		view, err := service.writeReservation(ctx, hotelID, number, payload, snapshot, true)
		if !errors.Is(err, ErrDuplicateReservation) {
			return view, err
		}
		view, err = service.writeReservation(ctx, hotelID, number, payload, snapshot, false)
		if err != nil {
			return ReservationView{}, fmt.Errorf("%w: %w", ErrReservationRetryFailed, err)
		}
		return view, nil
	}()
	base.Error = operationError
	logOperation(ctx, service.logger, base)
	if operationError != nil {
		return ReservationView{}, operationError
	}
	base.Error = nil
	view.Steps = runSteps(ctx, service.logger, base, service.reservationSteps(view))
	return view, nil
}

// Update applies payload to an existing reservation addressed by hotel and
// number. An empty unit list leaves the persisted units as they are.
func (service *Service) Update(ctx context.Context, hotelID int64, number string, payload ReservationPayload) (ReservationView, error) {
	payload.HotelID = hotelID
	payload.ReservationNumber = number
	base := OperationLog{
		Operation:         operationUpdate,
		HotelID:           HotelID(hotelID),
		ReservationNumber: number,
	}
	view, operationError := func() (ReservationView, error) {
		validHotelID, validNumber, err := payload.validate()
		if err != nil {
			return ReservationView{}, err
		}
		snapshot, err := snapshotPayload(payload)
		if err != nil {
			return ReservationView{}, err
		}
		return service.writeReservation(ctx, validHotelID, validNumber, payload, snapshot, false)
	}()
	base.Error = operationError
	logOperation(ctx, service.logger, base)
	if operationError != nil {
		return ReservationView{}, operationError
	}
	base.Error = nil
	view.Steps = runSteps(ctx, service.logger, base, service.reservationSteps(view))
	return view, nil
}

// Delete removes a reservation with its units and day rates. Invoices that
// referenced its units are kept with their unit link cleared. The customer
// charge is dropped after commit.
func (service *Service) Delete(ctx context.Context, hotelID int64, number string) error {
	var deleted Reservation
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		reservation, err := service.lookupReservation(ctx, transactionStore, hotelID, number)
		if err != nil {
			return err
		}
		deleted = reservation
		units, err := transactionStore.ListUnits(ctx, reservation.Ref.Keys())
		if err != nil {
			return err
		}
		for _, unit := range units {
			if _, err := removeUnit(ctx, transactionStore, unit); err != nil {
				return err
			}
		}
		if err := transactionStore.ReplaceDayRates(ctx, reservation.Ref.Keys(), nil); err != nil {
			return err
		}
		return transactionStore.DeleteReservation(ctx, reservation.Ref.Internal)
	})
	base := OperationLog{
		Operation:         operationDelete,
		HotelID:           HotelID(hotelID),
		ReservationNumber: number,
		Error:             operationError,
	}
	logOperation(ctx, service.logger, base)
	if operationError != nil {
		return operationError
	}
	base.Error = nil
	runSteps(ctx, service.logger, base, []postCommitStep{{
		name: StepLedgerSync,
		run: func(ctx context.Context) error {
			if service.ledger == nil {
				return errStepSkipped
			}
			return service.ledger.RemoveReservation(ctx, deleted)
		},
	}})
	return nil
}

// Get returns a reservation with its current units.
func (service *Service) Get(ctx context.Context, hotelID int64, number string) (ReservationView, error) {
	reservation, err := service.lookupReservation(ctx, service.store, hotelID, number)
	if err != nil {
		return ReservationView{}, err
	}
	units, err := service.store.ListUnits(ctx, reservation.Ref.Keys())
	if err != nil {
		return ReservationView{}, err
	}
	return ReservationView{Reservation: reservation, Units: units}, nil
}

func (service *Service) writeReservation(ctx context.Context, hotelID HotelID, number ReservationNumber, payload ReservationPayload, snapshot MetadataJSON, allowCreate bool) (ReservationView, error) {
	var view ReservationView
	err := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		reservation, err := transactionStore.FindReservationByNumber(ctx, hotelID, number)
		switch {
		case err == nil:
			view, err = service.updateReservation(ctx, transactionStore, reservation, payload, snapshot)
			return err
		case errors.Is(err, ErrUnknownReservation) && allowCreate:
			view, err = service.createReservation(ctx, transactionStore, hotelID, number, payload, snapshot)
			return err
		default:
			return err
		}
	})
	if err != nil {
		return ReservationView{}, err
	}
	return view, nil
}

func (service *Service) createReservation(ctx context.Context, store ReservationStore, hotelID HotelID, number ReservationNumber, payload ReservationPayload, snapshot MetadataJSON) (ReservationView, error) {
	now := service.nowFn()
	reservation := Reservation{
		Ref:       Ref{Internal: service.newID()},
		HotelID:   hotelID,
		Number:    number,
		CreatedAt: now,
		UpdatedAt: now,
	}
	payload.applyTo(&reservation)
	reservation.Payload = snapshot
	if err := store.CreateReservation(ctx, reservation); err != nil {
		return ReservationView{}, err
	}
	units, _, err := service.reconcileUnits(ctx, store, reservation, payload.Units)
	if err != nil {
		return ReservationView{}, err
	}
	return ReservationView{Reservation: reservation, Units: units}, nil
}

func (service *Service) updateReservation(ctx context.Context, store ReservationStore, reservation Reservation, payload ReservationPayload, snapshot MetadataJSON) (ReservationView, error) {
	now := service.nowFn()
	payload.applyTo(&reservation)
	reservation.Payload = snapshot
	reservation.UpdatedAt = now
	if err := store.UpdateReservation(ctx, reservation); err != nil {
		return ReservationView{}, err
	}
	var (
		units []ReservationUnit
		err   error
	)
	if len(payload.Units) > 0 {
		units, _, err = service.reconcileUnits(ctx, store, reservation, payload.Units)
	} else {
		units, err = rekeyUnits(ctx, store, reservation, now)
	}
	if err != nil {
		return ReservationView{}, err
	}
	return ReservationView{Reservation: reservation, Units: units}, nil
}

func (service *Service) reservationSteps(view ReservationView) []postCommitStep {
	return []postCommitStep{
		{
			name: StepDayRates,
			run: func(ctx context.Context) error {
				return service.RegenerateDayRates(ctx, view.Reservation)
			},
		},
		{
			name: StepLedgerSync,
			run: func(ctx context.Context) error {
				if service.ledger == nil {
					return errStepSkipped
				}
				return service.ledger.SyncReservation(ctx, view.Reservation)
			},
		},
		{
			name: StepApartmentStatus,
			run: func(ctx context.Context) error {
				report, err := service.deriver.Project(ctx, view.Units)
				if err != nil {
					return err
				}
				return report.Err()
			},
		},
	}
}

func (service *Service) lookupReservation(ctx context.Context, store ReservationStore, rawHotelID int64, rawNumber string) (Reservation, error) {
	hotelID, err := NewHotelID(rawHotelID)
	if err != nil {
		return Reservation{}, err
	}
	number, err := NewReservationNumber(rawNumber)
	if err != nil {
		return Reservation{}, err
	}
	return store.FindReservationByNumber(ctx, hotelID, number)
}

func snapshotPayload(payload ReservationPayload) (MetadataJSON, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return MetadataJSON{}, fmt.Errorf("%w: %w", ErrInvalidMetadataJSON, err)
	}
	return NewMetadataJSON(string(encoded))
}
