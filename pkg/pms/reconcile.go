package pms

import (
	"context"
	"time"
)

// ReconcileReport counts the unit changes of one reconciliation.
type ReconcileReport struct {
	Created          int
	Updated          int
	Deleted          int
	DetachedInvoices int64
}

// reconcileUnits converges the persisted units of reservation onto incoming.
// Persisted units are indexed by their reference key. An incoming unit whose
// external id hits the index updates the first unit under that key and any
// other incoming unit is inserted. Every persisted unit left unmatched is
// removed after its invoices are detached, including rows that share a key.
func (service *Service) reconcileUnits(ctx context.Context, store ReservationStore, reservation Reservation, incoming []UnitPayload) ([]ReservationUnit, ReconcileReport, error) {
	var report ReconcileReport
	persisted, err := store.ListUnits(ctx, reservation.Ref.Keys())
	if err != nil {
		return nil, report, err
	}
	index := make(map[string][]ReservationUnit, len(persisted))
	for _, unit := range persisted {
		index[unit.Ref.Key()] = append(index[unit.Ref.Key()], unit)
	}
	matched := make(map[string]struct{}, len(persisted))

	now := service.nowFn()
	current := make([]ReservationUnit, 0, len(incoming))
	for _, payload := range incoming {
		if external, ok := payload.ExternalID.Value(); ok && external > 0 {
			key := ExternalKey(external)
			if candidates := index[key]; len(candidates) > 0 {
				existing := candidates[0]
				index[key] = candidates[1:]
				matched[existing.Ref.Internal] = struct{}{}
				payload.applyTo(&existing)
				existing.ReservationKey = reservation.Key()
				existing.UpdatedAt = now
				if err := store.UpdateUnit(ctx, existing); err != nil {
					return nil, report, err
				}
				report.Updated++
				current = append(current, existing)
				continue
			}
		}
		unit := payload.newUnit(reservation)
		unit.Ref.Internal = service.newID()
		unit.CreatedAt = now
		unit.UpdatedAt = now
		if err := store.CreateUnit(ctx, unit); err != nil {
			return nil, report, err
		}
		report.Created++
		current = append(current, unit)
	}

	for _, stale := range persisted {
		if _, kept := matched[stale.Ref.Internal]; kept {
			continue
		}
		detached, err := removeUnit(ctx, store, stale)
		if err != nil {
			return nil, report, err
		}
		report.Deleted++
		report.DetachedInvoices += detached
	}
	return current, report, nil
}

// rekeyUnits moves units persisted under an older key of the reservation
// onto its current key.
func rekeyUnits(ctx context.Context, store ReservationStore, reservation Reservation, now time.Time) ([]ReservationUnit, error) {
	units, err := store.ListUnits(ctx, reservation.Ref.Keys())
	if err != nil {
		return nil, err
	}
	for index := range units {
		if units[index].ReservationKey == reservation.Key() {
			continue
		}
		units[index].ReservationKey = reservation.Key()
		units[index].UpdatedAt = now
		if err := store.UpdateUnit(ctx, units[index]); err != nil {
			return nil, err
		}
	}
	return units, nil
}

// removeUnit clears invoice links to unit and then deletes it with its day rates.
func removeUnit(ctx context.Context, store ReservationStore, unit ReservationUnit) (int64, error) {
	detached, err := store.DetachInvoices(ctx, unit.Ref.Internal)
	if err != nil {
		return 0, err
	}
	if err := store.DeleteUnit(ctx, unit.Ref.Internal); err != nil {
		return 0, err
	}
	return detached, nil
}
