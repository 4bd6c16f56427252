package pms

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ApartmentStatusDeriver projects reservation unit status onto apartments.
type ApartmentStatusDeriver struct {
	store  ApartmentStore
	logger OperationLogger
}

// NewApartmentStatusDeriver wires a deriver.
func NewApartmentStatusDeriver(store ApartmentStore, logger OperationLogger) (*ApartmentStatusDeriver, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: apartment store dependency is nil", ErrInvalidServiceConfig)
	}
	return &ApartmentStatusDeriver{store: store, logger: logger}, nil
}

// ProjectionOutcome is what happened to one apartment.
type ProjectionOutcome string

const (
	ProjectionUpdated   ProjectionOutcome = "updated"
	ProjectionUnchanged ProjectionOutcome = "unchanged"
	ProjectionIgnored   ProjectionOutcome = "ignored"
	ProjectionFailed    ProjectionOutcome = "failed"
)

// ApartmentProjection records the projection of a single apartment.
type ApartmentProjection struct {
	ApartmentID int64
	UnitStatus  string
	Status      ApartmentStatus
	Outcome     ProjectionOutcome
	Error       error
}

// ProjectionReport lists per-apartment results in apartment id order.
type ProjectionReport struct {
	Apartments []ApartmentProjection
}

// Failures returns the apartments that could not be projected.
func (report ProjectionReport) Failures() []ApartmentProjection {
	var failures []ApartmentProjection
	for _, apartment := range report.Apartments {
		if apartment.Outcome == ProjectionFailed {
			failures = append(failures, apartment)
		}
	}
	return failures
}

// Err joins every per-apartment failure, or returns nil.
func (report ProjectionReport) Err() error {
	var errs []error
	for _, failure := range report.Failures() {
		errs = append(errs, fmt.Errorf("apartment %d: %w", failure.ApartmentID, failure.Error))
	}
	return errors.Join(errs...)
}

// DeriveApartmentStatus maps a unit status onto an apartment status. The
// second result is false for statuses outside the mapping, which must leave
// the apartment untouched.
func DeriveApartmentStatus(unitStatus string) (ApartmentStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(unitStatus)) {
	case "checked_in", "checkedin":
		return ApartmentStatusRented, true
	case "checked_out", "checkedout", "cancelled", "canceled", "no_show", "noshow":
		return ApartmentStatusVacant, true
	default:
		return "", false
	}
}

// Project updates each referenced apartment from its most recently created
// unit. A failing apartment is logged and skipped.
func (deriver *ApartmentStatusDeriver) Project(ctx context.Context, units []ReservationUnit) (ProjectionReport, error) {
	latest := latestUnitPerApartment(units)
	apartmentIDs := make([]int64, 0, len(latest))
	for apartmentID := range latest {
		apartmentIDs = append(apartmentIDs, apartmentID)
	}
	sort.Slice(apartmentIDs, func(left, right int) bool { return apartmentIDs[left] < apartmentIDs[right] })

	report := ProjectionReport{Apartments: make([]ApartmentProjection, 0, len(apartmentIDs))}
	for _, apartmentID := range apartmentIDs {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		projection := deriver.projectApartment(ctx, apartmentID, latest[apartmentID].Status)
		if projection.Outcome == ProjectionFailed {
			logOperation(ctx, deriver.logger, OperationLog{
				Operation: operationProjectStatus,
				Step:      StepApartmentStatus,
				Subject:   strconv.FormatInt(apartmentID, 10),
				Error:     projection.Error,
			})
		}
		report.Apartments = append(report.Apartments, projection)
	}
	return report, nil
}

func (deriver *ApartmentStatusDeriver) projectApartment(ctx context.Context, apartmentID int64, unitStatus string) ApartmentProjection {
	projection := ApartmentProjection{ApartmentID: apartmentID, UnitStatus: unitStatus}
	status, known := DeriveApartmentStatus(unitStatus)
	if !known {
		projection.Outcome = ProjectionIgnored
		return projection
	}
	projection.Status = status
	apartment, err := deriver.store.FindApartmentByExternalID(ctx, apartmentID)
	if err != nil {
		projection.Outcome = ProjectionFailed
		projection.Error = err
		return projection
	}
	if apartment.Status == status {
		projection.Outcome = ProjectionUnchanged
		return projection
	}
	if err := deriver.store.UpdateApartmentStatus(ctx, apartment.ID, status); err != nil {
		projection.Outcome = ProjectionFailed
		projection.Error = err
		return projection
	}
	projection.Outcome = ProjectionUpdated
	return projection
}

func latestUnitPerApartment(units []ReservationUnit) map[int64]ReservationUnit {
	ordered := make([]ReservationUnit, 0, len(units))
	for _, unit := range units {
		if unit.ApartmentID > 0 {
			ordered = append(ordered, unit)
		}
	}
	sort.SliceStable(ordered, func(left, right int) bool {
		return ordered[left].CreatedAt.After(ordered[right].CreatedAt)
	})
	latest := make(map[int64]ReservationUnit, len(ordered))
	for _, unit := range ordered {
		if _, seen := latest[unit.ApartmentID]; !seen {
			latest[unit.ApartmentID] = unit
		}
	}
	return latest
}
