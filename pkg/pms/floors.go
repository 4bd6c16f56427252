package pms

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// SaveApartment registers or updates an apartment addressed by its external id.
// An empty status keeps the stored one, or starts the apartment vacant.
func (service *Service) SaveApartment(ctx context.Context, apartment Apartment) (Apartment, error) {
	operationError := func() error {
		if _, err := NewHotelID(apartment.HotelID.Int64()); err != nil {
			return err
		}
		if apartment.ExternalID <= 0 {
			return fmt.Errorf("%w: external id must be greater than zero", ErrInvalidApartment)
		}
		apartment.Name = strings.TrimSpace(apartment.Name)
		return service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
			existing, err := transactionStore.FindApartmentByExternalID(ctx, apartment.ExternalID)
			switch {
			case err == nil:
				apartment.ID = existing.ID
				if apartment.Status == "" {
					apartment.Status = existing.Status
				}
			case errors.Is(err, ErrUnknownApartment):
				apartment.ID = service.newID()
			default:
				return err
			}
			if apartment.Status == "" {
				apartment.Status = ApartmentStatusVacant
			}
			return transactionStore.SaveApartment(ctx, apartment)
		})
	}()
	logOperation(ctx, service.logger, OperationLog{
		Operation: operationSaveApartment,
		HotelID:   apartment.HotelID,
		Subject:   apartment.Name,
		Error:     operationError,
	})
	if operationError != nil {
		return Apartment{}, operationError
	}
	return apartment, nil
}

// SaveFloor registers a floor, minting an id when none is given.
func (service *Service) SaveFloor(ctx context.Context, floor Floor) (Floor, error) {
	operationError := func() error {
		if _, err := NewHotelID(floor.HotelID.Int64()); err != nil {
			return err
		}
		floor.Name = strings.TrimSpace(floor.Name)
		if floor.ID == "" {
			floor.ID = service.newID()
		}
		return service.store.SaveFloor(ctx, floor)
	}()
	logOperation(ctx, service.logger, OperationLog{
		Operation: operationSaveFloor,
		HotelID:   floor.HotelID,
		Subject:   floor.ID,
		Error:     operationError,
	})
	if operationError != nil {
		return Floor{}, operationError
	}
	return floor, nil
}

// DeleteFloor removes a floor that no apartment references. Dependent
// apartments are never cascaded.
func (service *Service) DeleteFloor(ctx context.Context, floorID string) error {
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		count, err := transactionStore.CountFloorApartments(ctx, floorID)
		if err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: %d apartments reference floor %s", ErrFloorHasApartments, count, floorID)
		}
		return transactionStore.DeleteFloor(ctx, floorID)
	})
	logOperation(ctx, service.logger, OperationLog{
		Operation: operationDeleteFloor,
		Subject:   floorID,
		Error:     operationError,
	})
	return operationError
}
