package pms

import (
	"context"
	"errors"
	"testing"
)

func TestDeleteFloorRejectsDependentApartments(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	store.floors["floor-1"] = Floor{ID: "floor-1", HotelID: 1, Name: "Ground"}
	store.addApartment(501, "floor-1", ApartmentStatusVacant)
	service := mustNewService(test, store)

	err := service.DeleteFloor(context.Background(), "floor-1")

	if !errors.Is(err, ErrFloorHasApartments) {
		test.Fatalf("expected ErrFloorHasApartments, got %v", err)
	}
	if _, ok := store.floors["floor-1"]; !ok {
		test.Fatalf("expected floor kept")
	}
	if len(store.apartments) != 1 {
		test.Fatalf("expected apartments untouched")
	}
}

func TestDeleteFloorRemovesEmptyFloor(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	service := mustNewService(test, store)
	floor, err := service.SaveFloor(context.Background(), Floor{HotelID: 1, Name: " Roof "})
	if err != nil {
		test.Fatalf("save floor: %v", err)
	}
	if floor.ID == "" || floor.Name != "Roof" {
		test.Fatalf("unexpected floor %+v", floor)
	}
	if err := service.DeleteFloor(context.Background(), floor.ID); err != nil {
		test.Fatalf("delete floor: %v", err)
	}
	if err := service.DeleteFloor(context.Background(), floor.ID); !errors.Is(err, ErrUnknownFloor) {
		test.Fatalf("expected ErrUnknownFloor on second delete, got %v", err)
	}
}

func TestSaveApartmentUpsertsByExternalID(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	service := mustNewService(test, store)
	created, err := service.SaveApartment(context.Background(), Apartment{HotelID: 1, ExternalID: 501, Name: "A-1"})
	if err != nil {
		test.Fatalf("save apartment: %v", err)
	}
	if created.ID == "" || created.Status != ApartmentStatusVacant {
		test.Fatalf("unexpected apartment %+v", created)
	}
	if err := store.UpdateApartmentStatus(context.Background(), created.ID, ApartmentStatusMaintenance); err != nil {
		test.Fatalf("update status: %v", err)
	}

	renamed, err := service.SaveApartment(context.Background(), Apartment{HotelID: 1, ExternalID: 501, Name: "A-1 deluxe"})
	if err != nil {
		test.Fatalf("save apartment: %v", err)
	}
	if renamed.ID != created.ID || renamed.Status != ApartmentStatusMaintenance || len(store.apartments) != 1 {
		test.Fatalf("expected in-place update keeping status, got %+v", renamed)
	}
}

func TestSaveApartmentValidation(test *testing.T) {
	test.Parallel()
	service := mustNewService(test, newStubStore(test))
	if _, err := service.SaveApartment(context.Background(), Apartment{HotelID: 1}); !errors.Is(err, ErrInvalidApartment) {
		test.Fatalf("expected ErrInvalidApartment, got %v", err)
	}
	if _, err := service.SaveApartment(context.Background(), Apartment{ExternalID: 3}); !errors.Is(err, ErrInvalidHotelID) {
		test.Fatalf("expected ErrInvalidHotelID, got %v", err)
	}
}
