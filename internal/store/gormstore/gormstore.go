package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MarkoPoloResearchLab/reservesync/pkg/pms"
	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	constraintReservationHotelNumber = "uniq_reservations_hotel_number"
	defaultPayloadJSON               = "{}"
	pgUniqueViolationCode            = "23505"
	sqliteConstraintPrimaryKey       = 1555
	sqliteConstraintUnique           = 2067
	dayRateBatchSize                 = 200
	errorOperationStore              = "store"
	errorSubjectApartment            = "apartment"
	errorSubjectDayRate              = "day_rate"
	errorSubjectFloor                = "floor"
	errorSubjectInvoice              = "invoice"
	errorSubjectReceipt              = "payment_receipt"
	errorSubjectReservation          = "reservation"
	errorSubjectSchema               = "schema"
	errorSubjectUnit                 = "unit"
	errorCodeCount                   = "count"
	errorCodeCreate                  = "create"
	errorCodeDelete                  = "delete"
	errorCodeDetach                  = "detach"
	errorCodeDuplicate               = "duplicate"
	errorCodeGet                     = "get"
	errorCodeInvalid                 = "invalid"
	errorCodeList                    = "list"
	errorCodeMigrate                 = "migrate"
	errorCodePing                    = "ping"
	errorCodeReplace                 = "replace"
	errorCodeSave                    = "save"
	errorCodeUpdate                  = "update"
	errorCodeUpdateStatus            = "update_status"
)

// Store implements pms.Store using GORM.
type Store struct {
	db *gorm.DB
}

// New returns a Store backed by gorm.DB.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates or updates every table the store owns.
func (store *Store) Migrate(ctx context.Context) error {
	if err := store.db.WithContext(ctx).AutoMigrate(Models()...); err != nil {
		return wrapStoreError(errorSubjectSchema, errorCodeMigrate, err)
	}
	return nil
}

// Ping checks the underlying connection.
func (store *Store) Ping(ctx context.Context) error {
	sqlDB, err := store.db.DB()
	if err != nil {
		return wrapStoreError(errorSubjectSchema, errorCodePing, err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return wrapStoreError(errorSubjectSchema, errorCodePing, err)
	}
	return nil
}

// WithTx executes fn within a transaction.
func (store *Store) WithTx(ctx context.Context, fn func(ctx context.Context, txStore pms.Store) error) error {
	return store.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		return fn(ctx, &Store{db: transaction})
	})
}

func (store *Store) FindReservationByNumber(ctx context.Context, hotelID pms.HotelID, number pms.ReservationNumber) (pms.Reservation, error) {
	var model Reservation
	err := store.db.WithContext(ctx).
		Where("hotel_id = ? AND reservation_number = ?", hotelID.Int64(), number.String()).
		Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pms.Reservation{}, wrapStoreError(errorSubjectReservation, errorCodeGet, pms.ErrUnknownReservation)
		}
		return pms.Reservation{}, wrapStoreError(errorSubjectReservation, errorCodeGet, err)
	}
	reservation, err := mapReservation(model)
	if err != nil {
		return pms.Reservation{}, wrapStoreError(errorSubjectReservation, errorCodeInvalid, err)
	}
	return reservation, nil
}

func (store *Store) CreateReservation(ctx context.Context, reservation pms.Reservation) error {
	model := reservationModel(reservation)
	err := store.db.WithContext(ctx).Create(&model).Error
	if isDuplicateReservation(err) {
		return wrapStoreError(errorSubjectReservation, errorCodeDuplicate, pms.ErrDuplicateReservation)
	}
	if err != nil {
		return wrapStoreError(errorSubjectReservation, errorCodeCreate, err)
	}
	return nil
}

func (store *Store) UpdateReservation(ctx context.Context, reservation pms.Reservation) error {
	model := reservationModel(reservation)
	result := store.db.WithContext(ctx).
		Model(&Reservation{}).
		Where("id = ?", model.ID).
		Select("*").
		Omit("id", "created_at").
		Updates(&model)
	if result.Error != nil {
		return wrapStoreError(errorSubjectReservation, errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectReservation, errorCodeUpdate, pms.ErrUnknownReservation)
	}
	return nil
}

func (store *Store) DeleteReservation(ctx context.Context, reservationID string) error {
	result := store.db.WithContext(ctx).Where("id = ?", reservationID).Delete(&Reservation{})
	if result.Error != nil {
		return wrapStoreError(errorSubjectReservation, errorCodeDelete, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectReservation, errorCodeDelete, pms.ErrUnknownReservation)
	}
	return nil
}

func (store *Store) ListUnits(ctx context.Context, reservationKeys []string) ([]pms.ReservationUnit, error) {
	var rows []ReservationUnit
	err := store.db.WithContext(ctx).
		Where("reservation_key IN ?", reservationKeys).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectUnit, errorCodeList, err)
	}
	units := make([]pms.ReservationUnit, 0, len(rows))
	for _, row := range rows {
		units = append(units, mapUnit(row))
	}
	return units, nil
}

func (store *Store) CreateUnit(ctx context.Context, unit pms.ReservationUnit) error {
	model := unitModel(unit)
	if err := store.db.WithContext(ctx).Create(&model).Error; err != nil {
		return wrapStoreError(errorSubjectUnit, errorCodeCreate, err)
	}
	return nil
}

func (store *Store) UpdateUnit(ctx context.Context, unit pms.ReservationUnit) error {
	model := unitModel(unit)
	result := store.db.WithContext(ctx).
		Model(&ReservationUnit{}).
		Where("id = ?", model.ID).
		Select("*").
		Omit("id", "created_at").
		Updates(&model)
	if result.Error != nil {
		return wrapStoreError(errorSubjectUnit, errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectUnit, errorCodeUpdate, fmt.Errorf("unit %s not found", model.ID))
	}
	return nil
}

// DeleteUnit removes the unit and its day rates.
func (store *Store) DeleteUnit(ctx context.Context, unitID string) error {
	db := store.db.WithContext(ctx)
	if err := db.Where("unit_id = ?", unitID).Delete(&DayRate{}).Error; err != nil {
		return wrapStoreError(errorSubjectDayRate, errorCodeDelete, err)
	}
	if err := db.Where("id = ?", unitID).Delete(&ReservationUnit{}).Error; err != nil {
		return wrapStoreError(errorSubjectUnit, errorCodeDelete, err)
	}
	return nil
}

// DetachInvoices clears the unit reference of every invoice billing unitID.
func (store *Store) DetachInvoices(ctx context.Context, unitID string) (int64, error) {
	result := store.db.WithContext(ctx).
		Model(&Invoice{}).
		Where("unit_id = ?", unitID).
		Update("unit_id", nil)
	if result.Error != nil {
		return 0, wrapStoreError(errorSubjectInvoice, errorCodeDetach, result.Error)
	}
	return result.RowsAffected, nil
}

func (store *Store) ReplaceDayRates(ctx context.Context, reservationKeys []string, rates []pms.DayRate) error {
	db := store.db.WithContext(ctx)
	if err := db.Where("reservation_key IN ?", reservationKeys).Delete(&DayRate{}).Error; err != nil {
		return wrapStoreError(errorSubjectDayRate, errorCodeReplace, err)
	}
	if len(rates) == 0 {
		return nil
	}
	rows := dayRateModels(rates)
	if err := db.CreateInBatches(&rows, dayRateBatchSize).Error; err != nil {
		return wrapStoreError(errorSubjectDayRate, errorCodeReplace, err)
	}
	return nil
}

func (store *Store) ListDayRates(ctx context.Context, reservationKeys []string) ([]pms.DayRate, error) {
	var rows []DayRate
	err := store.db.WithContext(ctx).
		Where("reservation_key IN ?", reservationKeys).
		Order("apartment_id ASC, night_date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectDayRate, errorCodeList, err)
	}
	rates := make([]pms.DayRate, 0, len(rows))
	for _, row := range rows {
		rates = append(rates, mapDayRate(row))
	}
	return rates, nil
}

// SaveDayRates upserts rows by id.
func (store *Store) SaveDayRates(ctx context.Context, rates []pms.DayRate) error {
	if len(rates) == 0 {
		return nil
	}
	rows := dayRateModels(rates)
	err := store.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"gross_rate", "ewa_amount", "vat_amount", "net_amount", "is_manual", "updated_at"}),
		}).
		Create(&rows).Error
	if err != nil {
		return wrapStoreError(errorSubjectDayRate, errorCodeSave, err)
	}
	return nil
}

func (store *Store) FindApartmentByExternalID(ctx context.Context, externalID int64) (pms.Apartment, error) {
	var model Apartment
	err := store.db.WithContext(ctx).Where("external_id = ?", externalID).Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pms.Apartment{}, wrapStoreError(errorSubjectApartment, errorCodeGet, pms.ErrUnknownApartment)
		}
		return pms.Apartment{}, wrapStoreError(errorSubjectApartment, errorCodeGet, err)
	}
	return mapApartment(model), nil
}

func (store *Store) UpdateApartmentStatus(ctx context.Context, apartmentID string, status pms.ApartmentStatus) error {
	result := store.db.WithContext(ctx).
		Model(&Apartment{}).
		Where("id = ?", apartmentID).
		Updates(map[string]any{"status": string(status), "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return wrapStoreError(errorSubjectApartment, errorCodeUpdateStatus, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectApartment, errorCodeUpdateStatus, pms.ErrUnknownApartment)
	}
	return nil
}

func (store *Store) SaveApartment(ctx context.Context, apartment pms.Apartment) error {
	now := time.Now().UTC()
	model := Apartment{
		ID:         apartment.ID,
		ExternalID: apartment.ExternalID,
		HotelID:    apartment.HotelID.Int64(),
		FloorID:    optionalString(apartment.FloorID),
		Name:       apartment.Name,
		Status:     string(apartment.Status),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	err := store.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"hotel_id", "floor_id", "name", "status", "updated_at"}),
		}).
		Create(&model).Error
	if err != nil {
		return wrapStoreError(errorSubjectApartment, errorCodeSave, err)
	}
	return nil
}

func (store *Store) SaveFloor(ctx context.Context, floor pms.Floor) error {
	now := time.Now().UTC()
	model := Floor{ID: floor.ID, HotelID: floor.HotelID.Int64(), Name: floor.Name, CreatedAt: now, UpdatedAt: now}
	err := store.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"hotel_id", "name", "updated_at"}),
		}).
		Create(&model).Error
	if err != nil {
		return wrapStoreError(errorSubjectFloor, errorCodeSave, err)
	}
	return nil
}

func (store *Store) CountFloorApartments(ctx context.Context, floorID string) (int64, error) {
	var count int64
	err := store.db.WithContext(ctx).Model(&Apartment{}).Where("floor_id = ?", floorID).Count(&count).Error
	if err != nil {
		return 0, wrapStoreError(errorSubjectFloor, errorCodeCount, err)
	}
	return count, nil
}

func (store *Store) DeleteFloor(ctx context.Context, floorID string) error {
	result := store.db.WithContext(ctx).Where("id = ?", floorID).Delete(&Floor{})
	if result.Error != nil {
		return wrapStoreError(errorSubjectFloor, errorCodeDelete, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectFloor, errorCodeDelete, pms.ErrUnknownFloor)
	}
	return nil
}

func (store *Store) GetInvoice(ctx context.Context, invoiceID string) (pms.Invoice, error) {
	var model Invoice
	err := store.db.WithContext(ctx).Where("id = ?", invoiceID).Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pms.Invoice{}, wrapStoreError(errorSubjectInvoice, errorCodeGet, pms.ErrUnknownInvoice)
		}
		return pms.Invoice{}, wrapStoreError(errorSubjectInvoice, errorCodeGet, err)
	}
	return mapInvoice(model), nil
}

func (store *Store) CreateInvoice(ctx context.Context, invoice pms.Invoice) error {
	model := Invoice{
		ID:             invoice.ID,
		HotelID:        invoice.HotelID.Int64(),
		ReservationKey: invoice.ReservationKey,
		UnitID:         optionalString(invoice.UnitID),
		InvoiceNumber:  invoice.Number,
		Total:          invoice.Total,
		CreatedAt:      invoice.CreatedAt.UTC(),
	}
	if err := store.db.WithContext(ctx).Create(&model).Error; err != nil {
		return wrapStoreError(errorSubjectInvoice, errorCodeCreate, err)
	}
	return nil
}

func (store *Store) CreatePaymentReceipt(ctx context.Context, receipt pms.PaymentReceipt) error {
	model := PaymentReceipt{
		ID:             receipt.ID,
		HotelID:        receipt.HotelID.Int64(),
		CustomerID:     receipt.CustomerID,
		ReservationKey: optionalString(receipt.ReservationKey),
		InvoiceID:      optionalString(receipt.InvoiceID),
		ReceiptNumber:  receipt.ReceiptNumber,
		VoucherCode:    receipt.VoucherCode,
		ReceiptType:    receipt.ReceiptType,
		Amount:         receipt.Amount,
		ReceiptDate:    receipt.ReceiptDate.UTC(),
		CreatedAt:      receipt.CreatedAt.UTC(),
	}
	if err := store.db.WithContext(ctx).Create(&model).Error; err != nil {
		return wrapStoreError(errorSubjectReceipt, errorCodeCreate, err)
	}
	return nil
}

func wrapStoreError(subject string, code string, err error) error {
	return pms.WrapError(errorOperationStore, subject, code, err)
}

func reservationModel(reservation pms.Reservation) Reservation {
	return Reservation{
		ID:                reservation.Ref.Internal,
		ExternalID:        optionalInt64(reservation.Ref.External),
		HotelID:           reservation.HotelID.Int64(),
		ReservationNumber: reservation.Number.String(),
		CustomerID:        reservation.CustomerID,
		ReservationDate:   optionalTime(reservation.ReservationDate),
		RentalType:        reservation.RentalMode.String(),
		ReservationType:   reservation.ReservationType,
		Status:            reservation.Status,
		NumberOfMonths:    reservation.NumberOfMonths,
		TotalNights:       reservation.TotalNights,
		Subtotal:          reservation.Subtotal,
		VatRate:           reservation.VATRate,
		VatAmount:         reservation.VATAmount,
		LodgingTaxRate:    reservation.LodgingTaxRate,
		LodgingTaxAmount:  reservation.LodgingTaxAmount,
		TotalTaxAmount:    reservation.TotalTaxAmount,
		TotalExtra:        reservation.TotalExtra,
		TotalPenalties:    reservation.TotalPenalties,
		TotalDiscounts:    reservation.TotalDiscounts,
		TotalAmount:       reservation.TotalAmount,
		AmountPaid:        reservation.AmountPaid,
		BalanceAmount:     reservation.BalanceAmount,
		CheckInDate:       optionalTime(reservation.CheckIn),
		CheckOutDate:      optionalTime(reservation.CheckOut),
		DepartureDate:     optionalTime(reservation.Departure),
		Payload:           datatypesJSON(reservation.Payload.String()),
		CreatedAt:         reservation.CreatedAt.UTC(),
		UpdatedAt:         reservation.UpdatedAt.UTC(),
	}
}

func mapReservation(model Reservation) (pms.Reservation, error) {
	hotelID, err := pms.NewHotelID(model.HotelID)
	if err != nil {
		return pms.Reservation{}, err
	}
	number, err := pms.NewReservationNumber(model.ReservationNumber)
	if err != nil {
		return pms.Reservation{}, err
	}
	mode, err := pms.ParseRentalMode(model.RentalType)
	if err != nil {
		return pms.Reservation{}, err
	}
	payload, err := pms.NewMetadataJSON(string(model.Payload))
	if err != nil {
		return pms.Reservation{}, err
	}
	return pms.Reservation{
		Ref:              pms.Ref{Internal: model.ID, External: int64OrZero(model.ExternalID)},
		HotelID:          hotelID,
		Number:           number,
		CustomerID:       model.CustomerID,
		ReservationDate:  timeOrZero(model.ReservationDate),
		RentalMode:       mode,
		ReservationType:  model.ReservationType,
		Status:           model.Status,
		NumberOfMonths:   model.NumberOfMonths,
		TotalNights:      model.TotalNights,
		Subtotal:         model.Subtotal,
		VATRate:          model.VatRate,
		VATAmount:        model.VatAmount,
		LodgingTaxRate:   model.LodgingTaxRate,
		LodgingTaxAmount: model.LodgingTaxAmount,
		TotalTaxAmount:   model.TotalTaxAmount,
		TotalExtra:       model.TotalExtra,
		TotalPenalties:   model.TotalPenalties,
		TotalDiscounts:   model.TotalDiscounts,
		TotalAmount:      model.TotalAmount,
		AmountPaid:       model.AmountPaid,
		BalanceAmount:    model.BalanceAmount,
		CheckIn:          timeOrZero(model.CheckInDate),
		CheckOut:         timeOrZero(model.CheckOutDate),
		Departure:        timeOrZero(model.DepartureDate),
		Payload:          payload,
		CreatedAt:        model.CreatedAt.UTC(),
		UpdatedAt:        model.UpdatedAt.UTC(),
	}, nil
}

func unitModel(unit pms.ReservationUnit) ReservationUnit {
	return ReservationUnit{
		ID:               unit.Ref.Internal,
		ExternalID:       optionalInt64(unit.Ref.External),
		ReservationKey:   unit.ReservationKey,
		ApartmentID:      unit.ApartmentID,
		CheckInDate:      unit.CheckIn.UTC(),
		CheckOutDate:     unit.CheckOut.UTC(),
		DepartureDate:    optionalTime(unit.Departure),
		NumberOfNights:   unit.Nights,
		RentAmount:       unit.RentAmount,
		VatRate:          unit.VATRate,
		VatAmount:        unit.VATAmount,
		LodgingTaxRate:   unit.LodgingTaxRate,
		LodgingTaxAmount: unit.LodgingTaxAmount,
		TotalAmount:      unit.TotalAmount,
		Status:           unit.Status,
		CreatedAt:        unit.CreatedAt.UTC(),
		UpdatedAt:        unit.UpdatedAt.UTC(),
	}
}

func mapUnit(model ReservationUnit) pms.ReservationUnit {
	return pms.ReservationUnit{
		Ref:              pms.Ref{Internal: model.ID, External: int64OrZero(model.ExternalID)},
		ReservationKey:   model.ReservationKey,
		ApartmentID:      model.ApartmentID,
		CheckIn:          model.CheckInDate.UTC(),
		CheckOut:         model.CheckOutDate.UTC(),
		Departure:        timeOrZero(model.DepartureDate),
		Nights:           model.NumberOfNights,
		RentAmount:       model.RentAmount,
		VATRate:          model.VatRate,
		VATAmount:        model.VatAmount,
		LodgingTaxRate:   model.LodgingTaxRate,
		LodgingTaxAmount: model.LodgingTaxAmount,
		TotalAmount:      model.TotalAmount,
		Status:           model.Status,
		CreatedAt:        model.CreatedAt.UTC(),
		UpdatedAt:        model.UpdatedAt.UTC(),
	}
}

func dayRateModels(rates []pms.DayRate) []DayRate {
	rows := make([]DayRate, 0, len(rates))
	for _, rate := range rates {
		rows = append(rows, DayRate{
			ID:             rate.ID,
			ReservationKey: rate.ReservationKey,
			UnitID:         rate.UnitID,
			ApartmentID:    rate.ApartmentID,
			NightDate:      datatypes.Date(rate.NightDate),
			GrossRate:      rate.Gross,
			EwaAmount:      rate.Fee,
			VatAmount:      rate.VAT,
			NetAmount:      rate.Net,
			IsManual:       rate.IsManual,
			CreatedAt:      rate.CreatedAt.UTC(),
			UpdatedAt:      rate.UpdatedAt.UTC(),
		})
	}
	return rows
}

func mapDayRate(model DayRate) pms.DayRate {
	night := time.Time(model.NightDate)
	return pms.DayRate{
		ID:             model.ID,
		ReservationKey: model.ReservationKey,
		UnitID:         model.UnitID,
		ApartmentID:    model.ApartmentID,
		NightDate:      time.Date(night.Year(), night.Month(), night.Day(), 0, 0, 0, 0, time.UTC),
		Gross:          model.GrossRate,
		Fee:            model.EwaAmount,
		VAT:            model.VatAmount,
		Net:            model.NetAmount,
		IsManual:       model.IsManual,
		CreatedAt:      model.CreatedAt.UTC(),
		UpdatedAt:      model.UpdatedAt.UTC(),
	}
}

func mapInvoice(model Invoice) pms.Invoice {
	return pms.Invoice{
		ID:             model.ID,
		HotelID:        pms.HotelID(model.HotelID),
		ReservationKey: model.ReservationKey,
		UnitID:         stringOrEmpty(model.UnitID),
		Number:         model.InvoiceNumber,
		Total:          model.Total,
		CreatedAt:      model.CreatedAt.UTC(),
	}
}

func mapApartment(model Apartment) pms.Apartment {
	return pms.Apartment{
		ID:         model.ID,
		ExternalID: model.ExternalID,
		HotelID:    pms.HotelID(model.HotelID),
		FloorID:    stringOrEmpty(model.FloorID),
		Name:       model.Name,
		Status:     pms.ApartmentStatus(model.Status),
	}
}

func optionalInt64(value int64) *int64 {
	if value <= 0 {
		return nil
	}
	return &value
}

func int64OrZero(value *int64) int64 {
	if value == nil {
		return 0
	}
	return *value
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func stringOrEmpty(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func optionalTime(value time.Time) *time.Time {
	if value.IsZero() {
		return nil
	}
	utc := value.UTC()
	return &utc
}

func timeOrZero(value *time.Time) time.Time {
	if value == nil {
		return time.Time{}
	}
	return value.UTC()
}

func datatypesJSON(raw string) datatypes.JSON {
	if raw == "" {
		return datatypes.JSON([]byte(defaultPayloadJSON))
	}
	return datatypes.JSON([]byte(raw))
}

// isDuplicateReservation recognizes a (hotel, number) unique violation across
// the translated gorm error, postgres and sqlite.
func isDuplicateReservation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolationCode && pgErr.ConstraintName == constraintReservationHotelNumber
	}
	return isSQLiteUniqueViolation(err)
}

// isSQLiteUniqueViolation matches the extended unique and primary key result
// codes only, so NOT NULL and CHECK failures surface as themselves.
func isSQLiteUniqueViolation(err error) bool {
	var sqliteErr *gosqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqliteConstraintUnique || code == sqliteConstraintPrimaryKey
}
