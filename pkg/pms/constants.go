package pms

const (
	operationCreateOrUpdate = "create_or_update"
	operationUpdate         = "update"
	operationDelete         = "delete"
	operationApplyAmount    = "apply_same_amount"
	operationUpsertDayRates = "upsert_day_rates"
	operationCreateInvoice  = "create_invoice"
	operationRecordPayment  = "record_payment"
	operationSaveApartment  = "save_apartment"
	operationSaveFloor      = "save_floor"
	operationDeleteFloor    = "delete_floor"
	operationProjectStatus  = "project_apartment_status"

	operationStatusOK      = "ok"
	operationStatusError   = "error"
	operationStatusSkipped = "skipped"

	// StepDayRates regenerates the day-rate rows of a reservation.
	StepDayRates = "day_rates"
	// StepLedgerSync mirrors the reservation or receipt into the customer ledger.
	StepLedgerSync = "ledger_sync"
	// StepApartmentStatus projects unit status onto apartments.
	StepApartmentStatus = "apartment_status"

	defaultReservationStatus = "Unconfirmed"
	defaultReservationType   = "Individual"
	defaultUnitStatus        = "reserved"

	hoursPerDay = 24
	moneyPlaces = 2
)
