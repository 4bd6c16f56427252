package httpapi

import (
	"encoding/json"
	"time"

	"github.com/MarkoPoloResearchLab/reservesync/internal/customerledger"
	"github.com/MarkoPoloResearchLab/reservesync/pkg/pms"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

type upsertDayRatesRequest struct {
	FeePercent decimal.NullDecimal `json:"ewa_percent"`
	VATPercent decimal.NullDecimal `json:"vat_percent"`
	Items      []pms.DayRateItem   `json:"items"`
}

type invoiceRequest struct {
	HotelID           int64           `json:"hotel_id"`
	ReservationNumber string          `json:"reservation_no"`
	UnitID            string          `json:"unit_id"`
	InvoiceNumber     string          `json:"invoice_no"`
	Total             decimal.Decimal `json:"total"`
}

type paymentRequest struct {
	HotelID           int64                `json:"hotel_id"`
	CustomerID        int64                `json:"customer_id"`
	ReservationNumber string               `json:"reservation_no"`
	InvoiceID         string               `json:"invoice_id"`
	ReceiptNumber     string               `json:"receipt_no"`
	VoucherCode       string               `json:"voucher_code"`
	ReceiptType       string               `json:"receipt_type"`
	Amount            decimal.Decimal      `json:"amount"`
	ReceiptDate       pms.Patch[time.Time] `json:"receipt_date"`
}

type apartmentRequest struct {
	HotelID    int64  `json:"hotel_id"`
	ExternalID int64  `json:"zaaer_id"`
	FloorID    string `json:"floor_id"`
	Name       string `json:"apartment_name"`
	Status     string `json:"status"`
}

type floorRequest struct {
	ID      string `json:"floor_id"`
	HotelID int64  `json:"hotel_id"`
	Name    string `json:"floor_name"`
}

type reservationResponse struct {
	Reservation reservationPayload `json:"reservation"`
	Units       []unitPayload      `json:"units"`
	Steps       []stepPayload      `json:"steps,omitempty"`
}

type reservationPayload struct {
	ID                string              `json:"id"`
	ExternalID        int64               `json:"zaaer_id,omitempty"`
	HotelID           int64               `json:"hotel_id"`
	ReservationNumber string              `json:"reservation_no"`
	CustomerID        int64               `json:"customer_id,omitempty"`
	RentalType        string              `json:"rental_type"`
	ReservationType   string              `json:"reservation_type"`
	Status            string              `json:"status"`
	NumberOfMonths    int                 `json:"number_of_months"`
	TotalNights       int                 `json:"total_nights"`
	Subtotal          decimal.NullDecimal `json:"subtotal"`
	VATRate           decimal.NullDecimal `json:"vat_rate"`
	VATAmount         decimal.NullDecimal `json:"vat_amount"`
	LodgingTaxRate    decimal.NullDecimal `json:"lodging_tax_rate"`
	LodgingTaxAmount  decimal.NullDecimal `json:"lodging_tax_amount"`
	TotalTaxAmount    decimal.NullDecimal `json:"total_tax_amount"`
	TotalExtra        decimal.NullDecimal `json:"total_extra"`
	TotalPenalties    decimal.NullDecimal `json:"total_penalties"`
	TotalDiscounts    decimal.NullDecimal `json:"total_discounts"`
	TotalAmount       decimal.NullDecimal `json:"total_amount"`
	AmountPaid        decimal.NullDecimal `json:"amount_paid"`
	BalanceAmount     decimal.NullDecimal `json:"balance_amount"`
	CheckIn           string              `json:"check_in_date,omitempty"`
	CheckOut          string              `json:"check_out_date,omitempty"`
	Departure         string              `json:"departure_date,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

type unitPayload struct {
	ID               string              `json:"id"`
	ExternalID       int64               `json:"zaaer_id,omitempty"`
	ApartmentID      int64               `json:"apartment_id"`
	CheckIn          string              `json:"check_in_date"`
	CheckOut         string              `json:"check_out_date"`
	Departure        string              `json:"departure_date,omitempty"`
	Nights           int                 `json:"number_of_nights"`
	RentAmount       decimal.NullDecimal `json:"rent_amount"`
	VATRate          decimal.NullDecimal `json:"vat_rate"`
	VATAmount        decimal.NullDecimal `json:"vat_amount"`
	LodgingTaxRate   decimal.NullDecimal `json:"lodging_tax_rate"`
	LodgingTaxAmount decimal.NullDecimal `json:"lodging_tax_amount"`
	TotalAmount      decimal.Decimal     `json:"total_amount"`
	Status           string              `json:"status"`
}

type stepPayload struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type dayRatePayload struct {
	ID          string              `json:"id"`
	UnitID      string              `json:"unit_id"`
	ApartmentID int64               `json:"apartment_id"`
	NightDate   string              `json:"night_date"`
	GrossRate   decimal.Decimal     `json:"gross_rate"`
	EwaAmount   decimal.NullDecimal `json:"ewa_amount"`
	VatAmount   decimal.NullDecimal `json:"vat_amount"`
	NetAmount   decimal.NullDecimal `json:"net_amount"`
	IsManual    bool                `json:"is_manual"`
}

type invoicePayload struct {
	ID             string          `json:"id"`
	HotelID        int64           `json:"hotel_id"`
	ReservationKey string          `json:"reservation_key,omitempty"`
	UnitID         string          `json:"unit_id,omitempty"`
	InvoiceNumber  string          `json:"invoice_no"`
	Total          decimal.Decimal `json:"total"`
	CreatedAt      time.Time       `json:"created_at"`
}

type paymentResponse struct {
	ID             string          `json:"id"`
	HotelID        int64           `json:"hotel_id"`
	CustomerID     int64           `json:"customer_id,omitempty"`
	ReservationKey string          `json:"reservation_key,omitempty"`
	InvoiceID      string          `json:"invoice_id,omitempty"`
	ReceiptNumber  string          `json:"receipt_no"`
	Amount         decimal.Decimal `json:"amount"`
	ReceiptDate    string          `json:"receipt_date"`
	Steps          []stepPayload   `json:"steps,omitempty"`
}

type apartmentPayload struct {
	ID         string `json:"id"`
	HotelID    int64  `json:"hotel_id"`
	ExternalID int64  `json:"zaaer_id"`
	FloorID    string `json:"floor_id,omitempty"`
	Name       string `json:"apartment_name"`
	Status     string `json:"status"`
}

type floorPayload struct {
	ID      string `json:"floor_id"`
	HotelID int64  `json:"hotel_id"`
	Name    string `json:"floor_name"`
}

type ledgerResponse struct {
	Balance balancePayload `json:"balance"`
	Entries []entryPayload `json:"entries"`
}

type balancePayload struct {
	Charged     decimal.Decimal `json:"charged"`
	Paid        decimal.Decimal `json:"paid"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

type entryPayload struct {
	ID             string          `json:"entry_id"`
	Type           string          `json:"type"`
	Amount         decimal.Decimal `json:"amount"`
	ReservationKey string          `json:"reservation_key,omitempty"`
	ReceiptID      string          `json:"receipt_id,omitempty"`
	IdempotencyKey string          `json:"idempotency_key"`
	Metadata       json.RawMessage `json:"metadata"`
	CreatedAt      time.Time       `json:"created_at"`
}

func newReservationResponse(view pms.ReservationView) reservationResponse {
	reservation := view.Reservation
	units := make([]unitPayload, 0, len(view.Units))
	for _, unit := range view.Units {
		units = append(units, unitPayload{
			ID:               unit.Ref.Internal,
			ExternalID:       unit.Ref.External,
			ApartmentID:      unit.ApartmentID,
			CheckIn:          formatDate(unit.CheckIn),
			CheckOut:         formatDate(unit.CheckOut),
			Departure:        formatDate(unit.Departure),
			Nights:           unit.NightCount(),
			RentAmount:       unit.RentAmount,
			VATRate:          unit.VATRate,
			VATAmount:        unit.VATAmount,
			LodgingTaxRate:   unit.LodgingTaxRate,
			LodgingTaxAmount: unit.LodgingTaxAmount,
			TotalAmount:      unit.TotalAmount,
			Status:           unit.Status,
		})
	}
	return reservationResponse{
		Reservation: reservationPayload{
			ID:                reservation.Ref.Internal,
			ExternalID:        reservation.Ref.External,
			HotelID:           reservation.HotelID.Int64(),
			ReservationNumber: reservation.Number.String(),
			CustomerID:        reservation.CustomerID,
			RentalType:        reservation.RentalMode.String(),
			ReservationType:   reservation.ReservationType,
			Status:            reservation.Status,
			NumberOfMonths:    reservation.NumberOfMonths,
			TotalNights:       reservation.TotalNights,
			Subtotal:          reservation.Subtotal,
			VATRate:           reservation.VATRate,
			VATAmount:         reservation.VATAmount,
			LodgingTaxRate:    reservation.LodgingTaxRate,
			LodgingTaxAmount:  reservation.LodgingTaxAmount,
			TotalTaxAmount:    reservation.TotalTaxAmount,
			TotalExtra:        reservation.TotalExtra,
			TotalPenalties:    reservation.TotalPenalties,
			TotalDiscounts:    reservation.TotalDiscounts,
			TotalAmount:       reservation.TotalAmount,
			AmountPaid:        reservation.AmountPaid,
			BalanceAmount:     reservation.BalanceAmount,
			CheckIn:           formatDate(reservation.CheckIn),
			CheckOut:          formatDate(reservation.CheckOut),
			Departure:         formatDate(reservation.Departure),
			CreatedAt:         reservation.CreatedAt,
			UpdatedAt:         reservation.UpdatedAt,
		},
		Units: units,
		Steps: newStepPayloads(view.Steps),
	}
}

func newStepPayloads(steps []pms.StepResult) []stepPayload {
	if len(steps) == 0 {
		return nil
	}
	payloads := make([]stepPayload, 0, len(steps))
	for _, step := range steps {
		payload := stepPayload{Name: step.Name, Status: string(step.Status)}
		if step.Error != nil {
			payload.Error = step.Error.Error()
		}
		payloads = append(payloads, payload)
	}
	return payloads
}

func newDayRatePayloads(rates []pms.DayRate) []dayRatePayload {
	payloads := make([]dayRatePayload, 0, len(rates))
	for _, rate := range rates {
		payloads = append(payloads, dayRatePayload{
			ID:          rate.ID,
			UnitID:      rate.UnitID,
			ApartmentID: rate.ApartmentID,
			NightDate:   formatDate(rate.NightDate),
			GrossRate:   rate.Gross,
			EwaAmount:   rate.Fee,
			VatAmount:   rate.VAT,
			NetAmount:   rate.Net,
			IsManual:    rate.IsManual,
		})
	}
	return payloads
}

func newInvoicePayload(invoice pms.Invoice) invoicePayload {
	return invoicePayload{
		ID:             invoice.ID,
		HotelID:        invoice.HotelID.Int64(),
		ReservationKey: invoice.ReservationKey,
		UnitID:         invoice.UnitID,
		InvoiceNumber:  invoice.Number,
		Total:          invoice.Total,
		CreatedAt:      invoice.CreatedAt,
	}
}

func newPaymentResponse(view pms.PaymentView) paymentResponse {
	receipt := view.Receipt
	return paymentResponse{
		ID:             receipt.ID,
		HotelID:        receipt.HotelID.Int64(),
		CustomerID:     receipt.CustomerID,
		ReservationKey: receipt.ReservationKey,
		InvoiceID:      receipt.InvoiceID,
		ReceiptNumber:  receipt.ReceiptNumber,
		Amount:         receipt.Amount,
		ReceiptDate:    formatDate(receipt.ReceiptDate),
		Steps:          newStepPayloads(view.Steps),
	}
}

func newApartmentPayload(apartment pms.Apartment) apartmentPayload {
	return apartmentPayload{
		ID:         apartment.ID,
		HotelID:    apartment.HotelID.Int64(),
		ExternalID: apartment.ExternalID,
		FloorID:    apartment.FloorID,
		Name:       apartment.Name,
		Status:     string(apartment.Status),
	}
}

func newLedgerResponse(balance customerledger.Balance, entries []customerledger.Entry) ledgerResponse {
	payloads := make([]entryPayload, 0, len(entries))
	for _, entry := range entries {
		metadata := json.RawMessage(entry.Metadata)
		if len(metadata) == 0 {
			metadata = json.RawMessage("{}")
		}
		payloads = append(payloads, entryPayload{
			ID:             entry.ID,
			Type:           entry.Type.String(),
			Amount:         entry.Amount,
			ReservationKey: entry.ReservationKey,
			ReceiptID:      entry.ReceiptID,
			IdempotencyKey: entry.IdempotencyKey,
			Metadata:       metadata,
			CreatedAt:      entry.CreatedAt,
		})
	}
	return ledgerResponse{
		Balance: balancePayload{
			Charged:     balance.Charged,
			Paid:        balance.Paid,
			Outstanding: balance.Outstanding,
		},
		Entries: payloads,
	}
}

func formatDate(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.Format(dateLayout)
}
