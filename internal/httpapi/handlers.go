package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/MarkoPoloResearchLab/reservesync/pkg/pms"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type httpHandler struct {
	service ReservationService
	ledger  LedgerReader
	logger  *zap.Logger
	cfg     Config
}

func (handler *httpHandler) handleCreateOrUpdate(ctx *gin.Context) {
	var payload pms.ReservationPayload
	if err := ctx.ShouldBindJSON(&payload); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(errorCodeInvalidPayload, "expected reservation JSON body"))
		return
	}
	view, err := handler.service.CreateOrUpdate(ctx.Request.Context(), payload)
	if err != nil {
		handler.respondError(ctx, "reservation upsert", err)
		return
	}
	ctx.JSON(http.StatusOK, newReservationResponse(view))
}

func (handler *httpHandler) handleUpdateReservation(ctx *gin.Context) {
	hotelID, number, ok := reservationAddress(ctx)
	if !ok {
		return
	}
	var payload pms.ReservationPayload
	if err := ctx.ShouldBindJSON(&payload); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(errorCodeInvalidPayload, "expected reservation JSON body"))
		return
	}
	view, err := handler.service.Update(ctx.Request.Context(), hotelID, number, payload)
	if err != nil {
		handler.respondError(ctx, "reservation update", err)
		return
	}
	ctx.JSON(http.StatusOK, newReservationResponse(view))
}

func (handler *httpHandler) handleGetReservation(ctx *gin.Context) {
	hotelID, number, ok := reservationAddress(ctx)
	if !ok {
		return
	}
	view, err := handler.service.Get(ctx.Request.Context(), hotelID, number)
	if err != nil {
		handler.respondError(ctx, "reservation fetch", err)
		return
	}
	ctx.JSON(http.StatusOK, newReservationResponse(view))
}

func (handler *httpHandler) handleDeleteReservation(ctx *gin.Context) {
	hotelID, number, ok := reservationAddress(ctx)
	if !ok {
		return
	}
	if err := handler.service.Delete(ctx.Request.Context(), hotelID, number); err != nil {
		handler.respondError(ctx, "reservation delete", err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

func (handler *httpHandler) handleListDayRates(ctx *gin.Context) {
	hotelID, number, ok := reservationAddress(ctx)
	if !ok {
		return
	}
	rates, err := handler.service.ListDayRates(ctx.Request.Context(), hotelID, number)
	if err != nil {
		handler.respondError(ctx, "day rate list", err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"day_rates": newDayRatePayloads(rates)})
}

func (handler *httpHandler) handleUpsertDayRates(ctx *gin.Context) {
	hotelID, number, ok := reservationAddress(ctx)
	if !ok {
		return
	}
	var request upsertDayRatesRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(errorCodeInvalidPayload, "expected day rate items"))
		return
	}
	rates, err := handler.service.UpsertDayRates(ctx.Request.Context(), hotelID, number, request.Items, request.FeePercent, request.VATPercent)
	if err != nil {
		handler.respondError(ctx, "day rate upsert", err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"day_rates": newDayRatePayloads(rates)})
}

func (handler *httpHandler) handleApplySameAmount(ctx *gin.Context) {
	hotelID, number, ok := reservationAddress(ctx)
	if !ok {
		return
	}
	var request pms.ApplyAmountRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(errorCodeInvalidPayload, "expected amount JSON body"))
		return
	}
	request.HotelID = hotelID
	request.ReservationNumber = number
	rates, err := handler.service.ApplySameAmount(ctx.Request.Context(), request)
	if err != nil {
		handler.respondError(ctx, "day rate apply", err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"day_rates": newDayRatePayloads(rates)})
}

func (handler *httpHandler) handleRegenerateDayRates(ctx *gin.Context) {
	hotelID, number, ok := reservationAddress(ctx)
	if !ok {
		return
	}
	requestCtx := ctx.Request.Context()
	view, err := handler.service.Get(requestCtx, hotelID, number)
	if err != nil {
		handler.respondError(ctx, "day rate regenerate", err)
		return
	}
	if err := handler.service.RegenerateDayRates(requestCtx, view.Reservation); err != nil {
		handler.respondError(ctx, "day rate regenerate", err)
		return
	}
	rates, err := handler.service.ListDayRates(requestCtx, hotelID, number)
	if err != nil {
		handler.respondError(ctx, "day rate list", err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"day_rates": newDayRatePayloads(rates)})
}

func (handler *httpHandler) handleCreateInvoice(ctx *gin.Context) {
	var request invoiceRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(errorCodeInvalidPayload, "expected invoice JSON body"))
		return
	}
	reservationKey, err := handler.reservationKey(ctx.Request.Context(), request.HotelID, request.ReservationNumber)
	if err != nil {
		handler.respondError(ctx, "invoice create", err)
		return
	}
	invoice, err := handler.service.CreateInvoice(ctx.Request.Context(), pms.Invoice{
		HotelID:        pms.HotelID(request.HotelID),
		ReservationKey: reservationKey,
		UnitID:         strings.TrimSpace(request.UnitID),
		Number:         request.InvoiceNumber,
		Total:          request.Total,
	})
	if err != nil {
		handler.respondError(ctx, "invoice create", err)
		return
	}
	ctx.JSON(http.StatusCreated, newInvoicePayload(invoice))
}

func (handler *httpHandler) handleRecordPayment(ctx *gin.Context) {
	var request paymentRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(errorCodeInvalidPayload, "expected payment JSON body"))
		return
	}
	reservationKey, err := handler.reservationKey(ctx.Request.Context(), request.HotelID, request.ReservationNumber)
	if err != nil {
		handler.respondError(ctx, "payment record", err)
		return
	}
	receiptDate, _ := request.ReceiptDate.Value()
	view, err := handler.service.RecordPayment(ctx.Request.Context(), pms.PaymentReceipt{
		HotelID:        pms.HotelID(request.HotelID),
		CustomerID:     request.CustomerID,
		ReservationKey: reservationKey,
		InvoiceID:      strings.TrimSpace(request.InvoiceID),
		ReceiptNumber:  request.ReceiptNumber,
		VoucherCode:    request.VoucherCode,
		ReceiptType:    request.ReceiptType,
		Amount:         request.Amount,
		ReceiptDate:    receiptDate,
	})
	if err != nil {
		handler.respondError(ctx, "payment record", err)
		return
	}
	ctx.JSON(http.StatusCreated, newPaymentResponse(view))
}

func (handler *httpHandler) handleSaveApartment(ctx *gin.Context) {
	var request apartmentRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(errorCodeInvalidPayload, "expected apartment JSON body"))
		return
	}
	status, err := pms.ParseApartmentStatus(request.Status)
	if err != nil {
		handler.respondError(ctx, "apartment save", err)
		return
	}
	apartment, err := handler.service.SaveApartment(ctx.Request.Context(), pms.Apartment{
		HotelID:    pms.HotelID(request.HotelID),
		ExternalID: request.ExternalID,
		FloorID:    strings.TrimSpace(request.FloorID),
		Name:       request.Name,
		Status:     status,
	})
	if err != nil {
		handler.respondError(ctx, "apartment save", err)
		return
	}
	ctx.JSON(http.StatusOK, newApartmentPayload(apartment))
}

func (handler *httpHandler) handleSaveFloor(ctx *gin.Context) {
	var request floorRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(errorCodeInvalidPayload, "expected floor JSON body"))
		return
	}
	floor, err := handler.service.SaveFloor(ctx.Request.Context(), pms.Floor{
		ID:      strings.TrimSpace(request.ID),
		HotelID: pms.HotelID(request.HotelID),
		Name:    request.Name,
	})
	if err != nil {
		handler.respondError(ctx, "floor save", err)
		return
	}
	ctx.JSON(http.StatusOK, floorPayload{ID: floor.ID, HotelID: floor.HotelID.Int64(), Name: floor.Name})
}

func (handler *httpHandler) handleDeleteFloor(ctx *gin.Context) {
	floorID := strings.TrimSpace(ctx.Param("floor_id"))
	if floorID == "" {
		ctx.JSON(http.StatusBadRequest, errorResponse(errorCodeInvalidPayload, "floor id is required"))
		return
	}
	if err := handler.service.DeleteFloor(ctx.Request.Context(), floorID); err != nil {
		handler.respondError(ctx, "floor delete", err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

func (handler *httpHandler) handleCustomerLedger(ctx *gin.Context) {
	hotelID, ok := pathInt64(ctx, "hotel_id")
	if !ok {
		return
	}
	customerID, ok := pathInt64(ctx, "customer_id")
	if !ok {
		return
	}
	limit := handler.cfg.LedgerPageSize
	if raw := ctx.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			ctx.JSON(http.StatusBadRequest, errorResponse(errorCodeInvalidPayload, "limit must be a positive integer"))
			return
		}
		limit = parsed
	}
	requestCtx := ctx.Request.Context()
	balance, err := handler.ledger.Balance(requestCtx, pms.HotelID(hotelID), customerID)
	if err != nil {
		handler.respondError(ctx, "ledger balance", err)
		return
	}
	entries, err := handler.ledger.ListEntries(requestCtx, pms.HotelID(hotelID), customerID, limit)
	if err != nil {
		handler.respondError(ctx, "ledger entries", err)
		return
	}
	ctx.JSON(http.StatusOK, newLedgerResponse(balance, entries))
}

// reservationKey resolves the key billing rows are stored under. An empty
// number means the row is not tied to a reservation.
func (handler *httpHandler) reservationKey(ctx context.Context, hotelID int64, number string) (string, error) {
	if strings.TrimSpace(number) == "" {
		return "", nil
	}
	view, err := handler.service.Get(ctx, hotelID, number)
	if err != nil {
		return "", err
	}
	return view.Reservation.Key(), nil
}

func reservationAddress(ctx *gin.Context) (int64, string, bool) {
	hotelID, ok := pathInt64(ctx, "hotel_id")
	if !ok {
		return 0, "", false
	}
	return hotelID, ctx.Param("reservation_number"), true
}

func pathInt64(ctx *gin.Context, name string) (int64, bool) {
	value, err := strconv.ParseInt(ctx.Param(name), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(errorCodeInvalidPayload, fmt.Sprintf("%s must be an integer", name)))
		return 0, false
	}
	return value, true
}
