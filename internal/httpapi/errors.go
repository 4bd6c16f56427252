package httpapi

import (
	"errors"
	"net/http"

	"github.com/MarkoPoloResearchLab/reservesync/internal/customerledger"
	"github.com/MarkoPoloResearchLab/reservesync/pkg/pms"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	errorCodeInvalidPayload     = "invalid_payload"
	errorCodeUnknownReservation = "unknown_reservation"
	errorCodeUnknownApartment   = "unknown_apartment"
	errorCodeUnknownFloor       = "unknown_floor"
	errorCodeUnknownInvoice     = "unknown_invoice"
	errorCodeFloorHasApartments = "floor_has_apartments"
	errorCodeInternal           = "internal_error"
)

var invalidPayloadErrors = []error{
	pms.ErrInvalidHotelID,
	pms.ErrInvalidReservationNo,
	pms.ErrInvalidRentalMode,
	pms.ErrInvalidUnit,
	pms.ErrInvalidStayWindow,
	pms.ErrInvalidAmount,
	pms.ErrInvalidApartment,
	pms.ErrInvalidPaymentReceipt,
	pms.ErrInvalidMetadataJSON,
	pms.ErrInvalidTimestamp,
	customerledger.ErrInvalidCustomerID,
}

// classifyError maps a domain error to an HTTP status and a stable code.
func classifyError(err error) (int, string) {
	for _, target := range invalidPayloadErrors {
		if errors.Is(err, target) {
			return http.StatusBadRequest, errorCodeInvalidPayload
		}
	}
	switch {
	case errors.Is(err, pms.ErrUnknownReservation):
		return http.StatusNotFound, errorCodeUnknownReservation
	case errors.Is(err, pms.ErrUnknownApartment):
		return http.StatusNotFound, errorCodeUnknownApartment
	case errors.Is(err, pms.ErrUnknownFloor):
		return http.StatusNotFound, errorCodeUnknownFloor
	case errors.Is(err, pms.ErrUnknownInvoice):
		return http.StatusUnprocessableEntity, errorCodeUnknownInvoice
	case errors.Is(err, pms.ErrFloorHasApartments):
		return http.StatusConflict, errorCodeFloorHasApartments
	default:
		return http.StatusInternalServerError, errorCodeInternal
	}
}

func (handler *httpHandler) respondError(ctx *gin.Context, action string, err error) {
	status, code := classifyError(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		handler.logger.Error(action+" failed", zap.Error(err))
		message = action + " failed"
	}
	ctx.JSON(status, errorResponse(code, message))
}

func errorResponse(code string, message string) gin.H {
	return gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}
