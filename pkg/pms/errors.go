package pms

import (
	"errors"
	"fmt"
)

// Domain-level error values returned by the reservation service.
var (
	ErrUnknownReservation     = errors.New("unknown reservation")
	ErrDuplicateReservation   = errors.New("duplicate reservation number")
	ErrUnknownInvoice         = errors.New("unknown invoice")
	ErrUnknownApartment       = errors.New("unknown apartment")
	ErrUnknownFloor           = errors.New("unknown floor")
	ErrFloorHasApartments     = errors.New("floor has dependent apartments")
	ErrInvalidHotelID         = errors.New("invalid hotel id")
	ErrInvalidReservationNo   = errors.New("invalid reservation number")
	ErrInvalidRentalMode      = errors.New("invalid rental mode")
	ErrInvalidUnit            = errors.New("invalid reservation unit")
	ErrInvalidStayWindow      = errors.New("invalid stay window")
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrInvalidApartment       = errors.New("invalid apartment")
	ErrInvalidPaymentReceipt  = errors.New("invalid payment receipt")
	ErrInvalidMetadataJSON    = errors.New("invalid metadata json")
	ErrInvalidTimestamp       = errors.New("invalid timestamp")
	ErrInvalidServiceConfig   = errors.New("invalid service config")
	ErrReservationRetryFailed = errors.New("reservation retry failed")
)

// OperationError wraps a failure with a stable operation code.
type OperationError struct {
	operation string
	subject   string
	code      string
	err       error
}

// Error returns the formatted error message.
func (operationError OperationError) Error() string {
	return fmt.Sprintf("%s.%s.%s: %v", operationError.operation, operationError.subject, operationError.code, operationError.err)
}

// Unwrap returns the underlying error.
func (operationError OperationError) Unwrap() error {
	return operationError.err
}

// Operation returns the operation segment.
func (operationError OperationError) Operation() string {
	return operationError.operation
}

// Subject returns the subject segment.
func (operationError OperationError) Subject() string {
	return operationError.subject
}

// Code returns the stable error code segment.
func (operationError OperationError) Code() string {
	return operationError.code
}

// WrapError wraps an error with operation, subject, and code metadata.
func WrapError(operation string, subject string, code string, err error) error {
	if err == nil {
		return nil
	}
	return OperationError{
		operation: operation,
		subject:   subject,
		code:      code,
		err:       err,
	}
}
