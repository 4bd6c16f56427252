package customerledger

import "errors"

// Domain-level error values returned by the customer ledger.
var (
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")
	ErrInvalidCustomerID       = errors.New("invalid customer id")
	ErrInvalidEntryType        = errors.New("invalid entry type")
	ErrInvalidServiceConfig    = errors.New("invalid service config")
)
