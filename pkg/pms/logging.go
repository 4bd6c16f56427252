package pms

import "context"

// ServiceOption configures a Service instance.
type ServiceOption func(*Service)

// OperationLogger records domain-level events emitted by Service operations.
type OperationLogger interface {
	LogOperation(ctx context.Context, entry OperationLog)
}

// OperationLog describes a reservation operation, or one post-commit step of it.
type OperationLog struct {
	Operation         string
	Step              string
	HotelID           HotelID
	ReservationNumber string
	Subject           string
	Status            string
	Error             error
}

// WithOperationLogger wires a logger that receives callbacks for every operation.
func WithOperationLogger(logger OperationLogger) ServiceOption {
	return func(service *Service) {
		service.logger = logger
	}
}

// WithLedgerSyncer wires the customer ledger mirror run after each commit.
func WithLedgerSyncer(syncer LedgerSyncer) ServiceOption {
	return func(service *Service) {
		service.ledger = syncer
	}
}

// WithIDGenerator overrides how internal identifiers are minted.
func WithIDGenerator(generator IDGenerator) ServiceOption {
	return func(service *Service) {
		if generator != nil {
			service.newID = generator
		}
	}
}

func logOperation(ctx context.Context, logger OperationLogger, entry OperationLog) {
	if logger == nil {
		return
	}
	if entry.Status == "" {
		if entry.Error != nil {
			entry.Status = operationStatusError
		} else {
			entry.Status = operationStatusOK
		}
	}
	logger.LogOperation(ctx, entry)
}
