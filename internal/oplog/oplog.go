// Package oplog forwards reservation operation callbacks to zap.
package oplog

import (
	"context"

	"github.com/MarkoPoloResearchLab/reservesync/pkg/pms"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	statusFailed = "failed"
	statusError  = "error"
)

// ZapLogger implements pms.OperationLogger.
type ZapLogger struct {
	logger *zap.Logger
}

var _ pms.OperationLogger = (*ZapLogger)(nil)

// New returns a ZapLogger. A nil logger discards every entry.
func New(logger *zap.Logger) *ZapLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapLogger{logger: logger}
}

// LogOperation writes failed operations at error level and failures inside
// a post-commit step at warn level. Everything else, skips included, is info.
// Ledger mirroring and apartment projection run as steps and carry one.
func (adapter *ZapLogger) LogOperation(_ context.Context, entry pms.OperationLog) {
	fields := []zap.Field{
		zap.String("operation", entry.Operation),
		zap.String("status", entry.Status),
	}
	if entry.Step != "" {
		fields = append(fields, zap.String("step", entry.Step))
	}
	if entry.HotelID != 0 {
		fields = append(fields, zap.Int64("hotel_id", entry.HotelID.Int64()))
	}
	if entry.ReservationNumber != "" {
		fields = append(fields, zap.String("reservation_no", entry.ReservationNumber))
	}
	if entry.Subject != "" {
		fields = append(fields, zap.String("subject", entry.Subject))
	}
	if entry.Error != nil {
		fields = append(fields, zap.Error(entry.Error))
	}
	adapter.logger.Log(levelFor(entry), "reservation operation", fields...)
}

func levelFor(entry pms.OperationLog) zapcore.Level {
	switch {
	case entry.Step == "" && (entry.Status == statusError || entry.Error != nil):
		return zapcore.ErrorLevel
	case entry.Step != "" && (entry.Status == statusFailed || entry.Status == statusError || entry.Error != nil):
		return zapcore.WarnLevel
	default:
		return zapcore.InfoLevel
	}
}
