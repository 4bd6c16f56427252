package httpapi

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/MarkoPoloResearchLab/reservesync/internal/customerledger"
	"github.com/MarkoPoloResearchLab/reservesync/pkg/pms"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ReservationService is the reservation engine the handlers drive.
type ReservationService interface {
	CreateOrUpdate(ctx context.Context, payload pms.ReservationPayload) (pms.ReservationView, error)
	Update(ctx context.Context, hotelID int64, number string, payload pms.ReservationPayload) (pms.ReservationView, error)
	Get(ctx context.Context, hotelID int64, number string) (pms.ReservationView, error)
	Delete(ctx context.Context, hotelID int64, number string) error
	ListDayRates(ctx context.Context, hotelID int64, number string) ([]pms.DayRate, error)
	RegenerateDayRates(ctx context.Context, reservation pms.Reservation) error
	ApplySameAmount(ctx context.Context, request pms.ApplyAmountRequest) ([]pms.DayRate, error)
	UpsertDayRates(ctx context.Context, hotelID int64, number string, items []pms.DayRateItem, feePercent decimal.NullDecimal, vatPercent decimal.NullDecimal) ([]pms.DayRate, error)
	CreateInvoice(ctx context.Context, invoice pms.Invoice) (pms.Invoice, error)
	RecordPayment(ctx context.Context, receipt pms.PaymentReceipt) (pms.PaymentView, error)
	SaveApartment(ctx context.Context, apartment pms.Apartment) (pms.Apartment, error)
	SaveFloor(ctx context.Context, floor pms.Floor) (pms.Floor, error)
	DeleteFloor(ctx context.Context, floorID string) error
}

// LedgerReader exposes customer balances. It is optional.
type LedgerReader interface {
	Balance(ctx context.Context, hotelID pms.HotelID, customerID int64) (customerledger.Balance, error)
	ListEntries(ctx context.Context, hotelID pms.HotelID, customerID int64, limit int) ([]customerledger.Entry, error)
}

// Run serves router on cfg.ListenAddr until ctx is cancelled.
func Run(ctx context.Context, cfg Config, router http.Handler, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: cfg.RequestTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http api listening", zap.String("addr", cfg.ListenAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Warn("server shutdown error", zap.Error(shutdownErr))
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// NewRouter wires every route. A nil ledger leaves the ledger routes out.
func NewRouter(cfg Config, service ReservationService, ledger LedgerReader, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(corsConfig(cfg.AllowedOrigins)))

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	handler := &httpHandler{service: service, ledger: ledger, logger: logger, cfg: cfg}

	api := router.Group("/api")
	api.Use(requestTimeout(cfg.RequestTimeout))
	api.POST("/reservations", handler.handleCreateOrUpdate)

	reservation := api.Group("/hotels/:hotel_id/reservations/:reservation_number")
	reservation.GET("", handler.handleGetReservation)
	reservation.PUT("", handler.handleUpdateReservation)
	reservation.DELETE("", handler.handleDeleteReservation)
	reservation.GET("/day-rates", handler.handleListDayRates)
	reservation.PUT("/day-rates", handler.handleUpsertDayRates)
	reservation.POST("/day-rates/apply", handler.handleApplySameAmount)
	reservation.POST("/day-rates/regenerate", handler.handleRegenerateDayRates)

	api.POST("/invoices", handler.handleCreateInvoice)
	api.POST("/payments", handler.handleRecordPayment)
	api.PUT("/apartments", handler.handleSaveApartment)
	api.PUT("/floors", handler.handleSaveFloor)
	api.DELETE("/floors/:floor_id", handler.handleDeleteFloor)

	if ledger != nil {
		api.GET("/hotels/:hotel_id/customers/:customer_id/ledger", handler.handleCustomerLedger)
	}

	return router
}

func corsConfig(origins []string) cors.Config {
	config := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Content-Type", "Origin", "Accept"},
		MaxAge:       12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		config.AllowAllOrigins = true
		return config
	}
	config.AllowOrigins = origins
	return config
}

func requestTimeout(timeout time.Duration) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if timeout <= 0 {
			ctx.Next()
			return
		}
		requestCtx, cancel := context.WithTimeout(ctx.Request.Context(), timeout)
		defer cancel()
		ctx.Request = ctx.Request.WithContext(requestCtx)
		ctx.Next()
	}
}
