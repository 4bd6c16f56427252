package grpcserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	// ServiceName is the health service name reported next to the server-wide "" entry.
	ServiceName = "reservesync.Reservations"

	defaultCheckInterval = 10 * time.Second
	defaultCheckTimeout  = 2 * time.Second
)

// ErrInvalidMonitorConfig reports a HealthMonitor built without its dependencies.
var ErrInvalidMonitorConfig = errors.New("invalid health monitor config")

// Pinger reports whether the backing database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// MonitorOption configures a HealthMonitor.
type MonitorOption func(*HealthMonitor)

// WithCheckInterval sets how often the database is pinged.
func WithCheckInterval(interval time.Duration) MonitorOption {
	return func(monitor *HealthMonitor) {
		if interval > 0 {
			monitor.interval = interval
		}
	}
}

// WithCheckTimeout bounds a single ping.
func WithCheckTimeout(timeout time.Duration) MonitorOption {
	return func(monitor *HealthMonitor) {
		if timeout > 0 {
			monitor.timeout = timeout
		}
	}
}

// HealthMonitor publishes grpc.health.v1 status from periodic database pings.
type HealthMonitor struct {
	pinger   Pinger
	health   *health.Server
	logger   *zap.Logger
	interval time.Duration
	timeout  time.Duration
}

// NewHealthMonitor wires a HealthMonitor. Status starts NOT_SERVING until the first check.
func NewHealthMonitor(pinger Pinger, logger *zap.Logger, options ...MonitorOption) (*HealthMonitor, error) {
	if pinger == nil {
		return nil, fmt.Errorf("%w: pinger dependency is nil", ErrInvalidMonitorConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	monitor := &HealthMonitor{
		pinger:   pinger,
		health:   health.NewServer(),
		logger:   logger,
		interval: defaultCheckInterval,
		timeout:  defaultCheckTimeout,
	}
	for _, option := range options {
		if option != nil {
			option(monitor)
		}
	}
	monitor.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
	return monitor, nil
}

// Register exposes the health service on server.
func (monitor *HealthMonitor) Register(server *grpc.Server) {
	healthpb.RegisterHealthServer(server, monitor.health)
}

// Check pings once and publishes the result.
func (monitor *HealthMonitor) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	pingCtx, cancel := context.WithTimeout(ctx, monitor.timeout)
	defer cancel()
	status := healthpb.HealthCheckResponse_SERVING
	if err := monitor.pinger.Ping(pingCtx); err != nil {
		monitor.logger.Warn("database ping failed", zap.Error(err))
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	monitor.setStatus(status)
	return status
}

// Run checks on every interval until ctx is cancelled, then marks the
// server NOT_SERVING for good.
func (monitor *HealthMonitor) Run(ctx context.Context) {
	monitor.Check(ctx)
	ticker := time.NewTicker(monitor.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			monitor.health.Shutdown()
			return
		case <-ticker.C:
			monitor.Check(ctx)
		}
	}
}

func (monitor *HealthMonitor) setStatus(status healthpb.HealthCheckResponse_ServingStatus) {
	monitor.health.SetServingStatus("", status)
	monitor.health.SetServingStatus(ServiceName, status)
}

// Serve runs server on listener until ctx is cancelled.
func Serve(ctx context.Context, server *grpc.Server, listener net.Listener, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("gRPC server starting", zap.String("listen_addr", listener.Addr().String()))
		errCh <- server.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		logger.Info("gRPC shutdown requested")
		server.GracefulStop()
		if serveErr := <-errCh; serveErr != nil && !errors.Is(serveErr, grpc.ErrServerStopped) {
			return serveErr
		}
		return nil
	case serveErr := <-errCh:
		if errors.Is(serveErr, grpc.ErrServerStopped) {
			return nil
		}
		return serveErr
	}
}
