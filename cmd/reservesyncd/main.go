package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/MarkoPoloResearchLab/reservesync/internal/customerledger"
	"github.com/MarkoPoloResearchLab/reservesync/internal/grpcserver"
	"github.com/MarkoPoloResearchLab/reservesync/internal/httpapi"
	"github.com/MarkoPoloResearchLab/reservesync/internal/oplog"
	"github.com/MarkoPoloResearchLab/reservesync/internal/store/gormstore"
	"github.com/MarkoPoloResearchLab/reservesync/pkg/pms"
	"github.com/glebarez/sqlite"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	flagDatabaseURL       = "database-url"
	flagListenAddr        = "listen-addr"
	flagGRPCListenAddr    = "grpc-listen-addr"
	flagAllowedOrigins    = "allowed-origins"
	flagRequestTimeout    = "request-timeout"
	flagHealthInterval    = "health-interval"
	flagEnvFile           = "env-file"
	envPrefix             = "RESERVESYNC"
	driverPostgres        = "postgres"
	driverSQLite          = "sqlite"
	defaultDatabaseURL    = "sqlite:///tmp/reservesync.db"
	defaultListenAddr     = ":8080"
	defaultGRPCListenAddr = ":7000"
	defaultEnvFile        = ".env"
	defaultSQLiteFile     = "reservesync.db"
)

type runtimeConfig struct {
	DatabaseURL    string
	GRPCListenAddr string
	HealthInterval time.Duration
	HTTP           httpapi.Config
}

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "reservesyncd: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := &runtimeConfig{}
	cmd := &cobra.Command{
		Use:           "reservesyncd",
		Short:         "Reservation reconciliation and day-rate service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd, cfg)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg)
		},
	}

	cmd.Flags().String(flagDatabaseURL, defaultDatabaseURL, "PostgreSQL URL, sqlite:// URL or sqlite file path")
	cmd.Flags().String(flagListenAddr, defaultListenAddr, "HTTP listen address")
	cmd.Flags().String(flagGRPCListenAddr, defaultGRPCListenAddr, "gRPC health listen address")
	cmd.Flags().String(flagAllowedOrigins, "", "comma-separated list of allowed CORS origins")
	cmd.Flags().Duration(flagRequestTimeout, 0, "per-request timeout (e.g. 15s)")
	cmd.Flags().Duration(flagHealthInterval, 10*time.Second, "database health check interval")
	cmd.Flags().String(flagEnvFile, defaultEnvFile, "optional dotenv file loaded before reading the environment")

	return cmd
}

func loadConfig(cmd *cobra.Command, cfg *runtimeConfig) error {
	envFile, err := cmd.Flags().GetString(flagEnvFile)
	if err != nil {
		return err
	}
	if err := loadEnvFile(envFile); err != nil {
		return err
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	for _, flagName := range []string{flagDatabaseURL, flagListenAddr, flagGRPCListenAddr, flagAllowedOrigins, flagRequestTimeout, flagHealthInterval} {
		if err := v.BindPFlag(flagName, cmd.Flags().Lookup(flagName)); err != nil {
			return err
		}
	}

	cfg.DatabaseURL = strings.TrimSpace(v.GetString(flagDatabaseURL))
	cfg.GRPCListenAddr = strings.TrimSpace(v.GetString(flagGRPCListenAddr))
	cfg.HealthInterval = v.GetDuration(flagHealthInterval)
	cfg.HTTP = httpapi.Config{
		ListenAddr:     strings.TrimSpace(v.GetString(flagListenAddr)),
		AllowedOrigins: httpapi.ParseAllowedOrigins(v.GetString(flagAllowedOrigins)),
		RequestTimeout: v.GetDuration(flagRequestTimeout),
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("%s is required", flagDatabaseURL)
	}
	if cfg.GRPCListenAddr == "" {
		return fmt.Errorf("%s is required", flagGRPCListenAddr)
	}
	return cfg.HTTP.Validate()
}

// loadEnvFile loads path when it exists. A missing default file is not an error.
func loadEnvFile(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func runServer(ctx context.Context, cfg *runtimeConfig) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	gormDB, cleanup, driver, err := openDatabase(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database open: %w", err)
	}
	defer func() { _ = cleanup() }()

	store := gormstore.New(gormDB)
	if err := prepareSchema(ctx, store, driver); err != nil {
		return err
	}

	operationLogger := oplog.New(logger)
	clock := func() time.Time { return time.Now().UTC() }
	ledgerService, err := customerledger.NewService(gormstore.NewLedgerStore(gormDB), clock, customerledger.WithOperationLogger(operationLogger))
	if err != nil {
		return fmt.Errorf("ledger service init: %w", err)
	}
	reservationService, err := pms.NewService(store, clock,
		pms.WithOperationLogger(operationLogger),
		pms.WithLedgerSyncer(ledgerService),
	)
	if err != nil {
		return fmt.Errorf("reservation service init: %w", err)
	}

	monitor, err := grpcserver.NewHealthMonitor(store, logger, grpcserver.WithCheckInterval(cfg.HealthInterval))
	if err != nil {
		return fmt.Errorf("health monitor init: %w", err)
	}
	grpcServer := grpc.NewServer()
	monitor.Register(grpcServer)
	lis, err := net.Listen("tcp", cfg.GRPCListenAddr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	router := httpapi.NewRouter(cfg.HTTP, reservationService, ledgerService, logger)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		monitor.Run(groupCtx)
		return nil
	})
	group.Go(func() error {
		return grpcserver.Serve(groupCtx, grpcServer, lis, logger)
	})
	group.Go(func() error {
		return httpapi.Run(groupCtx, cfg.HTTP, router, logger)
	})
	return group.Wait()
}

func openDatabase(ctx context.Context, dsn string) (*gorm.DB, func() error, string, error) {
	driver, sqlitePath, err := resolveDriver(dsn)
	if err != nil {
		return nil, nil, "", err
	}

	var db *gorm.DB
	cfg := &gorm.Config{TranslateError: true}
	switch driver {
	case driverPostgres:
		db, err = gorm.Open(postgres.Open(dsn), cfg)
	case driverSQLite:
		db, err = gorm.Open(sqlite.Open(sqlitePath), cfg)
	default:
		return nil, nil, "", fmt.Errorf("unsupported database scheme %q", driver)
	}
	if err != nil {
		return nil, nil, "", err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, "", err
	}
	if driver == driverSQLite {
		sqlDB.SetMaxOpenConns(1)
	}
	cleanup := func() error { return sqlDB.Close() }
	return db.WithContext(ctx), cleanup, driver, nil
}

func resolveDriver(dsn string) (string, string, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return driverPostgres, "", nil
	}
	if strings.HasPrefix(dsn, "sqlite://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", "", fmt.Errorf("parse sqlite url: %w", err)
		}
		path := u.Path
		if path == "" {
			path = u.Host
		}
		if path == "" || path == "/" {
			path = defaultSQLiteFile
		}
		sqlitePath, err := normalizeSQLitePath(path)
		return driverSQLite, sqlitePath, err
	}
	// Treat everything else as a direct sqlite path.
	sqlitePath, err := normalizeSQLitePath(dsn)
	return driverSQLite, sqlitePath, err
}

func normalizeSQLitePath(path string) (string, error) {
	if path == ":memory:" {
		return path, nil
	}
	if strings.HasPrefix(path, "/") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", err
		}
		return path, nil
	}
	abs := filepath.Join(".", path)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", err
	}
	return abs, nil
}

// prepareSchema migrates sqlite databases. Postgres schemas are managed out of band.
func prepareSchema(ctx context.Context, store *gormstore.Store, driver string) error {
	if driver != driverSQLite {
		return nil
	}
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
