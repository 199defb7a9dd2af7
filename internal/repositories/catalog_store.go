package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Supported values for StoreConfig.Driver.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// StoreConfig holds the settings needed to open a CatalogStore.
type StoreConfig struct {
	Driver     string // "sqlite" (default) or "postgres"
	DSN        string
	BcryptCost int
	Logger     *slog.Logger
}

// CatalogStore is the GORM-backed store for accounts and products.
// It implements both AccountRepository and ProductRepository over a single
// long-lived database connection.
type CatalogStore struct {
	db         *gorm.DB
	sqlDB      *sql.DB
	validate   *validator.Validate
	bcryptCost int
	logger     *slog.Logger
	closed     atomic.Bool
}

var (
	_ AccountRepository = (*CatalogStore)(nil)
	_ ProductRepository = (*CatalogStore)(nil)
)

// OpenCatalogStore connects to the configured database, migrates the schema
// and returns a ready store. The caller owns the store and must Close it.
func OpenCatalogStore(cfg StoreConfig) (*CatalogStore, error) {
	dialector, err := dialectorFor(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger: logger.New(log.New(os.Stderr, "\r\n", log.LstdFlags), logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store, err := NewCatalogStore(db, cfg.BcryptCost, cfg.Logger)
	if err != nil {
		return nil, err
	}

	if err := Migrate(db, CurrentSchemaVersion); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// NewCatalogStore wraps an already opened and migrated GORM handle.
// The pool is pinned to one connection held for the store's lifetime.
func NewCatalogStore(db *gorm.DB, bcryptCost int, l *slog.Logger) (*CatalogStore, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)
	sqlDB.SetConnMaxIdleTime(0)

	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	if l == nil {
		l = slog.Default()
	}

	return &CatalogStore{
		db:         db,
		sqlDB:      sqlDB,
		validate:   validator.New(),
		bcryptCost: bcryptCost,
		logger:     l.With(slog.String("component", "catalog_store")),
	}, nil
}

// Close releases the underlying connection. Calling it more than once is a no-op.
func (s *CatalogStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := s.sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// Ping reports whether the connection is usable.
func (s *CatalogStore) Ping() error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	if err := s.sqlDB.Ping(); err != nil {
		return s.storageError("ping", err)
	}
	return nil
}

func (s *CatalogStore) checkOpen() error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	return nil
}

// storageError logs a driver failure and wraps it as ErrStorage.
func (s *CatalogStore) storageError(op string, err error) error {
	s.logger.Error("storage operation failed", slog.String("op", op), slog.Any("error", err))
	return fmt.Errorf("%s: %w: %v", op, ErrStorage, err)
}

func (s *CatalogStore) validateModel(v any) error {
	if err := s.validate.Struct(v); err != nil {
		var fields []string
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			for _, e := range validationErrors {
				fields = append(fields, e.Field())
			}
		}
		return fmt.Errorf("%w: missing %s", ErrInvalidInput, strings.Join(fields, ", "))
	}
	return nil
}

// isUniqueViolation reports whether err comes from a unique index.
// The message check covers drivers whose errors GORM does not translate.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value")
}

func dialectorFor(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case "", DriverSQLite:
		return sqlite.Open(dsn), nil
	case DriverPostgres:
		return postgres.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}
