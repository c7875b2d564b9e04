package repository

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/lib/pq"
	"github.com/looprex/checkout/internal/domain"
	sqlitedrv "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

//go:embed migrations
var migrations embed.FS

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	// timestamps are stored as fixed-width UTC text so that they sort
	// lexically in both dialects
	timeLayout = "2006-01-02T15:04:05.000000000Z"
)

var (
	ErrIdempotencyKeyNotFound  = errors.New("idempotency key not found")
	ErrDuplicateIdempotencyKey = errors.New("idempotency key already used")
	ErrSessionNotFound         = errors.New("checkout session not found")
	ErrStatusConflict          = errors.New("checkout session is not in the expected status")
)

type RepoInterface interface {
	CreateCheckoutSession(ctx context.Context, s *CheckoutSession) error
	GetCheckoutSessionByIdempotencyKey(ctx context.Context, key string) (*CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, id string) (*CheckoutSession, error)
	ListCheckoutSessionsByUser(ctx context.Context, userID int64) ([]*CheckoutSession, error)
	UpdateCheckoutSessionStatus(ctx context.Context, id string, from, to domain.CheckoutStatus) error
	FinishCheckoutSession(ctx context.Context, f Finish) error
	GetStuckSessions(ctx context.Context, updatedBefore time.Time) ([]*CheckoutSession, error)
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int64) error
	Close() error
}

type Repository struct {
	db     *sql.DB
	driver string
	now    func() time.Time
}

func NewRepository(driver, dsn string) (*Repository, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if driver == DriverSQLite {
		// a single writer; also keeps :memory: databases on one connection
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(100)
		db.SetMaxIdleConns(10)
	}

	return &Repository{
		db:     db,
		driver: driver,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

func (r *Repository) RunMigrations() error {
	var (
		instance database.Driver
		err      error
	)
	switch r.driver {
	case DriverSQLite:
		instance, err = sqlite.WithInstance(r.db, &sqlite.Config{})
	default:
		instance, err = postgres.WithInstance(r.db, &postgres.Config{})
	}
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	source, err := iofs.New(migrations, "migrations/"+r.driver)
	if err != nil {
		return fmt.Errorf("could not create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, r.driver, instance)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlitedrv.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		case sqlite3.SQLITE_CONSTRAINT:
			return strings.Contains(liteErr.Error(), "UNIQUE")
		}
	}
	return false
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}
