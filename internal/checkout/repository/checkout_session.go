package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/looprex/checkout/internal/domain"
	"github.com/shopspring/decimal"
)

type CheckoutSession struct {
	ID               string
	UserID           int64
	IdempotencyKey   string
	Status           domain.CheckoutStatus
	OrderNumber      string
	OrderID          int64
	TotalAmount      decimal.Decimal
	CartSnapshot     []byte
	SubmissionResult []byte
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type OutboxEvent struct {
	ID          int64
	AggregateID string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
}

// Finish moves a session to a terminal status and, in the same
// transaction, records the outbox event announcing it.
type Finish struct {
	SessionID        string
	From             domain.CheckoutStatus
	To               domain.CheckoutStatus
	OrderID          int64
	SubmissionResult []byte
	Event            *OutboxEvent
}

const sessionColumns = `id, user_id, idempotency_key, status, order_number, order_id,
		total_amount, cart_snapshot, submission_result, created_at, updated_at`

func (r *Repository) CreateCheckoutSession(ctx context.Context, s *CheckoutSession) error {
	now := r.now()
	s.CreatedAt, s.UpdatedAt = now, now

	query := `
		INSERT INTO checkout_sessions (` + sessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.ExecContext(ctx, query,
		s.ID,
		s.UserID,
		s.IdempotencyKey,
		string(s.Status),
		s.OrderNumber,
		s.OrderID,
		s.TotalAmount.String(),
		string(s.CartSnapshot),
		string(s.SubmissionResult),
		formatTime(s.CreatedAt),
		formatTime(s.UpdatedAt),
	)
	if isUniqueViolation(err) {
		return ErrDuplicateIdempotencyKey
	}
	if err != nil {
		return fmt.Errorf("failed to insert checkout session: %w", err)
	}
	return nil
}

func (r *Repository) GetCheckoutSessionByIdempotencyKey(ctx context.Context, key string) (*CheckoutSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM checkout_sessions WHERE idempotency_key = $1`

	s, err := scanSession(r.db.QueryRowContext(ctx, query, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrIdempotencyKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get checkout session by key: %w", err)
	}
	return s, nil
}

func (r *Repository) GetCheckoutSession(ctx context.Context, id string) (*CheckoutSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM checkout_sessions WHERE id = $1`

	s, err := scanSession(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get checkout session %s: %w", id, err)
	}
	return s, nil
}

func (r *Repository) ListCheckoutSessionsByUser(ctx context.Context, userID int64) ([]*CheckoutSession, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM checkout_sessions
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	return r.querySessions(ctx, query, userID)
}

// GetStuckSessions returns sessions that never reached a terminal status and
// were last touched before updatedBefore.
func (r *Repository) GetStuckSessions(ctx context.Context, updatedBefore time.Time) ([]*CheckoutSession, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM checkout_sessions
		WHERE status IN ($1, $2) AND updated_at < $3
		ORDER BY updated_at
		LIMIT 100
	`
	return r.querySessions(ctx, query,
		string(domain.CheckoutStatusInitiated),
		string(domain.CheckoutStatusSubmitting),
		formatTime(updatedBefore),
	)
}

func (r *Repository) UpdateCheckoutSessionStatus(ctx context.Context, id string, from, to domain.CheckoutStatus) error {
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrIllegalTransition, from, to)
	}

	query := `UPDATE checkout_sessions SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`
	res, err := r.db.ExecContext(ctx, query, string(to), formatTime(r.now()), id, string(from))
	if err != nil {
		return fmt.Errorf("failed to update checkout session status: %w", err)
	}
	return expectOneRow(res, id, from)
}

func (r *Repository) FinishCheckoutSession(ctx context.Context, f Finish) error {
	if !f.From.CanTransitionTo(f.To) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrIllegalTransition, f.From, f.To)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := formatTime(r.now())
	query := `
		UPDATE checkout_sessions
		SET status = $1, order_id = $2, submission_result = $3, updated_at = $4
		WHERE id = $5 AND status = $6
	`
	res, err := tx.ExecContext(ctx, query, string(f.To), f.OrderID, string(f.SubmissionResult), now, f.SessionID, string(f.From))
	if err != nil {
		return fmt.Errorf("failed to update checkout session: %w", err)
	}
	if err := expectOneRow(res, f.SessionID, f.From); err != nil {
		return err
	}

	if f.Event != nil {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO outbox_events (aggregate_id, event_type, payload, created_at) VALUES ($1, $2, $3, $4)`,
			f.Event.AggregateID, f.Event.EventType, string(f.Event.Payload), now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert outbox event: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *Repository) querySessions(ctx context.Context, query string, args ...any) ([]*CheckoutSession, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query checkout sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*CheckoutSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan checkout session: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return sessions, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*CheckoutSession, error) {
	var (
		s                    CheckoutSession
		status, total        string
		snapshot, submission string
		createdAt, updatedAt string
	)
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.IdempotencyKey,
		&status,
		&s.OrderNumber,
		&s.OrderID,
		&total,
		&snapshot,
		&submission,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	s.Status = domain.CheckoutStatus(status)
	s.CartSnapshot = []byte(snapshot)
	if submission != "" {
		s.SubmissionResult = []byte(submission)
	}
	if s.TotalAmount, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("total_amount of %s: %w", s.ID, err)
	}
	if s.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("created_at of %s: %w", s.ID, err)
	}
	if s.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("updated_at of %s: %w", s.ID, err)
	}
	return &s, nil
}

func expectOneRow(res sql.Result, id string, from domain.CheckoutStatus) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s is not %s", ErrStatusConflict, id, from)
	}
	return nil
}
