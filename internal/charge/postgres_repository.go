package charge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cardforge/connector/internal/status"
)

const chargeColumns = `id, external_id, amount, status, gateway_transaction_id, gateway_account_id,
    reference, description, email, return_url, language, created_at, version,
    capture_attempts, last_capture_attempt, parity_checked_at`

// PostgresRepository stores charges in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a charge.
func (r *PostgresRepository) Create(ctx context.Context, c *Charge) error {
	row := r.db.QueryRow(ctx, `INSERT INTO charges
        (external_id, amount, status, gateway_transaction_id, gateway_account_id,
         reference, description, email, return_url, language, created_at, version, capture_attempts)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 1, 0)
        RETURNING id`,
		c.ExternalID, c.Amount, string(c.Status), nullable(c.GatewayTransactionID), c.GatewayAccountID,
		c.Reference, c.Description, c.Email, c.ReturnURL, c.Language, c.CreatedAt.UTC())
	if err := row.Scan(&c.ID); err != nil {
		return fmt.Errorf("insert charge: %w", err)
	}
	c.Version = 1
	return nil
}

// GetByExternalID fetches a charge and its events.
func (r *PostgresRepository) GetByExternalID(ctx context.Context, externalID string) (*Charge, error) {
	return r.getBy(ctx, `SELECT `+chargeColumns+` FROM charges WHERE external_id = $1`, externalID)
}

// GetByProviderTransactionID fetches a charge by its provider-assigned id.
func (r *PostgresRepository) GetByProviderTransactionID(ctx context.Context, provider, transactionID string) (*Charge, error) {
	return r.getBy(ctx, `SELECT `+chargeColumns+` FROM charges c
        WHERE c.gateway_transaction_id = $2
          AND EXISTS (SELECT 1 FROM gateway_accounts a WHERE a.id = c.gateway_account_id AND a.provider = $1)`,
		provider, transactionID)
}

// Update writes mutable charge fields guarded by the version column.
func (r *PostgresRepository) Update(ctx context.Context, c *Charge) error {
	tag, err := r.db.Exec(ctx, `UPDATE charges SET
        status = $1, gateway_transaction_id = $2, capture_attempts = $3,
        last_capture_attempt = $4, parity_checked_at = $5, version = version + 1
        WHERE id = $6 AND version = $7`,
		string(c.Status), nullable(c.GatewayTransactionID), c.CaptureAttempts,
		c.LastCaptureAttempt, c.ParityCheckedAt, c.ID, c.Version)
	if err != nil {
		return fmt.Errorf("update charge: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}
	c.Version++
	return nil
}

// UpdateWithEvent writes the charge and its transition event in a single
// transaction, so a committed status change always carries its audit event.
func (r *PostgresRepository) UpdateWithEvent(ctx context.Context, c *Charge, ev Event) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin charge update: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `UPDATE charges SET
        status = $1, gateway_transaction_id = $2, capture_attempts = $3,
        last_capture_attempt = $4, parity_checked_at = $5, version = version + 1
        WHERE id = $6 AND version = $7`,
		string(c.Status), nullable(c.GatewayTransactionID), c.CaptureAttempts,
		c.LastCaptureAttempt, c.ParityCheckedAt, c.ID, c.Version)
	if err != nil {
		return fmt.Errorf("update charge: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}

	if _, err := tx.Exec(ctx, `INSERT INTO charge_events (charge_id, status, updated, gateway_event_date)
        VALUES ($1, $2, $3, $4)`,
		ev.ChargeID, string(ev.Status), ev.Updated.UTC(), ev.GatewayEventDate); err != nil {
		return fmt.Errorf("insert charge event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit charge update: %w", err)
	}
	c.Version++
	return nil
}

// AppendEvent records one accepted transition.
func (r *PostgresRepository) AppendEvent(ctx context.Context, ev Event) error {
	_, err := r.db.Exec(ctx, `INSERT INTO charge_events (charge_id, status, updated, gateway_event_date)
        VALUES ($1, $2, $3, $4)`,
		ev.ChargeID, string(ev.Status), ev.Updated.UTC(), ev.GatewayEventDate)
	if err != nil {
		return fmt.Errorf("insert charge event: %w", err)
	}
	return nil
}

// FindForCapture selects the next batch of capture-eligible charges.
func (r *PostgresRepository) FindForCapture(ctx context.Context, batchSize int, retryInterval time.Duration, maxRetries int) ([]*Charge, error) {
	rows, err := r.db.Query(ctx, `SELECT `+chargeColumns+` FROM charges
        WHERE status = $1
          AND capture_attempts <= $2
          AND (last_capture_attempt IS NULL OR last_capture_attempt < $3)
        ORDER BY created_at ASC
        LIMIT $4`,
		string(status.CaptureReady), maxRetries, time.Now().UTC().Add(-retryInterval), batchSize)
	if err != nil {
		return nil, fmt.Errorf("find charges for capture: %w", err)
	}
	defer rows.Close()

	var out []*Charge
	for rows.Next() {
		c, err := scanCharge(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CountForCapture counts currently capture-eligible charges.
func (r *PostgresRepository) CountForCapture(ctx context.Context, retryInterval time.Duration, maxRetries int) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM charges
        WHERE status = $1
          AND capture_attempts <= $2
          AND (last_capture_attempt IS NULL OR last_capture_attempt < $3)`,
		string(status.CaptureReady), maxRetries, time.Now().UTC().Add(-retryInterval)).Scan(&n)
	return n, err
}

// CountOverCaptureRetryCap counts charges excluded from automatic capture.
func (r *PostgresRepository) CountOverCaptureRetryCap(ctx context.Context, maxRetries int) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM charges
        WHERE status = $1 AND capture_attempts > $2`,
		string(status.CaptureReady), maxRetries).Scan(&n)
	return n, err
}

// FindForExpunge returns the oldest charge eligible for an expunge attempt.
func (r *PostgresRepository) FindForExpunge(ctx context.Context, minAge, excludeCheckedWithin time.Duration) (*Charge, error) {
	now := time.Now().UTC()
	return r.getBy(ctx, `SELECT `+chargeColumns+` FROM charges
        WHERE created_at < $1
          AND (parity_checked_at IS NULL OR parity_checked_at < $2)
        ORDER BY created_at ASC
        LIMIT 1`,
		now.Add(-minAge), now.Add(-excludeCheckedWithin))
}

// UpdateParityCheckedAt stamps the last parity-check time without touching
// the version; it is bookkeeping, not business state.
func (r *PostgresRepository) UpdateParityCheckedAt(ctx context.Context, chargeID int64, checkedAt time.Time) error {
	_, err := r.db.Exec(ctx, `UPDATE charges SET parity_checked_at = $1 WHERE id = $2`, checkedAt.UTC(), chargeID)
	return err
}

// Expunge hard-removes the charge with its refunds and events.
func (r *PostgresRepository) Expunge(ctx context.Context, chargeID int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM refunds WHERE charge_id = $1`, chargeID); err != nil {
		return fmt.Errorf("expunge refunds: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM charge_events WHERE charge_id = $1`, chargeID); err != nil {
		return fmt.Errorf("expunge charge events: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM charges WHERE id = $1`, chargeID); err != nil {
		return fmt.Errorf("expunge charge: %w", err)
	}
	return tx.Commit(ctx)
}

func (r *PostgresRepository) getBy(ctx context.Context, query string, args ...any) (*Charge, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	c, err := scanCharge(rows)
	if err != nil {
		return nil, err
	}
	rows.Close()

	if err := r.loadEvents(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *PostgresRepository) loadEvents(ctx context.Context, c *Charge) error {
	rows, err := r.db.Query(ctx, `SELECT id, charge_id, status, updated, gateway_event_date
        FROM charge_events WHERE charge_id = $1 ORDER BY updated ASC, id ASC`, c.ID)
	if err != nil {
		return fmt.Errorf("load charge events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ev Event
		var s string
		if err := rows.Scan(&ev.ID, &ev.ChargeID, &s, &ev.Updated, &ev.GatewayEventDate); err != nil {
			return err
		}
		ev.Status = status.ChargeStatus(s)
		ev.Updated = ev.Updated.UTC()
		c.Events = append(c.Events, ev)
	}
	return rows.Err()
}

func scanCharge(row pgx.Rows) (*Charge, error) {
	var c Charge
	var s string
	var gatewayTransactionID *string
	if err := row.Scan(&c.ID, &c.ExternalID, &c.Amount, &s, &gatewayTransactionID, &c.GatewayAccountID,
		&c.Reference, &c.Description, &c.Email, &c.ReturnURL, &c.Language, &c.CreatedAt, &c.Version,
		&c.CaptureAttempts, &c.LastCaptureAttempt, &c.ParityCheckedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	c.Status = status.ChargeStatus(s)
	c.CreatedAt = c.CreatedAt.UTC()
	if gatewayTransactionID != nil {
		c.GatewayTransactionID = *gatewayTransactionID
	}
	return &c, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
