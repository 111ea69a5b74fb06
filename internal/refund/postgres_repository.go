package refund

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cardforge/connector/internal/status"
)

const refundColumns = `r.id, r.external_id, r.charge_id, c.external_id, r.amount, r.status, r.reference, r.created_at, r.version`

// PostgresRepository stores refunds in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a refund.
func (r *PostgresRepository) Create(ctx context.Context, ref *Refund) error {
	row := r.db.QueryRow(ctx, `INSERT INTO refunds (external_id, charge_id, amount, status, reference, created_at, version)
        VALUES ($1, $2, $3, $4, $5, $6, 1) RETURNING id`,
		ref.ExternalID, ref.ChargeID, ref.Amount, string(ref.Status), ref.Reference, ref.CreatedAt.UTC())
	if err := row.Scan(&ref.ID); err != nil {
		return fmt.Errorf("insert refund: %w", err)
	}
	ref.Version = 1
	return nil
}

// Get fetches a refund by surrogate id.
func (r *PostgresRepository) Get(ctx context.Context, id int64) (*Refund, error) {
	return r.getBy(ctx, `SELECT `+refundColumns+` FROM refunds r JOIN charges c ON c.id = r.charge_id WHERE r.id = $1`, id)
}

// GetByExternalID fetches a refund by its public identifier.
func (r *PostgresRepository) GetByExternalID(ctx context.Context, externalID string) (*Refund, error) {
	return r.getBy(ctx, `SELECT `+refundColumns+` FROM refunds r JOIN charges c ON c.id = r.charge_id WHERE r.external_id = $1`, externalID)
}

// Update writes mutable refund fields guarded by the version column.
func (r *PostgresRepository) Update(ctx context.Context, ref *Refund) error {
	tag, err := r.db.Exec(ctx, `UPDATE refunds SET status = $1, reference = $2, version = version + 1
        WHERE id = $3 AND version = $4`,
		string(ref.Status), ref.Reference, ref.ID, ref.Version)
	if err != nil {
		return fmt.Errorf("update refund: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}
	ref.Version++
	return nil
}

// ListByChargeExternalID returns a charge's refunds ordered by creation.
func (r *PostgresRepository) ListByChargeExternalID(ctx context.Context, chargeExternalID string) ([]*Refund, error) {
	rows, err := r.db.Query(ctx, `SELECT `+refundColumns+` FROM refunds r JOIN charges c ON c.id = r.charge_id
        WHERE c.external_id = $1 ORDER BY r.created_at ASC, r.id ASC`, chargeExternalID)
	if err != nil {
		return nil, fmt.Errorf("list refunds: %w", err)
	}
	defer rows.Close()

	var out []*Refund
	for rows.Next() {
		ref, err := scanRefund(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ref)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) getBy(ctx context.Context, query string, args ...any) (*Refund, error) {
	ref, err := scanRefund(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return ref, nil
}

func scanRefund(row pgx.Row) (*Refund, error) {
	var ref Refund
	var s string
	if err := row.Scan(&ref.ID, &ref.ExternalID, &ref.ChargeID, &ref.ChargeExternalID,
		&ref.Amount, &s, &ref.Reference, &ref.CreatedAt, &ref.Version); err != nil {
		return nil, err
	}
	ref.Status = status.RefundStatus(s)
	ref.CreatedAt = ref.CreatedAt.UTC()
	return &ref, nil
}
