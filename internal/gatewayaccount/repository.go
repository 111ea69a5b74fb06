package gatewayaccount

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the requested account does not exist.
var ErrNotFound = errors.New("gateway account not found")

// Repository loads gateway accounts.
type Repository interface {
	Get(ctx context.Context, id int64) (Account, error)
}

// PostgresRepository reads accounts from PostgreSQL. Credentials are stored
// as a JSON document.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Get fetches an account by identifier.
func (r *PostgresRepository) Get(ctx context.Context, id int64) (Account, error) {
	row := r.db.QueryRow(ctx, `SELECT id, provider, environment, credentials, created_at
        FROM gateway_accounts WHERE id = $1`, id)

	var a Account
	var credentials []byte
	var createdAt time.Time
	if err := row.Scan(&a.ID, &a.Provider, &a.Environment, &credentials, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, err
	}
	if err := json.Unmarshal(credentials, &a.Credentials); err != nil {
		return Account{}, err
	}
	a.CreatedAt = createdAt.UTC()
	return a, nil
}
