package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists users. Implementations are the sole source of truth and
// must be safe for concurrent use.
type Repository interface {
	// Create stores a new user and returns its generated identifier. It fails
	// with ErrConflict when another record shares the email or the mobile.
	Create(ctx context.Context, user User) (string, error)
	FindByID(ctx context.Context, id string) (User, error)
	FindByEmailOrMobile(ctx context.Context, identifier string) (User, error)
	UpdateStatus(ctx context.Context, id string, status Status) error
	UpdateBalance(ctx context.Context, id string, balance int64) error
	List(ctx context.Context, filter ListFilter) ([]User, error)
}

const uniqueViolation = "23505"

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed identity repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Migrate creates the users table and its uniqueness constraints.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			mobile TEXT NOT NULL,
			email TEXT NOT NULL,
			pin_hash BYTEA NOT NULL,
			role TEXT NOT NULL DEFAULT 'user',
			status TEXT NOT NULL DEFAULT 'pending',
			balance BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS users_email_unique_idx ON users (email)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS users_mobile_unique_idx ON users (mobile)`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

const userColumns = `id, name, mobile, email, pin_hash, role, status, balance, created_at, updated_at`

// Create inserts a new user after checking that neither identifier is taken.
func (r *PostgresRepository) Create(ctx context.Context, user User) (string, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1 OR mobile = $2)`,
		user.Email, user.Mobile).Scan(&exists); err != nil {
		return "", fmt.Errorf("check existing user: %w", err)
	}
	if exists {
		return "", ErrConflict
	}

	id := uuid.New()
	_, err := r.db.Exec(ctx, `INSERT INTO users (`+userColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		id, user.Name, user.Mobile, user.Email, user.PINHash, string(user.Role), string(user.Status),
		user.Balance, user.CreatedAt.UTC(), user.UpdatedAt.UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return "", ErrConflict
		}
		return "", fmt.Errorf("insert user: %w", err)
	}
	return id.String(), nil
}

// FindByID fetches a user by identifier. Malformed identifiers are reported as ErrNotFound.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (User, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return User{}, ErrNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
	return scanUser(row)
}

// FindByEmailOrMobile fetches the user whose email or mobile equals identifier.
func (r *PostgresRepository) FindByEmailOrMobile(ctx context.Context, identifier string) (User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1 OR mobile = $1 LIMIT 1`, identifier)
	return scanUser(row)
}

// UpdateStatus sets the account status.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, status Status) error {
	return r.update(ctx, `UPDATE users SET status = $1, updated_at = NOW() WHERE id = $2`, id, string(status))
}

// UpdateBalance sets the account balance.
func (r *PostgresRepository) UpdateBalance(ctx context.Context, id string, balance int64) error {
	return r.update(ctx, `UPDATE users SET balance = $1, updated_at = NOW() WHERE id = $2`, id, balance)
}

func (r *PostgresRepository) update(ctx context.Context, query, id string, value any) error {
	userID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	cmd, err := r.db.Exec(ctx, query, value, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns users matching filter ordered by creation time.
func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]User, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if s := strings.TrimSpace(filter.Search); s != "" {
		args = append(args, "%"+escapeLike(s)+"%")
		n := len(args)
		clauses = append(clauses, fmt.Sprintf("(name ILIKE $%d OR email ILIKE $%d OR mobile ILIKE $%d)", n, n, n))
	}
	if filter.Role != "" {
		args = append(args, string(filter.Role))
		clauses = append(clauses, fmt.Sprintf("role = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)))
	}

	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM users WHERE `+
		strings.Join(clauses, " AND ")+` ORDER BY created_at, id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func scanUser(row pgx.Row) (User, error) {
	var (
		id             uuid.UUID
		role, status   string
		createdAt, upd time.Time
		user           User
	)
	if err := row.Scan(&id, &user.Name, &user.Mobile, &user.Email, &user.PINHash, &role, &status,
		&user.Balance, &createdAt, &upd); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	user.ID = id.String()
	user.Role = Role(role)
	user.Status = Status(status)
	user.CreatedAt = createdAt.UTC()
	user.UpdatedAt = upd.UTC()
	return user, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
