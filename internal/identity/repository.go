package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrUserNotFound is returned when no row matches the lookup key.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailTaken is returned when an insert or update collides with the
	// unique email constraint.
	ErrEmailTaken = errors.New("email already registered")
	// ErrStoreTimeout is returned when no pooled connection became free
	// within the acquire timeout. No connection is held when it is returned.
	ErrStoreTimeout = errors.New("timed out acquiring store connection")
)

const pgUniqueViolation = "23505"

// Repository persists users.
type Repository interface {
	Create(ctx context.Context, user User) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	UpdateProfile(ctx context.Context, id int64, profile Profile) error
	List(ctx context.Context) ([]User, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db             *pgxpool.Pool
	acquireTimeout time.Duration
}

// NewPostgresRepository builds a Postgres-backed identity repository.
func NewPostgresRepository(db *pgxpool.Pool, acquireTimeout time.Duration) *PostgresRepository {
	return &PostgresRepository{db: db, acquireTimeout: acquireTimeout}
}

func (r *PostgresRepository) acquire(ctx context.Context) (*pgxpool.Conn, error) {
	acquireCtx, cancel := context.WithTimeout(ctx, r.acquireTimeout)
	defer cancel()

	conn, err := r.db.Acquire(acquireCtx)
	if err != nil {
		return nil, acquireError(ctx, err)
	}
	return conn, nil
}

// acquireError classifies a failed pool acquire. Only the acquire deadline
// expiring while parent is still live counts as ErrStoreTimeout; a caller
// that went away keeps its own context error.
func acquireError(parent context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) && parent.Err() == nil {
		return ErrStoreTimeout
	}
	return fmt.Errorf("acquire connection: %w", err)
}

// Create inserts a new user and returns it with the store-assigned id.
func (r *PostgresRepository) Create(ctx context.Context, user User) (User, error) {
	conn, err := r.acquire(ctx)
	if err != nil {
		return User{}, err
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `INSERT INTO users (name, email, password, created_at)
        VALUES ($1, $2, $3, $4) RETURNING user_id`, user.Name, user.Email, user.PasswordHash, user.CreatedAt.UTC())
	if err := row.Scan(&user.ID); err != nil {
		if isPgUniqueViolation(err) {
			return User{}, ErrEmailTaken
		}
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

// FindByEmail fetches a user by email address.
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (User, error) {
	conn, err := r.acquire(ctx)
	if err != nil {
		return User{}, err
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `SELECT user_id, name, email, password, created_at FROM users WHERE email = $1`, email)
	var user User
	if err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("select user: %w", err)
	}
	user.CreatedAt = user.CreatedAt.UTC()
	return user, nil
}

// UpdateProfile overwrites name and email. The password hash is never touched.
func (r *PostgresRepository) UpdateProfile(ctx context.Context, id int64, profile Profile) error {
	conn, err := r.acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	cmd, err := conn.Exec(ctx, `UPDATE users SET name = $1, email = $2 WHERE user_id = $3`, profile.Name, profile.Email, id)
	if err != nil {
		if isPgUniqueViolation(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("update user: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// List returns every user ordered by id.
func (r *PostgresRepository) List(ctx context.Context) ([]User, error) {
	conn, err := r.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `SELECT user_id, name, email, password, created_at FROM users ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	users, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (User, error) {
		var u User
		err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt)
		u.CreatedAt = u.CreatedAt.UTC()
		return u, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan users: %w", err)
	}
	return users, nil
}

// Ping checks store connectivity.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func isPgUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
