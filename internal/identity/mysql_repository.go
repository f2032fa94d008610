package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

const mysqlDuplicateEntry = 1062

// MySQLRepository implements Repository on MySQL through database/sql.
// The DSN must set clientFoundRows so that an update which leaves a row
// unchanged still counts as a match.
type MySQLRepository struct {
	db             *sql.DB
	acquireTimeout time.Duration
}

// NewMySQLRepository builds a MySQL-backed identity repository.
func NewMySQLRepository(db *sql.DB, acquireTimeout time.Duration) *MySQLRepository {
	return &MySQLRepository{db: db, acquireTimeout: acquireTimeout}
}

func (r *MySQLRepository) acquire(ctx context.Context) (*sql.Conn, error) {
	acquireCtx, cancel := context.WithTimeout(ctx, r.acquireTimeout)
	defer cancel()

	conn, err := r.db.Conn(acquireCtx)
	if err != nil {
		return nil, acquireError(ctx, err)
	}
	return conn, nil
}

// Create inserts a new user and returns it with the store-assigned id.
func (r *MySQLRepository) Create(ctx context.Context, user User) (User, error) {
	conn, err := r.acquire(ctx)
	if err != nil {
		return User{}, err
	}
	defer conn.Close()

	res, err := conn.ExecContext(ctx, "INSERT INTO users (name, email, password, created_at) VALUES (?, ?, ?, ?)",
		user.Name, user.Email, user.PasswordHash, user.CreatedAt.UTC())
	if err != nil {
		if isMySQLDuplicate(err) {
			return User{}, ErrEmailTaken
		}
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return User{}, fmt.Errorf("read insert id: %w", err)
	}
	user.ID = id
	return user, nil
}

// FindByEmail fetches a user by email address.
func (r *MySQLRepository) FindByEmail(ctx context.Context, email string) (User, error) {
	conn, err := r.acquire(ctx)
	if err != nil {
		return User{}, err
	}
	defer conn.Close()

	var user User
	err = conn.QueryRowContext(ctx, "SELECT userId, name, email, password, created_at FROM users WHERE email = ?", email).
		Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("select user: %w", err)
	}
	user.CreatedAt = user.CreatedAt.UTC()
	return user, nil
}

// UpdateProfile overwrites name and email. The password hash is never touched.
func (r *MySQLRepository) UpdateProfile(ctx context.Context, id int64, profile Profile) error {
	conn, err := r.acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	res, err := conn.ExecContext(ctx, "UPDATE users SET name = ?, email = ? WHERE userId = ?", profile.Name, profile.Email, id)
	if err != nil {
		if isMySQLDuplicate(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("update user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// List returns every user ordered by id.
func (r *MySQLRepository) List(ctx context.Context) ([]User, error) {
	conn, err := r.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx, "SELECT userId, name, email, password, created_at FROM users ORDER BY userId")
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan users: %w", err)
		}
		u.CreatedAt = u.CreatedAt.UTC()
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

// Ping checks store connectivity.
func (r *MySQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func isMySQLDuplicate(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry
}
