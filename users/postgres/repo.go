package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/brainbox-app/brainbox/users"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

const uniqueViolation = "23505"

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL,
	name          TEXT NOT NULL DEFAULT '',
	password_hash TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT users_email_key UNIQUE (email)
)`

const selectColumns = `SELECT id, email, name, password_hash, created_at, updated_at FROM users`

var _ users.Repo = (*Repo)(nil)

type Repo struct {
	pool *pgxpool.Pool
}

// Connect opens a pool and checks the database answers within five seconds.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("[postgres.Connect] create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("[postgres.Connect] ping: %w", err)
	}
	log.Info().Msg("[postgres.Connect] connected")
	return pool, nil
}

func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Migrate creates the users table when it does not exist.
func (r *Repo) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("[postgres.Migrate] %w", err)
	}
	return nil
}

func (r *Repo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *Repo) Create(ctx context.Context, user *users.User) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, email, name, password_hash, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		user.ID, user.Email, user.Name, user.PasswordHash, timestamp(user.CreatedAt), timestamp(user.UpdatedAt))
	if err != nil {
		return fmt.Errorf("[postgres.Create] %w", translate(err))
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id string) (*users.User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx, selectColumns+` WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("[postgres.GetByID] %w", err)
	}
	return user, nil
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx, selectColumns+` WHERE email = $1`, email))
	if err != nil {
		return nil, fmt.Errorf("[postgres.GetByEmail] %w", err)
	}
	return user, nil
}

func (r *Repo) Update(ctx context.Context, user *users.User) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET email = $2, name = $3, password_hash = $4, updated_at = $5 WHERE id = $1`,
		user.ID, user.Email, user.Name, user.PasswordHash, timestamp(user.UpdatedAt))
	if err != nil {
		return fmt.Errorf("[postgres.Update] %w", translate(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("[postgres.Update] %w", users.ErrUserNotFound)
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("[postgres.Delete] %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("[postgres.Delete] %w", users.ErrUserNotFound)
	}
	return nil
}

func scanUser(row pgx.Row) (*users.User, error) {
	var (
		user                 users.User
		createdAt, updatedAt time.Time
	)
	err := row.Scan(&user.ID, &user.Email, &user.Name, &user.PasswordHash, &createdAt, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, users.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	user.CreatedAt = &createdAt
	user.UpdatedAt = &updatedAt
	return &user, nil
}

func translate(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return err
	}
	if pgErr.ConstraintName == "users_email_key" {
		return users.ErrEmailTaken
	}
	return users.ErrUserExists
}

func timestamp(t *time.Time) time.Time {
	if t == nil {
		return time.Now().UTC()
	}
	return *t
}
