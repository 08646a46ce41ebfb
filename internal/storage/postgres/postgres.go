// Package postgres provides a PostgreSQL implementation of storage.Storage
// on top of a pgx connection pool. It mirrors the SQLite backend statement
// for statement; only placeholders, column types and error codes differ.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aanand-mishra/globe-markers/internal/storage"
	"github.com/aanand-mishra/globe-markers/internal/types"
)

const schema = `
	CREATE TABLE IF NOT EXISTS users (
		id            BIGSERIAL    PRIMARY KEY,
		username      VARCHAR(150) NOT NULL UNIQUE,
		password_hash TEXT         NOT NULL,
		created_at    TIMESTAMPTZ  NOT NULL
	);

	CREATE TABLE IF NOT EXISTS markers (
		id         BIGSERIAL        PRIMARY KEY,
		latitude   DOUBLE PRECISION NOT NULL,
		longitude  DOUBLE PRECISION NOT NULL,
		name       VARCHAR(100)     NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ      NOT NULL,
		user_id    BIGINT           NOT NULL REFERENCES users(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS markers_user_id_idx ON markers(user_id);
`

// SQLSTATE codes we translate into storage sentinels.
const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// Postgres is the PostgreSQL implementation of storage.Storage.
// A *pgxpool.Pool is safe for concurrent use.
type Postgres struct {
	Pool *pgxpool.Pool

	// Now stamps created_at on new rows.
	Now func() time.Time
}

var _ storage.Storage = (*Postgres)(nil)

// New connects to dsn, applies the schema and returns a ready store.
func New(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: connect: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.New: create tables: %w", err)
	}

	return &Postgres{Pool: pool, Now: time.Now}, nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	if err := p.Pool.Ping(ctx); err != nil {
		return fmt.Errorf("Ping: %w", err)
	}
	return nil
}

func (p *Postgres) Close() error {
	p.Pool.Close()
	return nil
}

func (p *Postgres) ListMarkers(ctx context.Context) ([]types.Marker, error) {
	rows, err := p.Pool.Query(ctx,
		"SELECT id, latitude, longitude, name, created_at, user_id FROM markers ORDER BY id",
	)
	if err != nil {
		return nil, fmt.Errorf("ListMarkers: query: %w", err)
	}

	markers, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (types.Marker, error) {
		var m types.Marker
		err := row.Scan(&m.ID, &m.Latitude, &m.Longitude, &m.Name, &m.CreatedAt, &m.UserID)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("ListMarkers: scan rows: %w", err)
	}

	if markers == nil {
		markers = make([]types.Marker, 0)
	}
	return markers, nil
}

func (p *Postgres) CreateMarker(ctx context.Context, ownerID int64, lat, lon float64, name string) (types.Marker, error) {
	m := types.Marker{
		Latitude:  lat,
		Longitude: lon,
		Name:      name,
		CreatedAt: p.Now().UTC(),
		UserID:    ownerID,
	}

	err := p.Pool.QueryRow(ctx,
		"INSERT INTO markers (latitude, longitude, name, created_at, user_id) VALUES ($1, $2, $3, $4, $5) RETURNING id",
		m.Latitude, m.Longitude, m.Name, m.CreatedAt, m.UserID,
	).Scan(&m.ID)
	if err != nil {
		if hasCode(err, foreignKeyViolation) {
			return types.Marker{}, fmt.Errorf("CreateMarker: owner %d: %w", ownerID, storage.ErrUserNotFound)
		}
		return types.Marker{}, fmt.Errorf("CreateMarker: insert: %w", err)
	}

	return m, nil
}

func (p *Postgres) DeleteMarkerIfOwned(ctx context.Context, id, ownerID int64) (bool, error) {
	tag, err := p.Pool.Exec(ctx, "DELETE FROM markers WHERE id = $1 AND user_id = $2", id, ownerID)
	if err != nil {
		return false, fmt.Errorf("DeleteMarkerIfOwned: exec: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (p *Postgres) CreateUser(ctx context.Context, username, passwordHash string) (types.User, error) {
	u := types.User{
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    p.Now().UTC(),
	}

	err := p.Pool.QueryRow(ctx,
		"INSERT INTO users (username, password_hash, created_at) VALUES ($1, $2, $3) RETURNING id",
		u.Username, u.PasswordHash, u.CreatedAt,
	).Scan(&u.ID)
	if err != nil {
		if hasCode(err, uniqueViolation) {
			return types.User{}, fmt.Errorf("CreateUser: %q: %w", username, storage.ErrUserExists)
		}
		return types.User{}, fmt.Errorf("CreateUser: insert: %w", err)
	}

	return u, nil
}

func (p *Postgres) GetUserByID(ctx context.Context, id int64) (types.User, error) {
	u, err := p.getUser(ctx, "SELECT id, username, password_hash, created_at FROM users WHERE id = $1", id)
	if err != nil {
		return types.User{}, fmt.Errorf("GetUserByID: %d: %w", id, err)
	}
	return u, nil
}

func (p *Postgres) GetUserByUsername(ctx context.Context, username string) (types.User, error) {
	u, err := p.getUser(ctx, "SELECT id, username, password_hash, created_at FROM users WHERE username = $1", username)
	if err != nil {
		return types.User{}, fmt.Errorf("GetUserByUsername: %q: %w", username, err)
	}
	return u, nil
}

// DeleteUser removes the user; ON DELETE CASCADE removes their markers.
func (p *Postgres) DeleteUser(ctx context.Context, id int64) error {
	tag, err := p.Pool.Exec(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("DeleteUser: exec: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("DeleteUser: %d: %w", id, storage.ErrUserNotFound)
	}
	return nil
}

func (p *Postgres) getUser(ctx context.Context, query string, arg any) (types.User, error) {
	var u types.User
	err := p.Pool.QueryRow(ctx, query, arg).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return types.User{}, storage.ErrUserNotFound
	}
	if err != nil {
		return types.User{}, fmt.Errorf("scan: %w", err)
	}
	return u, nil
}

func hasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
