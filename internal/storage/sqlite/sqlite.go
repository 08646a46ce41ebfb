// Package sqlite provides a SQLite-backed implementation of the
// storage.Storage interface using Go's standard database/sql package.
//
// WHY SQLite?
// ───────────
// SQLite stores everything in a single file on disk. There is no
// network, no separate server process, and no installation beyond the
// driver. For a single markers table it is the obvious default backend.
//
// The blank import below registers the sqlite3 driver with database/sql.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aanand-mishra/globe-markers/internal/storage"
	"github.com/aanand-mishra/globe-markers/internal/types"

	"github.com/mattn/go-sqlite3"
)

// schema is applied on every startup. CREATE ... IF NOT EXISTS is
// idempotent, so an existing database is left untouched.
//
// markers.user_id cascades: removing a user removes everything they own.
// SQLite only honours this when foreign keys are enabled on the
// connection, which New does through the DSN.
const schema = `
	CREATE TABLE IF NOT EXISTS users (
		id            INTEGER  PRIMARY KEY AUTOINCREMENT,
		username      TEXT     NOT NULL UNIQUE,
		password_hash TEXT     NOT NULL,
		created_at    DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS markers (
		id         INTEGER  PRIMARY KEY AUTOINCREMENT,
		latitude   REAL     NOT NULL,
		longitude  REAL     NOT NULL,
		name       TEXT     NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		user_id    INTEGER  NOT NULL REFERENCES users(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS markers_user_id_idx ON markers(user_id);
`

// SQLite is the concrete implementation of storage.Storage.
// It holds a *sql.DB which is a connection pool managed by database/sql.
// A single *sql.DB is safe for concurrent use by multiple goroutines.
type SQLite struct {
	Db *sql.DB

	// Now stamps created_at on new rows. Defaults to time.Now; tests
	// replace it to get deterministic timestamps.
	Now func() time.Time
}

var _ storage.Storage = (*SQLite)(nil)

// New opens the SQLite database file at path, creates the tables if they
// do not already exist, and returns a ready-to-use *SQLite.
func New(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("sqlite.New: open db: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite.New: create tables: %w", err)
	}

	return &SQLite{Db: db, Now: time.Now}, nil
}

// dsn appends the driver options we rely on to path: foreign keys for the
// cascade, and a busy timeout so concurrent writers wait instead of
// failing with SQLITE_BUSY.
func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_foreign_keys=on&_busy_timeout=5000"
}

// Ping checks that the database file is reachable.
func (s *SQLite) Ping(ctx context.Context) error {
	if err := s.Db.PingContext(ctx); err != nil {
		return fmt.Errorf("Ping: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *SQLite) Close() error {
	return s.Db.Close()
}

// ─────────────────────────────────────────────────────────────────────────────
// ListMarkers returns every marker row, across all users.
//
// The columns are listed explicitly so Scan's ordering never depends on
// the physical table layout.
// ─────────────────────────────────────────────────────────────────────────────
func (s *SQLite) ListMarkers(ctx context.Context) ([]types.Marker, error) {
	rows, err := s.Db.QueryContext(ctx,
		"SELECT id, latitude, longitude, name, created_at, user_id FROM markers ORDER BY id",
	)
	if err != nil {
		return nil, fmt.Errorf("ListMarkers: query: %w", err)
	}
	defer rows.Close()

	markers := make([]types.Marker, 0)

	for rows.Next() {
		var m types.Marker

		if err := rows.Scan(
			&m.ID,
			&m.Latitude,
			&m.Longitude,
			&m.Name,
			&m.CreatedAt,
			&m.UserID,
		); err != nil {
			return nil, fmt.Errorf("ListMarkers: scan row: %w", err)
		}

		markers = append(markers, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListMarkers: rows iteration: %w", err)
	}

	return markers, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// CreateMarker inserts a new marker owned by ownerID.
//
// created_at comes from s.Now rather than a column default, so the value
// returned to the caller is exactly the value stored. The id is the
// AUTOINCREMENT value reported by LastInsertId.
// ─────────────────────────────────────────────────────────────────────────────
func (s *SQLite) CreateMarker(ctx context.Context, ownerID int64, lat, lon float64, name string) (types.Marker, error) {
	m := types.Marker{
		Latitude:  lat,
		Longitude: lon,
		Name:      name,
		CreatedAt: s.Now().UTC(),
		UserID:    ownerID,
	}

	result, err := s.Db.ExecContext(ctx,
		"INSERT INTO markers (latitude, longitude, name, created_at, user_id) VALUES (?, ?, ?, ?, ?)",
		m.Latitude, m.Longitude, m.Name, m.CreatedAt, m.UserID,
	)
	if err != nil {
		if isConstraint(err, sqlite3.ErrConstraintForeignKey) {
			return types.Marker{}, fmt.Errorf("CreateMarker: owner %d: %w", ownerID, storage.ErrUserNotFound)
		}
		return types.Marker{}, fmt.Errorf("CreateMarker: exec: %w", err)
	}

	m.ID, err = result.LastInsertId()
	if err != nil {
		return types.Marker{}, fmt.Errorf("CreateMarker: last insert id: %w", err)
	}

	return m, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// DeleteMarkerIfOwned removes a marker only when both the id and the
// owner match. The ownership check lives in the WHERE clause, so there is
// no window between "check owner" and "delete".
// ─────────────────────────────────────────────────────────────────────────────
func (s *SQLite) DeleteMarkerIfOwned(ctx context.Context, id, ownerID int64) (bool, error) {
	result, err := s.Db.ExecContext(ctx,
		"DELETE FROM markers WHERE id = ? AND user_id = ?", id, ownerID,
	)
	if err != nil {
		return false, fmt.Errorf("DeleteMarkerIfOwned: exec: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("DeleteMarkerIfOwned: rows affected: %w", err)
	}

	return n > 0, nil
}

// CreateUser inserts a user row. A duplicate username surfaces as
// storage.ErrUserExists.
func (s *SQLite) CreateUser(ctx context.Context, username, passwordHash string) (types.User, error) {
	u := types.User{
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    s.Now().UTC(),
	}

	result, err := s.Db.ExecContext(ctx,
		"INSERT INTO users (username, password_hash, created_at) VALUES (?, ?, ?)",
		u.Username, u.PasswordHash, u.CreatedAt,
	)
	if err != nil {
		if isConstraint(err, sqlite3.ErrConstraintUnique) {
			return types.User{}, fmt.Errorf("CreateUser: %q: %w", username, storage.ErrUserExists)
		}
		return types.User{}, fmt.Errorf("CreateUser: exec: %w", err)
	}

	u.ID, err = result.LastInsertId()
	if err != nil {
		return types.User{}, fmt.Errorf("CreateUser: last insert id: %w", err)
	}

	return u, nil
}

// GetUserByID fetches exactly one user by primary key.
func (s *SQLite) GetUserByID(ctx context.Context, id int64) (types.User, error) {
	row := s.Db.QueryRowContext(ctx,
		"SELECT id, username, password_hash, created_at FROM users WHERE id = ? LIMIT 1", id,
	)
	u, err := scanUser(row)
	if err != nil {
		return types.User{}, fmt.Errorf("GetUserByID: %d: %w", id, err)
	}
	return u, nil
}

// GetUserByUsername fetches exactly one user by username.
func (s *SQLite) GetUserByUsername(ctx context.Context, username string) (types.User, error) {
	row := s.Db.QueryRowContext(ctx,
		"SELECT id, username, password_hash, created_at FROM users WHERE username = ? LIMIT 1", username,
	)
	u, err := scanUser(row)
	if err != nil {
		return types.User{}, fmt.Errorf("GetUserByUsername: %q: %w", username, err)
	}
	return u, nil
}

// DeleteUser removes a user; the foreign key cascade removes their markers
// in the same statement.
func (s *SQLite) DeleteUser(ctx context.Context, id int64) error {
	result, err := s.Db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("DeleteUser: exec: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("DeleteUser: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("DeleteUser: %d: %w", id, storage.ErrUserNotFound)
	}

	return nil
}

func scanUser(row *sql.Row) (types.User, error) {
	var u types.User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return types.User{}, storage.ErrUserNotFound
	}
	if err != nil {
		return types.User{}, fmt.Errorf("scan: %w", err)
	}
	return u, nil
}

// isConstraint reports whether err is a SQLite constraint violation with
// the given extended code.
func isConstraint(err error, code sqlite3.ErrNoExtended) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == code
}
