// Package storage defines the Storage interface — a contract that any
// database backend must satisfy to work with this application.
//
// WHY AN INTERFACE?
// ─────────────────
// Handlers (HTTP layer) should not know or care which database they are
// talking to. Two backends ship today (SQLite and PostgreSQL) and both
// satisfy this contract; tests can pass a stub instead of a real database.
package storage

import (
	"context"
	"errors"

	"github.com/aanand-mishra/globe-markers/internal/types"
)

// Sentinel errors returned by every backend. Driver-specific errors are
// translated into these at the storage boundary so handlers can use
// errors.Is without importing a database driver.
var (
	// ErrUserNotFound is returned when a user id or username matches no row,
	// and when a marker is created for an owner that no longer exists.
	ErrUserNotFound = errors.New("user not found")

	// ErrUserExists is returned when registering a username that is taken.
	ErrUserExists = errors.New("username already taken")
)

// MarkerStore is the marker repository.
type MarkerStore interface {
	// ListMarkers returns every marker of every user, ordered by id.
	// Returns an empty slice (not nil) when there are none.
	ListMarkers(ctx context.Context) ([]types.Marker, error)

	// CreateMarker persists a new marker owned by ownerID. The repository
	// assigns the id and created_at, and returns the stored row.
	CreateMarker(ctx context.Context, ownerID int64, lat, lon float64, name string) (types.Marker, error)

	// DeleteMarkerIfOwned removes marker id only if ownerID owns it.
	// removed reports whether a row was deleted; a miss is not an error.
	DeleteMarkerIfOwned(ctx context.Context, id, ownerID int64) (removed bool, err error)
}

// UserStore is the identity repository backing authentication.
type UserStore interface {
	// CreateUser inserts a user with an already-hashed password.
	CreateUser(ctx context.Context, username, passwordHash string) (types.User, error)

	// GetUserByID and GetUserByUsername return ErrUserNotFound on a miss.
	GetUserByID(ctx context.Context, id int64) (types.User, error)
	GetUserByUsername(ctx context.Context, username string) (types.User, error)

	// DeleteUser removes the user and, by cascade, all of their markers.
	DeleteUser(ctx context.Context, id int64) error
}

// Storage is the full database contract.
type Storage interface {
	MarkerStore
	UserStore

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases the underlying connection pool.
	Close() error
}
