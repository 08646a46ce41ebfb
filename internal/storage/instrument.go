package storage

import (
	"context"
	"errors"
	"time"

	"github.com/aanand-mishra/globe-markers/internal/metrics"
	"github.com/aanand-mishra/globe-markers/internal/types"
)

// Instrument wraps s so that every call is timed and failures are counted
// in the storage Prometheus collectors. Lookups that miss with
// ErrUserNotFound and rejected registrations (ErrUserExists) are expected
// outcomes, not failures, and are not counted as errors.
func Instrument(s Storage) Storage {
	return &instrumented{next: s}
}

type instrumented struct {
	next Storage
}

func observe(operation string, start time.Time, err error) {
	if errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrUserExists) {
		err = nil
	}
	metrics.RecordStorageOperation(operation, time.Since(start), err)
}

func (i *instrumented) ListMarkers(ctx context.Context) ([]types.Marker, error) {
	start := time.Now()
	markers, err := i.next.ListMarkers(ctx)
	observe("list_markers", start, err)
	return markers, err
}

func (i *instrumented) CreateMarker(ctx context.Context, ownerID int64, lat, lon float64, name string) (types.Marker, error) {
	start := time.Now()
	m, err := i.next.CreateMarker(ctx, ownerID, lat, lon, name)
	observe("create_marker", start, err)
	if err == nil {
		metrics.MarkersCreated.Inc()
	}
	return m, err
}

func (i *instrumented) DeleteMarkerIfOwned(ctx context.Context, id, ownerID int64) (bool, error) {
	start := time.Now()
	removed, err := i.next.DeleteMarkerIfOwned(ctx, id, ownerID)
	observe("delete_marker", start, err)
	if removed {
		metrics.MarkersDeleted.Inc()
	}
	return removed, err
}

func (i *instrumented) CreateUser(ctx context.Context, username, passwordHash string) (types.User, error) {
	start := time.Now()
	u, err := i.next.CreateUser(ctx, username, passwordHash)
	observe("create_user", start, err)
	return u, err
}

func (i *instrumented) GetUserByID(ctx context.Context, id int64) (types.User, error) {
	start := time.Now()
	u, err := i.next.GetUserByID(ctx, id)
	observe("get_user", start, err)
	return u, err
}

func (i *instrumented) GetUserByUsername(ctx context.Context, username string) (types.User, error) {
	start := time.Now()
	u, err := i.next.GetUserByUsername(ctx, username)
	observe("get_user", start, err)
	return u, err
}

func (i *instrumented) DeleteUser(ctx context.Context, id int64) error {
	start := time.Now()
	err := i.next.DeleteUser(ctx, id)
	observe("delete_user", start, err)
	return err
}

func (i *instrumented) Ping(ctx context.Context) error {
	start := time.Now()
	err := i.next.Ping(ctx)
	observe("ping", start, err)
	return err
}

func (i *instrumented) Close() error {
	return i.next.Close()
}
