// Package marker contains the HTTP handlers of the Marker resource.
//
// HANDLER PATTERN — THE CLOSURE / FACTORY PATTERN:
// ─────────────────────────────────────────────────
// Each exported function receives its dependencies once, at route
// registration, and returns the http.HandlerFunc called on every request:
//
//	r.Get("/api/markers/", marker.List(store))
//
// Mutating handlers expect the auth guard (middleware.RequireUser) in
// front of them, and still check for a current user themselves so they
// never act without one.
package marker

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/aanand-mishra/globe-markers/internal/auth"
	"github.com/aanand-mishra/globe-markers/internal/http/middleware"
	"github.com/aanand-mishra/globe-markers/internal/http/request"
	"github.com/aanand-mishra/globe-markers/internal/storage"
	"github.com/aanand-mishra/globe-markers/internal/types"
	"github.com/aanand-mishra/globe-markers/internal/utils/response"
)

// IDParam is the chi URL parameter holding the marker id.
const IDParam = "markerID"

// ─────────────────────────────────────────────────────────────────────────────
// List handles GET /api/markers/
// Returns the coordinates of every marker, from every user. No auth.
//
// Success response (200 OK):
//
//	[ { "latitude": 10.0, "longitude": 20.0 } ]
//
// Returns an empty array [] (not null) when there are no markers.
// ─────────────────────────────────────────────────────────────────────────────
func List(store storage.MarkerStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		markers, err := store.ListMarkers(r.Context())
		if err != nil {
			slog.Error("error listing markers", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError,
				response.GeneralError(types.ErrStorageUnavailable))
			return
		}

		points := make([]types.MarkerPoint, 0, len(markers))
		for _, m := range markers {
			points = append(points, m.Point())
		}

		response.WriteJSON(w, http.StatusOK, points)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Add handles POST /api/add-marker/
// Creates a marker owned by the current user.
//
// Request body (JSON):
//
//	{ "lat": 10.0, "lon": 20.0, "name": "Home" }     name is optional
//
// Success response (200 OK):
//
//	{ "status": "ok" }
//
// Error responses:
//
//	401 Unauthorized — no current user
//	400 Bad Request  — empty body, malformed JSON, missing lat/lon, name too long
//	500 Internal     — database error
//
// ─────────────────────────────────────────────────────────────────────────────
func Add(store storage.MarkerStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.UserFromContext(r.Context())
		if !ok {
			middleware.Unauthorized(w)
			return
		}

		var req types.AddMarkerRequest
		if err := request.Decode(r, &req); err != nil {
			request.WriteError(w, err)
			return
		}

		m, err := store.CreateMarker(r.Context(), user.ID, *req.Lat, *req.Lon, req.Name)
		if errors.Is(err, storage.ErrUserNotFound) {
			// The account was removed after the token was checked.
			middleware.Unauthorized(w)
			return
		}
		if err != nil {
			slog.Error("error creating marker",
				slog.Int64("user_id", user.ID),
				slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError,
				response.GeneralError(types.ErrStorageUnavailable))
			return
		}

		slog.Info("marker created",
			slog.Int64("id", m.ID),
			slog.Int64("user_id", user.ID))

		response.WriteJSON(w, http.StatusOK, response.OK(response.StatusOK))
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Delete handles POST and DELETE /api/delete-marker/{markerID}/
// Removes the marker if, and only if, the current user owns it.
//
// Success response (200 OK), whether or not anything was removed:
//
//	{ "status": "deleted" }
//
// An unknown id and a marker owned by somebody else look exactly the same
// to the caller: nothing happens and the answer is still "deleted".
//
// Error responses:
//
//	401 Unauthorized — no current user
//	400 Bad Request  — id is not a positive integer
//	500 Internal     — database error
//
// ─────────────────────────────────────────────────────────────────────────────
func Delete(store storage.MarkerStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.UserFromContext(r.Context())
		if !ok {
			middleware.Unauthorized(w)
			return
		}

		id, err := strconv.ParseInt(chi.URLParam(r, IDParam), 10, 64)
		if err != nil || id <= 0 {
			response.WriteJSON(w, http.StatusBadRequest,
				response.GeneralError(errors.New("invalid marker id: must be a positive integer")))
			return
		}

		removed, err := store.DeleteMarkerIfOwned(r.Context(), id, user.ID)
		if err != nil {
			slog.Error("error deleting marker",
				slog.Int64("id", id),
				slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError,
				response.GeneralError(types.ErrStorageUnavailable))
			return
		}

		if removed {
			slog.Info("marker deleted", slog.Int64("id", id), slog.Int64("user_id", user.ID))
		} else {
			slog.Debug("marker not deleted: not found or not owned",
				slog.Int64("id", id), slog.Int64("user_id", user.ID))
		}

		response.WriteJSON(w, http.StatusOK, response.OK(response.StatusDeleted))
	}
}
