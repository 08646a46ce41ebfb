// Package page serves the non-API endpoints: the globe index page and the
// health check.
package page

import (
	"context"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/aanand-mishra/globe-markers/internal/types"
	"github.com/aanand-mishra/globe-markers/internal/utils/response"
)

//go:embed templates/index.html
var templatesFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templatesFS, "templates/index.html"))

// healthTimeout bounds the storage ping of the health check.
const healthTimeout = 2 * time.Second

// Pinger is the part of storage the health check needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Index handles GET /: renders the page that draws markers on the globe.
func Index(markersURL string) http.HandlerFunc {
	data := struct {
		Title      string
		MarkersURL string
	}{
		Title:      "Globe",
		MarkersURL: markersURL,
	}

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := indexTemplate.Execute(w, data); err != nil {
			slog.Error("error rendering index", slog.String("error", err.Error()))
		}
	}
}

// Health handles GET /api/health/: 200 when storage answers a ping,
// 503 otherwise.
func Health(store Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			slog.Error("health check failed", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusServiceUnavailable,
				response.GeneralError(types.ErrStorageUnavailable))
			return
		}

		response.WriteJSON(w, http.StatusOK, response.OK(response.StatusOK))
	}
}
