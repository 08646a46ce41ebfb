package router

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/aanand-mishra/globe-markers/internal/auth"
	"github.com/aanand-mishra/globe-markers/internal/http/handlers/account"
	"github.com/aanand-mishra/globe-markers/internal/http/middleware"
	"github.com/aanand-mishra/globe-markers/internal/storage"
	"github.com/aanand-mishra/globe-markers/internal/storage/sqlite"
	"github.com/aanand-mishra/globe-markers/internal/types"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestServer(t *testing.T, requests int) *httptest.Server {
	t.Helper()

	db, err := sqlite.New(filepath.Join(t.TempDir(), "markers.db"))
	if err != nil {
		t.Fatalf("Failed to initialize test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenManager(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("NewTokenManager() error = %v", err)
	}

	srv := httptest.NewServer(New(Options{
		Store:             storage.Instrument(db),
		Tokens:            tokens,
		Logger:            slog.New(slog.NewTextHandler(io.Discard, nil)),
		RateLimitRequests: requests,
		RateLimitWindow:   time.Minute,
	}))
	t.Cleanup(srv.Close)
	return srv
}

// call performs a request and returns the status and raw body.
func call(t *testing.T, srv *httptest.Server, method, path, token, body string) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, srv.URL+path, reader)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, raw
}

func signUp(t *testing.T, srv *httptest.Server, username string) string {
	t.Helper()

	creds := `{"username": "` + username + `", "password": "correct horse"}`
	if code, body := call(t, srv, http.MethodPost, "/api/register/", "", creds); code != http.StatusCreated {
		t.Fatalf("register %s: status %d (%s)", username, code, body)
	}

	code, body := call(t, srv, http.MethodPost, "/api/login/", "", creds)
	if code != http.StatusOK {
		t.Fatalf("login %s: status %d (%s)", username, code, body)
	}
	var resp account.LoginResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	return resp.Token
}

func listMarkers(t *testing.T, srv *httptest.Server) []types.MarkerPoint {
	t.Helper()

	code, body := call(t, srv, http.MethodGet, MarkersPath, "", "")
	if code != http.StatusOK {
		t.Fatalf("list: status %d (%s)", code, body)
	}
	var points []types.MarkerPoint
	if err := json.Unmarshal(body, &points); err != nil {
		t.Fatalf("decode list %s: %v", body, err)
	}
	return points
}

func TestMarkerLifecycle(t *testing.T) {
	srv := newTestServer(t, 1000)

	if got := listMarkers(t, srv); len(got) != 0 {
		t.Fatalf("initial list = %+v, want empty", got)
	}

	alice := signUp(t, srv, "alice")
	bob := signUp(t, srv, "bob")

	code, body := call(t, srv, http.MethodPost, "/api/add-marker/", alice, `{"lat": 10.5, "lon": -20.25, "name": "Home"}`)
	if code != http.StatusOK || !bytes.Contains(body, []byte(`"status":"ok"`)) {
		t.Fatalf("add: status %d (%s)", code, body)
	}

	got := listMarkers(t, srv)
	if len(got) != 1 || got[0].Latitude != 10.5 || got[0].Longitude != -20.25 {
		t.Fatalf("list after add = %+v, want one point at (10.5, -20.25)", got)
	}

	t.Run("Other User Cannot Delete", func(t *testing.T) {
		code, body := call(t, srv, http.MethodPost, "/api/delete-marker/1/", bob, "")
		if code != http.StatusOK || !bytes.Contains(body, []byte(`"status":"deleted"`)) {
			t.Fatalf("delete by bob: status %d (%s)", code, body)
		}
		if got := listMarkers(t, srv); len(got) != 1 {
			t.Errorf("list after bob's delete = %+v, want marker kept", got)
		}
	})

	t.Run("Unknown Id Is A No-Op", func(t *testing.T) {
		code, _ := call(t, srv, http.MethodDelete, "/api/delete-marker/999/", alice, "")
		if code != http.StatusOK {
			t.Errorf("delete unknown: status %d, want 200", code)
		}
	})

	t.Run("Malformed Id", func(t *testing.T) {
		code, _ := call(t, srv, http.MethodPost, "/api/delete-marker/abc/", alice, "")
		if code != http.StatusBadRequest {
			t.Errorf("delete abc: status %d, want 400", code)
		}
	})

	t.Run("Owner Deletes", func(t *testing.T) {
		code, _ := call(t, srv, http.MethodDelete, "/api/delete-marker/1/", alice, "")
		if code != http.StatusOK {
			t.Fatalf("delete by alice: status %d", code)
		}
		if got := listMarkers(t, srv); len(got) != 0 {
			t.Errorf("list after alice's delete = %+v, want empty", got)
		}
	})
}

func TestUnauthenticatedMutationsRejected(t *testing.T) {
	srv := newTestServer(t, 1000)

	tests := []struct {
		method, path, body string
	}{
		{http.MethodPost, "/api/add-marker/", `{"lat": 1, "lon": 2}`},
		{http.MethodPost, "/api/delete-marker/1/", ""},
		{http.MethodDelete, "/api/delete-marker/1/", ""},
		{http.MethodDelete, "/api/account/", ""},
	}

	for _, tt := range tests {
		code, body := call(t, srv, tt.method, tt.path, "", tt.body)
		if code != http.StatusUnauthorized {
			t.Errorf("%s %s: status %d, want 401", tt.method, tt.path, code)
		}
		if !bytes.Contains(body, []byte(types.ErrUnauthorized.Error())) {
			t.Errorf("%s %s: body %s", tt.method, tt.path, body)
		}
	}

	if got := listMarkers(t, srv); len(got) != 0 {
		t.Errorf("list = %+v, want nothing stored", got)
	}
}

func TestAccountDeletionRemovesMarkers(t *testing.T) {
	srv := newTestServer(t, 1000)

	alice := signUp(t, srv, "alice")
	bob := signUp(t, srv, "bob")

	for i, token := range []string{alice, alice, bob} {
		payload := `{"lat": ` + strconv.Itoa(i) + `, "lon": 0}`
		if code, body := call(t, srv, http.MethodPost, "/api/add-marker/", token, payload); code != http.StatusOK {
			t.Fatalf("add %d: status %d (%s)", i, code, body)
		}
	}

	if code, body := call(t, srv, http.MethodDelete, "/api/account/", alice, ""); code != http.StatusOK {
		t.Fatalf("delete account: status %d (%s)", code, body)
	}

	got := listMarkers(t, srv)
	if len(got) != 1 || got[0].Latitude != 2 {
		t.Errorf("list = %+v, want only bob's marker", got)
	}

	// The token outlives the account but no longer authenticates.
	if code, _ := call(t, srv, http.MethodPost, "/api/add-marker/", alice, `{"lat": 1, "lon": 1}`); code != http.StatusUnauthorized {
		t.Errorf("add with deleted account: status %d, want 401", code)
	}
}

func TestOperationalEndpoints(t *testing.T) {
	srv := newTestServer(t, 1000)

	t.Run("Health", func(t *testing.T) {
		code, body := call(t, srv, http.MethodGet, "/api/health/", "", "")
		if code != http.StatusOK || !bytes.Contains(body, []byte(`"status":"ok"`)) {
			t.Errorf("health: status %d (%s)", code, body)
		}
	})

	t.Run("Index", func(t *testing.T) {
		code, body := call(t, srv, http.MethodGet, "/", "", "")
		if code != http.StatusOK || !bytes.Contains(body, []byte(MarkersPath)) {
			t.Errorf("index: status %d, body missing %s", code, MarkersPath)
		}
	})

	t.Run("Metrics", func(t *testing.T) {
		listMarkers(t, srv)
		code, body := call(t, srv, http.MethodGet, "/metrics", "", "")
		if code != http.StatusOK {
			t.Fatalf("metrics: status %d", code)
		}
		if !bytes.Contains(body, []byte("globe_api_requests_total")) {
			t.Error("metrics output missing globe_api_requests_total")
		}
	})

	t.Run("Request Id Header", func(t *testing.T) {
		resp, err := srv.Client().Get(srv.URL + MarkersPath)
		if err != nil {
			t.Fatalf("GET: %v", err)
		}
		resp.Body.Close()
		if resp.Header.Get(middleware.RequestIDHeader) == "" {
			t.Errorf("%s header missing", middleware.RequestIDHeader)
		}
	})

	t.Run("Not Found Is JSON", func(t *testing.T) {
		code, body := call(t, srv, http.MethodGet, "/api/nope/", "", "")
		if code != http.StatusNotFound || !bytes.Contains(body, []byte(`"status":"error"`)) {
			t.Errorf("not found: status %d (%s)", code, body)
		}
	})

	t.Run("Wrong Method", func(t *testing.T) {
		code, _ := call(t, srv, http.MethodPost, MarkersPath, "", "")
		if code != http.StatusMethodNotAllowed {
			t.Errorf("POST markers: status %d, want 405", code)
		}
	})
}

func TestRateLimit(t *testing.T) {
	srv := newTestServer(t, 2)

	creds := `{"username": "alice", "password": "wrong password"}`
	var last int
	for i := 0; i < 3; i++ {
		last, _ = call(t, srv, http.MethodPost, "/api/login/", "", creds)
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("third login status = %d, want 429", last)
	}

	// Reads are not limited.
	for i := 0; i < 5; i++ {
		listMarkers(t, srv)
	}
}

func TestRateLimitIgnoresForwardedHeaders(t *testing.T) {
	srv := newTestServer(t, 2)

	creds := `{"username": "alice", "password": "wrong password"}`
	var codes []int
	for i := 0; i < 4; i++ {
		req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/login/", strings.NewReader(creds))
		if err != nil {
			t.Fatalf("NewRequest() error = %v", err)
		}
		req.Header.Set("X-Forwarded-For", "198.51.100."+strconv.Itoa(i+1))
		req.Header.Set("X-Real-IP", "198.51.100."+strconv.Itoa(i+1))

		resp, err := srv.Client().Do(req)
		if err != nil {
			t.Fatalf("POST /api/login/: %v", err)
		}
		resp.Body.Close()
		codes = append(codes, resp.StatusCode)
	}

	if codes[2] != http.StatusTooManyRequests || codes[3] != http.StatusTooManyRequests {
		t.Errorf("login statuses = %v, want 429 once the limit of 2 is spent", codes)
	}
}
