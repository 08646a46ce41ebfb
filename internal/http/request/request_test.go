package request

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aanand-mishra/globe-markers/internal/types"
)

func newRequest(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
}

func TestDecode(t *testing.T) {
	var req types.AddMarkerRequest
	if err := Decode(newRequest(`{"lat": 0, "lon": 0}`+"\n"), &req); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if req.Lat == nil || *req.Lat != 0 || req.Lon == nil || *req.Lon != 0 {
		t.Errorf("Decode() = %+v, want zero coordinates present", req)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		wantValidation bool
		wantText       string
	}{
		{"empty", ``, false, "request body is empty"},
		{"not json", `lat=1`, false, "malformed request"},
		{"trailing garbage", `{"lat": 1, "lon": 2} garbage`, false, "unexpected data after JSON body"},
		{"two objects", `{"lat": 1, "lon": 2}{"lat": 3, "lon": 4}`, false, "unexpected data after JSON body"},
		{"string number", `{"lat": "10.5", "lon": 1}`, false, "malformed request"},
		{"missing lon", `{"lat": 1}`, true, "lon"},
		{"long name", `{"lat": 1, "lon": 1, "name": "` + strings.Repeat("n", types.MaxMarkerNameLength+1) + `"}`, true, "name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req types.AddMarkerRequest
			err := Decode(newRequest(tt.body), &req)
			if !errors.Is(err, types.ErrMalformedRequest) {
				t.Fatalf("Decode() error = %v, want ErrMalformedRequest", err)
			}

			var vErr *ValidationError
			if errors.As(err, &vErr) != tt.wantValidation {
				t.Errorf("Decode() error %T, want validation error = %v", err, tt.wantValidation)
			}

			rec := httptest.NewRecorder()
			WriteError(rec, err)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("WriteError() status = %d, want 400", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tt.wantText) {
				t.Errorf("WriteError() body = %s, want it to mention %q", rec.Body.String(), tt.wantText)
			}
		})
	}
}
