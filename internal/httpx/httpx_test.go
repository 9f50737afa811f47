package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"rath-service/internal/apperr"
)

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

func TestErrorStatusMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"validation", apperr.Validation("name is required"), http.StatusBadRequest, "name is required"},
		{"not found", apperr.New(apperr.KindNotFound, "trip_not_found", "Trip not found"), http.StatusNotFound, "Trip not found"},
		{"unauthorized", apperr.New(apperr.KindUnauthorized, "x", "Account Under Review"), http.StatusForbidden, "Account Under Review"},
		{"conflict", apperr.New(apperr.KindConflict, "x", "taken"), http.StatusConflict, "taken"},
		{"internal hides detail", errors.New("pq: connection reset"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			Error(rec, httptest.NewRequest(http.MethodGet, "/x", nil), tt.err)

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			body := decodeBody(t, rec)
			if body["status"] != "error" {
				t.Errorf("status field = %v, want error", body["status"])
			}
			if body["message"] != tt.msg {
				t.Errorf("message = %v, want %q", body["message"], tt.msg)
			}
		})
	}
}

func TestBindValidation(t *testing.T) {
	t.Parallel()

	type req struct {
		Name string `json:"name" validate:"required"`
	}

	r := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{"name":""}`))
	rec := httptest.NewRecorder()
	var dst req
	err := Bind(rec, r, &dst)
	if err == nil {
		t.Fatal("Bind() error = nil, want validation error")
	}
	Error(rec, r, err)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if details, ok := decodeBody(t, rec)["details"].([]any); !ok || len(details) != 1 {
		t.Errorf("details = %v, want one entry", details)
	}
}

func TestDecodeRejectsBadInput(t *testing.T) {
	t.Parallel()

	for _, body := range []string{"", "{", `{"seats":"two"}`} {
		var dst struct {
			Seats int `json:"seats"`
		}
		r := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(body))
		err := Decode(httptest.NewRecorder(), r, &dst)
		if apperr.KindOf(err) != apperr.KindValidation {
			t.Errorf("Decode(%q) kind = %v, want validation", body, apperr.KindOf(err))
		}
	}
}

func TestSuccessEnvelope(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	Success(rec, Envelope{"trip_id": "t1"})
	body := decodeBody(t, rec)
	if body["status"] != "success" || body["trip_id"] != "t1" {
		t.Errorf("body = %v", body)
	}
}
