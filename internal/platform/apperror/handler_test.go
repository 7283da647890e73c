package apperror

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func newTestContext(t *testing.T) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/encounters", nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) ClientResponse {
	t.Helper()
	var resp ClientResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response was not the error envelope: %v", err)
	}
	return resp
}

func TestHTTPErrorHandler_AppError(t *testing.T) {
	c, rec := newTestContext(t)
	handler := HTTPErrorHandler(zerolog.Nop())

	handler(NotFound("Encounter not found", ""), c)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	resp := decodeEnvelope(t, rec)
	if resp.Error.Message != "Encounter not found" {
		t.Errorf("unexpected message: %q", resp.Error.Message)
	}
	if resp.Error.Timestamp == "" {
		t.Error("expected timestamp in envelope")
	}
}

func TestHTTPErrorHandler_InternalDetailNeverLeaks(t *testing.T) {
	c, rec := newTestContext(t)
	handler := HTTPErrorHandler(zerolog.Nop())

	handler(Internal("An unexpected error occurred", "pgx: connection refused to 10.0.0.5"), c)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
	body := rec.Body.String()
	if strings.Contains(body, "pgx") || strings.Contains(body, "10.0.0.5") {
		t.Errorf("internal detail leaked into response: %s", body)
	}
}

func TestHTTPErrorHandler_EchoHTTPError(t *testing.T) {
	c, rec := newTestContext(t)
	handler := HTTPErrorHandler(zerolog.Nop())

	handler(echo.NewHTTPError(http.StatusNotFound, "Not Found"), c)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	resp := decodeEnvelope(t, rec)
	if resp.Error.Message != "Not Found" {
		t.Errorf("unexpected message: %q", resp.Error.Message)
	}
}

func TestHTTPErrorHandler_UnknownError(t *testing.T) {
	c, rec := newTestContext(t)
	handler := HTTPErrorHandler(zerolog.Nop())

	handler(echo.ErrInternalServerError, c)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}

func TestHTTPErrorHandler_CommittedResponseUntouched(t *testing.T) {
	c, rec := newTestContext(t)
	if err := c.String(http.StatusOK, "already written"); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	handler := HTTPErrorHandler(zerolog.Nop())
	handler(Internal("late failure", ""), c)

	if rec.Code != http.StatusOK {
		t.Errorf("expected committed status preserved, got %d", rec.Code)
	}
	if rec.Body.String() != "already written" {
		t.Errorf("expected body preserved, got %q", rec.Body.String())
	}
}
