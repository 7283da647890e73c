package audit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/caretrail/caretrail/internal/platform/apperror"
)

func queryRequest(t *testing.T, repo *fakeRepo, query string) (*httptest.ResponseRecorder, error) {
	t.Helper()
	h := NewHandler(NewService(repo, zerolog.Nop()))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/audit/encounters"+query, nil)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	return rec, h.QueryAuditLogs(c)
}

func TestQueryAuditLogs_PassesFilters(t *testing.T) {
	repo := &fakeRepo{}
	_, err := queryRequest(t, repo,
		"?startDate=2026-01-01&endDate=2026-02-01T00:00:00Z&providerId=p1&resourcePath=/encounters&method=POST&page=2&limit=25")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p := repo.lastParams
	if p.StartDate == nil || !p.StartDate.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected start date: %v", p.StartDate)
	}
	if p.EndDate == nil || !p.EndDate.Equal(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected end date: %v", p.EndDate)
	}
	if p.ProviderID != "p1" || p.ResourcePath != "/encounters" || p.Method != "POST" {
		t.Errorf("unexpected filters: %+v", p)
	}
	if p.Page != 2 || p.Limit != 25 {
		t.Errorf("unexpected pagination: page=%d limit=%d", p.Page, p.Limit)
	}
}

func TestQueryAuditLogs_RejectsBadDates(t *testing.T) {
	for _, query := range []string{"?startDate=yesterday", "?endDate=01/02/2026"} {
		repo := &fakeRepo{}
		_, err := queryRequest(t, repo, query)
		if apperror.StatusOf(err) != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %v", query, err)
		}
	}
}

func TestQueryAuditLogs_WritesEnvelope(t *testing.T) {
	repo := &fakeRepo{records: []*Record{{Method: "GET"}}, total: 1}
	rec, err := queryRequest(t, repo, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body struct {
		Data []map[string]any `json:"data"`
		Meta Meta             `json:"meta"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if len(body.Data) != 1 || body.Meta.Total != 1 {
		t.Errorf("unexpected envelope: %+v", body)
	}
}
