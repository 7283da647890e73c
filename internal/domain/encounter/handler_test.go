package encounter

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/caretrail/caretrail/internal/platform/apperror"
	"github.com/caretrail/caretrail/internal/platform/auth"
	"github.com/caretrail/caretrail/internal/platform/cache"
)

type handlerFixture struct {
	handler    *Handler
	repo       *fakeRepo
	providerID uuid.UUID
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	repo := newFakeRepo()
	svc := NewService(repo, cache.New(cache.Config{Capacity: 100}), zerolog.Nop())
	return &handlerFixture{
		handler:    NewHandler(svc),
		repo:       repo,
		providerID: uuid.New(),
	}
}

func (f *handlerFixture) request(method, target, body string, header http.Header) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	c.Set("provider", &auth.AuthenticatedProvider{ID: f.providerID, Name: "Dr. Osei"})
	return c, rec
}

func (f *handlerFixture) createBody(t *testing.T) string {
	t.Helper()
	patientID := uuid.New()
	f.repo.patients[patientID] = true
	body, err := json.Marshal(map[string]any{
		"patientId":     patientID.String(),
		"encounterDate": time.Now().Add(-time.Hour).Format(time.RFC3339),
		"encounterType": TypeInitialAssessment,
		"clinicalData":  map[string]string{"notes": "initial visit"},
	})
	if err != nil {
		t.Fatal(err)
	}
	return string(body)
}

func TestCreateEncounter_Returns201(t *testing.T) {
	f := newHandlerFixture(t)
	c, rec := f.request(http.MethodPost, "/api/v1/encounters", f.createBody(t), nil)

	if err := f.handler.CreateEncounter(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}

	var enc Encounter
	if err := json.Unmarshal(rec.Body.Bytes(), &enc); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if enc.ProviderID != f.providerID {
		t.Errorf("wrong provider attribution: %s", enc.ProviderID)
	}
}

func TestCreateEncounter_ReplayRepeats201(t *testing.T) {
	f := newHandlerFixture(t)
	body := f.createBody(t)
	header := http.Header{HeaderIdempotencyKey: []string{"retry-key"}}

	c, rec := f.request(http.MethodPost, "/api/v1/encounters", body, header)
	if err := f.handler.CreateEncounter(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 on first create, got %d", rec.Code)
	}
	var first Encounter
	if err := json.Unmarshal(rec.Body.Bytes(), &first); err != nil {
		t.Fatal(err)
	}

	// A retried create is indistinguishable from the first attempt.
	c, rec = f.request(http.MethodPost, "/api/v1/encounters", body, header)
	if err := f.handler.CreateEncounter(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201 on replay, got %d", rec.Code)
	}
	var second Encounter
	if err := json.Unmarshal(rec.Body.Bytes(), &second); err != nil {
		t.Fatal(err)
	}
	if second.ID != first.ID {
		t.Errorf("replay returned a different encounter: %s vs %s", second.ID, first.ID)
	}
	if len(f.repo.encounters) != 1 {
		t.Errorf("expected one persisted encounter, got %d", len(f.repo.encounters))
	}
}

func TestCreateEncounter_OversizedIdempotencyKey(t *testing.T) {
	f := newHandlerFixture(t)
	header := http.Header{HeaderIdempotencyKey: []string{strings.Repeat("k", 256)}}

	c, _ := f.request(http.MethodPost, "/api/v1/encounters", f.createBody(t), header)
	err := f.handler.CreateEncounter(c)
	if apperror.StatusOf(err) != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestCreateEncounter_Validation(t *testing.T) {
	valid := map[string]any{
		"patientId":     uuid.NewString(),
		"encounterDate": time.Now().Add(-time.Hour).Format(time.RFC3339),
		"encounterType": TypeFollowUp,
	}

	cases := []struct {
		name     string
		mutate   func(m map[string]any)
		contains string
	}{
		{"missing patientId", func(m map[string]any) { delete(m, "patientId") }, "patientId is required"},
		{"bad patientId", func(m map[string]any) { m["patientId"] = "abc" }, "valid UUID"},
		{"missing date", func(m map[string]any) { delete(m, "encounterDate") }, "encounterDate is required"},
		{"bad date", func(m map[string]any) { m["encounterDate"] = "last tuesday" }, "RFC 3339"},
		{"missing type", func(m map[string]any) { delete(m, "encounterType") }, "encounterType is required"},
		{"bad type", func(m map[string]any) { m["encounterType"] = "WALK_IN" }, "must be one of"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newHandlerFixture(t)
			m := make(map[string]any, len(valid))
			for k, v := range valid {
				m[k] = v
			}
			tc.mutate(m)
			body, _ := json.Marshal(m)

			c, _ := f.request(http.MethodPost, "/api/v1/encounters", string(body), nil)
			err := f.handler.CreateEncounter(c)
			if apperror.StatusOf(err) != http.StatusBadRequest {
				t.Fatalf("expected 400, got %v", err)
			}
			appErr := apperror.From(err)
			if !strings.Contains(appErr.Message, tc.contains) {
				t.Errorf("message %q does not mention %q", appErr.Message, tc.contains)
			}
		})
	}
}

func TestCreateEncounter_MalformedJSON(t *testing.T) {
	f := newHandlerFixture(t)
	c, _ := f.request(http.MethodPost, "/api/v1/encounters", "{not json", nil)

	err := f.handler.CreateEncounter(c)
	if apperror.StatusOf(err) != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestGetEncounter_InvalidID(t *testing.T) {
	f := newHandlerFixture(t)
	c, _ := f.request(http.MethodGet, "/api/v1/encounters/not-a-uuid", "", nil)
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")

	err := f.handler.GetEncounter(c)
	if apperror.StatusOf(err) != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestGetEncounter_ReturnsOwnRecord(t *testing.T) {
	f := newHandlerFixture(t)

	c, rec := f.request(http.MethodPost, "/api/v1/encounters", f.createBody(t), nil)
	if err := f.handler.CreateEncounter(c); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	var created Encounter
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}

	c, rec = f.request(http.MethodGet, "/api/v1/encounters/"+created.ID.String(), "", nil)
	c.SetParamNames("id")
	c.SetParamValues(created.ID.String())
	if err := f.handler.GetEncounter(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestGetEncounter_OtherProvidersRecord(t *testing.T) {
	f := newHandlerFixture(t)

	c, rec := f.request(http.MethodPost, "/api/v1/encounters", f.createBody(t), nil)
	if err := f.handler.CreateEncounter(c); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	var created Encounter
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}

	f.providerID = uuid.New()
	c, _ = f.request(http.MethodGet, "/api/v1/encounters/"+created.ID.String(), "", nil)
	c.SetParamNames("id")
	c.SetParamValues(created.ID.String())

	err := f.handler.GetEncounter(c)
	if apperror.StatusOf(err) != http.StatusUnauthorized {
		t.Errorf("expected 401, got %v", err)
	}
}

func TestListEncounters_Defaults(t *testing.T) {
	f := newHandlerFixture(t)
	c, rec := f.request(http.MethodGet, "/api/v1/encounters", "", nil)

	if err := f.handler.ListEncounters(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var result ListResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if result.Meta.Page != 1 || result.Meta.Limit != 50 {
		t.Errorf("unexpected pagination defaults: %+v", result.Meta)
	}
	if f.repo.lastFilters.ProviderID != f.providerID.String() {
		t.Errorf("list not scoped to caller: %s", f.repo.lastFilters.ProviderID)
	}
}

func TestListEncounters_FilterParsing(t *testing.T) {
	f := newHandlerFixture(t)
	c, _ := f.request(http.MethodGet,
		"/api/v1/encounters?patientId=p1&encounterType=TREATMENT_SESSION&startDate=2026-01-01&endDate=2026-03-01T00:00:00Z", "", nil)

	if err := f.handler.ListEncounters(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := f.repo.lastFilters
	if got.PatientID != "p1" || got.EncounterType != TypeTreatmentSession {
		t.Errorf("unexpected filters: %+v", got)
	}
	if got.StartDate == nil || !got.StartDate.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected start date: %v", got.StartDate)
	}
	if got.EndDate == nil || !got.EndDate.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected end date: %v", got.EndDate)
	}
}

func TestListEncounters_RejectsBadInput(t *testing.T) {
	cases := []struct {
		name  string
		query string
	}{
		{"bad startDate", "?startDate=not-a-date"},
		{"bad endDate", "?endDate=13/13/2026"},
		{"bad encounterType", "?encounterType=WALK_IN"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newHandlerFixture(t)
			c, _ := f.request(http.MethodGet, "/api/v1/encounters"+tc.query, "", nil)

			err := f.handler.ListEncounters(c)
			if apperror.StatusOf(err) != http.StatusBadRequest {
				t.Errorf("expected 400, got %v", err)
			}
		})
	}
}

func TestListEncounters_InvertedDateRange(t *testing.T) {
	f := newHandlerFixture(t)
	c, _ := f.request(http.MethodGet,
		"/api/v1/encounters?startDate=2026-06-01&endDate=2026-01-01", "", nil)

	err := f.handler.ListEncounters(c)
	if apperror.StatusOf(err) != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}
