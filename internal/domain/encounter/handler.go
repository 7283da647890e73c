package encounter

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/caretrail/caretrail/internal/platform/apperror"
	"github.com/caretrail/caretrail/internal/platform/auth"
	"github.com/caretrail/caretrail/pkg/pagination"
)

// HeaderIdempotencyKey is the request header carrying a client idempotency key.
const HeaderIdempotencyKey = "Idempotency-Key"

const maxIdempotencyKeyLen = 255

// Handler exposes the encounter HTTP surface.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the encounter routes on an authenticated group.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/encounters", h.CreateEncounter)
	api.GET("/encounters", h.ListEncounters)
	api.GET("/encounters/:id", h.GetEncounter)
}

type createRequest struct {
	PatientID     string       `json:"patientId"`
	EncounterDate string       `json:"encounterDate"`
	EncounterType string       `json:"encounterType"`
	ClinicalData  ClinicalData `json:"clinicalData"`
}

// CreateEncounter handles POST /encounters. Repeating a request with the same
// Idempotency-Key returns the originally created encounter instead of
// creating a duplicate; a retried create is indistinguishable from the first,
// 201 included.
func (h *Handler) CreateEncounter(c echo.Context) error {
	p := auth.ProviderFromEcho(c)

	idempotencyKey := c.Request().Header.Get(HeaderIdempotencyKey)
	if len(idempotencyKey) > maxIdempotencyKeyLen {
		return apperror.BadRequest("Idempotency-Key must be between 1 and 255 characters", "")
	}

	var req createRequest
	if err := c.Bind(&req); err != nil {
		return apperror.BadRequest("Invalid request body", err.Error())
	}
	input, err := req.validate()
	if err != nil {
		return err
	}

	enc, _, err := h.svc.Create(c.Request().Context(), p.ID, idempotencyKey, input)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, enc)
}

func (r createRequest) validate() (CreateInput, error) {
	var input CreateInput

	if r.PatientID == "" {
		return input, apperror.BadRequest("patientId is required", "")
	}
	patientID, err := uuid.Parse(r.PatientID)
	if err != nil {
		return input, apperror.BadRequest("patientId must be a valid UUID", err.Error())
	}

	if r.EncounterDate == "" {
		return input, apperror.BadRequest("encounterDate is required", "")
	}
	date, err := time.Parse(time.RFC3339, r.EncounterDate)
	if err != nil {
		return input, apperror.BadRequest("encounterDate must be an RFC 3339 timestamp", err.Error())
	}

	if r.EncounterType == "" {
		return input, apperror.BadRequest("encounterType is required", "")
	}
	if !IsValidType(r.EncounterType) {
		return input, apperror.BadRequest(
			"encounterType must be one of "+strings.Join(ValidTypes(), ", "), "")
	}

	input.PatientID = patientID
	input.EncounterDate = date
	input.EncounterType = r.EncounterType
	input.ClinicalData = r.ClinicalData
	return input, nil
}

// ListEncounters handles GET /encounters. Results are always scoped to the
// calling provider.
func (h *Handler) ListEncounters(c echo.Context) error {
	p := auth.ProviderFromEcho(c)

	page := pagination.FromContext(c)
	filters := ListFilters{
		PatientID:     c.QueryParam("patientId"),
		EncounterType: c.QueryParam("encounterType"),
		Page:          page.Page,
		Limit:         page.Limit,
	}

	var err error
	if filters.StartDate, err = dateParam(c, "startDate"); err != nil {
		return err
	}
	if filters.EndDate, err = dateParam(c, "endDate"); err != nil {
		return err
	}
	if filters.EncounterType != "" && !IsValidType(filters.EncounterType) {
		return apperror.BadRequest(
			"encounterType must be one of "+strings.Join(ValidTypes(), ", "), "")
	}

	result, err := h.svc.List(c.Request().Context(), p.ID, filters)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// GetEncounter handles GET /encounters/:id.
func (h *Handler) GetEncounter(c echo.Context) error {
	p := auth.ProviderFromEcho(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.BadRequest("Encounter ID must be a valid UUID", err.Error())
	}

	enc, err := h.svc.GetByID(c.Request().Context(), p.ID, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, enc)
}

func dateParam(c echo.Context, name string) (*time.Time, error) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return &t, nil
		}
	}
	return nil, apperror.BadRequest(name+" must be an RFC 3339 timestamp or YYYY-MM-DD date", "")
}
