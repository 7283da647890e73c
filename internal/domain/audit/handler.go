package audit

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/caretrail/caretrail/internal/platform/apperror"
	"github.com/caretrail/caretrail/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/audit/encounters", h.QueryAuditLogs)
}

// QueryAuditLogs serves compliance retrieval with optional filters and
// pagination.
func (h *Handler) QueryAuditLogs(c echo.Context) error {
	var params QueryParams

	start, err := parseDate(c.QueryParam("startDate"))
	if err != nil {
		return apperror.BadRequest("startDate must be a valid ISO date", err.Error())
	}
	params.StartDate = start

	end, err := parseDate(c.QueryParam("endDate"))
	if err != nil {
		return apperror.BadRequest("endDate must be a valid ISO date", err.Error())
	}
	params.EndDate = end

	params.ProviderID = c.QueryParam("providerId")
	params.ResourcePath = c.QueryParam("resourcePath")
	params.Method = c.QueryParam("method")
	page := pagination.FromContext(c)
	params.Page = page.Page
	params.Limit = page.Limit

	result, err := h.svc.Query(c.Request().Context(), params)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// parseDate accepts RFC 3339 timestamps or bare dates.
func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

