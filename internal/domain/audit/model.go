package audit

import (
	"time"

	"github.com/google/uuid"
)

// Record maps to the audit_log table. Rows are append-only: the core writes
// each record exactly once and never updates or deletes it.
type Record struct {
	ID             uuid.UUID      `db:"id" json:"id"`
	ResourcePath   string         `db:"resource_path" json:"resourcePath"`
	Method         string         `db:"method" json:"method"`
	ProviderID     uuid.UUID      `db:"provider_id" json:"providerId"`
	IPAddress      *string        `db:"ip_address" json:"ipAddress,omitempty"`
	UserAgent      *string        `db:"user_agent" json:"userAgent,omitempty"`
	RequestID      *string        `db:"request_id" json:"requestId,omitempty"`
	RequestData    map[string]any `db:"request_data" json:"requestData,omitempty"`
	ResponseData   map[string]any `db:"response_data" json:"responseData,omitempty"`
	Action         *string        `db:"action" json:"action,omitempty"`
	ResourceType   *string        `db:"resource_type" json:"resourceType,omitempty"`
	ResourceID     *string        `db:"resource_id" json:"resourceId,omitempty"`
	FieldsAccessed []string       `db:"fields_accessed" json:"fieldsAccessed"`
	Timestamp      time.Time      `db:"timestamp" json:"timestamp"`
}

// CreateData is the input to Service.Record. RequestData and ResponseData
// must already be redacted by the pipeline; this package stores them verbatim.
type CreateData struct {
	ResourcePath   string
	Method         string
	ProviderID     uuid.UUID
	IPAddress      string
	UserAgent      string
	RequestID      string
	RequestData    map[string]any
	ResponseData   map[string]any
	Action         string
	ResourceType   string
	ResourceID     string
	FieldsAccessed []string
}

// QueryParams filters and paginates compliance retrieval. Date bounds are
// inclusive on both ends; ResourcePath matches as a case-insensitive
// substring; Method matches exactly.
type QueryParams struct {
	StartDate    *time.Time
	EndDate      *time.Time
	ProviderID   string
	ResourcePath string
	Method       string
	Page         int
	Limit        int
}

// Meta describes one page of query results.
type Meta struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

// QueryResult is the envelope returned by Service.Query.
type QueryResult struct {
	Data []*Record `json:"data"`
	Meta Meta      `json:"meta"`
}
