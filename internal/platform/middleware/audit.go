package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"regexp"
	"sort"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/caretrail/caretrail/internal/domain/audit"
	"github.com/caretrail/caretrail/internal/platform/apperror"
	"github.com/caretrail/caretrail/internal/platform/auth"
	"github.com/caretrail/caretrail/internal/platform/redact"
)

// maxCapturedBody bounds how much of a request or response body is retained
// for the audit record.
const maxCapturedBody = 64 * 1024

// skipPrefixes are never audited.
var skipPrefixes = []string{"/docs", "/health"}

// Audit returns middleware that records every request touching encounter
// data. It captures the request before the handler runs and the response
// after, sanitizes both, and hands the entry to the audit service. The
// handler's outcome is returned unchanged: auditing observes the request, it
// never alters it, and it runs on failures as well as successes.
func Audit(svc *audit.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			path := req.URL.Path

			if !isAuditablePath(path) {
				return next(c)
			}

			reqBody := captureRequestBody(c)
			capture := newResponseCapture(c)

			err := next(c)

			p := auth.ProviderFromEcho(c)
			if p == nil {
				return err
			}

			rid, _ := c.Get("request_id").(string)
			target := classify(path, req.Method)
			data := audit.CreateData{
				ResourcePath: path,
				Method:       req.Method,
				ProviderID:   p.ID,
				IPAddress:    c.RealIP(),
				UserAgent:    req.UserAgent(),
				RequestID:    rid,
				RequestData:  sanitizeRequestBody(reqBody),
				Action:       target.action,
				ResourceType: target.resourceType,
				ResourceID:   target.resourceID,
			}

			// On failure the response has not been written yet; the error
			// itself carries the status the client will see.
			status := c.Response().Status
			if err != nil {
				if herr, ok := err.(*echo.HTTPError); ok {
					status = herr.Code
				} else {
					status = apperror.StatusOf(err)
				}
			}
			data.ResponseData = map[string]any{"statusCode": status}
			data.FieldsAccessed = []string{}
			if err == nil {
				respBody := parseJSONObject(capture.buf.Bytes())
				data.ResponseData["recordCount"] = recordCount(respBody)
				if target.resourceType != "" {
					data.FieldsAccessed = fieldsAccessed(respBody, target.collection)
				}
			}

			// The write must survive a request that was cancelled or
			// timed out; its failure is swallowed inside the service.
			svc.Record(context.WithoutCancel(req.Context()), data)

			return err
		}
	}
}

func isAuditablePath(path string) bool {
	for _, prefix := range skipPrefixes {
		if strings.HasPrefix(path, prefix) {
			return false
		}
	}
	return strings.Contains(path, "/encounters")
}

// auditTarget is the compliance classification of one request.
type auditTarget struct {
	action       string
	resourceType string
	resourceID   string
	collection   bool
}

var encounterIDPattern = regexp.MustCompile(`/encounters/([a-f0-9-]+)$`)

// classify maps a request to the resource/action vocabulary compliance
// reports filter on. Single-encounter reads record READ, collection reads
// record read, and mutations record the verb itself; paths that name neither
// form get a lowercased verb and no resource type.
func classify(path, method string) auditTarget {
	if m := encounterIDPattern.FindStringSubmatch(path); m != nil {
		action := method
		if method == http.MethodGet {
			action = "READ"
		}
		return auditTarget{action: action, resourceType: "ENCOUNTER", resourceID: m[1]}
	}
	if strings.HasSuffix(path, "/encounters") {
		action := method
		if method == http.MethodGet {
			action = "read"
		}
		return auditTarget{action: action, resourceType: "ENCOUNTER", collection: true}
	}
	return auditTarget{action: strings.ToLower(method)}
}

// captureRequestBody reads and restores the request body so the handler can
// still consume it.
func captureRequestBody(c echo.Context) []byte {
	req := c.Request()
	if req.Body == nil || req.ContentLength == 0 {
		return nil
	}
	body, err := io.ReadAll(io.LimitReader(req.Body, maxCapturedBody))
	req.Body.Close()
	if err != nil {
		req.Body = io.NopCloser(bytes.NewReader(nil))
		return nil
	}
	req.Body = io.NopCloser(bytes.NewReader(body))
	return body
}

// sanitizeRequestBody turns a JSON request body into its audit-safe form.
// Clinical payloads keep only their key structure; every other protected
// field collapses to the redaction marker.
func sanitizeRequestBody(body []byte) map[string]any {
	m := parseJSONObject(body)
	if m == nil {
		return nil
	}
	if cd, ok := m["clinicalData"]; ok {
		if obj, ok := cd.(map[string]any); ok {
			keys := make([]string, 0, len(obj))
			for k := range obj {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			m["clinicalData"] = map[string]any{
				"structure": keys,
				"content":   redact.Marker,
			}
		} else {
			// Clinical content that is not an object has no structure
			// worth keeping; redact it outright.
			m["clinicalData"] = redact.Marker
		}
	}
	return redact.Map(m)
}

// recordCount derives how many records a response touched: the list total
// when present, the page length as a fallback, one for a single entity, and
// zero otherwise.
func recordCount(body map[string]any) int {
	if body == nil {
		return 0
	}
	if meta, ok := body["meta"].(map[string]any); ok {
		if total, ok := meta["total"].(float64); ok {
			return int(total)
		}
	}
	if encounters, ok := body["encounters"].([]any); ok {
		return len(encounters)
	}
	if _, ok := body["id"]; ok {
		return 1
	}
	return 0
}

// fieldsAccessed lists which fields the response disclosed: the keys of one
// list element for collections, the top-level keys for single entities.
// Keys prefixed with an underscore are internal annotations, not data.
func fieldsAccessed(body map[string]any, collection bool) []string {
	if body == nil {
		return []string{}
	}
	if collection {
		encounters, ok := body["encounters"].([]any)
		if !ok || len(encounters) == 0 {
			return []string{}
		}
		first, ok := encounters[0].(map[string]any)
		if !ok {
			return []string{}
		}
		return visibleKeys(first)
	}
	return visibleKeys(body)
}

func visibleKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		if strings.HasPrefix(k, "_") {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func parseJSONObject(b []byte) map[string]any {
	if len(b) == 0 {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil
	}
	return m
}

// responseCapture tees the response body so the audit record can describe
// what was returned without interfering with the write to the client.
type responseCapture struct {
	http.ResponseWriter
	buf bytes.Buffer
}

func newResponseCapture(c echo.Context) *responseCapture {
	rc := &responseCapture{ResponseWriter: c.Response().Writer}
	c.Response().Writer = rc
	return rc
}

func (rc *responseCapture) Write(b []byte) (int, error) {
	if rc.buf.Len() < maxCapturedBody {
		rc.buf.Write(b[:min(len(b), maxCapturedBody-rc.buf.Len())])
	}
	return rc.ResponseWriter.Write(b)
}
