// Record HTTP handlers.
//
// Arrests, reports, wanted persons and weapon licenses share one lifecycle:
//   - POST   /<kind>        (create, Idempotency-Key aware)
//   - GET    /<kind>        (list, paginated, ETag support)
//   - GET    /<kind>/{id}   (read)
//   - PATCH  /<kind>/{id}   (partial update of whitelisted fields)
//   - DELETE /<kind>/{id}
//
// recordHandler implements them once; the per-kind exported methods in
// routes_records.go carry the API documentation.
package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-mdt-backend/internal/citizens"
	"github.com/tbourn/go-mdt-backend/internal/domain"
	"github.com/tbourn/go-mdt-backend/internal/http/middleware"
	"github.com/tbourn/go-mdt-backend/internal/repo"
)

// recordInput is a create payload for record type T.
type recordInput[T any] interface {
	toRecord(officerID uint) T
}

// fieldDecoder converts one PATCH value to its column value.
type fieldDecoder func(json.RawMessage) (any, error)

// patchSpec maps JSON keys accepted by PATCH to their decoder. Keys are also
// the column names.
type patchSpec map[string]fieldDecoder

type recordHandler[T domain.Record, In recordInput[T]] struct {
	svc   RecordService[T]
	patch patchSpec
}

func newRecordHandler[T domain.Record, In recordInput[T]](svc RecordService[T], patch patchSpec) *recordHandler[T, In] {
	return &recordHandler[T, In]{svc: svc, patch: patch}
}

func kindOf[T domain.Record]() string {
	var zero T
	return zero.RecordKind()
}

// ListResponse wraps a page of records and pagination information.
type ListResponse[T domain.CitizenRef] struct {
	Items      []citizens.Aggregated[T] `json:"items"`
	Pagination Pagination               `json:"pagination"`
}

func (h *recordHandler[T, In]) create(c *gin.Context) {
	var in In
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	actor := principal(c)
	key, _ := middleware.GetIdempotencyKey(c)
	out, replayed, err := h.svc.CreateIdempotent(c.Request.Context(), actor,
		middleware.IdempotencyScope(c), key, in.toRecord(actor.OfficerID))
	if err != nil {
		failFor(c, err, ErrCodeCreateFailed)
		return
	}
	if replayed {
		c.Header("Idempotency-Replayed", "true")
		ok(c, http.StatusOK, out)
		return
	}
	ok(c, http.StatusCreated, out)
}

func (h *recordHandler[T, In]) list(c *gin.Context) {
	ctx := c.Request.Context()
	page, pageSize := clampPagination(c)

	f, valid := recordFilter(c)
	if !valid {
		return
	}

	// ETag pre-check (best effort).
	if count, maxTS, err := h.svc.Stats(ctx, f); err == nil {
		var ts int64
		if maxTS != nil {
			ts = maxTS.UnixNano()
		}
		etag := fmt.Sprintf(`W/"%s:c%d:o%d:s%s:p%d:%d:%d:%d"`,
			kindOf[T](), f.CitizenID, f.OfficerID, f.Status, page, pageSize, count, ts)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	items, total, err := h.svc.ListPage(ctx, f, page, pageSize)
	if err != nil {
		failFor(c, err, ErrCodeListFailed)
		return
	}
	ok(c, http.StatusOK, ListResponse[T]{Items: items, Pagination: newPagination(page, pageSize, total)})
}

func (h *recordHandler[T, In]) get(c *gin.Context) {
	id, valid := recordID(c, "id")
	if !valid {
		return
	}
	out, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		failFor(c, err, ErrCodeUpstreamFailed)
		return
	}
	ok(c, http.StatusOK, out)
}

func (h *recordHandler[T, In]) update(c *gin.Context) {
	id, valid := recordID(c, "id")
	if !valid {
		return
	}
	fields, err := h.patch.decode(c)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}
	out, err := h.svc.Update(c.Request.Context(), principal(c), id, fields)
	if err != nil {
		failFor(c, err, ErrCodeUpdateFailed)
		return
	}
	ok(c, http.StatusOK, out)
}

func (h *recordHandler[T, In]) remove(c *gin.Context) {
	id, valid := recordID(c, "id")
	if !valid {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), principal(c), id); err != nil {
		failFor(c, err, ErrCodeDeleteFailed)
		return
	}
	noContent(c)
}

// recordFilter reads the citizen_id, officer_id and status list filters.
func recordFilter(c *gin.Context) (repo.RecordFilter, bool) {
	var f repo.RecordFilter
	if s := strings.TrimSpace(c.Query("citizen_id")); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil || v <= 0 {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "citizen_id must be a positive integer")
			return f, false
		}
		f.CitizenID = v
	}
	if s := strings.TrimSpace(c.Query("officer_id")); s != "" {
		v, err := strconv.ParseUint(s, 10, 32)
		if err != nil || v == 0 {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "officer_id must be a positive integer")
			return f, false
		}
		f.OfficerID = uint(v)
	}
	f.Status = strings.TrimSpace(c.Query("status"))
	return f, true
}

// decode reads a JSON object and keeps only whitelisted keys. Unknown keys
// are rejected so typos do not silently succeed.
func (p patchSpec) decode(c *gin.Context) (map[string]any, error) {
	var raw map[string]json.RawMessage
	if err := c.ShouldBindJSON(&raw); err != nil {
		return nil, fmt.Errorf("invalid JSON body")
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("no fields to update")
	}
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]any, len(raw))
	for _, k := range keys {
		dec, ok := p[k]
		if !ok {
			return nil, fmt.Errorf("field %q cannot be updated", k)
		}
		v, err := dec(raw[k])
		if err != nil {
			return nil, fmt.Errorf("field %q: %v", k, err)
		}
		out[k] = v
	}
	return out, nil
}

func stringField(b json.RawMessage) (any, error) {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("must be a string")
	}
	return strings.TrimSpace(s), nil
}

func intField(b json.RawMessage) (any, error) {
	var n int
	if err := json.Unmarshal(b, &n); err != nil {
		return nil, fmt.Errorf("must be an integer")
	}
	return n, nil
}

// nullableTimeField accepts an RFC 3339 timestamp or null.
func nullableTimeField(b json.RawMessage) (any, error) {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		return nil, nil
	}
	var t time.Time
	if err := json.Unmarshal(b, &t); err != nil {
		return nil, fmt.Errorf("must be an RFC 3339 timestamp or null")
	}
	return t.UTC(), nil
}

var (
	arrestPatch = patchSpec{
		"charges":      stringField,
		"description":  stringField,
		"fine":         intField,
		"jail_minutes": intField,
		"status":       stringField,
		"notes":        stringField,
	}
	reportPatch = patchSpec{
		"title":   stringField,
		"content": stringField,
		"kind":    stringField,
		"status":  stringField,
	}
	wantedPatch = patchSpec{
		"reason": stringField,
		"danger": intField,
		"status": stringField,
		"notes":  stringField,
	}
	licensePatch = patchSpec{
		"status":     stringField,
		"expires_at": nullableTimeField,
		"notes":      stringField,
	}
)

//
// Create DTOs
//

// CreateArrestRequest is the JSON payload for filing an arrest.
type CreateArrestRequest struct {
	CitizenID   int64  `json:"citizen_id"   binding:"required,gt=0" example:"42"`
	Charges     string `json:"charges"      binding:"required"      example:"Speeding, resisting arrest"`
	Description string `json:"description"                          example:"Pursuit on Route 68"`
	Fine        int    `json:"fine"         binding:"gte=0"         example:"2500"`
	JailMinutes int    `json:"jail_minutes" binding:"gte=0"         example:"20"`
	Status      string `json:"status"                               example:"open"`
	Notes       string `json:"notes"`
}

func (r CreateArrestRequest) toRecord(officerID uint) domain.Arrest {
	return domain.Arrest{
		CitizenID:   r.CitizenID,
		OfficerID:   officerID,
		Charges:     strings.TrimSpace(r.Charges),
		Description: strings.TrimSpace(r.Description),
		Fine:        r.Fine,
		JailMinutes: r.JailMinutes,
		Status:      strings.TrimSpace(r.Status),
		Notes:       strings.TrimSpace(r.Notes),
	}
}

// CreateReportRequest is the JSON payload for filing a report.
type CreateReportRequest struct {
	CitizenID int64  `json:"citizen_id" binding:"required,gt=0" example:"42"`
	Title     string `json:"title"      binding:"required"      example:"Noise complaint"`
	Content   string `json:"content"    binding:"required"      example:"Neighbour reports loud music after midnight."`
	Kind      string `json:"kind"                               example:"denunciation"`
	Status    string `json:"status"                             example:"open"`
}

func (r CreateReportRequest) toRecord(officerID uint) domain.Report {
	return domain.Report{
		CitizenID: r.CitizenID,
		OfficerID: officerID,
		Title:     strings.TrimSpace(r.Title),
		Content:   strings.TrimSpace(r.Content),
		Kind:      strings.TrimSpace(r.Kind),
		Status:    strings.TrimSpace(r.Status),
	}
}

// CreateWantedRequest is the JSON payload for flagging a citizen as wanted.
type CreateWantedRequest struct {
	CitizenID int64  `json:"citizen_id" binding:"required,gt=0" example:"42"`
	Reason    string `json:"reason"     binding:"required"      example:"Armed robbery at Fleeca"`
	Danger    int    `json:"danger"                             example:"4"`
	Status    string `json:"status"                             example:"active"`
	Notes     string `json:"notes"`
}

func (r CreateWantedRequest) toRecord(officerID uint) domain.WantedPerson {
	danger := r.Danger
	if danger == 0 {
		danger = 1
	}
	return domain.WantedPerson{
		CitizenID: r.CitizenID,
		OfficerID: officerID,
		Reason:    strings.TrimSpace(r.Reason),
		Danger:    danger,
		Status:    strings.TrimSpace(r.Status),
		Notes:     strings.TrimSpace(r.Notes),
	}
}

// CreateLicenseRequest is the JSON payload for issuing a weapon license.
type CreateLicenseRequest struct {
	CitizenID int64      `json:"citizen_id" binding:"required,gt=0" example:"42"`
	Kind      string     `json:"kind"       binding:"required"      example:"pistol"`
	Status    string     `json:"status"                             example:"valid"`
	ExpiresAt *time.Time `json:"expires_at"`
	Notes     string     `json:"notes"`
}

func (r CreateLicenseRequest) toRecord(officerID uint) domain.WeaponLicense {
	l := domain.WeaponLicense{
		CitizenID: r.CitizenID,
		OfficerID: officerID,
		Kind:      strings.TrimSpace(r.Kind),
		Status:    strings.TrimSpace(r.Status),
		Notes:     strings.TrimSpace(r.Notes),
	}
	if r.ExpiresAt != nil {
		t := r.ExpiresAt.UTC()
		l.ExpiresAt = &t
	}
	return l
}
