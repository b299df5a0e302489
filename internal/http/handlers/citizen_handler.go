// Citizen HTTP handlers.
//
// This file exposes the game database through the API:
//   - GET    /citizens               (cached name search)
//   - GET    /citizens/{id}          (profile)
//   - GET    /citizens/{id}/records  (everything filed against the citizen)
//   - GET    /citizens/{id}/notes
//   - POST   /citizens/{id}/notes
//   - DELETE /notes/{id}
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-mdt-backend/internal/domain"
	"github.com/tbourn/go-mdt-backend/internal/services"
)

// CreateNoteRequest is the JSON payload for adding a note to a citizen.
type CreateNoteRequest struct {
	Content string `json:"content" binding:"required" example:"Known associate of the Vagos."`
}

// ListNotesResponse wraps the notes of a citizen.
type ListNotesResponse struct {
	Notes []domain.CitizenNote `json:"notes"`
}

// SearchCitizens godoc
// @ID          searchCitizens
// @Summary     Search citizens
// @Description Matches any word of q against first and last names. Results are cached briefly per normalized query; X-Cache reports HIT or MISS.
// @Tags        Citizens
// @Produce     json
// @Security    SessionAuth
//
// @Param       q      query  string  false "Name words"      example(john doe)
// @Param       page   query  int     false "Page number"     minimum(1) default(1)
// @Param       limit  query  int     false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  services.SearchResult
// @Header      200  {string}  X-Cache  "HIT or MISS"
// @Failure     500  {object}  handlers.ErrorResponse "Game database unavailable"
// @Router      /citizens [get]
func (h *Handlers) SearchCitizens(c *gin.Context) {
	page, limit := clampPagination(c)
	body, hit, err := h.svc.Citizens.Search(c.Request.Context(), c.Query("q"), page, limit)
	if err != nil {
		failFor(c, err, ErrCodeSearchFailed)
		return
	}
	if hit {
		c.Header("X-Cache", "HIT")
	} else {
		c.Header("X-Cache", "MISS")
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

// GetCitizen godoc
// @ID          getCitizen
// @Summary     Get a citizen
// @Tags        Citizens
// @Produce     json
// @Security    SessionAuth
// @Param       id   path      int  true  "Citizen ID"
// @Success     200  {object}  domain.Citizen
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse "Citizen not found"
// @Failure     500  {object}  handlers.ErrorResponse "Game database unavailable"
// @Router      /citizens/{id} [get]
func (h *Handlers) GetCitizen(c *gin.Context) {
	id, valid := citizenID(c)
	if !valid {
		return
	}
	cit, err := h.svc.Citizens.Get(c.Request.Context(), id)
	if err != nil {
		failFor(c, err, ErrCodeUpstreamFailed)
		return
	}
	ok(c, http.StatusOK, cit)
}

// GetCitizenRecords godoc
// @ID          getCitizenRecords
// @Summary     Get a citizen's file
// @Description Returns the citizen with every arrest, report, wanted entry, weapon license and note filed against it.
// @Tags        Citizens
// @Produce     json
// @Security    SessionAuth
// @Param       id   path      int  true  "Citizen ID"
// @Success     200  {object}  services.CitizenRecords
// @Failure     404  {object}  handlers.ErrorResponse "Citizen not found"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /citizens/{id}/records [get]
func (h *Handlers) GetCitizenRecords(c *gin.Context) {
	id, valid := citizenID(c)
	if !valid {
		return
	}
	recs, err := h.svc.Citizens.Records(c.Request.Context(), id)
	if err != nil {
		failFor(c, err, ErrCodeUpstreamFailed)
		return
	}
	ok(c, http.StatusOK, recs)
}

// ListNotes godoc
// @ID          listNotes
// @Summary     List a citizen's notes
// @Tags        Notes
// @Produce     json
// @Security    SessionAuth
// @Param       id   path      int  true  "Citizen ID"
// @Success     200  {object}  handlers.ListNotesResponse
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Router      /citizens/{id}/notes [get]
func (h *Handlers) ListNotes(c *gin.Context) {
	id, valid := citizenID(c)
	if !valid {
		return
	}
	notes, err := h.svc.Notes.List(c.Request.Context(), id)
	if err != nil {
		failFor(c, err, ErrCodeListFailed)
		return
	}
	if notes == nil {
		notes = []domain.CitizenNote{}
	}
	ok(c, http.StatusOK, ListNotesResponse{Notes: notes})
}

// CreateNote godoc
// @ID          createNote
// @Summary     Add a note to a citizen
// @Tags        Notes
// @Accept      json
// @Produce     json
// @Security    SessionAuth
// @Param       id    path  int                          true  "Citizen ID"
// @Param       body  body  handlers.CreateNoteRequest   true  "Note"
// @Success     201  {object}  domain.CitizenNote
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Router      /citizens/{id}/notes [post]
func (h *Handlers) CreateNote(c *gin.Context) {
	id, valid := citizenID(c)
	if !valid {
		return
	}
	var req CreateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Content) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		return
	}
	n, err := h.svc.Notes.Create(c.Request.Context(), principal(c), id, req.Content)
	if err != nil {
		failFor(c, err, ErrCodeCreateFailed)
		return
	}
	ok(c, http.StatusCreated, n)
}

// DeleteNote godoc
// @ID          deleteNote
// @Summary     Delete a note
// @Description Authors may delete their own notes; supervisors and admins may delete any.
// @Tags        Notes
// @Security    SessionAuth
// @Param       id   path  int  true  "Note ID"
// @Success     204  {string}  string "No Content"
// @Failure     403  {object}  handlers.ErrorResponse "Not the author"
// @Failure     404  {object}  handlers.ErrorResponse "Not found"
// @Router      /notes/{id} [delete]
func (h *Handlers) DeleteNote(c *gin.Context) {
	id, valid := recordID(c, "id")
	if !valid {
		return
	}
	if err := h.svc.Notes.Delete(c.Request.Context(), principal(c), id); err != nil {
		if errors.Is(err, services.ErrForbidden) {
			fail(c, http.StatusForbidden, ErrCodeForbidden, "only the author or a supervisor can delete this note")
			return
		}
		failFor(c, err, ErrCodeDeleteFailed)
		return
	}
	noContent(c)
}
