// Auth and account HTTP handlers.
//
//   - POST  /auth/login     (public)
//   - POST  /auth/logout
//   - GET   /auth/me
//   - POST  /officers       (admin)
//   - GET   /officers       (admin)
//   - PATCH /officers/{id}  (admin)
package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-mdt-backend/internal/domain"
	"github.com/tbourn/go-mdt-backend/internal/services"
)

// LoginRequest is the JSON payload for logging in.
type LoginRequest struct {
	Username string `json:"username" binding:"required" example:"adams"`
	Password string `json:"password" binding:"required" example:"correct horse battery staple"`
}

// CreateOfficerRequest is the JSON payload for creating an account.
type CreateOfficerRequest struct {
	Username    string `json:"username"     binding:"required" example:"adams"`
	Password    string `json:"password"     binding:"required"`
	DisplayName string `json:"display_name"                    example:"Sgt. Adams"`
	Badge       string `json:"badge"                           example:"1042"`
	Rank        string `json:"rank"                            example:"Sergeant"`
	Role        string `json:"role"                            example:"officer"`
}

// UpdateOfficerRequest holds optional account changes.
type UpdateOfficerRequest struct {
	DisplayName *string `json:"display_name"`
	Badge       *string `json:"badge"`
	Rank        *string `json:"rank"`
	Role        *string `json:"role"`
	Active      *bool   `json:"active"`
	Password    *string `json:"password"`
}

// ListOfficersResponse wraps a page of officers and pagination information.
type ListOfficersResponse struct {
	Officers   []domain.Officer `json:"officers"`
	Pagination Pagination       `json:"pagination"`
}

// Login godoc
// @ID          login
// @Summary     Log in
// @Description Verifies the credentials, sets the session cookie and returns the session token.
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.LoginRequest  true  "Credentials"
// @Success     200  {object}  services.Session
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse "Invalid credentials"
// @Router      /auth/login [post]
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "username and password required")
		return
	}
	sess, err := h.svc.Auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		failFor(c, err, ErrCodeInternal)
		return
	}
	// 0 leaves Max-Age unset, which makes it a browser session cookie.
	maxAge := max(int(time.Until(sess.ExpiresAt).Seconds()), 0)
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.opts.SessionCookie, sess.Token, maxAge, "/", "", h.opts.CookieSecure, true)
	ok(c, http.StatusOK, sess)
}

// Logout godoc
// @ID          logout
// @Summary     Log out
// @Description Clears the session cookie. Bearer tokens stay valid until they expire.
// @Tags        Auth
// @Success     204  {string}  string "No Content"
// @Router      /auth/logout [post]
func (h *Handlers) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.opts.SessionCookie, "", -1, "/", "", h.opts.CookieSecure, true)
	noContent(c)
}

// Me godoc
// @ID          me
// @Summary     Current officer
// @Tags        Auth
// @Produce     json
// @Security    SessionAuth
// @Success     200  {object}  domain.Officer
// @Failure     401  {object}  handlers.ErrorResponse "Unauthorized"
// @Router      /auth/me [get]
func (h *Handlers) Me(c *gin.Context) {
	o, err := h.svc.Auth.Me(c.Request.Context(), principal(c))
	if err != nil {
		failFor(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, o)
}

// CreateOfficer godoc
// @ID          createOfficer
// @Summary     Create an officer account
// @Tags        Officers
// @Accept      json
// @Produce     json
// @Security    SessionAuth
// @Param       body  body  handlers.CreateOfficerRequest  true  "Account"
// @Success     201  {object}  domain.Officer
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     403  {object}  handlers.ErrorResponse "Admins only"
// @Failure     409  {object}  handlers.ErrorResponse "Username taken"
// @Router      /officers [post]
func (h *Handlers) CreateOfficer(c *gin.Context) {
	var req CreateOfficerRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Username) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "username and password required")
		return
	}
	o, err := h.svc.Officers.Create(c.Request.Context(), principal(c), services.NewOfficer{
		Username:    req.Username,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		Badge:       req.Badge,
		Rank:        req.Rank,
		Role:        req.Role,
	})
	if err != nil {
		failFor(c, err, ErrCodeCreateFailed)
		return
	}
	ok(c, http.StatusCreated, o)
}

// ListOfficers godoc
// @ID          listOfficers
// @Summary     List officer accounts
// @Tags        Officers
// @Produce     json
// @Security    SessionAuth
// @Param       page       query  int  false "Page number"     minimum(1) default(1)
// @Param       page_size  query  int  false "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object}  handlers.ListOfficersResponse
// @Router      /officers [get]
func (h *Handlers) ListOfficers(c *gin.Context) {
	page, pageSize := clampPagination(c)
	items, total, err := h.svc.Officers.ListPage(c.Request.Context(), page, pageSize)
	if err != nil {
		failFor(c, err, ErrCodeListFailed)
		return
	}
	if items == nil {
		items = []domain.Officer{}
	}
	ok(c, http.StatusOK, ListOfficersResponse{Officers: items, Pagination: newPagination(page, pageSize, total)})
}

// UpdateOfficer godoc
// @ID          updateOfficer
// @Summary     Update an officer account
// @Tags        Officers
// @Accept      json
// @Produce     json
// @Security    SessionAuth
// @Param       id    path  int                            true  "Officer ID"
// @Param       body  body  handlers.UpdateOfficerRequest  true  "Changes"
// @Success     200  {object}  domain.Officer
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse "Not found"
// @Router      /officers/{id} [patch]
func (h *Handlers) UpdateOfficer(c *gin.Context) {
	id, valid := recordID(c, "id")
	if !valid {
		return
	}
	var req UpdateOfficerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	o, err := h.svc.Officers.Update(c.Request.Context(), principal(c), id, services.OfficerPatch{
		DisplayName: req.DisplayName,
		Badge:       req.Badge,
		Rank:        req.Rank,
		Role:        req.Role,
		Active:      req.Active,
		Password:    req.Password,
	})
	if err != nil {
		failFor(c, err, ErrCodeUpdateFailed)
		return
	}
	ok(c, http.StatusOK, o)
}
