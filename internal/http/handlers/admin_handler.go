package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-mdt-backend/internal/domain"
)

// CreateTokenRequest is the JSON payload for minting a bot token.
type CreateTokenRequest struct {
	Name string `json:"name" binding:"required,max=64" example:"discord-bot"`
}

// CreateTokenResponse carries the plaintext token. It is shown only once.
type CreateTokenResponse struct {
	Token    string           `json:"token"`
	APIToken *domain.APIToken `json:"api_token"`
}

// PurgeSearchCache godoc
// @ID          purgeSearchCache
// @Summary     Empty the citizen search cache
// @Tags        Admin
// @Produce     json
// @Security    SessionAuth
// @Success     200  {object}  map[string]int
// @Router      /admin/search-cache/purge [post]
func (h *Handlers) PurgeSearchCache(c *gin.Context) {
	n := h.svc.Citizens.PurgeCache()
	ok(c, http.StatusOK, gin.H{"purged": n})
}

// CreateToken godoc
// @ID          createToken
// @Summary     Mint a bot API token
// @Tags        Admin
// @Accept      json
// @Produce     json
// @Security    SessionAuth
// @Param       body  body  handlers.CreateTokenRequest  true  "Token name"
// @Success     201  {object}  handlers.CreateTokenResponse
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Router      /admin/tokens [post]
func (h *Handlers) CreateToken(c *gin.Context) {
	var req CreateTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "name required (max 64 chars)")
		return
	}
	plain, tok, err := h.svc.Tokens.Create(c.Request.Context(), principal(c), req.Name)
	if err != nil {
		failFor(c, err, ErrCodeCreateFailed)
		return
	}
	ok(c, http.StatusCreated, CreateTokenResponse{Token: plain, APIToken: tok})
}

// ListTokens godoc
// @ID          listTokens
// @Summary     List bot API tokens
// @Tags        Admin
// @Produce     json
// @Security    SessionAuth
// @Success     200  {array}  domain.APIToken
// @Router      /admin/tokens [get]
func (h *Handlers) ListTokens(c *gin.Context) {
	items, err := h.svc.Tokens.List(c.Request.Context())
	if err != nil {
		failFor(c, err, ErrCodeListFailed)
		return
	}
	if items == nil {
		items = []domain.APIToken{}
	}
	ok(c, http.StatusOK, items)
}

// RevokeToken godoc
// @ID          revokeToken
// @Summary     Revoke a bot API token
// @Tags        Admin
// @Security    SessionAuth
// @Param       id   path  int  true  "Token ID"
// @Success     204  {string}  string "No Content"
// @Failure     404  {object}  handlers.ErrorResponse "Not found"
// @Router      /admin/tokens/{id} [delete]
func (h *Handlers) RevokeToken(c *gin.Context) {
	id, valid := recordID(c, "id")
	if !valid {
		return
	}
	if err := h.svc.Tokens.Revoke(c.Request.Context(), id); err != nil {
		failFor(c, err, ErrCodeDeleteFailed)
		return
	}
	noContent(c)
}
