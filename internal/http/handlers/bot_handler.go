// Bot integration surface, authenticated with "Authorization: Bot <token>".
// It is read-only and reuses the officer-facing services.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-mdt-backend/internal/repo"
)

// BotSearchCitizens godoc
// @ID          botSearchCitizens
// @Summary     Search citizens (bot)
// @Tags        Bot
// @Produce     json
// @Security    BotAuth
// @Param       q      query  string  false "Name words"
// @Param       page   query  int     false "Page number"     minimum(1) default(1)
// @Param       limit  query  int     false "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object}  services.SearchResult
// @Failure     401  {object}  handlers.ErrorResponse "Invalid bot token"
// @Router      /bot/citizens [get]
func (h *Handlers) BotSearchCitizens(c *gin.Context) { h.SearchCitizens(c) }

// BotGetCitizen godoc
// @ID          botGetCitizen
// @Summary     Get a citizen (bot)
// @Tags        Bot
// @Produce     json
// @Security    BotAuth
// @Param       id   path      int  true  "Citizen ID"
// @Success     200  {object}  domain.Citizen
// @Failure     404  {object}  handlers.ErrorResponse "Citizen not found"
// @Router      /bot/citizens/{id} [get]
func (h *Handlers) BotGetCitizen(c *gin.Context) { h.GetCitizen(c) }

// BotListWanted godoc
// @ID          botListWanted
// @Summary     Active wanted persons (bot)
// @Tags        Bot
// @Produce     json
// @Security    BotAuth
// @Param       page       query  int  false "Page number"     minimum(1) default(1)
// @Param       page_size  query  int  false "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object}  map[string]interface{}
// @Router      /bot/wanted [get]
func (h *Handlers) BotListWanted(c *gin.Context) {
	page, pageSize := clampPagination(c)
	items, total, err := h.svc.Wanted.ListPage(c.Request.Context(), repo.RecordFilter{Status: "active"}, page, pageSize)
	if err != nil {
		failFor(c, err, ErrCodeListFailed)
		return
	}
	ok(c, http.StatusOK, gin.H{"items": items, "pagination": newPagination(page, pageSize, total)})
}
