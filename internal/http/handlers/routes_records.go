// Per-kind record endpoints. Each method delegates to the shared
// recordHandler; the comments feed the generated OpenAPI document.
package handlers

import "github.com/gin-gonic/gin"

// CreateArrest godoc
// @ID          createArrest
// @Summary     File an arrest
// @Description Creates an arrest for a citizen and returns it with the citizen attached. A repeated Idempotency-Key returns the first result with 200.
// @Tags        Arrests
// @Accept      json
// @Produce     json
// @Security    SessionAuth
//
// @Param       Idempotency-Key  header  string  false "Idempotency key (max 200 chars)"
// @Param       body             body    handlers.CreateArrestRequest  true  "Arrest payload"
//
// @Success     201  {object}  domain.Arrest
// @Success     200  {object}  domain.Arrest  "Idempotent replay"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /arrests [post]
func (h *Handlers) CreateArrest(c *gin.Context) { h.arrests.create(c) }

// ListArrest godoc
// @ID          listArrest
// @Summary     List arrest records (paginated)
// @Description Returns a page of arrest records, newest first, each with its citizen. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Arrests
// @Produce     json
// @Security    SessionAuth
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Param       citizen_id     query   int     false "Filter by citizen"
// @Param       officer_id     query   int     false "Filter by filing officer"
// @Param       status         query   string  false "Filter by status"
// @Param       page           query   int     false "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  map[string]interface{}
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string "Not Modified"
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /arrests [get]
func (h *Handlers) ListArrest(c *gin.Context) { h.arrests.list(c) }

// GetArrest godoc
// @ID          getArrest
// @Summary     Get an arrest
// @Tags        Arrests
// @Produce     json
// @Security    SessionAuth
// @Param       id   path      int  true  "Arrest ID"
// @Success     200  {object}  domain.Arrest
// @Failure     404  {object}  handlers.ErrorResponse "Not found"
// @Failure     500  {object}  handlers.ErrorResponse "Game database unavailable"
// @Router      /arrests/{id} [get]
func (h *Handlers) GetArrest(c *gin.Context) { h.arrests.get(c) }

// UpdateArrest godoc
// @ID          updateArrest
// @Summary     Update an arrest
// @Description Partially updates an arrest. Accepted fields: charges, description, fine, jail_minutes, status, notes. The citizen cannot be changed.
// @Tags        Arrests
// @Accept      json
// @Produce     json
// @Security    SessionAuth
// @Param       id    path  int                     true  "Arrest ID"
// @Param       body  body  map[string]interface{}  true  "Fields to change"
// @Success     200  {object}  domain.Arrest
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse "Not found"
// @Router      /arrests/{id} [patch]
func (h *Handlers) UpdateArrest(c *gin.Context) { h.arrests.update(c) }

// DeleteArrest godoc
// @ID          deleteArrest
// @Summary     Delete an arrest
// @Tags        Arrests
// @Security    SessionAuth
// @Param       id   path  int  true  "Arrest ID"
// @Success     204  {string}  string "No Content"
// @Failure     404  {object}  handlers.ErrorResponse "Not found"
// @Router      /arrests/{id} [delete]
func (h *Handlers) DeleteArrest(c *gin.Context) { h.arrests.remove(c) }

// CreateReport godoc
// @ID          createReport
// @Summary     File a report
// @Description Creates a report for a citizen and returns it with the citizen attached. A repeated Idempotency-Key returns the first result with 200.
// @Tags        Reports
// @Accept      json
// @Produce     json
// @Security    SessionAuth
//
// @Param       Idempotency-Key  header  string  false "Idempotency key (max 200 chars)"
// @Param       body             body    handlers.CreateReportRequest  true  "Report payload"
//
// @Success     201  {object}  domain.Report
// @Success     200  {object}  domain.Report  "Idempotent replay"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /reports [post]
func (h *Handlers) CreateReport(c *gin.Context) { h.reports.create(c) }

// ListReport godoc
// @ID          listReport
// @Summary     List report records (paginated)
// @Description Returns a page of report records, newest first, each with its citizen. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Reports
// @Produce     json
// @Security    SessionAuth
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Param       citizen_id     query   int     false "Filter by citizen"
// @Param       officer_id     query   int     false "Filter by filing officer"
// @Param       status         query   string  false "Filter by status"
// @Param       page           query   int     false "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  map[string]interface{}
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string "Not Modified"
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /reports [get]
func (h *Handlers) ListReport(c *gin.Context) { h.reports.list(c) }

// GetReport godoc
// @ID          getReport
// @Summary     Get a report
// @Tags        Reports
// @Produce     json
// @Security    SessionAuth
// @Param       id   path      int  true  "Report ID"
// @Success     200  {object}  domain.Report
// @Failure     404  {object}  handlers.ErrorResponse "Not found"
// @Failure     500  {object}  handlers.ErrorResponse "Game database unavailable"
// @Router      /reports/{id} [get]
func (h *Handlers) GetReport(c *gin.Context) { h.reports.get(c) }

// UpdateReport godoc
// @ID          updateReport
// @Summary     Update a report
// @Description Partially updates a report. Accepted fields: title, content, kind, status. The citizen cannot be changed.
// @Tags        Reports
// @Accept      json
// @Produce     json
// @Security    SessionAuth
// @Param       id    path  int                     true  "Report ID"
// @Param       body  body  map[string]interface{}  true  "Fields to change"
// @Success     200  {object}  domain.Report
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse "Not found"
// @Router      /reports/{id} [patch]
func (h *Handlers) UpdateReport(c *gin.Context) { h.reports.update(c) }

// DeleteReport godoc
// @ID          deleteReport
// @Summary     Delete a report
// @Tags        Reports
// @Security    SessionAuth
// @Param       id   path  int  true  "Report ID"
// @Success     204  {string}  string "No Content"
// @Failure     404  {object}  handlers.ErrorResponse "Not found"
// @Router      /reports/{id} [delete]
func (h *Handlers) DeleteReport(c *gin.Context) { h.reports.remove(c) }

// CreateWanted godoc
// @ID          createWanted
// @Summary     File a wanted person
// @Description Creates a wanted person for a citizen and returns it with the citizen attached. A repeated Idempotency-Key returns the first result with 200.
// @Tags        Wanted
// @Accept      json
// @Produce     json
// @Security    SessionAuth
//
// @Param       Idempotency-Key  header  string  false "Idempotency key (max 200 chars)"
// @Param       body             body    handlers.CreateWantedRequest  true  "Wanted payload"
//
// @Success     201  {object}  domain.WantedPerson
// @Success     200  {object}  domain.WantedPerson  "Idempotent replay"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /wanted [post]
func (h *Handlers) CreateWanted(c *gin.Context) { h.wanted.create(c) }

// ListWanted godoc
// @ID          listWanted
// @Summary     List wanted person records (paginated)
// @Description Returns a page of wanted person records, newest first, each with its citizen. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Wanted
// @Produce     json
// @Security    SessionAuth
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Param       citizen_id     query   int     false "Filter by citizen"
// @Param       officer_id     query   int     false "Filter by filing officer"
// @Param       status         query   string  false "Filter by status"
// @Param       page           query   int     false "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  map[string]interface{}
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string "Not Modified"
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /wanted [get]
func (h *Handlers) ListWanted(c *gin.Context) { h.wanted.list(c) }

// GetWanted godoc
// @ID          getWanted
// @Summary     Get a wanted person
// @Tags        Wanted
// @Produce     json
// @Security    SessionAuth
// @Param       id   path      int  true  "Wanted ID"
// @Success     200  {object}  domain.WantedPerson
// @Failure     404  {object}  handlers.ErrorResponse "Not found"
// @Failure     500  {object}  handlers.ErrorResponse "Game database unavailable"
// @Router      /wanted/{id} [get]
func (h *Handlers) GetWanted(c *gin.Context) { h.wanted.get(c) }

// UpdateWanted godoc
// @ID          updateWanted
// @Summary     Update a wanted person
// @Description Partially updates a wanted person. Accepted fields: reason, danger, status, notes. The citizen cannot be changed.
// @Tags        Wanted
// @Accept      json
// @Produce     json
// @Security    SessionAuth
// @Param       id    path  int                     true  "Wanted ID"
// @Param       body  body  map[string]interface{}  true  "Fields to change"
// @Success     200  {object}  domain.WantedPerson
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse "Not found"
// @Router      /wanted/{id} [patch]
func (h *Handlers) UpdateWanted(c *gin.Context) { h.wanted.update(c) }

// DeleteWanted godoc
// @ID          deleteWanted
// @Summary     Delete a wanted person
// @Tags        Wanted
// @Security    SessionAuth
// @Param       id   path  int  true  "Wanted ID"
// @Success     204  {string}  string "No Content"
// @Failure     404  {object}  handlers.ErrorResponse "Not found"
// @Router      /wanted/{id} [delete]
func (h *Handlers) DeleteWanted(c *gin.Context) { h.wanted.remove(c) }

// CreateLicense godoc
// @ID          createLicense
// @Summary     File a weapon license
// @Description Creates a weapon license for a citizen and returns it with the citizen attached. A repeated Idempotency-Key returns the first result with 200.
// @Tags        Licenses
// @Accept      json
// @Produce     json
// @Security    SessionAuth
//
// @Param       Idempotency-Key  header  string  false "Idempotency key (max 200 chars)"
// @Param       body             body    handlers.CreateLicenseRequest  true  "License payload"
//
// @Success     201  {object}  domain.WeaponLicense
// @Success     200  {object}  domain.WeaponLicense  "Idempotent replay"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /licenses [post]
func (h *Handlers) CreateLicense(c *gin.Context) { h.licenses.create(c) }

// ListLicense godoc
// @ID          listLicense
// @Summary     List weapon license records (paginated)
// @Description Returns a page of weapon license records, newest first, each with its citizen. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Licenses
// @Produce     json
// @Security    SessionAuth
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Param       citizen_id     query   int     false "Filter by citizen"
// @Param       officer_id     query   int     false "Filter by filing officer"
// @Param       status         query   string  false "Filter by status"
// @Param       page           query   int     false "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  map[string]interface{}
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string "Not Modified"
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /licenses [get]
func (h *Handlers) ListLicense(c *gin.Context) { h.licenses.list(c) }

// GetLicense godoc
// @ID          getLicense
// @Summary     Get a weapon license
// @Tags        Licenses
// @Produce     json
// @Security    SessionAuth
// @Param       id   path      int  true  "License ID"
// @Success     200  {object}  domain.WeaponLicense
// @Failure     404  {object}  handlers.ErrorResponse "Not found"
// @Failure     500  {object}  handlers.ErrorResponse "Game database unavailable"
// @Router      /licenses/{id} [get]
func (h *Handlers) GetLicense(c *gin.Context) { h.licenses.get(c) }

// UpdateLicense godoc
// @ID          updateLicense
// @Summary     Update a weapon license
// @Description Partially updates a weapon license. Accepted fields: status, expires_at, notes. The citizen cannot be changed.
// @Tags        Licenses
// @Accept      json
// @Produce     json
// @Security    SessionAuth
// @Param       id    path  int                     true  "License ID"
// @Param       body  body  map[string]interface{}  true  "Fields to change"
// @Success     200  {object}  domain.WeaponLicense
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse "Not found"
// @Router      /licenses/{id} [patch]
func (h *Handlers) UpdateLicense(c *gin.Context) { h.licenses.update(c) }

// DeleteLicense godoc
// @ID          deleteLicense
// @Summary     Delete a weapon license
// @Tags        Licenses
// @Security    SessionAuth
// @Param       id   path  int  true  "License ID"
// @Success     204  {string}  string "No Content"
// @Failure     404  {object}  handlers.ErrorResponse "Not found"
// @Router      /licenses/{id} [delete]
func (h *Handlers) DeleteLicense(c *gin.Context) { h.licenses.remove(c) }
