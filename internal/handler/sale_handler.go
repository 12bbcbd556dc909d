package handler

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"salesdesk/internal/infra"
	"salesdesk/internal/middleware"
	"salesdesk/internal/model"
	"salesdesk/internal/service"
	"salesdesk/pkg/pagination"
	"salesdesk/pkg/response"

	"github.com/gin-gonic/gin"
)

type SaleHandler struct {
	saleService service.SaleService
	auth        *middleware.Authenticator
	loc         *time.Location
}

func NewSaleHandler(saleService service.SaleService, auth *middleware.Authenticator, loc *time.Location) *SaleHandler {
	RegisterValidators()
	if loc == nil {
		loc = time.UTC
	}
	return &SaleHandler{saleService: saleService, auth: auth, loc: loc}
}

func (h *SaleHandler) RegisterRoutes(router *gin.RouterGroup) {
	agent := h.auth.RequireRole(model.RoleAgent)
	reviewers := h.auth.RequireRole(model.RoleController, model.RoleAdmin)
	anyone := h.auth.RequireRole(model.RoleAgent, model.RoleController, model.RoleAdmin)

	group := router.Group("/api/sales")
	{
		group.POST("", agent, h.CreateSale)
		group.GET("/mine", agent, h.ListMine)
		group.GET("", reviewers, h.ListSales)
		group.GET("/pending", reviewers, h.PendingByMatricule)
		group.GET("/export.csv", h.auth.RequireRole(model.RoleAdmin), h.ExportCSV)
		group.GET("/:receipt", anyone, h.GetSale)
		group.GET("/:receipt/receipt.pdf", anyone, h.ReceiptPDF)
		group.POST("/:receipt/validate", h.auth.RequireRole(model.RoleController), h.ValidateSale)
		group.POST("/:receipt/cancel", agent, h.CancelSale)
	}
}

// CreateSale records a pending sale for the calling agent
// @Summary      Create a sale
// @Description  Prices the selected products and records a pending sale with a new receipt number
// @Tags         sales
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateSaleRequest  true  "Buyer and products"
// @Success      201      {object}  response.Response{data=service.SaleResponse}
// @Failure      400      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/sales [post]
func (h *SaleHandler) CreateSale(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	var req service.CreateSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	sale, err := h.saleService.CreateSale(c.Request.Context(), actor.ID, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, sale))
}

// ListMine returns the calling agent's sales, newest first
// @Summary      List my sales
// @Tags         sales
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]service.SaleResponse}
// @Router       /api/sales/mine [get]
func (h *SaleHandler) ListMine(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	sales, err := h.saleService.ListByAgent(c.Request.Context(), actor.ID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, sales))
}

// ListSales returns one page of sales for controllers and admins
// @Summary      List sales
// @Tags         sales
// @Produce      json
// @Security     BearerAuth
// @Param        status     query     string  false  "pending, validated or cancelled"
// @Param        matricule  query     string  false  "Buyer matricule (case-insensitive substring)"
// @Param        agent_id   query     string  false  "Agent UUID"
// @Param        page       query     int     false  "Page number (default 1)"
// @Param        limit      query     int     false  "Items per page (default 20)"
// @Success      200        {object}  response.Response{data=response.Page}
// @Failure      400        {object}  response.Response
// @Router       /api/sales [get]
func (h *SaleHandler) ListSales(c *gin.Context) {
	p := pagination.Parse(c)

	sales, total, err := h.saleService.ListAll(c.Request.Context(), service.SaleListFilter{
		Status:    c.Query("status"),
		Matricule: c.Query("matricule"),
		AgentID:   c.Query("agent_id"),
		Page:      p.Page,
		Limit:     p.Limit,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Paged(http.StatusOK, sales, pagination.NewMeta(p, total)))
}

// PendingByMatricule lists a buyer's pending sales for the validation desk
// @Summary      Pending sales of a buyer
// @Tags         sales
// @Produce      json
// @Security     BearerAuth
// @Param        matricule  query     string  true  "Exact buyer matricule"
// @Success      200        {object}  response.Response{data=[]service.SaleResponse}
// @Failure      400        {object}  response.Response
// @Router       /api/sales/pending [get]
func (h *SaleHandler) PendingByMatricule(c *gin.Context) {
	matricule := strings.TrimSpace(c.Query("matricule"))
	if matricule == "" {
		c.JSON(http.StatusBadRequest, response.ErrorWithCode(http.StatusBadRequest, "invalid_payload", "matricule is required"))
		return
	}

	sales, err := h.saleService.FindPendingByMatricule(c.Request.Context(), matricule)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, sales))
}

// GetSale looks a sale up by receipt number
// @Summary      Get a sale
// @Description  Agents only see their own sales
// @Tags         sales
// @Produce      json
// @Security     BearerAuth
// @Param        receipt  path      string  true  "Receipt number"
// @Success      200      {object}  response.Response{data=service.SaleResponse}
// @Failure      404      {object}  response.Response
// @Router       /api/sales/{receipt} [get]
func (h *SaleHandler) GetSale(c *gin.Context) {
	sale, ok := h.visibleSale(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, sale))
}

// ReceiptPDF renders the printable receipt
// @Summary      Download receipt PDF
// @Tags         sales
// @Produce      application/pdf
// @Security     BearerAuth
// @Param        receipt  path  string  true  "Receipt number"
// @Success      200      {file}    file
// @Failure      404      {object}  response.Response
// @Router       /api/sales/{receipt}/receipt.pdf [get]
func (h *SaleHandler) ReceiptPDF(c *gin.Context) {
	sale, ok := h.visibleSale(c)
	if !ok {
		return
	}

	out, err := infra.ReceiptPDF(sale, h.loc)
	if err != nil {
		writeError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`inline; filename="%s.pdf"`, sale.ReceiptNumber))
	c.Data(http.StatusOK, "application/pdf", out)
}

// ValidateSale confirms a pending sale
// @Summary      Validate a sale
// @Tags         sales
// @Produce      json
// @Security     BearerAuth
// @Param        receipt  path      string  true  "Receipt number"
// @Success      200      {object}  response.Response{data=service.SaleResponse}
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response  "Already processed"
// @Router       /api/sales/{receipt}/validate [post]
func (h *SaleHandler) ValidateSale(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	sale, err := h.saleService.ValidateSale(c.Request.Context(), c.Param("receipt"), actor.ID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, sale))
}

// CancelSale withdraws one of the agent's pending sales
// @Summary      Cancel a sale
// @Tags         sales
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        receipt  path      string                     true  "Receipt number"
// @Param        payload  body      service.CancelSaleRequest  true  "Reason and optional note"
// @Success      200      {object}  response.Response{data=service.SaleResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response  "Validated or already cancelled"
// @Router       /api/sales/{receipt}/cancel [post]
func (h *SaleHandler) CancelSale(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	var req service.CancelSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	sale, err := h.saleService.CancelSale(c.Request.Context(), c.Param("receipt"), actor.ID, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, sale))
}

// ExportCSV streams every sale matching the filters as CSV
// @Summary      Export sales as CSV
// @Tags         sales
// @Produce      text/csv
// @Security     BearerAuth
// @Param        status     query  string  false  "pending, validated or cancelled"
// @Param        matricule  query  string  false  "Buyer matricule (substring)"
// @Success      200        {file}  file
// @Router       /api/sales/export.csv [get]
func (h *SaleHandler) ExportCSV(c *gin.Context) {
	sales, _, err := h.saleService.ListAll(c.Request.Context(), service.SaleListFilter{
		Status:    c.Query("status"),
		Matricule: c.Query("matricule"),
		AgentID:   c.Query("agent_id"),
	})
	if err != nil {
		writeError(c, err)
		return
	}

	filename := fmt.Sprintf("ventes-%s.csv", time.Now().In(h.loc).Format("2006-01-02"))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Status(http.StatusOK)
	if err := infra.WriteSalesCSV(c.Writer, sales, h.loc); err != nil {
		_ = c.Error(err)
	}
}

// visibleSale loads the :receipt sale, hiding other agents' sales behind a 404.
func (h *SaleHandler) visibleSale(c *gin.Context) (service.SaleResponse, bool) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return service.SaleResponse{}, false
	}

	sale, err := h.saleService.GetByReceipt(c.Request.Context(), c.Param("receipt"))
	if err != nil {
		writeError(c, err)
		return service.SaleResponse{}, false
	}

	if actor.Role == model.RoleAgent && sale.AgentID != actor.ID.String() {
		writeError(c, fmt.Errorf("%w: %s", service.ErrNotFound, sale.ReceiptNumber))
		return service.SaleResponse{}, false
	}
	return sale, true
}
