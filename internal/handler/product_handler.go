package handler

import (
	"net/http"

	"salesdesk/internal/middleware"
	"salesdesk/internal/model"
	"salesdesk/internal/service"
	"salesdesk/pkg/response"

	"github.com/gin-gonic/gin"
)

type ProductHandler struct {
	productService service.ProductService
	auth           *middleware.Authenticator
}

func NewProductHandler(productService service.ProductService, auth *middleware.Authenticator) *ProductHandler {
	return &ProductHandler{productService: productService, auth: auth}
}

func (h *ProductHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/api/products", h.auth.RequireRole(model.RoleAgent, model.RoleController, model.RoleAdmin), h.ListProducts)
}

// ListProducts returns the catalog
// @Summary      List products
// @Tags         products
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]model.Product}
// @Router       /api/products [get]
func (h *ProductHandler) ListProducts(c *gin.Context) {
	products, err := h.productService.ListProducts(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, products))
}
