package handler

import "github.com/gin-gonic/gin"

// Handlers groups every API handler so the routes are registered in one place.
type Handlers struct {
	User       *UserHandler
	Product    *ProductHandler
	Sale       *SaleHandler
	Statistics *StatisticsHandler
	Audit      *AuditHandler
}

func (h Handlers) RegisterRoutes(router *gin.RouterGroup) {
	h.User.RegisterRoutes(router)
	h.Product.RegisterRoutes(router)
	h.Sale.RegisterRoutes(router)
	h.Statistics.RegisterRoutes(router)
	h.Audit.RegisterRoutes(router)
}
