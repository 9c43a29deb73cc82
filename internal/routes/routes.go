package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	handler "invoice-manager-backend/internal/handlers"
	"invoice-manager-backend/internal/logger"
	"invoice-manager-backend/internal/middleware"
	"invoice-manager-backend/internal/services/invoice"
)

// RegisterRoutes mounts the API on r. The middleware order matters: the error
// handler has to sit outside Recovery to render recovered panics.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, invoiceService *invoice.Service, log *logger.Logger) {
	r.Use(
		middleware.Trace(log),
		middleware.Logger(log),
		middleware.ErrorHandler(),
		middleware.Recovery(),
	)

	invoiceHandler := handler.NewInvoiceHandler(invoiceService)

	api := r.Group("/api")

	// Health check
	api.GET("/health", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(503, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(200, gin.H{"status": "ok"})
	})

	invoices := api.Group("/invoices")
	{
		invoices.GET("", invoiceHandler.Index)
		invoices.POST("", invoiceHandler.Store)
		invoices.GET("/:id", invoiceHandler.Show)
		invoices.PUT("/:id", invoiceHandler.Update)
		invoices.PATCH("/:id", invoiceHandler.Update)
		invoices.DELETE("/:id", invoiceHandler.Destroy)
		invoices.GET("/:id/history", invoiceHandler.History)
	}
}
