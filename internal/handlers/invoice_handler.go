package handler

import (
	"net/http"

	"invoice-manager-backend/internal/apperror"
	"invoice-manager-backend/internal/services/invoice"

	"github.com/gin-gonic/gin"
)

type InvoiceHandler struct {
	service *invoice.Service
}

func NewInvoiceHandler(s *invoice.Service) *InvoiceHandler {
	return &InvoiceHandler{service: s}
}

// Index lists every invoice.
func (h *InvoiceHandler) Index(c *gin.Context) {
	invoices, err := h.service.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}

	data := make([]invoice.Resource, 0, len(invoices))
	for i := range invoices {
		data = append(data, invoice.NewResource(&invoices[i]))
	}

	c.JSON(http.StatusOK, gin.H{
		"data": data,
		"meta": gin.H{
			"count":       len(data),
			"api_version": invoice.APIVersion,
		},
	})
}

func (h *InvoiceHandler) Show(c *gin.Context) {
	inv, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": invoice.NewResource(inv),
		"meta": gin.H{"api_version": invoice.APIVersion},
	})
}

func (h *InvoiceHandler) Store(c *gin.Context) {
	var payload invoice.Request
	if err := c.ShouldBindJSON(&payload); err != nil {
		fail(c, apperror.NewBadRequest("invalid payload").WithCause(err))
		return
	}

	in, err := payload.Normalize(invoice.OpCreate, "")
	if err != nil {
		fail(c, err)
		return
	}

	id, err := h.service.Create(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":    "Invoice created successfully",
		"invoice_id": id,
	})
}

// Update serves both PUT and PATCH; either way the body is the full invoice.
func (h *InvoiceHandler) Update(c *gin.Context) {
	var payload invoice.Request
	if err := c.ShouldBindJSON(&payload); err != nil {
		fail(c, apperror.NewBadRequest("invalid payload").WithCause(err))
		return
	}

	in, err := payload.Normalize(invoice.OpUpdate, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	id, err := h.service.Update(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Invoice updated successfully",
		"invoice_id": id,
	})
}

func (h *InvoiceHandler) Destroy(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *InvoiceHandler) History(c *gin.Context) {
	entries, err := h.service.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": entries})
}

// fail hands err to the error middleware.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
