package repository

import (
	"invoice-manager-backend/internal/models"

	"gorm.io/gorm"
)

type LineItemRepository struct {
	db *gorm.DB
}

func NewLineItemRepository(db *gorm.DB) *LineItemRepository {
	return &LineItemRepository{db: db}
}

func (r *LineItemRepository) WithTx(tx *gorm.DB) *LineItemRepository {
	return &LineItemRepository{db: tx}
}

// ReplaceForInvoice drops every line item of the invoice and inserts items in order.
func (r *LineItemRepository) ReplaceForInvoice(invoiceID string, items []models.LineItem) error {
	if err := r.DeleteForInvoice(invoiceID); err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].ID = 0
		items[i].InvoiceID = invoiceID
	}
	return r.db.Create(&items).Error
}

func (r *LineItemRepository) DeleteForInvoice(invoiceID string) error {
	return r.db.Where("invoice_id = ?", invoiceID).Delete(&models.LineItem{}).Error
}
