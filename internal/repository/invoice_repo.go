package repository

import (
	"invoice-manager-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InvoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// Expose DB for transactions
func (r *InvoiceRepository) DB() *gorm.DB {
	return r.db
}

func (r *InvoiceRepository) WithTx(tx *gorm.DB) *InvoiceRepository {
	return &InvoiceRepository{db: tx}
}

func (r *InvoiceRepository) withRelations() *gorm.DB {
	return r.db.
		Preload("Client").
		Preload("SenderAddress").
		Preload("ClientAddress").
		Preload("LineItems", func(db *gorm.DB) *gorm.DB {
			return db.Order("line_items.id ASC")
		})
}

// GetByID fetch a single invoice by ID with client, addresses and line items
func (r *InvoiceRepository) GetByID(id string) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.withRelations().First(&invoice, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

// List returns every invoice, oldest first.
func (r *InvoiceRepository) List() ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := r.withRelations().Order("created_at ASC").Order("id ASC").Find(&invoices).Error
	return invoices, err
}

func (r *InvoiceRepository) Exists(id string) (bool, error) {
	var count int64
	err := r.db.Model(&models.Invoice{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// Create inserts the invoice row only; related rows are written by their own repositories.
func (r *InvoiceRepository) Create(invoice *models.Invoice) error {
	return r.db.Omit(clause.Associations).Create(invoice).Error
}

func (r *InvoiceRepository) Save(invoice *models.Invoice) error {
	return r.db.Omit(clause.Associations).Save(invoice).Error
}

func (r *InvoiceRepository) Delete(id string) error {
	return r.db.Delete(&models.Invoice{}, "id = ?", id).Error
}
