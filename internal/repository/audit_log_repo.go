package repository

import (
	"time"

	"invoice-manager-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AuditLogRepository struct {
	db *gorm.DB
}

func NewAuditLogRepository(db *gorm.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

func (r *AuditLogRepository) WithTx(tx *gorm.DB) *AuditLogRepository {
	return &AuditLogRepository{db: tx}
}

func (r *AuditLogRepository) Record(entry *models.InvoiceAuditLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	return r.db.Create(entry).Error
}

// ListForInvoice returns the audit trail of one invoice, oldest first.
func (r *AuditLogRepository) ListForInvoice(invoiceID string) ([]models.InvoiceAuditLog, error) {
	var entries []models.InvoiceAuditLog
	err := r.db.Where("invoice_id = ?", invoiceID).Order("created_at ASC").Find(&entries).Error
	return entries, err
}
