package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type AuditAction string

const (
	AuditCreated AuditAction = "created"
	AuditUpdated AuditAction = "updated"
	AuditDeleted AuditAction = "deleted"
)

// InvoiceAuditLog keeps one row per committed invoice write. Rows outlive
// the invoice they describe, so InvoiceID is not a foreign key.
type InvoiceAuditLog struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	InvoiceID string         `gorm:"size:6;index" json:"invoice_id"`
	Action    AuditAction    `gorm:"size:16" json:"action"`
	Decisions datatypes.JSON `json:"decisions"`
	Snapshot  datatypes.JSON `json:"snapshot"`
	RequestID string         `json:"request_id,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
