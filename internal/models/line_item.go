package models

import "time"

// LineItem names are unique per invoice; unnamed draft lines may repeat.
type LineItem struct {
	ID              uint   `gorm:"primaryKey"`
	InvoiceID       string `gorm:"size:6;uniqueIndex:idx_line_items_invoice_name,priority:1"`
	Name            string `gorm:"size:100;uniqueIndex:idx_line_items_invoice_name,priority:2,where:name <> ''"`
	Quantity        int64
	PriceUnitCents  int64
	PriceTotalCents int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
