package models

import (
	"time"
)

type InvoiceStatus string

const (
	StatusDraft   InvoiceStatus = "draft"
	StatusPending InvoiceStatus = "pending"
	StatusPaid    InvoiceStatus = "paid"
)

func (s InvoiceStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPending, StatusPaid:
		return true
	}
	return false
}

type Invoice struct {
	ID              string     `gorm:"primaryKey;size:6"`
	IssueDate       *time.Time `gorm:"type:date"`
	DueDate         *time.Time `gorm:"type:date"`
	Description     string     `gorm:"size:2000"`
	PaymentTerms    *int
	ClientID        *uint         `gorm:"index"`
	Client          *Client       `gorm:"constraint:OnDelete:SET NULL"`
	Status          InvoiceStatus `gorm:"size:16;index"`
	SenderAddressID *uint         `gorm:"index"`
	SenderAddress   *Address      `gorm:"foreignKey:SenderAddressID;constraint:OnDelete:SET NULL"`
	ClientAddressID *uint         `gorm:"index"`
	ClientAddress   *Address      `gorm:"foreignKey:ClientAddressID;constraint:OnDelete:SET NULL"`
	TotalCents      int64
	LineItems       []LineItem `gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// AddressID returns the foreign key used for role.
func (i *Invoice) AddressID(role AddressRole) *uint {
	if role == RoleSender {
		return i.SenderAddressID
	}
	return i.ClientAddressID
}

// SetAddress points the invoice at a for role.
func (i *Invoice) SetAddress(role AddressRole, a *Address) {
	id := a.ID
	if role == RoleSender {
		i.SenderAddressID = &id
		i.SenderAddress = a
		return
	}
	i.ClientAddressID = &id
	i.ClientAddress = a
}

func (i *Invoice) SetClient(c *Client) {
	id := c.ID
	i.ClientID = &id
	i.Client = c
}
