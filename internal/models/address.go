package models

import "time"

// AddressRole selects which invoice foreign key an address is referenced through.
type AddressRole string

const (
	RoleSender AddressRole = "sender"
	RoleClient AddressRole = "client"
)

func (r AddressRole) Other() AddressRole {
	if r == RoleSender {
		return RoleClient
	}
	return RoleSender
}

// Column returns the invoices column holding references for the role.
func (r AddressRole) Column() string {
	if r == RoleSender {
		return "sender_address_id"
	}
	return "client_address_id"
}

type Address struct {
	ID         uint   `gorm:"primaryKey"`
	Street     string `gorm:"size:100;index:idx_addresses_match,priority:1"`
	City       string `gorm:"size:100;index:idx_addresses_match,priority:2"`
	PostalCode string `gorm:"size:100;index:idx_addresses_match,priority:3"`
	Country    string `gorm:"size:100;index:idx_addresses_match,priority:4"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// AddressFields is the comparable part of an Address.
type AddressFields struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

func (a *Address) Fields() AddressFields {
	return AddressFields{Street: a.Street, City: a.City, PostalCode: a.PostalCode, Country: a.Country}
}

func (a *Address) Apply(f AddressFields) {
	a.Street = f.Street
	a.City = f.City
	a.PostalCode = f.PostalCode
	a.Country = f.Country
}
