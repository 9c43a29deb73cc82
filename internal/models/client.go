package models

import "time"

// Client is the billed party. Rows are not unique on (full_name, email):
// drafts always get their own copy.
type Client struct {
	ID        uint   `gorm:"primaryKey"`
	FullName  string `gorm:"size:100;index:idx_clients_match,priority:1"`
	Email     string `gorm:"size:100;index:idx_clients_match,priority:2"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Matches reports whether c carries exactly the given name and email.
func (c *Client) Matches(fullName, email string) bool {
	return c.FullName == fullName && c.Email == email
}
