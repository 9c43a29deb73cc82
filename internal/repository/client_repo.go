package repository

import (
	"invoice-manager-backend/internal/models"

	"gorm.io/gorm"
)

type ClientRepository struct {
	db *gorm.DB
}

func NewClientRepository(db *gorm.DB) *ClientRepository {
	return &ClientRepository{db: db}
}

// WithTx binds the repository to a running transaction.
func (r *ClientRepository) WithTx(tx *gorm.DB) *ClientRepository {
	return &ClientRepository{db: tx}
}

func (r *ClientRepository) GetByID(id uint) (*models.Client, error) {
	var client models.Client
	if err := r.db.First(&client, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &client, nil
}

// FindMatch returns the oldest client with exactly this name and email, or nil.
func (r *ClientRepository) FindMatch(fullName, email string) (*models.Client, error) {
	return r.findMatch(fullName, email, 0)
}

// FindMatchExcluding is FindMatch ignoring the row with id excludeID.
func (r *ClientRepository) FindMatchExcluding(fullName, email string, excludeID uint) (*models.Client, error) {
	return r.findMatch(fullName, email, excludeID)
}

func (r *ClientRepository) findMatch(fullName, email string, excludeID uint) (*models.Client, error) {
	query := r.db.Where("full_name = ? AND email = ?", fullName, email)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}

	var clients []models.Client
	if err := query.Order("id ASC").Limit(1).Find(&clients).Error; err != nil {
		return nil, err
	}
	if len(clients) == 0 {
		return nil, nil
	}
	return &clients[0], nil
}

func (r *ClientRepository) Create(client *models.Client) error {
	return r.db.Create(client).Error
}

func (r *ClientRepository) Save(client *models.Client) error {
	return r.db.Save(client).Error
}

func (r *ClientRepository) Delete(id uint) error {
	return r.db.Delete(&models.Client{}, id).Error
}

// CountInvoices counts invoices pointing at the client, skipping excludeInvoiceID when set.
func (r *ClientRepository) CountInvoices(id uint, excludeInvoiceID string) (int64, error) {
	query := r.db.Model(&models.Invoice{}).Where("client_id = ?", id)
	if excludeInvoiceID != "" {
		query = query.Where("id <> ?", excludeInvoiceID)
	}

	var count int64
	err := query.Count(&count).Error
	return count, err
}
