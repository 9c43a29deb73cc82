package repository

import (
	"invoice-manager-backend/internal/models"

	"gorm.io/gorm"
)

type AddressRepository struct {
	db *gorm.DB
}

func NewAddressRepository(db *gorm.DB) *AddressRepository {
	return &AddressRepository{db: db}
}

func (r *AddressRepository) WithTx(tx *gorm.DB) *AddressRepository {
	return &AddressRepository{db: tx}
}

func (r *AddressRepository) GetByID(id uint) (*models.Address, error) {
	var address models.Address
	if err := r.db.First(&address, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &address, nil
}

// FindMatch returns the oldest address whose four fields equal f, or nil.
// Addresses carry no role, so sender and client lookups search the same rows.
func (r *AddressRepository) FindMatch(f models.AddressFields) (*models.Address, error) {
	return r.findMatch(f, 0)
}

func (r *AddressRepository) FindMatchExcluding(f models.AddressFields, excludeID uint) (*models.Address, error) {
	return r.findMatch(f, excludeID)
}

func (r *AddressRepository) findMatch(f models.AddressFields, excludeID uint) (*models.Address, error) {
	query := r.db.
		Where("street = ?", f.Street).
		Where("city = ?", f.City).
		Where("postal_code = ?", f.PostalCode).
		Where("country = ?", f.Country)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}

	var addresses []models.Address
	if err := query.Order("id ASC").Limit(1).Find(&addresses).Error; err != nil {
		return nil, err
	}
	if len(addresses) == 0 {
		return nil, nil
	}
	return &addresses[0], nil
}

func (r *AddressRepository) Create(address *models.Address) error {
	return r.db.Create(address).Error
}

func (r *AddressRepository) Save(address *models.Address) error {
	return r.db.Save(address).Error
}

func (r *AddressRepository) Delete(id uint) error {
	return r.db.Delete(&models.Address{}, id).Error
}

// CountInvoices counts invoices referencing the address in the given role only.
func (r *AddressRepository) CountInvoices(role models.AddressRole, id uint, excludeInvoiceID string) (int64, error) {
	query := r.db.Model(&models.Invoice{}).Where(role.Column()+" = ?", id)
	if excludeInvoiceID != "" {
		query = query.Where("id <> ?", excludeInvoiceID)
	}

	var count int64
	err := query.Count(&count).Error
	return count, err
}
