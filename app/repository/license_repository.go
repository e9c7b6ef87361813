package repository

import (
	"strings"

	"github.com/tradeforgehq/tradeforge/app/models"
	"gorm.io/gorm"
)

// licenseRepository implements the LicenseRepository interface
type licenseRepository struct {
	db *gorm.DB
}

// NewLicenseRepository creates a new license repository instance
func NewLicenseRepository(db *gorm.DB) LicenseRepository {
	return &licenseRepository{db: db}
}

func (r *licenseRepository) GetByKey(key string) (*models.License, error) {
	var lic models.License
	err := r.db.Where("license_key = ?", strings.TrimSpace(key)).First(&lic).Error
	if err != nil {
		return nil, err
	}
	return &lic, nil
}

func (r *licenseRepository) GetByEmail(email string) ([]models.License, error) {
	var lics []models.License
	err := r.db.Where("email = ?", strings.TrimSpace(email)).
		Order("created_at DESC").
		Find(&lics).Error
	return lics, err
}

func (r *licenseRepository) List(offset, limit int) ([]models.License, error) {
	var lics []models.License
	err := r.db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&lics).Error
	return lics, err
}

func (r *licenseRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.License{}).Count(&count).Error
	return count, err
}

func (r *licenseRepository) Search(query string) ([]models.License, error) {
	var lics []models.License
	q := "%" + strings.TrimSpace(query) + "%"
	err := r.db.
		Where("license_key LIKE ? OR email LIKE ? OR subscription_reference LIKE ?", q, q, q).
		Order("created_at DESC").
		Limit(100).
		Find(&lics).Error
	return lics, err
}

// Revoke marks a license revoked. Rows are never deleted; revocation is the
// admin-side terminal state.
func (r *licenseRepository) Revoke(key string) error {
	tx := r.db.Model(&models.License{}).
		Where("license_key = ?", strings.TrimSpace(key)).
		Update("status", models.LicenseStatusRevoked)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
