package repository

import (
	"errors"
	"strings"

	"github.com/bluewater-shop/storefront/internal/models"

	"gorm.io/gorm"
)

// TenantGatewayRepository is the data access interface for tenant gateway configuration.
type TenantGatewayRepository interface {
	ListByTenant(tenantID string, filter TenantGatewayListFilter) ([]models.TenantGateway, error)
	GetByTenantCode(tenantID, code string) (*models.TenantGateway, error)
	GetEnabledByTenantCode(tenantID, code string) (*models.TenantGateway, error)
	GetDefaultEnabled(tenantID string) (*models.TenantGateway, error)
	Create(row *models.TenantGateway) error
	Update(row *models.TenantGateway) error
	DeleteByTenantCode(tenantID, code string) (bool, error)
	ClearDefault(tenantID string, exceptID uint) error
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) TenantGatewayRepository
}

// GormTenantGatewayRepository is the GORM implementation.
type GormTenantGatewayRepository struct {
	db *gorm.DB
}

// NewTenantGatewayRepository creates the repository.
func NewTenantGatewayRepository(db *gorm.DB) *GormTenantGatewayRepository {
	return &GormTenantGatewayRepository{db: db}
}

// WithTx binds a transaction.
func (r *GormTenantGatewayRepository) WithTx(tx *gorm.DB) TenantGatewayRepository {
	if tx == nil {
		return r
	}
	return &GormTenantGatewayRepository{db: tx}
}

// Transaction runs fn inside a transaction.
func (r *GormTenantGatewayRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// ListByTenant lists a tenant's gateways ordered for checkout display.
func (r *GormTenantGatewayRepository) ListByTenant(tenantID string, filter TenantGatewayListFilter) ([]models.TenantGateway, error) {
	query := r.db.Model(&models.TenantGateway{}).Where("tenant_id = ?", strings.TrimSpace(tenantID))
	if filter.EnabledOnly {
		query = query.Where("is_enabled = ?", true)
	}
	var rows []models.TenantGateway
	if err := query.Order("display_order ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// GetByTenantCode returns the row regardless of its enabled flag.
func (r *GormTenantGatewayRepository) GetByTenantCode(tenantID, code string) (*models.TenantGateway, error) {
	return r.first(r.db.Where("tenant_id = ? AND gateway_code = ?", strings.TrimSpace(tenantID), strings.TrimSpace(code)))
}

// GetEnabledByTenantCode returns the enabled row, or nil when none exists.
func (r *GormTenantGatewayRepository) GetEnabledByTenantCode(tenantID, code string) (*models.TenantGateway, error) {
	return r.first(r.db.Where("tenant_id = ? AND gateway_code = ? AND is_enabled = ?", strings.TrimSpace(tenantID), strings.TrimSpace(code), true))
}

// GetDefaultEnabled returns the tenant's enabled default gateway, or nil.
func (r *GormTenantGatewayRepository) GetDefaultEnabled(tenantID string) (*models.TenantGateway, error) {
	return r.first(r.db.Where("tenant_id = ? AND is_default = ? AND is_enabled = ?", strings.TrimSpace(tenantID), true, true).Order("id ASC"))
}

func (r *GormTenantGatewayRepository) first(query *gorm.DB) (*models.TenantGateway, error) {
	var row models.TenantGateway
	if err := query.First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// Create inserts a row.
func (r *GormTenantGatewayRepository) Create(row *models.TenantGateway) error {
	return r.db.Create(row).Error
}

// Update saves every column of row.
func (r *GormTenantGatewayRepository) Update(row *models.TenantGateway) error {
	return r.db.Save(row).Error
}

// DeleteByTenantCode removes the row and reports whether one existed.
func (r *GormTenantGatewayRepository) DeleteByTenantCode(tenantID, code string) (bool, error) {
	result := r.db.Where("tenant_id = ? AND gateway_code = ?", strings.TrimSpace(tenantID), strings.TrimSpace(code)).Delete(&models.TenantGateway{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ClearDefault unsets the default flag on every row of the tenant except exceptID.
func (r *GormTenantGatewayRepository) ClearDefault(tenantID string, exceptID uint) error {
	query := r.db.Model(&models.TenantGateway{}).Where("tenant_id = ? AND is_default = ?", strings.TrimSpace(tenantID), true)
	if exceptID > 0 {
		query = query.Where("id <> ?", exceptID)
	}
	return query.Update("is_default", false).Error
}
