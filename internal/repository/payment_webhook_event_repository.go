package repository

import (
	"errors"
	"strings"

	"github.com/bluewater-shop/storefront/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PaymentWebhookEventRepository stores verified webhook deliveries.
type PaymentWebhookEventRepository interface {
	// CreateIfAbsent inserts event unless its dedup key already exists.
	CreateIfAbsent(event *models.PaymentWebhookEvent) (bool, error)
	GetByDedupKey(key string) (*models.PaymentWebhookEvent, error)
	GetByID(id uint) (*models.PaymentWebhookEvent, error)
	List(filter PaymentWebhookEventListFilter) ([]models.PaymentWebhookEvent, int64, error)
	WithTx(tx *gorm.DB) PaymentWebhookEventRepository
}

// GormPaymentWebhookEventRepository is the GORM implementation.
type GormPaymentWebhookEventRepository struct {
	db *gorm.DB
}

// NewPaymentWebhookEventRepository creates the repository.
func NewPaymentWebhookEventRepository(db *gorm.DB) *GormPaymentWebhookEventRepository {
	return &GormPaymentWebhookEventRepository{db: db}
}

// WithTx binds a transaction.
func (r *GormPaymentWebhookEventRepository) WithTx(tx *gorm.DB) PaymentWebhookEventRepository {
	if tx == nil {
		return r
	}
	return &GormPaymentWebhookEventRepository{db: tx}
}

// CreateIfAbsent relies on the unique dedup_key index; a conflicting insert
// affects zero rows.
func (r *GormPaymentWebhookEventRepository) CreateIfAbsent(event *models.PaymentWebhookEvent) (bool, error) {
	if event == nil {
		return false, nil
	}
	result := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "dedup_key"}},
		DoNothing: true,
	}).Create(event)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// GetByDedupKey returns the stored event, or nil.
func (r *GormPaymentWebhookEventRepository) GetByDedupKey(key string) (*models.PaymentWebhookEvent, error) {
	var event models.PaymentWebhookEvent
	if err := r.db.Where("dedup_key = ?", strings.TrimSpace(key)).First(&event).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}

// GetByID returns the event, or nil.
func (r *GormPaymentWebhookEventRepository) GetByID(id uint) (*models.PaymentWebhookEvent, error) {
	var event models.PaymentWebhookEvent
	if err := r.db.First(&event, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}

// List returns events newest first.
func (r *GormPaymentWebhookEventRepository) List(filter PaymentWebhookEventListFilter) ([]models.PaymentWebhookEvent, int64, error) {
	query := r.db.Model(&models.PaymentWebhookEvent{})
	if filter.TenantID != "" {
		query = query.Where("tenant_id = ?", filter.TenantID)
	}
	if filter.GatewayCode != "" {
		query = query.Where("gateway_code = ?", filter.GatewayCode)
	}
	if filter.OrderID != "" {
		query = query.Where("order_id = ?", filter.OrderID)
	}
	if keyword := strings.TrimSpace(filter.Keyword); keyword != "" {
		condition, argCount := buildKeywordCondition(r.db, []string{"payment_id", "order_id"}, []string{"raw_data"})
		query = query.Where(condition, repeatLikeArgs(containsPattern(keyword), argCount)...)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("received_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("received_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var events []models.PaymentWebhookEvent
	if err := query.Order("received_at DESC, id DESC").Find(&events).Error; err != nil {
		return nil, 0, err
	}
	return events, total, nil
}
