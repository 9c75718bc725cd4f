package service

import (
	"context"
	"strings"
	"time"

	"github.com/bluewater-shop/storefront/internal/logger"
	"github.com/bluewater-shop/storefront/internal/models"
	"github.com/bluewater-shop/storefront/internal/payment"
	"github.com/bluewater-shop/storefront/internal/payment/gateway"
	"github.com/bluewater-shop/storefront/internal/repository"

	"gorm.io/gorm"
)

const credentialMask = "****"

// TenantGatewayAdminService manages tenant gateway configuration rows.
type TenantGatewayAdminService struct {
	repo       repository.TenantGatewayRepository
	paymentSvc *TenantPaymentService
}

// NewTenantGatewayAdminService creates the service. paymentSvc receives cache invalidations.
func NewTenantGatewayAdminService(repo repository.TenantGatewayRepository, paymentSvc *TenantPaymentService) *TenantGatewayAdminService {
	return &TenantGatewayAdminService{repo: repo, paymentSvc: paymentSvc}
}

// SaveTenantGatewayInput creates or replaces one tenant gateway row.
type SaveTenantGatewayInput struct {
	TenantID     string
	GatewayCode  string
	Credentials  map[string]string
	IsEnabled    bool
	IsDefault    bool
	IsSandbox    bool
	DisplayOrder int
	WebhookURL   string
}

// TenantGatewayView is an admin listing row with secrets masked.
type TenantGatewayView struct {
	ID           uint              `json:"id"`
	TenantID     string            `json:"tenant_id"`
	GatewayCode  gateway.Code      `json:"gateway_code"`
	DisplayName  string            `json:"display_name"`
	Credentials  map[string]string `json:"credentials"`
	IsEnabled    bool              `json:"is_enabled"`
	IsDefault    bool              `json:"is_default"`
	IsSandbox    bool              `json:"is_sandbox"`
	DisplayOrder int               `json:"display_order"`
	WebhookURL   string            `json:"webhook_url"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// SaveTenantGateway validates credentials and upserts by (tenant, code).
// Blank or masked credential values keep the stored secret, so admin forms
// can resubmit a listing unchanged.
func (s *TenantGatewayAdminService) SaveTenantGateway(ctx context.Context, input SaveTenantGatewayInput) (*TenantGatewayView, error) {
	tenantID := strings.TrimSpace(input.TenantID)
	if tenantID == "" {
		return nil, ErrTenantRequired
	}
	code, err := gateway.ParseCode(input.GatewayCode)
	if err != nil {
		return nil, err
	}
	if input.IsDefault && !input.IsEnabled {
		return nil, ErrDefaultGatewayDisabled
	}

	existing, err := s.repo.GetByTenantCode(tenantID, string(code))
	if err != nil {
		return nil, err
	}
	var stored map[string]string
	if existing != nil {
		stored = existing.Credentials.StringMap()
	}
	credentials := mergeCredentials(code, stored, input.Credentials)

	validation, err := payment.ValidateCredentials(string(code), credentials)
	if err != nil {
		return nil, err
	}
	if !validation.Valid {
		return nil, &CredentialsIncompleteError{GatewayCode: string(code), MissingFields: validation.MissingFields}
	}

	var saved models.TenantGateway
	err = s.repo.Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		row := existing
		if row == nil {
			row = &models.TenantGateway{TenantID: tenantID, GatewayCode: string(code)}
		}
		row.Credentials = models.JSONFromStrings(credentials)
		row.IsEnabled = input.IsEnabled
		row.IsDefault = input.IsDefault
		row.IsSandbox = input.IsSandbox
		row.DisplayOrder = input.DisplayOrder
		row.WebhookURL = strings.TrimSpace(input.WebhookURL)
		if !row.IsEnabled {
			row.IsDefault = false
		}

		if row.ID == 0 {
			if err := repo.Create(row); err != nil {
				return err
			}
		} else if err := repo.Update(row); err != nil {
			return err
		}
		if row.IsDefault {
			if err := repo.ClearDefault(tenantID, row.ID); err != nil {
				return err
			}
		}
		if err := ensureDefaultGateway(repo, tenantID); err != nil {
			return err
		}
		reloaded, err := repo.GetByTenantCode(tenantID, string(code))
		if err != nil {
			return err
		}
		if reloaded != nil {
			saved = *reloaded
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, tenantID)
	logger.Infow("tenant_gateway_saved", "tenant_id", tenantID, "gateway_code", code, "is_enabled", saved.IsEnabled, "is_default", saved.IsDefault, "is_sandbox", saved.IsSandbox)
	view := toTenantGatewayView(saved)
	return &view, nil
}

// ListTenantGatewayConfigs lists every row of the tenant, enabled or not.
func (s *TenantGatewayAdminService) ListTenantGatewayConfigs(ctx context.Context, tenantID string) ([]TenantGatewayView, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, ErrTenantRequired
	}
	rows, err := s.repo.ListByTenant(tenantID, repository.TenantGatewayListFilter{})
	if err != nil {
		return nil, err
	}
	views := make([]TenantGatewayView, 0, len(rows))
	for _, row := range rows {
		views = append(views, toTenantGatewayView(row))
	}
	return views, nil
}

// DeleteTenantGateway removes a row. Deleting the default promotes the next enabled gateway.
func (s *TenantGatewayAdminService) DeleteTenantGateway(ctx context.Context, tenantID, code string) error {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return ErrTenantRequired
	}
	parsed, err := gateway.ParseCode(code)
	if err != nil {
		return err
	}
	err = s.repo.Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		deleted, err := repo.DeleteByTenantCode(tenantID, string(parsed))
		if err != nil {
			return err
		}
		if !deleted {
			return ErrTenantGatewayNotFound
		}
		return ensureDefaultGateway(repo, tenantID)
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx, tenantID)
	logger.Infow("tenant_gateway_deleted", "tenant_id", tenantID, "gateway_code", parsed)
	return nil
}

// SetDefaultTenantGateway marks one enabled gateway as the tenant default.
func (s *TenantGatewayAdminService) SetDefaultTenantGateway(ctx context.Context, tenantID, code string) error {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return ErrTenantRequired
	}
	parsed, err := gateway.ParseCode(code)
	if err != nil {
		return err
	}
	err = s.repo.Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		row, err := repo.GetByTenantCode(tenantID, string(parsed))
		if err != nil {
			return err
		}
		if row == nil {
			return ErrTenantGatewayNotFound
		}
		if !row.IsEnabled {
			return ErrDefaultGatewayDisabled
		}
		row.IsDefault = true
		if err := repo.Update(row); err != nil {
			return err
		}
		return repo.ClearDefault(tenantID, row.ID)
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx, tenantID)
	return nil
}

func (s *TenantGatewayAdminService) invalidate(ctx context.Context, tenantID string) {
	if s.paymentSvc != nil {
		s.paymentSvc.InvalidateTenantGateways(ctx, tenantID)
	}
}

// ensureDefaultGateway promotes the first enabled gateway when the tenant has
// enabled gateways but no enabled default.
func ensureDefaultGateway(repo repository.TenantGatewayRepository, tenantID string) error {
	current, err := repo.GetDefaultEnabled(tenantID)
	if err != nil || current != nil {
		return err
	}
	rows, err := repo.ListByTenant(tenantID, repository.TenantGatewayListFilter{EnabledOnly: true})
	if err != nil || len(rows) == 0 {
		return err
	}
	first := rows[0]
	first.IsDefault = true
	if err := repo.Update(&first); err != nil {
		return err
	}
	return repo.ClearDefault(tenantID, first.ID)
}

func mergeCredentials(code gateway.Code, stored, submitted map[string]string) map[string]string {
	merged := make(map[string]string)
	for _, field := range gateway.CredentialFields(code) {
		raw, present := submitted[field.Key]
		value := strings.TrimSpace(raw)
		if !present || strings.HasPrefix(value, credentialMask) {
			value = strings.TrimSpace(stored[field.Key])
		}
		if value != "" {
			merged[field.Key] = value
		}
	}
	return merged
}

func toTenantGatewayView(row models.TenantGateway) TenantGatewayView {
	code := gateway.Code(row.GatewayCode)
	info, _ := payment.Info(row.GatewayCode)
	return TenantGatewayView{
		ID:           row.ID,
		TenantID:     row.TenantID,
		GatewayCode:  code,
		DisplayName:  info.DisplayName,
		Credentials:  maskCredentials(code, row.Credentials.StringMap()),
		IsEnabled:    row.IsEnabled,
		IsDefault:    row.IsDefault,
		IsSandbox:    row.IsSandbox,
		DisplayOrder: row.DisplayOrder,
		WebhookURL:   row.WebhookURL,
		UpdatedAt:    row.UpdatedAt,
	}
}

// maskCredentials hides password fields, keeping the last four characters of long secrets.
func maskCredentials(code gateway.Code, credentials map[string]string) map[string]string {
	out := make(map[string]string, len(credentials))
	for _, field := range gateway.CredentialFields(code) {
		value, ok := credentials[field.Key]
		if !ok || value == "" {
			continue
		}
		if field.Type != gateway.FieldPassword {
			out[field.Key] = value
			continue
		}
		runes := []rune(value)
		if len(runes) > 8 {
			out[field.Key] = credentialMask + string(runes[len(runes)-4:])
		} else {
			out[field.Key] = credentialMask
		}
	}
	return out
}
