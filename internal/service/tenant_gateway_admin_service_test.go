package service

import (
	"context"
	"errors"
	"testing"

	"github.com/bluewater-shop/storefront/internal/models"
	"github.com/bluewater-shop/storefront/internal/repository"

	"gorm.io/gorm"
)

func newTestAdminService(t *testing.T) (*TenantGatewayAdminService, *gorm.DB) {
	t.Helper()
	db := setupTenantGatewayDB(t)
	paymentSvc := newTestTenantPaymentService(t, db, nil)
	return NewTenantGatewayAdminService(repository.NewTenantGatewayRepository(db), paymentSvc), db
}

func loadTenantGateway(t *testing.T, db *gorm.DB, tenantID, code string) models.TenantGateway {
	t.Helper()
	var row models.TenantGateway
	if err := db.Where("tenant_id = ? AND gateway_code = ?", tenantID, code).First(&row).Error; err != nil {
		t.Fatalf("load tenant gateway failed: %v", err)
	}
	return row
}

func payfastInput(tenantID string) SaveTenantGatewayInput {
	return SaveTenantGatewayInput{
		TenantID:    tenantID,
		GatewayCode: "payfast",
		Credentials: map[string]string{
			"merchant_id":  "10000100",
			"merchant_key": "46f0cd694581a",
			"passphrase":   "jt7NOE43FZPn",
		},
		IsEnabled: true,
	}
}

func TestSaveTenantGatewayFirstEnabledBecomesDefault(t *testing.T) {
	admin, _ := newTestAdminService(t)

	view, err := admin.SaveTenantGateway(context.Background(), payfastInput("t1"))
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if !view.IsDefault || !view.IsEnabled || view.DisplayName != "PayFast" {
		t.Fatalf("unexpected view: %+v", view)
	}
	if view.Credentials["merchant_id"] != "10000100" {
		t.Fatalf("text field should be shown: %v", view.Credentials)
	}
	if view.Credentials["merchant_key"] != "****581a" || view.Credentials["passphrase"] != "****FZPn" {
		t.Fatalf("password fields should be masked: %v", view.Credentials)
	}
}

func TestSaveTenantGatewayMaskedValuesKeepStoredSecret(t *testing.T) {
	admin, db := newTestAdminService(t)
	if _, err := admin.SaveTenantGateway(context.Background(), payfastInput("t1")); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	resubmit := payfastInput("t1")
	resubmit.Credentials = map[string]string{
		"merchant_id":  "10000200",
		"merchant_key": "****581a",
	}
	resubmit.IsSandbox = true
	if _, err := admin.SaveTenantGateway(context.Background(), resubmit); err != nil {
		t.Fatalf("resave failed: %v", err)
	}

	row := loadTenantGateway(t, db, "t1", "payfast")
	creds := row.Credentials.StringMap()
	if creds["merchant_id"] != "10000200" || creds["merchant_key"] != "46f0cd694581a" || creds["passphrase"] != "jt7NOE43FZPn" {
		t.Fatalf("unexpected stored credentials: %v", creds)
	}
	if !row.IsSandbox {
		t.Fatalf("sandbox flag should be updated")
	}
}

func TestSaveTenantGatewayBlankValueClearsOptionalField(t *testing.T) {
	admin, db := newTestAdminService(t)
	if _, err := admin.SaveTenantGateway(context.Background(), payfastInput("t1")); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	resubmit := payfastInput("t1")
	resubmit.Credentials = map[string]string{
		"merchant_id":  "10000100",
		"merchant_key": "****581a",
		"passphrase":   "",
	}
	if _, err := admin.SaveTenantGateway(context.Background(), resubmit); err != nil {
		t.Fatalf("resave failed: %v", err)
	}
	creds := loadTenantGateway(t, db, "t1", "payfast").Credentials.StringMap()
	if _, ok := creds["passphrase"]; ok {
		t.Fatalf("passphrase should be cleared, got %v", creds)
	}
	if creds["merchant_key"] != "46f0cd694581a" {
		t.Fatalf("masked merchant key should be kept, got %v", creds)
	}

	resubmit.Credentials = map[string]string{"merchant_id": "10000100", "merchant_key": ""}
	if _, err := admin.SaveTenantGateway(context.Background(), resubmit); !errors.Is(err, ErrGatewayCredentialsIncomplete) {
		t.Fatalf("clearing a required field should fail validation, got %v", err)
	}
}

func TestSaveTenantGatewayIncompleteCredentials(t *testing.T) {
	admin, _ := newTestAdminService(t)

	input := payfastInput("t1")
	delete(input.Credentials, "merchant_key")
	_, err := admin.SaveTenantGateway(context.Background(), input)
	if !errors.Is(err, ErrGatewayCredentialsIncomplete) {
		t.Fatalf("expected incomplete credentials, got %v", err)
	}
	var incomplete *CredentialsIncompleteError
	if !errors.As(err, &incomplete) || len(incomplete.MissingFields) != 1 || incomplete.MissingFields[0] != "merchant_key" {
		t.Fatalf("unexpected missing fields: %v", err)
	}
}

func TestSaveTenantGatewayRejectsDisabledDefault(t *testing.T) {
	admin, _ := newTestAdminService(t)

	input := payfastInput("t1")
	input.IsEnabled = false
	input.IsDefault = true
	if _, err := admin.SaveTenantGateway(context.Background(), input); !errors.Is(err, ErrDefaultGatewayDisabled) {
		t.Fatalf("expected disabled default error, got %v", err)
	}
}

func TestSaveTenantGatewayMovesDefault(t *testing.T) {
	admin, db := newTestAdminService(t)
	if _, err := admin.SaveTenantGateway(context.Background(), payfastInput("t1")); err != nil {
		t.Fatalf("save payfast failed: %v", err)
	}
	yoco := SaveTenantGatewayInput{
		TenantID:    "t1",
		GatewayCode: "yoco",
		Credentials: map[string]string{"secret_key": "sk_test_yoco", "webhook_secret": testYocoWebhookSecret},
		IsEnabled:   true,
		IsDefault:   true,
	}
	if _, err := admin.SaveTenantGateway(context.Background(), yoco); err != nil {
		t.Fatalf("save yoco failed: %v", err)
	}
	if loadTenantGateway(t, db, "t1", "payfast").IsDefault {
		t.Fatalf("payfast should no longer be default")
	}
	if !loadTenantGateway(t, db, "t1", "yoco").IsDefault {
		t.Fatalf("yoco should be default")
	}

	if err := admin.SetDefaultTenantGateway(context.Background(), "t1", "payfast"); err != nil {
		t.Fatalf("set default failed: %v", err)
	}
	if !loadTenantGateway(t, db, "t1", "payfast").IsDefault || loadTenantGateway(t, db, "t1", "yoco").IsDefault {
		t.Fatalf("default should move back to payfast")
	}
}

func TestDeleteDefaultPromotesNextGateway(t *testing.T) {
	admin, db := newTestAdminService(t)
	if _, err := admin.SaveTenantGateway(context.Background(), payfastInput("t1")); err != nil {
		t.Fatalf("save payfast failed: %v", err)
	}
	yoco := SaveTenantGatewayInput{
		TenantID:     "t1",
		GatewayCode:  "yoco",
		Credentials:  map[string]string{"secret_key": "sk_test_yoco", "webhook_secret": testYocoWebhookSecret},
		IsEnabled:    true,
		DisplayOrder: 1,
	}
	if _, err := admin.SaveTenantGateway(context.Background(), yoco); err != nil {
		t.Fatalf("save yoco failed: %v", err)
	}

	if err := admin.DeleteTenantGateway(context.Background(), "t1", "payfast"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if !loadTenantGateway(t, db, "t1", "yoco").IsDefault {
		t.Fatalf("yoco should be promoted to default")
	}
	if err := admin.DeleteTenantGateway(context.Background(), "t1", "payfast"); !errors.Is(err, ErrTenantGatewayNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	views, err := admin.ListTenantGatewayConfigs(context.Background(), "t1")
	if err != nil || len(views) != 1 || views[0].GatewayCode != "yoco" {
		t.Fatalf("unexpected listing: %+v %v", views, err)
	}
}

func TestSetDefaultRequiresEnabledGateway(t *testing.T) {
	admin, _ := newTestAdminService(t)
	input := payfastInput("t1")
	input.IsEnabled = false
	if _, err := admin.SaveTenantGateway(context.Background(), input); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := admin.SetDefaultTenantGateway(context.Background(), "t1", "payfast"); !errors.Is(err, ErrDefaultGatewayDisabled) {
		t.Fatalf("expected disabled default error, got %v", err)
	}
	if err := admin.SetDefaultTenantGateway(context.Background(), "t1", "stripe"); !errors.Is(err, ErrTenantGatewayNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMaskCredentialsShortSecret(t *testing.T) {
	masked := maskCredentials("ikhokha", map[string]string{"application_id": "app-1", "application_secret": "short"})
	if masked["application_id"] != "app-1" || masked["application_secret"] != "****" {
		t.Fatalf("unexpected mask: %v", masked)
	}
}
