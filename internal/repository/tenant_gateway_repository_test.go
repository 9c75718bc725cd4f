package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/bluewater-shop/storefront/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func openRepositoryTestDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.TenantGateway{}, &models.PaymentWebhookEvent{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return db
}

func createTenantGateway(t *testing.T, repo *GormTenantGatewayRepository, row models.TenantGateway) models.TenantGateway {
	t.Helper()
	if err := repo.Create(&row); err != nil {
		t.Fatalf("create tenant gateway failed: %v", err)
	}
	return row
}

func TestTenantGatewayRepositoryListOrdersEnabledByDisplayOrder(t *testing.T) {
	repo := NewTenantGatewayRepository(openRepositoryTestDB(t, "tenant_gateway_list"))
	createTenantGateway(t, repo, models.TenantGateway{TenantID: "t1", GatewayCode: "stripe", IsEnabled: true, DisplayOrder: 2})
	createTenantGateway(t, repo, models.TenantGateway{TenantID: "t1", GatewayCode: "payfast", IsEnabled: true, DisplayOrder: 1})
	disabled := createTenantGateway(t, repo, models.TenantGateway{TenantID: "t1", GatewayCode: "yoco", IsEnabled: true, DisplayOrder: 0})
	disabled.IsEnabled = false
	if err := repo.Update(&disabled); err != nil {
		t.Fatalf("disable yoco failed: %v", err)
	}
	createTenantGateway(t, repo, models.TenantGateway{TenantID: "t2", GatewayCode: "peach", IsEnabled: true})

	rows, err := repo.ListByTenant("t1", TenantGatewayListFilter{EnabledOnly: true})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(rows) != 2 || rows[0].GatewayCode != "payfast" || rows[1].GatewayCode != "stripe" {
		t.Fatalf("unexpected rows: %+v", rows)
	}

	all, err := repo.ListByTenant("t1", TenantGatewayListFilter{})
	if err != nil {
		t.Fatalf("list all failed: %v", err)
	}
	if len(all) != 3 || all[0].GatewayCode != "yoco" {
		t.Fatalf("unexpected all rows: %+v", all)
	}
}

func TestTenantGatewayRepositoryMissingRowsReturnNil(t *testing.T) {
	repo := NewTenantGatewayRepository(openRepositoryTestDB(t, "tenant_gateway_nil"))
	row, err := repo.GetEnabledByTenantCode("t1", "payfast")
	if err != nil || row != nil {
		t.Fatalf("expected nil row, got %+v %v", row, err)
	}
	row, err = repo.GetDefaultEnabled("t1")
	if err != nil || row != nil {
		t.Fatalf("expected nil default, got %+v %v", row, err)
	}
}

func TestTenantGatewayRepositoryDefaultAndCredentials(t *testing.T) {
	repo := NewTenantGatewayRepository(openRepositoryTestDB(t, "tenant_gateway_default"))
	first := createTenantGateway(t, repo, models.TenantGateway{TenantID: "t1", GatewayCode: "payfast", IsEnabled: true, IsDefault: true,
		Credentials: models.JSONFromStrings(map[string]string{"merchant_id": "10000100", "merchant_key": " 46f0cd694581a "})})
	second := createTenantGateway(t, repo, models.TenantGateway{TenantID: "t1", GatewayCode: "stripe", IsEnabled: true, IsDefault: true})

	if err := repo.ClearDefault("t1", second.ID); err != nil {
		t.Fatalf("clear default failed: %v", err)
	}
	row, err := repo.GetDefaultEnabled("t1")
	if err != nil || row == nil || row.ID != second.ID {
		t.Fatalf("expected stripe default, got %+v %v", row, err)
	}

	stored, err := repo.GetByTenantCode("t1", "payfast")
	if err != nil || stored == nil {
		t.Fatalf("get payfast failed: %+v %v", stored, err)
	}
	if stored.ID != first.ID || stored.IsDefault {
		t.Fatalf("payfast default not cleared: %+v", stored)
	}
	creds := stored.Credentials.StringMap()
	if creds["merchant_key"] != "46f0cd694581a" || creds["merchant_id"] != "10000100" {
		t.Fatalf("unexpected credentials: %v", creds)
	}
}

func TestTenantGatewayRepositoryDeleteAllowsRecreate(t *testing.T) {
	repo := NewTenantGatewayRepository(openRepositoryTestDB(t, "tenant_gateway_delete"))
	createTenantGateway(t, repo, models.TenantGateway{TenantID: "t1", GatewayCode: "yoco", IsEnabled: true})

	deleted, err := repo.DeleteByTenantCode("t1", "yoco")
	if err != nil || !deleted {
		t.Fatalf("expected delete, got %v %v", deleted, err)
	}
	deleted, err = repo.DeleteByTenantCode("t1", "yoco")
	if err != nil || deleted {
		t.Fatalf("expected no-op delete, got %v %v", deleted, err)
	}
	createTenantGateway(t, repo, models.TenantGateway{TenantID: "t1", GatewayCode: "yoco", IsEnabled: true})
}

func TestTenantGatewayRepositoryUniquePerTenantCode(t *testing.T) {
	repo := NewTenantGatewayRepository(openRepositoryTestDB(t, "tenant_gateway_unique"))
	createTenantGateway(t, repo, models.TenantGateway{TenantID: "t1", GatewayCode: "peach", IsEnabled: true})
	dup := models.TenantGateway{TenantID: "t1", GatewayCode: "peach", IsEnabled: true}
	if err := repo.Create(&dup); err == nil {
		t.Fatalf("expected unique violation")
	}
}

func TestPaymentWebhookEventRepositoryCreateIfAbsent(t *testing.T) {
	repo := NewPaymentWebhookEventRepository(openRepositoryTestDB(t, "webhook_event"))
	now := time.Now().UTC().Truncate(time.Second)
	event := models.PaymentWebhookEvent{
		TenantID:    "t1",
		GatewayCode: "yoco",
		DedupKey:    "t1:yoco:ch_1:PAID",
		PaymentID:   "ch_1",
		OrderID:     "ORD-1",
		Status:      "PAID",
		Amount:      models.NewMoneyFromDecimal(decimal.RequireFromString("1500.00")),
		Trust:       "verified",
		RawData:     models.JSON{"type": "payment.succeeded"},
		ReceivedAt:  now,
	}
	created, err := repo.CreateIfAbsent(&event)
	if err != nil || !created {
		t.Fatalf("expected first insert, got %v %v", created, err)
	}
	replay := event
	replay.ID = 0
	created, err = repo.CreateIfAbsent(&replay)
	if err != nil || created {
		t.Fatalf("expected duplicate skip, got %v %v", created, err)
	}

	stored, err := repo.GetByDedupKey("t1:yoco:ch_1:PAID")
	if err != nil || stored == nil {
		t.Fatalf("get by dedup key failed: %+v %v", stored, err)
	}
	if !stored.Amount.Equal(decimal.RequireFromString("1500")) || stored.RawData["type"] != "payment.succeeded" {
		t.Fatalf("unexpected stored event: %+v", stored)
	}

	events, total, err := repo.List(PaymentWebhookEventListFilter{TenantID: "t1", Page: 1, PageSize: 10})
	if err != nil || total != 1 || len(events) != 1 {
		t.Fatalf("unexpected list: %d %d %v", total, len(events), err)
	}
}

func TestPaymentWebhookEventRepositoryKeywordSearch(t *testing.T) {
	repo := NewPaymentWebhookEventRepository(openRepositoryTestDB(t, "webhook_keyword"))
	now := time.Now().UTC()
	for i, item := range []struct {
		paymentID string
		eventType string
	}{
		{paymentID: "ch_1", eventType: "payment.succeeded"},
		{paymentID: "cs_2", eventType: "checkout.session.completed"},
	} {
		event := models.PaymentWebhookEvent{
			TenantID:    "t1",
			GatewayCode: "yoco",
			DedupKey:    fmt.Sprintf("t1:yoco:%s:PAID", item.paymentID),
			PaymentID:   item.paymentID,
			OrderID:     fmt.Sprintf("ORD-%d", i),
			Status:      "PAID",
			Trust:       "verified",
			RawData:     models.JSON{"type": item.eventType},
			ReceivedAt:  now,
		}
		if _, err := repo.CreateIfAbsent(&event); err != nil {
			t.Fatalf("create event failed: %v", err)
		}
	}

	events, total, err := repo.List(PaymentWebhookEventListFilter{TenantID: "t1", Keyword: "cs_2"})
	if err != nil || total != 1 || events[0].PaymentID != "cs_2" {
		t.Fatalf("payment id search failed: %d %v", total, err)
	}
	events, total, err = repo.List(PaymentWebhookEventListFilter{TenantID: "t1", Keyword: "session.completed"})
	if err != nil || total != 1 || events[0].PaymentID != "cs_2" {
		t.Fatalf("raw data search failed: %d %v", total, err)
	}
}
