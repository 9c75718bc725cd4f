package payment

import (
	"errors"
	"testing"

	"github.com/bluewater-shop/storefront/internal/payment/gateway"
	"github.com/bluewater-shop/storefront/internal/payment/payfast"
)

func validCredentials() map[gateway.Code]map[string]string {
	return map[gateway.Code]map[string]string{
		gateway.CodePayFast: {"merchant_id": "10000100", "merchant_key": "46f0cd694581a", "passphrase": "jt7NOE43FZPn"},
		gateway.CodeYoco:    {"secret_key": "sk_test", "webhook_secret": "whsec"},
		gateway.CodePeach:   {"entity_id": "8ac7a4ca", "access_token": "token"},
		gateway.CodeIKhokha: {"application_id": "IKAPP01", "application_secret": "secret"},
		gateway.CodeStripe:  {"secret_key": "sk_test", "publishable_key": "pk_test", "webhook_secret": "whsec"},
	}
}

func TestCreateGatewayEveryCode(t *testing.T) {
	for code, creds := range validCredentials() {
		g, err := CreateGateway(string(code), GatewayConfig{Credentials: creds})
		if err != nil {
			t.Fatalf("create %s failed: %v", code, err)
		}
		if g.Code() != code {
			t.Fatalf("expected code %s, got %s", code, g.Code())
		}
	}
}

func TestCreateGatewayPayFast(t *testing.T) {
	g, err := CreateGateway("payfast", GatewayConfig{Credentials: validCredentials()[gateway.CodePayFast], IsSandbox: true})
	if err != nil {
		t.Fatalf("create payfast failed: %v", err)
	}
	pf, ok := g.(*payfast.Gateway)
	if !ok {
		t.Fatalf("expected payfast adapter, got %T", g)
	}
	if pf.ProcessURL() != "https://sandbox.payfast.co.za/eng/process" {
		t.Fatalf("sandbox flag not applied: %s", pf.ProcessURL())
	}
}

func TestCreateGatewayUnknownCode(t *testing.T) {
	_, err := CreateGateway("unknown-code", GatewayConfig{Credentials: map[string]string{"secret_key": "x"}})
	if err == nil {
		t.Fatalf("expected unknown gateway error")
	}
	var unknown *gateway.UnknownGatewayError
	if !errors.As(err, &unknown) || unknown.Code != "unknown-code" {
		t.Fatalf("expected UnknownGatewayError, got %v", err)
	}
}

func TestCreateGatewayMissingCredentials(t *testing.T) {
	_, err := CreateGateway("stripe", GatewayConfig{Credentials: map[string]string{"secret_key": "sk_test"}})
	if !errors.Is(err, gateway.ErrCredentialsInvalid) {
		t.Fatalf("expected credentials invalid, got %v", err)
	}
}

func TestBuildRejectsMismatchedCredentials(t *testing.T) {
	f := NewFactory(FactoryOptions{})
	_, err := f.Build(gateway.Config{Code: gateway.CodeStripe, Credentials: gateway.YocoCredentials{SecretKey: "sk"}})
	if !errors.Is(err, gateway.ErrCredentialsInvalid) {
		t.Fatalf("expected credentials invalid, got %v", err)
	}
}

func TestAllInfo(t *testing.T) {
	infos := AllInfo()
	if len(infos) != 5 {
		t.Fatalf("expected 5 gateways, got %d", len(infos))
	}
	if infos[0].Code != gateway.CodePayFast || infos[0].DisplayName != "PayFast" {
		t.Fatalf("unexpected first gateway: %+v", infos[0])
	}
	for _, info := range infos {
		if len(info.Currencies) == 0 || len(info.CredentialFields) == 0 {
			t.Fatalf("incomplete info for %s: %+v", info.Code, info)
		}
	}
}

func TestInfoCredentialFieldTypes(t *testing.T) {
	info, err := Info("stripe")
	if err != nil {
		t.Fatalf("info failed: %v", err)
	}
	types := map[string]gateway.FieldType{}
	for _, field := range info.CredentialFields {
		types[field.Key] = field.Type
	}
	if types["secret_key"] != gateway.FieldPassword || types["publishable_key"] != gateway.FieldText {
		t.Fatalf("unexpected field types: %v", types)
	}
	if info.AmountUnit != gateway.AmountUnitMinor || !info.SupportsRefunds {
		t.Fatalf("unexpected stripe info: %+v", info)
	}
	if _, err := Info("venmo"); !errors.Is(err, gateway.ErrUnknownGateway) {
		t.Fatalf("expected unknown gateway, got %v", err)
	}
}

func TestInfoAmountUnitMatchesAdapters(t *testing.T) {
	for code, creds := range validCredentials() {
		g, err := CreateGateway(string(code), GatewayConfig{Credentials: creds})
		if err != nil {
			t.Fatalf("create %s failed: %v", code, err)
		}
		info, _ := Info(string(code))
		switch g.(type) {
		case gateway.MinorUnitGateway:
			if info.AmountUnit != gateway.AmountUnitMinor {
				t.Fatalf("%s adapter uses minor units but info says %s", code, info.AmountUnit)
			}
		case gateway.MajorUnitGateway:
			if info.AmountUnit != gateway.AmountUnitMajor {
				t.Fatalf("%s adapter uses major units but info says %s", code, info.AmountUnit)
			}
		default:
			t.Fatalf("%s adapter declares no amount unit", code)
		}
	}
}

func TestValidateCredentials(t *testing.T) {
	result, err := ValidateCredentials("payfast", map[string]string{"merchant_id": "10000100", "merchant_key": " "})
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if result.Valid || len(result.MissingFields) != 1 || result.MissingFields[0] != "merchant_key" {
		t.Fatalf("unexpected validation: %+v", result)
	}

	result, err = ValidateCredentials("peach", validCredentials()[gateway.CodePeach])
	if err != nil || !result.Valid || len(result.MissingFields) != 0 {
		t.Fatalf("expected valid peach credentials, got %+v %v", result, err)
	}

	if _, err := ValidateCredentials("bogus", nil); !errors.Is(err, gateway.ErrUnknownGateway) {
		t.Fatalf("expected unknown gateway, got %v", err)
	}
}
