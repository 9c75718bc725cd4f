package payment

import (
	"sort"

	"github.com/bluewater-shop/storefront/internal/payment/gateway"
	"github.com/bluewater-shop/storefront/internal/payment/ikhokha"
	"github.com/bluewater-shop/storefront/internal/payment/payfast"
	"github.com/bluewater-shop/storefront/internal/payment/peach"
	"github.com/bluewater-shop/storefront/internal/payment/stripe"
	"github.com/bluewater-shop/storefront/internal/payment/yoco"
)

// GatewayInfo is the static metadata an admin UI needs to configure a gateway.
type GatewayInfo struct {
	Code                  gateway.Code              `json:"code"`
	DisplayName           string                    `json:"display_name"`
	Description           string                    `json:"description"`
	Currencies            []string                  `json:"currencies"`
	CredentialFields      []gateway.CredentialField `json:"credential_fields"`
	SupportsRefunds       bool                      `json:"supports_refunds"`
	SupportsStatusPolling bool                      `json:"supports_status_polling"`
	SignedWebhooks        bool                      `json:"signed_webhooks"`
	AmountUnit            gateway.AmountUnit        `json:"amount_unit"`
}

var gatewayInfo = map[gateway.Code]GatewayInfo{
	gateway.CodePayFast: {
		DisplayName:           "PayFast",
		Description:           "South African hosted payment page supporting cards, Instant EFT, SnapScan and Zapper.",
		Currencies:            payfast.Currencies,
		SupportsRefunds:       false,
		SupportsStatusPolling: false,
		SignedWebhooks:        true,
		AmountUnit:            gateway.AmountUnitMajor,
	},
	gateway.CodeYoco: {
		DisplayName:           "Yoco",
		Description:           "Card payments through Yoco online checkout.",
		Currencies:            yoco.Currencies,
		SupportsRefunds:       false,
		SupportsStatusPolling: true,
		SignedWebhooks:        true,
		AmountUnit:            gateway.AmountUnitMinor,
	},
	gateway.CodePeach: {
		DisplayName:           "Peach Payments",
		Description:           "Cards and alternative payment methods through the Peach Payments widget.",
		Currencies:            peach.Currencies,
		SupportsRefunds:       true,
		SupportsStatusPolling: true,
		SignedWebhooks:        false,
		AmountUnit:            gateway.AmountUnitMajor,
	},
	gateway.CodeIKhokha: {
		DisplayName:           "iKhokha",
		Description:           "iK Pay payment links for card payments.",
		Currencies:            ikhokha.Currencies,
		SupportsRefunds:       false,
		SupportsStatusPolling: true,
		SignedWebhooks:        true,
		AmountUnit:            gateway.AmountUnitMinor,
	},
	gateway.CodeStripe: {
		DisplayName:           "Stripe",
		Description:           "International card payments through Stripe Checkout.",
		Currencies:            stripe.Currencies,
		SupportsRefunds:       true,
		SupportsStatusPolling: true,
		SignedWebhooks:        true,
		AmountUnit:            gateway.AmountUnitMinor,
	},
}

// Info returns the metadata for one gateway code.
func Info(code string) (GatewayInfo, error) {
	parsed, err := gateway.ParseCode(code)
	if err != nil {
		return GatewayInfo{}, err
	}
	return infoFor(parsed), nil
}

// AllInfo returns metadata for every supported gateway in display order.
func AllInfo() []GatewayInfo {
	codes := gateway.AllCodes()
	out := make([]GatewayInfo, 0, len(codes))
	for _, code := range codes {
		out = append(out, infoFor(code))
	}
	return out
}

func infoFor(code gateway.Code) GatewayInfo {
	info := gatewayInfo[code]
	info.Code = code
	info.Currencies = append([]string(nil), info.Currencies...)
	info.CredentialFields = gateway.CredentialFields(code)
	return info
}

// CredentialValidation reports whether stored credentials are complete.
type CredentialValidation struct {
	Valid         bool     `json:"valid"`
	MissingFields []string `json:"missing_fields"`
}

// ValidateCredentials checks that every required field is present and not
// blank. It gates admin saves before any adapter is built.
func ValidateCredentials(code string, credentials map[string]string) (CredentialValidation, error) {
	parsed, err := gateway.ParseCode(code)
	if err != nil {
		return CredentialValidation{}, err
	}
	missing := gateway.MissingCredentialFields(parsed, credentials)
	sort.Strings(missing)
	return CredentialValidation{Valid: len(missing) == 0, MissingFields: missing}, nil
}
