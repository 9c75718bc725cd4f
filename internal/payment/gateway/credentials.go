package gateway

import (
	"fmt"
	"sort"
	"strings"
)

// Credentials is the sealed union of per-gateway credential shapes.
type Credentials interface {
	GatewayCode() Code
	sealed()
}

// PayFastCredentials authenticate a PayFast merchant. Passphrase is optional
// but, when set on the merchant account, must be included in every signature.
type PayFastCredentials struct {
	MerchantID  string
	MerchantKey string
	Passphrase  string
}

// YocoCredentials authenticate the Yoco checkout API and its webhooks.
type YocoCredentials struct {
	SecretKey     string
	PublicKey     string
	WebhookSecret string
}

// PeachCredentials authenticate the Peach Payments (OPPWA) API.
type PeachCredentials struct {
	EntityID    string
	AccessToken string
}

// IKhokhaCredentials authenticate the iKhokha iK Pay API.
type IKhokhaCredentials struct {
	ApplicationID     string
	ApplicationSecret string
}

// StripeCredentials authenticate the Stripe API and its webhooks.
type StripeCredentials struct {
	SecretKey      string
	PublishableKey string
	WebhookSecret  string
}

func (PayFastCredentials) GatewayCode() Code { return CodePayFast }
func (YocoCredentials) GatewayCode() Code    { return CodeYoco }
func (PeachCredentials) GatewayCode() Code   { return CodePeach }
func (IKhokhaCredentials) GatewayCode() Code { return CodeIKhokha }
func (StripeCredentials) GatewayCode() Code  { return CodeStripe }

func (PayFastCredentials) sealed() {}
func (YocoCredentials) sealed()    {}
func (PeachCredentials) sealed()   {}
func (IKhokhaCredentials) sealed() {}
func (StripeCredentials) sealed()  {}

// FieldType controls how an admin form renders a credential input.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldPassword FieldType = "password"
)

// CredentialField describes one stored credential key.
type CredentialField struct {
	Key      string    `json:"key"`
	Label    string    `json:"label"`
	Type     FieldType `json:"type"`
	Required bool      `json:"required"`
}

var credentialFields = map[Code][]CredentialField{
	CodePayFast: {
		{Key: "merchant_id", Label: "Merchant ID", Type: FieldText, Required: true},
		{Key: "merchant_key", Label: "Merchant Key", Type: FieldPassword, Required: true},
		{Key: "passphrase", Label: "Passphrase", Type: FieldPassword, Required: false},
	},
	CodeYoco: {
		{Key: "secret_key", Label: "Secret Key", Type: FieldPassword, Required: true},
		{Key: "public_key", Label: "Public Key", Type: FieldText, Required: false},
		{Key: "webhook_secret", Label: "Webhook Secret", Type: FieldPassword, Required: true},
	},
	CodePeach: {
		{Key: "entity_id", Label: "Entity ID", Type: FieldText, Required: true},
		{Key: "access_token", Label: "Access Token", Type: FieldPassword, Required: true},
	},
	CodeIKhokha: {
		{Key: "application_id", Label: "Application ID", Type: FieldText, Required: true},
		{Key: "application_secret", Label: "Application Secret", Type: FieldPassword, Required: true},
	},
	CodeStripe: {
		{Key: "secret_key", Label: "Secret Key", Type: FieldPassword, Required: true},
		{Key: "publishable_key", Label: "Publishable Key", Type: FieldText, Required: true},
		{Key: "webhook_secret", Label: "Webhook Signing Secret", Type: FieldPassword, Required: true},
	},
}

// CredentialFields returns the credential keys a gateway stores.
func CredentialFields(code Code) []CredentialField {
	fields := credentialFields[code]
	out := make([]CredentialField, len(fields))
	copy(out, fields)
	return out
}

// MissingCredentialFields lists required keys that are absent or blank.
func MissingCredentialFields(code Code, raw map[string]string) []string {
	missing := make([]string, 0)
	for _, field := range credentialFields[code] {
		if !field.Required {
			continue
		}
		if strings.TrimSpace(raw[field.Key]) == "" {
			missing = append(missing, field.Key)
		}
	}
	return missing
}

// DecodeCredentials turns a stored credential map into the typed variant for code.
func DecodeCredentials(code Code, raw map[string]string) (Credentials, error) {
	if !code.Valid() {
		return nil, &UnknownGatewayError{Code: string(code)}
	}
	if missing := MissingCredentialFields(code, raw); len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("%w: %s missing %s", ErrCredentialsInvalid, code, strings.Join(missing, ", "))
	}
	get := func(key string) string { return strings.TrimSpace(raw[key]) }
	switch code {
	case CodePayFast:
		return PayFastCredentials{
			MerchantID:  get("merchant_id"),
			MerchantKey: get("merchant_key"),
			Passphrase:  get("passphrase"),
		}, nil
	case CodeYoco:
		return YocoCredentials{
			SecretKey:     get("secret_key"),
			PublicKey:     get("public_key"),
			WebhookSecret: get("webhook_secret"),
		}, nil
	case CodePeach:
		return PeachCredentials{
			EntityID:    get("entity_id"),
			AccessToken: get("access_token"),
		}, nil
	case CodeIKhokha:
		return IKhokhaCredentials{
			ApplicationID:     get("application_id"),
			ApplicationSecret: get("application_secret"),
		}, nil
	case CodeStripe:
		return StripeCredentials{
			SecretKey:      get("secret_key"),
			PublishableKey: get("publishable_key"),
			WebhookSecret:  get("webhook_secret"),
		}, nil
	}
	return nil, &UnknownGatewayError{Code: string(code)}
}
