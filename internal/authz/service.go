package authz

import (
	"fmt"
	"strings"

	"github.com/bluewater-shop/storefront/internal/constants"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
	"github.com/casbin/casbin/v3/util"
)

const (
	apiV1Prefix = "/api/v1"
	rolePrefix  = "role:"
)

const defaultRBACModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = (g(r.sub, p.sub) || r.sub == p.sub) && keyMatch2(r.obj, p.obj) && (r.act == p.act || p.act == "*")
`

// Policy is one allow rule on a route pattern.
type Policy struct {
	Subject string `json:"subject"`
	Object  string `json:"object"`
	Action  string `json:"action"`
}

// RoleSeed is a built-in role with its inherited roles and policies.
type RoleSeed struct {
	Role     string
	Inherits []string
	Policies []Policy
}

// BuiltinRoleSeeds returns the admin role matrix. Tenant admins manage their
// own gateways; replaying webhooks and everything else is platform only.
func BuiltinRoleSeeds() []RoleSeed {
	return []RoleSeed{
		{
			Role: constants.AdminRoleTenant,
			Policies: []Policy{
				{Object: "/admin/gateways", Action: "GET"},
				{Object: "/admin/gateways/:gateway_code/validate", Action: "POST"},
				{Object: "/admin/tenants/:tenant_id/gateways", Action: "GET"},
				{Object: "/admin/tenants/:tenant_id/gateways/:gateway_code", Action: "*"},
				{Object: "/admin/tenants/:tenant_id/gateways/:gateway_code/default", Action: "POST"},
				{Object: "/admin/tenants/:tenant_id/webhook-events", Action: "GET"},
			},
		},
		{
			Role:     constants.AdminRolePlatform,
			Inherits: []string{constants.AdminRoleTenant},
			Policies: []Policy{
				{Object: "/admin/*", Action: "*"},
			},
		},
	}
}

// Service evaluates admin requests against the built-in role matrix.
type Service struct {
	enforcer *casbin.SyncedEnforcer
}

// NewService builds an in-memory enforcer loaded with BuiltinRoleSeeds.
func NewService() (*Service, error) {
	m, err := model.NewModelFromString(defaultRBACModel)
	if err != nil {
		return nil, fmt.Errorf("load authz model failed: %w", err)
	}
	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("init authz enforcer failed: %w", err)
	}
	enforcer.AddFunction("keyMatch2", util.KeyMatch2Func)

	s := &Service{enforcer: enforcer}
	if err := s.bootstrap(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) bootstrap() error {
	for _, seed := range BuiltinRoleSeeds() {
		role := SubjectForRole(seed.Role)
		for _, parent := range seed.Inherits {
			if _, err := s.enforcer.AddNamedGroupingPolicy("g", role, SubjectForRole(parent)); err != nil {
				return fmt.Errorf("link role inheritance failed: %w", err)
			}
		}
		for _, policy := range seed.Policies {
			action := NormalizeAction(policy.Action)
			if action == "" {
				return fmt.Errorf("builtin policy action is required")
			}
			if _, err := s.enforcer.AddPolicy(role, NormalizeObject(policy.Object), action); err != nil {
				return fmt.Errorf("add builtin policy failed: %w", err)
			}
		}
	}
	return nil
}

// Enforce reports whether role may call act on obj.
func (s *Service) Enforce(role, obj, act string) (bool, error) {
	if s == nil || s.enforcer == nil {
		return false, fmt.Errorf("authz service unavailable")
	}
	if strings.TrimSpace(role) == "" {
		return false, nil
	}
	return s.enforcer.Enforce(SubjectForRole(role), NormalizeObject(obj), NormalizeAction(act))
}

// RolePolicies lists the direct policies of role.
func (s *Service) RolePolicies(role string) ([]Policy, error) {
	if s == nil || s.enforcer == nil {
		return nil, fmt.Errorf("authz service unavailable")
	}
	rules, err := s.enforcer.GetFilteredPolicy(0, SubjectForRole(role))
	if err != nil {
		return nil, err
	}
	policies := make([]Policy, 0, len(rules))
	for _, rule := range rules {
		if len(rule) < 3 {
			continue
		}
		policies = append(policies, Policy{Subject: rule[0], Object: rule[1], Action: rule[2]})
	}
	return policies, nil
}

// SubjectForRole maps a token role to its casbin subject.
func SubjectForRole(role string) string {
	normalized := strings.ToLower(strings.TrimSpace(role))
	if strings.HasPrefix(normalized, rolePrefix) {
		return normalized
	}
	return rolePrefix + normalized
}

// NormalizeObject strips the API version prefix from a route.
func NormalizeObject(object string) string {
	normalized := strings.TrimSpace(object)
	if normalized == "" {
		return "/"
	}
	if !strings.HasPrefix(normalized, "/") {
		normalized = "/" + normalized
	}
	if strings.HasPrefix(normalized, apiV1Prefix+"/") {
		return strings.TrimPrefix(normalized, apiV1Prefix)
	}
	if normalized == apiV1Prefix {
		return "/"
	}
	return normalized
}

// NormalizeAction upper-cases an HTTP method.
func NormalizeAction(action string) string {
	return strings.ToUpper(strings.TrimSpace(action))
}
