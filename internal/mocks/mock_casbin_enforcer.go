package mocks

import (
	"slices"
	"strings"

	"github.com/dadecresce/maestro-energy-management-sub000/domain"
)

// MockCasbinEnforcer implements domain.CasbinEnforcer over an in-memory rule list.
// Rules are {subject, resource, action}; a resource ending in "/*" matches its
// prefix and an action may be an alternation such as "(GET|POST)".
type MockCasbinEnforcer struct {
	AddPolicyFunc    func(params ...interface{}) (bool, error)
	RemovePolicyFunc func(params ...interface{}) (bool, error)
	EnforceFunc      func(rvals ...interface{}) (bool, error)
	GetPolicyFunc    func() ([][]string, error)

	rules [][]string
}

var _ domain.CasbinEnforcer = (*MockCasbinEnforcer)(nil)

// NewMockCasbinEnforcer starts with the admin rule and a self-service rule for users
func NewMockCasbinEnforcer() *MockCasbinEnforcer {
	return &MockCasbinEnforcer{
		rules: [][]string{
			{"role_admin", "/admin/*", "(GET|POST|PUT|DELETE)"},
			{"role_user", "/auth/me", "GET"},
		},
	}
}

func toRule(params []interface{}) []string {
	rule := make([]string, 0, len(params))
	for _, p := range params {
		s, _ := p.(string)
		rule = append(rule, s)
	}
	return rule
}

func (m *MockCasbinEnforcer) indexOf(rule []string) int {
	return slices.IndexFunc(m.rules, func(r []string) bool { return slices.Equal(r, rule) })
}

// AddPolicy appends a rule; an existing rule reports false
func (m *MockCasbinEnforcer) AddPolicy(params ...interface{}) (bool, error) {
	if m.AddPolicyFunc != nil {
		return m.AddPolicyFunc(params...)
	}
	rule := toRule(params)
	if len(rule) < 3 || m.indexOf(rule) >= 0 {
		return false, nil
	}
	m.rules = append(m.rules, rule)
	return true, nil
}

// RemovePolicy drops a rule; an unknown rule reports false
func (m *MockCasbinEnforcer) RemovePolicy(params ...interface{}) (bool, error) {
	if m.RemovePolicyFunc != nil {
		return m.RemovePolicyFunc(params...)
	}
	i := m.indexOf(toRule(params))
	if i < 0 {
		return false, nil
	}
	m.rules = slices.Delete(m.rules, i, i+1)
	return true, nil
}

// Enforce matches {subject, resource, action} against the rule list
func (m *MockCasbinEnforcer) Enforce(rvals ...interface{}) (bool, error) {
	if m.EnforceFunc != nil {
		return m.EnforceFunc(rvals...)
	}
	req := toRule(rvals)
	if len(req) < 3 {
		return false, nil
	}
	for _, r := range m.rules {
		if r[0] == req[0] && resourceMatches(r[1], req[1]) && actionMatches(r[2], req[2]) {
			return true, nil
		}
	}
	return false, nil
}

func resourceMatches(pattern, resource string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(resource, prefix)
	}
	return pattern == resource
}

func actionMatches(pattern, action string) bool {
	alternatives := strings.Split(strings.Trim(pattern, "()"), "|")
	return slices.Contains(alternatives, action) || pattern == "*"
}

// GetPolicy returns a copy of the rule list
func (m *MockCasbinEnforcer) GetPolicy() ([][]string, error) {
	if m.GetPolicyFunc != nil {
		return m.GetPolicyFunc()
	}
	out := make([][]string, len(m.rules))
	for i, r := range m.rules {
		out[i] = slices.Clone(r)
	}
	return out, nil
}

// SetPolicies replaces the rule list
func (m *MockCasbinEnforcer) SetPolicies(policies [][]string) {
	m.rules = make([][]string, len(policies))
	for i, p := range policies {
		m.rules[i] = slices.Clone(p)
	}
}
