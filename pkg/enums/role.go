package enums

import (
	"fmt"
	"strings"
)

// Role is the closed set of actor roles carried in access tokens.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleCustomer Role = "customer"
)

var roleAliases = map[string]Role{
	"admin":         RoleAdmin,
	"administrador": RoleAdmin,
	"customer":      RoleCustomer,
	"cliente":       RoleCustomer,
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// IsValid reports whether the value is a canonical Role.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleCustomer:
		return true
	default:
		return false
	}
}

// ParseRole converts canonical names and the legacy "Administrador"/"Cliente"
// labels into a Role.
func ParseRole(value string) (Role, error) {
	if role, ok := roleAliases[strings.ToLower(strings.TrimSpace(value))]; ok {
		return role, nil
	}
	return "", fmt.Errorf("invalid role %q", value)
}

// UnmarshalText lets token claims carry either vocabulary.
func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
