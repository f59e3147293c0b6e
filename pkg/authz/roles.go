package authz

import (
	"database/sql/driver"
	"fmt"
)

type Role string

const (
	RoleAdministrator  Role = "administrator"
	RoleMember         Role = "member"
	RoleEBM            Role = "ebm" // executive board member, first approval tier
	RoleMembershipHead Role = "membership_head"
	RoleEventManager   Role = "event_manager"
	RoleTreasurer      Role = "treasurer"
)

var allRoles = []Role{
	RoleAdministrator,
	RoleMember,
	RoleEBM,
	RoleMembershipHead,
	RoleEventManager,
	RoleTreasurer,
}

func ParseRole(s string) (Role, error) {
	for _, r := range allRoles {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown role %q", s)
}

func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

func (r Role) String() string { return string(r) }

// Scan refuses role strings outside the closed set.
func (r *Role) Scan(value any) error {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("cannot scan %T into Role", value)
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

func (r Role) Value() (driver.Value, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("unknown role %q", string(r))
	}
	return string(r), nil
}
