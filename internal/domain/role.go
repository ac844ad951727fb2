package domain

import "fmt"

// Role is a closed set. Call sites branch through the capability helpers
// below rather than comparing strings, so an unhandled role shows up at the
// type level when a new one is added.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleUser:
		return RoleUser, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// CanManageUsers reports whether the role may create and delete accounts.
func (r Role) CanManageUsers() bool { return r == RoleAdmin }

// CanAssignIndustries reports whether the role may edit the assignment table.
func (r Role) CanAssignIndustries() bool { return r == RoleAdmin }

// SeesAllIndustries reports whether visibility filtering is bypassed.
func (r Role) SeesAllIndustries() bool { return r == RoleAdmin }
