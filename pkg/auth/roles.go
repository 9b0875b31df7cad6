package auth

import "strings"

var roleRank = map[Role]int{
	RoleUser:  1,
	RoleAgent: 2,
	RoleAdmin: 3,
}

var roleAliases = map[string]Role{
	"admin":         RoleAdmin,
	"administrator": RoleAdmin,
	"super_admin":   RoleAdmin,
	"superadmin":    RoleAdmin,
	"agent":         RoleAgent,
	"service":       RoleAgent,
	"bot":           RoleAgent,
	"user":          RoleUser,
}

// Rank returns the position of a role in the hierarchy. Unknown roles rank
// below user.
func Rank(role Role) int {
	return roleRank[role]
}

// HasRole reports whether actual is at least as privileged as required
func HasRole(actual, required Role) bool {
	return Rank(actual) >= Rank(required)
}

// ParseRole maps a single raw role name to an internal role
func ParseRole(raw string) (Role, bool) {
	role, ok := roleAliases[strings.ToLower(strings.TrimSpace(raw))]
	return role, ok
}

// MapRoles returns the highest-ranked recognized role in raw, or RoleUser
// when none is recognized.
func MapRoles(raw []string) Role {
	best := RoleUser
	for _, r := range raw {
		if role, ok := ParseRole(r); ok && Rank(role) > Rank(best) {
			best = role
		}
	}
	return best
}

// CanAccessResource decides whether user may act on a resource owned by
// ownerID. Ownerless resources are open to every authenticated caller;
// admins and agents may access anything.
func CanAccessResource(user *UserContext, ownerID *string) bool {
	if user == nil {
		return false
	}
	if ownerID == nil || *ownerID == "" {
		return true
	}
	if user.Role == RoleAdmin || user.Role == RoleAgent {
		return true
	}
	return user.UserID == *ownerID
}
