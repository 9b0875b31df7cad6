package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasRole(t *testing.T) {
	roles := []Role{RoleUser, RoleAgent, RoleAdmin}

	for i, actual := range roles {
		for j, required := range roles {
			assert.Equal(t, i >= j, HasRole(actual, required), "HasRole(%s, %s)", actual, required)
		}
	}

	assert.False(t, HasRole(Role("unknown"), RoleUser))
}

func TestMapRoles(t *testing.T) {
	tests := []struct {
		name string
		raw  []string
		want Role
	}{
		{"empty", nil, RoleUser},
		{"unknown only", []string{"offline_access", "uma_authorization"}, RoleUser},
		{"user", []string{"user"}, RoleUser},
		{"agent", []string{"user", "agent"}, RoleAgent},
		{"admin wins", []string{"agent", "admin", "user"}, RoleAdmin},
		{"case insensitive alias", []string{"Administrator"}, RoleAdmin},
		{"service alias", []string{"service"}, RoleAgent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MapRoles(tt.raw))
		})
	}
}

func TestCanAccessResource(t *testing.T) {
	owner := "user-1"
	empty := ""

	user := &UserContext{UserID: "user-1", Role: RoleUser}
	stranger := &UserContext{UserID: "user-2", Role: RoleUser}
	agent := &UserContext{UserID: "agent-1", Role: RoleAgent}
	admin := &UserContext{UserID: "admin-1", Role: RoleAdmin}

	tests := []struct {
		name    string
		user    *UserContext
		ownerID *string
		want    bool
	}{
		{"no user", nil, &owner, false},
		{"ownerless", stranger, nil, true},
		{"empty owner", stranger, &empty, true},
		{"owner", user, &owner, true},
		{"stranger", stranger, &owner, false},
		{"agent", agent, &owner, true},
		{"admin", admin, &owner, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanAccessResource(tt.user, tt.ownerID))
		})
	}
}

func TestUserContextHasRole(t *testing.T) {
	var nilUser *UserContext
	assert.False(t, nilUser.HasRole(RoleUser))
	assert.False(t, nilUser.IsAdmin())

	u := &UserContext{Role: RoleAgent}
	assert.True(t, u.HasRole(RoleUser))
	assert.True(t, u.HasRole(RoleAgent))
	assert.False(t, u.HasRole(RoleAdmin))
}
