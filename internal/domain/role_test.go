package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsAuthorized(t *testing.T) {
	staff := []Role{RoleAdmin, RoleEmployee}

	tests := []struct {
		name  string
		role  Role
		allow []Role
		want  bool
	}{
		{"admin on staff route", RoleAdmin, staff, true},
		{"employee on staff route", RoleEmployee, staff, true},
		{"client on staff route", RoleClient, staff, false},
		{"client on open route", RoleClient, nil, true},
		{"unknown role on open route", Role("root"), nil, false},
		{"empty role on open route", Role(""), []Role{}, false},
		{"admin only", RoleEmployee, []Role{RoleAdmin}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsAuthorized(tt.role, tt.allow))
		})
	}
}

func TestIdentityIsStaff(t *testing.T) {
	assert.True(t, Identity{Role: RoleAdmin}.IsStaff())
	assert.True(t, Identity{Role: RoleEmployee}.IsStaff())
	assert.False(t, Identity{Role: RoleClient}.IsStaff())
}
