package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/moviestore/internal/model"
)

func TestCanManageCinema(t *testing.T) {
	owner := uint64(7)
	owned := &model.Cinema{ID: 1, OwnerID: &owner}
	orphan := &model.Cinema{ID: 2}

	tests := []struct {
		name   string
		id     Identity
		cinema *model.Cinema
		want   bool
	}{
		{"superadmin any cinema", Identity{UserID: 1, Role: model.RoleSuperAdmin}, owned, true},
		{"superadmin orphan cinema", Identity{UserID: 1, Role: model.RoleSuperAdmin}, orphan, true},
		{"admin owner", Identity{UserID: 7, Role: model.RoleAdmin}, owned, true},
		{"admin not owner", Identity{UserID: 8, Role: model.RoleAdmin}, owned, false},
		{"admin orphan cinema", Identity{UserID: 7, Role: model.RoleAdmin}, orphan, false},
		{"guest owner id", Identity{UserID: 7, Role: model.RoleGuest}, owned, false},
		{"nil cinema", Identity{UserID: 1, Role: model.RoleSuperAdmin}, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanManageCinema(tt.id, tt.cinema))
		})
	}
}

func TestOwnerScope(t *testing.T) {
	assert.Nil(t, Identity{UserID: 1, Role: model.RoleSuperAdmin}.OwnerScope())
	scope := Identity{UserID: 4, Role: model.RoleAdmin}.OwnerScope()
	if assert.NotNil(t, scope) {
		assert.Equal(t, uint64(4), *scope)
	}
	assert.False(t, Identity{Role: model.RoleGuest}.IsStaff())
	assert.True(t, Identity{Role: model.RoleAdmin}.IsStaff())
}
