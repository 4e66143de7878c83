package authz

import (
	"testing"

	"warmwall/internal/models"

	"github.com/stretchr/testify/assert"
)

func ptr(u uint) *uint { return &u }

func TestCanModify(t *testing.T) {
	owner := Actor{ID: 1, Role: models.RoleUser}
	other := Actor{ID: 2, Role: models.RoleUser}
	admin := Actor{ID: 3, Role: models.RoleAdmin}

	assert.True(t, CanModify(owner, ptr(1)))
	assert.False(t, CanModify(other, ptr(1)))
	assert.True(t, CanModify(admin, ptr(1)))

	assert.False(t, CanModify(owner, nil))
	assert.True(t, CanModify(admin, nil))
}

func TestCanMessageDirectly(t *testing.T) {
	mutual := NewEdges([]models.Follow{
		{FollowerID: 1, FollowingID: 2},
		{FollowerID: 2, FollowingID: 1},
	})
	assert.True(t, CanMessageDirectly(1, 2, mutual))
	assert.True(t, CanMessageDirectly(2, 1, mutual))

	oneWay := NewEdges([]models.Follow{{FollowerID: 1, FollowingID: 2}})
	assert.False(t, CanMessageDirectly(1, 2, oneWay))
	assert.False(t, CanMessageDirectly(2, 1, oneWay))

	assert.False(t, CanMessageDirectly(1, 1, NewEdges(nil)))
}

func TestCanDeleteSelf(t *testing.T) {
	assert.False(t, CanDeleteSelf(5, 5))
	assert.True(t, CanDeleteSelf(5, 6))
}

func TestCanChangePassword(t *testing.T) {
	assert.True(t, CanChangePassword(Actor{ID: 1}, 1))
	assert.False(t, CanChangePassword(Actor{ID: 1}, 2))
	assert.True(t, CanChangePassword(Actor{ID: 1, Role: models.RoleAdmin}, 2))
}

func TestCanFollow(t *testing.T) {
	assert.False(t, CanFollow(1, 1))
	assert.True(t, CanFollow(1, 2))
}
