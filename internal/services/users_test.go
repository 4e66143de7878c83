package services

import (
	"context"
	"testing"
	"time"

	"warmwall/internal/apperr"
	"warmwall/internal/authz"
	"warmwall/internal/db/dbtest"
	"warmwall/internal/models"
	"warmwall/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newUserService(t *testing.T) (*UserService, *gorm.DB) {
	t.Helper()
	conn := dbtest.New(t)
	return NewUserService(conn, NewTokenService("test-secret", 7*24*time.Hour)), conn
}

func mustRegister(t *testing.T, s *UserService, name string) *models.User {
	t.Helper()
	u, err := s.Register(context.Background(), name, name+"-pw")
	require.NoError(t, err)
	return u
}

func TestRegisterDuplicate(t *testing.T) {
	s, _ := newUserService(t)
	ctx := context.Background()

	u, err := s.Register(ctx, "alice", "pw1")
	require.NoError(t, err)
	assert.NotZero(t, u.ID)
	assert.Equal(t, models.RoleUser, u.Role)

	_, err = s.Register(ctx, "alice", "other")
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestRegisterValidation(t *testing.T) {
	s, _ := newUserService(t)
	ctx := context.Background()

	_, err := s.Register(ctx, "", "pw")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = s.Register(ctx, "bob", "")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestLoginIssuesToken(t *testing.T) {
	s, _ := newUserService(t)
	ctx := context.Background()
	_, err := s.Register(ctx, "alice", "pw1")
	require.NoError(t, err)

	sess, err := s.Login(ctx, "alice", "pw1")
	require.NoError(t, err)

	claims, err := s.tokens.Verify(sess.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), claims.ExpiresAt.Time, 5*time.Second)

	_, err = s.Login(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	_, err = s.Login(ctx, "nobody", "pw1")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestLoginMigratesLegacyPassword(t *testing.T) {
	s, conn := newUserService(t)
	ctx := context.Background()
	require.NoError(t, conn.Create(&models.User{Username: "old", PasswordHash: "plain", Role: models.RoleUser}).Error)

	_, err := s.Login(ctx, "old", "plain")
	require.NoError(t, err)

	var u models.User
	require.NoError(t, conn.Where("username = ?", "old").First(&u).Error)
	cred := utils.ParseCredential(u.PasswordHash)
	assert.False(t, cred.IsLegacy())

	_, err = s.Login(ctx, "old", "plain")
	assert.NoError(t, err)
}

func TestDeleteUserCascades(t *testing.T) {
	s, conn := newUserService(t)
	ctx := context.Background()
	admin := mustRegister(t, s, "root")
	require.NoError(t, conn.Model(admin).Update("role", models.RoleAdmin).Error)
	victim := mustRegister(t, s, "victim")
	other := mustRegister(t, s, "other")

	msg := models.Message{Content: "bye", ChannelID: 1, UserID: &victim.ID}
	require.NoError(t, conn.Create(&msg).Error)
	require.NoError(t, conn.Create(&models.Comment{MessageID: msg.ID, UserID: other.ID, Content: "c"}).Error)
	require.NoError(t, conn.Create(&models.Comment{MessageID: 999, UserID: victim.ID, Content: "c2"}).Error)
	require.NoError(t, conn.Create(&models.Like{TargetType: models.LikeTargetMessage, TargetID: msg.ID, UserID: other.ID}).Error)
	require.NoError(t, conn.Create(&models.Like{TargetType: models.LikeTargetMessage, TargetID: 999, UserID: victim.ID}).Error)

	actor := authz.Actor{ID: admin.ID, Role: models.RoleAdmin}
	require.NoError(t, s.DeleteUser(ctx, actor, victim.ID))

	var n int64
	conn.Model(&models.User{}).Where("id = ?", victim.ID).Count(&n)
	assert.Zero(t, n)
	conn.Model(&models.Message{}).Count(&n)
	assert.Zero(t, n)
	conn.Model(&models.Comment{}).Count(&n)
	assert.Zero(t, n)
	conn.Model(&models.Like{}).Count(&n)
	assert.Zero(t, n)

	// 修复路径可重复执行
	assert.NoError(t, s.PurgeUser(ctx, victim.ID))
	assert.ErrorIs(t, s.DeleteUser(ctx, actor, victim.ID), apperr.ErrNotFound)
}

func TestDeleteUserPermissions(t *testing.T) {
	s, _ := newUserService(t)
	ctx := context.Background()
	a := mustRegister(t, s, "a")
	b := mustRegister(t, s, "b")

	err := s.DeleteUser(ctx, authz.Actor{ID: a.ID, Role: models.RoleUser}, b.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	err = s.DeleteUser(ctx, authz.Actor{ID: a.ID, Role: models.RoleAdmin}, a.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestChangePassword(t *testing.T) {
	s, _ := newUserService(t)
	ctx := context.Background()
	a := mustRegister(t, s, "a")
	b := mustRegister(t, s, "b")

	err := s.ChangePassword(ctx, authz.Actor{ID: b.ID, Role: models.RoleUser}, a.ID, "new")
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	require.NoError(t, s.ChangePassword(ctx, authz.Actor{ID: a.ID, Role: models.RoleUser}, a.ID, "new"))
	_, err = s.Login(ctx, "a", "new")
	assert.NoError(t, err)

	err = s.ChangePassword(ctx, authz.Actor{ID: b.ID, Role: models.RoleAdmin}, 4242, "x")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestProfileCounts(t *testing.T) {
	s, conn := newUserService(t)
	ctx := context.Background()
	a := mustRegister(t, s, "a")
	b := mustRegister(t, s, "b")

	require.NoError(t, conn.Create(&models.Follow{FollowerID: b.ID, FollowingID: a.ID}).Error)
	require.NoError(t, conn.Create(&models.Message{Content: "x", ChannelID: 1, UserID: &a.ID}).Error)
	require.NoError(t, s.TouchActivity(ctx, a.ID))

	p, err := s.Profile(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.FollowersCount)
	assert.Equal(t, int64(0), p.FollowingCount)
	assert.Equal(t, int64(1), p.PostCount)
	assert.True(t, p.IsFollowing)
	assert.True(t, p.Online)

	p, err = s.Profile(ctx, a.ID, 0)
	require.NoError(t, err)
	assert.False(t, p.IsFollowing)

	_, err = s.Profile(ctx, 777, 0)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
