package services

import (
	"context"
	"testing"

	"warmwall/internal/apperr"
	"warmwall/internal/db/dbtest"
	"warmwall/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newSocial(t *testing.T) (*SocialService, *gorm.DB) {
	t.Helper()
	conn := dbtest.New(t)
	return NewSocialService(conn), conn
}

func TestMutualFollowGatesDirectMessages(t *testing.T) {
	s, conn := newSocial(t)
	ctx := context.Background()
	a := seedUser(t, conn, "a", models.RoleUser)
	b := seedUser(t, conn, "b", models.RoleUser)

	following, err := s.ToggleFollow(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, following)

	_, err = s.Send(ctx, a.ID, b.ID, "hi")
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = s.ToggleFollow(ctx, b.ID, a.ID)
	require.NoError(t, err)

	friends, err := s.Friends(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, friends, 1)
	assert.Equal(t, b.ID, friends[0].ID)
	friends, err = s.Friends(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, friends, 1)
	assert.Equal(t, a.ID, friends[0].ID)

	dm, err := s.Send(ctx, a.ID, b.ID, "hi")
	require.NoError(t, err)
	assert.False(t, dm.IsRead)

	following, err = s.ToggleFollow(ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.False(t, following)

	_, err = s.Send(ctx, a.ID, b.ID, "still there?")
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = s.History(ctx, b.ID, a.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	friends, err = s.Friends(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, friends)
}

func TestFollowRules(t *testing.T) {
	s, conn := newSocial(t)
	ctx := context.Background()
	a := seedUser(t, conn, "a", models.RoleUser)

	_, err := s.ToggleFollow(ctx, a.ID, a.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = s.ToggleFollow(ctx, a.ID, 999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestHistoryMarksReadAndNotifications(t *testing.T) {
	s, conn := newSocial(t)
	ctx := context.Background()
	a := seedUser(t, conn, "a", models.RoleUser)
	b := seedUser(t, conn, "b", models.RoleUser)

	st, err := s.Notifications(ctx, b.ID)
	require.NoError(t, err)
	assert.Zero(t, st.UnreadDMCount)
	assert.Nil(t, st.LatestFollowerAt)

	_, err = s.ToggleFollow(ctx, a.ID, b.ID)
	require.NoError(t, err)
	_, err = s.ToggleFollow(ctx, b.ID, a.ID)
	require.NoError(t, err)
	_, err = s.Send(ctx, a.ID, b.ID, "one")
	require.NoError(t, err)
	_, err = s.Send(ctx, a.ID, b.ID, "two")
	require.NoError(t, err)
	_, err = s.Send(ctx, b.ID, a.ID, "back")
	require.NoError(t, err)

	st, err = s.Notifications(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), st.UnreadDMCount)
	assert.NotNil(t, st.LatestFollowerAt)

	convs, err := s.Conversations(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, a.ID, convs[0].PartnerID)
	assert.Equal(t, "a", convs[0].PartnerUsername)
	assert.Equal(t, "back", convs[0].LastMessage.Content)
	assert.Equal(t, 2, convs[0].UnreadCount)

	msgs, err := s.History(ctx, b.ID, a.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "one", msgs[0].Content)

	st, err = s.Notifications(ctx, b.ID)
	require.NoError(t, err)
	assert.Zero(t, st.UnreadDMCount)

	// 对方的未读不受影响
	st, err = s.Notifications(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.UnreadDMCount)
}

func TestSendValidation(t *testing.T) {
	s, conn := newSocial(t)
	a := seedUser(t, conn, "a", models.RoleUser)

	_, err := s.Send(context.Background(), a.ID, 2, "  ")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
