package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"warmwall/internal/apperr"
	"warmwall/internal/authz"
	"warmwall/internal/models"
	"warmwall/internal/utils"

	"gorm.io/gorm"
)

const maxDMLen = 2000

// SocialService 关注、好友和私信
type SocialService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewSocialService(db *gorm.DB) *SocialService {
	return &SocialService{db: db, now: time.Now}
}

func (s *SocialService) ensureUser(ctx context.Context, id uint) error {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return apperr.Storage("load user", err)
	}
	if n == 0 {
		return apperr.NotFound("User")
	}
	return nil
}

// ToggleFollow follows the target when not yet following, otherwise unfollows.
func (s *SocialService) ToggleFollow(ctx context.Context, actorID, targetID uint) (bool, error) {
	if !authz.CanFollow(actorID, targetID) {
		return false, apperr.Forbidden("Cannot follow yourself")
	}
	if err := s.ensureUser(ctx, targetID); err != nil {
		return false, err
	}

	following := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("follower_id = ? AND following_id = ?", actorID, targetID).Delete(&models.Follow{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}
		following = true
		err := tx.Create(&models.Follow{FollowerID: actorID, FollowingID: targetID}).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil
		}
		return err
	})
	if err != nil {
		return false, apperr.Storage("toggle follow", err)
	}
	return following, nil
}

// Friends 互相关注的用户
func (s *SocialService) Friends(ctx context.Context, userID uint) ([]models.Friend, error) {
	var friends []models.Friend
	err := s.db.WithContext(ctx).Raw(`SELECT u.id, u.username, u.last_active_at
		FROM follows f1
		JOIN follows f2 ON f1.following_id = f2.follower_id
		JOIN users u ON f1.following_id = u.id
		WHERE f1.follower_id = ? AND f2.following_id = ?
		ORDER BY u.username ASC`, userID, userID).Scan(&friends).Error
	if err != nil {
		return nil, apperr.Storage("list friends", err)
	}

	now := s.now()
	for i := range friends {
		friends[i].Online = utils.IsOnline(friends[i].LastActiveAt, now)
	}
	if friends == nil {
		friends = []models.Friend{}
	}
	return friends, nil
}

// requireFriends 取出两人之间的关注边，交给授权规则判断
func (s *SocialService) requireFriends(ctx context.Context, actorID, peerID uint) error {
	var edges []models.Follow
	err := s.db.WithContext(ctx).
		Where("(follower_id = ? AND following_id = ?) OR (follower_id = ? AND following_id = ?)", actorID, peerID, peerID, actorID).
		Find(&edges).Error
	if err != nil {
		return apperr.Storage("load follows", err)
	}
	if !authz.CanMessageDirectly(actorID, peerID, authz.NewEdges(edges)) {
		return apperr.Forbidden("只能给互关好友发私信")
	}
	return nil
}

// History returns the conversation oldest first and marks the peer's messages as read.
func (s *SocialService) History(ctx context.Context, actorID, peerID uint) ([]models.DirectMessage, error) {
	if err := s.requireFriends(ctx, actorID, peerID); err != nil {
		return nil, err
	}

	var msgs []models.DirectMessage
	err := s.db.WithContext(ctx).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)", actorID, peerID, peerID, actorID).
		Order("created_at ASC").Order("id ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, apperr.Storage("list direct messages", err)
	}

	err = s.db.WithContext(ctx).Model(&models.DirectMessage{}).
		Where("sender_id = ? AND receiver_id = ? AND is_read = ?", peerID, actorID, false).
		Update("is_read", true).Error
	if err != nil {
		return nil, apperr.Storage("mark read", err)
	}
	return msgs, nil
}

func (s *SocialService) Send(ctx context.Context, actorID, peerID uint, content string) (*models.DirectMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperr.Validation("content", "is required")
	}
	if utf8.RuneCountInString(content) > maxDMLen {
		return nil, apperr.Validation("content", "is too long")
	}
	if err := s.requireFriends(ctx, actorID, peerID); err != nil {
		return nil, err
	}

	dm := models.DirectMessage{SenderID: actorID, ReceiverID: peerID, Content: content}
	if err := s.db.WithContext(ctx).Create(&dm).Error; err != nil {
		return nil, apperr.Storage("send direct message", err)
	}
	return &dm, nil
}

// Conversations 每个对话对象一行，按最后一条消息倒序
func (s *SocialService) Conversations(ctx context.Context, actorID uint) ([]models.Conversation, error) {
	var msgs []models.DirectMessage
	err := s.db.WithContext(ctx).
		Where("sender_id = ? OR receiver_id = ?", actorID, actorID).
		Order("created_at DESC").Order("id DESC").
		Find(&msgs).Error
	if err != nil {
		return nil, apperr.Storage("list conversations", err)
	}

	index := map[uint]int{}
	convs := []models.Conversation{}
	for _, m := range msgs {
		partner := m.SenderID
		if partner == actorID {
			partner = m.ReceiverID
		}
		i, ok := index[partner]
		if !ok {
			i = len(convs)
			index[partner] = i
			convs = append(convs, models.Conversation{PartnerID: partner, LastMessage: m})
		}
		if m.ReceiverID == actorID && !m.IsRead {
			convs[i].UnreadCount++
		}
	}
	if len(convs) == 0 {
		return convs, nil
	}

	ids := make([]uint, 0, len(convs))
	for _, c := range convs {
		ids = append(ids, c.PartnerID)
	}
	var users []models.User
	if err := s.db.WithContext(ctx).Select("id", "username").Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, apperr.Storage("load partners", err)
	}
	names := make(map[uint]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Username
	}
	for i := range convs {
		convs[i].PartnerUsername = names[convs[i].PartnerID]
	}
	return convs, nil
}

// NotificationStatus 未读私信数和最近一次被关注的时间
type NotificationStatus struct {
	UnreadDMCount    int64  `json:"unread_dm_count"`
	LatestFollowerAt *int64 `json:"latest_follower_at"`
}

func (s *SocialService) Notifications(ctx context.Context, actorID uint) (*NotificationStatus, error) {
	st := &NotificationStatus{}
	err := s.db.WithContext(ctx).Model(&models.DirectMessage{}).
		Where("receiver_id = ? AND is_read = ?", actorID, false).
		Count(&st.UnreadDMCount).Error
	if err != nil {
		return nil, apperr.Storage("count unread", err)
	}

	var latest []models.Follow
	err = s.db.WithContext(ctx).
		Where("following_id = ?", actorID).
		Order("created_at DESC").Limit(1).
		Find(&latest).Error
	if err != nil {
		return nil, apperr.Storage("load followers", err)
	}
	if len(latest) > 0 {
		ts := latest[0].CreatedAt.Unix()
		st.LatestFollowerAt = &ts
	}
	return st, nil
}
