package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"warmwall/internal/apperr"
	"warmwall/internal/authz"
	"warmwall/internal/logging"
	"warmwall/internal/models"
	"warmwall/internal/utils"

	"gorm.io/gorm"
)

const (
	maxUsernameLen = 50
	maxPasswordLen = 128
)

type UserService struct {
	db     *gorm.DB
	tokens *TokenService
	now    func() time.Time
}

func NewUserService(db *gorm.DB, tokens *TokenService) *UserService {
	return &UserService{db: db, tokens: tokens, now: time.Now}
}

// Session 登录成功后返回给客户端的内容
type Session struct {
	Token     string       `json:"token"`
	ExpiresAt int64        `json:"expires_at"`
	User      *models.User `json:"user"`
}

// Profile 公开主页
type Profile struct {
	ID             uint       `json:"id"`
	Username       string     `json:"username"`
	Role           string     `json:"role"`
	CreatedAt      time.Time  `json:"created_at"`
	LastActiveAt   *time.Time `json:"last_active_at"`
	Online         bool       `json:"online"`
	FollowersCount int64      `json:"followers_count"`
	FollowingCount int64      `json:"following_count"`
	PostCount      int64      `json:"post_count"`
	IsFollowing    bool       `json:"is_following"`
}

func validateCredentials(username, password string) error {
	if username == "" {
		return apperr.Validation("username", "is required")
	}
	if utf8.RuneCountInString(username) > maxUsernameLen {
		return apperr.Validation("username", "is too long")
	}
	if password == "" {
		return apperr.Validation("password", "is required")
	}
	if len(password) > maxPasswordLen {
		return apperr.Validation("password", "is too long")
	}
	return nil
}

// Register creates a regular user. A taken username is a conflict.
func (s *UserService) Register(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if err := validateCredentials(username, password); err != nil {
		return nil, err
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return nil, apperr.Storage("check username", err)
	}
	if count > 0 {
		return nil, apperr.Conflict("Username already exists")
	}

	cred, err := utils.HashPassword(password, "")
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Username:     username,
		PasswordHash: cred.String(),
		Role:         models.RoleUser,
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		// 并发注册同名用户时由唯一索引兜底
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Conflict("Username already exists")
		}
		return nil, apperr.Storage("create user", err)
	}
	return user, nil
}

// Login verifies the password and issues a session token. Legacy plaintext
// credentials are rehashed on success.
func (s *UserService) Login(ctx context.Context, username, password string) (*Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, apperr.Validation("username", "and password are required")
	}

	var user models.User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Unauthorized("Invalid credentials")
	}
	if err != nil {
		return nil, apperr.Storage("load user", err)
	}

	ok, rehash := utils.VerifyPassword(password, utils.ParseCredential(user.PasswordHash))
	if !ok {
		return nil, apperr.Unauthorized("Invalid credentials")
	}
	if rehash {
		if err := s.setPassword(ctx, user.ID, password); err != nil {
			// 迁移失败不影响本次登录，下次登录会重试
			logging.Warn().Err(err).Uint("user_id", user.ID).Msg("rehash legacy password failed")
		} else {
			logging.Info().Uint("user_id", user.ID).Msg("migrated legacy password")
		}
	}

	token, exp, err := s.tokens.Issue(&user)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: exp.Unix(), User: &user}, nil
}

func (s *UserService) setPassword(ctx context.Context, userID uint, password string) error {
	cred, err := utils.HashPassword(password, "")
	if err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("password_hash", cred.String())
	if res.Error != nil {
		return apperr.Storage("update password", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("User")
	}
	return nil
}

// ListUsers 管理后台用户列表
func (s *UserService) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := s.db.WithContext(ctx).
		Select("id", "username", "role", "created_at", "last_active_at").
		Order("created_at DESC").Order("id DESC").
		Find(&users).Error
	if err != nil {
		return nil, apperr.Storage("list users", err)
	}
	return users, nil
}

// DeleteUser is the admin path: it checks permissions and existence, then cascades.
func (s *UserService) DeleteUser(ctx context.Context, actor authz.Actor, targetID uint) error {
	if !actor.IsAdmin() {
		return apperr.Forbidden("Forbidden")
	}
	if !authz.CanDeleteSelf(actor.ID, targetID) {
		return apperr.Forbidden("Cannot delete self")
	}
	if _, err := s.Get(ctx, targetID); err != nil {
		return err
	}
	return s.PurgeUser(ctx, targetID)
}

// PurgeUser deletes the user row and everything they authored. Every step is
// idempotent, so it is safe to re-run for a user that is already gone.
func (s *UserService) PurgeUser(ctx context.Context, userID uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", userID).Delete(&models.User{}).Error; err != nil {
			return err
		}
		// 该用户帖子下他人的评论和点赞一并清理
		owned := tx.Model(&models.Message{}).Select("id").Where("user_id = ?", userID)
		if err := tx.Where("message_id IN (?)", owned).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("target_type = ? AND target_id IN (?)", models.LikeTargetMessage, owned).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Where("user_id = ?", userID).Delete(&models.Like{}).Error
	})
	if err != nil {
		return apperr.Storage("delete user", err)
	}
	logging.Info().Uint("user_id", userID).Msg("user purged")
	return nil
}

func (s *UserService) ChangePassword(ctx context.Context, actor authz.Actor, targetID uint, password string) error {
	if password == "" {
		return apperr.Validation("password", "is required")
	}
	if len(password) > maxPasswordLen {
		return apperr.Validation("password", "is too long")
	}
	if !authz.CanChangePassword(actor, targetID) {
		return apperr.Forbidden("Forbidden")
	}
	return s.setPassword(ctx, targetID, password)
}

func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("User")
	}
	if err != nil {
		return nil, apperr.Storage("load user", err)
	}
	return &user, nil
}

// Profile returns public counts. viewerID 0 means anonymous.
func (s *UserService) Profile(ctx context.Context, targetID, viewerID uint) (*Profile, error) {
	user, err := s.Get(ctx, targetID)
	if err != nil {
		return nil, err
	}

	p := &Profile{
		ID:           user.ID,
		Username:     user.Username,
		Role:         user.Role,
		CreatedAt:    user.CreatedAt,
		LastActiveAt: user.LastActiveAt,
		Online:       utils.IsOnline(user.LastActiveAt, s.now()),
	}

	q := s.db.WithContext(ctx)
	if err := q.Model(&models.Follow{}).Where("following_id = ?", targetID).Count(&p.FollowersCount).Error; err != nil {
		return nil, apperr.Storage("count followers", err)
	}
	if err := q.Model(&models.Follow{}).Where("follower_id = ?", targetID).Count(&p.FollowingCount).Error; err != nil {
		return nil, apperr.Storage("count following", err)
	}
	if err := q.Model(&models.Message{}).Where("user_id = ?", targetID).Count(&p.PostCount).Error; err != nil {
		return nil, apperr.Storage("count posts", err)
	}
	if viewerID != 0 && viewerID != targetID {
		var n int64
		err := q.Model(&models.Follow{}).Where("follower_id = ? AND following_id = ?", viewerID, targetID).Count(&n).Error
		if err != nil {
			return nil, apperr.Storage("check follow", err)
		}
		p.IsFollowing = n > 0
	}
	return p, nil
}

// TouchActivity 更新最后活跃时间，由后台队列调用
func (s *UserService) TouchActivity(ctx context.Context, userID uint) error {
	return s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn("last_active_at", s.now().UTC()).Error
}
