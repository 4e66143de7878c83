package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"warmwall/internal/apperr"
	"warmwall/internal/authz"
	"warmwall/internal/models"
	"warmwall/internal/utils"

	"gorm.io/gorm"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	SummaryLen      = 100

	maxContentLen  = 5000
	maxCommentLen  = 1000
	maxTitleLen    = 100
	maxNicknameLen = 50

	SortHot = "hot"

	// 热门排序只在最新的这些帖子里打分。分母随时间平方增长，更老的帖子很难进前列
	DefaultHotWindow = 1000
)

// 统计列：评论数、点赞数、当前用户是否点赞。viewer 为 0 时 liked_by_user 恒为 false
const statsColumns = `m.id, m.title, m.channel_id, m.nickname, m.user_id, m.view_count, m.created_at,
	u.username AS username, ch.slug AS channel_slug, ch.name AS channel_name,
	(SELECT COUNT(*) FROM comments c WHERE c.message_id = m.id) AS comment_count,
	(SELECT COUNT(*) FROM likes l WHERE l.target_type = ? AND l.target_id = m.id) AS like_count,
	EXISTS(SELECT 1 FROM likes lv WHERE lv.target_type = ? AND lv.target_id = m.id AND lv.user_id = ?) AS liked_by_user`

// FeedService 帖子、评论、点赞、板块和漂流瓶
type FeedService struct {
	db        *gorm.DB
	tasks     *TaskQueue
	now       func() time.Time
	hotWindow int
}

func NewFeedService(db *gorm.DB, tasks *TaskQueue) *FeedService {
	return &FeedService{db: db, tasks: tasks, now: time.Now, hotWindow: DefaultHotWindow}
}

// Page 一页列表结果。NextCursor 为 nil 表示没有更多
type Page struct {
	Data       []models.MessageView `json:"data"`
	NextCursor *uint                `json:"next_cursor"`
}

type ListQuery struct {
	Cursor   uint
	Limit    int
	Sort     string
	ViewerID uint
}

type NewMessage struct {
	Content     string  `json:"content"`
	Title       *string `json:"title"`
	ChannelSlug string  `json:"channel_slug"`
	Nickname    string  `json:"nickname"`
}

// ClampLimit applies the default and the cap.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultPageSize
	}
	if limit > MaxPageSize {
		return MaxPageSize
	}
	return limit
}

func (s *FeedService) messages(ctx context.Context, column string, viewerID uint) *gorm.DB {
	return s.db.WithContext(ctx).
		Table("messages AS m").
		Select(column+statsColumns, models.LikeTargetMessage, models.LikeTargetMessage, viewerID).
		Joins("LEFT JOIN users u ON u.id = m.user_id").
		Joins("LEFT JOIN channels ch ON ch.id = m.channel_id")
}

// paginate 多取一条用来判断是否还有下一页
func paginate(q *gorm.DB, cursor uint, limit int) ([]models.MessageView, *uint, error) {
	if cursor > 0 {
		q = q.Where("m.id < ?", cursor)
	}
	var rows []models.MessageView
	if err := q.Order("m.created_at DESC").Order("m.id DESC").Limit(limit + 1).Scan(&rows).Error; err != nil {
		return nil, nil, err
	}

	var next *uint
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1].ID
		next = &last
	}
	if rows == nil {
		rows = []models.MessageView{}
	}
	return rows, next, nil
}

// List returns the global feed, chronological by default or hot-ranked.
func (s *FeedService) List(ctx context.Context, q ListQuery) (*Page, error) {
	limit := ClampLimit(q.Limit)
	if q.Sort == SortHot {
		rows, err := s.hot(ctx, limit, q.ViewerID)
		if err != nil {
			return nil, apperr.Storage("list hot messages", err)
		}
		return &Page{Data: rows}, nil
	}

	rows, next, err := paginate(s.messages(ctx, "m.content, ", q.ViewerID), q.Cursor, limit)
	if err != nil {
		return nil, apperr.Storage("list messages", err)
	}
	return &Page{Data: rows, NextCursor: next}, nil
}

type hotCandidate struct {
	ID           uint
	ViewCount    int64
	CreatedAt    time.Time
	CommentCount int64
	LikeCount    int64
}

// hot 先取最新 hotWindow 条的轻量统计在内存中打分，再只取前 limit 条完整数据。
// 同分时按时间倒序
func (s *FeedService) hot(ctx context.Context, limit int, viewerID uint) ([]models.MessageView, error) {
	var cands []hotCandidate
	err := s.db.WithContext(ctx).
		Table("messages AS m").
		Select(`m.id, m.view_count, m.created_at,
			(SELECT COUNT(*) FROM comments c WHERE c.message_id = m.id) AS comment_count,
			(SELECT COUNT(*) FROM likes l WHERE l.target_type = ? AND l.target_id = m.id) AS like_count`,
			models.LikeTargetMessage).
		Order("m.created_at DESC").Order("m.id DESC").
		Limit(s.hotWindow).
		Scan(&cands).Error
	if err != nil {
		return nil, err
	}

	now := s.now()
	scores := make(map[uint]float64, len(cands))
	for _, c := range cands {
		scores[c.ID] = utils.HotScore(c.CreatedAt, now, c.ViewCount, c.CommentCount, c.LikeCount)
	}
	sort.SliceStable(cands, func(i, j int) bool {
		return scores[cands[i].ID] > scores[cands[j].ID]
	})
	if len(cands) > limit {
		cands = cands[:limit]
	}
	if len(cands) == 0 {
		return []models.MessageView{}, nil
	}

	ids := make([]uint, len(cands))
	for i, c := range cands {
		ids[i] = c.ID
	}
	var rows []models.MessageView
	if err := s.messages(ctx, "m.content, ", viewerID).Where("m.id IN ?", ids).Scan(&rows).Error; err != nil {
		return nil, err
	}

	byID := make(map[uint]models.MessageView, len(rows))
	for _, r := range rows {
		byID[r.ID] = r
	}
	out := make([]models.MessageView, 0, len(rows))
	for _, id := range ids {
		if r, ok := byID[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *FeedService) ListChannels(ctx context.Context) ([]models.Channel, error) {
	var channels []models.Channel
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&channels).Error; err != nil {
		return nil, apperr.Storage("list channels", err)
	}
	return channels, nil
}

func (s *FeedService) channelBySlug(ctx context.Context, slug string) (*models.Channel, error) {
	var ch models.Channel
	err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&ch).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Channel")
	}
	if err != nil {
		return nil, apperr.Storage("load channel", err)
	}
	return &ch, nil
}

// ListChannel is the channel feed. Rows carry a summary instead of full content.
func (s *FeedService) ListChannel(ctx context.Context, slug string, cursor uint, limit int) (*Page, error) {
	ch, err := s.channelBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	q := s.messages(ctx, "SUBSTR(m.content, 1, 100) AS summary, ", 0).Where("m.channel_id = ?", ch.ID)
	rows, next, err := paginate(q, cursor, ClampLimit(limit))
	if err != nil {
		return nil, apperr.Storage("list channel messages", err)
	}
	// summary 不超过 100 个字符
	for i := range rows {
		rows[i].Summary = utils.TruncateRunes(rows[i].Summary, SummaryLen)
	}
	return &Page{Data: rows, NextCursor: next}, nil
}

// RandomBottle 从树洞随机捞一条，没有则返回 nil。
// ORDER BY RANDOM() 会扫描整个板块，数据量大时需要换成按 id 随机取
func (s *FeedService) RandomBottle(ctx context.Context) (*models.MessageView, error) {
	ch, err := s.channelBySlug(ctx, models.HollowSlug)
	if err != nil {
		return nil, err
	}
	var rows []models.MessageView
	err = s.messages(ctx, "m.content, ", 0).
		Where("m.channel_id = ?", ch.ID).
		Order("RANDOM()").
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return nil, apperr.Storage("draw bottle", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// Detail 帖子详情 + 评论，并在后台增加浏览数
type Detail struct {
	Message  models.MessageView   `json:"message"`
	Comments []models.CommentView `json:"comments"`
}

func (s *FeedService) Get(ctx context.Context, id, viewerID uint) (*Detail, error) {
	var rows []models.MessageView
	if err := s.messages(ctx, "m.content, ", viewerID).Where("m.id = ?", id).Limit(1).Scan(&rows).Error; err != nil {
		return nil, apperr.Storage("load message", err)
	}
	if len(rows) == 0 {
		return nil, apperr.NotFound("Message")
	}
	msg := rows[0]
	msg.ContentHTML = utils.RenderMarkdown(msg.Content)

	comments, err := s.comments(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.tasks != nil {
		s.tasks.Dispatch("view_count", func(ctx context.Context) error {
			return s.IncrementViews(ctx, id)
		})
	}
	return &Detail{Message: msg, Comments: comments}, nil
}

func (s *FeedService) IncrementViews(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Model(&models.Message{}).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error
}

func (s *FeedService) resolveChannel(ctx context.Context, slug string) (uint, error) {
	if slug == "" {
		return models.DefaultChannelID, nil
	}
	var ch models.Channel
	err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&ch).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// 未知板块归入默认板块
		return models.DefaultChannelID, nil
	}
	if err != nil {
		return 0, apperr.Storage("load channel", err)
	}
	return ch.ID, nil
}

// Create stores a post owned by the actor and returns its id.
func (s *FeedService) Create(ctx context.Context, actor authz.Actor, in NewMessage) (uint, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return 0, apperr.Validation("content", "is required")
	}
	if utf8.RuneCountInString(content) > maxContentLen {
		return 0, apperr.Validation("content", "is too long")
	}

	var title *string
	if in.Title != nil {
		if t := strings.TrimSpace(*in.Title); t != "" {
			t = utils.TruncateRunes(t, maxTitleLen)
			title = &t
		}
	}

	nickname := strings.TrimSpace(in.Nickname)
	if nickname == "" {
		nickname = actor.Username
	}
	nickname = utils.TruncateRunes(nickname, maxNicknameLen)

	channelID, err := s.resolveChannel(ctx, strings.TrimSpace(in.ChannelSlug))
	if err != nil {
		return 0, err
	}

	userID := actor.ID
	msg := models.Message{
		Content:   content,
		Title:     title,
		ChannelID: channelID,
		Nickname:  nickname,
		UserID:    &userID,
	}
	if err := s.db.WithContext(ctx).Create(&msg).Error; err != nil {
		return 0, apperr.Storage("create message", err)
	}
	return msg.ID, nil
}

// Delete removes a post with its comments and likes. Owner or admin only.
func (s *FeedService) Delete(ctx context.Context, actor authz.Actor, id uint) error {
	var msg models.Message
	err := s.db.WithContext(ctx).Select("id", "user_id").First(&msg, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("Message")
	}
	if err != nil {
		return apperr.Storage("load message", err)
	}
	if !authz.CanModify(actor, msg.UserID) {
		return apperr.Forbidden("Forbidden")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("message_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("target_type = ? AND target_id = ?", models.LikeTargetMessage, id).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Message{}, id).Error
	})
	if err != nil {
		return apperr.Storage("delete message", err)
	}
	return nil
}

func (s *FeedService) ensureMessage(ctx context.Context, id uint) error {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Message{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return apperr.Storage("load message", err)
	}
	if n == 0 {
		return apperr.NotFound("Message")
	}
	return nil
}

// LikeState toggle 之后的状态
type LikeState struct {
	Liked     bool  `json:"liked"`
	LikeCount int64 `json:"like_count"`
}

// ToggleLike inserts the like when absent and deletes it when present.
func (s *FeedService) ToggleLike(ctx context.Context, actor authz.Actor, messageID uint) (*LikeState, error) {
	if err := s.ensureMessage(ctx, messageID); err != nil {
		return nil, err
	}

	state := &LikeState{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("target_type = ? AND target_id = ? AND user_id = ?", models.LikeTargetMessage, messageID, actor.ID).
			Delete(&models.Like{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			like := models.Like{TargetType: models.LikeTargetMessage, TargetID: messageID, UserID: actor.ID}
			if err := tx.Create(&like).Error; err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
				return err
			}
			state.Liked = true
		}
		return tx.Model(&models.Like{}).
			Where("target_type = ? AND target_id = ?", models.LikeTargetMessage, messageID).
			Count(&state.LikeCount).Error
	})
	if err != nil {
		return nil, apperr.Storage("toggle like", err)
	}
	return state, nil
}

func (s *FeedService) comments(ctx context.Context, messageID uint) ([]models.CommentView, error) {
	var rows []models.CommentView
	err := s.db.WithContext(ctx).
		Table("comments AS c").
		Select("c.id, c.message_id, c.user_id, c.content, c.created_at, u.username AS username").
		Joins("LEFT JOIN users u ON u.id = c.user_id").
		Where("c.message_id = ?", messageID).
		Order("c.created_at ASC").Order("c.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, apperr.Storage("list comments", err)
	}
	if rows == nil {
		rows = []models.CommentView{}
	}
	return rows, nil
}

func (s *FeedService) ListComments(ctx context.Context, messageID uint) ([]models.CommentView, error) {
	if err := s.ensureMessage(ctx, messageID); err != nil {
		return nil, err
	}
	return s.comments(ctx, messageID)
}

func (s *FeedService) CreateComment(ctx context.Context, actor authz.Actor, messageID uint, content string) (*models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperr.Validation("content", "is required")
	}
	if utf8.RuneCountInString(content) > maxCommentLen {
		return nil, apperr.Validation("content", "is too long")
	}
	if err := s.ensureMessage(ctx, messageID); err != nil {
		return nil, err
	}

	comment := models.Comment{MessageID: messageID, UserID: actor.ID, Content: content}
	if err := s.db.WithContext(ctx).Create(&comment).Error; err != nil {
		return nil, apperr.Storage("create comment", err)
	}
	return &comment, nil
}

func (s *FeedService) DeleteComment(ctx context.Context, actor authz.Actor, id uint) error {
	var comment models.Comment
	err := s.db.WithContext(ctx).Select("id", "user_id").First(&comment, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("Comment")
	}
	if err != nil {
		return apperr.Storage("load comment", err)
	}
	owner := comment.UserID
	if !authz.CanModify(actor, &owner) {
		return apperr.Forbidden("Forbidden")
	}
	if err := s.db.WithContext(ctx).Delete(&models.Comment{}, id).Error; err != nil {
		return apperr.Storage("delete comment", err)
	}
	return nil
}
