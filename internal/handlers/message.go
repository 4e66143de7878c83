package handlers

import (
	"net/http"

	"warmwall/internal/middleware"
	"warmwall/internal/services"

	"github.com/gin-gonic/gin"
)

// MessageHandler 帖子、评论、点赞、板块和漂流瓶
type MessageHandler struct {
	feed *services.FeedService
}

func NewMessageHandler(feed *services.FeedService) *MessageHandler {
	return &MessageHandler{feed: feed}
}

func pageParams(c *gin.Context) (cursor uint, limit int, valid bool) {
	cursor, valid = queryID(c, "cursor")
	if !valid {
		return 0, 0, false
	}
	l, valid := queryID(c, "limit")
	if !valid {
		return 0, 0, false
	}
	// 转 int 之前先封顶，避免超大值溢出成负数
	if l > services.MaxPageSize {
		l = services.MaxPageSize
	}
	return cursor, int(l), true
}

// List GET /api/messages?cursor&limit&sort=hot
func (h *MessageHandler) List(c *gin.Context) {
	cursor, limit, valid := pageParams(c)
	if !valid {
		return
	}
	sort := c.Query("sort")
	if sort != "" && sort != services.SortHot && sort != "new" {
		badRequest(c, "Invalid sort")
		return
	}

	page, err := h.feed.List(c.Request.Context(), services.ListQuery{
		Cursor:   cursor,
		Limit:    limit,
		Sort:     sort,
		ViewerID: middleware.ViewerID(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// Get GET /api/messages/:id
func (h *MessageHandler) Get(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	detail, err := h.feed.Get(c.Request.Context(), id, middleware.ViewerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// Create POST /api/messages
func (h *MessageHandler) Create(c *gin.Context) {
	var req services.NewMessage
	if !bindJSON(c, &req) {
		return
	}
	id, err := h.feed.Create(c.Request.Context(), actor(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "id": id})
}

// Delete DELETE /api/messages/:id
func (h *MessageHandler) Delete(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	if err := h.feed.Delete(c.Request.Context(), actor(c), id); err != nil {
		respondError(c, err)
		return
	}
	ok(c)
}

// ToggleLike POST /api/messages/:id/like
func (h *MessageHandler) ToggleLike(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	state, err := h.feed.ToggleLike(c.Request.Context(), actor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// ListComments GET /api/messages/:id/comments
func (h *MessageHandler) ListComments(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	comments, err := h.feed.ListComments(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, comments)
}

// CreateComment POST /api/messages/:id/comments
func (h *MessageHandler) CreateComment(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	var req struct {
		Content string `json:"content"`
	}
	if !bindJSON(c, &req) {
		return
	}
	comment, err := h.feed.CreateComment(c.Request.Context(), actor(c), id, req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// DeleteComment DELETE /api/comments/:id
func (h *MessageHandler) DeleteComment(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	if err := h.feed.DeleteComment(c.Request.Context(), actor(c), id); err != nil {
		respondError(c, err)
		return
	}
	ok(c)
}

// ListChannels GET /api/channels
func (h *MessageHandler) ListChannels(c *gin.Context) {
	channels, err := h.feed.ListChannels(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, channels)
}

// ListChannel GET /api/channels/:slug/messages
func (h *MessageHandler) ListChannel(c *gin.Context) {
	cursor, limit, valid := pageParams(c)
	if !valid {
		return
	}
	page, err := h.feed.ListChannel(c.Request.Context(), c.Param("slug"), cursor, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// RandomBottle GET /api/bottles/random，海里没有瓶子时 data 为 null
func (h *MessageHandler) RandomBottle(c *gin.Context) {
	bottle, err := h.feed.RandomBottle(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": bottle})
}
