package handlers

import (
	"net/http"

	"warmwall/internal/services"

	"github.com/gin-gonic/gin"
)

// DirectMessageHandler 私信，只在互关好友之间
type DirectMessageHandler struct {
	social *services.SocialService
}

func NewDirectMessageHandler(social *services.SocialService) *DirectMessageHandler {
	return &DirectMessageHandler{social: social}
}

// Conversations GET /api/direct_messages
func (h *DirectMessageHandler) Conversations(c *gin.Context) {
	convs, err := h.social.Conversations(c.Request.Context(), actor(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, convs)
}

// History GET /api/direct_messages/:userId
func (h *DirectMessageHandler) History(c *gin.Context) {
	peerID, valid := pathID(c, "userId")
	if !valid {
		return
	}
	msgs, err := h.social.History(c.Request.Context(), actor(c).ID, peerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, msgs)
}

// Send POST /api/direct_messages 或 /api/direct_messages/:userId
func (h *DirectMessageHandler) Send(c *gin.Context) {
	var req struct {
		ReceiverID uint   `json:"receiver_id"`
		Content    string `json:"content"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if c.Param("userId") != "" {
		peerID, valid := pathID(c, "userId")
		if !valid {
			return
		}
		req.ReceiverID = peerID
	}
	if req.ReceiverID == 0 {
		badRequest(c, "receiver_id: is required")
		return
	}

	dm, err := h.social.Send(c.Request.Context(), actor(c).ID, req.ReceiverID, req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dm)
}

// NotificationStatus GET /api/notifications/status
func (h *DirectMessageHandler) NotificationStatus(c *gin.Context) {
	st, err := h.social.Notifications(c.Request.Context(), actor(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}
