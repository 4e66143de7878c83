package handlers

import (
	"errors"
	"io"
	"net/http"

	"warmwall/internal/logging"
	"warmwall/internal/services"

	"github.com/gin-gonic/gin"
)

// AIHandler Echo 陪聊和对话整理
type AIHandler struct {
	llm *services.LLMService
}

func NewAIHandler(llm *services.LLMService) *AIHandler {
	return &AIHandler{llm: llm}
}

type chatRequest struct {
	Messages []services.ChatTurn `json:"messages"`
}

// Chat POST /api/ai/chat，上游 SSE 原样转发
func (h *AIHandler) Chat(c *gin.Context) {
	var req chatRequest
	if !bindJSON(c, &req) {
		return
	}
	body, err := h.llm.ChatStream(c.Request.Context(), req.Messages)
	if err != nil {
		respondError(c, err)
		return
	}
	defer body.Close()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	buf := make([]byte, 4096)
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			if _, err := c.Writer.Write(buf[:n]); err != nil {
				// 客户端断开
				return
			}
			c.Writer.Flush()
		}
		if readErr != nil {
			if c.Request.Context().Err() == nil && !errors.Is(readErr, io.EOF) {
				logging.Debug().Err(readErr).Msg("ai stream ended early")
			}
			return
		}
	}
}

// Summarize POST /api/ai/summarize
func (h *AIHandler) Summarize(c *gin.Context) {
	var req chatRequest
	if !bindJSON(c, &req) {
		return
	}
	draft, err := h.llm.Summarize(c.Request.Context(), req.Messages)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, draft)
}
