package handlers

import (
	"net/http"

	"warmwall/internal/services"

	"github.com/gin-gonic/gin"
)

type StickerHandler struct {
	stickers *services.StickerService
}

func NewStickerHandler(stickers *services.StickerService) *StickerHandler {
	return &StickerHandler{stickers: stickers}
}

// Create POST /api/stickers
func (h *StickerHandler) Create(c *gin.Context) {
	var req struct {
		URL string `json:"url"`
	}
	if !bindJSON(c, &req) {
		return
	}
	st, err := h.stickers.Create(c.Request.Context(), actor(c).ID, req.URL)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "id": st.ID})
}

// Mine GET /api/stickers/mine
func (h *StickerHandler) Mine(c *gin.Context) {
	list, err := h.stickers.Mine(c.Request.Context(), actor(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Collect POST /api/stickers/collect
func (h *StickerHandler) Collect(c *gin.Context) {
	var req services.CollectRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.stickers.Collect(c.Request.Context(), actor(c).ID, req); err != nil {
		respondError(c, err)
		return
	}
	ok(c)
}

// Remove DELETE /api/stickers/:id
func (h *StickerHandler) Remove(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	if err := h.stickers.Remove(c.Request.Context(), actor(c).ID, id); err != nil {
		respondError(c, err)
		return
	}
	ok(c)
}
