package handlers

import (
	"errors"
	"io"
	"net/http"

	"warmwall/internal/logging"
	"warmwall/internal/services"

	"github.com/gin-gonic/gin"
)

// MediaHandler 上传和读取媒体文件
type MediaHandler struct {
	media    *services.MediaService
	maxBytes int64
}

func NewMediaHandler(media *services.MediaService, maxBytes int64) *MediaHandler {
	if maxBytes <= 0 {
		maxBytes = services.DefaultMaxUploadBytes
	}
	return &MediaHandler{media: media, maxBytes: maxBytes}
}

// Upload PUT /api/upload (multipart, field "file")
func (h *MediaHandler) Upload(c *gin.Context) {
	// 给 multipart 头部留出余量，文件本身的上限由 service 校验
	limit := h.maxBytes + 1<<20
	if c.Request.ContentLength > limit {
		respondError(c, services.ErrFileTooLarge())
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			respondError(c, services.ErrFileTooLarge())
			return
		}
		badRequest(c, "No file uploaded")
		return
	}
	defer file.Close()

	result, err := h.media.Upload(c.Request.Context(), file, header.Size, header.Header.Get("Content-Type"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Serve GET /api/media/*key
func (h *MediaHandler) Serve(c *gin.Context) {
	rc, contentType, err := h.media.Open(c.Request.Context(), c.Param("key"))
	if err != nil {
		respondError(c, err)
		return
	}
	defer rc.Close()

	// key 含随机 uuid，内容不会变
	c.Header("Content-Type", contentType)
	c.Header("Cache-Control", "public, max-age=31536000, immutable")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, rc); err != nil && c.Request.Context().Err() == nil {
		logging.Debug().Err(err).Str("key", c.Param("key")).Msg("media stream ended early")
	}
}
