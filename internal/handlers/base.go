package handlers

import (
	"net/http"

	"warmwall/internal/apperr"
	"warmwall/internal/authz"
	"warmwall/internal/logging"
	"warmwall/internal/middleware"
	"warmwall/internal/utils"

	"github.com/gin-gonic/gin"
)

// respondError 统一错误输出 {"error": msg}，5xx 只记录内部原因不返回给客户端
func respondError(c *gin.Context, err error) {
	status := apperr.Status(err)
	if status >= http.StatusInternalServerError {
		logging.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
	}
	c.JSON(status, gin.H{"error": apperr.PublicMessage(err)})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		badRequest(c, "Invalid JSON body")
		return false
	}
	return true
}

func pathID(c *gin.Context, name string) (uint, bool) {
	id, ok := utils.ParseID(c.Param(name))
	if !ok {
		badRequest(c, "Invalid "+name)
		return 0, false
	}
	return id, true
}

// queryID 可选的正整数查询参数，缺省为 0
func queryID(c *gin.Context, name string) (uint, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	id, ok := utils.ParseID(raw)
	if !ok {
		badRequest(c, "Invalid "+name)
		return 0, false
	}
	return id, true
}

// actor 只在 AuthRequired 之后调用
func actor(c *gin.Context) authz.Actor {
	a, _ := middleware.CurrentActor(c)
	return a
}

func ok(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true})
}
