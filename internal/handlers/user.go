package handlers

import (
	"net/http"

	"warmwall/internal/middleware"
	"warmwall/internal/services"

	"github.com/gin-gonic/gin"
)

// UserHandler 用户管理、主页和关注
type UserHandler struct {
	users  *services.UserService
	social *services.SocialService
}

func NewUserHandler(users *services.UserService, social *services.SocialService) *UserHandler {
	return &UserHandler{users: users, social: social}
}

// List GET /api/users (admin)
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.users.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// Delete DELETE /api/users/:id (admin)
func (h *UserHandler) Delete(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	if err := h.users.DeleteUser(c.Request.Context(), actor(c), id); err != nil {
		respondError(c, err)
		return
	}
	ok(c)
}

// ChangePassword PUT /api/users/:id/password
func (h *UserHandler) ChangePassword(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	var req struct {
		NewPassword string `json:"newPassword"`
		Password    string `json:"password"`
	}
	if !bindJSON(c, &req) {
		return
	}
	password := req.NewPassword
	if password == "" {
		password = req.Password
	}
	if err := h.users.ChangePassword(c.Request.Context(), actor(c), id, password); err != nil {
		respondError(c, err)
		return
	}
	ok(c)
}

// Profile GET /api/users/:id/profile
func (h *UserHandler) Profile(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	profile, err := h.users.Profile(c.Request.Context(), id, middleware.ViewerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// ToggleFollow POST /api/users/:id/follow
func (h *UserHandler) ToggleFollow(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	following, err := h.social.ToggleFollow(c.Request.Context(), actor(c).ID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"following": following})
}

// Friends GET /api/friends
func (h *UserHandler) Friends(c *gin.Context) {
	friends, err := h.social.Friends(c.Request.Context(), actor(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, friends)
}
