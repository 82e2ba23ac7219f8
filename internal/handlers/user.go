package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"skillswap-service/internal/middleware"
	"skillswap-service/internal/models"
	"skillswap-service/internal/repositories"
)

// UserHandler serves user browsing and profile endpoints.
type UserHandler struct {
	users repositories.UserRepository
}

func NewUserHandler(users repositories.UserRepository) *UserHandler {
	RegisterValidators()
	return &UserHandler{users: users}
}

func (h *UserHandler) Register(r gin.IRouter) {
	r.GET("/users", h.ListUsers)
	r.PUT("/users/me", h.UpdateProfile)
	r.GET("/users/:user_id", h.GetUser)
}

// ListUsers lists other users, optionally filtered by name and skill.
func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.users.ListUsers(c.Request.Context(), repositories.UserFilter{
		ExcludeID: c.GetInt(middleware.UserIDKey),
		Search:    strings.TrimSpace(c.Query("search")),
		Skill:     strings.TrimSpace(c.Query("skill")),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (h *UserHandler) GetUser(c *gin.Context) {
	userID, ok := pathID(c, "user_id")
	if !ok {
		return
	}

	user, err := h.users.GetUser(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// UpdateProfile creates or replaces the caller's profile.
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req struct {
		Name          string   `json:"name" binding:"required,notblank,max=100"`
		Email         string   `json:"email" binding:"omitempty,email"`
		Bio           string   `json:"bio" binding:"max=1000"`
		AvatarURL     string   `json:"avatar_url" binding:"omitempty,url"`
		SkillsToTeach []string `json:"skills_to_teach" binding:"dive,notblank"`
		SkillsToLearn []string `json:"skills_to_learn" binding:"dive,notblank"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.UpsertProfile(c.Request.Context(), models.User{
		ID:            c.GetInt(middleware.UserIDKey),
		Name:          strings.TrimSpace(req.Name),
		Email:         req.Email,
		Bio:           req.Bio,
		AvatarURL:     req.AvatarURL,
		SkillsToTeach: trimAll(req.SkillsToTeach),
		SkillsToLearn: trimAll(req.SkillsToLearn),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func trimAll(in []string) models.StringList {
	out := make(models.StringList, 0, len(in))
	for _, s := range in {
		out = append(out, strings.TrimSpace(s))
	}
	return out
}
