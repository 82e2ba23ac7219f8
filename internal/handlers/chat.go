package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"skillswap-service/internal/middleware"
	"skillswap-service/internal/models"
	"skillswap-service/internal/observability"
	"skillswap-service/internal/services"
	"skillswap-service/internal/telemetry"
)

type chatService interface {
	GetOrCreateChat(ctx context.Context, requesterID, otherUserID int, swapRequestID *int) (models.ChatView, bool, error)
	ListChats(ctx context.Context, userID int) ([]models.ChatView, error)
	ListMessages(ctx context.Context, chatID, requesterID, limit, offset int) ([]models.MessageView, error)
	SendMessage(ctx context.Context, chatID, senderID int, content string) (models.MessageView, error)
	MarkRead(ctx context.Context, chatID, readerID int) (int64, error)
	DeleteChat(ctx context.Context, chatID, requesterID int) error
}

// ChatHandler manages private chat endpoints.
type ChatHandler struct {
	chats chatService
	audit *telemetry.AuditEmitter
}

// NewChatHandler builds a ChatHandler.
func NewChatHandler(chats chatService, audit *telemetry.AuditEmitter) *ChatHandler {
	RegisterValidators()
	return &ChatHandler{chats: chats, audit: audit}
}

// Register mounts the chat routes on an authenticated group.
func (h *ChatHandler) Register(r gin.IRouter) {
	r.POST("/chats", h.CreateChat)
	r.GET("/chats", h.ListChats)
	r.GET("/chats/:chat_id/messages", h.ListMessages)
	r.POST("/chats/:chat_id/messages", h.SendMessage)
	r.PUT("/chats/:chat_id/messages/read", h.MarkRead)
	r.DELETE("/chats/:chat_id", h.DeleteChat)
}

// CreateChat returns the chat with another user, creating it on first use.
func (h *ChatHandler) CreateChat(c *gin.Context) {
	var req struct {
		UserID        int  `json:"user_id" binding:"required,gt=0"`
		SwapRequestID *int `json:"swap_request_id" binding:"omitempty,gt=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt(middleware.UserIDKey)
	chat, created, err := h.chats.GetOrCreateChat(c.Request.Context(), userID, req.UserID, req.SwapRequestID)
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
		recordAudit(c, h.audit, telemetry.Action{Name: telemetry.ActionChatCreated, Subject: "chat", SubjectID: chat.ID})
	}
	c.JSON(status, gin.H{"chat": chat})
}

// ListChats returns the chats of the authenticated user.
func (h *ChatHandler) ListChats(c *gin.Context) {
	chats, err := h.chats.ListChats(c.Request.Context(), c.GetInt(middleware.UserIDKey))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chats": chats})
}

// ListMessages returns a page of chat history, oldest first.
func (h *ChatHandler) ListMessages(c *gin.Context) {
	chatID, ok := pathID(c, "chat_id")
	if !ok {
		return
	}

	var query struct {
		Limit int `form:"limit"`
		Skip  int `form:"skip"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit and skip must be integers"})
		return
	}

	msgs, err := h.chats.ListMessages(c.Request.Context(), chatID, c.GetInt(middleware.UserIDKey), query.Limit, query.Skip)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// SendMessage persists a message and returns the stored copy. Live delivery to
// the other participant is done by the sending client over the relay.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	chatID, ok := pathID(c, "chat_id")
	if !ok {
		return
	}

	var req struct {
		Content string `json:"content" binding:"required,notblank,max=5000"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		msg := "message content is required"
		if failedTag(err) == "max" {
			msg = fmt.Sprintf("message content must be at most %d characters", services.MaxMessageLength)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	msg, err := h.chats.SendMessage(c.Request.Context(), chatID, c.GetInt(middleware.UserIDKey), req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	observability.IncChatMessage()
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

// MarkRead marks the other participant's messages as read.
func (h *ChatHandler) MarkRead(c *gin.Context) {
	chatID, ok := pathID(c, "chat_id")
	if !ok {
		return
	}

	updated, err := h.chats.MarkRead(c.Request.Context(), chatID, c.GetInt(middleware.UserIDKey))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

// DeleteChat removes a chat with all its messages.
func (h *ChatHandler) DeleteChat(c *gin.Context) {
	chatID, ok := pathID(c, "chat_id")
	if !ok {
		return
	}

	if err := h.chats.DeleteChat(c.Request.Context(), chatID, c.GetInt(middleware.UserIDKey)); err != nil {
		respondError(c, err)
		return
	}
	recordAudit(c, h.audit, telemetry.Action{Level: telemetry.LevelWarn, Name: telemetry.ActionChatDeleted, Subject: "chat", SubjectID: chatID})
	c.JSON(http.StatusOK, gin.H{})
}
