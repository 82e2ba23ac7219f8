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

type swapService interface {
	Create(ctx context.Context, fromID int, in services.SwapInput) (models.SwapRequestView, error)
	List(ctx context.Context, userID int, filter models.SwapFilter) ([]models.SwapRequestView, error)
	Get(ctx context.Context, swapID, requesterID int) (models.SwapRequestView, error)
	UpdateStatus(ctx context.Context, swapID, requesterID int, status models.SwapStatus) (models.SwapRequestView, error)
	Delete(ctx context.Context, swapID, requesterID int) error
}

// notifier pushes an event to every relay connection of a user.
type notifier interface {
	NotifyUser(userID int, event string, payload any)
}

// SwapHandler serves swap request endpoints.
type SwapHandler struct {
	swaps    swapService
	notifier notifier
	audit    *telemetry.AuditEmitter
}

func NewSwapHandler(swaps swapService, notifier notifier, audit *telemetry.AuditEmitter) *SwapHandler {
	RegisterValidators()
	return &SwapHandler{swaps: swaps, notifier: notifier, audit: audit}
}

func (h *SwapHandler) Register(r gin.IRouter) {
	r.POST("/swaps", h.CreateSwap)
	r.GET("/swaps", h.ListSwaps)
	r.GET("/swaps/:swap_id", h.GetSwap)
	r.PUT("/swaps/:swap_id", h.UpdateSwap)
	r.DELETE("/swaps/:swap_id", h.DeleteSwap)
}

// CreateSwap files a swap request and notifies its recipient.
func (h *SwapHandler) CreateSwap(c *gin.Context) {
	var req struct {
		ToUserID  int    `json:"to_user_id" binding:"required,gt=0"`
		FromSkill string `json:"from_skill" binding:"required,notblank"`
		ToSkill   string `json:"to_skill" binding:"required,notblank"`
		Message   string `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	swap, err := h.swaps.Create(c.Request.Context(), c.GetInt(middleware.UserIDKey), services.SwapInput{
		ToUserID:  req.ToUserID,
		FromSkill: req.FromSkill,
		ToSkill:   req.ToSkill,
		Message:   req.Message,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	observability.IncSwapRequest(string(swap.Status))
	h.notify(swap.ToUserID, swap)
	recordAudit(c, h.audit, telemetry.Action{
		Name:      telemetry.ActionSwapCreated,
		Subject:   "swap_request",
		SubjectID: swap.ID,
		Detail:    fmt.Sprintf("%s for %s, to user %d", swap.FromSkill, swap.ToSkill, swap.ToUserID),
	})
	c.JSON(http.StatusCreated, gin.H{"swap_request": swap})
}

// ListSwaps lists the caller's swap requests. type is sent, received or empty.
func (h *SwapHandler) ListSwaps(c *gin.Context) {
	swaps, err := h.swaps.List(c.Request.Context(), c.GetInt(middleware.UserIDKey), models.SwapFilter{
		Direction: c.Query("type"),
		Status:    models.SwapStatus(c.Query("status")),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"swap_requests": swaps})
}

func (h *SwapHandler) GetSwap(c *gin.Context) {
	swapID, ok := pathID(c, "swap_id")
	if !ok {
		return
	}

	swap, err := h.swaps.Get(c.Request.Context(), swapID, c.GetInt(middleware.UserIDKey))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"swap_request": swap})
}

// UpdateSwap changes the status and notifies the other party.
func (h *SwapHandler) UpdateSwap(c *gin.Context) {
	swapID, ok := pathID(c, "swap_id")
	if !ok {
		return
	}

	var req struct {
		Status models.SwapStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt(middleware.UserIDKey)
	swap, err := h.swaps.UpdateStatus(c.Request.Context(), swapID, userID, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	other := swap.FromUserID
	if other == userID {
		other = swap.ToUserID
	}
	observability.IncSwapRequest(string(swap.Status))
	h.notify(other, swap)
	recordAudit(c, h.audit, telemetry.Action{Name: telemetry.ActionSwapUpdated, Subject: "swap_request", SubjectID: swap.ID, Detail: string(swap.Status)})
	c.JSON(http.StatusOK, gin.H{"swap_request": swap})
}

// DeleteSwap withdraws a swap request.
func (h *SwapHandler) DeleteSwap(c *gin.Context) {
	swapID, ok := pathID(c, "swap_id")
	if !ok {
		return
	}

	if err := h.swaps.Delete(c.Request.Context(), swapID, c.GetInt(middleware.UserIDKey)); err != nil {
		respondError(c, err)
		return
	}
	recordAudit(c, h.audit, telemetry.Action{Level: telemetry.LevelWarn, Name: telemetry.ActionSwapDeleted, Subject: "swap_request", SubjectID: swapID})
	c.JSON(http.StatusOK, gin.H{})
}

func (h *SwapHandler) notify(userID int, swap models.SwapRequestView) {
	if h.notifier == nil {
		return
	}
	h.notifier.NotifyUser(userID, models.EventSwapNotification, swap)
}
