package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"skillswap-service/internal/middleware"
	"skillswap-service/internal/services"
)

type recommender interface {
	Simple(ctx context.Context, userID int) ([]services.Recommendation, error)
	Recommend(ctx context.Context, userID int) ([]services.Recommendation, error)
}

// RecommendationHandler serves skill match suggestions.
type RecommendationHandler struct {
	recs recommender
}

func NewRecommendationHandler(recs recommender) *RecommendationHandler {
	return &RecommendationHandler{recs: recs}
}

func (h *RecommendationHandler) Register(r gin.IRouter) {
	r.POST("/ai/recommendations", h.Recommend)
	r.GET("/ai/simple-recommendations", h.Simple)
}

func (h *RecommendationHandler) Recommend(c *gin.Context) {
	h.respond(c, h.recs.Recommend)
}

func (h *RecommendationHandler) Simple(c *gin.Context) {
	h.respond(c, h.recs.Simple)
}

func (h *RecommendationHandler) respond(c *gin.Context, rank func(context.Context, int) ([]services.Recommendation, error)) {
	recs, err := rank(c.Request.Context(), c.GetInt(middleware.UserIDKey))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(recs), "recommendations": recs})
}
