package ws

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"skillswap-service/internal/identity"
	"skillswap-service/internal/logger"
	"skillswap-service/internal/middleware"
	"skillswap-service/internal/models"
	"skillswap-service/internal/observability"
	"skillswap-service/internal/rabbitmq"
	"skillswap-service/internal/repositories"
)

const (
	wsKind       = "relay"
	wsRoutingKey = "ws_events.relay"
)

type userLookup interface {
	GetUser(ctx context.Context, userID int) (models.User, error)
}

// Handler upgrades authenticated requests to relay connections.
type Handler struct {
	hub       *Hub
	chats     participantChecker
	users     userLookup
	verifier  identity.Verifier
	publisher rabbitmq.Publisher
}

// NewHandler constructs a Handler. publisher may be nil.
func NewHandler(hub *Hub, chats participantChecker, users userLookup, verifier identity.Verifier, publisher rabbitmq.Publisher) *Handler {
	return &Handler{hub: hub, chats: chats, users: users, verifier: verifier, publisher: publisher}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle authenticates the caller, upgrades the connection and subscribes it to
// its personal room.
func (h *Handler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("skillswap-service/ws").Start(c.Request.Context(), "ws.handshake", trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := middleware.TokenFromRequest(c.Request)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	id, err := h.verifier.Verify(ctx, token)
	if err != nil {
		if !errors.Is(err, identity.ErrUnauthorized) {
			logger.Get().Error().Err(err).Msg("relay token verification failed")
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	user, err := h.users.GetUser(ctx, id.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
			return
		}
		logger.Get().Error().Err(err).Int("user_id", id.UserID).Msg("relay user lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	info := newConnInfo(c.Request, user.ID, c.GetString(middleware.RequestIDKey))
	client := newClient(h.hub, conn, user.Ref(), info, h.chats)
	h.hub.Join(UserRoom(user.ID), client)

	// the request context ends with this handler; keep its values only
	eventCtx := context.WithoutCancel(ctx)
	observability.IncWSActive(wsKind)
	h.publishLifecycle(eventCtx, info, "ws_connect", "")
	logger.Get().Info().Str("conn_id", info.ConnID).Int("user_id", user.ID).Msg("relay connected")

	go client.writePump()
	go client.readPump(func(reason string, abnormal bool) {
		observability.DecWSActive(wsKind)
		if abnormal {
			h.publishLifecycle(eventCtx, info, "ws_error", reason)
		}
		h.publishLifecycle(eventCtx, info, "ws_disconnect", reason)
		logger.Get().Info().Str("conn_id", info.ConnID).Int("user_id", user.ID).Str("reason", reason).Msg("relay disconnected")
	})
}

func (h *Handler) publishLifecycle(ctx context.Context, info ConnInfo, event, reason string) {
	observability.IncWSEvent(wsKind, event)
	if h.publisher == nil {
		return
	}

	ctx = rabbitmq.WithHeaders(ctx, observability.CorrelationHeaders(ctx, info.RequestID))
	if err := h.publisher.Publish(ctx, wsRoutingKey, info.lifecycleEvent(event, reason)); err != nil {
		logger.Get().Warn().Err(err).Str("conn_id", info.ConnID).Str("event", event).Msg("relay lifecycle publish failed")
	}
}
