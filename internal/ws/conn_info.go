package ws

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"skillswap-service/internal/observability"
)

// ConnInfo identifies one relay connection in logs and lifecycle events.
type ConnInfo struct {
	ConnID      string
	UserID      int
	DeviceID    string
	IP          string
	RequestID   string
	ConnectedAt time.Time
}

func newConnInfo(r *http.Request, userID int, requestID string) ConnInfo {
	if requestID == "" {
		requestID = r.Header.Get("X-Request-ID")
	}
	return ConnInfo{
		ConnID:      uuid.NewString(),
		UserID:      userID,
		DeviceID:    r.Header.Get("X-Device-Id"),
		IP:          clientIP(r),
		RequestID:   requestID,
		ConnectedAt: time.Now(),
	}
}

func (i ConnInfo) lifecycleEvent(name, reason string) observability.RelayEvent {
	now := time.Now()
	return observability.RelayEvent{
		EventType:  "ws_events",
		EventName:  name,
		OccurredAt: now.UTC(),
		Kind:       wsKind,
		ConnID:     i.ConnID,
		UserID:     i.UserID,
		DeviceID:   i.DeviceID,
		IP:         i.IP,
		Reason:     reason,
		DurationMS: now.Sub(i.ConnectedAt).Milliseconds(),
	}
}

// clientIP prefers the first X-Forwarded-For hop over the socket address.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
