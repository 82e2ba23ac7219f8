package chatclient

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"skillswap-service/internal/models"
)

// RelayURL derives the relay endpoint from the REST base URL.
func RelayURL(baseURL string) string {
	base := strings.TrimRight(baseURL, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + "/ws"
}

// Relay is a client connection to the realtime relay.
type Relay struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// Dial opens a relay connection authenticated with token.
func Dial(ctx context.Context, relayURL, token string) (*Relay, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, relayURL, header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, &APIError{Status: resp.StatusCode, Message: "relay rejected credentials"}
		}
		return nil, err
	}
	return &Relay{conn: conn}, nil
}

// Emit sends one event. Safe for concurrent use.
func (r *Relay) Emit(event string, data any) error {
	env, err := models.NewEnvelope(event, data)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conn.WriteJSON(env)
}

// Run delivers inbound events to handler until the connection closes.
func (r *Relay) Run(handler func(models.Envelope)) error {
	for {
		var env models.Envelope
		if err := r.conn.ReadJSON(&env); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		handler(env)
	}
}

// Close ends the connection with a normal closure.
func (r *Relay) Close() error {
	r.mu.Lock()
	_ = r.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	r.mu.Unlock()
	return r.conn.Close()
}
