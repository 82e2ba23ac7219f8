package chatclient

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"skillswap-service/internal/logger"
	"skillswap-service/internal/models"
)

const (
	// DefaultTypingDebounce is the idle time after the last keystroke before stop_typing is sent.
	DefaultTypingDebounce = 2 * time.Second
	defaultPageSize       = 50
)

// API is the subset of the REST client the view needs.
type API interface {
	ListChats(ctx context.Context) ([]models.ChatView, error)
	ListMessages(ctx context.Context, chatID, limit, skip int) ([]models.MessageView, error)
	SendMessage(ctx context.Context, chatID int, content string) (models.MessageView, error)
	MarkRead(ctx context.Context, chatID int) (int64, error)
}

// Emitter sends relay events.
type Emitter interface {
	Emit(event string, data any) error
}

type chatRef struct {
	ChatID int `json:"chat_id"`
}

// View keeps the local chat state of one signed-in user consistent with
// the server and the relay. All methods are safe for concurrent use.
type View struct {
	api      API
	relay    Emitter
	debounce time.Duration
	pageSize int

	mu       sync.Mutex
	chats    []models.ChatView
	loading  bool
	active   int
	messages []models.MessageView
	draft    string
	typing   *models.TypingPayload
	timer    *time.Timer
	timerGen uint64
}

// Option configures a View.
type Option func(*View)

// WithTypingDebounce overrides DefaultTypingDebounce.
func WithTypingDebounce(d time.Duration) Option {
	return func(v *View) { v.debounce = d }
}

// WithPageSize sets how many messages Select loads.
func WithPageSize(n int) Option {
	return func(v *View) { v.pageSize = n }
}

func NewView(api API, relay Emitter, opts ...Option) *View {
	v := &View{api: api, relay: relay, debounce: DefaultTypingDebounce, pageSize: defaultPageSize}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Activate loads the chat list. A failure leaves an empty list.
func (v *View) Activate(ctx context.Context) {
	v.mu.Lock()
	v.loading = true
	v.mu.Unlock()

	chats, err := v.api.ListChats(ctx)
	if err != nil {
		logger.Get().Warn().Err(err).Msg("load chats failed")
		chats = nil
	}

	v.mu.Lock()
	v.chats = chats
	v.loading = false
	v.mu.Unlock()
}

// Select makes chatID the active chat: the previous room is left, the
// latest page is loaded, unread messages are marked read and the room joined.
func (v *View) Select(ctx context.Context, chatID int) error {
	v.mu.Lock()
	prev := v.active
	v.stopTimerLocked()
	v.active = chatID
	if prev != chatID {
		v.messages = nil
	}
	v.typing = nil
	v.mu.Unlock()

	if prev != 0 && prev != chatID {
		v.emit(models.EventLeaveChat, chatRef{ChatID: prev})
	}

	msgs, err := v.api.ListMessages(ctx, chatID, v.pageSize, 0)
	if err != nil {
		return err
	}

	v.mu.Lock()
	if v.active == chatID {
		v.mergeLocked(msgs)
	}
	v.mu.Unlock()

	if _, err := v.api.MarkRead(ctx, chatID); err != nil {
		logger.Get().Warn().Err(err).Int("chat_id", chatID).Msg("mark read failed")
	}
	v.emit(models.EventJoinChat, chatRef{ChatID: chatID})
	v.refreshChats(ctx)
	return nil
}

// Input records the draft and signals typing. stop_typing follows once
// no input arrived for the debounce interval.
func (v *View) Input(text string) {
	v.mu.Lock()
	v.draft = text
	chatID := v.active
	if chatID == 0 {
		v.mu.Unlock()
		return
	}
	v.stopTimerLocked()
	gen := v.timerGen
	v.timer = time.AfterFunc(v.debounce, func() {
		v.mu.Lock()
		if v.timerGen != gen {
			v.mu.Unlock()
			return
		}
		v.timer = nil
		v.mu.Unlock()
		v.emit(models.EventStopTyping, chatRef{ChatID: chatID})
	})
	v.mu.Unlock()

	v.emit(models.EventTyping, chatRef{ChatID: chatID})
}

// Send persists the draft. On failure the draft is kept and the error returned.
func (v *View) Send(ctx context.Context) error {
	v.mu.Lock()
	content := strings.TrimSpace(v.draft)
	chatID := v.active
	v.mu.Unlock()
	if content == "" || chatID == 0 {
		return nil
	}

	msg, err := v.api.SendMessage(ctx, chatID, content)
	if err != nil {
		return err
	}

	v.mu.Lock()
	if v.active == chatID {
		v.appendLocked(msg)
	}
	// input typed while the request was in flight stays in the draft
	cleared := strings.TrimSpace(v.draft) == content
	if cleared {
		v.draft = ""
		v.stopTimerLocked()
	}
	v.mu.Unlock()

	v.emit(models.EventSendMessage, models.SendMessagePayload{ChatID: chatID, Message: msg})
	if cleared {
		v.emit(models.EventStopTyping, chatRef{ChatID: chatID})
	}
	v.refreshChats(ctx)
	return nil
}

// HandleEvent applies an inbound relay event.
func (v *View) HandleEvent(env models.Envelope) {
	switch env.Event {
	case models.EventReceiveMessage:
		var msg models.MessageView
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			logger.Get().Warn().Err(err).Msg("malformed receive_message")
			return
		}
		v.mu.Lock()
		if msg.ChatID == v.active {
			v.appendLocked(msg)
		}
		v.mu.Unlock()
	case models.EventUserTyping, models.EventUserStoppedTyping:
		var p models.TypingPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return
		}
		v.mu.Lock()
		if p.ChatID == v.active {
			if env.Event == models.EventUserTyping {
				v.typing = &p
			} else {
				v.typing = nil
			}
		}
		v.mu.Unlock()
	case models.EventError:
		var p models.ErrorPayload
		_ = json.Unmarshal(env.Data, &p)
		logger.Get().Warn().Str("event", p.Event).Str("message", p.Message).Msg("relay rejected event")
	}
}

func (v *View) Chats() []models.ChatView {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]models.ChatView(nil), v.chats...)
}

func (v *View) Messages() []models.MessageView {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]models.MessageView(nil), v.messages...)
}

func (v *View) Loading() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loading
}

func (v *View) ActiveChat() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.active
}

func (v *View) Draft() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.draft
}

// Typing returns who is typing in the active chat.
func (v *View) Typing() (models.TypingPayload, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.typing == nil {
		return models.TypingPayload{}, false
	}
	return *v.typing, true
}

// appendLocked adds msg unless a message with the same id is already shown.
func (v *View) appendLocked(msg models.MessageView) {
	for _, m := range v.messages {
		if m.ID == msg.ID {
			return
		}
	}
	v.messages = append(v.messages, msg)
}

// mergeLocked replaces the shown messages with page, keeping anything that
// arrived while the page was loading.
func (v *View) mergeLocked(page []models.MessageView) {
	seen := make(map[int]struct{}, len(page))
	merged := make([]models.MessageView, 0, len(page)+len(v.messages))
	for _, m := range page {
		seen[m.ID] = struct{}{}
		merged = append(merged, m)
	}
	for _, m := range v.messages {
		if _, ok := seen[m.ID]; !ok {
			merged = append(merged, m)
		}
	}
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].ID < merged[j].ID })
	v.messages = merged
}

func (v *View) stopTimerLocked() {
	v.timerGen++
	if v.timer != nil {
		v.timer.Stop()
		v.timer = nil
	}
}

func (v *View) refreshChats(ctx context.Context) {
	chats, err := v.api.ListChats(ctx)
	if err != nil {
		logger.Get().Warn().Err(err).Msg("refresh chats failed")
		return
	}
	v.mu.Lock()
	v.chats = chats
	v.mu.Unlock()
}

func (v *View) emit(event string, data any) {
	if v.relay == nil {
		return
	}
	if err := v.relay.Emit(event, data); err != nil {
		logger.Get().Warn().Err(err).Str("event", event).Msg("relay emit failed")
	}
}
