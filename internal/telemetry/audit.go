package telemetry

import (
	"context"
	"strconv"
	"time"

	"skillswap-service/internal/logger"
)

type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
	Close() error
}

// Audit levels.
const (
	LevelInfo = "INFO"
	LevelWarn = "WARN"
)

// Audited actions.
const (
	ActionChatCreated = "chat.created"
	ActionChatDeleted = "chat.deleted"
	ActionSwapCreated = "swap.created"
	ActionSwapUpdated = "swap.updated"
	ActionSwapDeleted = "swap.deleted"
	ActionAuditProbe  = "audit.probe"
)

// Action is one auditable change to a chat or swap request.
type Action struct {
	Level     string
	Name      string
	Subject   string
	SubjectID int
	Detail    string
}

type AuditEmitter struct {
	publisher   Publisher
	routingKey  string
	service     string
	environment string
}

type AuditEnvelope struct {
	SchemaVersion int          `json:"schema_version"`
	EventType     string       `json:"event_type"`
	OccurredAt    string       `json:"occurred_at"`
	Service       string       `json:"service"`
	Environment   string       `json:"environment"`
	RequestID     string       `json:"request_id"`
	ActorID       *string      `json:"actor_id,omitempty"`
	Payload       AuditPayload `json:"payload"`
}

type AuditPayload struct {
	Level     string `json:"level"`
	Action    string `json:"action"`
	Subject   string `json:"subject,omitempty"`
	SubjectID int    `json:"subject_id,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

func NewAuditEmitter(publisher Publisher, routingKey, service, environment string) *AuditEmitter {
	return &AuditEmitter{
		publisher:   publisher,
		routingKey:  routingKey,
		service:     service,
		environment: environment,
	}
}

// Emit publishes the action on the audit routing key. A zero actorID is recorded as
// anonymous. Publish failures are logged, never returned.
func (e *AuditEmitter) Emit(ctx context.Context, a Action, requestID string, actorID int) {
	if e == nil || e.publisher == nil {
		return
	}
	if a.Level == "" {
		a.Level = LevelInfo
	}

	var actor *string
	if actorID != 0 {
		s := strconv.Itoa(actorID)
		actor = &s
	}

	log := logger.WithRequest(requestID, actorID)
	log.Debug().
		Str("action", a.Name).
		Str("subject", a.Subject).
		Int("subject_id", a.SubjectID).
		Msg("audit emit")

	envelope := AuditEnvelope{
		SchemaVersion: 2,
		EventType:     "audit_log",
		OccurredAt:    time.Now().UTC().Format(time.RFC3339Nano),
		Service:       e.service,
		Environment:   e.environment,
		RequestID:     requestID,
		ActorID:       actor,
		Payload: AuditPayload{
			Level:     a.Level,
			Action:    a.Name,
			Subject:   a.Subject,
			SubjectID: a.SubjectID,
			Detail:    a.Detail,
		},
	}

	if err := e.publisher.Publish(ctx, e.routingKey, envelope); err != nil {
		log.Warn().Err(err).Str("action", a.Name).Msg("audit publish failed")
	}
}
