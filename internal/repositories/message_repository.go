package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"skillswap-service/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

// PreviewLength is the number of characters of the latest message kept on the chat.
const PreviewLength = 100

const messageColumns = `id, chat_id, sender_id, content, is_read, read_at, created_at`

// MessageRepository defines interactions for chat messages.
type MessageRepository interface {
	CreateChatMessage(ctx context.Context, chatID int, senderID int, content string) (models.Message, error)
	ListChatMessages(ctx context.Context, chatID int, limit int, offset int) ([]models.Message, error)
	GetMessage(ctx context.Context, messageID int) (models.Message, error)
	MarkRead(ctx context.Context, chatID int, readerID int) (int64, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// CreateChatMessage stores a message and refreshes the chat's last message
// summary in the same transaction.
func (r *MessageRepo) CreateChatMessage(ctx context.Context, chatID int, senderID int, content string) (msg models.Message, err error) {
	now := time.Now().UTC()
	msg = models.Message{ChatID: chatID, SenderID: senderID, Content: content, CreatedAt: now}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Message{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if err = tx.QueryRowxContext(ctx, tx.Rebind(`INSERT INTO messages (chat_id, sender_id, content, is_read, created_at)
        VALUES (?, ?, ?, ?, ?) RETURNING id`), chatID, senderID, content, false, now).Scan(&msg.ID); err != nil {
		return models.Message{}, err
	}

	res, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE chats SET last_message=?, last_message_time=?, last_message_sender_id=?, updated_at=?
        WHERE id=?`), Preview(content), now, senderID, now, chatID)
	if err != nil {
		return models.Message{}, err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return models.Message{}, err
	}
	if count == 0 {
		err = ErrChatNotFound
		return models.Message{}, err
	}

	if err = tx.Commit(); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

// ListChatMessages returns one page of a chat's history. The page is taken from
// the newest end (offset skips the most recent messages) and returned oldest first.
func (r *MessageRepo) ListChatMessages(ctx context.Context, chatID int, limit int, offset int) ([]models.Message, error) {
	query := r.db.Rebind(`SELECT ` + messageColumns + ` FROM messages
        WHERE chat_id=?
        ORDER BY created_at DESC, id DESC
        LIMIT ? OFFSET ?`)
	msgs := []models.Message{}
	if err := r.db.SelectContext(ctx, &msgs, query, chatID, limit, offset); err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// GetMessage retrieves a single message.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID int) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, r.db.Rebind(`SELECT `+messageColumns+` FROM messages WHERE id=?`), messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// MarkRead flags every unread message in the chat not written by readerID as read.
func (r *MessageRepo) MarkRead(ctx context.Context, chatID int, readerID int) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE messages SET is_read=?, read_at=?
        WHERE chat_id=? AND sender_id<>? AND is_read=?`), true, time.Now().UTC(), chatID, readerID, false)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Preview truncates content to PreviewLength characters.
func Preview(content string) string {
	runes := []rune(content)
	if len(runes) <= PreviewLength {
		return content
	}
	return string(runes[:PreviewLength])
}
