package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"skillswap-service/internal/models"
)

var ErrChatNotFound = errors.New("chat not found")

const chatColumns = `id, user1_id, user2_id, pair_key, swap_request_id, last_message, last_message_time, last_message_sender_id, created_at, updated_at`

// ChatRepository abstracts chat persistence.
type ChatRepository interface {
	CreateOrGetChat(ctx context.Context, userID int, otherID int, swapRequestID *int) (models.Chat, bool, error)
	IsParticipant(ctx context.Context, chatID int, userID int) (bool, error)
	GetChat(ctx context.Context, chatID int) (models.Chat, error)
	ListChats(ctx context.Context, userID int) ([]models.Chat, error)
	DeleteChat(ctx context.Context, chatID int) error
}

// ChatRepo is a sqlx implementation of ChatRepository.
type ChatRepo struct {
	db *sqlx.DB
}

// NewChatRepo constructs a ChatRepo.
func NewChatRepo(db *sqlx.DB) *ChatRepo {
	return &ChatRepo{db: db}
}

// CreateOrGetChat returns the chat between two users, creating it if it does not
// exist yet. The boolean reports whether this call created it. The unique pair key
// makes concurrent first calls converge on a single row.
func (r *ChatRepo) CreateOrGetChat(ctx context.Context, userID int, otherID int, swapRequestID *int) (models.Chat, bool, error) {
	if userID == otherID {
		return models.Chat{}, false, errors.New("cannot create chat with self")
	}
	key := models.PairKey(userID, otherID)
	now := time.Now().UTC()

	res, err := r.db.ExecContext(ctx, r.db.Rebind(`INSERT INTO chats
        (user1_id, user2_id, pair_key, swap_request_id, last_message, last_message_time, created_at, updated_at)
        VALUES (?, ?, ?, ?, '', ?, ?, ?)
        ON CONFLICT (pair_key) DO NOTHING`), userID, otherID, key, swapRequestID, now, now, now)
	if err != nil {
		return models.Chat{}, false, err
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return models.Chat{}, false, err
	}

	var chat models.Chat
	if err := r.db.GetContext(ctx, &chat, r.db.Rebind(`SELECT `+chatColumns+` FROM chats WHERE pair_key=?`), key); err != nil {
		return models.Chat{}, false, err
	}
	return chat, inserted == 1, nil
}

// IsParticipant checks whether a user belongs to the chat.
func (r *ChatRepo) IsParticipant(ctx context.Context, chatID int, userID int) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, r.db.Rebind(`SELECT EXISTS(SELECT 1 FROM chats WHERE id=? AND (user1_id=? OR user2_id=?))`), chatID, userID, userID)
	return exists, err
}

// GetChat fetches a chat by id.
func (r *ChatRepo) GetChat(ctx context.Context, chatID int) (models.Chat, error) {
	var chat models.Chat
	err := r.db.GetContext(ctx, &chat, r.db.Rebind(`SELECT `+chatColumns+` FROM chats WHERE id=?`), chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Chat{}, ErrChatNotFound
	}
	return chat, err
}

// ListChats returns the user's chats, most recently active first.
func (r *ChatRepo) ListChats(ctx context.Context, userID int) ([]models.Chat, error) {
	query := r.db.Rebind(`SELECT ` + chatColumns + ` FROM chats
        WHERE user1_id=? OR user2_id=?
        ORDER BY last_message_time DESC, id DESC`)
	chats := []models.Chat{}
	err := r.db.SelectContext(ctx, &chats, query, userID, userID)
	return chats, err
}

// DeleteChat removes the chat and all of its messages in one transaction.
func (r *ChatRepo) DeleteChat(ctx context.Context, chatID int) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, tx.Rebind(`DELETE FROM messages WHERE chat_id=?`), chatID); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM chats WHERE id=?`), chatID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		err = ErrChatNotFound
		return err
	}
	return tx.Commit()
}
