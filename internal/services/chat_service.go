package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"skillswap-service/internal/models"
	"skillswap-service/internal/repositories"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200

	// MaxMessageLength bounds message content in runes. The relay frame limit
	// is sized so a send_message envelope at this length still fits.
	MaxMessageLength = 5000
)

// ChatService owns the lifecycle of two-party chats and their messages.
type ChatService struct {
	chats    repositories.ChatRepository
	messages repositories.MessageRepository
	users    repositories.UserRepository
	swaps    repositories.SwapRepository
}

// NewChatService builds a ChatService.
func NewChatService(chats repositories.ChatRepository, messages repositories.MessageRepository, users repositories.UserRepository, swaps repositories.SwapRepository) *ChatService {
	return &ChatService{chats: chats, messages: messages, users: users, swaps: swaps}
}

// GetOrCreateChat returns the chat between requesterID and otherUserID, creating it
// on first access. The boolean reports whether the chat was created by this call.
func (s *ChatService) GetOrCreateChat(ctx context.Context, requesterID, otherUserID int, swapRequestID *int) (models.ChatView, bool, error) {
	if otherUserID <= 0 {
		return models.ChatView{}, false, validationError("user id is required")
	}
	if otherUserID == requesterID {
		return models.ChatView{}, false, validationError("cannot chat with yourself")
	}

	if _, err := s.users.GetUser(ctx, otherUserID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return models.ChatView{}, false, notFoundError("user not found")
		}
		return models.ChatView{}, false, fmt.Errorf("load user: %w", err)
	}

	if swapRequestID != nil {
		swap, err := s.swaps.GetSwap(ctx, *swapRequestID)
		if err != nil {
			if errors.Is(err, repositories.ErrSwapNotFound) {
				return models.ChatView{}, false, notFoundError("swap request not found")
			}
			return models.ChatView{}, false, fmt.Errorf("load swap request: %w", err)
		}
		if !swap.Involves(requesterID) || !swap.Involves(otherUserID) {
			return models.ChatView{}, false, forbiddenError("swap request does not belong to these users")
		}
	}

	chat, created, err := s.chats.CreateOrGetChat(ctx, requesterID, otherUserID, swapRequestID)
	if err != nil {
		return models.ChatView{}, false, fmt.Errorf("create chat: %w", err)
	}

	views, err := s.chatViews(ctx, []models.Chat{chat})
	if err != nil {
		return models.ChatView{}, false, err
	}
	return views[0], created, nil
}

// ListChats returns the chats userID takes part in, most recent activity first.
func (s *ChatService) ListChats(ctx context.Context, userID int) ([]models.ChatView, error) {
	chats, err := s.chats.ListChats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	return s.chatViews(ctx, chats)
}

// ListMessages returns a page of the chat's history, oldest first. Offset counts
// from the newest message.
func (s *ChatService) ListMessages(ctx context.Context, chatID, requesterID, limit, offset int) ([]models.MessageView, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		return nil, validationError("skip must not be negative")
	}

	if _, err := s.authorize(ctx, chatID, requesterID); err != nil {
		return nil, err
	}

	msgs, err := s.messages.ListChatMessages(ctx, chatID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return s.messageViews(ctx, msgs)
}

// SendMessage persists a message from senderID and refreshes the chat summary.
func (s *ChatService) SendMessage(ctx context.Context, chatID, senderID int, content string) (models.MessageView, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return models.MessageView{}, validationError("message content is required")
	}
	if utf8.RuneCountInString(content) > MaxMessageLength {
		return models.MessageView{}, validationError(fmt.Sprintf("message content must be at most %d characters", MaxMessageLength))
	}

	if _, err := s.authorize(ctx, chatID, senderID); err != nil {
		return models.MessageView{}, err
	}

	msg, err := s.messages.CreateChatMessage(ctx, chatID, senderID, content)
	if err != nil {
		if errors.Is(err, repositories.ErrChatNotFound) {
			return models.MessageView{}, notFoundError("chat not found")
		}
		return models.MessageView{}, fmt.Errorf("store message: %w", err)
	}

	views, err := s.messageViews(ctx, []models.Message{msg})
	if err != nil {
		return models.MessageView{}, err
	}
	return views[0], nil
}

// MarkRead marks every unread message in the chat written by the other participant
// as read and returns how many were updated.
func (s *ChatService) MarkRead(ctx context.Context, chatID, readerID int) (int64, error) {
	if _, err := s.authorize(ctx, chatID, readerID); err != nil {
		return 0, err
	}
	count, err := s.messages.MarkRead(ctx, chatID, readerID)
	if err != nil {
		return 0, fmt.Errorf("mark read: %w", err)
	}
	return count, nil
}

// DeleteChat removes the chat and its messages.
func (s *ChatService) DeleteChat(ctx context.Context, chatID, requesterID int) error {
	if _, err := s.authorize(ctx, chatID, requesterID); err != nil {
		return err
	}
	if err := s.chats.DeleteChat(ctx, chatID); err != nil {
		if errors.Is(err, repositories.ErrChatNotFound) {
			return notFoundError("chat not found")
		}
		return fmt.Errorf("delete chat: %w", err)
	}
	return nil
}

// IsParticipant reports whether userID belongs to chatID.
func (s *ChatService) IsParticipant(ctx context.Context, chatID, userID int) (bool, error) {
	return s.chats.IsParticipant(ctx, chatID, userID)
}

func (s *ChatService) authorize(ctx context.Context, chatID, userID int) (models.Chat, error) {
	chat, err := s.chats.GetChat(ctx, chatID)
	if err != nil {
		if errors.Is(err, repositories.ErrChatNotFound) {
			return models.Chat{}, notFoundError("chat not found")
		}
		return models.Chat{}, fmt.Errorf("load chat: %w", err)
	}
	if !chat.HasParticipant(userID) {
		return models.Chat{}, forbiddenError("not a chat member")
	}
	return chat, nil
}

func (s *ChatService) chatViews(ctx context.Context, chats []models.Chat) ([]models.ChatView, error) {
	ids := make([]int, 0, len(chats)*2)
	for _, chat := range chats {
		ids = append(ids, chat.Participants()...)
		if chat.LastMessageSenderID != nil {
			ids = append(ids, *chat.LastMessageSenderID)
		}
	}
	refs, err := s.userRefs(ctx, ids)
	if err != nil {
		return nil, err
	}

	views := make([]models.ChatView, 0, len(chats))
	for _, chat := range chats {
		view := models.ChatView{Chat: chat, Participants: make([]models.UserRef, 0, 2)}
		for _, id := range chat.Participants() {
			view.Participants = append(view.Participants, refOrPlaceholder(refs, id))
		}
		if chat.LastMessageSenderID != nil {
			sender := refOrPlaceholder(refs, *chat.LastMessageSenderID)
			view.LastMessageSender = &sender
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *ChatService) messageViews(ctx context.Context, msgs []models.Message) ([]models.MessageView, error) {
	ids := make([]int, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.SenderID)
	}
	refs, err := s.userRefs(ctx, ids)
	if err != nil {
		return nil, err
	}

	views := make([]models.MessageView, 0, len(msgs))
	for _, m := range msgs {
		sender := refOrPlaceholder(refs, m.SenderID)
		views = append(views, models.MessageView{Message: m, Sender: &sender})
	}
	return views, nil
}

func (s *ChatService) userRefs(ctx context.Context, ids []int) (map[int]models.UserRef, error) {
	return resolveUsers(ctx, s.users, ids)
}

func resolveUsers(ctx context.Context, users repositories.UserRepository, ids []int) (map[int]models.UserRef, error) {
	unique := make([]int, 0, len(ids))
	seen := map[int]struct{}{}
	for _, id := range ids {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			unique = append(unique, id)
		}
	}

	found, err := users.BulkUsers(ctx, unique)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	refs := make(map[int]models.UserRef, len(found))
	for _, u := range found {
		refs[u.ID] = u.Ref()
	}
	return refs, nil
}

// refOrPlaceholder keeps the id of users whose profile no longer exists.
func refOrPlaceholder(refs map[int]models.UserRef, id int) models.UserRef {
	if ref, ok := refs[id]; ok {
		return ref
	}
	return models.UserRef{ID: id}
}
