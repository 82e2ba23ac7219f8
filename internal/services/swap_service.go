package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"skillswap-service/internal/models"
	"skillswap-service/internal/repositories"
)

const MaxSwapMessageLength = 500

// SwapInput is the payload of a new swap request.
type SwapInput struct {
	ToUserID  int
	FromSkill string
	ToSkill   string
	Message   string
}

// SwapService manages skill swap requests between users.
type SwapService struct {
	swaps repositories.SwapRepository
	users repositories.UserRepository
}

// NewSwapService builds a SwapService.
func NewSwapService(swaps repositories.SwapRepository, users repositories.UserRepository) *SwapService {
	return &SwapService{swaps: swaps, users: users}
}

// Create files a pending swap request from fromID.
func (s *SwapService) Create(ctx context.Context, fromID int, in SwapInput) (models.SwapRequestView, error) {
	in.FromSkill = strings.TrimSpace(in.FromSkill)
	in.ToSkill = strings.TrimSpace(in.ToSkill)
	in.Message = strings.TrimSpace(in.Message)

	switch {
	case in.ToUserID <= 0:
		return models.SwapRequestView{}, validationError("recipient is required")
	case in.FromSkill == "" || in.ToSkill == "":
		return models.SwapRequestView{}, validationError("both skills are required")
	case in.ToUserID == fromID:
		return models.SwapRequestView{}, validationError("cannot send a swap request to yourself")
	case utf8.RuneCountInString(in.Message) > MaxSwapMessageLength:
		return models.SwapRequestView{}, validationError(fmt.Sprintf("message must be at most %d characters", MaxSwapMessageLength))
	}

	if _, err := s.users.GetUser(ctx, in.ToUserID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return models.SwapRequestView{}, notFoundError("recipient not found")
		}
		return models.SwapRequestView{}, fmt.Errorf("load recipient: %w", err)
	}

	pending, err := s.swaps.HasPending(ctx, fromID, in.ToUserID)
	if err != nil {
		return models.SwapRequestView{}, fmt.Errorf("check pending swaps: %w", err)
	}
	if pending {
		return models.SwapRequestView{}, validationError("a pending swap request to this user already exists")
	}

	swap, err := s.swaps.CreateSwap(ctx, models.SwapRequest{
		FromUserID: fromID,
		ToUserID:   in.ToUserID,
		FromSkill:  in.FromSkill,
		ToSkill:    in.ToSkill,
		Message:    in.Message,
	})
	if err != nil {
		return models.SwapRequestView{}, fmt.Errorf("create swap request: %w", err)
	}
	return s.view(ctx, swap)
}

// List returns the swap requests userID sent or received.
func (s *SwapService) List(ctx context.Context, userID int, filter models.SwapFilter) ([]models.SwapRequestView, error) {
	switch filter.Direction {
	case "", "sent", "received":
	default:
		return nil, validationError("type must be sent or received")
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, validationError("unknown status")
	}

	swaps, err := s.swaps.ListSwaps(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("list swap requests: %w", err)
	}
	return s.views(ctx, swaps)
}

// Get returns a swap request visible to requesterID.
func (s *SwapService) Get(ctx context.Context, swapID, requesterID int) (models.SwapRequestView, error) {
	swap, err := s.load(ctx, swapID)
	if err != nil {
		return models.SwapRequestView{}, err
	}
	if !swap.Involves(requesterID) {
		return models.SwapRequestView{}, forbiddenError("not a party of this swap request")
	}
	return s.view(ctx, swap)
}

// UpdateStatus moves a swap request to status. Only the recipient may accept or
// reject; either party may mark it completed.
func (s *SwapService) UpdateStatus(ctx context.Context, swapID, requesterID int, status models.SwapStatus) (models.SwapRequestView, error) {
	if status == models.SwapPending || !status.Valid() {
		return models.SwapRequestView{}, validationError("status must be accepted, rejected or completed")
	}

	swap, err := s.load(ctx, swapID)
	if err != nil {
		return models.SwapRequestView{}, err
	}
	if !swap.Involves(requesterID) {
		return models.SwapRequestView{}, forbiddenError("not a party of this swap request")
	}

	now := time.Now().UTC()
	switch status {
	case models.SwapAccepted, models.SwapRejected:
		if swap.ToUserID != requesterID {
			return models.SwapRequestView{}, forbiddenError("only the recipient can respond to a swap request")
		}
		swap.RespondedAt = &now
	case models.SwapCompleted:
		swap.CompletedAt = &now
	}
	swap.Status = status
	swap.UpdatedAt = now

	if err := s.swaps.UpdateSwap(ctx, swap); err != nil {
		if errors.Is(err, repositories.ErrSwapNotFound) {
			return models.SwapRequestView{}, notFoundError("swap request not found")
		}
		return models.SwapRequestView{}, fmt.Errorf("update swap request: %w", err)
	}
	return s.view(ctx, swap)
}

// Delete withdraws a swap request. Only its sender may do so.
func (s *SwapService) Delete(ctx context.Context, swapID, requesterID int) error {
	swap, err := s.load(ctx, swapID)
	if err != nil {
		return err
	}
	if swap.FromUserID != requesterID {
		return forbiddenError("only the sender can delete a swap request")
	}
	if err := s.swaps.DeleteSwap(ctx, swapID); err != nil {
		if errors.Is(err, repositories.ErrSwapNotFound) {
			return notFoundError("swap request not found")
		}
		return fmt.Errorf("delete swap request: %w", err)
	}
	return nil
}

func (s *SwapService) load(ctx context.Context, swapID int) (models.SwapRequest, error) {
	swap, err := s.swaps.GetSwap(ctx, swapID)
	if err != nil {
		if errors.Is(err, repositories.ErrSwapNotFound) {
			return models.SwapRequest{}, notFoundError("swap request not found")
		}
		return models.SwapRequest{}, fmt.Errorf("load swap request: %w", err)
	}
	return swap, nil
}

func (s *SwapService) view(ctx context.Context, swap models.SwapRequest) (models.SwapRequestView, error) {
	views, err := s.views(ctx, []models.SwapRequest{swap})
	if err != nil {
		return models.SwapRequestView{}, err
	}
	return views[0], nil
}

func (s *SwapService) views(ctx context.Context, swaps []models.SwapRequest) ([]models.SwapRequestView, error) {
	ids := make([]int, 0, len(swaps)*2)
	for _, sw := range swaps {
		ids = append(ids, sw.FromUserID, sw.ToUserID)
	}
	refs, err := resolveUsers(ctx, s.users, ids)
	if err != nil {
		return nil, err
	}

	views := make([]models.SwapRequestView, 0, len(swaps))
	for _, sw := range swaps {
		from := refOrPlaceholder(refs, sw.FromUserID)
		to := refOrPlaceholder(refs, sw.ToUserID)
		views = append(views, models.SwapRequestView{SwapRequest: sw, From: &from, To: &to})
	}
	return views, nil
}
