package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"skillswap-service/internal/models"
)

var ErrSwapNotFound = errors.New("swap request not found")

const swapColumns = `id, from_user_id, to_user_id, from_skill, to_skill, message, status, responded_at, completed_at, created_at, updated_at`

// SwapRepository abstracts swap request persistence.
type SwapRepository interface {
	CreateSwap(ctx context.Context, swap models.SwapRequest) (models.SwapRequest, error)
	GetSwap(ctx context.Context, swapID int) (models.SwapRequest, error)
	ListSwaps(ctx context.Context, userID int, filter models.SwapFilter) ([]models.SwapRequest, error)
	HasPending(ctx context.Context, fromID int, toID int) (bool, error)
	UpdateSwap(ctx context.Context, swap models.SwapRequest) error
	DeleteSwap(ctx context.Context, swapID int) error
}

// SwapRepo is a sqlx implementation of SwapRepository.
type SwapRepo struct {
	db *sqlx.DB
}

// NewSwapRepo constructs a SwapRepo.
func NewSwapRepo(db *sqlx.DB) *SwapRepo {
	return &SwapRepo{db: db}
}

// CreateSwap stores a new pending swap request.
func (r *SwapRepo) CreateSwap(ctx context.Context, swap models.SwapRequest) (models.SwapRequest, error) {
	now := time.Now().UTC()
	swap.Status = models.SwapPending
	swap.CreatedAt, swap.UpdatedAt = now, now

	query := r.db.Rebind(`INSERT INTO swap_requests (from_user_id, to_user_id, from_skill, to_skill, message, status, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	if err := r.db.QueryRowxContext(ctx, query, swap.FromUserID, swap.ToUserID, swap.FromSkill, swap.ToSkill,
		swap.Message, swap.Status, swap.CreatedAt, swap.UpdatedAt).Scan(&swap.ID); err != nil {
		return models.SwapRequest{}, err
	}
	return swap, nil
}

// GetSwap fetches a swap request by id.
func (r *SwapRepo) GetSwap(ctx context.Context, swapID int) (models.SwapRequest, error) {
	var swap models.SwapRequest
	err := r.db.GetContext(ctx, &swap, r.db.Rebind(`SELECT `+swapColumns+` FROM swap_requests WHERE id=?`), swapID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.SwapRequest{}, ErrSwapNotFound
	}
	return swap, err
}

// ListSwaps returns the user's swap requests, newest first.
func (r *SwapRepo) ListSwaps(ctx context.Context, userID int, filter models.SwapFilter) ([]models.SwapRequest, error) {
	query := `SELECT ` + swapColumns + ` FROM swap_requests WHERE `
	var args []any
	switch filter.Direction {
	case "sent":
		query += `from_user_id=?`
		args = append(args, userID)
	case "received":
		query += `to_user_id=?`
		args = append(args, userID)
	default:
		query += `(from_user_id=? OR to_user_id=?)`
		args = append(args, userID, userID)
	}
	if filter.Status != "" {
		query += ` AND status=?`
		args = append(args, filter.Status)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	swaps := []models.SwapRequest{}
	err := r.db.SelectContext(ctx, &swaps, r.db.Rebind(query), args...)
	return swaps, err
}

// HasPending reports whether fromID already has a pending request to toID.
func (r *SwapRepo) HasPending(ctx context.Context, fromID int, toID int) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, r.db.Rebind(`SELECT EXISTS(SELECT 1 FROM swap_requests WHERE from_user_id=? AND to_user_id=? AND status=?)`),
		fromID, toID, models.SwapPending)
	return exists, err
}

// UpdateSwap persists the status fields of a swap request.
func (r *SwapRepo) UpdateSwap(ctx context.Context, swap models.SwapRequest) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE swap_requests SET status=?, responded_at=?, completed_at=?, updated_at=? WHERE id=?`),
		swap.Status, swap.RespondedAt, swap.CompletedAt, time.Now().UTC(), swap.ID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrSwapNotFound
	}
	return nil
}

// DeleteSwap removes a swap request.
func (r *SwapRepo) DeleteSwap(ctx context.Context, swapID int) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM swap_requests WHERE id=?`), swapID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrSwapNotFound
	}
	return nil
}
