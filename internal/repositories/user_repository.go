package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"skillswap-service/internal/models"
)

var ErrUserNotFound = errors.New("user not found")

const userColumns = `id, name, email, bio, avatar_url, skills_to_teach, skills_to_learn, created_at, updated_at`

// UserFilter narrows a user listing.
type UserFilter struct {
	ExcludeID int
	Search    string
	Skill     string
	Limit     int
}

// UserRepository abstracts user profile persistence.
type UserRepository interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	GetUser(ctx context.Context, userID int) (models.User, error)
	BulkUsers(ctx context.Context, ids []int) ([]models.User, error)
	ListUsers(ctx context.Context, filter UserFilter) ([]models.User, error)
	ListTeachers(ctx context.Context, excludeID int, skills []string, limit int) ([]models.User, error)
	UpsertProfile(ctx context.Context, user models.User) (models.User, error)
}

// UserRepo is a sqlx implementation of UserRepository.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

// CreateUser inserts a user with a database assigned id.
func (r *UserRepo) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	now := time.Now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now
	if user.SkillsToTeach == nil {
		user.SkillsToTeach = models.StringList{}
	}
	if user.SkillsToLearn == nil {
		user.SkillsToLearn = models.StringList{}
	}

	query := r.db.Rebind(`INSERT INTO users (name, email, bio, avatar_url, skills_to_teach, skills_to_learn, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	if err := r.db.QueryRowxContext(ctx, query, user.Name, user.Email, user.Bio, user.AvatarURL,
		user.SkillsToTeach, user.SkillsToLearn, user.CreatedAt, user.UpdatedAt).Scan(&user.ID); err != nil {
		return models.User{}, err
	}
	return user, nil
}

// GetUser fetches a user by id.
func (r *UserRepo) GetUser(ctx context.Context, userID int) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, r.db.Rebind(`SELECT `+userColumns+` FROM users WHERE id=?`), userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// BulkUsers fetches multiple users in one query. Unknown ids are skipped.
func (r *UserRepo) BulkUsers(ctx context.Context, ids []int) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	query, args, err := sqlx.In(`SELECT `+userColumns+` FROM users WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	var users []models.User
	err = r.db.SelectContext(ctx, &users, r.db.Rebind(query), args...)
	return users, err
}

// ListUsers returns users matching the filter, newest first.
func (r *UserRepo) ListUsers(ctx context.Context, filter UserFilter) ([]models.User, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE id <> ?`
	args := []any{filter.ExcludeID}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query += ` AND (LOWER(name) LIKE ? OR LOWER(email) LIKE ?)`
		args = append(args, pattern, pattern)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	var users []models.User
	if err := r.db.SelectContext(ctx, &users, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}

	// skills are stored as JSON text, so the skill filter runs here
	result := make([]models.User, 0, len(users))
	for _, u := range users {
		if filter.Skill != "" && !u.SkillsToTeach.Matches(filter.Skill) {
			continue
		}
		result = append(result, u)
		if len(result) == limit {
			break
		}
	}
	return result, nil
}

// ListTeachers returns up to limit users, oldest first, who teach a skill
// containing any of skills.
func (r *UserRepo) ListTeachers(ctx context.Context, excludeID int, skills []string, limit int) ([]models.User, error) {
	var users []models.User
	query := r.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE id <> ? ORDER BY id ASC`)
	if err := r.db.SelectContext(ctx, &users, query, excludeID); err != nil {
		return nil, err
	}

	result := make([]models.User, 0, limit)
	for _, u := range users {
		for _, skill := range skills {
			if u.SkillsToTeach.Matches(skill) {
				result = append(result, u)
				break
			}
		}
		if len(result) == limit {
			break
		}
	}
	return result, nil
}

// UpsertProfile creates or replaces the profile of the user with user.ID.
func (r *UserRepo) UpsertProfile(ctx context.Context, user models.User) (models.User, error) {
	now := time.Now().UTC()
	if user.SkillsToTeach == nil {
		user.SkillsToTeach = models.StringList{}
	}
	if user.SkillsToLearn == nil {
		user.SkillsToLearn = models.StringList{}
	}

	query := r.db.Rebind(`INSERT INTO users (id, name, email, bio, avatar_url, skills_to_teach, skills_to_learn, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, email = EXCLUDED.email, bio = EXCLUDED.bio,
            avatar_url = EXCLUDED.avatar_url, skills_to_teach = EXCLUDED.skills_to_teach,
            skills_to_learn = EXCLUDED.skills_to_learn, updated_at = EXCLUDED.updated_at`)
	if _, err := r.db.ExecContext(ctx, query, user.ID, user.Name, user.Email, user.Bio, user.AvatarURL,
		user.SkillsToTeach, user.SkillsToLearn, now, now); err != nil {
		return models.User{}, err
	}
	return r.GetUser(ctx, user.ID)
}
