package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"skillswap-service/internal/logger"
	"skillswap-service/internal/models"
	"skillswap-service/internal/repositories"
)

const (
	MaxRecommendations = 5
	fallbackReason     = "Teaches skills you want to learn"
)

// Completer is a hosted text-completion model. It answers a prompt with free text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Recommendation is one ranked match for the caller.
type Recommendation struct {
	Score  int         `json:"score"`
	Reason string      `json:"reason"`
	User   models.User `json:"user"`
}

// RecommendationService suggests users who teach what the caller wants to learn.
type RecommendationService struct {
	users     repositories.UserRepository
	completer Completer
}

// NewRecommendationService builds a RecommendationService. A nil completer
// means only the deterministic ranking is used.
func NewRecommendationService(users repositories.UserRepository, completer Completer) *RecommendationService {
	return &RecommendationService{users: users, completer: completer}
}

// Simple ranks up to MaxRecommendations teachers by join order, scoring 90, 80, ...
func (s *RecommendationService) Simple(ctx context.Context, userID int) ([]Recommendation, error) {
	_, matches, err := s.candidates(ctx, userID)
	if err != nil {
		return nil, err
	}
	return rankInOrder(matches, func(models.User) string { return fallbackReason }), nil
}

// Recommend asks the completer to rank the candidates. Without a completer,
// or when the call fails, it answers like Simple. An unparseable answer keeps
// the candidate order.
func (s *RecommendationService) Recommend(ctx context.Context, userID int) ([]Recommendation, error) {
	if s.completer == nil {
		return s.Simple(ctx, userID)
	}

	me, matches, err := s.candidates(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, notFoundError("no matching users found, try adding more skills")
	}

	answer, err := s.completer.Complete(ctx, recommendationPrompt(me, matches))
	if err != nil {
		logger.Get().Warn().Err(err).Int("user_id", userID).Msg("completion failed, using simple recommendations")
		return s.Simple(ctx, userID)
	}

	ranked, err := parseRanking(answer, matches)
	if err != nil {
		logger.Get().Warn().Err(err).Int("user_id", userID).Msg("unparseable completion, keeping candidate order")
		return rankInOrder(matches, func(u models.User) string {
			return "Can teach " + strings.Join(u.SkillsToTeach, ", ") + " which matches your learning goals"
		}), nil
	}
	return ranked, nil
}

func (s *RecommendationService) candidates(ctx context.Context, userID int) (models.User, []models.User, error) {
	me, err := s.users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return models.User{}, nil, notFoundError("user not found")
		}
		return models.User{}, nil, fmt.Errorf("load user: %w", err)
	}

	learn := make([]string, 0, len(me.SkillsToLearn))
	for _, skill := range me.SkillsToLearn {
		if skill = strings.TrimSpace(skill); skill != "" {
			learn = append(learn, skill)
		}
	}
	if len(learn) == 0 {
		return models.User{}, nil, validationError("please add skills you want to learn first")
	}

	matches, err := s.users.ListTeachers(ctx, userID, learn, MaxRecommendations)
	if err != nil {
		return models.User{}, nil, fmt.Errorf("list teachers: %w", err)
	}
	return me, matches, nil
}

func rankInOrder(users []models.User, reason func(models.User) string) []Recommendation {
	out := make([]Recommendation, 0, len(users))
	for i, u := range users {
		out = append(out, Recommendation{Score: 90 - i*10, Reason: reason(u), User: u})
	}
	return out
}

func recommendationPrompt(me models.User, matches []models.User) string {
	teach := strings.Join(me.SkillsToTeach, ", ")
	if teach == "" {
		teach = "Nothing yet"
	}

	var b strings.Builder
	b.WriteString("You are a skill-matching assistant for a peer-to-peer learning platform.\n\n")
	fmt.Fprintf(&b, "Current user:\n- Can teach: %s\n- Wants to learn: %s\n\nPotential matches:\n", teach, strings.Join(me.SkillsToLearn, ", "))
	for i, u := range matches {
		fmt.Fprintf(&b, "%d. %s - Teaches: %s, Wants to learn: %s\n", i+1, u.Name,
			strings.Join(u.SkillsToTeach, ", "), strings.Join(u.SkillsToLearn, ", "))
	}
	b.WriteString("\nRank these users from best to worst match. Respond with JSON only:\n")
	b.WriteString(`{"recommendations":[{"name":"User Name","score":95,"reason":"why this is a good match"}]}`)
	return b.String()
}

// parseRanking maps the model's answer back onto candidates by name. Names the
// model made up are dropped.
func parseRanking(answer string, matches []models.User) ([]Recommendation, error) {
	answer = strings.TrimSpace(answer)
	answer = strings.TrimPrefix(answer, "```json")
	answer = strings.TrimPrefix(answer, "```")
	answer = strings.TrimSuffix(answer, "```")

	var parsed struct {
		Recommendations []struct {
			Name   string `json:"name"`
			Score  int    `json:"score"`
			Reason string `json:"reason"`
		} `json:"recommendations"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(answer)), &parsed); err != nil {
		return nil, fmt.Errorf("decode ranking: %w", err)
	}

	byName := make(map[string]models.User, len(matches))
	for _, u := range matches {
		byName[u.Name] = u
	}
	out := make([]Recommendation, 0, len(parsed.Recommendations))
	for _, r := range parsed.Recommendations {
		u, ok := byName[r.Name]
		if !ok {
			continue
		}
		out = append(out, Recommendation{Score: r.Score, Reason: r.Reason, User: u})
	}
	return out, nil
}
