package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// StringList is a list of strings persisted as a JSON array column.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = StringList{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("string list: unsupported type %T", src)
	}
	if len(raw) == 0 {
		*l = StringList{}
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("string list: %w", err)
	}
	*l = out
	return nil
}

// Matches reports whether any entry contains term, ignoring case.
func (l StringList) Matches(term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return false
	}
	for _, s := range l {
		if strings.Contains(strings.ToLower(s), term) {
			return true
		}
	}
	return false
}

// User is a member profile of the skill exchange.
type User struct {
	ID            int        `db:"id" json:"id"`
	Name          string     `db:"name" json:"name"`
	Email         string     `db:"email" json:"email,omitempty"`
	Bio           string     `db:"bio" json:"bio"`
	AvatarURL     string     `db:"avatar_url" json:"avatar_url"`
	SkillsToTeach StringList `db:"skills_to_teach" json:"skills_to_teach"`
	SkillsToLearn StringList `db:"skills_to_learn" json:"skills_to_learn"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// UserRef is the display data other resources embed for a user.
type UserRef struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Ref returns the display reference for the user.
func (u User) Ref() UserRef {
	return UserRef{ID: u.ID, Name: u.Name, AvatarURL: u.AvatarURL}
}
