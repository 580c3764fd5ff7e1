// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"

	"github.com/google/uuid"
)

const (
	MaxUserIDLen   = 36
	MaxUsernameLen = 36
)

var (
	ErrUsernameTooLong = errors.New("username too long")
	ErrUsernameEmpty   = errors.New("username empty")
)

type UserID string

// User is the signed-in participant as supplied by the identity provider.
type User struct {
	ID        UserID `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// NewUser is a tiny helper to avoid ad-hoc struct literals in adapters.
func NewUser(name, avatarURL string) (*User, error) {
	if len(name) == 0 {
		return nil, ErrUsernameEmpty
	}
	if len(name) > MaxUsernameLen {
		return nil, ErrUsernameTooLong
	}
	id := UserID(uuid.NewString())
	return &User{ID: id, Name: name, AvatarURL: avatarURL}, nil
}

// Author is the denormalized copy of a user stored with each question.
func (u *User) Author() Author {
	return Author{Name: u.Name, AvatarURL: u.AvatarURL}
}
