package http

import (
	"context"
	"fmt"

	"github.com/dkeye/askroom/internal/domain"
	"github.com/gin-contrib/sessions"
)

const (
	sessionUserID     = "user_id"
	sessionUserName   = "user_name"
	sessionUserAvatar = "user_avatar"
)

// Profile is what the external sign-in hands over for a new identity.
type Profile struct {
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

// sessionIdentity keeps the signed-in user in the cookie session. The real
// sign-in provider lives in the UI; SignIn only records the profile it produced.
type sessionIdentity struct {
	sess    sessions.Session
	profile Profile
}

func newSessionIdentity(sess sessions.Session, profile Profile) *sessionIdentity {
	return &sessionIdentity{sess: sess, profile: profile}
}

func (s *sessionIdentity) CurrentUser(context.Context) (*domain.User, bool) {
	id, _ := s.sess.Get(sessionUserID).(string)
	if id == "" {
		return nil, false
	}
	name, _ := s.sess.Get(sessionUserName).(string)
	avatar, _ := s.sess.Get(sessionUserAvatar).(string)
	return &domain.User{ID: domain.UserID(id), Name: name, AvatarURL: avatar}, true
}

func (s *sessionIdentity) SignIn(context.Context) (*domain.User, error) {
	user, err := domain.NewUser(s.profile.Name, s.profile.AvatarURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSignInFailed, err)
	}
	s.sess.Set(sessionUserID, string(user.ID))
	s.sess.Set(sessionUserName, user.Name)
	s.sess.Set(sessionUserAvatar, user.AvatarURL)
	if err := s.sess.Save(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSignInFailed, err)
	}
	return user, nil
}
