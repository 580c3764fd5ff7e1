// Package lobby validates room codes before navigation and handles the
// flows that precede the moderation screen: signing in, creating a room and
// submitting questions.
package lobby

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dkeye/askroom/internal/core"
	"github.com/dkeye/askroom/internal/domain"
	"github.com/dkeye/askroom/internal/metrics"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"
)

// NewRoomRoute is where room creation continues after sign-in.
const NewRoomRoute = "/rooms/new"

type Lobby struct {
	store    core.RoomStore
	identity core.IdentityProvider
	now      func() time.Time
}

func New(store core.RoomStore, identity core.IdentityProvider) *Lobby {
	return &Lobby{store: store, identity: identity, now: time.Now}
}

// JoinRoom checks the code against the store and returns the route to open.
func (l *Lobby) JoinRoom(ctx context.Context, code string) (string, error) {
	id := domain.NormalizeCode(code)
	if id == "" {
		metrics.JoinAttempts.WithLabelValues("empty_code").Inc()
		return "", domain.ErrEmptyCode
	}

	raw, err := l.store.ReadOnce(ctx, domain.RoomPath(id))
	if err != nil {
		metrics.JoinAttempts.WithLabelValues("unavailable").Inc()
		return "", fmt.Errorf("join %s: %w", id, err)
	}
	if raw == nil {
		metrics.JoinAttempts.WithLabelValues("not_found").Inc()
		return "", domain.ErrRoomNotFound
	}
	if room := raw.Room(id); room.Closed() {
		metrics.JoinAttempts.WithLabelValues("closed").Inc()
		return "", domain.ErrRoomClosed
	}

	metrics.JoinAttempts.WithLabelValues("ok").Inc()
	log.Info().Str("module", "lobby").Str("room", string(id)).Msg("join validated")
	return domain.RoomRoute(id), nil
}

// CreateRoom makes sure someone is signed in before room creation continues.
// It does not touch the store.
func (l *Lobby) CreateRoom(ctx context.Context) (string, error) {
	if _, err := l.requireUser(ctx); err != nil {
		return "", err
	}
	return NewRoomRoute, nil
}

// NewRoom creates a room owned by the signed-in user.
func (l *Lobby) NewRoom(ctx context.Context, title string) (domain.RoomID, string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", "", domain.ErrEmptyTitle
	}
	user, ok := l.identity.CurrentUser(ctx)
	if !ok {
		return "", "", domain.ErrNotSignedIn
	}

	id := domain.RoomID(ulid.Make().String())
	room := core.RawRoom{
		Title:     title,
		AuthorID:  string(user.ID),
		CreatedAt: l.now().UTC(),
	}
	if err := l.store.CreateRoom(ctx, id, room); err != nil {
		return "", "", fmt.Errorf("create room: %w", err)
	}
	metrics.RoomsCreated.Inc()
	log.Info().Str("module", "lobby").Str("room", string(id)).Str("author", string(user.ID)).Msg("room created")
	return id, domain.AdminRoomRoute(id), nil
}

// AskQuestion submits a question to an open room. The author is copied from
// the current identity.
func (l *Lobby) AskQuestion(ctx context.Context, room domain.RoomID, content string) (domain.QuestionID, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", domain.ErrEmptyQuestion
	}
	user, ok := l.identity.CurrentUser(ctx)
	if !ok {
		return "", domain.ErrNotSignedIn
	}

	id := domain.QuestionID(ulid.Make().String())
	q := core.RawQuestion{Content: content, Author: user.Author()}
	if err := l.store.AddQuestion(ctx, room, id, q); err != nil {
		return "", fmt.Errorf("ask in %s: %w", room, err)
	}
	metrics.QuestionsAsked.Inc()
	return id, nil
}

func (l *Lobby) requireUser(ctx context.Context) (*domain.User, error) {
	if user, ok := l.identity.CurrentUser(ctx); ok {
		return user, nil
	}
	user, err := l.identity.SignIn(ctx)
	if err != nil {
		log.Warn().Err(err).Str("module", "lobby").Msg("sign in failed")
		return nil, fmt.Errorf("%w: %w", domain.ErrSignInFailed, err)
	}
	if user == nil {
		return nil, domain.ErrSignInFailed
	}
	return user, nil
}

// NotificationFor maps a lobby error to the message shown to the user.
func NotificationFor(err error) core.Notification {
	msg := "Something went wrong"
	switch {
	case errors.Is(err, domain.ErrEmptyCode):
		msg = "Enter the room code"
	case errors.Is(err, domain.ErrRoomNotFound):
		msg = "This room does not exist!"
	case errors.Is(err, domain.ErrRoomClosed):
		msg = "This room has already ended!"
	case errors.Is(err, domain.ErrStoreUnavailable):
		msg = "Could not reach the room, try again"
	case errors.Is(err, domain.ErrSignInFailed):
		msg = "Sign in failed"
	case errors.Is(err, domain.ErrNotSignedIn):
		msg = "Sign in first"
	case errors.Is(err, domain.ErrEmptyTitle):
		msg = "Enter a room name"
	case errors.Is(err, domain.ErrEmptyQuestion):
		msg = "Write your question first"
	}
	return core.Notification{Kind: core.NotifyError, Message: msg}
}
