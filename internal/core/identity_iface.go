package core

import (
	"context"

	"github.com/dkeye/askroom/internal/domain"
)

//go:generate mockgen -destination=mocks/mocks.go -package=mocks . IdentityProvider,Navigator,Notifier

// IdentityProvider supplies the signed-in participant. It is owned by the UI layer.
type IdentityProvider interface {
	CurrentUser(ctx context.Context) (*domain.User, bool)
	SignIn(ctx context.Context) (*domain.User, error)
}

// Navigator receives route strings; the core never renders routes itself.
type Navigator interface {
	Navigate(route string)
}

type NotificationKind string

const (
	NotifySuccess NotificationKind = "success"
	NotifyError   NotificationKind = "error"
)

type Notification struct {
	Kind    NotificationKind `json:"kind"`
	Message string           `json:"message"`
}

// Notifier receives outcomes for any presentation layer to bind to.
type Notifier interface {
	Notify(Notification)
}
