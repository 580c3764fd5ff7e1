package domain

import "errors"

var (
	ErrEmptyCode        = errors.New("room code is empty")
	ErrRoomNotFound     = errors.New("room does not exist")
	ErrRoomClosed       = errors.New("room already ended")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrSignInFailed     = errors.New("sign in failed")
	ErrNotSignedIn      = errors.New("not signed in")
	ErrEmptyTitle       = errors.New("room title is empty")
	ErrEmptyQuestion    = errors.New("question is empty")
	ErrUnknownField     = errors.New("unknown field")
)
