package orch

import (
	"context"
	"errors"

	"github.com/dkeye/askroom/internal/app"
	"github.com/dkeye/askroom/internal/app/moderation"
	"github.com/dkeye/askroom/internal/core"
	"github.com/dkeye/askroom/internal/domain"
	"github.com/rs/zerolog/log"
)

// Watch attaches the session to room and returns its snapshot stream. The
// channel is closed when the session stops watching. A previous watch is
// released along with its pending action.
func (o *Orchestrator) Watch(sid core.SessionID, room domain.RoomID) (<-chan core.Snapshot, error) {
	if _, ok := o.Registry.Outlet(sid); !ok {
		return nil, ErrUnknownSession
	}
	view, release, err := o.Views.Acquire(room)
	if err != nil {
		return nil, err
	}
	ch, stop := view.Watch()

	mod := moderation.NewModerator(o.Store, room).WithClock(o.now)
	w := &app.Watch{
		Room:      room,
		Gate:      moderation.NewGate(mod),
		Moderator: mod,
		Release: func() {
			stop()
			release()
		},
	}
	prev, ok := o.Registry.SetWatch(sid, w)
	if !ok {
		w.Release()
		return nil, ErrUnknownSession
	}
	if prev != nil {
		prev.Release()
	}
	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("room", string(room)).Msg("watching room")
	return ch, nil
}

func (o *Orchestrator) Unwatch(sid core.SessionID) {
	if w, ok := o.Registry.ClearWatch(sid); ok {
		w.Release()
		log.Info().Str("module", "orch").Str("sid", string(sid)).Str("room", string(w.Room)).Msg("stopped watching")
	}
}

// Stage puts a destructive action behind the session's confirmation gate and
// returns the dialog copy to show.
func (o *Orchestrator) Stage(sid core.SessionID, a moderation.Action) (moderation.Copy, error) {
	w, ok := o.Registry.WatchOf(sid)
	if !ok {
		return moderation.Copy{}, ErrNotWatching
	}
	if err := w.Gate.Stage(a); err != nil {
		return moderation.Copy{}, err
	}
	return a.Copy(), nil
}

func (o *Orchestrator) Cancel(sid core.SessionID) bool {
	w, ok := o.Registry.WatchOf(sid)
	if !ok {
		return false
	}
	return w.Gate.Cancel()
}

// Confirm executes the staged action. Ending the room navigates the session
// home; a failed mutation is reported to the session's outlet and returned.
func (o *Orchestrator) Confirm(ctx context.Context, sid core.SessionID) error {
	w, ok := o.Registry.WatchOf(sid)
	if !ok {
		return ErrNotWatching
	}
	out, err := w.Gate.Confirm(ctx)
	if err != nil {
		if !errors.Is(err, moderation.ErrNothingStaged) && !errors.Is(err, moderation.ErrConfirmInProgress) {
			o.notify(sid, failureNotification(err))
		}
		return err
	}
	if out.NavigateTo != "" {
		o.Unwatch(sid)
		o.navigate(sid, out.NavigateTo)
	}
	return nil
}

func (o *Orchestrator) MarkAnswered(ctx context.Context, sid core.SessionID, id domain.QuestionID) error {
	w, ok := o.Registry.WatchOf(sid)
	if !ok {
		return ErrNotWatching
	}
	if err := w.Moderator.MarkAnswered(ctx, id); err != nil {
		o.notify(sid, failureNotification(err))
		return err
	}
	return nil
}

func (o *Orchestrator) Highlight(ctx context.Context, sid core.SessionID, id domain.QuestionID) error {
	w, ok := o.Registry.WatchOf(sid)
	if !ok {
		return ErrNotWatching
	}
	if err := w.Moderator.Highlight(ctx, id); err != nil {
		o.notify(sid, failureNotification(err))
		return err
	}
	return nil
}

// CopyRoomCode returns the watched room's code and confirms the copy.
func (o *Orchestrator) CopyRoomCode(sid core.SessionID) (domain.RoomID, error) {
	w, ok := o.Registry.WatchOf(sid)
	if !ok {
		return "", ErrNotWatching
	}
	o.notify(sid, core.Notification{Kind: core.NotifySuccess, Message: "Room code copied!"})
	return w.Room, nil
}

func failureNotification(err error) core.Notification {
	msg := "Action failed, try again"
	if errors.Is(err, domain.ErrStoreUnavailable) {
		msg = "Could not reach the room, try again"
	}
	return core.Notification{Kind: core.NotifyError, Message: msg}
}
