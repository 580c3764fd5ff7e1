package orch

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"github.com/dkeye/askroom/internal/adapters/store"
	"github.com/dkeye/askroom/internal/app"
	"github.com/dkeye/askroom/internal/app/moderation"
	"github.com/dkeye/askroom/internal/core"
	"github.com/dkeye/askroom/internal/core/mocks"
	"github.com/dkeye/askroom/internal/domain"
)

type outlet struct {
	*mocks.MockNavigator
	*mocks.MockNotifier
}

type fixture struct {
	orch  *Orchestrator
	mem   *store.Memory
	nav   *mocks.MockNavigator
	notes *mocks.MockNotifier
}

var fixedNow = time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	mem := store.NewMemory()
	err := mem.CreateRoom(context.Background(), "r1", core.RawRoom{
		Title: "Launch AMA",
		Questions: []core.RawQuestionEntry{
			{ID: "q1", Question: core.RawQuestion{Content: "one"}},
			{ID: "q2", Question: core.RawQuestion{Content: "two"}},
		},
	})
	if err != nil {
		t.Fatalf("create room: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	f := &fixture{
		orch: &Orchestrator{
			Registry: app.NewRegistry(),
			Views:    app.NewViewManager(ctx, mem, app.InsertionOrder{}),
			Store:    mem,
			Clock:    func() time.Time { return fixedNow },
		},
		mem:   mem,
		nav:   mocks.NewMockNavigator(ctrl),
		notes: mocks.NewMockNotifier(ctrl),
	}
	f.orch.Registry.Bind("s1", outlet{f.nav, f.notes}, nil)
	return f
}

func waitSnapshot(t *testing.T, ch <-chan core.Snapshot, ok func(core.Snapshot) bool) core.Snapshot {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case s, open := <-ch:
			if !open {
				t.Fatalf("snapshot stream closed")
			}
			if ok(s) {
				return s
			}
		case <-deadline:
			t.Fatalf("expected snapshot never arrived")
		}
	}
}

func TestWatchUnknownSession(t *testing.T) {
	f := newFixture(t)
	if _, err := f.orch.Watch("nobody", "r1"); !errors.Is(err, ErrUnknownSession) {
		t.Fatalf("expected ErrUnknownSession, got %v", err)
	}
	if len(f.orch.Views.List()) != 0 {
		t.Fatalf("view leaked for unknown session")
	}
}

func TestCommandsRequireWatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.orch.Stage("s1", moderation.EndRoom{}); !errors.Is(err, ErrNotWatching) {
		t.Fatalf("stage: %v", err)
	}
	if err := f.orch.Confirm(ctx, "s1"); !errors.Is(err, ErrNotWatching) {
		t.Fatalf("confirm: %v", err)
	}
	if err := f.orch.MarkAnswered(ctx, "s1", "q1"); !errors.Is(err, ErrNotWatching) {
		t.Fatalf("mark answered: %v", err)
	}
	if _, err := f.orch.CopyRoomCode("s1"); !errors.Is(err, ErrNotWatching) {
		t.Fatalf("copy code: %v", err)
	}
	if f.orch.Cancel("s1") {
		t.Fatalf("cancel without watch")
	}
}

func TestWatchStreamsSnapshots(t *testing.T) {
	f := newFixture(t)
	ch, err := f.orch.Watch("s1", "r1")
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	waitSnapshot(t, ch, func(s core.Snapshot) bool { return len(s.Questions) == 2 })

	if err := f.orch.MarkAnswered(context.Background(), "s1", "q2"); err != nil {
		t.Fatalf("mark answered: %v", err)
	}
	waitSnapshot(t, ch, func(s core.Snapshot) bool { return len(s.Questions) == 2 && s.Questions[1].IsAnswered })

	if err := f.orch.Highlight(context.Background(), "s1", "q1"); err != nil {
		t.Fatalf("highlight: %v", err)
	}
	waitSnapshot(t, ch, func(s core.Snapshot) bool { return s.Questions[0].IsHighlighted && !s.Questions[0].IsAnswered })
}

func TestConfirmDeleteOnlyLastStaged(t *testing.T) {
	f := newFixture(t)
	ch, err := f.orch.Watch("s1", "r1")
	if err != nil {
		t.Fatalf("watch: %v", err)
	}

	if _, err := f.orch.Stage("s1", moderation.DeleteQuestion{ID: "q1"}); err != nil {
		t.Fatalf("stage q1: %v", err)
	}
	dialog, err := f.orch.Stage("s1", moderation.DeleteQuestion{ID: "q2"})
	if err != nil {
		t.Fatalf("stage q2: %v", err)
	}
	if dialog.Title == "" {
		t.Fatalf("empty dialog copy")
	}
	if err := f.orch.Confirm(context.Background(), "s1"); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	snap := waitSnapshot(t, ch, func(s core.Snapshot) bool { return len(s.Questions) == 1 })
	if snap.Questions[0].ID != "q1" {
		t.Fatalf("wrong question deleted: %+v", snap.Questions)
	}
}

func TestConfirmEndRoomNavigatesHome(t *testing.T) {
	f := newFixture(t)
	ch, err := f.orch.Watch("s1", "r1")
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	f.nav.EXPECT().Navigate("/")

	if _, err := f.orch.Stage("s1", moderation.EndRoom{}); err != nil {
		t.Fatalf("stage: %v", err)
	}
	if err := f.orch.Confirm(context.Background(), "s1"); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	rec, _ := f.mem.ReadOnce(context.Background(), domain.RoomPath("r1"))
	if rec.EndedAt == nil || !rec.EndedAt.Equal(fixedNow) {
		t.Fatalf("endedAt = %v, want %v", rec.EndedAt, fixedNow)
	}
	if _, ok := f.orch.Registry.WatchOf("s1"); ok {
		t.Fatalf("session still watching after the room ended")
	}
	for range ch {
	}
	if len(f.orch.Views.List()) != 0 {
		t.Fatalf("view not released")
	}
}

func TestConfirmFailureNotifies(t *testing.T) {
	f := newFixture(t)
	if _, err := f.orch.Watch("s1", "r1"); err != nil {
		t.Fatalf("watch: %v", err)
	}
	f.notes.EXPECT().Notify(gomock.Any()).Do(func(n core.Notification) {
		if n.Kind != core.NotifyError || n.Message == "" {
			t.Errorf("unexpected notification %+v", n)
		}
	})

	_, _ = f.orch.Stage("s1", moderation.EndRoom{})
	f.mem.SetOffline(true)
	err := f.orch.Confirm(context.Background(), "s1")
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}

	w, _ := f.orch.Registry.WatchOf("s1")
	if w.Gate.State() != moderation.Idle {
		t.Fatalf("gate state = %s, want idle", w.Gate.State())
	}
	if err := f.orch.Confirm(context.Background(), "s1"); !errors.Is(err, moderation.ErrNothingStaged) {
		t.Fatalf("expected ErrNothingStaged, got %v", err)
	}
}

func TestMarkAnsweredFailureNotifies(t *testing.T) {
	f := newFixture(t)
	if _, err := f.orch.Watch("s1", "r1"); err != nil {
		t.Fatalf("watch: %v", err)
	}
	f.notes.EXPECT().Notify(core.Notification{Kind: core.NotifyError, Message: "Could not reach the room, try again"})

	f.mem.SetOffline(true)
	if err := f.orch.MarkAnswered(context.Background(), "s1", "q1"); !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestCopyRoomCode(t *testing.T) {
	f := newFixture(t)
	if _, err := f.orch.Watch("s1", "r1"); err != nil {
		t.Fatalf("watch: %v", err)
	}
	f.notes.EXPECT().Notify(core.Notification{Kind: core.NotifySuccess, Message: "Room code copied!"})

	code, err := f.orch.CopyRoomCode("s1")
	if err != nil {
		t.Fatalf("copy: %v", err)
	}
	if code != "r1" {
		t.Fatalf("code = %s, want r1", code)
	}
}

func TestCancelDropsStagedAction(t *testing.T) {
	f := newFixture(t)
	if _, err := f.orch.Watch("s1", "r1"); err != nil {
		t.Fatalf("watch: %v", err)
	}
	_, _ = f.orch.Stage("s1", moderation.DeleteQuestion{ID: "q1"})
	if !f.orch.Cancel("s1") {
		t.Fatalf("cancel found nothing staged")
	}
	if err := f.orch.Confirm(context.Background(), "s1"); !errors.Is(err, moderation.ErrNothingStaged) {
		t.Fatalf("expected ErrNothingStaged, got %v", err)
	}
	rec, _ := f.mem.ReadOnce(context.Background(), domain.RoomPath("r1"))
	if len(rec.Questions) != 2 {
		t.Fatalf("canceled delete ran: %+v", rec.Questions)
	}
}

func TestWatchersShareOneView(t *testing.T) {
	f := newFixture(t)
	f.orch.Registry.Bind("s2", outlet{f.nav, f.notes}, nil)

	if _, err := f.orch.Watch("s1", "r1"); err != nil {
		t.Fatalf("watch s1: %v", err)
	}
	if _, err := f.orch.Watch("s2", "r1"); err != nil {
		t.Fatalf("watch s2: %v", err)
	}
	live := f.orch.Views.List()
	if len(live) != 1 || live[0].Watchers != 2 {
		t.Fatalf("live = %+v", live)
	}

	f.orch.OnDisconnect("s1")
	if live := f.orch.Views.List(); len(live) != 1 || live[0].Watchers != 1 {
		t.Fatalf("after disconnect live = %+v", live)
	}
	if _, ok := f.orch.Registry.Outlet("s1"); ok {
		t.Fatalf("disconnected session still bound")
	}

	f.orch.Unwatch("s2")
	if live := f.orch.Views.List(); len(live) != 0 {
		t.Fatalf("view kept after last watcher left: %+v", live)
	}
}

func TestWatchSwitchesRoom(t *testing.T) {
	f := newFixture(t)
	_ = f.mem.CreateRoom(context.Background(), "r2", core.RawRoom{Title: "Other"})

	first, err := f.orch.Watch("s1", "r1")
	if err != nil {
		t.Fatalf("watch r1: %v", err)
	}
	_, _ = f.orch.Stage("s1", moderation.EndRoom{})

	second, err := f.orch.Watch("s1", "r2")
	if err != nil {
		t.Fatalf("watch r2: %v", err)
	}
	for range first {
	}
	snap := waitSnapshot(t, second, func(s core.Snapshot) bool { return s.Title == "Other" })
	if snap.RoomID != "r2" {
		t.Fatalf("room = %s", snap.RoomID)
	}
	if err := f.orch.Confirm(context.Background(), "s1"); !errors.Is(err, moderation.ErrNothingStaged) {
		t.Fatalf("staged action survived the room switch: %v", err)
	}
}
