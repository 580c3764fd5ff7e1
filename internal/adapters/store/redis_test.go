package store

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dkeye/askroom/internal/core"
	"github.com/dkeye/askroom/internal/domain"
	"github.com/dkeye/askroom/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s := NewRedisFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestRedisCreateAndReadOnce(t *testing.T) {
	s, _ := newTestRedis(t)
	seedRoom(t, s, "r1")

	rec, err := s.ReadOnce(context.Background(), domain.RoomPath("r1"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if rec == nil || rec.Title != "Weekly sync" || rec.AuthorID != "u1" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if len(rec.Questions) != 2 || rec.Questions[0].ID != "01A" || rec.Questions[1].ID != "01B" {
		t.Fatalf("unexpected questions: %+v", rec.Questions)
	}
	if len(rec.Questions[1].Question.Likes) != 1 {
		t.Fatalf("likes lost: %+v", rec.Questions[1].Question)
	}
	if rec.EndedAt != nil {
		t.Fatalf("fresh room must be open")
	}
}

func TestRedisReadOnceMissingRoom(t *testing.T) {
	s, _ := newTestRedis(t)
	rec, err := s.ReadOnce(context.Background(), domain.RoomPath("nope"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if rec != nil {
		t.Fatalf("expected nil record, got %+v", rec)
	}
}

func TestRedisWriteFieldKeepsOtherFields(t *testing.T) {
	s, mr := newTestRedis(t)
	seedRoom(t, s, "r1")
	mr.HSet("questions:r1", "01C", `{"content":"legacy","author":{"name":"Cy"},"upvotes":7}`)

	ctx := context.Background()
	if err := s.WriteField(ctx, domain.QuestionPath("r1", "01C"), domain.FieldIsHighlighted, true); err != nil {
		t.Fatalf("write field: %v", err)
	}

	rec, _ := s.ReadOnce(ctx, domain.RoomPath("r1"))
	q := rec.Questions[2].Question
	if !q.IsHighlighted || q.IsAnswered || q.Content != "legacy" {
		t.Fatalf("unexpected question after write: %+v", q)
	}
	got := mr.HGet("questions:r1", "01C")
	if !strings.Contains(got, `"upvotes":7`) || !strings.Contains(got, `"isHighlighted":true`) {
		t.Fatalf("unknown field dropped by merge: %s", got)
	}
}

func TestRedisWriteFieldOnMissingNodeIsNoop(t *testing.T) {
	s, mr := newTestRedis(t)
	seedRoom(t, s, "r1")
	ctx := context.Background()

	if err := s.WriteField(ctx, domain.QuestionPath("r1", "gone"), domain.FieldIsAnswered, true); err != nil {
		t.Fatalf("write question: %v", err)
	}
	if err := s.WriteField(ctx, domain.RoomPath("missing"), domain.FieldEndedAt, time.Now()); err != nil {
		t.Fatalf("write room: %v", err)
	}
	if mr.Exists("room:missing") {
		t.Fatalf("ghost room created")
	}
	rec, _ := s.ReadOnce(ctx, domain.RoomPath("r1"))
	if len(rec.Questions) != 2 {
		t.Fatalf("ghost question created: %+v", rec.Questions)
	}
}

func TestRedisRoomIDCannotAddressQuestions(t *testing.T) {
	s, mr := newTestRedis(t)
	seedRoom(t, s, "abc")
	ctx := context.Background()

	rec, err := s.ReadOnce(ctx, domain.RoomPath("abc:questions"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if rec != nil {
		t.Fatalf("questions hash read as a room: %+v", rec)
	}
	if err := s.WriteField(ctx, domain.RoomPath("abc:questions"), domain.FieldEndedAt, time.Now()); err != nil {
		t.Fatalf("write: %v", err)
	}
	if mr.Exists("room:abc:questions") {
		t.Fatalf("room created from a derived key")
	}
	keys, _ := mr.HKeys("questions:abc")
	if len(keys) != 2 {
		t.Fatalf("questions hash changed: %v", keys)
	}
	rec, _ = s.ReadOnce(ctx, domain.RoomPath("abc"))
	if rec.EndedAt != nil || len(rec.Questions) != 2 {
		t.Fatalf("room abc touched: %+v", rec)
	}
}

func TestRedisAddQuestionChecksRoom(t *testing.T) {
	s, mr := newTestRedis(t)
	ctx := context.Background()

	err := s.AddQuestion(ctx, "missing", "01A", core.RawQuestion{Content: "hello?"})
	if !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("missing room: expected ErrRoomNotFound, got %v", err)
	}
	if mr.Exists("questions:missing") {
		t.Fatalf("orphan questions hash created")
	}

	seedRoom(t, s, "r1")
	if err := s.WriteField(ctx, domain.RoomPath("r1"), domain.FieldEndedAt, time.Now()); err != nil {
		t.Fatalf("end room: %v", err)
	}
	err = s.AddQuestion(ctx, "r1", "01C", core.RawQuestion{Content: "too late?"})
	if !errors.Is(err, domain.ErrRoomClosed) {
		t.Fatalf("ended room: expected ErrRoomClosed, got %v", err)
	}
	rec, _ := s.ReadOnce(ctx, domain.RoomPath("r1"))
	if len(rec.Questions) != 2 {
		t.Fatalf("question written to an ended room: %+v", rec.Questions)
	}
}

func TestRedisEndRoom(t *testing.T) {
	s, _ := newTestRedis(t)
	seedRoom(t, s, "r1")
	ended := time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)

	if err := s.WriteField(context.Background(), domain.RoomPath("r1"), domain.FieldEndedAt, ended); err != nil {
		t.Fatalf("write field: %v", err)
	}
	rec, _ := s.ReadOnce(context.Background(), domain.RoomPath("r1"))
	if rec.EndedAt == nil || !rec.EndedAt.Equal(ended) {
		t.Fatalf("endedAt = %v, want %v", rec.EndedAt, ended)
	}
}

func TestRedisDeleteQuestionTwice(t *testing.T) {
	s, _ := newTestRedis(t)
	seedRoom(t, s, "r1")
	path := domain.QuestionPath("r1", "01A")

	for i := 0; i < 2; i++ {
		if err := s.DeleteNode(context.Background(), path); err != nil {
			t.Fatalf("delete #%d: %v", i+1, err)
		}
	}
	rec, _ := s.ReadOnce(context.Background(), domain.RoomPath("r1"))
	if len(rec.Questions) != 1 {
		t.Fatalf("unexpected questions after delete: %+v", rec.Questions)
	}
}

func TestRedisSubscribeDeliversCurrentThenChanges(t *testing.T) {
	s, _ := newTestRedis(t)
	seedRoom(t, s, "r1")
	ctx := context.Background()

	sub, err := s.Subscribe(ctx, "r1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()

	first := recv(t, sub)
	if first == nil || len(first.Questions) != 2 {
		t.Fatalf("unexpected initial record: %+v", first)
	}

	if err := s.AddQuestion(ctx, "r1", "01C", core.RawQuestion{Content: "third?"}); err != nil {
		t.Fatalf("add question: %v", err)
	}
	deadline := time.After(recvTimeout)
	for {
		select {
		case rec := <-sub.Updates():
			if rec != nil && len(rec.Questions) == 3 {
				if rec.Questions[2].ID != "01C" {
					t.Fatalf("new question out of order: %+v", rec.Questions)
				}
				return
			}
		case <-deadline:
			t.Fatalf("change not delivered")
		}
	}
}

func TestRedisSubscriptionRetriesFailedReload(t *testing.T) {
	s, mr := newTestRedis(t)
	s.reloadRetry = 20 * time.Millisecond
	seedRoom(t, s, "r1")

	sub, err := s.Subscribe(context.Background(), "r1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()
	recv(t, sub)

	failures := testutil.ToFloat64(metrics.StoreReloadFailures)
	mr.SetError("LOADING Redis is loading the dataset in memory")
	mr.Publish("changed:r1", "r1")

	deadline := time.Now().Add(recvTimeout)
	for testutil.ToFloat64(metrics.StoreReloadFailures) <= failures {
		if time.Now().After(deadline) {
			t.Fatalf("reload failure not counted")
		}
		time.Sleep(5 * time.Millisecond)
	}
	mr.SetError("")

	if rec := recv(t, sub); rec == nil || len(rec.Questions) != 2 {
		t.Fatalf("unexpected record after retry: %+v", rec)
	}
}

func TestRedisSubscriptionCloseIsIdempotent(t *testing.T) {
	s, _ := newTestRedis(t)
	seedRoom(t, s, "r1")

	sub, err := s.Subscribe(context.Background(), "r1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	sub.Close()
	sub.Close()
	for range sub.Updates() {
	}
}

func TestRedisUnavailable(t *testing.T) {
	s, mr := newTestRedis(t)
	seedRoom(t, s, "r1")
	mr.Close()

	ctx := context.Background()
	if _, err := s.ReadOnce(ctx, domain.RoomPath("r1")); !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("read: expected ErrStoreUnavailable, got %v", err)
	}
	if err := s.WriteField(ctx, domain.QuestionPath("r1", "01A"), domain.FieldIsAnswered, true); !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("write: expected ErrStoreUnavailable, got %v", err)
	}
	if err := s.DeleteNode(ctx, domain.QuestionPath("r1", "01A")); !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("delete: expected ErrStoreUnavailable, got %v", err)
	}
}
