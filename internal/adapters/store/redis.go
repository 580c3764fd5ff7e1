package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dkeye/askroom/internal/core"
	"github.com/dkeye/askroom/internal/domain"
	"github.com/dkeye/askroom/internal/metrics"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const maxTxAttempts = 3

// defaultReloadRetry is how long a subscription waits before reloading after a failed read.
const defaultReloadRetry = time.Second

// Redis is a push store on top of Redis hashes and pub/sub.
//
//	room:{id}       hash  title, authorId, createdAt, endedAt
//	questions:{id}  hash  question id -> JSON question node
//	changed:{id}    channel, one message per committed change
//
// Each kind of key has its own prefix, so no room id can name another room's questions.
// Question ids are ULIDs, so sorting the hash keys gives insertion order.
type Redis struct {
	client      *redis.Client
	reloadRetry time.Duration
}

// NewRedis connects to redisURL and checks the connection.
func NewRedis(ctx context.Context, redisURL string) (*Redis, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, unavailable(err)
	}
	return NewRedisFromClient(client), nil
}

func NewRedisFromClient(client *redis.Client) *Redis {
	return &Redis{client: client, reloadRetry: defaultReloadRetry}
}

func (s *Redis) Close() error {
	return s.client.Close()
}

func roomKey(id domain.RoomID) string {
	return fmt.Sprintf("room:%s", id)
}

func questionsKey(id domain.RoomID) string {
	return fmt.Sprintf("questions:%s", id)
}

func changedChannel(id domain.RoomID) string {
	return fmt.Sprintf("changed:%s", id)
}

func (s *Redis) ReadOnce(ctx context.Context, path domain.Path) (*core.RawRoom, error) {
	rec, err := s.load(ctx, path.Room)
	if err != nil {
		return nil, unavailable(err)
	}
	return rec, nil
}

func (s *Redis) load(ctx context.Context, id domain.RoomID) (*core.RawRoom, error) {
	pipe := s.client.Pipeline()
	metaCmd := pipe.HGetAll(ctx, roomKey(id))
	questionsCmd := pipe.HGetAll(ctx, questionsKey(id))
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}
	meta := metaCmd.Val()
	if len(meta) == 0 {
		return nil, nil
	}

	rec := &core.RawRoom{
		Title:    meta["title"],
		AuthorID: meta["authorId"],
	}
	if t, err := time.Parse(time.RFC3339Nano, meta["createdAt"]); err == nil {
		rec.CreatedAt = t
	}
	if v, ok := meta[domain.FieldEndedAt]; ok && v != "" {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			rec.EndedAt = &t
		}
	}

	nodes := questionsCmd.Val()
	ids := make([]string, 0, len(nodes))
	for qid := range nodes {
		ids = append(ids, qid)
	}
	sort.Strings(ids)
	rec.Questions = make([]core.RawQuestionEntry, 0, len(ids))
	for _, qid := range ids {
		var q core.RawQuestion
		if err := json.Unmarshal([]byte(nodes[qid]), &q); err != nil {
			log.Warn().Err(err).Str("module", "store.redis").Str("room", string(id)).Str("question", qid).Msg("skip malformed question")
			continue
		}
		rec.Questions = append(rec.Questions, core.RawQuestionEntry{ID: domain.QuestionID(qid), Question: q})
	}
	return rec, nil
}

func (s *Redis) WriteField(ctx context.Context, path domain.Path, field string, value any) error {
	if err := checkField(path, field, value); err != nil {
		return err
	}
	if path.IsQuestion() {
		return s.watch(ctx, func(tx *redis.Tx) error {
			return s.writeQuestionField(ctx, tx, path, field, value)
		}, questionsKey(path.Room))
	}
	return s.watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, roomKey(path.Room)).Result()
		if err != nil || n == 0 {
			return err
		}
		encoded := value.(time.Time).UTC().Format(time.RFC3339Nano)
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, roomKey(path.Room), field, encoded)
			p.Publish(ctx, changedChannel(path.Room), path.String())
			return nil
		})
		return err
	}, roomKey(path.Room))
}

// writeQuestionField merges one field into the stored node, keeping fields it does not know.
func (s *Redis) writeQuestionField(ctx context.Context, tx *redis.Tx, path domain.Path, field string, value any) error {
	raw, err := tx.HGet(ctx, questionsKey(path.Room), string(path.Question)).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return err
	}
	node := make(map[string]any)
	if err := json.Unmarshal([]byte(raw), &node); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	node[field] = value
	data, err := json.Marshal(node)
	if err != nil {
		return err
	}
	_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, questionsKey(path.Room), string(path.Question), data)
		p.Publish(ctx, changedChannel(path.Room), path.String())
		return nil
	})
	return err
}

// watch runs fn as an optimistic transaction. A conflicting writer only causes a
// re-read of the node; network failures are returned as they are.
func (s *Redis) watch(ctx context.Context, fn func(*redis.Tx) error, keys ...string) error {
	var err error
	for i := 0; i < maxTxAttempts; i++ {
		err = s.client.Watch(ctx, fn, keys...)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrRoomNotFound), errors.Is(err, domain.ErrRoomClosed):
		return err
	}
	return unavailable(err)
}

func (s *Redis) DeleteNode(ctx context.Context, path domain.Path) error {
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		if path.IsQuestion() {
			p.HDel(ctx, questionsKey(path.Room), string(path.Question))
		} else {
			p.Del(ctx, roomKey(path.Room), questionsKey(path.Room))
		}
		p.Publish(ctx, changedChannel(path.Room), path.String())
		return nil
	})
	if err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *Redis) CreateRoom(ctx context.Context, id domain.RoomID, room core.RawRoom) error {
	meta := map[string]any{
		"title":     room.Title,
		"authorId":  room.AuthorID,
		"createdAt": room.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if room.EndedAt != nil {
		meta[domain.FieldEndedAt] = room.EndedAt.UTC().Format(time.RFC3339Nano)
	}
	nodes := make(map[string]any, len(room.Questions))
	for _, e := range room.Questions {
		data, err := json.Marshal(e.Question)
		if err != nil {
			return err
		}
		nodes[string(e.ID)] = data
	}
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, roomKey(id), questionsKey(id))
		p.HSet(ctx, roomKey(id), meta)
		if len(nodes) > 0 {
			p.HSet(ctx, questionsKey(id), nodes)
		}
		p.Publish(ctx, changedChannel(id), domain.RoomPath(id).String())
		return nil
	})
	if err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *Redis) AddQuestion(ctx context.Context, room domain.RoomID, id domain.QuestionID, q core.RawQuestion) error {
	data, err := json.Marshal(q)
	if err != nil {
		return err
	}
	return s.watch(ctx, func(tx *redis.Tx) error {
		if err := checkOpen(ctx, tx, room); err != nil {
			return err
		}
		_, err := tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, questionsKey(room), string(id), data)
			p.Publish(ctx, changedChannel(room), domain.QuestionPath(room, id).String())
			return nil
		})
		return err
	}, roomKey(room))
}

// checkOpen runs inside a transaction watching the room key.
func checkOpen(ctx context.Context, tx *redis.Tx, room domain.RoomID) error {
	n, err := tx.Exists(ctx, roomKey(room)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrRoomNotFound
	}
	ended, err := tx.HExists(ctx, roomKey(room), domain.FieldEndedAt).Result()
	if err != nil {
		return err
	}
	if ended {
		return domain.ErrRoomClosed
	}
	return nil
}

type redisSub struct {
	ps     *redis.PubSub
	box    *mailbox
	cancel context.CancelFunc
	once   sync.Once
}

func (s *redisSub) Updates() <-chan *core.RawRoom { return s.box.ch }

func (s *redisSub) Close() {
	s.once.Do(func() {
		s.cancel()
		_ = s.ps.Close()
		s.box.close()
	})
}

// Subscribe confirms the channel subscription before the first read so no
// change committed after the initial record can be missed.
func (s *Redis) Subscribe(ctx context.Context, id domain.RoomID) (core.Subscription, error) {
	ps := s.client.Subscribe(ctx, changedChannel(id))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, unavailable(err)
	}
	subCtx, cancel := context.WithCancel(ctx)
	sub := &redisSub{ps: ps, box: newMailbox(), cancel: cancel}
	go s.pump(subCtx, id, sub)
	return sub, nil
}

func (s *Redis) pump(ctx context.Context, id domain.RoomID, sub *redisSub) {
	defer sub.Close()
	logger := log.With().Str("module", "store.redis").Str("room", string(id)).Logger()

	// A failed reload is retried until one succeeds or a newer change arrives.
	var retry <-chan time.Time
	deliver := func() {
		rec, err := s.load(ctx, id)
		if err != nil {
			if ctx.Err() == nil {
				logger.Error().Err(err).Msg("reload room")
				metrics.StoreReloadFailures.Inc()
				retry = time.After(s.reloadRetry)
			}
			return
		}
		retry = nil
		sub.box.offer(rec)
	}

	deliver()
	msgs := sub.ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case <-retry:
			deliver()
		case _, ok := <-msgs:
			if !ok {
				return
			}
			deliver()
		}
	}
}
