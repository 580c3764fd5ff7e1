// Command seed writes a demo room into the configured Redis store.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/askroom/internal/adapters/store"
	"github.com/dkeye/askroom/internal/config"
	"github.com/dkeye/askroom/internal/core"
	"github.com/dkeye/askroom/internal/domain"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	var (
		roomID = flag.String("room", "", "room id (random ULID when empty)")
		title  = flag.String("title", "Demo Q&A", "room title")
		ended  = flag.Bool("ended", false, "mark the room as ended")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Store.Driver != "redis" {
		log.Fatal().Str("driver", cfg.Store.Driver).Msg("seeding needs the redis driver")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s, err := store.NewRedis(ctx, cfg.Store.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open store")
	}
	defer s.Close()

	id := domain.RoomID(*roomID)
	if id == "" {
		id = domain.RoomID(ulid.Make().String())
	}
	room := demoRoom(*title, time.Now().UTC(), *ended)
	if err := s.CreateRoom(ctx, id, room); err != nil {
		log.Fatal().Err(err).Msg("failed to seed room")
	}
	log.Info().Str("room", string(id)).Int("questions", len(room.Questions)).Msg("seeded")
	fmt.Println(id)
}

func demoRoom(title string, now time.Time, ended bool) core.RawRoom {
	room := core.RawRoom{
		Title:     title,
		AuthorID:  "seed",
		CreatedAt: now,
	}
	if ended {
		room.EndedAt = &now
	}
	asked := []struct {
		content string
		author  string
		likes   int
	}{
		{"How do I join from my phone?", "Ana", 0},
		{"Will the slides be shared after the talk?", "Bruno", 3},
		{"Is there a recording?", "Chen", 1},
	}
	for i, q := range asked {
		likes := make(map[string]core.RawLike, q.likes)
		for n := 0; n < q.likes; n++ {
			key := fmt.Sprintf("like-%d", n)
			likes[key] = core.RawLike{AuthorID: key}
		}
		id := ulid.MustNew(ulid.Timestamp(now.Add(time.Duration(i)*time.Millisecond)), ulid.DefaultEntropy())
		room.Questions = append(room.Questions, core.RawQuestionEntry{
			ID: domain.QuestionID(id.String()),
			Question: core.RawQuestion{
				Content: q.content,
				Author:  domain.Author{Name: q.author},
				Likes:   likes,
			},
		})
	}
	return room
}
