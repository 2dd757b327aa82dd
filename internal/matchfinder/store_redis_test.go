package matchfinder

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil { t.Fatalf("miniredis: %v", err) }
	t.Cleanup(mr.Close)
	return NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()})), mr
}

func TestRedisStore_Lifecycle(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	m := &Match{ID: "m1", Queue: "quickplay", Status: StatusActive, WhiteID: "w", BlackID: "b", CreatedAt: time.Now()}
	if err := s.Create(ctx, m); err != nil { t.Fatalf("Create: %v", err) }
	if ttl := mr.TTL("mf:match:m1"); ttl <= 0 { t.Fatalf("expected TTL on match key, got %v", ttl) }

	for _, mv := range []string{"e2e4", "e7e5"} {
		if err := s.AppendMove(ctx, "m1", mv); err != nil { t.Fatalf("AppendMove %s: %v", mv, err) }
	}
	if err := s.Finish(ctx, "m1", StatusTimeout, "", "move_timeout"); err != nil { t.Fatalf("Finish: %v", err) }

	got, err := s.Load(ctx, "m1")
	if err != nil { t.Fatalf("Load: %v", err) }
	if got.Status != StatusTimeout || len(got.MovesUCI) != 2 || got.MovesUCI[1] != "e7e5" || got.Method != "move_timeout" {
		t.Fatalf("stored match = %+v", got)
	}

	if err := s.AppendMove(ctx, "m1", "g1f3"); !errors.Is(err, ErrMatchInactive) { t.Fatalf("expected ErrMatchInactive, got %v", err) }
	if _, err := s.Load(ctx, "nope"); !errors.Is(err, ErrMatchGone) { t.Fatalf("expected ErrMatchGone, got %v", err) }
}

func TestOpenRedisStore(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil { t.Fatalf("miniredis: %v", err) }
	defer mr.Close()
	s, err := OpenRedisStore(context.Background(), "redis://"+mr.Addr()+"/0")
	if err != nil { t.Fatalf("OpenRedisStore: %v", err) }
	defer s.Close()
	if _, err := OpenRedisStore(context.Background(), "http://"+mr.Addr()); err == nil { t.Fatalf("expected scheme error") }
}
