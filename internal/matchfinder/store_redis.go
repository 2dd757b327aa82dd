package matchfinder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const ttlMatch = 24 * time.Hour

// Store records matches. A nil Store disables recording.
type Store interface {
	Create(ctx context.Context, m *Match) error
	AppendMove(ctx context.Context, id, uci string) error
	Finish(ctx context.Context, id string, status Status, outcome, method string) error
	Load(ctx context.Context, id string) (*Match, error)
}

type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client) *RedisStore { return &RedisStore{rdb: rdb, ttl: ttlMatch} }

// OpenRedisStore connects to a redis:// or rediss:// URL and pings it.
func OpenRedisStore(ctx context.Context, rawURL string) (*RedisStore, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for match store")
	}
	opts, err := parseRedisURL(rawURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisStore(rdb), nil
}

func (s *RedisStore) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}

func matchKey(id string) string { return "mf:match:" + strings.TrimSpace(id) }

func (s *RedisStore) Create(ctx context.Context, m *Match) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, matchKey(m.ID), raw, s.ttl).Err()
}

func (s *RedisStore) Load(ctx context.Context, id string) (*Match, error) {
	raw, err := s.rdb.Get(ctx, matchKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMatchGone
	}
	if err != nil {
		return nil, err
	}
	var m Match
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// update applies fn to the stored match under WATCH so concurrent writers cannot interleave.
func (s *RedisStore) update(ctx context.Context, id string, fn func(m *Match) error) error {
	key := matchKey(id)
	return s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrMatchGone
		}
		if err != nil {
			return err
		}
		var m Match
		if err := json.Unmarshal(raw, &m); err != nil {
			return err
		}
		if err := fn(&m); err != nil {
			return err
		}
		m.UpdatedAt = time.Now()
		out, err := json.Marshal(&m)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, out, s.ttl)
			return nil
		})
		return err
	}, key)
}

func (s *RedisStore) AppendMove(ctx context.Context, id, uci string) error {
	return s.update(ctx, id, func(m *Match) error {
		if m.Status != StatusActive {
			return ErrMatchInactive
		}
		m.MovesUCI = append(m.MovesUCI, uci)
		return nil
	})
}

func (s *RedisStore) Finish(ctx context.Context, id string, status Status, outcome, method string) error {
	return s.update(ctx, id, func(m *Match) error {
		if m.Status != StatusActive {
			return ErrMatchInactive
		}
		m.Status = status
		m.Outcome = outcome
		m.Method = method
		return nil
	})
}

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			db = n
		}
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}
