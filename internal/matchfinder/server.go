// Package matchfinder is the matchmaking and relay server: clients join a queue, get paired
// White/Black in arrival order and then exchange one UCI move per message.
package matchfinder

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/park285/terminal-chess/internal/rules"
	"github.com/park285/terminal-chess/pkg/wire"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

type Config struct {
	// MoveTimeout limits each quickplay move. Zero disables the clock.
	MoveTimeout time.Duration
	// HandshakeTimeout limits the wait for the queue literal.
	HandshakeTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{MoveTimeout: 60 * time.Second, HandshakeTimeout: 30 * time.Second}
}

type Server struct {
	cfg     Config
	queue   *Queue
	store   Store
	adapter *rules.Adapter
	logger  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	// mu orders wg.Add against Close so no match starts once Close waits.
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewServer(cfg Config, store Store, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = DefaultConfig().HandshakeTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:     cfg,
		queue:   NewQueue(),
		store:   store,
		adapter: rules.New(),
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Queue exposes the waiting lists, mainly for tests and health output.
func (s *Server) Queue() *Queue { return s.queue }

// Close ends every running match and waits for the relays to return.
func (s *Server) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()
	s.wg.Wait()
}

// beginMatch registers a relay. It reports false once Close has started.
func (s *Server) beginMatch() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.wg.Add(1)
	return true
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode:    websocket.CompressionNoContextTakeover,
		InsecureSkipVerify: true,
	})
	if err != nil {
		s.logger.Warn("mf_accept_error", zap.Error(err))
		return
	}
	defer conn.CloseNow()

	hsCtx, cancel := context.WithTimeout(s.ctx, s.cfg.HandshakeTimeout)
	_, data, err := conn.Read(hsCtx)
	cancel()
	if err != nil {
		s.logger.Info("mf_handshake_error", zap.Error(err))
		return
	}
	kind, err := wire.ParseQueueKind(string(data))
	if err != nil {
		s.logger.Info("mf_bad_queue", zap.String("text", truncate(string(data), 64)))
		_ = conn.Close(websocket.StatusPolicyViolation, "unknown queue")
		return
	}

	p := newPlayer(conn, kind)
	s.logger.Info("mf_join", zap.String("player", p.ID), zap.String("queue", kind.String()))
	for {
		white, black, paired := s.queue.Join(p)
		if !paired {
			s.awaitMatch(r.Context(), p)
			return
		}
		if err := s.announce(white, wire.White); err != nil {
			// the waiting player left while queued; try the next one
			s.logger.Info("mf_stale_waiter", zap.String("player", white.ID), zap.Error(err))
			white.release()
			continue
		}
		if err := s.announce(black, wire.Black); err != nil {
			s.logger.Info("mf_announce_error", zap.String("player", black.ID), zap.Error(err))
			s.notifyOpponentGone(white)
			white.release()
			return
		}
		if !s.beginMatch() {
			_ = white.conn.Close(websocket.StatusGoingAway, "server shutting down")
			_ = black.conn.Close(websocket.StatusGoingAway, "server shutting down")
			white.release()
			return
		}
		s.runMatch(white, black)
		s.wg.Done()
		white.release()
		return
	}
}

func (s *Server) awaitMatch(reqCtx context.Context, p *Player) {
	select {
	case <-p.done:
	case <-s.ctx.Done():
		if !s.queue.Remove(p) {
			<-p.done
		}
	case <-reqCtx.Done():
		if !s.queue.Remove(p) {
			<-p.done
		}
	}
}

func (s *Server) announce(p *Player, c wire.Color) error {
	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()
	return p.conn.Write(ctx, websocket.MessageText, []byte(wire.HandshakeReply(c)))
}

type readResult struct {
	data []byte
	err  error
}

// runMatch relays moves until the game ends, a player leaves or the quickplay clock expires.
func (s *Server) runMatch(white, black *Player) {
	m := &Match{
		ID:        uuid.NewString(),
		Queue:     white.Queue.String(),
		Status:    StatusActive,
		WhiteID:   white.ID,
		BlackID:   black.ID,
		CreatedAt: time.Now(),
	}
	m.UpdatedAt = m.CreatedAt
	log := s.logger.With(zap.String("match_id", m.ID), zap.String("queue", m.Queue))
	log.Info("mf_match_start", zap.String("white", white.ID), zap.String("black", black.ID))
	s.record(func(ctx context.Context) error { return s.store.Create(ctx, m) }, log)

	pos := s.adapter.NewPosition()
	players := [2]*Player{white, black}
	clock := time.Duration(0)
	if white.Queue == wire.QueueQuickplay {
		clock = s.cfg.MoveTimeout
	}

	for turn := 0; ; turn = 1 - turn {
		mover, other := players[turn], players[1-turn]
		res := make(chan readResult, 1)
		go func() {
			_, data, err := mover.conn.Read(s.ctx)
			res <- readResult{data: data, err: err}
		}()

		var (
			expired <-chan time.Time
			timer   *time.Timer
		)
		if clock > 0 {
			timer = time.NewTimer(clock)
			expired = timer.C
		}

		var r readResult
		select {
		case r = <-res:
			if timer != nil {
				timer.Stop()
			}
		case <-expired:
			log.Info("mf_move_timeout", zap.String("player", mover.ID), zap.Int("ply", len(m.MovesUCI)))
			_ = mover.conn.Close(websocket.StatusCode(wire.StatusYouTimedOut), wire.YouTimedOut)
			<-res
			s.notifyOpponentGone(other)
			s.finish(m, StatusTimeout, "", "move_timeout", log)
			return
		case <-s.ctx.Done():
			_ = mover.conn.Close(websocket.StatusGoingAway, "server shutting down")
			_ = other.conn.Close(websocket.StatusGoingAway, "server shutting down")
			<-res
			s.finish(m, StatusDisconnected, "", "shutdown", log)
			return
		}

		if r.err != nil {
			if s.adapter.IsTerminal(pos).Over {
				// players close after a finished game
				_ = other.conn.Close(websocket.StatusNormalClosure, "game over")
				return
			}
			log.Info("mf_player_left", zap.String("player", mover.ID), zap.Error(r.err))
			s.notifyOpponentGone(other)
			s.finish(m, StatusDisconnected, "", "disconnect", log)
			return
		}

		text := strings.TrimSpace(string(r.data))
		mv, err := s.adapter.Parse(pos, text)
		if err != nil {
			log.Warn("mf_bad_move", zap.String("player", mover.ID), zap.String("text", truncate(text, 32)), zap.Error(err))
			_ = mover.conn.Close(websocket.StatusPolicyViolation, "illegal move")
			s.notifyOpponentGone(other)
			s.finish(m, StatusDisconnected, "", "illegal_move", log)
			return
		}
		next, applied, err := s.adapter.Apply(pos, mv)
		if err != nil {
			log.Error("mf_apply_error", zap.Error(err))
			s.notifyOpponentGone(other)
			s.finish(m, StatusDisconnected, "", "illegal_move", log)
			return
		}
		pos = next
		m.MovesUCI = append(m.MovesUCI, applied.UCI())
		s.record(func(ctx context.Context) error { return s.store.AppendMove(ctx, m.ID, applied.UCI()) }, log)

		if err := s.write(other, applied.UCI()); err != nil {
			log.Info("mf_player_left", zap.String("player", other.ID), zap.Error(err))
			s.notifyOpponentGone(mover)
			s.finish(m, StatusDisconnected, "", "disconnect", log)
			return
		}

		if t := s.adapter.IsTerminal(pos); t.Over {
			outcome := "draw"
			switch t.Winner {
			case rules.White:
				outcome = "white"
			case rules.Black:
				outcome = "black"
			}
			s.finish(m, StatusFinished, outcome, t.Method, log)
			clock = 0
		}
	}
}

func (s *Server) write(p *Player, text string) error {
	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()
	return p.conn.Write(ctx, websocket.MessageText, []byte(text))
}

// notifyOpponentGone sends the timeout signal, then closes with the matching code.
func (s *Server) notifyOpponentGone(p *Player) {
	_ = s.write(p, wire.OpponentTimedOut)
	_ = p.conn.Close(websocket.StatusCode(wire.StatusOpponentTimedOut), wire.OpponentTimedOut)
}

func (s *Server) finish(m *Match, status Status, outcome, method string, log *zap.Logger) {
	if m.Status != StatusActive {
		return
	}
	m.Status, m.Outcome, m.Method = status, outcome, method
	log.Info("mf_match_end", zap.String("status", string(status)), zap.String("outcome", outcome), zap.String("method", method), zap.Int("plies", len(m.MovesUCI)))
	s.record(func(ctx context.Context) error { return s.store.Finish(ctx, m.ID, status, outcome, method) }, log)
}

func (s *Server) record(fn func(ctx context.Context) error, log *zap.Logger) {
	if s.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(s.ctx), 3*time.Second)
	defer cancel()
	if err := fn(ctx); err != nil && !errors.Is(err, ErrMatchInactive) {
		log.Warn("mf_store_error", zap.Error(err))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
