// Package peer is the client side of the matchfinder protocol: queue handshake, then one UCI
// text message per ply in each direction.
package peer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/park285/terminal-chess/internal/rules"
	"github.com/park285/terminal-chess/internal/session"
	"github.com/park285/terminal-chess/pkg/wire"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

var (
	ErrNotOurTurn   = errors.New("not our turn to move")
	ErrNotPeerTurn  = errors.New("not the peer's turn to move")
	errPeerTimedOut = fmt.Errorf("%w: opponent timed out", session.ErrPeerDisconnected)
)

// Session is a matched connection. It must be used from one goroutine; only Close may be called
// concurrently with the other methods.
type Session struct {
	conn    *websocket.Conn
	side    rules.Side
	ourTurn bool
	queue   wire.QueueKind

	adapter        *rules.Adapter
	receiveTimeout time.Duration
	logger         *zap.Logger

	mu     sync.Mutex
	closed bool
}

type options struct {
	dialTimeout    time.Duration
	receiveTimeout time.Duration
	header         http.Header
	adapter        *rules.Adapter
	logger         *zap.Logger
}

type Option func(*options)

// WithReceiveTimeout bounds the wait for each peer move. Zero waits forever and leaves timeouts
// to the server.
func WithReceiveTimeout(d time.Duration) Option {
	return func(o *options) { o.receiveTimeout = d }
}

func WithDialTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.dialTimeout = d
		}
	}
}

func WithHeader(h http.Header) Option {
	return func(o *options) { o.header = h }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func WithAdapter(a *rules.Adapter) Option {
	return func(o *options) {
		if a != nil {
			o.adapter = a
		}
	}
}

// Connect dials endpoint, joins queue and waits for the match announcement. The call blocks until
// the server pairs us with an opponent or ctx ends.
func Connect(ctx context.Context, endpoint string, queue wire.QueueKind, opts ...Option) (*Session, error) {
	o := options{dialTimeout: 10 * time.Second, adapter: rules.New(), logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	dialCtx, cancel := context.WithTimeout(ctx, o.dialTimeout)
	conn, _, err := websocket.Dial(dialCtx, endpoint, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		HTTPHeader:      o.header,
	})
	cancel()
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}

	if err := conn.Write(ctx, websocket.MessageText, []byte(queue.String())); err != nil {
		_ = conn.Close(websocket.StatusInternalError, "handshake failed")
		return nil, fmt.Errorf("send queue kind: %w", err)
	}
	_, data, err := conn.Read(ctx)
	if err != nil {
		_ = conn.Close(websocket.StatusInternalError, "handshake failed")
		return nil, fmt.Errorf("read match reply: %w", err)
	}
	color, err := wire.AssignedColor(string(data))
	if err != nil {
		_ = conn.Close(websocket.StatusProtocolError, "bad handshake")
		return nil, fmt.Errorf("match reply %q: %w", string(data), err)
	}

	side := rules.White
	if color == wire.Black {
		side = rules.Black
	}
	o.logger.Info("peer_handshake", zap.String("endpoint", endpoint), zap.String("queue", queue.String()), zap.String("side", side.String()))
	return &Session{
		conn:           conn,
		side:           side,
		ourTurn:        side == rules.White,
		queue:          queue,
		adapter:        o.adapter,
		receiveTimeout: o.receiveTimeout,
		logger:         o.logger,
	}, nil
}

// Side is the color the server assigned to us.
func (s *Session) Side() rules.Side { return s.side }

// OurTurn reports whether the next message should be sent by us.
func (s *Session) OurTurn() bool { return s.ourTurn }

func (s *Session) Queue() wire.QueueKind { return s.queue }

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// SendMove transmits our move in UCI form.
func (s *Session) SendMove(ctx context.Context, m rules.Move) error {
	if s.isClosed() {
		return fmt.Errorf("%w: session closed", session.ErrPeerDisconnected)
	}
	if !s.ourTurn {
		return ErrNotOurTurn
	}
	if err := s.conn.Write(ctx, websocket.MessageText, []byte(m.UCI())); err != nil {
		s.markClosed()
		return fmt.Errorf("%w: send %s: %v", session.ErrPeerDisconnected, m.UCI(), err)
	}
	s.ourTurn = false
	s.logger.Debug("peer_send", zap.String("uci", m.UCI()))
	return nil
}

// ReceiveMove waits for the opponent's move and resolves it against pos. The timeout signal, a
// closed connection, an unplayable move or an expired receive timeout all end the session with
// session.ErrPeerDisconnected.
func (s *Session) ReceiveMove(ctx context.Context, pos *rules.Position) (rules.Move, error) {
	if s.isClosed() {
		return rules.Move{}, fmt.Errorf("%w: session closed", session.ErrPeerDisconnected)
	}
	if s.ourTurn {
		return rules.Move{}, ErrNotPeerTurn
	}

	readCtx := ctx
	if s.receiveTimeout > 0 {
		var cancel context.CancelFunc
		readCtx, cancel = context.WithTimeout(ctx, s.receiveTimeout)
		defer cancel()
	}
	_, data, err := s.conn.Read(readCtx)
	if err != nil {
		s.markClosed()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return rules.Move{}, ctxErr
		}
		if errors.Is(readCtx.Err(), context.DeadlineExceeded) {
			s.logger.Warn("peer_receive_timeout", zap.Duration("timeout", s.receiveTimeout))
			return rules.Move{}, fmt.Errorf("%w: no move within %s", session.ErrPeerDisconnected, s.receiveTimeout)
		}
		if isTimeoutClose(err) {
			return rules.Move{}, errPeerTimedOut
		}
		return rules.Move{}, fmt.Errorf("%w: %v", session.ErrPeerDisconnected, err)
	}

	text := strings.TrimSpace(string(data))
	if wire.IsOpponentTimeout(text) {
		s.logger.Info("peer_opponent_timeout")
		s.markClosed()
		return rules.Move{}, errPeerTimedOut
	}
	mv, err := s.adapter.Parse(pos, text)
	if err != nil {
		s.logger.Warn("peer_bad_move", zap.String("text", text), zap.Error(err))
		return rules.Move{}, fmt.Errorf("%w: unplayable move %q: %v", session.ErrPeerDisconnected, text, err)
	}
	s.ourTurn = true
	s.logger.Debug("peer_receive", zap.String("uci", mv.UCI()))
	return mv, nil
}

func isTimeoutClose(err error) bool {
	var ce websocket.CloseError
	if !errors.As(err, &ce) {
		return false
	}
	return int(ce.Code) == wire.StatusOpponentTimedOut || wire.IsOpponentTimeout(ce.Reason)
}

func (s *Session) markClosed() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// Close ends the connection. It is safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	already := s.closed
	s.closed = true
	s.mu.Unlock()
	if already {
		_ = s.conn.CloseNow()
		return nil
	}
	if err := s.conn.Close(websocket.StatusNormalClosure, "session over"); err != nil {
		s.logger.Debug("peer_close", zap.Error(err))
	}
	return nil
}
