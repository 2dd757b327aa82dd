package matchfinder

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/park285/terminal-chess/internal/peer"
	"github.com/park285/terminal-chess/internal/rules"
	"github.com/park285/terminal-chess/internal/session"
	"github.com/park285/terminal-chess/pkg/wire"
)

type connected struct {
	s   *peer.Session
	err error
}

// pair connects two clients to srv; the first one queued is White.
func pair(t *testing.T, ctx context.Context, srv *Server, url string, kind wire.QueueKind) (white, black *peer.Session) {
	t.Helper()
	first := make(chan connected, 1)
	go func() {
		s, err := peer.Connect(ctx, url, kind)
		first <- connected{s, err}
	}()
	deadline := time.Now().Add(3 * time.Second)
	for srv.Queue().Waiting(kind) == 0 {
		if time.Now().After(deadline) { t.Fatalf("first client never queued") }
		time.Sleep(10 * time.Millisecond)
	}
	b, err := peer.Connect(ctx, url, kind)
	if err != nil { t.Fatalf("second Connect: %v", err) }
	r := <-first
	if r.err != nil { t.Fatalf("first Connect: %v", r.err) }
	return r.s, b
}

func startServer(t *testing.T, cfg Config, store Store) (*Server, string) {
	t.Helper()
	srv := NewServer(cfg, store, nil)
	hs := httptest.NewServer(srv)
	t.Cleanup(func() {
		srv.Close()
		hs.Close()
	})
	return srv, "ws" + strings.TrimPrefix(hs.URL, "http")
}

func TestServer_PairsAndRelays(t *testing.T) {
	store, _ := newTestStore(t)
	srv, url := startServer(t, Config{}, store)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	white, black := pair(t, ctx, srv, url, wire.QueueNormal)
	defer white.Close()
	defer black.Close()
	if white.Side() != rules.White || black.Side() != rules.Black { t.Fatalf("sides: %s %s", white.Side(), black.Side()) }

	a := rules.New()
	pos := a.NewPosition()
	e4, _ := a.Parse(pos, "e4")
	if err := white.SendMove(ctx, e4); err != nil { t.Fatalf("SendMove: %v", err) }
	got, err := black.ReceiveMove(ctx, pos)
	if err != nil { t.Fatalf("ReceiveMove: %v", err) }
	if got.UCI() != "e2e4" { t.Fatalf("relayed %s", got) }
}

func TestServer_QuickplayTimeoutSignalsOpponent(t *testing.T) {
	store, mr := newTestStore(t)
	srv, url := startServer(t, Config{MoveTimeout: 150 * time.Millisecond}, store)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	white, black := pair(t, ctx, srv, url, wire.QueueQuickplay)
	defer white.Close()
	defer black.Close()

	// White never moves; Black is told the opponent timed out.
	_, err := black.ReceiveMove(ctx, rules.New().NewPosition())
	if !errors.Is(err, session.ErrPeerDisconnected) { t.Fatalf("expected ErrPeerDisconnected, got %v", err) }

	keys := mr.Keys()
	if len(keys) != 1 || !strings.HasPrefix(keys[0], "mf:match:") { t.Fatalf("keys = %v", keys) }
	deadline := time.Now().Add(2 * time.Second)
	for {
		m, err := store.Load(ctx, strings.TrimPrefix(keys[0], "mf:match:"))
		if err != nil { t.Fatalf("Load: %v", err) }
		if m.Status == StatusTimeout { break }
		if time.Now().After(deadline) { t.Fatalf("status = %s", m.Status) }
		time.Sleep(10 * time.Millisecond)
	}
}

func TestServer_DisconnectSignalsOpponent(t *testing.T) {
	srv, url := startServer(t, Config{}, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	white, black := pair(t, ctx, srv, url, wire.QueueNormal)
	defer black.Close()
	_ = white.Close()

	if _, err := black.ReceiveMove(ctx, rules.New().NewPosition()); !errors.Is(err, session.ErrPeerDisconnected) {
		t.Fatalf("expected ErrPeerDisconnected, got %v", err)
	}
}

func TestServer_NoMatchStartsAfterClose(t *testing.T) {
	srv := NewServer(Config{}, nil, nil)
	if !srv.beginMatch() { t.Fatalf("open server refused a match") }
	srv.wg.Done()
	srv.Close()
	if srv.beginMatch() { t.Fatalf("closed server started a match") }
}
