package matchfinder

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/park285/terminal-chess/pkg/wire"
	"nhooyr.io/websocket"
)

// Player is one connected client.
type Player struct {
	ID       string
	Queue    wire.QueueKind
	JoinedAt time.Time

	conn *websocket.Conn
	done chan struct{}
	once sync.Once
}

func newPlayer(conn *websocket.Conn, q wire.QueueKind) *Player {
	return &Player{ID: uuid.NewString(), Queue: q, JoinedAt: time.Now(), conn: conn, done: make(chan struct{})}
}

// release lets the player's handler return.
func (p *Player) release() { p.once.Do(func() { close(p.done) }) }

// Queue pairs players first come, first served, per queue kind.
type Queue struct {
	mu      sync.Mutex
	waiting map[wire.QueueKind][]*Player
}

func NewQueue() *Queue {
	return &Queue{waiting: make(map[wire.QueueKind][]*Player)}
}

// Join pairs p with the longest-waiting player of the same kind, who plays White. With nobody
// waiting p is queued and paired is false.
func (q *Queue) Join(p *Player) (white, black *Player, paired bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	list := q.waiting[p.Queue]
	if len(list) == 0 {
		q.waiting[p.Queue] = append(list, p)
		return nil, nil, false
	}
	white = list[0]
	q.waiting[p.Queue] = list[1:]
	return white, p, true
}

// Remove drops a waiting player. It reports false when p was already paired.
func (q *Queue) Remove(p *Player) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	list := q.waiting[p.Queue]
	for i, w := range list {
		if w == p {
			q.waiting[p.Queue] = append(list[:i:i], list[i+1:]...)
			return true
		}
	}
	return false
}

// Waiting returns the number of queued players of kind.
func (q *Queue) Waiting(kind wire.QueueKind) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.waiting[kind])
}
