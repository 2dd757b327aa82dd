package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/park285/terminal-chess/internal/console"
	"github.com/park285/terminal-chess/internal/rules"
	"github.com/park285/terminal-chess/pkg/wire"
)

func TestRootRegistersModes(t *testing.T) {
	root := Root()
	for _, name := range []string{"versus", "spectate", "online"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name { t.Fatalf("command %s not registered: %v", name, err) }
	}
	if root.PersistentFlags().Lookup("snapshot") == nil { t.Fatalf("snapshot flag missing") }
}

func TestPickSideAsksUntilValid(t *testing.T) {
	var out bytes.Buffer
	con := console.New(strings.NewReader("purple\nBlack\n"), &out, nil, console.WithSpinner(false))
	side, err := pickSide(context.Background(), con, "")
	if err != nil { t.Fatalf("pickSide: %v", err) }
	if side != rules.Black { t.Fatalf("side = %s", side) }

	if _, err := pickSide(context.Background(), con, "green"); err == nil { t.Fatalf("expected error for unknown side flag") }
}

func TestPickQueueFromFlag(t *testing.T) {
	var out bytes.Buffer
	con := console.New(strings.NewReader(""), &out, nil, console.WithSpinner(false))
	q, err := pickQueue(context.Background(), con, "QUICKPLAY")
	if err != nil { t.Fatalf("pickQueue: %v", err) }
	if q != wire.QueueQuickplay { t.Fatalf("queue = %s", q) }
}
