// Package console is the line-oriented terminal used by the human source and the CLI.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/park285/terminal-chess/internal/msgcat"
	"github.com/park285/terminal-chess/internal/rules"
	"github.com/park285/terminal-chess/internal/session"
)

const spinCharset = 14

type line struct {
	text string
	err  error
}

type Console struct {
	out     io.Writer
	catalog *msgcat.Catalog
	adapter *rules.Adapter
	spin    bool

	in        *bufio.Scanner
	startOnce sync.Once
	lines     chan line
	outMu     sync.Mutex
}

type Option func(*Console)

// WithSpinner turns the waiting spinner on or off. It only ever draws on a terminal.
func WithSpinner(on bool) Option {
	return func(c *Console) { c.spin = on }
}

func New(in io.Reader, out io.Writer, catalog *msgcat.Catalog, opts ...Option) *Console {
	if catalog == nil {
		catalog = msgcat.Default()
	}
	c := &Console{
		out:     out,
		catalog: catalog,
		adapter: rules.New(),
		spin:    true,
		in:      bufio.NewScanner(in),
		lines:   make(chan line),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// pump reads input lines in the background so ReadLine can honour ctx.
func (c *Console) pump() {
	for c.in.Scan() {
		c.lines <- line{text: c.in.Text()}
	}
	err := c.in.Err()
	if err == nil {
		err = io.EOF
	}
	for {
		c.lines <- line{err: err}
	}
}

// ReadLine prints prompt (when set) and waits for one line. Closed input yields io.EOF.
func (c *Console) ReadLine(ctx context.Context, prompt string) (string, error) {
	c.startOnce.Do(func() { go c.pump() })
	if prompt != "" {
		c.Println(prompt)
	}
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case l := <-c.lines:
		if l.err != nil {
			return "", l.err
		}
		return strings.TrimSpace(l.text), nil
	}
}

// Choose repeats prompt until the answer is one of options (case-insensitive) and returns it
// lower-cased.
func (c *Console) Choose(ctx context.Context, prompt string, options ...string) (string, error) {
	p := prompt
	for {
		ans, err := c.ReadLine(ctx, p)
		if err != nil {
			return "", err
		}
		for _, o := range options {
			if strings.EqualFold(ans, o) {
				return strings.ToLower(o), nil
			}
		}
		p = "Valid choices are: " + strings.Join(options, ", ")
	}
}

func (c *Console) Println(a ...any) {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	fmt.Fprintln(c.out, a...)
}

// Say prints a catalog message.
func (c *Console) Say(key string, data any) {
	c.Println(c.catalog.Text(key, data))
}

func (c *Console) Text(key string, data any) string { return c.catalog.Text(key, data) }

func (c *Console) ShowBoard(pos *rules.Position) {
	c.Println(c.adapter.Render(pos))
}

// Wait starts a spinner with msg and returns the function that stops it.
func (c *Console) Wait(msg string) (stop func()) {
	if !c.spin {
		c.Println(msg)
		return func() {}
	}
	s := spinner.New(spinner.CharSets[spinCharset], 100*time.Millisecond, spinner.WithWriter(c.out))
	s.Suffix = " " + msg
	s.Start()
	return s.Stop
}

// PlyPrinter prints the board after every ply, in the controller's OnPly shape.
func (c *Console) PlyPrinter(header func(session.PlyRecord) string) func(session.PlyRecord, *rules.Position) {
	return func(ply session.PlyRecord, pos *rules.Position) {
		c.Println()
		if header != nil {
			if h := header(ply); h != "" {
				c.Println(h)
			}
		}
		c.ShowBoard(pos)
		c.Say("console.last_move", map[string]any{"Move": ply.UCI})
		c.Say("console.ply_counter", map[string]any{"Ply": ply.Index + 1})
	}
}

// ShowOutcome prints the end-of-session line for o.
func (c *Console) ShowOutcome(o session.Outcome) {
	if !o.Finished() {
		return
	}
	data := map[string]any{
		"Winner": titleSide(o.Winner),
		"Failed": titleSide(o.FailedSide),
		"Method": o.Method,
		"Plies":  o.Plies,
	}
	c.Say("console.outcome."+string(o.Reason), data)
}

func titleSide(s rules.Side) string {
	switch s {
	case rules.White:
		return "White"
	case rules.Black:
		return "Black"
	default:
		return "Nobody"
	}
}
