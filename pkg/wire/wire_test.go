package wire

import (
	"errors"
	"testing"
)

func TestAssignedColor(t *testing.T) {
	cases := map[string]Color{
		"Match found! Your color is: White": White,
		"Match found! Your color is: Black": Black,
		"side black":                        Black,
		"WHITE":                             White,
	}
	for reply, want := range cases {
		got, err := AssignedColor(reply)
		if err != nil { t.Fatalf("AssignedColor(%q): %v", reply, err) }
		if got != want { t.Fatalf("AssignedColor(%q) = %v, want %v", reply, got, want) }
	}
	if _, err := AssignedColor("   "); !errors.Is(err, ErrEmptyHandshake) {
		t.Fatalf("expected ErrEmptyHandshake, got %v", err)
	}
	if _, err := AssignedColor("your color is: purple"); !errors.Is(err, ErrUnknownColor) {
		t.Fatalf("expected ErrUnknownColor, got %v", err)
	}
}

func TestQueueKindRoundTrip(t *testing.T) {
	for _, q := range []QueueKind{QueueQuickplay, QueueNormal} {
		got, err := ParseQueueKind(q.String())
		if err != nil || got != q { t.Fatalf("ParseQueueKind(%q) = %v, %v", q.String(), got, err) }
	}
	if _, err := ParseQueueKind("ranked"); !errors.Is(err, ErrUnknownQueue) {
		t.Fatalf("expected ErrUnknownQueue, got %v", err)
	}
}

func TestIsOpponentTimeout(t *testing.T) {
	for _, s := range []string{"opponent timed out", "Opponent timed out", " OPPONENT TIMED OUT\n"} {
		if !IsOpponentTimeout(s) { t.Fatalf("expected %q to be a timeout signal", s) }
	}
	if IsOpponentTimeout("e2e4") { t.Fatalf("move must not be a timeout signal") }
}

func TestHandshakeReplyParses(t *testing.T) {
	for _, c := range []Color{White, Black} {
		got, err := AssignedColor(HandshakeReply(c))
		if err != nil || got != c { t.Fatalf("round trip %v: got %v, %v", c, got, err) }
	}
}
