package boardimg

import (
	"bytes"
	"context"
	"image/png"
	"path/filepath"
	"testing"

	"github.com/park285/terminal-chess/internal/rules"
)

func TestRenderPNG_Decodable(t *testing.T) {
	a := rules.New()
	pos := a.NewPosition()
	mv, _ := a.Parse(pos, "e4")
	next, applied, err := a.Apply(pos, mv)
	if err != nil { t.Fatalf("Apply: %v", err) }

	r := NewRenderer(a)
	data, err := r.RenderPNG(context.Background(), next, Options{SquareSize: 32, LastMove: &applied})
	if err != nil { t.Fatalf("RenderPNG: %v", err) }
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil { t.Fatalf("decode: %v", err) }
	if b := img.Bounds(); b.Dx() != 32*9 || b.Dy() != 32*9 { t.Fatalf("bounds = %v", b) }

	// e4 is highlighted, so it differs from the same square unhighlighted
	plain, _ := r.RenderPNG(context.Background(), next, Options{SquareSize: 32})
	pimg, _ := png.Decode(bytes.NewReader(plain))
	x, y := 16+4*32+2, 16+4*32+2 // top-left corner area of e4
	if img.At(x, y) == pimg.At(x, y) { t.Fatalf("expected last-move highlight on e4") }
}

func TestRenderPNG_CancelledAndNil(t *testing.T) {
	r := NewRenderer(nil)
	if _, err := r.RenderPNG(context.Background(), nil, Options{}); err == nil { t.Fatalf("expected nil position error") }
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.RenderPNG(ctx, rules.New().NewPosition(), Options{}); err == nil { t.Fatalf("expected context error") }
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.png")
	if err := NewRenderer(nil).WriteFile(context.Background(), path, rules.New().NewPosition(), Options{SquareSize: 16, Flip: true}); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestParseSquare(t *testing.T) {
	if f, r, ok := parseSquare("h8"); !ok || f != 7 || r != 7 { t.Fatalf("h8 -> %d %d %v", f, r, ok) }
	if _, _, ok := parseSquare("i9"); ok { t.Fatalf("i9 should not parse") }
}
