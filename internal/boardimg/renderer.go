// Package boardimg draws a position as a PNG snapshot.
package boardimg

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"os"

	"github.com/park285/terminal-chess/internal/rules"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

type Options struct {
	// SquareSize in pixels; 0 means 64.
	SquareSize int
	// LastMove is highlighted when set.
	LastMove *rules.Move
	// Flip draws the board from Black's side.
	Flip bool
}

var (
	lightSquare     = color.RGBA{233, 207, 163, 255}
	darkSquare      = color.RGBA{187, 136, 96, 255}
	highlightFill   = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
	marginColor     = color.RGBA{28, 31, 46, 255}
	coordinateColor = color.RGBA{236, 239, 255, 255}
)

type Renderer struct {
	adapter *rules.Adapter
}

func NewRenderer(adapter *rules.Adapter) *Renderer {
	if adapter == nil {
		adapter = rules.New()
	}
	return &Renderer{adapter: adapter}
}

// RenderPNG encodes pos as a PNG with rank and file labels in the margin.
func (r *Renderer) RenderPNG(ctx context.Context, pos *rules.Position, opts Options) ([]byte, error) {
	if pos == nil {
		return nil, fmt.Errorf("position is nil")
	}
	sq := opts.SquareSize
	if sq <= 0 {
		sq = 64
	}
	margin := sq / 2
	total := sq*8 + margin*2
	origin := image.Point{X: margin, Y: margin}

	img := image.NewRGBA(image.Rect(0, 0, total, total))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(marginColor), image.Point{}, imagedraw.Src)

	for file := 0; file < 8; file++ {
		for rank := 0; rank < 8; rank++ {
			clr := color.Color(lightSquare)
			if (file+rank)%2 == 0 {
				clr = darkSquare
			}
			imagedraw.Draw(img, squareRect(file, rank, sq, origin, opts.Flip), image.NewUniform(clr), image.Point{}, imagedraw.Src)
		}
	}

	if opts.LastMove != nil && !opts.LastMove.IsZero() {
		for _, name := range []string{opts.LastMove.From(), opts.LastMove.To()} {
			if file, rank, ok := parseSquare(name); ok {
				imagedraw.Draw(img, squareRect(file, rank, sq, origin, opts.Flip), image.NewUniform(highlightFill), image.Point{}, imagedraw.Over)
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for name, piece := range r.adapter.PieceMap(pos) {
		file, rank, ok := parseSquare(name)
		if !ok {
			continue
		}
		glyph, err := pieceImage(piece, sq)
		if err != nil {
			return nil, err
		}
		imagedraw.Draw(img, squareRect(file, rank, sq, origin, opts.Flip), glyph, image.Point{}, imagedraw.Over)
	}

	drawCoordinates(img, sq, origin, opts.Flip)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteFile renders pos into path.
func (r *Renderer) WriteFile(ctx context.Context, path string, pos *rules.Position, opts Options) error {
	data, err := r.RenderPNG(ctx, pos, opts)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

func drawCoordinates(dst imagedraw.Image, sq int, origin image.Point, flip bool) {
	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: dst, Src: image.NewUniform(coordinateColor), Face: face}
	ascent := face.Metrics().Ascent.Ceil()
	for i := 0; i < 8; i++ {
		rankRect := squareRect(0, i, sq, origin, flip)
		drawCentered(drawer, string(rune('1'+i)), origin.X/2, rankRect.Min.Y+sq/2+ascent/2)

		fileRect := squareRect(i, 0, sq, origin, flip)
		drawCentered(drawer, string(rune('a'+i)), fileRect.Min.X+sq/2, origin.Y+8*sq+origin.Y/2+ascent/2)
	}
}

func drawCentered(drawer *font.Drawer, text string, centerX, baseline int) {
	width := drawer.MeasureString(text).Round()
	drawer.Dot = fixed.P(centerX-width/2, baseline)
	drawer.DrawString(text)
}

// squareRect maps file/rank (0-7) to pixels; rank 8 is on top unless flipped.
func squareRect(file, rank, sq int, origin image.Point, flip bool) image.Rectangle {
	col, row := file, 7-rank
	if flip {
		col, row = 7-file, rank
	}
	x := origin.X + col*sq
	y := origin.Y + row*sq
	return image.Rect(x, y, x+sq, y+sq)
}

func parseSquare(name string) (file, rank int, ok bool) {
	if len(name) != 2 || name[0] < 'a' || name[0] > 'h' || name[1] < '1' || name[1] > '8' {
		return 0, 0, false
	}
	return int(name[0] - 'a'), int(name[1] - '1'), true
}
