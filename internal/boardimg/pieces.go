package boardimg

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"sync"

	"github.com/park285/terminal-chess/internal/rules"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// Glyph outlines on a 45x45 canvas; %[1]s is the body fill, %[2]s the outline.
var glyphs = map[rules.PieceKind]string{
	rules.Pawn: `<circle cx="22.5" cy="13" r="6" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>
<path d="M17 22 L28 22 L31 34 L14 34 Z" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>
<rect x="11" y="34" width="23" height="5" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>`,
	rules.Rook: `<path d="M11 9 L15 9 L15 12 L20 12 L20 9 L25 9 L25 12 L30 12 L30 9 L34 9 L34 16 L11 16 Z" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>
<rect x="14" y="16" width="17" height="17" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>
<rect x="9" y="33" width="27" height="6" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>`,
	rules.Knight: `<path d="M14 38 L14 30 C14 24 20 22 21 17 L13 21 L10 18 L18 9 L22 7 L26 8 C32 11 35 19 34 38 Z" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>
<circle cx="20" cy="13" r="1.5" fill="%[2]s"/>`,
	rules.Bishop: `<circle cx="22.5" cy="8" r="3" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>
<ellipse cx="22.5" cy="21" rx="7.5" ry="10" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>
<rect x="13" y="31" width="19" height="3" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>
<rect x="10" y="34" width="25" height="5" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>`,
	rules.Queen: `<path d="M9 14 L14 27 L16 12 L20 26 L22.5 10 L25 26 L29 12 L31 27 L36 14 L33 33 L12 33 Z" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>
<rect x="10" y="33" width="25" height="6" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>`,
	rules.King: `<path d="M21 4 L24 4 L24 8 L28 8 L28 11 L24 11 L24 15 L21 15 L21 11 L17 11 L17 8 L21 8 Z" fill="%[1]s" stroke="%[2]s" stroke-width="1.2"/>
<path d="M11 22 C11 15 34 15 34 22 L31 33 L14 33 Z" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>
<rect x="10" y="33" width="25" height="6" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>`,
}

func glyphSVG(p rules.Piece) (string, error) {
	body, ok := glyphs[p.Kind]
	if !ok {
		return "", fmt.Errorf("no glyph for piece kind %d", p.Kind)
	}
	fill, line := "#f8f8f8", "#1a1a1a"
	if p.Side == rules.Black {
		fill, line = "#262626", "#d0d0d0"
	}
	var b strings.Builder
	b.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 45 45" width="45" height="45">`)
	fmt.Fprintf(&b, body, fill, line)
	b.WriteString(`</svg>`)
	return b.String(), nil
}

type glyphKey struct {
	piece rules.Piece
	size  int
}

var (
	glyphCache   = map[glyphKey]image.Image{}
	glyphCacheMu sync.RWMutex
)

// pieceImage rasterises a glyph at size x size, cached per piece and size.
func pieceImage(p rules.Piece, size int) (image.Image, error) {
	key := glyphKey{piece: p, size: size}
	glyphCacheMu.RLock()
	if img, ok := glyphCache[key]; ok {
		glyphCacheMu.RUnlock()
		return img, nil
	}
	glyphCacheMu.RUnlock()

	src, err := glyphSVG(p)
	if err != nil {
		return nil, err
	}
	icon, err := oksvg.ReadIconStream(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("parse %s glyph: %w", p.Symbol(), err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)
	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	icon.Draw(rasterx.NewDasher(size, size, scanner), 1.0)

	glyphCacheMu.Lock()
	glyphCache[key] = img
	glyphCacheMu.Unlock()
	return img, nil
}
