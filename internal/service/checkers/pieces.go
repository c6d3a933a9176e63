package checkers

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"sync"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	corecheckers "github.com/park285/Checkers-KakaoTalk-bot/internal/checkers"
)

type pieceCacheKey struct {
	cell corecheckers.Cell
	size int
}

var (
	pieceCache   = map[pieceCacheKey]image.Image{}
	pieceCacheMu sync.RWMutex
)

// pieceSVG builds the sprite for one piece kind. Sprites are generated
// rather than embedded; the viewBox is fixed at 64x64 and scaled by the
// rasterizer.
func pieceSVG(cell corecheckers.Cell) (string, error) {
	var fill, stroke string
	switch cell {
	case corecheckers.Red, corecheckers.RedKing:
		fill, stroke = "#c0392b", "#7b241c"
	case corecheckers.Black, corecheckers.BlackKing:
		fill, stroke = "#2c2c2c", "#0d0d0d"
	default:
		return "", fmt.Errorf("no sprite for cell %q", cell.Token())
	}

	var b strings.Builder
	b.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 64 64">`)
	fmt.Fprintf(&b, `<circle cx="32" cy="32" r="26" fill="%s" stroke="%s" stroke-width="3"/>`, fill, stroke)
	fmt.Fprintf(&b, `<circle cx="32" cy="32" r="18" fill="none" stroke="%s" stroke-width="2"/>`, stroke)
	if cell.King() {
		b.WriteString(`<polygon points="20,41 20,26 27,33 32,21 37,33 44,26 44,41" fill="#f1c40f" stroke="#b7950b" stroke-width="2"/>`)
	}
	b.WriteString(`</svg>`)
	return b.String(), nil
}

func renderPieceImage(cell corecheckers.Cell, size int) (image.Image, error) {
	key := pieceCacheKey{cell: cell, size: size}

	pieceCacheMu.RLock()
	if img, ok := pieceCache[key]; ok {
		pieceCacheMu.RUnlock()
		return img, nil
	}
	pieceCacheMu.RUnlock()

	svg, err := pieceSVG(cell)
	if err != nil {
		return nil, err
	}

	icon, err := oksvg.ReadIconStream(strings.NewReader(svg))
	if err != nil {
		return nil, fmt.Errorf("parse piece svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	pieceCacheMu.Lock()
	pieceCache[key] = img
	pieceCacheMu.Unlock()

	return img, nil
}
