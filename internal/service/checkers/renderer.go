package checkers

import (
	"bytes"
	"context"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	corecheckers "github.com/park285/Checkers-KakaoTalk-bot/internal/checkers"
)

type MoveHighlight struct {
	From corecheckers.Position
	To   corecheckers.Position
}

type RenderOptions struct {
	Highlight *MoveHighlight
	// Forced marks the piece that must keep capturing.
	Forced    *corecheckers.Position
	HUDHeader string
	HUDTurn   string
}

type BoardRenderer interface {
	RenderPNG(ctx context.Context, board corecheckers.Board, opts RenderOptions) ([]byte, error)
}

type svgBoardRenderer struct{}

func NewSVGBoardRenderer() BoardRenderer {
	return &svgBoardRenderer{}
}

func (r *svgBoardRenderer) RenderPNG(ctx context.Context, board corecheckers.Board, opts RenderOptions) ([]byte, error) {
	const (
		squareSize    = 72
		boardSquares  = 8
		boardSize     = squareSize * boardSquares
		sideMargin    = 36
		topMargin     = 96
		bottomMargin  = 36
		titleHeight   = 38
		turnHeight    = 30
		gapToBoard    = 16
		panelRadius   = 10
		titlePaddingX = 24
		turnPaddingX  = 18
		titleMinWidth = 260
		turnMinWidth  = 120
		shadowOffsetY = 5
	)

	totalWidth := boardSize + sideMargin*2
	totalHeight := boardSize + topMargin + bottomMargin
	boardOrigin := image.Point{X: sideMargin, Y: topMargin}
	boardRect := image.Rect(
		boardOrigin.X,
		boardOrigin.Y,
		boardOrigin.X+boardSize,
		boardOrigin.Y+boardSize,
	)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	img := image.NewRGBA(image.Rect(0, 0, totalWidth, totalHeight))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)

	drawHUD(img, opts, boardRect, panelRadius, titleHeight, turnHeight, gapToBoard, titlePaddingX, turnPaddingX, titleMinWidth, turnMinWidth, shadowOffsetY)
	drawSquares(img, squareSize, boardOrigin)
	drawHighlight(img, opts.Highlight, squareSize, boardOrigin)
	drawForcedMarker(img, opts.Forced, squareSize, boardOrigin)
	if err := drawPieces(img, board, squareSize, boardOrigin); err != nil {
		return nil, err
	}
	drawCoordinates(img, squareSize, boardOrigin, sideMargin)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var pngBuf bytes.Buffer
	if err := png.Encode(&pngBuf, img); err != nil {
		return nil, err
	}
	return pngBuf.Bytes(), nil
}

var (
	backgroundColor     = color.NRGBA{R: 22, G: 24, B: 34, A: 255}
	lightSquare         = color.RGBA{233, 207, 163, 255}
	darkSquare          = color.RGBA{140, 94, 62, 255}
	moveHighlightFill   = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
	forcedMarkerFill    = color.NRGBA{R: 148, G: 207, B: 255, A: 150}
	hudPanelColor       = color.NRGBA{R: 28, G: 31, B: 46, A: 250}
	hudTurnPanelColor   = color.NRGBA{R: 32, G: 35, B: 52, A: 245}
	hudShadowColor      = color.NRGBA{0, 0, 0, 50}
	hudTextPrimary      = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
	hudTurnTextColor    = color.NRGBA{R: 204, G: 210, B: 236, A: 255}
	coordinateTextColor = color.NRGBA{R: 210, G: 214, B: 230, A: 255}
)

func captionFace() font.Face {
	return basicfont.Face7x13
}

func drawSquares(dst imagedraw.Image, squareSize int, origin image.Point) {
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			x := origin.X + col*squareSize
			y := origin.Y + row*squareSize
			clr := squareColor(corecheckers.Position{Row: row, Col: col})
			imagedraw.Draw(dst, image.Rect(x, y, x+squareSize, y+squareSize), image.NewUniform(clr), image.Point{}, imagedraw.Src)
		}
	}
}

func drawPieces(dst imagedraw.Image, board corecheckers.Board, squareSize int, origin image.Point) error {
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			cell := board.At(corecheckers.Position{Row: row, Col: col})
			if cell == corecheckers.Empty {
				continue
			}
			sprite, err := renderPieceImage(cell, squareSize)
			if err != nil {
				return err
			}
			x := origin.X + col*squareSize
			y := origin.Y + row*squareSize
			imagedraw.Draw(dst, image.Rect(x, y, x+squareSize, y+squareSize), sprite, image.Point{}, imagedraw.Over)
		}
	}
	return nil
}

func drawHighlight(img *image.RGBA, highlight *MoveHighlight, squareSize int, origin image.Point) {
	if highlight == nil {
		return
	}
	drawSquareOverlay(img, highlight.From, squareSize, origin, moveHighlightFill)
	drawSquareOverlay(img, highlight.To, squareSize, origin, moveHighlightFill)
}

func drawForcedMarker(img *image.RGBA, forced *corecheckers.Position, squareSize int, origin image.Point) {
	if forced == nil {
		return
	}
	drawSquareOverlay(img, *forced, squareSize, origin, forcedMarkerFill)
}

func drawSquareOverlay(img *image.RGBA, p corecheckers.Position, squareSize int, origin image.Point, clr color.Color) {
	if img == nil || !p.OnBoard() {
		return
	}
	rect := squareRect(p, squareSize, origin)
	imagedraw.Draw(img, rect, image.NewUniform(clr), image.Point{}, imagedraw.Over)
}

func drawHUD(
	img *image.RGBA,
	opts RenderOptions,
	boardRect image.Rectangle,
	radius,
	titleHeight,
	turnHeight,
	gapToBoard,
	titlePaddingX,
	turnPaddingX,
	titleMinWidth,
	turnMinWidth,
	shadowOffsetY int,
) {
	if img == nil {
		return
	}

	face := captionFace()
	drawer := &font.Drawer{Dst: img, Face: face}

	title := strings.TrimSpace(opts.HUDHeader)
	if title == "" {
		title = "Checkers"
	}
	turnText := strings.TrimSpace(opts.HUDTurn)
	if turnText == "" {
		turnText = "Turn"
	}

	turnBottom := boardRect.Min.Y - gapToBoard
	turnTop := turnBottom - turnHeight
	titleBottom := turnTop - 10
	titleTop := titleBottom - titleHeight

	titleWidth := titleMinWidth
	if w := drawer.MeasureString(title).Round() + titlePaddingX*2; w > titleWidth {
		titleWidth = w
	}
	if maxW := boardRect.Dx(); titleWidth > maxW {
		titleWidth = maxW
	}

	turnWidth := turnMinWidth
	if w := drawer.MeasureString(turnText).Round() + turnPaddingX*2; w > turnWidth {
		turnWidth = w
	}
	if maxW := boardRect.Dx() - 40; turnWidth > maxW {
		turnWidth = maxW
	}

	titleRect := image.Rect(boardRect.Min.X, titleTop, boardRect.Min.X+titleWidth, titleBottom)
	turnLeft := boardRect.Min.X + (boardRect.Dx()-turnWidth)/2
	turnRect := image.Rect(turnLeft, turnTop, turnLeft+turnWidth, turnBottom)

	drawRoundedPanel(img, titleRect.Add(image.Pt(0, shadowOffsetY)), radius, hudShadowColor)
	drawRoundedPanel(img, turnRect.Add(image.Pt(0, shadowOffsetY)), radius, hudShadowColor)

	title = truncateWithEllipsis(face, title, titleRect.Dx()-titlePaddingX*2)
	turnText = truncateWithEllipsis(face, turnText, turnRect.Dx()-turnPaddingX*2)

	drawRoundedPanel(img, titleRect, radius, hudPanelColor)
	drawRoundedPanel(img, turnRect, radius, hudTurnPanelColor)

	drawCenteredString(drawer, titleRect, title, hudTextPrimary)
	drawCenteredString(drawer, turnRect, turnText, hudTurnTextColor)
}

func drawCoordinates(dst imagedraw.Image, squareSize int, origin image.Point, margin int) {
	face := captionFace()
	drawer := &font.Drawer{
		Dst:  dst,
		Face: face,
		Src:  image.NewUniform(coordinateTextColor),
	}

	ascent := face.Metrics().Ascent.Ceil()
	boardEndY := origin.Y + 8*squareSize

	// Rank labels 1..8 top to bottom, file labels a..h, matching the
	// algebraic move notation.
	for row := 0; row < 8; row++ {
		label := string(rune('1' + row))
		baseline := origin.Y + row*squareSize + squareSize/2 + ascent/2
		drawCenteredText(drawer, label, origin.X-margin/2, baseline)
	}
	for col := 0; col < 8; col++ {
		label := string(rune('a' + col))
		centerX := origin.X + col*squareSize + squareSize/2
		drawCenteredText(drawer, label, centerX, boardEndY+ascent+4)
	}
}

func truncateWithEllipsis(face font.Face, text string, maxWidth int) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || maxWidth <= 0 || face == nil {
		return trimmed
	}

	drawer := font.Drawer{Face: face}
	if drawer.MeasureString(trimmed).Round() <= maxWidth {
		return trimmed
	}

	ellipsis := "..."
	if drawer.MeasureString(ellipsis).Round() > maxWidth {
		return ""
	}

	runes := []rune(trimmed)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		candidate := string(runes) + ellipsis
		if drawer.MeasureString(candidate).Round() <= maxWidth {
			return candidate
		}
	}
	return ellipsis
}

func drawRoundedPanel(img *image.RGBA, rect image.Rectangle, radius int, clr color.Color) {
	if img == nil || rect.Empty() {
		return
	}
	if radius < 0 {
		radius = 0
	}
	maxRadius := rect.Dx() / 2
	if r := rect.Dy() / 2; r < maxRadius {
		maxRadius = r
	}
	if radius > maxRadius {
		radius = maxRadius
	}
	fill := image.NewUniform(clr)
	if radius == 0 {
		imagedraw.Draw(img, rect, fill, image.Point{}, imagedraw.Over)
		return
	}

	core := image.Rect(rect.Min.X+radius, rect.Min.Y, rect.Max.X-radius, rect.Max.Y)
	if core.Dx() > 0 {
		imagedraw.Draw(img, core, fill, image.Point{}, imagedraw.Over)
	}
	leftRect := image.Rect(rect.Min.X, rect.Min.Y+radius, rect.Min.X+radius, rect.Max.Y-radius)
	if leftRect.Dx() > 0 {
		imagedraw.Draw(img, leftRect, fill, image.Point{}, imagedraw.Over)
	}
	rightRect := image.Rect(rect.Max.X-radius, rect.Min.Y+radius, rect.Max.X, rect.Max.Y-radius)
	if rightRect.Dx() > 0 {
		imagedraw.Draw(img, rightRect, fill, image.Point{}, imagedraw.Over)
	}

	corners := []image.Point{
		{rect.Min.X + radius, rect.Min.Y + radius},
		{rect.Max.X - radius - 1, rect.Min.Y + radius},
		{rect.Min.X + radius, rect.Max.Y - radius - 1},
		{rect.Max.X - radius - 1, rect.Max.Y - radius - 1},
	}
	for _, center := range corners {
		drawDisc(img, center, radius, clr)
	}
}

func drawCenteredString(drawer *font.Drawer, rect image.Rectangle, text string, clr color.Color) {
	if drawer == nil {
		return
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	metrics := drawer.Face.Metrics()
	width := drawer.MeasureString(text).Round()
	x := rect.Min.X + (rect.Dx()-width)/2
	if x < rect.Min.X {
		x = rect.Min.X
	}
	baseline := rect.Min.Y + (rect.Dy()+metrics.Ascent.Ceil()-metrics.Descent.Ceil())/2
	drawer.Src = image.NewUniform(clr)
	drawer.Dot = fixed.P(x, baseline)
	drawer.DrawString(text)
}

func drawCenteredText(drawer *font.Drawer, text string, centerX, baseline int) {
	if text == "" {
		return
	}
	width := drawer.MeasureString(text).Round()
	drawer.Dot = fixed.P(centerX-width/2, baseline)
	drawer.DrawString(text)
}

func drawDisc(img *image.RGBA, center image.Point, radius int, clr color.Color) {
	if radius <= 0 {
		blendPixel(img, center.X, center.Y, clr)
		return
	}
	rSquared := radius * radius
	for y := -radius; y <= radius; y++ {
		for x := -radius; x <= radius; x++ {
			if x*x+y*y > rSquared {
				continue
			}
			blendPixel(img, center.X+x, center.Y+y, clr)
		}
	}
}

func blendPixel(img *image.RGBA, x, y int, clr color.Color) {
	if img == nil {
		return
	}
	if !(image.Point{X: x, Y: y}).In(img.Bounds()) {
		return
	}

	sr, sg, sb, sa := clr.RGBA()
	srcA := float64(sa) / 65535.0
	if srcA <= 0 {
		return
	}
	srcR := float64(sr) / 65535.0
	srcG := float64(sg) / 65535.0
	srcB := float64(sb) / 65535.0

	dst := img.RGBAAt(x, y)
	dstA := float64(dst.A) / 255.0

	var dstR, dstG, dstB float64
	if dstA > 0 {
		inv := 1.0 / dstA
		dstR = float64(dst.R) / 255.0 * inv
		dstG = float64(dst.G) / 255.0 * inv
		dstB = float64(dst.B) / 255.0 * inv
	}

	outA := srcA + dstA*(1-srcA)
	if outA <= 0 {
		img.SetRGBA(x, y, color.RGBA{})
		return
	}

	outR := (srcR*srcA + dstR*dstA*(1-srcA)) / outA
	outG := (srcG*srcA + dstG*dstA*(1-srcA)) / outA
	outB := (srcB*srcA + dstB*dstA*(1-srcA)) / outA

	img.SetRGBA(x, y, color.RGBA{
		R: floatToUint8(outR * outA * 255.0),
		G: floatToUint8(outG * outA * 255.0),
		B: floatToUint8(outB * outA * 255.0),
		A: floatToUint8(outA * 255.0),
	})
}

func floatToUint8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}

func squareRect(p corecheckers.Position, squareSize int, origin image.Point) image.Rectangle {
	x := origin.X + p.Col*squareSize
	y := origin.Y + p.Row*squareSize
	return image.Rect(x, y, x+squareSize, y+squareSize)
}

func squareColor(p corecheckers.Position) color.Color {
	if p.Dark() {
		return darkSquare
	}
	return lightSquare
}
