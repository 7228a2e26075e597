// Package preview draws a PNG of the board as the sensors and LEDs see it.
package preview

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"strings"

	"github.com/park285/Cheese-Board/internal/boardstate"
	"github.com/park285/Cheese-Board/internal/game"
	"github.com/park285/Cheese-Board/internal/led"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	squareSize   = 64
	boardSquares = 8
	boardSize    = squareSize * boardSquares
	sideMargin   = 28
	topMargin    = 40
	bottomMargin = 28
	ledInset     = 5
)

var (
	lightSquare         = color.RGBA{233, 207, 163, 255}
	darkSquare          = color.RGBA{187, 136, 96, 255}
	backgroundColor     = color.RGBA{28, 31, 46, 255}
	hudTextPrimary      = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
	coordinateTextColor = color.NRGBA{R: 8, G: 214, B: 120, A: 255}
	correctingTextColor = color.NRGBA{R: 255, G: 90, B: 90, A: 255}
)

// Render draws the live occupancy over the composed LED frame.
func Render(ctx context.Context, snap game.Snapshot) ([]byte, error) {
	totalWidth := boardSize + sideMargin*2
	totalHeight := boardSize + topMargin + bottomMargin
	origin := image.Point{X: sideMargin, Y: topMargin}

	img := image.NewRGBA(image.Rect(0, 0, totalWidth, totalHeight))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)

	drawHeader(img, snap)
	drawSquares(img, origin)
	drawLEDs(img, snap.Frame, origin)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if err := drawDiscs(img, snap.Live, origin); err != nil {
		return nil, err
	}
	drawCoordinates(img, origin)

	var pngBuf bytes.Buffer
	if err := png.Encode(&pngBuf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return pngBuf.Bytes(), nil
}

func drawSquares(dst imagedraw.Image, origin image.Point) {
	for sq := 0; sq < boardstate.Squares; sq++ {
		imagedraw.Draw(dst, squareRect(sq, origin), image.NewUniform(squareColor(sq)), image.Point{}, imagedraw.Src)
	}
}

// drawLEDs fills each lit square's inner area with its LED color.
func drawLEDs(dst imagedraw.Image, frame led.Frame, origin image.Point) {
	for sq, c := range frame {
		if c.IsZero() {
			continue
		}
		rect := squareRect(sq, origin).Inset(ledInset)
		imagedraw.Draw(dst, rect, image.NewUniform(color.RGBA{c.R, c.G, c.B, 255}), image.Point{}, imagedraw.Src)
	}
}

func drawDiscs(dst imagedraw.Image, st boardstate.State, origin image.Point) error {
	for sq, o := range st {
		if !o.Occupied() {
			continue
		}
		disc, err := renderDisc(o, squareSize)
		if err != nil {
			return err
		}
		imagedraw.Draw(dst, squareRect(sq, origin), disc, image.Point{}, imagedraw.Over)
	}
	return nil
}

func drawHeader(dst imagedraw.Image, snap game.Snapshot) {
	drawer := &font.Drawer{Dst: dst, Face: basicfont.Face7x13, Src: image.NewUniform(hudTextPrimary)}
	parts := []string{snap.Phase.String()}
	if snap.LastMove != "" {
		parts = append(parts, "last "+snap.LastMove)
	}
	if snap.Opening != "" {
		parts = append(parts, snap.Opening)
	}
	if snap.Outcome != "" {
		parts = append(parts, snap.Outcome)
	}
	drawer.Dot = fixed.P(sideMargin, topMargin/2+5)
	drawer.DrawString(strings.Join(parts, "  |  "))

	if snap.Correcting {
		drawer.Src = image.NewUniform(correctingTextColor)
		text := "RESTORE BOARD"
		width := drawer.MeasureString(text).Round()
		drawer.Dot = fixed.P(sideMargin+boardSize-width, topMargin/2+5)
		drawer.DrawString(text)
	}
}

func drawCoordinates(dst imagedraw.Image, origin image.Point) {
	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: dst, Face: face, Src: image.NewUniform(coordinateTextColor)}
	ascent := face.Metrics().Ascent.Ceil()
	boardEndY := origin.Y + boardSize

	for i := 0; i < boardSquares; i++ {
		rankCenter := origin.Y + i*squareSize + squareSize/2
		drawCenteredText(drawer, string(rune('8'-i)), origin.X-sideMargin/2, rankCenter+ascent/2)

		fileCenter := origin.X + i*squareSize + squareSize/2
		drawCenteredText(drawer, string(rune('a'+i)), fileCenter, boardEndY+ascent+4)
	}
}

func drawCenteredText(drawer *font.Drawer, text string, centerX, baseline int) {
	if text == "" {
		return
	}
	width := drawer.MeasureString(text).Round()
	drawer.Dot = fixed.P(centerX-width/2, baseline)
	drawer.DrawString(text)
}

// squareRect maps a logical square to pixels with rank 8 at the top.
func squareRect(sq int, origin image.Point) image.Rectangle {
	row := 7 - sq/8
	col := sq % 8
	x := origin.X + col*squareSize
	y := origin.Y + row*squareSize
	return image.Rect(x, y, x+squareSize, y+squareSize)
}

func squareColor(sq int) color.Color {
	if (sq/8+sq%8)%2 == 0 {
		return darkSquare
	}
	return lightSquare
}
