package preview

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/park285/Cheese-Board/internal/boardstate"
	"github.com/park285/Cheese-Board/internal/game"
	"github.com/park285/Cheese-Board/internal/led"
)

func decode(t *testing.T, b []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	return img
}

func center(sq int) image.Point {
	r := squareRect(sq, image.Point{X: sideMargin, Y: topMargin})
	return image.Point{X: (r.Min.X + r.Max.X) / 2, Y: (r.Min.Y + r.Max.Y) / 2}
}

func corner(sq int) image.Point {
	r := squareRect(sq, image.Point{X: sideMargin, Y: topMargin})
	return image.Point{X: r.Min.X + ledInset + 1, Y: r.Min.Y + ledInset + 1}
}

func rgba(c color.Color) color.RGBA {
	r, g, b, a := c.RGBA()
	return color.RGBA{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8), uint8(a >> 8)}
}

func TestRenderShowsLEDsAndDiscs(t *testing.T) {
	var snap game.Snapshot
	snap.Phase = game.WhiteToMove
	snap.Frame[28] = led.LegalMove
	snap.Live[12] = boardstate.White
	snap.Live[52] = boardstate.Black

	b, err := Render(context.Background(), snap)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	img := decode(t, b)
	if got := img.Bounds().Dx(); got != boardSize+2*sideMargin {
		t.Fatalf("unexpected width %d", got)
	}

	if got := rgba(img.At(corner(28).X, corner(28).Y)); got != (color.RGBA{255, 255, 0, 255}) {
		t.Fatalf("lit square should show the led color, got %v", got)
	}
	if got := rgba(img.At(corner(27).X, corner(27).Y)); got != rgba(squareColor(27)) {
		t.Fatalf("unlit square should show the board color, got %v", got)
	}

	white := rgba(img.At(center(12).X, center(12).Y))
	black := rgba(img.At(center(52).X, center(52).Y))
	if white.R < 200 || black.R > 80 {
		t.Fatalf("discs not drawn: white=%v black=%v", white, black)
	}
}

func TestRenderCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Render(ctx, game.Snapshot{}); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestSquareRectOrientation(t *testing.T) {
	o := image.Point{}
	if r := squareRect(0, o); r.Min.Y != 7*squareSize || r.Min.X != 0 {
		t.Fatalf("a1 should be bottom left, got %v", r)
	}
	if r := squareRect(63, o); r.Min.Y != 0 || r.Min.X != 7*squareSize {
		t.Fatalf("h8 should be top right, got %v", r)
	}
}
