package led

import (
	"testing"

	"github.com/park285/Cheese-Board/internal/boardstate"
)

func TestCompose_TransparentTopLayerIsNoop(t *testing.T) {
	base := NewLayer("base")
	Checkerboard(base, LightSquare, DarkSquare)
	top := NewLayer("top")

	if Compose(base, top) != Compose(base) {
		t.Fatalf("transparent top layer changed the frame")
	}
}

func TestCompose_OpaqueTopLayerWins(t *testing.T) {
	base := NewLayer("base")
	Checkerboard(base, LightSquare, DarkSquare)
	top := NewLayer("top")
	top.Fill(ErrorHighlight)

	if Compose(base, top) != Compose(top) {
		t.Fatalf("opaque top layer did not cover base")
	}
}

func TestCompose_OrderAndDisabledLayers(t *testing.T) {
	bottom := NewLayer("bottom")
	bottom.Set(10, WhitePiece)
	bottom.Set(11, WhitePiece)
	middle := NewLayer("middle")
	middle.Set(10, LegalMove)
	top := NewLayer("top")
	top.Set(11, CaptureMove)
	top.SetEnabled(false)

	stack := NewStack(bottom, middle, top)
	frame := stack.Compose()
	if frame[10] != LegalMove {
		t.Fatalf("square 10: want %v got %v", LegalMove, frame[10])
	}
	if frame[11] != WhitePiece {
		t.Fatalf("square 11: disabled layer leaked, got %v", frame[11])
	}
	if !frame[12].IsZero() {
		t.Fatalf("square 12 should stay dark, got %v", frame[12])
	}

	top.SetEnabled(true)
	if got := stack.Compose()[11]; got != CaptureMove {
		t.Fatalf("re-enabled layer not applied, got %v", got)
	}
}

func TestCompose_BlackCannotErase(t *testing.T) {
	bottom := NewLayer("bottom")
	bottom.Set(0, LightSquare)
	top := NewLayer("top")
	top.Set(0, Off)

	if got := Compose(bottom, top)[0]; got != LightSquare {
		t.Fatalf("black painted over lower layer: %v", got)
	}
}

func TestStackHoldsReferences(t *testing.T) {
	l := NewLayer("effects")
	stack := NewStack(nil, l)
	if len(stack.Layers()) != 1 {
		t.Fatalf("nil layer kept in stack")
	}
	l.Set(5, ErrorHighlight)
	if stack.Compose()[5] != ErrorHighlight {
		t.Fatalf("stack did not observe owner mutation")
	}
	l.Clear()
	if !l.Empty() || stack.Compose().Lit() != 0 {
		t.Fatalf("clear not observed")
	}
}

func TestFrameClamp(t *testing.T) {
	var f Frame
	f[0] = RGB(255, 254, 100)
	got := f.Clamp(DefaultMaxBrightness)[0]
	if got != RGB(253, 253, 100) {
		t.Fatalf("unexpected clamp result %v", got)
	}
}

func TestPaintOccupancy(t *testing.T) {
	var st boardstate.State
	st[0] = boardstate.White
	st[63] = boardstate.Black
	l := NewLayer("pieces")
	l.Set(5, LegalMove)
	PaintOccupancy(l, st, WhitePiece, BlackDimmed)
	if l.At(0) != WhitePiece || l.At(63) != BlackDimmed || !l.At(5).IsZero() {
		t.Fatalf("unexpected occupancy paint: %v %v %v", l.At(0), l.At(63), l.At(5))
	}
}
