package mirror

import (
	"context"
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/park285/Cheese-Board/internal/boardstate"
	"github.com/park285/Cheese-Board/internal/game"
	"github.com/park285/Cheese-Board/internal/led"
)

func newTestMirror(t *testing.T) (*Mirror, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	m, err := Connect(context.Background(), fmt.Sprintf("redis://%s/0", mr.Addr()), time.Hour)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m, mr
}

func sampleSnapshot(id string) game.Snapshot {
	var st boardstate.State
	st[12] = boardstate.White
	st[52] = boardstate.Black
	var f led.Frame
	f[12] = led.WhitePiece
	return game.Snapshot{
		SessionID:  id,
		Event:      game.EventMove,
		Phase:      game.BlackToMove,
		Turn:       "black",
		FEN:        "8/4p3/8/8/8/8/4P3/8 b - - 0 1",
		Moves:      []string{"e2e4"},
		LastMove:   "e2e4",
		Confirmed:  st,
		Live:       st,
		Frame:      f,
		Correcting: true,
		At:         time.Unix(1700000000, 0).UTC(),
	}
}

func TestPublishAndLoad(t *testing.T) {
	m, mr := newTestMirror(t)
	ctx := context.Background()

	want := sampleSnapshot("s-1")
	if err := m.Publish(ctx, want); err != nil {
		t.Fatalf("publish: %v", err)
	}
	got, err := m.Load(ctx, "s-1")
	if err != nil || got == nil {
		t.Fatalf("load: %v", err)
	}
	if got.Phase != want.Phase || got.Confirmed != want.Confirmed || got.Frame != want.Frame {
		t.Fatalf("snapshot mismatch: %+v", got)
	}
	if !got.Correcting || got.LastMove != "e2e4" || !got.At.Equal(want.At) {
		t.Fatalf("snapshot mismatch: %+v", got)
	}
	if ttl := mr.TTL("chessboard:session:s-1"); ttl != time.Hour {
		t.Fatalf("unexpected ttl %v", ttl)
	}
}

func TestCurrentFollowsLatestSession(t *testing.T) {
	m, mr := newTestMirror(t)
	ctx := context.Background()

	if s, err := m.Current(ctx); err != nil || s != nil {
		t.Fatalf("expected nothing yet, got %+v %v", s, err)
	}
	_ = m.Publish(ctx, sampleSnapshot("a"))
	_ = m.Publish(ctx, sampleSnapshot("b"))
	cur, err := m.Current(ctx)
	if err != nil || cur == nil || cur.SessionID != "b" {
		t.Fatalf("current should be b, got %+v %v", cur, err)
	}

	mr.FastForward(2 * time.Hour)
	if cur, _ := m.Current(ctx); cur != nil {
		t.Fatalf("state should expire")
	}
}

func TestParseRedisURL(t *testing.T) {
	opts, err := parseRedisURL("redis://:secret@localhost:6380/3")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if opts.Addr != "localhost:6380" || opts.Password != "secret" || opts.DB != 3 {
		t.Fatalf("unexpected options %+v", opts)
	}
	if _, err := parseRedisURL("http://localhost"); err == nil {
		t.Fatalf("expected scheme error")
	}
	if _, err := Connect(context.Background(), " ", 0); err == nil {
		t.Fatalf("expected missing url error")
	}
}
