package statusapi

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"testing"

	"github.com/park285/Cheese-Board/internal/game"
	"github.com/valyala/fasthttp"
)

type counter struct{ n int }

func (c *counter) Notify() { c.n++ }

func do(s *Server, method, path string) *fasthttp.RequestCtx {
	var rc fasthttp.RequestCtx
	rc.Request.Header.SetMethod(method)
	rc.Request.SetRequestURI(path)
	s.Handler(&rc)
	return &rc
}

func TestStateBeforeAndAfterPublish(t *testing.T) {
	s := New(nil, nil)
	if rc := do(s, "GET", "/state"); rc.Response.StatusCode() != fasthttp.StatusServiceUnavailable {
		t.Fatalf("expected 503 before the first snapshot, got %d", rc.Response.StatusCode())
	}

	moves := []string{"e2e4"}
	_ = s.Publish(context.Background(), game.Snapshot{SessionID: "s1", Phase: game.BlackToMove, Moves: moves})
	moves[0] = "d2d4"

	rc := do(s, "GET", "/state")
	if rc.Response.StatusCode() != fasthttp.StatusOK {
		t.Fatalf("unexpected status %d", rc.Response.StatusCode())
	}
	var got game.Snapshot
	if err := json.Unmarshal(rc.Response.Body(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.SessionID != "s1" || got.Phase != game.BlackToMove {
		t.Fatalf("unexpected snapshot %+v", got)
	}
	if got.Moves[0] != "e2e4" {
		t.Fatalf("server should keep its own copy of the moves")
	}
}

func TestBoardPNG(t *testing.T) {
	s := New(nil, nil)
	_ = s.Publish(context.Background(), game.Snapshot{Phase: game.AwaitingSetup})
	rc := do(s, "GET", "/board.png")
	if rc.Response.StatusCode() != fasthttp.StatusOK {
		t.Fatalf("unexpected status %d", rc.Response.StatusCode())
	}
	if string(rc.Response.Header.ContentType()) != "image/png" {
		t.Fatalf("unexpected content type %s", rc.Response.Header.ContentType())
	}
	if _, err := png.Decode(bytes.NewReader(rc.Response.Body())); err != nil {
		t.Fatalf("body is not a png: %v", err)
	}
}

func TestPressAndHealth(t *testing.T) {
	c := &counter{}
	s := New(c, nil)
	if rc := do(s, "GET", "/press"); rc.Response.StatusCode() != fasthttp.StatusMethodNotAllowed {
		t.Fatalf("GET /press should be rejected")
	}
	if rc := do(s, "POST", "/press"); rc.Response.StatusCode() != fasthttp.StatusAccepted || c.n != 1 {
		t.Fatalf("press not forwarded")
	}
	if rc := do(s, "GET", "/healthz"); string(rc.Response.Body()) != "ok" {
		t.Fatalf("unexpected health body %q", rc.Response.Body())
	}
	if rc := do(s, "GET", "/nope"); rc.Response.StatusCode() != fasthttp.StatusNotFound {
		t.Fatalf("expected 404")
	}
}
