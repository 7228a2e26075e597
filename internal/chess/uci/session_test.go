package uci_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/park285/Cheese-Board/internal/chess/uci"
	"github.com/park285/Cheese-Board/internal/chess/uci/ucitest"
)

func testOptions() uci.Options {
	return uci.Options{Threads: 1, SkillLevel: 20, HashMB: 16, MultiPV: 2}
}

func TestSearchCollectsCandidates(t *testing.T) {
	eng := ucitest.New(ucitest.Line{Move: "e7e5", EvalCP: 20}, ucitest.Line{Move: "c7c5", EvalCP: 5})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s, err := eng.Factory()(ctx, testOptions())
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	defer s.Close()

	resp, err := s.Search(ctx, uci.SearchRequest{Moves: []string{"e2e4"}, Limits: uci.Limits{MoveTimeMillis: 100}})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if resp.BestMove != "e7e5" {
		t.Fatalf("bestmove: %s", resp.BestMove)
	}
	if len(resp.Candidates) != 2 || resp.Candidates[1].Move != "c7c5" || resp.Candidates[0].EvalCP != 20 {
		t.Fatalf("unexpected candidates %+v", resp.Candidates)
	}
	if got := eng.Positions(); len(got) != 1 || got[0] != "position startpos moves e2e4" {
		t.Fatalf("unexpected position commands %v", got)
	}
	if got := eng.GoCommands(); len(got) != 1 || got[0] != "go movetime 100" {
		t.Fatalf("unexpected go commands %v", got)
	}
}

func TestFullStrengthDisablesLimit(t *testing.T) {
	eng := ucitest.New(ucitest.Line{Move: "e7e5"})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s, err := eng.Factory()(ctx, testOptions())
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	defer s.Close()

	joined := strings.Join(eng.Options(), "\n")
	if !strings.Contains(joined, "UCI_LimitStrength value false") || strings.Contains(joined, "UCI_Elo") {
		t.Fatalf("unexpected options:\n%s", joined)
	}
}

func TestSearchNoMove(t *testing.T) {
	eng := ucitest.New()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s, err := eng.Factory()(ctx, testOptions())
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	defer s.Close()

	resp, err := s.Search(ctx, uci.SearchRequest{FEN: "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1", Limits: uci.Limits{Depth: 4}})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if resp.BestMove != "" {
		t.Fatalf("expected empty bestmove, got %q", resp.BestMove)
	}
	if got := eng.Positions(); !strings.HasPrefix(got[0], "position fen 7k/") {
		t.Fatalf("fen position not forwarded: %v", got)
	}
}

func TestBuildGoTokensRequiresLimit(t *testing.T) {
	if _, err := uci.BuildGoTokens(uci.Limits{}); err == nil {
		t.Fatalf("expected error without limits")
	}
	got, err := uci.BuildGoTokens(uci.Limits{Depth: 8, NodeCap: 5000})
	if err != nil || strings.Join(got, " ") != "go depth 8 nodes 5000" {
		t.Fatalf("got %v err %v", got, err)
	}
}

func TestPoolReusesSessions(t *testing.T) {
	eng := ucitest.New(ucitest.Line{Move: "e7e5"})
	pool, err := uci.NewPool(uci.PoolConfig{Capacity: 1, Options: testOptions(), Factory: eng.Factory()}, nil)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	defer pool.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s1, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	pool.Release(s1, nil)
	s2, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire again: %v", err)
	}
	if s1 != s2 {
		t.Fatalf("expected idle session to be reused")
	}

	blocked, cancelBlocked := context.WithTimeout(ctx, 30*time.Millisecond)
	defer cancelBlocked()
	if _, err := pool.Acquire(blocked); err == nil {
		t.Fatalf("acquire beyond capacity should block until ctx ends")
	}

	pool.Release(s2, context.Canceled)
	s3, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire after discard: %v", err)
	}
	pool.Release(s3, nil)
	if eng.Starts() != 2 {
		t.Fatalf("expected 2 engine starts, got %d", eng.Starts())
	}
}

func TestNewPoolRequiresBinary(t *testing.T) {
	if _, err := uci.NewPool(uci.PoolConfig{Options: testOptions()}, nil); err == nil {
		t.Fatalf("expected error without binary path")
	}
	if _, err := uci.NewPool(uci.PoolConfig{BinaryPath: "/nonexistent/stockfish", Options: testOptions()}, nil); err == nil {
		t.Fatalf("expected error for missing binary")
	}
}
