// Package ucitest provides an in-process UCI engine for tests.
package ucitest

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/park285/Cheese-Board/internal/chess/uci"
)

// Line is one multipv line the fake engine reports.
type Line struct {
	Move   string
	EvalCP int
}

// Engine answers the handshake and replies to every search with the
// configured lines.
type Engine struct {
	mu        sync.Mutex
	lines     []Line
	positions []string
	gos       []string
	options   []string
	starts    int
}

func New(lines ...Line) *Engine {
	return &Engine{lines: lines}
}

// SetLines replaces the search reply.
func (e *Engine) SetLines(lines ...Line) {
	e.mu.Lock()
	e.lines = lines
	e.mu.Unlock()
}

func (e *Engine) Positions() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.positions...)
}

func (e *Engine) GoCommands() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.gos...)
}

func (e *Engine) Options() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.options...)
}

// Starts returns how many sessions were spawned.
func (e *Engine) Starts() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.starts
}

// Factory plugs the fake into uci.PoolConfig.
func (e *Engine) Factory() uci.Factory {
	return func(ctx context.Context, opt uci.Options) (*uci.Session, error) {
		inR, inW := io.Pipe()
		outR, outW := io.Pipe()
		e.mu.Lock()
		e.starts++
		e.mu.Unlock()
		go e.serve(inR, outW)
		return uci.NewSessionIO(ctx, inW, outR, opt, nil)
	}
}

func (e *Engine) serve(in *io.PipeReader, out *io.PipeWriter) {
	defer out.Close()
	defer in.Close()
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		var reply string
		switch {
		case line == "uci":
			reply = "id name ucitest\nuciok\n"
		case line == "isready":
			reply = "readyok\n"
		case strings.HasPrefix(line, "setoption"):
			e.mu.Lock()
			e.options = append(e.options, line)
			e.mu.Unlock()
		case strings.HasPrefix(line, "position"):
			e.mu.Lock()
			e.positions = append(e.positions, line)
			e.mu.Unlock()
		case strings.HasPrefix(line, "go"):
			e.mu.Lock()
			e.gos = append(e.gos, line)
			lines := append([]Line(nil), e.lines...)
			e.mu.Unlock()
			reply = searchReply(lines)
		case line == "quit":
			return
		}
		if reply == "" {
			continue
		}
		if _, err := io.WriteString(out, reply); err != nil {
			return
		}
	}
}

func searchReply(lines []Line) string {
	if len(lines) == 0 {
		return "info depth 0 score mate 0\nbestmove (none)\n"
	}
	var sb strings.Builder
	for i, l := range lines {
		fmt.Fprintf(&sb, "info depth 12 multipv %d score cp %d nodes 1000 pv %s\n", i+1, l.EvalCP, l.Move)
	}
	fmt.Fprintf(&sb, "bestmove %s\n", lines[0].Move)
	return sb.String()
}
