package game

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/park285/Cheese-Board/internal/boardstate"
	"github.com/park285/Cheese-Board/internal/led"
	"github.com/park285/Cheese-Board/internal/rules"
)

type poll struct {
	st    boardstate.State
	press bool
}

// scriptBoard replays queued polls; once the queue is empty the last state
// sticks. It doubles as the press source so a press lands in the same cycle
// as its poll.
type scriptBoard struct {
	queue   []poll
	cur     boardstate.State
	pending bool
	polls   int
	frames  []led.Frame
	waits   []boardstate.State
	guided  []led.Frame
}

func (b *scriptBoard) PollSensors(context.Context) (boardstate.State, error) {
	b.polls++
	if len(b.queue) > 0 {
		b.cur = b.queue[0].st
		b.pending = b.pending || b.queue[0].press
		b.queue = b.queue[1:]
	}
	return b.cur, nil
}

func (b *scriptBoard) PushLEDs(_ context.Context, f led.Frame) error {
	b.frames = append(b.frames, f)
	return nil
}

func (b *scriptBoard) WaitForBoard(_ context.Context, target boardstate.State) (boardstate.State, error) {
	b.waits = append(b.waits, target)
	b.guided = append(b.guided, b.frames[len(b.frames)-1])
	b.cur = target
	return target, nil
}

func (b *scriptBoard) Take() bool {
	p := b.pending
	b.pending = false
	return p
}

func (b *scriptBoard) lastFrame() led.Frame { return b.frames[len(b.frames)-1] }

type scriptMoves struct {
	moves []string
	calls [][]string
}

func (m *scriptMoves) BestMove(_ context.Context, fen string, moves []string) (string, error) {
	if fen != StartPosition {
		return "", errors.New("unexpected fen")
	}
	m.calls = append(m.calls, append([]string(nil), moves...))
	if len(m.moves) == 0 {
		return "", errors.New("no scripted move")
	}
	mv := m.moves[0]
	m.moves = m.moves[1:]
	return mv, nil
}

type recorder struct {
	snaps []Snapshot
	err   error
}

func (r *recorder) Publish(_ context.Context, s Snapshot) error {
	r.snaps = append(r.snaps, s)
	return r.err
}

func (r *recorder) events() []EventKind {
	out := make([]EventKind, 0, len(r.snaps))
	for _, s := range r.snaps {
		out = append(out, s.Event)
	}
	return out
}

type notices struct{ keys []string }

func (n *notices) Notify(key string, _ map[string]any) { n.keys = append(n.keys, key) }

func stateAfter(t *testing.T, moves ...string) boardstate.State {
	t.Helper()
	o := rules.New()
	for _, mv := range moves {
		if err := o.Apply(mv); err != nil {
			t.Fatalf("apply %s: %v", mv, err)
		}
	}
	return o.Occupancy()
}

func sq(t *testing.T, name string) int {
	t.Helper()
	i, err := boardstate.ParseSquare(name)
	if err != nil {
		t.Fatalf("square %s: %v", name, err)
	}
	return i
}

type harness struct {
	o     *Orchestrator
	board *scriptBoard
	moves *scriptMoves
	rules *rules.Oracle
	rec   *recorder
	notes *notices
}

func newHarness(t *testing.T, queue ...poll) *harness {
	t.Helper()
	h := &harness{
		board: &scriptBoard{queue: queue},
		moves: &scriptMoves{},
		rules: rules.New(),
		rec:   &recorder{},
		notes: &notices{},
	}
	o, err := New(Config{
		Board:     h.board,
		Rules:     h.rules,
		Moves:     h.moves,
		Presses:   h.board,
		Observers: []Observer{h.rec},
		Notifier:  h.notes,
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	h.o = o
	return h
}

func (h *harness) step(t *testing.T) {
	t.Helper()
	if _, err := h.o.Step(context.Background()); err != nil {
		t.Fatalf("step: %v", err)
	}
}

// ready runs the setup phase against the starting position.
func (h *harness) ready(t *testing.T) {
	t.Helper()
	start := stateAfter(t)
	h.board.queue = append([]poll{{st: start}, {st: start}, {st: start}}, h.board.queue...)
	if err := h.o.Begin(context.Background()); err != nil {
		t.Fatalf("begin: %v", err)
	}
	h.step(t)
	if h.o.Session().Phase() != WhiteToMove {
		t.Fatalf("expected white to move after setup, got %s", h.o.Session().Phase())
	}
}

func TestSetupWaitsForStartingPosition(t *testing.T) {
	var empty boardstate.State
	start := stateAfter(t)
	h := newHarness(t, poll{st: empty}, poll{st: empty}, poll{st: start})
	if err := h.o.Begin(context.Background()); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if got := h.board.frames[0][sq(t, "e4")]; got != led.DarkSquare {
		t.Fatalf("e4 should show the dark square color, got %s", got)
	}
	if got := h.board.frames[0][sq(t, "d4")]; got != led.LightSquare {
		t.Fatalf("d4 should show the light square color, got %s", got)
	}

	h.step(t)
	h.step(t)
	if h.o.Session().Phase() != AwaitingSetup {
		t.Fatalf("setup should wait for the full position")
	}
	h.step(t)
	if h.o.Session().Phase() != WhiteToMove {
		t.Fatalf("expected white to move, got %s", h.o.Session().Phase())
	}
	if h.o.Session().Confirmed() != start {
		t.Fatalf("confirmed state not taken from the board")
	}
	f := h.board.lastFrame()
	if f[sq(t, "a1")] != led.WhitePiece || f[sq(t, "a8")] != led.BlackPiece {
		t.Fatalf("setup should show both sides undimmed: a1=%s a8=%s", f[sq(t, "a1")], f[sq(t, "a8")])
	}
	if got := h.rec.events(); len(got) != 2 || got[0] != EventSetup || got[1] != EventReady {
		t.Fatalf("unexpected events %v", got)
	}
}

func TestLiftShowsLegalDestinations(t *testing.T) {
	start := stateAfter(t)
	lifted := start
	lifted[sq(t, "g1")] = boardstate.Empty
	h := newHarness(t, poll{st: lifted}, poll{st: start})
	h.ready(t)

	h.step(t)
	f := h.board.lastFrame()
	if f[sq(t, "g1")] != led.LiftHighlight {
		t.Fatalf("lifted square not highlighted: %s", f[sq(t, "g1")])
	}
	if f[sq(t, "f3")] != led.LegalMove || f[sq(t, "h3")] != led.LegalMove {
		t.Fatalf("knight destinations not highlighted")
	}
	if f[sq(t, "a1")] != led.WhitePiece || f[sq(t, "a8")] != led.BlackDimmed {
		t.Fatalf("turn emphasis wrong: a1=%s a8=%s", f[sq(t, "a1")], f[sq(t, "a8")])
	}

	h.step(t)
	if !h.o.Session().Layer(LayerHighlights).Empty() {
		t.Fatalf("placing the piece back should clear highlights")
	}
	if len(h.rules.Moves()) != 0 {
		t.Fatalf("no press, no move")
	}
}

func TestLiftCaptureUsesCaptureColor(t *testing.T) {
	h := newHarness(t)
	h.ready(t)
	for _, mv := range []string{"e2e4", "d7d5"} {
		if err := h.rules.Apply(mv); err != nil {
			t.Fatalf("apply: %v", err)
		}
	}
	before := stateAfter(t, "e2e4", "d7d5")
	h.o.s.confirmed, h.o.s.liftRef = before, before
	lifted := before
	lifted[sq(t, "e4")] = boardstate.Empty
	h.board.queue = []poll{{st: lifted}}

	h.step(t)
	f := h.board.lastFrame()
	if f[sq(t, "d5")] != led.CaptureMove {
		t.Fatalf("capture destination should use the capture color, got %s", f[sq(t, "d5")])
	}
	if f[sq(t, "e5")] != led.LegalMove {
		t.Fatalf("quiet destination should use the legal-move color, got %s", f[sq(t, "e5")])
	}
}

func TestOpponentLiftNotHighlighted(t *testing.T) {
	start := stateAfter(t)
	lifted := start
	lifted[sq(t, "b8")] = boardstate.Empty
	h := newHarness(t, poll{st: lifted})
	h.ready(t)
	h.step(t)
	if !h.o.Session().Layer(LayerHighlights).Empty() {
		t.Fatalf("lifting the opponent's piece should not highlight")
	}
}

func TestPressCommitsQuietMove(t *testing.T) {
	moved := stateAfter(t, "e2e4")
	h := newHarness(t, poll{st: moved, press: true})
	h.ready(t)

	h.step(t)
	if got := h.rules.Moves(); len(got) != 1 || got[0] != "e2e4" {
		t.Fatalf("expected e2e4, got %v", got)
	}
	if h.o.Session().Phase() != BlackToMove {
		t.Fatalf("expected black to move, got %s", h.o.Session().Phase())
	}
	if h.o.Session().Confirmed() != moved {
		t.Fatalf("confirmed state not advanced")
	}
	last := h.rec.snaps[len(h.rec.snaps)-1]
	if last.Event != EventMove || last.LastMove != "e2e4" || last.Phase != BlackToMove {
		t.Fatalf("unexpected snapshot %+v", last)
	}
}

func TestPressWithoutChangeIsNoop(t *testing.T) {
	start := stateAfter(t)
	h := newHarness(t, poll{st: start, press: true})
	h.ready(t)
	h.step(t)
	if h.o.Session().Correcting() || len(h.rules.Moves()) != 0 {
		t.Fatalf("no-move press should change nothing")
	}
	if h.board.Take() {
		t.Fatalf("press should have been consumed")
	}
}

func TestInvalidEntersCorrectionUntilRestored(t *testing.T) {
	start := stateAfter(t)
	messy := start
	messy[sq(t, "e2")] = boardstate.Empty
	messy[sq(t, "d2")] = boardstate.Empty
	messy[sq(t, "e4")] = boardstate.White

	h := newHarness(t,
		poll{st: messy, press: true},
		poll{st: stateAfter(t, "e2e4"), press: true},
		poll{st: start},
	)
	h.ready(t)

	h.step(t)
	s := h.o.Session()
	if !s.Correcting() {
		t.Fatalf("ambiguous change should enter correction")
	}
	f := h.board.lastFrame()
	for _, i := range start.Occupied() {
		if f[i] != led.ErrorHighlight {
			t.Fatalf("square %s should show the error color", boardstate.SquareName(i))
		}
	}

	// 보정 중에는 추론하지 않는다
	h.step(t)
	if !s.Correcting() || len(h.rules.Moves()) != 0 {
		t.Fatalf("moves must not be inferred while correcting")
	}

	h.step(t)
	if s.Correcting() {
		t.Fatalf("restoring the confirmed board should end correction")
	}
	if !s.Layer(LayerEffects).Empty() {
		t.Fatalf("error layer not cleared")
	}
	want := []EventKind{EventSetup, EventReady, EventInvalid, EventCorrected}
	got := h.rec.events()
	if len(got) != len(want) {
		t.Fatalf("events %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events %v, want %v", got, want)
		}
	}
}

func TestIllegalMoveEntersCorrection(t *testing.T) {
	start := stateAfter(t)
	jump := start
	jump[sq(t, "e2")] = boardstate.Empty
	jump[sq(t, "e5")] = boardstate.White
	h := newHarness(t, poll{st: jump, press: true})
	h.ready(t)

	h.step(t)
	if !h.o.Session().Correcting() {
		t.Fatalf("illegal move should enter correction")
	}
	if len(h.rules.Moves()) != 0 {
		t.Fatalf("illegal move recorded")
	}
	if got := h.rec.snaps[len(h.rec.snaps)-1].Event; got != EventIllegal {
		t.Fatalf("expected illegal event, got %s", got)
	}
	found := false
	for _, k := range h.notes.keys {
		if k == "move.illegal" {
			found = true
		}
	}
	if !found {
		t.Fatalf("operator not told about the illegal move: %v", h.notes.keys)
	}
}

func TestEngineTurnGuidesAndCommits(t *testing.T) {
	afterWhite := stateAfter(t, "e2e4")
	afterBlack := stateAfter(t, "e2e4", "e7e5")
	h := newHarness(t, poll{st: afterWhite, press: true}, poll{st: afterWhite})
	h.moves.moves = []string{"e7e5"}
	h.ready(t)

	h.step(t)
	h.step(t)
	if len(h.board.waits) != 1 || h.board.waits[0] != afterBlack {
		t.Fatalf("engine turn should wait for the target board")
	}
	guided := h.board.guided[0]
	if guided[sq(t, "e7")] != led.LiftHighlight {
		t.Fatalf("e7 should be marked for removal, got %s", guided[sq(t, "e7")])
	}
	if guided[sq(t, "e5")] != led.LegalMove {
		t.Fatalf("e5 should be marked for placement, got %s", guided[sq(t, "e5")])
	}
	if got := h.moves.calls[0]; len(got) != 1 || got[0] != "e2e4" {
		t.Fatalf("move source got history %v", got)
	}
	if got := h.rules.Moves(); len(got) != 2 || got[1] != "e7e5" {
		t.Fatalf("engine move not committed: %v", got)
	}
	s := h.o.Session()
	if s.Phase() != WhiteToMove || s.Confirmed() != afterBlack {
		t.Fatalf("expected white to move on the new board, phase %s", s.Phase())
	}
	if !s.Layer(LayerOpponent).Empty() {
		t.Fatalf("guidance not cleared")
	}
}

func TestRunPlaysToCheckmate(t *testing.T) {
	start := stateAfter(t)
	s1 := stateAfter(t, "f2f3")
	s2 := stateAfter(t, "f2f3", "e7e5")
	s3 := stateAfter(t, "f2f3", "e7e5", "g2g4")
	b := &scriptBoard{queue: []poll{
		{st: start}, {st: start}, {st: start},
		{st: s1, press: true}, {st: s1},
		{st: s2}, {st: s3, press: true}, {st: s3},
	}}
	moves := &scriptMoves{moves: []string{"e7e5", "d8h4"}}
	rec := &recorder{err: errors.New("observer down")}
	o, err := New(Config{
		Board:     b,
		Rules:     rules.New(),
		Moves:     moves,
		Presses:   b,
		Observers: []Observer{rec},
		Now:       func() time.Time { return time.Unix(0, 0) },
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := o.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	last := rec.snaps[len(rec.snaps)-1]
	if last.Event != EventGameOver || last.Phase != Checkmate || last.Outcome != string(rules.BlackWon) {
		t.Fatalf("unexpected final snapshot %+v", last)
	}
	if len(last.Moves) != 4 || last.Moves[3] != "d8h4" {
		t.Fatalf("unexpected moves %v", last.Moves)
	}
	if last.SessionID == "" || last.SessionID != rec.snaps[0].SessionID {
		t.Fatalf("session id should be stable")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := h.o.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestPhaseText(t *testing.T) {
	var p Phase
	if err := p.UnmarshalText([]byte("black_to_move")); err != nil || p != BlackToMove {
		t.Fatalf("round trip failed: %v %s", err, p)
	}
	if err := p.UnmarshalText([]byte("stalemate")); err == nil {
		t.Fatalf("expected unknown phase error")
	}
}
