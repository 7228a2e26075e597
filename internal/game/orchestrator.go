// Package game runs the turn loop that keeps the physical board, the LEDs
// and the rules position in step.
package game

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/park285/Cheese-Board/internal/boardstate"
	"github.com/park285/Cheese-Board/internal/led"
	"github.com/park285/Cheese-Board/internal/rules"
	"go.uber.org/zap"
)

// StartPosition is the position name handed to the move source together
// with the move list.
const StartPosition = "startpos"

// Board is the device side of the loop.
type Board interface {
	PollSensors(ctx context.Context) (boardstate.State, error)
	PushLEDs(ctx context.Context, frame led.Frame) error
	WaitForBoard(ctx context.Context, target boardstate.State) (boardstate.State, error)
}

// Rules answers legality questions about the logical position.
type Rules interface {
	FEN() string
	Moves() []string
	Turn() boardstate.Occupancy
	Occupancy() boardstate.State
	PieceSide(square int) boardstate.Occupancy
	LegalFrom(square int) []rules.Destination
	Apply(uci string) error
	Preview(uci string) (boardstate.State, error)
	Outcome() (rules.Outcome, string)
}

// MoveSource picks the automated side's move.
type MoveSource interface {
	BestMove(ctx context.Context, fen string, moves []string) (string, error)
}

// PressSource yields at most one pending button press per call.
type PressSource interface {
	Take() bool
}

type Observer interface {
	Publish(ctx context.Context, snap Snapshot) error
}

// Notifier prints operator notices by catalog key.
type Notifier interface {
	Notify(key string, data map[string]any)
}

type openingNamer interface {
	Opening() (code, title string)
}

type Config struct {
	Board     Board
	Rules     Rules
	Moves     MoveSource
	Presses   PressSource
	Observers []Observer
	Notifier  Notifier
	Logger    *zap.Logger
	// Idle is slept between cycles that did not change anything; zero
	// polls back to back.
	Idle time.Duration
	Now  func() time.Time
}

type Orchestrator struct {
	board     Board
	rules     Rules
	moves     MoveSource
	presses   PressSource
	observers []Observer
	notifier  Notifier
	logger    *zap.Logger
	idle      time.Duration
	now       func() time.Time

	s *Session
}

func New(cfg Config) (*Orchestrator, error) {
	if cfg.Board == nil || cfg.Rules == nil || cfg.Moves == nil {
		return nil, errors.New("game: board, rules and move source are required")
	}
	o := &Orchestrator{
		board:     cfg.Board,
		rules:     cfg.Rules,
		moves:     cfg.Moves,
		presses:   cfg.Presses,
		observers: cfg.Observers,
		notifier:  cfg.Notifier,
		logger:    cfg.Logger,
		idle:      cfg.Idle,
		now:       cfg.Now,
	}
	if o.presses == nil {
		o.presses = noPresses{}
	}
	if o.notifier == nil {
		o.notifier = nopNotifier{}
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.now == nil {
		o.now = time.Now
	}
	o.s = newSession(o.now())
	return o, nil
}

// Session exposes the live session; callers must not use it concurrently
// with Run.
func (o *Orchestrator) Session() *Session { return o.s }

// Run paints the base layer, waits for the starting setup and plays until
// the game ends or ctx is cancelled.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Info("game_session_start", zap.String("session_id", o.s.ID))
	if err := o.Begin(ctx); err != nil {
		return err
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		done, err := o.Step(ctx)
		if err != nil {
			return err
		}
		if done {
			o.logger.Info("game_session_end",
				zap.String("session_id", o.s.ID),
				zap.String("outcome", o.s.outcome),
				zap.String("method", o.s.method),
			)
			return nil
		}
	}
}

// Begin paints the checkerboard and announces the setup phase.
func (o *Orchestrator) Begin(ctx context.Context) error {
	led.Checkerboard(o.s.base, led.LightSquare, led.DarkSquare)
	if err := o.push(ctx); err != nil {
		return err
	}
	o.notifier.Notify("setup.waiting", nil)
	o.publish(ctx, EventSetup)
	return nil
}

// Step runs one cycle of the current phase. done is true once the game is
// over.
func (o *Orchestrator) Step(ctx context.Context) (done bool, err error) {
	switch o.s.phase {
	case AwaitingSetup:
		err = o.stepSetup(ctx)
	case WhiteToMove:
		err = o.stepHuman(ctx)
	case BlackToMove:
		err = o.stepEngine(ctx)
	}
	if err != nil {
		return false, err
	}
	return o.s.phase.Terminal(), nil
}

func (o *Orchestrator) stepSetup(ctx context.Context) error {
	st, err := o.board.PollSensors(ctx)
	if err != nil {
		return err
	}
	o.s.live = st
	led.PaintOccupancy(o.s.pieces, st, led.WhitePiece, led.BlackPiece)
	if err := o.push(ctx); err != nil {
		return err
	}
	if st != o.rules.Occupancy() {
		o.sleep(ctx)
		return nil
	}

	// 기준 상태는 새로 읽은 값으로 잡는다
	if o.s.confirmed, err = o.board.PollSensors(ctx); err != nil {
		return err
	}
	if o.s.liftRef, err = o.board.PollSensors(ctx); err != nil {
		return err
	}
	o.s.live = o.s.liftRef
	o.s.phase = o.phaseForTurn()
	o.logger.Info("board_setup_complete", zap.String("phase", o.s.phase.String()))
	o.notifier.Notify("setup.ready", nil)
	o.publish(ctx, EventReady)
	return nil
}

func (o *Orchestrator) stepHuman(ctx context.Context) error {
	st, err := o.board.PollSensors(ctx)
	if err != nil {
		return err
	}
	o.s.live = st
	o.paintPieces(st)
	changed := o.trackLifts(st)

	// 한 사이클에 버튼 입력은 최대 한 번만 소비
	pressed := o.presses.Take()
	event := EventKind("")
	switch {
	case o.s.correcting:
		if st == o.s.confirmed {
			o.s.effects.Clear()
			o.s.correcting = false
			o.logger.Info("board_corrected")
			o.notifier.Notify("move.corrected", nil)
			event = EventCorrected
		}
	case pressed:
		event = o.attempt(st)
	}

	if err := o.push(ctx); err != nil {
		return err
	}
	if event != "" {
		o.publish(ctx, event)
	} else if !changed {
		o.sleep(ctx)
	}
	return nil
}

// trackLifts updates the highlight layer from the difference between the
// previous poll and st. It reports whether anything was lifted or placed.
func (o *Orchestrator) trackLifts(st boardstate.State) bool {
	lifted := boardstate.FindLifted(o.s.liftRef, st)
	placed := boardstate.FindPlaced(o.s.liftRef, st)
	o.s.liftRef = st

	if len(placed) > 0 {
		o.s.highlights.Clear()
	}
	turn := o.rules.Turn()
	for _, c := range lifted {
		if o.rules.PieceSide(c.Square) != turn {
			continue
		}
		o.s.highlights.Set(c.Square, led.LiftHighlight)
		for _, d := range o.rules.LegalFrom(c.Square) {
			if d.Capture {
				o.s.highlights.Set(d.To, led.CaptureMove)
			} else {
				o.s.highlights.Set(d.To, led.LegalMove)
			}
		}
	}
	return len(lifted) > 0 || len(placed) > 0
}

// attempt infers the move between the confirmed board and st and applies it.
func (o *Orchestrator) attempt(st boardstate.State) EventKind {
	inf := boardstate.InferMove(o.s.confirmed, st)
	switch inf.Kind {
	case boardstate.NoMove:
		return ""
	case boardstate.Invalid:
		o.logger.Info("move_inference_failed",
			zap.Strings("confirmed", o.s.confirmed.Rows()),
			zap.Strings("live", st.Rows()),
		)
		o.notifier.Notify("move.invalid", nil)
		o.enterCorrection()
		return EventInvalid
	}

	uci := inf.UCI()
	if err := o.rules.Apply(uci); err != nil {
		o.logger.Info("move_rejected", zap.String("move", uci), zap.Error(err))
		o.notifier.Notify("move.illegal", map[string]any{"Move": uci})
		o.enterCorrection()
		return EventIllegal
	}
	o.s.confirmed = st
	o.s.lastMove = uci
	o.s.highlights.Clear()
	o.logger.Info("move_accepted", zap.String("move", uci), zap.String("kind", inf.Kind.String()))
	o.notifier.Notify("move.accepted", map[string]any{"Move": uci, "Kind": inf.Kind.String()})
	if o.checkOutcome() {
		return EventGameOver
	}
	o.s.phase = o.phaseForTurn()
	o.paintPieces(st)
	return EventMove
}

func (o *Orchestrator) enterCorrection() {
	for _, sq := range o.s.confirmed.Occupied() {
		o.s.effects.Set(sq, led.ErrorHighlight)
	}
	o.s.correcting = true
}

func (o *Orchestrator) stepEngine(ctx context.Context) error {
	actual, err := o.board.PollSensors(ctx)
	if err != nil {
		return err
	}
	o.s.live = actual
	o.paintPieces(actual)

	mv, err := o.moves.BestMove(ctx, StartPosition, o.rules.Moves())
	if err != nil {
		return fmt.Errorf("choose engine move: %w", err)
	}
	target, err := o.rules.Preview(mv)
	if err != nil {
		return fmt.Errorf("engine move %s: %w", mv, err)
	}

	paintGuidance(o.s.opponent, target, actual)
	if err := o.push(ctx); err != nil {
		return err
	}
	o.s.lastMove = mv
	o.logger.Info("engine_move", zap.String("move", mv))
	o.notifier.Notify("engine.move", map[string]any{"Move": mv})
	o.publish(ctx, EventEngineMove)

	if _, err := o.board.WaitForBoard(ctx, target); err != nil {
		return fmt.Errorf("wait for engine move %s: %w", mv, err)
	}
	o.s.opponent.Clear()
	if err := o.rules.Apply(mv); err != nil {
		return fmt.Errorf("commit engine move %s: %w", mv, err)
	}

	st, err := o.board.PollSensors(ctx)
	if err != nil {
		return err
	}
	o.s.confirmed, o.s.liftRef, o.s.live = st, st, st
	event := EventMove
	if o.checkOutcome() {
		event = EventGameOver
	} else {
		o.s.phase = o.phaseForTurn()
	}
	o.paintPieces(st)
	if err := o.push(ctx); err != nil {
		return err
	}
	o.publish(ctx, event)
	return nil
}

// paintGuidance marks squares that must receive a piece with the legal-move
// color and squares that must be cleared with the lift color.
func paintGuidance(l *led.Layer, target, actual boardstate.State) {
	l.Clear()
	for sq := range target {
		if target[sq] == actual[sq] {
			continue
		}
		if target[sq].Occupied() {
			l.Set(sq, led.LegalMove)
		} else {
			l.Set(sq, led.LiftHighlight)
		}
	}
}

func (o *Orchestrator) checkOutcome() bool {
	res, method := o.rules.Outcome()
	if res == rules.Ongoing {
		return false
	}
	o.s.phase = Checkmate
	o.s.outcome = string(res)
	o.s.method = method
	o.logger.Info("game_over", zap.String("outcome", o.s.outcome), zap.String("method", method))
	o.notifier.Notify("game.over", map[string]any{"Outcome": o.s.outcome, "Method": method})
	return true
}

func (o *Orchestrator) phaseForTurn() Phase {
	if o.rules.Turn() == boardstate.Black {
		return BlackToMove
	}
	return WhiteToMove
}

// paintPieces shows the side to move at full brightness and the other side
// dimmed.
func (o *Orchestrator) paintPieces(st boardstate.State) {
	white, black := led.WhitePiece, led.BlackDimmed
	if o.rules.Turn() == boardstate.Black {
		white, black = led.WhiteDimmed, led.BlackPiece
	}
	led.PaintOccupancy(o.s.pieces, st, white, black)
}

func (o *Orchestrator) push(ctx context.Context) error {
	if err := o.board.PushLEDs(ctx, o.s.Frame()); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	return nil
}

func (o *Orchestrator) sleep(ctx context.Context) {
	if o.idle <= 0 {
		return
	}
	t := time.NewTimer(o.idle)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Snapshot captures the session for observers.
func (o *Orchestrator) Snapshot(event EventKind) Snapshot {
	snap := Snapshot{
		SessionID:  o.s.ID,
		Event:      event,
		Phase:      o.s.phase,
		Turn:       o.rules.Turn().String(),
		FEN:        o.rules.FEN(),
		Moves:      o.rules.Moves(),
		LastMove:   o.s.lastMove,
		Confirmed:  o.s.confirmed,
		Live:       o.s.live,
		Frame:      o.s.Frame(),
		Correcting: o.s.correcting,
		Outcome:    o.s.outcome,
		Method:     o.s.method,
		StartedAt:  o.s.StartedAt,
		At:         o.now(),
	}
	if n, ok := o.rules.(openingNamer); ok {
		if code, title := n.Opening(); code != "" {
			snap.Opening = code + " " + title
		}
	}
	return snap
}

func (o *Orchestrator) publish(ctx context.Context, event EventKind) {
	if len(o.observers) == 0 {
		return
	}
	snap := o.Snapshot(event)
	for _, obs := range o.observers {
		if err := obs.Publish(ctx, snap); err != nil {
			o.logger.Warn("observer_publish_failed", zap.String("event", string(event)), zap.Error(err))
		}
	}
}

type noPresses struct{}

func (noPresses) Take() bool { return false }

type nopNotifier struct{}

func (nopNotifier) Notify(string, map[string]any) {}
