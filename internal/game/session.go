package game

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/park285/Cheese-Board/internal/boardstate"
	"github.com/park285/Cheese-Board/internal/led"
)

type Phase int

const (
	AwaitingSetup Phase = iota
	WhiteToMove
	BlackToMove
	Checkmate
)

func (p Phase) String() string {
	switch p {
	case AwaitingSetup:
		return "awaiting_setup"
	case WhiteToMove:
		return "white_to_move"
	case BlackToMove:
		return "black_to_move"
	case Checkmate:
		return "checkmate"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *Phase) UnmarshalText(b []byte) error {
	for _, c := range []Phase{AwaitingSetup, WhiteToMove, BlackToMove, Checkmate} {
		if c.String() == string(b) {
			*p = c
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", b)
}

// Terminal reports whether the loop has nothing left to do.
func (p Phase) Terminal() bool { return p == Checkmate }

// Layer names, bottom to top.
const (
	LayerBase       = "base"
	LayerPieces     = "pieces"
	LayerHighlights = "highlights"
	LayerOpponent   = "opponent"
	LayerEffects    = "effects"
)

// Session is the orchestrator-owned game state. Only the goroutine running
// the orchestrator touches it.
type Session struct {
	ID         string
	StartedAt  time.Time
	phase      Phase
	correcting bool
	// confirmed is the last board accepted by the rules; liftRef is the
	// previous cycle's poll for lift detection.
	confirmed boardstate.State
	liftRef   boardstate.State
	live      boardstate.State
	lastMove  string
	outcome   string
	method    string

	base       *led.Layer
	pieces     *led.Layer
	highlights *led.Layer
	opponent   *led.Layer
	effects    *led.Layer
	stack      *led.Stack
}

func newSession(now time.Time) *Session {
	s := &Session{
		ID:         uuid.NewString(),
		StartedAt:  now,
		phase:      AwaitingSetup,
		base:       led.NewLayer(LayerBase),
		pieces:     led.NewLayer(LayerPieces),
		highlights: led.NewLayer(LayerHighlights),
		opponent:   led.NewLayer(LayerOpponent),
		effects:    led.NewLayer(LayerEffects),
	}
	s.stack = led.NewStack(s.base, s.pieces, s.highlights, s.opponent, s.effects)
	return s
}

func (s *Session) Phase() Phase { return s.phase }

func (s *Session) Correcting() bool { return s.correcting }

func (s *Session) Confirmed() boardstate.State { return s.confirmed }

// Frame composes the layer stack.
func (s *Session) Frame() led.Frame { return s.stack.Compose() }

// Layer returns the named layer, or nil.
func (s *Session) Layer(name string) *led.Layer {
	for _, l := range s.stack.Layers() {
		if l.Name() == name {
			return l
		}
	}
	return nil
}

// EventKind labels a published snapshot.
type EventKind string

const (
	EventSetup      EventKind = "setup"
	EventReady      EventKind = "ready"
	EventMove       EventKind = "move"
	EventInvalid    EventKind = "invalid"
	EventIllegal    EventKind = "illegal"
	EventCorrected  EventKind = "corrected"
	EventEngineMove EventKind = "engine_move"
	EventGameOver   EventKind = "game_over"
)

// Snapshot is the read-only view handed to observers.
type Snapshot struct {
	SessionID  string           `json:"session_id"`
	Event      EventKind        `json:"event"`
	Phase      Phase            `json:"phase"`
	Turn       string           `json:"turn"`
	FEN        string           `json:"fen"`
	Moves      []string         `json:"moves"`
	LastMove   string           `json:"last_move,omitempty"`
	Confirmed  boardstate.State `json:"confirmed"`
	Live       boardstate.State `json:"live"`
	Frame      led.Frame        `json:"frame"`
	Correcting bool             `json:"correcting"`
	Outcome    string           `json:"outcome,omitempty"`
	Method     string           `json:"method,omitempty"`
	Opening    string           `json:"opening,omitempty"`
	StartedAt  time.Time        `json:"started_at"`
	At         time.Time        `json:"at"`
}
