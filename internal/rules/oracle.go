// Package rules adapts github.com/corentings/chess/v2 to the occupancy
// model used by the board.
package rules

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	nchess "github.com/corentings/chess/v2"
	"github.com/corentings/chess/v2/opening"

	"github.com/park285/Cheese-Board/internal/boardstate"
)

var ErrIllegalMove = errors.New("illegal move")

// Outcome summarises the game result.
type Outcome string

const (
	Ongoing  Outcome = "*"
	WhiteWon Outcome = "1-0"
	BlackWon Outcome = "0-1"
	Draw     Outcome = "1/2-1/2"
)

// Destination is a legal target square for a lifted piece.
type Destination struct {
	To      int
	Capture bool
}

// Oracle owns the logical game. Methods are safe for concurrent use so
// status readers can query it while the game loop mutates it.
type Oracle struct {
	mu    sync.RWMutex
	game  *nchess.Game
	moves []string
}

// New starts a game from the standard position.
func New() *Oracle {
	return &Oracle{game: nchess.NewGame()}
}

// FromFEN starts a game from fen.
func FromFEN(fen string) (*Oracle, error) {
	opt, err := nchess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("parse fen %q: %w", fen, err)
	}
	return &Oracle{game: nchess.NewGame(opt)}, nil
}

func (o *Oracle) FEN() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.game.FEN()
}

// Moves returns the applied moves in UCI notation.
func (o *Oracle) Moves() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return append([]string(nil), o.moves...)
}

// Turn returns the side to move as an occupancy code.
func (o *Oracle) Turn() boardstate.Occupancy {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return sideOf(o.game.Position().Turn())
}

// Occupancy projects the current position onto the sensor model.
func (o *Oracle) Occupancy() boardstate.State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return project(o.game.Position())
}

// PieceSide returns the side of the piece on square, or Empty.
func (o *Oracle) PieceSide(square int) boardstate.Occupancy {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return sideOf(o.game.Position().Board().Piece(toSquare(square)).Color())
}

// LegalFrom lists legal destinations of the piece on square. Promotions
// collapse to one destination per target square.
func (o *Oracle) LegalFrom(square int) []Destination {
	o.mu.RLock()
	defer o.mu.RUnlock()

	from := toSquare(square)
	board := o.game.Position().Board()
	seen := make(map[int]bool)
	var out []Destination
	for _, mv := range o.game.ValidMoves() {
		if mv.S1() != from {
			continue
		}
		to := int(mv.S2())
		if seen[to] {
			continue
		}
		seen[to] = true
		capture := board.Piece(mv.S2()) != nchess.NoPiece || mv.HasTag(nchess.EnPassant)
		out = append(out, Destination{To: to, Capture: capture})
	}
	return out
}

// Apply plays a UCI move. A pawn reaching the last rank without a
// promotion suffix is promoted to a queen.
func (o *Oracle) Apply(uci string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	played, err := o.push(o.game, uci)
	if err != nil {
		return err
	}
	o.moves = append(o.moves, played)
	return nil
}

// Preview returns the occupancy after uci without changing the game.
func (o *Oracle) Preview(uci string) (boardstate.State, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	clone := o.game.Clone()
	if _, err := o.push(clone, uci); err != nil {
		return boardstate.State{}, err
	}
	return project(clone.Position()), nil
}

func (o *Oracle) push(g *nchess.Game, uci string) (string, error) {
	uci = strings.ToLower(strings.TrimSpace(uci))
	if len(uci) < 4 {
		return "", fmt.Errorf("%w: %q", ErrIllegalMove, uci)
	}
	err := g.PushNotationMove(uci, nchess.UCINotation{}, nil)
	if err == nil {
		return uci, nil
	}
	if len(uci) == 4 {
		promo := uci + "q"
		if perr := g.PushNotationMove(promo, nchess.UCINotation{}, nil); perr == nil {
			return promo, nil
		}
	}
	return "", fmt.Errorf("%w: %s: %v", ErrIllegalMove, uci, err)
}

// Outcome reports the game result and how it was reached.
func (o *Oracle) Outcome() (Outcome, string) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	switch o.game.Outcome() {
	case nchess.WhiteWon:
		return WhiteWon, fmt.Sprint(o.game.Method())
	case nchess.BlackWon:
		return BlackWon, fmt.Sprint(o.game.Method())
	case nchess.Draw:
		return Draw, fmt.Sprint(o.game.Method())
	default:
		return Ongoing, ""
	}
}

// IsCheckmate reports whether the side to move has been mated.
func (o *Oracle) IsCheckmate() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.game.Method() == nchess.Checkmate
}

var (
	ecoOnce sync.Once
	ecoBook *opening.BookECO
)

// Opening names the ECO opening the game has followed so far.
func (o *Oracle) Opening() (code, title string) {
	ecoOnce.Do(func() { ecoBook = opening.NewBookECO() })
	if ecoBook == nil {
		return "", ""
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	if eco := ecoBook.Find(o.game.Moves()); eco != nil {
		return eco.Code(), eco.Title()
	}
	return "", ""
}

func project(pos *nchess.Position) boardstate.State {
	var st boardstate.State
	board := pos.Board()
	for sq := 0; sq < boardstate.Squares; sq++ {
		p := board.Piece(toSquare(sq))
		if p == nchess.NoPiece {
			continue
		}
		st[sq] = sideOf(p.Color())
	}
	return st
}

func toSquare(sq int) nchess.Square {
	return nchess.NewSquare(nchess.File(sq%8), nchess.Rank(sq/8))
}

func sideOf(c nchess.Color) boardstate.Occupancy {
	switch c {
	case nchess.White:
		return boardstate.White
	case nchess.Black:
		return boardstate.Black
	default:
		return boardstate.Empty
	}
}
