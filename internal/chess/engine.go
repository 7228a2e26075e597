// Package chess picks the board opponent's moves with a UCI engine, an
// optional polyglot book and a small opening repertoire.
package chess

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/park285/Cheese-Board/internal/chess/openingbook"
	"github.com/park285/Cheese-Board/internal/chess/uci"
)

const defaultOpeningMaxPly = 12

var ErrEngineUnavailable = errors.New("engine returned no move")

type EngineConfig struct {
	BinaryPath string
	PresetName string
	// PoolSize is the number of warm engine processes kept around.
	PoolSize int
	// Factory replaces process spawning, see uci.PoolConfig.
	Factory     uci.Factory
	Book        *openingbook.Book
	OpeningPlys int
	Seed        int64
}

type Engine struct {
	pool   *uci.Pool
	preset DifficultyPreset
	book   *openingbook.Book
	maxPly int
	logger *zap.Logger
	randMu sync.Mutex
	rand   *rand.Rand
}

func NewEngine(cfg EngineConfig, logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	preset, err := GetPreset(cfg.PresetName)
	if err != nil {
		return nil, err
	}
	if err := ValidatePreset(preset); err != nil {
		return nil, err
	}
	pool, err := uci.NewPool(uci.PoolConfig{
		BinaryPath: cfg.BinaryPath,
		Capacity:   cfg.PoolSize,
		Options:    preset.options(),
		Factory:    cfg.Factory,
	}, logger)
	if err != nil {
		return nil, err
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	maxPly := cfg.OpeningPlys
	if maxPly <= 0 {
		maxPly = defaultOpeningMaxPly
	}
	return &Engine{
		pool:   pool,
		preset: preset,
		book:   cfg.Book,
		maxPly: maxPly,
		logger: logger,
		rand:   rand.New(rand.NewSource(seed)),
	}, nil
}

func (e *Engine) Preset() DifficultyPreset { return e.preset }

// Choice explains where a move came from.
type Choice struct {
	Move       string
	Source     string
	EvalCP     int
	Candidates []Candidate
	Duration   time.Duration
}

// BestMove returns the reply for the position reached from fen by moves.
func (e *Engine) BestMove(ctx context.Context, fen string, moves []string) (string, error) {
	c, err := e.Choose(ctx, fen, moves)
	if err != nil {
		return "", err
	}
	return c.Move, nil
}

// Choose tries the repertoire, then the book, then a search.
func (e *Engine) Choose(ctx context.Context, fen string, moves []string) (Choice, error) {
	start := time.Now()
	r := e.random()

	if len(moves) < e.maxPly {
		if mv, name, ok := repertoireReply(e.preset.OpeningPreferences, moves, r); ok {
			if _, err := openingbook.Replay(fen, append(append([]string(nil), moves...), mv)); err == nil {
				e.logger.Debug("engine_repertoire", zap.String("line", name), zap.String("move", mv))
				return Choice{Move: mv, Source: "repertoire", Duration: time.Since(start)}, nil
			}
		}
		res, err := e.book.Lookup(fen, moves, r)
		if err != nil {
			e.logger.Warn("engine_book_lookup_failed", zap.Error(err))
		} else if res.Move != "" {
			return Choice{Move: res.Move, Source: "book", Duration: time.Since(start)}, nil
		}
	}

	session, err := e.pool.Acquire(ctx)
	if err != nil {
		return Choice{}, fmt.Errorf("acquire engine: %w", err)
	}
	var releaseErr error
	defer func() { e.pool.Release(session, releaseErr) }()

	resp, err := session.Search(ctx, uci.SearchRequest{FEN: fen, Moves: moves, Limits: e.preset.limits()})
	if err != nil {
		releaseErr = err
		return Choice{}, err
	}

	candidates := make([]Candidate, 0, len(resp.Candidates))
	for _, c := range resp.Candidates {
		candidates = append(candidates, Candidate{Move: c.Move, EvalCP: c.EvalCP, Principal: c.Principal})
	}
	if len(candidates) == 0 {
		if resp.BestMove == "" {
			return Choice{}, ErrEngineUnavailable
		}
		candidates = append(candidates, Candidate{Move: resp.BestMove, Forced: true})
	}

	chosen, err := SelectCandidate(e.preset, candidates, r)
	if err != nil {
		return Choice{}, err
	}
	return Choice{
		Move:       chosen.Move,
		Source:     "engine",
		EvalCP:     chosen.EvalCP,
		Candidates: candidates,
		Duration:   time.Since(start),
	}, nil
}

func (e *Engine) random() *rand.Rand {
	e.randMu.Lock()
	seed := e.rand.Int63()
	e.randMu.Unlock()
	return rand.New(rand.NewSource(seed))
}

func (e *Engine) Close() error {
	if e.pool == nil {
		return nil
	}
	return e.pool.Close()
}

// repertoireReply finds preferences whose line matches the game so far and
// rolls against their probabilities. Probabilities summing below 1 leave
// room for no preference at all.
func repertoireReply(prefs []OpeningPreference, moves []string, r *rand.Rand) (string, string, bool) {
	if len(moves)%2 == 0 || len(prefs) == 0 || r == nil {
		return "", "", false
	}
	theirs, ours := splitMoves(moves)

	type match struct {
		name string
		move string
		prob float64
	}
	var (
		matches []match
		total   float64
	)
	for _, p := range prefs {
		if len(ours) >= len(p.ReplyMoves) || len(theirs) > len(p.WhenMoves) {
			continue
		}
		if !prefixMatches(theirs, p.WhenMoves) || !prefixMatches(ours, p.ReplyMoves) {
			continue
		}
		matches = append(matches, match{name: p.Name, move: p.ReplyMoves[len(ours)], prob: p.Probability})
		total += p.Probability
	}
	if len(matches) == 0 {
		return "", "", false
	}

	roll := r.Float64() * max(total, 1)
	for _, m := range matches {
		roll -= m.prob
		if roll < 0 {
			return m.move, m.name, true
		}
	}
	return "", "", false
}

func splitMoves(moves []string) (first, second []string) {
	for i, mv := range moves {
		if i%2 == 0 {
			first = append(first, mv)
		} else {
			second = append(second, mv)
		}
	}
	return first, second
}

func prefixMatches(history, line []string) bool {
	if len(history) > len(line) {
		return false
	}
	for i := range history {
		if !strings.EqualFold(strings.TrimSpace(history[i]), line[i]) {
			return false
		}
	}
	return true
}
