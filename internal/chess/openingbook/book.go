// Package openingbook answers opening moves from a polyglot book.
package openingbook

import (
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	chesslib "github.com/corentings/chess/v2"
)

type Result struct {
	Move   string
	Weight uint16
}

// Book wraps a polyglot book. A nil *Book answers nothing.
type Book struct {
	book      *chesslib.PolyglotBook
	minWeight uint16
}

// Load reads a polyglot book from r.
func Load(r io.Reader, minWeight uint16) (*Book, error) {
	b, err := chesslib.LoadFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("load polyglot book: %w", err)
	}
	return &Book{book: b, minWeight: minWeight}, nil
}

// Open loads the book at path. An empty path resolves the default
// locations and returns a nil book when none exists.
func Open(path string, minWeight uint16) (*Book, error) {
	resolved, err := ResolveBookPath(path)
	if err != nil || resolved == "" {
		return nil, err
	}
	f, err := os.Open(resolved)
	if err != nil {
		return nil, fmt.Errorf("open polyglot book %q: %w", resolved, err)
	}
	defer f.Close()
	return Load(f, minWeight)
}

// Lookup returns a weighted random book move for the position reached by
// playing moves from fen. An empty Result means the book has no entry.
func (b *Book) Lookup(fen string, moves []string, r *rand.Rand) (Result, error) {
	if b == nil || b.book == nil {
		return Result{}, nil
	}
	game, err := Replay(fen, moves)
	if err != nil {
		return Result{}, err
	}

	hashStr, err := chesslib.NewZobristHasher().HashPosition(game.FEN())
	if err != nil {
		return Result{}, fmt.Errorf("compute polyglot hash: %w", err)
	}
	entries := b.book.FindMoves(chesslib.ZobristHashToUint64(hashStr))

	var (
		candidates []Result
		total      int
	)
	for _, entry := range entries {
		if entry.Weight < b.minWeight {
			continue
		}
		move := chesslib.DecodeMove(entry.Move).ToMove().String()
		candidates = append(candidates, Result{Move: move, Weight: entry.Weight})
		total += int(entry.Weight)
	}
	if len(candidates) == 0 {
		return Result{}, nil
	}

	chosen := candidates[0]
	if r != nil && total > 0 {
		roll := r.Intn(total)
		for _, c := range candidates {
			roll -= int(c.Weight)
			if roll < 0 {
				chosen = c
				break
			}
		}
	}

	if err := game.PushNotationMove(chosen.Move, chesslib.UCINotation{}, nil); err != nil {
		return Result{}, fmt.Errorf("book move %q invalid for position: %w", chosen.Move, err)
	}
	return chosen, nil
}

// Replay builds a game from fen ("" or "startpos" for the standard
// position) and plays moves in UCI notation.
func Replay(fen string, moves []string) (*chesslib.Game, error) {
	var game *chesslib.Game
	if strings.TrimSpace(fen) == "" || fen == "startpos" {
		game = chesslib.NewGame()
	} else {
		option, err := chesslib.FEN(fen)
		if err != nil {
			return nil, fmt.Errorf("parse fen %q: %w", fen, err)
		}
		game = chesslib.NewGame(option)
	}
	for _, mv := range moves {
		if err := game.PushNotationMove(mv, chesslib.UCINotation{}, nil); err != nil {
			return nil, fmt.Errorf("apply move %q: %w", mv, err)
		}
	}
	return game, nil
}

// ResolveBookPath checks path, then CHESS_POLYGLOT_BOOK_PATH, then the
// bundled resource location.
func ResolveBookPath(path string) (string, error) {
	if p := strings.TrimSpace(path); p != "" {
		if !exists(p) {
			return "", fmt.Errorf("polyglot book not found: %s", p)
		}
		return p, nil
	}
	if envPath := strings.TrimSpace(os.Getenv("CHESS_POLYGLOT_BOOK_PATH")); envPath != "" {
		if !exists(envPath) {
			return "", fmt.Errorf("env CHESS_POLYGLOT_BOOK_PATH points to missing file: %s", envPath)
		}
		return envPath, nil
	}
	for _, candidate := range []string{
		filepath.Join("resources", "opening", "book.bin"),
		filepath.Join("resources", "opening", "Cerebellum3Merge.bin"),
	} {
		if exists(candidate) {
			return candidate, nil
		}
	}
	return "", nil
}

func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
