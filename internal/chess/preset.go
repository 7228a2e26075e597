package chess

import (
	"fmt"
	"sort"
	"strings"

	"github.com/park285/Cheese-Board/internal/chess/uci"
)

// DifficultyPreset controls how the board's opponent searches and how far it
// strays from the engine's first choice.
type DifficultyPreset struct {
	Name             string
	SkillLevel       int
	Elo              int
	Threads          int
	HashMB           int
	MoveTimeMillis   int
	DepthCap         int
	NodeCap          int
	MultiPV          int
	PrimaryChoices   int
	CandidateWeights []float64
	EvalNoise        int
	// OpeningPreferences steer the first few replies toward a repertoire.
	OpeningPreferences []OpeningPreference
}

// OpeningPreference is a reply line for the side the engine plays. Moves
// alternate with the opponent's moves in WhenMoves.
type OpeningPreference struct {
	Name        string
	WhenMoves   []string
	ReplyMoves  []string
	Probability float64
}

// DefaultPreset plays at full strength with a fixed short think, the way the
// board shipped.
const DefaultPreset = "stockfish"

var blackRepertoire = []OpeningPreference{
	{
		Name:        "sicilian",
		WhenMoves:   []string{"e2e4", "g1f3", "d2d4", "f3d4"},
		ReplyMoves:  []string{"c7c5", "d7d6", "c5d4", "g8f6"},
		Probability: 0.5,
	},
	{
		Name:        "berlin",
		WhenMoves:   []string{"e2e4", "g1f3", "f1b5"},
		ReplyMoves:  []string{"e7e5", "b8c6", "g8f6"},
		Probability: 0.4,
	},
	{
		Name:        "kings-indian",
		WhenMoves:   []string{"d2d4", "c2c4", "b1c3", "e2e4"},
		ReplyMoves:  []string{"g8f6", "g7g6", "f8g7", "d7d6"},
		Probability: 0.5,
	},
	{
		Name:        "grunfeld",
		WhenMoves:   []string{"d2d4", "c2c4", "b1c3"},
		ReplyMoves:  []string{"g8f6", "g7g6", "d7d5"},
		Probability: 0.4,
	},
	{
		Name:        "english-caro",
		WhenMoves:   []string{"c2c4", "g1f3", "d2d4"},
		ReplyMoves:  []string{"c7c6", "d7d5", "g8f6"},
		Probability: 0.7,
	},
}

var presets = map[string]DifficultyPreset{
	"stockfish": {
		Name:             "stockfish",
		SkillLevel:       20,
		Threads:          1,
		HashMB:           16,
		MoveTimeMillis:   100,
		MultiPV:          1,
		PrimaryChoices:   1,
		CandidateWeights: []float64{1.0},
	},
	"casual": {
		Name:               "casual",
		SkillLevel:         3,
		Elo:                1100,
		Threads:            1,
		HashMB:             16,
		MoveTimeMillis:     150,
		DepthCap:           8,
		MultiPV:            3,
		PrimaryChoices:     3,
		CandidateWeights:   []float64{0.6, 0.3, 0.1},
		EvalNoise:          40,
		OpeningPreferences: blackRepertoire,
	},
	"club": {
		Name:               "club",
		SkillLevel:         11,
		Elo:                1600,
		Threads:            2,
		HashMB:             64,
		MoveTimeMillis:     300,
		DepthCap:           16,
		MultiPV:            2,
		PrimaryChoices:     2,
		CandidateWeights:   []float64{0.8, 0.2},
		EvalNoise:          10,
		OpeningPreferences: blackRepertoire,
	},
	"master": {
		Name:               "master",
		SkillLevel:         20,
		Threads:            2,
		HashMB:             128,
		MoveTimeMillis:     1000,
		DepthCap:           30,
		MultiPV:            1,
		PrimaryChoices:     1,
		CandidateWeights:   []float64{1.0},
		OpeningPreferences: blackRepertoire,
	},
}

// GetPreset returns a copy of the named preset.
func GetPreset(name string) (DifficultyPreset, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = DefaultPreset
	}
	p, ok := presets[name]
	if !ok {
		return DifficultyPreset{}, fmt.Errorf("unknown chess preset: %s", name)
	}
	p.CandidateWeights = append([]float64(nil), p.CandidateWeights...)
	return p, nil
}

// PresetNames lists the available presets in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func ValidatePreset(p DifficultyPreset) error {
	if p.PrimaryChoices <= 0 {
		return fmt.Errorf("preset %s: primary choices must be > 0", p.Name)
	}
	if len(p.CandidateWeights) < p.PrimaryChoices {
		return fmt.Errorf("preset %s: %d weights for %d choices", p.Name, len(p.CandidateWeights), p.PrimaryChoices)
	}
	if p.MultiPV < p.PrimaryChoices {
		return fmt.Errorf("preset %s: multipv %d below primary choices %d", p.Name, p.MultiPV, p.PrimaryChoices)
	}
	if p.EvalNoise < 0 {
		return fmt.Errorf("preset %s: eval noise must be >= 0", p.Name)
	}
	if _, err := uci.BuildGoTokens(p.limits()); err != nil {
		return fmt.Errorf("preset %s: %w", p.Name, err)
	}
	return nil
}

func (p DifficultyPreset) options() uci.Options {
	return uci.Options{
		Threads:    p.Threads,
		SkillLevel: p.SkillLevel,
		HashMB:     p.HashMB,
		MultiPV:    p.MultiPV,
		Elo:        p.Elo,
	}
}

func (p DifficultyPreset) limits() uci.Limits {
	return uci.Limits{
		Depth:          p.DepthCap,
		MoveTimeMillis: p.MoveTimeMillis,
		NodeCap:        p.NodeCap,
	}
}
