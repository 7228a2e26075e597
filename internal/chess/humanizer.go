package chess

import (
	"errors"
	"math"
	"math/rand"
)

type Candidate struct {
	Move      string
	EvalCP    int
	Principal []string
	Forced    bool
}

// SelectCandidate picks among the first PrimaryChoices candidates by weight.
// A forced candidate in that range is always taken.
func SelectCandidate(p DifficultyPreset, candidates []Candidate, r *rand.Rand) (Candidate, error) {
	if len(candidates) == 0 {
		return Candidate{}, errors.New("no candidates to choose from")
	}
	if err := ValidatePreset(p); err != nil {
		return Candidate{}, err
	}

	limit := min(p.PrimaryChoices, len(candidates))
	index := -1
	for i := 0; i < limit; i++ {
		if candidates[i].Forced {
			index = i
			break
		}
	}

	if index < 0 {
		total := 0.0
		for i := 0; i < limit; i++ {
			total += p.CandidateWeights[i]
		}
		if total == 0 {
			return Candidate{}, errors.New("candidate weights sum to zero")
		}
		threshold := r.Float64() * total
		index = limit - 1
		for i := 0; i < limit; i++ {
			threshold -= p.CandidateWeights[i]
			if threshold <= 0 {
				index = i
				break
			}
		}
	}

	choice := candidates[index]
	if p.EvalNoise > 0 {
		offset := r.Intn(2*p.EvalNoise+1) - p.EvalNoise
		choice.EvalCP = saturatingAdd(choice.EvalCP, offset)
	}
	return choice, nil
}

func saturatingAdd(a, b int) int {
	sum := int64(a) + int64(b)
	if sum > math.MaxInt {
		return math.MaxInt
	}
	if sum < math.MinInt {
		return math.MinInt
	}
	return int(sum)
}
