package fusion

import (
	"github.com/MeKo-Tech/readout/internal/recognizer"
	"github.com/MeKo-Tech/readout/internal/regions"
	"github.com/MeKo-Tech/readout/internal/score"
)

// bestConstrained picks the best candidate among those passing the
// expectation's hard constraints. With no expectation it degrades to the
// unconstrained pick. Returns nil when candidates exist but none is
// eligible, so the caller reports empty instead of a known-bad reading.
func bestConstrained(cands []recognizer.Candidate, filterNumeric bool, exp *regions.Expectation, prev *float64) *recognizer.Candidate {
	if exp == nil {
		return best(cands, filterNumeric, exp, prev)
	}

	valid := make([]int, 0, len(cands))
	for i := range cands {
		if score.PassesHardConstraints(cands[i].Text, exp, prev) {
			valid = append(valid, i)
		}
	}
	if len(valid) == 0 {
		return nil
	}

	pool := valid
	if filterNumeric {
		numeric := make([]int, 0, len(valid))
		for _, i := range valid {
			if _, ok := score.ParseNumber(cands[i].Text); ok {
				numeric = append(numeric, i)
			}
		}
		if len(numeric) > 0 {
			pool = numeric
		}
	}

	return &cands[pickMax(cands, pool, exp, prev)]
}

// best picks the highest-scoring candidate with no hard filtering. When
// filterNumeric is set, numeric-parseable candidates always beat
// non-parseable ones; within a pool the highest confidence x validation
// wins.
func best(cands []recognizer.Candidate, filterNumeric bool, exp *regions.Expectation, prev *float64) *recognizer.Candidate {
	if len(cands) == 0 {
		return nil
	}

	if filterNumeric {
		numeric := make([]int, 0, len(cands))
		for i := range cands {
			if _, ok := score.ParseNumber(cands[i].Text); ok {
				numeric = append(numeric, i)
			}
		}
		if len(numeric) > 0 {
			return &cands[pickMax(cands, numeric, exp, prev)]
		}
	}

	pool := make([]int, len(cands))
	for i := range pool {
		pool[i] = i
	}
	return &cands[pickMax(cands, pool, exp, prev)]
}

// pickMax returns the pool index whose candidate maximizes
// confidence x validation. Ties go to the earlier candidate, keeping the
// selection stable for a fixed backend order.
func pickMax(cands []recognizer.Candidate, pool []int, exp *regions.Expectation, prev *float64) int {
	bestIdx := pool[0]
	bestScore := effectiveScore(cands[bestIdx], exp, prev)
	for _, i := range pool[1:] {
		if s := effectiveScore(cands[i], exp, prev); s > bestScore {
			bestIdx, bestScore = i, s
		}
	}
	return bestIdx
}

func effectiveScore(c recognizer.Candidate, exp *regions.Expectation, prev *float64) float64 {
	return c.Confidence * score.Validation(c.Text, exp, prev)
}
