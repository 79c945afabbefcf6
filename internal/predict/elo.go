// Package predict supplies the rating-delta algorithm run behind the
// store's fingerprint gate.
package predict

import "math"

// Predictor computes the predicted rating change for one user given their
// final rank, attended-contest count, pre-contest rating, and the field's
// pre-contest ratings ordered by final rank.
type Predictor interface {
	Predict(rank, acc int, oldRating float64, ratings []float64) float64
}

// EloPredictor derives deltas from an Elo expected-rank model: the user's
// expected rank against the field is combined with the actual rank through a
// geometric mean, the rating that would produce that rank is found by
// bisection, and the move toward it is damped by the user's attendance
// count.
type EloPredictor struct {
	// Base is the rating gap giving 10-to-1 winning odds.
	Base float64
	// Damping is the per-attendance decay applied to the rating move.
	Damping float64
}

func NewEloPredictor() *EloPredictor {
	return &EloPredictor{Base: 400, Damping: 0.82}
}

// winProb is the probability that a player rated a beats one rated b.
func (e *EloPredictor) winProb(a, b float64) float64 {
	return 1 / (1 + math.Pow(10, (b-a)/e.Base))
}

// expectedRank is the rank a player rated r would be expected to take
// against the field.
func (e *EloPredictor) expectedRank(r float64, ratings []float64) float64 {
	rank := 0.5
	for _, other := range ratings {
		rank += e.winProb(other, r)
	}
	return rank
}

// ratingForRank bisects for the rating whose expected rank matches target.
// expectedRank decreases monotonically in the rating, so plain bisection on
// a generous bracket converges.
func (e *EloPredictor) ratingForRank(target float64, ratings []float64) float64 {
	lo, hi := 0.0, 5000.0
	for i := 0; i < 40; i++ {
		mid := (lo + hi) / 2
		if e.expectedRank(mid, ratings) > target {
			lo = mid
		} else {
			hi = mid
		}
	}
	return (lo + hi) / 2
}

func (e *EloPredictor) Predict(rank, acc int, oldRating float64, ratings []float64) float64 {
	if len(ratings) == 0 || rank <= 0 {
		return 0
	}

	expRank := e.expectedRank(oldRating, ratings)
	meanRank := math.Sqrt(expRank * float64(rank))
	target := e.ratingForRank(meanRank, ratings)

	weight := 1.0
	decay := 1.0
	for i := 0; i < acc; i++ {
		decay *= e.Damping
		weight += decay
	}
	return (target - oldRating) / weight
}
