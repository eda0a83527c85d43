// Package rating holds the pairwise rating math and pair selection policies.
package rating

import "math"

const (
	// MaxKFactor applies to an item that has never been compared
	MaxKFactor = 40.0
	// MinKFactor is the floor reached after enough comparisons
	MinKFactor = 16.0
	// KDecayPerComparison shrinks K as an item accumulates comparisons
	KDecayPerComparison = 2.0
)

// KFactor returns the update weight for an item with n prior comparisons
func KFactor(comparisonCount int) float64 {
	return math.Max(MinKFactor, MaxKFactor-KDecayPerComparison*float64(comparisonCount))
}

// ExpectedScore is the probability that an item rated r beats one rated opponent
func ExpectedScore(r, opponent float64) float64 {
	return 1.0 / (1.0 + math.Pow(10, (opponent-r)/400))
}

// Update returns the new ratings after the winner beat the loser. Each side
// uses its own K-factor, so the exchange is not zero-sum. Ratings are
// unbounded.
func Update(winnerRating, loserRating float64, winnerComparisons, loserComparisons int) (winnerNew, loserNew float64) {
	ew := ExpectedScore(winnerRating, loserRating)
	el := ExpectedScore(loserRating, winnerRating)

	winnerNew = RoundHalfUp(winnerRating + KFactor(winnerComparisons)*(1-ew))
	loserNew = RoundHalfUp(loserRating + KFactor(loserComparisons)*(0-el))
	return winnerNew, loserNew
}

// RoundHalfUp rounds to the nearest integer with halves going toward +Inf,
// so -2.5 becomes -2 rather than math.Round's -3
func RoundHalfUp(x float64) float64 {
	return math.Floor(x + 0.5)
}
