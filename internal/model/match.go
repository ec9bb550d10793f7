package model

// MatchStage identifies which stage of the matching pipeline produced a
// scored candidate.
type MatchStage string

// Match stage constants.
const (
	StageExact  MatchStage = "EXACT"
	StagePrefix MatchStage = "PREFIX"
	StageFuzzy  MatchStage = "FUZZY"
)

// ScoredProduct is a candidate product with its match score (0-100) and the
// stage that produced it.
type ScoredProduct struct {
	Product ProductIdentity
	Stage   MatchStage
	Score   float64
	// StrengthMatch records that the candidate's normalized strength equaled
	// the queried strength. The score bonus is capped at 100, so the flag
	// also serves as a tie-breaker between saturated scores.
	StrengthMatch bool
}

// MatchResult holds the best product match for a query plus ranked alternates.
// Results are ephemeral - constructed per call and never persisted.
type MatchResult struct {
	Best           ScoredProduct
	Alternates     []ScoredProduct
	Classification Classification
	LowConfidence  bool
}

// Confidence returns the score of the best match.
func (m *MatchResult) Confidence() float64 {
	return m.Best.Score
}
