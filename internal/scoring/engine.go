// Package scoring turns a set of Likert responses into a toxicity percentage,
// a tier and advice text. Everything here is pure: no I/O, no shared state.
package scoring

import "math"

// Likert scale bounds. Neutral maps to zero on the centred scale.
const (
	LikertMin     = 1
	LikertMax     = 5
	LikertNeutral = 3
)

// Question is the minimal view of a question needed for scoring.
type Question struct {
	ID     string  `json:"id"`
	Text   string  `json:"text"`
	Weight float64 `json:"weight"` // >0 toxic statement, <0 healthy statement
	Order  int     `json:"order"`
}

// Responses maps question id -> Likert response (1..5).
type Responses map[string]int

// Result is the outcome of scoring one response set.
type Result struct {
	RawScore float64 `json:"raw_score"`
	Percent  int     `json:"percent"`
	Tier     Tier    `json:"tier"`
	Advice   string  `json:"advice"`
}

// Compute scores responses against questions. It fails with a
// *MissingAnswerError naming the first question (in slice order) that has no
// response. Response values are not range-checked here; the boundary that
// builds Responses is expected to do that.
func Compute(responses Responses, questions []Question) (Result, error) {
	var raw, minRaw, maxRaw float64
	for _, q := range questions {
		r, ok := responses[q.ID]
		if !ok {
			return Result{}, &MissingAnswerError{QuestionID: q.ID}
		}
		mapped := float64(r - LikertNeutral)
		raw += mapped * q.Weight

		span := float64(LikertMax-LikertNeutral) * math.Abs(q.Weight)
		minRaw -= span
		maxRaw += span
	}

	percent := normalize(raw, minRaw, maxRaw)
	tier := TierFor(percent)
	return Result{
		RawScore: raw,
		Percent:  percent,
		Tier:     tier,
		Advice:   AdviceFor(tier),
	}, nil
}

// normalize maps raw onto 0..100 relative to the achievable range. A zero-width
// range (all weights zero, or no questions) is defined as 0.
func normalize(raw, minRaw, maxRaw float64) int {
	width := maxRaw - minRaw
	if width == 0 || math.IsNaN(width) || math.IsInf(width, 0) {
		return 0
	}
	p := math.Round((raw - minRaw) / width * 100)
	switch {
	case math.IsNaN(p), p < 0:
		return 0
	case p > 100:
		return 100
	}
	return int(p)
}
