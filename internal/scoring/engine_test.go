package scoring

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fourQuestions() []Question {
	return []Question{
		{ID: "q1", Text: "I feel respected when expressing my opinions.", Weight: -2, Order: 1},
		{ID: "q2", Text: "We often insult or belittle each other.", Weight: 2, Order: 2},
		{ID: "q3", Text: "I am afraid of my partner's reactions.", Weight: 2, Order: 3},
		{ID: "q4", Text: "We communicate openly and honestly.", Weight: -2, Order: 4},
	}
}

func TestCompute_Scenarios(t *testing.T) {
	tests := []struct {
		name        string
		responses   Responses
		wantPercent int
		wantTier    Tier
		wantRaw     float64
	}{
		{"all healthy", Responses{"q1": 5, "q2": 1, "q3": 1, "q4": 5}, 0, TierHealthy, -16},
		{"all toxic", Responses{"q1": 1, "q2": 5, "q3": 5, "q4": 1}, 100, TierToxic, 16},
		{"all neutral", Responses{"q1": 3, "q2": 3, "q3": 3, "q4": 3}, 50, TierConcerning, 0},
		{"mixed", Responses{"q1": 4, "q2": 2, "q3": 4, "q4": 4}, 38, TierManageable, -4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Compute(tt.responses, fourQuestions())
			require.NoError(t, err)
			assert.Equal(t, tt.wantPercent, res.Percent)
			assert.Equal(t, tt.wantTier, res.Tier)
			assert.Equal(t, tt.wantRaw, res.RawScore)
			assert.Equal(t, AdviceFor(tt.wantTier), res.Advice)
		})
	}
}

func TestCompute_AdviceText(t *testing.T) {
	res, err := Compute(Responses{"q1": 5, "q2": 1, "q3": 1, "q4": 5}, fourQuestions())
	require.NoError(t, err)
	assert.Contains(t, res.Advice, "Healthy dynamics")

	res, err = Compute(Responses{"q1": 1, "q2": 5, "q3": 5, "q4": 1}, fourQuestions())
	require.NoError(t, err)
	assert.Contains(t, res.Advice, "High toxicity detected")
}

func TestCompute_MissingAnswer(t *testing.T) {
	_, err := Compute(Responses{"q1": 5, "q2": 1, "q4": 5}, fourQuestions())
	require.Error(t, err)

	var missing *MissingAnswerError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "q3", missing.QuestionID)
	assert.True(t, errors.Is(err, ErrMissingAnswer))
	assert.Equal(t, "missing answer for question q3", err.Error())
}

func TestCompute_MissingAnswerReportsFirstInOrder(t *testing.T) {
	_, err := Compute(Responses{"q1": 5, "q2": 1}, fourQuestions())
	var missing *MissingAnswerError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "q3", missing.QuestionID)

	_, err = Compute(Responses{}, fourQuestions())
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "q1", missing.QuestionID)
}

func TestCompute_IgnoresUnknownResponseKeys(t *testing.T) {
	res, err := Compute(Responses{"q1": 3, "q2": 3, "q3": 3, "q4": 3, "extra": 5}, fourQuestions())
	require.NoError(t, err)
	assert.Equal(t, 50, res.Percent)
}

func TestCompute_Pure(t *testing.T) {
	resp := Responses{"q1": 2, "q2": 4, "q3": 3, "q4": 1}
	first, err := Compute(resp, fourQuestions())
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := Compute(resp, fourQuestions())
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestCompute_OrderDoesNotAffectResult(t *testing.T) {
	qs := fourQuestions()
	reversed := []Question{qs[3], qs[2], qs[1], qs[0]}
	resp := Responses{"q1": 2, "q2": 4, "q3": 5, "q4": 1}

	a, err := Compute(resp, qs)
	require.NoError(t, err)
	b, err := Compute(resp, reversed)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestCompute_DegenerateWeights(t *testing.T) {
	qs := []Question{{ID: "a", Weight: 0}, {ID: "b", Weight: 0}}
	res, err := Compute(Responses{"a": 5, "b": 1}, qs)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Percent)
	assert.Equal(t, TierHealthy, res.Tier)
	assert.Equal(t, 0.0, res.RawScore)
}

func TestCompute_NoQuestionsIsDegenerate(t *testing.T) {
	res, err := Compute(Responses{"a": 5}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Percent)
	assert.Equal(t, TierHealthy, res.Tier)
}

func TestCompute_OutOfRangeResponsesAreClamped(t *testing.T) {
	// 9 on a toxic question pushes raw beyond maxRaw; the formula extends
	// linearly and only the percent is clamped.
	qs := []Question{{ID: "a", Weight: 1}, {ID: "b", Weight: -1}}
	res, err := Compute(Responses{"a": 9, "b": 1}, qs)
	require.NoError(t, err)
	assert.Equal(t, 8.0, res.RawScore)
	assert.Equal(t, 100, res.Percent)

	res, err = Compute(Responses{"a": -5, "b": 5}, qs)
	require.NoError(t, err)
	assert.Equal(t, -10.0, res.RawScore)
	assert.Equal(t, 0, res.Percent)
}

func TestCompute_Monotonic(t *testing.T) {
	qs := []Question{
		{ID: "a", Weight: -1.5},
		{ID: "b", Weight: 0.5},
		{ID: "c", Weight: 2},
		{ID: "d", Weight: -2},
	}
	ids := []string{"a", "b", "c", "d"}

	var walk func(i int, resp Responses)
	walk = func(i int, resp Responses) {
		if i < len(ids) {
			for v := LikertMin; v <= LikertMax; v++ {
				resp[ids[i]] = v
				walk(i+1, resp)
			}
			return
		}
		base, err := Compute(resp, qs)
		require.NoError(t, err)
		require.GreaterOrEqual(t, base.Percent, 0)
		require.LessOrEqual(t, base.Percent, 100)

		for _, q := range qs {
			if resp[q.ID] == LikertMax {
				continue
			}
			bumped := Responses{}
			for k, v := range resp {
				bumped[k] = v
			}
			bumped[q.ID]++
			next, err := Compute(bumped, qs)
			require.NoError(t, err)
			if q.Weight > 0 {
				require.GreaterOrEqual(t, next.Percent, base.Percent, "question %s from %v", q.ID, resp)
			} else {
				require.LessOrEqual(t, next.Percent, base.Percent, "question %s from %v", q.ID, resp)
			}
		}
	}
	walk(0, Responses{})
}
