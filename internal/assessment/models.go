package assessment

import (
	"time"

	"github.com/mind-engage/toximeter/internal/scoring"
)

// Question is a stored questionnaire statement. Only active questions are
// handed to the scoring engine.
type Question struct {
	ID        string    `json:"id" yaml:"id,omitempty"`
	Text      string    `json:"text" yaml:"text"`
	Weight    float64   `json:"weight" yaml:"weight"` // [-2,2]; sign = polarity
	Order     int       `json:"order" yaml:"order"`
	Active    bool      `json:"active" yaml:"active"`
	CreatedAt time.Time `json:"created_at,omitempty" yaml:"-"`
	UpdatedAt time.Time `json:"updated_at,omitempty" yaml:"-"`
}

// Scoring returns the engine's view of q.
func (q Question) Scoring() scoring.Question {
	return scoring.Question{ID: q.ID, Text: q.Text, Weight: q.Weight, Order: q.Order}
}

// QuestionPatch is a partial update; nil fields are left unchanged.
type QuestionPatch struct {
	Text   *string  `json:"text,omitempty"`
	Weight *float64 `json:"weight,omitempty"`
	Order  *int     `json:"order,omitempty"`
	Active *bool    `json:"active,omitempty"`
}

func (p QuestionPatch) apply(q Question) Question {
	if p.Text != nil {
		q.Text = *p.Text
	}
	if p.Weight != nil {
		q.Weight = *p.Weight
	}
	if p.Order != nil {
		q.Order = *p.Order
	}
	if p.Active != nil {
		q.Active = *p.Active
	}
	return q
}

// Assessment is a write-once record of one completed questionnaire. Questions
// holds the exact set used for scoring so the result stays reproducible after
// the live bank changes.
type Assessment struct {
	ID        string             `json:"id"`
	UserID    string             `json:"user_id"`
	ShareID   string             `json:"share_id"`
	Responses scoring.Responses  `json:"responses"`
	Questions []scoring.Question `json:"questions"`
	RawScore  float64            `json:"raw_score"`
	Percent   int                `json:"percent"`
	Tier      scoring.Tier       `json:"tier"`
	Advice    string             `json:"advice"`
	CreatedAt time.Time          `json:"created_at"`
}

// Result returns the stored score.
func (a Assessment) Result() scoring.Result {
	return scoring.Result{RawScore: a.RawScore, Percent: a.Percent, Tier: a.Tier, Advice: a.Advice}
}

// Summary is the history-list view of an assessment.
type Summary struct {
	ID        string       `json:"id"`
	Percent   int          `json:"percent"`
	Tier      scoring.Tier `json:"tier"`
	ShareID   string       `json:"share_id"`
	CreatedAt time.Time    `json:"created_at"`
}

// Shared is the public view served by share id.
type Shared struct {
	ID        string       `json:"id"`
	Percent   int          `json:"percent"`
	Tier      scoring.Tier `json:"tier"`
	Advice    string       `json:"advice"`
	CreatedAt time.Time    `json:"created_at"`
}

// Submission is returned to the caller after a successful submit.
type Submission struct {
	ID      string       `json:"id"`
	Percent int          `json:"percent"`
	Tier    scoring.Tier `json:"tier"`
	Advice  string       `json:"advice"`
	ShareID string       `json:"share_id"`
}

func (a Assessment) summary() Summary {
	return Summary{ID: a.ID, Percent: a.Percent, Tier: a.Tier, ShareID: a.ShareID, CreatedAt: a.CreatedAt}
}

func (a Assessment) shared() Shared {
	return Shared{ID: a.ID, Percent: a.Percent, Tier: a.Tier, Advice: a.Advice, CreatedAt: a.CreatedAt}
}
