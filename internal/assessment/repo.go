package assessment

import "context"

type ListOpts struct {
	UserID string
	Limit  int
	Offset int
}

// Store is the question bank and the assessment record store.
type Store interface {
	// ListQuestions returns questions ordered by Order then ID.
	ListQuestions(ctx context.Context, includeInactive bool) ([]Question, error)
	GetQuestion(ctx context.Context, id string) (Question, error)
	CreateQuestion(ctx context.Context, q Question) error
	UpdateQuestion(ctx context.Context, q Question) error
	DeleteQuestion(ctx context.Context, id string) error
	// ReplaceQuestions atomically swaps the whole bank.
	ReplaceQuestions(ctx context.Context, qs []Question) error

	SaveAssessment(ctx context.Context, a Assessment) error
	GetAssessment(ctx context.Context, id string) (Assessment, error)
	GetAssessmentByShareID(ctx context.Context, shareID string) (Assessment, error)
	// ListAssessments returns newest first.
	ListAssessments(ctx context.Context, opts ListOpts) ([]Assessment, error)
	DeleteAssessment(ctx context.Context, id string) error
}

// QuestionCache caches the active question list. Implementations must treat
// a miss as (nil, false, nil).
type QuestionCache interface {
	GetActive(ctx context.Context) ([]Question, bool, error)
	SetActive(ctx context.Context, qs []Question) error
	Invalidate(ctx context.Context) error
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > 200 {
		return 50
	}
	return limit
}
