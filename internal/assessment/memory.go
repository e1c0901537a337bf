package assessment

import (
	"context"
	"sort"
	"sync"

	"github.com/mind-engage/toximeter/internal/apperr"
	"github.com/mind-engage/toximeter/internal/scoring"
)

type memoryStore struct {
	mu          sync.RWMutex
	questions   map[string]Question
	assessments map[string]Assessment
	byShare     map[string]string // share id -> assessment id
}

// NewInMemoryStore returns a Store kept entirely in process memory.
func NewInMemoryStore() Store {
	return &memoryStore{
		questions:   map[string]Question{},
		assessments: map[string]Assessment{},
		byShare:     map[string]string{},
	}
}

func (m *memoryStore) ListQuestions(_ context.Context, includeInactive bool) ([]Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Question, 0, len(m.questions))
	for _, q := range m.questions {
		if q.Active || includeInactive {
			out = append(out, q)
		}
	}
	sortQuestions(out)
	return out, nil
}

func (m *memoryStore) GetQuestion(_ context.Context, id string) (Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.questions[id]
	if !ok {
		return Question{}, apperr.NotFound("question")
	}
	return q, nil
}

func (m *memoryStore) CreateQuestion(_ context.Context, q Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.questions[q.ID]; ok {
		return apperr.New(apperr.CodeConflict, "question already exists")
	}
	m.questions[q.ID] = q
	return nil
}

func (m *memoryStore) UpdateQuestion(_ context.Context, q Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.questions[q.ID]; !ok {
		return apperr.NotFound("question")
	}
	m.questions[q.ID] = q
	return nil
}

func (m *memoryStore) DeleteQuestion(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.questions[id]; !ok {
		return apperr.NotFound("question")
	}
	delete(m.questions, id)
	return nil
}

func (m *memoryStore) ReplaceQuestions(_ context.Context, qs []Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := make(map[string]Question, len(qs))
	for _, q := range qs {
		if _, dup := next[q.ID]; dup {
			return apperr.New(apperr.CodeConflict, "duplicate question id "+q.ID)
		}
		next[q.ID] = q
	}
	m.questions = next
	return nil
}

func (m *memoryStore) SaveAssessment(_ context.Context, a Assessment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.assessments[a.ID]; ok {
		return apperr.New(apperr.CodeConflict, "assessment already exists")
	}
	if _, ok := m.byShare[a.ShareID]; ok {
		return apperr.New(apperr.CodeConflict, "share id already in use")
	}
	m.assessments[a.ID] = cloneAssessment(a)
	m.byShare[a.ShareID] = a.ID
	return nil
}

func (m *memoryStore) GetAssessment(_ context.Context, id string) (Assessment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.assessments[id]
	if !ok {
		return Assessment{}, apperr.NotFound("assessment")
	}
	return cloneAssessment(a), nil
}

func (m *memoryStore) GetAssessmentByShareID(ctx context.Context, shareID string) (Assessment, error) {
	m.mu.RLock()
	id, ok := m.byShare[shareID]
	m.mu.RUnlock()
	if !ok {
		return Assessment{}, apperr.NotFound("assessment")
	}
	return m.GetAssessment(ctx, id)
}

func (m *memoryStore) ListAssessments(_ context.Context, opts ListOpts) ([]Assessment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var all []Assessment
	for _, a := range m.assessments {
		if opts.UserID == "" || a.UserID == opts.UserID {
			all = append(all, cloneAssessment(a))
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})
	if opts.Offset >= len(all) {
		return []Assessment{}, nil
	}
	all = all[opts.Offset:]
	if limit := normalizeLimit(opts.Limit); len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (m *memoryStore) DeleteAssessment(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assessments[id]
	if !ok {
		return apperr.NotFound("assessment")
	}
	delete(m.byShare, a.ShareID)
	delete(m.assessments, id)
	return nil
}

// records are handed out by value, but the map and slice fields would still
// alias the stored copy
func cloneAssessment(a Assessment) Assessment {
	resp := make(scoring.Responses, len(a.Responses))
	for k, v := range a.Responses {
		resp[k] = v
	}
	a.Responses = resp
	a.Questions = append([]scoring.Question(nil), a.Questions...)
	return a
}

func sortQuestions(qs []Question) {
	sort.SliceStable(qs, func(i, j int) bool {
		if qs[i].Order != qs[j].Order {
			return qs[i].Order < qs[j].Order
		}
		return qs[i].ID < qs[j].ID
	})
}
