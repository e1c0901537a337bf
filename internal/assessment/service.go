package assessment

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/mind-engage/toximeter/internal/apperr"
	"github.com/mind-engage/toximeter/internal/logger"
	"github.com/mind-engage/toximeter/internal/metrics"
	"github.com/mind-engage/toximeter/internal/scoring"
	syncx "github.com/mind-engage/toximeter/internal/sync"
)

var tracer = otel.Tracer("github.com/mind-engage/toximeter/internal/assessment")

// Question input bounds enforced on create/update.
const (
	MaxQuestionText = 500
	MinWeight       = -2.0
	MaxWeight       = 2.0
)

// Service is the Question Provider and Persistence Layer around the scoring
// engine.
type Service struct {
	store  Store
	cache  QuestionCache
	events syncx.Appender
	log    logger.Logger

	now        func() time.Time
	newID      func() string
	newShareID func() string
}

type Option func(*Service)

func WithCache(c QuestionCache) Option      { return func(s *Service) { s.cache = c } }
func WithEvents(a syncx.Appender) Option    { return func(s *Service) { s.events = a } }
func WithLogger(l logger.Logger) Option     { return func(s *Service) { s.log = l } }
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithIDs overrides id generation; used by tests that need stable ids.
func WithIDs(id, shareID func() string) Option {
	return func(s *Service) { s.newID, s.newShareID = id, shareID }
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:      store,
		log:        logger.NewNoOpLogger(),
		now:        time.Now,
		newID:      uuid.NewString,
		newShareID: newShareID,
	}
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.WithFields(map[string]interface{}{"component": "assessment"})
	return s
}

// newShareID returns 12 hex chars taken from the random part of a v4 uuid.
func newShareID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// ---- questions ----

// ActiveQuestions returns the active bank ordered for display, consulting the
// cache first when one is configured.
func (s *Service) ActiveQuestions(ctx context.Context) ([]Question, error) {
	if s.cache != nil {
		qs, ok, err := s.cache.GetActive(ctx)
		switch {
		case err != nil:
			metrics.QuestionCacheLookups.WithLabelValues("error").Inc()
			s.log.WithError(err).Warn("question cache read failed", nil)
		case ok:
			metrics.QuestionCacheLookups.WithLabelValues("hit").Inc()
			return qs, nil
		default:
			metrics.QuestionCacheLookups.WithLabelValues("miss").Inc()
		}
	}

	qs, err := s.store.ListQuestions(ctx, false)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if s.cache != nil {
		if err := s.cache.SetActive(ctx, qs); err != nil {
			s.log.WithError(err).Warn("question cache write failed", nil)
		}
	}
	return qs, nil
}

func (s *Service) ListQuestions(ctx context.Context, includeInactive bool) ([]Question, error) {
	if !includeInactive {
		return s.ActiveQuestions(ctx)
	}
	qs, err := s.store.ListQuestions(ctx, true)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return qs, nil
}

// CreateQuestion adds an active question. The id is generated when empty.
func (s *Service) CreateQuestion(ctx context.Context, q Question) (Question, error) {
	q.Text = strings.TrimSpace(q.Text)
	if err := ValidateQuestion(q); err != nil {
		return Question{}, err
	}
	if q.ID == "" {
		q.ID = s.newID()
	}
	now := s.now().UTC()
	q.Active = true
	q.CreatedAt, q.UpdatedAt = now, now

	if err := s.store.CreateQuestion(ctx, q); err != nil {
		return Question{}, wrapStoreErr(err)
	}
	s.questionsChanged(ctx, "created", q.ID)
	return q, nil
}

func (s *Service) UpdateQuestion(ctx context.Context, id string, p QuestionPatch) (Question, error) {
	cur, err := s.store.GetQuestion(ctx, id)
	if err != nil {
		return Question{}, wrapStoreErr(err)
	}
	if p.Text != nil {
		t := strings.TrimSpace(*p.Text)
		p.Text = &t
	}
	next := p.apply(cur)
	if err := ValidateQuestion(next); err != nil {
		return Question{}, err
	}
	next.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateQuestion(ctx, next); err != nil {
		return Question{}, wrapStoreErr(err)
	}
	s.questionsChanged(ctx, "updated", id)
	return next, nil
}

func (s *Service) DeleteQuestion(ctx context.Context, id string) error {
	if err := s.store.DeleteQuestion(ctx, id); err != nil {
		return wrapStoreErr(err)
	}
	s.questionsChanged(ctx, "deleted", id)
	return nil
}

// SeedQuestions replaces the whole bank. Questions without an id get one;
// all seeded questions are active.
func (s *Service) SeedQuestions(ctx context.Context, qs []Question) ([]Question, error) {
	now := s.now().UTC()
	out := make([]Question, 0, len(qs))
	for i, q := range qs {
		q.Text = strings.TrimSpace(q.Text)
		if err := ValidateQuestion(q); err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
		if q.ID == "" {
			q.ID = s.newID()
		}
		q.Active = true
		q.CreatedAt, q.UpdatedAt = now, now
		out = append(out, q)
	}
	if err := s.store.ReplaceQuestions(ctx, out); err != nil {
		return nil, wrapStoreErr(err)
	}
	sortQuestions(out)
	s.questionsChanged(ctx, "seeded", fmt.Sprintf("%d", len(out)))
	return out, nil
}

func (s *Service) questionsChanged(ctx context.Context, action, key string) {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.log.WithError(err).Error("question cache invalidate failed", map[string]interface{}{"action": action})
		}
	}
	s.appendEvent(ctx, syncx.TypeQuestionsChanged, key, map[string]any{"action": action})
}

// ValidateQuestion checks admin input bounds.
func ValidateQuestion(q Question) error {
	var details []string
	if n := utf8.RuneCountInString(q.Text); n == 0 || n > MaxQuestionText {
		details = append(details, fmt.Sprintf("text must be 1-%d characters", MaxQuestionText))
	}
	if q.Weight < MinWeight || q.Weight > MaxWeight {
		details = append(details, fmt.Sprintf("weight must be between %g and %g", MinWeight, MaxWeight))
	}
	if q.Order < 1 {
		details = append(details, "order must be >= 1")
	}
	if len(details) > 0 {
		return apperr.InvalidInput("invalid question", details...)
	}
	return nil
}

// ---- scoring & assessments ----

// ValidateResponses enforces the Likert range on every supplied value,
// including ids that are not in the bank.
func ValidateResponses(r scoring.Responses) error {
	var bad []string
	for id, v := range r {
		if v < scoring.LikertMin || v > scoring.LikertMax {
			bad = append(bad, fmt.Sprintf("%s: response %d outside %d-%d", id, v, scoring.LikertMin, scoring.LikertMax))
		}
	}
	if len(bad) > 0 {
		sort.Strings(bad)
		return apperr.InvalidInput("invalid responses", bad...)
	}
	return nil
}

// Preview scores responses against the active bank without storing anything.
func (s *Service) Preview(ctx context.Context, responses scoring.Responses) (scoring.Result, error) {
	ctx, span := tracer.Start(ctx, "assessment.Preview")
	defer span.End()

	_, res, err := s.score(ctx, responses)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(apperr.CodeOf(err)))
		return scoring.Result{}, err
	}
	metrics.ScorePreviews.Inc()
	return res, nil
}

// Submit scores responses against the active bank and stores a write-once
// record with a fresh share id.
func (s *Service) Submit(ctx context.Context, userID string, responses scoring.Responses) (Submission, error) {
	ctx, span := tracer.Start(ctx, "assessment.Submit")
	defer span.End()

	if userID == "" {
		return Submission{}, apperr.New(apperr.CodeUnauthorized, "user required")
	}
	snapshot, res, err := s.score(ctx, responses)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(apperr.CodeOf(err)))
		return Submission{}, err
	}

	a := Assessment{
		ID:        s.newID(),
		UserID:    userID,
		ShareID:   s.newShareID(),
		Responses: copyResponses(responses),
		Questions: snapshot,
		RawScore:  res.RawScore,
		Percent:   res.Percent,
		Tier:      res.Tier,
		Advice:    res.Advice,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.SaveAssessment(ctx, a); err != nil {
		s.log.WithError(err).Error("save assessment failed", map[string]interface{}{"user_id": userID})
		return Submission{}, wrapStoreErr(err)
	}
	span.SetAttributes(
		attribute.String("assessment.id", a.ID),
		attribute.String("assessment.tier", string(a.Tier)),
		attribute.Int("assessment.percent", a.Percent),
	)

	metrics.AssessmentsSubmitted.WithLabelValues(string(a.Tier)).Inc()
	metrics.AssessmentPercent.Observe(float64(a.Percent))
	s.appendEvent(ctx, syncx.TypeAssessmentSubmitted, a.ID, map[string]any{
		"user_id": a.UserID, "percent": a.Percent, "tier": a.Tier, "share_id": a.ShareID,
	})
	s.log.Info("assessment submitted", map[string]interface{}{
		"assessment_id": a.ID, "user_id": userID, "percent": a.Percent, "tier": a.Tier,
	})

	return Submission{ID: a.ID, Percent: a.Percent, Tier: a.Tier, Advice: a.Advice, ShareID: a.ShareID}, nil
}

// score validates, loads the active bank and runs the engine. It returns the
// question snapshot used.
func (s *Service) score(ctx context.Context, responses scoring.Responses) ([]scoring.Question, scoring.Result, error) {
	if err := ValidateResponses(responses); err != nil {
		metrics.ScoreFailures.WithLabelValues(string(apperr.CodeInvalidInput)).Inc()
		return nil, scoring.Result{}, err
	}
	qs, err := s.ActiveQuestions(ctx)
	if err != nil {
		return nil, scoring.Result{}, err
	}
	if len(qs) == 0 {
		metrics.ScoreFailures.WithLabelValues(string(apperr.CodeConflict)).Inc()
		return nil, scoring.Result{}, apperr.New(apperr.CodeConflict, "question bank is empty")
	}
	snapshot := make([]scoring.Question, len(qs))
	for i, q := range qs {
		snapshot[i] = q.Scoring()
	}

	_, span := tracer.Start(ctx, "scoring.Compute")
	res, err := scoring.Compute(responses, snapshot)
	span.End()
	if err != nil {
		var missing *scoring.MissingAnswerError
		if errors.As(err, &missing) {
			metrics.ScoreFailures.WithLabelValues(string(apperr.CodeMissingAnswer)).Inc()
			return nil, scoring.Result{}, apperr.MissingAnswer(missing.QuestionID, err)
		}
		return nil, scoring.Result{}, apperr.Internal(err)
	}
	return snapshot, res, nil
}

// History lists a user's assessments, newest first.
func (s *Service) History(ctx context.Context, userID string, limit, offset int) ([]Summary, error) {
	list, err := s.store.ListAssessments(ctx, ListOpts{UserID: userID, Limit: limit, Offset: offset})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	out := make([]Summary, 0, len(list))
	for _, a := range list {
		out = append(out, a.summary())
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (Assessment, error) {
	a, err := s.store.GetAssessment(ctx, id)
	if err != nil {
		return Assessment{}, wrapStoreErr(err)
	}
	return a, nil
}

func (s *Service) GetShared(ctx context.Context, shareID string) (Shared, error) {
	a, err := s.store.GetAssessmentByShareID(ctx, shareID)
	if err != nil {
		return Shared{}, wrapStoreErr(err)
	}
	return a.shared(), nil
}

// Delete removes an assessment owned by userID. Missing and foreign records
// are indistinguishable to the caller.
func (s *Service) Delete(ctx context.Context, id, userID string) error {
	a, err := s.store.GetAssessment(ctx, id)
	if err != nil && !apperr.IsNotFound(err) {
		return apperr.Internal(err)
	}
	if err != nil || a.UserID != userID {
		return apperr.New(apperr.CodeNotFound, "assessment not found or unauthorized")
	}
	if err := s.store.DeleteAssessment(ctx, id); err != nil {
		return wrapStoreErr(err)
	}
	s.appendEvent(ctx, syncx.TypeAssessmentDeleted, id, map[string]any{"user_id": userID})
	return nil
}

// Rescore recomputes a stored assessment from its own snapshot and reports
// whether the result still matches what was stored.
func (s *Service) Rescore(ctx context.Context, id string) (scoring.Result, bool, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return scoring.Result{}, false, err
	}
	res, err := scoring.Compute(a.Responses, a.Questions)
	if err != nil {
		return scoring.Result{}, false, apperr.Internal(err)
	}
	return res, res == a.Result(), nil
}

func (s *Service) appendEvent(ctx context.Context, typ, key string, data any) {
	if s.events == nil {
		return
	}
	e, err := syncx.NewEvent(typ, key, data)
	if err == nil {
		err = s.events.Append(ctx, e)
	}
	if err != nil {
		s.log.WithError(err).Warn("event append failed", map[string]interface{}{"type": typ, "key": key})
	}
}

func wrapStoreErr(err error) error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	return apperr.Internal(err)
}

func copyResponses(r scoring.Responses) scoring.Responses {
	out := make(scoring.Responses, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
