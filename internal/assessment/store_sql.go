package assessment

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mind-engage/toximeter/internal/apperr"
	"github.com/mind-engage/toximeter/internal/db"
	"github.com/mind-engage/toximeter/internal/scoring"
)

// SQLStore works against both the sqlite and postgres schemas in internal/db;
// all queries use $N placeholders, which both drivers accept.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

const questionCols = `id,text,weight,sort_order,is_active,created_at,updated_at`

func (s *SQLStore) ListQuestions(ctx context.Context, includeInactive bool) ([]Question, error) {
	q := `SELECT ` + questionCols + ` FROM questions`
	var args []any
	if !includeInactive {
		q += ` WHERE is_active = $1`
		args = append(args, true)
	}
	q += ` ORDER BY sort_order ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()
	out := []Question{}
	for rows.Next() {
		qq, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, qq)
	}
	return out, rows.Err()
}

func (s *SQLStore) GetQuestion(ctx context.Context, id string) (Question, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+questionCols+` FROM questions WHERE id=$1`, id)
	q, err := scanQuestion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Question{}, apperr.NotFound("question")
	}
	return q, err
}

func (s *SQLStore) CreateQuestion(ctx context.Context, q Question) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO questions (`+questionCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		q.ID, q.Text, q.Weight, q.Order, q.Active, q.CreatedAt.UnixMilli(), q.UpdatedAt.UnixMilli())
	if db.IsUniqueViolation(err) {
		return apperr.New(apperr.CodeConflict, "question already exists")
	}
	if err != nil {
		return fmt.Errorf("insert question: %w", err)
	}
	return nil
}

func (s *SQLStore) UpdateQuestion(ctx context.Context, q Question) error {
	res, err := s.db.ExecContext(ctx, `UPDATE questions
		SET text=$1, weight=$2, sort_order=$3, is_active=$4, updated_at=$5 WHERE id=$6`,
		q.Text, q.Weight, q.Order, q.Active, q.UpdatedAt.UnixMilli(), q.ID)
	if err != nil {
		return fmt.Errorf("update question: %w", err)
	}
	return requireAffected(res, "question")
}

func (s *SQLStore) DeleteQuestion(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM questions WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	return requireAffected(res, "question")
}

func (s *SQLStore) ReplaceQuestions(ctx context.Context, qs []Question) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM questions`); err != nil {
		return fmt.Errorf("clear questions: %w", err)
	}
	for _, q := range qs {
		if _, err = tx.ExecContext(ctx, `INSERT INTO questions (`+questionCols+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			q.ID, q.Text, q.Weight, q.Order, q.Active, q.CreatedAt.UnixMilli(), q.UpdatedAt.UnixMilli()); err != nil {
			return fmt.Errorf("insert question %s: %w", q.ID, err)
		}
	}
	return nil
}

const assessmentCols = `id,user_id,share_id,responses_json,questions_json,raw_score,percent,tier,advice,created_at`

func (s *SQLStore) SaveAssessment(ctx context.Context, a Assessment) error {
	rj, err := json.Marshal(a.Responses)
	if err != nil {
		return err
	}
	qj, err := json.Marshal(a.Questions)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO assessments (`+assessmentCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		a.ID, a.UserID, a.ShareID, string(rj), string(qj),
		a.RawScore, a.Percent, string(a.Tier), a.Advice, a.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert assessment: %w", err)
	}
	return nil
}

func (s *SQLStore) GetAssessment(ctx context.Context, id string) (Assessment, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+assessmentCols+` FROM assessments WHERE id=$1`, id)
	return s.oneAssessment(row)
}

func (s *SQLStore) GetAssessmentByShareID(ctx context.Context, shareID string) (Assessment, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+assessmentCols+` FROM assessments WHERE share_id=$1`, shareID)
	return s.oneAssessment(row)
}

func (s *SQLStore) oneAssessment(row *sql.Row) (Assessment, error) {
	a, err := scanAssessment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Assessment{}, apperr.NotFound("assessment")
	}
	return a, err
}

func (s *SQLStore) ListAssessments(ctx context.Context, opts ListOpts) ([]Assessment, error) {
	q := `SELECT ` + assessmentCols + ` FROM assessments`
	args := []any{}
	if opts.UserID != "" {
		args = append(args, opts.UserID)
		q += ` WHERE user_id = $1`
	}
	args = append(args, normalizeLimit(opts.Limit), max(opts.Offset, 0))
	q += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list assessments: %w", err)
	}
	defer rows.Close()
	out := []Assessment{}
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLStore) DeleteAssessment(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM assessments WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete assessment: %w", err)
	}
	return requireAffected(res, "assessment")
}

type scanner interface {
	Scan(dest ...any) error
}

func scanQuestion(sc scanner) (Question, error) {
	var q Question
	var created, updated int64
	if err := sc.Scan(&q.ID, &q.Text, &q.Weight, &q.Order, &q.Active, &created, &updated); err != nil {
		return Question{}, err
	}
	q.CreatedAt = time.UnixMilli(created).UTC()
	q.UpdatedAt = time.UnixMilli(updated).UTC()
	return q, nil
}

func scanAssessment(sc scanner) (Assessment, error) {
	var a Assessment
	var rj, qj, tier string
	var created int64
	if err := sc.Scan(&a.ID, &a.UserID, &a.ShareID, &rj, &qj,
		&a.RawScore, &a.Percent, &tier, &a.Advice, &created); err != nil {
		return Assessment{}, err
	}
	if err := json.Unmarshal([]byte(rj), &a.Responses); err != nil {
		return Assessment{}, fmt.Errorf("decode responses of %s: %w", a.ID, err)
	}
	if err := json.Unmarshal([]byte(qj), &a.Questions); err != nil {
		return Assessment{}, fmt.Errorf("decode questions of %s: %w", a.ID, err)
	}
	if a.Responses == nil {
		a.Responses = scoring.Responses{}
	}
	a.Tier = scoring.Tier(tier)
	a.CreatedAt = time.UnixMilli(created).UTC()
	return a, nil
}

func requireAffected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound(what)
	}
	return nil
}
