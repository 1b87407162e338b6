package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/fluentify/backend/core/session"
)

type sessionRepository struct {
	db *sqlx.DB
}

var _ session.Repository = (*sessionRepository)(nil) // interface compliance check

func NewSessionRepository(db *sqlx.DB) session.Repository {
	return &sessionRepository{db: db}
}

type sessionRow struct {
	ID                string    `db:"id"`
	ExamID            string    `db:"exam_id"`
	LearnerID         string    `db:"learner_id"`
	State             string    `db:"state"`
	StartedAt         time.Time `db:"started_at"`
	TimeBudgetSeconds int       `db:"time_budget_seconds"`
	SubmittedAt       null.Time `db:"submitted_at"`
	TimeSpentSeconds  int       `db:"time_spent_seconds"`
	TotalScore        null.Int  `db:"total_score"`
	GeneralFeedback   string    `db:"general_feedback"`
}

func (r sessionRow) toSession() session.Session {
	s := session.Session{
		ID:                r.ID,
		ExamID:            r.ExamID,
		LearnerID:         r.LearnerID,
		State:             r.State,
		StartedAt:         r.StartedAt.UTC(),
		TimeBudgetSeconds: r.TimeBudgetSeconds,
		TimeSpentSeconds:  r.TimeSpentSeconds,
		GeneralFeedback:   r.GeneralFeedback,
	}
	if r.SubmittedAt.Valid {
		t := r.SubmittedAt.Time.UTC()
		s.SubmittedAt = &t
	}
	if r.TotalScore.Valid {
		score := r.TotalScore.Int
		s.TotalScore = &score
	}
	return s
}

type answerRow struct {
	SessionID       string    `db:"session_id"`
	QuestionID      string    `db:"question_id"`
	Type            string    `db:"answer_type"`
	Content         string    `db:"content"`
	IsCorrect       null.Bool `db:"is_correct"`
	Score           null.Int  `db:"score"`
	TeacherFeedback string    `db:"teacher_feedback"`
	UpdatedAt       time.Time `db:"updated_at"`
	GradedAt        null.Time `db:"graded_at"`
}

func (r answerRow) toAnswer() session.Answer {
	a := session.Answer{
		SessionID:       r.SessionID,
		QuestionID:      r.QuestionID,
		Type:            r.Type,
		Content:         r.Content,
		TeacherFeedback: r.TeacherFeedback,
		UpdatedAt:       r.UpdatedAt.UTC(),
	}
	if r.IsCorrect.Valid {
		correct := r.IsCorrect.Bool
		a.IsCorrect = &correct
	}
	if r.Score.Valid {
		score := r.Score.Int
		a.Score = &score
	}
	if r.GradedAt.Valid {
		t := r.GradedAt.Time.UTC()
		a.GradedAt = &t
	}
	return a
}

const (
	sessionColumns = "id, exam_id, learner_id, state, started_at, time_budget_seconds, submitted_at, time_spent_seconds, total_score, general_feedback"
	answerColumns  = "session_id, question_id, answer_type, content, is_correct, score, teacher_feedback, updated_at, graded_at"
)

func (repo *sessionRepository) CreateSession(ctx context.Context, s session.Session) (session.Session, error) {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO sessions (id, exam_id, learner_id, state, started_at, time_budget_seconds, time_spent_seconds, general_feedback)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		s.ID, s.ExamID, s.LearnerID, s.State, s.StartedAt, s.TimeBudgetSeconds,
		s.TimeSpentSeconds, s.GeneralFeedback,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" && pqErr.Constraint == "sessions_one_active_idx" {
			return session.Session{}, session.ErrActiveExists
		}
		return session.Session{}, errors.Wrap(err, "inserting session")
	}
	return s, nil
}

func (repo *sessionRepository) GetSessionByID(ctx context.Context, id string) (session.Session, error) {
	var row sessionRow
	err := repo.db.GetContext(ctx, &row, "SELECT "+sessionColumns+" FROM sessions WHERE id = $1", id)
	if err != nil {
		if err == sql.ErrNoRows {
			return session.Session{}, session.ErrNotFound
		}
		return session.Session{}, errors.Wrap(err, "getting session")
	}
	return row.toSession(), nil
}

func (repo *sessionRepository) FilterSessions(ctx context.Context, filter session.QueryFilter) ([]session.Session, error) {
	where := make([]string, 0, 3)
	args := make([]interface{}, 0, 3)

	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.ExamID != "" {
		where = append(where, "exam_id = "+arg(filter.ExamID))
	}
	if filter.LearnerID != "" {
		where = append(where, "learner_id = "+arg(filter.LearnerID))
	}
	if filter.State != "" {
		where = append(where, "state = "+arg(filter.State))
	}

	query := "SELECT " + sessionColumns + " FROM sessions"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY started_at"

	var rows []sessionRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "filtering sessions")
	}
	sessions := make([]session.Session, 0, len(rows))
	for _, row := range rows {
		sessions = append(sessions, row.toSession())
	}
	return sessions, nil
}

func (repo *sessionRepository) BeginSubmission(ctx context.Context, id string, submittedAt time.Time, timeSpentSeconds int) (session.Session, bool, error) {
	res, err := repo.db.ExecContext(ctx,
		`UPDATE sessions SET state = $2, submitted_at = $3, time_spent_seconds = $4
		 WHERE id = $1 AND state = $5`,
		id, session.StateSubmitted, submittedAt, timeSpentSeconds, session.StateInProgress,
	)
	if err != nil {
		return session.Session{}, false, errors.Wrap(err, "submitting session")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return session.Session{}, false, errors.Wrap(err, "submitting session")
	}
	s, err := repo.GetSessionByID(ctx, id)
	if err != nil {
		return session.Session{}, false, err
	}
	return s, n == 1, nil
}

func (repo *sessionRepository) UpdateSession(ctx context.Context, s session.Session) (session.Session, error) {
	var totalScore null.Int
	if s.TotalScore != nil {
		totalScore = null.IntFrom(*s.TotalScore)
	}
	res, err := repo.db.ExecContext(ctx,
		`UPDATE sessions SET state = $2, time_spent_seconds = $3, total_score = $4, general_feedback = $5
		 WHERE id = $1`,
		s.ID, s.State, s.TimeSpentSeconds, totalScore, s.GeneralFeedback,
	)
	if err != nil {
		return session.Session{}, errors.Wrap(err, "updating session")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return session.Session{}, session.ErrNotFound
	}
	return repo.GetSessionByID(ctx, s.ID)
}

func (repo *sessionRepository) UpsertAnswer(ctx context.Context, a session.Answer) (session.Answer, error) {
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO answers (session_id, question_id, answer_type, content, teacher_feedback, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (session_id, question_id) DO UPDATE
		 SET answer_type = EXCLUDED.answer_type, content = EXCLUDED.content, updated_at = EXCLUDED.updated_at`,
		a.SessionID, a.QuestionID, a.Type, a.Content, a.TeacherFeedback, a.UpdatedAt,
	)
	if err != nil {
		return session.Answer{}, errors.Wrap(err, "upserting answer")
	}
	return a, nil
}

func (repo *sessionRepository) GetAnswer(ctx context.Context, sessionID, questionID string) (session.Answer, error) {
	var row answerRow
	err := repo.db.GetContext(ctx, &row,
		"SELECT "+answerColumns+" FROM answers WHERE session_id = $1 AND question_id = $2",
		sessionID, questionID,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return session.Answer{}, session.ErrAnswerNotFound
		}
		return session.Answer{}, errors.Wrap(err, "getting answer")
	}
	return row.toAnswer(), nil
}

func (repo *sessionRepository) GetSessionAnswers(ctx context.Context, sessionID string) ([]session.Answer, error) {
	var rows []answerRow
	err := repo.db.SelectContext(ctx, &rows,
		"SELECT "+answerColumns+" FROM answers WHERE session_id = $1 ORDER BY question_id", sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "getting session answers")
	}
	answers := make([]session.Answer, 0, len(rows))
	for _, row := range rows {
		answers = append(answers, row.toAnswer())
	}
	return answers, nil
}

func (repo *sessionRepository) SetAnswerResults(ctx context.Context, sessionID string, answers []session.Answer) error {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "setting answer results")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, a := range answers {
		if a.IsCorrect == nil {
			continue
		}
		_, err = tx.ExecContext(ctx,
			"UPDATE answers SET is_correct = $3 WHERE session_id = $1 AND question_id = $2",
			sessionID, a.QuestionID, *a.IsCorrect,
		)
		if err != nil {
			return errors.Wrap(err, "setting answer results")
		}
	}
	return errors.Wrap(tx.Commit(), "setting answer results")
}

func (repo *sessionRepository) GradeAnswer(ctx context.Context, sessionID, questionID string, score int, feedback string, gradedAt time.Time) (session.Answer, bool, error) {
	res, err := repo.db.ExecContext(ctx,
		`UPDATE answers SET score = $3, teacher_feedback = $4, graded_at = $5
		 WHERE session_id = $1 AND question_id = $2 AND score IS NULL`,
		sessionID, questionID, score, feedback, gradedAt,
	)
	if err != nil {
		return session.Answer{}, false, errors.Wrap(err, "grading answer")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return session.Answer{}, false, errors.Wrap(err, "grading answer")
	}
	a, err := repo.GetAnswer(ctx, sessionID, questionID)
	if err != nil {
		return session.Answer{}, false, err
	}
	return a, n == 1, nil
}
