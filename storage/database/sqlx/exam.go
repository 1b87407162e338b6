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

	"github.com/fluentify/backend/core/exam"
	"github.com/fluentify/backend/core/question"
)

type examRepository struct {
	db *sqlx.DB
}

var ( // interface compliance checks
	_ exam.Repository           = (*examRepository)(nil)
	_ question.ReferenceChecker = (*examRepository)(nil)
)

func NewExamRepository(db *sqlx.DB) *examRepository {
	return &examRepository{db: db}
}

type examRow struct {
	ID              string         `db:"id"`
	OwnerID         string         `db:"owner_id"`
	Title           string         `db:"title"`
	Description     string         `db:"description"`
	DurationMinutes int            `db:"duration_minutes"`
	PassScore       null.Int       `db:"pass_score"`
	GradingMethod   string         `db:"grading_method"`
	ManualWeight    int            `db:"manual_weight"`
	QuestionIDs     pq.StringArray `db:"question_ids"`
	Status          string         `db:"status"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

func (r examRow) toExam() exam.Exam {
	exm := exam.Exam{
		ID:              r.ID,
		OwnerID:         r.OwnerID,
		Title:           r.Title,
		Description:     r.Description,
		DurationMinutes: r.DurationMinutes,
		GradingMethod:   r.GradingMethod,
		ManualWeight:    r.ManualWeight,
		QuestionIDs:     r.QuestionIDs,
		Status:          r.Status,
		CreatedAt:       r.CreatedAt.UTC(),
		UpdatedAt:       r.UpdatedAt.UTC(),
	}
	if r.PassScore.Valid {
		score := r.PassScore.Int
		exm.PassScore = &score
	}
	return exm
}

func examPassScore(exm exam.Exam) null.Int {
	if exm.PassScore == nil {
		return null.Int{}
	}
	return null.IntFrom(*exm.PassScore)
}

const examColumns = "id, owner_id, title, description, duration_minutes, pass_score, grading_method, manual_weight, question_ids, status, created_at, updated_at"

func (repo *examRepository) CreateExam(ctx context.Context, exm exam.Exam) (exam.Exam, error) {
	if exm.ID == "" {
		exm.ID = uuid.New().String()
	}
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO exams (id, owner_id, title, description, duration_minutes, pass_score, grading_method, manual_weight, question_ids, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		exm.ID, exm.OwnerID, exm.Title, exm.Description, exm.DurationMinutes, examPassScore(exm),
		exm.GradingMethod, exm.ManualWeight, pq.Array(exm.QuestionIDs), exm.Status,
		exm.CreatedAt, exm.UpdatedAt,
	)
	if err != nil {
		return exam.Exam{}, errors.Wrap(err, "inserting exam")
	}
	return exm, nil
}

func (repo *examRepository) GetExamByID(ctx context.Context, id string) (exam.Exam, error) {
	var row examRow
	err := repo.db.GetContext(ctx, &row, "SELECT "+examColumns+" FROM exams WHERE id = $1", id)
	if err != nil {
		if err == sql.ErrNoRows {
			return exam.Exam{}, exam.ErrNotFound
		}
		return exam.Exam{}, errors.Wrap(err, "getting exam")
	}
	return row.toExam(), nil
}

func (repo *examRepository) FilterExams(ctx context.Context, filter exam.QueryFilter) ([]exam.Exam, error) {
	where := make([]string, 0, 3)
	args := make([]interface{}, 0, 3)

	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		where = append(where, fmt.Sprintf("(title ILIKE %[1]s OR description ILIKE %[1]s)", p))
	}
	if filter.Status != "" {
		where = append(where, "status = "+arg(filter.Status))
	}
	if filter.OwnerID != "" {
		where = append(where, "owner_id = "+arg(filter.OwnerID))
	}

	query := "SELECT " + examColumns + " FROM exams"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at"

	var rows []examRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "filtering exams")
	}
	exams := make([]exam.Exam, 0, len(rows))
	for _, row := range rows {
		exams = append(exams, row.toExam())
	}
	return exams, nil
}

func (repo *examRepository) UpdateExam(ctx context.Context, exm exam.Exam) (exam.Exam, error) {
	res, err := repo.db.ExecContext(ctx,
		`UPDATE exams
		 SET title = $2, description = $3, duration_minutes = $4, pass_score = $5,
		     grading_method = $6, manual_weight = $7, question_ids = $8, status = $9, updated_at = $10
		 WHERE id = $1`,
		exm.ID, exm.Title, exm.Description, exm.DurationMinutes, examPassScore(exm),
		exm.GradingMethod, exm.ManualWeight, pq.Array(exm.QuestionIDs), exm.Status, exm.UpdatedAt,
	)
	if err != nil {
		return exam.Exam{}, errors.Wrap(err, "updating exam")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return exam.Exam{}, exam.ErrNotFound
	}
	return exm, nil
}

func (repo *examRepository) PublishedExamReferencesQuestion(ctx context.Context, questionID string) (bool, error) {
	var exists bool
	err := repo.db.GetContext(ctx, &exists,
		"SELECT EXISTS (SELECT 1 FROM exams WHERE status = $1 AND $2::uuid = ANY(question_ids))",
		exam.StatusPublished, questionID,
	)
	return exists, errors.Wrap(err, "checking question references")
}

func (repo *examRepository) ExamHasSessions(ctx context.Context, examID string) (bool, error) {
	var exists bool
	err := repo.db.GetContext(ctx, &exists,
		"SELECT EXISTS (SELECT 1 FROM sessions WHERE exam_id = $1)", examID)
	return exists, errors.Wrap(err, "checking exam sessions")
}
