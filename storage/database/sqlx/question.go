package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/fluentify/backend/core/question"
)

type questionRepository struct {
	db *sqlx.DB
}

var _ question.Repository = (*questionRepository)(nil) // interface compliance check

func NewQuestionRepository(db *sqlx.DB) question.Repository {
	return &questionRepository{db: db}
}

type questionRow struct {
	ID            string          `db:"id"`
	Skill         string          `db:"skill"`
	Type          string          `db:"type"`
	Level         string          `db:"level"`
	Content       string          `db:"content"`
	MediaURL      string          `db:"media_url"`
	MediaKind     string          `db:"media_kind"`
	Options       json.RawMessage `db:"options"`
	CorrectAnswer string          `db:"correct_answer"`
	Explanation   string          `db:"explanation"`
	RubricID      null.String     `db:"rubric_id"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
}

func (r questionRow) toQuestion() (question.Question, error) {
	q := question.Question{
		ID:            r.ID,
		Skill:         r.Skill,
		Type:          r.Type,
		Level:         r.Level,
		Content:       r.Content,
		CorrectAnswer: r.CorrectAnswer,
		Explanation:   r.Explanation,
		RubricID:      r.RubricID.String,
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
	if r.MediaURL != "" {
		q.Media = &question.Media{URL: r.MediaURL, Kind: r.MediaKind}
	}
	if len(r.Options) > 0 {
		if err := json.Unmarshal(r.Options, &q.Options); err != nil {
			return question.Question{}, errors.Wrap(err, "decoding question options")
		}
	}
	return q, nil
}

func questionArgs(q question.Question) (opts []byte, mediaURL, mediaKind string, rubricID null.String, err error) {
	opts = []byte("[]")
	if q.Options != nil {
		if opts, err = json.Marshal(q.Options); err != nil {
			err = errors.Wrap(err, "encoding question options")
			return
		}
	}
	if q.Media != nil {
		mediaURL, mediaKind = q.Media.URL, q.Media.Kind
	}
	rubricID = null.NewString(q.RubricID, q.RubricID != "")
	return
}

const questionColumns = "id, skill, type, level, content, media_url, media_kind, options, correct_answer, explanation, rubric_id, created_at, updated_at"

func (repo *questionRepository) CreateQuestion(ctx context.Context, q question.Question) (question.Question, error) {
	if q.ID == "" {
		q.ID = uuid.New().String()
	}
	opts, mediaURL, mediaKind, rubricID, err := questionArgs(q)
	if err != nil {
		return question.Question{}, err
	}
	_, err = repo.db.ExecContext(ctx,
		`INSERT INTO questions (id, skill, type, level, content, media_url, media_kind, options, correct_answer, explanation, rubric_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		q.ID, q.Skill, q.Type, q.Level, q.Content, mediaURL, mediaKind, opts,
		q.CorrectAnswer, q.Explanation, rubricID, q.CreatedAt, q.UpdatedAt,
	)
	if err != nil {
		return question.Question{}, errors.Wrap(err, "inserting question")
	}
	return q, nil
}

func (repo *questionRepository) GetQuestionByID(ctx context.Context, id string) (question.Question, error) {
	var row questionRow
	err := repo.db.GetContext(ctx, &row, "SELECT "+questionColumns+" FROM questions WHERE id = $1", id)
	if err != nil {
		if err == sql.ErrNoRows {
			return question.Question{}, question.ErrNotFound
		}
		return question.Question{}, errors.Wrap(err, "getting question")
	}
	return row.toQuestion()
}

func (repo *questionRepository) GetQuestionsByID(ctx context.Context, ids []string) ([]question.Question, error) {
	var rows []questionRow
	err := repo.db.SelectContext(ctx, &rows,
		"SELECT "+questionColumns+" FROM questions WHERE id = ANY($1)", pq.Array(ids))
	if err != nil {
		return nil, errors.Wrap(err, "getting questions")
	}

	byID := make(map[string]question.Question, len(rows))
	for _, row := range rows {
		q, err := row.toQuestion()
		if err != nil {
			return nil, err
		}
		byID[q.ID] = q
	}

	qs := make([]question.Question, 0, len(ids))
	for _, id := range ids {
		q, ok := byID[id]
		if !ok {
			return nil, question.ErrNotFound
		}
		qs = append(qs, q)
	}
	return qs, nil
}

func (repo *questionRepository) FilterQuestions(ctx context.Context, filter question.QueryFilter) ([]question.Question, error) {
	where := make([]string, 0, 4)
	args := make([]interface{}, 0, 4)

	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Search != "" {
		where = append(where, "content ILIKE "+arg("%"+filter.Search+"%"))
	}
	if filter.Skill != "" {
		where = append(where, "skill = "+arg(filter.Skill))
	}
	if filter.Type != "" {
		where = append(where, "type = "+arg(filter.Type))
	}
	if filter.Level != "" {
		where = append(where, "level = "+arg(filter.Level))
	}

	query := "SELECT " + questionColumns + " FROM questions"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at"

	var rows []questionRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "filtering questions")
	}
	qs := make([]question.Question, 0, len(rows))
	for _, row := range rows {
		q, err := row.toQuestion()
		if err != nil {
			return nil, err
		}
		qs = append(qs, q)
	}
	return qs, nil
}

func (repo *questionRepository) UpdateQuestion(ctx context.Context, q question.Question) (question.Question, error) {
	opts, mediaURL, mediaKind, rubricID, err := questionArgs(q)
	if err != nil {
		return question.Question{}, err
	}
	res, err := repo.db.ExecContext(ctx,
		`UPDATE questions
		 SET skill = $2, type = $3, level = $4, content = $5, media_url = $6, media_kind = $7,
		     options = $8, correct_answer = $9, explanation = $10, rubric_id = $11, updated_at = $12
		 WHERE id = $1`,
		q.ID, q.Skill, q.Type, q.Level, q.Content, mediaURL, mediaKind, opts,
		q.CorrectAnswer, q.Explanation, rubricID, q.UpdatedAt,
	)
	if err != nil {
		return question.Question{}, errors.Wrap(err, "updating question")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return question.Question{}, question.ErrNotFound
	}
	return q, nil
}

func (repo *questionRepository) DeleteQuestion(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, "DELETE FROM questions WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting question")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return question.ErrNotFound
	}
	return nil
}
