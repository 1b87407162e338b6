package question

import (
	"context"
	"errors"
	"time"
)

var (
	// errors
	ErrNotFound = errors.New("question not found")
	ErrInUse    = errors.New("question is referenced by a published exam")
)

type (
	Repository interface {
		CreateQuestion(ctx context.Context, q Question) (Question, error)
		GetQuestionByID(ctx context.Context, id string) (Question, error)
		// GetQuestionsByID returns questions in the order of the given ids;
		// any unknown id yields ErrNotFound.
		GetQuestionsByID(ctx context.Context, ids []string) ([]Question, error)
		// FilterQuestions applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on Question.Content.
		FilterQuestions(ctx context.Context, filter QueryFilter) ([]Question, error)
		UpdateQuestion(ctx context.Context, q Question) (Question, error)
		DeleteQuestion(ctx context.Context, id string) error
	}

	// ReferenceChecker reports whether a question is still referenced by a
	// published exam; satisfied by the exam repository.
	ReferenceChecker interface {
		PublishedExamReferencesQuestion(ctx context.Context, questionID string) (bool, error)
	}

	Service struct {
		repo Repository
		refs ReferenceChecker
	}
)

func NewService(repo Repository, refs ReferenceChecker) *Service {
	return &Service{repo: repo, refs: refs}
}

func (svc *Service) Create(ctx context.Context, nq NewQuestion) (Question, error) {
	now := time.Now().UTC()
	q := Question{
		Skill:         nq.Skill,
		Type:          nq.Type,
		Level:         nq.Level,
		Content:       nq.Content,
		Media:         nq.Media,
		Options:       nq.Options,
		CorrectAnswer: nq.CorrectAnswer,
		Explanation:   nq.Explanation,
		RubricID:      nq.RubricID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	return svc.repo.CreateQuestion(ctx, q)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Question, error) {
	return svc.repo.GetQuestionByID(ctx, id)
}

func (svc *Service) Filter(ctx context.Context, filter QueryFilter) ([]Question, error) {
	return svc.repo.FilterQuestions(ctx, filter)
}

func (svc *Service) Update(ctx context.Context, id string, uq UpdateQuestion) (Question, error) {
	q, err := svc.repo.GetQuestionByID(ctx, id)
	if err != nil {
		return Question{}, err
	}

	q.Skill = uq.Skill
	q.Level = uq.Level
	q.Content = uq.Content
	q.Media = uq.Media
	q.Options = uq.Options
	q.CorrectAnswer = uq.CorrectAnswer
	q.Explanation = uq.Explanation
	q.RubricID = uq.RubricID
	q.UpdatedAt = time.Now().UTC()

	return svc.repo.UpdateQuestion(ctx, q)
}

// Delete removes a question unless a published exam still references it.
func (svc *Service) Delete(ctx context.Context, id string) error {
	if _, err := svc.repo.GetQuestionByID(ctx, id); err != nil {
		return err
	}
	referenced, err := svc.refs.PublishedExamReferencesQuestion(ctx, id)
	if err != nil {
		return err
	}
	if referenced {
		return ErrInUse
	}
	return svc.repo.DeleteQuestion(ctx, id)
}
