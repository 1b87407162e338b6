package exam

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/fluentify/backend/core"
	"github.com/fluentify/backend/core/question"
	"github.com/fluentify/backend/core/user"
)

var (
	// errors
	ErrNotFound     = errors.New("exam not found")
	ErrNotOpen      = errors.New("exam is not open for new sessions")
	ErrFrozen       = errors.New("published exams cannot change questions, grading method or duration")
	ErrScoringInUse = errors.New("pass_score and manual_weight cannot change once the exam has sessions")
	ErrNoQuestions  = errors.New("an exam cannot be published without questions")
	ErrInvalidState = errors.New("invalid exam status transition")

	errGradingMismatch = errors.New("grading_method cannot be auto when the exam references essay or recording questions")
)

type (
	Repository interface {
		CreateExam(ctx context.Context, exm Exam) (Exam, error)
		GetExamByID(ctx context.Context, id string) (Exam, error)
		// FilterExams applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on Exam.Title or Exam.Description.
		FilterExams(ctx context.Context, filter QueryFilter) ([]Exam, error)
		UpdateExam(ctx context.Context, exm Exam) (Exam, error)
		PublishedExamReferencesQuestion(ctx context.Context, questionID string) (bool, error)
		ExamHasSessions(ctx context.Context, examID string) (bool, error)
	}

	Service struct {
		repo  Repository
		qRepo question.Repository
	}
)

func NewService(repo Repository, qRepo question.Repository) *Service {
	return &Service{repo: repo, qRepo: qRepo}
}

func (svc *Service) Create(ctx context.Context, owner user.User, ne NewExam) (Exam, error) {
	if err := svc.checkQuestions(ctx, ne.GradingMethod, ne.QuestionIDs); err != nil {
		return Exam{}, err
	}

	now := time.Now().UTC()
	exm := Exam{
		ID:              uuid.New().String(),
		OwnerID:         owner.ID,
		Title:           ne.Title,
		Description:     ne.Description,
		DurationMinutes: ne.DurationMinutes,
		PassScore:       ne.PassScore,
		GradingMethod:   ne.GradingMethod,
		ManualWeight:    DefaultManualWeight,
		QuestionIDs:     ne.QuestionIDs,
		Status:          StatusDraft,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if ne.ManualWeight != nil {
		exm.ManualWeight = *ne.ManualWeight
	}
	return svc.repo.CreateExam(ctx, exm)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Exam, error) {
	return svc.repo.GetExamByID(ctx, id)
}

func (svc *Service) Filter(ctx context.Context, filter QueryFilter) ([]Exam, error) {
	return svc.repo.FilterExams(ctx, filter)
}

func (svc *Service) Update(ctx context.Context, id string, ue UpdateExam) (Exam, error) {
	exm, err := svc.repo.GetExamByID(ctx, id)
	if err != nil {
		return Exam{}, err
	}

	if exm.Status != StatusDraft {
		if ue.QuestionIDs != nil || ue.GradingMethod != "" || ue.DurationMinutes != nil {
			return Exam{}, ErrFrozen
		}
		// scoring inputs freeze too once learners have taken the exam,
		// otherwise their recorded outcomes would be reinterpreted
		if ue.PassScore != nil || ue.ManualWeight != nil {
			taken, err := svc.repo.ExamHasSessions(ctx, id)
			if err != nil {
				return Exam{}, err
			}
			if taken {
				return Exam{}, ErrScoringInUse
			}
		}
	}

	if ue.Title != "" {
		exm.Title = ue.Title
	}
	if ue.Description != "" {
		exm.Description = ue.Description
	}
	if ue.DurationMinutes != nil {
		exm.DurationMinutes = *ue.DurationMinutes
	}
	if ue.PassScore != nil {
		exm.PassScore = ue.PassScore
	}
	if ue.GradingMethod != "" {
		exm.GradingMethod = ue.GradingMethod
	}
	if ue.ManualWeight != nil {
		exm.ManualWeight = *ue.ManualWeight
	}
	if ue.QuestionIDs != nil {
		exm.QuestionIDs = ue.QuestionIDs
	}

	if err := svc.checkQuestions(ctx, exm.GradingMethod, exm.QuestionIDs); err != nil {
		return Exam{}, err
	}

	exm.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateExam(ctx, exm)
}

// Publish makes a draft exam visible to learners. The question list and
// grading method are rechecked here; they freeze on success.
func (svc *Service) Publish(ctx context.Context, id string) (Exam, error) {
	exm, err := svc.repo.GetExamByID(ctx, id)
	if err != nil {
		return Exam{}, err
	}
	if exm.Status != StatusDraft {
		return Exam{}, ErrInvalidState
	}
	if len(exm.QuestionIDs) == 0 {
		return Exam{}, ErrNoQuestions
	}
	if err := svc.checkQuestions(ctx, exm.GradingMethod, exm.QuestionIDs); err != nil {
		return Exam{}, err
	}

	exm.Status = StatusPublished
	exm.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateExam(ctx, exm)
}

// Archive closes a published exam to new sessions; existing sessions are kept.
func (svc *Service) Archive(ctx context.Context, id string) (Exam, error) {
	exm, err := svc.repo.GetExamByID(ctx, id)
	if err != nil {
		return Exam{}, err
	}
	if exm.Status != StatusPublished {
		return Exam{}, ErrInvalidState
	}

	exm.Status = StatusArchived
	exm.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateExam(ctx, exm)
}

// Question fetches one unredacted question; sessions use it when recording
// and grading answers.
func (svc *Service) Question(ctx context.Context, id string) (question.Question, error) {
	return svc.qRepo.GetQuestionByID(ctx, id)
}

// Questions materializes the exam's full, unredacted question list in
// presentation order.
func (svc *Service) Questions(ctx context.Context, exm Exam) ([]question.Question, error) {
	if len(exm.QuestionIDs) == 0 {
		return nil, nil
	}
	return svc.qRepo.GetQuestionsByID(ctx, exm.QuestionIDs)
}

// Assemble materializes the ordered question list a viewer will see.
// Learners only see published exams, and never see answer keys; teachers and
// admins get the unredacted form whatever the status.
func (svc *Service) Assemble(ctx context.Context, id string, viewer user.User) (Exam, []question.Question, error) {
	exm, err := svc.repo.GetExamByID(ctx, id)
	if err != nil {
		return Exam{}, nil, err
	}

	staff := viewer.IsTeacher() || viewer.IsAdmin()
	if !staff && exm.Status != StatusPublished {
		return Exam{}, nil, ErrNotFound
	}

	qs, err := svc.Questions(ctx, exm)
	if err != nil {
		return Exam{}, nil, err
	}
	if !staff {
		for i, q := range qs {
			qs[i] = q.Redacted()
		}
	}
	return exm, qs, nil
}

// checkQuestions verifies that every referenced question exists and that the
// grading method is consistent with the referenced question types.
func (svc *Service) checkQuestions(ctx context.Context, method string, questionIDs []string) error {
	if len(questionIDs) == 0 {
		return nil
	}
	qs, err := svc.qRepo.GetQuestionsByID(ctx, questionIDs)
	if err != nil {
		if err == question.ErrNotFound {
			return core.NewValidationError(err, core.FieldError{Field: "question_ids", Error: err.Error()})
		}
		return err
	}
	if method == GradingAuto {
		for _, q := range qs {
			if q.ManualGradable() {
				return core.NewValidationError(errGradingMismatch, core.FieldError{Field: "grading_method", Error: errGradingMismatch.Error()})
			}
		}
	}
	return nil
}
