package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/fluentify/backend/core/exam"
	"github.com/fluentify/backend/core/question"
)

type examRepository struct {
	db       *examTable
	sessions *sessionTable
}

// interface compliance checks
var (
	_ exam.Repository           = (*examRepository)(nil)
	_ question.ReferenceChecker = (*examRepository)(nil)
)

func NewExamRepository(db *DB) *examRepository {
	return &examRepository{db: db.exam, sessions: db.session}
}

func (repo *examRepository) query() []exam.Exam {
	exms := make([]exam.Exam, 0, len(repo.db.table))
	for _, e := range repo.db.table {
		exms = append(exms, *e)
	}
	sort.Slice(exms, func(i, j int) bool { return exms[i].CreatedAt.Before(exms[j].CreatedAt) })
	return exms
}

func (repo *examRepository) CreateExam(ctx context.Context, exm exam.Exam) (exam.Exam, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if exm.ID == "" {
		exm.ID = uuid.New().String()
	}
	repo.db.table[exm.ID] = &exm
	return exm, nil
}

func (repo *examRepository) GetExamByID(ctx context.Context, id string) (exam.Exam, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if exm, ok := repo.db.table[id]; ok {
		return *exm, nil
	}
	return exam.Exam{}, exam.ErrNotFound
}

func (repo *examRepository) FilterExams(ctx context.Context, filter exam.QueryFilter) ([]exam.Exam, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	exms := repo.query()

	if filter.Search != "" {
		var filtered []exam.Exam
		search := strings.ToLower(filter.Search)
		for _, e := range exms {
			if strings.Contains(strings.ToLower(e.Title), search) ||
				strings.Contains(strings.ToLower(e.Description), search) {
				filtered = append(filtered, e)
			}
		}
		exms = filtered
	}
	if exms != nil && filter.Status != "" {
		var filtered []exam.Exam
		for _, e := range exms {
			if e.Status == filter.Status {
				filtered = append(filtered, e)
			}
		}
		exms = filtered
	}
	if exms != nil && filter.OwnerID != "" {
		var filtered []exam.Exam
		for _, e := range exms {
			if e.OwnerID == filter.OwnerID {
				filtered = append(filtered, e)
			}
		}
		exms = filtered
	}

	return exms, nil
}

func (repo *examRepository) UpdateExam(ctx context.Context, exm exam.Exam) (exam.Exam, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[exm.ID]; !ok {
		return exam.Exam{}, exam.ErrNotFound
	}
	repo.db.table[exm.ID] = &exm
	return exm, nil
}

func (repo *examRepository) PublishedExamReferencesQuestion(ctx context.Context, questionID string) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, e := range repo.db.table {
		if e.Status == exam.StatusPublished && e.ReferencesQuestion(questionID) {
			return true, nil
		}
	}
	return false, nil
}

func (repo *examRepository) ExamHasSessions(ctx context.Context, examID string) (bool, error) {
	repo.sessions.RLock()
	defer repo.sessions.RUnlock()

	for _, s := range repo.sessions.table {
		if s.ExamID == examID {
			return true, nil
		}
	}
	return false, nil
}
