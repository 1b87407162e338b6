package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/fluentify/backend/core/question"
)

type questionRepository struct {
	db *questionTable
}

var _ question.Repository = (*questionRepository)(nil) // interface compliance check

func NewQuestionRepository(db *DB) question.Repository {
	return &questionRepository{db: db.question}
}

func (repo *questionRepository) query() []question.Question {
	qs := make([]question.Question, 0, len(repo.db.table))
	for _, q := range repo.db.table {
		qs = append(qs, *q)
	}
	sort.Slice(qs, func(i, j int) bool { return qs[i].CreatedAt.Before(qs[j].CreatedAt) })
	return qs
}

func (repo *questionRepository) CreateQuestion(ctx context.Context, q question.Question) (question.Question, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if q.ID == "" {
		q.ID = uuid.New().String()
	}
	repo.db.table[q.ID] = &q
	return q, nil
}

func (repo *questionRepository) GetQuestionByID(ctx context.Context, id string) (question.Question, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if q, ok := repo.db.table[id]; ok {
		return *q, nil
	}
	return question.Question{}, question.ErrNotFound
}

func (repo *questionRepository) GetQuestionsByID(ctx context.Context, ids []string) ([]question.Question, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	qs := make([]question.Question, 0, len(ids))
	for _, id := range ids {
		q, ok := repo.db.table[id]
		if !ok {
			return nil, question.ErrNotFound
		}
		qs = append(qs, *q)
	}
	return qs, nil
}

func (repo *questionRepository) FilterQuestions(ctx context.Context, filter question.QueryFilter) ([]question.Question, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	qs := repo.query()

	if filter.Search != "" {
		var filtered []question.Question
		search := strings.ToLower(filter.Search)
		for _, q := range qs {
			if strings.Contains(strings.ToLower(q.Content), search) {
				filtered = append(filtered, q)
			}
		}
		qs = filtered
	}
	if qs != nil && filter.Skill != "" {
		var filtered []question.Question
		for _, q := range qs {
			if q.Skill == filter.Skill {
				filtered = append(filtered, q)
			}
		}
		qs = filtered
	}
	if qs != nil && filter.Type != "" {
		var filtered []question.Question
		for _, q := range qs {
			if q.Type == filter.Type {
				filtered = append(filtered, q)
			}
		}
		qs = filtered
	}
	if qs != nil && filter.Level != "" {
		var filtered []question.Question
		for _, q := range qs {
			if q.Level == filter.Level {
				filtered = append(filtered, q)
			}
		}
		qs = filtered
	}

	return qs, nil
}

func (repo *questionRepository) UpdateQuestion(ctx context.Context, q question.Question) (question.Question, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[q.ID]; !ok {
		return question.Question{}, question.ErrNotFound
	}
	repo.db.table[q.ID] = &q
	return q, nil
}

func (repo *questionRepository) DeleteQuestion(ctx context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return question.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}
