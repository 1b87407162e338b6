package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/fluentify/backend/core/session"
)

type sessionRepository struct {
	db *sessionTable
}

var _ session.Repository = (*sessionRepository)(nil) // interface compliance check

func NewSessionRepository(db *DB) session.Repository {
	return &sessionRepository{db: db.session}
}

func (repo *sessionRepository) query() []session.Session {
	sessions := make([]session.Session, 0, len(repo.db.table))
	for _, s := range repo.db.table {
		sessions = append(sessions, *s)
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].StartedAt.Before(sessions[j].StartedAt) })
	return sessions
}

func (repo *sessionRepository) CreateSession(ctx context.Context, s session.Session) (session.Session, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, other := range repo.db.table {
		if other.ExamID == s.ExamID && other.LearnerID == s.LearnerID && other.State != session.StateCompleted {
			return session.Session{}, session.ErrActiveExists
		}
	}
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	repo.db.table[s.ID] = &s
	return s, nil
}

func (repo *sessionRepository) GetSessionByID(ctx context.Context, id string) (session.Session, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if s, ok := repo.db.table[id]; ok {
		return *s, nil
	}
	return session.Session{}, session.ErrNotFound
}

func (repo *sessionRepository) FilterSessions(ctx context.Context, filter session.QueryFilter) ([]session.Session, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	sessions := repo.query()

	if filter.ExamID != "" {
		var filtered []session.Session
		for _, s := range sessions {
			if s.ExamID == filter.ExamID {
				filtered = append(filtered, s)
			}
		}
		sessions = filtered
	}
	if sessions != nil && filter.LearnerID != "" {
		var filtered []session.Session
		for _, s := range sessions {
			if s.LearnerID == filter.LearnerID {
				filtered = append(filtered, s)
			}
		}
		sessions = filtered
	}
	if sessions != nil && filter.State != "" {
		var filtered []session.Session
		for _, s := range sessions {
			if s.State == filter.State {
				filtered = append(filtered, s)
			}
		}
		sessions = filtered
	}

	return sessions, nil
}

func (repo *sessionRepository) BeginSubmission(ctx context.Context, id string, submittedAt time.Time, timeSpentSeconds int) (session.Session, bool, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	s, ok := repo.db.table[id]
	if !ok {
		return session.Session{}, false, session.ErrNotFound
	}
	if s.State != session.StateInProgress {
		return *s, false, nil
	}
	s.State = session.StateSubmitted
	s.SubmittedAt = &submittedAt
	s.TimeSpentSeconds = timeSpentSeconds
	return *s, true, nil
}

func (repo *sessionRepository) UpdateSession(ctx context.Context, s session.Session) (session.Session, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[s.ID]; !ok {
		return session.Session{}, session.ErrNotFound
	}
	repo.db.table[s.ID] = &s
	return s, nil
}

func (repo *sessionRepository) UpsertAnswer(ctx context.Context, a session.Answer) (session.Answer, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	byQuestion, ok := repo.db.answers[a.SessionID]
	if !ok {
		byQuestion = make(map[string]*session.Answer)
		repo.db.answers[a.SessionID] = byQuestion
	}
	byQuestion[a.QuestionID] = &a
	return a, nil
}

func (repo *sessionRepository) GetAnswer(ctx context.Context, sessionID, questionID string) (session.Answer, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if a, ok := repo.db.answers[sessionID][questionID]; ok {
		return *a, nil
	}
	return session.Answer{}, session.ErrAnswerNotFound
}

func (repo *sessionRepository) GetSessionAnswers(ctx context.Context, sessionID string) ([]session.Answer, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	byQuestion := repo.db.answers[sessionID]
	answers := make([]session.Answer, 0, len(byQuestion))
	for _, a := range byQuestion {
		answers = append(answers, *a)
	}
	sort.Slice(answers, func(i, j int) bool { return answers[i].QuestionID < answers[j].QuestionID })
	return answers, nil
}

func (repo *sessionRepository) SetAnswerResults(ctx context.Context, sessionID string, answers []session.Answer) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	byQuestion := repo.db.answers[sessionID]
	for _, a := range answers {
		stored, ok := byQuestion[a.QuestionID]
		if !ok {
			return session.ErrAnswerNotFound
		}
		stored.IsCorrect = a.IsCorrect
	}
	return nil
}

func (repo *sessionRepository) GradeAnswer(ctx context.Context, sessionID, questionID string, score int, feedback string, gradedAt time.Time) (session.Answer, bool, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	a, ok := repo.db.answers[sessionID][questionID]
	if !ok {
		return session.Answer{}, false, session.ErrAnswerNotFound
	}
	if a.Score != nil {
		return *a, false, nil
	}
	a.Score = &score
	a.TeacherFeedback = feedback
	a.GradedAt = &gradedAt
	return *a, true, nil
}
