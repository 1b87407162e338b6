package session

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"

	"github.com/fluentify/backend/core"
	"github.com/fluentify/backend/core/exam"
	"github.com/fluentify/backend/core/question"
	"github.com/fluentify/backend/core/user"
)

var (
	// errors
	ErrNotFound          = errors.New("session not found")
	ErrAnswerNotFound    = errors.New("answer not found")
	ErrActiveExists      = errors.New("an active session already exists for this exam")
	ErrClosed            = errors.New("session no longer accepts answers")
	ErrForbidden         = errors.New("no access to this session")
	ErrQuestionNotInExam = errors.New("question is not part of this exam")
	ErrNotGradable       = errors.New("answer does not take a manual grade")
	ErrAlreadyGraded     = errors.New("answer has already been graded")
	ErrNotGrading        = errors.New("session is not awaiting manual grading")
	ErrNotSubmitted      = errors.New("session has not been submitted yet")
)

type (
	Repository interface {
		// CreateSession fails with ErrActiveExists when the learner already
		// has a non-completed session for the same exam. The check and the
		// insert are atomic.
		CreateSession(ctx context.Context, s Session) (Session, error)
		GetSessionByID(ctx context.Context, id string) (Session, error)
		// FilterSessions applies AND operation on available QueryFilter fields.
		FilterSessions(ctx context.Context, filter QueryFilter) ([]Session, error)
		// BeginSubmission moves the session out of in_progress. The state
		// check and the update are atomic; won reports whether this call
		// performed the transition.
		BeginSubmission(ctx context.Context, id string, submittedAt time.Time, timeSpentSeconds int) (s Session, won bool, err error)
		UpdateSession(ctx context.Context, s Session) (Session, error)

		// UpsertAnswer replaces any previous answer to the same question.
		UpsertAnswer(ctx context.Context, a Answer) (Answer, error)
		GetAnswer(ctx context.Context, sessionID, questionID string) (Answer, error)
		GetSessionAnswers(ctx context.Context, sessionID string) ([]Answer, error)
		// SetAnswerResults persists correctness verdicts for stored answers.
		SetAnswerResults(ctx context.Context, sessionID string, answers []Answer) error
		// GradeAnswer assigns a manual score to an ungraded answer. The
		// ungraded check and the update are atomic; won reports whether this
		// call assigned the score.
		GradeAnswer(ctx context.Context, sessionID, questionID string, score int, feedback string, gradedAt time.Time) (a Answer, won bool, err error)
	}

	Service struct {
		repo    Repository
		examSvc *exam.Service
		usrRepo user.Repository
		mailSvc core.EmailService
		conf    *core.Config
	}
)

func NewService(repo Repository, examSvc *exam.Service, usrRepo user.Repository, mailSvc core.EmailService, conf *core.Config) *Service {
	return &Service{
		repo:    repo,
		examSvc: examSvc,
		usrRepo: usrRepo,
		mailSvc: mailSvc,
		conf:    conf,
	}
}

// Start opens a new session for the learner on a published exam and returns
// it together with the redacted question list. The time budget is captured
// from the exam at this instant.
func (svc *Service) Start(ctx context.Context, learner user.User, examID string) (Session, []question.Question, error) {
	exm, err := svc.examSvc.GetByID(ctx, examID)
	if err != nil {
		return Session{}, nil, err
	}
	if !exm.IsOpen() {
		if learner.IsTeacher() || learner.IsAdmin() {
			return Session{}, nil, exam.ErrNotOpen
		}
		return Session{}, nil, exam.ErrNotFound
	}

	s := Session{
		ID:                uuid.New().String(),
		ExamID:            exm.ID,
		LearnerID:         learner.ID,
		State:             StateInProgress,
		StartedAt:         nowFunc().UTC(),
		TimeBudgetSeconds: exm.TimeBudgetSeconds(),
	}
	s, err = svc.repo.CreateSession(ctx, s)
	if err != nil {
		return Session{}, nil, err
	}

	qs, err := svc.examSvc.Questions(ctx, exm)
	if err != nil {
		return Session{}, nil, err
	}
	for i, q := range qs {
		qs[i] = q.Redacted()
	}
	return s, qs, nil
}

// Get returns the session after applying lazy expiry: an in_progress session
// whose time budget has run out is finalized as if submitted at the deadline.
func (svc *Service) Get(ctx context.Context, viewer user.User, id string) (Session, error) {
	s, err := svc.repo.GetSessionByID(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if err = checkAccess(viewer, s); err != nil {
		return Session{}, err
	}
	return svc.expireIfDue(ctx, s)
}

// Filter lists sessions; learners only ever see their own.
func (svc *Service) Filter(ctx context.Context, viewer user.User, filter QueryFilter) ([]Session, error) {
	if !viewer.IsTeacher() && !viewer.IsAdmin() {
		filter.LearnerID = viewer.ID
	}
	return svc.repo.FilterSessions(ctx, filter)
}

// RecordAnswer stores the learner's response to one question, replacing any
// previous response. Only open, unexpired sessions accept answers.
func (svc *Service) RecordAnswer(ctx context.Context, learner user.User, sessionID string, na NewAnswer) (Answer, error) {
	s, err := svc.repo.GetSessionByID(ctx, sessionID)
	if err != nil {
		return Answer{}, err
	}
	if s.LearnerID != learner.ID {
		return Answer{}, ErrForbidden
	}

	s, err = svc.expireIfDue(ctx, s)
	if err != nil {
		return Answer{}, err
	}
	if !s.Open() {
		return Answer{}, ErrClosed
	}

	exm, err := svc.examSvc.GetByID(ctx, s.ExamID)
	if err != nil {
		return Answer{}, err
	}
	if !exm.ReferencesQuestion(na.QuestionID) {
		return Answer{}, ErrQuestionNotInExam
	}
	q, err := svc.examSvc.Question(ctx, na.QuestionID)
	if err != nil {
		return Answer{}, err
	}
	if err = na.Validate(q); err != nil {
		return Answer{}, err
	}

	return svc.repo.UpsertAnswer(ctx, Answer{
		SessionID:  s.ID,
		QuestionID: q.ID,
		Type:       answerType(q.Type),
		Content:    na.Content,
		UpdatedAt:  nowFunc().UTC(),
	})
}

// Submit closes the session and scores it. Submitting an already closed
// session is idempotent and returns the stored result.
func (svc *Service) Submit(ctx context.Context, learner user.User, sessionID string) (Result, error) {
	s, err := svc.repo.GetSessionByID(ctx, sessionID)
	if err != nil {
		return Result{}, err
	}
	if s.LearnerID != learner.ID {
		return Result{}, ErrForbidden
	}

	now := nowFunc().UTC()
	submittedAt := now
	if s.Expired(now) {
		submittedAt = s.Deadline()
	}
	return svc.submitAt(ctx, s, submittedAt)
}

// Results returns the scored outcome of a closed session.
func (svc *Service) Results(ctx context.Context, viewer user.User, sessionID string) (Result, error) {
	s, err := svc.Get(ctx, viewer, sessionID)
	if err != nil {
		return Result{}, err
	}
	if s.Open() {
		return Result{}, ErrNotSubmitted
	}
	qs, err := svc.examQuestions(ctx, s.ExamID)
	if err != nil {
		return Result{}, err
	}
	answers, err := svc.answerIndex(ctx, s.ID)
	if err != nil {
		return Result{}, err
	}
	return buildResult(s, qs, answers), nil
}

// GradeAnswer assigns a teacher's score to one manually graded answer. When
// the last pending answer is graded the session completes and the learner is
// notified. A score sticks: regrading is rejected. Only the exam owner or an
// admin may grade.
func (svc *Service) GradeAnswer(ctx context.Context, grader user.User, sessionID, questionID string, gi GradeInput) (Result, error) {
	s, err := svc.repo.GetSessionByID(ctx, sessionID)
	if err != nil {
		return Result{}, err
	}
	if err = svc.checkGrader(ctx, grader, s); err != nil {
		return Result{}, err
	}
	if s.State != StateGrading {
		if s.Open() {
			return Result{}, ErrNotSubmitted
		}
		return Result{}, ErrNotGrading
	}

	q, err := svc.examSvc.Question(ctx, questionID)
	if err != nil {
		return Result{}, err
	}
	if !q.ManualGradable() {
		return Result{}, ErrNotGradable
	}
	if _, err = svc.repo.GetAnswer(ctx, sessionID, questionID); err != nil {
		return Result{}, err
	}

	_, won, err := svc.repo.GradeAnswer(ctx, sessionID, questionID, gi.Score, gi.TeacherFeedback, nowFunc().UTC())
	if err != nil {
		return Result{}, err
	}
	if !won {
		return Result{}, ErrAlreadyGraded
	}

	return svc.settle(ctx, s)
}

// SetGeneralFeedback attaches a teacher's overall comment to a closed session.
// Only the exam owner or an admin may leave feedback.
func (svc *Service) SetGeneralFeedback(ctx context.Context, grader user.User, sessionID string, fi FeedbackInput) (Session, error) {
	s, err := svc.repo.GetSessionByID(ctx, sessionID)
	if err != nil {
		return Session{}, err
	}
	if err = svc.checkGrader(ctx, grader, s); err != nil {
		return Session{}, err
	}
	if s.Open() {
		return Session{}, ErrNotSubmitted
	}
	s.GeneralFeedback = fi.GeneralFeedback
	return svc.repo.UpdateSession(ctx, s)
}

// checkGrader restricts grading operations to the exam owner and admins.
func (svc *Service) checkGrader(ctx context.Context, grader user.User, s Session) error {
	if grader.IsAdmin() {
		return nil
	}
	exm, err := svc.examSvc.GetByID(ctx, s.ExamID)
	if err != nil {
		return err
	}
	if exm.OwnerID != grader.ID {
		return ErrForbidden
	}
	return nil
}

// expireIfDue finalizes a session whose time budget ran out, as if it had
// been submitted at the deadline with whatever answers were stored.
func (svc *Service) expireIfDue(ctx context.Context, s Session) (Session, error) {
	if !s.Expired(nowFunc().UTC()) {
		return s, nil
	}
	if _, err := svc.submitAt(ctx, s, s.Deadline()); err != nil {
		return Session{}, err
	}
	return svc.repo.GetSessionByID(ctx, s.ID)
}

// submitAt performs the in_progress -> submitted transition and scoring.
// Exactly one caller wins the transition; losers return the stored result.
func (svc *Service) submitAt(ctx context.Context, s Session, submittedAt time.Time) (Result, error) {
	if !s.Open() {
		return svc.storedResult(ctx, s)
	}

	timeSpent := int(submittedAt.Sub(s.StartedAt) / time.Second)
	if timeSpent > s.TimeBudgetSeconds {
		timeSpent = s.TimeBudgetSeconds
	}
	if timeSpent < 0 {
		timeSpent = 0
	}

	s, won, err := svc.repo.BeginSubmission(ctx, s.ID, submittedAt, timeSpent)
	if err != nil {
		return Result{}, err
	}
	if !won {
		return svc.storedResult(ctx, s)
	}
	return svc.score(ctx, s)
}

// score runs auto-scoring, persists verdicts for stored answers and settles
// the session state.
func (svc *Service) score(ctx context.Context, s Session) (Result, error) {
	qs, err := svc.examQuestions(ctx, s.ExamID)
	if err != nil {
		return Result{}, err
	}
	answers, err := svc.answerIndex(ctx, s.ID)
	if err != nil {
		return Result{}, err
	}

	entries, _ := scoreAuto(s.ID, qs, answers)
	var stored []Answer
	for _, a := range entries {
		if _, ok := answers[a.QuestionID]; ok {
			stored = append(stored, a)
			answers[a.QuestionID] = a
		}
	}
	if len(stored) > 0 {
		if err = svc.repo.SetAnswerResults(ctx, s.ID, stored); err != nil {
			return Result{}, err
		}
	}
	return svc.settleWith(ctx, s, qs, answers)
}

// settle recomputes the session outcome from stored answers; used after a
// manual grade lands.
func (svc *Service) settle(ctx context.Context, s Session) (Result, error) {
	qs, err := svc.examQuestions(ctx, s.ExamID)
	if err != nil {
		return Result{}, err
	}
	answers, err := svc.answerIndex(ctx, s.ID)
	if err != nil {
		return Result{}, err
	}
	return svc.settleWith(ctx, s, qs, answers)
}

func (svc *Service) settleWith(ctx context.Context, s Session, qs []question.Question, answers map[string]Answer) (Result, error) {
	exm, err := svc.examSvc.GetByID(ctx, s.ExamID)
	if err != nil {
		return Result{}, err
	}

	_, auto := scoreAuto(s.ID, qs, answers)
	manual, pending := manualAverage(qs, answers)

	prev := s.State
	// only answers awaiting a teacher's grade keep the session open; an exam
	// without manual-gradable questions completes on the auto score alone
	if pending > 0 {
		s.State = StateGrading
		s.TotalScore = nil
	} else {
		s.State = StateCompleted
		s.TotalScore = totalScore(exm, auto, manual)
	}
	s, err = svc.repo.UpdateSession(ctx, s)
	if err != nil {
		return Result{}, err
	}

	if s.State != prev {
		switch s.State {
		case StateGrading:
			svc.notifyGradingNeeded(ctx, exm, s)
		case StateCompleted:
			svc.notifyCompleted(ctx, exm, s)
		}
	}
	return buildResult(s, qs, answers), nil
}

func (svc *Service) storedResult(ctx context.Context, s Session) (Result, error) {
	if s.Open() {
		// submission raced; re-read the closed row
		var err error
		if s, err = svc.repo.GetSessionByID(ctx, s.ID); err != nil {
			return Result{}, err
		}
	}
	qs, err := svc.examQuestions(ctx, s.ExamID)
	if err != nil {
		return Result{}, err
	}
	answers, err := svc.answerIndex(ctx, s.ID)
	if err != nil {
		return Result{}, err
	}
	return buildResult(s, qs, answers), nil
}

func (svc *Service) examQuestions(ctx context.Context, examID string) ([]question.Question, error) {
	exm, err := svc.examSvc.GetByID(ctx, examID)
	if err != nil {
		return nil, err
	}
	return svc.examSvc.Questions(ctx, exm)
}

func (svc *Service) answerIndex(ctx context.Context, sessionID string) (map[string]Answer, error) {
	stored, err := svc.repo.GetSessionAnswers(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	answers := make(map[string]Answer, len(stored))
	for _, a := range stored {
		answers[a.QuestionID] = a
	}
	return answers, nil
}

// buildResult assembles the per-question breakdown in exam order. Auto
// questions always appear, answered or not; manual questions appear once
// answered.
func buildResult(s Session, qs []question.Question, answers map[string]Answer) Result {
	res := Result{
		SessionID:        s.ID,
		State:            s.State,
		TotalScore:       s.TotalScore,
		TimeSpentSeconds: s.TimeSpentSeconds,
		GeneralFeedback:  s.GeneralFeedback,
	}
	entries, _ := scoreAuto(s.ID, qs, answers)
	byID := make(map[string]Answer, len(entries))
	for _, a := range entries {
		byID[a.QuestionID] = a
	}
	for _, q := range qs {
		if a, ok := byID[q.ID]; ok {
			res.PerQuestion = append(res.PerQuestion, a)
			continue
		}
		if a, ok := answers[q.ID]; ok {
			res.PerQuestion = append(res.PerQuestion, a)
		}
	}
	return res
}

func checkAccess(viewer user.User, s Session) error {
	if viewer.ID == s.LearnerID || viewer.IsTeacher() || viewer.IsAdmin() {
		return nil
	}
	return ErrForbidden
}

func (svc *Service) notifyGradingNeeded(ctx context.Context, exm exam.Exam, s Session) {
	owner, err := svc.usrRepo.GetUser(ctx, user.GetFilter{ID: exm.OwnerID})
	if err != nil {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: owner.Name, Address: owner.Email}},
		Subject: fmt.Sprintf("A submission for %q is awaiting grading", exm.Title),
		BodyStr: fmt.Sprintf(
			"A learner submitted %q and some answers need a manual grade.\nReview it at %s/sessions/%s",
			exm.Title, svc.conf.FrontendBaseURL, s.ID,
		),
	})
}

func (svc *Service) notifyCompleted(ctx context.Context, exm exam.Exam, s Session) {
	learner, err := svc.usrRepo.GetUser(ctx, user.GetFilter{ID: s.LearnerID})
	if err != nil {
		return
	}
	score := "-"
	if s.TotalScore != nil {
		score = fmt.Sprintf("%d%%", *s.TotalScore)
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: learner.Name, Address: learner.Email}},
		Subject: fmt.Sprintf("Your results for %q are ready", exm.Title),
		BodyStr: fmt.Sprintf(
			"Your session for %q has been graded. Score: %s.\nSee the details at %s/sessions/%s/results",
			exm.Title, score, svc.conf.FrontendBaseURL, s.ID,
		),
	})
}
