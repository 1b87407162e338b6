package exam_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluentify/backend/core"
	"github.com/fluentify/backend/core/exam"
	"github.com/fluentify/backend/core/question"
	"github.com/fluentify/backend/core/session"
	"github.com/fluentify/backend/core/user"
	dummydb "github.com/fluentify/backend/storage/database/dummy"
	testutil "github.com/fluentify/backend/tests"
)

var ctx = context.Background()

type testEnv struct {
	usrRepo  user.Repository
	qRepo    question.Repository
	sessRepo session.Repository

	examSvc *exam.Service
	qSvc    *question.Service

	teacher user.User
	learner user.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := dummydb.Open()
	require.NoError(t, err)

	env := &testEnv{
		usrRepo:  dummydb.NewUserRepository(db),
		qRepo:    dummydb.NewQuestionRepository(db),
		sessRepo: dummydb.NewSessionRepository(db),
	}
	examRepo := dummydb.NewExamRepository(db)
	env.examSvc = exam.NewService(examRepo, env.qRepo)
	env.qSvc = question.NewService(env.qRepo, examRepo)

	env.teacher = testutil.CreateUser(t, env.usrRepo, "Tea Cher", "teacher1", "teacher@test.com", "", []string{user.RoleTeacher}, true)
	env.learner = testutil.CreateUser(t, env.usrRepo, "Lea Rner", "learner1", "learner@test.com", "", []string{user.RoleLearner}, true)
	return env
}

func (env *testEnv) mcQuestion(t *testing.T) question.Question {
	t.Helper()
	return testutil.CreateQuestion(t, env.qRepo, question.TypeMultipleChoice, "Pick A",
		[]question.Option{{Key: "a", Label: "A"}, {Key: "b", Label: "B"}}, "a")
}

func (env *testEnv) essayQuestion(t *testing.T) question.Question {
	t.Helper()
	return testutil.CreateQuestion(t, env.qRepo, question.TypeEssay, "Describe your weekend", nil, "")
}

func TestCreateExam(t *testing.T) {
	env := newTestEnv(t)
	mc := env.mcQuestion(t)
	essay := env.essayQuestion(t)

	t.Run("starts as draft with the default manual weight", func(t *testing.T) {
		exm, err := env.examSvc.Create(ctx, env.teacher, exam.NewExam{
			Title:           "Grammar Check",
			DurationMinutes: 30,
			GradingMethod:   exam.GradingAuto,
			QuestionIDs:     []string{mc.ID},
		})
		require.NoError(t, err)
		assert.Equal(t, exam.StatusDraft, exm.Status)
		assert.Equal(t, env.teacher.ID, exm.OwnerID)
		assert.Equal(t, exam.DefaultManualWeight, exm.ManualWeight)
	})

	t.Run("auto grading rejects essay questions", func(t *testing.T) {
		_, err := env.examSvc.Create(ctx, env.teacher, exam.NewExam{
			Title:           "Writing Test",
			DurationMinutes: 45,
			GradingMethod:   exam.GradingAuto,
			QuestionIDs:     []string{essay.ID},
		})
		var vErr *core.ValidationError
		assert.True(t, errors.As(err, &vErr))
	})

	t.Run("unknown question reference rejected", func(t *testing.T) {
		_, err := env.examSvc.Create(ctx, env.teacher, exam.NewExam{
			Title:           "Grammar Check",
			DurationMinutes: 30,
			GradingMethod:   exam.GradingAuto,
			QuestionIDs:     []string{"0a659442-9e09-41a1-a061-e88bcdcc6ae6"},
		})
		var vErr *core.ValidationError
		assert.True(t, errors.As(err, &vErr))
	})
}

func TestPublishAndArchive(t *testing.T) {
	env := newTestEnv(t)
	mc := env.mcQuestion(t)

	empty, err := env.examSvc.Create(ctx, env.teacher, exam.NewExam{
		Title: "Empty", DurationMinutes: 10, GradingMethod: exam.GradingAuto,
	})
	require.NoError(t, err)
	_, err = env.examSvc.Publish(ctx, empty.ID)
	assert.Equal(t, exam.ErrNoQuestions, err)

	exm, err := env.examSvc.Create(ctx, env.teacher, exam.NewExam{
		Title: "Grammar Check", DurationMinutes: 30, GradingMethod: exam.GradingAuto,
		QuestionIDs: []string{mc.ID},
	})
	require.NoError(t, err)

	exm, err = env.examSvc.Publish(ctx, exm.ID)
	require.NoError(t, err)
	assert.Equal(t, exam.StatusPublished, exm.Status)

	_, err = env.examSvc.Publish(ctx, exm.ID)
	assert.Equal(t, exam.ErrInvalidState, err)

	exm, err = env.examSvc.Archive(ctx, exm.ID)
	require.NoError(t, err)
	assert.Equal(t, exam.StatusArchived, exm.Status)

	_, err = env.examSvc.Archive(ctx, exm.ID)
	assert.Equal(t, exam.ErrInvalidState, err)
}

func TestUpdateFreezesPublishedExams(t *testing.T) {
	env := newTestEnv(t)
	mc := env.mcQuestion(t)
	other := env.mcQuestion(t)

	exm, err := env.examSvc.Create(ctx, env.teacher, exam.NewExam{
		Title: "Grammar Check", DurationMinutes: 30, GradingMethod: exam.GradingAuto,
		QuestionIDs: []string{mc.ID},
	})
	require.NoError(t, err)
	_, err = env.examSvc.Publish(ctx, exm.ID)
	require.NoError(t, err)

	_, err = env.examSvc.Update(ctx, exm.ID, exam.UpdateExam{QuestionIDs: []string{other.ID}})
	assert.Equal(t, exam.ErrFrozen, err)

	duration := 60
	_, err = env.examSvc.Update(ctx, exm.ID, exam.UpdateExam{DurationMinutes: &duration})
	assert.Equal(t, exam.ErrFrozen, err)

	// cosmetic fields stay editable
	got, err := env.examSvc.Update(ctx, exm.ID, exam.UpdateExam{Title: "Grammar Check v2"})
	require.NoError(t, err)
	assert.Equal(t, "Grammar Check v2", got.Title)
}

func TestUpdateLocksScoringOnceExamIsTaken(t *testing.T) {
	env := newTestEnv(t)
	mc := env.mcQuestion(t)

	exm, err := env.examSvc.Create(ctx, env.teacher, exam.NewExam{
		Title: "Grammar Check", DurationMinutes: 30, GradingMethod: exam.GradingAuto,
		QuestionIDs: []string{mc.ID},
	})
	require.NoError(t, err)
	_, err = env.examSvc.Publish(ctx, exm.ID)
	require.NoError(t, err)

	// scoring fields stay editable until someone takes the exam
	pass := 60
	got, err := env.examSvc.Update(ctx, exm.ID, exam.UpdateExam{PassScore: &pass})
	require.NoError(t, err)
	require.NotNil(t, got.PassScore)
	assert.Equal(t, 60, *got.PassScore)

	_, err = env.sessRepo.CreateSession(ctx, session.Session{
		ExamID:            exm.ID,
		LearnerID:         env.learner.ID,
		State:             session.StateInProgress,
		StartedAt:         time.Now().UTC(),
		TimeBudgetSeconds: 30 * 60,
	})
	require.NoError(t, err)

	pass = 70
	_, err = env.examSvc.Update(ctx, exm.ID, exam.UpdateExam{PassScore: &pass})
	assert.Equal(t, exam.ErrScoringInUse, err)

	weight := 40
	_, err = env.examSvc.Update(ctx, exm.ID, exam.UpdateExam{ManualWeight: &weight})
	assert.Equal(t, exam.ErrScoringInUse, err)

	// cosmetic fields are still fine
	_, err = env.examSvc.Update(ctx, exm.ID, exam.UpdateExam{Description: "Thirty minutes, one attempt."})
	require.NoError(t, err)
}

func TestAssemble(t *testing.T) {
	env := newTestEnv(t)
	mc := env.mcQuestion(t)

	exm, err := env.examSvc.Create(ctx, env.teacher, exam.NewExam{
		Title: "Grammar Check", DurationMinutes: 30, GradingMethod: exam.GradingAuto,
		QuestionIDs: []string{mc.ID},
	})
	require.NoError(t, err)

	t.Run("drafts are invisible to learners", func(t *testing.T) {
		_, _, err := env.examSvc.Assemble(ctx, exm.ID, env.learner)
		assert.Equal(t, exam.ErrNotFound, err)
	})

	t.Run("teachers see drafts unredacted", func(t *testing.T) {
		_, qs, err := env.examSvc.Assemble(ctx, exm.ID, env.teacher)
		require.NoError(t, err)
		require.Len(t, qs, 1)
		assert.Equal(t, "a", qs[0].CorrectAnswer)
	})

	t.Run("learners get redacted questions", func(t *testing.T) {
		_, err := env.examSvc.Publish(ctx, exm.ID)
		require.NoError(t, err)
		_, qs, err := env.examSvc.Assemble(ctx, exm.ID, env.learner)
		require.NoError(t, err)
		require.Len(t, qs, 1)
		assert.Empty(t, qs[0].CorrectAnswer)
		assert.Len(t, qs[0].Options, 2)
	})
}

func TestQuestionDeleteGuard(t *testing.T) {
	env := newTestEnv(t)
	mc := env.mcQuestion(t)
	unused := env.mcQuestion(t)

	exm, err := env.examSvc.Create(ctx, env.teacher, exam.NewExam{
		Title: "Grammar Check", DurationMinutes: 30, GradingMethod: exam.GradingAuto,
		QuestionIDs: []string{mc.ID},
	})
	require.NoError(t, err)
	_, err = env.examSvc.Publish(ctx, exm.ID)
	require.NoError(t, err)

	err = env.qSvc.Delete(ctx, mc.ID)
	assert.Equal(t, question.ErrInUse, err)

	assert.NoError(t, env.qSvc.Delete(ctx, unused.ID))
}
