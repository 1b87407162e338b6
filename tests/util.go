package testutil

import (
	"context"
	"net/mail"
	"testing"
	"time"

	"github.com/fluentify/backend/core"
	"github.com/fluentify/backend/core/exam"
	"github.com/fluentify/backend/core/question"
	"github.com/fluentify/backend/core/user"
)

// NewConfig returns a self-contained configuration for tests; nothing in it
// reaches external services.
func NewConfig() *core.Config {
	return &core.Config{
		Debug:            true,
		TestMode:         true,
		Env:              "test",
		AppName:          "Fluentify",
		SecretKey:        []byte("secret"),
		FrontendBaseURL:  "https://app.fluentify.test",
		DefaultFromEmail: mail.Address{Name: "Fluentify", Address: "noreply@fluentify.test"},
		Server: core.ServerConfig{
			JWTExpirationDelta:        10 * time.Minute,
			JWTRefreshExpirationDelta: 4 * time.Hour,
			PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
		},
	}
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateQuestion(
	t *testing.T,
	repo question.Repository,
	typ, content string,
	opts []question.Option,
	correctAnswer string,
) question.Question {
	t.Helper()

	tstamp := time.Now().UTC()
	q := question.Question{
		Skill:         question.SkillGrammar,
		Type:          typ,
		Level:         question.LevelB1,
		Content:       content,
		Options:       opts,
		CorrectAnswer: correctAnswer,
		CreatedAt:     tstamp,
		UpdatedAt:     tstamp,
	}
	q, err := repo.CreateQuestion(context.Background(), q)
	if err != nil {
		t.Fatalf("CreateQuestion() failed: %v", err)
	}
	return q
}

func CreateExam(
	t *testing.T,
	repo exam.Repository,
	owner user.User,
	title, gradingMethod, status string,
	durationMinutes int,
	questionIDs ...string,
) exam.Exam {
	t.Helper()

	tstamp := time.Now().UTC()
	exm := exam.Exam{
		OwnerID:         owner.ID,
		Title:           title,
		DurationMinutes: durationMinutes,
		GradingMethod:   gradingMethod,
		ManualWeight:    exam.DefaultManualWeight,
		QuestionIDs:     questionIDs,
		Status:          status,
		CreatedAt:       tstamp,
		UpdatedAt:       tstamp,
	}
	exm, err := repo.CreateExam(context.Background(), exm)
	if err != nil {
		t.Fatalf("CreateExam() failed: %v", err)
	}
	return exm
}
