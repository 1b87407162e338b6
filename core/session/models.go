package session

import (
	"time"
)

// States
const (
	StateInProgress = "in_progress"
	StateSubmitted  = "submitted"
	StateGrading    = "grading"
	StateCompleted  = "completed"
)

// nowFunc allows tests to freeze time.
var nowFunc = time.Now

// Answer is a learner's response to one question within a session. IsCorrect
// and Score stay nil until the session is scored; TeacherFeedback is only set
// by manual grading.
type Answer struct {
	SessionID       string     `json:"-"`
	QuestionID      string     `json:"question_id"`
	Type            string     `json:"answer_type"`
	Content         string     `json:"content"`
	IsCorrect       *bool      `json:"is_correct,omitempty"`
	Score           *int       `json:"score,omitempty"`
	TeacherFeedback string     `json:"teacher_feedback,omitempty"`
	UpdatedAt       time.Time  `json:"updated_at"` // UTC
	GradedAt        *time.Time `json:"graded_at,omitempty"`
}

// Graded reports whether a manual score has been assigned.
func (a Answer) Graded() bool { return a.Score != nil }

// Session is one learner's attempt at one exam. The time budget is captured
// at start so later exam edits never affect a running attempt.
type Session struct {
	ID                string     `json:"id"`
	ExamID            string     `json:"exam_id"`
	LearnerID         string     `json:"learner_id"`
	State             string     `json:"state"`
	StartedAt         time.Time  `json:"started_at"` // UTC
	TimeBudgetSeconds int        `json:"time_budget_seconds"`
	SubmittedAt       *time.Time `json:"submitted_at,omitempty"`
	TimeSpentSeconds  int        `json:"time_spent_seconds"`
	TotalScore        *int       `json:"total_score,omitempty"`
	GeneralFeedback   string     `json:"general_feedback,omitempty"`
}

// Open reports whether the session still accepts answers.
func (s Session) Open() bool { return s.State == StateInProgress }

// Terminal reports whether the session has reached a final state.
func (s Session) Terminal() bool { return s.State == StateCompleted }

// Deadline is the instant at which the session's time budget runs out.
func (s Session) Deadline() time.Time {
	return s.StartedAt.Add(time.Duration(s.TimeBudgetSeconds) * time.Second)
}

// Expired reports whether the time budget has run out for a session that was
// never submitted. Expiry is detected lazily, on the next access.
func (s Session) Expired(now time.Time) bool {
	return s.State == StateInProgress && now.After(s.Deadline())
}

// Result is the scored outcome of a session. TotalScore stays nil while
// manual grading is pending. PerQuestion lists one entry per answerable
// question, including unanswered auto-gradable ones.
type Result struct {
	SessionID        string   `json:"session_id"`
	State            string   `json:"state"`
	TotalScore       *int     `json:"total_score,omitempty"`
	TimeSpentSeconds int      `json:"time_spent_seconds"`
	GeneralFeedback  string   `json:"general_feedback,omitempty"`
	PerQuestion      []Answer `json:"per_question_results"`
}

type QueryFilter struct {
	ExamID    string `query:"exam_id"`
	LearnerID string `query:"-"`
	State     string `query:"state"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.ExamID == "" && qf.LearnerID == "" && qf.State == ""
}
