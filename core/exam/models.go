package exam

import (
	"time"

	"github.com/fluentify/backend/core"
)

// Statuses
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusArchived  = "archived"
)

// Grading methods
const (
	GradingAuto   = "auto"
	GradingManual = "manual"
	GradingHybrid = "hybrid"
)

// DefaultManualWeight is used when an exam does not specify how teacher
// scores blend with the auto score.
const DefaultManualWeight = 50

type Exam struct {
	ID              string    `json:"id"`
	OwnerID         string    `json:"owner_id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	DurationMinutes int       `json:"duration_minutes"`
	PassScore       *int      `json:"pass_score,omitempty"`
	GradingMethod   string    `json:"grading_method"`
	ManualWeight    int       `json:"manual_weight"`
	QuestionIDs     []string  `json:"question_ids"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"` // UTC
	UpdatedAt       time.Time `json:"updated_at"` // UTC
}

// IsOpen reports whether learners may start new sessions against this exam.
func (e Exam) IsOpen() bool { return e.Status == StatusPublished }

// TimeBudgetSeconds is the server-enforced maximum duration of a session,
// fixed at session start time.
func (e Exam) TimeBudgetSeconds() int { return e.DurationMinutes * 60 }

func (e Exam) ReferencesQuestion(id string) bool {
	for _, qid := range e.QuestionIDs {
		if qid == id {
			return true
		}
	}
	return false
}

// NewExam contains information needed to create a new Exam. Exams are always
// created as drafts; the question list may be filled in before publication.
type NewExam struct {
	Title           string   `json:"title" validate:"required"`
	Description     string   `json:"description"`
	DurationMinutes int      `json:"duration_minutes" validate:"required,gt=0"`
	PassScore       *int     `json:"pass_score,omitempty" validate:"omitempty,min=0,max=100"`
	GradingMethod   string   `json:"grading_method" validate:"required,oneof=auto manual hybrid"`
	ManualWeight    *int     `json:"manual_weight,omitempty" validate:"omitempty,min=0,max=100"`
	QuestionIDs     []string `json:"question_ids" validate:"omitempty,unique,dive,uuid4"`
}

func (ne *NewExam) Validate() error {
	ne.Title = core.CleanString(ne.Title)
	ne.Description = core.CleanString(ne.Description)
	return core.Validate.Struct(ne)
}

// UpdateExam defines what information may be provided to modify an existing
// Exam. The question list, grading method and duration are frozen once the
// exam leaves draft; sessions capture their time budget at start, and the
// question list is referenced rather than copied.
type UpdateExam struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	DurationMinutes *int     `json:"duration_minutes,omitempty" validate:"omitempty,gt=0"`
	PassScore       *int     `json:"pass_score,omitempty" validate:"omitempty,min=0,max=100"`
	GradingMethod   string   `json:"grading_method" validate:"omitempty,oneof=auto manual hybrid"`
	ManualWeight    *int     `json:"manual_weight,omitempty" validate:"omitempty,min=0,max=100"`
	QuestionIDs     []string `json:"question_ids" validate:"omitempty,unique,dive,uuid4"`
}

func (ue *UpdateExam) Validate() error {
	ue.Title = core.CleanString(ue.Title)
	ue.Description = core.CleanString(ue.Description)
	return core.Validate.Struct(ue)
}

type QueryFilter struct {
	Search  string `query:"search"`
	Status  string `query:"status"`
	OwnerID string `query:"-"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Status == "" && qf.OwnerID == ""
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Status = core.CleanString(qf.Status, true /* lower */)
}
