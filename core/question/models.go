package question

import (
	"time"

	"github.com/fluentify/backend/core"
)

// Skills
const (
	SkillListening  = "listening"
	SkillReading    = "reading"
	SkillWriting    = "writing"
	SkillSpeaking   = "speaking"
	SkillGrammar    = "grammar"
	SkillVocabulary = "vocabulary"
)

// Types
const (
	TypeMultipleChoice = "multiple_choice"
	TypeFillInBlank    = "fill_in_blank"
	TypeEssay          = "essay"
	TypeRecording      = "recording"
	TypeMatching       = "matching"
	TypeOrdering       = "ordering"
)

// CEFR levels
const (
	LevelA1 = "A1"
	LevelA2 = "A2"
	LevelB1 = "B1"
	LevelB2 = "B2"
	LevelC1 = "C1"
	LevelC2 = "C2"
)

// Media kinds
const (
	MediaImage = "image"
	MediaAudio = "audio"
	MediaVideo = "video"
)

// AutoGradable reports whether answers of the given question type can be
// scored by comparison with a stored answer key.
func AutoGradable(typ string) bool {
	switch typ {
	case TypeMultipleChoice, TypeFillInBlank, TypeMatching, TypeOrdering:
		return true
	}
	return false
}

// ManualGradable reports whether the given question type requires a teacher
// to assign a score.
func ManualGradable(typ string) bool {
	return typ == TypeEssay || typ == TypeRecording
}

type Media struct {
	URL  string `json:"url" validate:"required,url"`
	Kind string `json:"kind" validate:"required,oneof=image audio video"`
}

// Option is one of the choices offered by a choice-like question.
type Option struct {
	Key   string `json:"key" validate:"required"`
	Label string `json:"label" validate:"required"`
}

type Question struct {
	ID            string    `json:"id"`
	Skill         string    `json:"skill"`
	Type          string    `json:"type"`
	Level         string    `json:"level"`
	Content       string    `json:"content"`
	Media         *Media    `json:"media,omitempty"`
	Options       []Option  `json:"options,omitempty"`
	CorrectAnswer string    `json:"correct_answer,omitempty"`
	Explanation   string    `json:"explanation,omitempty"`
	RubricID      string    `json:"rubric_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"` // UTC
	UpdatedAt     time.Time `json:"updated_at"` // UTC
}

func (q Question) AutoGradable() bool   { return AutoGradable(q.Type) }
func (q Question) ManualGradable() bool { return ManualGradable(q.Type) }

// Redacted returns a copy safe for learner-facing reads: the answer key and
// explanation are never exposed, whatever the question type.
func (q Question) Redacted() Question {
	q.CorrectAnswer = ""
	q.Explanation = ""
	return q
}

func (q Question) HasOption(key string) bool {
	for _, opt := range q.Options {
		if opt.Key == key {
			return true
		}
	}
	return false
}

func (q Question) OptionKeys() []string {
	keys := make([]string, 0, len(q.Options))
	for _, opt := range q.Options {
		keys = append(keys, opt.Key)
	}
	return keys
}

// NewQuestion contains information needed to create a new Question.
type NewQuestion struct {
	Skill         string   `json:"skill" validate:"required,oneof=listening reading writing speaking grammar vocabulary"`
	Type          string   `json:"type" validate:"required,oneof=multiple_choice fill_in_blank essay recording matching ordering"`
	Level         string   `json:"level" validate:"required,oneof=A1 A2 B1 B2 C1 C2"`
	Content       string   `json:"content" validate:"required"`
	Media         *Media   `json:"media,omitempty"`
	Options       []Option `json:"options,omitempty" validate:"omitempty,min=2,dive"`
	CorrectAnswer string   `json:"correct_answer,omitempty"`
	Explanation   string   `json:"explanation,omitempty"`
	RubricID      string   `json:"rubric_id,omitempty" validate:"omitempty,uuid4"`
}

func (nq *NewQuestion) Validate() error {
	nq.Content = core.CleanString(nq.Content)
	nq.CorrectAnswer = core.CleanString(nq.CorrectAnswer)
	if err := core.Validate.Struct(nq); err != nil {
		return err
	}
	return validateKeyShape(nq.Type, nq.Options, nq.CorrectAnswer)
}

// UpdateQuestion defines what information may be provided to modify an
// existing Question. The type is part of the question's identity and cannot
// change; the content fields can.
type UpdateQuestion struct {
	Skill         string   `json:"skill" validate:"omitempty,oneof=listening reading writing speaking grammar vocabulary"`
	Level         string   `json:"level" validate:"omitempty,oneof=A1 A2 B1 B2 C1 C2"`
	Content       string   `json:"content"`
	Media         *Media   `json:"media,omitempty"`
	Options       []Option `json:"options,omitempty" validate:"omitempty,min=2,dive"`
	CorrectAnswer string   `json:"correct_answer,omitempty"`
	Explanation   string   `json:"explanation,omitempty"`
	RubricID      string   `json:"rubric_id,omitempty" validate:"omitempty,uuid4"`
}

func (uq *UpdateQuestion) Validate(orig Question) error {
	uq.Content = core.CleanString(uq.Content)
	uq.CorrectAnswer = core.CleanString(uq.CorrectAnswer)

	if uq.Skill == "" {
		uq.Skill = orig.Skill
	}
	if uq.Level == "" {
		uq.Level = orig.Level
	}
	if uq.Content == "" {
		uq.Content = orig.Content
	}
	if uq.Options == nil {
		uq.Options = orig.Options
	}
	if uq.CorrectAnswer == "" {
		uq.CorrectAnswer = orig.CorrectAnswer
	}

	if err := core.Validate.Struct(uq); err != nil {
		return err
	}
	return validateKeyShape(orig.Type, uq.Options, uq.CorrectAnswer)
}

type QueryFilter struct {
	Search string `query:"search"`
	Skill  string `query:"skill"`
	Type   string `query:"type"`
	Level  string `query:"level"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Skill == "" && qf.Type == "" && qf.Level == ""
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
