package session

import (
	"net/url"

	"github.com/fluentify/backend/core"
	"github.com/fluentify/backend/core/question"
)

// Answer wire types
const (
	AnswerTypeSelectedOption = "selected_option"
	AnswerTypeText           = "text"
	AnswerTypeMediaURL       = "media_url"
)

const (
	unknownOptionText   = "content must be one of the offered option keys"
	badSequenceText     = "content must list offered option keys at most once each"
	badPairsText        = "content must be a list of left:right pairs over offered option keys"
	badMediaURLText     = "content must be an http(s) URL"
	contentRequiredText = "content is required"
)

// answerType maps a question type to the wire shape of its answers.
func answerType(questionType string) string {
	switch questionType {
	case question.TypeMultipleChoice, question.TypeMatching, question.TypeOrdering:
		return AnswerTypeSelectedOption
	case question.TypeRecording:
		return AnswerTypeMediaURL
	}
	return AnswerTypeText
}

// NewAnswer contains a learner's response to one question.
type NewAnswer struct {
	QuestionID string `json:"question_id" validate:"required,uuid4"`
	Content    string `json:"content"`
}

// Validate checks the answer content against the question's type. The
// content is kept verbatim; scoring applies its own normalization.
func (na *NewAnswer) Validate(q question.Question) error {
	contentErr := func(text string) error {
		return core.NewValidationError(nil, core.FieldError{Field: "content", Error: text})
	}

	if err := core.Validate.Struct(na); err != nil {
		return err
	}
	if core.CleanString(na.Content) == "" {
		return contentErr(contentRequiredText)
	}

	switch q.Type {
	case question.TypeMultipleChoice:
		if !q.HasOption(na.Content) {
			return contentErr(unknownOptionText)
		}

	case question.TypeOrdering:
		keys := question.SplitKeys(na.Content)
		seen := make(map[string]bool, len(keys))
		for _, k := range keys {
			if seen[k] || !q.HasOption(k) {
				return contentErr(badSequenceText)
			}
			seen[k] = true
		}

	case question.TypeMatching:
		pairs, ok := question.SplitPairs(na.Content)
		if !ok || len(pairs) == 0 {
			return contentErr(badPairsText)
		}
		for _, p := range pairs {
			if !q.HasOption(p[0]) {
				return contentErr(badPairsText)
			}
		}

	case question.TypeRecording:
		u, err := url.Parse(na.Content)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return contentErr(badMediaURLText)
		}
	}
	return nil
}

// GradeInput is a teacher's manual score for one answer.
type GradeInput struct {
	Score           int    `json:"score" validate:"min=0,max=100"`
	TeacherFeedback string `json:"teacher_feedback"`
}

func (gi *GradeInput) Validate() error {
	gi.TeacherFeedback = core.CleanString(gi.TeacherFeedback)
	return core.Validate.Struct(gi)
}

// FeedbackInput is a teacher's free-form comment on a whole session.
type FeedbackInput struct {
	GeneralFeedback string `json:"general_feedback" validate:"required"`
}

func (fi *FeedbackInput) Validate() error {
	fi.GeneralFeedback = core.CleanString(fi.GeneralFeedback)
	return core.Validate.Struct(fi)
}
