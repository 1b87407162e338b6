package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fluentify/backend/core/question"
)

func mcQuestion(id, key string, keys ...string) question.Question {
	opts := make([]question.Option, 0, len(keys))
	for _, k := range keys {
		opts = append(opts, question.Option{Key: k, Label: "option " + k})
	}
	return question.Question{ID: id, Type: question.TypeMultipleChoice, Options: opts, CorrectAnswer: key}
}

func TestAnswerCorrect(t *testing.T) {
	ordering := question.Question{
		ID:   "q-ord",
		Type: question.TypeOrdering,
		Options: []question.Option{
			{Key: "a", Label: "first"}, {Key: "b", Label: "second"}, {Key: "c", Label: "third"},
		},
		CorrectAnswer: "a,b,c",
	}
	matching := question.Question{
		ID:   "q-match",
		Type: question.TypeMatching,
		Options: []question.Option{
			{Key: "cat", Label: "chat"}, {Key: "dog", Label: "chien"},
		},
		CorrectAnswer: "cat:chat,dog:chien",
	}
	fill := question.Question{ID: "q-fill", Type: question.TypeFillInBlank, CorrectAnswer: "went"}

	tests := []struct {
		name    string
		q       question.Question
		content string
		want    bool
	}{
		{"mc exact match", mcQuestion("q1", "b", "a", "b", "c"), "b", true},
		{"mc wrong option", mcQuestion("q1", "b", "a", "b", "c"), "a", false},
		{"fill exact", fill, "went", true},
		{"fill case and space insensitive", fill, "  WeNt ", true},
		{"fill wrong", fill, "goed", false},
		{"ordering exact sequence", ordering, "a,b,c", true},
		{"ordering spaces ignored", ordering, " a , b , c ", true},
		{"ordering wrong order", ordering, "b,a,c", false},
		{"ordering incomplete", ordering, "a,b", false},
		{"matching order independent", matching, "dog:chien,cat:chat", true},
		{"matching wrong pair", matching, "cat:chien,dog:chat", false},
		{"matching duplicate left", matching, "cat:chat,cat:chat", false},
		{"matching malformed", matching, "cat-chat", false},
		{"essay never auto-correct", question.Question{ID: "q-e", Type: question.TypeEssay}, "my essay", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, answerCorrect(tt.q, tt.content))
		})
	}
}

func TestScoreAuto(t *testing.T) {
	qs := []question.Question{
		mcQuestion("q1", "a", "a", "b"),
		mcQuestion("q2", "b", "a", "b"),
		{ID: "q3", Type: question.TypeFillInBlank, CorrectAnswer: "went"},
		{ID: "q4", Type: question.TypeFillInBlank, CorrectAnswer: "gone"},
		{ID: "q5", Type: question.TypeEssay},
	}
	answers := map[string]Answer{
		"q1": {SessionID: "s1", QuestionID: "q1", Type: AnswerTypeSelectedOption, Content: "a"},
		"q2": {SessionID: "s1", QuestionID: "q2", Type: AnswerTypeSelectedOption, Content: "a"},
		"q3": {SessionID: "s1", QuestionID: "q3", Type: AnswerTypeText, Content: "went"},
		// q4 unanswered
		"q5": {SessionID: "s1", QuestionID: "q5", Type: AnswerTypeText, Content: "an essay"},
	}

	entries, score := scoreAuto("s1", qs, answers)

	if assert.NotNil(t, score) {
		assert.Equal(t, 50, *score) // 2 of 4
	}
	assert.Len(t, entries, 4) // essay excluded, unanswered q4 synthesized

	byID := make(map[string]Answer, len(entries))
	for _, a := range entries {
		byID[a.QuestionID] = a
	}
	assert.True(t, *byID["q1"].IsCorrect)
	assert.False(t, *byID["q2"].IsCorrect)
	assert.True(t, *byID["q3"].IsCorrect)
	if assert.Contains(t, byID, "q4") {
		assert.False(t, *byID["q4"].IsCorrect)
		assert.Empty(t, byID["q4"].Content)
	}
}

func TestScoreAutoNoAutoQuestions(t *testing.T) {
	qs := []question.Question{{ID: "q1", Type: question.TypeEssay}}
	entries, score := scoreAuto("s1", qs, nil)
	assert.Nil(t, score)
	assert.Empty(t, entries)
}

func TestManualAverage(t *testing.T) {
	score := func(n int) *int { return &n }
	qs := []question.Question{
		{ID: "e1", Type: question.TypeEssay},
		{ID: "e2", Type: question.TypeRecording},
		{ID: "q1", Type: question.TypeFillInBlank, CorrectAnswer: "x"},
	}

	t.Run("pending when an answered question is ungraded", func(t *testing.T) {
		avg, pending := manualAverage(qs, map[string]Answer{
			"e1": {QuestionID: "e1", Score: score(80)},
			"e2": {QuestionID: "e2"},
		})
		assert.Nil(t, avg)
		assert.Equal(t, 1, pending)
	})

	t.Run("unanswered questions count zero", func(t *testing.T) {
		avg, pending := manualAverage(qs, map[string]Answer{
			"e1": {QuestionID: "e1", Score: score(80)},
		})
		assert.Equal(t, 0, pending)
		if assert.NotNil(t, avg) {
			assert.Equal(t, 40, *avg) // (80 + 0) / 2
		}
	})

	t.Run("nil when no manual questions", func(t *testing.T) {
		avg, pending := manualAverage(qs[2:], nil)
		assert.Nil(t, avg)
		assert.Equal(t, 0, pending)
	})
}

func TestRoundPercent(t *testing.T) {
	assert.Equal(t, 33, roundPercent(1, 3))
	assert.Equal(t, 67, roundPercent(2, 3))
	assert.Equal(t, 50, roundPercent(2, 4))
	assert.Equal(t, 100, roundPercent(3, 3))
	assert.Equal(t, 0, roundPercent(0, 5))
}

func TestBlend(t *testing.T) {
	assert.Equal(t, 70, blend(80, 60, 50))
	assert.Equal(t, 80, blend(80, 60, 0))
	assert.Equal(t, 60, blend(80, 60, 100))
	assert.Equal(t, 90, blend(100, 80, 50))
	assert.Equal(t, 67, blend(67, 67, 30))
}
