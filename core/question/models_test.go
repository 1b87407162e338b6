package question

import "testing"

func TestQuestionRedacted(t *testing.T) {
	tests := []struct {
		name string
		q    Question
	}{
		{
			name: "multiple choice",
			q: Question{
				Type:          TypeMultipleChoice,
				Content:       "Choose the correct form of 'to be'.",
				Options:       []Option{{Key: "A", Label: "is"}, {Key: "B", Label: "are"}},
				CorrectAnswer: "B",
				Explanation:   "plural subject",
			},
		},
		{
			name: "essay",
			q: Question{
				Type:        TypeEssay,
				Content:     "Describe your last holiday.",
				Explanation: "graded against the B1 writing rubric",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			red := tt.q.Redacted()
			if red.CorrectAnswer != "" {
				t.Errorf("Redacted() kept correct_answer = %q", red.CorrectAnswer)
			}
			if red.Explanation != "" {
				t.Errorf("Redacted() kept explanation = %q", red.Explanation)
			}
			if red.Content != tt.q.Content {
				t.Errorf("Redacted() changed content = %q", red.Content)
			}
			if len(red.Options) != len(tt.q.Options) {
				t.Errorf("Redacted() changed options = %v", red.Options)
			}
		})
	}
}

func TestValidateKeyShape(t *testing.T) {
	opts := []Option{{Key: "A", Label: "first"}, {Key: "B", Label: "second"}, {Key: "C", Label: "third"}}

	tests := []struct {
		name    string
		typ     string
		opts    []Option
		key     string
		wantErr bool
	}{
		{name: "mc ok", typ: TypeMultipleChoice, opts: opts, key: "B"},
		{name: "mc no options", typ: TypeMultipleChoice, key: "B", wantErr: true},
		{name: "mc no key", typ: TypeMultipleChoice, opts: opts, wantErr: true},
		{name: "mc unknown key", typ: TypeMultipleChoice, opts: opts, key: "Z", wantErr: true},
		{name: "fill ok", typ: TypeFillInBlank, key: "went"},
		{name: "fill no key", typ: TypeFillInBlank, wantErr: true},
		{name: "fill with options", typ: TypeFillInBlank, opts: opts, key: "went", wantErr: true},
		{name: "ordering ok", typ: TypeOrdering, opts: opts, key: "B,A,C"},
		{name: "ordering missing key", typ: TypeOrdering, opts: opts, key: "B,A", wantErr: true},
		{name: "ordering duplicate key", typ: TypeOrdering, opts: opts, key: "B,B,C", wantErr: true},
		{name: "ordering unknown key", typ: TypeOrdering, opts: opts, key: "B,A,Z", wantErr: true},
		{name: "matching ok", typ: TypeMatching, opts: opts, key: "A:dog,B:cat"},
		{name: "matching not pairs", typ: TypeMatching, opts: opts, key: "A,B", wantErr: true},
		{name: "matching unknown left", typ: TypeMatching, opts: opts, key: "Z:dog", wantErr: true},
		{name: "essay no key", typ: TypeEssay},
		{name: "essay with key", typ: TypeEssay, key: "model answer", wantErr: true},
		{name: "recording with key", typ: TypeRecording, key: "lol", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateKeyShape(tt.typ, tt.opts, tt.key)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateKeyShape() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
