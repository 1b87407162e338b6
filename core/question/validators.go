package question

import (
	"sort"
	"strings"

	"github.com/fluentify/backend/core"
)

const (
	keyRequiredText    = "an answer key is required for auto-gradable questions"
	keyForbiddenText   = "manually graded questions cannot carry an answer key"
	keyUnknownText     = "answer key must reference offered option keys"
	optsRequiredText   = "options are required for this question type"
	optsForbiddenText  = "options are not allowed for this question type"
	keyNotSequenceText = "answer key must order every offered option key exactly once"
	keyNotPairsText    = "answer key must be a list of left:right pairs"
)

// SplitKeys splits a comma-separated list of option keys, trimming whitespace
// and dropping empty entries. Answer keys and ordering/matching answers share
// this wire shape.
func SplitKeys(s string) []string {
	parts := strings.Split(s, ",")
	keys := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			keys = append(keys, p)
		}
	}
	return keys
}

// SplitPairs splits a comma-separated list of "left:right" pairs.
// The second return is false when any entry is not a valid pair.
func SplitPairs(s string) ([][2]string, bool) {
	keys := SplitKeys(s)
	pairs := make([][2]string, 0, len(keys))
	for _, k := range keys {
		sides := strings.SplitN(k, ":", 2)
		if len(sides) != 2 || sides[0] == "" || sides[1] == "" {
			return nil, false
		}
		pairs = append(pairs, [2]string{strings.TrimSpace(sides[0]), strings.TrimSpace(sides[1])})
	}
	return pairs, true
}

// validateKeyShape checks options/correct_answer consistency for a question type.
func validateKeyShape(typ string, opts []Option, correctAnswer string) error {
	keyErr := func(text string) error {
		return core.NewValidationError(nil, core.FieldError{Field: "correct_answer", Error: text})
	}
	optsErr := func(text string) error {
		return core.NewValidationError(nil, core.FieldError{Field: "options", Error: text})
	}
	hasOption := func(key string) bool {
		for _, opt := range opts {
			if opt.Key == key {
				return true
			}
		}
		return false
	}

	switch typ {
	case TypeMultipleChoice:
		if len(opts) == 0 {
			return optsErr(optsRequiredText)
		}
		if correctAnswer == "" {
			return keyErr(keyRequiredText)
		}
		if !hasOption(correctAnswer) {
			return keyErr(keyUnknownText)
		}

	case TypeFillInBlank:
		if len(opts) > 0 {
			return optsErr(optsForbiddenText)
		}
		if correctAnswer == "" {
			return keyErr(keyRequiredText)
		}

	case TypeOrdering:
		if len(opts) == 0 {
			return optsErr(optsRequiredText)
		}
		keys := SplitKeys(correctAnswer)
		if len(keys) != len(opts) {
			return keyErr(keyNotSequenceText)
		}
		seen := make([]string, len(keys))
		copy(seen, keys)
		sort.Strings(seen)
		for i := 1; i < len(seen); i++ {
			if seen[i] == seen[i-1] {
				return keyErr(keyNotSequenceText)
			}
		}
		for _, k := range keys {
			if !hasOption(k) {
				return keyErr(keyUnknownText)
			}
		}

	case TypeMatching:
		if len(opts) == 0 {
			return optsErr(optsRequiredText)
		}
		pairs, ok := SplitPairs(correctAnswer)
		if !ok || len(pairs) == 0 {
			return keyErr(keyNotPairsText)
		}
		for _, p := range pairs {
			if !hasOption(p[0]) {
				return keyErr(keyUnknownText)
			}
		}

	case TypeEssay, TypeRecording:
		if correctAnswer != "" {
			return keyErr(keyForbiddenText)
		}
	}
	return nil
}
