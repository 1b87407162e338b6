package session

import (
	"github.com/fluentify/backend/core"
	"github.com/fluentify/backend/core/exam"
	"github.com/fluentify/backend/core/question"
)

// scoreAuto evaluates every auto-gradable question against the learner's
// answers. Unanswered questions yield a synthesized incorrect entry so the
// result covers the whole exam; synthesized entries are never persisted.
// The returned score is nil when the exam has no auto-gradable questions.
func scoreAuto(sessionID string, qs []question.Question, answers map[string]Answer) ([]Answer, *int) {
	var entries []Answer
	var total, correct int
	for _, q := range qs {
		if !q.AutoGradable() {
			continue
		}
		total++

		ans, answered := answers[q.ID]
		ok := answered && answerCorrect(q, ans.Content)
		if ok {
			correct++
		}
		if !answered {
			ans = Answer{SessionID: sessionID, QuestionID: q.ID, Type: answerType(q.Type)}
		}
		v := ok
		ans.IsCorrect = &v
		entries = append(entries, ans)
	}
	if total == 0 {
		return entries, nil
	}
	score := roundPercent(correct, total)
	return entries, &score
}

// manualAverage averages the teacher-assigned scores over all manual-gradable
// questions of the exam. Unanswered manual questions count zero; answered but
// ungraded ones make the average unavailable (nil).
func manualAverage(qs []question.Question, answers map[string]Answer) (avg *int, pending int) {
	var total, sum int
	for _, q := range qs {
		if !q.ManualGradable() {
			continue
		}
		total++

		ans, answered := answers[q.ID]
		if !answered {
			continue
		}
		if ans.Score == nil {
			pending++
			continue
		}
		sum += *ans.Score
	}
	if total == 0 || pending > 0 {
		return nil, pending
	}
	score := (sum + total/2) / total
	return &score, 0
}

// totalScore combines the auto and manual components per the exam's grading
// method. A nil manual component means the exam carries no manual-gradable
// questions, so the auto component alone decides the score.
func totalScore(exm exam.Exam, auto, manual *int) *int {
	switch exm.GradingMethod {
	case exam.GradingAuto:
		return scoreOrZero(auto)
	case exam.GradingManual:
		if manual == nil {
			return scoreOrZero(auto)
		}
		return manual
	case exam.GradingHybrid:
		if manual == nil {
			return scoreOrZero(auto)
		}
		if auto == nil {
			return manual
		}
		score := blend(*auto, *manual, exm.ManualWeight)
		return &score
	}
	return nil
}

func scoreOrZero(score *int) *int {
	if score == nil {
		zero := 0
		return &zero
	}
	return score
}

// blend mixes the auto and manual scores with the given manual weight in
// percent, rounding once at the end.
func blend(auto, manual, manualWeight int) int {
	w := float64(manualWeight) / 100
	return int(float64(auto)*(1-w) + float64(manual)*w + 0.5)
}

func roundPercent(correct, total int) int {
	return (100*correct + total/2) / total
}

func answerCorrect(q question.Question, content string) bool {
	switch q.Type {
	case question.TypeMultipleChoice:
		return content == q.CorrectAnswer
	case question.TypeFillInBlank:
		return core.CleanString(content, true) == core.CleanString(q.CorrectAnswer, true)
	case question.TypeOrdering:
		return sameSequence(question.SplitKeys(content), question.SplitKeys(q.CorrectAnswer))
	case question.TypeMatching:
		got, ok := question.SplitPairs(content)
		if !ok {
			return false
		}
		want, _ := question.SplitPairs(q.CorrectAnswer)
		return samePairSet(got, want)
	}
	return false
}

// sameSequence compares two key sequences element by element.
func sameSequence(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

// samePairSet compares two pair lists regardless of order.
func samePairSet(got, want [][2]string) bool {
	if len(got) != len(want) {
		return false
	}
	seen := make(map[string]string, len(want))
	for _, p := range want {
		seen[p[0]] = p[1]
	}
	matched := make(map[string]bool, len(got))
	for _, p := range got {
		if matched[p[0]] {
			return false
		}
		if right, ok := seen[p[0]]; !ok || right != p[1] {
			return false
		}
		matched[p[0]] = true
	}
	return true
}
