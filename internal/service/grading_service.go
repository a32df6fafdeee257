package service

import (
	"sort"
	"strconv"
	"strings"

	"github.com/pvhuy/examhall/internal/model"
)

// Verdict is the instant-grading outcome for one answer.
type Verdict string

const (
	VerdictCorrect   Verdict = "correct"
	VerdictIncorrect Verdict = "incorrect"
	// VerdictPending marks a short answer that needs a teacher's grade.
	VerdictPending Verdict = "pending"
)

// GradingService maps (question, submitted answer) to a verdict and points.
// Pure: no state, no persistence. The same rules run at answer-record time
// and again at finish time; the recomputation is the source of truth.
type GradingService interface {
	Grade(question *model.Question, submitted string) (Verdict, int)
}

type gradingService struct{}

func NewGradingService() GradingService {
	return &gradingService{}
}

func (s *gradingService) Grade(question *model.Question, submitted string) (Verdict, int) {
	var verdict Verdict
	switch question.Type {
	case model.QuestionTypeSingleChoice, model.QuestionTypeTrueFalse:
		verdict = gradeSingleChoice(question, submitted)
	case model.QuestionTypeMultiSelect:
		verdict = gradeMultiSelect(question, submitted)
	case model.QuestionTypeShortAnswer:
		verdict = gradeShortAnswer(question, submitted)
	default:
		verdict = VerdictIncorrect
	}
	if verdict == VerdictCorrect {
		return verdict, question.Points
	}
	return verdict, 0
}

func gradeSingleChoice(question *model.Question, submitted string) Verdict {
	correct := correctOptionIDs(question)
	if len(correct) != 1 {
		// Authoring invariant broken; never award points on a malformed key.
		return VerdictIncorrect
	}
	if normalizeToken(submitted) == correct[0] {
		return VerdictCorrect
	}
	return VerdictIncorrect
}

// gradeMultiSelect compares the submitted option identifiers as a set. The
// client encodes its selection as a comma-joined list; the order must not
// affect the verdict.
func gradeMultiSelect(question *model.Question, submitted string) Verdict {
	chosen := splitSelection(submitted)
	correct := correctOptionIDs(question)
	if len(chosen) == 0 || len(chosen) != len(correct) {
		return VerdictIncorrect
	}
	sort.Strings(chosen)
	sort.Strings(correct)
	for i := range chosen {
		if chosen[i] != correct[i] {
			return VerdictIncorrect
		}
	}
	return VerdictCorrect
}

func gradeShortAnswer(question *model.Question, submitted string) Verdict {
	if question.CanonicalAnswer == nil {
		return VerdictPending
	}
	canonical := *question.CanonicalAnswer
	// The sentinel is a reserved marker, never an exact-match target.
	if canonical == model.ManualGradingSentinel {
		return VerdictPending
	}
	if normalizeText(submitted) == normalizeText(canonical) {
		return VerdictCorrect
	}
	return VerdictIncorrect
}

func correctOptionIDs(question *model.Question) []string {
	var ids []string
	for _, opt := range question.Options {
		if opt.IsCorrect {
			ids = append(ids, strconv.FormatUint(uint64(opt.ID), 10))
		}
	}
	return ids
}

func splitSelection(submitted string) []string {
	var parts []string
	for _, piece := range strings.Split(submitted, ",") {
		if token := normalizeToken(piece); token != "" {
			// Duplicate selections collapse to one; the set is what counts.
			seen := false
			for _, existing := range parts {
				if existing == token {
					seen = true
					break
				}
			}
			if !seen {
				parts = append(parts, token)
			}
		}
	}
	return parts
}

func normalizeToken(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// normalizeText folds case and collapses all interior whitespace so that
// "  Grand  Canyon " matches "grand canyon".
func normalizeText(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
