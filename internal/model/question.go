package model

import (
	"time"

	"gorm.io/gorm"
)

// Question types supported by the grading rules.
const (
	QuestionTypeSingleChoice = "single_choice"
	QuestionTypeTrueFalse    = "true_false"
	QuestionTypeMultiSelect  = "multi_select"
	QuestionTypeShortAnswer  = "short_answer"
)

// ManualGradingSentinel is a reserved canonical-answer marker meaning a teacher
// must grade the answer by hand. It is never a legitimate exact-match target.
const ManualGradingSentinel = "__manual_grading__"

type Question struct {
	ID               uint           `gorm:"primarykey" json:"id"`
	QuizID           uint           `json:"quiz_id" gorm:"not null;index"`
	Prompt           string         `json:"prompt" gorm:"type:text;not null"`
	Type             string         `json:"type" gorm:"not null"`
	Points           int            `json:"points" gorm:"not null;default:1"`
	OrderInQuiz      int            `json:"order_in_quiz" gorm:"not null"`
	TimeLimitSeconds *int           `json:"time_limit_seconds,omitempty"` // per-question limit, timer mode "question"
	CanonicalAnswer  *string        `json:"canonical_answer,omitempty"`   // short-answer key, or ManualGradingSentinel
	Options          []Option       `json:"options,omitempty" gorm:"foreignKey:QuestionID"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

// ValidQuestionType reports whether t names a supported question type.
func ValidQuestionType(t string) bool {
	switch t {
	case QuestionTypeSingleChoice, QuestionTypeTrueFalse, QuestionTypeMultiSelect, QuestionTypeShortAnswer:
		return true
	}
	return false
}
