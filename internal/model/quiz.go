package model

import (
	"time"

	"gorm.io/gorm"
)

// Quiz lifecycle statuses. Transitions are forward-only.
const (
	QuizStatusDraft    = "draft"
	QuizStatusActive   = "active"
	QuizStatusStarted  = "started"
	QuizStatusFinished = "finished"
)

// Timer modes: one shared deadline for the whole exam, or per-question limits.
const (
	TimerModeExam     = "exam"
	TimerModeQuestion = "question"
)

type Quiz struct {
	ID              uint           `gorm:"primarykey" json:"id"`
	TeacherID       uint           `json:"teacher_id" gorm:"not null;index"`
	Title           string         `json:"title" gorm:"not null"`
	Description     string         `json:"description,omitempty"`
	RoomCode        string         `json:"room_code" gorm:"size:12;not null;uniqueIndex:idx_quizzes_room_code,where:deleted_at IS NULL"`
	DurationMinutes int            `json:"duration_minutes" gorm:"not null"`
	TimerMode       string         `json:"timer_mode" gorm:"not null;default:'exam'"`
	Status          string         `json:"status" gorm:"not null;default:'draft';index"`
	StartTime       *time.Time     `json:"start_time,omitempty"` // set once when status enters "started", immutable after
	Questions       []Question     `json:"questions,omitempty" gorm:"foreignKey:QuizID"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

// quizStatusRank orders the lifecycle for forward-only validation.
var quizStatusRank = map[string]int{
	QuizStatusDraft:    0,
	QuizStatusActive:   1,
	QuizStatusStarted:  2,
	QuizStatusFinished: 3,
}

// ValidQuizStatus reports whether s names a known lifecycle status.
func ValidQuizStatus(s string) bool {
	_, ok := quizStatusRank[s]
	return ok
}

// QuizStatusRank returns the lifecycle position of s (-1 when unknown).
func QuizStatusRank(s string) int {
	if r, ok := quizStatusRank[s]; ok {
		return r
	}
	return -1
}
