package model

import (
	"time"

	"gorm.io/gorm"
)

// Result statuses. "kicked" is terminal and reachable from any non-submitted
// state; "graded" annotates a submitted result once manual grading completes.
const (
	ResultStatusWaiting    = "waiting"
	ResultStatusInProgress = "in_progress"
	ResultStatusSubmitted  = "submitted"
	ResultStatusKicked     = "kicked"
	ResultStatusGraded     = "graded"
)

// Result is one student's attempt record for one quiz. At most one non-deleted
// row exists per (student, quiz) pair; creation is lazy on first student action.
type Result struct {
	ID           uint           `gorm:"primarykey" json:"id"`
	QuizID       uint           `json:"quiz_id" gorm:"not null;uniqueIndex:idx_results_student_quiz,where:deleted_at IS NULL"`
	StudentID    uint           `json:"student_id" gorm:"not null;uniqueIndex:idx_results_student_quiz,where:deleted_at IS NULL"`
	Status       string         `json:"status" gorm:"not null;default:'waiting';index"`
	StartedAt    *time.Time     `json:"started_at,omitempty"`
	SubmittedAt  *time.Time     `json:"submitted_at,omitempty"`
	Score        int            `json:"score"`        // denormalized, recomputed from answers at submit time
	TotalPoints  int            `json:"total_points"` // denormalized, sum of the quiz's question points
	CorrectCount int            `json:"correct_count"`
	PendingCount int            `json:"pending_count"` // answers awaiting manual grading
	IsPaused     bool           `json:"is_paused"`
	IsBlocked    bool           `json:"is_blocked"`
	Answers      []Answer       `json:"answers,omitempty" gorm:"foreignKey:ResultID"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// Terminal reports whether no further answer or finish calls are accepted.
func (r *Result) Terminal() bool {
	switch r.Status {
	case ResultStatusSubmitted, ResultStatusKicked, ResultStatusGraded:
		return true
	}
	return false
}
