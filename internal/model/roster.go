package model

import "time"

// RosterEntry records that a student is allowed on a quiz. Populated by an
// external import collaborator; the engine only reads it at join time.
type RosterEntry struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	QuizID    uint      `json:"quiz_id" gorm:"not null;uniqueIndex:idx_roster_quiz_student"`
	StudentID uint      `json:"student_id" gorm:"not null;uniqueIndex:idx_roster_quiz_student"`
	CreatedAt time.Time `json:"created_at"`
}
