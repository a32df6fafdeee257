package model

import "time"

// Answer holds one student's answer to one question. Uniqueness of
// (result_id, question_id) is enforced by upsert semantics: re-submission
// overwrites the row, never duplicates it. Answers are never soft-deleted.
type Answer struct {
	ID               uint      `gorm:"primarykey" json:"id"`
	ResultID         uint      `json:"result_id" gorm:"not null;uniqueIndex:idx_answers_result_question"`
	QuestionID       uint      `json:"question_id" gorm:"not null;uniqueIndex:idx_answers_result_question"`
	Submitted        string    `json:"submitted" gorm:"type:text;not null"` // option id, comma-joined ids, or free text
	IsCorrect        *bool     `json:"is_correct"`                          // nil while manual grading is pending
	PointsAwarded    int       `json:"points_awarded"`
	TimeSpentSeconds int       `json:"time_spent_seconds"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
