package model

import (
	"time"

	"gorm.io/gorm"
)

type Option struct {
	ID         uint           `gorm:"primarykey" json:"id"`
	QuestionID uint           `json:"question_id" gorm:"not null;index"`
	Text       string         `json:"text" gorm:"type:text;not null"`
	IsCorrect  bool           `json:"is_correct"`
	Position   int            `json:"position" gorm:"not null"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}
