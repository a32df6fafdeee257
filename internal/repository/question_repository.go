package repository

import (
	"github.com/pvhuy/examhall/internal/model"
	"gorm.io/gorm"
)

// QuestionRepository feeds the read-side projections; answer-time question
// loads happen inside the result service transaction.
type QuestionRepository interface {
	FindByQuizID(quizID uint) ([]model.Question, error)
}

type questionRepository struct {
	db *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) QuestionRepository {
	return &questionRepository{db: db}
}

func (r *questionRepository) FindByQuizID(quizID uint) ([]model.Question, error) {
	var questions []model.Question
	err := r.db.Where("quiz_id = ?", quizID).
		Preload("Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("options.position ASC")
		}).
		Order("order_in_quiz ASC").
		Find(&questions).Error
	if err != nil {
		return nil, err
	}
	return questions, nil
}
