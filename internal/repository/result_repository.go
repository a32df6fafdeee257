package repository

import (
	"github.com/pvhuy/examhall/internal/model"
	"gorm.io/gorm"
)

// ResultRepository covers the reads and the initial insert; lifecycle
// mutations run through the result service transactions.
type ResultRepository interface {
	Create(result *model.Result) error
	FindByID(id uint) (*model.Result, error)
	FindByStudentAndQuiz(studentID, quizID uint) (*model.Result, error)
	FindAllByQuizWithAnswers(quizID uint) ([]model.Result, error)
}

type resultRepository struct {
	db *gorm.DB
}

func NewResultRepository(db *gorm.DB) ResultRepository {
	return &resultRepository{db: db}
}

func (r *resultRepository) Create(result *model.Result) error {
	return r.db.Create(result).Error
}

func (r *resultRepository) FindByID(id uint) (*model.Result, error) {
	var result model.Result
	if err := r.db.First(&result, id).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *resultRepository) FindByStudentAndQuiz(studentID, quizID uint) (*model.Result, error) {
	var result model.Result
	err := r.db.Where("student_id = ? AND quiz_id = ?", studentID, quizID).First(&result).Error
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *resultRepository) FindAllByQuizWithAnswers(quizID uint) ([]model.Result, error) {
	var results []model.Result
	err := r.db.Where("quiz_id = ?", quizID).Preload("Answers").
		Order("created_at ASC").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
