package repository

import (
	"github.com/pvhuy/examhall/internal/model"
	"gorm.io/gorm"
)

type QuizRepository interface {
	Create(quiz *model.Quiz) error
	FindByID(id uint) (*model.Quiz, error)
	FindByIDWithQuestions(id uint) (*model.Quiz, error)
	FindByRoomCode(code string) (*model.Quiz, error)
	RoomCodeExists(code string) (bool, error)
}

type quizRepository struct {
	db *gorm.DB
}

func NewQuizRepository(db *gorm.DB) QuizRepository {
	return &quizRepository{db: db}
}

func (r *quizRepository) Create(quiz *model.Quiz) error {
	// GORM creates associated questions and options in one go when populated.
	return r.db.Create(quiz).Error
}

func (r *quizRepository) FindByID(id uint) (*model.Quiz, error) {
	var quiz model.Quiz
	if err := r.db.First(&quiz, id).Error; err != nil {
		return nil, err
	}
	return &quiz, nil
}

func (r *quizRepository) FindByIDWithQuestions(id uint) (*model.Quiz, error) {
	var quiz model.Quiz
	err := r.db.
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("questions.order_in_quiz ASC")
		}).
		Preload("Questions.Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("options.position ASC")
		}).
		First(&quiz, id).Error
	if err != nil {
		return nil, err
	}
	return &quiz, nil
}

func (r *quizRepository) FindByRoomCode(code string) (*model.Quiz, error) {
	var quiz model.Quiz
	if err := r.db.Where("room_code = ?", code).First(&quiz).Error; err != nil {
		return nil, err
	}
	return &quiz, nil
}

func (r *quizRepository) RoomCodeExists(code string) (bool, error) {
	var count int64
	err := r.db.Model(&model.Quiz{}).Where("room_code = ?", code).Count(&count).Error
	return count > 0, err
}
