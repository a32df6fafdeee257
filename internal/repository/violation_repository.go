package repository

import (
	"github.com/pvhuy/examhall/internal/model"
	"gorm.io/gorm"
)

// ViolationRepository serves the read-side aggregation; the violation append
// and kick write happen inside the service transaction to keep the count
// race-free.
type ViolationRepository interface {
	MaxCountsByQuiz(quizID uint) (map[uint]int, error)
}

type violationRepository struct {
	db *gorm.DB
}

func NewViolationRepository(db *gorm.DB) ViolationRepository {
	return &violationRepository{db: db}
}

func (r *violationRepository) MaxCountsByQuiz(quizID uint) (map[uint]int, error) {
	var rows []struct {
		ResultID uint
		Count    int
	}
	err := r.db.Model(&model.Violation{}).
		Select("violations.result_id as result_id, MAX(violations.count) as count").
		Joins("JOIN results ON results.id = violations.result_id").
		Where("results.quiz_id = ?", quizID).
		Group("violations.result_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[uint]int, len(rows))
	for _, row := range rows {
		counts[row.ResultID] = row.Count
	}
	return counts, nil
}
