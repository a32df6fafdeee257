package repository

import (
	"github.com/pvhuy/examhall/internal/model"
	"gorm.io/gorm"
)

// RosterRepository is read-only inside the engine; a global-import
// collaborator populates the roster table.
type RosterRepository interface {
	IsMember(quizID, studentID uint) (bool, error)
}

type rosterRepository struct {
	db *gorm.DB
}

func NewRosterRepository(db *gorm.DB) RosterRepository {
	return &rosterRepository{db: db}
}

func (r *rosterRepository) IsMember(quizID, studentID uint) (bool, error) {
	var count int64
	err := r.db.Model(&model.RosterEntry{}).
		Where("quiz_id = ? AND student_id = ?", quizID, studentID).
		Count(&count).Error
	return count > 0, err
}
