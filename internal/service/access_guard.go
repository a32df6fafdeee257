package service

import (
	"fmt"

	"github.com/pvhuy/examhall/internal/apperr"
	"github.com/pvhuy/examhall/internal/model"
	"github.com/pvhuy/examhall/internal/repository"
)

// AccessGuard is the authorization policy invoked before core operations.
// Identity arrives as an opaque, already-validated principal id; the guard
// only answers ownership and roster-membership questions, keeping policy out
// of the persistence layer.
type AccessGuard interface {
	EnsureQuizOwner(teacherID, quizID uint) (*model.Quiz, error)
	EnsureRosterMember(studentID, quizID uint) error
	EnsureResultOwner(studentID, resultID uint) (*model.Result, error)
	EnsureResultQuizOwner(teacherID, resultID uint) (*model.Result, error)
}

type accessGuard struct {
	quizRepo   repository.QuizRepository
	resultRepo repository.ResultRepository
	rosterRepo repository.RosterRepository
}

func NewAccessGuard(
	quizRepo repository.QuizRepository,
	resultRepo repository.ResultRepository,
	rosterRepo repository.RosterRepository,
) AccessGuard {
	return &accessGuard{
		quizRepo:   quizRepo,
		resultRepo: resultRepo,
		rosterRepo: rosterRepo,
	}
}

func (g *accessGuard) EnsureQuizOwner(teacherID, quizID uint) (*model.Quiz, error) {
	quiz, err := g.quizRepo.FindByID(quizID)
	if err != nil {
		return nil, notFoundOr(err, "quiz %d not found", quizID)
	}
	if quiz.TeacherID != teacherID {
		return nil, apperr.Forbidden("teacher %d does not own quiz %d", teacherID, quizID)
	}
	return quiz, nil
}

func (g *accessGuard) EnsureRosterMember(studentID, quizID uint) error {
	member, err := g.rosterRepo.IsMember(quizID, studentID)
	if err != nil {
		return fmt.Errorf("checking roster membership: %w", err)
	}
	if !member {
		return apperr.Forbidden("student %d is not on the roster for quiz %d", studentID, quizID)
	}
	return nil
}

func (g *accessGuard) EnsureResultOwner(studentID, resultID uint) (*model.Result, error) {
	result, err := g.resultRepo.FindByID(resultID)
	if err != nil {
		return nil, notFoundOr(err, "result %d not found", resultID)
	}
	if result.StudentID != studentID {
		return nil, apperr.Forbidden("result %d does not belong to student %d", resultID, studentID)
	}
	return result, nil
}

func (g *accessGuard) EnsureResultQuizOwner(teacherID, resultID uint) (*model.Result, error) {
	result, err := g.resultRepo.FindByID(resultID)
	if err != nil {
		return nil, notFoundOr(err, "result %d not found", resultID)
	}
	if _, err := g.EnsureQuizOwner(teacherID, result.QuizID); err != nil {
		return nil, err
	}
	return result, nil
}
