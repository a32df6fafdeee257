package service

import (
	"fmt"

	"github.com/pvhuy/examhall/internal/apperr"
	"github.com/pvhuy/examhall/internal/dto"
	"github.com/pvhuy/examhall/internal/model"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Violation actions returned to the client.
const (
	ViolationActionWarning = "warning"
	ViolationActionKicked  = "kicked"
)

// ViolationService counts anti-cheat infractions per attempt and enforces the
// kick policy. The count is non-decreasing; reaching the limit kicks the
// student once, and further reports against a kicked result are successful
// no-ops rather than errors. Reports against waiting, paused, or blocked
// results are rejected; the policy only runs while the exam is being taken.
type ViolationService interface {
	Record(studentID, quizID uint, violationType string) (*dto.ViolationResponse, error)
}

type violationService struct {
	resultService ResultService
	db            *gorm.DB
	limit         int
}

func NewViolationService(resultService ResultService, db *gorm.DB, limit int) ViolationService {
	if limit <= 0 {
		limit = 3
	}
	return &violationService{
		resultService: resultService,
		db:            db,
		limit:         limit,
	}
}

func (s *violationService) Record(studentID, quizID uint, violationType string) (*dto.ViolationResponse, error) {
	if !model.ValidViolationType(violationType) {
		return nil, apperr.Validation("unknown violation type %q", violationType)
	}

	// Lazy result creation mirrors the join flow: the first thing a student
	// does against a quiz may well be getting caught switching tabs.
	result, err := s.resultService.Enter(studentID, quizID)
	if err != nil {
		return nil, err
	}

	var resp dto.ViolationResponse
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var current model.Result
		if err := tx.First(&current, result.ID).Error; err != nil {
			return notFoundOr(err, "result %d not found", result.ID)
		}
		switch current.Status {
		case model.ResultStatusSubmitted, model.ResultStatusGraded:
			return apperr.ResultTerminal("result %d has already been submitted", current.ID)
		case model.ResultStatusKicked:
			// Already terminal: report the recorded outcome, freeze the count.
			count, err := maxViolationCount(tx, current.ID)
			if err != nil {
				return err
			}
			resp = dto.ViolationResponse{
				Action:  ViolationActionKicked,
				Count:   count,
				Message: "You have been removed from the exam.",
			}
			return nil
		case model.ResultStatusWaiting:
			return apperr.InvalidStateTransition("result %d cannot record violations before the exam starts", current.ID)
		}
		// A frozen attempt must not accumulate violations; the kick policy only
		// applies while the student is actually taking the exam.
		if current.IsBlocked {
			return apperr.Forbidden("result %d is blocked", current.ID)
		}
		if current.IsPaused {
			return apperr.Forbidden("result %d is paused", current.ID)
		}

		count, err := maxViolationCount(tx, current.ID)
		if err != nil {
			return err
		}
		newCount := count + 1
		violation := model.Violation{
			ResultID: current.ID,
			Type:     violationType,
			Count:    newCount,
		}
		if err := tx.Create(&violation).Error; err != nil {
			return fmt.Errorf("appending violation: %w", err)
		}

		if newCount >= s.limit {
			current.Status = model.ResultStatusKicked
			if err := tx.Save(&current).Error; err != nil {
				return fmt.Errorf("kicking result: %w", err)
			}
			kick := model.KickRecord{
				ResultID:       current.ID,
				Reason:         fmt.Sprintf("violation limit reached: %d infractions, last was %s", newCount, violationLabel(violationType)),
				ViolationCount: newCount,
			}
			if err := tx.Create(&kick).Error; err != nil {
				return fmt.Errorf("writing kick record: %w", err)
			}
			resp = dto.ViolationResponse{
				Action:  ViolationActionKicked,
				Count:   newCount,
				Message: "You have been removed from the exam for repeated rule violations.",
			}
			return nil
		}

		remaining := s.limit - newCount
		resp = dto.ViolationResponse{
			Action:            ViolationActionWarning,
			Count:             newCount,
			RemainingWarnings: remaining,
			Message:           fmt.Sprintf("%s detected. %d warning(s) left before you are removed from the exam.", violationLabel(violationType), remaining),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if resp.Action == ViolationActionKicked {
		log.Warn().Uint("resultID", result.ID).Int("count", resp.Count).
			Str("type", violationType).Msg("Student kicked for violations")
	}
	return &resp, nil
}

func maxViolationCount(tx *gorm.DB, resultID uint) (int, error) {
	var max *int
	err := tx.Model(&model.Violation{}).
		Where("result_id = ?", resultID).
		Select("MAX(count)").Scan(&max).Error
	if err != nil {
		return 0, fmt.Errorf("reading violation count: %w", err)
	}
	if max == nil {
		return 0, nil
	}
	return *max, nil
}

func violationLabel(violationType string) string {
	switch violationType {
	case model.ViolationTabSwitch:
		return "Tab switch"
	case model.ViolationPageLeave:
		return "Leaving the exam page"
	case model.ViolationMinimize:
		return "Window minimize"
	default:
		return "Suspicious activity"
	}
}
