package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/pvhuy/examhall/internal/apperr"
	"github.com/pvhuy/examhall/internal/dto"
	"github.com/pvhuy/examhall/internal/model"
	"github.com/pvhuy/examhall/internal/repository"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ResultService owns the per-student attempt lifecycle:
// waiting -> in_progress -> submitted (-> graded), with kicked as a parallel
// terminal state. All mutations run inside short transactions; the answer
// upsert key makes client retries safe.
type ResultService interface {
	Enter(studentID, quizID uint) (*model.Result, error)
	Find(studentID, quizID uint) (*model.Result, error)
	RecordAnswer(resultID, questionID uint, rawAnswer string, timeTakenSeconds int) (*dto.AnswerFeedbackResponse, error)
	Finish(resultID uint) (*dto.ResultSummaryResponse, error)
	SetPauseBlock(resultID uint, paused, blocked *bool) (*dto.ResultSummaryResponse, error)
	GradeAnswer(resultID, questionID uint, points int) (*dto.ResultSummaryResponse, error)
	GetSummary(resultID uint) (*dto.ResultSummaryResponse, error)
}

type resultService struct {
	resultRepo repository.ResultRepository
	quizRepo   repository.QuizRepository
	grading    GradingService
	db         *gorm.DB
}

func NewResultService(
	resultRepo repository.ResultRepository,
	quizRepo repository.QuizRepository,
	grading GradingService,
	db *gorm.DB,
) ResultService {
	return &resultService{
		resultRepo: resultRepo,
		quizRepo:   quizRepo,
		grading:    grading,
		db:         db,
	}
}

// Find returns the existing result for (student, quiz) without creating one.
func (s *resultService) Find(studentID, quizID uint) (*model.Result, error) {
	result, err := s.resultRepo.FindByStudentAndQuiz(studentID, quizID)
	if err != nil {
		return nil, notFoundOr(err, "no result for student %d on quiz %d", studentID, quizID)
	}
	return result, nil
}

// Enter lazily creates the result for (student, quiz); a retry returns the
// existing row, never a second one. A waiting result is promoted to
// in_progress once the quiz has started.
func (s *resultService) Enter(studentID, quizID uint) (*model.Result, error) {
	quiz, err := s.quizRepo.FindByID(quizID)
	if err != nil {
		return nil, notFoundOr(err, "quiz %d not found", quizID)
	}
	switch quiz.Status {
	case model.QuizStatusActive, model.QuizStatusStarted:
		// room open or running
	default:
		return nil, apperr.Forbidden("quiz %d is not accepting students (status %s)", quizID, quiz.Status)
	}

	result, err := s.resultRepo.FindByStudentAndQuiz(studentID, quizID)
	if err == nil {
		return s.promoteIfStarted(result, quiz)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("looking up result: %w", err)
	}

	fresh := &model.Result{
		QuizID:    quizID,
		StudentID: studentID,
		Status:    model.ResultStatusWaiting,
	}
	if quiz.Status == model.QuizStatusStarted {
		now := time.Now().UTC()
		fresh.Status = model.ResultStatusInProgress
		fresh.StartedAt = &now
	}
	if err := s.resultRepo.Create(fresh); err != nil {
		// Two near-simultaneous joins race on the unique (student, quiz) key;
		// the loser re-reads the winner's row.
		existing, findErr := s.resultRepo.FindByStudentAndQuiz(studentID, quizID)
		if findErr != nil {
			return nil, fmt.Errorf("creating result: %w", err)
		}
		return s.promoteIfStarted(existing, quiz)
	}
	log.Info().Uint("resultID", fresh.ID).Uint("quizID", quizID).Uint("studentID", studentID).
		Str("status", fresh.Status).Msg("Result created")
	return fresh, nil
}

func (s *resultService) promoteIfStarted(result *model.Result, quiz *model.Quiz) (*model.Result, error) {
	if result.Status != model.ResultStatusWaiting || quiz.Status != model.QuizStatusStarted {
		return result, nil
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(result, result.ID).Error; err != nil {
			return err
		}
		if result.Status != model.ResultStatusWaiting {
			return nil
		}
		now := time.Now().UTC()
		result.Status = model.ResultStatusInProgress
		result.StartedAt = &now
		return tx.Save(result).Error
	})
	if err != nil {
		return nil, fmt.Errorf("promoting result %d: %w", result.ID, err)
	}
	return result, nil
}

// RecordAnswer grades the submission instantly and upserts it; resubmitting
// the same question overwrites the previous row.
func (s *resultService) RecordAnswer(resultID, questionID uint, rawAnswer string, timeTakenSeconds int) (*dto.AnswerFeedbackResponse, error) {
	var feedback dto.AnswerFeedbackResponse
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var result model.Result
		if err := tx.First(&result, resultID).Error; err != nil {
			return notFoundOr(err, "result %d not found", resultID)
		}
		if err := guardMutable(&result); err != nil {
			return err
		}
		if result.Status == model.ResultStatusWaiting {
			return apperr.InvalidStateTransition("result %d cannot accept answers before the exam starts", resultID)
		}

		var question model.Question
		err := tx.Preload("Options").First(&question, questionID).Error
		if err != nil {
			return notFoundOr(err, "question %d not found", questionID)
		}
		if question.QuizID != result.QuizID {
			return apperr.Validation("question %d does not belong to quiz %d", questionID, result.QuizID)
		}
		if !model.ValidQuestionType(question.Type) {
			return apperr.Validation("question %d has unsupported type %q", questionID, question.Type)
		}

		verdict, points := s.grading.Grade(&question, rawAnswer)
		answer := model.Answer{
			ResultID:         resultID,
			QuestionID:       questionID,
			Submitted:        rawAnswer,
			PointsAwarded:    points,
			TimeSpentSeconds: timeTakenSeconds,
		}
		if verdict != VerdictPending {
			correct := verdict == VerdictCorrect
			answer.IsCorrect = &correct
		}
		err = tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "result_id"}, {Name: "question_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"submitted", "is_correct", "points_awarded", "time_spent_seconds", "updated_at",
			}),
		}).Create(&answer).Error
		if err != nil {
			return fmt.Errorf("upserting answer: %w", err)
		}

		feedback = dto.AnswerFeedbackResponse{
			QuestionID:    questionID,
			Verdict:       string(verdict),
			PointsAwarded: points,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &feedback, nil
}

// Finish recomputes the summary from the stored answers; the re-derivation,
// not the cached per-answer values, is the source of truth for the final
// score. Calling it on an already-submitted result is a successful no-op.
func (s *resultService) Finish(resultID uint) (*dto.ResultSummaryResponse, error) {
	var summary *dto.ResultSummaryResponse
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var result model.Result
		if err := tx.First(&result, resultID).Error; err != nil {
			return notFoundOr(err, "result %d not found", resultID)
		}
		switch result.Status {
		case model.ResultStatusSubmitted, model.ResultStatusGraded:
			summary = summaryFromResult(&result) // idempotent retry
			return nil
		case model.ResultStatusKicked:
			return apperr.ResultTerminal("result %d was kicked and cannot be submitted", resultID)
		}
		if result.IsBlocked {
			return apperr.Forbidden("result %d is blocked", resultID)
		}
		if result.IsPaused {
			return apperr.Forbidden("result %d is paused", resultID)
		}

		var questions []model.Question
		if err := tx.Where("quiz_id = ?", result.QuizID).Preload("Options").Find(&questions).Error; err != nil {
			return fmt.Errorf("loading questions: %w", err)
		}
		var answers []model.Answer
		if err := tx.Where("result_id = ?", resultID).Find(&answers).Error; err != nil {
			return fmt.Errorf("loading answers: %w", err)
		}
		answerByQuestion := make(map[uint]*model.Answer, len(answers))
		for i := range answers {
			answerByQuestion[answers[i].QuestionID] = &answers[i]
		}

		score, totalPoints, correctCount, pendingCount := 0, 0, 0, 0
		for i := range questions {
			question := &questions[i]
			totalPoints += question.Points
			answer, ok := answerByQuestion[question.ID]
			if !ok {
				continue
			}
			// Re-grade from the raw submission; never trust a stale cached flag.
			verdict, points := s.grading.Grade(question, answer.Submitted)
			switch verdict {
			case VerdictPending:
				pendingCount++
				answer.IsCorrect = nil
				answer.PointsAwarded = 0
			case VerdictCorrect:
				score += points
				correctCount++
				correct := true
				answer.IsCorrect = &correct
				answer.PointsAwarded = points
			default:
				incorrect := false
				answer.IsCorrect = &incorrect
				answer.PointsAwarded = 0
			}
			if err := tx.Save(answer).Error; err != nil {
				return fmt.Errorf("saving regraded answer: %w", err)
			}
		}

		now := time.Now().UTC()
		result.Status = model.ResultStatusSubmitted
		result.SubmittedAt = &now
		result.Score = score
		result.TotalPoints = totalPoints
		result.CorrectCount = correctCount
		result.PendingCount = pendingCount
		if err := tx.Save(&result).Error; err != nil {
			return fmt.Errorf("saving result: %w", err)
		}
		summary = summaryFromResult(&result)
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().Uint("resultID", resultID).Int("score", summary.Score).
		Int("totalPoints", summary.TotalPoints).Msg("Result finished")
	return summary, nil
}

// SetPauseBlock toggles the administrative facets. Pause is reversible; block
// is one-way inside this engine, so blocked=false is rejected.
func (s *resultService) SetPauseBlock(resultID uint, paused, blocked *bool) (*dto.ResultSummaryResponse, error) {
	var summary *dto.ResultSummaryResponse
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var result model.Result
		if err := tx.First(&result, resultID).Error; err != nil {
			return notFoundOr(err, "result %d not found", resultID)
		}
		if result.Terminal() {
			return apperr.ResultTerminal("result %d is already %s", resultID, result.Status)
		}
		if blocked != nil {
			if !*blocked && result.IsBlocked {
				return apperr.Validation("unblocking result %d is a teacher override outside this engine", resultID)
			}
			if *blocked {
				result.IsBlocked = true
			}
		}
		if paused != nil {
			result.IsPaused = *paused
		}
		if err := tx.Save(&result).Error; err != nil {
			return fmt.Errorf("saving result: %w", err)
		}
		summary = summaryFromResult(&result)
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().Uint("resultID", resultID).Bool("paused", summary.IsPaused).
		Bool("blocked", summary.IsBlocked).Msg("Result pause/block updated")
	return summary, nil
}

// GradeAnswer is the teacher override for a pending manual-grading answer.
// Once no pending answers remain, the result is annotated graded.
func (s *resultService) GradeAnswer(resultID, questionID uint, points int) (*dto.ResultSummaryResponse, error) {
	var summary *dto.ResultSummaryResponse
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var result model.Result
		if err := tx.First(&result, resultID).Error; err != nil {
			return notFoundOr(err, "result %d not found", resultID)
		}
		if result.Status != model.ResultStatusSubmitted && result.Status != model.ResultStatusGraded {
			return apperr.InvalidStateTransition("result %d must be submitted before manual grading", resultID)
		}

		var question model.Question
		if err := tx.First(&question, questionID).Error; err != nil {
			return notFoundOr(err, "question %d not found", questionID)
		}
		if question.Type != model.QuestionTypeShortAnswer ||
			question.CanonicalAnswer == nil || *question.CanonicalAnswer != model.ManualGradingSentinel {
			return apperr.Validation("question %d is not flagged for manual grading", questionID)
		}
		if points < 0 || points > question.Points {
			return apperr.Validation("points %d out of range for question %d (max %d)", points, questionID, question.Points)
		}

		var answer model.Answer
		err := tx.Where("result_id = ? AND question_id = ?", resultID, questionID).First(&answer).Error
		if err != nil {
			return notFoundOr(err, "no answer for question %d on result %d", questionID, resultID)
		}
		correct := points > 0
		answer.IsCorrect = &correct
		answer.PointsAwarded = points
		if err := tx.Save(&answer).Error; err != nil {
			return fmt.Errorf("saving graded answer: %w", err)
		}

		// Re-aggregate over the stored answers, which Finish already aligned
		// with the grading rules; manual grades add on top.
		var answers []model.Answer
		if err := tx.Where("result_id = ?", resultID).Find(&answers).Error; err != nil {
			return fmt.Errorf("loading answers: %w", err)
		}
		score, correctCount, pendingCount := 0, 0, 0
		for _, a := range answers {
			score += a.PointsAwarded
			switch {
			case a.IsCorrect == nil:
				pendingCount++
			case *a.IsCorrect:
				correctCount++
			}
		}
		result.Score = score
		result.CorrectCount = correctCount
		result.PendingCount = pendingCount
		if pendingCount == 0 {
			result.Status = model.ResultStatusGraded
		}
		if err := tx.Save(&result).Error; err != nil {
			return fmt.Errorf("saving result: %w", err)
		}
		summary = summaryFromResult(&result)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

func (s *resultService) GetSummary(resultID uint) (*dto.ResultSummaryResponse, error) {
	result, err := s.resultRepo.FindByID(resultID)
	if err != nil {
		return nil, notFoundOr(err, "result %d not found", resultID)
	}
	return summaryFromResult(result), nil
}

// guardMutable rejects mutations on terminal, blocked, or paused results.
func guardMutable(result *model.Result) error {
	switch result.Status {
	case model.ResultStatusSubmitted, model.ResultStatusGraded:
		return apperr.ResultTerminal("result %d has already been submitted", result.ID)
	case model.ResultStatusKicked:
		return apperr.ResultTerminal("result %d was kicked from the exam", result.ID)
	}
	if result.IsBlocked {
		return apperr.Forbidden("result %d is blocked", result.ID)
	}
	if result.IsPaused {
		return apperr.Forbidden("result %d is paused", result.ID)
	}
	return nil
}

func summaryFromResult(result *model.Result) *dto.ResultSummaryResponse {
	return &dto.ResultSummaryResponse{
		ResultID:     result.ID,
		QuizID:       result.QuizID,
		StudentID:    result.StudentID,
		Status:       result.Status,
		Score:        result.Score,
		TotalPoints:  result.TotalPoints,
		CorrectCount: result.CorrectCount,
		PendingCount: result.PendingCount,
		IsPaused:     result.IsPaused,
		IsBlocked:    result.IsBlocked,
		StartedAt:    result.StartedAt,
		SubmittedAt:  result.SubmittedAt,
	}
}
