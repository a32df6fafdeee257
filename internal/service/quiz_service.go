package service

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/jinzhu/copier"
	"github.com/pvhuy/examhall/internal/apperr"
	"github.com/pvhuy/examhall/internal/dto"
	"github.com/pvhuy/examhall/internal/model"
	"github.com/pvhuy/examhall/internal/repository"
	"github.com/pvhuy/examhall/internal/timesync"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Room codes avoid 0/O and 1/I so they survive being read out loud.
const roomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
const roomCodeLength = 6

// QuizService owns the quiz lifecycle: draft -> active -> started -> finished,
// forward-only. It also handles the room-code join flow and the status poll
// that drives timer synchronization.
type QuizService interface {
	CreateQuiz(teacherID uint, req dto.CreateQuizRequest) (*dto.QuizResponse, error)
	SetStatus(quizID uint, newStatus string) (*dto.QuizResponse, error)
	AdjustTime(quizID uint, deltaMinutes int) (*dto.QuizResponse, error)
	FindByRoomCode(code string) (*model.Quiz, error)
	Join(studentID uint, roomCode string) (*dto.JoinQuizResponse, error)
	GetStatus(quizID uint) (*dto.QuizStatusResponse, error)
}

type quizService struct {
	quizRepo      repository.QuizRepository
	rosterRepo    repository.RosterRepository
	resultService ResultService
	db            *gorm.DB
}

func NewQuizService(
	quizRepo repository.QuizRepository,
	rosterRepo repository.RosterRepository,
	resultService ResultService,
	db *gorm.DB,
) QuizService {
	return &quizService{
		quizRepo:      quizRepo,
		rosterRepo:    rosterRepo,
		resultService: resultService,
		db:            db,
	}
}

func (s *quizService) CreateQuiz(teacherID uint, req dto.CreateQuizRequest) (*dto.QuizResponse, error) {
	quiz := model.Quiz{
		TeacherID:       teacherID,
		Title:           req.Title,
		Description:     req.Description,
		DurationMinutes: req.DurationMinutes,
		TimerMode:       req.TimerMode,
		Status:          model.QuizStatusDraft,
	}
	if quiz.TimerMode == "" {
		quiz.TimerMode = model.TimerModeExam
	}

	for _, q := range req.Questions {
		question, err := buildQuestion(q)
		if err != nil {
			return nil, err
		}
		quiz.Questions = append(quiz.Questions, *question)
	}

	code, err := s.generateRoomCode()
	if err != nil {
		return nil, err
	}
	quiz.RoomCode = code

	if err := s.quizRepo.Create(&quiz); err != nil {
		log.Error().Err(err).Msg("CreateQuiz: failed to persist quiz")
		return nil, fmt.Errorf("creating quiz: %w", err)
	}
	log.Info().Uint("quizID", quiz.ID).Str("roomCode", quiz.RoomCode).Msg("Quiz created")

	var resp dto.QuizResponse
	if err := copier.Copy(&resp, &quiz); err != nil {
		return nil, fmt.Errorf("preparing quiz response: %w", err)
	}
	return &resp, nil
}

// buildQuestion validates the authoring payload against the grading
// invariants before anything is persisted.
func buildQuestion(q dto.QuestionForQuizRequest) (*model.Question, error) {
	question := model.Question{
		Prompt:           q.Prompt,
		Type:             q.Type,
		Points:           q.Points,
		OrderInQuiz:      q.OrderInQuiz,
		TimeLimitSeconds: q.TimeLimitSeconds,
		CanonicalAnswer:  q.CanonicalAnswer,
	}

	correctCount := 0
	for i, opt := range q.Options {
		question.Options = append(question.Options, model.Option{
			Text:      opt.Text,
			IsCorrect: opt.IsCorrect,
			Position:  i + 1,
		})
		if opt.IsCorrect {
			correctCount++
		}
	}

	switch q.Type {
	case model.QuestionTypeSingleChoice, model.QuestionTypeTrueFalse:
		if correctCount != 1 {
			return nil, apperr.Validation("question %q must have exactly one correct option", q.Prompt)
		}
		if len(q.Options) < 2 {
			return nil, apperr.Validation("question %q needs at least two options", q.Prompt)
		}
	case model.QuestionTypeMultiSelect:
		if correctCount == 0 {
			return nil, apperr.Validation("question %q must mark at least one option correct", q.Prompt)
		}
	case model.QuestionTypeShortAnswer:
		if q.CanonicalAnswer == nil || *q.CanonicalAnswer == "" {
			return nil, apperr.Validation("question %q needs a canonical answer or the manual-grading marker", q.Prompt)
		}
	default:
		return nil, apperr.Validation("unsupported question type %q", q.Type)
	}
	return &question, nil
}

func (s *quizService) generateRoomCode() (string, error) {
	for attempt := 0; attempt < 10; attempt++ {
		buf := make([]byte, roomCodeLength)
		for i := range buf {
			n, err := rand.Int(rand.Reader, big.NewInt(int64(len(roomCodeAlphabet))))
			if err != nil {
				return "", fmt.Errorf("generating room code: %w", err)
			}
			buf[i] = roomCodeAlphabet[n.Int64()]
		}
		code := string(buf)
		exists, err := s.quizRepo.RoomCodeExists(code)
		if err != nil {
			return "", fmt.Errorf("checking room code uniqueness: %w", err)
		}
		if !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("could not allocate a unique room code")
}

// SetStatus validates a forward-only transition inside one transaction so two
// concurrent calls can never double-stamp the start time. Re-setting the
// current status is an idempotent no-op.
func (s *quizService) SetStatus(quizID uint, newStatus string) (*dto.QuizResponse, error) {
	if !model.ValidQuizStatus(newStatus) {
		return nil, apperr.Validation("unknown quiz status %q", newStatus)
	}

	var quiz model.Quiz
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&quiz, quizID).Error; err != nil {
			return notFoundOr(err, "quiz %d not found", quizID)
		}
		if quiz.Status == newStatus {
			return nil // idempotent
		}
		if model.QuizStatusRank(newStatus) < model.QuizStatusRank(quiz.Status) {
			return apperr.InvalidStateTransition("cannot move quiz %d from %s back to %s", quizID, quiz.Status, newStatus)
		}
		quiz.Status = newStatus
		if newStatus == model.QuizStatusStarted && quiz.StartTime == nil {
			now := time.Now().UTC()
			quiz.StartTime = &now
		}
		return tx.Save(&quiz).Error
	})
	if err != nil {
		return nil, err
	}
	log.Info().Uint("quizID", quiz.ID).Str("status", quiz.Status).Msg("Quiz status updated")

	var resp dto.QuizResponse
	if err := copier.Copy(&resp, &quiz); err != nil {
		return nil, fmt.Errorf("preparing quiz response: %w", err)
	}
	return &resp, nil
}

// AdjustTime changes the duration of a running exam. The start time never
// moves. Adjustments that would put the deadline in the past are rejected
// outright rather than clamped; the teacher sees the validation error and can
// pick a delta that still leaves time on the clock.
func (s *quizService) AdjustTime(quizID uint, deltaMinutes int) (*dto.QuizResponse, error) {
	var quiz model.Quiz
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&quiz, quizID).Error; err != nil {
			return notFoundOr(err, "quiz %d not found", quizID)
		}
		if quiz.Status != model.QuizStatusStarted {
			return apperr.InvalidStateTransition("time can only be adjusted while quiz %d is started, current status %s", quizID, quiz.Status)
		}
		newDuration := quiz.DurationMinutes + deltaMinutes
		if newDuration <= 0 {
			return apperr.Validation("adjustment of %+d min would leave quiz %d with no duration", deltaMinutes, quizID)
		}
		if quiz.StartTime != nil {
			deadline := timesync.Deadline(*quiz.StartTime, newDuration)
			if !deadline.After(time.Now().UTC()) {
				return apperr.Validation("adjustment of %+d min would end quiz %d in the past", deltaMinutes, quizID)
			}
		}
		quiz.DurationMinutes = newDuration
		return tx.Save(&quiz).Error
	})
	if err != nil {
		return nil, err
	}
	log.Info().Uint("quizID", quiz.ID).Int("deltaMinutes", deltaMinutes).
		Int("durationMinutes", quiz.DurationMinutes).Msg("Quiz duration adjusted")

	var resp dto.QuizResponse
	if err := copier.Copy(&resp, &quiz); err != nil {
		return nil, fmt.Errorf("preparing quiz response: %w", err)
	}
	return &resp, nil
}

func (s *quizService) FindByRoomCode(code string) (*model.Quiz, error) {
	quiz, err := s.quizRepo.FindByRoomCode(code)
	if err != nil {
		return nil, notFoundOr(err, "no quiz with room code %q", code)
	}
	return quiz, nil
}

// Join resolves a room code, checks the roster, and lazily creates (or
// returns) the student's result. Draft quizzes are invisible; a started quiz
// only re-admits students who already hold a result (the room is frozen).
func (s *quizService) Join(studentID uint, roomCode string) (*dto.JoinQuizResponse, error) {
	quiz, err := s.FindByRoomCode(roomCode)
	if err != nil {
		return nil, err
	}
	if quiz.Status == model.QuizStatusDraft {
		return nil, apperr.NotFound("no quiz with room code %q", roomCode)
	}
	if quiz.Status == model.QuizStatusFinished {
		return nil, apperr.Forbidden("quiz %d has already finished", quiz.ID)
	}

	member, err := s.rosterRepo.IsMember(quiz.ID, studentID)
	if err != nil {
		return nil, fmt.Errorf("checking roster membership: %w", err)
	}
	if !member {
		return nil, apperr.Forbidden("student %d is not on the roster for quiz %d", studentID, quiz.ID)
	}

	// A started quiz has a frozen room: only students who already hold a
	// result may re-enter.
	if quiz.Status == model.QuizStatusStarted {
		if _, err := s.resultService.Find(studentID, quiz.ID); err != nil {
			if apperr.IsKind(err, apperr.KindNotFound) {
				return nil, apperr.Forbidden("quiz %d has already started; the room is frozen", quiz.ID)
			}
			return nil, err
		}
	}

	result, err := s.resultService.Enter(studentID, quiz.ID)
	if err != nil {
		return nil, err
	}

	resp := dto.JoinQuizResponse{
		QuizID:          quiz.ID,
		ResultID:        result.ID,
		QuizStatus:      quiz.Status,
		ResultStatus:    result.Status,
		Title:           quiz.Title,
		DurationMinutes: quiz.DurationMinutes,
		TimerMode:       quiz.TimerMode,
	}

	// Questions are withheld until the exam is actually running.
	if quiz.Status == model.QuizStatusStarted && result.Status == model.ResultStatusInProgress {
		withQuestions, err := s.quizRepo.FindByIDWithQuestions(quiz.ID)
		if err != nil {
			return nil, fmt.Errorf("loading quiz questions: %w", err)
		}
		for _, q := range withQuestions.Questions {
			var qDTO dto.QuestionResponse
			if err := copier.Copy(&qDTO, &q); err != nil {
				return nil, fmt.Errorf("preparing question response: %w", err)
			}
			resp.Questions = append(resp.Questions, qDTO)
		}
	}
	return &resp, nil
}

// GetStatus is the timer-synchronization poll. It always reports the server
// clock; the deadline fields appear once the quiz has started.
func (s *quizService) GetStatus(quizID uint) (*dto.QuizStatusResponse, error) {
	quiz, err := s.quizRepo.FindByID(quizID)
	if err != nil {
		return nil, notFoundOr(err, "quiz %d not found", quizID)
	}

	now := time.Now().UTC()
	resp := dto.QuizStatusResponse{
		QuizID:          quiz.ID,
		Status:          quiz.Status,
		StartTime:       quiz.StartTime,
		DurationMinutes: quiz.DurationMinutes,
		ServerTime:      now,
	}
	if quiz.Status == model.QuizStatusStarted && quiz.StartTime != nil {
		endsAt := timesync.Deadline(*quiz.StartTime, quiz.DurationMinutes)
		remaining := int64(timesync.Remaining(endsAt, now).Seconds())
		resp.EndsAt = &endsAt
		resp.RemainingSeconds = &remaining
	}
	return &resp, nil
}

// notFoundOr maps gorm's record-not-found onto the NotFound kind and wraps
// anything else untouched.
func notFoundOr(err error, format string, args ...interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(format, args...)
	}
	return err
}
