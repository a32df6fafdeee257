package service

import (
	"fmt"
	"sort"

	"github.com/pvhuy/examhall/internal/dto"
	"github.com/pvhuy/examhall/internal/model"
	"github.com/pvhuy/examhall/internal/repository"
)

// Live-monitor status labels.
const (
	LabelFinished   = "Finished"
	LabelStarted    = "Started"
	LabelInProgress = "In Progress"
)

// MonitorService is the read-only projection feeding the teacher dashboard.
// It never mutates result or answer state.
type MonitorService interface {
	GetLiveStats(quizID uint) ([]dto.LiveStatRow, error)
}

type monitorService struct {
	quizRepo      repository.QuizRepository
	questionRepo  repository.QuestionRepository
	resultRepo    repository.ResultRepository
	violationRepo repository.ViolationRepository
}

func NewMonitorService(
	quizRepo repository.QuizRepository,
	questionRepo repository.QuestionRepository,
	resultRepo repository.ResultRepository,
	violationRepo repository.ViolationRepository,
) MonitorService {
	return &monitorService{
		quizRepo:      quizRepo,
		questionRepo:  questionRepo,
		resultRepo:    resultRepo,
		violationRepo: violationRepo,
	}
}

func (s *monitorService) GetLiveStats(quizID uint) ([]dto.LiveStatRow, error) {
	if _, err := s.quizRepo.FindByID(quizID); err != nil {
		return nil, notFoundOr(err, "quiz %d not found", quizID)
	}
	questions, err := s.questionRepo.FindByQuizID(quizID)
	if err != nil {
		return nil, fmt.Errorf("loading questions: %w", err)
	}
	results, err := s.resultRepo.FindAllByQuizWithAnswers(quizID)
	if err != nil {
		return nil, fmt.Errorf("loading results: %w", err)
	}
	violations, err := s.violationRepo.MaxCountsByQuiz(quizID)
	if err != nil {
		return nil, fmt.Errorf("loading violation counts: %w", err)
	}

	questionCount := len(questions)
	rows := make([]dto.LiveStatRow, 0, len(results))
	for _, result := range results {
		row := dto.LiveStatRow{
			ResultID:   result.ID,
			StudentID:  result.StudentID,
			Violations: violations[result.ID],
			IsPaused:   result.IsPaused,
			IsBlocked:  result.IsBlocked,
		}
		for _, answer := range result.Answers {
			row.Answered++
			row.TimeSpentSeconds += answer.TimeSpentSeconds
			switch {
			case answer.IsCorrect == nil:
				row.Pending++
			case *answer.IsCorrect:
				row.Correct++
			default:
				row.Wrong++
			}
		}
		if questionCount > 0 {
			row.Percent = float64(row.Answered) / float64(questionCount) * 100
		}
		switch {
		case result.Status == model.ResultStatusSubmitted || result.Status == model.ResultStatusGraded:
			row.StatusLabel = LabelFinished
		case row.Answered == 0:
			row.StatusLabel = LabelStarted
		default:
			row.StatusLabel = LabelInProgress
		}
		rows = append(rows, row)
	}

	// Done-and-good first: submitted, then correct count, speed as tiebreak,
	// then answered count.
	sort.SliceStable(rows, func(i, j int) bool {
		fi := rows[i].StatusLabel == LabelFinished
		fj := rows[j].StatusLabel == LabelFinished
		if fi != fj {
			return fi
		}
		if rows[i].Correct != rows[j].Correct {
			return rows[i].Correct > rows[j].Correct
		}
		if rows[i].TimeSpentSeconds != rows[j].TimeSpentSeconds {
			return rows[i].TimeSpentSeconds < rows[j].TimeSpentSeconds
		}
		return rows[i].Answered > rows[j].Answered
	})
	return rows, nil
}
