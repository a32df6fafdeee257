package service_test

import (
	"strconv"
	"testing"
	"time"

	"github.com/pvhuy/examhall/internal/model"
	"github.com/pvhuy/examhall/internal/repository"
	"github.com/pvhuy/examhall/internal/service"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testEnv struct {
	db         *gorm.DB
	grading    service.GradingService
	results    service.ResultService
	quizzes    service.QuizService
	violations service.ViolationService
	monitor    service.MonitorService
	guard      service.AccessGuard
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	err = db.AutoMigrate(
		&model.Quiz{},
		&model.Question{},
		&model.Option{},
		&model.Result{},
		&model.Answer{},
		&model.Violation{},
		&model.KickRecord{},
		&model.RosterEntry{},
	)
	if err != nil {
		t.Fatalf("migrating test db: %v", err)
	}

	quizRepo := repository.NewQuizRepository(db)
	questionRepo := repository.NewQuestionRepository(db)
	resultRepo := repository.NewResultRepository(db)
	violationRepo := repository.NewViolationRepository(db)
	rosterRepo := repository.NewRosterRepository(db)

	grading := service.NewGradingService()
	results := service.NewResultService(resultRepo, quizRepo, grading, db)
	quizzes := service.NewQuizService(quizRepo, rosterRepo, results, db)
	violations := service.NewViolationService(results, db, 3)
	monitor := service.NewMonitorService(quizRepo, questionRepo, resultRepo, violationRepo)
	guard := service.NewAccessGuard(quizRepo, resultRepo, rosterRepo)

	return &testEnv{
		db:         db,
		grading:    grading,
		results:    results,
		quizzes:    quizzes,
		violations: violations,
		monitor:    monitor,
		guard:      guard,
	}
}

// seedQuiz writes a quiz with four questions covering every grading rule:
// single choice (2 pts), multi select (3 pts), short answer (1 pt), and a
// manual-grading short answer (4 pts). The listed students go on the roster.
func seedQuiz(t *testing.T, env *testEnv, status string, studentIDs ...uint) *model.Quiz {
	t.Helper()
	manual := model.ManualGradingSentinel
	canonical := "Grand Canyon"
	quiz := model.Quiz{
		TeacherID:       1,
		Title:           "Geography check",
		RoomCode:        "ABC123",
		DurationMinutes: 30,
		TimerMode:       model.TimerModeExam,
		Status:          status,
		Questions: []model.Question{
			{
				Prompt:      "Capital of France?",
				Type:        model.QuestionTypeSingleChoice,
				Points:      2,
				OrderInQuiz: 1,
				Options: []model.Option{
					{Text: "Paris", IsCorrect: true, Position: 1},
					{Text: "Rome", Position: 2},
				},
			},
			{
				Prompt:      "Which are oceans?",
				Type:        model.QuestionTypeMultiSelect,
				Points:      3,
				OrderInQuiz: 2,
				Options: []model.Option{
					{Text: "Pacific", IsCorrect: true, Position: 1},
					{Text: "Sahara", Position: 2},
					{Text: "Atlantic", IsCorrect: true, Position: 3},
				},
			},
			{
				Prompt:          "Name the canyon carved by the Colorado River.",
				Type:            model.QuestionTypeShortAnswer,
				Points:          1,
				OrderInQuiz:     3,
				CanonicalAnswer: &canonical,
			},
			{
				Prompt:          "Describe plate tectonics in one sentence.",
				Type:            model.QuestionTypeShortAnswer,
				Points:          4,
				OrderInQuiz:     4,
				CanonicalAnswer: &manual,
			},
		},
	}
	if status == model.QuizStatusStarted {
		now := time.Now().UTC()
		quiz.StartTime = &now
	}
	if err := env.db.Create(&quiz).Error; err != nil {
		t.Fatalf("seeding quiz: %v", err)
	}
	for _, sid := range studentIDs {
		entry := model.RosterEntry{QuizID: quiz.ID, StudentID: sid}
		if err := env.db.Create(&entry).Error; err != nil {
			t.Fatalf("seeding roster: %v", err)
		}
	}

	var loaded model.Quiz
	err := env.db.
		Preload("Questions", func(db *gorm.DB) *gorm.DB { return db.Order("order_in_quiz ASC") }).
		Preload("Questions.Options", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&loaded, quiz.ID).Error
	if err != nil {
		t.Fatalf("reloading quiz: %v", err)
	}
	return &loaded
}

func optionID(t *testing.T, q model.Question, text string) string {
	t.Helper()
	for _, opt := range q.Options {
		if opt.Text == text {
			return strconv.FormatUint(uint64(opt.ID), 10)
		}
	}
	t.Fatalf("no option %q on question %d", text, q.ID)
	return ""
}
