package teacher_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pvhuy/examhall/internal/controller/teacher"
	"github.com/pvhuy/examhall/internal/dto"
	"github.com/pvhuy/examhall/internal/model"
	"github.com/pvhuy/examhall/internal/repository"
	"github.com/pvhuy/examhall/internal/service"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testServer struct {
	db      *gorm.DB
	router  *gin.Engine
	results service.ResultService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	err = db.AutoMigrate(
		&model.Quiz{}, &model.Question{}, &model.Option{},
		&model.Result{}, &model.Answer{},
		&model.Violation{}, &model.KickRecord{}, &model.RosterEntry{},
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
	monitor := service.NewMonitorService(quizRepo, questionRepo, resultRepo, violationRepo)
	guard := service.NewAccessGuard(quizRepo, resultRepo, rosterRepo)

	ctrl := teacher.NewTeacherQuizController(quizzes, results, monitor, guard)

	router := gin.New()
	api := router.Group("/api/v1/teacher")
	api.POST("/quizzes", ctrl.CreateQuiz)
	api.PUT("/quizzes/:quiz_id/status", ctrl.SetStatus)
	api.POST("/quizzes/:quiz_id/time", ctrl.AdjustTime)
	api.GET("/quizzes/:quiz_id/live", ctrl.GetLiveStats)
	api.PUT("/results/:result_id/control", ctrl.ControlResult)
	api.POST("/results/:result_id/answers/:question_id/grade", ctrl.GradeAnswer)

	return &testServer{db: db, router: router, results: results}
}

func (ts *testServer) seedStartedQuiz(t *testing.T, teacherID uint) *model.Quiz {
	t.Helper()
	now := time.Now().UTC()
	manual := model.ManualGradingSentinel
	quiz := model.Quiz{
		TeacherID:       teacherID,
		Title:           "Checkpoint",
		RoomCode:        "ABC123",
		DurationMinutes: 30,
		TimerMode:       model.TimerModeExam,
		Status:          model.QuizStatusStarted,
		StartTime:       &now,
		Questions: []model.Question{{
			Prompt: "Describe erosion.", Type: model.QuestionTypeShortAnswer,
			Points: 4, OrderInQuiz: 1, CanonicalAnswer: &manual,
		}},
	}
	if err := ts.db.Create(&quiz).Error; err != nil {
		t.Fatalf("seeding quiz: %v", err)
	}
	roster := model.RosterEntry{QuizID: quiz.ID, StudentID: 10}
	if err := ts.db.Create(&roster).Error; err != nil {
		t.Fatalf("seeding roster: %v", err)
	}
	return &quiz
}

func (ts *testServer) do(t *testing.T, method, path, teacherID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var payload *bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encoding request: %v", err)
		}
		payload = bytes.NewBuffer(raw)
	} else {
		payload = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, path, payload)
	req.Header.Set("Content-Type", "application/json")
	if teacherID != "" {
		req.Header.Set("X-Teacher-ID", teacherID)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
}

func TestCreateQuizEndpoint(t *testing.T) {
	ts := newTestServer(t)
	canonical := "4"
	rec := ts.do(t, http.MethodPost, "/api/v1/teacher/quizzes", "1", dto.CreateQuizRequest{
		Title:           "Arithmetic",
		DurationMinutes: 10,
		Questions: []dto.QuestionForQuizRequest{{
			Prompt: "2+2?", Type: model.QuestionTypeShortAnswer, Points: 1,
			OrderInQuiz: 1, CanonicalAnswer: &canonical,
		}},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp dto.QuizResponse
	decode(t, rec, &resp)
	if resp.Status != model.QuizStatusDraft || len(resp.RoomCode) != 6 {
		t.Fatalf("created quiz = %+v, want a draft with a room code", resp)
	}
}

func TestSetStatusEndpoint(t *testing.T) {
	ts := newTestServer(t)
	quiz := ts.seedStartedQuiz(t, 1)
	path := "/api/v1/teacher/quizzes/" + strconv.FormatUint(uint64(quiz.ID), 10) + "/status"

	// Backward transitions are conflicts.
	rec := ts.do(t, http.MethodPut, path, "1", dto.SetQuizStatusRequest{Status: model.QuizStatusActive})
	if rec.Code != http.StatusConflict {
		t.Fatalf("backward transition status = %d, want 409", rec.Code)
	}

	// Another teacher cannot touch the quiz at all.
	rec = ts.do(t, http.MethodPut, path, "2", dto.SetQuizStatusRequest{Status: model.QuizStatusFinished})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("foreign teacher status = %d, want 403", rec.Code)
	}

	rec = ts.do(t, http.MethodPut, path, "1", dto.SetQuizStatusRequest{Status: model.QuizStatusFinished})
	if rec.Code != http.StatusOK {
		t.Fatalf("finish transition status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestAdjustTimeEndpoint(t *testing.T) {
	ts := newTestServer(t)
	quiz := ts.seedStartedQuiz(t, 1)
	path := "/api/v1/teacher/quizzes/" + strconv.FormatUint(uint64(quiz.ID), 10) + "/time"

	rec := ts.do(t, http.MethodPost, path, "1", dto.AdjustTimeRequest{DeltaMinutes: 10})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp dto.QuizResponse
	decode(t, rec, &resp)
	if resp.DurationMinutes != 40 {
		t.Fatalf("duration = %d, want 40", resp.DurationMinutes)
	}
}

func TestControlResultEndpoint(t *testing.T) {
	ts := newTestServer(t)
	quiz := ts.seedStartedQuiz(t, 1)
	result, err := ts.results.Enter(10, quiz.ID)
	if err != nil {
		t.Fatalf("entering: %v", err)
	}
	path := "/api/v1/teacher/results/" + strconv.FormatUint(uint64(result.ID), 10) + "/control"

	// An empty control payload is meaningless.
	rec := ts.do(t, http.MethodPut, path, "1", dto.ControlResultRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty control status = %d, want 400", rec.Code)
	}

	paused := true
	rec = ts.do(t, http.MethodPut, path, "1", dto.ControlResultRequest{Paused: &paused})
	if rec.Code != http.StatusOK {
		t.Fatalf("pause status = %d, body %s", rec.Code, rec.Body.String())
	}
	var summary dto.ResultSummaryResponse
	decode(t, rec, &summary)
	if !summary.IsPaused {
		t.Fatal("result should be paused")
	}
}

func TestGradeAnswerEndpoint(t *testing.T) {
	ts := newTestServer(t)
	quiz := ts.seedStartedQuiz(t, 1)
	result, err := ts.results.Enter(10, quiz.ID)
	if err != nil {
		t.Fatalf("entering: %v", err)
	}
	if _, err := ts.results.RecordAnswer(result.ID, quiz.Questions[0].ID, "wind and water wear rock down", 60); err != nil {
		t.Fatalf("answering: %v", err)
	}
	if _, err := ts.results.Finish(result.ID); err != nil {
		t.Fatalf("finishing: %v", err)
	}

	points := 3
	path := "/api/v1/teacher/results/" + strconv.FormatUint(uint64(result.ID), 10) +
		"/answers/" + strconv.FormatUint(uint64(quiz.Questions[0].ID), 10) + "/grade"
	rec := ts.do(t, http.MethodPost, path, "1", dto.GradeAnswerRequest{Points: &points})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var summary dto.ResultSummaryResponse
	decode(t, rec, &summary)
	if summary.Score != 3 || summary.Status != model.ResultStatusGraded {
		t.Fatalf("summary = %+v, want score 3 and graded", summary)
	}
}

func TestGetLiveStatsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	quiz := ts.seedStartedQuiz(t, 1)
	if _, err := ts.results.Enter(10, quiz.ID); err != nil {
		t.Fatalf("entering: %v", err)
	}

	path := "/api/v1/teacher/quizzes/" + strconv.FormatUint(uint64(quiz.ID), 10) + "/live"
	rec := ts.do(t, http.MethodGet, path, "1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var rows []dto.LiveStatRow
	decode(t, rec, &rows)
	if len(rows) != 1 || rows[0].StudentID != 10 {
		t.Fatalf("rows = %+v, want one row for student 10", rows)
	}
}
