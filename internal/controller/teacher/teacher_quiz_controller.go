package teacher

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pvhuy/examhall/internal/apperr"
	"github.com/pvhuy/examhall/internal/dto"
	"github.com/pvhuy/examhall/internal/service"
	"github.com/rs/zerolog/log"
)

// TeacherQuizController exposes the teacher side: quiz authoring at the
// boundary, lifecycle control, live time adjustment, the monitoring
// dashboard, and per-student pause/block and manual grading. The verified
// teacher identity arrives in the X-Teacher-ID header from the auth layer.
type TeacherQuizController struct {
	quizService    service.QuizService
	resultService  service.ResultService
	monitorService service.MonitorService
	guard          service.AccessGuard
}

func NewTeacherQuizController(
	quizService service.QuizService,
	resultService service.ResultService,
	monitorService service.MonitorService,
	guard service.AccessGuard,
) *TeacherQuizController {
	return &TeacherQuizController{
		quizService:    quizService,
		resultService:  resultService,
		monitorService: monitorService,
		guard:          guard,
	}
}

// CreateQuiz godoc
// @Summary (Teacher) Create a quiz with questions
// @Description Creates a draft quiz and allocates its unique room code.
// @Tags Teacher - Quizzes
// @Accept json
// @Produce json
// @Param X-Teacher-ID header int true "Verified teacher id"
// @Param quiz_data body dto.CreateQuizRequest true "Quiz and questions"
// @Success 201 {object} dto.QuizResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /teacher/quizzes [post]
func (c *TeacherQuizController) CreateQuiz(ctx *gin.Context) {
	teacherID, ok := principalID(ctx, "X-Teacher-ID")
	if !ok {
		return
	}
	var req dto.CreateQuizRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}
	resp, err := c.quizService.CreateQuiz(teacherID, req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, resp)
}

// SetStatus godoc
// @Summary (Teacher) Advance the quiz lifecycle
// @Description Forward-only: draft -> active -> started -> finished. Entering started stamps the start time exactly once.
// @Tags Teacher - Quizzes
// @Accept json
// @Produce json
// @Param X-Teacher-ID header int true "Verified teacher id"
// @Param quiz_id path int true "Quiz ID"
// @Param status_data body dto.SetQuizStatusRequest true "New status"
// @Success 200 {object} dto.QuizResponse
// @Failure 409 {object} dto.ErrorResponse "Invalid state transition"
// @Router /teacher/quizzes/{quiz_id}/status [put]
func (c *TeacherQuizController) SetStatus(ctx *gin.Context) {
	teacherID, ok := principalID(ctx, "X-Teacher-ID")
	if !ok {
		return
	}
	quizID, ok := pathID(ctx, "quiz_id")
	if !ok {
		return
	}
	var req dto.SetQuizStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}
	if _, err := c.guard.EnsureQuizOwner(teacherID, quizID); err != nil {
		respondError(ctx, err)
		return
	}
	resp, err := c.quizService.SetStatus(quizID, req.Status)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// AdjustTime godoc
// @Summary (Teacher) Adjust the running exam's duration
// @Description Signed delta in minutes; the start time never changes. Deltas that would end the exam in the past are rejected.
// @Tags Teacher - Quizzes
// @Accept json
// @Produce json
// @Param X-Teacher-ID header int true "Verified teacher id"
// @Param quiz_id path int true "Quiz ID"
// @Param time_data body dto.AdjustTimeRequest true "Delta minutes"
// @Success 200 {object} dto.QuizResponse
// @Failure 400 {object} dto.ErrorResponse "Delta would end the exam in the past"
// @Failure 409 {object} dto.ErrorResponse "Quiz not started"
// @Router /teacher/quizzes/{quiz_id}/time [post]
func (c *TeacherQuizController) AdjustTime(ctx *gin.Context) {
	teacherID, ok := principalID(ctx, "X-Teacher-ID")
	if !ok {
		return
	}
	quizID, ok := pathID(ctx, "quiz_id")
	if !ok {
		return
	}
	var req dto.AdjustTimeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}
	if _, err := c.guard.EnsureQuizOwner(teacherID, quizID); err != nil {
		respondError(ctx, err)
		return
	}
	resp, err := c.quizService.AdjustTime(quizID, req.DeltaMinutes)
	if err != nil {
		respondError(ctx, err)
		return
	}
	log.Info().Uint("quizID", quizID).Int("deltaMinutes", req.DeltaMinutes).Msg("Teacher adjusted exam time")
	ctx.JSON(http.StatusOK, resp)
}

// GetLiveStats godoc
// @Summary (Teacher) Live monitoring dashboard
// @Description Read-only ranking of all attempts: submitted first, then correct count desc, time asc, answered desc.
// @Tags Teacher - Monitoring
// @Produce json
// @Param X-Teacher-ID header int true "Verified teacher id"
// @Param quiz_id path int true "Quiz ID"
// @Success 200 {array} dto.LiveStatRow
// @Failure 404 {object} dto.ErrorResponse
// @Router /teacher/quizzes/{quiz_id}/live [get]
func (c *TeacherQuizController) GetLiveStats(ctx *gin.Context) {
	teacherID, ok := principalID(ctx, "X-Teacher-ID")
	if !ok {
		return
	}
	quizID, ok := pathID(ctx, "quiz_id")
	if !ok {
		return
	}
	if _, err := c.guard.EnsureQuizOwner(teacherID, quizID); err != nil {
		respondError(ctx, err)
		return
	}
	rows, err := c.monitorService.GetLiveStats(quizID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, rows)
}

// ControlResult godoc
// @Summary (Teacher) Pause or block a student's attempt
// @Description Pause is reversible; block is one-way within this engine.
// @Tags Teacher - Monitoring
// @Accept json
// @Produce json
// @Param X-Teacher-ID header int true "Verified teacher id"
// @Param result_id path int true "Result ID"
// @Param control_data body dto.ControlResultRequest true "Facets to change"
// @Success 200 {object} dto.ResultSummaryResponse
// @Failure 409 {object} dto.ErrorResponse "Result already terminal"
// @Router /teacher/results/{result_id}/control [put]
func (c *TeacherQuizController) ControlResult(ctx *gin.Context) {
	teacherID, ok := principalID(ctx, "X-Teacher-ID")
	if !ok {
		return
	}
	resultID, ok := pathID(ctx, "result_id")
	if !ok {
		return
	}
	var req dto.ControlResultRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}
	if req.Paused == nil && req.Blocked == nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Provide at least one of paused, blocked"})
		return
	}
	if _, err := c.guard.EnsureResultQuizOwner(teacherID, resultID); err != nil {
		respondError(ctx, err)
		return
	}
	summary, err := c.resultService.SetPauseBlock(resultID, req.Paused, req.Blocked)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, summary)
}

// GradeAnswer godoc
// @Summary (Teacher) Grade a pending short answer
// @Description Awards points to a manual-grading answer on a submitted result; once nothing is pending the result becomes graded.
// @Tags Teacher - Monitoring
// @Accept json
// @Produce json
// @Param X-Teacher-ID header int true "Verified teacher id"
// @Param result_id path int true "Result ID"
// @Param question_id path int true "Question ID"
// @Param grade_data body dto.GradeAnswerRequest true "Points awarded"
// @Success 200 {object} dto.ResultSummaryResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /teacher/results/{result_id}/answers/{question_id}/grade [post]
func (c *TeacherQuizController) GradeAnswer(ctx *gin.Context) {
	teacherID, ok := principalID(ctx, "X-Teacher-ID")
	if !ok {
		return
	}
	resultID, ok := pathID(ctx, "result_id")
	if !ok {
		return
	}
	questionID, ok := pathID(ctx, "question_id")
	if !ok {
		return
	}
	var req dto.GradeAnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}
	if _, err := c.guard.EnsureResultQuizOwner(teacherID, resultID); err != nil {
		respondError(ctx, err)
		return
	}
	summary, err := c.resultService.GradeAnswer(resultID, questionID, *req.Points)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, summary)
}

func principalID(ctx *gin.Context, header string) (uint, bool) {
	raw := ctx.GetHeader(header)
	if raw == "" {
		ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Message: "Missing " + header + " header"})
		return 0, false
	}
	val, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Message: "Invalid " + header + " header"})
		return 0, false
	}
	return uint(val), true
}

func pathID(ctx *gin.Context, name string) (uint, bool) {
	val, err := strconv.ParseUint(ctx.Param(name), 10, 32)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid " + name + " format"})
		return 0, false
	}
	return uint(val), true
}

func respondError(ctx *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", ctx.FullPath()).Msg("Request failed")
		ctx.JSON(status, dto.ErrorResponse{Message: "Internal server error"})
		return
	}
	ctx.JSON(status, dto.ErrorResponse{Kind: string(apperr.KindOf(err)), Message: err.Error()})
}
