package student

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pvhuy/examhall/internal/apperr"
	"github.com/pvhuy/examhall/internal/dto"
	"github.com/pvhuy/examhall/internal/service"
	"github.com/rs/zerolog/log"
)

// StudentExamController exposes the exam-taking flow: join by room code, poll
// status for timer sync, answer, report violations, finish. The verified
// student identity arrives in the X-Student-ID header from the auth layer.
type StudentExamController struct {
	quizService      service.QuizService
	resultService    service.ResultService
	violationService service.ViolationService
	guard            service.AccessGuard
}

func NewStudentExamController(
	quizService service.QuizService,
	resultService service.ResultService,
	violationService service.ViolationService,
	guard service.AccessGuard,
) *StudentExamController {
	return &StudentExamController{
		quizService:      quizService,
		resultService:    resultService,
		violationService: violationService,
		guard:            guard,
	}
}

// JoinQuiz godoc
// @Summary (Student) Join a quiz by room code
// @Description Looks up the quiz, verifies roster membership, and lazily creates the student's result. Retrying returns the same result.
// @Tags Student - Exam
// @Accept json
// @Produce json
// @Param X-Student-ID header int true "Verified student id"
// @Param join_data body dto.JoinQuizRequest true "Room code"
// @Success 200 {object} dto.JoinQuizResponse
// @Failure 403 {object} dto.ErrorResponse "Not on the roster or room closed"
// @Failure 404 {object} dto.ErrorResponse "Unknown room code"
// @Router /join [post]
func (c *StudentExamController) JoinQuiz(ctx *gin.Context) {
	studentID, ok := principalID(ctx, "X-Student-ID")
	if !ok {
		return
	}
	var req dto.JoinQuizRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	resp, err := c.quizService.Join(studentID, req.RoomCode)
	if err != nil {
		respondError(ctx, err)
		return
	}
	log.Info().Uint("studentID", studentID).Str("roomCode", req.RoomCode).Msg("Student joined quiz")
	ctx.JSON(http.StatusOK, resp)
}

// GetQuizStatus godoc
// @Summary (Student) Poll quiz status for timer synchronization
// @Description Returns quiz status, start time, duration, and the server clock so the client can compute its offset and deadline.
// @Tags Student - Exam
// @Produce json
// @Param X-Student-ID header int true "Verified student id"
// @Param quiz_id path int true "Quiz ID"
// @Success 200 {object} dto.QuizStatusResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /quizzes/{quiz_id}/status [get]
func (c *StudentExamController) GetQuizStatus(ctx *gin.Context) {
	studentID, ok := principalID(ctx, "X-Student-ID")
	if !ok {
		return
	}
	quizID, ok := pathID(ctx, "quiz_id")
	if !ok {
		return
	}
	if err := c.guard.EnsureRosterMember(studentID, quizID); err != nil {
		respondError(ctx, err)
		return
	}
	resp, err := c.quizService.GetStatus(quizID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// SubmitAnswer godoc
// @Summary (Student) Submit or change an answer
// @Description Grades the answer instantly and upserts it; resubmitting the same question overwrites the previous answer.
// @Tags Student - Exam
// @Accept json
// @Produce json
// @Param X-Student-ID header int true "Verified student id"
// @Param result_id path int true "Result ID"
// @Param answer_data body dto.SubmitAnswerRequest true "Answer payload"
// @Success 200 {object} dto.AnswerFeedbackResponse
// @Failure 403 {object} dto.ErrorResponse "Paused or blocked"
// @Failure 409 {object} dto.ErrorResponse "Result already terminal"
// @Router /results/{result_id}/answers [post]
func (c *StudentExamController) SubmitAnswer(ctx *gin.Context) {
	studentID, ok := principalID(ctx, "X-Student-ID")
	if !ok {
		return
	}
	resultID, ok := pathID(ctx, "result_id")
	if !ok {
		return
	}
	var req dto.SubmitAnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}
	if _, err := c.guard.EnsureResultOwner(studentID, resultID); err != nil {
		respondError(ctx, err)
		return
	}
	feedback, err := c.resultService.RecordAnswer(resultID, req.QuestionID, req.Answer, req.TimeTakenSeconds)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, feedback)
}

// ReportViolation godoc
// @Summary (Student client) Report an anti-cheat violation
// @Description Appends a violation; the third one kicks the student. Reports against an already-kicked result are no-ops.
// @Tags Student - Exam
// @Accept json
// @Produce json
// @Param X-Student-ID header int true "Verified student id"
// @Param result_id path int true "Result ID"
// @Param violation_data body dto.ReportViolationRequest true "Violation type"
// @Success 200 {object} dto.ViolationResponse
// @Router /results/{result_id}/violations [post]
func (c *StudentExamController) ReportViolation(ctx *gin.Context) {
	studentID, ok := principalID(ctx, "X-Student-ID")
	if !ok {
		return
	}
	resultID, ok := pathID(ctx, "result_id")
	if !ok {
		return
	}
	var req dto.ReportViolationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}
	result, err := c.guard.EnsureResultOwner(studentID, resultID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	resp, err := c.violationService.Record(studentID, result.QuizID, req.Type)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// Finish godoc
// @Summary (Student) Finish the exam
// @Description Recomputes the final summary from stored answers and submits. Idempotent: finishing an already-submitted result returns the stored summary.
// @Tags Student - Exam
// @Produce json
// @Param X-Student-ID header int true "Verified student id"
// @Param result_id path int true "Result ID"
// @Success 200 {object} dto.ResultSummaryResponse
// @Failure 403 {object} dto.ErrorResponse "Paused or blocked"
// @Failure 409 {object} dto.ErrorResponse "Result kicked"
// @Router /results/{result_id}/finish [post]
func (c *StudentExamController) Finish(ctx *gin.Context) {
	studentID, ok := principalID(ctx, "X-Student-ID")
	if !ok {
		return
	}
	resultID, ok := pathID(ctx, "result_id")
	if !ok {
		return
	}
	if _, err := c.guard.EnsureResultOwner(studentID, resultID); err != nil {
		respondError(ctx, err)
		return
	}
	summary, err := c.resultService.Finish(resultID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, summary)
}

// GetResult godoc
// @Summary (Student) Get own result summary
// @Tags Student - Exam
// @Produce json
// @Param X-Student-ID header int true "Verified student id"
// @Param result_id path int true "Result ID"
// @Success 200 {object} dto.ResultSummaryResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /results/{result_id} [get]
func (c *StudentExamController) GetResult(ctx *gin.Context) {
	studentID, ok := principalID(ctx, "X-Student-ID")
	if !ok {
		return
	}
	resultID, ok := pathID(ctx, "result_id")
	if !ok {
		return
	}
	if _, err := c.guard.EnsureResultOwner(studentID, resultID); err != nil {
		respondError(ctx, err)
		return
	}
	summary, err := c.resultService.GetSummary(resultID)
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
