package dto

// JoinQuizRequest is the student join payload; identity comes from the
// X-Student-ID header, not the body.
type JoinQuizRequest struct {
	RoomCode string `json:"room_code" binding:"required,alphanum,min=4,max=12"`
}

type SubmitAnswerRequest struct {
	QuestionID       uint   `json:"question_id" binding:"required"`
	Answer           string `json:"answer" binding:"required"`
	TimeTakenSeconds int    `json:"time_taken_seconds" binding:"min=0"`
}

type ReportViolationRequest struct {
	Type string `json:"type" binding:"required,oneof=tab_switch page_leave minimize other"`
}

type SetQuizStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=draft active started finished"`
}

type AdjustTimeRequest struct {
	DeltaMinutes int `json:"delta_minutes" binding:"required"`
}

// ControlResultRequest toggles the administrative pause/block facets. Both
// fields are optional; omitted fields are left untouched.
type ControlResultRequest struct {
	Paused  *bool `json:"paused"`
	Blocked *bool `json:"blocked"`
}

type GradeAnswerRequest struct {
	Points *int `json:"points" binding:"required,min=0"`
}

// OptionForQuizRequest is one choice of a choice-type question.
type OptionForQuizRequest struct {
	Text      string `json:"text" binding:"required"`
	IsCorrect bool   `json:"is_correct"`
}

// QuestionForQuizRequest is used when creating questions as part of a new quiz.
type QuestionForQuizRequest struct {
	Prompt           string                 `json:"prompt" binding:"required"`
	Type             string                 `json:"type" binding:"required,oneof=single_choice true_false multi_select short_answer"`
	Points           int                    `json:"points" binding:"required,min=1"`
	OrderInQuiz      int                    `json:"order_in_quiz" binding:"required,min=1"`
	TimeLimitSeconds *int                   `json:"time_limit_seconds" binding:"omitempty,min=5"`
	CanonicalAnswer  *string                `json:"canonical_answer"`
	Options          []OptionForQuizRequest `json:"options" binding:"omitempty,dive"`
}

type CreateQuizRequest struct {
	Title           string                   `json:"title" binding:"required"`
	Description     string                   `json:"description"`
	DurationMinutes int                      `json:"duration_minutes" binding:"required,min=1"`
	TimerMode       string                   `json:"timer_mode" binding:"omitempty,oneof=exam question"`
	Questions       []QuestionForQuizRequest `json:"questions" binding:"omitempty,dive"`
}
