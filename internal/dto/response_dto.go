package dto

import "time"

type ErrorResponse struct {
	Kind    string   `json:"kind,omitempty"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

type OptionResponse struct {
	ID       uint   `json:"id"`
	Text     string `json:"text"`
	Position int    `json:"position"`
}

// QuestionResponse deliberately omits correct-option flags and canonical
// answers; it is the student-facing projection.
type QuestionResponse struct {
	ID               uint             `json:"id"`
	Prompt           string           `json:"prompt"`
	Type             string           `json:"type"`
	Points           int              `json:"points"`
	OrderInQuiz      int              `json:"order_in_quiz"`
	TimeLimitSeconds *int             `json:"time_limit_seconds,omitempty"`
	Options          []OptionResponse `json:"options,omitempty"`
}

type QuizResponse struct {
	ID              uint               `json:"id"`
	Title           string             `json:"title"`
	Description     string             `json:"description,omitempty"`
	RoomCode        string             `json:"room_code"`
	DurationMinutes int                `json:"duration_minutes"`
	TimerMode       string             `json:"timer_mode"`
	Status          string             `json:"status"`
	StartTime       *time.Time         `json:"start_time,omitempty"`
	Questions       []QuestionResponse `json:"questions,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
}

// QuizStatusResponse is the timer-synchronization poll payload. ServerTime
// lets clients compute their clock offset; EndsAt/RemainingSeconds are only
// present once the quiz has started.
type QuizStatusResponse struct {
	QuizID           uint       `json:"quiz_id"`
	Status           string     `json:"status"`
	StartTime        *time.Time `json:"start_time,omitempty"`
	DurationMinutes  int        `json:"duration_minutes"`
	ServerTime       time.Time  `json:"server_time"`
	EndsAt           *time.Time `json:"ends_at,omitempty"`
	RemainingSeconds *int64     `json:"remaining_seconds,omitempty"`
}

type JoinQuizResponse struct {
	QuizID          uint               `json:"quiz_id"`
	ResultID        uint               `json:"result_id"`
	QuizStatus      string             `json:"quiz_status"`
	ResultStatus    string             `json:"result_status"`
	Title           string             `json:"title"`
	DurationMinutes int                `json:"duration_minutes"`
	TimerMode       string             `json:"timer_mode"`
	Questions       []QuestionResponse `json:"questions,omitempty"`
}

// AnswerFeedbackResponse is the instant-grading verdict for one answer.
type AnswerFeedbackResponse struct {
	QuestionID    uint   `json:"question_id"`
	Verdict       string `json:"verdict"` // correct, incorrect, pending
	PointsAwarded int    `json:"points_awarded"`
}

type ViolationResponse struct {
	Action            string `json:"action"` // warning or kicked
	Count             int    `json:"count"`
	RemainingWarnings int    `json:"remaining_warnings"`
	Message           string `json:"message"`
}

type ResultSummaryResponse struct {
	ResultID     uint       `json:"result_id"`
	QuizID       uint       `json:"quiz_id"`
	StudentID    uint       `json:"student_id"`
	Status       string     `json:"status"`
	Score        int        `json:"score"`
	TotalPoints  int        `json:"total_points"`
	CorrectCount int        `json:"correct_count"`
	PendingCount int        `json:"pending_count"`
	IsPaused     bool       `json:"is_paused"`
	IsBlocked    bool       `json:"is_blocked"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	SubmittedAt  *time.Time `json:"submitted_at,omitempty"`
}

// LiveStatRow is one row of the teacher dashboard ranking.
type LiveStatRow struct {
	ResultID         uint    `json:"result_id"`
	StudentID        uint    `json:"student_id"`
	StatusLabel      string  `json:"status_label"` // Finished, Started, In Progress
	Answered         int     `json:"answered"`
	Correct          int     `json:"correct"`
	Wrong            int     `json:"wrong"`
	Pending          int     `json:"pending"`
	TimeSpentSeconds int     `json:"time_spent_seconds"`
	Percent          float64 `json:"percent"`
	Violations       int     `json:"violations"`
	IsPaused         bool    `json:"is_paused"`
	IsBlocked        bool    `json:"is_blocked"`
}
