package service_test

import (
	"testing"

	"github.com/pvhuy/examhall/internal/apperr"
	"github.com/pvhuy/examhall/internal/model"
	"github.com/pvhuy/examhall/internal/service"
)

func TestRecordViolationWarningsThenKick(t *testing.T) {
	env := newTestEnv(t)
	quiz := seedQuiz(t, env, model.QuizStatusStarted, 10)

	first, err := env.violations.Record(10, quiz.ID, model.ViolationTabSwitch)
	if err != nil {
		t.Fatalf("first violation: %v", err)
	}
	if first.Action != service.ViolationActionWarning || first.Count != 1 || first.RemainingWarnings != 2 {
		t.Fatalf("first = %+v, want warning 1/3 with 2 remaining", first)
	}

	second, err := env.violations.Record(10, quiz.ID, model.ViolationPageLeave)
	if err != nil {
		t.Fatalf("second violation: %v", err)
	}
	if second.Action != service.ViolationActionWarning || second.Count != 2 || second.RemainingWarnings != 1 {
		t.Fatalf("second = %+v, want warning 2/3 with 1 remaining", second)
	}

	third, err := env.violations.Record(10, quiz.ID, model.ViolationMinimize)
	if err != nil {
		t.Fatalf("third violation: %v", err)
	}
	if third.Action != service.ViolationActionKicked || third.Count != 3 {
		t.Fatalf("third = %+v, want kicked at count 3", third)
	}

	result, err := env.results.Find(10, quiz.ID)
	if err != nil {
		t.Fatalf("loading result: %v", err)
	}
	if result.Status != model.ResultStatusKicked {
		t.Fatalf("result status = %s, want kicked", result.Status)
	}

	var kick model.KickRecord
	if err := env.db.Where("result_id = ?", result.ID).First(&kick).Error; err != nil {
		t.Fatalf("loading kick record: %v", err)
	}
	if kick.ViolationCount != 3 {
		t.Fatalf("kick record count = %d, want 3", kick.ViolationCount)
	}
}

func TestRecordViolationAfterKickIsFrozen(t *testing.T) {
	env := newTestEnv(t)
	quiz := seedQuiz(t, env, model.QuizStatusStarted, 10)

	for i := 0; i < 3; i++ {
		if _, err := env.violations.Record(10, quiz.ID, model.ViolationTabSwitch); err != nil {
			t.Fatalf("violation %d: %v", i+1, err)
		}
	}

	// The fourth report is a no-op against a terminal result.
	fourth, err := env.violations.Record(10, quiz.ID, model.ViolationTabSwitch)
	if err != nil {
		t.Fatalf("post-kick violation: %v", err)
	}
	if fourth.Action != service.ViolationActionKicked || fourth.Count != 3 {
		t.Fatalf("post-kick = %+v, want kicked with frozen count 3", fourth)
	}

	result, err := env.results.Find(10, quiz.ID)
	if err != nil {
		t.Fatalf("loading result: %v", err)
	}
	var n int64
	if err := env.db.Model(&model.Violation{}).Where("result_id = ?", result.ID).Count(&n).Error; err != nil {
		t.Fatalf("counting violations: %v", err)
	}
	if n != 3 {
		t.Fatalf("got %d violation rows, want 3 (no append after kick)", n)
	}
}

func TestKickedResultRefusesAnswersAndFinish(t *testing.T) {
	env := newTestEnv(t)
	quiz := seedQuiz(t, env, model.QuizStatusStarted, 10)
	result := enter(t, env, 10, quiz.ID)

	for i := 0; i < 3; i++ {
		if _, err := env.violations.Record(10, quiz.ID, model.ViolationTabSwitch); err != nil {
			t.Fatalf("violation %d: %v", i+1, err)
		}
	}

	q1 := quiz.Questions[0]
	_, err := env.results.RecordAnswer(result.ID, q1.ID, optionID(t, q1, "Paris"), 5)
	wantKind(t, err, apperr.KindResultTerminal)

	_, err = env.results.Finish(result.ID)
	wantKind(t, err, apperr.KindResultTerminal)
}

func TestRecordViolationCreatesResultLazily(t *testing.T) {
	env := newTestEnv(t)
	quiz := seedQuiz(t, env, model.QuizStatusStarted, 10)

	// The student never joined; the report itself opens the attempt.
	resp, err := env.violations.Record(10, quiz.ID, model.ViolationOther)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if resp.Count != 1 {
		t.Fatalf("count = %d, want 1", resp.Count)
	}
	if _, err := env.results.Find(10, quiz.ID); err != nil {
		t.Fatalf("result was not created: %v", err)
	}
}

func TestRecordViolationValidation(t *testing.T) {
	env := newTestEnv(t)
	quiz := seedQuiz(t, env, model.QuizStatusStarted, 10)

	_, err := env.violations.Record(10, quiz.ID, "sneezing")
	wantKind(t, err, apperr.KindValidation)
}

func TestRecordViolationOnBlockedResultIsRefused(t *testing.T) {
	env := newTestEnv(t)
	quiz := seedQuiz(t, env, model.QuizStatusStarted, 10)
	result := enter(t, env, 10, quiz.ID)
	yes := true
	if _, err := env.results.SetPauseBlock(result.ID, nil, &yes); err != nil {
		t.Fatalf("blocking: %v", err)
	}

	// A frozen attempt must not creep toward a kick.
	for i := 0; i < 3; i++ {
		_, err := env.violations.Record(10, quiz.ID, model.ViolationTabSwitch)
		wantKind(t, err, apperr.KindForbidden)
	}

	var n int64
	if err := env.db.Model(&model.Violation{}).Where("result_id = ?", result.ID).Count(&n).Error; err != nil {
		t.Fatalf("counting violations: %v", err)
	}
	if n != 0 {
		t.Fatalf("blocked result accumulated %d violation rows, want 0", n)
	}
	reloaded, err := env.results.Find(10, quiz.ID)
	if err != nil {
		t.Fatalf("reloading result: %v", err)
	}
	if reloaded.Status != model.ResultStatusInProgress || !reloaded.IsBlocked {
		t.Fatalf("result mutated while blocked: status=%s blocked=%v", reloaded.Status, reloaded.IsBlocked)
	}
}

func TestRecordViolationOnPausedResultIsRefused(t *testing.T) {
	env := newTestEnv(t)
	quiz := seedQuiz(t, env, model.QuizStatusStarted, 10)
	result := enter(t, env, 10, quiz.ID)
	yes := true
	if _, err := env.results.SetPauseBlock(result.ID, &yes, nil); err != nil {
		t.Fatalf("pausing: %v", err)
	}

	_, err := env.violations.Record(10, quiz.ID, model.ViolationTabSwitch)
	wantKind(t, err, apperr.KindForbidden)
}

func TestRecordViolationBeforeStartIsRejected(t *testing.T) {
	env := newTestEnv(t)
	quiz := seedQuiz(t, env, model.QuizStatusActive, 10)

	_, err := env.violations.Record(10, quiz.ID, model.ViolationTabSwitch)
	wantKind(t, err, apperr.KindInvalidStateTransition)

	// The lazily created attempt stays clean for the real exam.
	result, err := env.results.Find(10, quiz.ID)
	if err != nil {
		t.Fatalf("reloading result: %v", err)
	}
	var n int64
	if err := env.db.Model(&model.Violation{}).Where("result_id = ?", result.ID).Count(&n).Error; err != nil {
		t.Fatalf("counting violations: %v", err)
	}
	if n != 0 {
		t.Fatalf("waiting result accumulated %d violation rows, want 0", n)
	}
}

func TestRecordViolationAfterSubmitIsTerminal(t *testing.T) {
	env := newTestEnv(t)
	quiz := seedQuiz(t, env, model.QuizStatusStarted, 10)
	result := enter(t, env, 10, quiz.ID)
	if _, err := env.results.Finish(result.ID); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	_, err := env.violations.Record(10, quiz.ID, model.ViolationTabSwitch)
	wantKind(t, err, apperr.KindResultTerminal)
}

func TestViolationLimitIsConfigurable(t *testing.T) {
	env := newTestEnv(t)
	quiz := seedQuiz(t, env, model.QuizStatusStarted, 10)

	strict := service.NewViolationService(env.results, env.db, 1)
	resp, err := strict.Record(10, quiz.ID, model.ViolationTabSwitch)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if resp.Action != service.ViolationActionKicked || resp.Count != 1 {
		t.Fatalf("resp = %+v, want immediate kick at limit 1", resp)
	}
}
