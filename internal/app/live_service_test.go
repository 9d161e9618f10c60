package app_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"livequiz-service/internal/app"
	"livequiz-service/internal/domain"
	"livequiz-service/internal/infra/memory"
)

const adminID = "admin-1"

func TestCreateAndJoin(t *testing.T) {
	service := newTestService(t, app.Policy{})
	snap := createSession(t, service)

	if snap.Status != domain.StatusWaiting || snap.CurrentIndex != -1 {
		t.Fatalf("expected waiting session at index -1, got %+v", snap)
	}
	if len(snap.Code) != 6 {
		t.Fatalf("expected 6-char join code, got %q", snap.Code)
	}

	id, ava, err := service.Join(snap.Code, "Ava")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if id != snap.ID || ava.Score != 0 {
		t.Fatalf("unexpected join result: id=%s participant=%+v", id, ava)
	}

	// Codes are case-insensitive.
	if _, _, err := service.Join("  "+strings.ToLower(snap.Code)+" ", "Ben"); err != nil {
		t.Fatalf("lowercase join: %v", err)
	}

	after, _ := service.Snapshot(snap.ID)
	if len(after.Participants) != 2 {
		t.Fatalf("expected 2 participants, got %d", len(after.Participants))
	}
}

func TestJoinValidation(t *testing.T) {
	service := newTestService(t, app.Policy{})
	snap := createSession(t, service)

	if _, _, err := service.Join("NOPE42", "Ava"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, _, err := service.Join(snap.Code, "   "); !errors.Is(err, domain.ErrNameRequired) {
		t.Fatalf("expected name required, got %v", err)
	}

	mustJoin(t, service, snap.Code, "Ava")
	if err := service.Start(snap.ID, adminID, false); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, _, err := service.Join(snap.Code, "Late"); !errors.Is(err, domain.ErrAlreadyStarted) {
		t.Fatalf("expected already started, got %v", err)
	}
}

func TestLeaveIsIdempotent(t *testing.T) {
	service := newTestService(t, app.Policy{})
	snap := createSession(t, service)
	ava := mustJoin(t, service, snap.Code, "Ava")

	service.Leave(snap.ID, ava.ID)
	service.Leave(snap.ID, ava.ID)
	service.Leave("missing-session", ava.ID)

	after, _ := service.Snapshot(snap.ID)
	if len(after.Participants) != 0 {
		t.Fatalf("expected empty roster, got %d", len(after.Participants))
	}
}

func TestStartPolicy(t *testing.T) {
	// Default policy: an empty session cannot start without force.
	service := newTestService(t, app.Policy{})
	snap := createSession(t, service)
	if err := service.Start(snap.ID, adminID, false); !errors.Is(err, domain.ErrNoParticipants) {
		t.Fatalf("expected no participants, got %v", err)
	}
	if err := service.Start(snap.ID, adminID, true); err != nil {
		t.Fatalf("force start: %v", err)
	}

	// AllowEmptyStart policy: no force flag needed.
	service = newTestService(t, app.Policy{AllowEmptyStart: true})
	snap = createSession(t, service)
	if err := service.Start(snap.ID, adminID, false); err != nil {
		t.Fatalf("empty start with policy: %v", err)
	}

	// Ownership check.
	service = newTestService(t, app.Policy{})
	snap = createSession(t, service)
	mustJoin(t, service, snap.Code, "Ava")
	if err := service.Start(snap.ID, "someone-else", false); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if err := service.Start(snap.ID, adminID, false); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := service.Start(snap.ID, adminID, false); !errors.Is(err, domain.ErrNotWaiting) {
		t.Fatalf("expected not waiting, got %v", err)
	}
}

func TestQuestionFlowOrdering(t *testing.T) {
	service := newTestService(t, app.Policy{})
	snap := createSession(t, service)
	mustJoin(t, service, snap.Code, "Ava")
	if err := service.Start(snap.ID, adminID, false); err != nil {
		t.Fatalf("start: %v", err)
	}

	// Question 1 before question 0 violates monotonic advance.
	if err := service.ShowQuestion(snap.ID, adminID, 1); !errors.Is(err, domain.ErrOutOfOrder) {
		t.Fatalf("expected out of order, got %v", err)
	}
	if err := service.ShowQuestion(snap.ID, adminID, 0); err != nil {
		t.Fatalf("show question 0: %v", err)
	}
	// Re-showing the same question is also out of order.
	if err := service.ShowQuestion(snap.ID, adminID, 0); !errors.Is(err, domain.ErrOutOfOrder) {
		t.Fatalf("expected out of order on repeat, got %v", err)
	}
	// No next question while one is open.
	if err := service.Advance(snap.ID, adminID); !errors.Is(err, domain.ErrQuestionOpen) {
		t.Fatalf("expected advance rejected mid-question, got %v", err)
	}

	if err := service.RevealResults(snap.ID, adminID); err != nil {
		t.Fatalf("reveal: %v", err)
	}
	if err := service.RevealResults(snap.ID, adminID); !errors.Is(err, domain.ErrNoActiveQuestion) {
		t.Fatalf("expected double reveal rejected, got %v", err)
	}

	after, _ := service.Snapshot(snap.ID)
	if after.CurrentIndex != 0 {
		t.Fatalf("expected index 0, got %d", after.CurrentIndex)
	}
}

func TestDuplicateSubmissionRejected(t *testing.T) {
	service := newTestService(t, app.Policy{})
	snap := createSession(t, service)
	ava := mustJoin(t, service, snap.Code, "Ava")
	startAndShow(t, service, snap.ID)

	awarded, total, err := service.SubmitAnswer(snap.ID, ava.ID, 1, 2000)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if awarded <= 0 || total != awarded {
		t.Fatalf("expected positive score, got awarded=%d total=%d", awarded, total)
	}

	if _, _, err := service.SubmitAnswer(snap.ID, ava.ID, 2, 2500); !errors.Is(err, domain.ErrAlreadyAnswered) {
		t.Fatalf("expected already answered, got %v", err)
	}

	// Total reflects only the first submission.
	after, _ := service.Snapshot(snap.ID)
	if after.Participants[0].Score != awarded {
		t.Fatalf("expected score %d, got %d", awarded, after.Participants[0].Score)
	}
}

func TestSubmitValidation(t *testing.T) {
	service := newTestService(t, app.Policy{})
	snap := createSession(t, service)
	ava := mustJoin(t, service, snap.Code, "Ava")

	if _, _, err := service.SubmitAnswer(snap.ID, ava.ID, 0, 100); !errors.Is(err, domain.ErrNoActiveQuestion) {
		t.Fatalf("expected no active question, got %v", err)
	}

	startAndShow(t, service, snap.ID)

	if _, _, err := service.SubmitAnswer(snap.ID, ava.ID, 9, 100); !errors.Is(err, domain.ErrInvalidOption) {
		t.Fatalf("expected invalid option, got %v", err)
	}
	if _, _, err := service.SubmitAnswer(snap.ID, "ghost", 0, 100); !errors.Is(err, domain.ErrParticipantNotFound) {
		t.Fatalf("expected participant not found, got %v", err)
	}
}

// TestFullSessionScenario walks a 3-question quiz end to end: Ava answers
// question 0 correctly and fast, Ben incorrectly; Ava finishes first.
func TestFullSessionScenario(t *testing.T) {
	service := newTestService(t, app.Policy{})
	snap := createSession(t, service)
	ava := mustJoin(t, service, snap.Code, "Ava")
	ben := mustJoin(t, service, snap.Code, "Ben")

	adminFeed, err := service.Subscribe(snap.ID, app.RoleAdmin)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer adminFeed.Cancel()
	drain(adminFeed) // initial resync

	if err := service.Start(snap.ID, adminID, false); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := service.ShowQuestion(snap.ID, adminID, 0); err != nil {
		t.Fatalf("show question: %v", err)
	}

	avaAwarded, _, err := service.SubmitAnswer(snap.ID, ava.ID, 1, 2000)
	if err != nil {
		t.Fatalf("ava submit: %v", err)
	}
	if avaAwarded <= 0 {
		t.Fatalf("expected ava to score, got %d", avaAwarded)
	}
	benAwarded, benTotal, err := service.SubmitAnswer(snap.ID, ben.ID, 0, 3000)
	if err != nil {
		t.Fatalf("ben submit: %v", err)
	}
	if benAwarded != 0 || benTotal != 0 {
		t.Fatalf("expected ben to score 0, got awarded=%d total=%d", benAwarded, benTotal)
	}

	if err := service.RevealResults(snap.ID, adminID); err != nil {
		t.Fatalf("reveal: %v", err)
	}
	results := waitForEvent[app.ResultsShown](t, adminFeed)
	if results.CorrectIndex != 1 {
		t.Fatalf("expected correct index 1, got %d", results.CorrectIndex)
	}
	if results.PerOptionCounts[0] != 1 || results.PerOptionCounts[1] != 1 {
		t.Fatalf("expected one vote per chosen option, got %v", results.PerOptionCounts)
	}

	// Two more questions, nobody answers, then finalize via advance.
	for q := 1; q <= 2; q++ {
		if err := service.Advance(snap.ID, adminID); err != nil {
			t.Fatalf("advance to %d: %v", q, err)
		}
		if err := service.RevealResults(snap.ID, adminID); err != nil {
			t.Fatalf("reveal %d: %v", q, err)
		}
	}
	if err := service.Advance(snap.ID, adminID); err != nil {
		t.Fatalf("final advance: %v", err)
	}

	final := waitForEvent[app.FinalResults](t, adminFeed)
	if len(final.Ranking) != 2 {
		t.Fatalf("expected 2 ranked entries, got %d", len(final.Ranking))
	}
	if final.Ranking[0].Name != "Ava" || final.Ranking[1].Name != "Ben" {
		t.Fatalf("expected Ava first, got %+v", final.Ranking)
	}
	if final.Ranking[0].Rank != 1 || final.Ranking[1].Rank != 2 {
		t.Fatalf("expected ranks 1,2, got %+v", final.Ranking)
	}

	after, _ := service.Snapshot(snap.ID)
	if after.Status != domain.StatusFinished {
		t.Fatalf("expected finished session, got %s", after.Status)
	}
	if err := service.Advance(snap.ID, adminID); !errors.Is(err, domain.ErrSessionFinished) {
		t.Fatalf("expected session finished, got %v", err)
	}
}

func TestCountdownAutoReveal(t *testing.T) {
	service := newTestService(t, app.Policy{QuestionTime: 50 * time.Millisecond})
	snap := createSession(t, service)
	mustJoin(t, service, snap.Code, "Ava")
	startAndShow(t, service, snap.ID)

	deadline := time.Now().Add(2 * time.Second)
	for {
		after, _ := service.Snapshot(snap.ID)
		if after.Phase == domain.PhaseResults {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("countdown never auto-revealed, phase=%s", after.Phase)
		}
		time.Sleep(10 * time.Millisecond)
	}

	// The expired timer must not fire again into a later question.
	if err := service.Advance(snap.ID, adminID); err != nil {
		t.Fatalf("advance: %v", err)
	}
	after, _ := service.Snapshot(snap.ID)
	if after.CurrentIndex != 1 || after.Phase != domain.PhaseQuestion {
		t.Fatalf("expected question 1 open, got index=%d phase=%s", after.CurrentIndex, after.Phase)
	}
}

func TestManualRevealCancelsCountdown(t *testing.T) {
	service := newTestService(t, app.Policy{QuestionTime: 50 * time.Millisecond})
	snap := createSession(t, service)
	mustJoin(t, service, snap.Code, "Ava")
	startAndShow(t, service, snap.ID)

	if err := service.RevealResults(snap.ID, adminID); err != nil {
		t.Fatalf("reveal: %v", err)
	}
	if err := service.Advance(snap.ID, adminID); err != nil {
		t.Fatalf("advance: %v", err)
	}

	// If the first question's timer were still pending it would fire
	// around now and force question 1 into results.
	time.Sleep(100 * time.Millisecond)
	after, _ := service.Snapshot(snap.ID)
	if after.CurrentIndex != 1 {
		t.Fatalf("expected index 1, got %d", after.CurrentIndex)
	}
}

func TestSubscribeResyncReplaysActiveQuestion(t *testing.T) {
	service := newTestService(t, app.Policy{})
	snap := createSession(t, service)
	ava := mustJoin(t, service, snap.Code, "Ava")
	startAndShow(t, service, snap.ID)

	// A reconnecting player first re-associates, then resubscribes.
	if _, err := service.Rejoin(snap.ID, ava.ID); err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	sub, err := service.Subscribe(snap.ID, app.RolePlayer)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Cancel()

	roster := waitForEvent[app.ParticipantList](t, sub)
	if len(roster.Participants) != 1 {
		t.Fatalf("expected roster of 1, got %d", len(roster.Participants))
	}
	replay := waitForEvent[app.QuestionShown](t, sub)
	if replay.Index != 0 || len(replay.Options) != 4 {
		t.Fatalf("unexpected question replay: %+v", replay)
	}

	if _, err := service.Rejoin(snap.ID, "ghost"); !errors.Is(err, domain.ErrParticipantNotFound) {
		t.Fatalf("expected participant not found, got %v", err)
	}
}

func TestConcurrentDuplicateSubmissions(t *testing.T) {
	service := newTestService(t, app.Policy{})
	snap := createSession(t, service)
	ava := mustJoin(t, service, snap.Code, "Ava")
	startAndShow(t, service, snap.ID)

	const racers = 16
	type outcome struct {
		awarded int
		err     error
	}
	results := make(chan outcome, racers)
	for i := 0; i < racers; i++ {
		go func() {
			awarded, _, err := service.SubmitAnswer(snap.ID, ava.ID, 1, 1500)
			results <- outcome{awarded: awarded, err: err}
		}()
	}

	accepted, rejected := 0, 0
	for i := 0; i < racers; i++ {
		r := <-results
		switch {
		case r.err == nil:
			accepted++
		case errors.Is(r.err, domain.ErrAlreadyAnswered):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", r.err)
		}
	}
	if accepted != 1 || rejected != racers-1 {
		t.Fatalf("expected exactly one acceptance, got accepted=%d rejected=%d", accepted, rejected)
	}
}

func newTestService(t *testing.T, policy app.Policy) *app.LiveService {
	t.Helper()
	if policy.QuestionTime == 0 {
		policy.QuestionTime = 20 * time.Second
	}
	store := memory.NewSessionStore(policy.QuestionTime, policy.Scoring)
	quizzes := memory.NewQuizRepository(memory.NewStaticQuizLoader(map[string]domain.Quiz{
		"quiz-1": testQuiz(),
	}), 5*time.Minute)
	return app.NewLiveService(store, quizzes, policy)
}

func testQuiz() domain.Quiz {
	return domain.Quiz{
		ID:    "quiz-1",
		Title: "Capitals",
		Questions: []domain.Question{
			{Text: "Capital of France?", Options: []string{"Berlin", "Paris", "Madrid", "Rome"}, CorrectIndex: 1},
			{Text: "Capital of Japan?", Options: []string{"Tokyo", "Kyoto", "Osaka", "Nara"}, CorrectIndex: 0},
			{Text: "Capital of Canada?", Options: []string{"Toronto", "Vancouver", "Ottawa", "Montreal"}, CorrectIndex: 2},
		},
	}
}

func createSession(t *testing.T, service *app.LiveService) domain.SessionSnapshot {
	t.Helper()
	snap, err := service.CreateSession(context.Background(), "quiz-1", adminID)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return snap
}

func mustJoin(t *testing.T, service *app.LiveService, code, name string) domain.Participant {
	t.Helper()
	_, p, err := service.Join(code, name)
	if err != nil {
		t.Fatalf("join %s: %v", name, err)
	}
	return p
}

func startAndShow(t *testing.T, service *app.LiveService, sessionID string) {
	t.Helper()
	if err := service.Start(sessionID, adminID, false); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := service.ShowQuestion(sessionID, adminID, 0); err != nil {
		t.Fatalf("show question: %v", err)
	}
}

// waitForEvent reads the subscription until an event of type T arrives.
func waitForEvent[T app.Event](t *testing.T, sub *app.Subscription) T {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				t.Fatalf("subscription closed while waiting")
			}
			if typed, match := ev.(T); match {
				return typed
			}
		case <-timeout:
			var zero T
			t.Fatalf("timed out waiting for %T", zero)
			return zero
		}
	}
}

func drain(sub *app.Subscription) {
	for {
		select {
		case <-sub.Events():
		default:
			return
		}
	}
}
