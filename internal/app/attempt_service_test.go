package app_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"competiquest/internal/app"
	"competiquest/internal/domain"
	"competiquest/internal/infra/memory"
)

var (
	alice = domain.Principal{UserID: "u-alice", Role: domain.RoleUser}
	bob   = domain.Principal{UserID: "u-bob", Role: domain.RoleUser}
	admin = domain.Principal{UserID: "u-admin", Role: domain.RoleAdmin}
)

type fixture struct {
	service *app.AttemptService
	catalog *memory.Catalog
	users   *memory.UserStore
	store   *memory.AttemptStore
	feed    *app.LeaderboardFeed
	clock   *testClock
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func newFixture(t *testing.T, opts ...app.Option) *fixture {
	t.Helper()
	catalog := memory.NewCatalogWithSource(rand.NewSource(42))
	catalog.AddTopic(domain.Topic{ID: "math", Name: "Math", Description: "Numbers"})
	catalog.AddTopic(domain.Topic{ID: "empty", Name: "Empty"})
	for i := 0; i < 5; i++ {
		catalog.AddQuestion(domain.Question{
			ID:                 fmt.Sprintf("q%d", i),
			TopicID:            "math",
			Description:        fmt.Sprintf("question %d", i),
			Options:            []string{"a", "b", "c", "d"},
			CorrectOptionIndex: i % 4,
			Difficulty:         domain.DifficultyEasy,
		})
	}

	users := memory.NewUserStore()
	for _, u := range []domain.User{
		{ID: alice.UserID, Username: "alice", Email: "alice@example.com", Role: domain.RoleUser},
		{ID: bob.UserID, Username: "bob", Email: "bob@example.com", Role: domain.RoleUser},
		{ID: admin.UserID, Username: "root", Email: "root@example.com", Role: domain.RoleAdmin},
	} {
		if err := users.CreateUser(context.Background(), u); err != nil {
			t.Fatalf("seed user: %v", err)
		}
	}

	clock := &testClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	store := memory.NewAttemptStore()
	feed := app.NewLeaderboardFeed()
	base := []app.Option{app.WithClock(clock.Now), app.WithFeed(feed)}
	service := app.NewAttemptService(store, catalog, catalog, users, append(base, opts...)...)
	return &fixture{service: service, catalog: catalog, users: users, store: store, feed: feed, clock: clock}
}

func (f *fixture) correctAnswers(t *testing.T, started app.StartedAttempt) []domain.Answer {
	t.Helper()
	ids := make([]string, len(started.Questions))
	for i, q := range started.Questions {
		ids[i] = q.ID
	}
	found, err := f.catalog.QuestionsByID(context.Background(), ids)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	keys := make(map[string]int, len(found))
	for _, q := range found {
		keys[q.ID] = q.CorrectOptionIndex
	}
	answers := make([]domain.Answer, len(started.Questions))
	for i, q := range started.Questions {
		v := keys[q.ID]
		answers[i] = domain.Answer{SelectedOptionIndex: &v}
	}
	return answers
}

func wrong(answers []domain.Answer, idx ...int) []domain.Answer {
	out := make([]domain.Answer, len(answers))
	copy(out, answers)
	for _, i := range idx {
		v := (*out[i].SelectedOptionIndex + 1) % 4
		out[i] = domain.Answer{SelectedOptionIndex: &v}
	}
	return out
}

func TestStartAndSubmitAllCorrect(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	started, err := f.service.Start(ctx, alice, app.StartRequest{TopicID: "math", QuestionCount: 5})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if started.TotalQuestions != 5 || started.Topic != "Math" || started.AttemptID == "" {
		t.Fatalf("unexpected start result %+v", started)
	}

	report, err := f.service.Submit(ctx, alice, started.AttemptID, f.correctAnswers(t, started))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if report.Score != 5 || report.Percentage != 100 || report.TotalQuestions != 5 {
		t.Fatalf("expected 5/100, got %+v", report)
	}
	for _, q := range report.Questions {
		if q.IsCorrect == nil || !*q.IsCorrect || q.CorrectOptionIndex == nil {
			t.Fatalf("unexpected result %+v", q)
		}
	}
	if h := f.users.History(alice.UserID); len(h) != 1 || h[0] != started.AttemptID {
		t.Fatalf("expected attempt in history, got %v", h)
	}
}

func TestSubmitPartialScores(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	started, _ := f.service.Start(ctx, alice, app.StartRequest{TopicID: "math", QuestionCount: 4})
	report, err := f.service.Submit(ctx, alice, started.AttemptID, wrong(f.correctAnswers(t, started), 2, 3))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if report.Score != 2 || report.Percentage != 50 {
		t.Fatalf("expected 2/50, got %d/%v", report.Score, report.Percentage)
	}

	three, _ := f.service.Start(ctx, alice, app.StartRequest{TopicID: "math", QuestionCount: 3})
	report, err = f.service.Submit(ctx, alice, three.AttemptID, f.correctAnswers(t, three)[:1])
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if report.Score != 1 || report.Percentage != 33.33 {
		t.Fatalf("expected 1/33.33, got %d/%v", report.Score, report.Percentage)
	}
	if report.Questions[2].SelectedOptionIndex != nil || *report.Questions[2].IsCorrect {
		t.Fatalf("missing answer must be unanswered and incorrect: %+v", report.Questions[2])
	}
}

func TestSubmitAllWrongCountsAsSubmitted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	started, _ := f.service.Start(ctx, alice, app.StartRequest{TopicID: "math", QuestionCount: 2})
	report, err := f.service.Submit(ctx, alice, started.AttemptID, wrong(f.correctAnswers(t, started), 0, 1))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if report.Score != 0 || report.Percentage != 0 {
		t.Fatalf("expected zero score, got %+v", report)
	}
	_, err = f.service.Submit(ctx, alice, started.AttemptID, f.correctAnswers(t, started))
	if !errors.Is(err, domain.ErrAlreadySubmitted) {
		t.Fatalf("zero-score attempt must not be resubmittable, got %v", err)
	}
	detail, _ := f.service.Get(ctx, alice, started.AttemptID)
	if detail.Score != 0 || detail.Status != domain.StatusCompleted {
		t.Fatalf("stored attempt changed: %+v", detail)
	}
}

func TestSubmitOwnershipAndAdminBypass(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	started, _ := f.service.Start(ctx, alice, app.StartRequest{TopicID: "math", QuestionCount: 2})
	if _, err := f.service.Submit(ctx, bob, started.AttemptID, nil); !errors.Is(err, domain.ErrNotAuthorized) {
		t.Fatalf("expected not authorized, got %v", err)
	}
	if _, err := f.service.Get(ctx, bob, started.AttemptID); !errors.Is(err, domain.ErrNotAuthorized) {
		t.Fatalf("expected not authorized on get, got %v", err)
	}
	if err := f.service.Delete(ctx, bob, started.AttemptID); !errors.Is(err, domain.ErrNotAuthorized) {
		t.Fatalf("expected not authorized on delete, got %v", err)
	}

	report, err := f.service.Submit(ctx, admin, started.AttemptID, f.correctAnswers(t, started))
	if err != nil || report.Score != 2 {
		t.Fatalf("admin submit: %+v %v", report, err)
	}
	if h := f.users.History(alice.UserID); len(h) != 1 {
		t.Fatalf("history belongs to the owner, got %v", h)
	}
	if _, err := f.service.Submit(ctx, bob, started.AttemptID, nil); !errors.Is(err, domain.ErrNotAuthorized) {
		t.Fatalf("ownership is checked before submission state, got %v", err)
	}
}

func TestSubmitUnknownAttempt(t *testing.T) {
	f := newFixture(t)
	if _, err := f.service.Submit(context.Background(), alice, "nope", nil); !errors.Is(err, domain.ErrAttemptNotFound) {
		t.Fatalf("expected attempt not found, got %v", err)
	}
}

func TestConcurrentSubmitSucceedsOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	started, _ := f.service.Start(ctx, alice, app.StartRequest{TopicID: "math", QuestionCount: 3})
	answers := f.correctAnswers(t, started)

	var ok, rejected int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.Submit(ctx, alice, started.AttemptID, answers)
			switch {
			case err == nil:
				atomic.AddInt32(&ok, 1)
			case errors.Is(err, domain.ErrAlreadySubmitted):
				atomic.AddInt32(&rejected, 1)
			default:
				t.Errorf("unexpected error %v", err)
			}
		}()
	}
	wg.Wait()
	if ok != 1 || rejected != 15 {
		t.Fatalf("expected exactly one success, got ok=%d rejected=%d", ok, rejected)
	}
}

func TestStartErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	cases := []struct {
		name string
		req  app.StartRequest
		want error
	}{
		{"unknown topic", app.StartRequest{TopicID: "nope"}, domain.ErrTopicNotFound},
		{"empty topic", app.StartRequest{TopicID: "empty"}, domain.ErrNoQuestionsFound},
		{"filter excludes all", app.StartRequest{TopicID: "math", Difficulty: domain.DifficultyHard}, domain.ErrNoQuestionsFound},
		{"missing topic", app.StartRequest{}, domain.ErrInvalidInput},
		{"bad difficulty", app.StartRequest{TopicID: "math", Difficulty: "extreme"}, domain.ErrInvalidInput},
		{"negative count", app.StartRequest{TopicID: "math", QuestionCount: -1}, domain.ErrInvalidInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.service.Start(ctx, alice, tc.req); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	_, total, _ := f.store.List(ctx, domain.AttemptFilter{}, 1, 10)
	if total != 0 {
		t.Fatalf("failed starts must not create attempts, got %d", total)
	}
	if _, err := f.service.Start(ctx, domain.Principal{}, app.StartRequest{TopicID: "math"}); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated, got %v", err)
	}
}

func TestStartCountDefaultsAndClamp(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, app.WithQuestionLimits(2, 3))

	started, _ := f.service.Start(ctx, alice, app.StartRequest{TopicID: "math"})
	if started.TotalQuestions != 2 {
		t.Fatalf("expected default of 2, got %d", started.TotalQuestions)
	}
	started, _ = f.service.Start(ctx, alice, app.StartRequest{TopicID: "math", QuestionCount: 99})
	if started.TotalQuestions != 3 {
		t.Fatalf("expected clamp to 3, got %d", started.TotalQuestions)
	}

	g := newFixture(t)
	started, _ = g.service.Start(ctx, alice, app.StartRequest{TopicID: "math", QuestionCount: 50})
	if started.TotalQuestions != 5 {
		t.Fatalf("expected all 5 available questions, got %d", started.TotalQuestions)
	}
}

func TestGetConcealsAnswersUntilCompleted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	started, _ := f.service.Start(ctx, alice, app.StartRequest{TopicID: "math", QuestionCount: 3})

	detail, err := f.service.Get(ctx, alice, started.AttemptID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if detail.Status != domain.StatusInProgress || detail.Topic.Name != "Math" {
		t.Fatalf("unexpected detail %+v", detail)
	}
	for _, q := range detail.Questions {
		if q.CorrectOptionIndex != nil {
			t.Fatalf("answer key leaked for in-progress attempt: %+v", q)
		}
		if q.Description == "" || len(q.Options) != 4 {
			t.Fatalf("question content missing: %+v", q)
		}
	}

	_, _ = f.service.Submit(ctx, alice, started.AttemptID, f.correctAnswers(t, started))
	detail, _ = f.service.Get(ctx, admin, started.AttemptID)
	for _, q := range detail.Questions {
		if q.CorrectOptionIndex == nil {
			t.Fatalf("completed attempt must show answer keys: %+v", q)
		}
	}
	if detail.CompletedAt == nil {
		t.Fatalf("completedAt not set")
	}
}

func TestDeletedQuestionGradesIncorrect(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	started, _ := f.service.Start(ctx, alice, app.StartRequest{TopicID: "math", QuestionCount: 2})
	answers := f.correctAnswers(t, started)
	f.catalog.RemoveQuestion(started.Questions[0].ID)

	report, err := f.service.Submit(ctx, alice, started.AttemptID, answers)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if report.Score != 1 || report.Percentage != 50 || *report.Questions[0].IsCorrect {
		t.Fatalf("deleted question must grade incorrect, got %+v", report)
	}
}

func TestDeleteRemovesAttemptAndHistory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	started, _ := f.service.Start(ctx, alice, app.StartRequest{TopicID: "math", QuestionCount: 2})
	_, _ = f.service.Submit(ctx, alice, started.AttemptID, f.correctAnswers(t, started))

	if err := f.service.Delete(ctx, admin, started.AttemptID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.service.Get(ctx, alice, started.AttemptID); !errors.Is(err, domain.ErrAttemptNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if h := f.users.History(alice.UserID); len(h) != 0 {
		t.Fatalf("history association not removed: %v", h)
	}
	if err := f.service.Delete(ctx, alice, started.AttemptID); !errors.Is(err, domain.ErrAttemptNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestHistoryNewestFirstAndPaged(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	var ids []string
	for i := 0; i < 3; i++ {
		started, err := f.service.Start(ctx, alice, app.StartRequest{TopicID: "math", QuestionCount: 1})
		if err != nil {
			t.Fatalf("start: %v", err)
		}
		ids = append(ids, started.AttemptID)
	}
	_, _ = f.service.Start(ctx, bob, app.StartRequest{TopicID: "math", QuestionCount: 1})

	page, err := f.service.History(ctx, alice, alice.UserID, 1, 2)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if page.Total != 3 || page.TotalPages != 2 || len(page.Attempts) != 2 {
		t.Fatalf("unexpected page %+v", page)
	}
	if page.Attempts[0].ID != ids[2] || page.Attempts[1].ID != ids[1] {
		t.Fatalf("expected newest first, got %s %s", page.Attempts[0].ID, page.Attempts[1].ID)
	}
	if page.Attempts[0].Topic.Name != "Math" || page.Attempts[0].TotalQuestions != 1 {
		t.Fatalf("summary missing topic: %+v", page.Attempts[0])
	}

	def, _ := f.service.History(ctx, alice, alice.UserID, 0, 0)
	if def.Page != 1 || def.PageSize != 10 || len(def.Attempts) != 3 {
		t.Fatalf("unexpected defaults %+v", def)
	}
	if _, err := f.service.History(ctx, bob, alice.UserID, 1, 10); !errors.Is(err, domain.ErrNotAuthorized) {
		t.Fatalf("expected not authorized, got %v", err)
	}
	if _, err := f.service.History(ctx, admin, alice.UserID, 1, 10); err != nil {
		t.Fatalf("admin history: %v", err)
	}
}

func TestHistoryHugePageIsEmpty(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	if _, err := f.service.Start(ctx, alice, app.StartRequest{TopicID: "math", QuestionCount: 1}); err != nil {
		t.Fatalf("start: %v", err)
	}

	for _, page := range []int{math.MaxInt/10 + 2, math.MaxInt} {
		got, err := f.service.History(ctx, alice, alice.UserID, page, 10)
		if err != nil {
			t.Fatalf("history page=%d: %v", page, err)
		}
		if len(got.Attempts) != 0 || got.Total != 1 {
			t.Fatalf("page=%d: expected an empty page, got %+v", page, got)
		}
		if got.Page <= 0 || got.Page > math.MaxInt32 {
			t.Fatalf("page=%d: page not clamped, got %d", page, got.Page)
		}
	}
}

func TestListAttemptsAdminOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, _ = f.service.Start(ctx, alice, app.StartRequest{TopicID: "math", QuestionCount: 1})
	_, _ = f.service.Start(ctx, bob, app.StartRequest{TopicID: "math", QuestionCount: 1})

	if _, err := f.service.ListAttempts(ctx, alice, domain.AttemptFilter{}, 1, 10); !errors.Is(err, domain.ErrNotAuthorized) {
		t.Fatalf("expected not authorized, got %v", err)
	}
	page, err := f.service.ListAttempts(ctx, admin, domain.AttemptFilter{}, 1, 10)
	if err != nil || page.Total != 2 {
		t.Fatalf("unexpected listing %+v %v", page, err)
	}
}

func TestStatsZeroAndAggregated(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	zero, err := f.service.Stats(ctx, alice, alice.UserID)
	if err != nil || zero != (domain.PerformanceStats{}) {
		t.Fatalf("expected zero stats, got %+v %v", zero, err)
	}

	for _, wrongIdx := range [][]int{{}, {2}, {0, 1, 2}} {
		started, _ := f.service.Start(ctx, alice, app.StartRequest{TopicID: "math", QuestionCount: 3})
		if _, err := f.service.Submit(ctx, alice, started.AttemptID, wrong(f.correctAnswers(t, started), wrongIdx...)); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}
	stats, _ := f.service.Stats(ctx, alice, alice.UserID)
	if stats.TotalAttempts != 3 || stats.BestScore != 3 || stats.BestPercentage != 100 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if stats.AverageScore != 1.67 || stats.AveragePercentage != 55.56 {
		t.Fatalf("unexpected averages %+v", stats)
	}
	if _, err := f.service.Stats(ctx, bob, alice.UserID); !errors.Is(err, domain.ErrNotAuthorized) {
		t.Fatalf("expected not authorized, got %v", err)
	}
}

func TestLeaderboardResolvesUsernamesAndDropsDeletedUsers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	play := func(p domain.Principal, wrongIdx ...int) {
		started, err := f.service.Start(ctx, p, app.StartRequest{TopicID: "math", QuestionCount: 2})
		if err != nil {
			t.Fatalf("start: %v", err)
		}
		if _, err := f.service.Submit(ctx, p, started.AttemptID, wrong(f.correctAnswers(t, started), wrongIdx...)); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}
	play(alice, 0)
	play(bob)
	play(admin, 0, 1)

	board, err := f.service.Leaderboard(ctx, 0, "")
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(board) != 3 || board[0].Username != "bob" || board[1].Username != "alice" || board[2].Username != "root" {
		t.Fatalf("unexpected ordering %+v", board)
	}

	f.users.DeleteUser(ctx, bob.UserID)
	board, _ = f.service.Leaderboard(ctx, 10, "math")
	if len(board) != 2 || board[0].Username != "alice" {
		t.Fatalf("deleted user must be dropped, got %+v", board)
	}
	top, _ := f.service.Leaderboard(ctx, 1, "")
	if len(top) != 1 {
		t.Fatalf("expected limit 1, got %d", len(top))
	}
}

func TestSubmitPublishesLeaderboardUpdate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ch, cancel := f.feed.Subscribe()
	defer cancel()

	started, _ := f.service.Start(ctx, alice, app.StartRequest{TopicID: "math", QuestionCount: 1})
	_, _ = f.service.Submit(ctx, alice, started.AttemptID, f.correctAnswers(t, started))

	select {
	case update := <-ch:
		if update.TopicID != "math" {
			t.Fatalf("unexpected update %+v", update)
		}
	case <-time.After(time.Second):
		t.Fatalf("no leaderboard update published")
	}
}

type failingHistory struct {
	*memory.UserStore
}

func (failingHistory) AppendHistory(context.Context, string, string) error {
	return errors.New("history unavailable")
}

func TestHistoryFailureDoesNotFailSubmit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	service := app.NewAttemptService(f.store, f.catalog, f.catalog, failingHistory{f.users})

	started, _ := service.Start(ctx, alice, app.StartRequest{TopicID: "math", QuestionCount: 2})
	report, err := service.Submit(ctx, alice, started.AttemptID, f.correctAnswers(t, started))
	if err != nil || report.Score != 2 {
		t.Fatalf("submit must succeed despite history failure: %+v %v", report, err)
	}
	detail, _ := service.Get(ctx, alice, started.AttemptID)
	if detail.Status != domain.StatusCompleted {
		t.Fatalf("attempt must be persisted as completed, got %s", detail.Status)
	}
}

type stubGenerator struct {
	questions []domain.GeneratedQuestion
	err       error
	calls     int
}

func (g *stubGenerator) Generate(_ context.Context, _ string, count int, _ string) ([]domain.GeneratedQuestion, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	if count < len(g.questions) {
		return g.questions[:count], nil
	}
	return g.questions, nil
}

func TestGeneratedAttemptGradesAgainstInlineQuestions(t *testing.T) {
	ctx := context.Background()
	gen := &stubGenerator{questions: []domain.GeneratedQuestion{
		{Description: "Q1", Options: []string{"a", "b", "c", "d"}, CorrectOption: 0},
		{Description: "Q2", Options: []string{"a", "b", "c", "d"}, CorrectOption: 3},
		{Description: "broken", Options: []string{"only"}, CorrectOption: 0},
	}}
	f := newFixture(t, app.WithGenerator(gen))

	started, err := f.service.StartGenerated(ctx, alice, app.GenerateRequest{Topic: "Rust", NumberOfQuestions: 3, Level: "hard"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if started.TotalQuestions != 2 || started.Topic != "Rust" {
		t.Fatalf("invalid generated question should be dropped: %+v", started)
	}

	zero, three := 0, 3
	report, err := f.service.Submit(ctx, alice, started.AttemptID, []domain.Answer{{SelectedOptionIndex: &zero}, {SelectedOptionIndex: &three}})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if report.Score != 2 || report.Percentage != 100 {
		t.Fatalf("expected 2/100, got %+v", report)
	}

	page, _ := f.service.History(ctx, alice, alice.UserID, 1, 10)
	if len(page.Attempts) != 1 || page.Attempts[0].Topic.Name != "Rust" || page.Attempts[0].Topic.ID != "" {
		t.Fatalf("inline topic not carried: %+v", page.Attempts)
	}
}

func TestGeneratedAttemptFailures(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	if _, err := f.service.StartGenerated(ctx, alice, app.GenerateRequest{Topic: "Go"}); !errors.Is(err, domain.ErrGenerationFailed) {
		t.Fatalf("expected generation failed without generator, got %v", err)
	}

	gen := &stubGenerator{err: errors.New("upstream down")}
	g := newFixture(t, app.WithGenerator(gen))
	if _, err := g.service.StartGenerated(ctx, alice, app.GenerateRequest{Topic: "Go"}); !errors.Is(err, domain.ErrGenerationFailed) {
		t.Fatalf("expected generation failed, got %v", err)
	}
	if _, err := g.service.StartGenerated(ctx, alice, app.GenerateRequest{}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if gen.calls != 1 {
		t.Fatalf("invalid request must not reach the generator, calls=%d", gen.calls)
	}
}
