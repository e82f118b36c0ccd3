package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"competiquest/internal/domain"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	defaultQuestionCount = 10
	maxQuestionCount     = 50
	defaultPageSize      = 10
	maxPageSize          = 100
	maxPage              = math.MaxInt32 / maxPageSize
	defaultLeaderboard   = 10
	maxLeaderboard       = 100
)

// AttemptService contains the quiz attempt use cases: start, submit, read back and delete.
type AttemptService struct {
	attempts  AttemptRepository
	topics    TopicRepository
	pool      *QuestionPool
	users     UserRepository
	generator QuizGenerator
	feed      *LeaderboardFeed

	now          func() time.Time
	newID        func() string
	defaultCount int
	maxCount     int
}

// Option customizes an AttemptService.
type Option func(*AttemptService)

// WithGenerator enables generated quizzes.
func WithGenerator(g QuizGenerator) Option {
	return func(s *AttemptService) { s.generator = g }
}

// WithFeed publishes a leaderboard update after every submission and deletion.
func WithFeed(f *LeaderboardFeed) Option {
	return func(s *AttemptService) { s.feed = f }
}

// WithClock is used by tests for deterministic timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *AttemptService) { s.now = now }
}

// WithIDGenerator replaces the UUID attempt id source.
func WithIDGenerator(newID func() string) Option {
	return func(s *AttemptService) { s.newID = newID }
}

// WithQuestionLimits sets the question count used when a request omits one and the upper clamp.
func WithQuestionLimits(defaultCount, maxCount int) Option {
	return func(s *AttemptService) {
		if defaultCount > 0 {
			s.defaultCount = defaultCount
		}
		if maxCount > 0 {
			s.maxCount = maxCount
		}
	}
}

func NewAttemptService(attempts AttemptRepository, topics TopicRepository, questions QuestionRepository, users UserRepository, opts ...Option) *AttemptService {
	s := &AttemptService{
		attempts:     attempts,
		topics:       topics,
		pool:         NewQuestionPool(topics, questions),
		users:        users,
		now:          time.Now,
		newID:        uuid.NewString,
		defaultCount: defaultQuestionCount,
		maxCount:     maxQuestionCount,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.defaultCount > s.maxCount {
		s.defaultCount = s.maxCount
	}
	return s
}

// StartRequest selects the questions of a new attempt.
type StartRequest struct {
	TopicID       string
	QuestionCount int
	Difficulty    domain.Difficulty
	Subjects      []string
}

// StartedAttempt is returned to the quiz taker. Questions never carry answer keys.
type StartedAttempt struct {
	AttemptID      string                   `json:"quizAttemptId"`
	Topic          string                   `json:"topic"`
	Questions      []domain.QuestionSummary `json:"questions"`
	TotalQuestions int                      `json:"totalQuestions"`
}

// Start samples questions for a persisted topic and records a new in-progress attempt.
func (s *AttemptService) Start(ctx context.Context, principal domain.Principal, req StartRequest) (StartedAttempt, error) {
	if principal.UserID == "" {
		return StartedAttempt{}, domain.ErrUnauthenticated
	}
	if strings.TrimSpace(req.TopicID) == "" {
		return StartedAttempt{}, fmt.Errorf("%w: topicId is required", domain.ErrInvalidInput)
	}
	if req.Difficulty != "" && !req.Difficulty.Valid() {
		return StartedAttempt{}, fmt.Errorf("%w: unknown difficulty %q", domain.ErrInvalidInput, req.Difficulty)
	}
	count, err := s.questionCount(req.QuestionCount)
	if err != nil {
		return StartedAttempt{}, err
	}

	topic, questions, err := s.pool.Sample(ctx, req.TopicID, count, domain.QuestionFilters{
		Difficulty: req.Difficulty,
		Subjects:   req.Subjects,
	})
	if err != nil {
		return StartedAttempt{}, err
	}

	refs := make([]domain.QuestionRef, len(questions))
	for i, q := range questions {
		refs[i] = domain.ReferenceQuestion(q.ID)
	}
	attempt, err := domain.NewAttempt(s.newID(), principal.UserID, domain.ReferenceTopic(topic.ID), refs, s.now())
	if err != nil {
		return StartedAttempt{}, err
	}
	if err := s.attempts.Create(ctx, attempt); err != nil {
		return StartedAttempt{}, err
	}

	return StartedAttempt{
		AttemptID:      attempt.ID,
		Topic:          topic.Name,
		Questions:      questions,
		TotalQuestions: len(questions),
	}, nil
}

// GenerateRequest describes a quiz to be produced by the generator.
type GenerateRequest struct {
	Topic             string
	NumberOfQuestions int
	Level             string
}

// StartGenerated asks the generator for questions and records an attempt that embeds them.
func (s *AttemptService) StartGenerated(ctx context.Context, principal domain.Principal, req GenerateRequest) (StartedAttempt, error) {
	if principal.UserID == "" {
		return StartedAttempt{}, domain.ErrUnauthenticated
	}
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		return StartedAttempt{}, fmt.Errorf("%w: topic is required", domain.ErrInvalidInput)
	}
	if s.generator == nil {
		return StartedAttempt{}, fmt.Errorf("%w: generator not configured", domain.ErrGenerationFailed)
	}
	count, err := s.questionCount(req.NumberOfQuestions)
	if err != nil {
		return StartedAttempt{}, err
	}
	level := strings.ToLower(strings.TrimSpace(req.Level))
	if level == "" {
		level = string(domain.DifficultyMedium)
	}

	generated, err := s.generator.Generate(ctx, topic, count, level)
	if err != nil {
		return StartedAttempt{}, fmt.Errorf("%w: %w", domain.ErrGenerationFailed, err)
	}

	refs := make([]domain.QuestionRef, 0, count)
	summaries := make([]domain.QuestionSummary, 0, count)
	for _, g := range generated {
		if len(refs) == count {
			break
		}
		if !validGenerated(g) {
			log.Printf("dropping invalid generated question %q", g.Description)
			continue
		}
		refs = append(refs, domain.InlineQuestion(domain.QuestionSnapshot{
			Description:        g.Description,
			Options:            g.Options,
			CorrectOptionIndex: g.CorrectOption,
		}))
		summaries = append(summaries, domain.QuestionSummary{
			Description: g.Description,
			Options:     append([]string(nil), g.Options...),
		})
	}
	if len(refs) == 0 {
		return StartedAttempt{}, fmt.Errorf("%w: generator returned no usable questions", domain.ErrGenerationFailed)
	}

	inline := domain.InlineTopic(topic, fmt.Sprintf("%s level, AI generated", level))
	attempt, err := domain.NewAttempt(s.newID(), principal.UserID, inline, refs, s.now())
	if err != nil {
		return StartedAttempt{}, err
	}
	if err := s.attempts.Create(ctx, attempt); err != nil {
		return StartedAttempt{}, err
	}

	return StartedAttempt{
		AttemptID:      attempt.ID,
		Topic:          topic,
		Questions:      summaries,
		TotalQuestions: len(summaries),
	}, nil
}

func validGenerated(g domain.GeneratedQuestion) bool {
	if strings.TrimSpace(g.Description) == "" {
		return false
	}
	if len(g.Options) < 2 || len(g.Options) > 6 {
		return false
	}
	return g.CorrectOption >= 0 && g.CorrectOption < len(g.Options)
}

// QuestionResult is the per-question breakdown of an attempt.
type QuestionResult struct {
	QuestionID          string   `json:"questionId,omitempty"`
	Description         string   `json:"description"`
	Options             []string `json:"options"`
	SelectedOptionIndex *int     `json:"selectedOptionIndex"`
	CorrectOptionIndex  *int     `json:"correctOptionIndex,omitempty"`
	IsCorrect           *bool    `json:"isCorrect"`
}

// ScoreReport is returned by a successful submission.
type ScoreReport struct {
	AttemptID      string           `json:"quizAttemptId"`
	Score          int              `json:"score"`
	Percentage     float64          `json:"percentage"`
	TotalQuestions int              `json:"totalQuestions"`
	Questions      []QuestionResult `json:"questions"`
}

// Submit grades an in-progress attempt once. The ownership check precedes the
// already-submitted check; the history bookkeeping after persisting is best effort.
func (s *AttemptService) Submit(ctx context.Context, principal domain.Principal, attemptID string, answers []domain.Answer) (ScoreReport, error) {
	attempt, err := s.attempts.Get(ctx, attemptID)
	if err != nil {
		return ScoreReport{}, err
	}
	if !principal.CanAccess(attempt.UserID) {
		return ScoreReport{}, domain.ErrNotAuthorized
	}
	if attempt.Completed() {
		return ScoreReport{}, domain.ErrAlreadySubmitted
	}

	keys, err := s.pool.AnswerKeys(ctx, attempt.ReferencedQuestionIDs())
	if err != nil {
		return ScoreReport{}, err
	}
	if err := attempt.Grade(answers, keys, s.now()); err != nil {
		return ScoreReport{}, err
	}
	if err := s.attempts.Complete(ctx, attempt); err != nil {
		return ScoreReport{}, err
	}

	if err := s.users.AppendHistory(ctx, attempt.UserID, attempt.ID); err != nil {
		log.Printf("append quiz history user=%s attempt=%s: %v", attempt.UserID, attempt.ID, err)
	}
	s.publish(attempt.Topic)

	return ScoreReport{
		AttemptID:      attempt.ID,
		Score:          attempt.Score,
		Percentage:     attempt.Percentage,
		TotalQuestions: len(attempt.Entries),
		Questions:      questionResults(attempt, keys),
	}, nil
}

// AttemptDetail is the full read-back view of an attempt.
type AttemptDetail struct {
	ID             string               `json:"id"`
	UserID         string               `json:"userId"`
	Topic          domain.TopicView     `json:"topic"`
	Status         domain.AttemptStatus `json:"status"`
	Score          int                  `json:"score"`
	Percentage     float64              `json:"percentage"`
	TotalQuestions int                  `json:"totalQuestions"`
	CreatedAt      time.Time            `json:"createdAt"`
	CompletedAt    *time.Time           `json:"completedAt,omitempty"`
	Questions      []QuestionResult     `json:"questions"`
}

// Get returns an attempt to its owner or an admin. Correct answers are withheld until the
// attempt is completed.
func (s *AttemptService) Get(ctx context.Context, principal domain.Principal, attemptID string) (AttemptDetail, error) {
	attempt, err := s.attempts.Get(ctx, attemptID)
	if err != nil {
		return AttemptDetail{}, err
	}
	if !principal.CanAccess(attempt.UserID) {
		return AttemptDetail{}, domain.ErrNotAuthorized
	}

	keys, err := s.pool.AnswerKeys(ctx, attempt.ReferencedQuestionIDs())
	if err != nil {
		return AttemptDetail{}, err
	}
	topic, err := s.resolveTopic(ctx, attempt.Topic, nil)
	if err != nil {
		return AttemptDetail{}, err
	}

	results := questionResults(attempt, keys)
	if !attempt.Completed() {
		for i := range results {
			results[i].CorrectOptionIndex = nil
		}
	}

	return AttemptDetail{
		ID:             attempt.ID,
		UserID:         attempt.UserID,
		Topic:          topic,
		Status:         attempt.Status,
		Score:          attempt.Score,
		Percentage:     attempt.Percentage,
		TotalQuestions: len(attempt.Entries),
		CreatedAt:      attempt.CreatedAt,
		CompletedAt:    attempt.CompletedAt,
		Questions:      results,
	}, nil
}

// Delete removes an attempt and its history association. Owner or admin only.
func (s *AttemptService) Delete(ctx context.Context, principal domain.Principal, attemptID string) error {
	attempt, err := s.attempts.Get(ctx, attemptID)
	if err != nil {
		return err
	}
	if !principal.CanAccess(attempt.UserID) {
		return domain.ErrNotAuthorized
	}
	if err := s.attempts.Delete(ctx, attempt.ID); err != nil {
		return err
	}
	if err := s.users.RemoveHistory(ctx, attempt.UserID, attempt.ID); err != nil {
		log.Printf("remove quiz history user=%s attempt=%s: %v", attempt.UserID, attempt.ID, err)
	}
	s.publish(attempt.Topic)
	return nil
}

// HistoryPage is one page of attempt summaries.
type HistoryPage struct {
	Attempts   []domain.AttemptSummary `json:"quizAttempts"`
	Total      int                     `json:"total"`
	Page       int                     `json:"currentPage"`
	PageSize   int                     `json:"pageSize"`
	TotalPages int                     `json:"totalPages"`
}

// History lists a user's attempts, most recent first. Callers may read their own history;
// admins may read anyone's.
func (s *AttemptService) History(ctx context.Context, principal domain.Principal, userID string, page, pageSize int) (HistoryPage, error) {
	if !principal.CanAccess(userID) {
		return HistoryPage{}, domain.ErrNotAuthorized
	}
	return s.listPage(ctx, domain.AttemptFilter{UserID: userID}, page, pageSize)
}

// ListAttempts lists attempts across users. Admin only.
func (s *AttemptService) ListAttempts(ctx context.Context, principal domain.Principal, filter domain.AttemptFilter, page, pageSize int) (HistoryPage, error) {
	if !principal.IsAdmin() {
		return HistoryPage{}, domain.ErrNotAuthorized
	}
	return s.listPage(ctx, filter, page, pageSize)
}

func (s *AttemptService) listPage(ctx context.Context, filter domain.AttemptFilter, page, pageSize int) (HistoryPage, error) {
	page, pageSize = normalizePage(page, pageSize)
	attempts, total, err := s.attempts.List(ctx, filter, page, pageSize)
	if err != nil {
		return HistoryPage{}, err
	}

	topics := make(map[string]domain.TopicView)
	summaries := make([]domain.AttemptSummary, 0, len(attempts))
	for _, a := range attempts {
		topic, err := s.resolveTopic(ctx, a.Topic, topics)
		if err != nil {
			return HistoryPage{}, err
		}
		summaries = append(summaries, a.Summary(topic))
	}

	return HistoryPage{
		Attempts:   summaries,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: (total + pageSize - 1) / pageSize,
	}, nil
}

// Stats aggregates all of a user's attempts. A user without attempts gets all zeros.
func (s *AttemptService) Stats(ctx context.Context, principal domain.Principal, userID string) (domain.PerformanceStats, error) {
	if !principal.CanAccess(userID) {
		return domain.PerformanceStats{}, domain.ErrNotAuthorized
	}
	stats, err := s.attempts.UserStats(ctx, userID)
	if err != nil {
		return domain.PerformanceStats{}, err
	}
	return roundStats(stats), nil
}

// Leaderboard ranks users by best then average percentage, optionally for one topic.
func (s *AttemptService) Leaderboard(ctx context.Context, limit int, topicID string) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = defaultLeaderboard
	}
	if limit > maxLeaderboard {
		limit = maxLeaderboard
	}

	entries, err := s.attempts.Leaderboard(ctx, topicID, limit)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(entries))
	found := make([]bool, len(entries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, e := range entries {
		g.Go(func() error {
			user, err := s.users.GetUser(gctx, e.UserID)
			if errors.Is(err, domain.ErrUserNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			names[i] = user.Username
			found[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]domain.LeaderboardEntry, 0, len(entries))
	for i, e := range entries {
		if !found[i] {
			continue
		}
		e.Username = names[i]
		e.PerformanceStats = roundStats(e.PerformanceStats)
		out = append(out, e)
	}
	return out, nil
}

func (s *AttemptService) questionCount(requested int) (int, error) {
	switch {
	case requested < 0:
		return 0, fmt.Errorf("%w: question count must be at least 1", domain.ErrInvalidInput)
	case requested == 0:
		return s.defaultCount, nil
	case requested > s.maxCount:
		return s.maxCount, nil
	}
	return requested, nil
}

func (s *AttemptService) resolveTopic(ctx context.Context, ref domain.TopicRef, seen map[string]domain.TopicView) (domain.TopicView, error) {
	switch ref.Kind {
	case domain.RefInline:
		return domain.TopicView{Name: ref.Name, Description: ref.Description}, nil
	case domain.RefReference:
		if view, ok := seen[ref.ID]; ok {
			return view, nil
		}
		view := domain.TopicView{ID: ref.ID}
		topic, err := s.topics.FindTopic(ctx, ref.ID)
		switch {
		case err == nil:
			view.Name = topic.Name
			view.Description = topic.Description
		case errors.Is(err, domain.ErrTopicNotFound):
			// topic deleted after the attempt was taken
		default:
			return domain.TopicView{}, err
		}
		if seen != nil {
			seen[ref.ID] = view
		}
		return view, nil
	}
	return domain.TopicView{}, fmt.Errorf("%w: unknown topic kind %q", domain.ErrStorage, ref.Kind)
}

func (s *AttemptService) publish(topic domain.TopicRef) {
	if s.feed != nil {
		s.feed.Publish(topic.ReferenceID())
	}
}

func questionResults(attempt domain.Attempt, keys map[string]domain.QuestionSnapshot) []QuestionResult {
	results := make([]QuestionResult, len(attempt.Entries))
	for i, e := range attempt.Entries {
		r := QuestionResult{
			QuestionID:          e.Question.QuestionID,
			SelectedOptionIndex: e.SelectedOptionIndex,
			IsCorrect:           e.IsCorrect,
		}
		if snap, ok := e.Question.Resolve(keys); ok {
			correct := snap.CorrectOptionIndex
			r.Description = snap.Description
			r.Options = snap.Options
			r.CorrectOptionIndex = &correct
		}
		results[i] = r
	}
	return results
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	// keeps (page-1)*pageSize inside int32 so store offsets cannot wrap
	if page > maxPage {
		page = maxPage
	}
	return page, pageSize
}

func roundStats(stats domain.PerformanceStats) domain.PerformanceStats {
	stats.AverageScore = domain.Round2(stats.AverageScore)
	stats.AveragePercentage = domain.Round2(stats.AveragePercentage)
	stats.BestPercentage = domain.Round2(stats.BestPercentage)
	return stats
}
