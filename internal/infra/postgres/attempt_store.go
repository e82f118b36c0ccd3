package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"competiquest/internal/domain"
	"github.com/uptrace/bun"
)

type attemptRow struct {
	bun.BaseModel `bun:"table:quiz_attempts,alias:qa"`

	ID               string         `bun:"id,pk"`
	UserID           string         `bun:"user_id,notnull"`
	TopicKind        string         `bun:"topic_kind,notnull"`
	TopicID          string         `bun:"topic_id,nullzero"`
	TopicName        string         `bun:"topic_name,nullzero"`
	TopicDescription string         `bun:"topic_description,nullzero"`
	Entries          []domain.Entry `bun:"entries,type:jsonb,notnull"`
	Status           string         `bun:"status,notnull"`
	Score            int            `bun:"score,notnull"`
	Percentage       float64        `bun:"percentage,notnull"`
	CreatedAt        time.Time      `bun:"created_at,notnull"`
	CompletedAt      *time.Time     `bun:"completed_at"`
}

func toAttemptRow(a domain.Attempt) attemptRow {
	return attemptRow{
		ID:               a.ID,
		UserID:           a.UserID,
		TopicKind:        string(a.Topic.Kind),
		TopicID:          a.Topic.ID,
		TopicName:        a.Topic.Name,
		TopicDescription: a.Topic.Description,
		Entries:          a.Entries,
		Status:           string(a.Status),
		Score:            a.Score,
		Percentage:       a.Percentage,
		CreatedAt:        a.CreatedAt,
		CompletedAt:      a.CompletedAt,
	}
}

func (r attemptRow) toDomain() domain.Attempt {
	return domain.Attempt{
		ID:     r.ID,
		UserID: r.UserID,
		Topic: domain.TopicRef{
			Kind:        domain.RefKind(r.TopicKind),
			ID:          r.TopicID,
			Name:        r.TopicName,
			Description: r.TopicDescription,
		},
		Entries:     r.Entries,
		Status:      domain.AttemptStatus(r.Status),
		Score:       r.Score,
		Percentage:  r.Percentage,
		CreatedAt:   r.CreatedAt,
		CompletedAt: r.CompletedAt,
	}
}

// AttemptStore persists quiz attempts in the quiz_attempts table. Entries are stored as JSONB.
type AttemptStore struct {
	db *bun.DB
}

func NewAttemptStore(db *bun.DB) *AttemptStore {
	return &AttemptStore{db: db}
}

func (s *AttemptStore) Create(ctx context.Context, attempt domain.Attempt) error {
	row := toAttemptRow(attempt)
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return storageErr("insert attempt", err)
	}
	return nil
}

func (s *AttemptStore) Get(ctx context.Context, id string) (domain.Attempt, error) {
	var row attemptRow
	err := s.db.NewSelect().Model(&row).Where("qa.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	if err != nil {
		return domain.Attempt{}, storageErr("select attempt", err)
	}
	return row.toDomain(), nil
}

// Complete writes the graded attempt only if the stored row is still in progress.
func (s *AttemptStore) Complete(ctx context.Context, attempt domain.Attempt) error {
	row := toAttemptRow(attempt)
	res, err := s.db.NewUpdate().Model(&row).
		Column("entries", "status", "score", "percentage", "completed_at").
		WherePK().
		Where("status = ?", string(domain.StatusInProgress)).
		Exec(ctx)
	if err != nil {
		return storageErr("complete attempt", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr("complete attempt", err)
	}
	if n == 1 {
		return nil
	}

	exists, err := s.db.NewSelect().Model((*attemptRow)(nil)).Where("qa.id = ?", attempt.ID).Exists(ctx)
	if err != nil {
		return storageErr("complete attempt", err)
	}
	if !exists {
		return domain.ErrAttemptNotFound
	}
	return domain.ErrAlreadySubmitted
}

func (s *AttemptStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.NewDelete().Model((*attemptRow)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return storageErr("delete attempt", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrAttemptNotFound
	}
	return nil
}

func (s *AttemptStore) List(ctx context.Context, filter domain.AttemptFilter, page, pageSize int) ([]domain.Attempt, int, error) {
	var rows []attemptRow
	q := s.db.NewSelect().Model(&rows)
	applyFilter(q, filter)
	total, err := q.
		OrderExpr("qa.created_at DESC, qa.id DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, storageErr("list attempts", err)
	}
	out := make([]domain.Attempt, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, total, nil
}

type aggregateRow struct {
	UserID            string  `bun:"user_id"`
	TotalAttempts     int     `bun:"total_attempts"`
	AverageScore      float64 `bun:"average_score"`
	AveragePercentage float64 `bun:"average_percentage"`
	BestScore         int     `bun:"best_score"`
	BestPercentage    float64 `bun:"best_percentage"`
}

func (r aggregateRow) stats() domain.PerformanceStats {
	return domain.PerformanceStats{
		TotalAttempts:     r.TotalAttempts,
		AverageScore:      r.AverageScore,
		AveragePercentage: r.AveragePercentage,
		BestScore:         r.BestScore,
		BestPercentage:    r.BestPercentage,
	}
}

func aggregateColumns(q *bun.SelectQuery) *bun.SelectQuery {
	return q.
		ColumnExpr("count(*) AS total_attempts").
		ColumnExpr("coalesce(avg(qa.score), 0)::float8 AS average_score").
		ColumnExpr("coalesce(avg(qa.percentage), 0)::float8 AS average_percentage").
		ColumnExpr("coalesce(max(qa.score), 0) AS best_score").
		ColumnExpr("coalesce(max(qa.percentage), 0)::float8 AS best_percentage")
}

func (s *AttemptStore) UserStats(ctx context.Context, userID string) (domain.PerformanceStats, error) {
	var row aggregateRow
	err := aggregateColumns(s.db.NewSelect().Model((*attemptRow)(nil))).
		Where("qa.user_id = ?", userID).
		Scan(ctx, &row)
	if err != nil {
		return domain.PerformanceStats{}, storageErr("user stats", err)
	}
	return row.stats(), nil
}

// Leaderboard aggregates per user in SQL. Attempts of deleted users are excluded by the join.
func (s *AttemptStore) Leaderboard(ctx context.Context, topicID string, limit int) ([]domain.LeaderboardEntry, error) {
	var rows []aggregateRow
	q := aggregateColumns(s.db.NewSelect().Model((*attemptRow)(nil)).ColumnExpr("qa.user_id")).
		Join("JOIN users AS u ON u.id = qa.user_id").
		GroupExpr("qa.user_id").
		OrderExpr("best_percentage DESC, average_percentage DESC, qa.user_id ASC")
	if topicID != "" {
		q = q.Where("qa.topic_kind = ? AND qa.topic_id = ?", string(domain.RefReference), topicID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx, &rows); err != nil {
		return nil, storageErr("leaderboard", err)
	}
	out := make([]domain.LeaderboardEntry, len(rows))
	for i, r := range rows {
		out[i] = domain.LeaderboardEntry{UserID: r.UserID, PerformanceStats: r.stats()}
	}
	return out, nil
}

func applyFilter(q *bun.SelectQuery, filter domain.AttemptFilter) {
	if filter.UserID != "" {
		q.Where("qa.user_id = ?", filter.UserID)
	}
	if filter.TopicID != "" {
		q.Where("qa.topic_kind = ? AND qa.topic_id = ?", string(domain.RefReference), filter.TopicID)
	}
}
