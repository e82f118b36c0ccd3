package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"competiquest/internal/domain"
	"github.com/uptrace/bun"
)

type userRow struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           string    `bun:"id,pk"`
	Username     string    `bun:"username,notnull"`
	Email        string    `bun:"email,notnull"`
	PasswordHash string    `bun:"password_hash,notnull"`
	Role         string    `bun:"role,notnull"`
	CreatedAt    time.Time `bun:"created_at,notnull"`
}

func (r userRow) toDomain() domain.User {
	return domain.User{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Role:         domain.Role(r.Role),
		CreatedAt:    r.CreatedAt,
	}
}

type historyRow struct {
	bun.BaseModel `bun:"table:user_quiz_history,alias:h"`

	UserID    string    `bun:"user_id,pk"`
	AttemptID string    `bun:"attempt_id,pk"`
	AddedAt   time.Time `bun:"added_at,nullzero,notnull,default:current_timestamp"`
}

// UserStore keeps accounts and their quiz history association.
type UserStore struct {
	db *bun.DB
}

func NewUserStore(db *bun.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) CreateUser(ctx context.Context, user domain.User) error {
	row := userRow{
		ID:           user.ID,
		Username:     user.Username,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		Role:         string(user.Role),
		CreatedAt:    user.CreatedAt,
	}
	_, err := s.db.NewInsert().Model(&row).Exec(ctx)
	if pgCode(err) == codeUniqueViolation {
		return domain.ErrUserExists
	}
	if err != nil {
		return storageErr("insert user", err)
	}
	return nil
}

func (s *UserStore) GetUser(ctx context.Context, id string) (domain.User, error) {
	return s.findOne(ctx, "u.id = ?", id)
}

func (s *UserStore) FindByUsername(ctx context.Context, username string) (domain.User, error) {
	return s.findOne(ctx, "u.username = ?", username)
}

func (s *UserStore) findOne(ctx context.Context, where string, arg any) (domain.User, error) {
	var row userRow
	err := s.db.NewSelect().Model(&row).Where(where, arg).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, storageErr("select user", err)
	}
	return row.toDomain(), nil
}

func (s *UserStore) AppendHistory(ctx context.Context, userID, attemptID string) error {
	row := historyRow{UserID: userID, AttemptID: attemptID}
	_, err := s.db.NewInsert().Model(&row).On("CONFLICT DO NOTHING").Exec(ctx)
	if pgCode(err) == codeForeignKeyViolation {
		return domain.ErrUserNotFound
	}
	if err != nil {
		return storageErr("append history", err)
	}
	return nil
}

func (s *UserStore) RemoveHistory(ctx context.Context, userID, attemptID string) error {
	_, err := s.db.NewDelete().Model((*historyRow)(nil)).
		Where("user_id = ?", userID).
		Where("attempt_id = ?", attemptID).
		Exec(ctx)
	if err != nil {
		return storageErr("remove history", err)
	}
	return nil
}

// History lists a user's recorded attempt ids in the order they were added.
func (s *UserStore) History(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := s.db.NewSelect().Model((*historyRow)(nil)).
		Column("attempt_id").
		Where("h.user_id = ?", userID).
		OrderExpr("h.added_at ASC").
		Scan(ctx, &ids)
	if err != nil {
		return nil, storageErr("list history", err)
	}
	return ids, nil
}
