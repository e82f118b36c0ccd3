package redis

import (
	"context"
	"errors"
	"strings"
	"time"

	"competiquest/internal/domain"
	"github.com/redis/go-redis/v9"
)

// UserStore keeps accounts and their quiz history in Redis.
// Layout:
//
//	user:{id}                 HASH of the account
//	user:email:{email}        id owning a lower-cased email
//	user:name:{username}      id owning a username
//	user:history:{id}         ZSET of attempt ids scored by append time
type UserStore struct {
	client *redis.Client
	now    func() time.Time
}

func NewUserStore(client *redis.Client) *UserStore {
	return &UserStore{client: client, now: time.Now}
}

type userHash struct {
	ID           string `redis:"id"`
	Username     string `redis:"username"`
	Email        string `redis:"email"`
	PasswordHash string `redis:"password_hash"`
	Role         string `redis:"role"`
	CreatedAt    int64  `redis:"created_at"`
}

// CreateUser claims the email and username keys with SETNX before writing the account,
// releasing the claims when a later step fails.
func (s *UserStore) CreateUser(ctx context.Context, user domain.User) error {
	emailKey := userEmailKey(user.Email)
	ok, err := s.client.SetNX(ctx, emailKey, user.ID, 0).Result()
	if err != nil {
		return storageErr("claim email", err)
	}
	if !ok {
		return domain.ErrUserExists
	}

	nameKey := usernameKey(user.Username)
	ok, err = s.client.SetNX(ctx, nameKey, user.ID, 0).Result()
	if err != nil || !ok {
		s.client.Del(ctx, emailKey)
		if err != nil {
			return storageErr("claim username", err)
		}
		return domain.ErrUserExists
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, accountKey(user.ID), map[string]interface{}{
			"id":            user.ID,
			"username":      user.Username,
			"email":         user.Email,
			"password_hash": user.PasswordHash,
			"role":          string(user.Role),
			"created_at":    user.CreatedAt.UnixMilli(),
		})
		return nil
	})
	if err != nil {
		s.client.Del(ctx, emailKey, nameKey)
		return storageErr("create user", err)
	}
	return nil
}

func (s *UserStore) GetUser(ctx context.Context, id string) (domain.User, error) {
	cmd := s.client.HGetAll(ctx, accountKey(id))
	fields, err := cmd.Result()
	if err != nil {
		return domain.User{}, storageErr("get user", err)
	}
	if len(fields) == 0 {
		return domain.User{}, domain.ErrUserNotFound
	}
	var h userHash
	if err := cmd.Scan(&h); err != nil {
		return domain.User{}, storageErr("decode user", err)
	}
	return domain.User{
		ID:           h.ID,
		Username:     h.Username,
		Email:        h.Email,
		PasswordHash: h.PasswordHash,
		Role:         domain.Role(h.Role),
		CreatedAt:    time.UnixMilli(h.CreatedAt).UTC(),
	}, nil
}

func (s *UserStore) FindByUsername(ctx context.Context, username string) (domain.User, error) {
	id, err := s.client.Get(ctx, usernameKey(username)).Result()
	if errors.Is(err, redis.Nil) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, storageErr("find user", err)
	}
	return s.GetUser(ctx, id)
}

// DeleteUser removes an account, its claims and its history. Attempts stay.
func (s *UserStore) DeleteUser(ctx context.Context, id string) error {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, accountKey(id), userEmailKey(user.Email), usernameKey(user.Username), historyKey(id))
		return nil
	})
	if err != nil {
		return storageErr("delete user", err)
	}
	return nil
}

func (s *UserStore) AppendHistory(ctx context.Context, userID, attemptID string) error {
	n, err := s.client.Exists(ctx, accountKey(userID)).Result()
	if err != nil {
		return storageErr("append history", err)
	}
	if n == 0 {
		return domain.ErrUserNotFound
	}
	member := redis.Z{Score: float64(s.now().UnixMilli()), Member: attemptID}
	if err := s.client.ZAddNX(ctx, historyKey(userID), member).Err(); err != nil {
		return storageErr("append history", err)
	}
	return nil
}

func (s *UserStore) RemoveHistory(ctx context.Context, userID, attemptID string) error {
	if err := s.client.ZRem(ctx, historyKey(userID), attemptID).Err(); err != nil {
		return storageErr("remove history", err)
	}
	return nil
}

// History returns the attempt ids recorded for a user in append order.
func (s *UserStore) History(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.client.ZRange(ctx, historyKey(userID), 0, -1).Result()
	if err != nil {
		return nil, storageErr("history", err)
	}
	return ids, nil
}

func accountKey(id string) string {
	return "user:" + id
}

func userEmailKey(email string) string {
	return "user:email:" + strings.ToLower(strings.TrimSpace(email))
}

func usernameKey(username string) string {
	return "user:name:" + username
}

func historyKey(id string) string {
	return "user:history:" + id
}
