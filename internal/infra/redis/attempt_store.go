package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"competiquest/internal/domain"
	"github.com/redis/go-redis/v9"
)

const maxTxRetries = 5

// AttemptStore keeps quiz attempts in Redis.
// Layout:
//
//	attempt:{id}              JSON document
//	attempts:user:{userID}    ZSET of attempt ids scored by creation time
//	attempts:all              ZSET of every attempt id scored by creation time
//
// Completion runs under WATCH so only one submission can move an attempt out of in_progress.
type AttemptStore struct {
	client *redis.Client
	// beforeCommit runs between the WATCHed read and the MULTI of Complete.
	beforeCommit func()
}

func NewAttemptStore(client *redis.Client) *AttemptStore {
	return &AttemptStore{client: client}
}

func (s *AttemptStore) Create(ctx context.Context, attempt domain.Attempt) error {
	data, err := json.Marshal(attempt)
	if err != nil {
		return fmt.Errorf("%w: encode attempt: %w", domain.ErrStorage, err)
	}
	ok, err := s.client.SetNX(ctx, attemptKey(attempt.ID), data, 0).Result()
	if err != nil {
		return storageErr("create attempt", err)
	}
	if !ok {
		return fmt.Errorf("%w: attempt %s already exists", domain.ErrStorage, attempt.ID)
	}

	member := redis.Z{Score: createdScore(attempt), Member: attempt.ID}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, userKey(attempt.UserID), member)
		pipe.ZAdd(ctx, allKey, member)
		return nil
	})
	if err != nil {
		if derr := s.client.Del(ctx, attemptKey(attempt.ID)).Err(); derr != nil {
			log.Printf("drop unindexed attempt %s: %v", attempt.ID, derr)
		}
		return storageErr("index attempt", err)
	}
	return nil
}

func (s *AttemptStore) Get(ctx context.Context, id string) (domain.Attempt, error) {
	data, err := s.client.Get(ctx, attemptKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	if err != nil {
		return domain.Attempt{}, storageErr("get attempt", err)
	}
	return decode(data)
}

func (s *AttemptStore) Complete(ctx context.Context, attempt domain.Attempt) error {
	key := attemptKey(attempt.ID)
	data, err := json.Marshal(attempt)
	if err != nil {
		return fmt.Errorf("%w: encode attempt: %w", domain.ErrStorage, err)
	}

	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return domain.ErrAttemptNotFound
		}
		if err != nil {
			return err
		}
		stored, err := decode(raw)
		if err != nil {
			return err
		}
		if stored.Completed() {
			return domain.ErrAlreadySubmitted
		}
		if s.beforeCommit != nil {
			s.beforeCommit()
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			// another client touched the attempt; re-read and decide again
			continue
		}
		if err != nil {
			if errors.Is(err, domain.ErrAlreadySubmitted) || errors.Is(err, domain.ErrAttemptNotFound) || errors.Is(err, domain.ErrStorage) {
				return err
			}
			return storageErr("complete attempt", err)
		}
		return nil
	}
	return storageErr("complete attempt", redis.TxFailedErr)
}

func (s *AttemptStore) Delete(ctx context.Context, id string) error {
	attempt, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	var deleted *redis.IntCmd
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		deleted = pipe.Del(ctx, attemptKey(id))
		pipe.ZRem(ctx, userKey(attempt.UserID), id)
		pipe.ZRem(ctx, allKey, id)
		return nil
	})
	if err != nil {
		return storageErr("delete attempt", err)
	}
	if deleted.Val() == 0 {
		return domain.ErrAttemptNotFound
	}
	return nil
}

func (s *AttemptStore) List(ctx context.Context, filter domain.AttemptFilter, page, pageSize int) ([]domain.Attempt, int, error) {
	index := allKey
	if filter.UserID != "" {
		index = userKey(filter.UserID)
	}

	if filter.TopicID == "" {
		total, err := s.client.ZCard(ctx, index).Result()
		if err != nil {
			return nil, 0, storageErr("count attempts", err)
		}
		start := int64((page - 1) * pageSize)
		ids, err := s.client.ZRevRange(ctx, index, start, start+int64(pageSize)-1).Result()
		if err != nil {
			return nil, 0, storageErr("list attempts", err)
		}
		attempts, err := s.load(ctx, ids)
		if err != nil {
			return nil, 0, err
		}
		return attempts, int(total), nil
	}

	matched, err := s.scan(ctx, index, filter)
	if err != nil {
		return nil, 0, err
	}
	domain.SortAttemptsNewestFirst(matched)
	return domain.Page(matched, page, pageSize), len(matched), nil
}

func (s *AttemptStore) UserStats(ctx context.Context, userID string) (domain.PerformanceStats, error) {
	attempts, err := s.scan(ctx, userKey(userID), domain.AttemptFilter{UserID: userID})
	if err != nil {
		return domain.PerformanceStats{}, err
	}
	return domain.SummarizePerformance(attempts), nil
}

func (s *AttemptStore) Leaderboard(ctx context.Context, topicID string, limit int) ([]domain.LeaderboardEntry, error) {
	attempts, err := s.scan(ctx, allKey, domain.AttemptFilter{TopicID: topicID})
	if err != nil {
		return nil, err
	}
	return domain.RankLeaderboard(attempts, topicID, limit), nil
}

func (s *AttemptStore) scan(ctx context.Context, index string, filter domain.AttemptFilter) ([]domain.Attempt, error) {
	ids, err := s.client.ZRevRange(ctx, index, 0, -1).Result()
	if err != nil {
		return nil, storageErr("scan attempts", err)
	}
	attempts, err := s.load(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := attempts[:0]
	for _, a := range attempts {
		if filter.Matches(a) {
			out = append(out, a)
		}
	}
	return out, nil
}

// load fetches attempts in ids order, skipping ids whose document vanished.
func (s *AttemptStore) load(ctx context.Context, ids []string) ([]domain.Attempt, error) {
	if len(ids) == 0 {
		return []domain.Attempt{}, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = attemptKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, storageErr("load attempts", err)
	}
	out := make([]domain.Attempt, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		a, err := decode([]byte(raw))
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func decode(data []byte) (domain.Attempt, error) {
	var a domain.Attempt
	if err := json.Unmarshal(data, &a); err != nil {
		return domain.Attempt{}, fmt.Errorf("%w: decode attempt: %w", domain.ErrStorage, err)
	}
	return a, nil
}

func createdScore(a domain.Attempt) float64 {
	return float64(a.CreatedAt.UnixMilli())
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrStorage, op, err)
}

const allKey = "attempts:all"

func attemptKey(id string) string {
	return "attempt:" + id
}

func userKey(userID string) string {
	return "attempts:user:" + userID
}
