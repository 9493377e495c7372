package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/loopback-labs/sentinel-loop/internal/config"
	"github.com/loopback-labs/sentinel-loop/internal/models"
	"github.com/loopback-labs/sentinel-loop/internal/utils"
)

const (
	metricKeyPrefix = "sentinel:metrics:"
	actionKeyPrefix = "sentinel:action:"
	actionIndexKey  = "sentinel:actions:by-created"
)

// RedisStore persists metrics and actions in Redis. Metrics live in one
// sorted set per type scored by unix-nano timestamp, which gives the
// time-range query and retention sweep directly.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and pings it so bad credentials or an
// unreachable server fail at startup rather than on the first tick.
func NewRedisStore(cfg config.StoreConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis at %s: %w", cfg.Addr, err)
	}

	return &RedisStore{client: client}, nil
}

func metricKey(t models.MetricType) string {
	return metricKeyPrefix + string(t)
}

// unavailable tags a backend failure with its operation and keeps the chain
// matchable with errors.Is(err, ErrStorageUnavailable).
func unavailable(op string, err error) error {
	return utils.NewAppError(op, err.Error(), ErrStorageUnavailable)
}

// Record stores a metric in its type's sorted set.
func (s *RedisStore) Record(ctx context.Context, metric models.Metric) (string, error) {
	if metric.ID == "" {
		metric.ID = uuid.NewString()
	}
	if metric.Timestamp.IsZero() {
		metric.Timestamp = time.Now().UTC()
	}

	payload, err := json.Marshal(metric)
	if err != nil {
		return "", fmt.Errorf("marshal metric: %w", err)
	}

	err = s.client.ZAdd(ctx, metricKey(metric.Type), &redis.Z{
		Score:  float64(metric.Timestamp.UnixNano()),
		Member: payload,
	}).Err()
	if err != nil {
		return "", unavailable("redis.Record", err)
	}
	return metric.ID, nil
}

// Query reads metrics of one type within [from, to), ascending by timestamp.
func (s *RedisStore) Query(ctx context.Context, metricType models.MetricType, from, to time.Time) ([]models.Metric, error) {
	raw, err := s.client.ZRangeByScore(ctx, metricKey(metricType), &redis.ZRangeBy{
		Min: strconv.FormatInt(from.UnixNano(), 10),
		Max: "(" + strconv.FormatInt(to.UnixNano(), 10),
	}).Result()
	if err != nil {
		return nil, unavailable("redis.Query", err)
	}

	metrics := make([]models.Metric, 0, len(raw))
	for _, item := range raw {
		var m models.Metric
		if err := json.Unmarshal([]byte(item), &m); err != nil {
			// Skip records a foreign writer corrupted rather than failing the window.
			continue
		}
		metrics = append(metrics, m)
	}
	return metrics, nil
}

// PurgeOlderThan removes metrics scored below cutoff from every type's set.
func (s *RedisStore) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	max := "(" + strconv.FormatInt(cutoff.UnixNano(), 10)
	removed := 0
	for _, mt := range models.AllMetricTypes {
		n, err := s.client.ZRemRangeByScore(ctx, metricKey(mt), "-inf", max).Result()
		if err != nil {
			return removed, unavailable("redis.PurgeOlderThan", err)
		}
		removed += int(n)
	}
	return removed, nil
}

// SaveAction upserts an action record and indexes it by creation time.
func (s *RedisStore) SaveAction(ctx context.Context, action models.CorrectiveAction) error {
	payload, err := json.Marshal(action)
	if err != nil {
		return fmt.Errorf("marshal action: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, actionKeyPrefix+action.ID, payload, 0)
	pipe.ZAdd(ctx, actionIndexKey, &redis.Z{
		Score:  float64(action.CreatedAt.UnixNano()),
		Member: action.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return unavailable("redis.SaveAction", err)
	}
	return nil
}

// GetAction loads one action by id.
func (s *RedisStore) GetAction(ctx context.Context, id string) (models.CorrectiveAction, error) {
	raw, err := s.client.Get(ctx, actionKeyPrefix+id).Result()
	if err == redis.Nil {
		return models.CorrectiveAction{}, ErrNotFound
	}
	if err != nil {
		return models.CorrectiveAction{}, unavailable("redis.GetAction", err)
	}

	var action models.CorrectiveAction
	if err := json.Unmarshal([]byte(raw), &action); err != nil {
		return models.CorrectiveAction{}, fmt.Errorf("unmarshal action %s: %w", id, err)
	}
	return action, nil
}

// ListActions returns actions created at or after since, newest first.
func (s *RedisStore) ListActions(ctx context.Context, since time.Time) ([]models.CorrectiveAction, error) {
	ids, err := s.client.ZRevRangeByScore(ctx, actionIndexKey, &redis.ZRangeBy{
		Min: strconv.FormatInt(since.UnixNano(), 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, unavailable("redis.ListActions", err)
	}

	actions := make([]models.CorrectiveAction, 0, len(ids))
	for _, id := range ids {
		action, err := s.GetAction(ctx, id)
		if err == ErrNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		actions = append(actions, action)
	}
	return actions, nil
}

// Close releases the Redis connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
