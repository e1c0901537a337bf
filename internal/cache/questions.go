// Package cache holds the redis-backed caches used in front of the stores.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mind-engage/toximeter/internal/assessment"
)

const activeQuestionsKey = "toximeter:questions:active"

// DefaultQuestionTTL bounds staleness when an invalidation is lost.
const DefaultQuestionTTL = 5 * time.Minute

type questionCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewQuestionCache returns an assessment.QuestionCache storing the active
// bank as one JSON value.
func NewQuestionCache(client *redis.Client, ttl time.Duration) assessment.QuestionCache {
	if ttl <= 0 {
		ttl = DefaultQuestionTTL
	}
	return &questionCache{client: client, ttl: ttl}
}

func (c *questionCache) GetActive(ctx context.Context) ([]assessment.Question, bool, error) {
	data, err := c.client.Get(ctx, activeQuestionsKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var qs []assessment.Question
	if err := json.Unmarshal(data, &qs); err != nil {
		// callers fall back to the store; the next SetActive overwrites it
		return nil, false, fmt.Errorf("decode cached questions: %w", err)
	}
	return qs, true, nil
}

func (c *questionCache) SetActive(ctx context.Context, qs []assessment.Question) error {
	if qs == nil {
		qs = []assessment.Question{}
	}
	data, err := json.Marshal(qs)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, activeQuestionsKey, data, c.ttl).Err()
}

func (c *questionCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, activeQuestionsKey).Err()
}
