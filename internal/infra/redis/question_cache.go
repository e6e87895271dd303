package redis

import (
	"context"
	"math/rand"
	"time"

	"elearning-quiz/internal/domain"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// QuestionSource fetches the quiz question list from a backing store (API or question bank).
type QuestionSource interface {
	FetchQuestions(ctx context.Context) ([]domain.Question, error)
}

// QuestionCache shares the question list between gateway instances.
// The list is stored as JSON: SET {prefix}questions <json> EX ttl
type QuestionCache struct {
	client *redis.Client
	source QuestionSource
	key    string
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
	log    logrus.FieldLogger
}

func NewQuestionCache(client *redis.Client, source QuestionSource, prefix string, ttl time.Duration, log logrus.FieldLogger) *QuestionCache {
	return &QuestionCache{
		client: client,
		source: source,
		key:    prefix + "questions",
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		log:    log,
	}
}

func (c *QuestionCache) FetchQuestions(ctx context.Context) ([]domain.Question, error) {
	if questions, ok := c.cached(ctx); ok {
		return questions, nil
	}

	result, err, _ := c.sf.Do(c.key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if questions, ok := c.cached(ctx); ok {
			return questions, nil
		}

		questions, err := c.source.FetchQuestions(ctx)
		if err != nil {
			return nil, err
		}

		if ttl := c.ttlWithJitter(); ttl > 0 && len(questions) > 0 {
			data, err := json.Marshal(questions)
			if err != nil {
				return nil, errors.Wrap(err, "marshal questions")
			}
			if err := c.client.Set(ctx, c.key, data, ttl).Err(); err != nil {
				c.log.WithError(err).Warn("failed to cache questions in redis")
			}
		}
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

// Invalidate drops the shared list.
func (c *QuestionCache) Invalidate(ctx context.Context) error {
	return errors.Wrapf(c.client.Del(ctx, c.key).Err(), "del %s", c.key)
}

func (c *QuestionCache) cached(ctx context.Context) ([]domain.Question, bool) {
	data, err := c.client.Get(ctx, c.key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.WithError(err).Warn("failed to read cached questions")
		}
		return nil, false
	}
	var questions []domain.Question
	if err := json.Unmarshal(data, &questions); err != nil || len(questions) == 0 {
		return nil, false
	}
	return questions, true
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
