package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/toximeter/internal/assessment"
	"github.com/mind-engage/toximeter/internal/scoring"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := NewRedis(context.Background(), mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestQuestionCache_MissSetHitInvalidate(t *testing.T) {
	ctx := context.Background()
	mr, client := setupRedis(t)
	c := NewQuestionCache(client, time.Minute)

	qs, ok, err := c.GetActive(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, qs)

	want := []assessment.Question{
		{ID: "q1", Text: "We trust each other completely.", Weight: -2, Order: 1, Active: true},
		{ID: "q2", Text: "Personal boundaries are ignored.", Weight: 2, Order: 2, Active: true},
	}
	require.NoError(t, c.SetActive(ctx, want))
	assert.True(t, mr.Exists(activeQuestionsKey))
	assert.Equal(t, time.Minute, mr.TTL(activeQuestionsKey))

	got, ok, err := c.GetActive(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want, got)

	require.NoError(t, c.Invalidate(ctx))
	_, ok, err = c.GetActive(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestQuestionCache_EmptyBankIsAHit(t *testing.T) {
	ctx := context.Background()
	_, client := setupRedis(t)
	c := NewQuestionCache(client, 0)

	require.NoError(t, c.SetActive(ctx, nil))
	got, ok, err := c.GetActive(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, got)
}

func TestQuestionCache_Expires(t *testing.T) {
	ctx := context.Background()
	mr, client := setupRedis(t)
	c := NewQuestionCache(client, 30*time.Second)

	require.NoError(t, c.SetActive(ctx, []assessment.Question{{ID: "q1", Text: "x", Weight: 1, Order: 1}}))
	mr.FastForward(31 * time.Second)

	_, ok, err := c.GetActive(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestQuestionCache_CorruptEntry(t *testing.T) {
	ctx := context.Background()
	mr, client := setupRedis(t)
	c := NewQuestionCache(client, time.Minute)

	require.NoError(t, mr.Set(activeQuestionsKey, "{not json"))
	_, ok, err := c.GetActive(ctx)
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestQuestionCache_BehindService(t *testing.T) {
	ctx := context.Background()
	mr, client := setupRedis(t)
	svc := assessment.NewService(assessment.NewInMemoryStore(),
		assessment.WithCache(NewQuestionCache(client, time.Minute)))

	_, err := svc.SeedQuestions(ctx, []assessment.Question{
		{ID: "q1", Text: "We celebrate each other's successes.", Weight: -2, Order: 1},
	})
	require.NoError(t, err)

	res, err := svc.Preview(ctx, scoring.Responses{"q1": 5})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Percent)
	assert.True(t, mr.Exists(activeQuestionsKey), "active bank cached after first read")

	_, err = svc.CreateQuestion(ctx, assessment.Question{Text: "Jealousy is a frequent issue between us.", Weight: 2, Order: 2})
	require.NoError(t, err)
	assert.False(t, mr.Exists(activeQuestionsKey), "write invalidates")

	_, err = svc.Preview(ctx, scoring.Responses{"q1": 5})
	require.ErrorIs(t, err, scoring.ErrMissingAnswer)
}
