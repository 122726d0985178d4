package publisher

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"engagement-engine/internal/models"
)

func newTestPublisher(t *testing.T) (*Publisher, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	p := New(client, "strategy-updates", zap.NewNop())
	t.Cleanup(func() { _ = p.Close() })
	return p, mr
}

func TestPublishStrategyStoresAndAnnounces(t *testing.T) {
	p, mr := newTestPublisher(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub := p.client.Subscribe(ctx, "strategy-updates")
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	profile := models.DefaultStrategyProfile("c1")
	profile.Version = 4
	require.NoError(t, p.PublishStrategy(ctx, profile))

	raw, err := mr.Get(Key("c1"))
	require.NoError(t, err)
	var stored models.StrategyProfile
	require.NoError(t, json.Unmarshal([]byte(raw), &stored))
	assert.Equal(t, int64(4), stored.Version)

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, raw, msg.Payload)
}

func TestStrategyReadsBack(t *testing.T) {
	p, _ := newTestPublisher(t)
	ctx := context.Background()

	missing, err := p.Strategy(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)

	profile := models.DefaultStrategyProfile("c1")
	profile.PersonaAdjustments["authenticity"] = 0.9
	require.NoError(t, p.PublishStrategy(ctx, profile))

	got, err := p.Strategy(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 0.9, got.PersonaAdjustments["authenticity"])
}

func TestPublishFailsWhenRedisIsDown(t *testing.T) {
	p, mr := newTestPublisher(t)
	mr.SetError("LOADING server is loading")

	err := p.PublishStrategy(context.Background(), models.DefaultStrategyProfile("c1"))
	assert.ErrorContains(t, err, "failed to publish strategy for c1")
}

func TestConnectDisabledWithoutAddr(t *testing.T) {
	p, err := Connect(context.Background(), Config{}, zap.NewNop())

	require.NoError(t, err)
	assert.Nil(t, p)
	assert.NoError(t, p.PublishStrategy(context.Background(), models.DefaultStrategyProfile("c1")))
	assert.NoError(t, p.Close())
}

func TestConnectPings(t *testing.T) {
	mr := miniredis.RunT(t)

	p, err := Connect(context.Background(), Config{Addr: mr.Addr(), Channel: "updates"}, zap.NewNop())
	require.NoError(t, err)
	defer p.Close()
	assert.Equal(t, "updates", p.channel)
}
