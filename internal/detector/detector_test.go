package detector

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func detectServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL)
}

func TestDetect(t *testing.T) {
	client := detectServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/detect", r.URL.Path)
		var req DetectRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "hello", req.Text)
		_ = json.NewEncoder(w).Encode(DetectResponse{AIProbability: 0.83, Label: "ai", Confidence: 0.9})
	})

	score, err := client.Detect(context.Background(), "hello")

	require.NoError(t, err)
	assert.Equal(t, 0.83, score)
}

func TestDetectRejectsBadResponses(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model not loaded", http.StatusServiceUnavailable)
		}},
		{"out of range", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"ai_probability": 1.7}`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := detectServer(t, tt.handler)
			_, err := client.Detect(context.Background(), "text")
			assert.ErrorIs(t, err, ErrDetectorUnavailable)
		})
	}
}

func TestHealthCheck(t *testing.T) {
	client := detectServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok","model_loaded":true,"device":"cpu"}`))
	})

	health, err := client.HealthCheck(context.Background())

	require.NoError(t, err)
	assert.True(t, health.ModelLoaded)
}

func TestGuardedTimesOutSlowModel(t *testing.T) {
	client := detectServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	g := NewGuarded(client, 50*time.Millisecond, zap.NewNop())

	start := time.Now()
	score, ok := g.Score(context.Background(), "text")

	assert.False(t, ok)
	assert.Zero(t, score)
	assert.Less(t, time.Since(start), time.Second)
}

type flakyScorer struct {
	calls atomic.Int32
	err   error
	score float64
}

func (s *flakyScorer) Detect(context.Context, string) (float64, error) {
	s.calls.Add(1)
	return s.score, s.err
}

func TestGuardedPassesScoreThrough(t *testing.T) {
	g := NewGuarded(&flakyScorer{score: 0.4}, time.Second, zap.NewNop())

	score, ok := g.Score(context.Background(), "text")

	assert.True(t, ok)
	assert.Equal(t, 0.4, score)
}

func TestGuardedOpensCircuit(t *testing.T) {
	scorer := &flakyScorer{err: errors.New("connection refused")}
	g := NewGuarded(scorer, time.Second, zap.NewNop())

	for range 20 {
		_, ok := g.Score(context.Background(), "text")
		assert.False(t, ok)
	}

	assert.Less(t, int(scorer.calls.Load()), 20, "open breaker must short-circuit calls")
}
