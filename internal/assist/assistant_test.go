package assist

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agendaplus/practice-backend/internal/plugin"
)

func newEngineStub(t *testing.T, calls *int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/generate", r.URL.Path)
		var req GenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		atomic.AddInt64(calls, 1)
		_ = json.NewEncoder(w).Encode(GenerateResponse{
			Text:       "answer to: " + req.Prompt,
			TokensUsed: 17,
		})
	}))
}

func TestAnswerHitsCacheOnRepeat(t *testing.T) {
	var calls int64
	srv := newEngineStub(t, &calls)
	defer srv.Close()

	a := NewAssistant(NewClient(srv.URL, time.Second), NewMemoryCache(), zerolog.Nop())
	ctx := context.Background()

	first, err := a.Answer(ctx, "What are your opening hours?")
	require.NoError(t, err)
	second, err := a.Answer(ctx, "What are your opening hours?")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, atomic.LoadInt64(&calls), "second answer must come from cache")

	_, err = a.Answer(ctx, "Do you take walk-ins?")
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt64(&calls))
}

func TestFingerprintSensitivity(t *testing.T) {
	base := GenerateRequest{Prompt: "q", SystemPrompt: "s", MaxTokens: 10, Temperature: 0.2}
	assert.Equal(t, Fingerprint(base), Fingerprint(base))

	warm := base
	warm.Temperature = 0.9
	assert.NotEqual(t, Fingerprint(base), Fingerprint(warm))

	other := base
	other.Prompt = "q2"
	assert.NotEqual(t, Fingerprint(base), Fingerprint(other))
}

func TestSummarizerWarmsCache(t *testing.T) {
	var calls int64
	srv := newEngineStub(t, &calls)
	defer srv.Close()

	assistant := NewAssistant(NewClient(srv.URL, time.Second), NewMemoryCache(), zerolog.Nop())
	s := NewSummarizer(assistant)

	ev := plugin.Event{
		AppointmentID: "a1",
		Type:          plugin.EventConfirmed,
		FromStatus:    "requested",
		ToStatus:      "confirmed",
		StartTime:     time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC),
		EndTime:       time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.Notify(context.Background(), ev))
	require.NoError(t, s.Notify(context.Background(), ev))
	assert.EqualValues(t, 1, atomic.LoadInt64(&calls), "repeat events reuse the warmed summary")
}

func TestAnswerSurvivesEngineDown(t *testing.T) {
	a := NewAssistant(NewClient("http://127.0.0.1:1", 200*time.Millisecond), NewMemoryCache(), zerolog.Nop())
	_, err := a.Answer(context.Background(), "anyone there?")
	assert.Error(t, err)
}
