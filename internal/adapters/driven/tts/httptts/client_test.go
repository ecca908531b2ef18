package httptts

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/narrata-labs/narrata-cli/internal/audio/wav"
	"github.com/narrata-labs/narrata-cli/internal/core/domain"
)

func wavResponse(t *testing.T, samples []float32, rate int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, wav.Encode(&buf, samples, rate))
	return buf.Bytes()
}

func TestClient_Synthesize(t *testing.T) {
	var got synthesizeRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/synthesize", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "audio/wav")
		w.Write(wavResponse(t, []float32{0, 0.5, -0.5}, 24000))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	defer client.Close()

	seg, err := client.Synthesize(context.Background(), "Hello there.", domain.Voice{
		Speaker:  "Aiden",
		Language: "Auto",
		Instruct: "read warmly",
	})

	require.NoError(t, err)
	assert.Equal(t, 24000, seg.SampleRate)
	assert.Len(t, seg.Samples, 3)

	assert.Equal(t, "Hello there.", got.Text)
	assert.Equal(t, "Aiden", got.Speaker)
	assert.Equal(t, "Auto", got.Language)
	assert.Equal(t, "read warmly", got.Instruct)
}

func TestClient_Synthesize_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	defer client.Close()

	_, err := client.Synthesize(context.Background(), "text", domain.Voice{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not loaded")
}

func TestClient_Synthesize_Throttled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "1")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(server.URL, WithRateLimit(100, 1))
	defer client.Close()

	_, err := client.Synthesize(context.Background(), "text", domain.Voice{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")

	// The backoff window now delays the next call past a short deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = client.Synthesize(ctx, "text", domain.Voice{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_Synthesize_BadAudio(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("this is not audio"))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	defer client.Close()

	_, err := client.Synthesize(context.Background(), "text", domain.Voice{})
	assert.ErrorIs(t, err, wav.ErrNotWAV)
}

func TestClient_Synthesize_CancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(wavResponse(t, []float32{0}, 8000))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Synthesize(ctx, "text", domain.Voice{})
	assert.ErrorIs(t, err, context.Canceled)
}
