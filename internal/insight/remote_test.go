package insight

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/weekpulse/internal/reflection"
	"github.com/fyrsmithlabs/weekpulse/internal/snapshot"
)

const okBody = `{"choices":[{"message":{"role":"assistant","content":"- Protect mornings"}}]}`

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		h(w, r)
	}))
	t.Cleanup(srv.Close)

	return NewClient(ClientConfig{
		BaseURL:    srv.URL,
		Timeout:    time.Second,
		MaxRetries: 1,
		Backoff:    time.Millisecond,
	}), &calls
}

func testCompletion() Completion {
	return Completion{
		APIKey: "sk-test",
		Request: Request{
			Profile:    PersonaTone{Persona: "INTJ", Tone: "direct"},
			Metrics:    snapshot.Build(nil),
			Reflection: reflection.Input{Wins: "shipped"},
		},
	}
}

func TestClient_Complete_Success(t *testing.T) {
	var got chatRequest
	client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(okBody))
	})

	content, err := client.Complete(context.Background(), testCompletion())
	require.NoError(t, err)
	assert.Equal(t, "- Protect mornings", content)
	assert.EqualValues(t, 1, atomic.LoadInt32(calls))

	assert.Equal(t, defaultModel, got.Model)
	assert.Equal(t, 0.7, got.Temperature)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, SystemPrompt("INTJ", "direct"), got.Messages[0].Content)
	assert.Contains(t, got.Messages[0].Content, "specializing in INTJ personalities")

	var bundle map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(got.Messages[1].Content), &bundle))
	assert.Contains(t, bundle, "profile")
	assert.Contains(t, bundle, "metrics")
	assert.Contains(t, bundle, "reflection")
	assert.Contains(t, bundle, "tasks")
}

func TestClient_Complete_PreferredModel(t *testing.T) {
	var got chatRequest
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(okBody))
	})

	comp := testCompletion()
	comp.Model = "gpt-4o"
	_, err := client.Complete(context.Background(), comp)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", got.Model)
}

func TestClient_Complete_RetriesServerError(t *testing.T) {
	var n int32
	client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&n, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(okBody))
	})

	content, err := client.Complete(context.Background(), testCompletion())
	require.NoError(t, err)
	assert.Equal(t, "- Protect mornings", content)
	assert.EqualValues(t, 2, atomic.LoadInt32(calls))
}

func TestClient_Complete_RetryIsSingle(t *testing.T) {
	client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.Complete(context.Background(), testCompletion())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNonSuccessStatus)
	assert.True(t, IsRemoteStatus(err, http.StatusTooManyRequests))
	assert.EqualValues(t, 2, atomic.LoadInt32(calls))
}

func TestClient_Complete_RetryCount(t *testing.T) {
	tests := []struct {
		name       string
		maxRetries int
		wantCalls  int32
	}{
		{"zero uses default single retry", 0, 2},
		{"negative disables retry", -1, 1},
		{"explicit", 2, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.WriteHeader(http.StatusInternalServerError)
			}))
			defer srv.Close()

			client := NewClient(ClientConfig{BaseURL: srv.URL, MaxRetries: tt.maxRetries, Backoff: time.Millisecond})
			_, err := client.Complete(context.Background(), testCompletion())
			assert.ErrorIs(t, err, ErrNonSuccessStatus)
			assert.Equal(t, tt.wantCalls, atomic.LoadInt32(&calls))
		})
	}
}

func TestClient_Complete_RetryWaitsOnLimiter(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{BaseURL: srv.URL, MaxRetries: 1, Backoff: time.Millisecond, RateLimit: 0.1, Burst: 1})
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	_, err := client.Complete(ctx, testCompletion())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
	assert.Contains(t, err.Error(), "rate limiter")
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestClient_Complete_ClientErrorNotRetried(t *testing.T) {
	client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key"}}`))
	})

	_, err := client.Complete(context.Background(), testCompletion())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNonSuccessStatus)
	assert.Contains(t, err.Error(), "bad key")
	assert.EqualValues(t, 1, atomic.LoadInt32(calls))
}

func TestClient_Complete_Malformed(t *testing.T) {
	bodies := map[string]string{
		"not json":      `<html>oops</html>`,
		"no choices":    `{"choices":[]}`,
		"missing field": `{"id":"x"}`,
		"empty content": `{"choices":[{"message":{"content":"   "}}]}`,
		"null content":  `{"choices":[{"message":{"content":null}}]}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			})

			_, err := client.Complete(context.Background(), testCompletion())
			assert.ErrorIs(t, err, ErrMalformedResponse)
			assert.EqualValues(t, 1, atomic.LoadInt32(calls))
		})
	}
}

func TestClient_Complete_CredentialMissing(t *testing.T) {
	client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})

	comp := testCompletion()
	comp.APIKey = ""
	_, err := client.Complete(context.Background(), comp)
	assert.ErrorIs(t, err, ErrCredentialMissing)
	assert.EqualValues(t, 0, atomic.LoadInt32(calls))
}

func TestClient_Complete_AttemptTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{BaseURL: srv.URL, Timeout: 50 * time.Millisecond, Backoff: time.Millisecond})
	_, err := client.Complete(context.Background(), testCompletion())
	assert.ErrorIs(t, err, ErrTransport)
}

func TestClient_Complete_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := NewClient(ClientConfig{BaseURL: url, MaxRetries: 1, Backoff: time.Millisecond})
	_, err := client.Complete(context.Background(), testCompletion())
	assert.ErrorIs(t, err, ErrTransport)
	assert.Equal(t, "transport", Reason(err))
}

func TestReason(t *testing.T) {
	assert.Equal(t, "", Reason(nil))
	assert.Equal(t, "credential_missing", Reason(ErrCredentialMissing))
	assert.Equal(t, "status", Reason(&RemoteError{StatusCode: 500}))
	assert.Equal(t, "malformed", Reason(ErrMalformedResponse))
}
