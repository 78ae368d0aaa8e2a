package directory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamnotify/channel-resolver/config"
	"github.com/streamnotify/channel-resolver/internal/core"
	apperrors "github.com/streamnotify/channel-resolver/internal/errors"
)

// fakeDirectory records queries and serves canned responses per term.
type fakeDirectory struct {
	mu        sync.Mutex
	queries   []string
	responses map[string]string // term -> response body
	status    int
}

func (f *fakeDirectory) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		term := r.URL.Query().Get("q")

		f.mu.Lock()
		f.queries = append(f.queries, term)
		body, ok := f.responses[term]
		status := f.status
		f.mu.Unlock()

		if status != 0 {
			w.WriteHeader(status)
			return
		}
		if !ok {
			body = `{"items": []}`
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

func (f *fakeDirectory) seenQueries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

func candidateBody(id, title string) string {
	return `{"items": [{"snippet": {"channelId": "` + id + `", "title": "` + title + `"}},
		{"snippet": {"channelId": "UC_other", "title": "Other"}}]}`
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	cfg := config.DirectoryConfig{
		APIKey:  "test-key",
		BaseURL: baseURL,
		Timeout: 2 * time.Second,
	}
	cfg.Sanitize()

	client, err := NewClient(ClientOptions{Config: cfg})
	require.NoError(t, err)
	return client
}

func TestNewClientRejectsBadExpression(t *testing.T) {
	cfg := config.DirectoryConfig{ChannelIDExpr: "items[", ChannelNameExpr: "items[0]"}
	_, err := NewClient(ClientOptions{Config: cfg})
	require.Error(t, err)
}

func TestResolveHandlePrimaryQuery(t *testing.T) {
	fake := &fakeDirectory{responses: map[string]string{
		"someone": candidateBody("UC123", "Someone"),
	}}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	res, err := client.Resolve(context.Background(), "@someone")
	require.NoError(t, err)

	assert.Equal(t, core.Resolution{ChannelID: "UC123", ChannelName: "Someone"}, res)
	assert.Equal(t, []string{"someone"}, fake.seenQueries(), "first candidate found, no fallback")
}

func TestResolveHandleFallbackQuery(t *testing.T) {
	fake := &fakeDirectory{responses: map[string]string{
		"@literal": candidateBody("UC456", "Literal Handle"),
	}}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	res, err := client.Resolve(context.Background(), "@literal")
	require.NoError(t, err)

	assert.Equal(t, "UC456", res.ChannelID)
	assert.Equal(t, "Literal Handle", res.ChannelName)
	assert.Equal(t, []string{"literal", "@literal"}, fake.seenQueries(),
		"fallback must reuse the original unstripped input")
}

func TestResolveExhaustedReturnsNotFound(t *testing.T) {
	fake := &fakeDirectory{}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.Resolve(context.Background(), "@doesnotexist123456")
	require.ErrorIs(t, err, core.ErrChannelNotFound)
	assert.Len(t, fake.seenQueries(), 2, "primary plus one fallback, never more")
}

func TestResolveNoPrefixSingleQuery(t *testing.T) {
	fake := &fakeDirectory{}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.Resolve(context.Background(), "UCxxxx")
	require.ErrorIs(t, err, core.ErrChannelNotFound)
	assert.Equal(t, []string{"UCxxxx"}, fake.seenQueries(), "no prefix stripped means no fallback variant")
}

func TestResolveMissingFieldIsNotFound(t *testing.T) {
	fake := &fakeDirectory{responses: map[string]string{
		"someone":  `{"items": [{"snippet": {"title": "No ID"}}]}`,
		"@someone": `{"items": [{"snippet": {"title": "No ID"}}]}`,
	}}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.Resolve(context.Background(), "@someone")
	require.ErrorIs(t, err, core.ErrChannelNotFound)
}

func TestResolveTransportErrorPropagates(t *testing.T) {
	fake := &fakeDirectory{status: http.StatusInternalServerError}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.Resolve(context.Background(), "@someone")
	require.Error(t, err)
	assert.True(t, apperrors.IsUnavailable(err), "non-success status maps to unavailable")
	assert.Len(t, fake.seenQueries(), 1, "transport errors are not retried with the fallback variant")
}

func TestResolveMalformedBodyIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.Resolve(context.Background(), "@someone")
	require.Error(t, err)
	assert.True(t, apperrors.IsUnavailable(err))
}

func TestResolveTimeoutIsBounded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(500 * time.Millisecond)
		_, _ = w.Write([]byte(`{"items": []}`))
	}))
	defer srv.Close()

	cfg := config.DirectoryConfig{APIKey: "test-key", BaseURL: srv.URL, Timeout: 50 * time.Millisecond}
	cfg.Sanitize()
	cfg.Timeout = 50 * time.Millisecond

	client, err := NewClient(ClientOptions{Config: cfg})
	require.NoError(t, err)

	start := time.Now()
	_, err = client.Resolve(context.Background(), "@someone")
	require.Error(t, err)
	assert.Less(t, time.Since(start), 400*time.Millisecond, "call must respect the configured timeout")
}

func TestResolveMissingAPIKey(t *testing.T) {
	fake := &fakeDirectory{}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	cfg := config.DirectoryConfig{BaseURL: srv.URL}
	cfg.Sanitize()

	client, err := NewClient(ClientOptions{Config: cfg})
	require.NoError(t, err)

	_, err = client.Resolve(context.Background(), "@someone")
	require.Error(t, err)
	assert.True(t, apperrors.IsConfiguration(err))
	assert.Empty(t, fake.seenQueries(), "no network call without a credential")
}

func TestResolveEmptyInput(t *testing.T) {
	client := newTestClient(t, "http://unused.invalid")

	_, err := client.Resolve(context.Background(), "   ")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestResolvePercentEncodesQuery(t *testing.T) {
	var rawQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(candidateBody("UC789", "Spaced Name")))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.Resolve(context.Background(), "name with spaces & symbols")
	require.NoError(t, err)
	assert.Contains(t, rawQuery, "q=name+with+spaces+%26+symbols")
}

func TestResolveBareAtSign(t *testing.T) {
	fake := &fakeDirectory{}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.Resolve(context.Background(), "@")
	require.ErrorIs(t, err, core.ErrChannelNotFound)
	assert.Equal(t, []string{"@"}, fake.seenQueries(), "a lone marker is queried as-is, once")
}
