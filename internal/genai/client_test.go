package genai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const apiKeyHeader = "x-goog-api-key"

func newTestClient(t *testing.T, h http.Handler) (*Client, *KeyRing) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	keys := NewKeyRing("test-key")
	return NewClient(keys, Options{BaseURL: srv.URL, HTTPClient: srv.Client()}), keys
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	return body
}

// field walks nested JSON objects and arrays by key or index.
func field(t *testing.T, v any, path ...any) any {
	t.Helper()
	for _, p := range path {
		switch k := p.(type) {
		case string:
			m, ok := v.(map[string]any)
			require.True(t, ok, "expected object at %v", p)
			v = m[k]
		case int:
			a, ok := v.([]any)
			require.True(t, ok, "expected array at %v", p)
			require.Greater(t, len(a), k)
			v = a[k]
		}
	}
	return v
}

func TestKeyRing(t *testing.T) {
	k := NewKeyRing("  ")
	_, ok := k.Key()
	assert.False(t, ok)

	k.Select("abc")
	key, ok := k.Key()
	require.True(t, ok)
	assert.Equal(t, "abc", key)

	k.Invalidate()
	assert.False(t, k.Valid())

	k.Select("abc")
	assert.True(t, k.Valid())
}

func TestGenerateText(t *testing.T) {
	var got map[string]any
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.True(t, strings.HasSuffix(r.URL.Path, "/models/gemini-3-flash-preview:generateContent"), r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get(apiKeyHeader))
		got = decodeBody(t, r)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"Try the "},{"text":"Midnight Diver."}]}}]}`))
	}))

	reply, err := c.GenerateText(context.Background(), TextRequest{
		Contents: []Content{
			TextContent(RoleModel, "Hello!"),
			TextContent(RoleUser, "A watch for diving?"),
		},
		SystemInstruction: "You are Aura",
		Temperature:       0.7,
		MaxOutputTokens:   500,
	})
	require.NoError(t, err)
	assert.Equal(t, "Try the Midnight Diver.", reply)

	assert.Len(t, field(t, got, "contents"), 2)
	assert.Equal(t, RoleUser, field(t, got, "contents", 1, "role"))
	assert.Equal(t, "A watch for diving?", field(t, got, "contents", 1, "parts", 0, "text"))
	assert.Equal(t, "You are Aura", field(t, got, "systemInstruction", "parts", 0, "text"))
	assert.InDelta(t, 0.7, field(t, got, "generationConfig", "temperature"), 1e-6)
	assert.EqualValues(t, 500, field(t, got, "generationConfig", "maxOutputTokens"))
}

func TestGenerateText_EmptyCandidates(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))

	reply, err := c.GenerateText(context.Background(), TextRequest{})
	require.NoError(t, err)
	assert.Empty(t, reply)
}

func TestGenerateText_MissingCredential(t *testing.T) {
	called := false
	c, keys := newTestClient(t, http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	keys.Select("")

	_, err := c.GenerateText(context.Background(), TextRequest{})
	require.ErrorIs(t, err, ErrMissingCredential)
	assert.False(t, called)
}

func TestGenerateText_APIError(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		notFound bool
	}{
		{
			name:   "permission denied",
			status: http.StatusForbidden,
			body:   `{"error":{"code":403,"message":"Method doesn't allow unregistered callers","status":"PERMISSION_DENIED"}}`,
		},
		{
			name:     "entity not found",
			status:   http.StatusNotFound,
			body:     `{"error":{"code":404,"message":"Requested entity was not found.","status":"NOT_FOUND"}}`,
			notFound: true,
		},
		{
			name:     "entity not found message on 400",
			status:   http.StatusBadRequest,
			body:     `{"error":{"code":400,"message":"Requested entity was not found.","status":"INVALID_ARGUMENT"}}`,
			notFound: true,
		},
		{
			name:   "unrelated 404",
			status: http.StatusNotFound,
			body:   `{"error":{"code":404,"message":"models/unknown is not found for API version v1beta","status":"NOT_FOUND"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))

			_, err := c.GenerateText(context.Background(), TextRequest{})
			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.notFound, IsEntityNotFound(err))
		})
	}
}

func TestIsEntityNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil},
		{name: "plain error with the message", err: errors.New("Requested entity was not found")},
		{
			name: "wrapped api error",
			err:  errors.Wrap(&APIError{StatusCode: 404, Message: "Requested entity was not found."}, "poll"),
			want: true,
		},
		{name: "404 for an unknown operation", err: &APIError{StatusCode: 404, Status: "NOT_FOUND", Message: "Operation not found"}},
		{name: "bare 404", err: &APIError{StatusCode: 404}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsEntityNotFound(tt.err))
		})
	}
}

func TestVideoLifecycle(t *testing.T) {
	image := []byte("\x89PNG\r\n\x1a\nfake")
	var predict map[string]any

	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get(apiKeyHeader))
		switch {
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/models/veo-3.1-fast-generate-preview:predictLongRunning"):
			predict = decodeBody(t, r)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"name":"models/veo/operations/op-1"}`))
		case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/models/veo/operations/op-1"):
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"name":"models/veo/operations/op-1","done":true,"response":{"generateVideoResponse":{"generatedSamples":[{"video":{"uri":"` +
				"http://" + r.Host + `/v1beta/files/vid1:download?alt=media"}}]}}}`))
		case r.Method == http.MethodGet && strings.Contains(r.URL.Path, "files/vid1"):
			w.Header().Set("Content-Type", "video/mp4")
			_, _ = w.Write([]byte("MP4DATA"))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotImplemented)
		}
	}))
	ctx := context.Background()

	op, err := c.StartVideo(ctx, VideoRequest{Image: image, MIMEType: "image/png", Prompt: "pan", AspectRatio: Portrait})
	require.NoError(t, err)
	assert.Equal(t, "models/veo/operations/op-1", op.Name)
	assert.False(t, op.Done)

	require.NotNil(t, predict)
	assert.Equal(t, "pan", field(t, predict, "instances", 0, "prompt"))
	assert.Equal(t, base64.StdEncoding.EncodeToString(image), field(t, predict, "instances", 0, "image", "bytesBase64Encoded"))
	assert.Equal(t, "image/png", field(t, predict, "instances", 0, "image", "mimeType"))
	assert.Equal(t, "9:16", field(t, predict, "parameters", "aspectRatio"))
	assert.Equal(t, "720p", field(t, predict, "parameters", "resolution"))
	assert.EqualValues(t, 1, field(t, predict, "parameters", "sampleCount"))

	op, err = c.PollVideo(ctx, op.Name)
	require.NoError(t, err)
	require.True(t, op.Done)
	require.Nil(t, op.Err)
	require.NotEmpty(t, op.VideoURI)

	data, contentType, err := c.DownloadVideo(ctx, op.VideoURI)
	require.NoError(t, err)
	assert.Equal(t, "MP4DATA", string(data))
	assert.Equal(t, "video/mp4", contentType)
}

func TestPollVideo_OperationError(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"op","done":true,"error":{"code":404,"message":"Requested entity was not found."}}`))
	}))

	op, err := c.PollVideo(context.Background(), "op")
	require.NoError(t, err)
	require.NotNil(t, op.Err)
	assert.Equal(t, http.StatusNotFound, op.Err.StatusCode)
	assert.True(t, IsEntityNotFound(op.Err))
}

func TestVideoType(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{name: "mp4 container", data: []byte("\x00\x00\x00\x18ftypisom\x00\x00\x02\x00isomiso2"), want: "video/mp4"},
		{name: "unrecognized", data: []byte("MP4DATA"), want: "video/mp4"},
		{name: "empty", data: nil, want: "video/mp4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, videoType(tt.data))
		})
	}
}

func TestStartVideo_InvalidAspectRatio(t *testing.T) {
	c, _ := newTestClient(t, http.NotFoundHandler())
	_, err := c.StartVideo(context.Background(), VideoRequest{AspectRatio: "4:3"})
	require.ErrorIs(t, err, ErrInvalidAspectRatio)
}
