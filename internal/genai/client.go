// Package genai wraps the Gemini text and Veo video generation APIs behind
// the narrow surface the concierge and the studio need.
package genai

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	sdk "google.golang.org/genai"
)

// Defaults for Options.
const (
	DefaultBaseURL    = "https://generativelanguage.googleapis.com/"
	DefaultTextModel  = "gemini-3-flash-preview"
	DefaultVideoModel = "veo-3.1-fast-generate-preview"
	DefaultTimeout    = 60 * time.Second

	apiVersion = "v1beta"
	tracerName = "github.com/xenking/sun8-storefront/internal/genai"
)

// Options configure a Client. Zero values select defaults.
type Options struct {
	BaseURL    string
	TextModel  string
	VideoModel string
	Timeout    time.Duration
	// HTTPClient overrides the instrumented default client.
	HTTPClient     *http.Client
	TracerProvider trace.TracerProvider
}

// Client issues generation calls authenticated with the key held by a KeyRing.
type Client struct {
	baseURL    string
	textModel  string
	videoModel string
	http       *http.Client
	keys       *KeyRing
	tracer     trace.Tracer
}

// NewClient constructs a client.
func NewClient(keys *KeyRing, opts Options) *Client {
	c := &Client{
		baseURL:    strings.TrimSpace(opts.BaseURL),
		textModel:  opts.TextModel,
		videoModel: opts.VideoModel,
		http:       opts.HTTPClient,
		keys:       keys,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(c.baseURL, "/") {
		c.baseURL += "/"
	}
	if c.textModel == "" {
		c.textModel = DefaultTextModel
	}
	if c.videoModel == "" {
		c.videoModel = DefaultVideoModel
	}
	tp := opts.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	if c.http == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		c.http = &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport, otelhttp.WithTracerProvider(tp)),
		}
	}
	c.tracer = tp.Tracer(tracerName)
	return c
}

// Keys returns the credential ring used by the client.
func (c *Client) Keys() *KeyRing { return c.keys }

// session builds an SDK client bound to the currently selected key. The key
// can be replaced at any time, so a session is never reused across calls.
func (c *Client) session(ctx context.Context) (*sdk.Client, error) {
	key, ok := c.keys.Key()
	if !ok {
		return nil, ErrMissingCredential
	}
	client, err := sdk.NewClient(ctx, &sdk.ClientConfig{
		APIKey:     key,
		Backend:    sdk.BackendGeminiAPI,
		HTTPClient: c.http,
		HTTPOptions: sdk.HTTPOptions{
			BaseURL:    c.baseURL,
			APIVersion: apiVersion,
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "create genai client")
	}
	return client, nil
}

func (c *Client) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindClient), trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
