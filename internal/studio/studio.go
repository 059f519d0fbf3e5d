// Package studio drives image-to-video generation: one job at a time,
// submitted to the remote video model and polled until it completes, fails
// or is cancelled.
package studio

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xenking/sun8-storefront/internal/genai"
	"github.com/xenking/sun8-storefront/internal/i18n"
)

// Defaults for Options.
const (
	DefaultPollInterval     = 5 * time.Second
	DefaultProgressInterval = 4 * time.Second
	DefaultMaxImageBytes    = 8 << 20
)

// progressMessages is the number of rotating veo.progress.N entries.
const progressMessages = 6

// Studio errors.
var (
	ErrCredentialRequired = errors.New("studio: API key selection required")
	ErrBusy               = errors.New("studio: a generation is already running")
	ErrNoJob              = errors.New("studio: no generation")
	ErrNotReady           = errors.New("studio: video is not ready")
	ErrNotImage           = errors.New("studio: upload is not an image")
	ErrImageTooLarge      = errors.New("studio: upload is too large")
)

// Status of a job.
type Status string

const (
	StatusGenerating Status = "generating"
	StatusDone       Status = "done"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Generator is the remote video model.
type Generator interface {
	StartVideo(ctx context.Context, req genai.VideoRequest) (genai.Operation, error)
	PollVideo(ctx context.Context, name string) (genai.Operation, error)
	DownloadVideo(ctx context.Context, uri string) ([]byte, string, error)
}

// Credentials is the cached API key state shared with the generator.
type Credentials interface {
	Select(key string)
	Valid() bool
	Invalidate()
}

// Request is an image-to-video submission.
type Request struct {
	Image       []byte
	Prompt      string
	AspectRatio genai.AspectRatio
}

// Options configure a Studio.
type Options struct {
	PollInterval     time.Duration
	ProgressInterval time.Duration
	MaxImageBytes    int
	Logger           *zap.Logger
	Now              func() time.Time
}

// Snapshot is the view of a job.
type Snapshot struct {
	ID          string            `json:"id"`
	Status      Status            `json:"status"`
	Prompt      string            `json:"prompt"`
	AspectRatio genai.AspectRatio `json:"aspectRatio"`
	StartedAt   time.Time         `json:"startedAt"`
	// Progress is the rotating status line while generating.
	Progress string `json:"progress,omitempty"`
	// Error is the localized failure message.
	Error string `json:"error,omitempty"`
	// NeedsCredential is set when the failure requires selecting a key again.
	NeedsCredential bool `json:"needsCredential,omitempty"`
}

type job struct {
	id        string
	prompt    string
	aspect    genai.AspectRatio
	started   time.Time
	cancel    context.CancelFunc
	status    Status
	videoURI  string
	errKey    string
	needsCred bool
}

// Studio owns the active job. It is safe for concurrent use.
type Studio struct {
	gen      Generator
	keys     Credentials
	bundle   *i18n.Bundle
	poll     time.Duration
	progress time.Duration
	maxImage int
	lg       *zap.Logger
	now      func() time.Time

	wg  sync.WaitGroup
	mu  sync.Mutex
	job *job
}

// New creates a Studio.
func New(gen Generator, keys Credentials, bundle *i18n.Bundle, opts Options) *Studio {
	s := &Studio{
		gen:      gen,
		keys:     keys,
		bundle:   bundle,
		poll:     opts.PollInterval,
		progress: opts.ProgressInterval,
		maxImage: opts.MaxImageBytes,
		lg:       opts.Logger,
		now:      opts.Now,
	}
	if s.poll <= 0 {
		s.poll = DefaultPollInterval
	}
	if s.progress <= 0 {
		s.progress = DefaultProgressInterval
	}
	if s.maxImage <= 0 {
		s.maxImage = DefaultMaxImageBytes
	}
	if s.lg == nil {
		s.lg = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// HasCredential reports whether a valid key is selected.
func (s *Studio) HasCredential() bool {
	return s.keys.Valid()
}

// SelectCredential stores a key for subsequent generations.
func (s *Studio) SelectCredential(key string) error {
	s.keys.Select(key)
	if !s.keys.Valid() {
		return ErrCredentialRequired
	}
	return nil
}

// Start validates req and launches a generation in the background. An empty
// prompt is replaced with the localized default.
func (s *Studio) Start(lang i18n.Language, req Request) (Snapshot, error) {
	if !s.keys.Valid() {
		return Snapshot{}, ErrCredentialRequired
	}
	if len(req.Image) > s.maxImage {
		return Snapshot{}, errors.Wrapf(ErrImageTooLarge, "limit %d bytes", s.maxImage)
	}
	mime := mimetype.Detect(req.Image)
	if !strings.HasPrefix(mime.String(), "image/") {
		return Snapshot{}, errors.Wrapf(ErrNotImage, "detected %s", mime.String())
	}
	if !req.AspectRatio.Valid() {
		return Snapshot{}, errors.Wrapf(genai.ErrInvalidAspectRatio, "%q", req.AspectRatio)
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		prompt = s.bundle.T(lang, "veo.defaultPrompt")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.job != nil && s.job.status == StatusGenerating {
		return Snapshot{}, ErrBusy
	}

	ctx, cancel := context.WithCancel(context.Background())
	j := &job{
		id:      uuid.NewString(),
		prompt:  prompt,
		aspect:  req.AspectRatio,
		started: s.now(),
		cancel:  cancel,
		status:  StatusGenerating,
	}
	s.job = j

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		s.run(ctx, j, genai.VideoRequest{
			Image:       req.Image,
			MIMEType:    mime.String(),
			Prompt:      prompt,
			AspectRatio: req.AspectRatio,
		})
	}()

	s.lg.Info("Video generation started",
		zap.String("job_id", j.id),
		zap.String("aspect_ratio", string(j.aspect)),
		zap.Int("image_bytes", len(req.Image)),
	)
	return s.snapshot(j, lang), nil
}

// run submits the request and polls the operation every poll interval until
// it is done or ctx is cancelled.
func (s *Studio) run(ctx context.Context, j *job, req genai.VideoRequest) {
	op, err := s.gen.StartVideo(ctx, req)
	if err != nil {
		s.fail(ctx, j, err)
		return
	}

	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()
	for !op.Done {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if op, err = s.gen.PollVideo(ctx, op.Name); err != nil {
			s.fail(ctx, j, err)
			return
		}
	}

	switch {
	case op.Err != nil:
		s.fail(ctx, j, op.Err)
	case op.VideoURI == "":
		s.fail(ctx, j, genai.ErrNoVideo)
	default:
		s.finish(ctx, j, op.VideoURI)
	}
}

func (s *Studio) finish(ctx context.Context, j *job, uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ctx.Err() != nil {
		return
	}
	j.status = StatusDone
	j.videoURI = uri
	s.lg.Info("Video generation finished",
		zap.String("job_id", j.id),
		zap.Duration("elapsed", s.now().Sub(j.started)),
	)
}

func (s *Studio) fail(ctx context.Context, j *job, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ctx.Err() != nil {
		// Cancelled: the result is discarded.
		return
	}
	j.status = StatusFailed
	switch {
	case genai.IsEntityNotFound(err):
		s.keys.Invalidate()
		j.errKey = "veo.errors.expired"
		j.needsCred = true
		s.lg.Warn("Video credential rejected", zap.String("job_id", j.id), zap.Error(err))
	case errors.Is(err, genai.ErrMissingCredential):
		j.errKey = "veo.errors.expired"
		j.needsCred = true
		s.lg.Warn("Video credential missing", zap.String("job_id", j.id))
	default:
		j.errKey = "veo.errors.failed"
		s.lg.Error("Video generation failed", zap.String("job_id", j.id), zap.Error(err))
	}
}

// Job returns the current job localized for lang.
func (s *Studio) Job(lang i18n.Language) (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.job == nil {
		return Snapshot{}, false
	}
	return s.snapshot(s.job, lang), true
}

func (s *Studio) snapshot(j *job, lang i18n.Language) Snapshot {
	snap := Snapshot{
		ID:              j.id,
		Status:          j.status,
		Prompt:          j.prompt,
		AspectRatio:     j.aspect,
		StartedAt:       j.started,
		NeedsCredential: j.needsCred,
	}
	switch j.status {
	case StatusGenerating:
		snap.Progress = s.bundle.T(lang, progressKey(s.now().Sub(j.started), s.progress))
	case StatusFailed:
		snap.Error = s.bundle.T(lang, j.errKey)
	}
	return snap
}

func progressKey(elapsed, every time.Duration) string {
	if elapsed < 0 {
		elapsed = 0
	}
	return fmt.Sprintf("veo.progress.%d", int(elapsed/every)%progressMessages)
}

// Cancel stops polling and discards the in-flight result. The remote
// operation is left running. It reports whether a generation was running.
func (s *Studio) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	j := s.job
	if j == nil || j.status != StatusGenerating {
		return false
	}
	j.cancel()
	j.status = StatusCancelled
	s.lg.Info("Video generation cancelled", zap.String("job_id", j.id))
	return true
}

// Dismiss clears a finished, failed or cancelled job.
func (s *Studio) Dismiss() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.job == nil {
		return ErrNoJob
	}
	if s.job.status == StatusGenerating {
		return ErrBusy
	}
	s.job = nil
	return nil
}

// Video downloads the finished video. The download is authenticated, so a
// valid key is required.
func (s *Studio) Video(ctx context.Context) ([]byte, string, error) {
	s.mu.Lock()
	j := s.job
	var uri string
	if j != nil && j.status == StatusDone {
		uri = j.videoURI
	}
	s.mu.Unlock()

	switch {
	case j == nil:
		return nil, "", ErrNoJob
	case uri == "":
		return nil, "", ErrNotReady
	case !s.keys.Valid():
		return nil, "", ErrCredentialRequired
	}

	data, contentType, err := s.gen.DownloadVideo(ctx, uri)
	if err != nil {
		if genai.IsEntityNotFound(err) {
			s.keys.Invalidate()
			return nil, "", errors.Wrap(ErrCredentialRequired, err.Error())
		}
		return nil, "", errors.Wrap(err, "download video")
	}
	return data, contentType, nil
}

// Close cancels any running generation and waits for its poll loop to exit.
func (s *Studio) Close() {
	s.Cancel()
	s.wg.Wait()
}
