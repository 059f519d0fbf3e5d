package genai

import (
	"context"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	sdk "google.golang.org/genai"
)

// AspectRatio of the generated video.
type AspectRatio string

const (
	Landscape AspectRatio = "16:9"
	Portrait  AspectRatio = "9:16"
)

// Valid reports whether a is supported.
func (a AspectRatio) Valid() bool {
	return a == Landscape || a == Portrait
}

// Fixed generation parameters.
const (
	VideoResolution = "720p"
	videoSamples    = 1

	defaultVideoType = "video/mp4"
)

// ErrInvalidAspectRatio is returned for ratios other than 16:9 and 9:16.
var ErrInvalidAspectRatio = errors.New("genai: unsupported aspect ratio")

// VideoRequest starts an image-to-video generation.
type VideoRequest struct {
	Image       []byte
	MIMEType    string
	Prompt      string
	AspectRatio AspectRatio
}

// Operation is the state of a long-running generation.
type Operation struct {
	Name     string
	Done     bool
	VideoURI string
	// Err is set when the operation finished with a failure.
	Err *APIError
}

func toOperation(op *sdk.GenerateVideosOperation) Operation {
	if op == nil {
		return Operation{}
	}
	out := Operation{Name: op.Name, Done: op.Done, Err: operationError(op.Error)}
	if op.Response != nil {
		for _, v := range op.Response.GeneratedVideos {
			if v != nil && v.Video != nil && v.Video.URI != "" {
				out.VideoURI = v.Video.URI
				break
			}
		}
	}
	return out
}

// StartVideo submits the generation and returns the operation handle.
func (c *Client) StartVideo(ctx context.Context, req VideoRequest) (_ Operation, err error) {
	ctx, span := c.startSpan(ctx, "genai.StartVideo",
		attribute.String("genai.model", c.videoModel),
		attribute.String("genai.aspect_ratio", string(req.AspectRatio)),
		attribute.Int("genai.image_bytes", len(req.Image)),
	)
	defer func() { endSpan(span, err) }()

	if !req.AspectRatio.Valid() {
		return Operation{}, errors.Wrapf(ErrInvalidAspectRatio, "%q", req.AspectRatio)
	}
	client, err := c.session(ctx)
	if err != nil {
		return Operation{}, err
	}

	var image *sdk.Image
	if len(req.Image) > 0 {
		image = &sdk.Image{ImageBytes: req.Image, MIMEType: req.MIMEType}
	}
	op, err := client.Models.GenerateVideos(ctx, c.videoModel, req.Prompt, image, &sdk.GenerateVideosConfig{
		NumberOfVideos: videoSamples,
		AspectRatio:    string(req.AspectRatio),
		Resolution:     VideoResolution,
	})
	if err != nil {
		return Operation{}, wrapError(err, "generate videos")
	}
	return toOperation(op), nil
}

// PollVideo fetches the current state of the named operation.
func (c *Client) PollVideo(ctx context.Context, name string) (_ Operation, err error) {
	ctx, span := c.startSpan(ctx, "genai.PollVideo", attribute.String("genai.operation", name))
	defer func() { endSpan(span, err) }()

	client, err := c.session(ctx)
	if err != nil {
		return Operation{}, err
	}
	op, err := client.Operations.GetVideosOperation(ctx, &sdk.GenerateVideosOperation{Name: name}, nil)
	if err != nil {
		return Operation{}, wrapError(err, "get operation")
	}
	return toOperation(op), nil
}

// DownloadVideo fetches the generated video bytes and sniffs their type. The
// resource requires the same credential as generation.
func (c *Client) DownloadVideo(ctx context.Context, uri string) (_ []byte, _ string, err error) {
	ctx, span := c.startSpan(ctx, "genai.DownloadVideo")
	defer func() { endSpan(span, err) }()

	client, err := c.session(ctx)
	if err != nil {
		return nil, "", err
	}
	data, err := client.Files.Download(ctx, sdk.NewDownloadURIFromVideo(&sdk.Video{URI: uri}), nil)
	if err != nil {
		return nil, "", wrapError(err, "download video")
	}
	span.SetAttributes(attribute.Int("genai.video_bytes", len(data)))
	return data, videoType(data), nil
}

// videoType returns the detected video media type, or mp4 when the content
// is not recognized as video.
func videoType(data []byte) string {
	if t := mimetype.Detect(data).String(); strings.HasPrefix(t, "video/") {
		return t
	}
	return defaultVideoType
}
