// Package uploader PUTs encrypted payloads to the pre-authorized URLs
// issued by the orchestration service. It retries transient failures with
// linear backoff; credentials never appear here because authorization is
// baked into the URL itself.
package uploader

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/blockgate/blockgate/internal/constants"
	"github.com/blockgate/blockgate/internal/logging"
)

// retryLogger implements the retryablehttp.LeveledLogger interface.
type retryLogger struct {
	log *logging.Logger
}

func (l *retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.log.Error().Fields(keysAndValues).Msg(msg)
}

func (l *retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.log.Warn().Fields(keysAndValues).Msg(msg)
}

func (l *retryLogger) Info(msg string, keysAndValues ...interface{}) {
	// Retries are logged at warn/error only.
}

func (l *retryLogger) Debug(msg string, keysAndValues ...interface{}) {
}

// Uploader performs retrying PUTs against presigned URLs.
type Uploader struct {
	blocks     *retryablehttp.Client
	thumbnails *retryablehttp.Client
	maxRetries int
}

// Option tweaks uploader construction.
type Option func(*options)

type options struct {
	maxRetries       int
	retryUnit        time.Duration
	blockTimeout     time.Duration
	thumbnailTimeout time.Duration
}

// WithMaxRetries overrides the total attempt count per payload.
func WithMaxRetries(n int) Option {
	return func(o *options) { o.maxRetries = n }
}

// WithRetryUnit overrides the linear backoff unit.
func WithRetryUnit(d time.Duration) Option {
	return func(o *options) { o.retryUnit = d }
}

// WithTimeouts overrides the per-attempt block and thumbnail timeouts.
func WithTimeouts(block, thumbnail time.Duration) Option {
	return func(o *options) {
		o.blockTimeout = block
		o.thumbnailTimeout = thumbnail
	}
}

// New builds an Uploader. Defaults: 3 attempts, attempt*1s backoff,
// 300s block / 60s thumbnail per-attempt timeouts.
func New(log *logging.Logger, opts ...Option) *Uploader {
	o := options{
		maxRetries:       constants.UploadMaxRetries,
		retryUnit:        constants.UploadRetryUnit,
		blockTimeout:     constants.BlockUploadTimeout,
		thumbnailTimeout: constants.ThumbnailUploadTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Uploader{
		blocks:     newClient(log, o, o.blockTimeout),
		thumbnails: newClient(log, o, o.thumbnailTimeout),
		maxRetries: o.maxRetries,
	}
}

func newClient(log *logging.Logger, o options, timeout time.Duration) *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.HTTPClient = &http.Client{Timeout: timeout}
	client.RetryMax = o.maxRetries - 1 // RetryMax counts retries after the first attempt
	client.Logger = &retryLogger{log: log}

	// Linear backoff: attempt N waits N * retryUnit.
	unit := o.retryUnit
	client.Backoff = func(min, max time.Duration, attemptNum int, resp *http.Response) time.Duration {
		return time.Duration(attemptNum+1) * unit
	}

	// Presigned destinations return plain status codes; anything outside
	// 2xx is worth another attempt (the original retried all non-success).
	client.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if err != nil {
			return true, nil
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return true, nil
		}
		return false, nil
	}

	return client
}

// PutBlock uploads one encrypted block to its presigned destination.
func (u *Uploader) PutBlock(ctx context.Context, url string, body []byte) error {
	if err := u.put(ctx, u.blocks, url, body); err != nil {
		return fmt.Errorf("Upload failed after %d retries", u.maxRetries)
	}
	return nil
}

// PutThumbnail uploads the encrypted thumbnail.
func (u *Uploader) PutThumbnail(ctx context.Context, url string, body []byte) error {
	return u.put(ctx, u.thumbnails, url, body)
}

func (u *Uploader) put(ctx context.Context, client *retryablehttp.Client, url string, body []byte) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("upload rejected with status %d", resp.StatusCode)
	}
	return nil
}
