package llm

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

const (
	// DefaultMaxRetries is the default maximum number of retries
	DefaultMaxRetries = 3
	// DefaultInitialInterval is the default initial delay for exponential backoff
	DefaultInitialInterval = 500 * time.Millisecond
	// DefaultMaxInterval is the default maximum interval between attempts
	DefaultMaxInterval = 10 * time.Second
	// DefaultMaxElapsedTime is the default maximum elapsed time for backoff
	DefaultMaxElapsedTime = 1 * time.Minute
	// StandardMultiplier is the multiplier for standard exponential backoff
	StandardMultiplier = 2.0
	// StandardRandomizationFactor is the randomization factor for standard exponential backoff
	StandardRandomizationFactor = 0.2
)

// RetryPolicy bounds how a client retries retryable transport errors.
type RetryPolicy struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      DefaultMaxRetries,
		InitialInterval: DefaultInitialInterval,
		MaxInterval:     DefaultMaxInterval,
		MaxElapsedTime:  DefaultMaxElapsedTime,
	}
}

// WithRetry wraps a Client so that retryable errors (see IsRetryableError) are
// retried with exponential backoff. Non-retryable errors return immediately.
// A zero MaxRetries disables retrying.
func WithRetry(client Client, policy RetryPolicy, logger zerolog.Logger) Client {
	if policy.MaxRetries == 0 {
		return client
	}
	return &retryClient{
		client: client,
		policy: policy,
		logger: logger.With().Str("component", "llmRetry").Logger(),
	}
}

type retryClient struct {
	client Client
	policy RetryPolicy
	logger zerolog.Logger
}

// Synchronous implements Client.Synchronous.
func (c *retryClient) Synchronous(ctx context.Context, req *Request) (*Response, error) {
	var resp *Response
	err := c.retry(ctx, req, func() error {
		var err error
		resp, err = c.client.Synchronous(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Stream implements Client.Stream. Only stream creation is retried; errors
// surfacing mid-stream are reported by the stream itself.
func (c *retryClient) Stream(ctx context.Context, req *Request) (Stream, error) {
	var stream Stream
	err := c.retry(ctx, req, func() error {
		var err error
		stream, err = c.client.Stream(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return stream, nil
}

// ListModels forwards to the wrapped client when it can list models.
func (c *retryClient) ListModels(ctx context.Context) ([]ModelInfo, error) {
	lister, ok := c.client.(ModelLister)
	if !ok {
		return nil, NewProviderError("client does not support model listing", nil)
	}
	return lister.ListModels(ctx)
}

func (c *retryClient) retry(ctx context.Context, req *Request, op func() error) error {
	b := &retryAfterBackOff{BackOff: c.newBackoff()}
	attempt := 0

	operation := func() error {
		attempt++
		err := op()
		if err == nil {
			return nil
		}
		if !IsRetryableError(err) {
			return backoff.Permanent(err)
		}
		b.hint = ExtractRetryAfter(err)
		return err
	}

	notify := func(err error, delay time.Duration) {
		c.logger.Warn().
			Err(err).
			Str("model", req.Model).
			Int("attempt", attempt).
			Dur("delay", delay).
			Msg("Retrying request")
	}

	return backoff.RetryNotify(operation, backoff.WithContext(backoff.WithMaxRetries(b, c.policy.MaxRetries), ctx), notify)
}

func (c *retryClient) newBackoff() backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.policy.InitialInterval
	if eb.InitialInterval <= 0 {
		eb.InitialInterval = DefaultInitialInterval
	}
	eb.MaxInterval = c.policy.MaxInterval
	if eb.MaxInterval <= 0 {
		eb.MaxInterval = DefaultMaxInterval
	}
	eb.MaxElapsedTime = c.policy.MaxElapsedTime
	eb.Multiplier = StandardMultiplier
	eb.RandomizationFactor = StandardRandomizationFactor
	eb.Reset()
	return eb
}

// retryAfterBackOff waits at least as long as the service asked for.
type retryAfterBackOff struct {
	backoff.BackOff
	hint *time.Duration
}

func (b *retryAfterBackOff) NextBackOff() time.Duration {
	next := b.BackOff.NextBackOff()
	if next == backoff.Stop {
		return next
	}
	if b.hint != nil && *b.hint > next {
		next = *b.hint
	}
	b.hint = nil
	return next
}

var (
	_ Client      = (*retryClient)(nil)
	_ ModelLister = (*retryClient)(nil)
)
