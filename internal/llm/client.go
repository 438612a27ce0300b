// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/pdiddy/biomed-rag/internal/httputil"
	"github.com/pdiddy/biomed-rag/pkg/types"
)

// backoffBase controls the base duration for exponential backoff on
// transport failures. Tests override this to avoid real sleeps.
var backoffBase = time.Second

const tokenCountInstruction = "Count the number of tokens in the following text."

// Client talks to an OpenAI-compatible API. It is safe for concurrent use.
type Client struct {
	api     *openai.Client
	cfg     types.LLMConfig
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	log     zerolog.Logger

	// plainJSON holds models that rejected a json_schema response format.
	// Requests to them go out without one and rely on local decoding.
	plainJSON sync.Map
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	log  zerolog.Logger
	doer httputil.Doer
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(o *clientOptions) { o.log = log }
}

// WithHTTPClient replaces the underlying HTTP client. Retries still apply.
func WithHTTPClient(d httputil.Doer) Option {
	return func(o *clientOptions) { o.doer = d }
}

// NewClient returns a Client for cfg. The API key must be set.
func NewClient(cfg types.LLMConfig, opts ...Option) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("no API key configured: set llm.api_key, OPENAI_API_KEY, or .secrets/openai-api-key")
	}
	def := types.DefaultConfig().LLM
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = def.EmbeddingModel
	}
	if cfg.TokenModel == "" {
		cfg.TokenModel = def.TokenModel
	}
	if cfg.EmbeddingBatchSize <= 0 {
		cfg.EmbeddingBatchSize = def.EmbeddingBatchSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}

	o := clientOptions{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	doer := httputil.NewRetryDoer(cfg.Timeout, cfg.MaxRetries, o.log)
	if o.doer != nil {
		doer.Client = o.doer
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	apiCfg.HTTPClient = doer

	log := o.log
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openai",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	})

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), max(1, cfg.RequestsPerMinute/10))
	}

	return &Client{
		api:     openai.NewClientWithConfig(apiCfg),
		cfg:     cfg,
		breaker: breaker,
		limiter: limiter,
		log:     log,
	}, nil
}

// Generate runs one chat completion and returns the reply text. A model that
// rejects structured output is asked again without a response format; the
// caller's schema still validates the reply locally.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	cr := c.chatRequest(req)
	if _, plain := c.plainJSON.Load(req.Model); plain {
		cr.ResponseFormat = nil
	}
	resp, err := c.chat(ctx, cr)
	if err != nil && cr.ResponseFormat != nil && responseFormatRejected(err) {
		c.log.Warn().Str("model", req.Model).Msg("model does not support structured output, retrying without it")
		c.plainJSON.Store(req.Model, struct{}{})
		cr.ResponseFormat = nil
		resp, err = c.chat(ctx, cr)
	}
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: %s returned no choices", ErrRemoteService, req.Model)
	}
	return resp.Choices[0].Message.Content, nil
}

// CountTokens reports the service-side token usage of text under the
// configured token model.
func (c *Client) CountTokens(ctx context.Context, text string) (int, error) {
	resp, err := c.chat(ctx, c.chatRequest(Request{
		Model:     c.cfg.TokenModel,
		System:    tokenCountInstruction,
		User:      text,
		MaxTokens: 1,
	}))
	if err != nil {
		return 0, err
	}
	return resp.Usage.TotalTokens, nil
}

// Embed returns one vector per text in input order, sending at most
// EmbeddingBatchSize texts per request.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	size := c.cfg.EmbeddingBatchSize
	for start := 0; start < len(texts); start += size {
		end := min(start+size, len(texts))
		batch := texts[start:end]

		v, err := c.call(ctx, "embeddings", func() (any, error) {
			return c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
				Input: batch,
				Model: openai.EmbeddingModel(c.cfg.EmbeddingModel),
			})
		})
		if err != nil {
			return nil, err
		}
		resp := v.(openai.EmbeddingResponse)
		if len(resp.Data) != len(batch) {
			return nil, fmt.Errorf("%w: embeddings returned %d vectors for %d inputs",
				ErrRemoteService, len(resp.Data), len(batch))
		}
		for i, e := range resp.Data {
			idx := e.Index
			if idx < 0 || idx >= len(batch) {
				idx = i
			}
			out[start+idx] = e.Embedding
		}
	}
	return out, nil
}

func (c *Client) chatRequest(req Request) openai.ChatCompletionRequest {
	temp := req.Temperature
	if temp <= 0 {
		// The API treats an omitted temperature as 1.
		temp = math.SmallestNonzeroFloat32
	}
	cr := openai.ChatCompletionRequest{
		Model:       req.Model,
		Temperature: temp,
		MaxTokens:   req.MaxTokens,
	}
	if req.System != "" {
		cr.Messages = append(cr.Messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	cr.Messages = append(cr.Messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.User,
	})
	if req.Schema != nil {
		cr.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   req.Schema.Name,
				Schema: req.Schema.Definition,
				Strict: true,
			},
		}
	}
	return cr
}

func (c *Client) chat(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	v, err := c.call(ctx, req.Model, func() (any, error) {
		return c.api.CreateChatCompletion(ctx, req)
	})
	if err != nil {
		return openai.ChatCompletionResponse{}, err
	}
	resp := v.(openai.ChatCompletionResponse)
	c.log.Debug().Str("model", req.Model).Int("tokens", resp.Usage.TotalTokens).Msg("chat completion")
	return resp, nil
}

// call paces fn through the limiter and breaker, retrying transport
// failures. HTTP status retries happen below, in the retrying transport.
func (c *Client) call(ctx context.Context, what string, fn func() (any, error)) (any, error) {
	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		start := time.Now()
		v, err := c.breaker.Execute(fn)
		if err == nil {
			c.log.Debug().Str("call", what).Dur("elapsed", time.Since(start)).Msg("remote call done")
			return v, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		lastErr = err
		if !transient(err) {
			break
		}
		c.log.Warn().Err(err).Str("call", what).Int("attempt", attempt+1).Msg("remote call failed, retrying")
	}
	return nil, fmt.Errorf("%w: %s: %w", ErrRemoteService, what, lastErr)
}

// responseFormatRejected reports whether err is the API refusing the
// response_format parameter.
func responseFormatRejected(err error) bool {
	var apiErr *openai.APIError
	if !errors.As(err, &apiErr) || apiErr.HTTPStatusCode != http.StatusBadRequest {
		return false
	}
	if apiErr.Param != nil && *apiErr.Param == "response_format" {
		return true
	}
	return strings.Contains(apiErr.Message, "response_format")
}

// transient reports whether err came from the transport rather than from an
// API response or the breaker.
func transient(err error) bool {
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr), errors.As(err, &reqErr):
		return false
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return false
	}
	return true
}
