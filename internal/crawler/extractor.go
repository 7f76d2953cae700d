// internal/crawler/extractor.go
package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	json "github.com/json-iterator/go"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pagepilot/internal/config"
)

const productPrompt = `You are a product data extractor. Extract the following fields from the provided text into a JSON object:
- name: Product name
- price: Price (number or string with currency)
- metadata: Any other relevant technical specs or details
If the text does not contain product information, return an empty JSON object {}.`

// Product is one extracted record. The model's output schema is open-ended
// beyond name and price, so the record stays a loose map; the page URL is
// attached before the record is accepted.
type Product map[string]any

// Extractor turns captured page text into product records through an
// OpenAI-compatible chat completion endpoint.
type Extractor struct {
	client   openai.Client
	model    string
	maxChars int
	logger   *zap.Logger

	backoffFactory func() backoff.BackOff
}

// NewExtractor initializes the extractor. An empty BaseURL targets the
// public OpenAI endpoint.
func NewExtractor(cfg config.LLMConfig, logger *zap.Logger) (*Extractor, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("LLM API key is required")
	}

	// Retries are driven by the backoff loop below, not by the SDK.
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Extractor{
		client:   openai.NewClient(opts...),
		model:    cfg.Model,
		maxChars: cfg.MaxContentChars,
		logger:   logger.With(zap.String("component", "crawler_extractor")),
		backoffFactory: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.MaxElapsedTime = 2 * time.Minute
			b.MaxInterval = 30 * time.Second
			return b
		},
	}, nil
}

// Extract asks the model for product data in the page text. It returns
// (nil, nil) when the page carries no product, which is the common case on
// navigation and category pages.
func (e *Extractor) Extract(ctx context.Context, text, pageURL string) (Product, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(e.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(productPrompt),
			openai.UserMessage(truncate(text, e.maxChars)),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}

	var completion *openai.ChatCompletion
	operation := func() error {
		startTime := time.Now()
		var err error
		completion, err = e.client.Chat.Completions.New(ctx, params)
		if err != nil {
			return e.classifyAPIError(err)
		}
		if len(completion.Choices) == 0 {
			return backoff.Permanent(fmt.Errorf("model returned no choices"))
		}
		e.logger.Debug("LLM extraction call complete.",
			zap.Duration("duration", time.Since(startTime)),
			zap.Int64("prompt_tokens", completion.Usage.PromptTokens),
			zap.Int64("completion_tokens", completion.Usage.CompletionTokens),
		)
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(e.backoffFactory(), ctx)); err != nil {
		return nil, err
	}

	var data Product
	if err := json.Unmarshal([]byte(completion.Choices[0].Message.Content), &data); err != nil {
		return nil, fmt.Errorf("model returned malformed JSON: %w", err)
	}
	if !hasValue(data["name"]) && !hasValue(data["price"]) {
		return nil, nil
	}
	data["url"] = pageURL
	return data, nil
}

// classifyAPIError keeps rate-limit and server-side failures retryable and
// turns everything else the API rejects into a permanent failure.
func (e *Extractor) classifyAPIError(err error) error {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		switch apierr.StatusCode {
		case http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusInternalServerError:
			e.logger.Warn("Transient LLM API error, retrying...", zap.Int("status", apierr.StatusCode))
			return err
		default:
			e.logger.Error("LLM API returned error status", zap.Int("status", apierr.StatusCode), zap.Error(err))
			return backoff.Permanent(err)
		}
	}
	e.logger.Warn("Network error during LLM request, retrying...", zap.Error(err))
	return err
}

// truncate caps s at max characters so huge pages stay inside the model's
// context window.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// hasValue mirrors a lenient presence check: nil, empty strings, zero
// numbers, and empty containers all count as missing.
func hasValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case float64:
		return t != 0
	case bool:
		return t
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	}
	return true
}
