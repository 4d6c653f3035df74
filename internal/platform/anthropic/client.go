package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"strings"
	"time"

	pkgerrors "github.com/pressroomhq/pressroom-backend/internal/pkg/errors"
	"github.com/pressroomhq/pressroom-backend/internal/platform/envutil"
	"github.com/pressroomhq/pressroom-backend/internal/platform/logger"
)

const apiVersion = "2023-06-01"

// Client is the Anthropic API client used by the rest of the backend.
type Client interface {
	// GenerateText sends a single-turn prompt to the default model.
	GenerateText(ctx context.Context, system string, user string) (string, error)
	// GenerateTextFast uses the cheaper model configured for triage work
	// such as relevance filtering and query generation.
	GenerateTextFast(ctx context.Context, system string, user string) (string, error)
	// Configured reports whether an API key is present.
	Configured() bool
}

type client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	model      string
	fastModel  string
	maxTokens  int
	maxRetries int
	httpClient *http.Client
}

// NewClient never fails on a missing key; calls made without one return
// ErrNotConfigured so the caller can decide between failing and degrading.
func NewClient(log *logger.Logger) Client {
	baseURL := strings.TrimRight(envutil.GetEnv("ANTHROPIC_BASE_URL", "https://api.anthropic.com", log), "/")
	model := envutil.GetEnv("ANTHROPIC_MODEL", "claude-sonnet-4-5", log)
	fastModel := envutil.GetEnv("ANTHROPIC_FAST_MODEL", "claude-haiku-4-5", log)
	maxTokens := envutil.GetEnvAsInt("ANTHROPIC_MAX_TOKENS", 4096, log)
	timeout := envutil.GetEnvAsInt("ANTHROPIC_TIMEOUT_SECONDS", 120, log)
	maxRetries := envutil.GetEnvAsInt("ANTHROPIC_MAX_RETRIES", 2, log)

	return &client{
		log:        log.With("client", "anthropic"),
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY")),
		model:      model,
		fastModel:  fastModel,
		maxTokens:  maxTokens,
		maxRetries: maxRetries,
		httpClient: &http.Client{Timeout: time.Duration(timeout) * time.Second},
	}
}

func (c *client) Configured() bool { return c.apiKey != "" }

func (c *client) GenerateText(ctx context.Context, system, user string) (string, error) {
	return c.complete(ctx, c.model, system, user)
}

func (c *client) GenerateTextFast(ctx context.Context, system, user string) (string, error) {
	return c.complete(ctx, c.fastModel, system, user)
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
	System    string    `json:"system,omitempty"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *client) complete(ctx context.Context, model, system, user string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("anthropic: %w: ANTHROPIC_API_KEY is not set", pkgerrors.ErrNotConfigured)
	}

	payload, err := json.Marshal(messagesRequest{
		Model:     model,
		MaxTokens: c.maxTokens,
		System:    system,
		Messages:  []message{{Role: "user", Content: user}},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic: marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		text, retryable, err := c.doOnce(ctx, payload)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !retryable {
			return "", err
		}
		c.log.Warn("anthropic request failed, retrying", "attempt", attempt+1, "error", err.Error())
	}
	return "", lastErr
}

func (c *client) doOnce(ctx context.Context, payload []byte) (string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return "", false, fmt.Errorf("anthropic: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", true, fmt.Errorf("anthropic: request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", true, fmt.Errorf("anthropic: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		msg := strings.TrimSpace(string(body))
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
		}
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return "", retryable, fmt.Errorf("anthropic: status %d: %s", resp.StatusCode, msg)
	}

	var parsed messagesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", false, fmt.Errorf("anthropic: parse response: %w", err)
	}
	var out strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}
	if out.Len() == 0 {
		return "", false, fmt.Errorf("anthropic: empty completion (stop_reason=%s)", parsed.StopReason)
	}
	return out.String(), false, nil
}
