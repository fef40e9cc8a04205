package ollama

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/avelasquez/talent-inbound/internal/core/ports"
	"github.com/avelasquez/talent-inbound/internal/infrastructure/resilience"
)

// Client speaks the Ollama generate API and implements
// ports.ModelInvoker. One client serves both tiers; the model id picks
// the weight class per call. Invocations run under a breaker per model
// so a wedged accurate model does not block fast-tier steps.
type Client struct {
	baseURL    string
	httpClient *http.Client
	exec       *resilience.Executor
	logger     *slog.Logger
}

func New(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		exec:       resilience.NewExecutor(resilience.ModelCallPolicy(), logger),
		logger:     logger,
	}
}

func (c *Client) Invoke(ctx context.Context, modelID string, tier ports.ModelTier, prompt string) (string, error) {
	reqBody := map[string]any{
		"model":  modelID,
		"prompt": prompt,
		"format": "json",
		"stream": false,
	}

	var response struct {
		Response string `json:"response"`
	}
	start := time.Now()
	err := c.exec.Do(ctx, "ollama/"+modelID, classifyModelError, func(ctx context.Context) error {
		return c.postJSON(ctx, "/api/generate", reqBody, &response, "generate")
	})
	if err != nil {
		return "", wrapTemporaryIfNeeded("ollama.invoke", err)
	}

	c.logger.Debug("model_invoked",
		"model", modelID,
		"tier", string(tier),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return strings.TrimSpace(response.Response), nil
}
