package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"photostudio/internal/models"
)

// maxErrorBody limits how much of a failed response is kept for diagnostics
const maxErrorBody = 512

// Endpoints holds the per-operation paths on the external AI service
type Endpoints struct {
	Train    string
	Generate string
	Models   string
	Credits  string
}

// Client talks to the external training/generation service. Calls use a
// fixed timeout and are not retried; failures are surfaced to the caller,
// which offers the user a retry button instead.
type Client struct {
	httpClient *http.Client
	baseURL    string
	secret     string
	endpoints  Endpoints
	logger     *zap.Logger
}

// TrainingRequest starts training a new model from the collected photos
type TrainingRequest struct {
	ModelName  string   `json:"model_name"`
	ModelType  string   `json:"model_type"`
	FileRefs   []string `json:"file_refs"`
	TelegramID int64    `json:"telegram_id"`
}

// GenerationRequest starts image generation against a trained model
type GenerationRequest struct {
	ModelID    int64  `json:"model_id"`
	Prompt     string `json:"prompt"`
	TelegramID int64  `json:"telegram_id"`
	NumImages  int    `json:"num_images"`
}

type generationResponse struct {
	PromptID string `json:"prompt_id"`
}

// NewClient creates a webhook client for the external AI service
func NewClient(baseURL, secret string, endpoints Endpoints, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		secret:     secret,
		endpoints:  endpoints,
		logger:     logger,
	}
}

// StartTraining submits a training batch. Success means the service accepted
// the job; completion arrives later through the notification ingress.
func (c *Client) StartTraining(ctx context.Context, req TrainingRequest) error {
	_, err := c.post(ctx, c.endpoints.Train, req)
	return err
}

// StartGeneration submits a generation request and returns the prompt id the
// service assigned, when it reports one synchronously.
func (c *Client) StartGeneration(ctx context.Context, req GenerationRequest) (string, error) {
	body, err := c.post(ctx, c.endpoints.Generate, req)
	if err != nil {
		return "", err
	}

	var resp generationResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		// Some deployments answer with plain "ok"; the id is optional
		return "", nil
	}
	return resp.PromptID, nil
}

// ListModels fetches the user's trained models from the external service
func (c *Client) ListModels(ctx context.Context, telegramID int64) ([]models.ModelSummary, error) {
	body, err := c.post(ctx, c.endpoints.Models, map[string]int64{"telegram_id": telegramID})
	if err != nil {
		return nil, err
	}

	var summaries []models.ModelSummary
	if err := json.Unmarshal(body, &summaries); err != nil {
		return nil, fmt.Errorf("malformed models response: %w", err)
	}
	return summaries, nil
}

// Credits fetches the user's remaining credit balance
func (c *Client) Credits(ctx context.Context, telegramID int64) (int, error) {
	body, err := c.post(ctx, c.endpoints.Credits, map[string]int64{"telegram_id": telegramID})
	if err != nil {
		return 0, err
	}

	// The service answers either a bare number or {"credits": N}
	var n int
	if err := json.Unmarshal(bytes.TrimSpace(body), &n); err == nil {
		return n, nil
	}
	var wrapped struct {
		Credits int `json:"credits"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return 0, fmt.Errorf("malformed credits response: %w", err)
	}
	return wrapped.Credits, nil
}

func (c *Client) post(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.secret != "" {
		req.Header.Set("X-Webhook-Secret", c.secret)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Webhook call failed", zap.String("url", url), zap.Error(err))
		return nil, fmt.Errorf("webhook %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("webhook %s: reading response: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		truncated := body
		if len(truncated) > maxErrorBody {
			truncated = truncated[:maxErrorBody]
		}
		c.logger.Warn("Webhook returned error status",
			zap.String("url", url),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", truncated),
		)
		return nil, fmt.Errorf("webhook %s: status %d: %s", path, resp.StatusCode, truncated)
	}

	return body, nil
}
