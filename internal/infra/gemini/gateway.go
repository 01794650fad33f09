package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"voice-chat/internal/domain"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-2.0-flash"
)

// Gateway is an alternate message gateway backed by generateContent.
type Gateway struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	model      string
	maxTokens  int
	logger     *slog.Logger
}

func NewGateway(apiKey, model string, maxTokens int, logger *slog.Logger) *Gateway {
	return NewGatewayWithURL(apiKey, model, maxTokens, DefaultBaseURL, logger)
}

func NewGatewayWithURL(apiKey, model string, maxTokens int, baseURL string, logger *slog.Logger) *Gateway {
	if model == "" {
		model = DefaultModel
	}
	if maxTokens <= 0 {
		maxTokens = 512
	}
	return &Gateway{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout:   60 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		model:     model,
		maxTokens: maxTokens,
		logger:    logger,
	}
}

type content struct {
	Parts []part `json:"parts"`
	Role  string `json:"role,omitempty"`
}

type part struct {
	Text string `json:"text"`
}

type request struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generationConfig struct {
	MaxOutputTokens int `json:"maxOutputTokens"`
}

type response struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error,omitempty"`
}

func toContents(history []domain.Turn, userText string) []content {
	contents := make([]content, 0, len(history)+1)
	for _, turn := range history {
		role := "user"
		if turn.Role == domain.RoleAssistant {
			role = "model"
		}
		contents = append(contents, content{Role: role, Parts: []part{{Text: turn.Content}}})
	}
	return append(contents, content{Role: "user", Parts: []part{{Text: userText}}})
}

func (g *Gateway) Send(ctx context.Context, history []domain.Turn, userText string) (string, error) {
	bodyBytes, err := json.Marshal(request{
		Contents:         toContents(history, userText),
		GenerationConfig: generationConfig{MaxOutputTokens: g.maxTokens},
	})
	if err != nil {
		return "", &domain.GatewayError{Message: fmt.Sprintf("marshaling request: %v", err), Err: err}
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, g.model, url.QueryEscape(g.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", &domain.GatewayError{Message: fmt.Sprintf("creating request: %v", err), Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		// the request URL carries the key; report the cause only
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return "", &domain.GatewayError{Message: fmt.Sprintf("sending request: %v", err), Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &domain.GatewayError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("reading response: %v", err), Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return "", &domain.GatewayError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("gemini API error %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody))),
		}
	}

	g.logger.Debug("gemini response", "status", resp.StatusCode, "body", string(respBody))

	var result response
	if err = json.Unmarshal(respBody, &result); err != nil {
		return "", &domain.GatewayError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("decoding response: %v", err), Err: err}
	}

	if result.Error != nil {
		return "", &domain.GatewayError{
			StatusCode: result.Error.Code,
			Message:    fmt.Sprintf("gemini error %d: %s", result.Error.Code, result.Error.Message),
		}
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", &domain.GatewayError{StatusCode: resp.StatusCode, Message: domain.ErrEmptyResponse.Error(), Err: domain.ErrEmptyResponse}
	}

	return result.Candidates[0].Content.Parts[0].Text, nil
}
