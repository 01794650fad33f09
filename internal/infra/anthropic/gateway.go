package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/jinzhu/copier"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"voice-chat/internal/domain"
)

const (
	DefaultBaseURL    = "https://api.anthropic.com"
	DefaultModel      = "claude-sonnet-4-20250514"
	DefaultMaxTokens  = 512
	DefaultAPIVersion = "2023-06-01"
)

type Options struct {
	BaseURL        string
	APIKey         string
	Model          string
	MaxTokens      int
	APIVersion     string
	ConnectTimeout time.Duration
	Timeout        time.Duration
}

// Gateway talks to the Messages API. It holds no conversation state.
type Gateway struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	model      string
	maxTokens  int
	apiVersion string
	logger     *slog.Logger
}

func NewGateway(opts Options, logger *slog.Logger) *Gateway {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	if opts.APIVersion == "" {
		opts.APIVersion = DefaultAPIVersion
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 30 * time.Second
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: opts.ConnectTimeout}).DialContext

	return &Gateway{
		apiKey: opts.APIKey,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
			Transport: otelhttp.NewTransport(transport,
				otelhttp.WithSpanNameFormatter(func(operationName string, request *http.Request) string {
					return operationName + " " + request.URL.Path
				}),
			),
		},
		baseURL:    strings.TrimSuffix(opts.BaseURL, "/"),
		model:      opts.Model,
		maxTokens:  opts.MaxTokens,
		apiVersion: opts.APIVersion,
		logger:     logger,
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type request struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type response struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Role       string         `json:"role"`
	Content    []contentBlock `json:"content"`
	Model      string         `json:"model"`
	StopReason string         `json:"stop_reason"`
	Usage      *usage         `json:"usage"`
}

// Send posts history plus userText and returns the first text block of the
// reply. Every failure is a *domain.GatewayError.
func (g *Gateway) Send(ctx context.Context, history []domain.Turn, userText string) (string, error) {
	ctx, span := tracer.Start(ctx, "send message")
	defer span.End()
	span.SetAttributes(
		attribute.String("request.model", g.model),
		attribute.Int("request.history_turns", len(history)),
	)

	text, err := g.send(ctx, history, userText)
	outcome := "ok"
	if err != nil {
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	requestCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	return text, err
}

func (g *Gateway) send(ctx context.Context, history []domain.Turn, userText string) (string, error) {
	messages := make([]message, 0, len(history)+1)
	if err := copier.Copy(&messages, history); err != nil {
		return "", &domain.GatewayError{Message: fmt.Sprintf("building messages: %v", err), Err: err}
	}
	messages = append(messages, message{Role: string(domain.RoleUser), Content: userText})

	bodyBytes, err := json.Marshal(request{
		Model:     g.model,
		MaxTokens: g.maxTokens,
		Messages:  messages,
	})
	if err != nil {
		return "", &domain.GatewayError{Message: fmt.Sprintf("marshaling request: %v", err), Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/messages", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", &domain.GatewayError{Message: fmt.Sprintf("creating request: %v", err), Err: err}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", g.apiKey)
	req.Header.Set("anthropic-version", g.apiVersion)

	g.logger.Debug("messages request", "messages", len(messages), "body", string(bodyBytes))

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", &domain.GatewayError{Message: fmt.Sprintf("sending request: %v", err), Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &domain.GatewayError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("reading response: %v", err), Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &domain.GatewayError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("messages API error %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody))),
		}
	}

	g.logger.Debug("messages response", "status", resp.StatusCode, "body", string(respBody))

	var result response
	if err = json.Unmarshal(respBody, &result); err != nil {
		return "", &domain.GatewayError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("decoding response: %v", err), Err: err}
	}

	if len(result.Content) == 0 {
		return "", &domain.GatewayError{StatusCode: resp.StatusCode, Message: domain.ErrEmptyResponse.Error(), Err: domain.ErrEmptyResponse}
	}

	return result.Content[0].Text, nil
}
