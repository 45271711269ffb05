package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/korjavin/topicquizbot/models"
	"github.com/rs/zerolog/log"
)

const (
	DefaultChatBaseURL = "https://api.deepseek.com/v1"
	DefaultChatModel   = "deepseek-chat"
	DefaultTimeout     = 60 * time.Second
)

// ChatClient talks to an OpenAI-compatible chat completions endpoint
// (DeepSeek, OpenAI, OpenRouter).
type ChatClient struct {
	apiKey   string
	baseURL  string
	model    string
	http     *http.Client
	timeout  time.Duration
	pickKind func() models.Kind
}

// ChatConfig configures a ChatClient. Zero values fall back to DeepSeek defaults.
type ChatConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// NewChatClient creates a new chat completions client
func NewChatClient(cfg ChatConfig) *ChatClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultChatBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultChatModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &ChatClient{
		apiKey:   cfg.APIKey,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		model:    cfg.Model,
		http:     &http.Client{Timeout: cfg.Timeout},
		timeout:  cfg.Timeout,
		pickKind: randomKind,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponseChoice struct {
	Message chatMessage `json:"message"`
}

type chatResponse struct {
	Choices []chatResponseChoice `json:"choices"`
	ID      string               `json:"id,omitempty"`
}

// Generate asks the model for a question of a random kind on topic.
func (c *ChatClient) Generate(ctx context.Context, topic string) (models.GeneratedQuestion, error) {
	startTime := time.Now()
	kind := c.pickKind()
	log.Debug().Str("topic", topic).Str("kind", string(kind)).Msg("generating question")

	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: questionPrompt(topic, kind)},
		},
		Temperature:    0.7,
		MaxTokens:      1000,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	reqJSON, err := json.Marshal(reqBody)
	if err != nil {
		return models.GeneratedQuestion{}, fmt.Errorf("marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(reqJSON))
	if err != nil {
		return models.GeneratedQuestion{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	reqSentTime := time.Now()
	resp, err := c.http.Do(req)
	reqDuration := time.Since(reqSentTime)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return models.GeneratedQuestion{}, fmt.Errorf("llm request timed out after %v: %w", reqDuration, err)
		}
		return models.GeneratedQuestion{}, fmt.Errorf("llm request: %w", err)
	}
	defer resp.Body.Close()

	log.Debug().Dur("took", reqDuration).Int("status", resp.StatusCode).Msg("llm responded")

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.GeneratedQuestion{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return models.GeneratedQuestion{}, fmt.Errorf("llm request failed with status %d: %s", resp.StatusCode, truncate(string(body), 300))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return models.GeneratedQuestion{}, fmt.Errorf("decode response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return models.GeneratedQuestion{}, fmt.Errorf("no choices in llm response")
	}

	content := chatResp.Choices[0].Message.Content
	q, err := parseQuestion(content, kind, topic)
	if err != nil {
		log.Debug().Str("content", truncate(content, 300)).Msg("unusable llm output")
		return models.GeneratedQuestion{}, err
	}

	log.Info().
		Str("topic", topic).
		Str("kind", string(kind)).
		Dur("took", time.Since(startTime)).
		Msg("question generated")
	return q, nil
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
