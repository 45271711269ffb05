package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/korjavin/topicquizbot/models"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
)

const DefaultGeminiModel = "gemini-1.5-flash"

// GeminiClient generates questions with Google Gemini.
type GeminiClient struct {
	client   *genai.Client
	model    *genai.GenerativeModel
	timeout  time.Duration
	pickKind func() models.Kind
}

// NewGeminiClient connects to the Gemini API.
func NewGeminiClient(ctx context.Context, apiKey, modelName string, timeout time.Duration) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is empty")
	}
	if modelName == "" {
		modelName = DefaultGeminiModel
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(0.7)
	model.SetMaxOutputTokens(1000)
	model.ResponseMIMEType = "application/json"
	model.SystemInstruction = genai.NewUserContent(genai.Text(systemPrompt))

	return &GeminiClient{
		client:   client,
		model:    model,
		timeout:  timeout,
		pickKind: randomKind,
	}, nil
}

// Generate asks Gemini for a question of a random kind on topic.
func (c *GeminiClient) Generate(ctx context.Context, topic string) (models.GeneratedQuestion, error) {
	kind := c.pickKind()
	startTime := time.Now()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.model.GenerateContent(ctx, genai.Text(questionPrompt(topic, kind)))
	if err != nil {
		return models.GeneratedQuestion{}, fmt.Errorf("gemini generate: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return models.GeneratedQuestion{}, fmt.Errorf("gemini returned no content")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	if sb.Len() == 0 {
		return models.GeneratedQuestion{}, fmt.Errorf("gemini returned no text content")
	}

	q, err := parseQuestion(sb.String(), kind, topic)
	if err != nil {
		log.Debug().Str("content", truncate(sb.String(), 300)).Msg("unusable gemini output")
		return models.GeneratedQuestion{}, err
	}

	log.Info().
		Str("topic", topic).
		Str("kind", string(kind)).
		Dur("took", time.Since(startTime)).
		Msg("question generated")
	return q, nil
}

// Close releases the underlying gRPC connection.
func (c *GeminiClient) Close() error {
	return c.client.Close()
}
