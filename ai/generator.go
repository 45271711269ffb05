// Package ai generates quiz questions with an LLM.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"

	"github.com/korjavin/topicquizbot/models"
)

// Generator produces a new question on a topic.
type Generator interface {
	Generate(ctx context.Context, topic string) (models.GeneratedQuestion, error)
}

// randomKind picks the answer format of the next question.
func randomKind() models.Kind {
	return models.Kinds[rand.Intn(len(models.Kinds))]
}

const systemPrompt = "Ты - эксперт в создании образовательных вопросов. " +
	"Создавай вопросы, которые проверяют теоретические знания. " +
	"Отвечай только в формате JSON без дополнительных комментариев."

func questionPrompt(topic string, kind models.Kind) string {
	base := fmt.Sprintf("Создай вопрос по теме %q среднего уровня сложности. ", topic)

	switch kind {
	case models.KindMulti:
		return base + `
Вопрос должен быть в формате JSON:
{
  "question": "текст вопроса",
  "options": ["вариант1", "вариант2", "вариант3", "вариант4"],
  "correctAnswer": ["правильный1", "правильный2"],
  "explanation": "объяснение, почему эти ответы правильные"
}

Убедись, что 2-3 варианта ответа являются правильными и совпадают с вариантами дословно.`
	case models.KindText:
		return base + `
Вопрос должен быть в формате JSON:
{
  "question": "текст вопроса",
  "correctAnswer": "точный ответ",
  "explanation": "объяснение, почему этот ответ правильный"
}

Ответ должен быть коротким и однозначным (1-3 слова).`
	default:
		return base + `
Вопрос должен быть в формате JSON:
{
  "question": "текст вопроса",
  "options": ["вариант1", "вариант2", "вариант3", "вариант4"],
  "correctAnswer": "правильный вариант ответа",
  "explanation": "объяснение, почему этот ответ правильный"
}

Убедись, что только один вариант ответа является правильным и совпадает с ним дословно.`
	}
}

type rawQuestion struct {
	Question      string          `json:"question"`
	Options       []string        `json:"options"`
	CorrectAnswer json.RawMessage `json:"correctAnswer"`
	Explanation   string          `json:"explanation"`
}

// parseQuestion decodes the model's JSON reply. The model sometimes wraps it
// in a markdown fence or returns a list where a string was asked for.
func parseQuestion(content string, kind models.Kind, topic string) (models.GeneratedQuestion, error) {
	content = stripFence(content)

	var raw rawQuestion
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return models.GeneratedQuestion{}, fmt.Errorf("decode question json: %w", err)
	}

	var correct []string
	var single string
	if err := json.Unmarshal(raw.CorrectAnswer, &single); err == nil {
		correct = []string{single}
	} else if err := json.Unmarshal(raw.CorrectAnswer, &correct); err != nil {
		return models.GeneratedQuestion{}, fmt.Errorf("decode correctAnswer: %w", err)
	}

	q := models.GeneratedQuestion{
		Kind:           kind,
		Text:           strings.TrimSpace(raw.Question),
		CorrectAnswers: trimAll(correct),
		Explanation:    strings.TrimSpace(raw.Explanation),
		Topic:          topic,
	}
	if kind != models.KindText {
		q.Options = trimAll(raw.Options)
	}
	return q, q.Validate()
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func trimAll(list []string) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
