package ai

import (
	"context"

	"github.com/korjavin/topicquizbot/models"
	"github.com/rs/zerolog/log"
)

// DefaultFallbackTopic is used for topics without a built-in question.
const DefaultFallbackTopic = "JavaScript"

var fallbackQuestions = map[string]models.GeneratedQuestion{
	"Node.js Backend": {
		Kind: models.KindSingle,
		Text: "Что такое middleware в Express.js?",
		Options: []string{
			"Функция для работы с базой данных",
			"Функция, которая обрабатывает запросы",
			"Функция для рендеринга шаблонов",
			"Функция для аутентификации",
		},
		CorrectAnswers: []string{"Функция, которая обрабатывает запросы"},
		Explanation:    "Middleware в Express.js - это функция, которая имеет доступ к объекту запроса (req), объекту ответа (res) и следующей функции в цикле запрос-ответ.",
		Topic:          "Node.js Backend",
	},
	"Психология": {
		Kind:           models.KindSingle,
		Text:           "Кто считается отцом психоанализа?",
		Options:        []string{"Карл Юнг", "Зигмунд Фрейд", "Альфред Адлер", "Вильгельм Вундт"},
		CorrectAnswers: []string{"Зигмунд Фрейд"},
		Explanation:    "Зигмунд Фрейд считается отцом психоанализа, так как он разработал основную теорию и методологию этого направления в психологии.",
		Topic:          "Психология",
	},
	"JavaScript": {
		Kind: models.KindSingle,
		Text: "Что такое замыкание (closure) в JavaScript?",
		Options: []string{
			"Способ создания объектов",
			"Функция внутри функции с доступом к внешним переменным",
			"Метод массива",
			"Тип данных",
		},
		CorrectAnswers: []string{"Функция внутри функции с доступом к внешним переменным"},
		Explanation:    "Замыкание - это функция, которая имеет доступ к переменным из внешней области видимости даже после того, как внешняя функция завершила выполнение.",
		Topic:          "JavaScript",
	},
}

// Fallback returns the built-in question for topic, or the JavaScript one.
func Fallback(topic string) models.GeneratedQuestion {
	q, ok := fallbackQuestions[topic]
	if !ok {
		q = fallbackQuestions[DefaultFallbackTopic]
	}
	q.Options = append([]string(nil), q.Options...)
	q.CorrectAnswers = append([]string(nil), q.CorrectAnswers...)
	return q
}

type fallbackGenerator struct {
	next Generator
}

// WithFallback wraps g so that generation never fails: errors and invalid
// output are logged and replaced by Fallback(topic). A nil g always falls back.
func WithFallback(g Generator) Generator {
	return &fallbackGenerator{next: g}
}

func (f *fallbackGenerator) Generate(ctx context.Context, topic string) (models.GeneratedQuestion, error) {
	if f.next == nil {
		return Fallback(topic), nil
	}

	q, err := f.next.Generate(ctx, topic)
	if err == nil {
		err = q.Validate()
	}
	if err != nil {
		log.Warn().Err(err).Str("topic", topic).Msg("using fallback question")
		return Fallback(topic), nil
	}
	return q, nil
}
