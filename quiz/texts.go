package quiz

import (
	"fmt"
	"strings"
	"time"

	"github.com/korjavin/topicquizbot/models"
)

// Topics are the learning topics users can choose from.
var Topics = []string{
	"Node.js Backend",
	"Психология",
	"Слесарные работы",
	"JavaScript",
	"Python",
	"Математика",
	"Физика",
	"Химия",
	"Биология",
	"История",
	"Литература",
	"Экономика",
	"Маркетинг",
	"Дизайн",
	"Другое",
}

var frequencyLabels = map[models.Frequency]string{
	models.FrequencyDaily:      "Раз в день",
	models.FrequencyEvery2Days: "Раз в 2 дня",
	models.FrequencyEvery4Days: "Раз в 4 дня",
	models.FrequencyWeekly:     "Раз в неделю",
	models.FrequencyDisabled:   "Отключить",
}

// FrequencyLabel returns the user-facing name of f.
func FrequencyLabel(f models.Frequency) string {
	if l, ok := frequencyLabels[f]; ok {
		return l
	}
	return string(f)
}

const (
	historyLimit    = 10
	maxMessageRunes = 4000
)

const (
	textGenericError    = "Произошла ошибка\\. Попробуйте позже\\."
	textGenerationError = "Произошла ошибка при генерации вопроса\\. Попробуйте позже\\."
	textNotFound        = "Вопрос не найден\\."
	textNoProfile       = "❌ *Сначала настройте профиль*\n\nИспользуйте /start для начала работы с ботом\\."
	textCorrect         = "✅ *Правильно\\!*\n\nОтличный ответ\\!"
	textChooseTopic     = "🎯 *Выберите вашу сферу деятельности:*\n\nЭто поможет мне подбирать для вас релевантные вопросы\\."
	textChooseFrequency = "⏰ *Как часто вы хотите получать вопросы?*\n\nВы можете изменить это в любой момент в профиле\\."
	textSetupDone       = "✅ *Настройка завершена\\!*\n\nТеперь вы готовы к обучению\\!\n\n" +
		"🔸 /question \\- получить вопрос сейчас\n" +
		"🔸 /profile \\- изменить настройки\n" +
		"🔸 /history \\- посмотреть историю ответов"
	textNoHistory = "📝 *У вас пока нет ответов*\n\nИспользуйте /question чтобы получить первый вопрос\\!"

	// Help lists the bot commands.
	Help = "🤖 *Команды бота*\n\n" +
		"/start \\- регистрация и выбор сферы\n" +
		"/question \\- получить вопрос сейчас\n" +
		"/profile \\- изменить настройки\n" +
		"/history \\- последние ответы\n" +
		"/stat \\- статистика\n" +
		"/help \\- эта справка"

	// Callback notices are plain text.
	noticeBadCallback = "Эта кнопка больше не работает."
	noticeBadOption   = "Такого варианта нет."
)

const (
	buttonExplain   = "💡 Показать объяснение"
	buttonSubmit    = "✅ Готово"
	buttonTopic     = "🎯 Изменить сферу"
	buttonFrequency = "⏰ Изменить частоту"
	buttonBack      = "⬅️ Назад"
	selectedMark    = "✅ "
)

// escapeMarkdown escapes special characters for Telegram's MarkdownV2 format.
var escapeMarkdown = strings.NewReplacer(
	// _*[]()~`>#+-=|{}.! and the backslash itself
	"\\", "\\\\",
	"_", "\\_", "*", "\\*", "[", "\\[", "]", "\\]", "(", "\\(", ")", "\\)",
	"~", "\\~", "`", "\\`", ">", "\\>", "#", "\\#", "+", "\\+", "-", "\\-",
	"=", "\\=", "|", "\\|", "{", "\\{", "}", "\\}", ".", "\\.", "!", "\\!",
).Replace

func questionMessage(q *models.Question, selected func(int) bool) Message {
	text := "❓ *Вопрос:*\n\n" + escapeMarkdown(q.Text)

	var kb Keyboard
	switch q.Kind {
	case models.KindSingle:
		for i, opt := range q.Options {
			kb = append(kb, row(Button{Text: opt, Data: answerToken(q.ID, i)}))
		}
	case models.KindMulti:
		for i, opt := range q.Options {
			label := opt
			if selected != nil && selected(i) {
				label = selectedMark + opt
			}
			kb = append(kb, row(Button{Text: label, Data: toggleToken(q.ID, i)}))
		}
		kb = append(kb, row(Button{Text: buttonSubmit, Data: submitToken(q.ID)}))
	case models.KindText:
		text += "\n\n💬 *Напишите ваш ответ текстом:*"
	}
	kb = append(kb, explainRow(q.ID))
	return Message{Text: text, Keyboard: kb}
}

func explainRow(qid int64) []Button {
	return row(Button{Text: buttonExplain, Data: explainToken(qid)})
}

func verdictMessage(q *models.Question, correct bool) Message {
	msg := Message{Text: textCorrect, Keyboard: Keyboard{explainRow(q.ID)}}
	if correct {
		return msg
	}
	if q.Kind == models.KindMulti {
		msg.Text = "❌ *Неправильно*\n\nПравильные ответы: " + escapeMarkdown(strings.Join(q.CorrectAnswers, ", "))
	} else {
		msg.Text = "❌ *Неправильно*\n\nПравильный ответ: " + escapeMarkdown(strings.Join(q.CorrectAnswers, ", "))
	}
	return msg
}

func explanationMessage(q *models.Question) Message {
	return Message{Text: "💡 *Объяснение:*\n\n" + escapeMarkdown(q.Explanation)}
}

func topicKeyboard(withBack bool) Keyboard {
	kb := make(Keyboard, 0, len(Topics)+1)
	for i, t := range Topics {
		kb = append(kb, row(Button{Text: t, Data: topicToken(i)}))
	}
	if withBack {
		kb = append(kb, row(Button{Text: buttonBack, Data: profileToken(ProfileBack)}))
	}
	return kb
}

func frequencyKeyboard(withBack bool) Keyboard {
	kb := make(Keyboard, 0, len(models.Frequencies)+1)
	for _, f := range models.Frequencies {
		kb = append(kb, row(Button{Text: FrequencyLabel(f), Data: frequencyToken(f)}))
	}
	if withBack {
		kb = append(kb, row(Button{Text: buttonBack, Data: profileToken(ProfileBack)}))
	}
	return kb
}

func topicOrUnset(u *models.User) string {
	if u.Topic == "" {
		return "Не указана"
	}
	return escapeMarkdown(u.Topic)
}

func welcomeBackMessage(u *models.User) Message {
	return Message{Text: fmt.Sprintf("👋 С возвращением, %s\\!\n\nВаш профиль уже настроен\\. Используйте /profile для изменений\\.",
		escapeMarkdown(u.FirstName))}
}

func profileMessage(u *models.User) Message {
	status := "❌ Отключены"
	if u.IsActive {
		status = "✅ Включены"
	}
	text := "👤 *Ваш профиль*\n\n" +
		"🎯 *Сфера:* " + topicOrUnset(u) + "\n" +
		"⏰ *Частота вопросов:* " + escapeMarkdown(FrequencyLabel(u.Frequency)) + "\n" +
		"📬 *Автоматические вопросы:* " + status + "\n\n" +
		"*Изменить настройки:*"
	return Message{
		Text: text,
		Keyboard: Keyboard{row(
			Button{Text: buttonTopic, Data: profileToken(ProfileTopic)},
			Button{Text: buttonFrequency, Data: profileToken(ProfileFrequency)},
		)},
	}
}

func editTopicMessage(u *models.User) Message {
	return Message{
		Text:     "🎯 *Текущая сфера:* " + topicOrUnset(u) + "\n\n*Выберите новую сферу деятельности:*",
		Keyboard: topicKeyboard(true),
	}
}

func editFrequencyMessage(u *models.User) Message {
	return Message{
		Text:     "⏰ *Текущая частота:* " + escapeMarkdown(FrequencyLabel(u.Frequency)) + "\n\n*Выберите новую частоту вопросов:*",
		Keyboard: frequencyKeyboard(true),
	}
}

func statsMessage(correct, incorrect int) Message {
	total := correct + incorrect
	var accuracy float64
	if total > 0 {
		accuracy = float64(correct) / float64(total) * 100
	}
	text := fmt.Sprintf("📊 *Ваша статистика*\n\n"+
		"Всего ответов: %d\n"+
		"Правильных: %d ✅\n"+
		"Неправильных: %d ❌\n"+
		"Точность: %s%%",
		total, correct, incorrect, escapeMarkdown(fmt.Sprintf("%.1f", accuracy)))
	return Message{Text: text}
}

// historyMessage renders answers newest first. Entries that would push the
// message past Telegram's limit are dropped.
func historyMessage(answers []models.Answer, loc *time.Location) Message {
	if len(answers) == 0 {
		return Message{Text: textNoHistory}
	}

	var b strings.Builder
	b.WriteString("📝 *Ваша история ответов:*\n\n")
	size := len([]rune(b.String()))

	for _, a := range answers {
		entry := historyEntry(a, loc)
		n := len([]rune(entry))
		if size+n > maxMessageRunes {
			b.WriteString("\\.\\.\\.")
			break
		}
		b.WriteString(entry)
		size += n
	}
	return Message{Text: b.String()}
}

func historyEntry(a models.Answer, loc *time.Location) string {
	mark := "❌"
	if a.IsCorrect {
		mark = "✅"
	}
	question, correct := "вопрос удалён", "?"
	if a.Question != nil {
		question = a.Question.Text
		correct = strings.Join(a.Question.CorrectAnswers, ", ")
	}
	return fmt.Sprintf("%s *%s*\n📋 %s\n💬 Ваш ответ: %s\n✅ Правильный ответ: %s\n\n",
		mark,
		escapeMarkdown(a.CreatedAt.In(loc).Format("02.01.2006")),
		escapeMarkdown(question),
		escapeMarkdown(strings.Join(a.Values, ", ")),
		escapeMarkdown(correct),
	)
}
