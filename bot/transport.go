package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/korjavin/topicquizbot/quiz"
	"github.com/rs/zerolog/log"
)

// Transport sends, edits and deletes messages through the Bot API.
type Transport struct {
	api *tgbotapi.BotAPI
}

func NewTransport(api *tgbotapi.BotAPI) *Transport {
	return &Transport{api: api}
}

// Send sends a MarkdownV2 message, retrying as plain text if Telegram
// rejects the markup.
func (t *Transport) Send(ctx context.Context, chatID int64, msg quiz.Message) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m := tgbotapi.NewMessage(chatID, msg.Text)
	m.ParseMode = tgbotapi.ModeMarkdownV2
	if len(msg.Keyboard) > 0 {
		m.ReplyMarkup = markup(msg.Keyboard)
	}

	sent, err := t.api.Send(m)
	if err == nil {
		return sent.MessageID, nil
	}
	log.Warn().Err(err).Int64("chat_id", chatID).Msg("markdown rendering failed, falling back to plain text")

	m.Text = plainText(msg.Text)
	m.ParseMode = ""
	sent, err = t.api.Send(m)
	if err != nil {
		return 0, fmt.Errorf("send message to %d: %w", chatID, err)
	}
	return sent.MessageID, nil
}

// Edit replaces the text and keyboard of a sent message.
func (t *Transport) Edit(ctx context.Context, chatID int64, messageID int, msg quiz.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, msg.Text, markup(msg.Keyboard))
	edit.ParseMode = tgbotapi.ModeMarkdownV2
	if _, err := t.api.Request(edit); err != nil {
		if strings.Contains(err.Error(), "message is not modified") {
			return nil
		}
		return fmt.Errorf("edit message %d: %w", messageID, err)
	}
	return nil
}

// Delete removes a message. Telegram refuses for messages older than 48h
// and for chats the bot can no longer access.
func (t *Transport) Delete(ctx context.Context, chatID int64, messageID int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := t.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		return fmt.Errorf("delete message %d: %w", messageID, err)
	}
	return nil
}

// AnswerCallback acknowledges a button press, optionally with a toast.
func (t *Transport) AnswerCallback(ctx context.Context, callbackID, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := t.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		return fmt.Errorf("answer callback: %w", err)
	}
	return nil
}

func markup(kb quiz.Keyboard) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb))
	for _, r := range kb {
		row := make([]tgbotapi.InlineKeyboardButton, 0, len(r))
		for _, b := range r {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// plainText undoes MarkdownV2 escaping and drops bold markers.
func plainText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	escaped := false
	for _, r := range s {
		switch {
		case escaped:
			b.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == '*':
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
