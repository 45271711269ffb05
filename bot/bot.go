// Package bot connects the quiz engine to Telegram: it receives updates by
// long polling and routes commands, text replies and button presses.
package bot

import (
	"context"
	"fmt"
	"runtime/debug"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/korjavin/topicquizbot/quiz"
	"github.com/rs/zerolog/log"
)

const (
	cmdStart    = "start"
	cmdQuestion = "question"
	cmdNext     = "next"
	cmdProfile  = "profile"
	cmdHistory  = "history"
	cmdStat     = "stat"
)

// Handler is what the bot routes updates to; *quiz.Engine implements it.
type Handler interface {
	Start(ctx context.Context, from quiz.Sender) error
	RequestQuestion(ctx context.Context, userID int64) error
	Profile(ctx context.Context, from quiz.Sender) error
	History(ctx context.Context, userID int64) error
	Stats(ctx context.Context, userID int64) error
	Help(ctx context.Context, userID int64) error
	SubmitText(ctx context.Context, userID int64, text string) error
	HandleCallback(ctx context.Context, cb quiz.Callback) error
}

// Bot represents the Telegram bot
type Bot struct {
	api     *tgbotapi.BotAPI
	handler Handler
}

// NewAPI connects to the Bot API.
func NewAPI(token string, debug bool) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}
	api.Debug = debug
	log.Info().Str("username", api.Self.UserName).Msg("authorized on Telegram")
	return api, nil
}

// New creates a new bot instance
func New(api *tgbotapi.BotAPI, handler Handler) *Bot {
	return &Bot{api: api, handler: handler}
}

// Run polls for updates and handles them one at a time until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	log.Info().Msg("starting bot polling")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			log.Info().Msg("bot polling stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, update)
		}
	}
}

// handleUpdate dispatches one update. A panic is logged and does not stop
// the loop.
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Interface("panic", r).
				Int("update_id", update.UpdateID).
				Bytes("stack", debug.Stack()).
				Msg("recovered from panic while handling update")
		}
	}()

	var err error
	switch {
	case update.CallbackQuery != nil:
		err = b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		err = b.handleMessage(ctx, update.Message)
	default:
		return
	}
	if err != nil {
		log.Error().Err(err).Int("update_id", update.UpdateID).Msg("error handling update")
	}
}

// handleMessage processes incoming messages
func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) error {
	if message.From == nil || message.Chat == nil || !message.Chat.IsPrivate() {
		return nil
	}
	from := sender(message.From)
	log.Debug().Int64("user_id", from.ID).Str("username", from.Username).Str("text", message.Text).Msg("received message")

	if !message.IsCommand() {
		if message.Text == "" {
			return nil
		}
		return b.handler.SubmitText(ctx, from.ID, message.Text)
	}

	switch message.Command() {
	case cmdStart:
		return b.handler.Start(ctx, from)
	case cmdQuestion, cmdNext:
		return b.handler.RequestQuestion(ctx, from.ID)
	case cmdProfile:
		return b.handler.Profile(ctx, from)
	case cmdHistory:
		return b.handler.History(ctx, from.ID)
	case cmdStat:
		return b.handler.Stats(ctx, from.ID)
	default:
		// /help and anything unknown
		return b.handler.Help(ctx, from.ID)
	}
}

// handleCallback processes callback queries from inline buttons
func (b *Bot) handleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) error {
	if callback.From == nil {
		return nil
	}
	cb := quiz.Callback{
		ID:   callback.ID,
		From: sender(callback.From),
		Data: callback.Data,
	}
	if callback.Message != nil {
		cb.MessageID = callback.Message.MessageID
	}
	log.Debug().Int64("user_id", cb.From.ID).Str("data", cb.Data).Msg("handling callback")
	return b.handler.HandleCallback(ctx, cb)
}

func sender(u *tgbotapi.User) quiz.Sender {
	return quiz.Sender{ID: u.ID, Username: u.UserName, FirstName: u.FirstName}
}
