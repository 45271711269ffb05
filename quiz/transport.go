package quiz

import "context"

// Button is one inline keyboard button carrying a callback token.
type Button struct {
	Text string
	Data string
}

// Keyboard is a list of button rows.
type Keyboard [][]Button

// Message is an outgoing chat message. Text is MarkdownV2.
type Message struct {
	Text     string
	Keyboard Keyboard
}

// Transport is the part of the chat API the engine needs.
type Transport interface {
	Send(ctx context.Context, chatID int64, msg Message) (int, error)
	Edit(ctx context.Context, chatID int64, messageID int, msg Message) error
	Delete(ctx context.Context, chatID int64, messageID int) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
}

// Sender identifies the user behind an update. In a private chat the chat
// id equals the user id.
type Sender struct {
	ID        int64
	Username  string
	FirstName string
}

// Callback is an inline button press.
type Callback struct {
	ID        string
	From      Sender
	MessageID int
	Data      string
}

func row(buttons ...Button) []Button {
	return buttons
}
