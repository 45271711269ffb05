// Package quiz drives the conversation with a user: profile setup, sending
// questions, collecting and grading answers, explanations and history.
package quiz

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/korjavin/topicquizbot/ai"
	"github.com/korjavin/topicquizbot/models"
	"github.com/korjavin/topicquizbot/session"
	"github.com/rs/zerolog/log"
)

// Store is the persistence the engine needs.
type Store interface {
	GetUser(ctx context.Context, telegramID int64) (*models.User, error)
	CreateUser(ctx context.Context, u *models.User) error
	UpdateUser(ctx context.Context, u *models.User) error

	CreateQuestion(ctx context.Context, q *models.Question) error
	GetQuestion(ctx context.Context, id int64) (*models.Question, error)

	CreateAnswer(ctx context.Context, a *models.Answer) error
	RecentAnswers(ctx context.Context, userID int64, limit int) ([]models.Answer, error)
	GetUserStats(ctx context.Context, userID int64) (correct int, incorrect int, err error)
}

// Tracker schedules sent messages for deletion.
type Tracker interface {
	TrackAfter(ctx context.Context, userID int64, questionID *int64, messageIDs []int, d time.Duration) (*models.MessageChain, error)
}

// Options tune the engine.
type Options struct {
	// Retention is how long a question can be answered. Default 30 days.
	Retention time.Duration
	// PromptTTL is how long a question prompt stays in the chat. Default 24h.
	PromptTTL time.Duration
	// ReplyTTL is how long verdicts stay in the chat; zero uses the tracker default.
	ReplyTTL time.Duration
	// Location is used to print dates. Default time.Local.
	Location *time.Location
}

// Engine implements the quiz protocol. Handlers reply to the user themselves;
// a returned error means a dependency failed and the user was told to retry.
type Engine struct {
	store     Store
	sessions  session.Store
	generator ai.Generator
	tracker   Tracker
	transport Transport
	opts      Options
	now       func() time.Time
}

func NewEngine(store Store, sessions session.Store, generator ai.Generator, tracker Tracker, transport Transport, opts Options) *Engine {
	if opts.Retention <= 0 {
		opts.Retention = 30 * 24 * time.Hour
	}
	if opts.PromptTTL <= 0 {
		opts.PromptTTL = 24 * time.Hour
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Engine{
		store:     store,
		sessions:  sessions,
		generator: ai.WithFallback(generator),
		tracker:   tracker,
		transport: transport,
		opts:      opts,
		now:       time.Now,
	}
}

// Start registers a new user and offers topic selection, or greets a returning one.
func (e *Engine) Start(ctx context.Context, from Sender) error {
	u, err := e.store.GetUser(ctx, from.ID)
	switch {
	case errors.Is(err, models.ErrUserNotFound):
		now := e.now()
		u = &models.User{
			TelegramID: from.ID,
			Username:   from.Username,
			FirstName:  from.FirstName,
			Frequency:  models.FrequencyDaily,
			IsActive:   true,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := e.store.CreateUser(ctx, u); err != nil {
			return e.fail(ctx, from.ID, err)
		}
		log.Info().Int64("user_id", from.ID).Str("username", from.Username).Msg("new user registered")
		return e.reply(ctx, from.ID, Message{Text: textChooseTopic, Keyboard: topicKeyboard(false)})
	case err != nil:
		return e.fail(ctx, from.ID, err)
	}

	if u.Topic == "" {
		return e.reply(ctx, from.ID, Message{Text: textChooseTopic, Keyboard: topicKeyboard(false)})
	}
	log.Info().Int64("user_id", from.ID).Msg("existing user returned")
	return e.reply(ctx, from.ID, welcomeBackMessage(u))
}

// SelectTopic stores the chosen topic and asks for a frequency.
func (e *Engine) SelectTopic(ctx context.Context, userID int64, topicIndex int) error {
	if topicIndex < 0 || topicIndex >= len(Topics) {
		return fmt.Errorf("%w: topic %d", models.ErrBadCallback, topicIndex)
	}
	u, ok, err := e.user(ctx, userID)
	if !ok {
		return err
	}

	u.Topic = Topics[topicIndex]
	u.UpdatedAt = e.now()
	if err := e.store.UpdateUser(ctx, u); err != nil {
		return e.fail(ctx, userID, err)
	}
	log.Info().Int64("user_id", userID).Str("topic", u.Topic).Msg("topic selected")
	return e.reply(ctx, userID, Message{Text: textChooseFrequency, Keyboard: frequencyKeyboard(false)})
}

// SelectFrequency stores how often the user wants questions. Disabled turns
// scheduled questions off.
func (e *Engine) SelectFrequency(ctx context.Context, userID int64, f models.Frequency) error {
	if !f.Valid() {
		return fmt.Errorf("%w: frequency %q", models.ErrBadCallback, f)
	}
	u, ok, err := e.user(ctx, userID)
	if !ok {
		return err
	}

	u.Frequency = f
	u.IsActive = f != models.FrequencyDisabled
	u.UpdatedAt = e.now()
	if err := e.store.UpdateUser(ctx, u); err != nil {
		return e.fail(ctx, userID, err)
	}
	log.Info().Int64("user_id", userID).Str("frequency", string(f)).Bool("active", u.IsActive).Msg("frequency selected")
	return e.reply(ctx, userID, Message{Text: textSetupDone})
}

// Profile shows the user's settings. Unknown users go through Start.
func (e *Engine) Profile(ctx context.Context, from Sender) error {
	u, err := e.store.GetUser(ctx, from.ID)
	if errors.Is(err, models.ErrUserNotFound) {
		return e.Start(ctx, from)
	}
	if err != nil {
		return e.fail(ctx, from.ID, err)
	}
	return e.reply(ctx, from.ID, profileMessage(u))
}

// EditTopic offers the topic list with a way back to the profile.
func (e *Engine) EditTopic(ctx context.Context, userID int64) error {
	u, ok, err := e.user(ctx, userID)
	if !ok {
		return err
	}
	return e.reply(ctx, userID, editTopicMessage(u))
}

// EditFrequency offers the frequency list with a way back to the profile.
func (e *Engine) EditFrequency(ctx context.Context, userID int64) error {
	u, ok, err := e.user(ctx, userID)
	if !ok {
		return err
	}
	return e.reply(ctx, userID, editFrequencyMessage(u))
}

// RequestQuestion sends a fresh question on demand.
func (e *Engine) RequestQuestion(ctx context.Context, userID int64) error {
	u, err := e.store.GetUser(ctx, userID)
	if errors.Is(err, models.ErrUserNotFound) || (err == nil && u.Topic == "") {
		log.Warn().Int64("user_id", userID).Msg("question requested before profile setup")
		return e.reply(ctx, userID, Message{Text: textNoProfile})
	}
	if err != nil {
		return e.fail(ctx, userID, err)
	}

	if _, err := e.Push(ctx, u); err != nil {
		_ = e.reply(ctx, userID, Message{Text: textGenerationError})
		return err
	}
	return nil
}

// Push generates, stores and sends a question to u. It is the send path
// shared by on-demand requests and scheduled fan-out; it does not reply on
// failure.
func (e *Engine) Push(ctx context.Context, u *models.User) (*models.Question, error) {
	if u.Topic == "" {
		return nil, models.ErrNoTopic
	}

	log.Info().Int64("user_id", u.TelegramID).Str("topic", u.Topic).Msg("generating question")
	g, err := e.generator.Generate(ctx, u.Topic)
	if err != nil {
		return nil, fmt.Errorf("generate question: %w", err)
	}
	if g.Topic == "" {
		g.Topic = u.Topic
	}

	q := models.NewQuestion(u.TelegramID, g, e.now(), e.opts.Retention)
	if err := e.store.CreateQuestion(ctx, q); err != nil {
		return nil, err
	}

	messageID, err := e.transport.Send(ctx, u.TelegramID, questionMessage(q, nil))
	if err != nil {
		return nil, fmt.Errorf("send question %d: %w", q.ID, err)
	}
	e.track(ctx, u.TelegramID, q.ID, messageID, e.opts.PromptTTL)

	// a new question replaces whatever was in progress
	if q.Kind == models.KindText {
		err = e.sessions.Set(ctx, u.TelegramID, session.State{OpenQuestionID: q.ID})
	} else {
		err = e.sessions.Clear(ctx, u.TelegramID)
	}
	if err != nil {
		// the question is already in the chat; only free-text grading is lost
		log.Error().Err(err).Int64("user_id", u.TelegramID).Int64("question_id", q.ID).Msg("could not update session")
	}

	log.Info().Int64("user_id", u.TelegramID).Int64("question_id", q.ID).Str("kind", string(q.Kind)).Msg("question sent")
	return q, nil
}

// SubmitSingle grades a single-choice answer.
func (e *Engine) SubmitSingle(ctx context.Context, cb Callback, questionID int64, optionIndex int) error {
	userID := cb.From.ID
	q, ok, err := e.question(ctx, userID, questionID)
	if !ok {
		return err
	}

	if q.Kind != models.KindSingle {
		log.Warn().Int64("user_id", userID).Int64("question_id", q.ID).Str("kind", string(q.Kind)).Msg("single answer for other kind")
		return nil
	}

	choice, err := q.Option(optionIndex)
	if err != nil {
		log.Warn().Err(err).Int64("user_id", userID).Int64("question_id", q.ID).Msg("option out of range")
		return e.reply(ctx, userID, Message{Text: escapeMarkdown(noticeBadOption)})
	}
	return e.finalize(ctx, userID, q, []string{choice})
}

// ToggleMulti flips one option of a multi-choice question and redraws the
// keyboard with the current selection.
func (e *Engine) ToggleMulti(ctx context.Context, cb Callback, questionID int64, optionIndex int) error {
	userID := cb.From.ID
	q, ok, err := e.question(ctx, userID, questionID)
	if !ok {
		return err
	}
	if q.Kind != models.KindMulti {
		log.Warn().Int64("user_id", userID).Int64("question_id", q.ID).Str("kind", string(q.Kind)).Msg("toggle on non multi-choice question")
		return nil
	}
	if _, err := q.Option(optionIndex); err != nil {
		log.Warn().Err(err).Int64("user_id", userID).Int64("question_id", q.ID).Msg("option out of range")
		return nil
	}

	state, err := e.sessions.Get(ctx, userID)
	if err != nil {
		return e.fail(ctx, userID, err)
	}
	state.Toggle(q.ID, optionIndex)
	if err := e.sessions.Set(ctx, userID, state); err != nil {
		return e.fail(ctx, userID, err)
	}

	if cb.MessageID != 0 {
		if err := e.transport.Edit(ctx, userID, cb.MessageID, questionMessage(q, state.IsSelected)); err != nil {
			// selection is kept; the keyboard just lags behind
			log.Warn().Err(err).Int64("user_id", userID).Int("message_id", cb.MessageID).Msg("could not redraw options")
		}
	}
	return nil
}

// SubmitMulti grades the accumulated multi-choice selection. A zero
// questionID means the question being selected.
func (e *Engine) SubmitMulti(ctx context.Context, cb Callback, questionID int64) error {
	userID := cb.From.ID
	state, err := e.sessions.Get(ctx, userID)
	if err != nil {
		return e.fail(ctx, userID, err)
	}
	if questionID == 0 {
		questionID = state.SelectionQuestionID
	}

	q, ok, err := e.question(ctx, userID, questionID)
	if !ok {
		return err
	}
	if q.Kind != models.KindMulti {
		log.Warn().Int64("user_id", userID).Int64("question_id", q.ID).Str("kind", string(q.Kind)).Msg("submit on non multi-choice question")
		return nil
	}

	var values []string
	for _, i := range state.SelectionFor(q.ID) {
		if opt, err := q.Option(i); err == nil {
			values = append(values, opt)
		}
	}
	return e.finalize(ctx, userID, q, values)
}

// SubmitText grades a free-text reply to the open question. Text arriving
// while no free-text question is open is ignored.
func (e *Engine) SubmitText(ctx context.Context, userID int64, text string) error {
	state, err := e.sessions.Get(ctx, userID)
	if err != nil {
		return e.fail(ctx, userID, err)
	}
	if state.OpenQuestionID == 0 {
		return nil
	}

	q, ok, err := e.question(ctx, userID, state.OpenQuestionID)
	if !ok {
		return err
	}
	if q.Kind != models.KindText {
		return nil
	}
	return e.finalize(ctx, userID, q, []string{text})
}

// Explain sends the explanation of questionID, or of the open question when
// questionID is zero (the free-text one first, then the one being selected).
// It never modifies anything.
func (e *Engine) Explain(ctx context.Context, userID int64, questionID int64) error {
	if questionID == 0 {
		state, err := e.sessions.Get(ctx, userID)
		if err != nil {
			return e.fail(ctx, userID, err)
		}
		questionID = state.OpenQuestionID
		if questionID == 0 {
			questionID = state.SelectionQuestionID
		}
	}

	q, ok, err := e.question(ctx, userID, questionID)
	if !ok {
		return err
	}
	log.Info().Int64("user_id", userID).Int64("question_id", q.ID).Msg("explanation requested")
	return e.reply(ctx, userID, explanationMessage(q))
}

// History lists the user's latest answers.
func (e *Engine) History(ctx context.Context, userID int64) error {
	answers, err := e.store.RecentAnswers(ctx, userID, historyLimit)
	if err != nil {
		return e.fail(ctx, userID, err)
	}
	log.Info().Int64("user_id", userID).Int("answers", len(answers)).Msg("history requested")
	return e.reply(ctx, userID, historyMessage(answers, e.opts.Location))
}

// Stats shows answer counts and accuracy.
func (e *Engine) Stats(ctx context.Context, userID int64) error {
	correct, incorrect, err := e.store.GetUserStats(ctx, userID)
	if err != nil {
		return e.fail(ctx, userID, err)
	}
	return e.reply(ctx, userID, statsMessage(correct, incorrect))
}

// HandleCallback acknowledges a button press and routes it.
func (e *Engine) HandleCallback(ctx context.Context, cb Callback) error {
	userID := cb.From.ID

	tok, err := ParseCallback(cb.Data)
	if err != nil {
		log.Warn().Err(err).Int64("user_id", userID).Msg("bad callback")
		e.ack(ctx, cb, noticeBadCallback)
		return nil
	}
	// always acknowledge first so the client stops spinning
	e.ack(ctx, cb, "")

	switch tok.Verb {
	case VerbAnswer:
		return e.SubmitSingle(ctx, cb, tok.QuestionID, tok.Index)
	case VerbToggle:
		return e.ToggleMulti(ctx, cb, tok.QuestionID, tok.Index)
	case VerbSubmit:
		return e.SubmitMulti(ctx, cb, tok.QuestionID)
	case VerbExplain:
		return e.Explain(ctx, userID, tok.QuestionID)
	case VerbTopic:
		return e.SelectTopic(ctx, userID, tok.Index)
	case VerbFrequency:
		return e.SelectFrequency(ctx, userID, models.Frequency(tok.Arg))
	case VerbProfile:
		switch tok.Arg {
		case ProfileTopic:
			return e.EditTopic(ctx, userID)
		case ProfileFrequency:
			return e.EditFrequency(ctx, userID)
		default:
			return e.Profile(ctx, cb.From)
		}
	}
	return nil
}

// finalize records the answer, sends the verdict and drops q from the session.
func (e *Engine) finalize(ctx context.Context, userID int64, q *models.Question, values []string) error {
	if values == nil {
		values = []string{}
	}
	a := &models.Answer{
		UserID:     userID,
		QuestionID: q.ID,
		Values:     values,
		IsCorrect:  Score(q, values),
		CreatedAt:  e.now(),
	}
	if err := e.store.CreateAnswer(ctx, a); err != nil {
		return e.fail(ctx, userID, err)
	}
	log.Info().Int64("user_id", userID).Int64("question_id", q.ID).Bool("correct", a.IsCorrect).Msg("answer recorded")

	e.forget(ctx, userID, q.ID)

	messageID, err := e.transport.Send(ctx, userID, verdictMessage(q, a.IsCorrect))
	if err != nil {
		return fmt.Errorf("send verdict: %w", err)
	}
	e.track(ctx, userID, q.ID, messageID, e.opts.ReplyTTL)
	return nil
}

// question loads id owned by userID. ok is false when the caller should
// stop; err is set only for dependency failures.
func (e *Engine) question(ctx context.Context, userID, id int64) (*models.Question, bool, error) {
	if id == 0 {
		return nil, false, e.reply(ctx, userID, Message{Text: textNotFound})
	}
	q, err := e.store.GetQuestion(ctx, id)
	if errors.Is(err, models.ErrQuestionNotFound) {
		log.Warn().Int64("user_id", userID).Int64("question_id", id).Msg("question not found")
		return nil, false, e.reply(ctx, userID, Message{Text: textNotFound})
	}
	if err != nil {
		return nil, false, e.fail(ctx, userID, err)
	}
	if q.UserID != userID {
		log.Warn().Int64("user_id", userID).Int64("question_id", id).Int64("owner_id", q.UserID).Msg("question of another user")
		return nil, false, e.reply(ctx, userID, Message{Text: textNotFound})
	}
	return q, true, nil
}

// forget closes whatever the session holds for questionID. The answer is
// already recorded, so failures are only logged.
func (e *Engine) forget(ctx context.Context, userID, questionID int64) {
	state, err := e.sessions.Get(ctx, userID)
	if err == nil {
		state.Forget(questionID)
		err = e.sessions.Set(ctx, userID, state)
	}
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Int64("question_id", questionID).Msg("could not update session")
	}
}

func (e *Engine) user(ctx context.Context, userID int64) (*models.User, bool, error) {
	u, err := e.store.GetUser(ctx, userID)
	if errors.Is(err, models.ErrUserNotFound) {
		return nil, false, e.reply(ctx, userID, Message{Text: textNoProfile})
	}
	if err != nil {
		return nil, false, e.fail(ctx, userID, err)
	}
	return u, true, nil
}

func (e *Engine) track(ctx context.Context, userID, questionID int64, messageID int, ttl time.Duration) {
	if _, err := e.tracker.TrackAfter(ctx, userID, &questionID, []int{messageID}, ttl); err != nil {
		log.Warn().Err(err).Int64("user_id", userID).Int("message_id", messageID).Msg("could not schedule message cleanup")
	}
}

func (e *Engine) reply(ctx context.Context, chatID int64, msg Message) error {
	if _, err := e.transport.Send(ctx, chatID, msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// fail tells the user something went wrong and returns err for logging.
func (e *Engine) fail(ctx context.Context, chatID int64, err error) error {
	if _, sendErr := e.transport.Send(ctx, chatID, Message{Text: textGenericError}); sendErr != nil {
		log.Error().Err(sendErr).Int64("user_id", chatID).Msg("could not report error to user")
	}
	return err
}

func (e *Engine) ack(ctx context.Context, cb Callback, text string) {
	if err := e.transport.AnswerCallback(ctx, cb.ID, text); err != nil {
		log.Debug().Err(err).Str("callback_id", cb.ID).Msg("could not answer callback")
	}
}

// Help lists the commands.
func (e *Engine) Help(ctx context.Context, userID int64) error {
	return e.reply(ctx, userID, Message{Text: Help})
}
