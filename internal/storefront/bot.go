// Package storefront is the customer-facing Telegram booking wizard.
package storefront

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"barberbook/internal/booking"
	"barberbook/internal/model"
	"barberbook/internal/notify"
	"barberbook/internal/slots"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type telegramClient interface {
	Send(tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	SelfUser() tgbotapi.User
}

type realTelegramClient struct {
	api *tgbotapi.BotAPI
}

func (c *realTelegramClient) Send(msg tgbotapi.Chattable) (tgbotapi.Message, error) {
	return c.api.Send(msg)
}

func (c *realTelegramClient) Request(msg tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return c.api.Request(msg)
}

func (c *realTelegramClient) GetUpdatesChan(cfg tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return c.api.GetUpdatesChan(cfg)
}

func (c *realTelegramClient) SelfUser() tgbotapi.User {
	return c.api.Self
}

// Reference lists the tenant's reference data.
type Reference interface {
	ListServices(ctx context.Context) ([]model.Service, error)
	ListBarbers(ctx context.Context) ([]model.Barber, error)
}

// Options configures the storefront.
type Options struct {
	Reference      Reference
	Fetcher        slots.Fetcher
	Submitter      *booking.Submitter
	Bus            *notify.Bus
	Location       *time.Location
	CalendarDays   int
	SessionTimeout time.Duration
	Now            func() time.Time
}

// Bot runs one storefront wizard per chat.
type Bot struct {
	tg       telegramClient
	opts     Options
	sessions *booking.SessionStore
	contacts *stateStore
	logger   *zerolog.Logger

	mu      sync.RWMutex
	catalog model.Catalog
}

// New connects to Telegram with token.
func New(token string, debug bool, opts Options, logger *zerolog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	api.Debug = debug
	return newBot(&realTelegramClient{api: api}, opts, logger)
}

// NewWithTelegramClient allows injecting a mocked Telegram client for tests.
func NewWithTelegramClient(tg telegramClient, opts Options, logger *zerolog.Logger) (*Bot, error) {
	return newBot(tg, opts, logger)
}

func newBot(tg telegramClient, opts Options, logger *zerolog.Logger) (*Bot, error) {
	if tg == nil {
		return nil, fmt.Errorf("telegram client is nil")
	}
	if opts.Submitter == nil || opts.Fetcher == nil || opts.Reference == nil {
		return nil, fmt.Errorf("storefront needs a reference source, a slot fetcher and a submitter")
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.CalendarDays <= 0 {
		opts.CalendarDays = 14
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	b := &Bot{
		tg:       tg,
		opts:     opts,
		contacts: newStateStore(),
		logger:   logger,
	}
	b.sessions = booking.NewSessionStore(opts.SessionTimeout, func() *booking.Wizard {
		return booking.NewWizard(booking.KindStorefront, opts.Fetcher, opts.Bus, logger)
	})
	if opts.Bus != nil {
		opts.Bus.Subscribe("", b.onNotice)
	}
	return b, nil
}

// LoadCatalog fetches services and barbers.
func (b *Bot) LoadCatalog(ctx context.Context) error {
	services, err := b.opts.Reference.ListServices(ctx)
	if err != nil {
		return fmt.Errorf("load services: %w", err)
	}
	barbers, err := b.opts.Reference.ListBarbers(ctx)
	if err != nil {
		return fmt.Errorf("load barbers: %w", err)
	}
	b.mu.Lock()
	b.catalog = model.Catalog{Services: services, Barbers: barbers}
	b.mu.Unlock()
	return nil
}

func (b *Bot) snapshotCatalog() model.Catalog {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.catalog
}

// Start begins polling updates until ctx is done.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.tg.GetUpdatesChan(u)
	b.logger.Info().Str("username", b.tg.SelfUser().UserName).Msg("storefront bot authorized")

	cleanup := time.NewTicker(time.Minute)
	defer cleanup.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-cleanup.C:
			if n := b.sessions.Cleanup(); n > 0 {
				b.logger.Debug().Int("removed", n).Msg("expired sessions removed")
			}
		case update, ok := <-updates:
			if !ok {
				return
			}
			requestID := uuid.New().String()
			l := b.logger.With().Str("request_id", requestID).Logger()
			updateCtx := l.WithContext(ctx)
			b.handleUpdate(updateCtx, &update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update *tgbotapi.Update) {
	l := zerolog.Ctx(ctx)
	if update.CallbackQuery != nil {
		l.Debug().
			Int64("user_id", update.CallbackQuery.From.ID).
			Str("data", update.CallbackQuery.Data).
			Msg("Handling callback query")
		b.handleCallback(ctx, update.CallbackQuery)
		return
	}
	if update.Message != nil {
		l.Debug().
			Int64("chat_id", update.Message.Chat.ID).
			Str("text", update.Message.Text).
			Msg("Handling message")
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg == nil || msg.Chat == nil {
		return
	}
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	if strings.HasPrefix(text, "/") {
		switch {
		case strings.HasPrefix(text, "/start"), strings.HasPrefix(text, "/book"):
			b.startFlow(chatID)
		case strings.HasPrefix(text, "/cancel"):
			b.cancel(chatID)
		case strings.HasPrefix(text, "/help"):
			b.reply(chatID, "Use /book to make an appointment and /cancel to stop.")
		default:
			b.reply(chatID, "Unknown command. Use /book to make an appointment.")
		}
		return
	}

	w := b.sessions.Get(chatID)
	st := b.contacts.get(chatID)
	if w == nil || st.Step == contactNone {
		b.reply(chatID, "Use /book to make an appointment.")
		return
	}

	switch st.Step {
	case contactName:
		if text == "" {
			b.reply(chatID, "Please enter your name:")
			return
		}
		b.contacts.set(chatID, contactState{Step: contactPhone, Name: text})
		b.reply(chatID, "Enter your phone number:")
	case contactPhone:
		if len(model.DigitsOnly(text)) < 8 {
			b.reply(chatID, "That does not look like a phone number. Example: (48) 99999-8888")
			return
		}
		if err := w.SetCustomer(st.Name, text); err != nil {
			b.handleError(ctx, chatID, err)
			return
		}
		b.contacts.reset(chatID)
		b.sendConfirm(chatID, w)
	}
}

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if cq == nil || cq.Message == nil || cq.Message.Chat == nil {
		return
	}
	data := cq.Data
	if data == "noop" {
		_ = b.answerCallback(cq.ID, "")
		return
	}
	chatID := cq.Message.Chat.ID

	w := b.sessions.Get(chatID)
	if w == nil || w.Step().Terminal() {
		_ = b.answerCallback(cq.ID, "This booking has ended. Use /book to start again.")
		return
	}

	switch {
	case strings.HasPrefix(data, "svc:"):
		_ = b.answerCallback(cq.ID, "")
		b.handleService(ctx, chatID, w, strings.TrimPrefix(data, "svc:"))
	case strings.HasPrefix(data, "barber:"):
		_ = b.answerCallback(cq.ID, "")
		b.handleBarber(ctx, chatID, w, strings.TrimPrefix(data, "barber:"))
	case strings.HasPrefix(data, "date:"):
		_ = b.answerCallback(cq.ID, "")
		b.handleDate(ctx, chatID, w, strings.TrimPrefix(data, "date:"))
	case strings.HasPrefix(data, "slot:"):
		b.handleSlot(ctx, chatID, cq.ID, w, strings.TrimPrefix(data, "slot:"))
	case data == "refresh":
		_ = b.answerCallback(cq.ID, "")
		w.Refresh(ctx)
		b.sendSlots(chatID, w)
	case strings.HasPrefix(data, "back:"):
		_ = b.answerCallback(cq.ID, "")
		b.handleBack(chatID, w, strings.TrimPrefix(data, "back:"))
	case data == "confirm":
		b.handleConfirm(ctx, chatID, cq.ID, w)
	case data == "cancel":
		_ = b.answerCallback(cq.ID, "")
		b.cancel(chatID)
	default:
		_ = b.answerCallback(cq.ID, "")
	}
}

func (b *Bot) startFlow(chatID int64) {
	b.contacts.reset(chatID)
	b.sessions.Reset(chatID)
	b.sendServices(chatID)
}

func (b *Bot) cancel(chatID int64) {
	b.contacts.reset(chatID)
	if w := b.sessions.Get(chatID); w != nil {
		w.Cancel()
		b.sessions.Delete(chatID)
	}
	b.reply(chatID, booking.StepPrompts[booking.StepCanceled])
}

func (b *Bot) handleService(ctx context.Context, chatID int64, w *booking.Wizard, id string) {
	if _, ok := b.snapshotCatalog().Service(id); !ok {
		b.reply(chatID, "That service is no longer offered.")
		return
	}
	if err := w.SelectService(ctx, id); err != nil {
		b.handleError(ctx, chatID, err)
		return
	}
	b.sendBarbers(chatID)
}

func (b *Bot) handleBarber(ctx context.Context, chatID int64, w *booking.Wizard, id string) {
	if _, ok := b.snapshotCatalog().Barber(id); !ok {
		b.reply(chatID, "That barber is not available.")
		return
	}
	if err := w.SelectBarber(ctx, id); err != nil {
		b.handleError(ctx, chatID, err)
		return
	}
	b.sendDates(chatID, w)
}

func (b *Bot) handleDate(ctx context.Context, chatID int64, w *booking.Wizard, date string) {
	if err := w.SelectDate(ctx, date); err != nil {
		b.handleError(ctx, chatID, err)
		return
	}
	b.sendSlots(chatID, w)
}

func (b *Bot) handleSlot(ctx context.Context, chatID int64, callbackID string, w *booking.Wizard, t string) {
	if err := w.SelectSlot(t); err != nil {
		if errors.Is(err, booking.ErrSlotUnavailable) {
			_ = b.answerCallback(callbackID, "⛔ This time is already taken.")
			return
		}
		_ = b.answerCallback(callbackID, "")
		b.handleError(ctx, chatID, err)
		return
	}
	_ = b.answerCallback(callbackID, "")

	if c := w.Draft().Base().Customer; c.Name != "" && c.Phone != "" {
		b.sendConfirm(chatID, w)
		return
	}
	b.contacts.set(chatID, contactState{Step: contactName})
	b.reply(chatID, fmt.Sprintf("You picked %s. Enter your name:", t))
}

func (b *Bot) handleBack(chatID int64, w *booking.Wizard, from string) {
	b.contacts.reset(chatID)
	if from == "datetime" {
		b.sendDates(chatID, w)
		return
	}
	switch w.Back() {
	case booking.StepService:
		b.sendServices(chatID)
	case booking.StepBarber:
		b.sendBarbers(chatID)
	case booking.StepDateTime:
		b.sendSlots(chatID, w)
	}
}

func (b *Bot) handleConfirm(ctx context.Context, chatID int64, callbackID string, w *booking.Wizard) {
	if w.Submitting() {
		_ = b.answerCallback(callbackID, "Already sending your booking…")
		return
	}
	_ = b.answerCallback(callbackID, "")

	_, err := b.opts.Submitter.Submit(ctx, w)
	if err != nil {
		b.handleError(ctx, chatID, err)
		return
	}
	b.sessions.Delete(chatID)
}

// handleError turns workflow errors into chat messages. Backend refusals and
// transient failures arrive as notices, so only the follow-up is sent here.
func (b *Bot) handleError(ctx context.Context, chatID int64, err error) {
	var verrs booking.ValidationErrors
	var rejected *booking.RejectedError
	switch {
	case errors.As(err, &verrs):
		lines := make([]string, 0, len(verrs)+1)
		lines = append(lines, "Some details are missing:")
		for _, e := range verrs {
			lines = append(lines, "• "+e.Message)
		}
		b.reply(chatID, strings.Join(lines, "\n"))
	case errors.As(err, &rejected):
		if w := b.sessions.Get(chatID); w != nil && rejected.Conflict() {
			w.SlotTaken(ctx)
			b.sendSlots(chatID, w)
		}
	case errors.Is(err, booking.ErrTransient):
	case errors.Is(err, booking.ErrSubmitInFlight):
		b.reply(chatID, "Already sending your booking…")
	case errors.Is(err, booking.ErrStepNotAllowed), errors.Is(err, booking.ErrFinished):
		b.reply(chatID, "That step is not available now. Use /book to start again.")
	default:
		zerolog.Ctx(ctx).Warn().Err(err).Int64("chat_id", chatID).Msg("storefront action failed")
		b.reply(chatID, "Something went wrong. Please try again.")
	}
}

// onNotice forwards workflow notices to the chat that owns the wizard.
func (b *Bot) onNotice(n notify.Notice) {
	chatID, ok := b.sessions.Owner(n.Source)
	if !ok {
		return
	}
	text := n.Message
	switch n.Level {
	case notify.LevelSuccess:
		text = "✅ " + text
	case notify.LevelError:
		text = "⚠️ " + text
	}
	b.reply(chatID, text)
}

func (b *Bot) sendServices(chatID int64) {
	catalog := b.snapshotCatalog()
	if len(catalog.Services) == 0 {
		b.reply(chatID, "No services are available right now.")
		return
	}
	msg := tgbotapi.NewMessage(chatID, booking.StepPrompts[booking.StepService])
	msg.ReplyMarkup = servicesKeyboard(catalog)
	b.send(msg)
}

func (b *Bot) sendBarbers(chatID int64) {
	catalog := b.snapshotCatalog()
	msg := tgbotapi.NewMessage(chatID, booking.StepPrompts[booking.StepBarber])
	msg.ReplyMarkup = barbersKeyboard(catalog.Barbers)
	b.send(msg)
}

func (b *Bot) sendDates(chatID int64, w *booking.Wizard) {
	barber, _ := b.snapshotCatalog().Barber(w.Draft().Base().BarberID)
	today := b.opts.Now().In(b.opts.Location)
	from := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, b.opts.Location)
	msg := tgbotapi.NewMessage(chatID, "Choose a date:")
	msg.ReplyMarkup = datesKeyboard(from, b.opts.CalendarDays, barber)
	b.send(msg)
}

func (b *Bot) sendSlots(chatID int64, w *booking.Wizard) {
	snap := w.Slots()
	text := "Choose a time:"
	if snap.State != slots.StateReady {
		text = snap.State.Hint()
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = slotsKeyboard(snap)
	b.send(msg)
}

func (b *Bot) sendConfirm(chatID int64, w *booking.Wizard) {
	text := booking.FormatConfirmation(w.Draft(), b.snapshotCatalog()) + "\nConfirm?"
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = confirmKeyboard()
	b.send(msg)
}

func (b *Bot) reply(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) send(msg tgbotapi.Chattable) {
	if _, err := b.tg.Send(msg); err != nil {
		b.logger.Warn().Err(err).Msg("telegram send failed")
	}
}

func (b *Bot) answerCallback(id, text string) error {
	_, err := b.tg.Request(tgbotapi.NewCallback(id, text))
	return err
}
