package storefront

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"barberbook/internal/barberapi"
	"barberbook/internal/booking"
	"barberbook/internal/model"
	"barberbook/internal/notify"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var brt = time.FixedZone("BRT", -3*60*60)

type fakeTelegram struct {
	mu        sync.Mutex
	sent      []tgbotapi.MessageConfig
	callbacks []tgbotapi.CallbackConfig
}

func (f *fakeTelegram) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeTelegram) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cb, ok := c.(tgbotapi.CallbackConfig); ok {
		f.callbacks = append(f.callbacks, cb)
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeTelegram) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return make(chan tgbotapi.Update)
}

func (f *fakeTelegram) SelfUser() tgbotapi.User {
	return tgbotapi.User{UserName: "barber_test_bot"}
}

func (f *fakeTelegram) last() tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return tgbotapi.MessageConfig{}
	}
	return f.sent[len(f.sent)-1]
}

func (f *fakeTelegram) texts() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	parts := make([]string, 0, len(f.sent))
	for _, m := range f.sent {
		parts = append(parts, m.Text)
	}
	return strings.Join(parts, "\n")
}

func (f *fakeTelegram) lastCallbackText() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.callbacks) == 0 {
		return ""
	}
	return f.callbacks[len(f.callbacks)-1].Text
}

type fakeShop struct {
	mu       sync.Mutex
	bookings []barberapi.BookingRequest
	reject   *barberapi.APIError
}

func (f *fakeShop) ListServices(context.Context) ([]model.Service, error) {
	return []model.Service{
		{ID: "haircut", Name: "Haircut", Price: 40, Duration: 30},
		{ID: "club", Name: "Club cut", IsPlanService: true, PlanRef: "gold"},
	}, nil
}

func (f *fakeShop) ListBarbers(context.Context) ([]model.Barber, error) {
	return []model.Barber{{ID: "B1", Name: "Bruno", Availability: []model.WorkingDay{
		{Day: "monday", Start: "09:00", End: "18:00"},
	}}}, nil
}

func (f *fakeShop) FreeSlots(context.Context, string, string, string) ([]model.TimeSlot, error) {
	return []model.TimeSlot{{Time: "10:00"}, {Time: "10:30", IsBooked: true}}, nil
}

func (f *fakeShop) CreateBooking(_ context.Context, req barberapi.BookingRequest) (*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reject != nil {
		return nil, f.reject
	}
	f.bookings = append(f.bookings, req)
	return &model.Booking{ID: "bk-1"}, nil
}

func (f *fakeShop) CreateManualBooking(context.Context, barberapi.ManualBookingRequest) (*model.Booking, error) {
	return nil, nil
}

const chatID int64 = 42

func newTestBot(t *testing.T, shop *fakeShop) (*Bot, *fakeTelegram) {
	t.Helper()
	tg := &fakeTelegram{}
	bus := notify.NewBus()
	b, err := NewWithTelegramClient(tg, Options{
		Reference:    shop,
		Fetcher:      shop,
		Submitter:    booking.NewSubmitter(shop, nil, bus, booking.SubmitterConfig{Location: brt}, nil),
		Bus:          bus,
		Location:     brt,
		CalendarDays: 7,
		Now:          func() time.Time { return time.Date(2025, 3, 9, 15, 0, 0, 0, brt) },
	}, nil)
	require.NoError(t, err)
	require.NoError(t, b.LoadCatalog(context.Background()))
	return b, tg
}

func message(text string) *tgbotapi.Update {
	return &tgbotapi.Update{Message: &tgbotapi.Message{
		Chat: &tgbotapi.Chat{ID: chatID},
		From: &tgbotapi.User{ID: chatID},
		Text: text,
	}}
}

func callback(data string) *tgbotapi.Update {
	return &tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: chatID},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID}},
		Data:    data,
	}}
}

func buttons(msg tgbotapi.MessageConfig) []string {
	kb, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if !ok {
		return nil
	}
	var out []string
	for _, row := range kb.InlineKeyboard {
		for _, btn := range row {
			if btn.CallbackData != nil {
				out = append(out, *btn.CallbackData)
			}
		}
	}
	return out
}

func TestNewWithTelegramClient_RequiresDependencies(t *testing.T) {
	_, err := NewWithTelegramClient(nil, Options{}, nil)
	assert.Error(t, err)

	_, err = NewWithTelegramClient(&fakeTelegram{}, Options{}, nil)
	assert.Error(t, err)
}

func TestBot_FullBooking(t *testing.T) {
	shop := &fakeShop{}
	b, tg := newTestBot(t, shop)
	ctx := context.Background()

	b.handleUpdate(ctx, message("/book"))
	assert.Contains(t, buttons(tg.last()), "svc:haircut")
	assert.Contains(t, buttons(tg.last()), "svc:club")

	b.handleUpdate(ctx, callback("svc:haircut"))
	assert.Contains(t, buttons(tg.last()), "barber:B1")

	b.handleUpdate(ctx, callback("barber:B1"))
	dates := buttons(tg.last())
	assert.Contains(t, dates, "date:2025-03-10")
	assert.NotContains(t, dates, "date:2025-03-11")

	b.handleUpdate(ctx, callback("date:2025-03-10"))
	assert.Equal(t, "Choose a time:", tg.last().Text)
	assert.Contains(t, buttons(tg.last()), "slot:10:30")

	b.handleUpdate(ctx, callback("slot:10:30"))
	assert.Contains(t, tg.lastCallbackText(), "already taken")

	b.handleUpdate(ctx, callback("slot:10:00"))
	assert.Contains(t, tg.last().Text, "Enter your name")

	b.handleUpdate(ctx, message("Joe"))
	b.handleUpdate(ctx, message("123"))
	assert.Contains(t, tg.last().Text, "does not look like a phone number")

	b.handleUpdate(ctx, message("(48) 99999-8888"))
	assert.Equal(t, tgbotapi.ModeMarkdown, tg.last().ParseMode)
	assert.Contains(t, tg.last().Text, "Haircut")
	assert.Contains(t, buttons(tg.last()), "confirm")

	b.handleUpdate(ctx, callback("confirm"))
	assert.Contains(t, tg.last().Text, "✅ Booking confirmed.")

	require.Len(t, shop.bookings, 1)
	assert.Equal(t, "2025-03-10T13:00:00.000Z", shop.bookings[0].Time)
	assert.Equal(t, "48999998888", shop.bookings[0].Customer.Phone)
	assert.Nil(t, b.sessions.Get(chatID))
}

func TestBot_ConflictReturnsToSlots(t *testing.T) {
	shop := &fakeShop{reject: &barberapi.APIError{StatusCode: 409, Message: "Horário já reservado"}}
	b, tg := newTestBot(t, shop)
	ctx := context.Background()

	for _, u := range []*tgbotapi.Update{
		message("/start"),
		callback("svc:haircut"),
		callback("barber:B1"),
		callback("date:2025-03-10"),
		callback("slot:10:00"),
		message("Joe"),
		message("48999998888"),
		callback("confirm"),
	} {
		b.handleUpdate(ctx, u)
	}

	assert.Contains(t, tg.texts(), "⚠️ Horário já reservado")
	assert.Equal(t, "Choose a time:", tg.last().Text)

	w := b.sessions.Get(chatID)
	require.NotNil(t, w)
	assert.Equal(t, booking.StepDateTime, w.Step())
	assert.Equal(t, "Joe", w.Draft().Base().Customer.Name)
	assert.Empty(t, w.Draft().(booking.ScheduledDraft).Slot)
}

func TestBot_BackAndCancel(t *testing.T) {
	b, tg := newTestBot(t, &fakeShop{})
	ctx := context.Background()

	b.handleUpdate(ctx, message("/book"))
	b.handleUpdate(ctx, callback("svc:haircut"))
	b.handleUpdate(ctx, callback("back:service"))
	assert.Contains(t, buttons(tg.last()), "svc:haircut")
	assert.Equal(t, booking.StepService, b.sessions.Get(chatID).Step())

	b.handleUpdate(ctx, callback("cancel"))
	assert.Equal(t, booking.StepPrompts[booking.StepCanceled], tg.last().Text)
	assert.Nil(t, b.sessions.Get(chatID))

	b.handleUpdate(ctx, callback("svc:haircut"))
	assert.Contains(t, tg.lastCallbackText(), "/book")
}

func TestBot_TextWithoutSession(t *testing.T) {
	b, tg := newTestBot(t, &fakeShop{})
	b.handleUpdate(context.Background(), message("hello"))
	assert.Contains(t, tg.last().Text, "/book")
}
