package storefront

import (
	"fmt"
	"time"

	"barberbook/internal/model"
	"barberbook/internal/slots"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func backRow(step string) []tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", "back:"+step),
		tgbotapi.NewInlineKeyboardButtonData("✖️ Cancel", "cancel"),
	)
}

// servicesKeyboard lists regular services first and plan services under their own header.
func servicesKeyboard(catalog model.Catalog) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(catalog.Services)+2)
	for _, s := range catalog.RegularServices() {
		label := fmt.Sprintf("%s · %.2f · %d min", s.Name, s.Price, s.Duration)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(label, "svc:"+s.ID)))
	}
	if plan := catalog.PlanServices(); len(plan) > 0 {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("— Plan services —", "noop")))
		for _, s := range plan {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("⭐ "+s.Name, "svc:"+s.ID)))
		}
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("✖️ Cancel", "cancel")))
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func barbersKeyboard(barbers []model.Barber) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(barbers)+1)
	for _, b := range barbers {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(b.Name, "barber:"+b.ID)))
	}
	rows = append(rows, backRow("service"))
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// datesKeyboard offers the next days starting at from. Days the barber does not
// work are shown as "·" and cannot be chosen.
func datesKeyboard(from time.Time, days int, barber model.Barber) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, days/4+2)
	var row []tgbotapi.InlineKeyboardButton
	for i := 0; i < days; i++ {
		d := from.AddDate(0, 0, i)
		btn := tgbotapi.NewInlineKeyboardButtonData("·", "noop")
		if barber.WorksOn(d.Weekday()) {
			btn = tgbotapi.NewInlineKeyboardButtonData(d.Format("Mon 02/01"), "date:"+d.Format(model.DateLayout))
		}
		row = append(row, btn)
		if len(row) == 4 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, backRow("barber"))
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// slotsKeyboard renders the slot list in rows of 3. Booked slots stay visible
// but are marked.
func slotsKeyboard(snap slots.Snapshot) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0)
	var current []tgbotapi.InlineKeyboardButton
	for _, s := range snap.Slots {
		text := s.Time
		if s.IsBooked {
			text = "⛔ " + s.Time
		}
		current = append(current, tgbotapi.NewInlineKeyboardButtonData(text, "slot:"+s.Time))
		if len(current) == 3 {
			rows = append(rows, current)
			current = nil
		}
	}
	if len(current) > 0 {
		rows = append(rows, current)
	}
	if snap.State == slots.StateFailed {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🔄 Try again", "refresh")))
	}
	rows = append(rows, backRow("datetime"))
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func confirmKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Confirm", "confirm"),
		),
		backRow("confirm"),
	)
}
