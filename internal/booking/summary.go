package booking

import (
	"fmt"
	"strings"

	"barberbook/internal/model"
)

// FormatConfirmation renders the draft for the confirmation screen. Names come
// from the catalog when known, ids otherwise.
func FormatConfirmation(d Draft, catalog model.Catalog) string {
	sel := d.Base()

	service := sel.ServiceID
	price := ""
	if s, ok := catalog.Service(sel.ServiceID); ok {
		service = s.Name
		if s.IsPlanService {
			price = "included in plan"
		} else {
			price = fmt.Sprintf("%.2f", s.Price)
		}
		if s.Duration > 0 {
			service = fmt.Sprintf("%s (%d min)", s.Name, s.Duration)
		}
	}
	barber := sel.BarberID
	if b, ok := catalog.Barber(sel.BarberID); ok {
		barber = b.Name
	}

	date := sel.Date
	if day, err := model.ParseDate(sel.Date); err == nil {
		date = day.Format("Mon, 02 Jan 2006")
	}

	var clock string
	switch v := d.(type) {
	case ScheduledDraft:
		clock = v.Slot
	case ManualDraft:
		clock = v.Time
	}

	var b strings.Builder
	b.WriteString("📋 *Booking details:*\n\n")
	fmt.Fprintf(&b, "✂️ *Service:* %s\n", orDash(service))
	fmt.Fprintf(&b, "💈 *Barber:* %s\n", orDash(barber))
	fmt.Fprintf(&b, "📅 *Date:* %s\n", orDash(date))
	fmt.Fprintf(&b, "⏰ *Time:* %s\n", orDash(clock))
	fmt.Fprintf(&b, "👤 *Customer:* %s %s\n", orDash(sel.Customer.Name), sel.Customer.Phone)
	if price != "" {
		fmt.Fprintf(&b, "💵 *Price:* %s\n", price)
	}
	if m, ok := d.(ManualDraft); ok {
		fmt.Fprintf(&b, "📌 *Status:* %s (manual entry)\n", orDash(string(m.Status)))
	}
	return b.String()
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "—"
	}
	return s
}
