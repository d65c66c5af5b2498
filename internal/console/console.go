// Package console is the operator front end: a line-oriented form over one
// admin booking wizard, with manual mode and report export.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"barberbook/internal/booking"
	"barberbook/internal/export"
	"barberbook/internal/model"
	"barberbook/internal/notify"
	"barberbook/internal/slots"

	"github.com/rs/zerolog"
)

// Reference lists the tenant's reference data.
type Reference interface {
	ListServices(ctx context.Context) ([]model.Service, error)
	ListBarbers(ctx context.Context) ([]model.Barber, error)
}

// Options wires the console to its collaborators. Exporter may be nil.
type Options struct {
	Reference Reference
	Fetcher   slots.Fetcher
	Submitter *booking.Submitter
	Exporter  *export.Exporter
	ExportDir string
	Bus       *notify.Bus
	Location  *time.Location
	Logger    *zerolog.Logger
	Now       func() time.Time
}

// Console drives one admin wizard at a time.
type Console struct {
	opts Options
	out  io.Writer

	outMu   sync.Mutex
	mu      sync.Mutex
	wizard  *booking.Wizard
	catalog model.Catalog
}

// New creates a console writing to out.
func New(opts Options, out io.Writer) *Console {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		nop := zerolog.Nop()
		opts.Logger = &nop
	}
	if opts.ExportDir == "" {
		opts.ExportDir = "."
	}
	c := &Console{opts: opts, out: out}
	c.wizard = c.newWizard()
	if opts.Bus != nil {
		opts.Bus.Subscribe("", c.onNotice)
	}
	return c
}

func (c *Console) newWizard() *booking.Wizard {
	return booking.NewWizard(booking.KindAdmin, c.opts.Fetcher, c.opts.Bus, c.opts.Logger)
}

func (c *Console) current() *booking.Wizard {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wizard
}

func (c *Console) onNotice(n notify.Notice) {
	if n.Source != "" && n.Source != c.current().ID() {
		return
	}
	c.printf("[%s] %s\n", n.Level, n.Message)
}

func (c *Console) printf(format string, args ...any) {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

// LoadCatalog fetches services and barbers.
func (c *Console) LoadCatalog(ctx context.Context) error {
	services, err := c.opts.Reference.ListServices(ctx)
	if err != nil {
		return fmt.Errorf("load services: %w", err)
	}
	barbers, err := c.opts.Reference.ListBarbers(ctx)
	if err != nil {
		return fmt.Errorf("load barbers: %w", err)
	}
	c.mu.Lock()
	c.catalog = model.Catalog{Services: services, Barbers: barbers}
	c.mu.Unlock()
	return nil
}

func (c *Console) snapshotCatalog() model.Catalog {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.catalog
}

// Run reads commands from in until EOF, quit or ctx is done.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	c.printf("barberbook console. Type 'help' for commands.\n> ")
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		quit, err := c.Handle(ctx, scanner.Text())
		if err != nil {
			c.printError(err)
		}
		if quit {
			return nil
		}
		c.printf("> ")
	}
	return scanner.Err()
}

// ErrUnknownCommand is returned for input that is not a command.
var ErrUnknownCommand = errors.New("unknown command, type 'help'")

// Handle executes one command line.
func (c *Console) Handle(ctx context.Context, line string) (quit bool, err error) {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)
	w := c.current()

	switch strings.ToLower(cmd) {
	case "":
		return false, nil
	case "help", "?":
		c.printf("%s", helpText)
	case "quit", "exit":
		w.Cancel()
		return true, nil
	case "reload":
		if err := c.LoadCatalog(ctx); err != nil {
			return false, err
		}
		c.printf("reference data reloaded\n")
	case "services":
		c.printServices()
	case "barbers":
		c.printBarbers()
	case "service":
		s, err := c.findService(arg)
		if err != nil {
			return false, err
		}
		if err := w.SelectService(ctx, s.ID); err != nil {
			return false, err
		}
		c.printf("service: %s\n", s.Name)
	case "barber":
		b, err := c.findBarber(arg)
		if err != nil {
			return false, err
		}
		if err := w.SelectBarber(ctx, b.ID); err != nil {
			return false, err
		}
		c.printf("barber: %s\n", b.Name)
		c.warnDay(b, w.Draft().Base().Date)
		c.printSlots(w.Slots())
	case "date":
		date, err := c.parseDay(arg)
		if err != nil {
			return false, err
		}
		if err := w.SelectDate(ctx, date); err != nil {
			return false, err
		}
		c.printf("date: %s\n", date)
		if b, ok := c.snapshotCatalog().Barber(w.Draft().Base().BarberID); ok {
			c.warnDay(b, date)
		}
		c.printSlots(w.Slots())
	case "slots":
		c.printSlots(w.Slots())
	case "refresh":
		c.printSlots(w.Refresh(ctx))
	case "slot":
		if err := w.SelectSlot(arg); err != nil {
			return false, err
		}
		c.printf("time: %s\n", arg)
	case "manual":
		on, err := parseToggle(arg)
		if err != nil {
			return false, err
		}
		if err := w.SetManualMode(ctx, on); err != nil {
			return false, err
		}
		if on {
			c.printf("manual mode on: set 'time HH:mm' and 'status completed|booked|canceled'\n")
		} else {
			c.printf("manual mode off\n")
			c.printSlots(w.Slots())
		}
	case "time":
		if err := w.SetManualTime(arg); err != nil {
			return false, err
		}
		c.printf("time: %s\n", arg)
	case "status":
		if err := w.SetManualStatus(arg); err != nil {
			return false, err
		}
		c.printf("status: %s\n", strings.ToLower(arg))
	case "customer":
		name, phone, ok := strings.Cut(arg, ",")
		if !ok {
			return false, errors.New("usage: customer <name>, <phone>")
		}
		if err := w.SetCustomer(name, phone); err != nil {
			return false, err
		}
		c.printf("customer: %s (%s)\n", strings.TrimSpace(name), model.DigitsOnly(phone))
	case "show":
		c.printf("%s", booking.FormatConfirmation(w.Draft(), c.snapshotCatalog()))
		if !w.Manual() {
			c.printSlots(w.Slots())
		}
	case "submit":
		bk, err := c.opts.Submitter.Submit(ctx, w)
		if err != nil {
			return false, err
		}
		c.printf("booking %s created\n", bk.ID)
		c.reset()
	case "cancel", "new":
		w.Cancel()
		c.reset()
		c.printf("draft discarded\n")
	case "export":
		return false, c.export(ctx, arg)
	default:
		return false, ErrUnknownCommand
	}
	return false, nil
}

func (c *Console) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.wizard = c.newWizard()
}

func (c *Console) printError(err error) {
	var verrs booking.ValidationErrors
	var rejected *booking.RejectedError
	switch {
	case errors.As(err, &verrs):
		c.printf("cannot submit yet:\n")
		for _, e := range verrs {
			c.printf("  %-15s %s\n", e.Field, e.Message)
		}
	case (errors.As(err, &rejected) || errors.Is(err, booking.ErrTransient)) && c.opts.Bus != nil:
		// Already printed as a notice.
	case errors.Is(err, booking.ErrSlotUnavailable):
		c.printf("that time is not available, pick one from 'slots'\n")
	default:
		c.printf("error: %v\n", err)
	}
}

func (c *Console) printServices() {
	catalog := c.snapshotCatalog()
	if len(catalog.Services) == 0 {
		c.printf("no services loaded, try 'reload'\n")
		return
	}
	for _, s := range catalog.RegularServices() {
		c.printf("  %-12s %-24s %8.2f %4d min\n", s.ID, s.Name, s.Price, s.Duration)
	}
	if plan := catalog.PlanServices(); len(plan) > 0 {
		c.printf("  plan services:\n")
		for _, s := range plan {
			c.printf("  %-12s %-24s %13s %4d min\n", s.ID, s.Name, s.PlanRef, s.Duration)
		}
	}
}

func (c *Console) printBarbers() {
	catalog := c.snapshotCatalog()
	if len(catalog.Barbers) == 0 {
		c.printf("no barbers loaded, try 'reload'\n")
		return
	}
	for _, b := range catalog.Barbers {
		var days []string
		for _, d := range b.Availability {
			days = append(days, fmt.Sprintf("%s %s-%s", d.Day, d.Start, d.End))
		}
		if len(days) == 0 {
			days = []string{"every day"}
		}
		c.printf("  %-12s %-20s %s\n", b.ID, b.Name, strings.Join(days, ", "))
	}
}

func (c *Console) printSlots(snap slots.Snapshot) {
	switch snap.State {
	case slots.StateReady:
		var parts []string
		for _, s := range snap.Slots {
			if s.IsBooked {
				parts = append(parts, s.Time+"(booked)")
			} else {
				parts = append(parts, s.Time)
			}
		}
		c.printf("slots: %s\n", strings.Join(parts, "  "))
	case slots.StateIdle:
	default:
		c.printf("slots: %s\n", snap.State.Hint())
	}
}

func (c *Console) warnDay(b model.Barber, date string) {
	day, err := model.ParseDate(date)
	if err != nil {
		return
	}
	if !b.WorksOn(day.Weekday()) {
		c.printf("note: %s has no availability on %s\n", b.Name, day.Weekday())
	}
}

func (c *Console) findService(arg string) (model.Service, error) {
	catalog := c.snapshotCatalog()
	if s, ok := catalog.Service(arg); ok {
		return s, nil
	}
	for _, s := range catalog.Services {
		if strings.EqualFold(s.Name, arg) {
			return s, nil
		}
	}
	return model.Service{}, fmt.Errorf("unknown service %q, see 'services'", arg)
}

func (c *Console) findBarber(arg string) (model.Barber, error) {
	catalog := c.snapshotCatalog()
	if b, ok := catalog.Barber(arg); ok {
		return b, nil
	}
	for _, b := range catalog.Barbers {
		if strings.EqualFold(b.Name, arg) {
			return b, nil
		}
	}
	return model.Barber{}, fmt.Errorf("unknown barber %q, see 'barbers'", arg)
}

func (c *Console) parseDay(arg string) (string, error) {
	today := c.opts.Now().In(c.opts.Location)
	switch strings.ToLower(arg) {
	case "today":
		return today.Format(model.DateLayout), nil
	case "tomorrow":
		return today.AddDate(0, 0, 1).Format(model.DateLayout), nil
	}
	if _, err := model.ParseDate(arg); err != nil {
		return "", err
	}
	return arg, nil
}

func (c *Console) export(ctx context.Context, arg string) error {
	if c.opts.Exporter == nil {
		return errors.New("export is not configured")
	}
	fields := strings.Fields(arg)
	if len(fields) < 2 {
		return errors.New("usage: export <from yyyy-MM-dd> <to yyyy-MM-dd> [file.xlsx]")
	}
	path := filepath.Join(c.opts.ExportDir, fmt.Sprintf("bookings_%s_%s.xlsx", fields[0], fields[1]))
	if len(fields) > 2 {
		path = fields[2]
	}
	r := export.Range{From: fields[0], To: fields[1]}
	if err := c.opts.Exporter.WriteFile(ctx, path, r, c.snapshotCatalog()); err != nil {
		return err
	}
	c.printf("exported to %s\n", path)
	return nil
}

func parseToggle(arg string) (bool, error) {
	switch strings.ToLower(arg) {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	}
	return false, errors.New("usage: manual on|off")
}

const helpText = `commands:
  services | barbers | reload      list or reload reference data
  service <id|name>                choose the service
  barber <id|name>                 choose the barber (refetches slots)
  date <yyyy-MM-dd|today|tomorrow> choose the day (refetches slots)
  slots | refresh                  show or refetch available times
  slot <HH:mm>                     choose a free time
  manual on|off                    record a booking outside the slot grid
  time <HH:mm>                     manual time
  status completed|booked|canceled manual status
  customer <name>, <phone>         who the booking is for
  show                             review the draft
  submit                           send the booking
  cancel | new                     discard the draft
  export <from> <to> [file]        write journal and bookings to Excel
  quit
`
