// Package reconcile drives the end-of-day closing workflow: load the day,
// count cash and card, review variances, submit under a staff PIN and print
// the report.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"lengolf-closing/internal/closing"
	"lengolf-closing/internal/printer"
	"lengolf-closing/internal/receipt"
	"lengolf-closing/internal/variance"

	"github.com/sirupsen/logrus"
)

var (
	ErrBusy            = errors.New("another action is still running")
	ErrPrintInProgress = errors.New("the report is already printing")
	ErrNotOpen         = errors.New("closing workflow is not open")
	ErrNotAllowed      = errors.New("action not available at this step")
	ErrNoPrinter       = errors.New("no printer configured")
)

// Backend is the closing API as seen from a terminal. *closing.Client
// implements it.
type Backend interface {
	Existing(ctx context.Context, date string) (*closing.Reconciliation, error)
	Summary(ctx context.Context, date string) (*closing.ClosingSummary, error)
	Submit(ctx context.Context, req closing.SubmitRequest) (*closing.Reconciliation, error)
	PrintData(ctx context.Context, id uint) (*closing.PrintData, error)
}

// Printer delivers an encoded report. *printer.Orchestrator implements it.
type Printer interface {
	Deliver(ctx context.Context, payload []byte) (*printer.Job, error)
}

type Options struct {
	Backend Backend
	// Printer may be nil on terminals without a receipt printer.
	Printer Printer
	// AutoPrint prints right after a successful submit.
	AutoPrint bool
	Now       func() time.Time
	Logger    logrus.FieldLogger
	// OnChange is called with every intermediate state, e.g. when printing
	// starts, so a view can redraw before Dispatch returns.
	OnChange func(State)
}

type Session struct {
	backend   Backend
	printer   Printer
	autoPrint bool
	now       func() time.Time
	logger    logrus.FieldLogger
	onChange  func(State)

	busy  sync.Mutex
	mu    sync.RWMutex
	state State
}

func NewSession(opts Options) *Session {
	s := &Session{
		backend:   opts.Backend,
		printer:   opts.Printer,
		autoPrint: opts.AutoPrint,
		now:       opts.Now,
		logger:    opts.Logger,
		onChange:  opts.OnChange,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = logrus.StandardLogger()
	}
	return s
}

// State returns the current snapshot.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) update(fn func(st *State)) State {
	s.mu.Lock()
	fn(&s.state)
	st := s.state
	s.mu.Unlock()
	if s.onChange != nil {
		s.onChange(st)
	}
	return st
}

// Dispatch applies one command. Only one command runs at a time; a second
// caller gets ErrBusy (or ErrPrintInProgress while a print is running)
// without touching the state. The returned error is also kept in State.Err
// or State.Print.Err.
func (s *Session) Dispatch(ctx context.Context, cmd Command) (State, error) {
	if !s.busy.TryLock() {
		if _, ok := cmd.(PrintCmd); ok && s.State().Print.Status == PrintPrinting {
			return s.State(), ErrPrintInProgress
		}
		return s.State(), ErrBusy
	}
	defer s.busy.Unlock()

	s.logger.WithFields(logrus.Fields{"command": cmd.name(), "step": s.State().Step.String()}).Debug("closing command")

	var err error
	switch c := cmd.(type) {
	case OpenCmd:
		err = s.open(ctx, c.Date)
	case ChangeDateCmd:
		err = s.changeDate(ctx, c.Date)
	case AdvanceCmd:
		err = s.advance()
	case BackCmd:
		err = s.back()
	case SetFieldCmd:
		err = s.setField(c.Field, c.Value)
	case SubmitCmd:
		err = s.submit(ctx, c.PIN)
	case PrintCmd:
		err = s.print(ctx)
	case CloseCmd:
		s.update(func(st *State) { *st = State{} })
	default:
		err = fmt.Errorf("unknown command %T", cmd)
	}
	return s.State(), err
}

func (s *Session) Open(ctx context.Context, date string) (State, error) {
	return s.Dispatch(ctx, OpenCmd{Date: date})
}

func (s *Session) Advance(ctx context.Context) (State, error) {
	return s.Dispatch(ctx, AdvanceCmd{})
}

func (s *Session) Back(ctx context.Context) (State, error) {
	return s.Dispatch(ctx, BackCmd{})
}

func (s *Session) ChangeDate(ctx context.Context, date string) (State, error) {
	return s.Dispatch(ctx, ChangeDateCmd{Date: date})
}

func (s *Session) SetField(ctx context.Context, f Field, value string) (State, error) {
	return s.Dispatch(ctx, SetFieldCmd{Field: f, Value: value})
}

func (s *Session) Submit(ctx context.Context, pin string) (State, error) {
	return s.Dispatch(ctx, SubmitCmd{PIN: pin})
}

func (s *Session) Print(ctx context.Context) (State, error) {
	return s.Dispatch(ctx, PrintCmd{})
}

func (s *Session) Close(ctx context.Context) (State, error) {
	return s.Dispatch(ctx, CloseCmd{})
}

// fail records err inline and returns it.
func (s *Session) fail(err error) error {
	s.update(func(st *State) { st.Err = err })
	return err
}

func (s *Session) open(ctx context.Context, date string) error {
	date = strings.TrimSpace(date)
	if date == "" {
		date = s.now().Format(closing.DateLayout)
	}
	if _, err := time.Parse(closing.DateLayout, date); err != nil {
		return s.fail(&closing.ValidationError{Field: "date", Message: "must be YYYY-MM-DD"})
	}
	s.update(func(st *State) {
		*st = State{Open: true, Step: StepSummary, Draft: Draft{Date: date}}
	})
	return s.load(ctx, date)
}

// load runs the lock check and, when the date is still open, fetches the
// summary. The lock check always goes first.
func (s *Session) load(ctx context.Context, date string) error {
	existing, err := s.backend.Existing(ctx, date)
	if err != nil {
		return s.fail(err)
	}
	if existing != nil {
		s.update(func(st *State) {
			st.Step = StepLocked
			st.Existing = existing
		})
		s.logger.WithFields(logrus.Fields{"closing_date": date, "reconciliation_id": existing.ID}).Info("date already closed")
		return nil
	}

	summary, err := s.backend.Summary(ctx, date)
	if err != nil {
		return s.fail(err)
	}
	s.update(func(st *State) { st.Summary = summary })
	return nil
}

func (s *Session) changeDate(ctx context.Context, date string) error {
	st := s.State()
	if !st.CanChangeDate() {
		return nil
	}
	date = strings.TrimSpace(date)
	if _, err := time.Parse(closing.DateLayout, date); err != nil {
		return s.fail(&closing.ValidationError{Field: "date", Message: "must be YYYY-MM-DD"})
	}
	s.update(func(st *State) {
		*st = State{Open: true, Step: StepSummary, Draft: Draft{Date: date}}
	})
	return s.load(ctx, date)
}

func (s *Session) advance() error {
	st := s.State()
	if !st.Open {
		return ErrNotOpen
	}

	var next Step
	switch st.Step {
	case StepSummary:
		if st.Summary == nil {
			return s.fail(&closing.ValidationError{Field: "summary", Message: "day summary is not loaded"})
		}
		next = StepCash
	case StepCash:
		if strings.TrimSpace(st.Draft.ActualCash) == "" {
			return s.fail(&closing.ValidationError{Field: string(FieldActualCash), Message: "enter the counted cash"})
		}
		next = StepCredit
	case StepCredit:
		if strings.TrimSpace(st.Draft.ActualCreditCard) == "" {
			return s.fail(&closing.ValidationError{Field: string(FieldActualCreditCard), Message: "enter the card terminal total"})
		}
		next = StepReview
	case StepReview:
		if st.HasVariance() && strings.TrimSpace(st.Draft.VarianceNotes) == "" {
			return s.fail(&closing.ValidationError{Field: string(FieldVarianceNotes), Message: "explain the variance"})
		}
		next = StepPinGate
	default:
		// PinGate only moves on through Submit; Complete and Locked are final.
		return ErrNotAllowed
	}

	s.update(func(st *State) {
		st.Step = next
		st.Err = nil
	})
	return nil
}

func (s *Session) back() error {
	st := s.State()
	if !st.Open {
		return ErrNotOpen
	}
	prev, ok := st.Step.previous()
	if !ok {
		return nil
	}
	s.update(func(st *State) {
		st.Step = prev
		st.Err = nil
	})
	return nil
}

func (s *Session) setField(f Field, value string) error {
	st := s.State()
	if !st.Open {
		return ErrNotOpen
	}
	step, ok := f.step()
	if !ok {
		return fmt.Errorf("unknown field %q", f)
	}
	if st.Step != step {
		return ErrNotAllowed
	}

	if f == FieldActualCash || f == FieldActualCreditCard {
		amount, err := variance.Parse(value)
		if err != nil {
			return s.fail(&closing.ValidationError{Field: string(f), Message: "not a number"})
		}
		if amount.IsNegative() {
			return s.fail(&closing.ValidationError{Field: string(f), Message: "must not be negative"})
		}
	}

	s.update(func(st *State) {
		switch f {
		case FieldActualCash:
			st.Draft.ActualCash = value
		case FieldActualCreditCard:
			st.Draft.ActualCreditCard = value
		case FieldBatchReference:
			st.Draft.BatchReference = value
		case FieldVarianceNotes:
			st.Draft.VarianceNotes = value
		}
		st.Err = nil
	})
	return nil
}

func (s *Session) submit(ctx context.Context, pin string) error {
	st := s.State()
	if !st.Open {
		return ErrNotOpen
	}
	if st.Step != StepPinGate {
		return ErrNotAllowed
	}
	if strings.TrimSpace(pin) == "" {
		return s.fail(&closing.ValidationError{Field: "staff_pin", Message: "enter your PIN"})
	}

	cash, err := variance.Parse(st.Draft.ActualCash)
	if err != nil {
		return s.fail(&closing.ValidationError{Field: string(FieldActualCash), Message: "not a number"})
	}
	card, err := variance.Parse(st.Draft.ActualCreditCard)
	if err != nil {
		return s.fail(&closing.ValidationError{Field: string(FieldActualCreditCard), Message: "not a number"})
	}

	rec, err := s.backend.Submit(ctx, closing.SubmitRequest{
		Date:                     st.Draft.Date,
		ActualCash:               &cash,
		ActualCreditCard:         &card,
		CreditCardBatchReference: strings.TrimSpace(st.Draft.BatchReference),
		VarianceNotes:            strings.TrimSpace(st.Draft.VarianceNotes),
		StaffPIN:                 strings.TrimSpace(pin),
	})
	if err != nil {
		s.logger.WithError(err).WithField("closing_date", st.Draft.Date).Warn("closing submit failed")
		return s.fail(err)
	}

	s.update(func(st *State) {
		st.Step = StepComplete
		st.Existing = rec
		st.Draft = Draft{Date: st.Draft.Date}
		st.Err = nil
	})
	s.logger.WithFields(logrus.Fields{"closing_date": rec.ClosingDate, "reconciliation_id": rec.ID}).Info("day closed")

	if s.autoPrint && s.printer != nil {
		// The close is saved; a print failure stays in State.Print.
		_ = s.print(ctx)
	}
	return nil
}

func (s *Session) print(ctx context.Context) error {
	st := s.State()
	if !st.Open {
		return ErrNotOpen
	}
	if st.Print.Status == PrintPrinting {
		return ErrPrintInProgress
	}
	if !st.CanPrint() {
		return ErrNotAllowed
	}
	if s.printer == nil {
		return ErrNoPrinter
	}

	s.update(func(st *State) { st.Print = PrintState{Status: PrintPrinting} })

	job, err := s.render(ctx, st.Existing.ID)
	if err != nil {
		s.update(func(st *State) { st.Print = PrintState{Status: PrintFailed, Job: job, Err: err} })
		return err
	}
	s.update(func(st *State) { st.Print = PrintState{Status: PrintDone, Job: job} })
	return nil
}

// render fetches, encodes and delivers the report. An encode failure never
// reaches the printer.
func (s *Session) render(ctx context.Context, id uint) (*printer.Job, error) {
	data, err := s.backend.PrintData(ctx, id)
	if err != nil {
		return nil, err
	}
	payload, err := receipt.Encode(receipt.FromPrintData(*data, s.now()))
	if err != nil {
		s.logger.WithError(err).WithField("reconciliation_id", id).Error("closing report could not be encoded")
		return nil, err
	}
	return s.printer.Deliver(ctx, payload)
}
