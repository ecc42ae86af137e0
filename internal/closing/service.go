package closing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"lengolf-closing/internal/audit"
	"lengolf-closing/internal/auth"
	"lengolf-closing/internal/config"
	"lengolf-closing/internal/models"
	"lengolf-closing/internal/validate"
	"lengolf-closing/internal/variance"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	defaultHistoryLimit = 30
	maxHistoryLimit     = 100
)

// StaffVerifier resolves a staff PIN to the staff member it belongs to.
// It returns auth.ErrInvalidPIN when no active staff matches.
type StaffVerifier interface {
	VerifyPIN(ctx context.Context, pin string) (*models.User, error)
}

// AuditFunc records a closing in the audit trail.
type AuditFunc func(opts audit.LogOptions) error

type Service struct {
	store    Store
	staff    StaffVerifier
	lock     CloseLock
	info     StoreInfo
	audit    AuditFunc
	validate *validator.Validate
	logger   logrus.FieldLogger
}

type ServiceOptions struct {
	Store  Store
	Staff  StaffVerifier
	Lock   CloseLock
	Info   StoreInfo
	Audit  AuditFunc
	Logger logrus.FieldLogger
}

func NewService(opts ServiceOptions) *Service {
	s := &Service{
		store:    opts.Store,
		staff:    opts.Staff,
		lock:     opts.Lock,
		info:     opts.Info,
		audit:    opts.Audit,
		validate: validate.New(),
		logger:   opts.Logger,
	}
	if s.lock == nil {
		s.lock = NoopCloseLock{}
	}
	if s.audit == nil {
		s.audit = audit.WriteLog
	}
	if s.logger == nil {
		s.logger = config.GetLogger()
	}
	return s
}

func parseDate(field, value string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, &ValidationError{Field: field, Message: "must be YYYY-MM-DD"}
	}
	return d, nil
}

// Summary aggregates the day's sales by payment method. Voided sales are
// only counted in VoidedCount/VoidedAmount.
func (s *Service) Summary(ctx context.Context, date string) (*ClosingSummary, error) {
	day, err := parseDate("date", date)
	if err != nil {
		return nil, err
	}
	sales, err := s.store.DaySales(ctx, day)
	if err != nil {
		return nil, err
	}

	sum := &ClosingSummary{
		ClosingDate:        day.Format(DateLayout),
		ExpectedCash:       decimal.Zero,
		ExpectedCreditCard: decimal.Zero,
		QRPaymentsTotal:    decimal.Zero,
		OtherPaymentsTotal: decimal.Zero,
		VoidedAmount:       decimal.Zero,
		TotalSales:         decimal.Zero,
	}
	for _, sale := range sales {
		if sale.Voided {
			sum.VoidedCount++
			sum.VoidedAmount = sum.VoidedAmount.Add(sale.Amount)
			continue
		}
		sum.TransactionCount++
		sum.TotalSales = sum.TotalSales.Add(sale.Amount)
		switch sale.Method {
		case models.PaymentMethodCash:
			sum.ExpectedCash = sum.ExpectedCash.Add(sale.Amount)
		case models.PaymentMethodCreditCard:
			sum.ExpectedCreditCard = sum.ExpectedCreditCard.Add(sale.Amount)
		case models.PaymentMethodQR:
			sum.QRPaymentsTotal = sum.QRPaymentsTotal.Add(sale.Amount)
		default:
			sum.OtherPaymentsTotal = sum.OtherPaymentsTotal.Add(sale.Amount)
		}
	}
	return sum, nil
}

// History lists closes between start and end inclusive, newest first.
func (s *Service) History(ctx context.Context, start, end string, limit int) ([]Reconciliation, error) {
	from, err := parseDate("start_date", start)
	if err != nil {
		return nil, err
	}
	to, err := parseDate("end_date", end)
	if err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, &ValidationError{Field: "end_date", Message: "must not be before start_date"}
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	recs, err := s.store.History(ctx, from, to, limit)
	if err != nil {
		return nil, err
	}
	out := make([]Reconciliation, 0, len(recs))
	for _, r := range recs {
		out = append(out, toReconciliation(r))
	}
	return out, nil
}

func (s *Service) validateSubmit(req SubmitRequest) error {
	if err := s.validate.Struct(req); err != nil {
		if field, tag, ok := validate.FirstError(err); ok {
			return &ValidationError{Field: field, Message: "failed on " + tag}
		}
		return &ValidationError{Message: err.Error()}
	}
	if req.ActualCash.IsNegative() {
		return &ValidationError{Field: "actual_cash", Message: "must not be negative"}
	}
	if req.ActualCreditCard.IsNegative() {
		return &ValidationError{Field: "actual_credit_card", Message: "must not be negative"}
	}
	return nil
}

// Submit closes a day. The PIN is checked first, then the per-date lock is
// taken and the day is re-checked before anything is written.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*Reconciliation, error) {
	if err := s.validateSubmit(req); err != nil {
		return nil, err
	}
	day, err := parseDate("date", req.Date)
	if err != nil {
		return nil, err
	}

	staff, err := s.staff.VerifyPIN(ctx, req.StaffPIN)
	if errors.Is(err, auth.ErrInvalidPIN) {
		s.logger.WithField("closing_date", req.Date).Warn("closing rejected: invalid staff pin")
		return nil, &AuthError{Message: "invalid staff PIN"}
	}
	if err != nil {
		return nil, fmt.Errorf("verify staff pin: %w", err)
	}

	release, err := s.lock.Acquire(ctx, req.Date)
	if errors.Is(err, ErrLockHeld) {
		return nil, &SubmitError{Conflict: true, Message: "this date is being closed on another terminal", Err: err}
	}
	if err != nil {
		return nil, fmt.Errorf("acquire close lock: %w", err)
	}
	defer release()

	existing, err := s.store.FindByDate(ctx, day)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		s.logger.WithFields(logrus.Fields{
			"closing_date":      req.Date,
			"reconciliation_id": existing.ID,
		}).Warn("closing rejected: date already closed")
		return nil, &SubmitError{Conflict: true, Message: "this date has already been closed", Err: ErrAlreadyClosed}
	}

	summary, err := s.Summary(ctx, req.Date)
	if err != nil {
		return nil, err
	}

	cashVar := variance.Of(*req.ActualCash, summary.ExpectedCash)
	cardVar := variance.Of(*req.ActualCreditCard, summary.ExpectedCreditCard)
	notes := strings.TrimSpace(req.VarianceNotes)
	if variance.Any(cashVar, cardVar) && notes == "" {
		return nil, &ValidationError{Field: "variance_notes", Message: "required when cash or card does not balance"}
	}

	rec := &models.Reconciliation{
		ClosingDate:              day,
		ExpectedCash:             summary.ExpectedCash,
		ActualCash:               req.ActualCash.Round(2),
		CashVariance:             cashVar,
		ExpectedCreditCard:       summary.ExpectedCreditCard,
		ActualCreditCard:         req.ActualCreditCard.Round(2),
		CreditCardVariance:       cardVar,
		CreditCardBatchReference: strings.TrimSpace(req.CreditCardBatchReference),
		QRPaymentsTotal:          summary.QRPaymentsTotal,
		OtherPaymentsTotal:       summary.OtherPaymentsTotal,
		TransactionCount:         summary.TransactionCount,
		VoidedCount:              summary.VoidedCount,
		VoidedAmount:             summary.VoidedAmount,
		TotalSales:               summary.TotalSales,
		VarianceNotes:            notes,
		ClosedByStaffID:          staff.ID,
		ClosedByStaffName:        staff.Name,
	}
	if err := s.store.Create(ctx, rec); err != nil {
		if errors.Is(err, ErrAlreadyClosed) {
			return nil, &SubmitError{Conflict: true, Message: "this date has already been closed", Err: err}
		}
		return nil, fmt.Errorf("save reconciliation: %w", err)
	}

	out := toReconciliation(*rec)
	if logErr := s.audit(audit.LogOptions{
		UserID:      staff.ID,
		UserName:    staff.Name,
		EntityType:  "reconciliation",
		EntityID:    rec.ID,
		Action:      models.AuditActionClose,
		Description: fmt.Sprintf("Day closed: %s cash %s card %s", out.ClosingDate, cashVar.StringFixed(2), cardVar.StringFixed(2)),
		After:       out,
	}); logErr != nil {
		config.LogError(config.GetLogger(), "closing", "Submit", "audit log write failed", rec.ID, logErr)
	}

	s.logger.WithFields(logrus.Fields{
		"closing_date":      out.ClosingDate,
		"reconciliation_id": out.ID,
		"staff":             staff.Name,
	}).Info("day closed")
	return &out, nil
}

// PrintData returns the persisted close together with the store header.
func (s *Service) PrintData(ctx context.Context, id uint) (*PrintData, error) {
	rec, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &PrintData{Store: s.info, Reconciliation: toReconciliation(*rec)}, nil
}
