package closing

import (
	"context"
	"sort"
	"sync"
	"time"

	"lengolf-closing/internal/audit"
	"lengolf-closing/internal/auth"
	"lengolf-closing/internal/models"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type memoryStore struct {
	mu     sync.Mutex
	sales  []models.Sale
	recs   []models.Reconciliation
	nextID uint
}

func (s *memoryStore) addSale(date string, method models.PaymentMethod, amount string, voided bool) {
	day, _ := time.Parse(DateLayout, date)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sales = append(s.sales, models.Sale{
		ID:       uint(len(s.sales) + 1),
		SaleDate: day,
		Method:   method,
		Amount:   decimal.RequireFromString(amount),
		Voided:   voided,
	})
}

func (s *memoryStore) DaySales(_ context.Context, day time.Time) ([]models.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Sale
	for _, sale := range s.sales {
		if sale.SaleDate.Equal(day) {
			out = append(out, sale)
		}
	}
	return out, nil
}

func (s *memoryStore) FindByDate(_ context.Context, day time.Time) (*models.Reconciliation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.recs {
		if r.ClosingDate.Equal(day) {
			rec := r
			return &rec, nil
		}
	}
	return nil, nil
}

func (s *memoryStore) FindByID(_ context.Context, id uint) (*models.Reconciliation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.recs {
		if r.ID == id {
			rec := r
			return &rec, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memoryStore) History(_ context.Context, from, to time.Time, limit int) ([]models.Reconciliation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Reconciliation
	for _, r := range s.recs {
		if !r.ClosingDate.Before(from) && !r.ClosingDate.After(to) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClosingDate.After(out[j].ClosingDate) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memoryStore) Create(_ context.Context, rec *models.Reconciliation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.recs {
		if r.ClosingDate.Equal(rec.ClosingDate) {
			return ErrAlreadyClosed
		}
	}
	s.nextID++
	rec.ID = s.nextID
	rec.CreatedAt = time.Date(2026, 10, 16, 22, 0, 0, 0, time.UTC)
	s.recs = append(s.recs, *rec)
	return nil
}

type pinTable map[string]models.User

func (p pinTable) VerifyPIN(_ context.Context, pin string) (*models.User, error) {
	u, ok := p[pin]
	if !ok {
		return nil, auth.ErrInvalidPIN
	}
	return &u, nil
}

type auditRecorder struct {
	mu      sync.Mutex
	entries []audit.LogOptions
}

func (a *auditRecorder) write(opts audit.LogOptions) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, opts)
	return nil
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

type fixture struct {
	store *memoryStore
	audit *auditRecorder
	svc   *Service
}

func newFixture(lock CloseLock) *fixture {
	f := &fixture{store: &memoryStore{}, audit: &auditRecorder{}}
	f.svc = NewService(ServiceOptions{
		Store: f.store,
		Staff: pinTable{
			"1234": {ID: 1, Name: "Dolly", Role: models.RoleStaff, Active: true},
			"5678": {ID: 2, Name: "Nok", Role: models.RoleStaff, Active: true},
		},
		Lock:   lock,
		Info:   StoreInfo{Name: "LENGOLF", Address: "540 Mercury Tower", TaxID: "0105566207013"},
		Audit:  f.audit.write,
		Logger: quietLogger(),
	})
	return f
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}
