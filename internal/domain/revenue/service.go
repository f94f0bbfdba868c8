package revenue

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/hms/billing/internal/domain/ledger"
	"github.com/hms/billing/internal/platform/apperr"
)

// Service computes revenue reports. All period boundaries are midnights in
// the configured reporting timezone, regardless of server local time.
type Service struct {
	repo   Repository
	loc    *time.Location
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(repo Repository, loc *time.Location, logger zerolog.Logger) *Service {
	return &Service{repo: repo, loc: loc, logger: logger, now: time.Now}
}

// dayStart truncates t to midnight in the reporting timezone.
func (s *Service) dayStart(t time.Time) time.Time {
	t = t.In(s.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, s.loc)
}

// weekStart returns the most recent Sunday midnight at or before t.
func (s *Service) weekStart(t time.Time) time.Time {
	day := s.dayStart(t)
	return day.AddDate(0, 0, -int(day.Weekday()))
}

// monthStart returns the first-of-month midnight for t.
func (s *Service) monthStart(t time.Time) time.Time {
	t = t.In(s.loc)
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, s.loc)
}

// Stats returns the daily, weekly, monthly and all-time revenue sums for a
// hospital.
func (s *Service) Stats(ctx context.Context, hospitalID uuid.UUID) (*Stats, error) {
	now := s.now()
	day := s.dayStart(now)
	week := s.weekStart(now)
	month := s.monthStart(now)

	stats := &Stats{}
	var err error
	if stats.Daily, err = s.repo.Sum(ctx, hospitalID, Range{From: &day}); err != nil {
		return nil, err
	}
	if stats.Weekly, err = s.repo.Sum(ctx, hospitalID, Range{From: &week}); err != nil {
		return nil, err
	}
	if stats.Monthly, err = s.repo.Sum(ctx, hospitalID, Range{From: &month}); err != nil {
		return nil, err
	}
	if stats.Total, err = s.repo.Sum(ctx, hospitalID, Range{}); err != nil {
		return nil, err
	}
	return stats, nil
}

// BySource breaks revenue down by appointment/ipd/opd. Every source appears
// in the result, zero when nothing was collected.
func (s *Service) BySource(ctx context.Context, hospitalID uuid.UUID, r Range) (map[string]decimal.Decimal, error) {
	sums, err := s.repo.SumBySource(ctx, hospitalID, r)
	if err != nil {
		return nil, err
	}
	out := map[string]decimal.Decimal{
		SourceAppointment: decimal.Zero,
		SourceIPD:         decimal.Zero,
		SourceOPD:         decimal.Zero,
	}
	for source, sum := range sums {
		out[source] = sum
	}
	return out, nil
}

// ByMethod breaks revenue down by payment method. Methods the ledger no
// longer recognizes are folded into the unknown bucket.
func (s *Service) ByMethod(ctx context.Context, hospitalID uuid.UUID, r Range) (map[string]decimal.Decimal, error) {
	sums, err := s.repo.SumByMethod(ctx, hospitalID, r)
	if err != nil {
		return nil, err
	}
	out := make(map[string]decimal.Decimal)
	for method, sum := range sums {
		if !ledger.ValidPaymentMethod(method) {
			method = MethodUnknown
		}
		if prev, ok := out[method]; ok {
			sum = prev.Add(sum)
		}
		out[method] = sum
	}
	return out, nil
}

// Transactions lists payments with invoice context, newest effective date
// first.
func (s *Service) Transactions(ctx context.Context, hospitalID uuid.UUID, f TransactionFilter, limit, offset int) ([]*Transaction, int, error) {
	if f.Method != "" && !ledger.ValidPaymentMethod(f.Method) && f.Method != MethodUnknown {
		return nil, 0, apperr.Validation("unknown payment method: %s", f.Method)
	}
	if f.Source != "" && f.Source != SourceAppointment && f.Source != SourceIPD && f.Source != SourceOPD {
		return nil, 0, apperr.Validation("unknown revenue source: %s", f.Source)
	}
	return s.repo.Transactions(ctx, hospitalID, f, limit, offset)
}
