package ledger

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/hms/billing/internal/platform/apperr"
)

// -- Mock Repositories --
//
// The mock store mirrors the row-lock discipline of the real database with a
// single mutex held for the duration of each transaction.

type mockStore struct {
	mu       sync.Mutex
	invoices map[uuid.UUID]*Invoice
	items    map[uuid.UUID][]*InvoiceItem
	payments map[uuid.UUID][]*Payment
	refunds  map[uuid.UUID][]*Refund
	seqs     map[string]int
}

func newMockStore() *mockStore {
	return &mockStore{
		invoices: make(map[uuid.UUID]*Invoice),
		items:    make(map[uuid.UUID][]*InvoiceItem),
		payments: make(map[uuid.UUID][]*Payment),
		refunds:  make(map[uuid.UUID][]*Refund),
		seqs:     make(map[string]int),
	}
}

type mockTxRunner struct{ store *mockStore }

func (m *mockTxRunner) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	return fn(ctx)
}

type mockInvoiceRepo struct{ store *mockStore }

func (m *mockInvoiceRepo) Create(_ context.Context, inv *Invoice, items []*InvoiceItem) error {
	inv.ID = uuid.New()
	inv.CreatedAt = time.Now()
	inv.UpdatedAt = time.Now()
	cp := *inv
	m.store.invoices[inv.ID] = &cp
	for _, it := range items {
		it.ID = uuid.New()
		it.InvoiceID = inv.ID
		m.store.items[inv.ID] = append(m.store.items[inv.ID], it)
	}
	return nil
}

func (m *mockInvoiceRepo) GetByID(_ context.Context, id uuid.UUID) (*Invoice, error) {
	inv, ok := m.store.invoices[id]
	if !ok {
		return nil, apperr.NotFound("invoice not found")
	}
	cp := *inv
	return &cp, nil
}

func (m *mockInvoiceRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	return m.GetByID(ctx, id)
}

func (m *mockInvoiceRepo) GetItems(_ context.Context, invoiceID uuid.UUID) ([]*InvoiceItem, error) {
	return m.store.items[invoiceID], nil
}

func (m *mockInvoiceRepo) UpdateTotals(_ context.Context, inv *Invoice) error {
	stored, ok := m.store.invoices[inv.ID]
	if !ok {
		return apperr.NotFound("invoice not found")
	}
	stored.Status = inv.Status
	stored.PaidAmount = inv.PaidAmount
	stored.BalanceAmount = inv.BalanceAmount
	stored.UpdatedAt = time.Now()
	return nil
}

func (m *mockInvoiceRepo) ListByHospital(_ context.Context, hospitalID uuid.UUID, f InvoiceFilter, limit, offset int) ([]*Invoice, int, error) {
	var result []*Invoice
	for _, inv := range m.store.invoices {
		if inv.HospitalID != hospitalID {
			continue
		}
		if f.PatientID != nil && inv.PatientID != *f.PatientID {
			continue
		}
		if f.Status != "" && inv.Status != f.Status {
			continue
		}
		cp := *inv
		result = append(result, &cp)
	}
	return result, len(result), nil
}

func (m *mockInvoiceRepo) NextSequence(_ context.Context, hospitalID uuid.UUID, year int) (int, error) {
	key := fmt.Sprintf("%s-%d", hospitalID, year)
	m.store.seqs[key]++
	return m.store.seqs[key], nil
}

type mockPaymentRepo struct{ store *mockStore }

func (m *mockPaymentRepo) Create(_ context.Context, p *Payment) error {
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	m.store.payments[p.InvoiceID] = append(m.store.payments[p.InvoiceID], p)
	return nil
}

func (m *mockPaymentRepo) ListByInvoice(_ context.Context, invoiceID uuid.UUID) ([]*Payment, error) {
	return m.store.payments[invoiceID], nil
}

type mockRefundRepo struct{ store *mockStore }

func (m *mockRefundRepo) Create(_ context.Context, r *Refund) error {
	r.ID = uuid.New()
	r.CreatedAt = time.Now()
	m.store.refunds[r.InvoiceID] = append(m.store.refunds[r.InvoiceID], r)
	return nil
}

func (m *mockRefundRepo) ListByInvoice(_ context.Context, invoiceID uuid.UUID) ([]*Refund, error) {
	return m.store.refunds[invoiceID], nil
}

func newTestService() (*Service, *mockStore) {
	store := newMockStore()
	svc := NewService(
		&mockInvoiceRepo{store: store},
		&mockPaymentRepo{store: store},
		&mockRefundRepo{store: store},
		&mockTxRunner{store: store},
		zerolog.Nop(),
		3,
	)
	return svc, store
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func strPtr(s string) *string { return &s }

// -- Invoice creation --

func TestCreateInvoice_Totals(t *testing.T) {
	svc, _ := newTestService()
	hospitalID := uuid.New()

	inv, items, err := svc.CreateInvoice(context.Background(), hospitalID, CreateInvoiceInput{
		PatientID: uuid.New(),
		Items: []ItemInput{
			{Description: "Consultation", Quantity: 1, UnitPrice: dec("500.00")},
			{Description: "X-Ray", Quantity: 2, UnitPrice: dec("250.50")},
		},
		DiscountAmount: dec("100.00"),
		TaxAmount:      dec("50.00"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !inv.Subtotal.Equal(dec("1001.00")) {
		t.Errorf("expected subtotal 1001.00, got %s", inv.Subtotal)
	}
	if !inv.TotalAmount.Equal(dec("951.00")) {
		t.Errorf("expected total 951.00, got %s", inv.TotalAmount)
	}
	if !inv.BalanceAmount.Equal(inv.TotalAmount) {
		t.Errorf("expected balance to equal total, got %s", inv.BalanceAmount)
	}
	if !inv.PaidAmount.IsZero() {
		t.Errorf("expected zero paid amount, got %s", inv.PaidAmount)
	}
	if inv.Status != StatusOpen {
		t.Errorf("expected status open, got %s", inv.Status)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if !items[1].Amount.Equal(dec("501.00")) {
		t.Errorf("expected item amount 501.00, got %s", items[1].Amount)
	}
}

func TestCreateInvoice_PercentDiscount(t *testing.T) {
	svc, _ := newTestService()
	pct := dec("10")

	inv, _, err := svc.CreateInvoice(context.Background(), uuid.New(), CreateInvoiceInput{
		PatientID:       uuid.New(),
		Items:           []ItemInput{{Description: "Lab panel", Quantity: 1, UnitPrice: dec("1200.00")}},
		DiscountPercent: &pct,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !inv.DiscountAmount.Equal(dec("120.00")) {
		t.Errorf("expected discount 120.00, got %s", inv.DiscountAmount)
	}
	if !inv.TotalAmount.Equal(dec("1080.00")) {
		t.Errorf("expected total 1080.00, got %s", inv.TotalAmount)
	}
}

func TestCreateInvoice_TotalFlooredAtZero(t *testing.T) {
	svc, _ := newTestService()

	inv, _, err := svc.CreateInvoice(context.Background(), uuid.New(), CreateInvoiceInput{
		PatientID:      uuid.New(),
		Items:          []ItemInput{{Description: "Screening", Quantity: 1, UnitPrice: dec("100.00")}},
		DiscountAmount: dec("150.00"),
		DiscountReason: strPtr("charity care"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !inv.TotalAmount.IsZero() {
		t.Errorf("expected total floored at zero, got %s", inv.TotalAmount)
	}
	// A zero-total invoice has no outstanding balance.
	if inv.Status != StatusPaid {
		t.Errorf("expected settled status for zero-total invoice, got %s", inv.Status)
	}
}

func TestCreateInvoice_Validation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	hospitalID := uuid.New()
	pct := dec("110")
	okItems := []ItemInput{{Description: "Consult", Quantity: 1, UnitPrice: dec("100")}}

	cases := []struct {
		name string
		in   CreateInvoiceInput
		kind apperr.Kind
	}{
		{"missing patient", CreateInvoiceInput{Items: okItems}, apperr.KindValidation},
		{"no items", CreateInvoiceInput{PatientID: uuid.New()}, apperr.KindValidation},
		{"zero quantity", CreateInvoiceInput{PatientID: uuid.New(),
			Items: []ItemInput{{Description: "x", Quantity: 0, UnitPrice: dec("10")}}}, apperr.KindValidation},
		{"zero price", CreateInvoiceInput{PatientID: uuid.New(),
			Items: []ItemInput{{Description: "x", Quantity: 1, UnitPrice: decimal.Zero}}}, apperr.KindInvalidAmount},
		{"negative price", CreateInvoiceInput{PatientID: uuid.New(),
			Items: []ItemInput{{Description: "x", Quantity: 1, UnitPrice: dec("-5")}}}, apperr.KindInvalidAmount},
		{"percent over 100", CreateInvoiceInput{PatientID: uuid.New(), Items: okItems,
			DiscountPercent: &pct}, apperr.KindValidation},
		{"both discounts", CreateInvoiceInput{PatientID: uuid.New(), Items: okItems,
			DiscountAmount: dec("10"), DiscountPercent: &pct}, apperr.KindValidation},
		{"negative tax", CreateInvoiceInput{PatientID: uuid.New(), Items: okItems,
			TaxAmount: dec("-1")}, apperr.KindInvalidAmount},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := svc.CreateInvoice(ctx, hospitalID, tc.in)
			if !apperr.IsKind(err, tc.kind) {
				t.Errorf("expected %v error, got %v", tc.kind, err)
			}
		})
	}
}

func TestCreateInvoice_NumberSequence(t *testing.T) {
	svc, _ := newTestService()
	hospitalID := uuid.New()
	year := time.Now().UTC().Year()

	in := CreateInvoiceInput{
		PatientID: uuid.New(),
		Items:     []ItemInput{{Description: "Consult", Quantity: 1, UnitPrice: dec("100")}},
	}

	first, _, err := svc.CreateInvoice(context.Background(), hospitalID, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, _, err := svc.CreateInvoice(context.Background(), hospitalID, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want1 := fmt.Sprintf("HOSP-%d-000001", year)
	want2 := fmt.Sprintf("HOSP-%d-000002", year)
	if first.InvoiceNumber != want1 {
		t.Errorf("expected %s, got %s", want1, first.InvoiceNumber)
	}
	if second.InvoiceNumber != want2 {
		t.Errorf("expected %s, got %s", want2, second.InvoiceNumber)
	}

	// Another hospital starts its own sequence.
	other, _, err := svc.CreateInvoice(context.Background(), uuid.New(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if other.InvoiceNumber != want1 {
		t.Errorf("expected independent sequence %s, got %s", want1, other.InvoiceNumber)
	}
}

// -- Payments --

func createTestInvoice(t *testing.T, svc *Service, hospitalID uuid.UUID, total string) *Invoice {
	t.Helper()
	inv, _, err := svc.CreateInvoice(context.Background(), hospitalID, CreateInvoiceInput{
		PatientID: uuid.New(),
		Items:     []ItemInput{{Description: "Services", Quantity: 1, UnitPrice: dec(total)}},
	})
	if err != nil {
		t.Fatalf("create invoice: %v", err)
	}
	return inv
}

func TestRecordPayment_PartialThenFull(t *testing.T) {
	svc, _ := newTestService()
	hospitalID := uuid.New()
	inv := createTestInvoice(t, svc, hospitalID, "1000.00")

	_, after, err := svc.RecordPayment(context.Background(), hospitalID, inv.ID, PaymentInput{
		Method: "cash", Amount: dec("400.00"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if after.Status != StatusPartiallyPaid {
		t.Errorf("expected partially_paid, got %s", after.Status)
	}
	if !after.PaidAmount.Equal(dec("400.00")) || !after.BalanceAmount.Equal(dec("600.00")) {
		t.Errorf("unexpected amounts: paid=%s balance=%s", after.PaidAmount, after.BalanceAmount)
	}
	if !after.PaidAmount.Add(after.BalanceAmount).Equal(after.TotalAmount) {
		t.Error("paid + balance must equal total")
	}

	_, after, err = svc.RecordPayment(context.Background(), hospitalID, inv.ID, PaymentInput{
		Method: "upi", Amount: dec("600.00"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if after.Status != StatusPaid {
		t.Errorf("expected paid, got %s", after.Status)
	}
	if !after.BalanceAmount.IsZero() {
		t.Errorf("expected zero balance, got %s", after.BalanceAmount)
	}
}

func TestRecordPayment_Overpay(t *testing.T) {
	svc, _ := newTestService()
	hospitalID := uuid.New()
	inv := createTestInvoice(t, svc, hospitalID, "100.00")

	_, _, err := svc.RecordPayment(context.Background(), hospitalID, inv.ID, PaymentInput{
		Method: "cash", Amount: dec("100.01"),
	})
	if !apperr.IsKind(err, apperr.KindInvalidAmount) {
		t.Errorf("expected invalid amount error, got %v", err)
	}

	// Ledger must be untouched after the rejection.
	got, err := svc.GetInvoice(context.Background(), hospitalID, inv.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.PaidAmount.IsZero() || got.Status != StatusOpen {
		t.Errorf("rejected payment must not mutate invoice: paid=%s status=%s", got.PaidAmount, got.Status)
	}
}

func TestRecordPayment_InvalidInputs(t *testing.T) {
	svc, _ := newTestService()
	hospitalID := uuid.New()
	inv := createTestInvoice(t, svc, hospitalID, "100.00")
	ctx := context.Background()

	if _, _, err := svc.RecordPayment(ctx, hospitalID, inv.ID, PaymentInput{Method: "cash", Amount: decimal.Zero}); !apperr.IsKind(err, apperr.KindInvalidAmount) {
		t.Errorf("expected invalid amount for zero payment, got %v", err)
	}
	if _, _, err := svc.RecordPayment(ctx, hospitalID, inv.ID, PaymentInput{Method: "cash", Amount: dec("-5")}); !apperr.IsKind(err, apperr.KindInvalidAmount) {
		t.Errorf("expected invalid amount for negative payment, got %v", err)
	}
	if _, _, err := svc.RecordPayment(ctx, hospitalID, inv.ID, PaymentInput{Method: "cheque", Amount: dec("10")}); !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error for unknown method, got %v", err)
	}
	if _, _, err := svc.RecordPayment(ctx, hospitalID, uuid.New(), PaymentInput{Method: "cash", Amount: dec("10")}); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("expected not found for unknown invoice, got %v", err)
	}
	if _, _, err := svc.RecordPayment(ctx, uuid.New(), inv.ID, PaymentInput{Method: "cash", Amount: dec("10")}); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("expected not found for foreign hospital, got %v", err)
	}
}

func TestRecordPayment_VoidInvoice(t *testing.T) {
	svc, _ := newTestService()
	hospitalID := uuid.New()
	inv := createTestInvoice(t, svc, hospitalID, "100.00")

	if _, err := svc.VoidInvoice(context.Background(), hospitalID, inv.ID); err != nil {
		t.Fatalf("void: %v", err)
	}

	_, _, err := svc.RecordPayment(context.Background(), hospitalID, inv.ID, PaymentInput{
		Method: "cash", Amount: dec("10"),
	})
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error for void invoice, got %v", err)
	}
}

func TestRecordPayment_ReceivedAtPassthrough(t *testing.T) {
	svc, _ := newTestService()
	hospitalID := uuid.New()
	inv := createTestInvoice(t, svc, hospitalID, "100.00")

	settled := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	p, _, err := svc.RecordPayment(context.Background(), hospitalID, inv.ID, PaymentInput{
		Method: "online", Amount: dec("100.00"), ReceivedAt: &settled,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ReceivedAt == nil || !p.ReceivedAt.Equal(settled) {
		t.Errorf("expected received_at %v, got %v", settled, p.ReceivedAt)
	}
	if !p.EffectiveAt().Equal(settled) {
		t.Errorf("effective date should prefer received_at")
	}
}

func TestRecordPayment_Concurrent(t *testing.T) {
	svc, store := newTestService()
	hospitalID := uuid.New()
	inv := createTestInvoice(t, svc, hospitalID, "100.00")

	const workers = 20
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, _, _ = svc.RecordPayment(context.Background(), hospitalID, inv.ID, PaymentInput{
				Method: "cash", Amount: dec("5.00"),
			})
		}()
	}
	wg.Wait()

	got, err := svc.GetInvoice(context.Background(), hospitalID, inv.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.PaidAmount.Add(got.BalanceAmount).Equal(got.TotalAmount) {
		t.Fatalf("invariant broken: paid=%s balance=%s total=%s",
			got.PaidAmount, got.BalanceAmount, got.TotalAmount)
	}
	if got.BalanceAmount.IsNegative() {
		t.Fatalf("balance went negative: %s", got.BalanceAmount)
	}
	if !got.PaidAmount.Equal(dec("100.00")) || got.Status != StatusPaid {
		t.Errorf("expected exactly settled invoice, got paid=%s status=%s", got.PaidAmount, got.Status)
	}

	sum := decimal.Zero
	for _, p := range store.payments[inv.ID] {
		sum = sum.Add(p.Amount)
	}
	if !sum.Equal(got.PaidAmount) {
		t.Errorf("paid amount %s must equal sum of payments %s", got.PaidAmount, sum)
	}
}

// -- Refunds --

func TestRecordRefund(t *testing.T) {
	svc, _ := newTestService()
	hospitalID := uuid.New()
	inv := createTestInvoice(t, svc, hospitalID, "100.00")
	ctx := context.Background()

	if _, _, err := svc.RecordPayment(ctx, hospitalID, inv.ID, PaymentInput{Method: "cash", Amount: dec("100.00")}); err != nil {
		t.Fatalf("payment: %v", err)
	}

	_, after, err := svc.RecordRefund(ctx, hospitalID, inv.ID, RefundInput{
		Amount: dec("40.00"), Reason: "duplicate charge",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if after.Status != StatusPartiallyPaid {
		t.Errorf("expected partially_paid after refund, got %s", after.Status)
	}
	if !after.PaidAmount.Equal(dec("60.00")) || !after.BalanceAmount.Equal(dec("40.00")) {
		t.Errorf("unexpected amounts after refund: paid=%s balance=%s", after.PaidAmount, after.BalanceAmount)
	}

	// Refund the rest: invoice reverts to open.
	_, after, err = svc.RecordRefund(ctx, hospitalID, inv.ID, RefundInput{
		Amount: dec("60.00"), Reason: "order cancelled",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if after.Status != StatusOpen {
		t.Errorf("expected open after full refund, got %s", after.Status)
	}
}

func TestRecordRefund_Validation(t *testing.T) {
	svc, _ := newTestService()
	hospitalID := uuid.New()
	inv := createTestInvoice(t, svc, hospitalID, "100.00")
	ctx := context.Background()

	if _, _, err := svc.RecordRefund(ctx, hospitalID, inv.ID, RefundInput{Amount: dec("10"), Reason: "x"}); !apperr.IsKind(err, apperr.KindInvalidAmount) {
		t.Errorf("expected invalid amount when refund exceeds paid, got %v", err)
	}
	if _, _, err := svc.RecordRefund(ctx, hospitalID, inv.ID, RefundInput{Amount: decimal.Zero, Reason: "x"}); !apperr.IsKind(err, apperr.KindInvalidAmount) {
		t.Errorf("expected invalid amount for zero refund, got %v", err)
	}
	if _, _, err := svc.RecordRefund(ctx, hospitalID, inv.ID, RefundInput{Amount: dec("10")}); !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error for missing reason, got %v", err)
	}
}

// -- Void and queries --

func TestVoidInvoice_Terminal(t *testing.T) {
	svc, _ := newTestService()
	hospitalID := uuid.New()
	inv := createTestInvoice(t, svc, hospitalID, "100.00")
	ctx := context.Background()

	voided, err := svc.VoidInvoice(ctx, hospitalID, inv.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if voided.Status != StatusVoid {
		t.Errorf("expected void, got %s", voided.Status)
	}

	// Voiding again is a no-op, not an error.
	again, err := svc.VoidInvoice(ctx, hospitalID, inv.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again.Status != StatusVoid {
		t.Errorf("expected void, got %s", again.Status)
	}
}

func TestGetBalance(t *testing.T) {
	svc, _ := newTestService()
	hospitalID := uuid.New()
	inv := createTestInvoice(t, svc, hospitalID, "250.00")
	ctx := context.Background()

	if _, _, err := svc.RecordPayment(ctx, hospitalID, inv.ID, PaymentInput{Method: "card", Amount: dec("100.00")}); err != nil {
		t.Fatalf("payment: %v", err)
	}

	balance, err := svc.GetBalance(ctx, hospitalID, inv.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !balance.Equal(dec("150.00")) {
		t.Errorf("expected balance 150.00, got %s", balance)
	}
}

func TestListInvoices_StatusFilter(t *testing.T) {
	svc, _ := newTestService()
	hospitalID := uuid.New()
	createTestInvoice(t, svc, hospitalID, "100.00")
	ctx := context.Background()

	items, total, err := svc.ListInvoices(ctx, hospitalID, InvoiceFilter{Status: StatusOpen}, 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 || len(items) != 1 {
		t.Errorf("expected one open invoice, got %d", total)
	}

	if _, _, err := svc.ListInvoices(ctx, hospitalID, InvoiceFilter{Status: "bogus"}, 20, 0); !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error for unknown status, got %v", err)
	}
}

func TestInvoiceSource(t *testing.T) {
	apptID := uuid.New()
	encID := uuid.New()

	cases := []struct {
		name string
		inv  Invoice
		want string
	}{
		{"appointment", Invoice{AppointmentID: &apptID}, "appointment"},
		{"appointment wins over encounter", Invoice{AppointmentID: &apptID, EncounterID: &encID}, "appointment"},
		{"ipd", Invoice{EncounterID: &encID}, "ipd"},
		{"opd", Invoice{}, "opd"},
	}
	for _, tc := range cases {
		if got := tc.inv.Source(); got != tc.want {
			t.Errorf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
	}
}
