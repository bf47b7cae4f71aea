package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"dairyledger/internal/domain"
)

func TestRecordPaymentAccumulatesAndSettles(t *testing.T) {
	databaseURL := os.Getenv("DAIRYLEDGER_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set DAIRYLEDGER_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})

	stamp := time.Now().UnixNano()
	customerID := fmt.Sprintf("cust_pay_it_%d", stamp)
	month := "2025-03"
	priorMonth := "2025-02"

	t.Cleanup(func() {
		s.deleteTrees(ctx, "sales/"+customerID, "payments/"+customerID)
	})

	for date, amount := range map[string]int64{
		"2025-03-01": 1000,
		"2025-03-02": 500,
	} {
		err := s.UpsertSale(ctx, customerID, month, saleRecordForTest(date, amount))
		if err != nil {
			t.Fatalf("upsert sale %s: %v", date, err)
		}
	}
	priorDoc := paymentDoc{PendingBalance: decimal.NewFromInt(200), Status: domain.PaymentStatusPending, Timestamp: time.Now().UTC()}
	if err := s.putDoc(ctx, paymentPath(customerID, priorMonth), priorDoc); err != nil {
		t.Fatalf("seed prior pending carry-over: %v", err)
	}

	first, err := s.RecordPayment(ctx, customerID, month, decimal.NewFromInt(1000))
	if err != nil {
		t.Fatalf("first payment: %v", err)
	}
	if first.Status != domain.PaymentStatusPending || !first.PendingBalance.Equal(decimal.NewFromInt(700)) {
		t.Fatalf("expected pending 700 after first payment, got %+v", first)
	}

	second, err := s.RecordPayment(ctx, customerID, month, decimal.NewFromInt(1000))
	if err != nil {
		t.Fatalf("second payment: %v", err)
	}
	if second.Status != domain.PaymentStatusPaid || !second.AdvanceBalance.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("expected advance 300 after overpayment, got %+v", second)
	}
	if !second.PaidAmount.Equal(decimal.NewFromInt(2000)) {
		t.Fatalf("expected accumulated paid 2000, got %s", second.PaidAmount)
	}

	stored, err := s.GetPayment(ctx, customerID, month)
	if err != nil {
		t.Fatalf("get payment: %v", err)
	}
	if !stored.AdvanceBalance.Equal(second.AdvanceBalance) {
		t.Fatalf("stored record diverges from returned record: %+v vs %+v", stored, second)
	}
}
