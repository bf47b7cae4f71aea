package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"dairyledger/internal/cache"
	"dairyledger/internal/domain"
	"dairyledger/internal/store"
	"dairyledger/internal/store/memory"
)

func newTestService() *Service {
	repo := memory.NewSeeded()
	return New(repo, cache.NoopBillCache{}, 5*time.Minute, "Mazire Milk Dairy", "9673806868@upi")
}

func adminCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{
		Email: "admin@dairy.local",
		Role:  domain.RoleAdmin,
	})
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestCreateBranchSlugsName(t *testing.T) {
	svc := newTestService()

	branch, err := svc.CreateBranch(context.Background(), domain.BranchCreateRequest{Name: "North  Zone"})
	if err != nil {
		t.Fatalf("create branch failed: %v", err)
	}
	if branch.ID != "north_zone" {
		t.Fatalf("expected id north_zone, got %s", branch.ID)
	}
}

func TestCreateCustomerValidatesPhoneAndMilkType(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	cases := []domain.CustomerCreateRequest{
		{BranchID: "central", SocietyID: "green_valley", Name: "Bad Phone", Phone: "12345", MilkType: domain.MilkTypeCow},
		{BranchID: "central", SocietyID: "green_valley", Name: "Alpha Phone", Phone: "98765abc10", MilkType: domain.MilkTypeCow},
		{BranchID: "central", SocietyID: "green_valley", Name: "Bad Type", Phone: "9876543211", MilkType: "Goat"},
		{BranchID: "central", SocietyID: "green_valley", Name: "", Phone: "9876543211", MilkType: domain.MilkTypeCow},
	}
	for _, req := range cases {
		if _, err := svc.CreateCustomer(ctx, req); !errors.Is(err, store.ErrValidation) {
			t.Fatalf("expected validation error for %+v, got %v", req, err)
		}
	}

	created, err := svc.CreateCustomer(ctx, domain.CustomerCreateRequest{
		BranchID: "central", SocietyID: "green_valley",
		Name: "Suresh Jadhav", Phone: "9876500001", MilkType: domain.MilkTypeBuffalo,
	})
	if err != nil {
		t.Fatalf("create customer failed: %v", err)
	}
	if created.ID != "suresh_jadhav" {
		t.Fatalf("expected slug id suresh_jadhav, got %s", created.ID)
	}
}

func TestCreateCustomerUnknownSocietyIsNotFound(t *testing.T) {
	svc := newTestService()

	_, err := svc.CreateCustomer(context.Background(), domain.CustomerCreateRequest{
		BranchID: "central", SocietyID: "no_such_society",
		Name: "Nobody Here", Phone: "9876500002", MilkType: domain.MilkTypeCow,
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSetMilkRatesRequiresAdmin(t *testing.T) {
	svc := newTestService()
	rates := domain.MilkRates{CowHalfLtr: dec("25"), CowOneLtr: dec("48"), BuffaloHalfLtr: dec("30"), BuffaloOneLtr: dec("58")}

	if _, err := svc.SetMilkRates(context.Background(), rates); err == nil {
		t.Fatalf("expected rate change without actor to fail")
	}
	operator := WithActor(context.Background(), domain.Actor{Email: "op@dairy.local", Role: domain.RoleOperator})
	if _, err := svc.SetMilkRates(operator, rates); err == nil {
		t.Fatalf("expected rate change by operator to fail")
	}
	if _, err := svc.SetMilkRates(adminCtx(), rates); err != nil {
		t.Fatalf("admin rate change failed: %v", err)
	}
}

func TestSetMilkRatesRejectsNegative(t *testing.T) {
	svc := newTestService()
	rates := domain.MilkRates{CowHalfLtr: dec("-1"), CowOneLtr: dec("48")}

	if _, err := svc.SetMilkRates(adminCtx(), rates); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error for negative rate, got %v", err)
	}
}

func TestUpsertSalePricesFromRateCard(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	half, err := svc.UpsertSale(ctx, domain.SaleUpsertRequest{
		BranchID: "central", SocietyID: "green_valley", CustomerID: "ravi_kumar",
		Date: "2025-03-01", Quantity: dec("0.5"),
	})
	if err != nil {
		t.Fatalf("upsert half-litre sale failed: %v", err)
	}
	if !half.Amount.Equal(dec("25")) {
		t.Fatalf("expected half-litre cow sale priced 25, got %s", half.Amount)
	}

	two, err := svc.UpsertSale(ctx, domain.SaleUpsertRequest{
		BranchID: "central", SocietyID: "green_valley", CustomerID: "ravi_kumar",
		Date: "2025-03-02", Quantity: dec("2"),
	})
	if err != nil {
		t.Fatalf("upsert two-litre sale failed: %v", err)
	}
	if !two.Amount.Equal(dec("96")) {
		t.Fatalf("expected two-litre cow sale priced 96, got %s", two.Amount)
	}

	buffalo, err := svc.UpsertSale(ctx, domain.SaleUpsertRequest{
		BranchID: "central", SocietyID: "green_valley", CustomerID: "meena_patil",
		Date: "2025-03-01", Quantity: dec("1.5"),
	})
	if err != nil {
		t.Fatalf("upsert buffalo sale failed: %v", err)
	}
	if !buffalo.Amount.Equal(dec("87")) {
		t.Fatalf("expected 1.5 L buffalo sale priced 87, got %s", buffalo.Amount)
	}
}

func TestSaleAmountImmutableAfterRateChange(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.UpsertSale(ctx, domain.SaleUpsertRequest{
		BranchID: "central", SocietyID: "green_valley", CustomerID: "ravi_kumar",
		Date: "2025-03-01", Quantity: dec("1"),
	})
	if err != nil {
		t.Fatalf("upsert sale failed: %v", err)
	}

	_, err = svc.SetMilkRates(adminCtx(), domain.MilkRates{
		CowHalfLtr: dec("40"), CowOneLtr: dec("80"), BuffaloHalfLtr: dec("45"), BuffaloOneLtr: dec("90"),
	})
	if err != nil {
		t.Fatalf("rate change failed: %v", err)
	}

	sales, err := svc.ListSales(ctx, "ravi_kumar", "2025-03")
	if err != nil {
		t.Fatalf("list sales failed: %v", err)
	}
	if len(sales) != 1 || !sales[0].Amount.Equal(dec("48")) {
		t.Fatalf("expected recorded sale to keep amount 48, got %+v", sales)
	}
}

func TestUpsertSaleRejectsBadInput(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	bad := []domain.SaleUpsertRequest{
		{BranchID: "central", SocietyID: "green_valley", CustomerID: "ravi_kumar", Date: "2025-03-01", Quantity: dec("0")},
		{BranchID: "central", SocietyID: "green_valley", CustomerID: "ravi_kumar", Date: "2025-03-01", Quantity: dec("-1")},
		{BranchID: "central", SocietyID: "green_valley", CustomerID: "ravi_kumar", Date: "01-03-2025", Quantity: dec("1")},
	}
	for _, req := range bad {
		if _, err := svc.UpsertSale(ctx, req); !errors.Is(err, store.ErrValidation) {
			t.Fatalf("expected validation error for %+v, got %v", req, err)
		}
	}
}

func TestFetchBillCarriesPriorBalance(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	// February ends with 200 pending: 200 of sales, nothing paid.
	_, err := svc.UpsertSale(ctx, domain.SaleUpsertRequest{
		BranchID: "central", SocietyID: "green_valley", CustomerID: "ravi_kumar",
		Date: "2025-02-10", Quantity: dec("1"),
	})
	if err != nil {
		t.Fatalf("seed february sale failed: %v", err)
	}
	if _, err := svc.RecordPayment(ctx, domain.PaymentRequest{CustomerID: "ravi_kumar", Month: "2025-02", Amount: dec("1")}); err != nil {
		t.Fatalf("seed february payment failed: %v", err)
	}

	// March sales of 1500.
	for _, day := range []string{"2025-03-01", "2025-03-02", "2025-03-03"} {
		_, err := svc.UpsertSale(ctx, domain.SaleUpsertRequest{
			BranchID: "central", SocietyID: "green_valley", CustomerID: "ravi_kumar",
			Date: day, Quantity: dec("10"),
		})
		if err != nil {
			t.Fatalf("seed march sale failed: %v", err)
		}
	}

	report, err := svc.FetchBill(ctx, "ravi_kumar", "2025-03")
	if err != nil {
		t.Fatalf("fetch bill failed: %v", err)
	}
	if !report.MonthlySalesSum.Equal(dec("1440")) {
		t.Fatalf("expected march sales 1440, got %s", report.MonthlySalesSum)
	}
	// February: 48 of sales, 1 paid, 47 pending carried into March.
	if !report.PendingBalance.Equal(dec("47")) {
		t.Fatalf("expected displayed pending 47 from prior month, got %s", report.PendingBalance)
	}
	if !report.TotalDue.Equal(dec("1487")) {
		t.Fatalf("expected total due 1487, got %s", report.TotalDue)
	}
}

func TestFetchBillEmptyMonthIsZero(t *testing.T) {
	svc := newTestService()

	report, err := svc.FetchBill(context.Background(), "ravi_kumar", "2025-06")
	if err != nil {
		t.Fatalf("fetch bill failed: %v", err)
	}
	if !report.MonthlySalesSum.IsZero() || !report.TotalDue.IsZero() {
		t.Fatalf("expected zero bill for empty month, got %+v", report)
	}
}

func TestRecordPaymentScenarios(t *testing.T) {
	// 1500 of sales plus a 200 pending carry-over from the prior month.
	seed := func(t *testing.T) *Service {
		t.Helper()
		svc := newTestService()
		ctx := context.Background()
		_, err := svc.SetMilkRates(adminCtx(), domain.MilkRates{
			CowHalfLtr: dec("25"), CowOneLtr: dec("50"), BuffaloHalfLtr: dec("30"), BuffaloOneLtr: dec("58"),
		})
		if err != nil {
			t.Fatalf("set rates failed: %v", err)
		}
		_, err = svc.UpsertSale(ctx, domain.SaleUpsertRequest{
			BranchID: "central", SocietyID: "green_valley", CustomerID: "ravi_kumar",
			Date: "2025-02-10", Quantity: dec("8"),
		})
		if err != nil {
			t.Fatalf("seed february sale failed: %v", err)
		}
		// 400 of february sales, 200 paid, leaves 200 pending.
		if _, err := svc.RecordPayment(ctx, domain.PaymentRequest{CustomerID: "ravi_kumar", Month: "2025-02", Amount: dec("200")}); err != nil {
			t.Fatalf("seed february payment failed: %v", err)
		}
		for _, day := range []string{"2025-03-01", "2025-03-02", "2025-03-03"} {
			_, err := svc.UpsertSale(ctx, domain.SaleUpsertRequest{
				BranchID: "central", SocietyID: "green_valley", CustomerID: "ravi_kumar",
				Date: day, Quantity: dec("10"),
			})
			if err != nil {
				t.Fatalf("seed march sale failed: %v", err)
			}
		}
		return svc
	}

	t.Run("exact settlement", func(t *testing.T) {
		svc := seed(t)
		rec, err := svc.RecordPayment(context.Background(), domain.PaymentRequest{CustomerID: "ravi_kumar", Month: "2025-03", Amount: dec("1700")})
		if err != nil {
			t.Fatalf("record payment failed: %v", err)
		}
		if rec.Status != domain.PaymentStatusPaid || !rec.PendingBalance.IsZero() || !rec.AdvanceBalance.IsZero() {
			t.Fatalf("expected settled record, got %+v", rec)
		}
	})

	t.Run("underpayment leaves pending", func(t *testing.T) {
		svc := seed(t)
		rec, err := svc.RecordPayment(context.Background(), domain.PaymentRequest{CustomerID: "ravi_kumar", Month: "2025-03", Amount: dec("1000")})
		if err != nil {
			t.Fatalf("record payment failed: %v", err)
		}
		if rec.Status != domain.PaymentStatusPending || !rec.PendingBalance.Equal(dec("700")) {
			t.Fatalf("expected pending 700, got %+v", rec)
		}
	})

	t.Run("overpayment becomes advance", func(t *testing.T) {
		svc := seed(t)
		rec, err := svc.RecordPayment(context.Background(), domain.PaymentRequest{CustomerID: "ravi_kumar", Month: "2025-03", Amount: dec("2000")})
		if err != nil {
			t.Fatalf("record payment failed: %v", err)
		}
		if rec.Status != domain.PaymentStatusPaid || !rec.AdvanceBalance.Equal(dec("300")) {
			t.Fatalf("expected advance 300, got %+v", rec)
		}
	})

	t.Run("installments accumulate", func(t *testing.T) {
		svc := seed(t)
		ctx := context.Background()
		first, err := svc.RecordPayment(ctx, domain.PaymentRequest{CustomerID: "ravi_kumar", Month: "2025-03", Amount: dec("1000")})
		if err != nil {
			t.Fatalf("first installment failed: %v", err)
		}
		second, err := svc.RecordPayment(ctx, domain.PaymentRequest{CustomerID: "ravi_kumar", Month: "2025-03", Amount: dec("700")})
		if err != nil {
			t.Fatalf("second installment failed: %v", err)
		}
		if !second.PaidAmount.Equal(dec("1700")) {
			t.Fatalf("expected accumulated paid 1700, got %s", second.PaidAmount)
		}
		if second.PaidAmount.LessThan(first.PaidAmount) {
			t.Fatalf("paid amount decreased between installments")
		}
		if second.Status != domain.PaymentStatusPaid {
			t.Fatalf("expected Paid after settling, got %s", second.Status)
		}
	})
}

func TestRecordPaymentRejectsNonPositiveAmount(t *testing.T) {
	svc := newTestService()

	for _, amount := range []string{"0", "-50"} {
		_, err := svc.RecordPayment(context.Background(), domain.PaymentRequest{CustomerID: "ravi_kumar", Month: "2025-03", Amount: dec(amount)})
		if !errors.Is(err, store.ErrValidation) {
			t.Fatalf("expected validation error for amount %s, got %v", amount, err)
		}
	}
}

func TestGenerateInvoiceBuildsMessageAndLink(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.UpsertSale(ctx, domain.SaleUpsertRequest{
		BranchID: "central", SocietyID: "green_valley", CustomerID: "ravi_kumar",
		Date: "2025-03-01", Quantity: dec("1"),
	})
	if err != nil {
		t.Fatalf("seed sale failed: %v", err)
	}

	invoice, err := svc.GenerateInvoice(ctx, domain.InvoiceRequest{
		BranchID: "central", SocietyID: "green_valley", CustomerID: "ravi_kumar", Month: "2025-03",
	})
	if err != nil {
		t.Fatalf("generate invoice failed: %v", err)
	}
	if !strings.Contains(invoice.Message, "Mazire Milk Dairy") {
		t.Fatalf("expected dairy name in message, got %q", invoice.Message)
	}
	if !strings.Contains(invoice.Message, "Ravi Kumar") {
		t.Fatalf("expected customer name in message")
	}
	if !strings.Contains(invoice.Message, "2025-03-01") {
		t.Fatalf("expected sale date line in message")
	}
	if !strings.Contains(invoice.Message, "9673806868@upi") {
		t.Fatalf("expected UPI instruction in message")
	}
	if !strings.HasPrefix(invoice.WhatsAppURL, "https://wa.me/9876543210?text=") {
		t.Fatalf("unexpected share url %q", invoice.WhatsAppURL)
	}
}

func TestDeleteBranchRemovesSubtree(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	if err := svc.DeleteBranch(ctx, "central"); err != nil {
		t.Fatalf("delete branch failed: %v", err)
	}
	if _, err := svc.ListSocieties(ctx, "central"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected societies of deleted branch to be gone, got %v", err)
	}
	sales, err := svc.ListSales(ctx, "ravi_kumar", "2025-03")
	if err != nil {
		t.Fatalf("list sales failed: %v", err)
	}
	if len(sales) != 0 {
		t.Fatalf("expected sales removed with branch subtree, got %d", len(sales))
	}
}
