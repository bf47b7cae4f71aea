package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"dairyledger/internal/billing"
	"dairyledger/internal/cache"
	"dairyledger/internal/domain"
	"dairyledger/internal/store"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo      store.Repository
	bills     cache.BillCache
	billTTL   time.Duration
	dairyName string
	upiID     string
}

func New(repo store.Repository, bills cache.BillCache, billTTL time.Duration, dairyName string, upiID string) *Service {
	if bills == nil {
		bills = cache.NoopBillCache{}
	}
	if billTTL <= 0 {
		billTTL = 5 * time.Minute
	}
	if dairyName == "" {
		dairyName = "Milk Dairy"
	}

	return &Service{
		repo:      repo,
		bills:     bills,
		billTTL:   billTTL,
		dairyName: dairyName,
		upiID:     upiID,
	}
}

// slugID derives a document id from a display name, lowercased with
// whitespace runs collapsed to single underscores. Ids double as path
// segments in the ledger store, so they must stay slash-free.
func slugID(name string) string {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(name)))
	return strings.ReplaceAll(strings.Join(fields, "_"), "/", "_")
}

func validPhone(phone string) bool {
	if len(phone) != 10 {
		return false
	}
	for _, r := range phone {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (s *Service) CreateBranch(ctx context.Context, req domain.BranchCreateRequest) (domain.Branch, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Branch{}, store.ErrValidation
	}
	created, err := s.repo.CreateBranch(ctx, domain.Branch{ID: slugID(name), Name: name})
	if err != nil {
		return domain.Branch{}, err
	}
	return *created, nil
}

func (s *Service) ListBranches(ctx context.Context) ([]domain.Branch, error) {
	return s.repo.ListBranches(ctx)
}

func (s *Service) RenameBranch(ctx context.Context, branchID string, req domain.RenameRequest) (domain.Branch, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Branch{}, store.ErrValidation
	}
	renamed, err := s.repo.RenameBranch(ctx, branchID, name)
	if err != nil {
		return domain.Branch{}, err
	}
	return *renamed, nil
}

func (s *Service) DeleteBranch(ctx context.Context, branchID string) error {
	return s.repo.DeleteBranch(ctx, branchID)
}

func (s *Service) CreateSociety(ctx context.Context, req domain.SocietyCreateRequest) (domain.Society, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" || req.BranchID == "" {
		return domain.Society{}, store.ErrValidation
	}
	society := domain.Society{ID: slugID(name), BranchID: req.BranchID, Name: name}
	created, err := s.repo.CreateSociety(ctx, society)
	if err != nil {
		return domain.Society{}, err
	}
	return *created, nil
}

func (s *Service) ListSocieties(ctx context.Context, branchID string) ([]domain.Society, error) {
	return s.repo.ListSocieties(ctx, branchID)
}

func (s *Service) RenameSociety(ctx context.Context, branchID string, societyID string, req domain.RenameRequest) (domain.Society, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Society{}, store.ErrValidation
	}
	renamed, err := s.repo.RenameSociety(ctx, branchID, societyID, name)
	if err != nil {
		return domain.Society{}, err
	}
	return *renamed, nil
}

func (s *Service) DeleteSociety(ctx context.Context, branchID string, societyID string) error {
	return s.repo.DeleteSociety(ctx, branchID, societyID)
}

func (s *Service) CreateCustomer(ctx context.Context, req domain.CustomerCreateRequest) (domain.Customer, error) {
	name := strings.TrimSpace(req.Name)
	phone := strings.TrimSpace(req.Phone)
	if name == "" || req.BranchID == "" || req.SocietyID == "" {
		return domain.Customer{}, store.ErrValidation
	}
	if !validPhone(phone) {
		return domain.Customer{}, store.ErrValidation
	}
	if !domain.ValidMilkType(req.MilkType) {
		return domain.Customer{}, store.ErrValidation
	}

	customer := domain.Customer{
		ID:       slugID(name),
		Name:     name,
		Phone:    phone,
		MilkType: req.MilkType,
	}
	created, err := s.repo.CreateCustomer(ctx, req.BranchID, req.SocietyID, customer)
	if err != nil {
		return domain.Customer{}, err
	}
	return *created, nil
}

func (s *Service) ListCustomers(ctx context.Context, branchID string, societyID string) ([]domain.Customer, error) {
	return s.repo.ListCustomers(ctx, branchID, societyID)
}

func (s *Service) GetCustomer(ctx context.Context, branchID string, societyID string, customerID string) (domain.Customer, error) {
	customer, err := s.repo.GetCustomer(ctx, branchID, societyID, customerID)
	if err != nil {
		return domain.Customer{}, err
	}
	return *customer, nil
}

func (s *Service) UpdateCustomer(ctx context.Context, branchID string, societyID string, customerID string, req domain.CustomerUpdateRequest) (domain.Customer, error) {
	existing, err := s.repo.GetCustomer(ctx, branchID, societyID, customerID)
	if err != nil {
		return domain.Customer{}, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Customer{}, store.ErrValidation
		}
		updated.Name = name
	}
	if req.Phone != nil {
		phone := strings.TrimSpace(*req.Phone)
		if !validPhone(phone) {
			return domain.Customer{}, store.ErrValidation
		}
		updated.Phone = phone
	}
	if req.MilkType != nil {
		if !domain.ValidMilkType(*req.MilkType) {
			return domain.Customer{}, store.ErrValidation
		}
		updated.MilkType = *req.MilkType
	}

	saved, err := s.repo.UpdateCustomer(ctx, branchID, societyID, updated)
	if err != nil {
		return domain.Customer{}, err
	}
	return *saved, nil
}

func (s *Service) DeleteCustomer(ctx context.Context, branchID string, societyID string, customerID string) error {
	return s.repo.DeleteCustomer(ctx, branchID, societyID, customerID)
}

// GetMilkRates returns the rate card, or zero rates when none has been set
// yet so a fresh deployment renders an editable empty card.
func (s *Service) GetMilkRates(ctx context.Context) (domain.MilkRates, error) {
	rates, err := s.repo.GetMilkRates(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return domain.MilkRates{}, nil
	}
	if err != nil {
		return domain.MilkRates{}, err
	}
	return *rates, nil
}

func (s *Service) SetMilkRates(ctx context.Context, rates domain.MilkRates) (domain.MilkRates, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return domain.MilkRates{}, fmt.Errorf("admin role required")
	}
	for _, rate := range []decimal.Decimal{rates.CowHalfLtr, rates.CowOneLtr, rates.BuffaloHalfLtr, rates.BuffaloOneLtr} {
		if rate.IsNegative() {
			return domain.MilkRates{}, store.ErrValidation
		}
	}
	if err := s.repo.SetMilkRates(ctx, rates); err != nil {
		return domain.MilkRates{}, err
	}
	return rates, nil
}

// saleAmount prices one day's sale from the current rate card. An exact half
// litre uses the dedicated half-litre rate; every other quantity is billed
// per litre.
func saleAmount(rates domain.MilkRates, milkType string, quantity decimal.Decimal) decimal.Decimal {
	half := decimal.New(5, -1)
	switch milkType {
	case domain.MilkTypeBuffalo:
		if quantity.Equal(half) {
			return rates.BuffaloHalfLtr
		}
		return quantity.Mul(rates.BuffaloOneLtr)
	default:
		if quantity.Equal(half) {
			return rates.CowHalfLtr
		}
		return quantity.Mul(rates.CowOneLtr)
	}
}

// UpsertSale records or replaces one day's delivery for a customer. The sale
// amount is computed from the rate card at write time and stays fixed even if
// rates change later.
func (s *Service) UpsertSale(ctx context.Context, req domain.SaleUpsertRequest) (domain.SaleRecord, error) {
	if req.BranchID == "" || req.SocietyID == "" || req.CustomerID == "" {
		return domain.SaleRecord{}, store.ErrValidation
	}
	if !req.Quantity.IsPositive() {
		return domain.SaleRecord{}, store.ErrValidation
	}
	month, err := billing.MonthOfDate(req.Date)
	if err != nil {
		return domain.SaleRecord{}, store.ErrValidation
	}

	customer, err := s.repo.GetCustomer(ctx, req.BranchID, req.SocietyID, req.CustomerID)
	if err != nil {
		return domain.SaleRecord{}, err
	}
	rates, err := s.repo.GetMilkRates(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.SaleRecord{}, store.ErrValidation
		}
		return domain.SaleRecord{}, err
	}

	sale := domain.SaleRecord{
		Date:     req.Date,
		MilkType: customer.MilkType,
		Quantity: req.Quantity,
		Amount:   saleAmount(*rates, customer.MilkType, req.Quantity),
	}
	if err := s.repo.UpsertSale(ctx, req.CustomerID, month, sale); err != nil {
		return domain.SaleRecord{}, err
	}
	s.invalidateBill(ctx, req.CustomerID, month)
	return sale, nil
}

func (s *Service) ListSales(ctx context.Context, customerID string, month string) ([]domain.SaleRecord, error) {
	if _, err := billing.ParseMonth(month); err != nil {
		return nil, store.ErrValidation
	}
	return s.repo.ListSales(ctx, customerID, month)
}

func (s *Service) DeleteSale(ctx context.Context, customerID string, date string) error {
	month, err := billing.MonthOfDate(date)
	if err != nil {
		return store.ErrValidation
	}
	if err := s.repo.DeleteSale(ctx, customerID, month, date); err != nil {
		return err
	}
	s.invalidateBill(ctx, customerID, month)
	return nil
}

func billCacheKey(customerID, month string) string {
	return "bill:" + customerID + ":" + month
}

// invalidateBill drops the cached report for the month and the one after it,
// since a change this month also moves next month's carry-over.
func (s *Service) invalidateBill(ctx context.Context, customerID string, month string) {
	keys := []string{billCacheKey(customerID, month)}
	if next, err := billing.NextMonth(month); err == nil {
		keys = append(keys, billCacheKey(customerID, next))
	}
	for _, key := range keys {
		if err := s.bills.Delete(ctx, key); err != nil {
			log.Printf("[service] WARN: failed to invalidate bill cache key=%s: %v", key, err)
		}
	}
}

// FetchBill reconciles a customer's bill for a month. Missing sale and
// payment records are treated as zero, never as errors, so a brand-new
// customer gets a zero bill rather than a 404.
func (s *Service) FetchBill(ctx context.Context, customerID string, month string) (domain.BillReport, error) {
	if customerID == "" {
		return domain.BillReport{}, store.ErrValidation
	}
	if _, err := billing.ParseMonth(month); err != nil {
		return domain.BillReport{}, store.ErrValidation
	}

	key := billCacheKey(customerID, month)
	if cached, ok, err := s.bills.Get(ctx, key); err == nil && ok {
		return *cached, nil
	} else if err != nil {
		log.Printf("[service] WARN: bill cache read failed key=%s: %v", key, err)
	}

	priorMonth, err := billing.PrevMonth(month)
	if err != nil {
		return domain.BillReport{}, store.ErrValidation
	}

	sales, err := s.repo.ListSales(ctx, customerID, month)
	if err != nil {
		return domain.BillReport{}, err
	}

	var current domain.PaymentRecord
	haveCurrent := false
	if rec, err := s.repo.GetPayment(ctx, customerID, month); err == nil {
		current = *rec
		haveCurrent = true
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.BillReport{}, err
	}

	var prior domain.PaymentRecord
	if rec, err := s.repo.GetPayment(ctx, customerID, priorMonth); err == nil {
		prior = *rec
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.BillReport{}, err
	}

	report := billing.Reconcile(customerID, month, sales, prior, current, haveCurrent)
	if err := s.bills.Set(ctx, key, &report, s.billTTL); err != nil {
		log.Printf("[service] WARN: bill cache write failed key=%s: %v", key, err)
	}
	return report, nil
}

// RecordPayment folds a payment into the customer's month. The store does
// the read-modify-write atomically; this layer validates and keeps the bill
// cache honest.
func (s *Service) RecordPayment(ctx context.Context, req domain.PaymentRequest) (domain.PaymentRecord, error) {
	if req.CustomerID == "" {
		return domain.PaymentRecord{}, store.ErrValidation
	}
	if _, err := billing.ParseMonth(req.Month); err != nil {
		return domain.PaymentRecord{}, store.ErrValidation
	}
	if !req.Amount.IsPositive() {
		return domain.PaymentRecord{}, store.ErrValidation
	}

	record, err := s.repo.RecordPayment(ctx, req.CustomerID, req.Month, req.Amount)
	if err != nil {
		return domain.PaymentRecord{}, err
	}
	s.invalidateBill(ctx, req.CustomerID, req.Month)
	return *record, nil
}

func (s *Service) GetPayment(ctx context.Context, customerID string, month string) (domain.PaymentRecord, error) {
	if _, err := billing.ParseMonth(month); err != nil {
		return domain.PaymentRecord{}, store.ErrValidation
	}
	rec, err := s.repo.GetPayment(ctx, customerID, month)
	if err != nil {
		return domain.PaymentRecord{}, err
	}
	return *rec, nil
}

// GenerateInvoice assembles the shareable bill for one customer and month: a
// plain-text summary plus the wa.me link that opens it in a WhatsApp chat
// with the customer. Nothing is sent from here.
func (s *Service) GenerateInvoice(ctx context.Context, req domain.InvoiceRequest) (domain.Invoice, error) {
	customer, err := s.repo.GetCustomer(ctx, req.BranchID, req.SocietyID, req.CustomerID)
	if err != nil {
		return domain.Invoice{}, err
	}
	report, err := s.FetchBill(ctx, req.CustomerID, req.Month)
	if err != nil {
		return domain.Invoice{}, err
	}

	message := s.invoiceMessage(*customer, report)
	return domain.Invoice{
		Customer:    *customer,
		Month:       req.Month,
		Report:      report,
		Message:     message,
		WhatsAppURL: "https://wa.me/" + customer.Phone + "?text=" + url.QueryEscape(message),
	}, nil
}

func (s *Service) invoiceMessage(customer domain.Customer, report domain.BillReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s*\n\n", s.dairyName)
	fmt.Fprintf(&b, "*Customer Name:* %s\n", customer.Name)
	fmt.Fprintf(&b, "*Mobile Number:* %s\n", customer.Phone)
	fmt.Fprintf(&b, "*Bill for the Month:* %s\n\n", report.Month)
	b.WriteString("*Milk Sales Data:*\n")
	b.WriteString("----------------\n")
	b.WriteString("*Date*        *Liters*    *Amount*\n")
	b.WriteString("----------------\n")
	for _, sale := range report.Sales {
		fmt.Fprintf(&b, "%s    %s L    Rs %s\n", sale.Date, sale.Quantity.String(), sale.Amount.StringFixed(2))
	}
	b.WriteString("----------------\n")
	fmt.Fprintf(&b, "*Total Sales:* Rs %s\n\n", report.MonthlySalesSum.StringFixed(2))
	fmt.Fprintf(&b, "*Paid This Month:* Rs %s\n", report.PaidAmount.StringFixed(2))
	fmt.Fprintf(&b, "*Pending Balance:* Rs %s\n", report.PendingBalance.StringFixed(2))
	fmt.Fprintf(&b, "*Advance Balance:* Rs %s\n\n", report.AdvanceBalance.StringFixed(2))
	fmt.Fprintf(&b, "*Total Amount to be Paid:* Rs %s\n\n", report.TotalDue.StringFixed(2))
	if s.upiID != "" {
		fmt.Fprintf(&b, "*Kindly pay via UPI (PhonePe/GPay/Paytm):* %s\n", s.upiID)
	}
	b.WriteString("*We appreciate you as a valued customer.*\n")
	return b.String()
}
