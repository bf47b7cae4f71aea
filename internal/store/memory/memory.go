package memory

import (
	"context"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"dairyledger/internal/billing"
	"dairyledger/internal/domain"
	"dairyledger/internal/store"
)

type Store struct {
	mu        sync.RWMutex
	branches  map[string]domain.Branch
	societies map[string]map[string]domain.Society
	customers map[string]map[string]map[string]domain.Customer
	rates     *domain.MilkRates
	sales     map[string]map[string]map[string]domain.SaleRecord
	payments  map[string]map[string]domain.PaymentRecord
	users     map[string]domain.ApprovedUser
}

func New() *Store {
	return &Store{
		branches:  make(map[string]domain.Branch),
		societies: make(map[string]map[string]domain.Society),
		customers: make(map[string]map[string]map[string]domain.Customer),
		sales:     make(map[string]map[string]map[string]domain.SaleRecord),
		payments:  make(map[string]map[string]domain.PaymentRecord),
		users:     make(map[string]domain.ApprovedUser),
	}
}

// seedUsers builds the initial approved users for dev/demo mode. Credentials
// come from SEED_ADMIN_EMAIL / SEED_ADMIN_PASSWORD and the operator
// equivalents; unset variables fall back to hardcoded dev defaults with a
// warning. Production runs use PostgreSQL and never hit this path.
func seedUsers() map[string]domain.ApprovedUser {
	adminEmail := envOr("SEED_ADMIN_EMAIL", "admin@dairy.local")
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	operatorEmail := envOr("SEED_OPERATOR_EMAIL", "operator@dairy.local")
	operatorPwd := envOr("SEED_OPERATOR_PASSWORD", "operator123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_OPERATOR_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_OPERATOR_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.ApprovedUser{}
	for _, u := range []struct {
		email    string
		password string
		isAdmin  bool
	}{
		{adminEmail, adminPwd, true},
		{operatorEmail, operatorPwd, false},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.email, err)
		}
		key := domain.UserKey(u.email)
		users[key] = domain.ApprovedUser{
			Key:          key,
			Email:        strings.ToLower(strings.TrimSpace(u.email)),
			PasswordHash: string(hash),
			IsAdmin:      u.isAdmin,
			CreatedAt:    now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func NewSeeded() *Store {
	s := New()
	s.users = seedUsers()

	s.branches["central"] = domain.Branch{ID: "central", Name: "Central"}
	s.societies["central"] = map[string]domain.Society{
		"green_valley": {ID: "green_valley", BranchID: "central", Name: "Green Valley"},
	}
	s.customers["central"] = map[string]map[string]domain.Customer{
		"green_valley": {
			"ravi_kumar":  {ID: "ravi_kumar", Name: "Ravi Kumar", Phone: "9876543210", MilkType: domain.MilkTypeCow},
			"meena_patil": {ID: "meena_patil", Name: "Meena Patil", Phone: "9123456780", MilkType: domain.MilkTypeBuffalo},
		},
	}
	s.rates = &domain.MilkRates{
		CowHalfLtr:     decimal.NewFromInt(25),
		CowOneLtr:      decimal.NewFromInt(48),
		BuffaloHalfLtr: decimal.NewFromInt(30),
		BuffaloOneLtr:  decimal.NewFromInt(58),
	}
	return s
}

func (s *Store) CreateBranch(_ context.Context, branch domain.Branch) (*domain.Branch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if branch.ID == "" || branch.Name == "" {
		return nil, store.ErrValidation
	}
	if _, exists := s.branches[branch.ID]; exists {
		return nil, store.ErrValidation
	}
	s.branches[branch.ID] = branch
	return &branch, nil
}

func (s *Store) ListBranches(_ context.Context) ([]domain.Branch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	branches := make([]domain.Branch, 0, len(s.branches))
	for _, b := range s.branches {
		branches = append(branches, b)
	}
	slices.SortFunc(branches, func(a, b domain.Branch) int {
		return strings.Compare(a.Name, b.Name)
	})
	return branches, nil
}

func (s *Store) GetBranch(_ context.Context, branchID string) (*domain.Branch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.branches[branchID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &b, nil
}

func (s *Store) RenameBranch(_ context.Context, branchID string, name string) (*domain.Branch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.branches[branchID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if name == "" {
		return nil, store.ErrValidation
	}
	b.Name = name
	s.branches[branchID] = b
	return &b, nil
}

// DeleteBranch removes the branch and its whole subtree of societies,
// customers, sales and payments.
func (s *Store) DeleteBranch(_ context.Context, branchID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.branches[branchID]; !ok {
		return store.ErrNotFound
	}
	for _, socCustomers := range s.customers[branchID] {
		for customerID := range socCustomers {
			delete(s.sales, customerID)
			delete(s.payments, customerID)
		}
	}
	delete(s.customers, branchID)
	delete(s.societies, branchID)
	delete(s.branches, branchID)
	return nil
}

func (s *Store) CreateSociety(_ context.Context, society domain.Society) (*domain.Society, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if society.ID == "" || society.Name == "" {
		return nil, store.ErrValidation
	}
	if _, ok := s.branches[society.BranchID]; !ok {
		return nil, store.ErrNotFound
	}
	if s.societies[society.BranchID] == nil {
		s.societies[society.BranchID] = make(map[string]domain.Society)
	}
	if _, exists := s.societies[society.BranchID][society.ID]; exists {
		return nil, store.ErrValidation
	}
	s.societies[society.BranchID][society.ID] = society
	return &society, nil
}

func (s *Store) ListSocieties(_ context.Context, branchID string) ([]domain.Society, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.branches[branchID]; !ok {
		return nil, store.ErrNotFound
	}
	societies := make([]domain.Society, 0, len(s.societies[branchID]))
	for _, soc := range s.societies[branchID] {
		societies = append(societies, soc)
	}
	slices.SortFunc(societies, func(a, b domain.Society) int {
		return strings.Compare(a.Name, b.Name)
	})
	return societies, nil
}

func (s *Store) GetSociety(_ context.Context, branchID string, societyID string) (*domain.Society, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	soc, ok := s.societies[branchID][societyID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &soc, nil
}

func (s *Store) RenameSociety(_ context.Context, branchID string, societyID string, name string) (*domain.Society, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	soc, ok := s.societies[branchID][societyID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if name == "" {
		return nil, store.ErrValidation
	}
	soc.Name = name
	s.societies[branchID][societyID] = soc
	return &soc, nil
}

func (s *Store) DeleteSociety(_ context.Context, branchID string, societyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.societies[branchID][societyID]; !ok {
		return store.ErrNotFound
	}
	for customerID := range s.customers[branchID][societyID] {
		delete(s.sales, customerID)
		delete(s.payments, customerID)
	}
	if s.customers[branchID] != nil {
		delete(s.customers[branchID], societyID)
	}
	delete(s.societies[branchID], societyID)
	return nil
}

func (s *Store) CreateCustomer(_ context.Context, branchID string, societyID string, customer domain.Customer) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.societies[branchID][societyID]; !ok {
		return nil, store.ErrNotFound
	}
	if customer.ID == "" || customer.Name == "" {
		return nil, store.ErrValidation
	}
	if s.customers[branchID] == nil {
		s.customers[branchID] = make(map[string]map[string]domain.Customer)
	}
	if s.customers[branchID][societyID] == nil {
		s.customers[branchID][societyID] = make(map[string]domain.Customer)
	}
	if _, exists := s.customers[branchID][societyID][customer.ID]; exists {
		return nil, store.ErrValidation
	}
	s.customers[branchID][societyID][customer.ID] = customer
	return &customer, nil
}

func (s *Store) ListCustomers(_ context.Context, branchID string, societyID string) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.societies[branchID][societyID]; !ok {
		return nil, store.ErrNotFound
	}
	customers := make([]domain.Customer, 0, len(s.customers[branchID][societyID]))
	for _, c := range s.customers[branchID][societyID] {
		customers = append(customers, c)
	}
	slices.SortFunc(customers, func(a, b domain.Customer) int {
		return strings.Compare(a.Name, b.Name)
	})
	return customers, nil
}

func (s *Store) GetCustomer(_ context.Context, branchID string, societyID string, customerID string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.customers[branchID][societyID][customerID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

func (s *Store) UpdateCustomer(_ context.Context, branchID string, societyID string, customer domain.Customer) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.customers[branchID][societyID][customer.ID]; !ok {
		return nil, store.ErrNotFound
	}
	s.customers[branchID][societyID][customer.ID] = customer
	return &customer, nil
}

func (s *Store) DeleteCustomer(_ context.Context, branchID string, societyID string, customerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.customers[branchID][societyID][customerID]; !ok {
		return store.ErrNotFound
	}
	delete(s.customers[branchID][societyID], customerID)
	delete(s.sales, customerID)
	delete(s.payments, customerID)
	return nil
}

func (s *Store) GetMilkRates(_ context.Context) (*domain.MilkRates, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.rates == nil {
		return nil, store.ErrNotFound
	}
	rates := *s.rates
	return &rates, nil
}

func (s *Store) SetMilkRates(_ context.Context, rates domain.MilkRates) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rates = &rates
	return nil
}

func (s *Store) UpsertSale(_ context.Context, customerID string, month string, sale domain.SaleRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sales[customerID] == nil {
		s.sales[customerID] = make(map[string]map[string]domain.SaleRecord)
	}
	if s.sales[customerID][month] == nil {
		s.sales[customerID][month] = make(map[string]domain.SaleRecord)
	}
	s.sales[customerID][month][sale.Date] = sale
	return nil
}

func (s *Store) ListSales(_ context.Context, customerID string, month string) ([]domain.SaleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.listSalesLocked(customerID, month), nil
}

func (s *Store) listSalesLocked(customerID string, month string) []domain.SaleRecord {
	sales := make([]domain.SaleRecord, 0, len(s.sales[customerID][month]))
	for _, rec := range s.sales[customerID][month] {
		sales = append(sales, rec)
	}
	slices.SortFunc(sales, func(a, b domain.SaleRecord) int {
		return strings.Compare(a.Date, b.Date)
	})
	return sales
}

func (s *Store) DeleteSale(_ context.Context, customerID string, month string, date string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sales[customerID][month][date]; !ok {
		return store.ErrNotFound
	}
	delete(s.sales[customerID][month], date)
	return nil
}

func (s *Store) GetPayment(_ context.Context, customerID string, month string) (*domain.PaymentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.payments[customerID][month]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &rec, nil
}

// RecordPayment reads the month's sales, the prior month's carry-over and
// the current payment record, folds the new payment in and writes the result
// back, all under the write lock.
func (s *Store) RecordPayment(_ context.Context, customerID string, month string, amount decimal.Decimal) (*domain.PaymentRecord, error) {
	if !amount.IsPositive() {
		return nil, store.ErrValidation
	}
	priorMonth, err := billing.PrevMonth(month)
	if err != nil {
		return nil, store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	salesSum := billing.SalesTotal(s.listSalesLocked(customerID, month))
	prior := s.payments[customerID][priorMonth]
	current := s.payments[customerID][month]

	totalToBePaid := salesSum.Add(prior.PendingBalance).Sub(prior.AdvanceBalance)
	record := billing.ApplyPayment(totalToBePaid, current.PaidAmount, amount, time.Now().UTC())

	if s.payments[customerID] == nil {
		s.payments[customerID] = make(map[string]domain.PaymentRecord)
	}
	s.payments[customerID][month] = record
	return &record, nil
}

func (s *Store) CreateApprovedUser(_ context.Context, user domain.ApprovedUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.Key == "" || user.Email == "" || user.PasswordHash == "" {
		return store.ErrValidation
	}
	s.users[user.Key] = user
	return nil
}

func (s *Store) GetApprovedUser(_ context.Context, key string) (*domain.ApprovedUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (s *Store) ListApprovedUsers(_ context.Context) ([]domain.ApprovedUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.ApprovedUser, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	slices.SortFunc(users, func(a, b domain.ApprovedUser) int {
		return strings.Compare(a.Email, b.Email)
	})
	return users, nil
}

func (s *Store) DeleteApprovedUser(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[key]; !ok {
		return store.ErrNotFound
	}
	delete(s.users, key)
	return nil
}
