// Package postgres persists the ledger as one path-keyed JSONB document per
// entity, preserving the hierarchical layout the data was migrated from:
//
//	branches/{branchId}
//	societies/{branchId}/{societyId}
//	customers/{branchId}/{societyId}/{customerId}
//	milkRates
//	sales/{customerId}/{YYYY-MM}/{YYYY-MM-DD}
//	payments/{customerId}/{YYYY-MM}
//	approved_users/{userKey}
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"slices"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"dairyledger/internal/billing"
	"dairyledger/internal/domain"
	"dairyledger/internal/store"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS ledger_documents (
			path TEXT PRIMARY KEY,
			doc JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Persisted document shapes. Field names must stay exactly as the original
// export wrote them.

type branchDoc struct {
	Name string `json:"name"`
}

type societyDoc struct {
	Name string `json:"name"`
}

type customerDoc struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	MilkType string `json:"milkType"`
}

type ratesDoc struct {
	CowHalfLtr     decimal.Decimal `json:"cowHalfLtr"`
	CowOneLtr      decimal.Decimal `json:"cowOneLtr"`
	BuffaloHalfLtr decimal.Decimal `json:"buffaloHalfLtr"`
	BuffaloOneLtr  decimal.Decimal `json:"buffaloOneLtr"`
}

type saleDoc struct {
	MilkType string          `json:"milkType"`
	Quantity decimal.Decimal `json:"quantity"`
	Amount   decimal.Decimal `json:"amount"`
}

type paymentDoc struct {
	PendingBalance decimal.Decimal `json:"pendingBalance"`
	AdvanceBalance decimal.Decimal `json:"advanceBalance"`
	PaidAmount     decimal.Decimal `json:"paidAmount"`
	Status         string          `json:"status"`
	Timestamp      time.Time       `json:"timestamp"`
}

type userDoc struct {
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	IsAdmin      bool      `json:"isAdmin"`
	CreatedAt    time.Time `json:"createdAt"`
}

// unavailable wraps driver failures so callers can map them to a 503 without
// inspecting pg error codes.
func unavailable(err error) error {
	return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
}

func (s *Store) getDoc(ctx context.Context, docPath string, out any) error {
	var raw []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT doc FROM ledger_documents WHERE path = $1
	`, docPath).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		return unavailable(err)
	}
	return json.Unmarshal(raw, out)
}

func (s *Store) putDoc(ctx context.Context, docPath string, doc any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO ledger_documents (path, doc, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (path) DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()
	`, docPath, raw)
	if err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *Store) createDoc(ctx context.Context, docPath string, doc any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO ledger_documents (path, doc, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (path) DO NOTHING
	`, docPath, raw)
	if err != nil {
		return unavailable(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return unavailable(err)
	}
	if affected == 0 {
		return store.ErrValidation
	}
	return nil
}

// deleteSubtree removes a document and everything below it. Returns
// ErrNotFound when the root document itself does not exist.
func (s *Store) deleteSubtree(ctx context.Context, docPath string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM ledger_documents
		WHERE path = $1 OR path LIKE $1 || '/%'
	`, docPath)
	if err != nil {
		return unavailable(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return unavailable(err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// listChildren yields the direct children of a path prefix as (key, rawDoc)
// pairs, ordered by key.
func (s *Store) listChildren(ctx context.Context, prefix string) (map[string]json.RawMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT path, doc FROM ledger_documents
		WHERE path LIKE $1 || '/%' AND path NOT LIKE $1 || '/%/%'
		ORDER BY path
	`, prefix)
	if err != nil {
		return nil, unavailable(err)
	}
	defer rows.Close()

	children := make(map[string]json.RawMessage)
	for rows.Next() {
		var docPath string
		var raw []byte
		if err := rows.Scan(&docPath, &raw); err != nil {
			return nil, unavailable(err)
		}
		children[path.Base(docPath)] = json.RawMessage(raw)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(err)
	}
	return children, nil
}

func (s *Store) exists(ctx context.Context, docPath string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM ledger_documents WHERE path = $1
	`, docPath).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, unavailable(err)
	}
	return true, nil
}

func branchPath(branchID string) string {
	return "branches/" + branchID
}

func societyPath(branchID, societyID string) string {
	return "societies/" + branchID + "/" + societyID
}

func customerPath(branchID, societyID, customerID string) string {
	return "customers/" + branchID + "/" + societyID + "/" + customerID
}

func salePath(customerID, month, date string) string {
	return "sales/" + customerID + "/" + month + "/" + date
}

func paymentPath(customerID, month string) string {
	return "payments/" + customerID + "/" + month
}

func userPath(key string) string {
	return "approved_users/" + key
}

func (s *Store) CreateBranch(ctx context.Context, branch domain.Branch) (*domain.Branch, error) {
	if branch.ID == "" || branch.Name == "" {
		return nil, store.ErrValidation
	}
	if err := s.createDoc(ctx, branchPath(branch.ID), branchDoc{Name: branch.Name}); err != nil {
		return nil, err
	}
	return &branch, nil
}

func (s *Store) ListBranches(ctx context.Context) ([]domain.Branch, error) {
	children, err := s.listChildren(ctx, "branches")
	if err != nil {
		return nil, err
	}
	branches := make([]domain.Branch, 0, len(children))
	for id, raw := range children {
		var doc branchDoc
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, err
		}
		branches = append(branches, domain.Branch{ID: id, Name: doc.Name})
	}
	sortByName(branches, func(b domain.Branch) string { return b.Name })
	return branches, nil
}

func (s *Store) GetBranch(ctx context.Context, branchID string) (*domain.Branch, error) {
	var doc branchDoc
	if err := s.getDoc(ctx, branchPath(branchID), &doc); err != nil {
		return nil, err
	}
	return &domain.Branch{ID: branchID, Name: doc.Name}, nil
}

func (s *Store) RenameBranch(ctx context.Context, branchID string, name string) (*domain.Branch, error) {
	if name == "" {
		return nil, store.ErrValidation
	}
	if _, err := s.GetBranch(ctx, branchID); err != nil {
		return nil, err
	}
	if err := s.putDoc(ctx, branchPath(branchID), branchDoc{Name: name}); err != nil {
		return nil, err
	}
	return &domain.Branch{ID: branchID, Name: name}, nil
}

// DeleteBranch removes the branch document and every society, customer, sale
// and payment under it.
func (s *Store) DeleteBranch(ctx context.Context, branchID string) error {
	customerIDs, err := s.customerIDsUnder(ctx, "customers/"+branchID)
	if err != nil {
		return err
	}
	if err := s.deleteSubtree(ctx, branchPath(branchID)); err != nil {
		return err
	}
	s.deleteTrees(ctx, "societies/"+branchID, "customers/"+branchID)
	s.deleteCustomerRecords(ctx, customerIDs)
	return nil
}

// customerIDsUnder collects customer ids at any depth below prefix so their
// sales and payments trees can be removed with them.
func (s *Store) customerIDsUnder(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT path FROM ledger_documents WHERE path LIKE $1 || '/%'
	`, prefix)
	if err != nil {
		return nil, unavailable(err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var docPath string
		if err := rows.Scan(&docPath); err != nil {
			return nil, unavailable(err)
		}
		ids = append(ids, path.Base(docPath))
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(err)
	}
	return ids, nil
}

func (s *Store) deleteTrees(ctx context.Context, prefixes ...string) {
	for _, prefix := range prefixes {
		_, _ = s.db.ExecContext(ctx, `
			DELETE FROM ledger_documents
			WHERE path = $1 OR path LIKE $1 || '/%'
		`, prefix)
	}
}

func (s *Store) deleteCustomerRecords(ctx context.Context, customerIDs []string) {
	for _, id := range customerIDs {
		s.deleteTrees(ctx, "sales/"+id, "payments/"+id)
	}
}

func (s *Store) CreateSociety(ctx context.Context, society domain.Society) (*domain.Society, error) {
	if society.ID == "" || society.Name == "" {
		return nil, store.ErrValidation
	}
	ok, err := s.exists(ctx, branchPath(society.BranchID))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, store.ErrNotFound
	}
	if err := s.createDoc(ctx, societyPath(society.BranchID, society.ID), societyDoc{Name: society.Name}); err != nil {
		return nil, err
	}
	return &society, nil
}

func (s *Store) ListSocieties(ctx context.Context, branchID string) ([]domain.Society, error) {
	ok, err := s.exists(ctx, branchPath(branchID))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, store.ErrNotFound
	}
	children, err := s.listChildren(ctx, "societies/"+branchID)
	if err != nil {
		return nil, err
	}
	societies := make([]domain.Society, 0, len(children))
	for id, raw := range children {
		var doc societyDoc
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, err
		}
		societies = append(societies, domain.Society{ID: id, BranchID: branchID, Name: doc.Name})
	}
	sortByName(societies, func(s domain.Society) string { return s.Name })
	return societies, nil
}

func (s *Store) GetSociety(ctx context.Context, branchID string, societyID string) (*domain.Society, error) {
	var doc societyDoc
	if err := s.getDoc(ctx, societyPath(branchID, societyID), &doc); err != nil {
		return nil, err
	}
	return &domain.Society{ID: societyID, BranchID: branchID, Name: doc.Name}, nil
}

func (s *Store) RenameSociety(ctx context.Context, branchID string, societyID string, name string) (*domain.Society, error) {
	if name == "" {
		return nil, store.ErrValidation
	}
	if _, err := s.GetSociety(ctx, branchID, societyID); err != nil {
		return nil, err
	}
	if err := s.putDoc(ctx, societyPath(branchID, societyID), societyDoc{Name: name}); err != nil {
		return nil, err
	}
	return &domain.Society{ID: societyID, BranchID: branchID, Name: name}, nil
}

func (s *Store) DeleteSociety(ctx context.Context, branchID string, societyID string) error {
	customerIDs, err := s.customerIDsUnder(ctx, "customers/"+branchID+"/"+societyID)
	if err != nil {
		return err
	}
	if err := s.deleteSubtree(ctx, societyPath(branchID, societyID)); err != nil {
		return err
	}
	s.deleteTrees(ctx, "customers/"+branchID+"/"+societyID)
	s.deleteCustomerRecords(ctx, customerIDs)
	return nil
}

func (s *Store) CreateCustomer(ctx context.Context, branchID string, societyID string, customer domain.Customer) (*domain.Customer, error) {
	if customer.ID == "" || customer.Name == "" {
		return nil, store.ErrValidation
	}
	ok, err := s.exists(ctx, societyPath(branchID, societyID))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, store.ErrNotFound
	}
	doc := customerDoc{Name: customer.Name, Phone: customer.Phone, MilkType: customer.MilkType}
	if err := s.createDoc(ctx, customerPath(branchID, societyID, customer.ID), doc); err != nil {
		return nil, err
	}
	return &customer, nil
}

func (s *Store) ListCustomers(ctx context.Context, branchID string, societyID string) ([]domain.Customer, error) {
	ok, err := s.exists(ctx, societyPath(branchID, societyID))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, store.ErrNotFound
	}
	children, err := s.listChildren(ctx, "customers/"+branchID+"/"+societyID)
	if err != nil {
		return nil, err
	}
	customers := make([]domain.Customer, 0, len(children))
	for id, raw := range children {
		var doc customerDoc
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, err
		}
		customers = append(customers, domain.Customer{ID: id, Name: doc.Name, Phone: doc.Phone, MilkType: doc.MilkType})
	}
	sortByName(customers, func(c domain.Customer) string { return c.Name })
	return customers, nil
}

func (s *Store) GetCustomer(ctx context.Context, branchID string, societyID string, customerID string) (*domain.Customer, error) {
	var doc customerDoc
	if err := s.getDoc(ctx, customerPath(branchID, societyID, customerID), &doc); err != nil {
		return nil, err
	}
	return &domain.Customer{ID: customerID, Name: doc.Name, Phone: doc.Phone, MilkType: doc.MilkType}, nil
}

func (s *Store) UpdateCustomer(ctx context.Context, branchID string, societyID string, customer domain.Customer) (*domain.Customer, error) {
	docPath := customerPath(branchID, societyID, customer.ID)
	ok, err := s.exists(ctx, docPath)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, store.ErrNotFound
	}
	doc := customerDoc{Name: customer.Name, Phone: customer.Phone, MilkType: customer.MilkType}
	if err := s.putDoc(ctx, docPath, doc); err != nil {
		return nil, err
	}
	return &customer, nil
}

func (s *Store) DeleteCustomer(ctx context.Context, branchID string, societyID string, customerID string) error {
	if err := s.deleteSubtree(ctx, customerPath(branchID, societyID, customerID)); err != nil {
		return err
	}
	s.deleteCustomerRecords(ctx, []string{customerID})
	return nil
}

func (s *Store) GetMilkRates(ctx context.Context) (*domain.MilkRates, error) {
	var doc ratesDoc
	if err := s.getDoc(ctx, "milkRates", &doc); err != nil {
		return nil, err
	}
	return &domain.MilkRates{
		CowHalfLtr:     doc.CowHalfLtr,
		CowOneLtr:      doc.CowOneLtr,
		BuffaloHalfLtr: doc.BuffaloHalfLtr,
		BuffaloOneLtr:  doc.BuffaloOneLtr,
	}, nil
}

func (s *Store) SetMilkRates(ctx context.Context, rates domain.MilkRates) error {
	return s.putDoc(ctx, "milkRates", ratesDoc{
		CowHalfLtr:     rates.CowHalfLtr,
		CowOneLtr:      rates.CowOneLtr,
		BuffaloHalfLtr: rates.BuffaloHalfLtr,
		BuffaloOneLtr:  rates.BuffaloOneLtr,
	})
}

func (s *Store) UpsertSale(ctx context.Context, customerID string, month string, sale domain.SaleRecord) error {
	doc := saleDoc{MilkType: sale.MilkType, Quantity: sale.Quantity, Amount: sale.Amount}
	return s.putDoc(ctx, salePath(customerID, month, sale.Date), doc)
}

func (s *Store) ListSales(ctx context.Context, customerID string, month string) ([]domain.SaleRecord, error) {
	children, err := s.listChildren(ctx, "sales/"+customerID+"/"+month)
	if err != nil {
		return nil, err
	}
	return salesFromDocs(children)
}

func salesFromDocs(children map[string]json.RawMessage) ([]domain.SaleRecord, error) {
	sales := make([]domain.SaleRecord, 0, len(children))
	for date, raw := range children {
		var doc saleDoc
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, err
		}
		sales = append(sales, domain.SaleRecord{
			Date:     date,
			MilkType: doc.MilkType,
			Quantity: doc.Quantity,
			Amount:   doc.Amount,
		})
	}
	sortByName(sales, func(s domain.SaleRecord) string { return s.Date })
	return sales, nil
}

func (s *Store) DeleteSale(ctx context.Context, customerID string, month string, date string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM ledger_documents WHERE path = $1
	`, salePath(customerID, month, date))
	if err != nil {
		return unavailable(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return unavailable(err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) GetPayment(ctx context.Context, customerID string, month string) (*domain.PaymentRecord, error) {
	var doc paymentDoc
	if err := s.getDoc(ctx, paymentPath(customerID, month), &doc); err != nil {
		return nil, err
	}
	record := paymentFromDoc(doc)
	return &record, nil
}

func paymentFromDoc(doc paymentDoc) domain.PaymentRecord {
	return domain.PaymentRecord{
		PendingBalance: doc.PendingBalance,
		AdvanceBalance: doc.AdvanceBalance,
		PaidAmount:     doc.PaidAmount,
		Status:         doc.Status,
		Timestamp:      doc.Timestamp,
	}
}

// RecordPayment folds one payment into the month's record inside a single
// transaction. The payment row is created first if absent so the SELECT FOR
// UPDATE always has a row to lock; concurrent payments for the same customer
// and month serialize on that lock and each sees the previous paidAmount.
func (s *Store) RecordPayment(ctx context.Context, customerID string, month string, amount decimal.Decimal) (*domain.PaymentRecord, error) {
	if !amount.IsPositive() {
		return nil, store.ErrValidation
	}
	priorMonth, err := billing.PrevMonth(month)
	if err != nil {
		return nil, store.ErrValidation
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, unavailable(err)
	}
	defer func() { _ = tx.Rollback() }()

	docPath := paymentPath(customerID, month)
	emptyDoc, err := json.Marshal(paymentDoc{Status: domain.PaymentStatusPending})
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO ledger_documents (path, doc, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (path) DO NOTHING
	`, docPath, emptyDoc); err != nil {
		return nil, unavailable(err)
	}

	var raw []byte
	if err := tx.QueryRowContext(ctx, `
		SELECT doc FROM ledger_documents WHERE path = $1 FOR UPDATE
	`, docPath).Scan(&raw); err != nil {
		return nil, unavailable(err)
	}
	var current paymentDoc
	if err := json.Unmarshal(raw, &current); err != nil {
		return nil, err
	}

	var prior paymentDoc
	err = tx.QueryRowContext(ctx, `
		SELECT doc FROM ledger_documents WHERE path = $1
	`, paymentPath(customerID, priorMonth)).Scan(&raw)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, unavailable(err)
	default:
		if err := json.Unmarshal(raw, &prior); err != nil {
			return nil, err
		}
	}

	salesSum, err := monthSalesSumTx(ctx, tx, customerID, month)
	if err != nil {
		return nil, err
	}

	totalToBePaid := salesSum.Add(prior.PendingBalance).Sub(prior.AdvanceBalance)
	record := billing.ApplyPayment(totalToBePaid, current.PaidAmount, amount, time.Now().UTC())

	updated, err := json.Marshal(paymentDoc{
		PendingBalance: record.PendingBalance,
		AdvanceBalance: record.AdvanceBalance,
		PaidAmount:     record.PaidAmount,
		Status:         record.Status,
		Timestamp:      record.Timestamp,
	})
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE ledger_documents SET doc = $2, updated_at = now() WHERE path = $1
	`, docPath, updated); err != nil {
		return nil, unavailable(err)
	}
	if err := tx.Commit(); err != nil {
		return nil, unavailable(err)
	}
	return &record, nil
}

func monthSalesSumTx(ctx context.Context, tx *sql.Tx, customerID string, month string) (decimal.Decimal, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT doc FROM ledger_documents WHERE path LIKE $1 || '/%'
	`, "sales/"+customerID+"/"+month)
	if err != nil {
		return decimal.Zero, unavailable(err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return decimal.Zero, unavailable(err)
		}
		var doc saleDoc
		if err := json.Unmarshal(raw, &doc); err != nil {
			return decimal.Zero, err
		}
		total = total.Add(doc.Amount)
	}
	if err := rows.Err(); err != nil {
		return decimal.Zero, unavailable(err)
	}
	return total, nil
}

func (s *Store) CreateApprovedUser(ctx context.Context, user domain.ApprovedUser) error {
	if user.Key == "" || user.Email == "" || user.PasswordHash == "" {
		return store.ErrValidation
	}
	doc := userDoc{
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		IsAdmin:      user.IsAdmin,
		CreatedAt:    user.CreatedAt,
	}
	return s.putDoc(ctx, userPath(user.Key), doc)
}

func (s *Store) GetApprovedUser(ctx context.Context, key string) (*domain.ApprovedUser, error) {
	var doc userDoc
	if err := s.getDoc(ctx, userPath(key), &doc); err != nil {
		return nil, err
	}
	return &domain.ApprovedUser{
		Key:          key,
		Email:        doc.Email,
		PasswordHash: doc.PasswordHash,
		IsAdmin:      doc.IsAdmin,
		CreatedAt:    doc.CreatedAt,
	}, nil
}

func (s *Store) ListApprovedUsers(ctx context.Context) ([]domain.ApprovedUser, error) {
	children, err := s.listChildren(ctx, "approved_users")
	if err != nil {
		return nil, err
	}
	users := make([]domain.ApprovedUser, 0, len(children))
	for key, raw := range children {
		var doc userDoc
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, err
		}
		users = append(users, domain.ApprovedUser{
			Key:       key,
			Email:     doc.Email,
			IsAdmin:   doc.IsAdmin,
			CreatedAt: doc.CreatedAt,
		})
	}
	sortByName(users, func(u domain.ApprovedUser) string { return u.Email })
	return users, nil
}

func (s *Store) DeleteApprovedUser(ctx context.Context, key string) error {
	return s.deleteSubtree(ctx, userPath(key))
}

func sortByName[T any](items []T, key func(T) string) {
	slices.SortFunc(items, func(a, b T) int {
		return strings.Compare(key(a), key(b))
	})
}
