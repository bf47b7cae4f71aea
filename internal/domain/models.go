package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Ledger documents store amounts and quantities as JSON numbers, matching
	// the persisted layout this backend inherited.
	decimal.MarshalJSONWithoutQuotes = true
}

type Branch struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Society struct {
	ID       string `json:"id"`
	BranchID string `json:"branch_id"`
	Name     string `json:"name"`
}

type Customer struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	MilkType string `json:"milkType"`
}

// MilkRates is the process-wide rate card. The half-litre rates apply to an
// exact 0.5 L sale; everything else is quantity times the one-litre rate.
type MilkRates struct {
	CowHalfLtr     decimal.Decimal `json:"cowHalfLtr"`
	CowOneLtr      decimal.Decimal `json:"cowOneLtr"`
	BuffaloHalfLtr decimal.Decimal `json:"buffaloHalfLtr"`
	BuffaloOneLtr  decimal.Decimal `json:"buffaloOneLtr"`
}

// SaleRecord is one day's delivery for a customer. Amount is fixed at write
// time from the rate card; later rate changes never touch past sales.
type SaleRecord struct {
	Date     string          `json:"date"`
	MilkType string          `json:"milkType"`
	Quantity decimal.Decimal `json:"quantity"`
	Amount   decimal.Decimal `json:"amount"`
}

// PaymentRecord is the single reconciliation document for a customer and
// month. At most one of PendingBalance and AdvanceBalance is ever positive.
type PaymentRecord struct {
	PendingBalance decimal.Decimal `json:"pendingBalance"`
	AdvanceBalance decimal.Decimal `json:"advanceBalance"`
	PaidAmount     decimal.Decimal `json:"paidAmount"`
	Status         string          `json:"status"`
	Timestamp      time.Time       `json:"timestamp"`
}

// BillReport is the reconciliation output consumed by invoice assembly.
type BillReport struct {
	CustomerID      string          `json:"customer_id"`
	Month           string          `json:"month"`
	Sales           []SaleRecord    `json:"sales"`
	MonthlySalesSum decimal.Decimal `json:"monthly_sales_sum"`
	PaidAmount      decimal.Decimal `json:"paid_amount"`
	PendingBalance  decimal.Decimal `json:"pending_balance"`
	AdvanceBalance  decimal.Decimal `json:"advance_balance"`
	TotalDue        decimal.Decimal `json:"total_due"`
}

type ApprovedUser struct {
	Key          string    `json:"key"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	IsAdmin      bool      `json:"isAdmin"`
	CreatedAt    time.Time `json:"created_at"`
}

type Actor struct {
	Email string
	Role  string
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type BranchCreateRequest struct {
	Name string `json:"name"`
}

type RenameRequest struct {
	Name string `json:"name"`
}

type SocietyCreateRequest struct {
	BranchID string `json:"branch_id"`
	Name     string `json:"name"`
}

type CustomerCreateRequest struct {
	BranchID  string `json:"branch_id"`
	SocietyID string `json:"society_id"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	MilkType  string `json:"milkType"`
}

type CustomerUpdateRequest struct {
	Name     *string `json:"name,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	MilkType *string `json:"milkType,omitempty"`
}

type SaleUpsertRequest struct {
	BranchID   string          `json:"branch_id"`
	SocietyID  string          `json:"society_id"`
	CustomerID string          `json:"customer_id"`
	Date       string          `json:"date"`
	Quantity   decimal.Decimal `json:"quantity"`
}

type PaymentRequest struct {
	CustomerID string          `json:"customer_id"`
	Month      string          `json:"month"`
	Amount     decimal.Decimal `json:"amount"`
}

type InvoiceRequest struct {
	BranchID   string `json:"branch_id"`
	SocietyID  string `json:"society_id"`
	CustomerID string `json:"customer_id"`
	Month      string `json:"month"`
}

// Invoice bundles the customer, the reconciled bill, the share-ready text
// message and the wa.me link for it.
type Invoice struct {
	Customer    Customer   `json:"customer"`
	Month       string     `json:"month"`
	Report      BillReport `json:"report"`
	Message     string     `json:"message"`
	WhatsAppURL string     `json:"whatsapp_url"`
}

type ApprovedUserCreateRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	IsAdmin  bool   `json:"isAdmin"`
}

const (
	MilkTypeCow     = "Cow"
	MilkTypeBuffalo = "Buffalo"
)

const (
	PaymentStatusPaid    = "Paid"
	PaymentStatusPending = "Pending"
)

const (
	RoleAdmin    = "admin"
	RoleOperator = "operator"
)

// UserKey derives the approved-user lookup key from an email address. The
// email is normalized and hashed so the key is stable across casing and not
// reversible.
func UserKey(email string) string {
	normalized := strings.ToLower(strings.TrimSpace(email))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// ValidMilkType reports whether t is one of the two supported milk types.
func ValidMilkType(t string) bool {
	return t == MilkTypeCow || t == MilkTypeBuffalo
}
