package store

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"dairyledger/internal/domain"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrValidation  = errors.New("validation failed")
	ErrUnavailable = errors.New("store unavailable")
)

type Repository interface {
	CreateBranch(ctx context.Context, branch domain.Branch) (*domain.Branch, error)
	ListBranches(ctx context.Context) ([]domain.Branch, error)
	GetBranch(ctx context.Context, branchID string) (*domain.Branch, error)
	RenameBranch(ctx context.Context, branchID string, name string) (*domain.Branch, error)
	DeleteBranch(ctx context.Context, branchID string) error
	CreateSociety(ctx context.Context, society domain.Society) (*domain.Society, error)
	ListSocieties(ctx context.Context, branchID string) ([]domain.Society, error)
	GetSociety(ctx context.Context, branchID string, societyID string) (*domain.Society, error)
	RenameSociety(ctx context.Context, branchID string, societyID string, name string) (*domain.Society, error)
	DeleteSociety(ctx context.Context, branchID string, societyID string) error
	CreateCustomer(ctx context.Context, branchID string, societyID string, customer domain.Customer) (*domain.Customer, error)
	ListCustomers(ctx context.Context, branchID string, societyID string) ([]domain.Customer, error)
	GetCustomer(ctx context.Context, branchID string, societyID string, customerID string) (*domain.Customer, error)
	UpdateCustomer(ctx context.Context, branchID string, societyID string, customer domain.Customer) (*domain.Customer, error)
	DeleteCustomer(ctx context.Context, branchID string, societyID string, customerID string) error
	GetMilkRates(ctx context.Context) (*domain.MilkRates, error)
	SetMilkRates(ctx context.Context, rates domain.MilkRates) error
	UpsertSale(ctx context.Context, customerID string, month string, sale domain.SaleRecord) error
	ListSales(ctx context.Context, customerID string, month string) ([]domain.SaleRecord, error)
	DeleteSale(ctx context.Context, customerID string, month string, date string) error
	GetPayment(ctx context.Context, customerID string, month string) (*domain.PaymentRecord, error)

	// RecordPayment runs the whole read-modify-write for a month's payment
	// inside the store so concurrent payments cannot clobber each other:
	// postgres locks the payment document in a transaction, the memory
	// implementation holds its mutex across the computation.
	RecordPayment(ctx context.Context, customerID string, month string, amount decimal.Decimal) (*domain.PaymentRecord, error)
	CreateApprovedUser(ctx context.Context, user domain.ApprovedUser) error
	GetApprovedUser(ctx context.Context, key string) (*domain.ApprovedUser, error)
	ListApprovedUsers(ctx context.Context) ([]domain.ApprovedUser, error)
	DeleteApprovedUser(ctx context.Context, key string) error
}
