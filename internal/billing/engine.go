// Package billing holds the balance reconciliation arithmetic. Everything
// here is a pure function over in-memory records; stores and handlers call
// in, nothing calls out.
package billing

import (
	"time"

	"github.com/shopspring/decimal"

	"dairyledger/internal/domain"
)

// SalesTotal sums the amounts of a month's sale records. The input order
// does not matter.
func SalesTotal(sales []domain.SaleRecord) decimal.Decimal {
	total := decimal.Zero
	for _, s := range sales {
		total = total.Add(s.Amount)
	}
	return total
}

// Reconcile computes a customer's bill for one month. Carry-over comes from
// the prior month's record; paidAmount and the displayed balances come from
// the current month's record when one exists, otherwise the prior balances
// are shown as the outstanding position.
//
//	totalDue = max(salesSum + prior.pending - prior.advance - current.paid, 0)
//
// Missing records are zero-valued, so a brand-new customer reconciles to a
// bill of exactly the month's sales.
func Reconcile(customerID, month string, sales []domain.SaleRecord, prior, current domain.PaymentRecord, haveCurrent bool) domain.BillReport {
	salesSum := SalesTotal(sales)

	due := salesSum.Add(prior.PendingBalance).Sub(prior.AdvanceBalance).Sub(current.PaidAmount)
	if due.IsNegative() {
		due = decimal.Zero
	}

	report := domain.BillReport{
		CustomerID:      customerID,
		Month:           month,
		Sales:           sales,
		MonthlySalesSum: salesSum,
		PaidAmount:      current.PaidAmount,
		TotalDue:        due,
	}
	if haveCurrent {
		report.PendingBalance = current.PendingBalance
		report.AdvanceBalance = current.AdvanceBalance
	} else {
		report.PendingBalance = prior.PendingBalance
		report.AdvanceBalance = prior.AdvanceBalance
	}
	return report
}

// ApplyPayment folds one payment into a month's record. totalToBePaid is the
// reconciled amount owed for the month before any of this month's payments;
// alreadyPaid is the sum recorded so far. The remainder after the new payment
// splits into pending (still owed) or advance (overpaid), never both.
func ApplyPayment(totalToBePaid, alreadyPaid, payment decimal.Decimal, at time.Time) domain.PaymentRecord {
	paid := alreadyPaid.Add(payment)
	remaining := totalToBePaid.Sub(paid)

	record := domain.PaymentRecord{
		PaidAmount: paid,
		Timestamp:  at,
	}
	switch {
	case remaining.IsPositive():
		record.PendingBalance = remaining
		record.Status = domain.PaymentStatusPending
	case remaining.IsNegative():
		record.AdvanceBalance = remaining.Neg()
		record.Status = domain.PaymentStatusPaid
	default:
		record.Status = domain.PaymentStatusPaid
	}
	return record
}
