package postgres

import (
	"github.com/shopspring/decimal"

	"dairyledger/internal/domain"
)

func saleRecordForTest(date string, amount int64) domain.SaleRecord {
	return domain.SaleRecord{
		Date:     date,
		MilkType: domain.MilkTypeCow,
		Quantity: decimal.NewFromInt(1),
		Amount:   decimal.NewFromInt(amount),
	}
}
