package cache

import (
	"context"
	"time"

	"dairyledger/internal/domain"
)

type BillCache interface {
	Get(ctx context.Context, key string) (*domain.BillReport, bool, error)
	Set(ctx context.Context, key string, value *domain.BillReport, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type NoopBillCache struct{}

func (NoopBillCache) Get(_ context.Context, _ string) (*domain.BillReport, bool, error) {
	return nil, false, nil
}

func (NoopBillCache) Set(_ context.Context, _ string, _ *domain.BillReport, _ time.Duration) error {
	return nil
}

func (NoopBillCache) Delete(_ context.Context, _ string) error {
	return nil
}
