package repository

import (
	"context"

	"github.com/yumplee/swish-payment-service/internal/domain"
)

// Store holds payment records keyed by token. The default implementation is
// an in-memory map; a durable implementation can be substituted without
// touching the lifecycle engine.
//
// UpdateByProviderID applies the forward-only transition rule atomically:
// a record that already reached a terminal status is returned unchanged and
// updating to the current status is an idempotent no-op. Callbacks and
// status polls race and repeat, so neither case is an error.
type Store interface {
	Create(ctx context.Context, rec *domain.PaymentRecord) error
	Get(ctx context.Context, token string) (*domain.PaymentRecord, error)
	UpdateByProviderID(ctx context.Context, providerID string, status domain.Status, paymentReference string) (*domain.PaymentRecord, error)
	ListAll(ctx context.Context) ([]domain.PaymentRecord, error)
}
