package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yumplee/swish-payment-service/internal/domain"
)

// MemoryStore is the default Store: a mutex-guarded map plus a secondary
// index from provider payment id to token for callback correlation. State
// lives only for the lifetime of the process.
type MemoryStore struct {
	mu         sync.Mutex
	records    map[string]*domain.PaymentRecord
	byProvider map[string]string
	now        func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:    make(map[string]*domain.PaymentRecord),
		byProvider: make(map[string]string),
		now:        time.Now,
	}
}

func (s *MemoryStore) Create(_ context.Context, rec *domain.PaymentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[rec.Token]; ok {
		return fmt.Errorf("Create: %w", domain.ErrDuplicateToken)
	}

	stored := *rec
	s.records[rec.Token] = &stored
	s.byProvider[rec.ProviderPaymentID] = rec.Token
	return nil
}

func (s *MemoryStore) Get(_ context.Context, token string) (*domain.PaymentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[token]
	if !ok {
		return nil, fmt.Errorf("Get: %w", domain.ErrNotFound)
	}
	copied := *rec
	return &copied, nil
}

// UpdateByProviderID performs the read-modify-write under the store lock so
// racing callbacks, polls and timeout inference cannot interleave. Once a
// record is terminal the update is ignored and the current record returned.
func (s *MemoryStore) UpdateByProviderID(_ context.Context, providerID string, status domain.Status, paymentReference string) (*domain.PaymentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, ok := s.byProvider[providerID]
	if !ok {
		return nil, fmt.Errorf("UpdateByProviderID: %w", domain.ErrNotFound)
	}
	rec := s.records[token]

	if rec.Status.IsTerminal() || rec.Status == status {
		copied := *rec
		return &copied, nil
	}

	now := s.now().UTC()
	rec.Status = status
	if paymentReference != "" {
		rec.PaymentReference = paymentReference
	}
	if status.IsCompletion() {
		rec.CompletedAt = &now
	} else {
		rec.UpdatedAt = &now
	}

	copied := *rec
	return &copied, nil
}

func (s *MemoryStore) ListAll(_ context.Context) ([]domain.PaymentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := make([]domain.PaymentRecord, 0, len(s.records))
	for _, rec := range s.records {
		all = append(all, *rec)
	}
	return all, nil
}
