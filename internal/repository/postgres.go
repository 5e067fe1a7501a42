package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/yumplee/swish-payment-service/internal/domain"
)

const paymentColumns = `token, provider_payment_id, status, payer_alias,
	amount, payment_reference, created_at, updated_at, completed_at`

// PostgresStore is the durable Store implementation, selected at startup
// when DATABASE_URL is set. The forward-only transition rule is enforced by
// the conditional UPDATE, so concurrent writers need no extra locking.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, rec *domain.PaymentRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO payments (
			token, provider_payment_id, status, payer_alias,
			amount, payment_reference, created_at, updated_at, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.Token, rec.ProviderPaymentID, rec.Status, rec.PayerAlias,
		rec.Amount, rec.PaymentReference, rec.CreatedAt, rec.UpdatedAt, rec.CompletedAt,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("Create: %w", domain.ErrDuplicateToken)
		}
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, token string) (*domain.PaymentRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE token = $1`, token,
	)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("Get: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("Get: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) UpdateByProviderID(ctx context.Context, providerID string, status domain.Status, paymentReference string) (*domain.PaymentRecord, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE payments
		SET status = $2,
			payment_reference = CASE WHEN $3 <> '' THEN $3 ELSE payment_reference END,
			updated_at = CASE WHEN $4 THEN updated_at ELSE now() END,
			completed_at = CASE WHEN $4 THEN now() ELSE completed_at END
		WHERE provider_payment_id = $1 AND status = 'CREATED' AND status <> $2`,
		providerID, status, paymentReference, status.IsCompletion(),
	)
	if err != nil {
		return nil, fmt.Errorf("UpdateByProviderID: %w", err)
	}

	// Zero rows affected means either unknown id or an ignored update on a
	// terminal record; the follow-up read distinguishes the two.
	row := s.db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE provider_payment_id = $1`, providerID,
	)
	rec, scanErr := scanRecord(row)
	if scanErr != nil {
		if errors.Is(scanErr, sql.ErrNoRows) {
			return nil, fmt.Errorf("UpdateByProviderID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("UpdateByProviderID: %w", scanErr)
	}
	return rec, nil
}

func (s *PostgresStore) ListAll(ctx context.Context) ([]domain.PaymentRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+paymentColumns+` FROM payments ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("ListAll: %w", err)
	}
	defer rows.Close()

	var all []domain.PaymentRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("ListAll: %w", err)
		}
		all = append(all, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListAll: %w", err)
	}
	return all, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*domain.PaymentRecord, error) {
	var rec domain.PaymentRecord
	err := s.Scan(
		&rec.Token, &rec.ProviderPaymentID, &rec.Status, &rec.PayerAlias,
		&rec.Amount, &rec.PaymentReference, &rec.CreatedAt, &rec.UpdatedAt, &rec.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func isDuplicateKey(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
