package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yumplee/swish-payment-service/internal/domain"
	"github.com/yumplee/swish-payment-service/internal/logging"
	"github.com/yumplee/swish-payment-service/internal/phone"
	"github.com/yumplee/swish-payment-service/internal/repository"
	"github.com/yumplee/swish-payment-service/internal/swish"
)

type swishClient interface {
	Enabled() bool
	CreatePayment(ctx context.Context, id string, req swish.CreatePaymentRequest) (string, error)
	CheckStatus(ctx context.Context, providerID string) (*swish.StatusResult, error)
}

// Engine owns the payment lifecycle: creation against the provider, and
// reconciliation of a record's status from callbacks, active polls and the
// abandonment heuristic. All transitions go through the store's forward-only
// update, so racing signals cannot flap a settled status.
type Engine struct {
	store           repository.Store
	client          swishClient
	cancelAfter     time.Duration
	referencePrefix string
	now             func() time.Time
}

func NewEngine(store repository.Store, client swishClient, cancelAfter time.Duration, referencePrefix string) *Engine {
	return &Engine{
		store:           store,
		client:          client,
		cancelAfter:     cancelAfter,
		referencePrefix: referencePrefix,
		now:             time.Now,
	}
}

// Create validates the inputs, issues the idempotent create against Swish
// and records the payment as CREATED.
func (e *Engine) Create(ctx context.Context, phoneNumber, amount string) (*domain.PaymentRecord, error) {
	log := logging.FromContext(ctx)

	payerAlias := phone.Normalize(phoneNumber)
	if !phone.IsValid(payerAlias) {
		return nil, fmt.Errorf("Create: %w: must be 8-15 digits, got %q", domain.ErrInvalidPhone, payerAlias)
	}
	if err := domain.ValidateAmount(amount); err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}

	token := NewIdempotencyID()
	reference := NewPaymentReference(e.referencePrefix)

	providerID, err := e.client.CreatePayment(ctx, token, swish.CreatePaymentRequest{
		PaymentReference: reference,
		PayerAlias:       payerAlias,
		Amount:           amount,
	})
	if err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}

	rec := &domain.PaymentRecord{
		Token:             token,
		ProviderPaymentID: providerID,
		Status:            domain.StatusCreated,
		PayerAlias:        payerAlias,
		Amount:            amount,
		PaymentReference:  reference,
		CreatedAt:         e.now().UTC(),
	}
	if err := e.store.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}

	log.Info("payment created", "token", token, "swish_id", providerID, "payer_alias", payerAlias, "amount", amount)
	return rec, nil
}

// Resolve returns the current status of a payment, reconciling a CREATED
// record against the provider when credentials are loaded and otherwise
// against the abandonment heuristic. A failed provider poll never corrupts
// cached state; the last known record is served instead.
func (e *Engine) Resolve(ctx context.Context, token string) (*domain.PaymentRecord, error) {
	log := logging.FromContext(ctx)

	rec, err := e.store.Get(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("Resolve: %w", err)
	}
	if rec.Status.IsTerminal() {
		return rec, nil
	}

	if e.client.Enabled() {
		res, err := e.client.CheckStatus(ctx, rec.ProviderPaymentID)
		switch {
		case err == nil:
			if res.Status != domain.StatusCreated {
				log.Info("status resolved from swish", "token", token, "status", res.Status)
				return e.apply(ctx, rec.ProviderPaymentID, res.Status, res.PaymentReference, "poll")
			}
		case errors.Is(err, swish.ErrPaymentRequestNotFound):
			// Gone on the provider side: the request was cancelled or
			// expired without a callback reaching us.
			log.Info("payment request gone at swish, cancelling", "token", token)
			return e.apply(ctx, rec.ProviderPaymentID, domain.StatusCancelled, "", "poll")
		default:
			log.Warn("swish status check failed, serving cached record", "token", token, "error", err)
		}
	}

	if e.now().Sub(rec.CreatedAt) > e.cancelAfter {
		log.Info("payment exceeded cancellation threshold",
			"token", token,
			"age_s", int(e.now().Sub(rec.CreatedAt).Seconds()),
		)
		return e.apply(ctx, rec.ProviderPaymentID, domain.StatusCancelled, "", "timeout")
	}

	return rec, nil
}

// ApplyCallback applies a provider push. It is the authoritative signal and
// goes straight to the store; the forward-only rule there makes duplicate
// and late callbacks harmless.
func (e *Engine) ApplyCallback(ctx context.Context, providerID string, status domain.Status, paymentReference string) (*domain.PaymentRecord, error) {
	rec, err := e.apply(ctx, providerID, status, paymentReference, "callback")
	if err != nil {
		return nil, fmt.Errorf("ApplyCallback: %w", err)
	}
	logging.FromContext(ctx).Info("callback applied",
		"swish_id", providerID,
		"status", status,
		"recorded_status", rec.Status,
	)
	return rec, nil
}

// Cancel is the explicit user action. Unlike the heuristics it reports a
// terminal record as an error so the route can answer 400.
func (e *Engine) Cancel(ctx context.Context, token string) (*domain.PaymentRecord, error) {
	rec, err := e.store.Get(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("Cancel: %w", err)
	}
	if rec.Status.IsTerminal() {
		return nil, fmt.Errorf("Cancel: %w", domain.ErrPaymentTerminal)
	}

	updated, err := e.apply(ctx, rec.ProviderPaymentID, domain.StatusCancelled, "", "manual")
	if err != nil {
		return nil, fmt.Errorf("Cancel: %w", err)
	}
	// A callback may have settled the record between the read and the
	// update; the store ignores the losing write.
	if updated.Status != domain.StatusCancelled {
		return nil, fmt.Errorf("Cancel: %w", domain.ErrPaymentTerminal)
	}

	logging.FromContext(ctx).Info("payment cancelled manually", "token", token)
	return updated, nil
}

func (e *Engine) List(ctx context.Context) ([]domain.PaymentRecord, error) {
	all, err := e.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	return all, nil
}

func (e *Engine) apply(ctx context.Context, providerID string, status domain.Status, paymentReference, trigger string) (*domain.PaymentRecord, error) {
	rec, err := e.store.UpdateByProviderID(ctx, providerID, status, paymentReference)
	if err != nil {
		return nil, err
	}
	// Count only writes that won; ignored updates on terminal records come
	// back with someone else's status.
	if rec.Status == status {
		recordTransition(string(status), trigger)
	}
	return rec, nil
}
