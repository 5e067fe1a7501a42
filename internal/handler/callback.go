package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/yumplee/swish-payment-service/internal/domain"
	"github.com/yumplee/swish-payment-service/internal/logging"
)

type callbackApplier interface {
	ApplyCallback(ctx context.Context, providerID string, status domain.Status, paymentReference string) (*domain.PaymentRecord, error)
}

// CallbackHandler receives the status push Swish sends to the configured
// callback URL. Authenticity comes from the mutual-TLS channel the callback
// arrives on; there is no separate signature scheme.
type CallbackHandler struct {
	payments callbackApplier
}

func NewCallbackHandler(payments callbackApplier) *CallbackHandler {
	return &CallbackHandler{payments: payments}
}

type callbackPayload struct {
	ID                    string `json:"id"`
	PayeePaymentReference string `json:"payeePaymentReference"`
	Status                string `json:"status"`
	PaymentReference      string `json:"paymentReference"`
}

func (p callbackPayload) validate() []FieldError {
	var errs []FieldError
	if p.ID == "" {
		errs = append(errs, FieldError{Field: "id", Message: "required"})
	}
	if p.Status == "" {
		errs = append(errs, FieldError{Field: "status", Message: "required"})
	}
	return errs
}

func (h *CallbackHandler) Receive(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var payload callbackPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		log.Warn("failed to parse callback payload", "error", err)
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if payload.ID == "" {
		RespondAppError(w, ErrMissingProviderID, nil)
		return
	}
	if fields := payload.validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	rec, err := h.payments.ApplyCallback(r.Context(), payload.ID, domain.Status(payload.Status), payload.PaymentReference)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			log.Warn("callback for unknown payment", "swish_id", payload.ID)
			RespondAppError(w, ErrUnknownProviderID, nil)
			return
		}
		log.Error("failed to apply callback", "swish_id", payload.ID, "error", err)
		RespondAppError(w, ErrInternalError, nil)
		return
	}

	log.Info("callback received",
		"swish_id", payload.ID,
		"status", payload.Status,
		"recorded_status", rec.Status,
	)
	RespondJSON(w, http.StatusOK, map[string]string{"message": "Callback processed successfully"})
}
