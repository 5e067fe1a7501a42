package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/yumplee/swish-payment-service/internal/domain"
	"github.com/yumplee/swish-payment-service/internal/logging"
	"github.com/yumplee/swish-payment-service/internal/swish"
)

type lifecycle interface {
	Create(ctx context.Context, phoneNumber, amount string) (*domain.PaymentRecord, error)
	Resolve(ctx context.Context, token string) (*domain.PaymentRecord, error)
	Cancel(ctx context.Context, token string) (*domain.PaymentRecord, error)
	List(ctx context.Context) ([]domain.PaymentRecord, error)
}

type PaymentHandler struct {
	payments lifecycle
	devMode  bool
}

func NewPaymentHandler(payments lifecycle, devMode bool) *PaymentHandler {
	return &PaymentHandler{payments: payments, devMode: devMode}
}

// Amount is a json.Number so the web form may send "100.00" or 100; it is
// kept as a string from here on.
type createPaymentRequest struct {
	PhoneNumber string      `json:"phoneNumber"`
	Amount      json.Number `json:"amount"`
}

func (r createPaymentRequest) Validate() []FieldError {
	var errs []FieldError
	if r.PhoneNumber == "" {
		errs = append(errs, FieldError{Field: "phoneNumber", Message: "required"})
	}
	if r.Amount == "" {
		errs = append(errs, FieldError{Field: "amount", Message: "required"})
	}
	return errs
}

type createPaymentResponse struct {
	Token             string `json:"token"`
	ProviderPaymentID string `json:"providerPaymentId"`
	Status            string `json:"status"`
}

func (h *PaymentHandler) Create(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req createPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	rec, err := h.payments.Create(r.Context(), req.PhoneNumber, req.Amount.String())
	if err != nil {
		log.Warn("payment creation failed", "error", err)
		h.respondCreateError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, createPaymentResponse{
		Token:             rec.Token,
		ProviderPaymentID: rec.ProviderPaymentID,
		Status:            "created",
	})
}

// respondCreateError handles the provider failure taxonomy on top of the
// shared domain mapping: rejected requests pass the provider's body through
// in development and a generic message in production; unreachable and
// timed-out calls become gateway-class answers.
func (h *PaymentHandler) respondCreateError(w http.ResponseWriter, err error) {
	var provErr *swish.ProviderError
	if errors.As(err, &provErr) {
		var details any
		if h.devMode {
			details = json.RawMessage(provErr.Body)
			if !json.Valid(provErr.Body) {
				details = string(provErr.Body)
			}
		}
		code := "SWISH_REJECTED"
		if provErr.StatusCode >= 500 {
			code = "SWISH_ERROR"
		}
		RespondAppError(w, &AppError{
			Status:  provErr.StatusCode,
			Code:    code,
			Message: "Swish rejected the payment request",
		}, details)
		return
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			RespondAppError(w, ErrSwishTimeout, nil)
			return
		}
		RespondAppError(w, ErrSwishUnreachable, nil)
		return
	}

	RespondDomainError(w, err)
}

func (h *PaymentHandler) Get(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")

	rec, err := h.payments.Resolve(r.Context(), token)
	if err != nil {
		logging.FromContext(r.Context()).Warn("payment lookup failed", "token", token, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, rec)
}

func (h *PaymentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")

	rec, err := h.payments.Cancel(r.Context(), token)
	if err != nil {
		logging.FromContext(r.Context()).Warn("manual cancellation failed", "token", token, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, rec)
}

func (h *PaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	all, err := h.payments.List(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Error("payment listing failed", "error", err)
		RespondAppError(w, ErrInternalError, nil)
		return
	}

	RespondJSON(w, http.StatusOK, all)
}
