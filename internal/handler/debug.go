package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/yumplee/swish-payment-service/internal/domain"
	"github.com/yumplee/swish-payment-service/internal/logging"
	"github.com/yumplee/swish-payment-service/internal/repository"
	"github.com/yumplee/swish-payment-service/internal/swish"
)

// DebugHandler is the test-support surface, mounted under /debug/ in
// development only. It is not part of the production contract.
type DebugHandler struct {
	store    repository.Store
	payments callbackApplier
	creds    *swish.Credentials
}

func NewDebugHandler(store repository.Store, payments callbackApplier, creds *swish.Credentials) *DebugHandler {
	return &DebugHandler{store: store, payments: payments, creds: creds}
}

type simulateCallbackRequest struct {
	Status string `json:"status"`
}

// SimulateCallback drives a record through a provider transition without a
// real Swish callback, for end-to-end testing of the polling frontend.
func (h *DebugHandler) SimulateCallback(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())
	token := r.PathValue("token")

	var req simulateCallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	status := domain.Status(req.Status)
	if status == "" {
		status = domain.StatusPaid
	}

	rec, err := h.store.Get(r.Context(), token)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	updated, err := h.payments.ApplyCallback(r.Context(), rec.ProviderPaymentID, status, rec.PaymentReference)
	if err != nil {
		log.Error("simulated callback failed", "token", token, "error", err)
		RespondAppError(w, ErrInternalError, nil)
		return
	}

	log.Info("simulated callback applied", "token", token, "status", status)
	RespondJSON(w, http.StatusOK, map[string]any{
		"message": "Test callback processed successfully",
		"payment": updated,
	})
}

// CertStatus reports whether provider credentials loaded and from which
// channel. It never exposes the material itself.
func (h *DebugHandler) CertStatus(w http.ResponseWriter, r *http.Request) {
	source := "none"
	if h.creds != nil {
		source = h.creds.Source
	}
	RespondJSON(w, http.StatusOK, map[string]any{
		"configured": h.creds != nil,
		"source":     source,
	})
}
