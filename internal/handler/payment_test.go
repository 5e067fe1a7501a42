package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yumplee/swish-payment-service/internal/domain"
	"github.com/yumplee/swish-payment-service/internal/handler"
	"github.com/yumplee/swish-payment-service/internal/repository"
	"github.com/yumplee/swish-payment-service/internal/service"
	"github.com/yumplee/swish-payment-service/internal/swish"
)

// stubSwish satisfies the engine's provider dependency without a network.
type stubSwish struct {
	enabled   bool
	createErr error
	status    *swish.StatusResult
	statusErr error
}

func (s *stubSwish) Enabled() bool { return s.enabled }

func (s *stubSwish) CreatePayment(_ context.Context, id string, _ swish.CreatePaymentRequest) (string, error) {
	if s.createErr != nil {
		return "", s.createErr
	}
	return id, nil
}

func (s *stubSwish) CheckStatus(_ context.Context, _ string) (*swish.StatusResult, error) {
	if s.statusErr != nil {
		return nil, s.statusErr
	}
	if s.status != nil {
		return s.status, nil
	}
	return &swish.StatusResult{Status: domain.StatusCreated}, nil
}

func newTestRouter(t *testing.T, client *stubSwish, devMode bool) http.Handler {
	t.Helper()

	store := repository.NewMemoryStore()
	engine := service.NewEngine(store, client, 60*time.Second, "YMP")

	payments := handler.NewPaymentHandler(engine, devMode)
	callbacks := handler.NewCallbackHandler(engine)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /payments", payments.Create)
	mux.HandleFunc("GET /payments", payments.List)
	mux.HandleFunc("GET /payments/{token}", payments.Get)
	mux.HandleFunc("POST /payments/{token}/cancel", payments.Cancel)
	mux.HandleFunc("POST /payments/callback", callbacks.Receive)
	return mux
}

func doJSON(t *testing.T, router http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	var parsed map[string]any
	if rr.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &parsed), "body: %s", rr.Body.String())
	}
	return rr, parsed
}

func errorCode(t *testing.T, body map[string]any) string {
	t.Helper()
	errObj, ok := body["error"].(map[string]any)
	require.True(t, ok, "expected error envelope, got %v", body)
	code, _ := errObj["code"].(string)
	return code
}

func TestCreatePaymentRoute(t *testing.T) {
	t.Run("happy path returns token and provider id", func(t *testing.T) {
		router := newTestRouter(t, &stubSwish{enabled: true}, false)

		rr, body := doJSON(t, router, http.MethodPost, "/payments",
			`{"phoneNumber": "0761234567", "amount": "100.50"}`)

		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		assert.Regexp(t, `^[0-9A-F]{32}$`, body["token"])
		assert.Equal(t, body["token"], body["providerPaymentId"])
		assert.Equal(t, "created", body["status"])
	})

	t.Run("numeric amount is accepted", func(t *testing.T) {
		router := newTestRouter(t, &stubSwish{enabled: true}, false)

		rr, _ := doJSON(t, router, http.MethodPost, "/payments",
			`{"phoneNumber": "46761234567", "amount": 250}`)

		assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	})

	t.Run("malformed body", func(t *testing.T) {
		router := newTestRouter(t, &stubSwish{enabled: true}, false)

		rr, body := doJSON(t, router, http.MethodPost, "/payments", `{not json`)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "INVALID_REQUEST", errorCode(t, body))
	})

	t.Run("missing fields", func(t *testing.T) {
		router := newTestRouter(t, &stubSwish{enabled: true}, false)

		rr, body := doJSON(t, router, http.MethodPost, "/payments", `{}`)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "VALIDATION_FAILED", errorCode(t, body))
	})

	t.Run("invalid phone", func(t *testing.T) {
		router := newTestRouter(t, &stubSwish{enabled: true}, false)

		rr, body := doJSON(t, router, http.MethodPost, "/payments",
			`{"phoneNumber": "12345", "amount": "100"}`)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "INVALID_PHONE", errorCode(t, body))
	})

	t.Run("invalid amount", func(t *testing.T) {
		router := newTestRouter(t, &stubSwish{enabled: true}, false)

		rr, body := doJSON(t, router, http.MethodPost, "/payments",
			`{"phoneNumber": "0761234567", "amount": "100.505"}`)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "INVALID_AMOUNT", errorCode(t, body))
	})

	t.Run("disabled client answers 503", func(t *testing.T) {
		router := newTestRouter(t, &stubSwish{
			enabled:   true,
			createErr: fmt.Errorf("CreatePayment: %w", domain.ErrProviderUnavailable),
		}, false)

		rr, body := doJSON(t, router, http.MethodPost, "/payments",
			`{"phoneNumber": "0761234567", "amount": "100"}`)

		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
		assert.Equal(t, "SWISH_UNAVAILABLE", errorCode(t, body))
	})

	t.Run("provider rejection passes status through", func(t *testing.T) {
		provErr := &swish.ProviderError{
			StatusCode: http.StatusUnprocessableEntity,
			Body:       []byte(`[{"errorCode":"PA01"}]`),
		}
		router := newTestRouter(t, &stubSwish{
			enabled:   true,
			createErr: fmt.Errorf("CreatePayment: %w", provErr),
		}, false)

		rr, body := doJSON(t, router, http.MethodPost, "/payments",
			`{"phoneNumber": "0761234567", "amount": "100"}`)

		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		assert.Equal(t, "SWISH_REJECTED", errorCode(t, body))
		// Raw provider body is a development-only diagnostic.
		assert.NotContains(t, rr.Body.String(), "PA01")
	})

	t.Run("provider rejection includes body in development", func(t *testing.T) {
		provErr := &swish.ProviderError{
			StatusCode: http.StatusUnprocessableEntity,
			Body:       []byte(`[{"errorCode":"PA01"}]`),
		}
		router := newTestRouter(t, &stubSwish{
			enabled:   true,
			createErr: fmt.Errorf("CreatePayment: %w", provErr),
		}, true)

		rr, _ := doJSON(t, router, http.MethodPost, "/payments",
			`{"phoneNumber": "0761234567", "amount": "100"}`)

		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		assert.Contains(t, rr.Body.String(), "PA01")
	})

	t.Run("timeout answers 504", func(t *testing.T) {
		router := newTestRouter(t, &stubSwish{
			enabled:   true,
			createErr: fmt.Errorf("CreatePayment: send: %w", &url.Error{Op: "Put", URL: "https://x", Err: timeoutErr{}}),
		}, false)

		rr, body := doJSON(t, router, http.MethodPost, "/payments",
			`{"phoneNumber": "0761234567", "amount": "100"}`)

		assert.Equal(t, http.StatusGatewayTimeout, rr.Code)
		assert.Equal(t, "SWISH_TIMEOUT", errorCode(t, body))
	})

	t.Run("connection failure answers 502", func(t *testing.T) {
		router := newTestRouter(t, &stubSwish{
			enabled:   true,
			createErr: fmt.Errorf("CreatePayment: send: %w", &url.Error{Op: "Put", URL: "https://x", Err: fmt.Errorf("connection refused")}),
		}, false)

		rr, body := doJSON(t, router, http.MethodPost, "/payments",
			`{"phoneNumber": "0761234567", "amount": "100"}`)

		assert.Equal(t, http.StatusBadGateway, rr.Code)
		assert.Equal(t, "SWISH_UNREACHABLE", errorCode(t, body))
	})
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "timeout awaiting response" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestGetPaymentRoute(t *testing.T) {
	t.Run("unknown token answers 404", func(t *testing.T) {
		router := newTestRouter(t, &stubSwish{enabled: true}, false)

		rr, body := doJSON(t, router, http.MethodGet, "/payments/DOESNOTEXIST", "")

		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Equal(t, "PAYMENT_NOT_FOUND", errorCode(t, body))
	})

	t.Run("created payment is returned as-is", func(t *testing.T) {
		router := newTestRouter(t, &stubSwish{enabled: true}, false)

		_, created := doJSON(t, router, http.MethodPost, "/payments",
			`{"phoneNumber": "0761234567", "amount": "100.50"}`)
		token := created["token"].(string)

		rr, body := doJSON(t, router, http.MethodGet, "/payments/"+token, "")

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, token, body["token"])
		assert.Equal(t, "CREATED", body["status"])
		assert.Equal(t, "46761234567", body["payerAlias"])
		assert.Equal(t, "100.50", body["amount"])
	})

	t.Run("poll result is applied and persisted", func(t *testing.T) {
		client := &stubSwish{enabled: true}
		router := newTestRouter(t, client, false)

		_, created := doJSON(t, router, http.MethodPost, "/payments",
			`{"phoneNumber": "0761234567", "amount": "100.50"}`)
		token := created["token"].(string)

		client.status = &swish.StatusResult{Status: domain.StatusPaid, PaymentReference: "SETTLEMENTREF"}
		rr, body := doJSON(t, router, http.MethodGet, "/payments/"+token, "")

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "PAID", body["status"])
		assert.Equal(t, "SETTLEMENTREF", body["paymentReference"])
		assert.NotEmpty(t, body["completedAt"])
	})

	t.Run("failed poll serves cached record", func(t *testing.T) {
		client := &stubSwish{enabled: true}
		router := newTestRouter(t, client, false)

		_, created := doJSON(t, router, http.MethodPost, "/payments",
			`{"phoneNumber": "0761234567", "amount": "100.50"}`)
		token := created["token"].(string)

		client.statusErr = fmt.Errorf("CheckStatus: send: boom")
		rr, body := doJSON(t, router, http.MethodGet, "/payments/"+token, "")

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "CREATED", body["status"])
	})
}

func TestCallbackRoute(t *testing.T) {
	t.Run("full lifecycle: create, callback, read back", func(t *testing.T) {
		router := newTestRouter(t, &stubSwish{enabled: true}, false)

		_, created := doJSON(t, router, http.MethodPost, "/payments",
			`{"phoneNumber": "0761234567", "amount": "100.50"}`)
		token := created["token"].(string)
		providerID := created["providerPaymentId"].(string)

		rr, body := doJSON(t, router, http.MethodPost, "/payments/callback",
			fmt.Sprintf(`{"id": %q, "status": "PAID", "paymentReference": "6D6CD7406ECE"}`, providerID))
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "Callback processed successfully", body["message"])

		rr, body = doJSON(t, router, http.MethodGet, "/payments/"+token, "")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "PAID", body["status"])
		assert.Equal(t, "6D6CD7406ECE", body["paymentReference"])
	})

	t.Run("duplicate callback is acknowledged and ignored", func(t *testing.T) {
		router := newTestRouter(t, &stubSwish{enabled: true}, false)

		_, created := doJSON(t, router, http.MethodPost, "/payments",
			`{"phoneNumber": "0761234567", "amount": "100"}`)
		token := created["token"].(string)
		providerID := created["providerPaymentId"].(string)

		rr, _ := doJSON(t, router, http.MethodPost, "/payments/callback",
			fmt.Sprintf(`{"id": %q, "status": "PAID"}`, providerID))
		require.Equal(t, http.StatusOK, rr.Code)

		rr, _ = doJSON(t, router, http.MethodPost, "/payments/callback",
			fmt.Sprintf(`{"id": %q, "status": "DECLINED"}`, providerID))
		require.Equal(t, http.StatusOK, rr.Code)

		_, body := doJSON(t, router, http.MethodGet, "/payments/"+token, "")
		assert.Equal(t, "PAID", body["status"])
	})

	t.Run("missing id", func(t *testing.T) {
		router := newTestRouter(t, &stubSwish{enabled: true}, false)

		rr, body := doJSON(t, router, http.MethodPost, "/payments/callback",
			`{"status": "PAID"}`)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "MISSING_PAYMENT_ID", errorCode(t, body))
	})

	t.Run("missing status", func(t *testing.T) {
		router := newTestRouter(t, &stubSwish{enabled: true}, false)

		rr, body := doJSON(t, router, http.MethodPost, "/payments/callback",
			`{"id": "0902D12C44E14687BE6ED25E8AD8F01A"}`)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "VALIDATION_FAILED", errorCode(t, body))
	})

	t.Run("unknown provider id", func(t *testing.T) {
		router := newTestRouter(t, &stubSwish{enabled: true}, false)

		rr, body := doJSON(t, router, http.MethodPost, "/payments/callback",
			`{"id": "FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFF", "status": "PAID"}`)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "UNKNOWN_PAYMENT_ID", errorCode(t, body))
	})
}

func TestCancelRoute(t *testing.T) {
	t.Run("cancels a pending payment", func(t *testing.T) {
		router := newTestRouter(t, &stubSwish{enabled: true}, false)

		_, created := doJSON(t, router, http.MethodPost, "/payments",
			`{"phoneNumber": "0761234567", "amount": "100"}`)
		token := created["token"].(string)

		rr, body := doJSON(t, router, http.MethodPost, "/payments/"+token+"/cancel", "")

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "CANCELLED", body["status"])
	})

	t.Run("settled payment cannot be cancelled", func(t *testing.T) {
		router := newTestRouter(t, &stubSwish{enabled: true}, false)

		_, created := doJSON(t, router, http.MethodPost, "/payments",
			`{"phoneNumber": "0761234567", "amount": "100"}`)
		token := created["token"].(string)
		providerID := created["providerPaymentId"].(string)

		doJSON(t, router, http.MethodPost, "/payments/callback",
			fmt.Sprintf(`{"id": %q, "status": "PAID"}`, providerID))

		rr, body := doJSON(t, router, http.MethodPost, "/payments/"+token+"/cancel", "")

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "PAYMENT_TERMINAL", errorCode(t, body))
	})

	t.Run("unknown token answers 404", func(t *testing.T) {
		router := newTestRouter(t, &stubSwish{enabled: true}, false)

		rr, body := doJSON(t, router, http.MethodPost, "/payments/NOPE/cancel", "")

		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Equal(t, "PAYMENT_NOT_FOUND", errorCode(t, body))
	})
}

func TestListRoute(t *testing.T) {
	router := newTestRouter(t, &stubSwish{enabled: true}, false)

	doJSON(t, router, http.MethodPost, "/payments", `{"phoneNumber": "0761234567", "amount": "100"}`)
	doJSON(t, router, http.MethodPost, "/payments", `{"phoneNumber": "0731112222", "amount": "50.25"}`)

	req := httptest.NewRequest(http.MethodGet, "/payments", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var all []map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &all))
	assert.Len(t, all, 2)
}
