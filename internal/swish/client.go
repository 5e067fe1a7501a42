package swish

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/yumplee/swish-payment-service/internal/config"
	"github.com/yumplee/swish-payment-service/internal/domain"
	"github.com/yumplee/swish-payment-service/internal/logging"
)

// Swish serves payment creation on the v2 API and status reads on v1.
const (
	createPath = "/swish-cpcapi/api/v2/paymentrequests"
	statusPath = "/swish-cpcapi/api/v1/paymentrequests"
)

// checkStatus is an idempotent read, safe to retry on transient failures.
// createPayment is never retried here: reissuing it without the same
// idempotency id could request a duplicate payment.
const (
	statusRetries = 2
	retryBackoff  = 250 * time.Millisecond
)

// ErrPaymentRequestNotFound distinguishes a provider 404 from transient
// failures: a missing payment request means cancelled or expired, not
// "try again later".
var ErrPaymentRequestNotFound = errors.New("payment request not found at provider")

// ProviderError is a non-2xx answer from Swish, carrying the raw body for
// the development-mode diagnostic path.
type ProviderError struct {
	StatusCode int
	Body       []byte
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("swish: status %d: %s", e.StatusCode, e.Body)
}

// Client talks to the Swish API over mutual TLS. A Client built without
// credentials is disabled: every call returns domain.ErrProviderUnavailable
// so the rest of the system keeps serving cached state.
type Client struct {
	baseURL     string
	payeeAlias  string
	callbackURL string
	currency    string
	message     string
	httpClient  *http.Client
	enabled     bool
}

func NewClient(cfg *config.Config, creds *Credentials) *Client {
	c := &Client{
		baseURL:     cfg.SwishAPIURL,
		payeeAlias:  cfg.PayeeAlias,
		callbackURL: cfg.CallbackURL,
		currency:    cfg.Currency,
		message:     cfg.PaymentMessage,
	}
	if creds == nil {
		return c
	}

	tlsCfg := &tls.Config{
		Certificates: []tls.Certificate{creds.Certificate},
		// The MSS sandbox presents a chain that does not verify against
		// system roots.
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	}
	c.httpClient = &http.Client{
		Timeout:   cfg.ProviderTimeout(),
		Transport: &http.Transport{TLSClientConfig: tlsCfg},
	}
	c.enabled = true
	return c
}

func (c *Client) Enabled() bool {
	return c.enabled
}

// CreatePaymentRequest carries the per-payment fields; merchant identity,
// currency and message come from configuration.
type CreatePaymentRequest struct {
	PaymentReference string
	PayerAlias       string
	Amount           string
}

type paymentRequestPayload struct {
	PayeePaymentReference string `json:"payeePaymentReference"`
	PayerAlias            string `json:"payerAlias"`
	PayeeAlias            string `json:"payeeAlias"`
	Amount                string `json:"amount"`
	Currency              string `json:"currency"`
	Message               string `json:"message"`
	CallbackURL           string `json:"callbackUrl,omitempty"`
}

type paymentRequestResponse struct {
	ID string `json:"id"`
}

// CreatePayment issues the idempotent PUT keyed by id (32 uppercase hex
// chars). It returns the provider-assigned payment id, which is the
// idempotency id itself when Swish does not carry one in the response.
func (c *Client) CreatePayment(ctx context.Context, id string, req CreatePaymentRequest) (string, error) {
	if !c.enabled {
		return "", fmt.Errorf("CreatePayment: %w", domain.ErrProviderUnavailable)
	}
	log := logging.FromContext(ctx)

	payload := paymentRequestPayload{
		PayeePaymentReference: req.PaymentReference,
		PayerAlias:            req.PayerAlias,
		PayeeAlias:            c.payeeAlias,
		Amount:                req.Amount,
		Currency:              c.currency,
		Message:               c.message,
		CallbackURL:           c.callbackURL,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("CreatePayment: marshal: %w", err)
	}

	url := c.baseURL + createPath + "/" + id
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("CreatePayment: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("CreatePayment: send: %w", err)
	}
	defer resp.Body.Close()

	log.Info("swish create response",
		"swish_id", id,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("CreatePayment: %w", &ProviderError{StatusCode: resp.StatusCode, Body: respBody})
	}

	var parsed paymentRequestResponse
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, &parsed); err != nil {
			log.Warn("unparseable swish create body, falling back to idempotency id", "error", err)
		}
	}
	if parsed.ID != "" {
		return parsed.ID, nil
	}
	return id, nil
}

// StatusResult is the provider's current view of a payment request.
type StatusResult struct {
	Status           domain.Status
	PaymentReference string
}

type statusResponse struct {
	ID               string `json:"id"`
	Status           string `json:"status"`
	PaymentReference string `json:"paymentReference"`
}

func (c *Client) CheckStatus(ctx context.Context, providerID string) (*StatusResult, error) {
	if !c.enabled {
		return nil, fmt.Errorf("CheckStatus: %w", domain.ErrProviderUnavailable)
	}

	var lastErr error
	for attempt := 0; attempt <= statusRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("CheckStatus: %w", ctx.Err())
			case <-time.After(time.Duration(attempt) * retryBackoff):
			}
		}

		res, err := c.checkStatusOnce(ctx, providerID)
		if err == nil {
			return res, nil
		}

		var provErr *ProviderError
		if errors.Is(err, ErrPaymentRequestNotFound) ||
			(errors.As(err, &provErr) && provErr.StatusCode < 500) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

func (c *Client) checkStatusOnce(ctx context.Context, providerID string) (*StatusResult, error) {
	url := c.baseURL + statusPath + "/" + providerID
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("CheckStatus: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("CheckStatus: send: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("CheckStatus: %w", ErrPaymentRequestNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("CheckStatus: %w", &ProviderError{StatusCode: resp.StatusCode, Body: respBody})
	}

	var parsed statusResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("CheckStatus: parse body: %w", err)
	}
	return &StatusResult{
		Status:           domain.Status(parsed.Status),
		PaymentReference: parsed.PaymentReference,
	}, nil
}
