// mock-swish is a stand-in for the Swish merchant simulator, for local
// development without certificates. It accepts payment requests, serves
// status reads and can push a callback on demand:
//
//	PUT  /swish-cpcapi/api/v2/paymentrequests/{id}   create a payment request
//	GET  /swish-cpcapi/api/v1/paymentrequests/{id}   read its current status
//	POST /mock/paymentrequests/{id}/complete         settle it and fire the callback
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"regexp"
	"sync"
	"time"

	"github.com/yumplee/swish-payment-service/internal/logging"
)

type paymentRequest struct {
	ID                    string `json:"id"`
	PayeePaymentReference string `json:"payeePaymentReference"`
	PayerAlias            string `json:"payerAlias"`
	PayeeAlias            string `json:"payeeAlias"`
	Amount                string `json:"amount"`
	Currency              string `json:"currency"`
	Message               string `json:"message"`
	CallbackURL           string `json:"callbackUrl,omitempty"`
	Status                string `json:"status"`
	PaymentReference      string `json:"paymentReference,omitempty"`
	DateCreated           string `json:"dateCreated"`
}

type server struct {
	mu       sync.Mutex
	requests map[string]*paymentRequest
	client   *http.Client
}

var idPattern = regexp.MustCompile(`^[0-9A-F]{32}$`)

func (s *server) create(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	log := logging.FromContext(r.Context())

	if !idPattern.MatchString(id) {
		writeError(w, http.StatusUnprocessableEntity, "PA02", "Instruction UUID is malformed")
		return
	}

	var req paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "PA01", "Parameter is not correct")
		return
	}
	switch {
	case req.PayerAlias == "":
		writeError(w, http.StatusUnprocessableEntity, "PA01", "payerAlias is required")
		return
	case req.PayeeAlias == "":
		writeError(w, http.StatusUnprocessableEntity, "PA01", "payeeAlias is required")
		return
	case req.Amount == "":
		writeError(w, http.StatusUnprocessableEntity, "AM06", "amount is required")
		return
	}

	req.ID = id
	req.Status = "CREATED"
	req.DateCreated = time.Now().UTC().Format(time.RFC3339)

	s.mu.Lock()
	if existing, ok := s.requests[id]; ok {
		// Idempotent PUT: a replay of the same id answers as the first call did.
		s.mu.Unlock()
		log.Info("replayed payment request", "id", id, "status", existing.Status)
		w.WriteHeader(http.StatusCreated)
		return
	}
	s.requests[id] = &req
	s.mu.Unlock()

	log.Info("payment request created", "id", id, "payer", req.PayerAlias, "amount", req.Amount)
	w.Header().Set("Location", r.URL.String())
	w.WriteHeader(http.StatusCreated)
}

func (s *server) status(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	s.mu.Lock()
	req, ok := s.requests[id]
	s.mu.Unlock()
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(req)
}

type completeRequest struct {
	Status string `json:"status"`
}

// complete settles a payment request and, when the creator supplied a
// callbackUrl, pushes the result the way the real API would.
func (s *server) complete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	log := logging.FromContext(r.Context())

	var body completeRequest
	json.NewDecoder(r.Body).Decode(&body)
	status := body.Status
	if status == "" {
		status = "PAID"
	}

	s.mu.Lock()
	req, ok := s.requests[id]
	if ok && req.Status == "CREATED" {
		req.Status = status
		if status == "PAID" {
			req.PaymentReference = fmt.Sprintf("%X", time.Now().UnixNano())
		}
	}
	var snapshot paymentRequest
	if ok {
		snapshot = *req
	}
	s.mu.Unlock()

	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	if snapshot.CallbackURL != "" {
		if err := s.fireCallback(snapshot); err != nil {
			log.Warn("callback delivery failed", "id", id, "url", snapshot.CallbackURL, "error", err)
		} else {
			log.Info("callback delivered", "id", id, "status", snapshot.Status)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snapshot)
}

func (s *server) fireCallback(req paymentRequest) error {
	payload, err := json.Marshal(map[string]string{
		"id":                    req.ID,
		"payeePaymentReference": req.PayeePaymentReference,
		"status":                req.Status,
		"paymentReference":      req.PaymentReference,
	})
	if err != nil {
		return err
	}

	resp, err := s.client.Post(req.CallbackURL, "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("callback answered %d", resp.StatusCode)
	}
	return nil
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode([]map[string]string{
		{"errorCode": code, "errorMessage": message},
	})
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "3002"
	}
	log := logging.Init("mock-swish", os.Getenv("LOG_LEVEL"), "development")

	srv := &server{
		requests: make(map[string]*paymentRequest),
		client:   &http.Client{Timeout: 10 * time.Second},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("PUT /swish-cpcapi/api/v2/paymentrequests/{id}", srv.create)
	mux.HandleFunc("GET /swish-cpcapi/api/v1/paymentrequests/{id}", srv.status)
	mux.HandleFunc("POST /mock/paymentrequests/{id}/complete", srv.complete)

	log.Info("mock swish listening", "port", port)
	if err := http.ListenAndServe(":"+port, mux); err != nil {
		log.Error("server failed", "error", err)
		os.Exit(1)
	}
}
