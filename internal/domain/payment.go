package domain

import "time"

// Status is the payment request status as reported by Swish. The set is
// open: the provider may introduce new values and they pass through as-is.
type Status string

const (
	StatusCreated   Status = "CREATED"
	StatusPaid      Status = "PAID"
	StatusDeclined  Status = "DECLINED"
	StatusError     Status = "ERROR"
	StatusCancelled Status = "CANCELLED"
)

// IsTerminal reports whether no further transition is permitted. Any status
// other than CREATED ends the lifecycle, including provider-introduced ones.
func (s Status) IsTerminal() bool {
	return s != "" && s != StatusCreated
}

// IsCompletion reports whether the status is one of the four known final
// outcomes that stamp CompletedAt. Unknown pass-through statuses stamp
// UpdatedAt instead.
func (s Status) IsCompletion() bool {
	switch s {
	case StatusPaid, StatusDeclined, StatusError, StatusCancelled:
		return true
	}
	return false
}

// PaymentRecord tracks a single Swish payment request from creation to a
// terminal state. Token is the client-facing key; ProviderPaymentID
// correlates inbound callbacks and may equal Token when Swish echoes it.
type PaymentRecord struct {
	Token             string     `json:"token"`
	ProviderPaymentID string     `json:"providerPaymentId"`
	Status            Status     `json:"status"`
	PayerAlias        string     `json:"payerAlias"`
	Amount            string     `json:"amount"`
	PaymentReference  string     `json:"paymentReference"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         *time.Time `json:"updatedAt,omitempty"`
	CompletedAt       *time.Time `json:"completedAt,omitempty"`
}
