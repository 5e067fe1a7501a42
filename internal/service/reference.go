package service

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
)

const base36 = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewIdempotencyID mints the token used both as the local record key and as
// Swish's deduplication key: a UUID with the dashes stripped, uppercased.
func NewIdempotencyID() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}

// NewPaymentReference builds the merchant reference: prefix, millisecond
// timestamp, six random base36 characters.
func NewPaymentReference(prefix string) string {
	suffix := make([]byte, 6)
	for i := range suffix {
		suffix[i] = base36[rand.IntN(len(base36))]
	}
	return fmt.Sprintf("%s%d%s", prefix, time.Now().UnixMilli(), suffix)
}
