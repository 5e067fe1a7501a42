package swish

import (
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/yumplee/swish-payment-service/internal/config"
)

// Credentials is the client certificate pair used to authenticate against
// the Swish API. Source records which configuration channel supplied it.
type Credentials struct {
	Certificate tls.Certificate
	Source      string
}

// LoadCredentials resolves the certificate configuration once at startup.
// Raw PEM env vars win, base64-encoded PEM is the fallback. Neither being
// present is not an error: it returns nil and the client runs disabled.
func LoadCredentials(cfg *config.Config) (*Credentials, error) {
	certPEM, keyPEM, source := cfg.CertPEM, cfg.KeyPEM, "pem"

	if certPEM == "" || keyPEM == "" {
		if cfg.CertBase64 == "" || cfg.KeyBase64 == "" {
			return nil, nil
		}
		cert, err := base64.StdEncoding.DecodeString(cfg.CertBase64)
		if err != nil {
			return nil, fmt.Errorf("LoadCredentials: decode cert: %w", err)
		}
		key, err := base64.StdEncoding.DecodeString(cfg.KeyBase64)
		if err != nil {
			return nil, fmt.Errorf("LoadCredentials: decode key: %w", err)
		}
		certPEM, keyPEM, source = string(cert), string(key), "base64"
	}

	if !strings.Contains(certPEM, "-----BEGIN") || !strings.Contains(keyPEM, "-----BEGIN") {
		return nil, fmt.Errorf("LoadCredentials: certificate and key must be PEM encoded")
	}

	pair, err := tls.X509KeyPair([]byte(certPEM), []byte(keyPEM))
	if err != nil {
		return nil, fmt.Errorf("LoadCredentials: %w", err)
	}

	return &Credentials{Certificate: pair, Source: source}, nil
}
