package service

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/raphaelgruber/fairprobe/internal/models"
)

// NormalizeEndpoint validates a user-supplied target URL and returns the
// canonical form that gets persisted. Scheme-less input is assumed to mean
// plain http; anything outside http/https is rejected.
func NormalizeEndpoint(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("%w: endpoint url is empty", models.ErrInvalidInput)
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q", models.ErrInvalidInput, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: endpoint url needs a host", models.ErrInvalidInput)
	}
	return u.String(), nil
}
