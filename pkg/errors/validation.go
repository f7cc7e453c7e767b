package errors

import (
	"strings"
	"unicode"
)

// Limits for identifiers accepted from users and backends.
const (
	MaxNodeIDLength   = 512
	MaxViewNameLength = 200
	MaxNeighborLimit  = 1000
)

// ValidateNodeID validates a node identifier before it is sent to the
// neighbor service. IDs are opaque (e.g. "P:alice") but must be non-empty,
// bounded, and free of control characters.
func ValidateNodeID(id string) error {
	if strings.TrimSpace(id) == "" {
		return New(ErrCodeValidation, "node id cannot be empty")
	}
	if len(id) > MaxNodeIDLength {
		return New(ErrCodeValidation, "node id too long (max %d characters)", MaxNodeIDLength)
	}
	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeValidation, "node id contains invalid control characters")
		}
	}
	return nil
}

// ValidateViewName validates the name given to a saved view.
// Blank names are rejected client-side so no request is ever issued.
func ValidateViewName(name string) error {
	if strings.TrimSpace(name) == "" {
		return New(ErrCodeValidation, "view name cannot be empty")
	}
	if len(name) > MaxViewNameLength {
		return New(ErrCodeValidation, "view name too long (max %d characters)", MaxViewNameLength)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeValidation, "view name contains invalid control characters")
		}
	}
	return nil
}

// ValidateViewID validates a view identifier used in a load request.
// View ids end up in URL paths and storage keys, so separators are refused.
func ValidateViewID(id string) error {
	if id == "" {
		return New(ErrCodeValidation, "view id cannot be empty")
	}
	if strings.ContainsAny(id, "/\\") || strings.Contains(id, "..") {
		return New(ErrCodeValidation, "view id contains invalid characters: %q", id)
	}
	for _, r := range id {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeValidation, "view id contains invalid characters: %q", id)
		}
	}
	return nil
}

// ValidateLimit validates the neighbor limit of an expansion query.
// Zero means "use the default" and is accepted.
func ValidateLimit(limit int) error {
	if limit < 0 {
		return New(ErrCodeValidation, "limit must not be negative (got %d)", limit)
	}
	if limit > MaxNeighborLimit {
		return New(ErrCodeValidation, "limit too large (max %d)", MaxNeighborLimit)
	}
	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeValidation, "URL cannot be empty")
	}

	// Simple scheme validation without full URL parsing
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeValidation, "URL must use http or https scheme")
	}

	return nil
}
