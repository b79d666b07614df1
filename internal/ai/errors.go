package ai

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kozaktomas/sign-vision/internal/constants"
)

var (
	// ErrMissingAPIKey is returned when a client is built without credentials.
	ErrMissingAPIKey = errors.New("OpenRouter API key is not configured")

	// ErrPayloadTooLarge marks a video above constants.MaxFileSizeMB.
	ErrPayloadTooLarge = errors.New("payload too large")
)

// ValidationError reports input that was rejected before any network call.
// Message is user facing.
type ValidationError struct {
	Message string
	SizeMB  float64 // measured upload size for oversized payloads
	Err     error
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func newPayloadTooLarge(sizeMB float64) *ValidationError {
	return &ValidationError{
		Message: fmt.Sprintf("الملف كبير جداً (%.1f MB). الحد الأقصى %d MB.", sizeMB, constants.MaxFileSizeMB),
		SizeMB:  sizeMB,
		Err:     ErrPayloadTooLarge,
	}
}

// UpstreamError reports a failed or unusable response from the model API.
// StatusCode is zero when the request succeeded but the payload lacked the
// expected fields.
type UpstreamError struct {
	StatusCode int
	Detail     string // response excerpt, at most constants.MaxErrorDetailRunes
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Detail)
	}
	return "Unexpected API response: " + e.Detail
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// DecodeError is returned when no candidate encoding yields valid JSON.
type DecodeError struct {
	Tried []string
}

func (e *DecodeError) Error() string {
	return "response is not valid JSON in any of: " + strings.Join(e.Tried, ", ")
}

// truncateRunes keeps at most n characters of s without splitting a rune.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
