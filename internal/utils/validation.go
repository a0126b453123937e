package utils

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"
)

// Payload size limits (in bytes)
const (
	MaxQuerySize = 16 * 1024       // 16KB - single query
	MaxDataSize  = 5 * 1024 * 1024 // 5MB - pasted text, uploaded file or page text
	MaxHTMLSize  = 10 * 1024 * 1024
)

var (
	ErrEmpty       = errors.New("value is empty")
	ErrInvalidUTF8 = errors.New("value is not valid UTF-8")
	ErrTooLarge    = errors.New("value too large")
	ErrInvalidURL  = errors.New("invalid url")
)

// SizeError reports a payload over its limit. It matches ErrTooLarge.
type SizeError struct {
	Name string
	Size int
	Max  int
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("%s size %d bytes exceeds maximum %d bytes", e.Name, e.Size, e.Max)
}

func (e *SizeError) Is(target error) bool {
	return target == ErrTooLarge
}

// SizeValidator validates payload size limits
type SizeValidator struct {
	name    string
	maxSize int
}

// NewSizeValidator creates a validator for the named payload
func NewSizeValidator(name string, maxSize int) *SizeValidator {
	return &SizeValidator{name: name, maxSize: maxSize}
}

// ValidateSize checks if the data size is within limits
func (v *SizeValidator) ValidateSize(data []byte) error {
	if size := len(data); size > v.maxSize {
		return &SizeError{Name: v.name, Size: size, Max: v.maxSize}
	}
	return nil
}

// ValidateText trims s and checks it is non-empty, valid UTF-8 and within limits.
func (v *SizeValidator) ValidateText(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%s: %w", v.name, ErrEmpty)
	}
	if !utf8.ValidString(s) {
		return "", fmt.Errorf("%s: %w", v.name, ErrInvalidUTF8)
	}
	if err := v.ValidateSize([]byte(s)); err != nil {
		return "", err
	}
	return s, nil
}

// ValidateQuery trims and validates a user query
func ValidateQuery(q string) (string, error) {
	return NewSizeValidator("query", MaxQuerySize).ValidateText(q)
}

// ValidateData trims and validates submitted data
func ValidateData(data string) (string, error) {
	return NewSizeValidator("data", MaxDataSize).ValidateText(data)
}

// ValidateURL accepts absolute http and https URLs with a host
func ValidateURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("url: %w", ErrEmpty)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme %q must be http or https", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: %q has no host", ErrInvalidURL, raw)
	}
	return nil
}
