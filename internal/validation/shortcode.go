package validation

import (
	"net/url"
	"regexp"
	"slices"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"linkpulse-be/internal/apperrors"
)

const (
	MinCustomCodeLength = 3
	MaxCustomCodeLength = 20
	MaxCodeLength       = 32
	MaxURLLength        = 2048
)

var codePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Reserved short codes that cannot be used
var reservedCodes = map[string]bool{
	"admin":     true,
	"api":       true,
	"www":       true,
	"mail":      true,
	"ftp":       true,
	"localhost": true,
	"health":    true,
	"metrics":   true,
	"ws":        true,
	"auth":      true,
	"login":     true,
	"register":  true,
	"signin":    true,
	"signup":    true,
	"signout":   true,
	"logout":    true,
	"shorten":   true,
	"urls":      true,
	"url":       true,
	"stats":     true,
	"analytics": true,
	"redirect":  true,
}

// IsWellFormedCode is the cheap syntactic check applied before any lookup.
func IsWellFormedCode(code string) bool {
	return code != "" && len(code) <= MaxCodeLength && codePattern.MatchString(code)
}

// ValidateCustomShortCode checks a caller-supplied code.
func ValidateCustomShortCode(code string) error {
	if len(code) < MinCustomCodeLength {
		return apperrors.Invalid("short code must be at least %d characters long", MinCustomCodeLength)
	}
	if len(code) > MaxCustomCodeLength {
		return apperrors.Invalid("short code must be at most %d characters long", MaxCustomCodeLength)
	}
	if !codePattern.MatchString(code) {
		return apperrors.Invalid("short code can only contain letters, numbers, hyphens, and underscores")
	}
	if reservedCodes[strings.ToLower(code)] {
		return apperrors.Invalid("short code '%s' is reserved and cannot be used", code)
	}
	return nil
}

// ValidateDestination requires an absolute http(s) URL.
func ValidateDestination(raw string) error {
	if raw == "" {
		return apperrors.Invalid("URL is required")
	}
	if len(raw) > MaxURLLength {
		return apperrors.Invalid("URL must be at most %d characters long", MaxURLLength)
	}
	u, err := url.ParseRequestURI(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return apperrors.Invalid("URL must be an absolute URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return apperrors.Invalid("URL must use http or https")
	}
	return nil
}

// NormalizeTags treats tags as a set: trimmed, de-duplicated, sorted.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	slices.Sort(out)
	return out
}

// RegisterBindings installs the `shortcode` tag on gin's validator engine.
func RegisterBindings() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	return v.RegisterValidation("shortcode", func(fl validator.FieldLevel) bool {
		return ValidateCustomShortCode(fl.Field().String()) == nil
	})
}
