package coupons

import (
	"errors"
	"strings"

	"github.com/spf13/viper"

	"smartcv-backend/internal/shared/telemetry"
)

var (
	ErrCodeRequired  = errors.New("Coupon code is required")
	ErrNotConfigured = errors.New("Coupon code is invalid")
	ErrUnknownCode   = errors.New("Invalid coupon code")
)

// EnvKey holds the comma-separated allow-list.
const EnvKey = "VALID_COUPON_CODES"

// Source returns the raw allow-list. It is consulted on every call so the
// list can change without a restart.
type Source func() string

// EnvSource reads EnvKey from the process environment through viper.
func EnvSource() Source {
	v := viper.New()
	v.AutomaticEnv()
	return func() string { return v.GetString(EnvKey) }
}

// Validator checks coupon codes against the allow-list.
type Validator struct {
	source Source
}

// NewValidator builds a Validator. A nil source reads the environment.
func NewValidator(source Source) *Validator {
	if source == nil {
		source = EnvSource()
	}
	return &Validator{source: source}
}

// Validate returns the normalized code or one of the package errors.
func (v *Validator) Validate(code string) (string, error) {
	normalized := Normalize(code)
	if normalized == "" {
		return "", ErrCodeRequired
	}

	allowed := parseList(v.source())
	if len(allowed) == 0 {
		telemetry.Warn("coupon.not_configured", map[string]any{"env": EnvKey})
		return normalized, ErrNotConfigured
	}
	if _, ok := allowed[normalized]; !ok {
		telemetry.Info("coupon.rejected", map[string]any{"code": normalized})
		return normalized, ErrUnknownCode
	}
	telemetry.Info("coupon.accepted", map[string]any{"code": normalized})
	return normalized, nil
}

// Normalize trims and uppercases a code.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func parseList(raw string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, part := range strings.Split(raw, ",") {
		if code := Normalize(part); code != "" {
			out[code] = struct{}{}
		}
	}
	return out
}
