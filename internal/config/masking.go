package config

import "strings"

// MaskSecret оставляет первые и последние 4 символа секрета
func MaskSecret(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "***"
	}
	return secret[:4] + strings.Repeat("*", len(secret)-8) + secret[len(secret)-4:]
}

// Masked returns a copy of c that is safe to print.
func (c *Config) Masked() *Config {
	out := *c
	out.LLM.APIKey = MaskSecret(c.LLM.APIKey)
	out.Tools.Weather.APIKey = MaskSecret(c.Tools.Weather.APIKey)
	out.Redis.Password = MaskSecret(c.Redis.Password)
	return &out
}

// ValidationError is a validation failure for a single field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// formatValidationError собирает ошибку с замаскированным значением секрета
func formatValidationError(field, message, secret string) error {
	msg := field + " " + message
	if secret != "" {
		msg += " (value: " + MaskSecret(secret) + ")"
	}
	return &ValidationError{Field: field, Message: msg}
}
