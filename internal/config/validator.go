package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/wesleyorama2/applyload/internal/output"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors struct {
	Errors []*ValidationError
}

func (e *ValidationErrors) Error() string {
	if len(e.Errors) == 0 {
		return "no validation errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e.Errors)))
	for i, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Add adds an error to the collection.
func (e *ValidationErrors) Add(field, message string) {
	e.Errors = append(e.Errors, &ValidationError{Field: field, Message: message})
}

// HasErrors returns true if there are any errors.
func (e *ValidationErrors) HasErrors() bool {
	return len(e.Errors) > 0
}

// Validate checks every field and returns nil or a *ValidationErrors
// listing all problems.
func (c *Config) Validate() error {
	errs := &ValidationErrors{}

	if c.Sessions < 0 {
		errs.Add("sessions", fmt.Sprintf("must be >= 0, got %d", c.Sessions))
	}
	if c.Duration <= 0 {
		errs.Add("duration", fmt.Sprintf("must be > 0, got %s", c.Duration))
	}

	validateBaseURL(c.BaseURL, errs)

	required := []struct {
		field string
		value string
	}{
		{"product", c.Product},
		{"brand", c.Brand},
		{"offerType", c.OfferType},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs.Add(r.field, "is required")
		}
	}

	nonNegative := []struct {
		field string
		value Duration
	}{
		{"rampDelay", c.RampDelay},
		{"stepDwell", c.StepDwell},
		{"pollTimeout", c.PollTimeout},
		{"requestTimeout", c.RequestTimeout},
	}
	for _, d := range nonNegative {
		if d.value < 0 {
			errs.Add(d.field, fmt.Sprintf("must be >= 0, got %s", d.value))
		}
	}

	if c.PollInterval <= 0 {
		errs.Add("pollInterval", fmt.Sprintf("must be > 0, got %s", c.PollInterval))
	}
	if c.MaxPollAttempts < 0 {
		errs.Add("maxPollAttempts", fmt.Sprintf("must be >= 0, got %d", c.MaxPollAttempts))
	}
	if c.MaxRPS < 0 {
		errs.Add("maxRps", fmt.Sprintf("must be >= 0, got %g", c.MaxRPS))
	}

	if _, err := output.ParseFormat(c.Report.Format); err != nil {
		errs.Add("report.format", err.Error())
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error", "err":
	default:
		errs.Add("log.level", fmt.Sprintf("unknown level %q", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs.Add("log.format", fmt.Sprintf("unknown format %q", c.Log.Format))
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

func validateBaseURL(raw string, errs *ValidationErrors) {
	if raw == "" {
		errs.Add("baseUrl", "is required")
		return
	}
	u, err := url.Parse(raw)
	if err != nil {
		errs.Add("baseUrl", fmt.Sprintf("invalid URL: %v", err))
		return
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs.Add("baseUrl", fmt.Sprintf("must be an absolute http(s) URL, got %q", raw))
	}
}
