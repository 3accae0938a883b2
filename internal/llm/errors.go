package llm

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyResponse is returned when a backend answers 2xx without a
	// usable reply.
	ErrEmptyResponse = errors.New("empty or malformed response")

	// ErrNoModel is returned when no model is selected.
	ErrNoModel = errors.New("no model selected")
)

// ConfigError reports settings that make a request impossible to build.
// It is detected at request time, never at load.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s %s", e.Field, e.Reason)
}

// APIError is a non-2xx answer from a backend.
type APIError struct {
	Backend string
	Status  int
	Body    string
}

func (e *APIError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	if body == "" {
		return fmt.Sprintf("%s: HTTP %d", e.Backend, e.Status)
	}
	return fmt.Sprintf("%s: HTTP %d: %s", e.Backend, e.Status, body)
}

// IsConfigError reports whether err is a *ConfigError or ErrNoModel.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce) || errors.Is(err, ErrNoModel)
}
