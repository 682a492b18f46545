package health

import (
	"regexp"
	"time"
)

// State is the health level of a component
type State string

const (
	StateHealthy   State = "healthy"
	StateDegraded  State = "degraded"
	StateUnhealthy State = "unhealthy"
)

// Pre-compiled patterns for error message sanitization
var (
	urlRegex        = regexp.MustCompile(`(?:https?|nats|tls|redis|wss?)://[^\s]+`)
	ipAddrRegex     = regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}(?::\d{2,5})?\b`)
	unixPathRegex   = regexp.MustCompile(`(?:^|\s)/[a-zA-Z0-9/_.-]+`)
	credentialRegex = regexp.MustCompile(`(?i)(password|token|secret|credential)\s*[:=]\s*[^,\s}]+`)
)

// Status is the health of one component, optionally with sub-components
type Status struct {
	Component   string    `json:"component"`
	State       State     `json:"state"`
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
	SubStatuses []Status  `json:"sub_statuses,omitempty"`
	Details     *Details  `json:"details,omitempty"`
}

// Details carries counters shown next to a status
type Details struct {
	Uptime       time.Duration `json:"uptime,omitempty"`
	Pending      int           `json:"pending,omitempty"`
	Dropped      int64         `json:"dropped,omitempty"`
	LastActivity time.Time     `json:"last_activity,omitempty"`
}

// IsHealthy reports the healthy state
func (s Status) IsHealthy() bool { return s.State == StateHealthy }

// IsDegraded reports the degraded state
func (s Status) IsDegraded() bool { return s.State == StateDegraded }

// IsUnhealthy reports the unhealthy state
func (s Status) IsUnhealthy() bool { return s.State == StateUnhealthy }

// WithDetails returns a copy carrying details
func (s Status) WithDetails(d *Details) Status {
	s.Details = d
	return s
}

// WithSubStatus returns a copy with sub appended
func (s Status) WithSubStatus(sub Status) Status {
	subs := make([]Status, len(s.SubStatuses), len(s.SubStatuses)+1)
	copy(subs, s.SubStatuses)
	s.SubStatuses = append(subs, sub)
	return s
}

// Err returns nil for healthy and degraded statuses and an error naming the
// component otherwise. It adapts a Status to an HTTP health probe.
func (s Status) Err() error {
	if !s.IsUnhealthy() {
		return nil
	}
	return &UnhealthyError{Component: s.Component, Message: s.Message}
}

// UnhealthyError is returned by Status.Err
type UnhealthyError struct {
	Component string
	Message   string
}

// Error implements error
func (e *UnhealthyError) Error() string {
	if e.Message == "" {
		return e.Component + " unhealthy"
	}
	return e.Component + " unhealthy: " + e.Message
}

// Sanitize strips addresses, paths and credentials from an error message
// before it is exposed on a health endpoint.
func Sanitize(msg string) string {
	if msg == "" {
		return ""
	}
	msg = urlRegex.ReplaceAllString(msg, "[URL]")
	msg = ipAddrRegex.ReplaceAllString(msg, "[IP]")
	msg = unixPathRegex.ReplaceAllStringFunc(msg, func(m string) string {
		if m[0] == '/' {
			return "[PATH]"
		}
		return m[:1] + "[PATH]"
	})
	return credentialRegex.ReplaceAllString(msg, "$1=[REDACTED]")
}

// FromError returns healthy for a nil error and an unhealthy status with the
// sanitized error message otherwise.
func FromError(component string, err error) Status {
	if err == nil {
		return NewHealthy(component, "ok")
	}
	return NewUnhealthy(component, Sanitize(err.Error()))
}
