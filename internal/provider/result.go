package provider

// Result is the JSON-shaped outcome of one operation invocation.
type Result struct {
	// Status is "success" for usable data, "error" or "failed" otherwise.
	Status string `json:"status"`
	// Data carries the operation payload on success.
	Data map[string]interface{} `json:"data,omitempty"`
	// Error carries a human-readable message when Status is not success.
	Error string `json:"error,omitempty"`
}

const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusFailed  = "failed"
)

// Success wraps a payload in a successful result.
func Success(data map[string]interface{}) *Result {
	return &Result{Status: StatusSuccess, Data: data}
}

// Failure builds an error-shaped result. Failure results are never cached
// across conversations.
func Failure(message string) *Result {
	return &Result{Status: StatusError, Error: message}
}

// Failed reports whether the result represents a failure. Both "error" and
// "failed" are recognized so results bridged from external servers that use
// either convention are excluded from the cache.
func (r *Result) Failed() bool {
	if r == nil {
		return true
	}
	return r.Status == StatusError || r.Status == StatusFailed
}
