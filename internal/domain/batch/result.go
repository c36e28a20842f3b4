// Package batch describes per-document outcomes of an upload batch.
package batch

// ItemStatus is the processing outcome of a single batch item.
type ItemStatus string

// Batch item status values.
const (
	StatusOK    ItemStatus = "ok"
	StatusError ItemStatus = "error"
)

// Result is the outcome of uploading one document.
type Result struct {
	key        string
	status     ItemStatus
	statusCode int
	message    string
}

// NewOK creates a successful batch result.
func NewOK(key string, statusCode int) Result {
	return Result{key: key, status: StatusOK, statusCode: statusCode}
}

// NewError creates a failed batch result.
func NewError(key string, statusCode int, message string) Result {
	return Result{key: key, status: StatusError, statusCode: statusCode, message: message}
}

// Key returns the document key.
func (r Result) Key() string { return r.key }

// Status returns the processing outcome.
func (r Result) Status() ItemStatus { return r.status }

// Succeeded reports whether the document was stored.
func (r Result) Succeeded() bool { return r.status == StatusOK }

// StatusCode returns the per-item status code reported by the service (0 if none).
func (r Result) StatusCode() int { return r.statusCode }

// Message returns the failure message, if any.
func (r Result) Message() string { return r.message }

// Failed returns the failed results in order.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Succeeded() {
			out = append(out, r)
		}
	}
	return out
}
