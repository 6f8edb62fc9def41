package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

var ErrUnknownProvider = errors.New("unknown payment provider")

// Request is the rail-agnostic payment instruction. Adapters map it onto
// their own wire protocol.
type Request struct {
	Reference    string // unique per attempt, idempotency key at the rail
	AmountFr     int64
	CommissionFr int64 // platform share, used by rails with native fee splitting
	Currency     string
	PayerRef     string // phone number or payment-method token, rail-specific
	Description  string
}

// Result is the normalized outcome of a provider call. Pending means the
// rail accepted the request but confirmation arrives later.
type Result struct {
	Success       bool
	Pending       bool
	ProviderTxnID string
	RawResponse   string
	ErrorMessage  string
}

// Error wraps a provider failure. Retryable failures (network, 5xx) may be
// resubmitted under a fresh reference; terminal ones must not.
type Error struct {
	Provider  string
	Message   string
	Retryable bool
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

type Adapter interface {
	Name() string
	Submit(ctx context.Context, req Request) (*Result, error)
	Refund(ctx context.Context, providerTxnID string, amountFr int64) (*Result, error)
	SupportsRefund() bool
}

// Registry resolves adapters by the provider name carried on payment
// requests and records.
type Registry struct {
	adapters map[string]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Name()] = a
	}
	return r
}

func (r *Registry) Get(name string) (Adapter, error) {
	a, ok := r.adapters[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return a, nil
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	return names
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// readBody drains up to 64KB of a provider response for audit storage.
func readBody(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, 64<<10))
	if err != nil {
		return ""
	}
	return string(body)
}

// transportError wraps a failed round trip. Always retryable.
func transportError(name string, err error) *Error {
	return &Error{Provider: name, Message: err.Error(), Retryable: true}
}

// statusError classifies an HTTP error status: 5xx rail outages are
// retryable, 4xx rejections are terminal.
func statusError(name string, statusCode int, body string) *Error {
	return &Error{
		Provider:  name,
		Message:   fmt.Sprintf("status %d: %s", statusCode, body),
		Retryable: statusCode >= 500,
	}
}
