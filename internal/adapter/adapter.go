// Package adapter defines the transport contract between the bridge core and
// the payment provider. Implementations own everything wire-related: base URL,
// authentication headers, idempotency header, timeouts and logging. They
// return the raw status and body and leave interpretation to the core.
package adapter

import (
	"context"
)

// IdempotencyHeader carries the idempotency key on write requests.
const IdempotencyHeader = "X-Idempotency-Key"

// Response is the raw outcome of one provider call.
type Response struct {
	StatusCode int    // HTTP status code returned by the provider
	Body       []byte // Response body, verbatim
	LatencyMs  int64  // Wall time of the call
}

// IsSuccess reports whether the status is in the 2xx range.
func (r Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Transport is implemented by every provider client.
// Endpoints are paths relative to the configured base URL and may carry a query string.
type Transport interface {
	// Get issues a GET without an idempotency header.
	Get(ctx context.Context, endpoint string) (Response, error)

	// PostJSON issues a POST with a JSON body. A blank idempotencyKey omits the header.
	PostJSON(ctx context.Context, endpoint string, body []byte, idempotencyKey string) (Response, error)
}
