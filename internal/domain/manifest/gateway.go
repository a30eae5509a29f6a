package manifest

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrGateway is the root of every carrier failure
var ErrGateway = errors.New("carrier gateway error")

var (
	// ErrGatewayUnavailable covers transport failures and timeouts
	ErrGatewayUnavailable = fmt.Errorf("%w: carrier unavailable", ErrGateway)

	// ErrGatewayRejected covers non-2xx responses
	ErrGatewayRejected = fmt.Errorf("%w: carrier rejected request", ErrGateway)
)

// Gateway submits manifests to the carrier. The response is the carrier's
// JSON document as-is; reconciliation copes with its shape.
type Gateway interface {
	Submit(ctx context.Context, payload *Payload) (map[string]any, error)
}

// RawGateway forwards a caller-built payload unchanged
type RawGateway interface {
	SubmitRaw(ctx context.Context, payload map[string]any) (map[string]any, error)
}

// ShipmentGateway acts on shipments the carrier already holds
type ShipmentGateway interface {
	// Edit updates a manifested shipment; details must name its waybill
	Edit(ctx context.Context, details map[string]any) (map[string]any, error)
	Cancel(ctx context.Context, waybill string) (map[string]any, error)
	Track(ctx context.Context, waybill string) (map[string]any, error)
}

const redactedValue = "***REDACTED***"

var secretKeys = map[string]struct{}{
	"token":         {},
	"authorization": {},
	"auth":          {},
	"api_key":       {},
	"apikey":        {},
}

// Redact returns a copy of v with credential-looking keys masked, for logging.
// Maps and slices are walked recursively; v itself is not modified.
func Redact(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if _, secret := secretKeys[strings.ToLower(k)]; secret {
				out[k] = redactedValue
				continue
			}
			out[k] = Redact(val)
		}
		return out
	case RawRecord:
		return Redact(map[string]any(t))
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = Redact(val)
		}
		return out
	default:
		return v
	}
}
