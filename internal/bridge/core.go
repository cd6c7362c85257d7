// Package bridge maps the eight QR point-of-sale actions onto the Mercado Pago
// REST API and normalizes every outcome into a Result.
//
// Operations never return an error and never panic: validation failures,
// transport errors and unexpected provider payloads all become Result codes.
// A Core holds only read-only collaborators and is safe for concurrent use.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/yourorg/mpqr-bridge/internal/adapter"
	"github.com/yourorg/mpqr-bridge/internal/monitor"
	"github.com/yourorg/mpqr-bridge/internal/policy"
)

// Settings is the slice of configuration the core reads.
type Settings interface {
	// Endpoint returns the path template for a named endpoint; %s marks the path parameter.
	Endpoint(name string) string
	// UserID returns the merchant user id for the active stage, or "".
	UserID() string
}

// Core executes bridge operations against a Transport.
type Core struct {
	settings  Settings
	transport adapter.Transport
	logger    *zap.Logger
	policy    *policy.Enforcer
	contracts *monitor.Contracts
}

// Option customizes a Core.
type Option func(*Core)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(c *Core) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithPolicy replaces the default cancel/refund rules.
func WithPolicy(e *policy.Enforcer) Option {
	return func(c *Core) {
		if e != nil {
			c.policy = e
		}
	}
}

// WithContracts replaces the embedded payload contracts.
func WithContracts(ct *monitor.Contracts) Option {
	return func(c *Core) {
		if ct != nil {
			c.contracts = ct
		}
	}
}

// NewCore creates a Core.
func NewCore(settings Settings, transport adapter.Transport, opts ...Option) *Core {
	c := &Core{
		settings:  settings,
		transport: transport,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.policy == nil {
		c.policy = policy.Default()
	}
	if c.contracts == nil {
		ct, err := monitor.DefaultContracts()
		if err != nil {
			c.logger.Error("payload contracts unavailable", zap.Error(err))
		}
		c.contracts = ct
	}
	return c
}

type operation func(c *Core, ctx context.Context, req Request) Result

var operations = map[Action]operation{
	ActionCreateOrder: func(c *Core, ctx context.Context, req Request) Result {
		return c.CreateOrder(ctx, req.Order)
	},
	ActionGetOrder: func(c *Core, ctx context.Context, req Request) Result {
		return c.GetOrder(ctx, req.OrderID)
	},
	ActionCancelOrder: func(c *Core, ctx context.Context, req Request) Result {
		return c.CancelOrder(ctx, req.OrderID, req.IdempotencyKey)
	},
	ActionRefundOrder: func(c *Core, ctx context.Context, req Request) Result {
		return c.RefundOrder(ctx, req.OrderID, req.IdempotencyKey)
	},
	ActionCreateStore: func(c *Core, ctx context.Context, req Request) Result {
		return c.CreateStore(ctx, req.Store)
	},
	ActionCreatePos: func(c *Core, ctx context.Context, req Request) Result {
		return c.CreatePos(ctx, req.Pos)
	},
	ActionSearchStores: func(c *Core, ctx context.Context, req Request) Result {
		return c.SearchStores(ctx, req.UserID, req.Search)
	},
	ActionSearchPos: func(c *Core, ctx context.Context, req Request) Result {
		return c.SearchPos(ctx, req.Search)
	},
}

// Execute runs the operation named by req.Action. Unknown actions yield ResInvalidAction.
func (c *Core) Execute(ctx context.Context, req Request) Result {
	action, ok := ParseAction(string(req.Action))
	if !ok {
		return Failure(ResInvalidAction, "invalid action: %s", strings.TrimSpace(string(req.Action)))
	}
	return operations[action](c, ctx, req.withDefaultKey())
}

// endpoint expands the named template with arg as the first %s.
func (c *Core) endpoint(name, arg string) string {
	tmpl := strings.TrimSpace(c.settings.Endpoint(name))
	if !strings.Contains(tmpl, "%s") {
		return tmpl
	}
	return strings.Replace(tmpl, "%s", url.PathEscape(arg), 1)
}

// encode marshals body and checks it against the contract for kind.
func (c *Core) encode(kind monitor.Kind, body interface{}) ([]byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding %s body: %w", kind, err)
	}
	if c.contracts != nil {
		if err := c.contracts.Check(kind, data); err != nil {
			return nil, err
		}
	}
	return data, nil
}

// allows evaluates a policy rule over lower-cased, trimmed parameters.
func (c *Core) allows(ruleID string, params map[string]string) (bool, error) {
	args := make(map[string]interface{}, len(params))
	for k, v := range params {
		args[k] = strings.ToLower(strings.TrimSpace(v))
	}
	return c.policy.Allows(ruleID, args)
}

// httpFailure maps a non-2xx response to ResHTTP, keeping the body.
func httpFailure(op string, resp adapter.Response) Result {
	raw := string(resp.Body)
	return Result{
		Res:     ResHTTP,
		Msg:     fmt.Sprintf("%s: HTTP %d - %s", op, resp.StatusCode, raw),
		RawJSON: raw,
	}
}

func (c *Core) logTechnical(op string, err error) Result {
	c.logger.Warn("operation failed", zap.String("op", op), zap.Error(err))
	return technical(op, err)
}
