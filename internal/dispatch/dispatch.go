// Package dispatch runs one bridge call end to end: configuration, core
// execution, metrics, tracing, audit journal and operation events.
package dispatch

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/yourorg/mpqr-bridge/internal/adapter"
	"github.com/yourorg/mpqr-bridge/internal/adapter/mercadopago"
	"github.com/yourorg/mpqr-bridge/internal/audit"
	"github.com/yourorg/mpqr-bridge/internal/bridge"
	"github.com/yourorg/mpqr-bridge/internal/config"
	bridgectx "github.com/yourorg/mpqr-bridge/internal/context"
	"github.com/yourorg/mpqr-bridge/internal/events"
	"github.com/yourorg/mpqr-bridge/internal/logging"
	"github.com/yourorg/mpqr-bridge/internal/metrics"
	"github.com/yourorg/mpqr-bridge/internal/monitor"
	"github.com/yourorg/mpqr-bridge/internal/policy"
	"github.com/yourorg/mpqr-bridge/internal/slots"
)

const (
	tracerName     = "github.com/yourorg/mpqr-bridge/internal/dispatch"
	publishTimeout = 5 * time.Second
	invalidAction  = "invalid"
)

// Loader resolves configuration for a call. The argument is the caller's
// config path override, possibly blank.
type Loader func(path string) (*config.Config, error)

// TransportFactory builds the provider transport for a call.
type TransportFactory func(cfg *config.Config, logger *zap.Logger) adapter.Transport

// StaticLoader always returns cfg and ignores the override.
func StaticLoader(cfg *config.Config) Loader {
	return func(string) (*config.Config, error) { return cfg, nil }
}

// MercadoPagoTransport builds a mercadopago.Client from the call's configuration.
func MercadoPagoTransport(cfg *config.Config, logger *zap.Logger) adapter.Transport {
	opts := mercadopago.OptionsFromConfig(cfg)
	opts.Logger = logger
	return mercadopago.NewClient(opts)
}

// Dispatcher executes bridge requests. Collaborators not injected through
// options are derived from each call's configuration.
type Dispatcher struct {
	load      Loader
	transport TransportFactory
	logger    *zap.Logger
	journal   audit.Recorder
	publisher events.Publisher
	contracts *monitor.Contracts
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

func WithLoader(l Loader) Option { return func(d *Dispatcher) { d.load = l } }

func WithTransportFactory(f TransportFactory) Option {
	return func(d *Dispatcher) { d.transport = f }
}

func WithLogger(l *zap.Logger) Option { return func(d *Dispatcher) { d.logger = l } }

// WithJournal records every call to r instead of a per-call mp.audit.dir journal.
func WithJournal(r audit.Recorder) Option { return func(d *Dispatcher) { d.journal = r } }

// WithPublisher sends events to p instead of a per-call mp.events.brokers producer.
func WithPublisher(p events.Publisher) Option { return func(d *Dispatcher) { d.publisher = p } }

// WithContracts validates payloads against ct instead of the embedded or
// mp.contracts.dir contracts.
func WithContracts(ct *monitor.Contracts) Option { return func(d *Dispatcher) { d.contracts = ct } }

// New creates a Dispatcher that loads configuration with config.Load and
// talks to Mercado Pago unless told otherwise.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		load:      config.Load,
		transport: MercadoPagoTransport,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = zap.NewNop()
	}
	return d
}

// Call runs the positional convention: read the slots, execute, write the
// output slots back into params and return the result code.
func (d *Dispatcher) Call(ctx context.Context, params []string) int {
	res := d.Execute(ctx, slots.Read(params))
	slots.Write(params, res)
	return res.Res
}

// Execute runs one request. It never panics.
func (d *Dispatcher) Execute(ctx context.Context, req bridge.Request) (out bridge.Result) {
	raw := strings.TrimSpace(string(req.Action))
	action, ok := bridge.ParseAction(raw)
	name := string(action)
	if !ok {
		name = invalidAction
	}

	tc := bridgectx.NewTraceContext(name)
	logger := logging.WithTrace(d.logger, tc.TraceID, name)
	ctx, span := otel.Tracer(tracerName).Start(ctx, "bridge."+name,
		trace.WithAttributes(attribute.String("mp.trace_id", tc.TraceID)),
	)

	var cfg *config.Config
	closeLog := func() {}
	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic during dispatch", zap.Any("panic", r), zap.Stack("stack"))
			out = bridge.Failure(bridge.ResFatal, "exception: %v", r)
		}
		d.complete(ctx, span, tc, logger, cfg, out)
		closeLog()
	}()

	if !ok {
		return bridge.Failure(bridge.ResInvalidAction, "invalid action: %s", raw)
	}

	var err error
	cfg, err = d.load(req.ConfigPath)
	if err != nil {
		logger.Error("configuration load failed", zap.Error(err))
		return bridge.Failure(bridge.ResFatal, "exception: %v", err)
	}

	logger, closeLog = withFileLog(logger, cfg)

	enforcer, err := enforcerFor(cfg)
	if err != nil {
		logger.Error("policy rules invalid", zap.Error(err))
		return bridge.Failure(bridge.ResFatal, "exception: %v", err)
	}

	contracts, err := d.contractsFor(cfg)
	if err != nil {
		logger.Error("payload contracts invalid", zap.Error(err))
		return bridge.Failure(bridge.ResFatal, "exception: %v", err)
	}

	core := bridge.NewCore(cfg, d.transport(cfg, logger),
		bridge.WithLogger(logger),
		bridge.WithPolicy(enforcer),
		bridge.WithContracts(contracts),
	)
	req.Action = action
	return core.Execute(ctx, req)
}

// enforcerFor compiles mp.policy.* overrides, or returns the shared defaults.
func enforcerFor(cfg *config.Config) (*policy.Enforcer, error) {
	cancelExpr := cfg.Get("mp.policy.cancel", "")
	refundExpr := cfg.Get("mp.policy.refund", "")
	if cancelExpr == "" && refundExpr == "" {
		return policy.Default(), nil
	}
	return policy.NewEnforcer(policy.WithOverrides(cancelExpr, refundExpr))
}

// contractsFor returns the injected contracts, those under mp.contracts.dir,
// or nil for the embedded defaults.
func (d *Dispatcher) contractsFor(cfg *config.Config) (*monitor.Contracts, error) {
	if d.contracts != nil {
		return d.contracts, nil
	}
	if dir := cfg.ContractsDir(); dir != "" {
		return monitor.LoadContractsDir(dir)
	}
	return nil, nil
}

// withFileLog tees logger into mp.log.file when it is set. The returned func
// flushes and closes the file.
func withFileLog(logger *zap.Logger, cfg *config.Config) (*zap.Logger, func()) {
	path := cfg.LogFile()
	if path == "" {
		return logger, func() {}
	}
	fileCore, closeFile, err := logging.NewFileCore(path, logging.Options{Service: "mpqr-bridge", Env: cfg.Stage()})
	if err != nil {
		logger.Warn("log file unavailable", zap.String("path", path), zap.Error(err))
		return logger, func() {}
	}
	tee := zap.New(zapcore.NewTee(logger.Core(), fileCore))
	return tee, func() {
		_ = fileCore.Sync()
		closeFile()
	}
}

func (d *Dispatcher) complete(ctx context.Context, span trace.Span, tc bridgectx.TraceContext, logger *zap.Logger, cfg *config.Config, out bridge.Result) {
	elapsed := tc.Elapsed()

	span.SetAttributes(
		attribute.Int("mp.res", out.Res),
		attribute.String("mp.id", out.ID),
		attribute.String("mp.status", out.Status),
	)
	if !out.OK() && !out.Business() {
		span.SetStatus(codes.Error, out.Msg)
	}
	span.End()

	metrics.RecordOperation(tc.Action, out.Res, elapsed)

	entry := audit.Entry{
		TraceID:   tc.TraceID,
		Action:    tc.Action,
		Res:       out.Res,
		Msg:       out.Msg,
		ID:        out.ID,
		Status:    out.Status,
		PaymentID: out.PaymentID,
		LatencyMs: elapsed.Milliseconds(),
	}
	if err := d.record(cfg, entry); err != nil {
		logger.Warn("audit journal write failed", zap.Error(err))
	}
	if err := d.publish(ctx, cfg, entry); err != nil {
		logger.Warn("operation event not published", zap.Error(err))
	}

	level := zapcore.InfoLevel
	if !out.OK() && !out.Business() {
		level = zapcore.WarnLevel
	}
	logger.Log(level, "dispatch complete",
		zap.Int("res", out.Res),
		zap.String("msg", out.Msg),
		zap.String("id", out.ID),
		zap.String("status", out.Status),
		zap.Duration("elapsed", elapsed),
	)
}

func (d *Dispatcher) record(cfg *config.Config, entry audit.Entry) error {
	if d.journal != nil {
		return d.journal.Record(entry)
	}
	if cfg == nil || cfg.AuditDir() == "" {
		return nil
	}
	j, err := audit.NewJournal(cfg.AuditDir())
	if err != nil {
		return err
	}
	defer j.Close()
	return j.Record(entry)
}

func (d *Dispatcher) publish(ctx context.Context, cfg *config.Config, entry audit.Entry) error {
	publisher := d.publisher
	if publisher == nil {
		if cfg == nil || len(cfg.EventBrokers()) == 0 {
			return nil
		}
		p := events.NewProducer(cfg.EventBrokers(), cfg.EventTopic())
		defer p.Close()
		publisher = p
	}

	key := entry.ID
	if key == "" {
		key = entry.TraceID
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	return publisher.Publish(ctx, key, events.Envelope{
		EventType:    events.EventOperationCompleted,
		EventVersion: events.EventVersion,
		AggregateID:  entry.ID,
		Data: events.OperationCompleted{
			TraceID:   entry.TraceID,
			Action:    entry.Action,
			Res:       entry.Res,
			Msg:       entry.Msg,
			ID:        entry.ID,
			Status:    entry.Status,
			PaymentID: entry.PaymentID,
			LatencyMs: entry.LatencyMs,
		},
	})
}
