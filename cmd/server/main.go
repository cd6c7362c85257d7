package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/yourorg/mpqr-bridge/internal/adapter"
	"github.com/yourorg/mpqr-bridge/internal/adapter/mercadopago"
	"github.com/yourorg/mpqr-bridge/internal/audit"
	"github.com/yourorg/mpqr-bridge/internal/bridge"
	"github.com/yourorg/mpqr-bridge/internal/circuitbreaker"
	"github.com/yourorg/mpqr-bridge/internal/config"
	"github.com/yourorg/mpqr-bridge/internal/dispatch"
	"github.com/yourorg/mpqr-bridge/internal/events"
	"github.com/yourorg/mpqr-bridge/internal/logging"
	"github.com/yourorg/mpqr-bridge/internal/monitor"
	"github.com/yourorg/mpqr-bridge/internal/slots"
	"github.com/yourorg/mpqr-bridge/internal/telemetry"
)

const (
	serviceName     = "mpqr-bridge"
	shutdownTimeout = 10 * time.Second
)

type legacyRequest struct {
	Params []string `json:"params"`
}

type legacyResponse struct {
	Params []string `json:"params"`
	Res    int      `json:"res"`
}

type server struct {
	dispatcher *dispatch.Dispatcher
	logger     *zap.Logger
}

// handleAction runs one action from named JSON fields. Business and provider
// failures are reported through the Result, not the HTTP status.
func (s *server) handleAction(c *gin.Context) {
	var req bridge.Request
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			s.logger.Warn("rejecting malformed action body", zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
			return
		}
	}
	req.Action = bridge.Action(c.Param("action"))
	req.ConfigPath = ""

	c.JSON(http.StatusOK, s.dispatcher.Execute(c.Request.Context(), req))
}

// handleLegacy runs the positional convention. Short arrays are padded so
// the output slots are always returned.
func (s *server) handleLegacy(c *gin.Context) {
	var req legacyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Warn("rejecting malformed legacy body", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	if len(req.Params) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed: params is required"})
		return
	}

	params := req.Params
	if len(params) < slots.Size {
		params = append(params, make([]string, slots.Size-len(params))...)
	}
	params[slots.ConfigPath] = ""

	res := s.dispatcher.Call(c.Request.Context(), params)
	c.JSON(http.StatusOK, legacyResponse{Params: params, Res: res})
}

func setupRouter(d *dispatch.Dispatcher, logger *zap.Logger) *gin.Engine {
	s := &server{dispatcher: d, logger: logger}

	router := gin.New()
	router.Use(gin.Recovery(), otelgin.Middleware(serviceName))
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.POST("/v1/actions/:action", s.handleAction)
	router.POST("/v1/legacy", s.handleLegacy)
	return router
}

// newDispatcher shares one provider transport across requests and never
// re-reads configuration.
func newDispatcher(cfg *config.Config, logger *zap.Logger, breaker *circuitbreaker.CircuitBreaker, opts ...dispatch.Option) *dispatch.Dispatcher {
	clientOpts := mercadopago.OptionsFromConfig(cfg)
	clientOpts.Logger = logger
	clientOpts.Breaker = breaker
	shared := mercadopago.NewClient(clientOpts)

	base := []dispatch.Option{
		dispatch.WithLoader(dispatch.StaticLoader(cfg)),
		dispatch.WithTransportFactory(func(*config.Config, *zap.Logger) adapter.Transport { return shared }),
		dispatch.WithLogger(logger),
	}
	return dispatch.New(append(base, opts...)...)
}

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "", "path to mercadopagoQR.properties (defaults to MP_CONFIG or the standard locations)")
	addr := flag.String("addr", envOr("MPQR_ADDR", ":8080"), "listen address")
	useBreaker := flag.Bool("breaker", false, "fail fast while the provider keeps failing")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.MustNewLogger(logging.Options{Service: serviceName}).Fatal("failed to load configuration", zap.Error(err))
	}

	// mp.log.file is teed per call by the dispatcher.
	logger := logging.MustNewLogger(logging.Options{Service: serviceName, Env: cfg.Stage()})
	defer logger.Sync()

	shutdownTracer, err := telemetry.InitTracer(serviceName, os.Stderr)
	if err != nil {
		logger.Fatal("failed to initialize tracing", zap.Error(err))
	}

	var opts []dispatch.Option
	if dir := cfg.AuditDir(); dir != "" {
		journal, err := audit.NewJournal(dir)
		if err != nil {
			logger.Fatal("failed to open audit journal", zap.String("dir", dir), zap.Error(err))
		}
		defer journal.Close()
		opts = append(opts, dispatch.WithJournal(journal))
	} else {
		opts = append(opts, dispatch.WithJournal(audit.Nop{}))
	}
	if brokers := cfg.EventBrokers(); len(brokers) > 0 {
		producer := events.NewProducer(brokers, cfg.EventTopic())
		defer producer.Close()
		opts = append(opts, dispatch.WithPublisher(producer))
	} else {
		opts = append(opts, dispatch.WithPublisher(events.Nop{}))
	}

	if dir := cfg.ContractsDir(); dir != "" {
		contracts, err := monitor.LoadContractsDir(dir)
		if err != nil {
			logger.Fatal("failed to load payload contracts", zap.String("dir", dir), zap.Error(err))
		}
		opts = append(opts, dispatch.WithContracts(contracts))
	}

	var breaker *circuitbreaker.CircuitBreaker
	if *useBreaker {
		breaker = circuitbreaker.NewCircuitBreaker(circuitbreaker.Config{})
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           setupRouter(newDispatcher(cfg, logger, breaker, opts...), logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting server", zap.String("addr", *addr), zap.String("config", cfg.Source()), zap.Bool("breaker", *useBreaker))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		logger.Error("tracer shutdown failed", zap.Error(err))
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
