package runnable

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"
	"visual-regression/internal/compare"
	"visual-regression/internal/config"
	"visual-regression/internal/myhttp"
	"visual-regression/internal/routes"
	"visual-regression/internal/storage"

	pyroscopepprof "github.com/grafana/pyroscope-go/http/pprof"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/net/netutil"
	"golang.org/x/xerrors"
)

const applicationName = "visual-regression"

type Server struct {
	address                string
	terminationGracePeriod time.Duration
	lameduck               time.Duration
	keepAlive              bool
	maxConnections         int
	root                   string
	config                 config.Config
	storage                storage.Storage
}

func NewServer(c config.Config, s storage.Storage) *Server {
	return &Server{
		address:                config.EnvOrDefault("ADDRESS", "0.0.0.0:8383"),
		terminationGracePeriod: config.EnvOrDefault("TERMINATION_GRACE_PERIOD", 10*time.Second),
		lameduck:               config.EnvOrDefault("LAMEDUCK", 1*time.Second),
		keepAlive:              config.EnvOrDefault("HTTP_KEEPALIVE", true),
		maxConnections:         config.EnvOrDefault("MAX_CONNECTIONS", 65532),
		root:                   config.EnvOrDefault("DIRECTORY", "/tmp"),
		config:                 c,
		storage:                s,
	}
}

// Handler wires the comparison routes, probes and metrics onto one mux.
func (s *Server) Handler(logger *slog.Logger, httpRequestsDurationMicroSeconds metric.Int64Histogram) http.Handler {
	pair := compare.NewPairDiffer(s.config, s.storage, logger)

	mux := myhttp.NewRouter(logger, httpRequestsDurationMicroSeconds)

	mux.HandleFunc("POST /compare", routes.ComparePair(pair, time.Now))
	mux.HandleFunc("POST /compare/batch", routes.CompareBatch(compare.NewBatchComparator(pair, s.config.Concurrency, logger), s.root))
	mux.HandleFunc("POST /compare/contexts", routes.CompareContexts(compare.NewCrossContextComparator(pair, s.config.Concurrency, logger), s.root))

	mux.HandleRaw("GET /healthz", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(http.StatusText(http.StatusOK)))
	}))

	mux.HandleRaw("GET /metrics", promhttp.InstrumentMetricHandler(
		prometheus.DefaultRegisterer, promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
			EnableOpenMetrics: true,
		}),
	))

	if Debug {
		mux.HandleRaw("GET /debug/pprof/", http.HandlerFunc(pprof.Index))
		mux.HandleRaw("GET /debug/pprof/cmdline", http.HandlerFunc(pprof.Cmdline))
		mux.HandleRaw("GET /debug/pprof/symbol", http.HandlerFunc(pprof.Symbol))
		mux.HandleRaw("GET /debug/pprof/trace", http.HandlerFunc(pprof.Trace))
		mux.HandleRaw("GET /debug/pprof/profile", http.HandlerFunc(pyroscopepprof.Profile))
	}

	return mux
}

// Start serves until SIGTERM or SIGINT, then waits out the lameduck period
// and drains in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	t, err := startTelemetry(ctx, applicationName)
	if err != nil {
		return err
	}

	httpRequestsDurationMicroSeconds, err := t.meter.Int64Histogram("http_requests_duration_micro_seconds")
	if err != nil {
		return xerrors.Errorf("failed to create histogram: %w", err)
	}

	logger, err := NewLogger(os.Stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return xerrors.Errorf("failed to listen on address %s: %w", s.address, err)
	}

	server := &http.Server{
		Handler:           s.Handler(logger, httpRequestsDurationMicroSeconds),
		ReadHeaderTimeout: 10 * time.Second,
	}
	server.SetKeepAlivesEnabled(s.keepAlive)

	go func() {
		if err := server.Serve(netutil.LimitListener(listener, s.maxConnections)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to serve HTTP", "error", err)
		}
	}()
	logger.Info("serving", "address", s.address)

	quit, stop := signal.NotifyContext(ctx, syscall.SIGTERM, os.Interrupt)
	defer stop()
	<-quit.Done()
	time.Sleep(s.lameduck)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.terminationGracePeriod)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return xerrors.Errorf("failed to shutdown server: %w", err)
	}

	return t.shutdown(ctx)
}
