package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	promgrpc "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	healthcheck "github.com/vladislavdragonenkov/printshop/internal/health"
	"github.com/vladislavdragonenkov/printshop/internal/metrics"
	"github.com/vladislavdragonenkov/printshop/internal/service/address"
	"github.com/vladislavdragonenkov/printshop/internal/service/order"
	"github.com/vladislavdragonenkov/printshop/internal/service/outbox"
	"github.com/vladislavdragonenkov/printshop/internal/service/settings"
	httpapi "github.com/vladislavdragonenkov/printshop/internal/transport/http"
	"github.com/vladislavdragonenkov/printshop/internal/version"
)

const shutdownTimeout = 5 * time.Second

// Run поднимает хранилище, HTTP API, gRPC health, сервер метрик и outbox worker
// и блокируется до отмены ctx или падения одного из серверов.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")
	if err := cfg.Validate(); err != nil {
		return err
	}

	registerer := prometheus.DefaultRegisterer
	deps, err := initRuntimeDependencies(ctx, cfg, logger, registerer)
	if err != nil {
		return err
	}
	defer func() {
		if err := deps.close(); err != nil {
			logger.WithError(err).Warn("failed to close storage")
		}
	}()

	storeMetrics := metrics.NewStoreMetricsWithRegisterer(registerer)
	services := httpapi.Services{
		Addresses: address.NewManager(deps.addresses, storeMetrics, log.WithField("component", "address-manager")),
		Orders:    order.NewService(deps.orders, storeMetrics, log.WithField("component", "order-service")),
		Settings:  settings.NewService(deps.settings, nil, storeMetrics, log.WithField("component", "settings-service")),
	}
	if deps.catalog != nil {
		services.Products = deps.catalog.products
		services.Filaments = deps.catalog.filaments
	}
	router := httpapi.NewRouter(services, log.WithField("component", "http-api"))

	publishers := initPublishers(cfg, logger, registerer)
	defer closeKafkaProducer(publishers.producer, logger)

	workerOpts := []outbox.Option{
		outbox.WithLogger(log.WithField("component", "outbox-worker")),
		outbox.WithPollInterval(cfg.OutboxPollInterval),
		outbox.WithBatchSize(cfg.OutboxBatchSize),
		outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
		outbox.WithRetryBaseDelay(cfg.OutboxRetryDelay),
	}
	if publishers.dlq != nil {
		workerOpts = append(workerOpts, outbox.WithDLQPublisher(publishers.dlq))
	}
	worker := outbox.NewWorker(deps.outbox, publishers.events, workerOpts...)
	workerCtx, cancelWorker := context.WithCancel(ctx)
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		worker.Run(workerCtx)
	}()
	defer shutdownOutboxWorker(cancelWorker, workerDone, logger)

	healthHandler := healthcheck.NewHandler(version.Version())
	healthHandler.RegisterChecker("storage", deps.storageChecker)
	healthHandler.RegisterChecker("outbox", healthcheck.NewOutboxChecker(worker, cfg.OutboxMaxAge))

	metricsSrv, err := startMetricsServer(cfg.MetricsAddr, logger, healthHandler)
	if err != nil {
		return err
	}
	defer shutdownHTTP(metricsSrv, logger)

	errCh := make(chan error, 2)

	apiLis, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listen http api: %w", err)
	}
	apiSrv := &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logger.Infof("HTTP API слушает %s", apiLis.Addr())
		if err := apiSrv.Serve(apiLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http api: %w", err)
		}
	}()
	defer shutdownHTTP(apiSrv, logger)

	grpcServer, healthServer := newGRPCServer(registerer, logger)
	grpcLis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}
	go func() {
		logger.Infof("gRPC health сервер слушает %s", grpcLis.Addr())
		if err := grpcServer.Serve(grpcLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errCh <- fmt.Errorf("grpc: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем серверы")
		healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
		stopGRPC(grpcServer, logger)
		return ctx.Err()
	case err := <-errCh:
		healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
		stopGRPC(grpcServer, logger)
		return err
	}
}

// newGRPCServer создаёт gRPC сервер с health, reflection и prometheus-интерцепторами.
func newGRPCServer(registerer prometheus.Registerer, logger *log.Entry) (*grpc.Server, *health.Server) {
	grpcMetrics := promgrpc.NewServerMetrics()
	if err := registerer.Register(grpcMetrics); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*promgrpc.ServerMetrics); ok {
				grpcMetrics = existing
			}
		} else {
			logger.WithError(err).Warn("failed to register grpc metrics")
		}
	}

	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(grpcMetrics.UnaryServerInterceptor()),
		grpc.ChainStreamInterceptor(grpcMetrics.StreamServerInterceptor()),
	)

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(version.Service, healthpb.HealthCheckResponse_SERVING)

	// Register reflection service for grpcurl
	reflection.Register(grpcServer)
	grpcMetrics.InitializeMetrics(grpcServer)

	return grpcServer, healthServer
}

func stopGRPC(srv *grpc.Server, logger *log.Entry) {
	stopped := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(shutdownTimeout):
		logger.Warn("graceful stop превысил таймаут, принудительно останавливаем")
		srv.Stop()
	}
}

// startMetricsServer запускает HTTP-обработчик /metrics и health-проверки.
func startMetricsServer(addr string, logger *log.Entry, healthHandler *healthcheck.Handler) (*http.Server, error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen metrics: %w", err)
	}

	srv := &http.Server{Addr: lis.Addr().String(), Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", srv.Addr)
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()
	return srv, nil
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}

// shutdownOutboxWorker останавливает worker и ждёт завершения текущего цикла.
func shutdownOutboxWorker(cancel context.CancelFunc, done <-chan struct{}, logger *log.Entry) {
	if cancel != nil {
		cancel()
	}
	if done == nil {
		return
	}
	select {
	case <-done:
		logger.Info("outbox worker stopped")
	case <-time.After(shutdownTimeout):
		logger.Warn("outbox worker did not stop in time")
	}
}
