package server

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/go-kratos/kratos/v2/middleware/recovery"
	kratoshttp "github.com/go-kratos/kratos/v2/transport/http"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerUI "github.com/tx7do/kratos-swagger-ui"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	collectorv1 "github.com/go-tangra/go-tangra-diskhealth/api/collector/v1"
	"github.com/go-tangra/go-tangra-diskhealth/internal/config"
	"github.com/go-tangra/go-tangra-diskhealth/internal/metrics"
	"github.com/go-tangra/go-tangra-diskhealth/internal/store"
)

const defaultPurgeInterval = 24 * time.Hour

// Run starts the gRPC and HTTP servers and blocks until the context is
// cancelled or either server fails.
func Run(ctx context.Context, log *zap.Logger, cfg *config.Collector, openApiData []byte) error {
	db, err := store.New(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	cmdReg := NewCommandRegistry()
	handler := NewHandler(log, db, cmdReg, m)

	// gRPC server with client-secret auth interceptors (unary + stream).
	grpcSrv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(RecoveryInterceptor(log), ClientSecretInterceptor(cfg.ClientSecret)),
		grpc.ChainStreamInterceptor(RecoveryStreamInterceptor(log), ClientSecretStreamInterceptor(cfg.ClientSecret)),
	)
	collectorv1.RegisterDiskHealthCollectorServiceServer(grpcSrv, handler)
	reflection.Register(grpcSrv)

	lis, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return fmt.Errorf("listen gRPC on %s: %w", cfg.Listen, err)
	}

	// HTTP server with panic recovery, API-secret middleware and service routes.
	httpSrv := kratoshttp.NewServer(
		kratoshttp.Address(cfg.HTTPListen),
		kratoshttp.Middleware(recovery.Recovery(), ApiSecretMiddleware(cfg.ApiSecret)),
	)
	collectorv1.RegisterDiskHealthCollectorServiceHTTPServer(httpSrv, handler)
	httpSrv.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	// Swagger UI (registered via HandlePrefix, bypasses middleware chain).
	if cfg.EnableSwagger && len(openApiData) > 0 {
		swaggerUI.RegisterSwaggerUIServerWithOption(
			httpSrv,
			swaggerUI.WithTitle("Disk Health Collector"),
			swaggerUI.WithMemoryData(openApiData, "yaml"),
		)
		log.Info("Swagger UI enabled", zap.String("url", fmt.Sprintf("http://%s/docs/", cfg.HTTPListen)))
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return grpcSrv.Serve(lis)
	})
	g.Go(func() error {
		return httpSrv.Start(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down")
		grpcSrv.GracefulStop()
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Stop(stopCtx)
	})

	if cfg.RetentionDays > 0 {
		g.Go(func() error {
			runPurgeLoop(gctx, log, db, m, cfg.RetentionDays, cfg.PurgeInterval)
			return nil
		})
		log.Info("Retention enabled",
			zap.Int("retention_days", cfg.RetentionDays),
			zap.Duration("purge_interval", cfg.PurgeInterval))
	}

	log.Info("Disk health collector listening",
		zap.String("grpc", lis.Addr().String()),
		zap.String("http", cfg.HTTPListen),
		zap.String("database", cfg.DatabasePath))

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func runPurgeLoop(ctx context.Context, log *zap.Logger, db *store.Store, m *metrics.Metrics, retentionDays int, interval time.Duration) {
	if interval <= 0 {
		interval = defaultPurgeInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	olderThan := time.Duration(retentionDays) * 24 * time.Hour
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := db.Purge(ctx, olderThan)
			if err != nil {
				log.Error("Purge failed", zap.Error(err))
				continue
			}
			if n > 0 {
				m.ReportsPurged.Add(float64(n))
				log.Info("Purged reports", zap.Int64("count", n), zap.Int("retention_days", retentionDays))
			}
		}
	}
}
