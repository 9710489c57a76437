package rpcServer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/Layr-Labs/staking-ledger/internal/metrics"
	"github.com/Layr-Labs/staking-ledger/internal/metrics/metricsTypes"
	"github.com/Layr-Labs/staking-ledger/pkg/custody"
	"github.com/Layr-Labs/staking-ledger/pkg/eventBus/eventBusTypes"
	"github.com/Layr-Labs/staking-ledger/pkg/ledgerQueue"
	"github.com/Layr-Labs/staking-ledger/pkg/requestAuth"
	"github.com/Layr-Labs/staking-ledger/pkg/rewardLedger"
	"github.com/Layr-Labs/staking-ledger/pkg/stateRoot"
	grpc_middleware "github.com/grpc-ecosystem/go-grpc-middleware"
	grpc_zap "github.com/grpc-ecosystem/go-grpc-middleware/logging/zap"
	grpc_recovery "github.com/grpc-ecosystem/go-grpc-middleware/recovery"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/rs/cors"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

type RpcServerConfig struct {
	GrpcPort       int
	HttpPort       int
	AllowedOrigins []string
	// MaxClockSkew defaults to requestAuth.DefaultMaxClockSkew when zero.
	MaxClockSkew time.Duration
}

type RpcServer struct {
	config      *RpcServerConfig
	ledger      *rewardLedger.RewardLedger
	queue       *ledgerQueue.LedgerQueue
	accounts    custody.Accounts
	gate        rewardLedger.AccessGate
	stateRoots  *stateRoot.Generator
	eventBus    eventBusTypes.IEventBus
	metricsSink *metrics.MetricsSink
	Logger      *zap.Logger

	verifier *requestAuth.Verifier
	health   *health.Server
}

func NewRpcServer(
	cfg *RpcServerConfig,
	ledger *rewardLedger.RewardLedger,
	queue *ledgerQueue.LedgerQueue,
	accounts custody.Accounts,
	gate rewardLedger.AccessGate,
	stateRoots *stateRoot.Generator,
	eb eventBusTypes.IEventBus,
	ms *metrics.MetricsSink,
	l *zap.Logger,
) *RpcServer {
	if ms == nil {
		ms = metrics.NewNoopMetricsSink()
	}
	return &RpcServer{
		config:      cfg,
		ledger:      ledger,
		queue:       queue,
		accounts:    accounts,
		gate:        gate,
		stateRoots:  stateRoots,
		eventBus:    eb,
		metricsSink: ms,
		Logger:      l,
		verifier:    requestAuth.NewVerifier(cfg.MaxClockSkew),
		health:      health.NewServer(),
	}
}

// Start serves gRPC and HTTP in the background until a value is sent on gracefulShutdown.
func (rpc *RpcServer) Start(ctx context.Context, gracefulShutdown chan bool) error {
	grpcListener, err := net.Listen("tcp", fmt.Sprintf(":%d", rpc.config.GrpcPort))
	if err != nil {
		return err
	}
	grpcServer := rpc.NewGrpcServer()

	handler, err := rpc.HttpHandler()
	if err != nil {
		_ = grpcListener.Close()
		return err
	}
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", rpc.config.HttpPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		rpc.Logger.Sugar().Infow("Starting gRPC server", zap.Int("port", rpc.config.GrpcPort))
		if err := grpcServer.Serve(grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			rpc.Logger.Sugar().Fatalw("Failed to serve gRPC", zap.Error(err))
		}
	}()
	go func() {
		rpc.Logger.Sugar().Infow("Starting HTTP server", zap.Int("port", rpc.config.HttpPort))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			rpc.Logger.Sugar().Fatalw("Failed to serve HTTP", zap.Error(err))
		}
	}()
	go func() {
		select {
		case <-gracefulShutdown:
		case <-ctx.Done():
		}
		rpc.Logger.Sugar().Info("Shutting down RPC servers")
		rpc.health.Shutdown()
		if err := httpServer.Shutdown(context.Background()); err != nil {
			rpc.Logger.Sugar().Errorw("Failed to shutdown HTTP server", zap.Error(err))
		}
		grpcServer.GracefulStop()
	}()
	return nil
}

// NewGrpcServer returns a gRPC server exposing the standard health and reflection services.
func (rpc *RpcServer) NewGrpcServer() *grpc.Server {
	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(grpc_middleware.ChainUnaryServer(
			grpc_recovery.UnaryServerInterceptor(),
			grpc_zap.UnaryServerInterceptor(rpc.Logger),
			rpc.grpcMetricsInterceptor,
		)),
	)
	healthpb.RegisterHealthServer(grpcServer, rpc.health)
	reflection.Register(grpcServer)
	return grpcServer
}

func (rpc *RpcServer) grpcMetricsInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	res, err := handler(ctx, req)

	labels := []metricsTypes.MetricsLabel{{Name: "method", Value: info.FullMethod}}
	_ = rpc.metricsSink.Incr(metricsTypes.Metric_Incr_GrpcRequest, labels, 1)
	_ = rpc.metricsSink.Timing(metricsTypes.Metric_Timing_GrpcDuration, time.Since(start), labels)
	return res, err
}

type route struct {
	method  string
	path    string
	handler handlerFunc
	// signed routes act on behalf of the principal that signed the request.
	signed bool
}

func (rpc *RpcServer) routes() []route {
	return []route{
		{http.MethodPost, "/v1/ledger/deposit", rpc.Deposit, true},
		{http.MethodPost, "/v1/ledger/distribute", rpc.Distribute, true},
		{http.MethodPost, "/v1/ledger/withdraw", rpc.Withdraw, true},
		{http.MethodGet, "/v1/ledger/depositors", rpc.ListDepositors, false},
		{http.MethodGet, "/v1/ledger/depositors/{principal}", rpc.GetDepositor, false},
		{http.MethodGet, "/v1/ledger/depositors/{principal}/amount-to-withdraw", rpc.GetAmountToWithdraw, false},
		{http.MethodGet, "/v1/ledger/pool", rpc.GetPool, false},
		{http.MethodGet, "/v1/ledger/events", rpc.ListEvents, false},
		{http.MethodGet, "/v1/ledger/events/next", rpc.NextEvent, false},
		{http.MethodGet, "/v1/ledger/state-root", rpc.GetStateRoot, false},
		{http.MethodGet, "/v1/accounts/{principal}/balance", rpc.GetAccountBalance, false},
		{http.MethodPost, "/v1/accounts/{principal}/approve", rpc.Approve, true},
		{http.MethodPost, "/v1/accounts/mint", rpc.Mint, true},
		{http.MethodGet, "/v1/health", rpc.HealthCheck, false},
		{http.MethodGet, "/v1/ready", rpc.ReadyCheck, false},
	}
}

// HttpHandler builds the JSON API: routes on a gateway ServeMux behind request id and CORS handling.
func (rpc *RpcServer) HttpHandler() (http.Handler, error) {
	mux := runtime.NewServeMux()
	for _, r := range rpc.routes() {
		handler := r.handler
		if r.signed {
			handler = rpc.authenticate(handler)
		}
		if err := mux.HandlePath(r.method, r.path, rpc.wrap(r.path, handler)); err != nil {
			rpc.Logger.Sugar().Errorw("Failed to register route", zap.String("path", r.path), zap.Error(err))
			return nil, err
		}
	}

	c := cors.New(cors.Options{
		AllowedOrigins: rpc.config.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", requestIdHeader, requestAuth.SignatureHeader, requestAuth.TimestampHeader},
		ExposedHeaders: []string{requestIdHeader},
	})
	return c.Handler(withRequestId(mux)), nil
}
