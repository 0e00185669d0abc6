// README: Entry point; loads config, wires the quote engine and order services, serves HTTP until signalled.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"cargo/internal/app"
	"cargo/internal/config"
	httptransport "cargo/internal/http"
	"cargo/internal/http/handlers"
	"cargo/internal/infra"
	"cargo/internal/modules/order"
	"cargo/internal/ratelimit"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger, err := app.NewLogger(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("cargo-api stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := app.NewEngine(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = engine.Close() }()

	verifier, err := newVerifier(ctx, cfg, logger)
	if err != nil {
		return err
	}

	var orderHandler *handlers.OrderHandler
	if cfg.DB.DSN != "" {
		pool, err := infra.NewDB(ctx, cfg.DB.DSN)
		if err != nil {
			return err
		}
		defer pool.Close()

		forwarder := order.Forwarder(order.NewLogForwarder(logger))
		if cfg.Broker.URL != "" {
			broker, err := infra.NewBroker(cfg.Broker.URL, cfg.Broker.Exchange)
			if err != nil {
				return err
			}
			defer func() { _ = broker.Close() }()
			forwarder = order.NewAMQPForwarder(broker.Channel, cfg.Broker.Exchange)
		}
		orderSvc := order.NewService(order.NewStore(pool), engine.Pricing, forwarder, logger)
		orderHandler = handlers.NewOrderHandler(orderSvc)
	} else {
		logger.Warn("CARGO_DB_DSN is empty, order endpoints disabled")
	}

	var proxyHandler *handlers.ProxyHandler
	if engine.OSRM != nil && engine.Nominatim != nil {
		proxyHandler = handlers.NewProxyHandler(engine.OSRM, engine.Nominatim)
	}

	limiter := ratelimit.New(engine.Cache, logger, engine.Recorder)
	server := httptransport.NewServer(cfg.HTTP.Addr, httptransport.RouterDeps{
		Quote:    handlers.NewQuoteHandler(engine.Pricing, engine.Catalog, limiter, cfg.LimitFor),
		Vehicles: handlers.NewVehicleHandler(engine.Catalog),
		Config:   handlers.NewConfigHandler(engine.Catalog, engine.Zones),
		Health:   handlers.NewHealthHandler(engine.Cache, engine.Catalog),
		Proxy:    proxyHandler,
		Orders:   orderHandler,
		Limiter:  limiter,
		Limits:   cfg.LimitFor,
		Verifier: verifier,
	}, logger)
	return server.Run(ctx)
}

func newVerifier(ctx context.Context, cfg config.Config, logger *zap.Logger) (infra.TokenVerifier, error) {
	switch {
	case cfg.Firebase.ProjectID != "":
		return infra.NewFirebaseVerifier(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
	case cfg.Admin.Token != "":
		logger.Warn("admin endpoints use a shared static token")
		return infra.NewStaticVerifier(cfg.Admin.Token), nil
	default:
		logger.Warn("no admin credentials configured, admin endpoints disabled")
		return infra.DenyAll{}, nil
	}
}
