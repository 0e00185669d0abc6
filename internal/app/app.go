// README: Shared construction of the quote engine for the API server and the CLI.
package app

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"cargo/internal/cache"
	"cargo/internal/catalog"
	"cargo/internal/config"
	"cargo/internal/infra"
	"cargo/internal/maps"
	"cargo/internal/metrics"
	"cargo/internal/modules/pricing"
	"cargo/internal/modules/route"
	"cargo/internal/modules/zone"
)

// Engine is the assembled quote pipeline.
type Engine struct {
	Catalog  *catalog.Provider
	Zones    *zone.Classifier
	Cache    cache.Cache
	Pricing  *pricing.Service
	Recorder metrics.Recorder
	// OSRM and Nominatim back the browser proxies; nil when their URL is empty.
	OSRM      *maps.OSRM
	Nominatim *maps.Nominatim

	redis *redis.Client
}

// NewLogger builds a development logger for CARGO_ENV=development, production otherwise.
func NewLogger(cfg config.Config) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if strings.EqualFold(cfg.Env, "development") {
		zcfg = zap.NewDevelopmentConfig()
	}
	if cfg.Log.Level != "" {
		lvl, err := zap.ParseAtomicLevel(cfg.Log.Level)
		if err != nil {
			return nil, eris.Wrapf(err, "log level %q", cfg.Log.Level)
		}
		zcfg.Level = lvl
	}
	logger, err := zcfg.Build()
	if err != nil {
		return nil, eris.Wrap(err, "build logger")
	}
	return logger, nil
}

// NewCache connects to Redis when an address is configured and falls back to
// the in-process cache when it is empty or unreachable. ctx bounds the
// in-process cache's expiry sweeper, so pass the process lifetime context.
func NewCache(ctx context.Context, addr string, logger *zap.Logger) (cache.Cache, *redis.Client) {
	if addr == "" {
		logger.Info("using in-memory cache")
		return newMemory(ctx), nil
	}
	client, err := infra.NewRedis(ctx, addr)
	if err != nil {
		logger.Warn("redis unavailable, using in-memory cache", zap.String("addr", addr), zap.Error(err))
		return newMemory(ctx), nil
	}
	logger.Info("using redis cache", zap.String("addr", addr))
	return cache.NewRedis(client), client
}

const sweepInterval = time.Minute

// newMemory returns a memory cache swept until ctx is done.
func newMemory(ctx context.Context) *cache.Memory {
	m := cache.NewMemory()
	go m.RunSweeper(ctx, sweepInterval)
	return m
}

// NewMaps returns the configured geocoder and router.
func NewMaps(cfg config.MapsConfig, logger *zap.Logger, rec metrics.Recorder) (maps.Geocoder, maps.Router, error) {
	switch cfg.Provider {
	case "google":
		g, err := maps.NewGoogle(maps.GoogleOptions{
			APIKey:   cfg.GoogleKey,
			Region:   cfg.CountryCodes,
			Timeout:  cfg.Timeout,
			Logger:   logger,
			Recorder: rec,
		})
		if err != nil {
			return nil, nil, eris.Wrap(err, "google maps")
		}
		return g, g, nil
	case "osm", "":
		var router maps.Router
		if cfg.OSRMURL != "" {
			router = maps.NewOSRM(cfg.OSRMURL, cfg.Timeout, logger, rec)
		}
		return newNominatim(cfg, logger, rec), router, nil
	default:
		return nil, nil, eris.Errorf("unknown maps provider %q", cfg.Provider)
	}
}

func newNominatim(cfg config.MapsConfig, logger *zap.Logger, rec metrics.Recorder) *maps.Nominatim {
	return maps.NewNominatim(maps.NominatimOptions{
		BaseURL:      cfg.NominatimURL,
		UserAgent:    cfg.UserAgent,
		CountryCodes: cfg.CountryCodes,
		Timeout:      cfg.Timeout,
		RPS:          cfg.NominatimRPS,
		Logger:       logger,
		Recorder:     rec,
	})
}

// proxies reuses the OSM adapters behind geocoder and router so the proxy
// shares the Nominatim throttle, and builds whichever is missing.
func proxies(cfg config.MapsConfig, geocoder maps.Geocoder, router maps.Router, logger *zap.Logger, rec metrics.Recorder) (*maps.OSRM, *maps.Nominatim) {
	osrm, _ := router.(*maps.OSRM)
	nom, _ := geocoder.(*maps.Nominatim)
	if osrm == nil && cfg.OSRMURL != "" {
		osrm = maps.NewOSRM(cfg.OSRMURL, cfg.Timeout, logger, rec)
	}
	if nom == nil && cfg.NominatimURL != "" {
		nom = newNominatim(cfg, logger, rec)
	}
	return osrm, nom
}

// NewEngine loads the catalog and wires the route segmenter and pricing service.
// A broken catalog is fatal.
func NewEngine(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Engine, error) {
	rec := metrics.NewLogRecorder(logger)

	cat, err := catalog.Open(cfg.Catalog.Path, logger)
	if err != nil {
		return nil, err
	}
	zones := zone.NewClassifier(cat, cfg.Catalog.PolygonPath, logger)
	store, client := NewCache(ctx, cfg.Redis.Addr, logger)

	geocoder, router, err := NewMaps(cfg.Maps, logger, rec)
	if err != nil {
		if client != nil {
			_ = client.Close()
		}
		return nil, err
	}
	segmenter := route.NewSegmenter(route.Deps{
		Geocoder: geocoder,
		Router:   router,
		Zones:    zones,
		Catalog:  cat,
		Cache:    store,
		Logger:   logger,
		Recorder: rec,
	})
	osrm, nom := proxies(cfg.Maps, geocoder, router, logger, rec)
	return &Engine{
		Catalog:   cat,
		Zones:     zones,
		Cache:     store,
		Pricing:   pricing.NewService(cat, segmenter, store, logger, rec),
		Recorder:  rec,
		OSRM:      osrm,
		Nominatim: nom,
		redis:     client,
	}, nil
}

func (e *Engine) Close() error {
	if e.redis != nil {
		return e.redis.Close()
	}
	return nil
}
