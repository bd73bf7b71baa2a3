package fx

import (
	"forze-tracker/internal/api"
	"forze-tracker/internal/cache"
	"forze-tracker/internal/config"
	"forze-tracker/internal/fallback"
	"forze-tracker/internal/logger"
	"forze-tracker/internal/server"
	"forze-tracker/internal/service"
	"forze-tracker/internal/transport"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func ProvidePolicy(c *cache.Cache, logger zerolog.Logger) *fallback.Policy {
	return fallback.New(c, logger)
}

func ProvidePlatformAPI(client *api.FaceitClient) service.PlatformAPI {
	return client
}

var Module = fx.Options(
	logger.Module,
	config.Module,
	// storage
	fx.Provide(cache.NewFromConfig),
	fx.Provide(ProvidePolicy),
	// upstreams
	fx.Provide(transport.New),
	fx.Provide(api.NewFaceitClient),
	fx.Provide(ProvidePlatformAPI),
	// svc
	fx.Provide(service.NewHLTVService),
	fx.Provide(service.NewFaceitService),
	fx.Provide(service.NewOverviewService),
	// server
	fx.Provide(server.NewTrackerServer),
)
