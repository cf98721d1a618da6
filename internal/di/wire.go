//go:build wireinject
// +build wireinject

package di

import (
	"TickBrain/pkg/config"
	"TickBrain/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Engine
		ProvideEngineOptions,
		ProvideEngine,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideDedupCache,

		// Adapters
		ProvideJournal,
		ProvideTransitionPublisher,
		ProvideDeduper,
		ProvideSink,
		ProvideVenueStream,

		// Use cases
		ProvideGatekeeper,
		ProvideKafkaTicksHandler,
		ProvideTickCollector,

		// HTTP
		ProvideRateLimiter,
		ProvideWebhookHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
