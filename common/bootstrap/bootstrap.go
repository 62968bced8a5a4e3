package bootstrap

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/karmafinder/karmafetch/common/config"
	"github.com/karmafinder/karmafetch/common/db"
	"github.com/karmafinder/karmafetch/common/logger"
	"github.com/karmafinder/karmafetch/common/redis"
	"github.com/karmafinder/karmafetch/common/report"
)

// Setup initializes all service components
// This is the main entry point for all services
func Setup(ctx context.Context, serviceName string, opts ...Option) (*Components, error) {
	// Apply options
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	components := &Components{
		cleanupFuncs: make([]func() error, 0),
	}

	// 1. Load configuration
	var err error
	if options.customConfig != nil {
		components.Config = options.customConfig
	} else {
		components.Config, err = config.Load(serviceName)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	// 2. Initialize logger
	if options.customLogger != nil {
		components.Logger = options.customLogger
	} else {
		components.Logger = logger.New(
			components.Config.Service.LogLevel,
			components.Config.Service.LogFormat,
		)
	}

	components.Logger.Info("initializing service",
		"service", serviceName,
		"environment", components.Config.Service.Environment,
	)

	// 3. Initialize database (if not skipped)
	if !options.skipDB {
		components.Logger.Info("connecting to database")
		components.DB, err = db.New(ctx, components.Config, components.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		components.addCleanup(func() error {
			components.Logger.Info("closing database connection")
			components.DB.Close()
			return nil
		})

		// Run DB init hook if provided
		if options.dbInitHook != nil {
			components.Logger.Info("running database init hook")
			if err := components.dbInitHookErr(ctx, options.dbInitHook); err != nil {
				return nil, err
			}
		}
	}

	// 4. Initialize Redis (if not skipped)
	if !options.skipRedis && components.Config.Redis.Enabled {
		components.Logger.Info("connecting to redis", "addr", components.Config.Redis.Addr)

		raw := goredis.NewClient(&goredis.Options{
			Addr: components.Config.Redis.Addr,
			DB:   components.Config.Redis.DB,
		})
		components.Redis = redis.NewClient(raw, components.Logger)

		if err := components.Redis.Health(ctx); err != nil {
			// Redis only backs best-effort counters; run without it
			components.Logger.Warn("redis unavailable, continuing without it", "error", err)
			components.Redis = nil
		} else {
			components.addCleanup(func() error {
				components.Logger.Info("closing redis connection")
				return components.Redis.Close()
			})
		}
	}

	// 5. Initialize error-reporting sink (needs the database)
	if !options.skipSink && components.DB != nil {
		components.Sink = report.NewSink(components.DB, components.Logger)

		components.addCleanup(func() error {
			components.Logger.Info("closing report sink")
			return components.Sink.Close()
		})
	}

	components.Logger.Info("service initialization complete",
		"service", serviceName,
		"db", components.DB != nil,
		"redis", components.Redis != nil,
		"sink", components.Sink != nil,
	)

	return components, nil
}

func (c *Components) dbInitHookErr(ctx context.Context, hook func(*db.DB) error) error {
	if err := hook(c.DB); err != nil {
		c.Shutdown(ctx) // Cleanup what we've initialized
		return fmt.Errorf("database init hook failed: %w", err)
	}
	return nil
}

// MustSetup is like Setup but panics on error
// Useful for services that can't recover from initialization failure
func MustSetup(ctx context.Context, serviceName string, opts ...Option) *Components {
	components, err := Setup(ctx, serviceName, opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to setup service %s: %v", serviceName, err))
	}
	return components
}
