package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/FirstyanAgeng/solana-wallet-tracker-bot/internal/alert"
	"github.com/FirstyanAgeng/solana-wallet-tracker-bot/internal/bot"
	"github.com/FirstyanAgeng/solana-wallet-tracker-bot/internal/config"
	"github.com/FirstyanAgeng/solana-wallet-tracker-bot/internal/dedup"
	"github.com/FirstyanAgeng/solana-wallet-tracker-bot/internal/dispatch"
	"github.com/FirstyanAgeng/solana-wallet-tracker-bot/internal/fetcher"
	"github.com/FirstyanAgeng/solana-wallet-tracker-bot/internal/limiter"
	"github.com/FirstyanAgeng/solana-wallet-tracker-bot/internal/logger"
	"github.com/FirstyanAgeng/solana-wallet-tracker-bot/internal/observability"
	"github.com/FirstyanAgeng/solana-wallet-tracker-bot/internal/provider"
	"github.com/FirstyanAgeng/solana-wallet-tracker-bot/internal/retry"
	"github.com/FirstyanAgeng/solana-wallet-tracker-bot/internal/scheduler"
	"github.com/FirstyanAgeng/solana-wallet-tracker-bot/internal/subscriber"
	"github.com/FirstyanAgeng/solana-wallet-tracker-bot/internal/telegram"
	"github.com/FirstyanAgeng/solana-wallet-tracker-bot/internal/web"
)

// Flags
var (
	configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")
	once       = flag.Bool("once", false, "Run a single polling cycle and exit")
	debug      = flag.Bool("debug", false, "Enable debug logging")
)

// Application holds all application components
type Application struct {
	cfg        *config.Config
	log        logger.Logger
	rdb        *redis.Client
	store      subscriber.Store
	cache      *dedup.Cache
	notifier   *telegram.Notifier
	poller     *telegram.Poller
	fetcher    *fetcher.Fetcher
	dispatcher *dispatch.Dispatcher
	scheduler  *scheduler.Scheduler
	metrics    *observability.Metrics
	webServer  *web.Server
}

func main() {
	flag.Parse()

	if v := os.Getenv("CONFIG_PATH"); v != "" {
		*configPath = v
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load configuration", logger.F("error", err))
	}
	if *debug {
		cfg.Logger.Level = "debug"
	}

	log := initLogger(cfg)
	log.Info("starting wallet tracker",
		logger.F("app", cfg.App.Name),
		logger.F("env", cfg.App.Environment),
		logger.F("wallets", len(cfg.Wallets)),
		logger.F("providers", cfg.Providers.Order),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app := &Application{cfg: cfg, log: log}

	if err := app.initialize(ctx); err != nil {
		log.Fatal("failed to initialize application", logger.F("error", err))
	}

	if *once {
		app.scheduler.RunCycle(ctx)
		app.shutdown(cancel)
		return
	}

	app.start(ctx)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	sig := <-shutdown
	log.Info("shutdown signal received", logger.F("signal", sig.String()))

	app.shutdown(cancel)
}

// initialize initializes all application components
func (app *Application) initialize(ctx context.Context) error {
	cfg := app.cfg
	log := app.log

	// Subscriber store: Redis when configured, memory otherwise
	if cfg.Redis.Enabled() {
		app.rdb = redis.NewClient(&redis.Options{
			Addr:         cfg.Redis.Addr(),
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err := app.rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		log.Info("connected to Redis", logger.F("addr", cfg.Redis.Addr()))
		app.store = subscriber.NewRedisStore(app.rdb, log)
	} else {
		app.store = subscriber.NewMemoryStore()
	}

	lim := limiter.New(cfg.RateLimit.Capacity, cfg.RateLimit.Window)
	controller := retry.NewController(lim, retry.Config{
		MaxRetries:  cfg.Retry.MaxRetries,
		BackoffBase: cfg.Retry.BackoffBase,
		BackoffCap:  cfg.Retry.BackoffCap,
	}, log)

	providers, err := buildProviders(cfg, lim, log)
	if err != nil {
		return err
	}

	app.cache = dedup.New(cfg.Dedup.Expiry)
	app.fetcher = fetcher.New(providers, controller, app.cache, fetcher.Config{
		BatchSize:  cfg.Poller.BatchSize,
		BatchPause: cfg.Poller.BatchPause,
	}, log)

	app.notifier = telegram.NewNotifier(telegram.Config{
		BotToken: cfg.Telegram.BotToken,
		BaseURL:  cfg.Telegram.BaseURL,
		Timeout:  cfg.Telegram.Timeout,
	}, log)
	app.dispatcher = dispatch.New(app.notifier, app.store, log)

	app.metrics = observability.NewMetrics("wallet_tracker")
	app.fetcher.SetMetrics(app.metrics)

	app.scheduler = scheduler.New(scheduler.Config{
		Interval: cfg.Poller.Interval,
		Wallets:  cfg.Wallets,
	}, app.fetcher, alert.NewFormatter(cfg.Alert.Threshold), app.dispatcher, app.cache, app.metrics, log)

	commands := bot.New(app.store, app.scheduler, cfg.Wallets, log)
	app.poller = telegram.NewPoller(app.notifier, commands.Handle, log)

	if cfg.Web.Enabled {
		app.webServer = web.NewServer(web.Config{Port: cfg.Web.Port},
			app.scheduler, app.store, app.cache, log)
	}

	// Seed admin chats as subscribers so alerts flow without a manual /subscribe
	for _, id := range cfg.Telegram.AdminIDs {
		if _, err := app.store.Add(ctx, id); err != nil {
			log.Warn("failed to seed admin subscriber",
				logger.F("chat_id", id), logger.F("error", err))
		}
	}

	return nil
}

// buildProviders constructs the provider chain in the configured priority order
func buildProviders(cfg *config.Config, lim *limiter.Limiter, log logger.Logger) ([]provider.Provider, error) {
	var (
		providers []provider.Provider
		rpcShared *provider.RPC
	)

	rpc := func() *provider.RPC {
		if rpcShared == nil {
			rpcShared = provider.NewRPC(provider.RPCConfig{
				Endpoints:      cfg.Providers.RPC.Endpoints,
				SignatureLimit: cfg.Providers.RPC.SignatureLimit,
				Timeout:        cfg.Providers.RPC.Timeout,
			}, lim, log)
		}
		return rpcShared
	}

	for _, name := range cfg.Providers.Order {
		switch name {
		case config.ProviderHelius:
			providers = append(providers, provider.NewHelius(provider.HeliusConfig{
				APIKey:  cfg.Providers.Helius.APIKey,
				BaseURL: cfg.Providers.Helius.BaseURL,
				Limit:   cfg.Providers.Helius.Limit,
				Timeout: cfg.Providers.Helius.Timeout,
			}, log))
		case config.ProviderSolscan:
			providers = append(providers, provider.NewSolscan(provider.SolscanConfig{
				APIToken: cfg.Providers.Solscan.APIToken,
				BaseURL:  cfg.Providers.Solscan.BaseURL,
				Limit:    cfg.Providers.Solscan.Limit,
				Timeout:  cfg.Providers.Solscan.Timeout,
			}, log))
		case config.ProviderRPC:
			providers = append(providers, rpc())
		case config.ProviderDex:
			programs := cfg.Providers.DexWatch.Programs
			if len(programs) == 0 {
				programs = provider.DefaultSwapPrograms()
			}
			providers = append(providers, provider.NewDexWatch(rpc(), provider.DexWatchConfig{
				Programs:  programs,
				MinAmount: cfg.Providers.DexWatch.MinAmount,
			}, log))
		default:
			return nil, fmt.Errorf("unknown provider %q", name)
		}
	}

	return providers, nil
}

// start starts the polling loop, the Telegram command poller and the status server
func (app *Application) start(ctx context.Context) {
	go app.scheduler.Run(ctx)
	go app.poller.Run(ctx)

	if app.webServer != nil {
		go func() {
			if err := app.webServer.Start(); err != nil {
				app.log.Error("web server error", logger.F("error", err))
			}
		}()
	}

	app.log.Info("application started",
		logger.F("interval", app.cfg.Poller.Interval.String()),
		logger.F("web_enabled", app.webServer != nil),
	)
}

// shutdown performs graceful shutdown of all components
func (app *Application) shutdown(cancel context.CancelFunc) {
	app.log.Info("starting graceful shutdown")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	var wg sync.WaitGroup

	if app.webServer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := app.webServer.Shutdown(shutdownCtx); err != nil {
				app.log.Error("error shutting down web server", logger.F("error", err))
			}
		}()
	}

	if app.rdb != nil {
		if err := app.rdb.Close(); err != nil {
			app.log.Error("error closing redis", logger.F("error", err))
		}
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		app.log.Info("graceful shutdown completed")
	case <-time.After(3 * time.Second):
		app.log.Warn("shutdown timeout, forcing exit")
	}
}

// initLogger initializes the logger based on configuration
func initLogger(cfg *config.Config) logger.Logger {
	log := logger.New(logger.Config{
		Level:      logger.ParseLevel(cfg.Logger.Level),
		Format:     cfg.Logger.Format,
		Output:     os.Stdout,
		TimeFormat: cfg.Logger.TimeFormat,
		AppName:    cfg.App.Name,
	})

	logger.SetGlobal(log)
	return log
}
