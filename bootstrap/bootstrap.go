// Package bootstrap wires all dependencies and starts the application.
// Configuration comes from a YAML file with REWARDCTL_* environment
// overrides, or from the environment alone when no file exists.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/artpar/rewardctl/adapters/clock"
	"github.com/artpar/rewardctl/adapters/cosmos"
	apihttp "github.com/artpar/rewardctl/adapters/http"
	"github.com/artpar/rewardctl/adapters/idgen"
	"github.com/artpar/rewardctl/adapters/memory"
	"github.com/artpar/rewardctl/adapters/metrics"
	"github.com/artpar/rewardctl/adapters/remote"
	"github.com/artpar/rewardctl/adapters/sqlite"
	"github.com/artpar/rewardctl/app"
	"github.com/artpar/rewardctl/config"
	"github.com/artpar/rewardctl/core/registry"
	"github.com/artpar/rewardctl/domain/chain"
	"github.com/artpar/rewardctl/domain/partner"
	"github.com/artpar/rewardctl/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls application initialization.
type Options struct {
	// ConfigPath is the YAML config file. When it does not exist the
	// configuration is read from the environment and hot reload is off.
	ConfigPath string

	// Config, when set, is used instead of loading ConfigPath.
	Config *config.Config

	Version string

	// LogOutput receives log lines. Default os.Stderr, keeping stdout for
	// command output.
	LogOutput io.Writer

	// QueryOnly skips the wallet even when a mnemonic is configured.
	QueryOnly bool
}

// App represents the running application.
type App struct {
	Logger   zerolog.Logger
	Config   *config.Config
	Registry *registry.Registry
	Service  *app.RewardService
	DB       *sqlite.DB // nil unless the journal is kept in SQLite
	Metrics  *metrics.Collector

	HTTPServer *http.Server

	holder      *config.Holder // nil without a config file
	client      *remote.Client
	broadcaster *cosmos.Broadcaster
	promReg     *prometheus.Registry
	logFile     *lumberjack.Logger // nil when logging to LogOutput
	version     string
}

// New creates and initializes the application.
func New(opts Options) (*App, error) {
	a := &App{version: opts.Version}

	cfg := opts.Config
	if cfg == nil {
		var err error
		cfg, err = a.loadConfig(opts.ConfigPath)
		if err != nil {
			return nil, err
		}
	}
	a.Config = cfg

	if opts.LogOutput == nil {
		opts.LogOutput = os.Stderr
	}
	out, color := opts.LogOutput, true
	if cfg.Logging.File != "" {
		a.logFile = newLogFile(cfg.Logging)
		out, color = a.logFile, false
	}
	a.Logger = setupLogger(cfg.Logging, out, color)
	if a.holder != nil {
		a.holder.SetLogger(a.Logger.With().Str("component", "config").Logger())
	}

	a.Logger.Debug().Interface("config", cfg.Redacted()).Msg("configuration loaded")

	if err := a.initRegistry(); err != nil {
		a.closeLog()
		return nil, fmt.Errorf("init registry: %w", err)
	}

	a.promReg = prometheus.NewRegistry()
	a.promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.Metrics = metrics.NewWithRegistry(a.promReg)

	if cfg.Database.JournalEnabled() && !cfg.Database.InMemory() {
		if err := a.initDatabase(); err != nil {
			a.closeLog()
			return nil, fmt.Errorf("init database: %w", err)
		}
	}

	restURL := cfg.Chain.RESTURL
	if restURL == "" {
		restURL = remote.RESTURLFromRPC(cfg.Chain.RPCURL)
	}
	a.client = remote.NewClient(remote.ClientConfig{
		BaseURL: restURL,
		Timeout: cfg.Chain.Timeout,
	})

	deps := app.RewardDeps{
		Registry: a.Registry,
		Querier:  remote.NewPartnerQuerier(a.client),
		Metrics:  a.Metrics,
		Clock:    clock.Real{},
		IDGen:    idgen.UUID{},
		Logger:   a.Logger,
	}
	switch {
	case a.DB != nil:
		deps.Journal = sqlite.NewJournalStore(a.DB)
	case cfg.Database.InMemory():
		deps.Journal = memory.NewJournalStore()
	}

	if cfg.Wallet.Mnemonic != "" && !opts.QueryOnly {
		b, err := a.initBroadcaster(cfg)
		if err != nil {
			a.closeDB()
			a.closeLog()
			return nil, fmt.Errorf("init wallet: %w", err)
		}
		a.broadcaster = b
		deps.Signer = b
	} else {
		a.Logger.Info().Msg("no wallet configured, running query-only")
	}

	a.Service = app.NewRewardService(deps, cfg.Events.CreatedID)

	if a.holder != nil {
		a.holder.OnChange(a.applyConfig)
		a.holder.OnReload(a.Metrics.ConfigReloaded)
	}

	a.Logger.Info().
		Str("rest_url", restURL).
		Str("address", a.Service.Address()).
		Int("types", len(a.Registry.Types())).
		Bool("journal", deps.Journal != nil).
		Msg("rewardctl initialized")
	return a, nil
}

func (a *App) loadConfig(path string) (*config.Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			h, err := config.NewHolder(path, zerolog.Nop())
			if err != nil {
				return nil, err
			}
			a.holder = h
			return h.Get(), nil
		}
	}
	cfg, err := config.LoadWithFallback(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// NewRegistry registers the built-in schemas and the given schema files,
// then freezes the registry.
func NewRegistry(schemaFiles []string) (*registry.Registry, error) {
	reg := registry.New()
	if err := partner.Register(reg); err != nil {
		return nil, err
	}
	for _, path := range schemaFiles {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read schema file: %w", err)
		}
		if err := reg.LoadSchemas(data); err != nil {
			return nil, fmt.Errorf("schema file %s: %w", path, err)
		}
	}
	reg.Freeze()
	return reg, nil
}

func (a *App) initRegistry() error {
	reg, err := NewRegistry(a.Config.Schemas.Files)
	if err != nil {
		return err
	}
	a.Registry = reg
	a.Logger.Debug().Int("files", len(a.Config.Schemas.Files)).Strs("types", reg.Types()).Msg("message registry frozen")
	return nil
}

func (a *App) initDatabase() error {
	db, err := sqlite.Open(a.Config.Database.DSN)
	if err != nil {
		return err
	}

	if err := db.Migrate(); err != nil {
		db.Close()
		return fmt.Errorf("migrate: %w", err)
	}

	a.DB = db
	a.Logger.Debug().Str("dsn", a.Config.Database.DSN).Msg("journal database ready")
	return nil
}

func (a *App) initBroadcaster(cfg *config.Config) (*cosmos.Broadcaster, error) {
	wallet, err := cosmos.NewWallet(cosmos.WalletConfig{
		Mnemonic:   cfg.Wallet.Mnemonic,
		Passphrase: cfg.Wallet.Passphrase,
		HDPath:     cfg.Wallet.HDPath,
		Prefix:     cfg.Wallet.Prefix,
	})
	if err != nil {
		return nil, err
	}
	price, err := chain.ParseGasPrice(cfg.Gas.Price)
	if err != nil {
		return nil, err
	}
	return cosmos.NewBroadcaster(a.client, wallet, cosmos.Config{
		ChainID:      cfg.Chain.ChainID,
		GasPrice:     price,
		GasLimit:     cfg.Gas.Limit,
		PollInterval: cfg.Gas.PollInterval,
		PollTimeout:  cfg.Gas.PollTimeout,
	}, a.Logger), nil
}

// applyConfig pushes the hot-reloadable settings into running components.
func (a *App) applyConfig(cfg *config.Config) {
	if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
		zerolog.SetGlobalLevel(level)
	}
	a.Service.SetEventMatcher(cfg.Events.CreatedID)
	if a.broadcaster != nil {
		if price, err := chain.ParseGasPrice(cfg.Gas.Price); err == nil {
			a.broadcaster.SetGas(price, cfg.Gas.Limit)
		}
	}
	a.Config = cfg
}

// ErrNoConfigFile is returned by Reload when the configuration came from the
// environment.
var ErrNoConfigFile = errors.New("no config file to reload")

// Reload re-reads the config file and applies the hot-reloadable settings.
func (a *App) Reload() error {
	if a.holder == nil {
		return ErrNoConfigFile
	}
	return a.holder.Reload()
}

// Handler builds the gateway router.
func (a *App) Handler() http.Handler {
	h := apihttp.NewHandler(a.Service, a.Logger.With().Str("component", "http").Logger())

	rc := apihttp.RouterConfig{
		Version:        a.version,
		EnableOpenAPI:  a.Config.OpenAPI.Enabled,
		RequestTimeout: a.Config.Gas.PollTimeout + 15*time.Second,
	}
	if a.Config.Metrics.Enabled {
		rc.Metrics = a.Metrics
		rc.MetricsPath = a.Config.Metrics.Path
		rc.MetricsHandler = promhttp.HandlerFor(a.promReg, promhttp.HandlerOpts{})
	}
	return apihttp.NewRouterWithConfig(h, a.Logger, rc)
}

func (a *App) initHTTPServer() {
	a.HTTPServer = &http.Server{
		Addr:         a.Config.Server.Address(),
		Handler:      a.Handler(),
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
	}
}

// Run starts the HTTP gateway and blocks until shutdown.
func (a *App) Run() error {
	a.initHTTPServer()

	if a.holder != nil {
		if err := a.holder.WatchFile(); err != nil {
			a.Logger.Warn().Err(err).Msg("config file watching disabled")
		}
		a.holder.WatchSignals()
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().
			Str("addr", a.HTTPServer.Addr).
			Msg("starting http server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt or error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		a.Shutdown()
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	return a.Shutdown()
}

// Shutdown gracefully stops the application.
func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if a.holder != nil {
		a.holder.Stop()
		a.holder = nil
	}

	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("http server shutdown error")
		}
	}

	a.closeDB()

	a.Logger.Debug().Msg("shutdown complete")
	a.closeLog()
	return nil
}

func (a *App) closeDB() {
	if a.DB == nil {
		return
	}
	if err := a.DB.Close(); err != nil {
		a.Logger.Error().Err(err).Msg("database close error")
	}
	a.DB = nil
}

// NodeInfo asks the node for its network (chain id) and software version.
func (a *App) NodeInfo(ctx context.Context) (network, version string, err error) {
	var resp struct {
		DefaultNodeInfo struct {
			Network string `json:"network"`
			Version string `json:"version"`
		} `json:"default_node_info"`
	}
	if err := a.client.Request(ctx, http.MethodGet, "/cosmos/base/tendermint/v1beta1/node_info", nil, &resp); err != nil {
		return "", "", fmt.Errorf("node info: %w", err)
	}
	return resp.DefaultNodeInfo.Network, resp.DefaultNodeInfo.Version, nil
}

// Signer returns the transaction signer, or nil in query-only mode.
func (a *App) Signer() ports.TxSigner {
	if a.broadcaster == nil {
		return nil
	}
	return a.broadcaster
}

func setupLogger(cfg config.LoggingConfig, out io.Writer, color bool) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		output := zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, NoColor: !color}
		return zerolog.New(output).With().Timestamp().Logger()
	}

	return zerolog.New(out).With().Timestamp().Logger()
}

// newLogFile returns a size-rotated log file writer.
func newLogFile(cfg config.LoggingConfig) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
}

func (a *App) closeLog() {
	if a.logFile == nil {
		return
	}
	a.logFile.Close()
	a.logFile = nil
}
