package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/jmylchreest/tvarr/internal/config"
	"github.com/jmylchreest/tvarr/internal/danmaku"
	"github.com/jmylchreest/tvarr/internal/database"
	"github.com/jmylchreest/tvarr/internal/database/migrations"
	recorderhttp "github.com/jmylchreest/tvarr/internal/http"
	"github.com/jmylchreest/tvarr/internal/http/handlers"
	"github.com/jmylchreest/tvarr/internal/httpclient"
	"github.com/jmylchreest/tvarr/internal/metrics"
	"github.com/jmylchreest/tvarr/internal/models"
	"github.com/jmylchreest/tvarr/internal/platform"
	"github.com/jmylchreest/tvarr/internal/recordermanager"
	"github.com/jmylchreest/tvarr/internal/repository"
	"github.com/jmylchreest/tvarr/internal/retention"
	"github.com/jmylchreest/tvarr/internal/version"
)

// metricsCollectInterval is how often the Prometheus gauges refresh from
// the in-memory recorder fleet.
const metricsCollectInterval = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the bsrecorder daemon",
	Long: `Start the bsrecorder daemon.

The daemon loads every previously configured room from the database,
starts a Recorder for each, and keeps recording until stopped. While it
runs, the HTTP surface on server.host:server.port adds, removes, or
toggles rooms in the running daemon. The recorder/account subcommands
write the database directly; their changes take effect the next time
the daemon starts.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := slog.Default()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	db, err := database.New(cfg.Database, logger, nil)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer db.Close()

	if err := runMigrations(db.DB, logger); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	recorderRepo := repository.NewRecorderRepository(db.DB)
	accountRepo := repository.NewAccountRepository(db.DB)

	httpClient := httpclient.New(httpclient.Config{
		Timeout:             httpclient.DefaultTimeout,
		Logger:              logger,
		RetryAttempts:       httpclient.DefaultRetryAttempts,
		RetryDelay:          httpclient.DefaultRetryDelay,
		RetryMaxDelay:       httpclient.DefaultRetryMaxDelay,
		BackoffMultiplier:   httpclient.DefaultBackoffMultiplier,
		CircuitThreshold:    httpclient.DefaultCircuitThreshold,
		CircuitTimeout:      httpclient.DefaultCircuitTimeout,
		CircuitHalfOpenMax:  httpclient.DefaultCircuitHalfOpenMax,
		UserAgent:           "bsrecorder/" + version.Short(),
		EnableDecompression: true,
	})

	clients := buildClientFactory(cfg.Platform, httpClient)
	danmakuReg := buildDanmakuRegistry(cfg.Platform, httpClient, logger)

	manager := recordermanager.New(
		recorderRepo,
		accountRepo,
		clients,
		danmakuReg,
		httpClient,
		cfg.Recorder,
		cfg.Storage.CacheRoot,
		logger,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := manager.Load(ctx); err != nil {
		return fmt.Errorf("loading recorders: %w", err)
	}

	logger.Info("bsrecorder started", "rooms", len(manager.List()))

	var sweeper *retention.Sweeper
	if cfg.Backup.Schedule.Enabled {
		sweeper = retention.New(cfg.Storage.CacheRoot, cfg.Storage.RetentionDays, cfg.Backup.Schedule.Cron, logger)
		if err := sweeper.Start(ctx); err != nil {
			return fmt.Errorf("starting retention sweep: %w", err)
		}
		defer sweeper.Stop()
	}

	srv := recorderhttp.NewServer(recorderhttp.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     recorderhttp.DefaultServerConfig().IdleTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, logger, version.Short())

	recorderHandler := handlers.NewRecorderHandler(manager)
	recorderHandler.Register(srv.API())
	recorderHandler.RegisterSSE(srv.Router())
	srv.Router().Handle("/metrics", promhttp.Handler())

	metrics.StartCollector(ctx, manager, metricsCollectInterval)

	httpErrCh := make(chan error, 1)
	go func() {
		httpErrCh <- srv.ListenAndServe(ctx)
	}()

	select {
	case <-ctx.Done():
	case err := <-httpErrCh:
		if err != nil {
			logger.Error("http server exited", "error", err)
		}
	}

	logger.Info("shutting down")
	manager.Shutdown()

	return nil
}

func runMigrations(db *gorm.DB, logger *slog.Logger) error {
	migrator := migrations.NewMigrator(db, logger)
	migrator.RegisterAll(migrations.AllMigrations())
	return migrator.Up(context.Background())
}

// buildClientFactory registers every built-in platform Client, configured
// from the platform section of cfg.
func buildClientFactory(cfg config.PlatformConfig, httpClient *httpclient.Client) *platform.ClientFactory {
	factory := platform.NewClientFactory()

	factory.Register(platform.NewMainstreamClient(httpClient, cfg.MainstreamPageBase))
	factory.Register(platform.NewGamingClient(httpClient, cfg.GamingPageBase, cfg.GamingSignKey))
	factory.Register(platform.NewShortLiveClient(httpClient, cfg.ShortLivePageBase, cfg.ShortLiveDisableMobileAPI, cfg.ShortLivePreferFLV))
	factory.Register(platform.NewGlobalShortClient(httpClient, cfg.GlobalShortPageBase, cfg.GlobalShortPreferFLV, cfg.GlobalShortPreferHLS))

	return factory
}

// buildDanmakuRegistry registers a provider factory per platform that
// supports danmaku. The registry's factory signature only carries
// (account, roomID), so each closure derives its own connection endpoint
// from platform config rather than the Client used for media.
func buildDanmakuRegistry(cfg config.PlatformConfig, httpClient *httpclient.Client, logger *slog.Logger) *danmaku.Registry {
	reg := danmaku.NewRegistry()

	reg.Register(models.PlatformMainstream, func(account models.Account, roomID string) danmaku.Provider {
		wsURL := fmt.Sprintf("%s/sub?room_id=%s", cfg.MainstreamWSBase, roomID)
		return danmaku.NewMainstreamProvider(wsURL, roomID, logger)
	})

	reg.Register(models.PlatformGaming, func(account models.Account, roomID string) danmaku.Provider {
		wsURL := fmt.Sprintf("%s/av/v1?room_id=%s", cfg.GamingWSBase, roomID)
		return danmaku.NewGamingProvider(wsURL, roomID, logger)
	})

	reg.Register(models.PlatformShortLive, func(account models.Account, roomID string) danmaku.Provider {
		sign := shortLiveSignFunc(cfg.ShortLiveSignerURL, httpClient)
		return danmaku.NewShortLiveProvider(sign, roomID, logger)
	})

	return reg
}

// shortLiveSignFunc returns a SignFunc that asks an external signer
// service for a room's WebSocket URL, falling back to an unsigned direct
// URL when no signer is configured.
func shortLiveSignFunc(signerURL string, httpClient *httpclient.Client) danmaku.SignFunc {
	return func(roomID string) (string, error) {
		if signerURL == "" {
			return fmt.Sprintf("wss://danmaku.example-shortlive.tv/ws?room_id=%s", roomID), nil
		}

		resp, err := httpClient.Get(context.Background(), fmt.Sprintf("%s?room_id=%s", signerURL, roomID))
		if err != nil {
			return "", fmt.Errorf("calling signer service: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			return "", fmt.Errorf("signer service returned status %d", resp.StatusCode)
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if err != nil {
			return "", fmt.Errorf("reading signer response: %w", err)
		}
		return string(body), nil
	}
}
