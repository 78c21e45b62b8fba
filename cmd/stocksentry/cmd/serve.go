package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/stocksentry/stocksentry/internal/broadcast"
	"github.com/stocksentry/stocksentry/internal/classify"
	"github.com/stocksentry/stocksentry/internal/config"
	"github.com/stocksentry/stocksentry/internal/cooldown"
	"github.com/stocksentry/stocksentry/internal/engine"
	"github.com/stocksentry/stocksentry/internal/feed"
	"github.com/stocksentry/stocksentry/internal/notify"
	"github.com/stocksentry/stocksentry/internal/producturl"
	"github.com/stocksentry/stocksentry/internal/store"
	"github.com/stocksentry/stocksentry/pkg/logger"
	domain "github.com/stocksentry/stocksentry/pkg/types"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the evaluation pipeline, broadcast server, and API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	cliLog := log.NewWithOptions(os.Stderr, log.Options{
		Level: parseLogLevel(cfg.Logging.Level),
	})
	slogger := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	ctx := context.Background()
	gates := classify.Gates{
		CheckOnlineStatus: cfg.Store.CheckOnlineStatus,
		CheckInAssortment: cfg.Store.CheckInAssortment,
	}

	// Persistence collaborator; the pipeline degrades to in-memory
	// defaults when the database is disabled.
	var priceStore store.Store
	if cfg.Database.Enabled {
		pg, pgErr := store.NewPostgresStore(ctx, cfg.Database.DSN())
		if pgErr != nil {
			return fmt.Errorf("connecting to database: %w", pgErr)
		}
		if migErr := pg.Migrate(ctx); migErr != nil {
			pg.Close()
			return fmt.Errorf("migrating database: %w", migErr)
		}
		priceStore = pg
	} else {
		priceStore = store.NewMemoryStore()
	}
	defer priceStore.Close()

	resolver := producturl.NewResolver(cfg.Store.Info, slogger)
	if cfg.Overrides.Path != "" {
		if loadErr := resolver.LoadOverrides(cfg.Overrides.Path); loadErr != nil {
			return fmt.Errorf("loading url overrides: %w", loadErr)
		}
		if cfg.Overrides.Watch {
			if watchErr := resolver.Watch(); watchErr != nil {
				return fmt.Errorf("watching url overrides: %w", watchErr)
			}
		}
	}
	defer resolver.Close()

	// Notification channels.
	var notifiers []notify.Notifier
	if cfg.Webhook.Enabled {
		notifiers = append(notifiers, notify.NewWebhookNotifier(
			cfg.Webhook.URL,
			notify.WithURLResolver(resolver.URL),
		))
	}
	if cfg.Broadcast.Enabled {
		bc := broadcast.NewServer(broadcast.Config{
			Addr:              fmt.Sprintf(":%d", cfg.Broadcast.Port),
			Tokens:            cfg.Broadcast.Tokens,
			TLSCertPath:       cfg.Broadcast.TLSCertPath,
			TLSKeyPath:        cfg.Broadcast.TLSKeyPath,
			HeartbeatInterval: cfg.Broadcast.HeartbeatInterval,
			PacingInterval:    cfg.Broadcast.PacingInterval,
			Gates:             gates,
			LogTokens:         cfg.Broadcast.LogTokens,
		}, slogger)
		if startErr := bc.Start(); startErr != nil {
			return fmt.Errorf("starting broadcast server: %w", startErr)
		}
		notifiers = append(notifiers, bc)
	}
	if len(notifiers) == 0 {
		notifiers = append(notifiers, notify.NewNoOpNotifier(slogger))
	}
	defer func() {
		for _, n := range notifiers {
			n.Shutdown()
		}
	}()

	ledger := cooldown.NewLedger(
		cooldown.WithStockTTL(cfg.Cooldown.StockTTL),
		cooldown.WithBasketTTL(cfg.Cooldown.BasketTTL),
	)

	eng := engine.NewEngine(ledger, notifiers,
		engine.WithLogger(slogger),
		engine.WithStore(priceStore),
		engine.WithGates(gates),
		engine.WithBasketAllowList(cfg.Store.BasketAllowList),
	)

	// Scheduled evaluation runs only when a snapshot feed is configured;
	// without one, batches arrive via the HTTP API.
	var sched *engine.Scheduler
	if cfg.Feed.URL != "" {
		source := feed.NewClient(cfg.Feed.URL,
			feed.WithHTTPClient(&http.Client{Timeout: cfg.Feed.Timeout}),
		)
		sched, err = engine.NewScheduler(
			eng, source, ledger,
			cfg.Schedule.EvaluationInterval,
			cfg.Schedule.PruneInterval,
			slogger,
		)
		if err != nil {
			return fmt.Errorf("creating scheduler: %w", err)
		}
		sched.Start()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	e.GET("/readyz", func(c echo.Context) error {
		if pingErr := priceStore.Ping(c.Request().Context()); pingErr != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "store unreachable"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
	})

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Push-style evaluation: the store adapter posts a batch of item
	// snapshots and receives the basket candidate set back.
	e.POST("/api/v1/evaluate", func(c echo.Context) error {
		var req struct {
			Items []domain.Item `json:"items"`
		}
		if bindErr := c.Bind(&req); bindErr != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": bindErr.Error()})
		}
		candidates := eng.EvaluateBatch(c.Request().Context(), req.Items)
		return c.JSON(http.StatusOK, map[string]any{
			"basket_candidates": candidates,
		})
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	cliLog.Info("starting server", "addr", addr, "store", cfg.Store.Info.Name)

	go func() {
		if srvErr := e.Start(addr); srvErr != nil && !errors.Is(srvErr, http.ErrServerClosed) {
			cliLog.Error("server error", "err", srvErr)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cliLog.Info("shutting down")

	if sched != nil {
		<-sched.Stop().Done()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}

	cliLog.Info("server stopped")
	return nil
}

func parseLogLevel(level string) log.Level {
	switch level {
	case "debug":
		return log.DebugLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}
