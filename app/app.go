// Package app is the composition root: it wires every component described
// by the daemon's module table into one running process and owns the single
// cancellation signal and shutdown sequence (SPEC_FULL.md §5). Grounded on
// the teacher's cmd/divinesense/main.go, which performs the same wiring
// inline in main — split out here into its own package so cmd/leadwatchd's
// entrypoint stays a thin flag/signal shim.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gotd/td/tg"

	"leadwatch/config"
	"leadwatch/dispatch"
	"leadwatch/egress"
	"leadwatch/history"
	"leadwatch/internal/must"
	"leadwatch/internal/profile"
	"leadwatch/monitor"
	"leadwatch/payment"
	"leadwatch/server"
	"leadwatch/sessionpool"
	"leadwatch/store"
	"leadwatch/store/db"
	"leadwatch/tariff"
)

// eventQueueSize bounds the channel between the monitor's update handlers
// (which must never block on delivery) and the processor's worker pool.
const eventQueueSize = 1024

// App holds every long-lived component the composition root constructed, so
// Stop can unwind them in the order SPEC_FULL.md §5 specifies.
type App struct {
	profile *profile.Profile
	logger  *slog.Logger

	store         *store.Store
	realtimePool  *sessionpool.Pool
	historyPool   *sessionpool.Pool
	engine        *monitor.Engine
	processor     *dispatch.Processor
	extractor     *history.Extractor
	tariffChecker *tariff.Checker
	bridge        *payment.Bridge
	webhook       *payment.WebhookHandler
	inband        *payment.InbandHandler
	egressSender  *egress.Telegram
	metrics       *server.Metrics
	httpServer    *server.Server
	cfg           *config.Store

	events chan dispatch.Event

	running atomic.Bool
	cancel  context.CancelFunc
}

// New wires every component. It does not start any background loop; call
// Start for that.
func New(prof *profile.Profile, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := config.Load(prof.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("app: load config: %w", err)
	}
	params := cfg.Snapshot()
	if params.BotToken == "" {
		return nil, fmt.Errorf("app: bot_token is not configured in %s", prof.ConfigFile)
	}

	driver, err := db.NewDBDriver(prof)
	if err != nil {
		return nil, fmt.Errorf("app: open store driver: %w", err)
	}
	st := store.New(driver, prof)

	bot, err := tgbotapi.NewBotAPI(params.BotToken)
	if err != nil {
		return nil, fmt.Errorf("app: connect bot api: %w", err)
	}

	dispatcher := tg.NewUpdateDispatcher()

	realtimePool, err := sessionpool.New(filepath.Join(prof.SessionsDir, "realtime"), sessionpool.KindRealtime, logger, &dispatcher)
	if err != nil {
		return nil, fmt.Errorf("app: open realtime session pool: %w", err)
	}
	historyPool, err := sessionpool.New(filepath.Join(prof.SessionsDir, "history"), sessionpool.KindHistory, logger, nil)
	if err != nil {
		return nil, fmt.Errorf("app: open history session pool: %w", err)
	}

	events := make(chan dispatch.Event, eventQueueSize)

	egressSender := egress.New(bot, st, logger)
	metrics := server.NewMetrics()
	egressSender.SetMetrics(metrics)

	processor := dispatch.New(st, egress.DispatchSender{Telegram: egressSender}, logger)
	engine := monitor.New(st, realtimePool, &dispatcher, events, logger)
	processor.OnInactiveProject = engine.StopChat

	extractor := history.New(historyPool, logger)

	tariffChecker := tariff.New(st, egressSender, logger)

	bridge := payment.New(st, egressSender, logger)
	bridge.SetMetrics(metrics)
	webhook := payment.NewWebhookHandler(bridge, cfg)
	inband := payment.NewInbandHandler(bot, bridge, logger)

	httpServer := server.NewServer(prof, webhook, metrics, logger)

	return &App{
		profile:       prof,
		logger:        logger,
		store:         st,
		realtimePool:  realtimePool,
		historyPool:   historyPool,
		engine:        engine,
		processor:     processor,
		extractor:     extractor,
		tariffChecker: tariffChecker,
		bridge:        bridge,
		webhook:       webhook,
		inband:        inband,
		egressSender:  egressSender,
		metrics:       metrics,
		httpServer:    httpServer,
		cfg:           cfg,
		events:        events,
	}, nil
}

// Extractor exposes C5 for whatever invokes a history export; out of scope
// for this package to trigger on its own (SPEC_FULL.md §4.9, C10).
func (a *App) Extractor() *history.Extractor { return a.extractor }

// Inband exposes C7's in-band handler for whatever front-end receives
// Telegram updates; wiring that update loop is a C10 concern this package
// does not implement (SPEC_FULL.md §4.9).
func (a *App) Inband() *payment.InbandHandler { return a.inband }

// Start migrates the schema, launches every background loop through
// must.Go's panic boundary (spec.md §7), and binds the HTTP surface. It
// returns once every loop has been launched; the loops themselves run until
// ctx is cancelled or Stop is called.
func (a *App) Start(ctx context.Context) error {
	if !a.running.CompareAndSwap(false, true) {
		return fmt.Errorf("app: already started")
	}

	if err := a.store.Migrate(ctx); err != nil {
		return fmt.Errorf("app: migrate schema: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	a.engine.Start(runCtx, a.processor)

	must.Go(a.logger, "dispatch.Processor.Run", func() {
		a.processor.Run(runCtx, a.events)
	})

	must.Go(a.logger, "tariff.Checker.Start", func() {
		if err := a.tariffChecker.Start(runCtx); err != nil {
			a.logger.Error("app: tariff checker exited", slog.String("error", err.Error()))
		}
	})

	must.Go(a.logger, "activeChatsGauge", func() {
		a.runActiveChatsGauge(runCtx)
	})

	if err := a.httpServer.Start(runCtx); err != nil {
		cancel()
		return fmt.Errorf("app: start http server: %w", err)
	}

	return nil
}

// runActiveChatsGauge polls the monitor's live subscription count into the
// Prometheus gauge; the count is maintained under a mutex rather than
// pushed on every mutation, so polling is the simplest correct reader.
func (a *App) runActiveChatsGauge(ctx context.Context) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		a.metrics.SetActiveChats(a.engine.ActiveChatCount())
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Stop runs the five-step shutdown sequence SPEC_FULL.md §5 specifies:
// flip the running flag and cancel the root context; stop the maintenance
// loop (bounded internally to its own tick); disconnect every session
// (bounded ≤2s per client, force-closing on timeout); clear C4's caches;
// flush egress by letting Processor.Run's in-flight wg.Wait() drain before
// its goroutine returns.
func (a *App) Stop(ctx context.Context) {
	if !a.running.CompareAndSwap(true, false) {
		return
	}
	if a.cancel != nil {
		a.cancel()
	}

	a.engine.Stop()

	if err := a.realtimePool.Shutdown(ctx); err != nil {
		a.logger.Warn("app: realtime pool shutdown", slog.String("error", err.Error()))
	}
	if err := a.historyPool.Shutdown(ctx); err != nil {
		a.logger.Warn("app: history pool shutdown", slog.String("error", err.Error()))
	}

	a.processor.ClearCaches()

	a.httpServer.Shutdown(ctx)

	if err := a.store.Close(); err != nil {
		a.logger.Warn("app: store close", slog.String("error", err.Error()))
	}
}
