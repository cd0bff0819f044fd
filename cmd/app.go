package main

import (
	"context"
	"net/http"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gofiber/fiber/v2"
	"github.com/ic2hrmk/promtail"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"

	apihttp "github.com/mkhodaee16/ecb-bot/internal/api/http"
	"github.com/mkhodaee16/ecb-bot/internal/controllers"
	"github.com/mkhodaee16/ecb-bot/internal/gateway"
	mongorepo "github.com/mkhodaee16/ecb-bot/internal/repository/mongo"
	mongostructs "github.com/mkhodaee16/ecb-bot/internal/repository/mongo/structs"
	"github.com/mkhodaee16/ecb-bot/internal/repository/sqlstore"
	"github.com/mkhodaee16/ecb-bot/internal/telemetry"
	"github.com/mkhodaee16/ecb-bot/internal/usecasees"
	"github.com/mkhodaee16/ecb-bot/internal/usecasees/structs"
)

const (
	appName         = "ecb-bot"
	settingsTTL     = time.Minute
	shutdownTimeout = 10 * time.Second
)

type App struct {
	Config     *Config
	Logger     *logrus.Logger
	HTTPClient *http.Client
	TGM        *tgbotapi.BotAPI
	DB         *sqlx.DB
	Mongo      *mongo.Client
	PromTail   promtail.Client
	Metrics    *structs.Metrics
}

// init loads the config and opens every backing connection.
func (a *App) init(ctx context.Context, confFileName string) error {
	cfg, err := loadConfig(confFileName)
	if err != nil {
		return errors.Wrap(err, "load config")
	}
	a.Config = cfg
	a.configureLogger()

	if err := a.initLoki(); err != nil {
		return errors.Wrap(err, "init loki")
	}
	if err := a.InitDB(ctx); err != nil {
		return errors.Wrap(err, "init db")
	}
	if err := a.initMongo(ctx); err != nil {
		return errors.Wrap(err, "init mongo")
	}

	a.initHTTPClient()

	return nil
}

func (a *App) Close() {
	if a.DB != nil {
		_ = a.DB.Close()
	}
	if a.Mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.Mongo.Disconnect(ctx)
	}
	if a.PromTail != nil {
		a.PromTail.Close()
	}
}

func (a *App) gateway() gateway.Gateway {
	if a.Config.Gateway.Mode == GatewayPaper {
		a.Logger.Warn("paper gateway in use, no order reaches a broker")
		return gateway.NewPaper()
	}

	return gateway.NewBridge(
		controllers.NewClientController(a.HTTPClient, a.Config.Gateway.APIKey, a.Logger),
		controllers.NewCryptoController(a.Config.Gateway.SecretKey),
		a.Config.Gateway.URL,
		a.Logger,
	)
}

func (a *App) settingsRepo(ctx context.Context) (mongorepo.SettingsRepo, error) {
	if a.Mongo == nil {
		return nil, nil
	}

	repo := mongorepo.NewSettingsRepository(a.Mongo, a.Config.Mongo.DBName)

	defaults := make([]mongostructs.Settings, 0, len(a.Config.Mongo.Symbols))
	for _, symbol := range a.Config.Mongo.Symbols {
		defaults = append(defaults, mongostructs.Settings{
			Symbol:           symbol,
			TrailDistance:    a.Config.Reconcile.TrailDistance,
			ProfitMultiplier: a.Config.Reconcile.ProfitMultiplier,
			Status:           mongostructs.Enabled,
		})
	}
	if err := repo.SetDefault(ctx, defaults); err != nil {
		return nil, err
	}

	return repo, nil
}

// serve runs the webhook API, the live channel, the reconciler and the bot
// until ctx is cancelled, then shuts them down in order.
func (a *App) serve(ctx context.Context) error {
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	if err := a.initTgBot(); err != nil {
		return errors.Wrap(err, "init telegram")
	}
	a.InitMetrics()

	loc, err := time.LoadLocation(a.Config.TimeZone)
	if err != nil {
		return errors.Wrap(err, "REPORT_TZ")
	}

	settingsRepo, err := a.settingsRepo(ctx)
	if err != nil {
		return errors.Wrap(err, "init settings")
	}

	store := sqlstore.New(a.DB)
	hub := telemetry.NewHub(a.Logger)
	guard := gateway.NewGuard(a.gateway(), a.Config.Gateway.AcquireTimeout, a.Config.Gateway.CallTimeout, a.Logger)

	var tgmController controllers.TgmCtrl
	if a.TGM != nil {
		tgmController = controllers.NewTgmController(a.TGM, a.Config.Telegram.ChatID, a.Config.Telegram.Rate)
	}

	notifier := usecasees.NewNotifier(tgmController, a.Logger)
	settings := usecasees.NewSettingsResolver(settingsRepo, usecasees.Tunables{
		TrailDistance:    a.Config.Reconcile.TrailDistance,
		ProfitMultiplier: a.Config.Reconcile.ProfitMultiplier,
	}, settingsTTL, a.Logger)

	orderUseCase := usecasees.NewOrderUseCase(store, guard, notifier, hub, a.Metrics, a.Logger)
	signalUseCase := usecasees.NewSignalUseCase(store, orderUseCase, hub, a.Metrics, a.Config.TradeKey, a.Logger)
	positionUseCase := usecasees.NewPositionUseCase(store, guard, settings, notifier, hub, a.Logger)
	queryUseCase := usecasees.NewQueryUseCase(store)
	reconcileUseCase := usecasees.NewReconcileUseCase(
		store,
		guard,
		settings,
		notifier,
		hub,
		a.Metrics,
		a.Config.Reconcile.Interval,
		a.Config.Reconcile.Backoff,
		a.Logger,
	)

	f := fiber.New(fiber.Config{
		AppName:               appName,
		DisableStartupMessage: true,
		ErrorHandler:          apihttp.ErrorHandler(a.Logger),
	})
	apihttp.NewMiddleware(f, appName, a.Logger).Use()
	apihttp.RegisterHTTPEndpoints(f, apihttp.NewHandler(signalUseCase, positionUseCase, queryUseCase, a.Logger))

	mux := http.NewServeMux()
	mux.Handle("/", hub)
	wsServer := &http.Server{
		Addr:              a.Config.WSAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var tgmUseCase interface{ CommandProcessor(context.Context) }
	if tgmController != nil {
		tgm := usecasees.NewTgmUseCase(store, tgmController, loc, a.Logger)
		tgmUseCase = tgm

		if a.Config.ReportCron != "" {
			report, err := tgm.ScheduleReport(a.Config.ReportCron)
			if err != nil {
				return errors.Wrap(err, "REPORT_CRON")
			}
			defer report.Stop()
		}
	}

	var wg sync.WaitGroup
	errCh := make(chan error, 2)

	wg.Add(2)
	go func() {
		defer wg.Done()
		reconcileUseCase.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		notifier.Run(ctx)
	}()

	go func() {
		a.Logger.WithField("addr", a.Config.HTTPAddr).Info("http api listening")
		if err := f.Listen(a.Config.HTTPAddr); err != nil {
			errCh <- errors.Wrap(err, "http api")
		}
	}()

	go func() {
		a.Logger.WithField("addr", a.Config.WSAddr).Info("live channel listening")
		if err := wsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- errors.Wrap(err, "live channel")
		}
	}()

	if tgmUseCase != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tgmUseCase.CommandProcessor(ctx)
		}()
	}

	a.announce(ctx, store, notifier)

	select {
	case <-ctx.Done():
		err = nil
	case err = <-errCh:
	}

	a.Logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := f.Shutdown(); err != nil {
		a.Logger.WithError(err).Warn("http api shutdown")
	}
	if err := wsServer.Shutdown(shutdownCtx); err != nil {
		a.Logger.WithError(err).Warn("live channel shutdown")
	}
	hub.Close()
	stop()

	// the reconciler finishes its in-flight cycle first
	wg.Wait()

	return err
}

func (a *App) announce(ctx context.Context, store sqlstore.Store, notifier *usecasees.Notifier) {
	accounts, err := store.Accounts().ListActive(ctx)
	if err != nil {
		a.Logger.WithError(err).Warn("count accounts")
	}
	active, err := store.Positions().GetActive(ctx)
	if err != nil {
		a.Logger.WithError(err).Warn("count positions")
	}

	a.Logger.
		WithField("accounts", len(accounts)).
		WithField("active_positions", len(active)).
		WithField("gateway", a.Config.Gateway.Mode).
		Info("ecb-bot started")

	notifier.Started(len(accounts), len(active))
}
