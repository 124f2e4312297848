package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appaudit "github.com/Zhima-Mochi/coffeeshop/internal/application/audit"
	appcatalog "github.com/Zhima-Mochi/coffeeshop/internal/application/catalog"
	appshop "github.com/Zhima-Mochi/coffeeshop/internal/application/shop"
	apptoken "github.com/Zhima-Mochi/coffeeshop/internal/application/token"
	"github.com/Zhima-Mochi/coffeeshop/internal/config"
	"github.com/Zhima-Mochi/coffeeshop/internal/domain/identity"
	"github.com/Zhima-Mochi/coffeeshop/internal/domain/journal"
	"github.com/Zhima-Mochi/coffeeshop/internal/domain/shop"
	"github.com/Zhima-Mochi/coffeeshop/internal/domain/token"
	"github.com/Zhima-Mochi/coffeeshop/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/coffeeshop/internal/infrastructure/menufile"
	"github.com/Zhima-Mochi/coffeeshop/internal/infrastructure/natsstan"
	infraobs "github.com/Zhima-Mochi/coffeeshop/internal/infrastructure/observability"
	"github.com/Zhima-Mochi/coffeeshop/internal/infrastructure/observability/oteltrace"
	"github.com/Zhima-Mochi/coffeeshop/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/coffeeshop/internal/infrastructure/observability/zaplogger"
	"github.com/Zhima-Mochi/coffeeshop/internal/infrastructure/outbox"
	"github.com/Zhima-Mochi/coffeeshop/internal/infrastructure/postgres"
	"github.com/Zhima-Mochi/coffeeshop/internal/observability"
	httppresentation "github.com/Zhima-Mochi/coffeeshop/internal/presentation/http"
	workerpresentation "github.com/Zhima-Mochi/coffeeshop/internal/presentation/worker"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	issueFor := flag.String("issue-token", "", "print a bearer token for this address and exit")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "lifetime of tokens printed by -issue-token")
	envFile := flag.String("env-file", ".env", "optional dotenv file")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	auth := httppresentation.NewAuthenticator(cfg.JWTSecret, cfg.JWTIssuer)
	if *issueFor != "" {
		if err := printToken(auth, *issueFor, *tokenTTL); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	if err := run(cfg, auth); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func printToken(auth *httppresentation.Authenticator, address string, ttl time.Duration) error {
	caller, err := identity.ParseNonZero(address)
	if err != nil {
		return err
	}
	tok, err := auth.IssueToken(caller, ttl)
	if err != nil {
		return err
	}
	fmt.Println(tok)
	return nil
}

func run(cfg *config.Config, auth *httppresentation.Authenticator) error {
	baseLogger, err := zaplogger.New(
		zaplogger.Options{Level: cfg.LogLevel, LogFile: cfg.LogFile},
		observability.F("service", cfg.ServiceName),
		observability.F("env", cfg.Env),
	)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = baseLogger.Sync() }()
	zap.ReplaceGlobals(baseLogger.Zap())

	tp := oteltrace.Install()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	counters, histograms := prometrics.Instruments(prometrics.New(prometheus.DefaultRegisterer, "", ""))
	tel := infraobs.New(oteltrace.FromProvider(tp, cfg.ServiceName), baseLogger, counters, histograms)
	systemLogger := baseLogger.With(observability.F("component", "system"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	meta := cfg.Token()
	ledger, closeLedger, err := openLedger(ctx, cfg, meta)
	if err != nil {
		return err
	}
	defer closeLedger()

	sinks, orders, closeSinks, err := openSinks(ctx, cfg, tel)
	if err != nil {
		return err
	}
	lastOrderID, err := orders.LastOrderID(ctx)
	if err != nil {
		closeSinks()
		return err
	}

	// In-memory event bus carrying OrderPlaced to the audit sinks.
	bus := outbox.NewBus(tel)
	shutdownAudit := startAudit(bus, sinks, closeSinks, tel)
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		shutdownAudit(stopCtx)
	}()

	processor, err := shop.New(shop.Config{
		Owner:       cfg.Owner,
		StoreWallet: cfg.StoreWallet,
		Address:     cfg.Shop,
		Ledger:      appshop.NewInstrumentedLedger(ledger, tel),
		Recorder:    appshop.NewOutboxRecorder(bus, tel),
		ResumeAfter: lastOrderID,
	})
	if err != nil {
		return fmt.Errorf("init processor: %w", err)
	}

	setPrice := appshop.NewSetPriceUseCase(processor, tel)
	query := appshop.NewQuery(processor)
	menuRepo := memory.NewMenuRepository()

	items, err := menufile.Load(cfg.MenuFile, meta)
	if err != nil {
		return err
	}
	seeded, err := appcatalog.NewSeedMenuUseCase(menuRepo, setPrice, tel).Execute(ctx, appcatalog.SeedCommand{Owner: cfg.Owner, Items: items})
	if err != nil {
		return fmt.Errorf("seed menu: %w", err)
	}

	handler := httppresentation.NewHandler(httppresentation.Deps{
		SetPrice:   setPrice,
		PlaceOrder: appshop.NewPlaceOrderUseCase(processor, tel),
		Shop:       query,
		Menu:       appcatalog.NewMenuQuery(menuRepo, query, meta),
		Token:      apptoken.NewService(ledger, tel),
		Orders:     orders,
	}, auth, httppresentation.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst), tel)

	mux := chi.NewRouter()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Mount("/", handler.Router())

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		systemLogger.Info("http_server_start",
			observability.F("addr", server.Addr),
			observability.F("shop_address", processor.Address().String()),
			observability.F("ledger", cfg.LedgerBackend),
			observability.F("menu_items", seeded),
			observability.F("next_order_id", processor.NextOrderID()),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			systemLogger.Error("http_server_error", observability.F("error", err))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		systemLogger.Error("http_server_shutdown_error", observability.F("error", err))
	} else {
		systemLogger.Info("http_server_stopped")
	}
	return nil
}

func openLedger(ctx context.Context, cfg *config.Config, meta token.Metadata) (token.Token, func(), error) {
	if cfg.LedgerBackend != config.LedgerPostgres {
		return memory.NewTokenLedger(meta, cfg.Owner), func() {}, nil
	}
	db, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("open ledger: %w", err)
	}
	return postgres.NewTokenLedger(db, meta, cfg.Owner), func() { _ = db.Close() }, nil
}

// startAudit subscribes the audit worker to bus and starts dispatch. The
// returned shutdown drains the queue into the sinks before closing them.
func startAudit(bus *outbox.Bus, sinks []appaudit.Sink, closeSinks func(), tel observability.Observability) func(context.Context) {
	appaudit.NewWorker(sinks, tel).Start(bus,
		workerpresentation.EventMiddleware(tel.Logger(), map[string]string{"worker": "audit"}),
	)
	bus.Start(context.Background())
	return func(ctx context.Context) {
		bus.Stop(ctx)
		closeSinks()
	}
}

// openSinks builds the audit sinks from config. The returned journal serves
// GET /orders/{orderID} and seeds order numbering: the postgres journal when
// configured, otherwise the in-memory one.
func openSinks(ctx context.Context, cfg *config.Config, tel observability.Observability) ([]appaudit.Sink, journal.Journal, func(), error) {
	mem := memory.NewOrderJournal()
	sinks := []appaudit.Sink{
		{Name: "memory", Writer: mem},
		{Name: "log", Writer: appaudit.NewLogWriter(tel.Logger())},
	}
	var reader journal.Journal = mem
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.JournalDatabaseURL != "" {
		pj, pool, err := postgres.OpenOrderJournal(ctx, cfg.JournalDatabaseURL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open order journal: %w", err)
		}
		closers = append(closers, pool.Close)
		sinks = append(sinks, appaudit.Sink{Name: "postgres", Writer: pj})
		reader = pj
	}

	if cfg.NATSURL != "" {
		relay, closeRelay, err := natsstan.Connect(natsstan.Config{
			ClusterID: cfg.NATSClusterID,
			ClientID:  cfg.NATSClientID,
			URL:       cfg.NATSURL,
			Subject:   cfg.NATSSubject,
		})
		if err != nil {
			closeAll()
			return nil, nil, nil, fmt.Errorf("connect nats streaming: %w", err)
		}
		closers = append(closers, func() { _ = closeRelay() })
		sinks = append(sinks, appaudit.Sink{Name: "nats", Writer: relay})
	}

	return sinks, reader, closeAll, nil
}
