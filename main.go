package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"autoliquid/internal/broadcast"
	"autoliquid/internal/config"
	"autoliquid/internal/database/db_client"
	"autoliquid/internal/database/migrations"
	"autoliquid/internal/http/http_server"
	"autoliquid/internal/http/middleware"
	"autoliquid/internal/redis/redis_client"
	"autoliquid/internal/registry"
	"autoliquid/internal/services/auction"
	"autoliquid/internal/settlement"
	"autoliquid/internal/ws"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	Log, _ = zap.NewDevelopment()
)

func main() {
	defer Log.Sync()
	zap.ReplaceGlobals(Log)

	// 1. Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		Log.Fatal("Failed to load configuration", zap.Error(err))
	}
	if cfg.LogLevel != "debug" {
		Log = newProductionLogger(cfg.LogLevel)
		zap.ReplaceGlobals(Log)
	}
	Log.Debug("Configuration loaded successfully",
		zap.String("store", cfg.StoreBackend),
		zap.String("broadcast", cfg.BroadcastBackend),
	)

	// 2. Context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGINT, syscall.SIGTERM,
	)
	defer stop()

	checks := map[string]http_server.HealthCheck{}

	// 3. Store + collaborators
	var (
		store   auction.AuctionStore
		dealers auction.DealerRegistry
		reports auction.InspectionReports
		memReg  *registry.Memory
	)
	switch cfg.StoreBackend {
	case config.StorePostgres:
		pgDb := openPostgres(cfg)
		defer pgDb.Close()
		store = auction.NewPostgresStore(pgDb)
		dealers = registry.NewPgDealers(pgDb)
		reports = registry.NewPgReports(pgDb)
		checks["postgres"] = pgDb.PingContext
	default:
		memReg = registry.NewMemory()
		store = auction.NewMemoryStore()
		dealers, reports = memReg, memReg
	}

	// 4. Broadcaster
	hub := broadcast.NewHub(cfg.SubscriberBuffer)
	var bc broadcast.Broadcaster
	switch cfg.BroadcastBackend {
	case config.BroadcastRedis:
		var redisClient *redis.Client
		redisClient, err = redis_client.NewRedisClient(cfg.RedisAuctionsHost, cfg.RedisAuctionsPort, cfg.RedisAuctionsPassword)
		if err != nil {
			Log.Fatal("Failed to create Redis client", zap.Error(err))
		}
		defer redisClient.Close()
		Log.Debug("Redis client created successfully")
		bc = broadcast.NewRedisBroadcaster(redisClient, hub)
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	default:
		bc = broadcast.NewLocalBroadcaster(hub)
	}

	// 5. Settlement
	var notifier auction.SettlementNotifier
	if cfg.AmqpURL != "" {
		n := settlement.NewAMQPNotifier(cfg.AmqpURL)
		defer n.Close()
		notifier = n
	}

	// 6. Initialize the auction service
	auctionService := auction.NewAuctionService(auction.Deps{
		Store:     store,
		Locks:     auction.NewLockRegistry(cfg.BidLockTimeout),
		Publisher: bc,
		Dealers:   dealers,
		Reports:   reports,
		Notifier:  notifier,
	}, auction.Options{
		ExtensionWindow:     cfg.AntiSnipeWindow,
		ExtensionAmount:     cfg.AntiSnipeExtension,
		DefaultMinIncrement: cfg.BidMinIncrement,
		MaxRetries:          cfg.BidMaxRetries,
	})

	if memReg != nil && cfg.SeedDemoData {
		seedDemo(ctx, memReg, auctionService, cfg.JwtSecret)
	}

	// 7. Background: lifecycle scheduler
	scheduler := auction.NewScheduler(store, auctionService, cfg.SchedulerInterval, nil)
	go scheduler.Run(ctx)

	// 8. HTTP + WS server
	wsSrv := ws.NewWsServer(bc, auctionService, cfg.JwtSecret)
	httpServer := http_server.NewHttpServer(ctx, cfg.HttpServerPort, wsSrv, auctionService, cfg.JwtSecret, checks)

	go func() {
		<-ctx.Done()
		_ = httpServer.Dispose()
	}()
	if err := httpServer.Start(); err != nil {
		Log.Fatal("Failed to start HTTP server", zap.Error(err))
	}
	Log.Info("shutdown_complete")
}

func openPostgres(cfg *config.Config) *sql.DB {
	pgDb, err := db_client.Open(cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDb)
	if err != nil {
		Log.Fatal("pg-open", zap.Error(err))
	}
	if cfg.RunMigrations {
		if err := migrations.Up(pgDb); err != nil {
			Log.Fatal("pg-migrate", zap.Error(err))
		}
	}
	return pgDb
}

func newProductionLogger(level string) *zap.Logger {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	l, err := zc.Build()
	if err != nil {
		return Log
	}
	return l
}

// seedDemo loads demo dealers and reports, opens one auction now and
// schedules another, then logs tokens to call the API with.
func seedDemo(ctx context.Context, m *registry.Memory, svc auction.IAuctionService, secret string) {
	registry.SeedDemo(m)
	now := time.Now().UTC()

	live, err := svc.CreateAuction(ctx, auction.CreateAuctionInput{
		InspectionReportID: "insp-1001",
		StartTime:          now,
		EndTime:            now.Add(10 * time.Minute),
		StartingBid:        100000,
		ReservePrice:       150000,
	})
	if err != nil {
		Log.Warn("demo_seed_failed", zap.Error(err))
		return
	}
	if _, err := svc.OpenAuction(ctx, live.ID); err != nil {
		Log.Warn("demo_seed_failed", zap.Error(err))
	}
	if _, err := svc.CreateAuction(ctx, auction.CreateAuctionInput{
		InspectionReportID: "insp-1002",
		StartTime:          now.Add(5 * time.Minute),
		EndTime:            now.Add(30 * time.Minute),
		StartingBid:        600000,
		ReservePrice:       750000,
	}); err != nil {
		Log.Warn("demo_seed_failed", zap.Error(err))
	}

	tokens := []zap.Field{zap.String("live_auction_id", live.ID)}
	if tok, err := middleware.IssueToken(secret, "ops-1", middleware.RoleOperator, 24*time.Hour); err == nil {
		tokens = append(tokens, zap.String("operator", tok))
	}
	for _, id := range registry.DemoDealerIDs() {
		if tok, err := middleware.IssueToken(secret, id, middleware.RoleDealer, 24*time.Hour); err == nil {
			tokens = append(tokens, zap.String(id, tok))
		}
	}
	Log.Info("demo_seeded", tokens...)
}
