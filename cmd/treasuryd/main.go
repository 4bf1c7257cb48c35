package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"treasury/internal/auth"
	"treasury/internal/cache"
	"treasury/internal/client/settlement"
	vestingclient "treasury/internal/client/vesting"
	"treasury/internal/config"
	cronrunner "treasury/internal/cron"
	"treasury/internal/db"
	"treasury/internal/handler"
	"treasury/internal/logger"
	"treasury/internal/notify"
	gormrepository "treasury/internal/repository/gorm"
	"treasury/internal/transfer"
	"treasury/internal/treasury"
)

func main() {
	cfgPath := os.Getenv("TRS_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("TRS_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	store := gormrepository.New(dbConn.Gorm)

	var settler *settlement.Client
	var transferer transfer.Transferer
	var balances transfer.BalanceReader
	if cfg.Settlement.BaseURL != "" {
		settler = &settlement.Client{
			BaseURL: cfg.Settlement.BaseURL,
			APIKey:  cfg.Settlement.APIKey,
			HTTP:    &http.Client{Timeout: cfg.Settlement.Timeout},
		}
		transferer = settler
		balances = settler
	} else {
		// Dry-run mode: transfers are recorded in process, nothing moves.
		logger.Warn("no settlement base url configured, running in dry-run transfer mode")
		rec := transfer.NewRecorder()
		transferer = rec
		balances = rec
	}

	var balanceStore cache.Store
	if strings.EqualFold(cfg.Cache.Backend, "redis") {
		balanceStore = cache.NewRedisStore(&redis.Options{
			Addr: cfg.Cache.RedisAddr,
			DB:   cfg.Cache.RedisDB,
		})
	} else {
		balanceStore = cache.NewMemoryStore()
	}
	cachedBalances := &cache.Balances{
		Inner: balances,
		Store: balanceStore,
		TTL:   cfg.Cache.BalanceTTL,
	}

	var vestingDelegate treasury.VestingDelegate
	if cfg.Vesting.BaseURL != "" {
		vestingDelegate = &vestingclient.Client{
			BaseURL: cfg.Vesting.BaseURL,
			APIKey:  cfg.Vesting.APIKey,
			HTTP:    &http.Client{Timeout: cfg.Vesting.Timeout},
		}
	}

	dispatcher := &notify.Dispatcher{
		Logger:         logger,
		Project:        cfg.Notify.ProjectName,
		WebhookURL:     cfg.Notify.WebhookURL,
		TelegramToken:  cfg.Notify.TelegramToken,
		TelegramChatID: cfg.Notify.TelegramChatID,
		Disabled:       cfg.Notify.DisableDispatch,
	}

	svc := &treasury.Service{
		Repo:     store,
		Transfer: transferer,
		Balances: cachedBalances,
		Vesting:  vestingDelegate,
		Events:   dispatcher,
		Logger:   logger,
		Policy: treasury.DelayPolicy{
			Standard:           cfg.Treasury.StandardDelay,
			Large:              cfg.Treasury.LargeDelay,
			Emergency:          cfg.Treasury.EmergencyDelay,
			LargeWithdrawalBps: cfg.Treasury.LargeWithdrawalBps,
		},
		Threshold:         cfg.Treasury.MultisigThreshold,
		RecoveryRecipient: cfg.Treasury.RecoveryRecipient,
	}
	if err := svc.LoadState(context.Background()); err != nil {
		logger.Fatal("load persisted state failed", zap.Error(err))
	}
	bootstrap := treasury.Actor{ID: "system", Role: treasury.RoleAdmin}
	if len(cfg.Treasury.AllocationBps) > 0 {
		if err := svc.ApplyAllocationConfig(context.Background(), bootstrap, cfg.Treasury.AllocationBps); err != nil {
			logger.Fatal("apply allocation config failed", zap.Error(err))
		}
	}
	if len(cfg.Treasury.Programs) > 0 {
		seeds := make(map[string]treasury.ProgramConfig, len(cfg.Treasury.Programs))
		for programType, seed := range cfg.Treasury.Programs {
			capAmount, err := decimal.NewFromString(seed.Cap)
			if err != nil {
				logger.Fatal("bad program cap",
					zap.String("program", programType),
					zap.String("cap", seed.Cap),
					zap.Error(err),
				)
			}
			seeds[programType] = treasury.ProgramConfig{
				Category:        seed.Category,
				TotalAllocation: capAmount,
				VestingDuration: seed.Vesting,
				VestingCliff:    seed.Cliff,
			}
		}
		if err := svc.EnsureDefaultPrograms(context.Background(), bootstrap, seeds); err != nil {
			logger.Fatal("seed award programs failed", zap.Error(err))
		}
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm}
	healthHandler.Register(engine)

	jwt := auth.JWT{Secret: []byte(cfg.Auth.JWTSecret), TokenTTL: cfg.Auth.TokenTTL}
	api := engine.Group("/api/v1")
	api.Use(auth.Middleware(jwt))

	(&handler.TreasuryHandler{Service: svc}).Register(api)
	(&handler.ProposalHandler{Service: svc}).Register(api)
	(&handler.BatchHandler{Service: svc}).Register(api)
	(&handler.ProgramHandler{Service: svc}).Register(api)
	(&handler.FundingHandler{Service: svc}).Register(api)
	(&handler.EmergencyHandler{Service: svc}).Register(api)
	(&handler.HistoryHandler{Service: svc}).Register(api)

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cronRunner := cronrunner.New(logger, ctx)
	if cfg.Funding.SweepEnabled {
		sweeper := treasury.Actor{ID: "funding-sweep", Role: treasury.RoleOperator}
		_, err := cronRunner.Add("funding-sweep", cfg.Funding.SweepSpec, func(ctx context.Context) {
			funded, err := svc.TriggerAll(ctx, sweeper)
			if err != nil {
				if !treasury.IsKind(err, treasury.KindState) {
					logger.Warn("funding sweep failed", zap.Error(err))
				}
				return
			}
			if funded > 0 {
				logger.Info("funding sweep complete", zap.Int("funded", funded))
			}
		})
		if err != nil {
			logger.Warn("cron register funding sweep failed", zap.Error(err))
		}
	}
	cronRunner.Start()
	defer cronRunner.Stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
