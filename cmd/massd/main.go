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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/raphael-pietrzak/mass-manager-sub000/docs"
	"github.com/raphael-pietrzak/mass-manager-sub000/internal/cache"
	"github.com/raphael-pietrzak/mass-manager-sub000/internal/calendar"
	"github.com/raphael-pietrzak/mass-manager-sub000/internal/config"
	cronrunner "github.com/raphael-pietrzak/mass-manager-sub000/internal/cron"
	"github.com/raphael-pietrzak/mass-manager-sub000/internal/db"
	"github.com/raphael-pietrzak/mass-manager-sub000/internal/handler"
	"github.com/raphael-pietrzak/mass-manager-sub000/internal/lifecycle"
	"github.com/raphael-pietrzak/mass-manager-sub000/internal/logger"
	"github.com/raphael-pietrzak/mass-manager-sub000/internal/recurrence"
	gormrepository "github.com/raphael-pietrzak/mass-manager-sub000/internal/repository/gorm"
	"github.com/raphael-pietrzak/mass-manager-sub000/internal/scheduler"
	"github.com/raphael-pietrzak/mass-manager-sub000/internal/service"
	"github.com/raphael-pietrzak/mass-manager-sub000/internal/specialday"
)

func main() {
	cfgPath := os.Getenv("MASS_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("MASS_ENV_ONLY"); envOnlyRaw != "" {
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
	settingsSvc := &service.SystemSettingsService{Repo: store}
	if err := settingsSvc.EnsureDefaultSwitches(context.Background()); err != nil {
		logger.Warn("init default system switches failed", zap.Error(err))
	}

	kv, locker, pinger := initCache(cfg.Redis, logger)
	loc := cfg.Location()
	today := func() time.Time { return calendar.Day(time.Now().In(loc)) }

	specialDays := &specialday.Calendar{
		Store:      store,
		Cache:      kv,
		CacheTTL:   cfg.Redis.CacheTTL,
		Liturgical: cfg.SpecialDays.Liturgical,
		Logger:     logger,
	}
	importer := &specialday.Importer{
		Store:        store,
		Calendar:     specialDays,
		Switches:     settingsSvc,
		Logger:       logger,
		URL:          cfg.SpecialDays.ICSURL,
		FetchTimeout: cfg.SpecialDays.FetchTimeout,
	}

	sched := &scheduler.Scheduler{
		Store:              store,
		Blackout:           specialDays,
		Logger:             logger.Named("scheduler"),
		Expander:           recurrence.Expander{MaxOccurrences: cfg.Scheduling.MaxOccurrences},
		HorizonDays:        cfg.Scheduling.SearchHorizonDays,
		WorkloadWindowDays: cfg.Scheduling.WorkloadWindowDays,
		Location:           loc,
	}
	sweeper := &lifecycle.Manager{
		Store:              store,
		Locker:             locker,
		Switches:           settingsSvc,
		Logger:             logger.Named("lifecycle"),
		LockTTL:            cfg.Redis.LockTTL,
		WorkloadWindowDays: cfg.Scheduling.WorkloadWindowDays,
		Location:           loc,
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm, Cache: pinger}
	healthHandler.Register(engine)
	intentions := &handler.IntentionsHandler{Scheduler: sched, Repo: store}
	intentions.Register(engine)
	celebrants := &handler.CelebrantsHandler{Repo: store, Today: today}
	celebrants.Register(engine)
	specialDaysHandler := &handler.SpecialDaysHandler{Calendar: specialDays, Importer: importer, Today: today}
	specialDaysHandler.Register(engine)
	lifecycleHandler := &handler.LifecycleHandler{Manager: sweeper, Runs: store}
	lifecycleHandler.Register(engine)
	settingsHandler := &handler.SettingsHandler{Settings: settingsSvc}
	settingsHandler.Register(engine)

	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cronRunner := cronrunner.New(logger, ctx)
	if cfg.Cron.Enabled {
		if _, err := cronRunner.Add("lifecycle_sweep", cfg.Cron.LifecycleSweep, sweeper.RunOnce); err != nil {
			logger.Fatal("cron add lifecycle sweep failed", zap.Error(err))
		}
		if strings.TrimSpace(cfg.SpecialDays.ICSURL) != "" {
			if _, err := cronRunner.Add("special_day_sync", cfg.Cron.SpecialDaySync, importer.RunOnce); err != nil {
				logger.Fatal("cron add special day sync failed", zap.Error(err))
			}
		}
		cronRunner.Start()
		defer cronRunner.Stop()
	}

	errCh := make(chan error, 1)

	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr), zap.String("timezone", loc.String()))
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

// initCache returns redis when configured and reachable, the in-process store
// otherwise. The sweep lock is then only process-wide.
func initCache(cfg config.RedisConfig, logger *zap.Logger) (cache.Store, cache.Locker, handler.Pinger) {
	if strings.TrimSpace(cfg.Addr) == "" {
		mem := cache.NewMemoryStore()
		return mem, mem, nil
	}
	rs := cache.NewRedisStore(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rs.Ping(ctx); err != nil {
		logger.Warn("redis unreachable, using in-process cache", zap.String("addr", cfg.Addr), zap.Error(err))
		_ = rs.Close()
		mem := cache.NewMemoryStore()
		return mem, mem, nil
	}
	logger.Info("redis connected", zap.String("addr", cfg.Addr))
	return rs, rs, rs
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
