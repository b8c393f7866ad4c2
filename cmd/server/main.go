package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/SlpAus/battle-effects-backend/api"
	"github.com/SlpAus/battle-effects-backend/internal/aggregate"
	"github.com/SlpAus/battle-effects-backend/internal/catalog"
	"github.com/SlpAus/battle-effects-backend/internal/effects"
	"github.com/SlpAus/battle-effects-backend/internal/platform/config"
	"github.com/SlpAus/battle-effects-backend/internal/platform/database"
	"github.com/SlpAus/battle-effects-backend/internal/platform/health"
	"github.com/SlpAus/battle-effects-backend/internal/platform/logging"
	"github.com/SlpAus/battle-effects-backend/internal/platform/shutdown"
	"github.com/SlpAus/battle-effects-backend/internal/platform/startup"
	"github.com/SlpAus/battle-effects-backend/internal/submission"
	"github.com/SlpAus/battle-effects-backend/pkg/lifecycle"
	"github.com/SlpAus/battle-effects-backend/pkg/token"
)

func main() {
	// 1. 加载配置并初始化日志
	cfg, err := config.LoadConfig()
	if err != nil {
		panic("无法加载配置: " + err.Error())
	}
	logging.Init(cfg.Log)
	gin.SetMode(cfg.Server.Mode)

	signer, err := token.NewSigner(cfg.Auth.Secret)
	if err != nil {
		log.Fatal().Err(err).Msg("无法初始化身份令牌校验，请设置 auth.secret")
	}

	// 2. 初始化数据库与Redis
	database.InitDB(cfg.Database)
	if err := startup.InitializeSchema(database.DB); err != nil {
		log.Fatal().Err(err).Msg("应用初始化失败，无法启动")
	}
	database.InitRedis(context.Background(), cfg.Database.Redis)

	// 3. 组装各模块
	items := catalog.NewRepository(database.DB)
	subs := submission.NewRepository(database.DB)
	cache := effects.NewCache(database.RDB, cfg.Cache.TTL)
	service := effects.NewService(database.DB, effects.NewStore(database.DB), subs, items, aggregate.New(aggregate.RoundLogDetector{}), cache)

	startup.RebuildCache(context.Background(), cache)

	// 4. 启动后台的Redis健康检查器
	lifecycleManager := lifecycle.NewManager()
	err = lifecycleManager.Go("redis-health-checker", func(h *lifecycle.Handle) {
		health.StartRedisHealthCheck(h, cache.Flush)
	})
	if err != nil {
		log.Fatal().Err(err).Msg("无法启动Redis健康检查器")
	}

	// 5. 配置路由
	router := gin.New()
	router.Use(logging.RequestLogger(), gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.Cors.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", logging.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", logging.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api.SetupRoutes(router, api.Handlers{
		Submissions: submission.NewHandler(submission.NewIngestor(subs, items)),
		Effects:     effects.NewHandler(service),
		Signer:      signer,
	})

	server := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: router,
	}

	// 6. 启动服务并等待停机信号
	shutdown.NewCoordinator(lifecycleManager).ListenForSignalsAndShutdown(server)
}
