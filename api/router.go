package api

import (
	"github.com/gin-gonic/gin"

	"github.com/SlpAus/battle-effects-backend/internal/effects"
	"github.com/SlpAus/battle-effects-backend/internal/platform/health"
	"github.com/SlpAus/battle-effects-backend/internal/submission"
	"github.com/SlpAus/battle-effects-backend/pkg/token"
)

// Handlers 汇总路由需要的各模块处理器
type Handlers struct {
	Submissions *submission.Handler
	Effects     *effects.Handler
	Signer      *token.Signer
}

// SetupRoutes 注册项目的所有API路由
func SetupRoutes(router *gin.Engine, h Handlers) {
	router.GET("/healthz", health.Handler)

	api := router.Group("/api")
	{
		// 战报提交
		api.POST("/submissions", h.Submissions.Submit)

		// 物品效果相关的路由组 /api/items/:id/effects
		itemRoutes := api.Group("/items/:id/effects")
		{
			itemRoutes.GET("", h.Effects.GetEffects)

			// 以下路由需要馆长身份
			curator := itemRoutes.Group("", effects.RequireCurator(h.Signer))
			curator.PUT("", h.Effects.PutEffects)
			curator.GET("/advisory", h.Effects.GetAdvisory)
			curator.POST("/promote", h.Effects.Promote)
		}
	}
}
