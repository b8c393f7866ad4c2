package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/SlpAus/battle-effects-backend/internal/platform/database"
	"github.com/SlpAus/battle-effects-backend/pkg/lifecycle"
)

const (
	checkInterval = 5 * time.Second
	pingTimeout   = 2 * time.Second
)

// pingRedis 在超时限制内执行一次PING
func pingRedis(ctx context.Context) bool {
	if database.RDB == nil {
		return false
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return database.RDB.Ping(pingCtx).Err() == nil
}

// PerformCheck 执行一次健康检查。
// 当Redis从不可用恢复为可用时调用 onRecover：不可用期间的写操作无法使缓存失效，
// 恢复后必须清空缓存。
func PerformCheck(ctx context.Context, onRecover func(context.Context) error) {
	healthy := pingRedis(ctx)
	wasHealthy := database.IsRedisHealthy()

	if healthy && !wasHealthy && onRecover != nil {
		if err := onRecover(ctx); err != nil {
			// 清理失败时保持不可用状态，下一轮继续尝试
			log.Error().Err(err).Msg("健康检查错误: Redis恢复后清理缓存失败")
			return
		}
	}
	database.UpdateStatus(healthy)
}

// StartRedisHealthCheck 在后台定期执行健康检查，直到生命周期句柄被取消。
func StartRedisHealthCheck(handle *lifecycle.Handle, onRecover func(context.Context) error) {
	defer handle.Close()
	if database.RDB == nil {
		log.Info().Msg("Redis未启用，健康检查器不启动。")
		return
	}
	log.Info().Msg("Redis健康检查器已启动。")

	for {
		if err := handle.Sleep(checkInterval); err != nil {
			log.Info().Msg("Redis健康检查器: 收到停机信号，正在关闭...")
			return
		}
		PerformCheck(handle.Ctx(), onRecover)
	}
}

// Handler 返回数据库与Redis的当前状态
func Handler(c *gin.Context) {
	dbStatus := "ok"
	code := http.StatusOK
	if sqlDB, err := database.DB.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
		dbStatus = "unavailable"
		code = http.StatusServiceUnavailable
	}

	redisStatus := "disabled"
	if database.RDB != nil {
		redisStatus = "unavailable"
		if database.IsRedisHealthy() {
			redisStatus = "ok"
		}
	}

	c.JSON(code, gin.H{"database": dbStatus, "redis": redisStatus})
}
