package shutdown

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/SlpAus/battle-effects-backend/internal/platform/database"
	"github.com/SlpAus/battle-effects-backend/pkg/lifecycle"
)

const (
	httpTimeout    = 15 * time.Second
	serviceTimeout = 10 * time.Second
)

// Coordinator 负责编排应用程序的优雅停机流程。
type Coordinator struct {
	Manager *lifecycle.Manager
}

// NewCoordinator 创建一个新的停机协调器。
func NewCoordinator(mgr *lifecycle.Manager) *Coordinator {
	return &Coordinator{Manager: mgr}
}

// ListenForSignalsAndShutdown 启动HTTP服务并阻塞，直到收到停机信号且停机流程完成。
func (c *Coordinator) ListenForSignalsAndShutdown(server *http.Server) {
	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("服务器已准备就绪，开始监听")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Info().Msg("收到关闭信号，开始优雅停机...")
	case err := <-serverErr:
		log.Error().Err(err).Msg("HTTP服务器异常退出，开始停机...")
	}

	// 先关闭HTTP服务器，允许正在进行的请求完成
	shutdownCtx, cancel := context.WithTimeout(context.Background(), httpTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Gin服务器关闭错误")
	} else {
		log.Info().Msg("Gin服务器已关闭。")
	}

	c.Manager.Shutdown()
	if remaining := c.Manager.WaitWithTimeout(serviceTimeout); len(remaining) > 0 {
		log.Warn().Strs("services", remaining).Msg("部分后台服务未能在超时内退出")
	}

	if database.RDB != nil {
		if err := database.RDB.Close(); err != nil {
			log.Warn().Err(err).Msg("关闭Redis连接失败")
		}
	}
	if sqlDB, err := database.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Warn().Err(err).Msg("关闭数据库连接失败")
		}
	}

	log.Info().Msg("优雅停机完成。")
}
