package database

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// statusManager 负责线程安全地管理Redis的健康状态。
type statusManager struct {
	mu             sync.RWMutex
	isRedisHealthy bool
}

var globalStatus = &statusManager{}

// IsRedisHealthy 返回当前Redis的健康状态。
func IsRedisHealthy() bool {
	globalStatus.mu.RLock()
	defer globalStatus.mu.RUnlock()
	return globalStatus.isRedisHealthy
}

// UpdateStatus 用于线程安全地更新健康状态，并返回状态是否发生了变化。
func UpdateStatus(isHealthy bool) bool {
	globalStatus.mu.Lock()
	defer globalStatus.mu.Unlock()

	if globalStatus.isRedisHealthy == isHealthy {
		return false
	}
	globalStatus.isRedisHealthy = isHealthy
	if isHealthy {
		log.Info().Msg("健康检查: Redis服务状态已更新为 [可用]")
	} else {
		log.Warn().Msg("健康检查警告: Redis服务状态已更新为 [不可用]")
	}
	return true
}
