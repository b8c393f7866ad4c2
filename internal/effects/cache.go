package effects

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/SlpAus/battle-effects-backend/internal/platform/database"
)

const (
	// ViewKeyPrefix 是已审核视图缓存的键前缀，每个物品一个键: effects:view:<id>
	ViewKeyPrefix = "effects:view:"
	// VersionKeyPrefix 是视图版本计数器的键前缀，每次失效时递增
	VersionKeyPrefix = "effects:view-version:"
)

// setIfVersion 仅在版本计数器与读取数据库之前看到的值相同时写入缓存。
// KEYS[1] 版本键, KEYS[2] 视图键; ARGV[1] 版本, ARGV[2] 视图, ARGV[3] 过期毫秒数
var setIfVersion = redis.NewScript(`
local current = redis.call('GET', KEYS[1]) or '0'
if current ~= ARGV[1] then
	return 0
end
local ttl = tonumber(ARGV[3])
if ttl > 0 then
	redis.call('SET', KEYS[2], ARGV[2], 'PX', ttl)
else
	redis.call('SET', KEYS[2], ARGV[2])
end
return 1
`)

// Cache 缓存已审核的视图。统计中的结果不会被缓存。
// nil 的 *Cache 表示不使用缓存，所有方法都是空操作。
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewCache 在 rdb 为 nil 时返回 nil
func NewCache(rdb *redis.Client, ttl time.Duration) *Cache {
	if rdb == nil {
		return nil
	}
	return &Cache{rdb: rdb, ttl: ttl}
}

func (c *Cache) usable() bool {
	return c != nil && database.IsRedisHealthy()
}

func viewKey(itemID uint) string {
	return ViewKeyPrefix + strconv.FormatUint(uint64(itemID), 10)
}

func versionKey(itemID uint) string {
	return VersionKeyPrefix + strconv.FormatUint(uint64(itemID), 10)
}

// Get 读取缓存的视图，未命中或Redis不可用时返回 false
func (c *Cache) Get(ctx context.Context, itemID uint) (View, bool) {
	if !c.usable() {
		return View{}, false
	}
	raw, err := c.rdb.Get(ctx, viewKey(itemID)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Uint("item_id", itemID).Msg("读取视图缓存失败")
		}
		return View{}, false
	}
	var view View
	if err := sonic.UnmarshalString(raw, &view); err != nil {
		log.Warn().Err(err).Uint("item_id", itemID).Msg("视图缓存已损坏，忽略")
		return View{}, false
	}
	return view, true
}

// Version 返回物品当前的缓存版本，必须在读取数据库之前调用。
// 返回空字符串表示这次读取不应写回缓存。
func (c *Cache) Version(ctx context.Context, itemID uint) string {
	if !c.usable() {
		return ""
	}
	v, err := c.rdb.Get(ctx, versionKey(itemID)).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return "0"
	case err != nil:
		log.Warn().Err(err).Uint("item_id", itemID).Msg("读取视图缓存版本失败")
		return ""
	}
	return v
}

// Set 在版本未变化时写入视图缓存，失败只记录日志。
// 读取期间发生过 Invalidate 时，旧视图会被丢弃。
func (c *Cache) Set(ctx context.Context, itemID uint, version string, view View) {
	if version == "" || !c.usable() {
		return
	}
	raw, err := sonic.MarshalString(view)
	if err != nil {
		log.Warn().Err(err).Uint("item_id", itemID).Msg("无法序列化视图缓存")
		return
	}
	keys := []string{versionKey(itemID), viewKey(itemID)}
	written, err := setIfVersion.Run(ctx, c.rdb, keys, version, raw, c.ttl.Milliseconds()).Int()
	if err != nil {
		log.Warn().Err(err).Uint("item_id", itemID).Msg("写入视图缓存失败")
		return
	}
	if written == 0 {
		log.Debug().Uint("item_id", itemID).Msg("视图在读取期间已更新，跳过缓存写入")
	}
}

// Invalidate 在审核数据写入后递增版本并删除缓存。
// 失败时把Redis标记为不可用，恢复时由健康检查器整体清空缓存。
func (c *Cache) Invalidate(ctx context.Context, itemID uint) {
	if !c.usable() {
		return
	}
	pipe := c.rdb.TxPipeline()
	pipe.Incr(ctx, versionKey(itemID))
	pipe.Del(ctx, viewKey(itemID))
	if _, err := pipe.Exec(ctx); err != nil {
		log.Error().Err(err).Uint("item_id", itemID).Msg("视图缓存失效失败")
		database.UpdateStatus(false)
	}
}

// Flush 清空全部视图缓存，作为Redis恢复时的回调。
// 版本计数器保留，避免并发读取用旧版本号写回。
func (c *Cache) Flush(ctx context.Context) error {
	if c == nil {
		return nil
	}
	var keys []string
	iter := c.rdb.Scan(ctx, 0, ViewKeyPrefix+"*", 200).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) > 0 {
		if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
			return err
		}
	}
	log.Info().Int("keys", len(keys)).Msg("视图缓存已清空")
	return nil
}
