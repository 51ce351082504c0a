package database

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/adminzero/pkg/config"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

var (
	redisOnce   sync.Once
	redisClient *redis.Client
	miniRedis   *miniredis.Miniredis // 内存模式的 Redis
)

// InitRedis 初始化Redis连接
func InitRedis(cfg *config.RedisConfig) error {
	var err error
	redisOnce.Do(func() {
		if cfg.Mode == "memory" {
			// 使用内存模式（miniredis）
			miniRedis, err = miniredis.Run()
			if err != nil {
				return
			}
			redisClient = redis.NewClient(&redis.Options{
				Addr: miniRedis.Addr(),
			})
		} else {
			// 使用外部 Redis 服务
			redisClient = redis.NewClient(&redis.Options{
				Addr:     cfg.Addr(),
				Password: cfg.Password,
				DB:       cfg.DB,
				PoolSize: cfg.PoolSize,
			})

			// 测试连接
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			_, err = redisClient.Ping(ctx).Result()
		}
	})
	return err
}

// GetRedis 获取Redis客户端
func GetRedis() *redis.Client {
	if redisClient == nil {
		panic("redis not initialized, call InitRedis first")
	}
	return redisClient
}

// CloseRedis 关闭Redis连接
func CloseRedis() error {
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			return err
		}
	}
	if miniRedis != nil {
		miniRedis.Close()
	}
	return nil
}

// Cache Redis缓存操作封装
type Cache struct {
	client *redis.Client
	prefix string
}

// NewCache 创建缓存实例
func NewCache(prefix string) *Cache {
	return &Cache{
		client: GetRedis(),
		prefix: prefix,
	}
}

// NewCacheWithClient 使用指定客户端创建缓存实例
func NewCacheWithClient(client *redis.Client, prefix string) *Cache {
	return &Cache{
		client: client,
		prefix: prefix,
	}
}

// key 生成带前缀的key
func (c *Cache) key(key string) string {
	if c.prefix == "" {
		return key
	}
	return fmt.Sprintf("%s:%s", c.prefix, key)
}

// Set 设置缓存
func (c *Cache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return c.client.Set(ctx, c.key(key), value, expiration).Err()
}

// Get 获取缓存
func (c *Cache) Get(ctx context.Context, key string) (string, error) {
	return c.client.Get(ctx, c.key(key)).Result()
}

// SetJSON 序列化并设置缓存
func (c *Cache) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(key), data, expiration).Err()
}

// GetJSON 获取缓存并反序列化，key不存在时返回 redis.Nil
func (c *Cache) GetJSON(ctx context.Context, key string, dest interface{}) error {
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

// Del 删除缓存
func (c *Cache) Del(ctx context.Context, keys ...string) error {
	fullKeys := make([]string, len(keys))
	for i, k := range keys {
		fullKeys[i] = c.key(k)
	}
	return c.client.Del(ctx, fullKeys...).Err()
}

// Exists 检查key是否存在
func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.client.Exists(ctx, c.key(key)).Result()
	return n > 0, err
}

// SetNX 设置缓存(不存在时)
func (c *Cache) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	return c.client.SetNX(ctx, c.key(key), value, expiration).Result()
}

// Expire 设置过期时间
func (c *Cache) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return c.client.Expire(ctx, c.key(key), expiration).Err()
}
