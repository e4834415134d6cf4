// Package memory 提供基于BigCache的内存缓存实现
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/allegro/bigcache/v3"

	memoryconfig "github.com/weisyn/wager/internal/config/storage/memory"
	logimpl "github.com/weisyn/wager/internal/core/infrastructure/log"
	"github.com/weisyn/wager/pkg/interfaces/infrastructure/log"
)

// ErrClosed 缓存已关闭
var ErrClosed = errors.New("memory store closed")

// Store 基于BigCache的进程内缓存
type Store struct {
	cache  *bigcache.BigCache
	logger log.Logger
	mutex  sync.RWMutex
	closed bool
}

// New 创建一个新的BigCache内存存储实例
func New(config *memoryconfig.Config, logger log.Logger) (*Store, error) {
	if config == nil {
		config = memoryconfig.New(nil)
	}
	if logger == nil {
		logger = logimpl.NewNop()
	}

	bigCacheConfig := bigcache.DefaultConfig(config.GetLifeWindow())
	bigCacheConfig.MaxEntriesInWindow = config.GetMaxEntriesInWindow()
	bigCacheConfig.MaxEntrySize = config.GetMaxEntrySize()
	bigCacheConfig.Shards = config.GetShards()
	bigCacheConfig.CleanWindow = config.GetCleanWindow()
	bigCacheConfig.Verbose = false

	cache, err := bigcache.New(context.Background(), bigCacheConfig)
	if err != nil {
		return nil, fmt.Errorf("创建BigCache实例失败: %w", err)
	}

	return &Store{cache: cache, logger: logger}, nil
}

// Close 关闭缓存并释放资源
func (s *Store) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.closed {
		return nil
	}
	err := s.cache.Close()
	if err == nil {
		s.closed = true
	}
	return err
}

// Get 获取缓存值，不存在时返回 (nil, false, nil)
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if s.closed {
		return nil, false, ErrClosed
	}

	value, err := s.cache.Get(key)
	if err != nil {
		if errors.Is(err, bigcache.ErrEntryNotFound) {
			return nil, false, nil
		}
		s.logger.Warnf("获取缓存键[%s]失败: %v", key, err)
		return nil, false, err
	}
	return value, true, nil
}

// Set 写入缓存值
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if s.closed {
		return ErrClosed
	}
	if err := s.cache.Set(key, value); err != nil {
		return fmt.Errorf("设置缓存键[%s]失败: %w", key, err)
	}
	return nil
}

// Delete 删除缓存值，键不存在不视为错误
func (s *Store) Delete(ctx context.Context, key string) error {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if s.closed {
		return ErrClosed
	}
	if err := s.cache.Delete(key); err != nil && !errors.Is(err, bigcache.ErrEntryNotFound) {
		return fmt.Errorf("删除缓存键[%s]失败: %w", key, err)
	}
	return nil
}

// Clear 清空缓存
func (s *Store) Clear(ctx context.Context) error {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if s.closed {
		return ErrClosed
	}
	return s.cache.Reset()
}

// Count 当前条目数
func (s *Store) Count(ctx context.Context) (int64, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if s.closed {
		return 0, ErrClosed
	}
	return int64(s.cache.Len()), nil
}
