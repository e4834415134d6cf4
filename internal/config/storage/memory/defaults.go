package memory

import "time"

// 内存缓存默认配置值
const (
	// defaultLifeWindow 条目存活时间，覆盖一次会话
	defaultLifeWindow = 12 * time.Hour

	// defaultCleanWindow 过期条目清理间隔
	defaultCleanWindow = 10 * time.Minute

	// defaultMaxEntriesInWindow 用于预分配，元数据条目数量级在千以内
	defaultMaxEntriesInWindow = 1024

	// defaultMaxEntrySize 单条最大字节数
	defaultMaxEntrySize = 4 * 1024

	// defaultShards 分片数，必须为 2 的幂
	defaultShards = 64
)
