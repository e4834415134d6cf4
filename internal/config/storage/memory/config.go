package memory

import "time"

// MemoryOptions 内存缓存配置选项
type MemoryOptions struct {
	LifeWindow         time.Duration `json:"life_window"`           // 条目存活时间
	CleanWindow        time.Duration `json:"clean_window"`          // 清理间隔
	MaxEntriesInWindow int           `json:"max_entries_in_window"` // 预分配条目数
	MaxEntrySize       int           `json:"max_entry_size"`        // 单条最大字节数
	Shards             int           `json:"shards"`                // 分片数
}

// Config 内存缓存配置实现
type Config struct {
	options *MemoryOptions
}

// New 创建配置，用户配置中的非零字段覆盖默认值
func New(userConfig *MemoryOptions) *Config {
	opts := createDefaultMemoryOptions()
	if userConfig != nil {
		if userConfig.LifeWindow > 0 {
			opts.LifeWindow = userConfig.LifeWindow
		}
		if userConfig.CleanWindow > 0 {
			opts.CleanWindow = userConfig.CleanWindow
		}
		if userConfig.MaxEntriesInWindow > 0 {
			opts.MaxEntriesInWindow = userConfig.MaxEntriesInWindow
		}
		if userConfig.MaxEntrySize > 0 {
			opts.MaxEntrySize = userConfig.MaxEntrySize
		}
		if userConfig.Shards > 0 && userConfig.Shards&(userConfig.Shards-1) == 0 {
			opts.Shards = userConfig.Shards
		}
	}
	return &Config{options: opts}
}

func createDefaultMemoryOptions() *MemoryOptions {
	return &MemoryOptions{
		LifeWindow:         defaultLifeWindow,
		CleanWindow:        defaultCleanWindow,
		MaxEntriesInWindow: defaultMaxEntriesInWindow,
		MaxEntrySize:       defaultMaxEntrySize,
		Shards:             defaultShards,
	}
}

// GetOptions 获取完整配置
func (c *Config) GetOptions() *MemoryOptions {
	return c.options
}

// GetLifeWindow 条目存活时间
func (c *Config) GetLifeWindow() time.Duration {
	return c.options.LifeWindow
}

// GetCleanWindow 清理间隔
func (c *Config) GetCleanWindow() time.Duration {
	return c.options.CleanWindow
}

// GetMaxEntriesInWindow 预分配条目数
func (c *Config) GetMaxEntriesInWindow() int {
	return c.options.MaxEntriesInWindow
}

// GetMaxEntrySize 单条最大字节数
func (c *Config) GetMaxEntrySize() int {
	return c.options.MaxEntrySize
}

// GetShards 分片数
func (c *Config) GetShards() int {
	return c.options.Shards
}
