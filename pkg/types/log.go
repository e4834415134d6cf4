package types

// LogLevel 日志级别类型
type LogLevel string

const (
	DebugLevel LogLevel = "debug"
	InfoLevel  LogLevel = "info"
	WarnLevel  LogLevel = "warn"
	ErrorLevel LogLevel = "error"
	FatalLevel LogLevel = "fatal"
)

// UserLogConfig 用户日志配置
// 只包含 profile JSON 中实际出现的字段，未出现的字段保持默认值
type UserLogConfig struct {
	Level      *string `json:"level,omitempty"`       // 日志级别：debug, info, warn, error, fatal
	FilePath   *string `json:"file_path,omitempty"`   // 日志文件路径
	ToConsole  *bool   `json:"to_console,omitempty"`  // 是否输出到 stderr
	MaxSize    *int    `json:"max_size,omitempty"`    // 单个日志文件最大大小(MB)
	MaxBackups *int    `json:"max_backups,omitempty"` // 最大备份文件数
	MaxAge     *int    `json:"max_age,omitempty"`     // 最大保留天数
}
