package app

import (
	"github.com/weisyn/wager/client/core/config"
)

// PasswordFunc 读取 keystore 口令
type PasswordFunc func(prompt string) (string, error)

// Options 运行时选项，来自 CLI 全局参数
type Options struct {
	// ConfigDir 配置目录，为空时使用 ~/.wager
	ConfigDir string

	// Profile 使用的 profile，为空时使用当前 profile
	Profile string

	// Cluster 选择集群；未指定 Profile 时使用与集群同名的 profile
	Cluster config.Cluster

	// RPC 覆盖 profile 的端点
	RPC string

	// Keypair 覆盖 profile 的 keygen 文件路径
	Keypair string

	// NoPrompt 免确认签名，需要 profile 开启 allow_raw_key_export
	NoPrompt bool

	// Listen 覆盖 HTTP 监听地址
	Listen string

	// Password keystore 口令来源
	Password PasswordFunc
}
