// Package transport provides the Solana network connection used by the client.
package transport

import (
	"context"

	"github.com/gagliardetto/solana-go"
)

// Connection Solana 网络连接接口 - 客户端与集群通信的唯一通道
// 上层（submit/program/offering）只依赖此接口，测试中以内存实现替换
type Connection interface {
	// ===== 交易 =====

	// LatestBlockhash 获取最新 blockhash（freshness token）
	LatestBlockhash(ctx context.Context) (solana.Hash, error)

	// SendRawTransaction 广播已签名交易，每次调用恰好一次网络广播
	// 失败时返回 *SendError
	SendRawTransaction(ctx context.Context, raw []byte, opts SendOptions) (solana.Signature, error)

	// ===== 账户查询 =====

	// GetBalance 获取账户 lamports 余额
	GetBalance(ctx context.Context, account solana.PublicKey) (uint64, error)

	// GetAccountInfo 获取账户数据，账户不存在返回 ErrAccountNotFound
	GetAccountInfo(ctx context.Context, account solana.PublicKey) (*AccountInfo, error)

	// GetProgramAccounts 按 memcmp 过滤查询程序账户
	GetProgramAccounts(ctx context.Context, program solana.PublicKey, filters ...MemcmpFilter) ([]KeyedAccount, error)

	// GetTokenAccountsByOwner 查询 SPL Token 账户
	GetTokenAccountsByOwner(ctx context.Context, owner solana.PublicKey) ([]TokenAccount, error)

	// ===== 其他 =====

	// RequestAirdrop 申请测试币（仅 devnet 可用）
	RequestAirdrop(ctx context.Context, account solana.PublicKey, lamports uint64) (solana.Signature, error)

	// Ping 健康检查
	Ping(ctx context.Context) error

	// Close 关闭连接
	Close() error
}

// SendOptions 广播选项
type SendOptions struct {
	SkipPreflight bool
}

// AccountInfo 账户信息
type AccountInfo struct {
	Owner    solana.PublicKey
	Lamports uint64
	Data     []byte
}

// KeyedAccount 带地址的账户
type KeyedAccount struct {
	Address solana.PublicKey
	Account AccountInfo
}

// MemcmpFilter 程序账户过滤条件
type MemcmpFilter struct {
	Offset uint64
	Bytes  []byte
}

// TokenAccount SPL Token 账户摘要
type TokenAccount struct {
	Address solana.PublicKey `json:"address"`
	Mint    solana.PublicKey `json:"mint"`
	Owner   solana.PublicKey `json:"owner"`
	Amount  uint64           `json:"amount"`
}
