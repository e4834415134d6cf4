// Package program 挑战合约（链上程序）客户端
//
// 负责把高层动作编码为指令、派生 PDA、解析链上账户。
// 程序本身在链上，不在本仓库内实现。
package program

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
)

var (
	// ErrProgramNotConfigured 当前 profile 未配置该类型挑战的程序 ID
	ErrProgramNotConfigured = errors.New("challenge program not configured")

	// ErrUnsupported 该类型挑战不支持此操作
	ErrUnsupported = errors.New("operation not supported by this challenge type")

	// ErrChallengeNotFound 挑战账户不存在
	ErrChallengeNotFound = errors.New("challenge not found")

	// ErrInvalidAccountData 账户数据无法解析
	ErrInvalidAccountData = errors.New("invalid account data")
)

// ChallengeType 挑战类型
type ChallengeType string

const (
	// Fungible 以 SOL 为入场费的挑战
	Fungible ChallengeType = "fungible"
	// NonFungible 以 offering（SOL 或 NFT）下注的挑战，兑换（exchange）流程也使用此类型
	NonFungible ChallengeType = "nft"
)

// ParseChallengeType 解析挑战类型
// 兼容深链参数中的 "FT"/"NFT" 写法
func ParseChallengeType(s string) (ChallengeType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ft", "fungible", "sol":
		return Fungible, nil
	case "nft", "nonfungible", "non-fungible", "exchange":
		return NonFungible, nil
	default:
		return "", fmt.Errorf("unknown challenge type %q", s)
	}
}

// PlayerStatus 玩家在挑战中的状态
type PlayerStatus uint8

const (
	NotInGame PlayerStatus = iota
	Accepted
	Joined
)

// String 与链上客户端一致的状态名
func (s PlayerStatus) String() string {
	switch s {
	case NotInGame:
		return "NOT_IN_GAME"
	case Accepted:
		return "ACCEPTED"
	case Joined:
		return "JOINED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(s))
	}
}

// MarshalText 实现 encoding.TextMarshaler
func (s PlayerStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ParsePlayerStatus 解析状态名
func ParsePlayerStatus(s string) (PlayerStatus, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "NOT_IN_GAME", "NOT_JOINED":
		return NotInGame, nil
	case "ACCEPTED":
		return Accepted, nil
	case "JOINED":
		return Joined, nil
	default:
		return NotInGame, fmt.Errorf("unknown player status %q", s)
	}
}

// Rank 状态序：NotInGame < Accepted < Joined
func (s PlayerStatus) Rank() int {
	return int(s)
}

// ChallengeInfo 挑战账户信息
type ChallengeInfo struct {
	Address    solana.PublicKey `json:"address"`
	Type       ChallengeType    `json:"type"`
	Authority  solana.PublicKey `json:"authority"`
	EntryFee   uint64           `json:"entry_fee"`
	RakeBps    uint16           `json:"rake_bps"`
	MaxPlayers uint16           `json:"max_players"`
	Players    uint16           `json:"players"`
	State      ChallengeState   `json:"state"`
}

// IsFull 已满员
func (c *ChallengeInfo) IsFull() bool {
	return c.MaxPlayers > 0 && c.Players >= c.MaxPlayers
}

// ChallengeState 挑战阶段
type ChallengeState uint8

const (
	ChallengeOpen ChallengeState = iota
	ChallengeLocked
	ChallengeResolved
	ChallengeCancelled
)

func (s ChallengeState) String() string {
	switch s {
	case ChallengeOpen:
		return "open"
	case ChallengeLocked:
		return "locked"
	case ChallengeResolved:
		return "resolved"
	case ChallengeCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// MarshalText 实现 encoding.TextMarshaler
func (s ChallengeState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// OfferingAccount 链上 offering 账户
type OfferingAccount struct {
	Address    solana.PublicKey  `json:"address"`
	Challenge  solana.PublicKey  `json:"challenge"`
	Authority  solana.PublicKey  `json:"authority"`
	Amount     uint64            `json:"amount"`
	IsEscrowed bool              `json:"is_escrowed"`
	Mint       *solana.PublicKey `json:"mint,omitempty"`
}

// Client 链上程序边界
//
// 指令构造方法只返回指令，不附加 blockhash、不签名；查询方法直接读链。
type Client interface {
	Type() ChallengeType
	ProgramID() solana.PublicKey

	Join(ctx context.Context, challenge, player solana.PublicKey) ([]solana.Instruction, error)
	Leave(ctx context.Context, challenge, player solana.PublicKey) ([]solana.Instruction, error)
	Accept(ctx context.Context, challenge, player solana.PublicKey) ([]solana.Instruction, error)
	AddSolOffering(ctx context.Context, challenge, authority solana.PublicKey, lamports uint64) ([]solana.Instruction, error)
	AddNftOffering(ctx context.Context, challenge, authority, mint solana.PublicKey, amount uint64) ([]solana.Instruction, error)
	RemoveOffering(ctx context.Context, challenge, authority, offering solana.PublicKey) ([]solana.Instruction, error)

	PlayerStatus(ctx context.Context, challenge, player solana.PublicKey) (PlayerStatus, error)
	Offerings(ctx context.Context, challenge solana.PublicKey) ([]OfferingAccount, error)
	ChallengeInfo(ctx context.Context, challenge solana.PublicKey) (*ChallengeInfo, error)
}

// Registry 按挑战类型查找程序客户端
type Registry struct {
	clients map[ChallengeType]Client
}

// NewRegistry 创建注册表，nil 客户端被忽略
func NewRegistry(clients ...Client) *Registry {
	r := &Registry{clients: make(map[ChallengeType]Client)}
	for _, c := range clients {
		if c != nil {
			r.clients[c.Type()] = c
		}
	}
	return r
}

// For 返回指定类型的客户端
func (r *Registry) For(t ChallengeType) (Client, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: %s", ErrProgramNotConfigured, t)
	}
	c, ok := r.clients[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProgramNotConfigured, t)
	}
	return c, nil
}
