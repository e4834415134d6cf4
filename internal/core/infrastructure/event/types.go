package event

import (
	"time"

	"github.com/gagliardetto/solana-go"
)

// Submission 提交结束事件载荷
type Submission struct {
	ID        string
	Kind      string // 意图类型
	Challenge solana.PublicKey
	Player    solana.PublicKey

	Success   bool
	Class     string // 失败分类，成功时为空
	Signature solana.Signature
	Attempts  int

	// AffectsOfferings 成功后 offering 列表需要失效
	AffectsOfferings bool

	CompletedAt time.Time
}

// StatusChange 玩家状态变化事件载荷
type StatusChange struct {
	Challenge solana.PublicKey
	Player    solana.PublicKey
	From      string
	To        string
}
