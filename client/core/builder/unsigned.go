package builder

import (
	"github.com/gagliardetto/solana-go"
)

// UnsignedTx 待提交交易
//
// 每次 Build 都返回新实例；提交流水线会改写其 blockhash 与签名，
// 因此不要跨提交复用同一个 UnsignedTx。
type UnsignedTx struct {
	Kind      Kind
	Challenge solana.PublicKey
	Summary   string
	Tx        *solana.Transaction

	// PreserveBlockhash 交易已携带其他签名者的签名，
	// 提交时不得替换 blockhash，也不得清除已有签名
	PreserveBlockhash bool

	// AffectsOfferings 成功后 offering 列表需要失效
	AffectsOfferings bool
}

// FeePayer 交易费支付账户
func (u *UnsignedTx) FeePayer() solana.PublicKey {
	if u == nil || u.Tx == nil || len(u.Tx.Message.AccountKeys) == 0 {
		return solana.PublicKey{}
	}
	return u.Tx.Message.AccountKeys[0]
}
