// Package wallet provides wallet signing functionality for client operations.
package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

var (
	// ErrUserRejected 用户拒绝签名，文本与钱包提供方一致，错误分类据此识别
	ErrUserRejected = errors.New("User rejected the request")

	// ErrNotRequiredSigner 当前账户不是交易要求的签名者
	ErrNotRequiredSigner = errors.New("active account is not a required signer of the transaction")

	// ErrRawKeyDisabled 未在 profile 中开启 allow_raw_key_export
	ErrRawKeyDisabled = errors.New("raw key mode is disabled for this profile")

	// ErrPromptUnavailable 需要交互确认但 stdin 不是终端
	ErrPromptUnavailable = errors.New("interactive approval requires a terminal")
)

// Signer 签名器接口
//
// Sign 在 tx 上原地填入当前账户的签名，已有的其他签名者的签名保持不变。
// 用户拒绝时返回可用 errors.Is 识别的 ErrUserRejected。
type Signer interface {
	Sign(ctx context.Context, tx *solana.Transaction) error

	// ActiveAccount 当前账户地址（交易的 fee payer）
	ActiveAccount() solana.PublicKey

	// Type 返回签名器类型
	Type() SignerType
}

// SignerType 签名器类型
type SignerType string

const (
	SignerTypeKeypair SignerType = "keypair" // 本地密钥（keygen 文件或加密 keystore）
	SignerTypePrompt  SignerType = "prompt"  // 交互确认后签名
	SignerTypeRawKey  SignerType = "rawkey"  // 无确认直接签名（需 profile 显式开启）
)

type summaryKey struct{}

// WithSummary 在 ctx 中附带交易摘要，供交互确认展示
func WithSummary(ctx context.Context, summary string) context.Context {
	return context.WithValue(ctx, summaryKey{}, summary)
}

// SummaryFrom 读取 ctx 中的交易摘要
func SummaryFrom(ctx context.Context) string {
	s, _ := ctx.Value(summaryKey{}).(string)
	return s
}

// signTransaction 用 key 对 tx 的消息签名，写入对应签名者槽位
func signTransaction(tx *solana.Transaction, key solana.PrivateKey) error {
	if tx == nil {
		return errors.New("nil transaction")
	}

	message, err := tx.Message.MarshalBinary()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	required := int(tx.Message.Header.NumRequiredSignatures)
	if required > len(tx.Message.AccountKeys) {
		return fmt.Errorf("malformed message: %d signers but %d keys", required, len(tx.Message.AccountKeys))
	}

	pub := key.PublicKey()
	slot := -1
	for i, k := range tx.Message.AccountKeys[:required] {
		if k.Equals(pub) {
			slot = i
			break
		}
	}
	if slot < 0 {
		return fmt.Errorf("%w: %s", ErrNotRequiredSigner, pub)
	}

	if len(tx.Signatures) < required {
		sigs := make([]solana.Signature, required)
		copy(sigs, tx.Signatures)
		tx.Signatures = sigs
	}

	sig, err := key.Sign(message)
	if err != nil {
		return fmt.Errorf("sign message: %w", err)
	}
	tx.Signatures[slot] = sig
	return nil
}
