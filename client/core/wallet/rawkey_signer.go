package wallet

import (
	"context"

	"github.com/gagliardetto/solana-go"

	logiface "github.com/weisyn/wager/pkg/interfaces/infrastructure/log"
)

// RawKeySigner 免确认签名器
//
// 对应"代替用户签名"的脚本化模式：不经交互直接用本地私钥签名，并允许导出私钥。
// 只有 profile 设置 allow_raw_key_export=true 时才能构造。
type RawKeySigner struct {
	inner  *KeypairSigner
	logger logiface.Logger
}

// NewRawKeySigner 创建免确认签名器，allowed 为 false 时返回 ErrRawKeyDisabled
func NewRawKeySigner(inner *KeypairSigner, allowed bool, logger logiface.Logger) (*RawKeySigner, error) {
	if !allowed {
		return nil, ErrRawKeyDisabled
	}
	return &RawKeySigner{inner: inner, logger: logger}, nil
}

// Sign 直接签名
func (s *RawKeySigner) Sign(ctx context.Context, tx *solana.Transaction) error {
	if s.logger != nil {
		s.logger.Warnf("raw key mode: signing without approval, account=%s", s.inner.ActiveAccount())
	}
	return s.inner.Sign(ctx, tx)
}

// ActiveAccount 当前账户地址
func (s *RawKeySigner) ActiveAccount() solana.PublicKey {
	return s.inner.ActiveAccount()
}

// Type 返回签名器类型
func (s *RawKeySigner) Type() SignerType {
	return SignerTypeRawKey
}

// ExportRawKey 导出 base58 私钥
func (s *RawKeySigner) ExportRawKey() string {
	if s.logger != nil {
		s.logger.Warnf("raw key exported, account=%s", s.inner.ActiveAccount())
	}
	return s.inner.privateKey().String()
}

var _ Signer = (*RawKeySigner)(nil)
