package wallet

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
)

// KeypairSigner 本地 ed25519 密钥签名器
type KeypairSigner struct {
	mu  sync.RWMutex
	key solana.PrivateKey
}

// NewKeypairSigner 由私钥创建签名器
func NewKeypairSigner(key solana.PrivateKey) (*KeypairSigner, error) {
	if len(key) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid private key length: expected %d bytes, got %d", ed25519.PrivateKeySize, len(key))
	}
	return &KeypairSigner{key: key}, nil
}

// NewKeypairSignerFromFile 从 solana-keygen 生成的 JSON 文件加载
func NewKeypairSignerFromFile(path string) (*KeypairSigner, error) {
	key, err := solana.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return nil, fmt.Errorf("load keypair %s: %w", path, err)
	}
	return NewKeypairSigner(key)
}

// NewKeypairSignerFromKeystore 从加密 keystore 加载
func NewKeypairSignerFromKeystore(path, password string) (*KeypairSigner, error) {
	key, err := LoadKeystore(path, password)
	if err != nil {
		return nil, err
	}
	return NewKeypairSigner(key)
}

// Sign 签名交易
func (s *KeypairSigner) Sign(ctx context.Context, tx *solana.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return signTransaction(tx, s.key)
}

// ActiveAccount 当前账户地址
func (s *KeypairSigner) ActiveAccount() solana.PublicKey {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.key.PublicKey()
}

// Type 返回签名器类型
func (s *KeypairSigner) Type() SignerType {
	return SignerTypeKeypair
}

// privateKey 供 RawKeySigner 导出
func (s *KeypairSigner) privateKey() solana.PrivateKey {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.key
}

var _ Signer = (*KeypairSigner)(nil)
