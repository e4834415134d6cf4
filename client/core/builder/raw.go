package builder

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// decodeBase64 解码交易字节，兼容标准与 URL 安全两种编码
func decodeBase64(encoded string) ([]byte, error) {
	s := strings.TrimSpace(encoded)
	if s == "" {
		return nil, fmt.Errorf("empty transaction payload")
	}
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.URLEncoding, base64.RawStdEncoding, base64.RawURLEncoding} {
		if raw, err := enc.DecodeString(s); err == nil {
			return raw, nil
		}
	}
	return nil, fmt.Errorf("transaction payload is not valid base64")
}

func decodeTransactionBytes(raw []byte) (*solana.Transaction, error) {
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return nil, fmt.Errorf("decode transaction: %w", err)
	}
	return tx, nil
}

// DecodeTransaction 解码 base64 编码的序列化交易
func DecodeTransaction(encoded string) (*solana.Transaction, error) {
	raw, err := decodeBase64(encoded)
	if err != nil {
		return nil, err
	}
	return decodeTransactionBytes(raw)
}

// EncodeTransaction 序列化并 base64 编码
func EncodeTransaction(tx *solana.Transaction) (string, error) {
	raw, err := tx.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("encode transaction: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// hasForeignSignatures 除 self 外是否已有其他签名者的签名
func hasForeignSignatures(tx *solana.Transaction, self solana.PublicKey) bool {
	required := int(tx.Message.Header.NumRequiredSignatures)
	for i, sig := range tx.Signatures {
		if i >= required || i >= len(tx.Message.AccountKeys) {
			break
		}
		if tx.Message.AccountKeys[i].Equals(self) {
			continue
		}
		if sig != (solana.Signature{}) {
			return true
		}
	}
	return false
}

func shortDigest(b []byte) []byte {
	sum := sha256.Sum256(b)
	return sum[:8]
}
