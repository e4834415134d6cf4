package wallet

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"golang.org/x/crypto/pbkdf2"
)

// kdfIterations PBKDF2 迭代次数
var kdfIterations = 262144

// ErrWrongPassword 密码错误或文件被篡改
var ErrWrongPassword = errors.New("keystore: wrong password or corrupted file")

// KeystoreV1 Keystore文件格式(v1.0.0)
type KeystoreV1 struct {
	Version string   `json:"version"` // "1.0.0"
	ID      string   `json:"id"`      // UUID
	Address string   `json:"address"` // base58 公钥
	Crypto  CryptoV1 `json:"crypto"`

	// 元数据
	CreatedAt string `json:"created_at"`
	Label     string `json:"label,omitempty"`
}

// CryptoV1 加密参数
type CryptoV1 struct {
	Cipher       string       `json:"cipher"`     // "aes-256-gcm"
	Ciphertext   string       `json:"ciphertext"` // hex编码
	CipherParams CipherParams `json:"cipherparams"`
	KDF          string       `json:"kdf"` // "pbkdf2"
	KDFParams    KDFParams    `json:"kdfparams"`
	MAC          string       `json:"mac"` // hex编码的MAC
}

// CipherParams 密码参数
type CipherParams struct {
	IV string `json:"iv"` // hex编码的初始化向量
}

// KDFParams 密钥派生参数
type KDFParams struct {
	DKLen int    `json:"dklen"` // 派生密钥长度(32)
	Salt  string `json:"salt"`  // hex编码的盐值
	C     int    `json:"c"`     // 迭代次数
	PRF   string `json:"prf"`   // "hmac-sha256"
}

// SaveKeystore 加密保存私钥，返回文件路径
// 文件名: UTC--<timestamp>--<address>.json
func SaveKeystore(dir string, key solana.PrivateKey, password, label string) (string, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("create keystore dir: %w", err)
	}

	crypto, err := encrypt(key, password)
	if err != nil {
		return "", fmt.Errorf("encrypt: %w", err)
	}

	address := key.PublicKey().String()
	ks := KeystoreV1{
		Version:   "1.0.0",
		ID:        uuid.NewString(),
		Address:   address,
		Crypto:    crypto,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Label:     label,
	}

	data, err := json.MarshalIndent(ks, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal json: %w", err)
	}

	filename := fmt.Sprintf("UTC--%s--%s.json",
		time.Now().UTC().Format("2006-01-02T15-04-05.000000000Z"),
		address,
	)
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, data, 0600); err != nil {
		return "", fmt.Errorf("write keystore: %w", err)
	}
	return path, nil
}

// ImportKeygenFile 将 solana-keygen JSON 文件导入为加密 keystore
func ImportKeygenFile(keygenPath, dir, password, label string) (string, error) {
	key, err := solana.PrivateKeyFromSolanaKeygenFile(keygenPath)
	if err != nil {
		return "", fmt.Errorf("load keypair %s: %w", keygenPath, err)
	}
	return SaveKeystore(dir, key, password, label)
}

// LoadKeystore 读取并解密 keystore
func LoadKeystore(path, password string) (solana.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keystore: %w", err)
	}

	var ks KeystoreV1
	if err := json.Unmarshal(data, &ks); err != nil {
		return nil, fmt.Errorf("parse keystore: %w", err)
	}

	derived, err := deriveKey(password, ks.Crypto)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}

	plaintext, err := decrypt(ks.Crypto, derived)
	if err != nil {
		return nil, err
	}

	key := solana.PrivateKey(plaintext)
	if ks.Address != "" && key.PublicKey().String() != ks.Address {
		return nil, fmt.Errorf("keystore address mismatch: file says %s", ks.Address)
	}
	return key, nil
}

// ===== Keystore加密/解密辅助函数 =====

// deriveKey 派生解密密钥
func deriveKey(password string, crypto CryptoV1) ([]byte, error) {
	salt, err := hex.DecodeString(crypto.KDFParams.Salt)
	if err != nil {
		return nil, fmt.Errorf("decode salt: %w", err)
	}

	switch crypto.KDF {
	case "pbkdf2":
		return pbkdf2.Key([]byte(password), salt, crypto.KDFParams.C, crypto.KDFParams.DKLen, sha256.New), nil
	default:
		return nil, fmt.Errorf("unsupported KDF: %s", crypto.KDF)
	}
}

func computeMAC(key, ciphertext []byte) []byte {
	mac := sha256.Sum256(append(append([]byte{}, key[16:]...), ciphertext...))
	return mac[:]
}

// decrypt 解密密文
func decrypt(crypto CryptoV1, key []byte) ([]byte, error) {
	ciphertext, err := hex.DecodeString(crypto.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("decode ciphertext: %w", err)
	}
	iv, err := hex.DecodeString(crypto.CipherParams.IV)
	if err != nil {
		return nil, fmt.Errorf("decode iv: %w", err)
	}
	mac, err := hex.DecodeString(crypto.MAC)
	if err != nil {
		return nil, fmt.Errorf("decode mac: %w", err)
	}
	if len(key) < 32 || subtle.ConstantTimeCompare(mac, computeMAC(key, ciphertext)) != 1 {
		return nil, ErrWrongPassword
	}

	switch crypto.Cipher {
	case "aes-256-gcm":
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, fmt.Errorf("new cipher: %w", err)
		}
		gcm, err := cipher.NewGCM(block)
		if err != nil {
			return nil, fmt.Errorf("new gcm: %w", err)
		}
		plaintext, err := gcm.Open(nil, iv, ciphertext, nil)
		if err != nil {
			return nil, ErrWrongPassword
		}
		return plaintext, nil
	default:
		return nil, fmt.Errorf("unsupported cipher: %s", crypto.Cipher)
	}
}

// encrypt 加密明文
func encrypt(plaintext []byte, password string) (CryptoV1, error) {
	salt := make([]byte, 32)
	if _, err := rand.Read(salt); err != nil {
		return CryptoV1{}, fmt.Errorf("generate salt: %w", err)
	}

	key := pbkdf2.Key([]byte(password), salt, kdfIterations, 32, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return CryptoV1{}, fmt.Errorf("new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return CryptoV1{}, fmt.Errorf("new gcm: %w", err)
	}

	iv := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return CryptoV1{}, fmt.Errorf("generate iv: %w", err)
	}

	ciphertext := gcm.Seal(nil, iv, plaintext, nil)

	return CryptoV1{
		Cipher:     "aes-256-gcm",
		Ciphertext: hex.EncodeToString(ciphertext),
		CipherParams: CipherParams{
			IV: hex.EncodeToString(iv),
		},
		KDF: "pbkdf2",
		KDFParams: KDFParams{
			DKLen: 32,
			Salt:  hex.EncodeToString(salt),
			C:     kdfIterations,
			PRF:   "hmac-sha256",
		},
		MAC: hex.EncodeToString(computeMAC(key, ciphertext)),
	}, nil
}
