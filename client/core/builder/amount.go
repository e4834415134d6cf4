// Package builder turns challenge intents into unsigned Solana transactions.
package builder

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/gagliardetto/solana-go"
)

// Lamports 表示 SOL 金额（最小单位）
//
//   - 1 SOL = 10^9 lamports
//   - 字符串解析走十进制定点，不经过浮点数
type Lamports uint64

const (
	// DecimalPlaces SOL 的小数位数
	DecimalPlaces = 9

	// LamportsPerSOL 1 SOL 对应的 lamports
	LamportsPerSOL = solana.LAMPORTS_PER_SOL
)

var (
	// ErrInvalidAmount 无效的金额
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrNegativeAmount 负数金额
	ErrNegativeAmount = errors.New("negative amount")

	// ErrNonPositiveAmount 金额必须大于 0
	ErrNonPositiveAmount = errors.New("amount must be greater than zero")

	lamportsPerSOL = new(big.Int).SetUint64(LamportsPerSOL)
	maxLamports    = new(big.Int).SetUint64(math.MaxUint64)
)

// ParseSOL 以 SOL 为单位解析字符串
//
// 示例：
//
//	ParseSOL("1")      → 1000000000
//	ParseSOL("0.001")  → 1000000
//	ParseSOL("1.5")    → 1500000000
func ParseSOL(s string) (Lamports, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty string", ErrInvalidAmount)
	}
	if strings.HasPrefix(s, "-") {
		return 0, ErrNegativeAmount
	}
	s = strings.TrimPrefix(s, "+")

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" && frac == "" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if len(frac) > DecimalPlaces {
		return 0, fmt.Errorf("%w: more than %d decimal places", ErrInvalidAmount, DecimalPlaces)
	}
	if whole == "" {
		whole = "0"
	}

	w, ok := new(big.Int).SetString(whole, 10)
	if !ok || w.Sign() < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	total := new(big.Int).Mul(w, lamportsPerSOL)

	if frac != "" {
		padded := frac + strings.Repeat("0", DecimalPlaces-len(frac))
		f, ok := new(big.Int).SetString(padded, 10)
		if !ok || f.Sign() < 0 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
		}
		total.Add(total, f)
	}

	if total.Cmp(maxLamports) > 0 {
		return 0, fmt.Errorf("%w: overflow", ErrInvalidAmount)
	}
	return Lamports(total.Uint64()), nil
}

// MustParseSOL 解析失败时 panic，仅用于常量
func MustParseSOL(s string) Lamports {
	l, err := ParseSOL(s)
	if err != nil {
		panic(err)
	}
	return l
}

// FromSOL 由整数 SOL 创建
func FromSOL(sol uint64) Lamports {
	return Lamports(sol * LamportsPerSOL)
}

// Uint64 返回 lamports 数
func (l Lamports) Uint64() uint64 {
	return uint64(l)
}

// IsPositive 是否大于 0
func (l Lamports) IsPositive() bool {
	return l > 0
}

// SOL 返回去掉末尾零的 SOL 字符串，如 "0.5"、"2"
func (l Lamports) SOL() string {
	whole := uint64(l) / LamportsPerSOL
	frac := uint64(l) % LamportsPerSOL
	if frac == 0 {
		return fmt.Sprintf("%d", whole)
	}
	fs := strings.TrimRight(fmt.Sprintf("%09d", frac), "0")
	return fmt.Sprintf("%d.%s", whole, fs)
}

// String 带单位的展示形式
func (l Lamports) String() string {
	return l.SOL() + " SOL"
}
