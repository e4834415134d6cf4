package challenge

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go"
)

// SPL mint 账户布局：mint_authority COption<Pubkey>(36) + supply u64(8) + decimals u8
const mintDecimalsOffset = 44

// TokenBalance 代币账户余额
type TokenBalance struct {
	Address  solana.PublicKey `json:"address"`
	Mint     solana.PublicKey `json:"mint"`
	Amount   uint64           `json:"amount"`
	Decimals uint8            `json:"decimals"`
	UIAmount string           `json:"ui_amount"`
}

// TokenAccounts 列出 owner 的 SPL 代币账户，owner 为零值时使用当前账户
//
// 同一 mint 的 decimals 只查询一次；mint 读取失败时按 0 位小数展示。
func (s *Service) TokenAccounts(ctx context.Context, owner solana.PublicKey) ([]TokenBalance, error) {
	if owner.IsZero() {
		owner = s.Account()
	}
	accounts, err := s.conn.GetTokenAccountsByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("get token accounts: %w", err)
	}

	decimals := make(map[solana.PublicKey]uint8)
	out := make([]TokenBalance, 0, len(accounts))
	for _, acc := range accounts {
		d, ok := decimals[acc.Mint]
		if !ok {
			d, err = s.MintDecimals(ctx, acc.Mint)
			if err != nil {
				s.logger.Warnf("mint %s decimals: %v", acc.Mint, err)
			}
			decimals[acc.Mint] = d
		}
		out = append(out, TokenBalance{
			Address:  acc.Address,
			Mint:     acc.Mint,
			Amount:   acc.Amount,
			Decimals: d,
			UIAmount: FormatUnits(acc.Amount, d),
		})
	}
	return out, nil
}

// MintDecimals 读取 mint 账户的小数位数
func (s *Service) MintDecimals(ctx context.Context, mint solana.PublicKey) (uint8, error) {
	info, err := s.conn.GetAccountInfo(ctx, mint)
	if err != nil {
		return 0, err
	}
	if len(info.Data) <= mintDecimalsOffset {
		return 0, fmt.Errorf("mint account %s too short: %d bytes", mint, len(info.Data))
	}
	return info.Data[mintDecimalsOffset], nil
}

// FormatUnits 按小数位数格式化整数数量，去掉末尾的 0
func FormatUnits(amount uint64, decimals uint8) string {
	digits := strconv.FormatUint(amount, 10)
	if decimals == 0 {
		return digits
	}
	d := int(decimals)
	if len(digits) <= d {
		digits = strings.Repeat("0", d-len(digits)+1) + digits
	}
	whole, frac := digits[:len(digits)-d], strings.TrimRight(digits[len(digits)-d:], "0")
	if frac == "" {
		return whole
	}
	return whole + "." + frac
}
