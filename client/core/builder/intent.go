package builder

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"

	"github.com/weisyn/wager/client/core/program"
)

// Kind 交易意图类型
type Kind string

const (
	KindJoin               Kind = "join"
	KindLeave              Kind = "leave"
	KindAccept             Kind = "accept"
	KindAddOffering        Kind = "add_offering"
	KindRemoveOffering     Kind = "remove_offering"
	KindCreateTokenAccount Kind = "create_token_account"
	KindRedeemSigned       Kind = "redeem"
	KindSignRaw            Kind = "sign"
)

// OfferingKind offering 资产类型
type OfferingKind string

const (
	OfferingSOL OfferingKind = "SOL"
	OfferingNFT OfferingKind = "NFT"
)

// NativeMint wrapped SOL 的 mint，创建代币账户时的默认 mint
var NativeMint = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")

var (
	// ErrInvalidIntent 意图参数不满足本地前置条件
	ErrInvalidIntent = errors.New("invalid intent")

	// ErrInvalidAddress 地址不是合法的 base58 公钥
	ErrInvalidAddress = errors.New("invalid address")
)

// Intent 交易意图
//
// 由构造函数创建并完成本地校验，创建后不可修改。
type Intent struct {
	kind          Kind
	challengeType program.ChallengeType
	challenge     solana.PublicKey

	offeringKind OfferingKind
	amount       uint64 // SOL offering 为 lamports，NFT offering 为代币数量
	mint         solana.PublicKey
	offering     solana.PublicKey
	owner        solana.PublicKey

	raw []byte
}

// ParseAddress 解析 base58 地址
func ParseAddress(s string) (solana.PublicKey, error) {
	pk, err := solana.PublicKeyFromBase58(strings.TrimSpace(s))
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w: %q: %v", ErrInvalidAddress, s, err)
	}
	return pk, nil
}

func requireChallenge(challenge solana.PublicKey) error {
	if challenge.IsZero() {
		return fmt.Errorf("%w: challenge address is required", ErrInvalidIntent)
	}
	return nil
}

// NewJoin 加入挑战
func NewJoin(t program.ChallengeType, challenge solana.PublicKey) (Intent, error) {
	if err := requireChallenge(challenge); err != nil {
		return Intent{}, err
	}
	return Intent{kind: KindJoin, challengeType: t, challenge: challenge}, nil
}

// NewLeave 退出挑战
func NewLeave(t program.ChallengeType, challenge solana.PublicKey) (Intent, error) {
	if err := requireChallenge(challenge); err != nil {
		return Intent{}, err
	}
	return Intent{kind: KindLeave, challengeType: t, challenge: challenge}, nil
}

// NewAccept 接受 offerings，仅 NFT 挑战
func NewAccept(challenge solana.PublicKey) (Intent, error) {
	if err := requireChallenge(challenge); err != nil {
		return Intent{}, err
	}
	return Intent{kind: KindAccept, challengeType: program.NonFungible, challenge: challenge}, nil
}

// NewAddSolOffering 添加 SOL offering，金额必须大于 0
func NewAddSolOffering(challenge solana.PublicKey, amount Lamports) (Intent, error) {
	if err := requireChallenge(challenge); err != nil {
		return Intent{}, err
	}
	if !amount.IsPositive() {
		return Intent{}, fmt.Errorf("%w: %w", ErrInvalidIntent, ErrNonPositiveAmount)
	}
	return Intent{
		kind:          KindAddOffering,
		challengeType: program.NonFungible,
		challenge:     challenge,
		offeringKind:  OfferingSOL,
		amount:        amount.Uint64(),
	}, nil
}

// NewAddNftOffering 添加 NFT offering
func NewAddNftOffering(challenge, mint solana.PublicKey, count uint64) (Intent, error) {
	if err := requireChallenge(challenge); err != nil {
		return Intent{}, err
	}
	if mint.IsZero() {
		return Intent{}, fmt.Errorf("%w: NFT offering requires a mint", ErrInvalidIntent)
	}
	if count == 0 {
		return Intent{}, fmt.Errorf("%w: %w", ErrInvalidIntent, ErrNonPositiveAmount)
	}
	return Intent{
		kind:          KindAddOffering,
		challengeType: program.NonFungible,
		challenge:     challenge,
		offeringKind:  OfferingNFT,
		amount:        count,
		mint:          mint,
	}, nil
}

// NewRemoveOffering 撤回 offering
func NewRemoveOffering(challenge, offering solana.PublicKey) (Intent, error) {
	if err := requireChallenge(challenge); err != nil {
		return Intent{}, err
	}
	if offering.IsZero() {
		return Intent{}, fmt.Errorf("%w: offering address is required", ErrInvalidIntent)
	}
	return Intent{
		kind:          KindRemoveOffering,
		challengeType: program.NonFungible,
		challenge:     challenge,
		offering:      offering,
	}, nil
}

// NewCreateTokenAccount 创建关联代币账户
// mint 为零值时使用 NativeMint；owner 为零值时使用当前账户
func NewCreateTokenAccount(mint, owner solana.PublicKey) (Intent, error) {
	if mint.IsZero() {
		mint = NativeMint
	}
	return Intent{kind: KindCreateTokenAccount, mint: mint, owner: owner}, nil
}

// NewRedeemSigned 执行服务端预先构造（可能已部分签名）的交易
func NewRedeemSigned(encoded string) (Intent, error) {
	return newRawIntent(KindRedeemSigned, encoded)
}

// NewSignRaw 对任意交易签名并广播
func NewSignRaw(encoded string) (Intent, error) {
	return newRawIntent(KindSignRaw, encoded)
}

func newRawIntent(kind Kind, encoded string) (Intent, error) {
	raw, err := decodeBase64(encoded)
	if err != nil {
		return Intent{}, fmt.Errorf("%w: %v", ErrInvalidIntent, err)
	}
	if _, err := decodeTransactionBytes(raw); err != nil {
		return Intent{}, fmt.Errorf("%w: %v", ErrInvalidIntent, err)
	}
	return Intent{kind: kind, raw: raw}, nil
}

// Kind 意图类型
func (i Intent) Kind() Kind { return i.kind }

// ChallengeType 挑战类型
func (i Intent) ChallengeType() program.ChallengeType { return i.challengeType }

// Challenge 挑战地址
func (i Intent) Challenge() solana.PublicKey { return i.challenge }

// OfferingKind offering 资产类型
func (i Intent) OfferingKind() OfferingKind { return i.offeringKind }

// Amount SOL offering 的 lamports 或 NFT offering 的数量
func (i Intent) Amount() uint64 { return i.amount }

// Mint NFT offering 或代币账户的 mint
func (i Intent) Mint() solana.PublicKey { return i.mint }

// Offering 待撤回的 offering 地址
func (i Intent) Offering() solana.PublicKey { return i.offering }

// Owner 代币账户所有者
func (i Intent) Owner() solana.PublicKey { return i.owner }

// IsZero 未初始化的意图
func (i Intent) IsZero() bool { return i.kind == "" }

// AffectsOfferings 成功后需要刷新 offering 列表
func (i Intent) AffectsOfferings() bool {
	switch i.kind {
	case KindAddOffering, KindRemoveOffering, KindAccept:
		return true
	}
	return false
}

// Key 意图标识：类型 + 挑战 + 载荷，用于识别重复提交
func (i Intent) Key() string {
	var b strings.Builder
	b.WriteString(string(i.kind))
	b.WriteByte('/')
	b.WriteString(i.challenge.String())
	switch i.kind {
	case KindAddOffering:
		fmt.Fprintf(&b, "/%s/%d/%s", i.offeringKind, i.amount, i.mint)
	case KindRemoveOffering:
		fmt.Fprintf(&b, "/%s", i.offering)
	case KindCreateTokenAccount:
		fmt.Fprintf(&b, "/%s/%s", i.mint, i.owner)
	case KindRedeemSigned, KindSignRaw:
		fmt.Fprintf(&b, "/%x", shortDigest(i.raw))
	}
	return b.String()
}

// Summary 面向用户的一行描述
func (i Intent) Summary() string {
	switch i.kind {
	case KindJoin:
		return fmt.Sprintf("Join challenge %s", i.challenge)
	case KindLeave:
		return fmt.Sprintf("Leave challenge %s", i.challenge)
	case KindAccept:
		return fmt.Sprintf("Accept offerings of challenge %s", i.challenge)
	case KindAddOffering:
		if i.offeringKind == OfferingNFT {
			return fmt.Sprintf("Offer %d x NFT %s to challenge %s", i.amount, i.mint, i.challenge)
		}
		return fmt.Sprintf("Offer %s to challenge %s", Lamports(i.amount), i.challenge)
	case KindRemoveOffering:
		return fmt.Sprintf("Remove offering %s from challenge %s", i.offering, i.challenge)
	case KindCreateTokenAccount:
		return fmt.Sprintf("Create token account for mint %s", i.mint)
	case KindRedeemSigned:
		return "Redeem prepared transaction"
	case KindSignRaw:
		return "Sign prepared transaction"
	default:
		return string(i.kind)
	}
}
