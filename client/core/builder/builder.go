package builder

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"

	"github.com/weisyn/wager/client/core/program"
)

// AccountSource 提供当前活跃账户（交易费支付者）
type AccountSource interface {
	ActiveAccount() solana.PublicKey
}

// IntentBuilder 把意图转换为未签名交易
//
// 构建结果不缓存：每次调用都会重新生成指令与交易。
type IntentBuilder struct {
	programs *program.Registry
	accounts AccountSource
}

// NewIntentBuilder 创建意图构建器
func NewIntentBuilder(programs *program.Registry, accounts AccountSource) *IntentBuilder {
	return &IntentBuilder{programs: programs, accounts: accounts}
}

// Build 构建未签名交易
func (b *IntentBuilder) Build(ctx context.Context, intent Intent) (*UnsignedTx, error) {
	if intent.IsZero() {
		return nil, fmt.Errorf("%w: empty intent", ErrInvalidIntent)
	}
	payer := b.accounts.ActiveAccount()
	if payer.IsZero() {
		return nil, fmt.Errorf("%w: no active account", ErrInvalidIntent)
	}

	out := &UnsignedTx{
		Kind:             intent.Kind(),
		Challenge:        intent.Challenge(),
		Summary:          intent.Summary(),
		AffectsOfferings: intent.AffectsOfferings(),
	}

	switch intent.Kind() {
	case KindRedeemSigned, KindSignRaw:
		tx, err := decodeTransactionBytes(intent.raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidIntent, err)
		}
		out.Tx = tx
		out.PreserveBlockhash = hasForeignSignatures(tx, payer)
		return out, nil
	}

	ixs, err := b.instructions(ctx, intent, payer)
	if err != nil {
		return nil, err
	}
	tx, err := solana.NewTransaction(ixs, solana.Hash{}, solana.TransactionPayer(payer))
	if err != nil {
		return nil, fmt.Errorf("build %s transaction: %w", intent.Kind(), err)
	}
	out.Tx = tx
	return out, nil
}

func (b *IntentBuilder) instructions(ctx context.Context, intent Intent, payer solana.PublicKey) ([]solana.Instruction, error) {
	if intent.Kind() == KindCreateTokenAccount {
		owner := intent.Owner()
		if owner.IsZero() {
			owner = payer
		}
		ix, err := associatedtokenaccount.NewCreateInstruction(payer, owner, intent.Mint()).ValidateAndBuild()
		if err != nil {
			return nil, fmt.Errorf("build create token account instruction: %w", err)
		}
		return []solana.Instruction{ix}, nil
	}

	client, err := b.programs.For(intent.ChallengeType())
	if err != nil {
		return nil, err
	}
	challenge := intent.Challenge()

	switch intent.Kind() {
	case KindJoin:
		return client.Join(ctx, challenge, payer)
	case KindLeave:
		return client.Leave(ctx, challenge, payer)
	case KindAccept:
		return client.Accept(ctx, challenge, payer)
	case KindAddOffering:
		if intent.OfferingKind() == OfferingNFT {
			return client.AddNftOffering(ctx, challenge, payer, intent.Mint(), intent.Amount())
		}
		return client.AddSolOffering(ctx, challenge, payer, intent.Amount())
	case KindRemoveOffering:
		return client.RemoveOffering(ctx, challenge, payer, intent.Offering())
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidIntent, intent.Kind())
	}
}
