package program

import (
	"context"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/weisyn/wager/client/core/transport"
)

// AnchorClient 基于 Anchor 约定的挑战程序客户端
type AnchorClient struct {
	programID solana.PublicKey
	kind      ChallengeType
	conn      transport.Connection
}

// NewAnchorClient 创建客户端
func NewAnchorClient(kind ChallengeType, programID solana.PublicKey, conn transport.Connection) (*AnchorClient, error) {
	if programID.IsZero() {
		return nil, fmt.Errorf("%w: %s", ErrProgramNotConfigured, kind)
	}
	return &AnchorClient{programID: programID, kind: kind, conn: conn}, nil
}

// Type 挑战类型
func (c *AnchorClient) Type() ChallengeType {
	return c.kind
}

// ProgramID 程序 ID
func (c *AnchorClient) ProgramID() solana.PublicKey {
	return c.programID
}

// membershipAccounts join/leave 共用的账户列表
func (c *AnchorClient) membershipAccounts(challenge, player solana.PublicKey) (solana.AccountMetaSlice, error) {
	playerPDA, err := PlayerAddress(c.programID, challenge, player)
	if err != nil {
		return nil, fmt.Errorf("derive player address: %w", err)
	}
	pool, err := PoolAddress(c.programID, challenge)
	if err != nil {
		return nil, fmt.Errorf("derive pool address: %w", err)
	}
	return solana.AccountMetaSlice{
		solana.NewAccountMeta(challenge, true, false),
		solana.NewAccountMeta(playerPDA, true, false),
		solana.NewAccountMeta(pool, true, false),
		solana.NewAccountMeta(player, true, true),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
	}, nil
}

func (c *AnchorClient) instruction(name string, accounts solana.AccountMetaSlice, args func(*bin.Encoder) error) ([]solana.Instruction, error) {
	data, err := encodeInstruction(name, args)
	if err != nil {
		return nil, err
	}
	return []solana.Instruction{solana.NewInstruction(c.programID, accounts, data)}, nil
}

// Join 加入挑战
func (c *AnchorClient) Join(ctx context.Context, challenge, player solana.PublicKey) ([]solana.Instruction, error) {
	accounts, err := c.membershipAccounts(challenge, player)
	if err != nil {
		return nil, err
	}
	return c.instruction(ixJoin, accounts, nil)
}

// Leave 退出挑战
func (c *AnchorClient) Leave(ctx context.Context, challenge, player solana.PublicKey) ([]solana.Instruction, error) {
	accounts, err := c.membershipAccounts(challenge, player)
	if err != nil {
		return nil, err
	}
	return c.instruction(ixLeave, accounts, nil)
}

// Accept 接受当前 offerings（仅 NFT 挑战）
func (c *AnchorClient) Accept(ctx context.Context, challenge, player solana.PublicKey) ([]solana.Instruction, error) {
	if c.kind != NonFungible {
		return nil, fmt.Errorf("%w: accept", ErrUnsupported)
	}
	playerPDA, err := PlayerAddress(c.programID, challenge, player)
	if err != nil {
		return nil, fmt.Errorf("derive player address: %w", err)
	}
	return c.instruction(ixAccept, solana.AccountMetaSlice{
		solana.NewAccountMeta(challenge, true, false),
		solana.NewAccountMeta(playerPDA, true, false),
		solana.NewAccountMeta(player, true, true),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
	}, nil)
}

// AddSolOffering 添加 SOL offering
func (c *AnchorClient) AddSolOffering(ctx context.Context, challenge, authority solana.PublicKey, lamports uint64) ([]solana.Instruction, error) {
	if c.kind != NonFungible {
		return nil, fmt.Errorf("%w: add offering", ErrUnsupported)
	}
	offering, err := OfferingAddress(c.programID, challenge, authority, solana.SystemProgramID)
	if err != nil {
		return nil, fmt.Errorf("derive offering address: %w", err)
	}
	escrow, err := EscrowAddress(c.programID, challenge)
	if err != nil {
		return nil, fmt.Errorf("derive escrow address: %w", err)
	}
	return c.instruction(ixAddSolOffering, solana.AccountMetaSlice{
		solana.NewAccountMeta(challenge, false, false),
		solana.NewAccountMeta(offering, true, false),
		solana.NewAccountMeta(escrow, true, false),
		solana.NewAccountMeta(authority, true, true),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
	}, func(enc *bin.Encoder) error {
		return enc.WriteUint64(lamports, bin.LE)
	})
}

// AddNftOffering 添加 NFT offering，代币从用户的关联代币账户转入托管
func (c *AnchorClient) AddNftOffering(ctx context.Context, challenge, authority, mint solana.PublicKey, amount uint64) ([]solana.Instruction, error) {
	if c.kind != NonFungible {
		return nil, fmt.Errorf("%w: add offering", ErrUnsupported)
	}
	offering, err := OfferingAddress(c.programID, challenge, authority, mint)
	if err != nil {
		return nil, fmt.Errorf("derive offering address: %w", err)
	}
	escrow, err := EscrowAddress(c.programID, challenge)
	if err != nil {
		return nil, fmt.Errorf("derive escrow address: %w", err)
	}
	userATA, _, err := solana.FindAssociatedTokenAddress(authority, mint)
	if err != nil {
		return nil, fmt.Errorf("derive user token account: %w", err)
	}
	escrowATA, _, err := solana.FindAssociatedTokenAddress(escrow, mint)
	if err != nil {
		return nil, fmt.Errorf("derive escrow token account: %w", err)
	}
	return c.instruction(ixAddNftOffering, solana.AccountMetaSlice{
		solana.NewAccountMeta(challenge, false, false),
		solana.NewAccountMeta(offering, true, false),
		solana.NewAccountMeta(escrow, false, false),
		solana.NewAccountMeta(escrowATA, true, false),
		solana.NewAccountMeta(userATA, true, false),
		solana.NewAccountMeta(mint, false, false),
		solana.NewAccountMeta(authority, true, true),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
		solana.NewAccountMeta(solana.SPLAssociatedTokenAccountProgramID, false, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
	}, func(enc *bin.Encoder) error {
		return enc.WriteUint64(amount, bin.LE)
	})
}

// RemoveOffering 撤回 offering
// 需要先读取 offering 账户以确定是否涉及代币账户
func (c *AnchorClient) RemoveOffering(ctx context.Context, challenge, authority, offering solana.PublicKey) ([]solana.Instruction, error) {
	if c.kind != NonFungible {
		return nil, fmt.Errorf("%w: remove offering", ErrUnsupported)
	}
	acc, err := c.conn.GetAccountInfo(ctx, offering)
	if err != nil {
		return nil, fmt.Errorf("load offering %s: %w", offering, err)
	}
	off, err := DecodeOffering(offering, acc.Data)
	if err != nil {
		return nil, err
	}
	if !off.Challenge.Equals(challenge) {
		return nil, fmt.Errorf("%w: offering %s belongs to challenge %s", ErrInvalidAccountData, offering, off.Challenge)
	}

	escrow, err := EscrowAddress(c.programID, challenge)
	if err != nil {
		return nil, fmt.Errorf("derive escrow address: %w", err)
	}
	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(challenge, false, false),
		solana.NewAccountMeta(offering, true, false),
		solana.NewAccountMeta(escrow, true, false),
		solana.NewAccountMeta(authority, true, true),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
	}
	if off.Mint != nil {
		userATA, _, err := solana.FindAssociatedTokenAddress(authority, *off.Mint)
		if err != nil {
			return nil, fmt.Errorf("derive user token account: %w", err)
		}
		escrowATA, _, err := solana.FindAssociatedTokenAddress(escrow, *off.Mint)
		if err != nil {
			return nil, fmt.Errorf("derive escrow token account: %w", err)
		}
		accounts = append(accounts,
			solana.NewAccountMeta(escrowATA, true, false),
			solana.NewAccountMeta(userATA, true, false),
			solana.NewAccountMeta(solana.TokenProgramID, false, false),
		)
	}
	return c.instruction(ixRemoveOffering, accounts, nil)
}

// PlayerStatus 查询玩家状态，玩家账户不存在即 NotInGame
func (c *AnchorClient) PlayerStatus(ctx context.Context, challenge, player solana.PublicKey) (PlayerStatus, error) {
	playerPDA, err := PlayerAddress(c.programID, challenge, player)
	if err != nil {
		return NotInGame, fmt.Errorf("derive player address: %w", err)
	}
	acc, err := c.conn.GetAccountInfo(ctx, playerPDA)
	if errors.Is(err, transport.ErrAccountNotFound) {
		return NotInGame, nil
	}
	if err != nil {
		return NotInGame, fmt.Errorf("load player account: %w", err)
	}
	return DecodePlayerStatus(acc.Data)
}

// Offerings 查询挑战下所有 offering
func (c *AnchorClient) Offerings(ctx context.Context, challenge solana.PublicKey) ([]OfferingAccount, error) {
	if c.kind != NonFungible {
		return nil, nil
	}
	disc := AccountDiscriminator(accountOffering)
	accounts, err := c.conn.GetProgramAccounts(ctx, c.programID,
		transport.MemcmpFilter{Offset: 0, Bytes: disc[:]},
		transport.MemcmpFilter{Offset: offeringChallengeOffset, Bytes: challenge.Bytes()},
	)
	if err != nil {
		return nil, fmt.Errorf("list offerings: %w", err)
	}

	out := make([]OfferingAccount, 0, len(accounts))
	for _, ka := range accounts {
		off, err := DecodeOffering(ka.Address, ka.Account.Data)
		if err != nil {
			return nil, err
		}
		out = append(out, *off)
	}
	return out, nil
}

// ChallengeInfo 查询挑战账户
func (c *AnchorClient) ChallengeInfo(ctx context.Context, challenge solana.PublicKey) (*ChallengeInfo, error) {
	acc, err := c.conn.GetAccountInfo(ctx, challenge)
	if errors.Is(err, transport.ErrAccountNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrChallengeNotFound, challenge)
	}
	if err != nil {
		return nil, fmt.Errorf("load challenge: %w", err)
	}
	if !acc.Owner.Equals(c.programID) {
		return nil, fmt.Errorf("%w: %s is owned by %s", ErrInvalidAccountData, challenge, acc.Owner)
	}
	return DecodeChallenge(challenge, c.kind, acc.Data)
}

var _ Client = (*AnchorClient)(nil)
