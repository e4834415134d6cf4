package transport

import (
	"context"
	"fmt"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// tokenAccountSize SPL Token 账户数据长度
const tokenAccountSize = 165

// RPCConnection 基于 solana-go rpc 的单端点连接
type RPCConnection struct {
	endpoint   string
	client     *rpc.Client
	timeout    time.Duration
	commitment rpc.CommitmentType
}

// NewRPCConnection 创建单端点连接
func NewRPCConnection(endpoint string, timeout time.Duration, commitment rpc.CommitmentType) *RPCConnection {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	if commitment == "" {
		commitment = rpc.CommitmentConfirmed
	}
	return &RPCConnection{
		endpoint:   endpoint,
		client:     rpc.New(endpoint),
		timeout:    timeout,
		commitment: commitment,
	}
}

// Endpoint 返回端点地址
func (c *RPCConnection) Endpoint() string {
	return c.endpoint
}

func (c *RPCConnection) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}

// LatestBlockhash 获取最新 blockhash
func (c *RPCConnection) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	out, err := c.client.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return solana.Hash{}, err
	}
	if out == nil || out.Value == nil {
		return solana.Hash{}, fmt.Errorf("empty blockhash response from %s", c.endpoint)
	}
	return out.Value.Blockhash, nil
}

// SendRawTransaction 广播已签名交易
func (c *RPCConnection) SendRawTransaction(ctx context.Context, raw []byte, opts SendOptions) (solana.Signature, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	sig, err := c.client.SendRawTransactionWithOpts(ctx, raw, rpc.TransactionOpts{
		SkipPreflight:       opts.SkipPreflight,
		PreflightCommitment: c.commitment,
	})
	if err != nil {
		return solana.Signature{}, normalizeSendError(err)
	}
	return sig, nil
}

// GetBalance 获取账户余额
func (c *RPCConnection) GetBalance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	out, err := c.client.GetBalance(ctx, account, c.commitment)
	if err != nil {
		return 0, err
	}
	return out.Value, nil
}

// GetAccountInfo 获取账户数据
func (c *RPCConnection) GetAccountInfo(ctx context.Context, account solana.PublicKey) (*AccountInfo, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	out, err := c.client.GetAccountInfoWithOpts(ctx, account, &rpc.GetAccountInfoOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: c.commitment,
	})
	if err != nil {
		return nil, normalizeReadError(err)
	}
	if out == nil || out.Value == nil {
		return nil, ErrAccountNotFound
	}
	return &AccountInfo{
		Owner:    out.Value.Owner,
		Lamports: out.Value.Lamports,
		Data:     out.Value.Data.GetBinary(),
	}, nil
}

// GetProgramAccounts 按 memcmp 过滤查询程序账户
func (c *RPCConnection) GetProgramAccounts(ctx context.Context, program solana.PublicKey, filters ...MemcmpFilter) ([]KeyedAccount, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	rpcFilters := make([]rpc.RPCFilter, 0, len(filters))
	for _, f := range filters {
		rpcFilters = append(rpcFilters, rpc.RPCFilter{
			Memcmp: &rpc.RPCFilterMemcmp{
				Offset: f.Offset,
				Bytes:  solana.Base58(f.Bytes),
			},
		})
	}

	out, err := c.client.GetProgramAccountsWithOpts(ctx, program, &rpc.GetProgramAccountsOpts{
		Commitment: c.commitment,
		Encoding:   solana.EncodingBase64,
		Filters:    rpcFilters,
	})
	if err != nil {
		return nil, normalizeReadError(err)
	}

	accounts := make([]KeyedAccount, 0, len(out))
	for _, ka := range out {
		if ka == nil || ka.Account == nil {
			continue
		}
		accounts = append(accounts, KeyedAccount{
			Address: ka.Pubkey,
			Account: AccountInfo{
				Owner:    ka.Account.Owner,
				Lamports: ka.Account.Lamports,
				Data:     ka.Account.Data.GetBinary(),
			},
		})
	}
	return accounts, nil
}

// GetTokenAccountsByOwner 查询 SPL Token 账户
func (c *RPCConnection) GetTokenAccountsByOwner(ctx context.Context, owner solana.PublicKey) ([]TokenAccount, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	tokenProgram := solana.TokenProgramID
	out, err := c.client.GetTokenAccountsByOwner(ctx, owner,
		&rpc.GetTokenAccountsConfig{ProgramId: &tokenProgram},
		&rpc.GetTokenAccountsOpts{Commitment: c.commitment, Encoding: solana.EncodingBase64},
	)
	if err != nil {
		return nil, err
	}

	accounts := make([]TokenAccount, 0, len(out.Value))
	for _, ta := range out.Value {
		if ta == nil || ta.Account.Data == nil {
			continue
		}
		acc, err := DecodeTokenAccount(ta.Account.Data.GetBinary())
		if err != nil {
			return nil, fmt.Errorf("decode token account %s: %w", ta.Pubkey, err)
		}
		acc.Address = ta.Pubkey
		accounts = append(accounts, acc)
	}
	return accounts, nil
}

// DecodeTokenAccount 解析 SPL Token 账户数据的前 72 字节（mint/owner/amount）
func DecodeTokenAccount(data []byte) (TokenAccount, error) {
	if len(data) < tokenAccountSize {
		return TokenAccount{}, fmt.Errorf("token account data too short: %d", len(data))
	}
	dec := bin.NewBinDecoder(data)

	mint, err := dec.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return TokenAccount{}, err
	}
	owner, err := dec.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return TokenAccount{}, err
	}
	amount, err := dec.ReadUint64(bin.LE)
	if err != nil {
		return TokenAccount{}, err
	}
	return TokenAccount{
		Mint:   solana.PublicKeyFromBytes(mint),
		Owner:  solana.PublicKeyFromBytes(owner),
		Amount: amount,
	}, nil
}

// RequestAirdrop 申请测试币
func (c *RPCConnection) RequestAirdrop(ctx context.Context, account solana.PublicKey, lamports uint64) (solana.Signature, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.client.RequestAirdrop(ctx, account, lamports, c.commitment)
}

// Ping 健康检查
func (c *RPCConnection) Ping(ctx context.Context) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	status, err := c.client.GetHealth(ctx)
	if err != nil {
		return err
	}
	if status != "ok" {
		return fmt.Errorf("endpoint %s unhealthy: %s", c.endpoint, status)
	}
	return nil
}

// Close 关闭连接
func (c *RPCConnection) Close() error {
	return c.client.Close()
}

var _ Connection = (*RPCConnection)(nil)
