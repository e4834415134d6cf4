package challenge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/wager/client/core/builder"
	"github.com/weisyn/wager/client/core/config"
	"github.com/weisyn/wager/client/core/program"
	"github.com/weisyn/wager/client/core/status"
	"github.com/weisyn/wager/client/core/submit"
	"github.com/weisyn/wager/client/core/transport"
	"github.com/weisyn/wager/client/core/wallet"
)

// fakeConn 内存连接；gate 非 nil 时第一次广播会阻塞直到 gate 关闭
type fakeConn struct {
	transport.Connection

	mu       sync.Mutex
	sendErr  error
	sends    int
	entered  chan struct{}
	gate     chan struct{}
	balance  uint64
	tokens   []transport.TokenAccount
	accounts map[solana.PublicKey]*transport.AccountInfo
	airdrops []uint64
}

func (c *fakeConn) LatestBlockhash(context.Context) (solana.Hash, error) {
	return solana.Hash{7}, nil
}

func (c *fakeConn) SendRawTransaction(ctx context.Context, _ []byte, _ transport.SendOptions) (solana.Signature, error) {
	// 只有第一次广播会被 gate 阻塞
	c.mu.Lock()
	entered, gate := c.entered, c.gate
	c.entered, c.gate = nil, nil
	c.mu.Unlock()
	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sends++
	if c.sendErr != nil {
		return solana.Signature{}, c.sendErr
	}
	return solana.Signature{byte(c.sends)}, nil
}

func (c *fakeConn) GetBalance(context.Context, solana.PublicKey) (uint64, error) {
	return c.balance, nil
}

func (c *fakeConn) GetAccountInfo(_ context.Context, account solana.PublicKey) (*transport.AccountInfo, error) {
	if acc, ok := c.accounts[account]; ok {
		return acc, nil
	}
	return nil, transport.ErrAccountNotFound
}

func (c *fakeConn) GetTokenAccountsByOwner(context.Context, solana.PublicKey) ([]transport.TokenAccount, error) {
	return c.tokens, nil
}

func (c *fakeConn) RequestAirdrop(_ context.Context, _ solana.PublicKey, lamports uint64) (solana.Signature, error) {
	c.airdrops = append(c.airdrops, lamports)
	return solana.Signature{9}, nil
}

// fakeProgram 最小程序客户端
type fakeProgram struct {
	program.Client

	id        solana.PublicKey
	kind      program.ChallengeType
	mu        sync.Mutex
	onChain   program.PlayerStatus
	offerings int
}

func (p *fakeProgram) Type() program.ChallengeType { return p.kind }
func (p *fakeProgram) ProgramID() solana.PublicKey { return p.id }

func (p *fakeProgram) ix(player solana.PublicKey) []solana.Instruction {
	return []solana.Instruction{solana.NewInstruction(p.id, solana.AccountMetaSlice{
		solana.Meta(player).WRITE().SIGNER(),
	}, []byte{1})}
}

func (p *fakeProgram) Join(_ context.Context, _, player solana.PublicKey) ([]solana.Instruction, error) {
	return p.ix(player), nil
}

func (p *fakeProgram) Leave(_ context.Context, _, player solana.PublicKey) ([]solana.Instruction, error) {
	return p.ix(player), nil
}

func (p *fakeProgram) AddSolOffering(_ context.Context, _, authority solana.PublicKey, _ uint64) ([]solana.Instruction, error) {
	return p.ix(authority), nil
}

func (p *fakeProgram) PlayerStatus(context.Context, solana.PublicKey, solana.PublicKey) (program.PlayerStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.onChain, nil
}

func (p *fakeProgram) Offerings(_ context.Context, challenge solana.PublicKey) ([]program.OfferingAccount, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.offerings++
	return []program.OfferingAccount{{Address: solana.NewWallet().PublicKey(), Challenge: challenge, Amount: 5}}, nil
}

func (p *fakeProgram) ChallengeInfo(_ context.Context, challenge solana.PublicKey) (*program.ChallengeInfo, error) {
	return &program.ChallengeInfo{Address: challenge, Type: p.kind, MaxPlayers: 2, Players: 2}, nil
}

type fixture struct {
	svc  *Service
	conn *fakeConn
	ft   *fakeProgram
	nft  *fakeProgram
}

func newFixture(t *testing.T, cluster config.Cluster) *fixture {
	t.Helper()
	signer, err := wallet.NewKeypairSigner(solana.NewWallet().PrivateKey)
	require.NoError(t, err)

	conn := &fakeConn{accounts: make(map[solana.PublicKey]*transport.AccountInfo)}
	ft := &fakeProgram{id: solana.NewWallet().PublicKey(), kind: program.Fungible}
	nft := &fakeProgram{id: solana.NewWallet().PublicKey(), kind: program.NonFungible}
	programs := program.NewRegistry(ft, nft)

	noSleep := func(context.Context, time.Duration) error { return nil }
	pipeline := submit.NewPipeline(conn, signer, submit.DefaultPolicy(), submit.WithSleep(noSleep))

	svc, err := NewService(Deps{
		Conn:     conn,
		Signer:   signer,
		Programs: programs,
		Pipeline: pipeline,
		Cluster:  cluster,
	})
	require.NoError(t, err)
	return &fixture{svc: svc, conn: conn, ft: ft, nft: nft}
}

func TestJoinAdvancesStatusWithoutQuery(t *testing.T) {
	f := newFixture(t, config.Devnet)
	challenge := solana.NewWallet().PublicKey()

	res, err := f.svc.Join(context.Background(), program.Fungible, challenge)
	require.NoError(t, err)
	require.True(t, res.Success())
	assert.Equal(t, f.svc.Account(), res.Player)

	cached, ok := f.svc.Tracker().Cached(challenge, f.svc.Account())
	require.True(t, ok)
	assert.Equal(t, status.Joined, cached)

	// 链上尚未反映加入，查询结果不会让状态倒退
	st, err := f.svc.Status(context.Background(), program.Fungible, challenge)
	require.NoError(t, err)
	assert.Equal(t, status.Joined, st)
}

func TestAlreadyJoinedIsSuccessEquivalent(t *testing.T) {
	f := newFixture(t, config.Devnet)
	f.conn.sendErr = errors.New("Allocate: account Address { address: x } already in use")
	challenge := solana.NewWallet().PublicKey()

	res, err := f.svc.Join(context.Background(), program.Fungible, challenge)
	require.NoError(t, err)
	assert.False(t, res.Success())
	assert.True(t, res.OK())
	assert.Equal(t, submit.ClassAlreadyJoined, res.Class())

	cached, _ := f.svc.Tracker().Cached(challenge, f.svc.Account())
	assert.Equal(t, status.Joined, cached)
}

func TestAlreadyInUseOnOfferingIsFailure(t *testing.T) {
	f := newFixture(t, config.Devnet)
	f.conn.sendErr = errors.New("Allocate: account Address { address: x } already in use")
	challenge := solana.NewWallet().PublicKey()

	res, err := f.svc.AddSolOffering(context.Background(), challenge, builder.MustParseSOL("0.5"))
	require.NoError(t, err)
	assert.False(t, res.OK())
	assert.Equal(t, submit.ClassUnknown, res.Class())
	assert.NotEqual(t, "You have already joined this challenge.", res.Message())

	_, ok := f.svc.Tracker().Cached(challenge, f.svc.Account())
	assert.False(t, ok)
}

func TestLeaveRefreshesStatus(t *testing.T) {
	f := newFixture(t, config.Devnet)
	challenge := solana.NewWallet().PublicKey()

	_, err := f.svc.Join(context.Background(), program.Fungible, challenge)
	require.NoError(t, err)

	res, err := f.svc.Leave(context.Background(), program.Fungible, challenge)
	require.NoError(t, err)
	require.True(t, res.Success())

	cached, _ := f.svc.Tracker().Cached(challenge, f.svc.Account())
	assert.Equal(t, status.NotInGame, cached)
}

func TestSubmissionInFlightGuard(t *testing.T) {
	f := newFixture(t, config.Devnet)
	entered, gate := make(chan struct{}, 1), make(chan struct{})
	f.conn.entered, f.conn.gate = entered, gate
	challenge := solana.NewWallet().PublicKey()

	done := make(chan *submit.Result)
	go func() {
		res, _ := f.svc.Join(context.Background(), program.Fungible, challenge)
		done <- res
	}()
	<-entered

	_, err := f.svc.Join(context.Background(), program.Fungible, challenge)
	assert.ErrorIs(t, err, ErrSubmissionInFlight)

	// 其他挑战的加入不受影响
	otherRes, err := f.svc.Submit(context.Background(), mustJoin(t, solana.NewWallet().PublicKey()))
	require.NoError(t, err)
	assert.True(t, otherRes.Success())

	close(gate)
	res := <-done
	require.True(t, res.Success())

	res, err = f.svc.Join(context.Background(), program.Fungible, challenge)
	require.NoError(t, err)
	assert.True(t, res.Success())
}

func mustJoin(t *testing.T, challenge solana.PublicKey) builder.Intent {
	t.Helper()
	intent, err := builder.NewJoin(program.Fungible, challenge)
	require.NoError(t, err)
	return intent
}

func TestOfferingMutationInvalidatesList(t *testing.T) {
	f := newFixture(t, config.Devnet)
	challenge := solana.NewWallet().PublicKey()
	ctx := context.Background()

	_, err := f.svc.Offerings(ctx, challenge, false)
	require.NoError(t, err)
	_, err = f.svc.Offerings(ctx, challenge, false)
	require.NoError(t, err)
	assert.Equal(t, 1, f.nft.offerings)

	res, err := f.svc.AddSolOffering(ctx, challenge, builder.MustParseSOL("0.5"))
	require.NoError(t, err)
	require.True(t, res.Success())

	_, err = f.svc.Offerings(ctx, challenge, false)
	require.NoError(t, err)
	assert.Equal(t, 2, f.nft.offerings)
}

func TestPreconditionErrorsDoNotReachPipeline(t *testing.T) {
	f := newFixture(t, config.Devnet)

	_, err := f.svc.AddSolOffering(context.Background(), solana.NewWallet().PublicKey(), 0)
	assert.ErrorIs(t, err, builder.ErrInvalidIntent)

	_, err = f.svc.Join(context.Background(), program.Fungible, solana.PublicKey{})
	assert.ErrorIs(t, err, builder.ErrInvalidIntent)

	assert.Zero(t, f.conn.sends)
}

func TestInfo(t *testing.T) {
	f := newFixture(t, config.Devnet)
	info, err := f.svc.Info(context.Background(), program.NonFungible, solana.NewWallet().PublicKey())
	require.NoError(t, err)
	assert.True(t, info.IsFull())
}

func TestBalanceAndAirdrop(t *testing.T) {
	f := newFixture(t, config.Devnet)
	f.conn.balance = 1_500_000_000

	bal, err := f.svc.Balance(context.Background(), solana.PublicKey{})
	require.NoError(t, err)
	assert.Equal(t, "1.5 SOL", bal.String())

	_, err = f.svc.Airdrop(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, []uint64{solana.LAMPORTS_PER_SOL}, f.conn.airdrops)

	m := newFixture(t, config.Mainnet)
	_, err = m.svc.Airdrop(context.Background(), DefaultAirdrop)
	assert.ErrorIs(t, err, ErrAirdropUnavailable)
	assert.Empty(t, m.conn.airdrops)
}

func TestTokenAccountsReadDecimals(t *testing.T) {
	f := newFixture(t, config.Devnet)
	mint := solana.NewWallet().PublicKey()
	data := make([]byte, 82)
	data[mintDecimalsOffset] = 6
	f.conn.accounts[mint] = &transport.AccountInfo{Data: data}
	unknown := solana.NewWallet().PublicKey()
	f.conn.tokens = []transport.TokenAccount{
		{Address: solana.NewWallet().PublicKey(), Mint: mint, Amount: 2_500_000},
		{Address: solana.NewWallet().PublicKey(), Mint: unknown, Amount: 3},
	}

	got, err := f.svc.TokenAccounts(context.Background(), solana.PublicKey{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, uint8(6), got[0].Decimals)
	assert.Equal(t, "2.5", got[0].UIAmount)
	assert.Equal(t, "3", got[1].UIAmount)
}

func TestFormatUnits(t *testing.T) {
	tests := []struct {
		amount   uint64
		decimals uint8
		want     string
	}{
		{0, 0, "0"},
		{0, 6, "0"},
		{1, 6, "0.000001"},
		{1_000_000, 6, "1"},
		{1_230_000, 6, "1.23"},
		{42, 0, "42"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatUnits(tt.amount, tt.decimals))
	}
}
