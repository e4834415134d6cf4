// Package challenge 挑战操作门面
//
// 所有写操作都走同一条路径：意图 → IntentBuilder → Pipeline.Submit →
// 状态投影与 offering 缓存更新。读操作直接查询链上或本地投影。
package challenge

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/weisyn/wager/client/core/builder"
	"github.com/weisyn/wager/client/core/config"
	"github.com/weisyn/wager/client/core/offering"
	"github.com/weisyn/wager/client/core/program"
	"github.com/weisyn/wager/client/core/status"
	"github.com/weisyn/wager/client/core/submit"
	"github.com/weisyn/wager/client/core/transport"
	"github.com/weisyn/wager/client/core/wallet"
	logimpl "github.com/weisyn/wager/internal/core/infrastructure/log"
	"github.com/weisyn/wager/pkg/interfaces/infrastructure/log"
)

var (
	// ErrSubmissionInFlight 相同意图的提交尚未结束
	ErrSubmissionInFlight = errors.New("submission already in flight")

	// ErrAirdropUnavailable 当前集群不支持 airdrop
	ErrAirdropUnavailable = errors.New("airdrop is only available on devnet")
)

// DefaultAirdrop 默认 airdrop 数量
const DefaultAirdrop = builder.Lamports(solana.LAMPORTS_PER_SOL)

// Deps 门面依赖
type Deps struct {
	Conn      transport.Connection
	Signer    wallet.Signer
	Programs  *program.Registry
	Pipeline  *submit.Pipeline
	Tracker   *status.Tracker
	Offerings *offering.Service
	Cluster   config.Cluster
	Logger    log.Logger
}

// Service 挑战门面
type Service struct {
	conn      transport.Connection
	signer    wallet.Signer
	programs  *program.Registry
	builder   *builder.IntentBuilder
	pipeline  *submit.Pipeline
	tracker   *status.Tracker
	offerings *offering.Service
	cluster   config.Cluster
	logger    log.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewService 创建门面
func NewService(d Deps) (*Service, error) {
	if d.Conn == nil || d.Signer == nil || d.Pipeline == nil {
		return nil, errors.New("challenge service requires connection, signer and pipeline")
	}
	if d.Logger == nil {
		d.Logger = logimpl.NewNop()
	}
	if d.Tracker == nil {
		d.Tracker = status.NewTracker(d.Programs, nil, d.Logger)
	}
	if d.Offerings == nil {
		d.Offerings = offering.NewService(d.Programs, nil, d.Logger)
	}
	if d.Cluster == "" {
		d.Cluster = config.Devnet
	}
	return &Service{
		conn:      d.Conn,
		signer:    d.Signer,
		programs:  d.Programs,
		builder:   builder.NewIntentBuilder(d.Programs, d.Signer),
		pipeline:  d.Pipeline,
		tracker:   d.Tracker,
		offerings: d.Offerings,
		cluster:   d.Cluster,
		logger:    d.Logger.With("module", "challenge"),
		inflight:  make(map[string]struct{}),
	}, nil
}

// Account 当前活跃账户
func (s *Service) Account() solana.PublicKey {
	return s.signer.ActiveAccount()
}

// Cluster 当前集群
func (s *Service) Cluster() config.Cluster {
	return s.cluster
}

// Tracker 状态投影
func (s *Service) Tracker() *status.Tracker {
	return s.tracker
}

// OfferingService offering 服务
func (s *Service) OfferingService() *offering.Service {
	return s.offerings
}

func (s *Service) acquire(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[key]; busy {
		return false
	}
	s.inflight[key] = struct{}{}
	return true
}

func (s *Service) release(key string) {
	s.mu.Lock()
	delete(s.inflight, key)
	s.mu.Unlock()
}

// Submit 提交任意意图
//
// 构建阶段的错误（前置条件、程序未配置）直接返回 error；
// 一旦进入流水线，结果只通过 Result 表达。
func (s *Service) Submit(ctx context.Context, intent builder.Intent) (*submit.Result, error) {
	key := intent.Key()
	if !s.acquire(key) {
		return nil, fmt.Errorf("%w: %s", ErrSubmissionInFlight, intent.Kind())
	}
	defer s.release(key)

	utx, err := s.builder.Build(ctx, intent)
	if err != nil {
		return nil, err
	}

	result := s.pipeline.Submit(ctx, utx)
	s.tracker.Apply(result)
	if result.Success() && intent.AffectsOfferings() {
		s.offerings.Invalidate(intent.Challenge())
	}
	if result.Success() && intent.Kind() == builder.KindLeave {
		// leave 没有乐观转换，以链上状态为准
		if _, err := s.tracker.Refresh(ctx, intent.ChallengeType(), intent.Challenge(), result.Player); err != nil {
			s.logger.Warnf("refresh status after leave: %v", err)
		}
	}
	return result, nil
}

// Join 加入挑战
func (s *Service) Join(ctx context.Context, ct program.ChallengeType, challenge solana.PublicKey) (*submit.Result, error) {
	intent, err := builder.NewJoin(ct, challenge)
	if err != nil {
		return nil, err
	}
	return s.Submit(ctx, intent)
}

// Leave 退出挑战
func (s *Service) Leave(ctx context.Context, ct program.ChallengeType, challenge solana.PublicKey) (*submit.Result, error) {
	intent, err := builder.NewLeave(ct, challenge)
	if err != nil {
		return nil, err
	}
	return s.Submit(ctx, intent)
}

// Accept 接受 NFT 挑战当前的 offering
func (s *Service) Accept(ctx context.Context, challenge solana.PublicKey) (*submit.Result, error) {
	intent, err := builder.NewAccept(challenge)
	if err != nil {
		return nil, err
	}
	return s.Submit(ctx, intent)
}

// AddSolOffering 以 SOL 下注
func (s *Service) AddSolOffering(ctx context.Context, challenge solana.PublicKey, amount builder.Lamports) (*submit.Result, error) {
	intent, err := builder.NewAddSolOffering(challenge, amount)
	if err != nil {
		return nil, err
	}
	return s.Submit(ctx, intent)
}

// AddNftOffering 以 NFT 下注
func (s *Service) AddNftOffering(ctx context.Context, challenge, mint solana.PublicKey, count uint64) (*submit.Result, error) {
	intent, err := builder.NewAddNftOffering(challenge, mint, count)
	if err != nil {
		return nil, err
	}
	return s.Submit(ctx, intent)
}

// RemoveOffering 撤回 offering
func (s *Service) RemoveOffering(ctx context.Context, challenge, offeringAddr solana.PublicKey) (*submit.Result, error) {
	intent, err := builder.NewRemoveOffering(challenge, offeringAddr)
	if err != nil {
		return nil, err
	}
	return s.Submit(ctx, intent)
}

// CreateTokenAccount 为 mint 创建关联代币账户，owner 为零值时使用当前账户
func (s *Service) CreateTokenAccount(ctx context.Context, mint, owner solana.PublicKey) (*submit.Result, error) {
	intent, err := builder.NewCreateTokenAccount(mint, owner)
	if err != nil {
		return nil, err
	}
	return s.Submit(ctx, intent)
}

// Redeem 对服务端预签名交易补签并广播
func (s *Service) Redeem(ctx context.Context, encoded string) (*submit.Result, error) {
	intent, err := builder.NewRedeemSigned(encoded)
	if err != nil {
		return nil, err
	}
	return s.Submit(ctx, intent)
}

// SignRaw 签名并广播外部传入的交易
func (s *Service) SignRaw(ctx context.Context, encoded string) (*submit.Result, error) {
	intent, err := builder.NewSignRaw(encoded)
	if err != nil {
		return nil, err
	}
	return s.Submit(ctx, intent)
}

// Status 当前账户在挑战中的状态（不倒退）
func (s *Service) Status(ctx context.Context, ct program.ChallengeType, challenge solana.PublicKey) (status.PlayerStatus, error) {
	return s.tracker.Status(ctx, ct, challenge, s.Account())
}

// RefreshStatus 显式刷新状态
func (s *Service) RefreshStatus(ctx context.Context, ct program.ChallengeType, challenge solana.PublicKey) (status.PlayerStatus, error) {
	return s.tracker.Refresh(ctx, ct, challenge, s.Account())
}

// Info 挑战账户信息
func (s *Service) Info(ctx context.Context, ct program.ChallengeType, challenge solana.PublicKey) (*program.ChallengeInfo, error) {
	client, err := s.programs.For(ct)
	if err != nil {
		return nil, err
	}
	return client.ChallengeInfo(ctx, challenge)
}

// Offerings 挑战的 offering 列表，withMetadata 时解析 NFT 元数据
func (s *Service) Offerings(ctx context.Context, challenge solana.PublicKey, withMetadata bool) ([]offering.Offering, error) {
	list, err := s.offerings.List(ctx, program.NonFungible, challenge)
	if err != nil {
		return nil, err
	}
	if withMetadata {
		list = s.offerings.WithMetadata(ctx, list)
	}
	return list, nil
}

// Balance 账户余额，account 为零值时查询当前账户
func (s *Service) Balance(ctx context.Context, account solana.PublicKey) (builder.Lamports, error) {
	if account.IsZero() {
		account = s.Account()
	}
	lamports, err := s.conn.GetBalance(ctx, account)
	if err != nil {
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return builder.Lamports(lamports), nil
}

// Airdrop 申请测试币，仅 devnet
func (s *Service) Airdrop(ctx context.Context, amount builder.Lamports) (solana.Signature, error) {
	if s.cluster != config.Devnet {
		return solana.Signature{}, ErrAirdropUnavailable
	}
	if !amount.IsPositive() {
		amount = DefaultAirdrop
	}
	sig, err := s.conn.RequestAirdrop(ctx, s.Account(), amount.Uint64())
	if err != nil {
		return solana.Signature{}, fmt.Errorf("request airdrop: %w", err)
	}
	s.logger.Infof("airdrop %s requested: %s", amount, sig)
	return sig, nil
}
