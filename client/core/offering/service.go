package offering

import (
	"context"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/weisyn/wager/client/core/program"
	"github.com/weisyn/wager/internal/core/infrastructure/event"
	logimpl "github.com/weisyn/wager/internal/core/infrastructure/log"
	"github.com/weisyn/wager/pkg/interfaces/infrastructure/log"
)

// Service offering 列表服务
//
// 列表按挑战缓存到失效为止；任何成功的 offering 变更提交都会使对应挑战的缓存失效。
type Service struct {
	programs *program.Registry
	resolver *MetadataResolver
	logger   log.Logger

	mu    sync.Mutex
	lists map[solana.PublicKey][]Offering
}

// NewService 创建服务；resolver 为 nil 时不解析 NFT 元数据
func NewService(programs *program.Registry, resolver *MetadataResolver, logger log.Logger) *Service {
	if logger == nil {
		logger = logimpl.NewNop()
	}
	return &Service{
		programs: programs,
		resolver: resolver,
		logger:   logger.With("module", "offering"),
		lists:    make(map[solana.PublicKey][]Offering),
	}
}

// List 返回挑战的 offering 列表
func (s *Service) List(ctx context.Context, ct program.ChallengeType, challenge solana.PublicKey) ([]Offering, error) {
	s.mu.Lock()
	cached, ok := s.lists[challenge]
	s.mu.Unlock()
	if ok {
		return clone(cached), nil
	}
	return s.Refresh(ctx, ct, challenge)
}

// Refresh 重新从链上加载
func (s *Service) Refresh(ctx context.Context, ct program.ChallengeType, challenge solana.PublicKey) ([]Offering, error) {
	client, err := s.programs.For(ct)
	if err != nil {
		return nil, err
	}
	accounts, err := client.Offerings(ctx, challenge)
	if err != nil {
		return nil, fmt.Errorf("load offerings: %w", err)
	}

	list := make([]Offering, 0, len(accounts))
	for _, acc := range accounts {
		list = append(list, fromAccount(acc))
	}

	s.mu.Lock()
	s.lists[challenge] = list
	s.mu.Unlock()

	s.logger.Debugf("loaded %d offerings for %s", len(list), challenge)
	return clone(list), nil
}

// Invalidate 使挑战的缓存失效
func (s *Service) Invalidate(challenge solana.PublicKey) {
	s.mu.Lock()
	delete(s.lists, challenge)
	s.mu.Unlock()
}

// HandleSubmission 成功的 offering 变更提交使缓存失效
func (s *Service) HandleSubmission(e event.Submission) {
	if e.Success && e.AffectsOfferings {
		s.logger.Debugf("invalidate offerings for %s after %s", e.Challenge, e.Kind)
		s.Invalidate(e.Challenge)
	}
}

// Subscribe 订阅提交事件
func (s *Service) Subscribe(bus *event.Bus) (func(), error) {
	return bus.SubscribeSubmissions(s.HandleSubmission)
}

// WithMetadata 为 NFT offering 填充元数据，单个失败只记录日志
func (s *Service) WithMetadata(ctx context.Context, list []Offering) []Offering {
	if s.resolver == nil {
		return list
	}
	for i := range list {
		if !list[i].IsNFT() || list[i].Metadata != nil {
			continue
		}
		md, err := s.resolver.Resolve(ctx, *list[i].Mint)
		if err != nil {
			s.logger.Warnf("resolve metadata for %s: %v", list[i].Mint, err)
			continue
		}
		list[i].Metadata = md
	}
	return list
}

// Resolver 元数据解析器，可能为 nil
func (s *Service) Resolver() *MetadataResolver {
	return s.resolver
}

func clone(in []Offering) []Offering {
	out := make([]Offering, len(in))
	copy(out, in)
	return out
}
