package app

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/weisyn/wager/client/core/challenge"
	"github.com/weisyn/wager/client/core/config"
	"github.com/weisyn/wager/client/core/offering"
	"github.com/weisyn/wager/client/core/program"
	"github.com/weisyn/wager/client/core/status"
	"github.com/weisyn/wager/client/core/submit"
	"github.com/weisyn/wager/client/core/transport"
	"github.com/weisyn/wager/client/core/wallet"
	apihttp "github.com/weisyn/wager/internal/api/http"
	"github.com/weisyn/wager/internal/api/http/handlers"
	"github.com/weisyn/wager/internal/api/websocket"
	logconfig "github.com/weisyn/wager/internal/config/log"
	memoryconfig "github.com/weisyn/wager/internal/config/storage/memory"
	"github.com/weisyn/wager/internal/core/infrastructure/event"
	"github.com/weisyn/wager/internal/core/infrastructure/metrics"
	"github.com/weisyn/wager/internal/core/infrastructure/storage/memory"
	"github.com/weisyn/wager/pkg/interfaces/infrastructure/log"
)

// ErrNoKeypair 未找到可用的密钥
var ErrNoKeypair = errors.New("no keypair configured: run 'wager account import' or set keypair_path")

// ProvideProfile 加载 profile 并应用命令行覆盖
func ProvideProfile(o Options) (*config.Profile, error) {
	dir := o.ConfigDir
	if dir == "" {
		d, err := config.DefaultConfigDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	pm, err := config.NewProfileManager(dir)
	if err != nil {
		return nil, err
	}

	// --mainnet/--devnet 未指定 profile 时选同名 profile
	name := o.Profile
	if name == "" && o.Cluster != "" {
		name = string(o.Cluster)
	}
	var p *config.Profile
	if name != "" {
		p, err = pm.GetProfile(name)
	} else {
		p, err = pm.GetCurrentProfile()
	}
	if err != nil {
		return nil, err
	}

	if o.Cluster != "" && o.Cluster != p.Cluster {
		if err := p.Set("cluster", string(o.Cluster)); err != nil {
			return nil, err
		}
	}
	if o.RPC != "" {
		if err := p.Set("rpc", o.RPC); err != nil {
			return nil, err
		}
	}
	if o.Keypair != "" {
		p.KeypairPath = o.Keypair
	}
	if o.Listen != "" {
		p.HTTP.Listen = o.Listen
	}
	return p, p.Validate()
}

// ProvideLogConfig profile 中的日志配置
func ProvideLogConfig(p *config.Profile) *logconfig.Config {
	return logconfig.New(p.Log)
}

// ProvideConnection 按 profile 端点创建带故障转移的连接
func ProvideConnection(p *config.Profile, logger log.Logger) (transport.Connection, error) {
	return transport.NewFallbackConnection(p.ClientConfig(), logger)
}

// loadKeypair keystore 存在时优先，其次 keygen 文件，最后是 solana CLI 默认路径
func loadKeypair(p *config.Profile, password PasswordFunc) (*wallet.KeypairSigner, error) {
	if p.KeystorePath != "" {
		if _, err := os.Stat(p.KeystorePath); err == nil {
			if password == nil {
				return nil, fmt.Errorf("keystore %s requires a password", p.KeystorePath)
			}
			pw, err := password(fmt.Sprintf("Password for %s", filepath.Base(p.KeystorePath)))
			if err != nil {
				return nil, err
			}
			return wallet.NewKeypairSignerFromKeystore(p.KeystorePath, pw)
		}
	}

	path := p.KeypairPath
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, ErrNoKeypair
		}
		path = filepath.Join(home, ".config", "solana", "id.json")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w (%s)", ErrNoKeypair, path)
	}
	return wallet.NewKeypairSignerFromFile(path)
}

// ProvideSigner 按签名模式包装密钥
func ProvideSigner(p *config.Profile, o Options, logger log.Logger) (wallet.Signer, error) {
	inner, err := loadKeypair(p, o.Password)
	if err != nil {
		return nil, err
	}
	if o.NoPrompt {
		return wallet.NewRawKeySigner(inner, p.AllowRawKeyExport, logger)
	}
	if p.SignerMode == config.SignerModeKeypair {
		return inner, nil
	}
	return wallet.NewPromptSigner(inner), nil
}

// ProvidePrograms 只注册 profile 中配置了 ID 的程序
func ProvidePrograms(p *config.Profile, conn transport.Connection) (*program.Registry, error) {
	ftID, nftID, err := p.ProgramIDs()
	if err != nil {
		return nil, err
	}
	var clients []program.Client
	if !ftID.IsZero() {
		c, err := program.NewAnchorClient(program.Fungible, ftID, conn)
		if err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	if !nftID.IsZero() {
		c, err := program.NewAnchorClient(program.NonFungible, nftID, conn)
		if err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return program.NewRegistry(clients...), nil
}

// ProvideMetadataCache 元数据缓存
func ProvideMetadataCache(p *config.Profile, logger log.Logger) (*memory.Store, error) {
	return memory.New(memoryconfig.New(&memoryconfig.MemoryOptions{
		LifeWindow: p.MetadataCacheLife.Std(),
	}), logger)
}

// ProvideResolver NFT 元数据解析器
func ProvideResolver(p *config.Profile, conn transport.Connection, cache *memory.Store, logger log.Logger) *offering.MetadataResolver {
	return offering.NewMetadataResolver(conn, cache, &http.Client{Timeout: p.Timeout.Std()}, logger)
}

// ProvideOfferings offering 服务
func ProvideOfferings(programs *program.Registry, resolver *offering.MetadataResolver, logger log.Logger) *offering.Service {
	return offering.NewService(programs, resolver, logger)
}

// ProvideTracker 状态投影，状态变化发布到事件总线
func ProvideTracker(programs *program.Registry, bus *event.Bus, logger log.Logger) *status.Tracker {
	return status.NewTracker(programs, bus, logger)
}

// ProvidePolicy 由 profile 得到重试策略
func ProvidePolicy(p *config.Profile) submit.Policy {
	policy := submit.DefaultPolicy()
	if p.Submission.MaxAttempts > 0 {
		policy.MaxAttempts = p.Submission.MaxAttempts
	}
	if d := p.Submission.RetryBackoff.Std(); d > 0 {
		policy.Backoff = d
	}
	return policy
}

// ProvidePipeline 提交流水线
func ProvidePipeline(p *config.Profile, conn transport.Connection, signer wallet.Signer, bus *event.Bus, m *metrics.SubmissionMetrics, logger log.Logger) *submit.Pipeline {
	return submit.NewPipeline(conn, signer, ProvidePolicy(p),
		submit.WithPublisher(bus),
		submit.WithRecorder(m),
		submit.WithLogger(logger),
		submit.WithSkipPreflight(p.Submission.SkipPreflightOrDefault()),
	)
}

// ProvideService 挑战门面
func ProvideService(p *config.Profile, conn transport.Connection, signer wallet.Signer, programs *program.Registry,
	pipeline *submit.Pipeline, tracker *status.Tracker, offerings *offering.Service, logger log.Logger) (*challenge.Service, error) {
	return challenge.NewService(challenge.Deps{
		Conn:      conn,
		Signer:    signer,
		Programs:  programs,
		Pipeline:  pipeline,
		Tracker:   tracker,
		Offerings: offerings,
		Cluster:   p.Cluster,
		Logger:    logger,
	})
}

// ProvideHandler HTTP 处理器
func ProvideHandler(p *config.Profile, svc *challenge.Service, resolver *offering.MetadataResolver, conn transport.Connection, logger log.Logger) *handlers.Handler {
	return handlers.NewHandler(svc, resolver, conn, p.ExplorerURL, logger)
}

// ProvideEventStream /v1/events 事件推送
func ProvideEventStream(bus *event.Bus, logger log.Logger) (*websocket.Server, error) {
	return websocket.NewServer(bus, logger)
}

// ProvideHTTPConfig HTTP 配置
func ProvideHTTPConfig(p *config.Profile) apihttp.Config {
	return apihttp.Config{Listen: p.HTTP.Listen, Metrics: p.HTTP.Metrics}
}

// subscribe 把 offering 缓存失效与状态变化日志挂到事件总线
func subscribe(bus *event.Bus, offerings *offering.Service, logger log.Logger) (func(), error) {
	cancelOfferings, err := offerings.Subscribe(bus)
	if err != nil {
		return nil, err
	}
	cancelStatus, err := bus.SubscribeStatusChanges(func(e event.StatusChange) {
		logger.Infof("status %s: %s -> %s", e.Challenge, e.From, e.To)
	})
	if err != nil {
		cancelOfferings()
		return nil, err
	}
	return func() {
		cancelStatus()
		cancelOfferings()
	}, nil
}
