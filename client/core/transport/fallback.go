package transport

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	logiface "github.com/weisyn/wager/pkg/interfaces/infrastructure/log"
)

// ClientConfig 连接配置
type ClientConfig struct {
	// 端点(按优先级排序)
	Endpoints []EndpointConfig `json:"endpoints"`

	// 超时配置
	Timeout       time.Duration `json:"timeout"`
	RetryAttempts int           `json:"retry_attempts"`
	RetryBackoff  time.Duration `json:"retry_backoff"`

	// 健康检查，0 表示不启动后台检查
	HealthCheckInterval time.Duration `json:"health_check_interval"`

	Commitment rpc.CommitmentType `json:"commitment"`
}

// EndpointConfig 端点配置
type EndpointConfig struct {
	Name     string `json:"name"`
	Priority int    `json:"priority"` // 优先级,数字越小越优先
	URL      string `json:"url"`
}

// FallbackConnection 支持故障转移的连接
//
// 读请求在端点间降级重试；SendRawTransaction 只发往当前端点一次，
// 不做任何重试，重试决策由提交流水线根据错误分类做出。
type FallbackConnection struct {
	config    ClientConfig
	conns     []connWithPriority
	current   int
	mu        sync.RWMutex
	logger    logiface.Logger
	closeCh   chan struct{}
	closeOnce sync.Once
}

type connWithPriority struct {
	name      string
	priority  int
	conn      Connection
	healthy   bool
	lastCheck time.Time
}

// NewFallbackConnection 创建支持故障转移的连接
func NewFallbackConnection(config ClientConfig, logger logiface.Logger) (*FallbackConnection, error) {
	conns := make([]Connection, 0, len(config.Endpoints))
	for _, ep := range config.Endpoints {
		if ep.URL == "" {
			continue // 跳过无效端点
		}
		conns = append(conns, NewRPCConnection(ep.URL, config.Timeout, config.Commitment))
	}
	return newFallback(config, conns, logger)
}

// newFallback 以给定连接构造，conns 与 config.Endpoints 中的有效端点一一对应
func newFallback(config ClientConfig, conns []Connection, logger logiface.Logger) (*FallbackConnection, error) {
	if len(config.Endpoints) == 0 || len(conns) == 0 {
		return nil, ErrNoEndpoints
	}

	// 设置默认值
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RetryAttempts == 0 {
		config.RetryAttempts = 3
	}
	if config.RetryBackoff == 0 {
		config.RetryBackoff = 500 * time.Millisecond
	}

	fc := &FallbackConnection{
		config:  config,
		conns:   make([]connWithPriority, 0, len(conns)),
		logger:  logger,
		closeCh: make(chan struct{}),
	}

	valid := make([]EndpointConfig, 0, len(config.Endpoints))
	for _, ep := range config.Endpoints {
		if ep.URL != "" {
			valid = append(valid, ep)
		}
	}
	for i, conn := range conns {
		name, priority := fmt.Sprintf("endpoint-%d", i), i
		if i < len(valid) {
			name, priority = valid[i].Name, valid[i].Priority
		}
		fc.conns = append(fc.conns, connWithPriority{
			name:     name,
			priority: priority,
			conn:     conn,
			healthy:  true, // 初始假设健康
		})
	}

	sort.SliceStable(fc.conns, func(i, j int) bool {
		return fc.conns[i].priority < fc.conns[j].priority
	})

	if config.HealthCheckInterval > 0 {
		go fc.healthCheckLoop()
	}

	return fc, nil
}

// healthCheckLoop 健康检查循环
func (fc *FallbackConnection) healthCheckLoop() {
	ticker := time.NewTicker(fc.config.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			fc.checkAll()
		case <-fc.closeCh:
			return
		}
	}
}

// checkAll 检查所有端点健康状态
func (fc *FallbackConnection) checkAll() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	fc.mu.Lock()
	defer fc.mu.Unlock()

	for i := range fc.conns {
		err := fc.conns[i].conn.Ping(ctx)
		if fc.conns[i].healthy && err != nil && fc.logger != nil {
			fc.logger.Warnf("RPC 端点不可用: name=%s err=%v", fc.conns[i].name, err)
		}
		fc.conns[i].healthy = err == nil
		fc.conns[i].lastCheck = time.Now()
	}
}

// pick 获取当前可用连接及其下标
func (fc *FallbackConnection) pick() (Connection, int) {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	if fc.current < len(fc.conns) && fc.conns[fc.current].healthy {
		return fc.conns[fc.current].conn, fc.current
	}
	for i, c := range fc.conns {
		if c.healthy {
			fc.current = i
			return c.conn, i
		}
	}
	// 所有端点都不健康,返回第一个
	fc.current = 0
	return fc.conns[0].conn, 0
}

func (fc *FallbackConnection) markUnhealthy(idx int) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	if idx < len(fc.conns) {
		fc.conns[idx].healthy = false
	}
}

// tryWithFallback 尝试执行读操作,失败时降级到下一个端点
func (fc *FallbackConnection) tryWithFallback(ctx context.Context, op func(Connection) error) error {
	var lastErr error

	for attempt := 0; attempt < fc.config.RetryAttempts; attempt++ {
		conn, idx := fc.pick()

		err := op(conn)
		if err == nil {
			return nil
		}
		if isPermanent(err) {
			return err
		}
		lastErr = err
		fc.markUnhealthy(idx)

		// 退避重试
		if attempt < fc.config.RetryAttempts-1 {
			select {
			case <-time.After(fc.config.RetryBackoff * time.Duration(attempt+1)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return fmt.Errorf("all endpoints failed: %w", lastErr)
}

// ===== Connection 接口实现 =====

func (fc *FallbackConnection) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	var result solana.Hash
	err := fc.tryWithFallback(ctx, func(c Connection) error {
		var e error
		result, e = c.LatestBlockhash(ctx)
		return e
	})
	return result, err
}

// SendRawTransaction 不降级：只向当前端点广播一次
func (fc *FallbackConnection) SendRawTransaction(ctx context.Context, raw []byte, opts SendOptions) (solana.Signature, error) {
	conn, _ := fc.pick()
	return conn.SendRawTransaction(ctx, raw, opts)
}

func (fc *FallbackConnection) GetBalance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	var result uint64
	err := fc.tryWithFallback(ctx, func(c Connection) error {
		var e error
		result, e = c.GetBalance(ctx, account)
		return e
	})
	return result, err
}

func (fc *FallbackConnection) GetAccountInfo(ctx context.Context, account solana.PublicKey) (*AccountInfo, error) {
	var result *AccountInfo
	err := fc.tryWithFallback(ctx, func(c Connection) error {
		var e error
		result, e = c.GetAccountInfo(ctx, account)
		return e
	})
	return result, err
}

func (fc *FallbackConnection) GetProgramAccounts(ctx context.Context, program solana.PublicKey, filters ...MemcmpFilter) ([]KeyedAccount, error) {
	var result []KeyedAccount
	err := fc.tryWithFallback(ctx, func(c Connection) error {
		var e error
		result, e = c.GetProgramAccounts(ctx, program, filters...)
		return e
	})
	return result, err
}

func (fc *FallbackConnection) GetTokenAccountsByOwner(ctx context.Context, owner solana.PublicKey) ([]TokenAccount, error) {
	var result []TokenAccount
	err := fc.tryWithFallback(ctx, func(c Connection) error {
		var e error
		result, e = c.GetTokenAccountsByOwner(ctx, owner)
		return e
	})
	return result, err
}

// RequestAirdrop 同样不降级，避免重复申请
func (fc *FallbackConnection) RequestAirdrop(ctx context.Context, account solana.PublicKey, lamports uint64) (solana.Signature, error) {
	conn, _ := fc.pick()
	return conn.RequestAirdrop(ctx, account, lamports)
}

// Ping 任一端点可用即视为健康
func (fc *FallbackConnection) Ping(ctx context.Context) error {
	return fc.tryWithFallback(ctx, func(c Connection) error {
		return c.Ping(ctx)
	})
}

// Close 停止健康检查并关闭所有端点
func (fc *FallbackConnection) Close() error {
	var firstErr error
	fc.closeOnce.Do(func() {
		close(fc.closeCh)
		for _, c := range fc.conns {
			if err := c.conn.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	})
	return firstErr
}

// EndpointStatus 端点状态快照
type EndpointStatus struct {
	Name      string    `json:"name"`
	Priority  int       `json:"priority"`
	Healthy   bool      `json:"healthy"`
	LastCheck time.Time `json:"last_check"`
}

// Status 返回各端点状态
func (fc *FallbackConnection) Status() []EndpointStatus {
	fc.mu.RLock()
	defer fc.mu.RUnlock()

	out := make([]EndpointStatus, 0, len(fc.conns))
	for _, c := range fc.conns {
		out = append(out, EndpointStatus{
			Name:      c.name,
			Priority:  c.priority,
			Healthy:   c.healthy,
			LastCheck: c.lastCheck,
		})
	}
	return out
}

var _ Connection = (*FallbackConnection)(nil)
