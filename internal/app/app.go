// Package app 组装客户端运行时
//
// CLI 的一次性命令通过 Open 直接构造依赖；serve 通过 NewApp 交给 fx 管理生命周期。
// 两条路径共用 providers.go 中的构造函数。
package app

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/weisyn/wager/client/core/challenge"
	"github.com/weisyn/wager/client/core/config"
	"github.com/weisyn/wager/client/core/offering"
	"github.com/weisyn/wager/client/core/transport"
	"github.com/weisyn/wager/client/core/wallet"
	apihttp "github.com/weisyn/wager/internal/api/http"
	"github.com/weisyn/wager/internal/core/infrastructure/event"
	logimpl "github.com/weisyn/wager/internal/core/infrastructure/log"
	"github.com/weisyn/wager/internal/core/infrastructure/metrics"
	"github.com/weisyn/wager/internal/core/infrastructure/storage/memory"
	"github.com/weisyn/wager/pkg/interfaces/infrastructure/log"
)

// Runtime CLI 命令使用的已组装依赖
type Runtime struct {
	Profile   *config.Profile
	Logger    log.Logger
	Conn      transport.Connection
	Signer    wallet.Signer
	Bus       *event.Bus
	Registry  *prometheus.Registry
	Resolver  *offering.MetadataResolver
	Offerings *offering.Service
	Service   *challenge.Service

	closers []func() error
}

// Open 按选项组装运行时；调用方负责 Close
func Open(o Options) (rt *Runtime, err error) {
	rt = &Runtime{}
	defer func() {
		if err != nil {
			_ = rt.Close()
			rt = nil
		}
	}()

	if rt.Profile, err = ProvideProfile(o); err != nil {
		return
	}
	if rt.Logger, err = logimpl.New(ProvideLogConfig(rt.Profile)); err != nil {
		return
	}
	// stderr 上的 Sync 可能返回 EINVAL，忽略
	rt.closers = append(rt.closers, func() error { _ = rt.Logger.Sync(); return nil })

	if rt.Conn, err = ProvideConnection(rt.Profile, rt.Logger); err != nil {
		return
	}
	rt.closers = append(rt.closers, rt.Conn.Close)

	if rt.Signer, err = ProvideSigner(rt.Profile, o, rt.Logger); err != nil {
		return
	}
	programs, err := ProvidePrograms(rt.Profile, rt.Conn)
	if err != nil {
		return
	}

	cache, err := ProvideMetadataCache(rt.Profile, rt.Logger)
	if err != nil {
		return
	}
	rt.closers = append(rt.closers, cache.Close)

	rt.Bus = event.New(rt.Logger)
	rt.Registry = metrics.NewRegistry()
	sm, err := metrics.NewSubmissionMetrics(rt.Registry)
	if err != nil {
		return
	}

	rt.Resolver = ProvideResolver(rt.Profile, rt.Conn, cache, rt.Logger)
	rt.Offerings = ProvideOfferings(programs, rt.Resolver, rt.Logger)
	tracker := ProvideTracker(programs, rt.Bus, rt.Logger)
	pipeline := ProvidePipeline(rt.Profile, rt.Conn, rt.Signer, rt.Bus, sm, rt.Logger)

	if rt.Service, err = ProvideService(rt.Profile, rt.Conn, rt.Signer, programs, pipeline, tracker, rt.Offerings, rt.Logger); err != nil {
		return
	}

	cancel, err := subscribe(rt.Bus, rt.Offerings, rt.Logger)
	if err != nil {
		return
	}
	rt.closers = append(rt.closers, func() error {
		rt.Bus.WaitAsync()
		cancel()
		return nil
	})
	return rt, nil
}

// Close 按构造的逆序释放资源
func (rt *Runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}

// NewApp 创建 serve 使用的 fx 应用：HTTP API 随生命周期启动与关闭
func NewApp(o Options, extra ...fx.Option) *fx.App {
	opts := []fx.Option{
		fx.NopLogger,
		fx.Supply(o),
		fx.Provide(
			ProvideProfile,
			ProvideLogConfig,
			ProvideConnection,
			ProvideSigner,
			ProvidePrograms,
			ProvideMetadataCache,
			ProvideResolver,
			ProvideOfferings,
			ProvideTracker,
			ProvidePipeline,
			ProvideService,
			ProvideHandler,
			ProvideEventStream,
			ProvideHTTPConfig,
		),
		logimpl.Module(),
		event.Module(),
		metrics.Module(),
		apihttp.Module(),
		fx.Invoke(registerLifecycle),
	}
	return fx.New(append(opts, extra...)...)
}

func registerLifecycle(lc fx.Lifecycle, conn transport.Connection, cache *memory.Store, bus *event.Bus, offerings *offering.Service, logger log.Logger) error {
	cancel, err := subscribe(bus, offerings, logger)
	if err != nil {
		return err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			bus.WaitAsync()
			cancel()
			return errors.Join(cache.Close(), conn.Close())
		},
	})
	return nil
}
