package http

import (
	"context"

	"go.uber.org/fx"
)

// Module HTTP API 模块
//
// 需要容器中提供 Config、*handlers.Handler、*websocket.Server、*prometheus.Registry 与 log.Logger；
// 服务器随 fx 生命周期启动与关闭。
func Module() fx.Option {
	return fx.Module("http",
		fx.Provide(NewServer),
		fx.Invoke(func(lc fx.Lifecycle, s *Server) {
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error { return s.Start() },
				OnStop:  s.Stop,
			})
		}),
	)
}
