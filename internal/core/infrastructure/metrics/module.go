package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/fx"
)

// Module 返回 metrics 模块的 fx.Option
//
// 提供：
// - *prometheus.Registry: 进程级注册表（HTTP /metrics 暴露）
// - *SubmissionMetrics: 提交指标
func Module() fx.Option {
	return fx.Module("metrics",
		fx.Provide(
			NewRegistry,
			func(reg *prometheus.Registry) (*SubmissionMetrics, error) {
				return NewSubmissionMetrics(reg)
			},
		),
	)
}

// NewRegistry 创建注册表，附带 Go 运行时与进程采集器
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}
