// Package metrics 提交流水线的 Prometheus 指标
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// SubmissionMetrics 提交指标
type SubmissionMetrics struct {
	submissions *prometheus.CounterVec
	attempts    *prometheus.HistogramVec
	retries     *prometheus.CounterVec
}

// NewSubmissionMetrics 创建并注册提交指标
//
// 重复注册同名指标时复用已注册的采集器，便于在测试或多次装配中共用注册表。
func NewSubmissionMetrics(reg prometheus.Registerer) (*SubmissionMetrics, error) {
	m := &SubmissionMetrics{
		submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "wager",
				Subsystem: "submit",
				Name:      "submissions_total",
				Help:      "Completed submissions by intent kind, outcome and classification",
			},
			[]string{"kind", "outcome", "class"},
		),
		attempts: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "wager",
				Subsystem: "submit",
				Name:      "attempts",
				Help:      "Broadcast attempts per submission",
				Buckets:   []float64{1, 2, 3, 4, 5},
			},
			[]string{"kind"},
		),
		retries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "wager",
				Subsystem: "submit",
				Name:      "retries_total",
				Help:      "Retries caused by a stale blockhash",
			},
			[]string{"kind"},
		),
	}

	if reg == nil {
		return m, nil
	}

	var err error
	if m.submissions, err = register(reg, m.submissions); err != nil {
		return nil, err
	}
	if m.attempts, err = register(reg, m.attempts); err != nil {
		return nil, err
	}
	if m.retries, err = register(reg, m.retries); err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// ObserveSubmission 记录一次结束的提交
func (m *SubmissionMetrics) ObserveSubmission(kind, class string, success bool, attempts int) {
	if m == nil {
		return
	}
	outcome := "failure"
	if success {
		outcome = "success"
	}
	m.submissions.WithLabelValues(kind, outcome, class).Inc()
	m.attempts.WithLabelValues(kind).Observe(float64(attempts))
}

// IncRetry 记录一次因 blockhash 过期产生的重试
func (m *SubmissionMetrics) IncRetry(kind string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(kind).Inc()
}
