package submit

import (
	"strings"
	"time"

	"github.com/weisyn/wager/client/core/builder"
)

const (
	DefaultMaxAttempts = 3
	DefaultBackoff     = time.Second
)

// Rule 错误文本匹配规则
type Rule struct {
	Pattern string
	Class   Class
}

// DefaultRules 默认分类规则，按顺序匹配，先命中者生效
func DefaultRules() []Rule {
	return []Rule{
		{Pattern: "Blockhash not found", Class: ClassStaleFreshnessToken},
		{Pattern: "already in use", Class: ClassAlreadyJoined},
		{Pattern: "ChallengeFull", Class: ClassCapacityFull},
		{Pattern: "no record of a prior credit", Class: ClassInsufficientCredit},
		{Pattern: "User rejected the request", Class: ClassUserRejected},
	}
}

// Policy 重试与错误分类策略
type Policy struct {
	Rules []Rule

	// MaxAttempts 广播次数上限（含首次）
	MaxAttempts int

	// Backoff 两次尝试之间的固定等待
	Backoff time.Duration
}

// DefaultPolicy 默认策略：3 次尝试，1s 退避
func DefaultPolicy() Policy {
	return Policy{
		Rules:       DefaultRules(),
		MaxAttempts: DefaultMaxAttempts,
		Backoff:     DefaultBackoff,
	}
}

// WithDefaults 补齐未设置的字段
func (p Policy) WithDefaults() Policy {
	if len(p.Rules) == 0 {
		p.Rules = DefaultRules()
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.Backoff < 0 {
		p.Backoff = 0
	}
	return p
}

// Classify 按规则顺序匹配错误文本，均不命中为 ClassUnknown
func (p Policy) Classify(text string) Class {
	for _, r := range p.Rules {
		if r.Pattern != "" && strings.Contains(text, r.Pattern) {
			return r.Class
		}
	}
	return ClassUnknown
}

// ClassifyFor 按意图类型分类
//
// "already in use" 只对 join 表示已加入；其它意图命中时为 ClassUnknown。
func (p Policy) ClassifyFor(kind builder.Kind, text string) Class {
	class := p.Classify(text)
	if class == ClassAlreadyJoined && kind != builder.KindJoin {
		return ClassUnknown
	}
	return class
}

// ShouldRetry attempt 为刚结束的尝试序号（从 1 开始）
func (p Policy) ShouldRetry(class Class, attempt int) bool {
	return class.Retryable() && attempt < p.MaxAttempts
}
