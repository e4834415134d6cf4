// Package submit 交易提交流水线：blockhash → 签名 → 广播 → 分类 → 有界重试
package submit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"

	"github.com/weisyn/wager/client/core/builder"
	"github.com/weisyn/wager/client/core/transport"
	"github.com/weisyn/wager/client/core/wallet"
	"github.com/weisyn/wager/internal/core/infrastructure/event"
	logimpl "github.com/weisyn/wager/internal/core/infrastructure/log"
	"github.com/weisyn/wager/pkg/interfaces/infrastructure/log"
)

// Publisher 提交结束事件发布者
type Publisher interface {
	PublishSubmission(e event.Submission)
}

// Recorder 提交指标记录者
type Recorder interface {
	ObserveSubmission(kind, class string, success bool, attempts int)
	IncRetry(kind string)
}

// SleepFunc 可取消的等待
type SleepFunc func(ctx context.Context, d time.Duration) error

// Pipeline 提交流水线
type Pipeline struct {
	conn          transport.Connection
	signer        wallet.Signer
	policy        Policy
	skipPreflight bool

	publisher Publisher
	recorder  Recorder
	logger    log.Logger
	sleep     SleepFunc
	newID     func() string
}

// Option 流水线选项
type Option func(*Pipeline)

// WithPublisher 设置事件发布者
func WithPublisher(p Publisher) Option {
	return func(pl *Pipeline) { pl.publisher = p }
}

// WithRecorder 设置指标记录者
func WithRecorder(r Recorder) Option {
	return func(pl *Pipeline) { pl.recorder = r }
}

// WithLogger 设置日志
func WithLogger(l log.Logger) Option {
	return func(pl *Pipeline) {
		if l != nil {
			pl.logger = l
		}
	}
}

// WithSleep 替换退避等待（测试用）
func WithSleep(s SleepFunc) Option {
	return func(pl *Pipeline) {
		if s != nil {
			pl.sleep = s
		}
	}
}

// WithSkipPreflight 是否跳过预检模拟，默认跳过
func WithSkipPreflight(skip bool) Option {
	return func(pl *Pipeline) { pl.skipPreflight = skip }
}

// NewPipeline 创建提交流水线
func NewPipeline(conn transport.Connection, signer wallet.Signer, policy Policy, opts ...Option) *Pipeline {
	p := &Pipeline{
		conn:          conn,
		signer:        signer,
		policy:        policy.WithDefaults(),
		skipPreflight: true,
		logger:        logimpl.NewNop(),
		sleep:         sleepContext,
		newID:         func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("module", "submit")
	return p
}

// Policy 当前策略
func (p *Pipeline) Policy() Policy {
	return p.policy
}

// Signer 当前签名器
func (p *Pipeline) Signer() wallet.Signer {
	return p.signer
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Submit 提交交易，返回最终结果
//
// 任何失败都以分类后的 Failure 返回，不会向调用方抛出原始错误。
// 每次尝试重新获取 blockhash 并重新签名；带外部签名的交易（PreserveBlockhash）
// 只广播一次，blockhash 过期不重试。
func (p *Pipeline) Submit(ctx context.Context, utx *builder.UnsignedTx) *Result {
	result := &Result{ID: p.newID()}
	if utx != nil {
		result.Kind = utx.Kind
		result.Challenge = utx.Challenge
	}
	if p.signer != nil {
		result.Player = p.signer.ActiveAccount()
	}
	logger := p.logger.With("submission_id", result.ID, "kind", string(result.Kind))

	if utx == nil || utx.Tx == nil {
		result.Err = &ClassifiedError{Class: ClassUnknown, Text: "nil transaction"}
		p.finish(utx, result, logger)
		return result
	}

	for attempt := 1; ; attempt++ {
		result.Attempts = attempt

		sig, err := p.attempt(ctx, utx, logger.With("attempt", attempt))
		if err == nil {
			result.Signature = sig
			result.Err = nil
			logger.Infof("submission succeeded: attempt=%d signature=%s", attempt, sig)
			break
		}

		result.Err = p.classify(result.Kind, err)
		logger.With("attempt", attempt, "class", result.Err.Class.String()).
			Warnf("submission attempt failed: %s", result.Err.Text)

		if utx.PreserveBlockhash || !p.policy.ShouldRetry(result.Err.Class, attempt) {
			break
		}
		if p.recorder != nil {
			p.recorder.IncRetry(string(utx.Kind))
		}
		if err := p.sleep(ctx, p.policy.Backoff); err != nil {
			result.Err = &ClassifiedError{Class: ClassUnknown, Text: err.Error()}
			break
		}
	}

	p.finish(utx, result, logger)
	return result
}

// attempt 执行一轮：blockhash → 签名 → 广播
func (p *Pipeline) attempt(ctx context.Context, utx *builder.UnsignedTx, logger log.Logger) (solana.Signature, error) {
	if err := ctx.Err(); err != nil {
		return solana.Signature{}, err
	}
	tx := utx.Tx

	if !utx.PreserveBlockhash {
		hash, err := p.conn.LatestBlockhash(ctx)
		if err != nil {
			return solana.Signature{}, fmt.Errorf("fetch blockhash: %w", err)
		}
		tx.Message.RecentBlockhash = hash
		tx.Signatures = nil
		logger.Debugf("attached blockhash %s", hash)
	}

	if p.signer == nil {
		return solana.Signature{}, errors.New("no signer configured")
	}
	if err := p.signer.Sign(wallet.WithSummary(ctx, utx.Summary), tx); err != nil {
		return solana.Signature{}, err
	}

	raw, err := tx.MarshalBinary()
	if err != nil {
		return solana.Signature{}, fmt.Errorf("serialize transaction: %w", err)
	}
	return p.conn.SendRawTransaction(ctx, raw, transport.SendOptions{SkipPreflight: p.skipPreflight})
}

func (p *Pipeline) classify(kind builder.Kind, err error) *ClassifiedError {
	text := transport.ErrorText(err)
	if errors.Is(err, wallet.ErrUserRejected) {
		return &ClassifiedError{Class: ClassUserRejected, Text: text}
	}
	return &ClassifiedError{Class: p.policy.ClassifyFor(kind, text), Text: text}
}

func (p *Pipeline) finish(utx *builder.UnsignedTx, result *Result, logger log.Logger) {
	class := result.Class().String()
	if result.Err != nil {
		logger.With("class", class, "attempts", result.Attempts).Infof("submission finished: %s", result.Err.Message())
	}
	if p.recorder != nil {
		p.recorder.ObserveSubmission(string(result.Kind), class, result.Success(), result.Attempts)
	}
	if p.publisher != nil {
		e := event.Submission{
			ID:          result.ID,
			Kind:        string(result.Kind),
			Challenge:   result.Challenge,
			Player:      result.Player,
			Success:     result.Success(),
			Class:       class,
			Signature:   result.Signature,
			Attempts:    result.Attempts,
			CompletedAt: time.Now(),
		}
		if utx != nil {
			e.AffectsOfferings = utx.AffectsOfferings
		}
		p.publisher.PublishSubmission(e)
	}
}
