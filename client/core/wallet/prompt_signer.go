package wallet

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/gagliardetto/solana-go"
	"github.com/manifoldco/promptui"
	"golang.org/x/term"
)

// ConfirmFunc 展示 label 并等待用户确认，拒绝时返回非 nil 错误
type ConfirmFunc func(label string) error

// PromptSigner 交互确认签名器
// 每次签名前向用户展示交易摘要，拒绝或中断统一映射为 ErrUserRejected
type PromptSigner struct {
	inner   Signer
	confirm ConfirmFunc
}

// NewPromptSigner 包装 inner，使用终端确认
func NewPromptSigner(inner Signer) *PromptSigner {
	return &PromptSigner{inner: inner, confirm: terminalConfirm}
}

// NewPromptSignerWithConfirm 使用自定义确认函数
func NewPromptSignerWithConfirm(inner Signer, confirm ConfirmFunc) *PromptSigner {
	return &PromptSigner{inner: inner, confirm: confirm}
}

// Sign 确认后签名
func (s *PromptSigner) Sign(ctx context.Context, tx *solana.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	label := approvalLabel(ctx, tx, s.inner.ActiveAccount())
	if err := s.confirm(label); err != nil {
		if errors.Is(err, ErrPromptUnavailable) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrUserRejected, err)
	}
	return s.inner.Sign(ctx, tx)
}

// ActiveAccount 当前账户地址
func (s *PromptSigner) ActiveAccount() solana.PublicKey {
	return s.inner.ActiveAccount()
}

// Type 返回签名器类型
func (s *PromptSigner) Type() SignerType {
	return SignerTypePrompt
}

func approvalLabel(ctx context.Context, tx *solana.Transaction, account solana.PublicKey) string {
	summary := SummaryFrom(ctx)
	if summary == "" {
		summary = "Sign transaction"
	}
	instructions := 0
	if tx != nil {
		instructions = len(tx.Message.Instructions)
	}
	return fmt.Sprintf("%s (%d instruction(s), signer %s). Approve", summary, instructions, account)
}

// terminalConfirm promptui 确认框
func terminalConfirm(label string) error {
	// promptui 从 stdin 读取，被重定向时无法交互
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return ErrPromptUnavailable
	}
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
	}
	_, err := prompt.Run()
	switch {
	case err == nil:
		return nil
	case errors.Is(err, promptui.ErrInterrupt), errors.Is(err, promptui.ErrEOF), errors.Is(err, promptui.ErrAbort):
		return err
	default:
		return fmt.Errorf("approval prompt failed: %w", err)
	}
}

var _ Signer = (*PromptSigner)(nil)
