package submit

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/weisyn/wager/client/core/builder"
)

// Class 失败分类
type Class uint8

const (
	ClassNone Class = iota
	ClassStaleFreshnessToken
	ClassAlreadyJoined
	ClassCapacityFull
	ClassInsufficientCredit
	ClassUserRejected
	ClassUnknown
)

var classNames = map[Class]string{
	ClassNone:                "",
	ClassStaleFreshnessToken: "StaleFreshnessToken",
	ClassAlreadyJoined:       "AlreadyJoined",
	ClassCapacityFull:        "CapacityFull",
	ClassInsufficientCredit:  "InsufficientCredit",
	ClassUserRejected:        "UserRejected",
	ClassUnknown:             "Unknown",
}

func (c Class) String() string {
	if s, ok := classNames[c]; ok {
		return s
	}
	return fmt.Sprintf("Class(%d)", uint8(c))
}

// MarshalText 以名称序列化
func (c Class) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Retryable 只有 blockhash 过期可自动重试
func (c Class) Retryable() bool {
	return c == ClassStaleFreshnessToken
}

// SuccessEquivalent 期望的链上状态已经达成
func (c Class) SuccessEquivalent() bool {
	return c == ClassAlreadyJoined
}

// ClassifiedError 已分类的提交失败
//
// Text 为原始错误文本（含程序日志），只用于日志与诊断，不直接展示给用户。
type ClassifiedError struct {
	Class Class
	Text  string
}

func (e *ClassifiedError) Error() string {
	if e.Text == "" {
		return e.Class.String()
	}
	return e.Class.String() + ": " + e.Text
}

// Is 按分类比较，errors.Is(err, ErrAlreadyJoined) 可用
func (e *ClassifiedError) Is(target error) bool {
	t, ok := target.(*ClassifiedError)
	if !ok {
		return false
	}
	return t.Class == e.Class
}

// 用于 errors.Is 的分类哨兵
var (
	ErrStaleFreshnessToken = &ClassifiedError{Class: ClassStaleFreshnessToken}
	ErrAlreadyJoined       = &ClassifiedError{Class: ClassAlreadyJoined}
	ErrCapacityFull        = &ClassifiedError{Class: ClassCapacityFull}
	ErrInsufficientCredit  = &ClassifiedError{Class: ClassInsufficientCredit}
	ErrUserRejected        = &ClassifiedError{Class: ClassUserRejected}
	ErrUnknown             = &ClassifiedError{Class: ClassUnknown}
)

// Message 面向用户的提示
func (e *ClassifiedError) Message() string {
	switch e.Class {
	case ClassStaleFreshnessToken:
		return "The network did not accept the transaction in time. Please try again."
	case ClassAlreadyJoined:
		return "You have already joined this challenge."
	case ClassCapacityFull:
		return "This challenge is full."
	case ClassInsufficientCredit:
		return "Insufficient balance to pay for this transaction."
	case ClassUserRejected:
		return "Request cancelled."
	default:
		return "Transaction failed. Please try again later."
	}
}

// Result 提交结果
//
// Err 为 nil 时 Signature 有效（Success），否则为 Failure。
type Result struct {
	ID        string
	Kind      builder.Kind
	Challenge solana.PublicKey
	Player    solana.PublicKey
	Signature solana.Signature
	Err       *ClassifiedError
	Attempts  int
}

// Success 广播成功并拿到签名
func (r *Result) Success() bool {
	return r != nil && r.Err == nil
}

// OK 成功或与成功等价（join 的 AlreadyJoined）
func (r *Result) OK() bool {
	if r.Success() {
		return true
	}
	return r != nil && r.Kind == builder.KindJoin && r.Err.Class.SuccessEquivalent()
}

// Cancelled 用户在签名前取消，既不是成功也不算错误
func (r *Result) Cancelled() bool {
	return r != nil && r.Err != nil && r.Err.Class == ClassUserRejected
}

// Class 失败分类，成功时为 ClassNone
func (r *Result) Class() Class {
	if r == nil || r.Err == nil {
		return ClassNone
	}
	return r.Err.Class
}

// Error 返回失败错误，成功时为 nil
func (r *Result) Error() error {
	if r == nil || r.Err == nil {
		return nil
	}
	return r.Err
}

// Message 面向用户的结果描述
func (r *Result) Message() string {
	if r.Success() {
		return fmt.Sprintf("Transaction submitted: %s", r.Signature)
	}
	return r.Err.Message()
}
