package transport

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
)

var (
	// ErrAccountNotFound 账户不存在
	ErrAccountNotFound = errors.New("account not found")

	// ErrNoEndpoints 未配置任何 RPC 端点
	ErrNoEndpoints = errors.New("no endpoints configured")
)

// SendError 广播失败
// Message 为节点返回的错误信息，Logs 为附带的程序日志（可能为空）
type SendError struct {
	Code    int
	Message string
	Logs    []string

	cause error
}

func (e *SendError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("send transaction failed (%d): %s", e.Code, e.Message)
	}
	return "send transaction failed: " + e.Message
}

func (e *SendError) Unwrap() error {
	return e.cause
}

// Text 拼接错误信息与程序日志，供错误分类使用
func (e *SendError) Text() string {
	if len(e.Logs) == 0 {
		return e.Message
	}
	return e.Message + "\n" + strings.Join(e.Logs, "\n")
}

// ErrorText 提取错误的完整文本
// *SendError 返回消息加日志，其他错误返回 Error()
func ErrorText(err error) string {
	if err == nil {
		return ""
	}
	var sendErr *SendError
	if errors.As(err, &sendErr) {
		return sendErr.Text()
	}
	return err.Error()
}

// normalizeSendError 将 RPC 层错误统一为 *SendError
func normalizeSendError(err error) error {
	if err == nil {
		return nil
	}
	var sendErr *SendError
	if errors.As(err, &sendErr) {
		return err
	}
	var rpcErr *jsonrpc.RPCError
	if errors.As(err, &rpcErr) {
		return &SendError{
			Code:    rpcErr.Code,
			Message: rpcErr.Message,
			Logs:    extractLogs(rpcErr.Data),
			cause:   err,
		}
	}
	return &SendError{Message: err.Error(), cause: err}
}

// extractLogs 从 RPC 错误的 data 字段提取 logs 数组
func extractLogs(data interface{}) []string {
	m, ok := data.(map[string]interface{})
	if !ok {
		return nil
	}
	raw, ok := m["logs"].([]interface{})
	if !ok {
		return nil
	}
	logs := make([]string, 0, len(raw))
	for _, line := range raw {
		if s, ok := line.(string); ok {
			logs = append(logs, s)
		}
	}
	return logs
}

// normalizeReadError 统一读请求错误
func normalizeReadError(err error) error {
	if errors.Is(err, rpc.ErrNotFound) {
		return ErrAccountNotFound
	}
	return err
}

// isPermanent 确定性错误，换端点也不会改变结果
func isPermanent(err error) bool {
	return errors.Is(err, ErrAccountNotFound)
}
