// Package types HTTP API 的响应结构
package types

import (
	"time"
)

// ProblemDetails 错误响应（RFC7807 + 扩展字段）
type ProblemDetails struct {
	Type   string `json:"type,omitempty"`
	Title  string `json:"title,omitempty"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`

	Code        string                 `json:"code"`
	UserMessage string                 `json:"userMessage"`
	Details     map[string]interface{} `json:"details,omitempty"`
	RequestID   string                 `json:"requestId,omitempty"`
	Timestamp   string                 `json:"timestamp"`
}

// Error 实现 error 接口
func (p *ProblemDetails) Error() string {
	if p.Detail != "" {
		return p.Detail
	}
	return p.UserMessage
}

// NewProblem 创建错误响应
func NewProblem(status int, code, userMessage, detail string) *ProblemDetails {
	return &ProblemDetails{
		Status:      status,
		Code:        code,
		UserMessage: userMessage,
		Detail:      detail,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
}

// WithDetail 附加一项详情
func (p *ProblemDetails) WithDetail(key string, value interface{}) *ProblemDetails {
	if p.Details == nil {
		p.Details = make(map[string]interface{})
	}
	p.Details[key] = value
	return p
}

// 错误码
const (
	CodeInvalidArgument    = "INVALID_ARGUMENT"
	CodeInvalidLink        = "INVALID_LINK"
	CodeNotFound           = "NOT_FOUND"
	CodeProgramUnavailable = "PROGRAM_NOT_CONFIGURED"
	CodeInFlight           = "SUBMISSION_IN_FLIGHT"
	CodeAirdropUnavailable = "AIRDROP_UNAVAILABLE"
	CodeUpstream           = "UPSTREAM_ERROR"
	CodeInternal           = "INTERNAL"
)

// SuccessResponse 成功响应
type SuccessResponse struct {
	Data      interface{} `json:"data"`
	RequestID string      `json:"requestId,omitempty"`
}
