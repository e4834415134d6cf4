// Package handlers HTTP API 处理器
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"

	"github.com/weisyn/wager/client/core/builder"
	"github.com/weisyn/wager/client/core/challenge"
	"github.com/weisyn/wager/client/core/offering"
	"github.com/weisyn/wager/client/core/program"
	"github.com/weisyn/wager/client/core/transport"
	"github.com/weisyn/wager/client/pkg/deeplink"
	"github.com/weisyn/wager/internal/api/http/middleware"
	"github.com/weisyn/wager/internal/api/http/types"
)

// ok 写入成功响应
func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, types.SuccessResponse{Data: data, RequestID: middleware.GetRequestID(c)})
}

// fail 把领域错误映射为 Problem Details
func fail(c *gin.Context, err error) {
	middleware.WriteProblem(c, problemFor(err))
}

func problemFor(err error) *types.ProblemDetails {
	switch {
	case errors.Is(err, deeplink.ErrInvalidLink):
		return types.NewProblem(http.StatusBadRequest, types.CodeInvalidLink, "链接参数无效。", err.Error())
	case errors.Is(err, builder.ErrInvalidIntent),
		errors.Is(err, builder.ErrInvalidAddress),
		errors.Is(err, builder.ErrInvalidAmount),
		errors.Is(err, builder.ErrNegativeAmount),
		errors.Is(err, builder.ErrNonPositiveAmount):
		return types.NewProblem(http.StatusBadRequest, types.CodeInvalidArgument, "请求参数无效。", err.Error())
	case errors.Is(err, challenge.ErrSubmissionInFlight):
		return types.NewProblem(http.StatusConflict, types.CodeInFlight, "相同的交易正在提交，请稍候。", err.Error())
	case errors.Is(err, challenge.ErrAirdropUnavailable):
		return types.NewProblem(http.StatusBadRequest, types.CodeAirdropUnavailable, "当前网络不支持 airdrop。", err.Error())
	case errors.Is(err, program.ErrProgramNotConfigured):
		return types.NewProblem(http.StatusServiceUnavailable, types.CodeProgramUnavailable, "该挑战类型的程序未配置。", err.Error())
	case errors.Is(err, transport.ErrAccountNotFound),
		errors.Is(err, offering.ErrMetadataNotFound):
		return types.NewProblem(http.StatusNotFound, types.CodeNotFound, "账户不存在。", err.Error())
	default:
		return types.NewProblem(http.StatusBadGateway, types.CodeUpstream, "网络请求失败，请稍后重试。", err.Error())
	}
}

// addressParam 解析路径中的地址参数
func addressParam(c *gin.Context, name string) (solana.PublicKey, bool) {
	pk, err := builder.ParseAddress(c.Param(name))
	if err != nil {
		fail(c, err)
		return solana.PublicKey{}, false
	}
	return pk, true
}

// challengeType 读取 ?type=，缺省为 FT
func challengeType(c *gin.Context) (program.ChallengeType, bool) {
	ct, err := program.ParseChallengeType(c.Query("type"))
	if err != nil {
		fail(c, fmt.Errorf("%w: %v", builder.ErrInvalidIntent, err))
		return "", false
	}
	return ct, true
}

func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes":
		return true
	}
	return false
}
