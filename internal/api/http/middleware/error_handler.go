package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/weisyn/wager/internal/api/http/types"
)

// ErrorHandler 把处理器通过 c.Error 留下的错误统一写成 Problem Details
//
// 非 ProblemDetails 的错误一律按 500 处理，原始文本只进日志。
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		var problem *types.ProblemDetails
		if !errors.As(err, &problem) {
			logger.Error("handler returned non-problem error",
				zap.String("path", c.Request.URL.Path),
				zap.Error(err))
			problem = types.NewProblem(http.StatusInternalServerError, types.CodeInternal,
				"服务器内部错误，请稍后重试。", "")
		}
		WriteProblem(c, problem)
	}
}

// WriteProblem 写入 Problem Details 响应并终止处理链
func WriteProblem(c *gin.Context, problem *types.ProblemDetails) {
	if problem.RequestID == "" {
		problem.RequestID = GetRequestID(c)
	}
	c.Header("Content-Type", "application/problem+json")
	c.AbortWithStatusJSON(problem.Status, problem)
}
