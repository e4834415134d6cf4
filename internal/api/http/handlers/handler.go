package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/weisyn/wager/client/core/challenge"
	"github.com/weisyn/wager/client/core/offering"
	"github.com/weisyn/wager/client/core/transport"
	"github.com/weisyn/wager/client/pkg/deeplink"
	logimpl "github.com/weisyn/wager/internal/core/infrastructure/log"
	"github.com/weisyn/wager/pkg/interfaces/infrastructure/log"
)

// Handler 挑战客户端 API
type Handler struct {
	svc      *challenge.Service
	resolver *offering.MetadataResolver
	conn     transport.Connection
	explorer string
	logger   log.Logger
}

// NewHandler 创建处理器；resolver 为 nil 时元数据接口返回 404
func NewHandler(svc *challenge.Service, resolver *offering.MetadataResolver, conn transport.Connection, explorer string, logger log.Logger) *Handler {
	if logger == nil {
		logger = logimpl.NewNop()
	}
	if explorer == "" {
		explorer = deeplink.DefaultExplorer
	}
	return &Handler{
		svc:      svc,
		resolver: resolver,
		conn:     conn,
		explorer: explorer,
		logger:   logger.With("module", "api"),
	}
}

// RegisterRoutes 注册 /v1 路由与健康检查
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/healthz", h.Health)

	v1 := r.Group("/v1")
	v1.GET("/link", h.ResolveLink)

	challenges := v1.Group("/challenges/:address")
	challenges.GET("", h.ChallengeInfo)
	challenges.GET("/status", h.Status)
	challenges.POST("/status/refresh", h.RefreshStatus)
	challenges.GET("/offerings", h.Offerings)

	v1.GET("/offerings/:mint/metadata", h.Metadata)
	v1.POST("/intents", h.SubmitIntent)

	account := v1.Group("/account")
	account.GET("/balance", h.Balance)
	account.GET("/tokens", h.Tokens)
	account.POST("/airdrop", h.Airdrop)
}
