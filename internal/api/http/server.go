// Package http 本地 HTTP API
//
// 把挑战门面暴露为 JSON 接口，供浏览器端或脚本调用；默认只监听回环地址。
package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/weisyn/wager/internal/api/http/handlers"
	"github.com/weisyn/wager/internal/api/http/middleware"
	"github.com/weisyn/wager/internal/api/websocket"
	"github.com/weisyn/wager/pkg/interfaces/infrastructure/log"
)

// DefaultListen 默认监听地址
const DefaultListen = "127.0.0.1:8089"

// Config 服务器配置
type Config struct {
	Listen  string
	Metrics bool
}

// Server HTTP服务器
type Server struct {
	cfg        Config
	router     *gin.Engine
	events     *websocket.Server
	httpServer *http.Server
	logger     log.Logger

	listener net.Listener
	done     chan struct{}
}

// NewServer 创建服务器并注册全部路由
// registry 为 nil 时不暴露 /metrics，也不采集请求指标；events 为 nil 时没有 /v1/events。
func NewServer(cfg Config, handler *handlers.Handler, events *websocket.Server, registry *prometheus.Registry, logger log.Logger) (*Server, error) {
	if cfg.Listen == "" {
		cfg.Listen = DefaultListen
	}

	gin.SetMode(gin.ReleaseMode)
	gin.DefaultWriter = io.Discard
	gin.DefaultErrorWriter = io.Discard

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.AccessLog(logger))
	if cfg.Metrics && registry != nil {
		m, err := middleware.NewMetrics(registry)
		if err != nil {
			return nil, fmt.Errorf("register api metrics: %w", err)
		}
		router.Use(m.Middleware())
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})))
	}
	router.Use(middleware.ErrorHandler(logger.GetZapLogger()))
	handler.RegisterRoutes(router)
	if events != nil {
		events.RegisterRoutes(router)
	}

	return &Server{
		cfg:    cfg,
		router: router,
		events: events,
		logger: logger.With("module", "http"),
	}, nil
}

// Handler 返回路由，测试中直接配合 httptest 使用
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr 实际监听地址，启动前为配置值
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.cfg.Listen
}

// Start 监听并在后台提供服务；端口被占用时直接返回错误
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Listen, err)
	}
	s.listener = ln
	s.done = make(chan struct{})
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		defer close(s.done)
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Errorf("HTTP服务器运行失败: %v", err)
		}
	}()

	s.logger.Infof("HTTP服务器已启动: http://%s", ln.Addr())
	return nil
}

// Stop 优雅关闭，最多等待 5 秒
func (s *Server) Stop(ctx context.Context) error {
	// Shutdown 不跟踪已升级的连接
	if s.events != nil {
		s.events.Close()
	}
	if s.httpServer == nil {
		return nil
	}
	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(stopCtx); err != nil {
		s.logger.Errorf("HTTP服务器关闭出错: %v", err)
		return err
	}
	<-s.done
	s.logger.Info("HTTP服务器已关闭")
	return nil
}
