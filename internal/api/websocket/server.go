// Package websocket 提交结果与玩家状态变化的实时推送
package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/weisyn/wager/client/core/builder"
	"github.com/weisyn/wager/internal/api/http/middleware"
	"github.com/weisyn/wager/internal/api/http/types"
	"github.com/weisyn/wager/internal/core/infrastructure/event"
	logimpl "github.com/weisyn/wager/internal/core/infrastructure/log"
	"github.com/weisyn/wager/pkg/interfaces/infrastructure/log"
)

const (
	// EventsPath 事件流路由
	EventsPath = "/v1/events"

	// 消息类型
	TypeSubmission   = "submission"
	TypeStatusChange = "status_change"

	sendBuffer   = 64
	writeTimeout = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = pongWait * 9 / 10
)

// Message 推送给客户端的一帧
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// SubmissionEvent 提交结束
type SubmissionEvent struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	Challenge   string    `json:"challenge,omitempty"`
	Player      string    `json:"player,omitempty"`
	Success     bool      `json:"success"`
	Class       string    `json:"class,omitempty"`
	Signature   string    `json:"signature,omitempty"`
	Attempts    int       `json:"attempts"`
	CompletedAt time.Time `json:"completed_at"`
}

// StatusChangeEvent 玩家状态变化
type StatusChangeEvent struct {
	Challenge string `json:"challenge"`
	Player    string `json:"player"`
	From      string `json:"from"`
	To        string `json:"to"`
}

// Server 事件流服务
//
// 只在总线上订阅一次，再分发给各连接；慢连接的缓冲写满时丢弃新事件。
type Server struct {
	logger   log.Logger
	upgrader websocket.Upgrader
	cancels  []func()

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

type client struct {
	conn      *websocket.Conn
	send      chan []byte
	challenge solana.PublicKey // 零值表示不过滤
	once      sync.Once
	done      chan struct{}
}

func (c *client) close() {
	c.once.Do(func() { close(c.done) })
}

// NewServer 创建事件流服务并订阅总线；bus 为 nil 时连接可以建立但不会收到事件
func NewServer(bus *event.Bus, logger log.Logger) (*Server, error) {
	if logger == nil {
		logger = logimpl.NewNop()
	}
	s := &Server{
		logger:  logger.With("module", "websocket"),
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			// 服务默认只监听回环地址
			CheckOrigin:     func(*http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	if bus == nil {
		return s, nil
	}

	cancelSubmissions, err := bus.SubscribeSubmissions(s.onSubmission)
	if err != nil {
		return nil, err
	}
	cancelStatus, err := bus.SubscribeStatusChanges(s.onStatusChange)
	if err != nil {
		cancelSubmissions()
		return nil, err
	}
	s.cancels = []func(){cancelSubmissions, cancelStatus}
	return s, nil
}

// RegisterRoutes 注册 GET /v1/events
func (s *Server) RegisterRoutes(r gin.IRouter) {
	r.GET(EventsPath, s.HandleWebSocket)
}

// Clients 当前连接数
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// HandleWebSocket 升级连接并推送事件；?challenge= 只推送该挑战的事件
func (s *Server) HandleWebSocket(c *gin.Context) {
	var filter solana.PublicKey
	if raw := c.Query("challenge"); raw != "" {
		pk, err := builder.ParseAddress(raw)
		if err != nil {
			middleware.WriteProblem(c, types.NewProblem(http.StatusBadRequest, types.CodeInvalidArgument, "请求参数无效。", err.Error()))
			return
		}
		filter = pk
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warnf("websocket upgrade failed: %v", err)
		return
	}
	cl := &client{
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
		challenge: filter,
		done:      make(chan struct{}),
	}
	if !s.add(cl) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"), time.Now().Add(writeTimeout))
		_ = conn.Close()
		return
	}
	s.logger.Infof("event stream connected: remote=%s", conn.RemoteAddr())

	go s.readLoop(cl)
	s.writeLoop(cl)

	s.remove(cl)
	_ = conn.Close()
	s.logger.Infof("event stream closed: remote=%s", conn.RemoteAddr())
}

// readLoop 只处理控制帧，读出错即断开
func (s *Server) readLoop(cl *client) {
	defer cl.close()
	cl.conn.SetReadLimit(512)
	_ = cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.logger.Warnf("event stream read: %v", err)
			}
			return
		}
	}
}

func (s *Server) writeLoop(cl *client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-cl.done:
			_ = cl.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeTimeout))
			return
		case data := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := cl.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.logger.Warnf("event stream write: %v", err)
				return
			}
		case <-ticker.C:
			if err := cl.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}

func (s *Server) add(cl *client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.clients[cl] = struct{}{}
	return true
}

func (s *Server) remove(cl *client) {
	s.mu.Lock()
	delete(s.clients, cl)
	s.mu.Unlock()
	cl.close()
}

func (s *Server) onSubmission(e event.Submission) {
	view := SubmissionEvent{
		ID:          e.ID,
		Kind:        e.Kind,
		Success:     e.Success,
		Class:       e.Class,
		Attempts:    e.Attempts,
		CompletedAt: e.CompletedAt,
	}
	if !e.Challenge.IsZero() {
		view.Challenge = e.Challenge.String()
	}
	if !e.Player.IsZero() {
		view.Player = e.Player.String()
	}
	if e.Success {
		view.Signature = e.Signature.String()
	}
	s.broadcast(e.Challenge, Message{Type: TypeSubmission, Data: view})
}

func (s *Server) onStatusChange(e event.StatusChange) {
	s.broadcast(e.Challenge, Message{Type: TypeStatusChange, Data: StatusChangeEvent{
		Challenge: e.Challenge.String(),
		Player:    e.Player.String(),
		From:      e.From,
		To:        e.To,
	}})
}

// broadcast 在总线回调中执行，不能阻塞
func (s *Server) broadcast(challenge solana.PublicKey, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Errorf("marshal %s event: %v", msg.Type, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for cl := range s.clients {
		if !cl.challenge.IsZero() && cl.challenge != challenge {
			continue
		}
		select {
		case cl.send <- data:
		default:
			s.logger.Warnf("event stream buffer full, dropping %s event: remote=%s", msg.Type, cl.conn.RemoteAddr())
		}
	}
}

// Close 取消总线订阅并断开所有连接
func (s *Server) Close() {
	for _, cancel := range s.cancels {
		cancel()
	}
	s.cancels = nil

	s.mu.Lock()
	s.closed = true
	for cl := range s.clients {
		cl.close()
	}
	s.mu.Unlock()
}
