package websocket

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/wager/internal/core/infrastructure/event"
)

func newStream(t *testing.T) (*Server, *event.Bus, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	bus := event.New(nil)
	s, err := NewServer(bus, nil)
	require.NoError(t, err)

	router := gin.New()
	s.RegisterRoutes(router)
	ts := httptest.NewServer(router)
	t.Cleanup(func() {
		s.Close()
		ts.Close()
	})
	return s, bus, "ws" + strings.TrimPrefix(ts.URL, "http") + EventsPath
}

func dial(t *testing.T, s *Server, url string, want int) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.Eventually(t, func() bool { return s.Clients() == want }, 5*time.Second, 10*time.Millisecond)
	return conn
}

func read(t *testing.T, conn *websocket.Conn, timeout time.Duration) (Message, error) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(timeout)))
	var msg Message
	err := conn.ReadJSON(&msg)
	return msg, err
}

func TestBroadcastRespectsChallengeFilter(t *testing.T) {
	s, bus, url := newStream(t)
	watched := solana.NewWallet().PublicKey()
	other := solana.NewWallet().PublicKey()

	all := dial(t, s, url, 1)
	filtered := dial(t, s, url+"?challenge="+watched.String(), 2)

	bus.PublishStatusChange(event.StatusChange{Challenge: other, Player: other, From: "NOT_IN_GAME", To: "ACCEPTED"})
	bus.PublishStatusChange(event.StatusChange{Challenge: watched, Player: other, From: "NOT_IN_GAME", To: "JOINED"})

	msg, err := read(t, all, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, TypeStatusChange, msg.Type)
	assert.Equal(t, other.String(), msg.Data.(map[string]interface{})["challenge"])
	msg, err = read(t, all, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, watched.String(), msg.Data.(map[string]interface{})["challenge"])

	msg, err = read(t, filtered, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "JOINED", msg.Data.(map[string]interface{})["to"])
	_, err = read(t, filtered, 200*time.Millisecond)
	assert.Error(t, err, "events for other challenges are not delivered")
}

func TestSubmissionFrame(t *testing.T) {
	s, bus, url := newStream(t)
	conn := dial(t, s, url, 1)
	challenge := solana.NewWallet().PublicKey()

	bus.PublishSubmission(event.Submission{ID: "a", Kind: "add_offering", Challenge: challenge, Class: "CapacityFull", Attempts: 1})

	msg, err := read(t, conn, 5*time.Second)
	require.NoError(t, err)
	require.Equal(t, TypeSubmission, msg.Type)
	data := msg.Data.(map[string]interface{})
	assert.Equal(t, "a", data["id"])
	assert.Equal(t, "CapacityFull", data["class"])
	assert.Equal(t, false, data["success"])
	_, hasSig := data["signature"]
	assert.False(t, hasSig, "failed submissions carry no signature")
	_, hasPlayer := data["player"]
	assert.False(t, hasPlayer)
}

func TestCloseDisconnectsClients(t *testing.T) {
	s, bus, url := newStream(t)
	conn := dial(t, s, url, 1)

	s.Close()
	_, err := read(t, conn, 5*time.Second)
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), err.Error())
	require.Eventually(t, func() bool { return s.Clients() == 0 }, 5*time.Second, 10*time.Millisecond)

	assert.False(t, bus.HasSubscribers(event.StatusChanged))
	assert.False(t, bus.HasSubscribers(event.SubmissionCompleted))

	// 关闭后新的连接被拒绝
	late, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer late.Close()
	_, err = read(t, late, 5*time.Second)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "%v", err)
}
