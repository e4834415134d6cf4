package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/wager/internal/api/websocket"
)

func readMessage(t *testing.T, conn *gorilla.Conn) websocket.Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg websocket.Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestEventStreamPushesSubmissionAndStatus(t *testing.T) {
	e := newEnv(t)
	ts := httptest.NewServer(e.server.Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + websocket.EventsPath
	conn, _, err := gorilla.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return e.events.Clients() == 1 }, 5*time.Second, 10*time.Millisecond)

	body, err := json.Marshal(map[string]string{"kind": "join", "type": "FT", "challenge": challengeAddr})
	require.NoError(t, err)
	resp, err := http.Post(ts.URL+"/v1/intents", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	msg := readMessage(t, conn)
	require.Equal(t, websocket.TypeSubmission, msg.Type)
	sub := msg.Data.(map[string]interface{})
	assert.Equal(t, "join", sub["kind"])
	assert.Equal(t, challengeAddr, sub["challenge"])
	assert.Equal(t, true, sub["success"])
	assert.NotEmpty(t, sub["signature"])

	msg = readMessage(t, conn)
	require.Equal(t, websocket.TypeStatusChange, msg.Type)
	change := msg.Data.(map[string]interface{})
	assert.Equal(t, challengeAddr, change["challenge"])
	assert.Equal(t, "NOT_IN_GAME", change["from"])
	assert.Equal(t, "JOINED", change["to"])
}

func TestEventStreamRejectsBadFilter(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, http.MethodGet, websocket.EventsPath+"?challenge=xyz", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_ARGUMENT", decode(t, rec)["code"])
}
