package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"anonchat/backend/internal/models"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recvFrame struct {
	Type string                 `json:"type"`
	Data map[string]interface{} `json:"data"`
}

func dialWS(t *testing.T, server *httptest.Server, source string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	header := http.Header{"X-Forwarded-For": []string{source}}
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) recvFrame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame recvFrame
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func writeFrame(t *testing.T, conn *websocket.Conn, eventType string, data interface{}) {
	t.Helper()
	payload, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(models.Frame{Type: eventType, Data: payload}))
}

func TestWebSocketHappyPair(t *testing.T) {
	f := newFixture()
	server := httptest.NewServer(f.router)
	defer server.Close()

	connA := dialWS(t, server, "1.1.1.1")
	defer connA.Close()
	connB := dialWS(t, server, "2.2.2.2")
	defer connB.Close()

	writeFrame(t, connA, models.EvJoinQueue, struct{}{})
	assert.Equal(t, models.EvQueueJoined, readFrame(t, connA).Type)

	writeFrame(t, connB, models.EvJoinQueue, struct{}{})
	assert.Equal(t, models.EvQueueJoined, readFrame(t, connB).Type)

	foundA := readFrame(t, connA)
	foundB := readFrame(t, connB)
	assert.Equal(t, models.EvPartnerFound, foundA.Type)
	assert.Equal(t, models.EvPartnerFound, foundB.Type)
	assert.Equal(t, foundA.Data["roomId"], foundB.Data["roomId"])
	assert.NotEmpty(t, foundA.Data["roomId"])

	writeFrame(t, connA, models.EvSendMessage, models.SendMessagePayload{Content: "hello"})
	received := readFrame(t, connB)
	assert.Equal(t, models.EvMessageReceived, received.Type)
	message := received.Data["message"].(map[string]interface{})
	assert.Equal(t, "hello", message["content"])
	assert.Equal(t, "user", message["type"])

	writeFrame(t, connA, models.EvDisconnectChat, struct{}{})
	assert.Equal(t, models.EvPartnerDisconnected, readFrame(t, connB).Type)
}

func TestWebSocketBannedAdmit(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.store.CreateBan(&models.BanRecord{IP: "6.6.6.6", Reason: "spam"}))
	server := httptest.NewServer(f.router)
	defer server.Close()

	conn := dialWS(t, server, "6.6.6.6")
	defer conn.Close()

	// Exactly one banned frame, then the channel closes.
	assert.Equal(t, models.EvBanned, readFrame(t, conn).Type)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)

	assert.Equal(t, 0, f.h.Reg.SessionCount(), "no session is registered for a banned source")
}

func TestWebSocketConnectionRateLimit(t *testing.T) {
	f := newFixture()
	server := httptest.NewServer(f.router)
	defer server.Close()

	var conns []*websocket.Conn
	defer func() {
		for _, c := range conns {
			c.Close()
		}
	}()
	for i := 0; i < 5; i++ {
		conns = append(conns, dialWS(t, server, "9.9.9.9"))
	}

	sixth := dialWS(t, server, "9.9.9.9")
	defer sixth.Close()
	assert.Equal(t, models.EvRateLimited, readFrame(t, sixth).Type)
}

func TestWebSocketIllegalFrameKeepsConnection(t *testing.T) {
	f := newFixture()
	server := httptest.NewServer(f.router)
	defer server.Close()

	conn := dialWS(t, server, "1.1.1.1")
	defer conn.Close()

	writeFrame(t, conn, models.EvSendMessage, models.SendMessagePayload{Content: "hi"})
	frame := readFrame(t, conn)
	assert.Equal(t, models.EvError, frame.Type)
	assert.Equal(t, "Not connected to a partner", frame.Data["message"])

	// The connection is still usable afterwards.
	writeFrame(t, conn, models.EvJoinQueue, struct{}{})
	assert.Equal(t, models.EvQueueJoined, readFrame(t, conn).Type)
}
