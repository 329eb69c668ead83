package ws

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/confbridge/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/confbridge/internal/shared/types"
)

func startHub(t *testing.T) (*Hub, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub := NewHub(nil).WithMetrics(monitoring.NewMetrics(prometheus.NewRegistry()))
	r := gin.New()
	r.GET("/events", hub.HandleConnection)

	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/events"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestHelloAndEventFanOut(t *testing.T) {
	hub, url := startHub(t)

	a := dial(t, url)
	b := dial(t, url)
	helloA := readMessage(t, a)
	helloB := readMessage(t, b)
	assert.Equal(t, "hello", helloA.Type)
	assert.NotEqual(t, helloA.ClientID, helloB.ClientID)

	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 5*time.Millisecond)

	hub.Publish(types.NewParticipantEvent(3, types.ParticipantJoined, "Alice"))

	for _, conn := range []*websocket.Conn{a, b} {
		msg := readMessage(t, conn)
		require.Equal(t, "event", msg.Type)
		require.NotNil(t, msg.Event)
		assert.Equal(t, types.EventParticipant, msg.Event.Type)
		assert.Equal(t, types.ParticipantJoined, msg.Event.Action)
		assert.Equal(t, "Alice", msg.Event.Name)
		assert.Equal(t, uint64(3), msg.Event.Generation)
	}
}

func TestInitEventCarriesStatus(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, url)
	readMessage(t, conn)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	hub.Publish(types.NewInitEvent(0, false))

	msg := readMessage(t, conn)
	require.NotNil(t, msg.Event)
	require.NotNil(t, msg.Event.Status)
	assert.False(t, *msg.Event.Status)
}

func TestPingPong(t *testing.T) {
	_, url := startHub(t)
	conn := dial(t, url)
	readMessage(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)))
	assert.Equal(t, "pong", readMessage(t, conn).Type)
}

func TestClientRemovedOnDisconnect(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, url)
	readMessage(t, conn)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestPublishWithoutClients(t *testing.T) {
	hub := NewHub(nil)
	hub.Publish(types.NewConnectedEvent(1))
	assert.Zero(t, hub.ClientCount())
}
