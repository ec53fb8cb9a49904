package relay

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialSwitch(t *testing.T, hub *Hub, switchID string) *websocket.Conn {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.Serve(w, r, switchID)
	}))
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestHub_BroadcastReachesOnlyTheSwitch(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	conn := dialSwitch(t, hub, "switch1")
	other := dialSwitch(t, hub, "switch2")

	require.Eventually(t, func() bool {
		return hub.HasSubscribers("switch1") && hub.HasSubscribers("switch2")
	}, time.Second, 10*time.Millisecond)

	assert.Equal(t, 1, hub.Broadcast("switch1", "4-5000"))

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "4-5000", string(msg))

	_ = other.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err = other.ReadMessage()
	assert.Error(t, err)
}

func TestHub_DisconnectRemovesClient(t *testing.T) {
	hub := NewHub()
	conn := dialSwitch(t, hub, "switch1")

	require.Eventually(t, func() bool {
		return hub.ConnectedCount("switch1") == 1
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())

	assert.Eventually(t, func() bool {
		return !hub.HasSubscribers("switch1")
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, hub.Broadcast("switch1", "4-5000"))
}

func TestHub_BroadcastWithoutDevices(t *testing.T) {
	hub := NewHub()
	assert.Equal(t, 0, hub.Broadcast("nobody", "1-100"))
	assert.False(t, hub.HasSubscribers("nobody"))
}
