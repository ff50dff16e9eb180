package handlers

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-nightout/internal/app/models"
)

func dialPresence(t *testing.T, hs *harness) *websocket.Conn {
	t.Helper()
	server := httptest.NewServer(hs.r)
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/presence"
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })

	require.Eventually(t, func() bool { return hs.h.Hub.Clients() == 1 }, time.Second, 5*time.Millisecond)
	return ws
}

func readMessage(t *testing.T, ws *websocket.Conn) WSMessage {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg WSMessage
	require.NoError(t, ws.ReadJSON(&msg))
	return msg
}

func TestPresenceSocketReceivesBroadcast(t *testing.T) {
	hs := newHarness(t)
	ws := dialPresence(t, hs)

	hs.h.Hub.Broadcast([]models.User{{ID: "u2", Name: "Bob"}})

	msg := readMessage(t, ws)
	assert.Equal(t, MessagePresence, msg.Type)
	require.Len(t, msg.Users, 1)
	assert.Equal(t, "u2", msg.Users[0].ID)
}

func TestPresenceSocketReplaysLastUpdate(t *testing.T) {
	hs := newHarness(t)
	hs.h.Hub.Broadcast([]models.User{{ID: "u3"}})

	ws := dialPresence(t, hs)
	msg := readMessage(t, ws)
	require.Len(t, msg.Users, 1)
	assert.Equal(t, "u3", msg.Users[0].ID)
}

func TestPresenceSocketInbound(t *testing.T) {
	hs := newHarness(t)
	ws := dialPresence(t, hs)

	require.NoError(t, ws.WriteJSON(WSMessage{Type: MessageLocation, Latitude: 41.15, Longitude: -8.61}))
	require.Eventually(t, func() bool {
		last, _, ok := hs.h.Location.Last()
		return ok && last.Latitude == 41.15
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, ws.WriteJSON(WSMessage{Type: MessageForeground}))
	require.Eventually(t, func() bool { return hs.trigger.triggered() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, ws.WriteJSON(WSMessage{Type: "bogus"}))
	msg := readMessage(t, ws)
	assert.Equal(t, MessageError, msg.Type)
}

func TestPresenceSocketUnregistersOnClose(t *testing.T) {
	hs := newHarness(t)
	ws := dialPresence(t, hs)

	require.NoError(t, ws.Close())
	assert.Eventually(t, func() bool { return hs.h.Hub.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}
