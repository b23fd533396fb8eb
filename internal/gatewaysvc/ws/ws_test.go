package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/avvvet/timeline-services/internal/comm"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWsBroadcastsEvents(t *testing.T) {
	hub := NewWs()
	upgrader := websocket.Upgrader{}
	stored := make(chan struct{}, 2)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.StoreConnection(r.URL.Query().Get("id"), conn)
		stored <- struct{}{}
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	var clients []*websocket.Conn
	for _, id := range []string{"a", "b"} {
		c, _, err := websocket.DefaultDialer.Dial(wsURL+"?id="+id, nil)
		require.NoError(t, err)
		defer c.Close()
		clients = append(clients, c)
		<-stored
	}
	assert.Equal(t, 2, hub.Count())

	event := comm.NewRecordEvent(comm.EntityCard, comm.ActionCreated, "cards", map[string]any{"uuid": 1})
	hub.Notify(event)

	for _, c := range clients {
		c.SetReadDeadline(time.Now().Add(2 * time.Second))
		var msg comm.WSMessage
		require.NoError(t, c.ReadJSON(&msg))
		assert.Equal(t, "record-event", msg.Type)

		var got comm.RecordEvent
		require.NoError(t, json.Unmarshal(msg.Data, &got))
		assert.Equal(t, event.ID, got.ID)
		assert.Equal(t, "card.created", got.Type)
	}

	_, ok := hub.GetConnection("a")
	assert.True(t, ok)
	hub.HandleDisconnect("a")
	_, ok = hub.GetConnection("a")
	assert.False(t, ok)
	assert.Equal(t, 1, hub.Count())
}

func TestWsNotifyDoesNotWaitOnStalledClient(t *testing.T) {
	hub := NewWs()
	upgrader := websocket.Upgrader{}
	stored := make(chan struct{}, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.StoreConnection("stalled", conn)
		stored <- struct{}{}
	}))
	defer srv.Close()

	// the client never reads, so its socket buffers fill up
	c, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer c.Close()
	<-stored

	big := strings.Repeat("x", 256<<10)
	start := time.Now()
	for i := 0; i < 200; i++ {
		hub.Notify(comm.NewRecordEvent(comm.EntityCard, comm.ActionUpdated, "cards", map[string]any{"blob": big}))
	}
	assert.Less(t, time.Since(start), 2*time.Second)

	assert.Eventually(t, func() bool { return hub.Count() == 0 }, 10*time.Second, 50*time.Millisecond)
}
