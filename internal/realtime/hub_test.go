package realtime

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyReachesConnectedUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub("")
	go hub.Run(ctx)

	r := gin.New()
	r.GET("/ws", func(c *gin.Context) { hub.Serve(c, 5) })
	srv := httptest.NewServer(r)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Connected(5) == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Notify(6, map[string]string{"titulo": "not for you"})
	hub.Notify(5, map[string]string{"titulo": "OS concluída"})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"titulo":"OS concluída"}`, string(msg))

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Connected(5) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestNotifyWithoutListeners(t *testing.T) {
	var nilHub *Hub
	assert.NotPanics(t, func() { nilHub.Notify(1, "x") })

	hub := NewHub("http://localhost:5173")
	assert.NotPanics(t, func() { hub.Notify(1, map[string]int{"n": 1}) })
	assert.Zero(t, hub.Connected(1))
}
