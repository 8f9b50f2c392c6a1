package realtime_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dukex/nbctl/pkg/realtime"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newServer starts a websocket server that records the first expected
// client messages and then runs reply.
func newServer(t *testing.T, expected int, reply func(conn net.Conn)) (string, <-chan []realtime.ClientMessage) {
	t.Helper()

	received := make(chan []realtime.ClientMessage, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, _, _, err := ws.UpgradeHTTP(r, w)
		if err != nil {
			return
		}

		defer func() { _ = conn.Close() }()

		messages := make([]realtime.ClientMessage, 0, expected)

		for range expected {
			data, err := wsutil.ReadClientText(conn)
			if err != nil {
				return
			}

			var message realtime.ClientMessage
			if err := json.Unmarshal(data, &message); err != nil {
				return
			}

			messages = append(messages, message)
		}

		received <- messages

		reply(conn)
	}))
	t.Cleanup(srv.Close)

	return "ws://" + strings.TrimPrefix(srv.URL, "http://"), received
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestMonitor_Run(t *testing.T) {
	t.Parallel()

	endpoint, received := newServer(t, 4, func(conn net.Conn) {
		_ = wsutil.WriteServerText(conn, []byte(`{"type":"debug_response"}`))
		_ = wsutil.WriteServerBinary(conn, []byte{0x01, 0x02})
		_ = wsutil.WriteServerText(conn, []byte(`{"type":"ack"}`))
		_ = ws.WriteFrame(conn, ws.NewCloseFrame(ws.NewCloseFrameBody(ws.StatusNormalClosure, "")))
	})

	monitor := realtime.NewMonitor(endpoint, "secret-token", []string{"nb1", "nb2"}, discardLogger())

	var out bytes.Buffer

	err := monitor.Run(context.Background(), &out)
	require.NoError(t, err)

	assert.Equal(t, "{\"type\":\"debug_response\"}\n{\"type\":\"ack\"}\n", out.String())

	messages := <-received
	require.Len(t, messages, 4)

	assert.Equal(t, realtime.TypeAuthenticate, messages[0].Type)
	assert.Equal(t, "secret-token", messages[0].Token)
	assert.Equal(t, realtime.TypeSubscribe, messages[1].Type)
	assert.Equal(t, "nb1", messages[1].NotebookID)
	assert.Equal(t, realtime.TypeSubscribe, messages[2].Type)
	assert.Equal(t, "nb2", messages[2].NotebookID)
	assert.Equal(t, realtime.TypeDebugRequest, messages[3].Type)

	ids := map[string]struct{}{}
	for _, message := range messages {
		require.NotEmpty(t, message.OpID)

		ids[message.OpID] = struct{}{}
	}

	assert.Len(t, ids, 4)
}

func TestMonitor_Run_Cancelled(t *testing.T) {
	t.Parallel()

	done := make(chan struct{})

	endpoint, received := newServer(t, 2, func(net.Conn) {
		<-done
	})
	t.Cleanup(func() { close(done) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	monitor := realtime.NewMonitor(endpoint, "token", nil, discardLogger())

	result := make(chan error, 1)

	go func() {
		result <- monitor.Run(ctx, &bytes.Buffer{})
	}()

	select {
	case <-received:
	case <-time.After(5 * time.Second):
		t.Fatal("server did not receive the handshake messages")
	}

	cancel()

	select {
	case err := <-result:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("monitor did not stop after cancellation")
	}
}

func TestMonitor_Run_ConnectError(t *testing.T) {
	t.Parallel()

	monitor := realtime.NewMonitor("ws://127.0.0.1:1/api/ws", "token", nil, discardLogger())

	err := monitor.Run(context.Background(), &bytes.Buffer{})
	require.ErrorIs(t, err, realtime.ErrConnect)
}
