// Package testhelpers provides common utilities for exercising the room chat
// server over real websocket connections in tests.
package testhelpers

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/Tyrowin/roomchat/internal/protocol"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// DefaultOrigin is the origin the default server configuration allows.
const DefaultOrigin = "http://localhost:8080"

// WebSocketURL converts an httptest server URL into its /ws endpoint.
func WebSocketURL(httpURL string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http") + "/ws"
}

// MakeRequest creates and executes an HTTP request, returning the response.
func MakeRequest(t *testing.T, method, url string) *http.Response {
	t.Helper()

	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	req, err := http.NewRequest(method, url, http.NoBody)
	require.NoError(t, err, "create request")

	resp, err := client.Do(req)
	require.NoError(t, err, "make request")
	return resp
}

// ConnectWebSocket dials url with the given Origin header.
func ConnectWebSocket(url, origin string) (*websocket.Conn, *http.Response, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	headers := http.Header{}
	if origin != "" {
		headers.Set("Origin", origin)
	}

	conn, resp, err := dialer.Dial(url, headers)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return conn, resp, err
}

// MustConnect dials url with DefaultOrigin and registers cleanup.
func MustConnect(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := ConnectWebSocket(url, DefaultOrigin)
	require.NoError(t, err, "dial %s", url)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// SendEvent writes one event frame.
func SendEvent(conn *websocket.Conn, event string, args ...any) error {
	frame, err := protocol.Encode(event, args...)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, frame)
}

// ReceiveEvent reads the next event frame, waiting at most timeout.
func ReceiveEvent(conn *websocket.Conn, timeout time.Duration) (protocol.Frame, error) {
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return protocol.Frame{}, err
	}
	_, raw, err := conn.ReadMessage()
	if err != nil {
		return protocol.Frame{}, err
	}
	return protocol.Decode(raw)
}

// ExpectEvent reads the next frame and requires it to be event.
func ExpectEvent(t *testing.T, conn *websocket.Conn, event string) protocol.Frame {
	t.Helper()
	f, err := ReceiveEvent(conn, 2*time.Second)
	require.NoError(t, err, "waiting for %s", event)
	require.Equal(t, event, f.Event)
	return f
}

// ExpectNoEvent requires that nothing arrives within d. The connection is
// unusable for reads afterwards, as gorilla keeps the timeout error sticky.
func ExpectNoEvent(t *testing.T, conn *websocket.Conn, d time.Duration) {
	t.Helper()
	f, err := ReceiveEvent(conn, d)
	require.Error(t, err, "unexpected %s frame", f.Event)
}

// Arg decodes the i-th argument of f into v.
func Arg(t *testing.T, f protocol.Frame, i int, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(f.Raw(i), v))
}

// CloseWebSocket gracefully closes a WebSocket connection.
func CloseWebSocket(conn *websocket.Conn) error {
	err := conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		return err
	}
	return conn.Close()
}
