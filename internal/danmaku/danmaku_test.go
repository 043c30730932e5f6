package danmaku

import (
	"bytes"
	"compress/gzip"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jmylchreest/tvarr/internal/danmaku/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMainstreamProvider_ReceivesChatMessage(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		frame := `{"cmd":"DANMU_MSG","info":[[],"text",["u1","Alice"],[],"hello",5]}`
		_ = conn.WriteMessage(websocket.TextMessage, []byte(frame))
		time.Sleep(50 * time.Millisecond)
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	p := NewMainstreamProvider(wsURL, "room1", testLogger())
	require.NoError(t, p.Start(t.Context()))
	defer p.Stop()

	msg, ok := p.Recv(t.Context())
	require.True(t, ok)
	require.NotNil(t, msg)
	assert.Equal(t, "hello", msg.Content)
	assert.Equal(t, "u1", msg.UserID)
	assert.Equal(t, "Alice", msg.UserName)
}

func TestMainstreamProvider_StopIsIdempotent(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		time.Sleep(100 * time.Millisecond)
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	p := NewMainstreamProvider(wsURL, "room1", testLogger())
	require.NoError(t, p.Start(t.Context()))

	p.Stop()
	p.Stop()
	assert.Equal(t, StateClosed, p.State())
}

func gzipPushFrame(t *testing.T, logID uint64, resp wire.Response) []byte {
	t.Helper()
	var payload []byte
	for _, m := range resp.Messages {
		var mb []byte
		mb = appendTagBytes(mb, 1, []byte(m.Method))
		mb = appendTagBytes(mb, 2, m.Payload)
		payload = appendTagBytes(payload, 1, mb)
	}
	needAck := uint64(0)
	if resp.NeedAck {
		needAck = 1
	}
	payload = appendTagVarint(payload, 2, needAck)

	var gzBuf bytes.Buffer
	gw := gzip.NewWriter(&gzBuf)
	_, err := gw.Write(payload)
	require.NoError(t, err)
	require.NoError(t, gw.Close())

	var frame []byte
	frame = appendTagVarint(frame, 2, logID)
	frame = appendTagBytes(frame, 4, gzBuf.Bytes())
	return frame
}

func TestShortLiveProvider_DecodesGzipProtobufChat(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		var userBytes []byte
		userBytes = appendTagBytes(userBytes, 1, []byte("u9"))
		userBytes = appendTagBytes(userBytes, 2, []byte("Dana"))
		var chatPayload []byte
		chatPayload = appendTagBytes(chatPayload, 1, userBytes)
		chatPayload = appendTagBytes(chatPayload, 2, []byte("gg wp"))

		resp := wire.Response{Messages: []wire.Message{{Method: wire.MethodChat, Payload: chatPayload}}}
		raw := gzipPushFrame(t, 123, resp)
		_ = conn.WriteMessage(websocket.BinaryMessage, raw)
		time.Sleep(50 * time.Millisecond)
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	sign := func(roomID string) (string, error) { return wsURL, nil }
	p := NewShortLiveProvider(sign, "room2", testLogger())
	require.NoError(t, p.Start(t.Context()))
	defer p.Stop()

	msg, ok := p.Recv(t.Context())
	require.True(t, ok)
	require.NotNil(t, msg)
	assert.Equal(t, "gg wp", msg.Content)
	assert.Equal(t, "Dana", msg.UserName)
}

func TestShortLiveProvider_SignFailure(t *testing.T) {
	sign := func(roomID string) (string, error) { return "", assert.AnError }
	p := NewShortLiveProvider(sign, "room2", testLogger())
	err := p.Start(t.Context())
	require.Error(t, err)
	assert.Equal(t, StateFailed, p.State())
}

func TestGamingProvider_DecodesFeedPush(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		// Drain the enter-room frame the provider sends on connect.
		_, _, _ = conn.ReadMessage()

		var msgBytes []byte
		msgBytes = appendTagBytes(msgBytes, 1, []byte("u7"))
		msgBytes = appendTagBytes(msgBytes, 2, []byte("Eve"))
		msgBytes = appendTagBytes(msgBytes, 3, []byte("nice shot"))
		var body []byte
		body = appendTagBytes(body, 1, msgBytes)

		frame := wire.EncodeFrame(wire.Frame{Op: wire.ScFeedPush, Seq: 1, CompressTag: wire.CompressNone, Body: body})
		_ = conn.WriteMessage(websocket.BinaryMessage, frame)
		time.Sleep(50 * time.Millisecond)
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	p := NewGamingProvider(wsURL, "room3", testLogger())
	require.NoError(t, p.Start(t.Context()))
	defer p.Stop()

	msg, ok := p.Recv(t.Context())
	require.True(t, ok)
	require.NotNil(t, msg)
	assert.Equal(t, "nice shot", msg.Content)
	assert.Equal(t, "Eve", msg.UserName)
}
