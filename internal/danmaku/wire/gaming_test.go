package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestDecodeFrame_RoundTrip(t *testing.T) {
	want := Frame{Op: ScFeedPush, Seq: 5, CompressTag: CompressGzip, Body: []byte{9, 9}}
	got, err := DecodeFrame(EncodeFrame(want))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestEncodeFrame_Heartbeat(t *testing.T) {
	raw := EncodeFrame(Frame{Op: CsHeartbeat, Seq: 1, CompressTag: CompressNone})
	f, err := DecodeFrame(raw)
	require.NoError(t, err)
	assert.Equal(t, CsHeartbeat, f.Op)
	assert.Equal(t, CompressNone, f.CompressTag)
}

func encodeScFeedMessage(m ScFeedMessage) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, m.UserID)
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendString(b, m.UserName)
	b = protowire.AppendTag(b, 3, protowire.BytesType)
	b = protowire.AppendString(b, m.Content)
	return b
}

func TestDecodeScFeedPush_RoundTrip(t *testing.T) {
	want := ScFeedPushPayload{Messages: []ScFeedMessage{
		{UserID: "u1", UserName: "Bob", Content: "gg"},
		{UserID: "u2", UserName: "Cid", Content: "nice"},
	}}

	var b []byte
	for _, m := range want.Messages {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendBytes(b, encodeScFeedMessage(m))
	}

	got, err := DecodeScFeedPush(b)
	require.NoError(t, err)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, want.Messages[0], got.Messages[0])
	assert.Equal(t, want.Messages[1], got.Messages[1])
}
