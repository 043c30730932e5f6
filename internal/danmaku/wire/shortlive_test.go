package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func encodePushFrame(f PushFrame) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, f.SeqID)
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, f.LogID)
	b = protowire.AppendTag(b, 3, protowire.BytesType)
	b = protowire.AppendString(b, f.PayloadType)
	b = protowire.AppendTag(b, 4, protowire.BytesType)
	b = protowire.AppendBytes(b, f.Payload)
	return b
}

func TestDecodePushFrame_RoundTrip(t *testing.T) {
	want := PushFrame{SeqID: 7, LogID: 99, PayloadType: "msg", Payload: []byte{1, 2, 3}}
	got, err := DecodePushFrame(encodePushFrame(want))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestEncodeAckFrame_DecodesBack(t *testing.T) {
	raw := EncodeAckFrame(42)
	f, err := DecodePushFrame(raw)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), f.LogID)
	assert.Equal(t, "ack", f.PayloadType)
}

func encodeMessage(m Message) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, m.Method)
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendBytes(b, m.Payload)
	return b
}

func encodeResponse(r Response) []byte {
	var b []byte
	for _, m := range r.Messages {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendBytes(b, encodeMessage(m))
	}
	needAck := uint64(0)
	if r.NeedAck {
		needAck = 1
	}
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, needAck)
	return b
}

func TestDecodeResponse_RoundTrip(t *testing.T) {
	want := Response{
		NeedAck: true,
		Messages: []Message{
			{Method: MethodChat, Payload: []byte("chat-payload")},
			{Method: MethodGift, Payload: []byte("gift-payload")},
		},
	}
	got, err := DecodeResponse(encodeResponse(want))
	require.NoError(t, err)
	assert.True(t, got.NeedAck)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, MethodChat, got.Messages[0].Method)
	assert.Equal(t, MethodGift, got.Messages[1].Method)
}

func encodeUser(id, name string) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, id)
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendString(b, name)
	return b
}

func encodeChatPayload(c ChatPayload) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendBytes(b, encodeUser(c.UserID, c.UserName))
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendString(b, c.Content)
	return b
}

func TestDecodeChatPayload_RoundTrip(t *testing.T) {
	want := ChatPayload{UserID: "u1", UserName: "Alice", Content: "hello"}
	got, err := DecodeChatPayload(encodeChatPayload(want))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
