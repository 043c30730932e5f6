// Package wire decodes the protobuf envelopes the short-video live and
// gaming platforms speak over their danmaku WebSocket, using
// google.golang.org/protobuf/encoding/protowire directly rather than
// generated code — the wire shapes are small, fixed, and stable enough
// that hand-rolled field scanning is the idiomatic match for the rest of
// this module's hand-rolled parsers (HLS playlists, JS-object extraction).
package wire

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// PushFrame is the short-video live platform's outer envelope: every
// inbound frame is a gzip-compressed PushFrame; every outbound frame
// (heartbeat ack) is an uncompressed one.
type PushFrame struct {
	SeqID       uint64
	LogID       uint64
	PayloadType string
	Payload     []byte
}

// DecodePushFrame scans the top-level fields of a PushFrame message:
// 1=seq_id(varint), 2=log_id(varint), 3=payload_type(string), 4=payload(bytes).
func DecodePushFrame(b []byte) (PushFrame, error) {
	var f PushFrame
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return f, fmt.Errorf("decoding PushFrame tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch num {
		case 1:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return f, fmt.Errorf("decoding seq_id: %w", protowire.ParseError(n))
			}
			f.SeqID = v
			b = b[n:]
		case 2:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return f, fmt.Errorf("decoding log_id: %w", protowire.ParseError(n))
			}
			f.LogID = v
			b = b[n:]
		case 3:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return f, fmt.Errorf("decoding payload_type: %w", protowire.ParseError(n))
			}
			f.PayloadType = string(v)
			b = b[n:]
		case 4:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return f, fmt.Errorf("decoding payload: %w", protowire.ParseError(n))
			}
			f.Payload = append([]byte(nil), v...)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return f, fmt.Errorf("skipping unknown field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return f, nil
}

// EncodeAckFrame builds the uncompressed PushFrame{payload_type:"ack",
// log_id} the client replies with when Response.NeedAck is true.
func EncodeAckFrame(logID uint64) []byte {
	var b []byte
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, logID)
	b = protowire.AppendTag(b, 3, protowire.BytesType)
	b = protowire.AppendString(b, "ack")
	return b
}

// Response is the decompressed payload of an inbound PushFrame: zero or
// more Messages, each tagged by the method name the upstream uses to
// discriminate message types (WebcastChatMessage etc.), plus a NeedAck flag.
type Response struct {
	NeedAck  bool
	Messages []Message
}

// Message is one inner frame inside a Response.
type Message struct {
	Method  string
	Payload []byte
}

// DecodeResponse scans 1=messages(repeated embedded Message), 2=need_ack(varint).
func DecodeResponse(b []byte) (Response, error) {
	var r Response
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return r, fmt.Errorf("decoding Response tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch num {
		case 1:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return r, fmt.Errorf("decoding message: %w", protowire.ParseError(n))
			}
			msg, err := decodeMessage(v)
			if err != nil {
				return r, err
			}
			r.Messages = append(r.Messages, msg)
			b = b[n:]
		case 2:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return r, fmt.Errorf("decoding need_ack: %w", protowire.ParseError(n))
			}
			r.NeedAck = v != 0
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return r, fmt.Errorf("skipping unknown field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return r, nil
}

// decodeMessage scans 1=method(string), 2=payload(bytes).
func decodeMessage(b []byte) (Message, error) {
	var m Message
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return m, fmt.Errorf("decoding Message tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch num {
		case 1:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return m, fmt.Errorf("decoding method: %w", protowire.ParseError(n))
			}
			m.Method = string(v)
			b = b[n:]
		case 2:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return m, fmt.Errorf("decoding payload: %w", protowire.ParseError(n))
			}
			m.Payload = append([]byte(nil), v...)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return m, fmt.Errorf("skipping unknown field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return m, nil
}

// Known message method names the Response's inner Messages are keyed by.
const (
	MethodChat   = "WebcastChatMessage"
	MethodGift   = "WebcastGiftMessage"
	MethodLike   = "WebcastLikeMessage"
	MethodMember = "WebcastMemberMessage"
)

// ChatPayload is the subset of a WebcastChatMessage this module persists.
type ChatPayload struct {
	UserID   string
	UserName string
	Content  string
}

// DecodeChatPayload scans 1=user(embedded{1=id,2=nickname}), 2=content(string).
func DecodeChatPayload(b []byte) (ChatPayload, error) {
	var c ChatPayload
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return c, fmt.Errorf("decoding chat tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch num {
		case 1:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return c, fmt.Errorf("decoding user: %w", protowire.ParseError(n))
			}
			uid, name, err := decodeUser(v)
			if err != nil {
				return c, err
			}
			c.UserID, c.UserName = uid, name
			b = b[n:]
		case 2:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return c, fmt.Errorf("decoding content: %w", protowire.ParseError(n))
			}
			c.Content = string(v)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return c, fmt.Errorf("skipping unknown field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return c, nil
}

func decodeUser(b []byte) (id, name string, err error) {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return "", "", fmt.Errorf("decoding User tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch num {
		case 1:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return "", "", fmt.Errorf("decoding user id: %w", protowire.ParseError(n))
			}
			id = string(v)
			b = b[n:]
		case 2:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return "", "", fmt.Errorf("decoding nickname: %w", protowire.ParseError(n))
			}
			name = string(v)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return "", "", fmt.Errorf("skipping unknown field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return id, name, nil
}
