package wire

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Gaming platform control-stream operation codes.
const (
	CsHeartbeat uint32 = 1
	CsEnterRoom uint32 = 200
	ScFeedPush  uint32 = 310
)

// CompressTag is the gaming platform's own per-frame compression tag.
type CompressTag uint8

const (
	CompressNone CompressTag = 0
	CompressGzip CompressTag = 1
	CompressAES  CompressTag = 2
)

// Frame is the gaming platform's outer envelope: 1=op(varint), 2=seq(varint),
// 3=compress_tag(varint), 4=body(bytes).
type Frame struct {
	Op          uint32
	Seq         uint64
	CompressTag CompressTag
	Body        []byte
}

// DecodeFrame scans a gaming-platform control frame.
func DecodeFrame(b []byte) (Frame, error) {
	var f Frame
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return f, fmt.Errorf("decoding Frame tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch num {
		case 1:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return f, fmt.Errorf("decoding op: %w", protowire.ParseError(n))
			}
			f.Op = uint32(v)
			b = b[n:]
		case 2:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return f, fmt.Errorf("decoding seq: %w", protowire.ParseError(n))
			}
			f.Seq = v
			b = b[n:]
		case 3:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return f, fmt.Errorf("decoding compress_tag: %w", protowire.ParseError(n))
			}
			f.CompressTag = CompressTag(v)
			b = b[n:]
		case 4:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return f, fmt.Errorf("decoding body: %w", protowire.ParseError(n))
			}
			f.Body = append([]byte(nil), v...)
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

// EncodeFrame serializes a gaming-platform control frame, used for
// CsHeartbeat and CsEnterRoom requests.
func EncodeFrame(f Frame) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(f.Op))
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, f.Seq)
	b = protowire.AppendTag(b, 3, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(f.CompressTag))
	if len(f.Body) > 0 {
		b = protowire.AppendTag(b, 4, protowire.BytesType)
		b = protowire.AppendBytes(b, f.Body)
	}
	return b
}

// ScFeedPushPayload is the subset of a ScFeedPush body this module
// persists: 1=messages(repeated embedded{1=user_id,2=user_name,3=content}).
type ScFeedPushPayload struct {
	Messages []ScFeedMessage
}

// ScFeedMessage is one chat entry inside a ScFeedPush payload.
type ScFeedMessage struct {
	UserID   string
	UserName string
	Content  string
}

// DecodeScFeedPush scans a ScFeedPush body.
func DecodeScFeedPush(b []byte) (ScFeedPushPayload, error) {
	var p ScFeedPushPayload
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return p, fmt.Errorf("decoding ScFeedPush tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch num {
		case 1:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return p, fmt.Errorf("decoding message: %w", protowire.ParseError(n))
			}
			msg, err := decodeScFeedMessage(v)
			if err != nil {
				return p, err
			}
			p.Messages = append(p.Messages, msg)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return p, fmt.Errorf("skipping unknown field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return p, nil
}

func decodeScFeedMessage(b []byte) (ScFeedMessage, error) {
	var m ScFeedMessage
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return m, fmt.Errorf("decoding ScFeedMessage tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch num {
		case 1:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return m, fmt.Errorf("decoding user_id: %w", protowire.ParseError(n))
			}
			m.UserID = string(v)
			b = b[n:]
		case 2:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return m, fmt.Errorf("decoding user_name: %w", protowire.ParseError(n))
			}
			m.UserName = string(v)
			b = b[n:]
		case 3:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return m, fmt.Errorf("decoding content: %w", protowire.ParseError(n))
			}
			m.Content = string(v)
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
