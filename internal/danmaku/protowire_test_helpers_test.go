package danmaku

import "google.golang.org/protobuf/encoding/protowire"

// appendTagBytes and appendTagVarint are small protobuf-encoding helpers
// used only by this package's tests to build fixture frames without
// depending on generated code, mirroring the hand-rolled encoders in
// internal/danmaku/wire.

func appendTagBytes(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendTagVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}
