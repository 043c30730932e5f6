package extract

import (
	"crypto/md5" //nolint:gosec // required to reproduce the upstream JS signer bit-for-bit
	"encoding/hex"
	"strconv"
	"strings"
)

// gamingSignTable is the 32-byte permutation table the gaming platform's
// player JS uses to scramble the signing key before hashing. Order is
// load-bearing: it mirrors the upstream constant exactly.
var gamingSignTable = [32]byte{
	0x78, 0x02, 0x0a, 0x2a, 0x0b, 0x2d, 0x43, 0x47,
	0x25, 0x0c, 0x23, 0x39, 0x34, 0x2c, 0x15, 0x3d,
	0x4a, 0x26, 0x4d, 0x28, 0x44, 0x29, 0x49, 0x35,
	0x2f, 0x3f, 0x33, 0x3c, 0x45, 0x10, 0x27, 0x40,
}

// SignGamingCDNURL reassembles a full playable CDN URL from the base URL,
// its query string, and a private signing key, mirroring the gaming
// platform's JS URL-builder: the query is permuted through
// gamingSignTable and MD5-hashed, and the result is appended as `wsSign`.
func SignGamingCDNURL(baseURL, query, key string) string {
	mixed := permute(query + key)
	sum := md5.Sum([]byte(mixed)) //nolint:gosec // matches upstream signing, not used for security
	sign := hex.EncodeToString(sum[:])

	sep := "?"
	if strings.Contains(baseURL, "?") {
		sep = "&"
	}
	return baseURL + sep + query + "&wsSign=" + sign
}

// permute runs s through gamingSignTable, XOR-ing each byte with the
// table entry at (index mod 32) and re-emitting it as two hex digits —
// the exact transform the upstream JS performs before hashing.
func permute(s string) string {
	var b strings.Builder
	b.Grow(len(s) * 2)
	for i := 0; i < len(s); i++ {
		v := s[i] ^ gamingSignTable[i%len(gamingSignTable)]
		hx := strconv.FormatInt(int64(v), 16)
		if len(hx) == 1 {
			b.WriteByte('0')
		}
		b.WriteString(hx)
	}
	return b.String()
}
