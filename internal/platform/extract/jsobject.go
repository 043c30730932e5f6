package extract

import (
	"strings"
)

// NormalizeJS rewrites a loosely-formed JavaScript object literal into
// strict JSON: single-quoted strings become double-quoted, and bare
// identifier keys (`key:`) gain quotes (`"key":`). It does not attempt to
// be a full JS parser — it is tolerant in the same way the upstream pages
// are loose, which is exactly as far as the embedded blobs ever stray from
// JSON.
func NormalizeJS(src string) string {
	var b strings.Builder
	b.Grow(len(src) + 16)

	inDouble := false
	inSingle := false
	escaped := false

	runes := []rune(src)
	for i := 0; i < len(runes); i++ {
		c := runes[i]

		switch {
		case inDouble:
			b.WriteRune(c)
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				inDouble = false
			}
			continue
		case inSingle:
			if escaped {
				if c != '\'' {
					b.WriteByte('\\')
				}
				b.WriteRune(c)
				escaped = false
				continue
			}
			if c == '\\' {
				escaped = true
				continue
			}
			if c == '\'' {
				b.WriteByte('"')
				inSingle = false
				continue
			}
			if c == '"' {
				b.WriteString(`\"`)
				continue
			}
			b.WriteRune(c)
			continue
		}

		switch c {
		case '"':
			inDouble = true
			b.WriteRune(c)
		case '\'':
			inSingle = true
			b.WriteByte('"')
		case '{', ',':
			b.WriteRune(c)
			quoteBareKey(&b, runes, &i)
		default:
			b.WriteRune(c)
		}
	}

	return b.String()
}

// quoteBareKey looks ahead from the current delimiter for a bare
// identifier key (optionally whitespace-padded) followed by a colon, and
// emits it quoted. It advances i past whatever it consumed.
func quoteBareKey(b *strings.Builder, runes []rune, i *int) {
	j := *i + 1
	start := j
	for j < len(runes) && (runes[j] == ' ' || runes[j] == '\n' || runes[j] == '\t' || runes[j] == '\r') {
		j++
	}
	leadingWS := j - start

	keyStart := j
	for j < len(runes) && isIdentRune(runes[j]) {
		j++
	}
	keyEnd := j

	for j < len(runes) && (runes[j] == ' ' || runes[j] == '\n' || runes[j] == '\t' || runes[j] == '\r') {
		j++
	}

	if keyEnd > keyStart && j < len(runes) && runes[j] == ':' {
		b.WriteString(string(runes[start : start+leadingWS]))
		b.WriteByte('"')
		b.WriteString(string(runes[keyStart:keyEnd]))
		b.WriteByte('"')
		*i = keyEnd - 1
		return
	}
	// Not a bare key; leave the delimiter's effect as-is, consume nothing extra.
}

func isIdentRune(r rune) bool {
	return r == '_' || r == '$' ||
		(r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}
