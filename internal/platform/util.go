package platform

import "io"

// boundedRead drains r, capped at limit bytes, guarding the page-scraping
// clients against unbounded upstream responses.
func boundedRead(r io.Reader, limit int64) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, limit))
}
