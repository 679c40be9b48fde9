package helpers

import "io"

// ReadAllAndClose drains r up to max bytes and closes it. max <= 0 means no
// limit. Scraped pages are third-party content, so callers cap what they
// are willing to buffer.
func ReadAllAndClose(r io.ReadCloser, max int64) ([]byte, error) {
	defer r.Close()
	if max > 0 {
		return io.ReadAll(io.LimitReader(r, max))
	}
	return io.ReadAll(r)
}
