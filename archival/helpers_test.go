package archival

import (
	"bytes"
	"io"
	"strings"
)

func bytesReader(b []byte) io.Reader {
	return bytes.NewReader(b)
}

// lastParen returns the text inside the last pair of parentheses in s.
func lastParen(s string) string {
	open := strings.LastIndex(s, "(")
	end := strings.LastIndex(s, ")")
	if open < 0 || end < open {
		return ""
	}
	return s[open+1 : end]
}
