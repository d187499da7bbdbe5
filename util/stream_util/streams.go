package stream_util

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// ForceDiscard reads and drops nBytes from r, or everything up to EOF when nBytes is
// negative. It returns the number of bytes dropped.
func ForceDiscard(r io.Reader, nBytes int64) (int64, error) {
	if nBytes == 0 {
		return 0, nil // weird call, but ok
	}
	if nBytes < 0 {
		return io.Copy(io.Discard, r)
	}
	n, err := io.CopyN(io.Discard, r, nBytes)
	if err == io.EOF {
		return n, errors.Wrap(io.ErrUnexpectedEOF, fmt.Sprintf("discarded %d of %d bytes", n, nBytes))
	}
	return n, err
}

// CopyChunked moves exactly size bytes from src to dst, chunkSize bytes at a time. It fails
// when a write comes up short or when src holds more or fewer than size bytes.
func CopyChunked(dst io.Writer, src io.Reader, chunkSize int, size int64) (int64, error) {
	buf := make([]byte, chunkSize)
	written := int64(0)
	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			if written+int64(n) > size {
				return written, fmt.Errorf("source is larger than the declared %d bytes", size)
			}
			w, err := dst.Write(buf[:n])
			written += int64(w)
			if err != nil {
				return written, err
			}
			if w != n {
				return written, io.ErrShortWrite
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return written, readErr
		}
	}
	if written != size {
		return written, errors.Wrap(io.ErrUnexpectedEOF, fmt.Sprintf("wrote %d of %d declared bytes", written, size))
	}
	return written, nil
}
