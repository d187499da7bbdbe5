package kitarchive

import (
	"archive/tar"
	"compress/gzip"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/t2bot/synthkit/common"
	"github.com/t2bot/synthkit/common/rcontext"
	"github.com/t2bot/synthkit/metrics"
	"github.com/t2bot/synthkit/util/stream_util"
)

type readerState int

const (
	stateOpened readerState = iota
	statePositioned
	stateExhausted
	stateClosed
)

// Reader walks the members of a gzip-compressed tar one at a time.
type Reader struct {
	ctx rcontext.RequestContext

	path  string
	file  *os.File
	gz    *gzip.Reader
	tar   *tar.Reader
	state readerState
}

func NewReader(ctx rcontext.RequestContext, path string) (*Reader, error) {
	ctx = ctx.LogWithFields(logrus.Fields{"kitarchive-path": path})

	file, err := os.Open(path)
	if err != nil {
		return nil, common.IOFailure("open archive", path, err)
	}
	gz, err := gzip.NewReader(file)
	if err != nil {
		_ = file.Close()
		return nil, common.IOFailure("open archive", path, err)
	}

	ctx.Log.Debug("Opened kit archive for reading")
	return &Reader{
		ctx:   ctx,
		path:  path,
		file:  file,
		gz:    gz,
		tar:   tar.NewReader(gz),
		state: stateOpened,
	}, nil
}

// ReadHeader advances to the next member. The boolean is false once the archive has no more
// members, which is not an error.
func (r *Reader) ReadHeader() (Header, bool, error) {
	switch r.state {
	case stateClosed:
		return Header{}, false, common.Precondition("read header", "archive reader is closed")
	case stateExhausted:
		return Header{}, false, nil
	}

	th, err := r.tar.Next()
	if err == io.EOF {
		r.state = stateExhausted
		return Header{}, false, nil
	}
	if err != nil {
		return Header{}, false, common.IOFailure("read header", r.path, err)
	}

	r.state = statePositioned
	metrics.ArchiveEntriesRead.Inc()
	h := Header{Path: th.Name, Size: th.Size}
	if th.Typeflag != tar.TypeReg {
		h.Size = 0
	}
	return h, true, nil
}

// ReadData reads up to len(p) bytes of the current member, returning 0 once the member's
// data is used up.
func (r *Reader) ReadData(p []byte) (int, error) {
	if r.state != statePositioned {
		return 0, common.Precondition("read data", "not positioned at an entry")
	}
	if len(p) == 0 {
		return 0, common.Precondition("read data", "buffer is empty")
	}
	n, err := r.tar.Read(p)
	if err == io.EOF {
		return n, nil
	}
	if err != nil {
		return n, common.IOFailure("read data", r.path, err)
	}
	return n, nil
}

// SkipData drops whatever is left of the current member.
func (r *Reader) SkipData() error {
	if r.state != statePositioned {
		return common.Precondition("skip data", "not positioned at an entry")
	}
	if _, err := stream_util.ForceDiscard(r.tar, -1); err != nil {
		return common.IOFailure("skip data", r.path, err)
	}
	return nil
}

func (r *Reader) Close() error {
	if r.state == stateClosed {
		return common.Precondition("close archive", "archive reader already closed")
	}
	r.state = stateClosed

	gzErr := r.gz.Close()
	fileErr := r.file.Close()
	for _, err := range []error{gzErr, fileErr} {
		if err != nil {
			return common.IOFailure("close archive", r.path, err)
		}
	}
	return nil
}

// Release closes the reader if Close was never called, logging instead of returning any
// failure. Meant for defer.
func (r *Reader) Release() {
	if r.state == stateClosed {
		return
	}
	if err := r.Close(); err != nil {
		r.ctx.Log.Error("Error closing kit archive: ", err)
	}
}
