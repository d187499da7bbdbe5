package kitarchive

import (
	"archive/tar"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"github.com/t2bot/synthkit/common"
	"github.com/t2bot/synthkit/common/rcontext"
	"github.com/t2bot/synthkit/metrics"
	"github.com/t2bot/synthkit/samples"
	"github.com/t2bot/synthkit/util/stream_util"
)

// Writer builds a gzip-compressed tar holding one kit. Every member lives under the kit name,
// and the configuration must be added before any sample.
type Writer struct {
	ctx rcontext.RequestContext

	kitName string
	path    string
	file    *os.File
	gz      *gzip.Writer
	tar     *tar.Writer
	entries []Header
	paths   map[string]bool

	// state machine variables
	wroteConfiguration bool
	closed             bool
}

func NewWriter(ctx rcontext.RequestContext, path string, kitName string) (*Writer, error) {
	if kitName == "" {
		return nil, common.Precondition("create archive", "kit name is empty")
	}
	ctx = ctx.LogWithFields(logrus.Fields{
		"kitarchive-path": path,
		"kitarchive-kit":  kitName,
	})

	file, err := os.Create(path)
	if err != nil {
		return nil, common.IOFailure("create archive", path, err)
	}
	gz, err := gzip.NewWriterLevel(file, gzip.BestCompression)
	if err != nil {
		_ = file.Close()
		return nil, common.IOFailure("create archive", path, err)
	}
	gz.Name = kitName + ".tar"

	ctx.Log.Debug("Opened kit archive for writing")
	return &Writer{
		ctx:     ctx,
		kitName: kitName,
		path:    path,
		file:    file,
		gz:      gz,
		tar:     tar.NewWriter(gz),
		entries: make([]Header, 0),
		paths:   make(map[string]bool),
	}, nil
}

func (w *Writer) KitName() string {
	return w.kitName
}

// Entries lists the members written so far, in order.
func (w *Writer) Entries() []Header {
	return append([]Header(nil), w.entries...)
}

// AddConfiguration writes text as <kit>/drumkit.xml.
func (w *Writer) AddConfiguration(text string) error {
	if err := w.checkOpen("add configuration"); err != nil {
		return err
	}
	if w.wroteConfiguration {
		return common.Precondition("add configuration", "configuration already written")
	}
	size := int64(len(text))
	if err := w.putEntry("configuration", ConfigurationName, size, strings.NewReader(text)); err != nil {
		return err
	}
	w.wroteConfiguration = true
	return nil
}

// AddSample streams the sample's file into the archive as <kit>/<fileName>. The source is
// opened before anything is written, so an unreadable sample leaves the archive as it was and
// the writer usable.
func (w *Writer) AddSample(fileName string, sample *samples.Sample) error {
	if err := w.checkOpen("add sample"); err != nil {
		return err
	}
	if fileName == "" {
		return common.Precondition("add sample", "file name is empty")
	}
	if !w.wroteConfiguration {
		return common.Precondition("add sample", "configuration must be written before samples")
	}

	f, err := os.Open(sample.Path())
	if err != nil {
		return common.IOFailure("open sample", sample.Path(), err)
	}
	defer f.Close()
	stat, err := f.Stat()
	if err != nil {
		return common.IOFailure("stat sample", sample.Path(), err)
	}

	return w.putEntry("sample", fileName, stat.Size(), f)
}

func (w *Writer) checkOpen(op string) error {
	if w.closed {
		return common.Precondition(op, "archive writer is closed")
	}
	return nil
}

func (w *Writer) putEntry(kind string, name string, size int64, r io.Reader) error {
	if size <= 0 {
		return common.Precondition("write entry", "%s has size %d, entries must not be empty", name, size)
	}
	fullPath := memberPath(w.kitName, name)
	if w.paths[fullPath] {
		return common.Precondition("write entry", "%s is already in the archive", fullPath)
	}

	err := w.tar.WriteHeader(&tar.Header{
		Typeflag: tar.TypeReg,
		Name:     fullPath,
		Mode:     int64(entryMode),
		Size:     size,
		ModTime:  time.Now().UTC().Truncate(time.Second),
		Format:   tar.FormatPAX,
	})
	if err != nil {
		return common.IOFailure("write header", fullPath, err)
	}
	w.paths[fullPath] = true

	hasher := sha256.New()
	written, err := stream_util.CopyChunked(io.MultiWriter(w.tar, hasher), r, chunkSize, size)
	if err != nil {
		return common.IOFailure("write data", fullPath, err)
	}

	w.entries = append(w.entries, Header{Path: fullPath, Size: written})
	metrics.ArchiveEntriesWritten.WithLabelValues(kind).Inc()
	metrics.ArchiveBytesWritten.WithLabelValues(kind).Add(float64(written))
	w.ctx.Log.WithFields(logrus.Fields{
		"entry":  fullPath,
		"sha256": hex.EncodeToString(hasher.Sum(nil)),
	}).Debugf("Archived %s (%s)", kind, humanize.Bytes(uint64(written)))
	return nil
}

// Close flushes the tar trailer and gzip footer and closes the file. It may be called once.
func (w *Writer) Close() error {
	if w.closed {
		return common.Precondition("close archive", "archive writer already closed")
	}
	w.closed = true

	tarErr := w.tar.Close()
	gzErr := w.gz.Close()
	fileErr := w.file.Close()
	for _, err := range []error{tarErr, gzErr, fileErr} {
		if err != nil {
			return common.IOFailure("close archive", w.path, err)
		}
	}
	w.ctx.Log.Debugf("Closed kit archive with %d entries", len(w.entries))
	return nil
}

// Release closes the writer if Close was never called, logging instead of returning any
// failure. Meant for defer.
func (w *Writer) Release() {
	if w.closed {
		return
	}
	w.ctx.Log.Warn("Kit archive writer was not closed explicitly - closing now")
	if err := w.Close(); err != nil {
		w.ctx.Log.Error("Error closing kit archive: ", err)
	}
}
