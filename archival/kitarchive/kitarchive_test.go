package kitarchive

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/t2bot/synthkit/common"
	"github.com/t2bot/synthkit/common/rcontext"
	"github.com/t2bot/synthkit/samples"
)

func testContext() rcontext.RequestContext {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return rcontext.New(context.Background(), logrus.NewEntry(logger), nil)
}

func writeFile(t *testing.T, dir string, name string, content []byte) *samples.Sample {
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, content, 0644))
	return samples.NewSample(p)
}

func patterned(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i * 7)
	}
	return b
}

// readAll walks an archive and returns every member's payload by path, in archive order.
func readAll(t *testing.T, path string) ([]Header, map[string][]byte) {
	r, err := NewReader(testContext(), path)
	require.NoError(t, err)
	defer r.Release()

	headers := make([]Header, 0)
	payloads := make(map[string][]byte)
	buf := make([]byte, 1000)
	for {
		h, ok, err := r.ReadHeader()
		require.NoError(t, err)
		if !ok {
			break
		}
		headers = append(headers, h)
		if !h.IsFile() {
			require.NoError(t, r.SkipData())
			continue
		}
		data := &bytes.Buffer{}
		for {
			n, err := r.ReadData(buf)
			require.NoError(t, err)
			if n == 0 {
				break
			}
			data.Write(buf[:n])
		}
		payloads[h.Path] = data.Bytes()
	}

	_, ok, err := r.ReadHeader()
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, r.Close())
	return headers, payloads
}

func TestSingleSampleKit(t *testing.T) {
	dir := t.TempDir()
	sampleBytes := patterned(44)
	sample := writeFile(t, dir, "sample1.wav", sampleBytes)
	archivePath := filepath.Join(dir, "kit1.h2drumkit")

	w, err := NewWriter(testContext(), archivePath, "kit1")
	require.NoError(t, err)
	defer w.Release()
	require.NoError(t, w.AddConfiguration("<drumkit/>"))
	require.NoError(t, w.AddSample("sample1.wav", sample))
	require.NoError(t, w.Close())

	headers, payloads := readAll(t, archivePath)
	assert.ElementsMatch(t, []Header{
		{Path: "kit1/drumkit.xml", Size: 10},
		{Path: "kit1/sample1.wav", Size: 44},
	}, headers)
	assert.Equal(t, []byte("<drumkit/>"), payloads["kit1/drumkit.xml"])
	assert.Equal(t, sampleBytes, payloads["kit1/sample1.wav"])
}

func TestRoundTripManySamples(t *testing.T) {
	dir := t.TempDir()
	contents := map[string][]byte{
		"tiny.wav":   patterned(1),
		"chunk.wav":  patterned(chunkSize),
		"larger.wav": patterned(3*chunkSize + 17),
	}
	archivePath := filepath.Join(dir, "big.h2drumkit")
	config := "<drumkit_info><name>Big Kit</name></drumkit_info>"

	w, err := NewWriter(testContext(), archivePath, "Big Kit")
	require.NoError(t, err)
	require.NoError(t, w.AddConfiguration(config))
	for _, name := range []string{"tiny.wav", "chunk.wav", "larger.wav"} {
		require.NoError(t, w.AddSample(name, writeFile(t, dir, name, contents[name])))
	}
	require.NoError(t, w.Close())
	assert.Len(t, w.Entries(), 4)

	headers, payloads := readAll(t, archivePath)
	require.Len(t, headers, 4)
	assert.Equal(t, "Big Kit/drumkit.xml", headers[0].Path)
	assert.Equal(t, config, string(payloads["Big Kit/drumkit.xml"]))
	for name, content := range contents {
		assert.Equal(t, content, payloads["Big Kit/"+name], name)
	}
}

func TestEntryFormat(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "fmt.h2drumkit")
	w, err := NewWriter(testContext(), archivePath, "fmt")
	require.NoError(t, err)
	require.NoError(t, w.AddConfiguration("<x/>"))
	require.NoError(t, w.Close())

	f, err := os.Open(archivePath)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	tr := tar.NewReader(gz)
	h, err := tr.Next()
	require.NoError(t, err)
	assert.Equal(t, "fmt/drumkit.xml", h.Name)
	assert.Equal(t, byte(tar.TypeReg), h.Typeflag)
	assert.Equal(t, int64(0644), h.Mode)
	_, err = tr.Next()
	assert.Equal(t, io.EOF, err)
}

func TestMissingSampleLeavesArchiveIntact(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "partial.h2drumkit")
	w, err := NewWriter(testContext(), archivePath, "partial")
	require.NoError(t, err)
	require.NoError(t, w.AddConfiguration("<drumkit/>"))
	require.NoError(t, w.AddSample("a.wav", writeFile(t, dir, "a.wav", patterned(100))))

	err = w.AddSample("missing.wav", samples.NewSample(filepath.Join(dir, "missing.wav")))
	assert.ErrorIs(t, err, common.ErrIOFailure)
	assert.ErrorIs(t, err, os.ErrNotExist)

	require.NoError(t, w.AddSample("b.wav", writeFile(t, dir, "b.wav", patterned(200))))
	require.NoError(t, w.Close())

	headers, payloads := readAll(t, archivePath)
	assert.Len(t, headers, 3)
	assert.Len(t, payloads["partial/a.wav"], 100)
	assert.Len(t, payloads["partial/b.wav"], 200)
	assert.NotContains(t, payloads, "partial/missing.wav")
}

func TestWriterPreconditions(t *testing.T) {
	dir := t.TempDir()
	sample := writeFile(t, dir, "s.wav", patterned(10))
	empty := writeFile(t, dir, "empty.wav", nil)

	_, err := NewWriter(testContext(), filepath.Join(dir, "noname.h2drumkit"), "")
	assert.ErrorIs(t, err, common.ErrPreconditionViolation)

	w, err := NewWriter(testContext(), filepath.Join(dir, "pre.h2drumkit"), "pre")
	require.NoError(t, err)

	assert.ErrorIs(t, w.AddSample("s.wav", sample), common.ErrPreconditionViolation, "sample before configuration")
	assert.ErrorIs(t, w.AddConfiguration(""), common.ErrPreconditionViolation, "empty configuration")
	require.NoError(t, w.AddConfiguration("<drumkit/>"))
	assert.ErrorIs(t, w.AddConfiguration("<drumkit/>"), common.ErrPreconditionViolation, "second configuration")
	assert.ErrorIs(t, w.AddSample("", sample), common.ErrPreconditionViolation, "empty file name")
	assert.ErrorIs(t, w.AddSample("empty.wav", empty), common.ErrPreconditionViolation, "empty sample")
	require.NoError(t, w.AddSample("s.wav", sample))
	assert.ErrorIs(t, w.AddSample("s.wav", sample), common.ErrPreconditionViolation, "duplicate path")

	require.NoError(t, w.Close())
	assert.ErrorIs(t, w.Close(), common.ErrPreconditionViolation, "second close")
	assert.ErrorIs(t, w.AddSample("t.wav", sample), common.ErrPreconditionViolation, "add after close")
	w.Release()
}

func TestReleaseFinalizesUnclosedWriter(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "implicit.h2drumkit")
	w, err := NewWriter(testContext(), archivePath, "implicit")
	require.NoError(t, err)
	require.NoError(t, w.AddConfiguration("<drumkit/>"))
	w.Release()

	headers, _ := readAll(t, archivePath)
	assert.Equal(t, []Header{{Path: "implicit/drumkit.xml", Size: 10}}, headers)
}

func TestNewWriterFailsForBadPath(t *testing.T) {
	_, err := NewWriter(testContext(), filepath.Join(t.TempDir(), "no", "such", "dir.h2drumkit"), "kit")
	assert.ErrorIs(t, err, common.ErrIOFailure)
}

func TestReaderSkipsDirectoriesAndStates(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "foreign.tar.gz")

	buf := &bytes.Buffer{}
	gz := gzip.NewWriter(buf)
	tw := tar.NewWriter(gz)
	require.NoError(t, tw.WriteHeader(&tar.Header{Typeflag: tar.TypeDir, Name: "kit/", Mode: 0755}))
	require.NoError(t, tw.WriteHeader(&tar.Header{Typeflag: tar.TypeReg, Name: "kit/a.wav", Mode: 0644, Size: 5}))
	_, err := tw.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, tw.WriteHeader(&tar.Header{Typeflag: tar.TypeReg, Name: "kit/b.wav", Mode: 0644, Size: 3}))
	_, err = tw.Write([]byte("abc"))
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	require.NoError(t, os.WriteFile(archivePath, buf.Bytes(), 0644))

	r, err := NewReader(testContext(), archivePath)
	require.NoError(t, err)

	_, err = r.ReadData(make([]byte, 10))
	assert.ErrorIs(t, err, common.ErrPreconditionViolation, "read before header")
	assert.ErrorIs(t, r.SkipData(), common.ErrPreconditionViolation, "skip before header")

	h, ok, err := r.ReadHeader()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "kit/", h.Path)
	assert.False(t, h.IsFile())

	h, ok, err = r.ReadHeader()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Header{Path: "kit/a.wav", Size: 5}, h)
	_, err = r.ReadData(nil)
	assert.ErrorIs(t, err, common.ErrPreconditionViolation, "empty buffer")
	require.NoError(t, r.SkipData())

	h, ok, err = r.ReadHeader()
	require.NoError(t, err)
	require.True(t, ok)
	data := make([]byte, 10)
	n, err := r.ReadData(data)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(data[:n]))

	for i := 0; i < 2; i++ {
		_, ok, err = r.ReadHeader()
		require.NoError(t, err)
		assert.False(t, ok)
	}
	_, err = r.ReadData(data)
	assert.ErrorIs(t, err, common.ErrPreconditionViolation, "read when exhausted")

	require.NoError(t, r.Close())
	_, _, err = r.ReadHeader()
	assert.ErrorIs(t, err, common.ErrPreconditionViolation)
	assert.ErrorIs(t, r.Close(), common.ErrPreconditionViolation)
	r.Release()
}

func TestNewReaderFailures(t *testing.T) {
	dir := t.TempDir()
	_, err := NewReader(testContext(), filepath.Join(dir, "missing.h2drumkit"))
	assert.ErrorIs(t, err, common.ErrIOFailure)

	notGzip := filepath.Join(dir, "plain.h2drumkit")
	require.NoError(t, os.WriteFile(notGzip, []byte("this is not gzip data"), 0644))
	_, err = NewReader(testContext(), notGzip)
	assert.ErrorIs(t, err, common.ErrIOFailure)
}

func TestTruncatedArchiveFailsReads(t *testing.T) {
	dir := t.TempDir()
	noise := make([]byte, 50000)
	rand.New(rand.NewSource(7)).Read(noise)
	archivePath := filepath.Join(dir, "cut.h2drumkit")

	w, err := NewWriter(testContext(), archivePath, "cut")
	require.NoError(t, err)
	require.NoError(t, w.AddConfiguration("<drumkit/>"))
	require.NoError(t, w.AddSample("noise.wav", writeFile(t, dir, "noise.wav", noise)))
	require.NoError(t, w.Close())

	stat, err := os.Stat(archivePath)
	require.NoError(t, err)
	require.NoError(t, os.Truncate(archivePath, stat.Size()-20000))

	r, err := NewReader(testContext(), archivePath)
	require.NoError(t, err)
	defer r.Release()

	h, ok, err := r.ReadHeader()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "cut/drumkit.xml", h.Path)
	require.NoError(t, r.SkipData())

	h, ok, err = r.ReadHeader()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "cut/noise.wav", h.Path)

	buf := make([]byte, 4096)
	read := 0
	for {
		n, err := r.ReadData(buf)
		if err != nil {
			assert.ErrorIs(t, err, common.ErrIOFailure)
			break
		}
		require.NotZero(t, n, "entry ended before the truncation point")
		read += n
	}
	assert.Less(t, read, len(noise))

	_, _, err = r.ReadHeader()
	assert.ErrorIs(t, err, common.ErrIOFailure)
}
