package copier

import (
	"github.com/pkg/errors"
	"github.com/t2bot/synthkit/common"
	"github.com/t2bot/synthkit/metrics"
	"github.com/t2bot/synthkit/samples"
)

// BufferSize is the number of sample values held by a copier's scratch buffer. Each chunk
// moves at most BufferSize/channels frames.
const BufferSize = 65536

// ProgressFunc receives the cumulative number of frames copied and the number requested.
type ProgressFunc func(copied samples.FrameCount, requested samples.FrameCount)

// Copier moves frames between streams in bounded chunks. A Copier is not safe for
// concurrent use; give each goroutine its own.
type Copier struct {
	OnProgress ProgressFunc

	buffer [BufferSize]float32
}

func New() *Copier {
	return &Copier{}
}

// Copy transfers up to frames frames from src to dst and returns how many were copied. It
// stops early, without error, when src runs out. Streams with different channel counts or
// sample rates are rejected before anything is read.
func (c *Copier) Copy(src samples.InputStream, dst samples.OutputStream, frames samples.FrameCount) (samples.FrameCount, error) {
	channels := src.Channels()
	if channels != dst.Channels() {
		return 0, common.Precondition("copy", "channel counts differ (%d != %d)", channels, dst.Channels())
	}
	if src.SampleRate() != dst.SampleRate() {
		return 0, common.Precondition("copy", "sample rates differ (%d != %d)", src.SampleRate(), dst.SampleRate())
	}
	if frames < 0 {
		return 0, common.Precondition("copy", "negative frame count %d", frames)
	}
	if channels < samples.MinChannelCount {
		return 0, common.Precondition("copy", "streams have no channels")
	}

	chunkFrames := samples.FrameCount(BufferSize / int(channels))
	total := samples.FrameCount(0)
	for total < frames {
		want := frames - total
		if want > chunkFrames {
			want = chunkFrames
		}

		n, err := src.Read(c.buffer[:], want)
		if err != nil {
			return total, ioFailure("read", err)
		}
		if n == 0 {
			break
		}
		if err = dst.Write(c.buffer[:], n); err != nil {
			return total, ioFailure("write", err)
		}
		total += n
		metrics.FramesCopied.Add(float64(n))
		if c.OnProgress != nil {
			c.OnProgress(total, frames)
		}
		if n < want {
			break
		}
	}
	return total, nil
}

func ioFailure(op string, err error) error {
	if err == nil || errors.Is(err, common.ErrIOFailure) || errors.Is(err, common.ErrPreconditionViolation) {
		return err
	}
	return common.IOFailure(op, "", err)
}

// Copy is a convenience for a one-off copy with a fresh buffer.
func Copy(src samples.InputStream, dst samples.OutputStream, frames samples.FrameCount) (samples.FrameCount, error) {
	return New().Copy(src, dst, frames)
}
