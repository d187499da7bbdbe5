package samples

import (
	"io"

	"github.com/faiface/beep"
	"github.com/t2bot/synthkit/common"
)

const beepBlockFrames = 512

// beepStreamer feeds an InputStream into beep. Beep works in stereo: mono input is doubled
// and anything past the second channel is dropped.
type beepStreamer struct {
	in   InputStream
	buf  []float32
	err  error
	done bool
}

func newBeepStreamer(in InputStream) *beepStreamer {
	return &beepStreamer{
		in:  in,
		buf: make([]float32, beepBlockFrames*int(in.Channels())),
	}
}

func (s *beepStreamer) Stream(out [][2]float64) (int, bool) {
	if s.err != nil || s.done {
		return 0, false
	}
	channels := int(s.in.Channels())
	total := 0
	for total < len(out) {
		want := len(out) - total
		if want > beepBlockFrames {
			want = beepBlockFrames
		}
		n, err := s.in.Read(s.buf, FrameCount(want))
		if err != nil {
			s.err = err
			break
		}
		for i := 0; i < int(n); i++ {
			left := float64(s.buf[i*channels])
			right := left
			if channels > 1 {
				right = float64(s.buf[i*channels+1])
			}
			out[total+i] = [2]float64{left, right}
		}
		total += int(n)
		if int(n) < want {
			s.done = true
			break
		}
	}
	return total, total > 0
}

func (s *beepStreamer) Err() error {
	return s.err
}

// BeepStream exposes a seekable input stream as a beep.StreamSeekCloser.
type BeepStream struct {
	*beepStreamer
	seekable SeekableInputStream
}

func NewBeepStream(in SeekableInputStream) *BeepStream {
	return &BeepStream{beepStreamer: newBeepStreamer(in), seekable: in}
}

func (s *BeepStream) Format() beep.Format {
	return beep.Format{
		SampleRate:  beep.SampleRate(s.seekable.SampleRate()),
		NumChannels: 2,
		Precision:   3,
	}
}

func (s *BeepStream) Len() int {
	return int(s.seekable.Frames())
}

func (s *BeepStream) Position() int {
	return int(s.seekable.Position())
}

func (s *BeepStream) Seek(p int) error {
	if err := s.seekable.Seek(FrameCount(p)); err != nil {
		return err
	}
	s.done = false
	return nil
}

func (s *BeepStream) Close() error {
	if c, ok := s.seekable.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Resample converts in to out's sample rate with beep's interpolating resampler and returns
// the number of frames written. Only mono and stereo streams can be resampled.
func Resample(in InputStream, out OutputStream, quality int) (FrameCount, error) {
	if in.Channels() != out.Channels() {
		return 0, common.Precondition("resample", "channel counts differ (%d != %d)", in.Channels(), out.Channels())
	}
	if in.Channels() > 2 {
		return 0, common.Precondition("resample", "%d channels, at most 2 supported", in.Channels())
	}
	if quality < 1 || quality > 64 {
		return 0, common.Precondition("resample", "quality %d outside [1, 64]", quality)
	}

	src := newBeepStreamer(in)
	resampler := beep.Resample(quality, beep.SampleRate(in.SampleRate()), beep.SampleRate(out.SampleRate()), src)

	channels := int(out.Channels())
	block := make([][2]float64, beepBlockFrames)
	buf := make([]float32, beepBlockFrames*channels)
	total := FrameCount(0)
	for {
		n, ok := resampler.Stream(block)
		for i := 0; i < n; i++ {
			buf[i*channels] = float32(block[i][0])
			if channels > 1 {
				buf[i*channels+1] = float32(block[i][1])
			}
		}
		if n > 0 {
			if err := out.Write(buf, FrameCount(n)); err != nil {
				return total, err
			}
			total += FrameCount(n)
		}
		if !ok || n == 0 {
			break
		}
	}
	if err := src.Err(); err != nil {
		return total, err
	}
	return total, nil
}
