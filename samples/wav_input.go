package samples

import (
	"encoding/binary"
	"io"
	"math"
	"os"

	"github.com/go-audio/riff"
	"github.com/go-audio/wav"
	"github.com/pkg/errors"
	"github.com/t2bot/synthkit/common"
)

const (
	wavFormatPCM        = 1
	wavFormatFloat      = 3
	wavFormatExtensible = 0xFFFE
)

// WavInputStream decodes the PCM data chunk of a WAV file into interleaved float32 frames
// in [-1, 1]. The header is parsed by go-audio; frames are read straight from the file so
// that any frame can be sought to.
type WavInputStream struct {
	file       *os.File
	info       Info
	dataStart  int64
	blockAlign int
	pos        FrameCount
	raw        []byte
	closed     bool
}

func OpenInput(sample *Sample) (*WavInputStream, error) {
	f, info, dataStart, err := openWav(sample.Path())
	if err != nil {
		return nil, err
	}
	return &WavInputStream{
		file:       f,
		info:       info,
		dataStart:  dataStart,
		blockAlign: info.blockAlign(),
	}, nil
}

// openWav returns the file positioned at the first PCM byte.
func openWav(path string) (*os.File, Info, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Info{}, 0, common.IOFailure("open", path, err)
	}

	fail := func(err error) (*os.File, Info, int64, error) {
		_ = f.Close()
		return nil, Info{}, 0, err
	}

	d := wav.NewDecoder(f)
	d.ReadInfo()
	if err = d.Err(); err != nil {
		return fail(common.IOFailure("read wav header", path, err))
	}
	if d.NumChans < 1 || d.SampleRate < 1 {
		return fail(errors.Wrap(common.ErrUnsupportedFormat, path+": missing format chunk"))
	}

	stat, err := f.Stat()
	if err != nil {
		return fail(common.IOFailure("stat", path, err))
	}

	format := d.WavAudioFormat
	if format == wavFormatExtensible {
		// go-audio drops the fmt extension, so the SubFormat GUID is read separately.
		if format, err = extensibleSubFormat(f, stat.Size()); err != nil {
			return fail(errors.Wrap(common.ErrUnsupportedFormat, path+": "+err.Error()))
		}
	}

	isFloat := false
	switch format {
	case wavFormatPCM:
		if d.BitDepth != 8 && d.BitDepth != 16 && d.BitDepth != 24 && d.BitDepth != 32 {
			return fail(errors.Wrapf(common.ErrUnsupportedFormat, "%s: %d-bit PCM", path, d.BitDepth))
		}
	case wavFormatFloat:
		if d.BitDepth != 32 {
			return fail(errors.Wrapf(common.ErrUnsupportedFormat, "%s: %d-bit float", path, d.BitDepth))
		}
		isFloat = true
	default:
		return fail(errors.Wrapf(common.ErrUnsupportedFormat, "%s: wav format %#x", path, format))
	}

	if err = d.FwdToPCM(); err != nil {
		return fail(common.IOFailure("locate pcm data", path, err))
	}
	dataStart, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return fail(common.IOFailure("seek", path, err))
	}

	info := Info{
		Channels:   ChannelCount(d.NumChans),
		SampleRate: SampleRate(d.SampleRate),
		BitDepth:   int(d.BitDepth),
		Float:      isFloat,
	}

	// Streaming writers sometimes leave a placeholder size on the data chunk.
	dataLen := d.PCMLen()
	if available := stat.Size() - dataStart; dataLen > available || dataLen < 0 {
		dataLen = available
	}
	info.Frames = FrameCount(dataLen / int64(info.blockAlign()))

	return f, info, dataStart, nil
}

// extensibleSubFormat walks the RIFF chunks for the fmt chunk of a WAVE_FORMAT_EXTENSIBLE
// file and returns the format code that leads its SubFormat GUID.
func extensibleSubFormat(r io.ReaderAt, size int64) (uint16, error) {
	section := io.NewSectionReader(r, 0, size)
	parser := riff.New(section)
	id, _, err := parser.IDnSize()
	if err != nil {
		return 0, err
	}
	var kind [4]byte
	if _, err = io.ReadFull(section, kind[:]); err != nil {
		return 0, err
	}
	if id != riff.RiffID || kind != riff.WavFormatID {
		return 0, riff.ErrFmtNotSupported
	}

	for {
		chunk, err := parser.NextChunk()
		if err != nil {
			return 0, errors.Wrap(err, "fmt chunk not found")
		}
		if chunk.ID != riff.FmtID {
			chunk.Drain()
			continue
		}
		// 16 bytes of WAVEFORMAT, cbSize, valid bits, channel mask, then the GUID.
		if chunk.Size < 40 {
			return 0, errors.Errorf("extensible fmt chunk is only %d bytes", chunk.Size)
		}
		fmtChunk := make([]byte, 26)
		if _, err = io.ReadFull(chunk, fmtChunk); err != nil {
			return 0, err
		}
		return binary.LittleEndian.Uint16(fmtChunk[24:26]), nil
	}
}

func (s *WavInputStream) Channels() ChannelCount {
	return s.info.Channels
}

func (s *WavInputStream) SampleRate() SampleRate {
	return s.info.SampleRate
}

func (s *WavInputStream) Frames() FrameCount {
	return s.info.Frames
}

func (s *WavInputStream) Position() FrameCount {
	return s.pos
}

func (s *WavInputStream) Info() Info {
	return s.info
}

func (s *WavInputStream) Seek(frame FrameCount) error {
	if s.closed {
		return common.Precondition("seek", "stream is closed")
	}
	if frame < 0 || frame > s.info.Frames {
		return common.Precondition("seek", "frame %d outside [0, %d]", frame, s.info.Frames)
	}
	if _, err := s.file.Seek(s.dataStart+int64(frame)*int64(s.blockAlign), io.SeekStart); err != nil {
		return common.IOFailure("seek", s.file.Name(), err)
	}
	s.pos = frame
	return nil
}

func (s *WavInputStream) Read(buf []float32, frames FrameCount) (FrameCount, error) {
	if s.closed {
		return 0, common.Precondition("read", "stream is closed")
	}
	if frames <= 0 {
		return 0, common.Precondition("read", "frame count must be positive, got %d", frames)
	}
	if err := checkBuffer("read", buf, frames, s.info.Channels); err != nil {
		return 0, err
	}

	if remaining := s.info.Frames - s.pos; frames > remaining {
		frames = remaining
	}
	if frames == 0 {
		return 0, nil
	}

	need := int(frames) * s.blockAlign
	if cap(s.raw) < need {
		s.raw = make([]byte, need)
	}
	raw := s.raw[:need]
	n, err := io.ReadFull(s.file, raw)
	got := FrameCount(n / s.blockAlign)
	if err != nil && got == 0 {
		return 0, common.IOFailure("read", s.file.Name(), err)
	}
	if n%s.blockAlign != 0 {
		// Leave the file on a frame boundary for the next read.
		if _, err = s.file.Seek(-int64(n%s.blockAlign), io.SeekCurrent); err != nil {
			return 0, common.IOFailure("seek", s.file.Name(), err)
		}
	}

	s.decode(buf, raw[:int(got)*s.blockAlign])
	s.pos += got
	return got, nil
}

func (s *WavInputStream) decode(dst []float32, raw []byte) {
	width := s.info.BitDepth / 8
	for i := 0; i*width < len(raw); i++ {
		b := raw[i*width : (i+1)*width]
		switch {
		case s.info.Float:
			dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(b))
		case width == 1:
			dst[i] = float32(int(b[0])-128) / 128
		case width == 2:
			dst[i] = float32(int16(binary.LittleEndian.Uint16(b))) / (1 << 15)
		case width == 3:
			v := int32(uint32(b[0])<<8|uint32(b[1])<<16|uint32(b[2])<<24) >> 8
			dst[i] = float32(v) / (1 << 23)
		default:
			dst[i] = float32(float64(int32(binary.LittleEndian.Uint32(b))) / (1 << 31))
		}
	}
}

func (s *WavInputStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.file.Close(); err != nil {
		return common.IOFailure("close", s.file.Name(), err)
	}
	return nil
}
