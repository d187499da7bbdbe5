package samples

import (
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/t2bot/synthkit/common"
)

// WavOutputStream encodes interleaved float32 frames through the go-audio encoder. Integer
// formats are quantized; the float format hands the encoder each sample's IEEE bits.
type WavOutputStream struct {
	file     *os.File
	encoder  *wav.Encoder
	buf      *audio.IntBuffer
	channels ChannelCount
	rate     SampleRate
	format   Format
	frames   FrameCount
	closed   bool
}

func CreateOutput(sample *Sample, rate SampleRate, channels ChannelCount, format Format) (*WavOutputStream, error) {
	if err := checkFormat("create output", rate, channels); err != nil {
		return nil, err
	}
	f, err := os.Create(sample.Path())
	if err != nil {
		return nil, common.IOFailure("create", sample.Path(), err)
	}
	return &WavOutputStream{
		file:    f,
		encoder: wav.NewEncoder(f, int(rate), format.BitDepth(), int(channels), audioFormat(format)),
		buf: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: int(channels), SampleRate: int(rate)},
			SourceBitDepth: format.BitDepth(),
		},
		channels: channels,
		rate:     rate,
		format:   format,
	}, nil
}

func (s *WavOutputStream) Channels() ChannelCount {
	return s.channels
}

func (s *WavOutputStream) SampleRate() SampleRate {
	return s.rate
}

func (s *WavOutputStream) Frames() FrameCount {
	return s.frames
}

func (s *WavOutputStream) Write(buf []float32, frames FrameCount) error {
	if s.closed {
		return common.Precondition("write", "stream is closed")
	}
	if err := checkBuffer("write", buf, frames, s.channels); err != nil {
		return err
	}
	if frames == 0 {
		return nil
	}

	count := int(frames) * int(s.channels)
	if cap(s.buf.Data) < count {
		s.buf.Data = make([]int, count)
	}
	s.buf.Data = s.buf.Data[:count]
	scale := math.Exp2(float64(s.format.BitDepth() - 1))
	for i, v := range buf[:count] {
		switch {
		case s.format.Float():
			if math.IsNaN(float64(v)) {
				v = 0
			}
			s.buf.Data[i] = int(int32(math.Float32bits(v)))
		case s.format == FormatWAV8:
			s.buf.Data[i] = quantize(v, scale) + 128
		default:
			s.buf.Data[i] = quantize(v, scale)
		}
	}

	if err := s.encoder.Write(s.buf); err != nil {
		return common.IOFailure("write", s.file.Name(), err)
	}
	s.frames += frames
	return nil
}

func audioFormat(f Format) int {
	if f.Float() {
		return wavFormatFloat
	}
	return wavFormatPCM
}

func quantize(v float32, scale float64) int {
	if math.IsNaN(float64(v)) {
		return 0
	}
	f := math.Round(float64(v) * scale)
	if f > scale-1 {
		return int(scale - 1)
	}
	if f < -scale {
		return int(-scale)
	}
	return int(f)
}

// Close fixes up the WAV header sizes and closes the file. An output that never received a
// frame still becomes a valid, empty WAV file.
func (s *WavOutputStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	if s.frames == 0 {
		s.buf.Data = s.buf.Data[:0]
		if err := s.encoder.Write(s.buf); err != nil {
			_ = s.file.Close()
			return common.IOFailure("write", s.file.Name(), err)
		}
	}
	if err := s.encoder.Close(); err != nil {
		_ = s.file.Close()
		return common.IOFailure("finalize", s.file.Name(), err)
	}
	if err := s.file.Close(); err != nil {
		return common.IOFailure("close", s.file.Name(), err)
	}
	return nil
}
