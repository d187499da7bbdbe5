package samples

import (
	"github.com/t2bot/synthkit/common"
)

// MemoryStream keeps interleaved frames in memory. It reads from its current position and
// appends on write, so one value can act as either end of a copy.
type MemoryStream struct {
	channels ChannelCount
	rate     SampleRate
	Data     []float32
	pos      FrameCount
}

func NewMemoryStream(channels ChannelCount, rate SampleRate, data []float32) *MemoryStream {
	return &MemoryStream{channels: channels, rate: rate, Data: data}
}

func (m *MemoryStream) Channels() ChannelCount {
	return m.channels
}

func (m *MemoryStream) SampleRate() SampleRate {
	return m.rate
}

func (m *MemoryStream) Frames() FrameCount {
	return FrameCount(len(m.Data) / int(m.channels))
}

func (m *MemoryStream) Position() FrameCount {
	return m.pos
}

func (m *MemoryStream) Seek(frame FrameCount) error {
	if frame < 0 || frame > m.Frames() {
		return common.Precondition("seek", "frame %d outside [0, %d]", frame, m.Frames())
	}
	m.pos = frame
	return nil
}

func (m *MemoryStream) Read(buf []float32, frames FrameCount) (FrameCount, error) {
	if frames <= 0 {
		return 0, common.Precondition("read", "frame count must be positive, got %d", frames)
	}
	if err := checkBuffer("read", buf, frames, m.channels); err != nil {
		return 0, err
	}
	if remaining := m.Frames() - m.pos; frames > remaining {
		frames = remaining
	}
	ch := int(m.channels)
	copy(buf, m.Data[int(m.pos)*ch:int(m.pos+frames)*ch])
	m.pos += frames
	return frames, nil
}

func (m *MemoryStream) Write(buf []float32, frames FrameCount) error {
	if err := checkBuffer("write", buf, frames, m.channels); err != nil {
		return err
	}
	m.Data = append(m.Data, buf[:int(frames)*int(m.channels)]...)
	return nil
}
