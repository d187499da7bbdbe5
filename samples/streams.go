package samples

import (
	"github.com/t2bot/synthkit/common"
)

// InputStream yields interleaved frames. Read returns fewer frames than requested only at
// the end of the stream.
type InputStream interface {
	Channels() ChannelCount
	SampleRate() SampleRate
	Read(buf []float32, frames FrameCount) (FrameCount, error)
}

type SeekableInputStream interface {
	InputStream
	Frames() FrameCount
	Position() FrameCount
	Seek(frame FrameCount) error
}

type OutputStream interface {
	Channels() ChannelCount
	SampleRate() SampleRate
	Write(buf []float32, frames FrameCount) error
}

func checkBuffer(op string, buf []float32, frames FrameCount, channels ChannelCount) error {
	if frames < 0 {
		return common.Precondition(op, "negative frame count %d", frames)
	}
	if int64(len(buf)) < int64(frames)*int64(channels) {
		return common.Precondition(op, "buffer holds %d values, %d frames of %d channels requested", len(buf), frames, channels)
	}
	return nil
}

func checkFormat(op string, rate SampleRate, channels ChannelCount) error {
	if channels < MinChannelCount {
		return common.Precondition(op, "channel count must be at least %d", MinChannelCount)
	}
	if rate < MinSampleRate || rate > MaxSampleRate {
		return common.Precondition(op, "sample rate %d out of range", rate)
	}
	return nil
}
