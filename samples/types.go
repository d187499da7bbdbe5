package samples

import (
	"math"
)

type ChannelCount uint16
type FrameCount int64
type SampleRate uint32
type SampleTime float32

const (
	MinChannelCount ChannelCount = 1
	MaxChannelCount ChannelCount = math.MaxUint16

	MinSampleRate SampleRate = 1
	MaxSampleRate SampleRate = math.MaxInt32

	MinSampleTime SampleTime = 1e-15
	MaxSampleTime SampleTime = 512
)

// FramesFor returns the number of whole frames covering the given number of seconds.
func FramesFor(rate SampleRate, seconds float32) FrameCount {
	return FrameCount(float64(seconds) * float64(rate))
}

func TimeOf(rate SampleRate, frames FrameCount) SampleTime {
	if rate == 0 {
		return 0
	}
	return SampleTime(float64(frames) / float64(rate))
}
